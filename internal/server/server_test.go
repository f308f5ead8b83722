package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"sync"
	"testing"

	"facultyfolio/internal/blobstore"
	"facultyfolio/internal/records"
	"facultyfolio/internal/server/handlers"
	"facultyfolio/internal/server/ratelimit"
	"facultyfolio/internal/storage"
	"facultyfolio/internal/storage/identity"
)

// capturingSender records sent emails instead of delivering them.
type capturingSender struct {
	mu   sync.Mutex
	sent []sentEmail
}

type sentEmail struct {
	to      string
	subject string
	body    string
}

func (s *capturingSender) Send(_ context.Context, to, subject, body string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, sentEmail{to: to, subject: subject, body: body})
	return nil
}

func (s *capturingSender) lastOTP(t *testing.T) string {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.sent) == 0 {
		t.Fatal("no email was sent")
	}
	m := regexp.MustCompile(`\b(\d{6})\b`).FindStringSubmatch(s.sent[len(s.sent)-1].body)
	if m == nil {
		t.Fatalf("no OTP found in email body: %q", s.sent[len(s.sent)-1].body)
	}
	return m[1]
}

type testEnv struct {
	server *httptest.Server
	email  *capturingSender
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	userService, err := identity.NewUserService(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	blobs, err := blobstore.New(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	quotas := storage.DefaultQuotas()
	store, err := records.NewStore(t.TempDir(), blobs, quotas)
	if err != nil {
		t.Fatal(err)
	}
	sender := &capturingSender{}
	svc := &handlers.Services{
		User:    userService,
		Records: store,
		Email:   sender,
	}
	cfg := &handlers.Config{
		JWTSecret: []byte("test-secret-0123456789abcdef0123456789abcdef"),
		Version:   "test",
		Quotas:    quotas,
	}
	// High enough that the test flow never trips the auth limiter.
	limiters := ratelimit.NewConfig(1000)
	t.Cleanup(limiters.Close)

	env := &testEnv{
		server: httptest.NewServer(NewRouter(svc, cfg, limiters)),
		email:  sender,
	}
	t.Cleanup(env.server.Close)
	return env
}

func (e *testEnv) postJSON(t *testing.T, path, token string, body any) (int, map[string]any) {
	t.Helper()
	return e.doJSON(t, http.MethodPost, path, token, body)
}

func (e *testEnv) doJSON(t *testing.T, method, path, token string, body any) (int, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req, err := http.NewRequest(method, e.server.URL+path, &buf)
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := e.server.Client().Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var decoded map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil && err != io.EOF {
		t.Fatal(err)
	}
	return resp.StatusCode, decoded
}

// register runs the full account creation flow and returns a login token.
func (e *testEnv) register(t *testing.T, email, password, name string) string {
	t.Helper()
	status, _ := e.postJSON(t, "/api/users/send-otp", "", map[string]string{
		"email": email, "password": password,
	})
	if status != http.StatusOK {
		t.Fatalf("send-otp status = %d", status)
	}
	otp := e.email.lastOTP(t)
	status, _ = e.postJSON(t, "/api/users/verify-and-register", "", map[string]string{
		"name": name, "email": email, "otp": otp,
	})
	if status != http.StatusOK {
		t.Fatalf("verify-and-register status = %d", status)
	}
	status, body := e.postJSON(t, "/api/users/login", "", map[string]string{
		"email": email, "password": password,
	})
	if status != http.StatusOK {
		t.Fatalf("login status = %d: %v", status, body)
	}
	token, _ := body["token"].(string)
	if token == "" {
		t.Fatalf("no token in login response: %v", body)
	}
	return token
}

// createRecord posts a multipart record with one PDF attachment.
func (e *testEnv) createRecord(t *testing.T, token, kind string, fields map[string]string) map[string]any {
	t.Helper()
	status, body := e.uploadRecord(t, http.MethodPost, "/api/"+kind, token, fields, map[string][]byte{
		"cv.pdf": []byte("%PDF-1.4 test"),
	})
	if status != http.StatusCreated {
		t.Fatalf("create %s status = %d: %v", kind, status, body)
	}
	return body
}

func (e *testEnv) uploadRecord(t *testing.T, method, path, token string, fields map[string]string, files map[string][]byte) (int, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			t.Fatal(err)
		}
	}
	for name, content := range files {
		hdr := make(map[string][]string)
		hdr["Content-Disposition"] = []string{fmt.Sprintf(`form-data; name="files"; filename=%q`, name)}
		hdr["Content-Type"] = []string{"application/pdf"}
		part, err := mw.CreatePart(hdr)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := part.Write(content); err != nil {
			t.Fatal(err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatal(err)
	}
	req, err := http.NewRequest(method, e.server.URL+path, &buf)
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := e.server.Client().Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var decoded map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil && err != io.EOF {
		t.Fatal(err)
	}
	return resp.StatusCode, decoded
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)
	resp, err := env.server.Client().Get(env.server.URL + "/api/health")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var body map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body["status"] != "ok" {
		t.Errorf("status field = %v", body["status"])
	}
}

func TestAccountLifecycle(t *testing.T) {
	env := newTestEnv(t)

	// Login before verification must fail.
	status, _ := env.postJSON(t, "/api/users/send-otp", "", map[string]string{
		"email": "Pat@Example.edu", "password": "hunter22",
	})
	if status != http.StatusOK {
		t.Fatalf("send-otp status = %d", status)
	}
	status, _ = env.postJSON(t, "/api/users/login", "", map[string]string{
		"email": "pat@example.edu", "password": "hunter22",
	})
	if status != http.StatusForbidden {
		t.Fatalf("unverified login status = %d, want 403", status)
	}

	// Wrong OTP is rejected.
	status, _ = env.postJSON(t, "/api/users/verify-and-register", "", map[string]string{
		"name": "Pat", "email": "pat@example.edu", "otp": "000000",
	})
	if status != http.StatusBadRequest {
		t.Fatalf("bad OTP status = %d, want 400", status)
	}

	otp := env.email.lastOTP(t)
	status, _ = env.postJSON(t, "/api/users/verify-and-register", "", map[string]string{
		"name": "Pat", "email": "PAT@example.edu", "otp": otp,
	})
	if status != http.StatusOK {
		t.Fatalf("verify-and-register status = %d", status)
	}

	// Registering again must conflict.
	status, _ = env.postJSON(t, "/api/users/verify-and-register", "", map[string]string{
		"name": "Pat", "email": "pat@example.edu", "otp": otp,
	})
	if status != http.StatusConflict {
		t.Fatalf("repeat register status = %d, want 409", status)
	}

	status, body := env.postJSON(t, "/api/users/login", "", map[string]string{
		"email": "pat@example.edu", "password": "hunter22",
	})
	if status != http.StatusOK {
		t.Fatalf("login status = %d: %v", status, body)
	}
	token, _ := body["token"].(string)

	status, body = env.doJSON(t, http.MethodGet, "/api/users/profile", token, nil)
	if status != http.StatusOK {
		t.Fatalf("profile status = %d", status)
	}
	if body["email"] != "pat@example.edu" {
		t.Errorf("profile email = %v", body["email"])
	}
	if body["name"] != "Pat" {
		t.Errorf("profile name = %v", body["name"])
	}
}

func TestAuthRequired(t *testing.T) {
	env := newTestEnv(t)
	for _, tc := range []struct{ method, path string }{
		{http.MethodGet, "/api/users/profile"},
		{http.MethodGet, "/api/documents"},
		{http.MethodDelete, "/api/awards/0000000000000000000000000"},
	} {
		status, _ := env.doJSON(t, tc.method, tc.path, "", nil)
		if status != http.StatusUnauthorized {
			t.Errorf("%s %s status = %d, want 401", tc.method, tc.path, status)
		}
	}

	// A garbage token is also rejected.
	status, _ := env.doJSON(t, http.MethodGet, "/api/documents", "not-a-jwt", nil)
	if status != http.StatusUnauthorized {
		t.Errorf("garbage token status = %d, want 401", status)
	}
}

func TestRecordLifecycle(t *testing.T) {
	env := newTestEnv(t)
	token := env.register(t, "prof@example.edu", "secret-pw", "Prof")

	created := env.createRecord(t, token, "patents", map[string]string{
		"title":        "Widget",
		"patentNumber": "US-123",
	})
	id, _ := created["id"].(string)
	if id == "" {
		t.Fatalf("no id in create response: %v", created)
	}
	fields, _ := created["fields"].(map[string]any)
	if fields["title"] != "Widget" {
		t.Errorf("title = %v", fields["title"])
	}

	status, body := env.doJSON(t, http.MethodGet, "/api/patents", token, nil)
	if status != http.StatusOK {
		t.Fatalf("list status = %d", status)
	}
	items, _ := body["records"].([]any)
	if len(items) != 1 {
		t.Fatalf("list returned %d records, want 1", len(items))
	}

	// Download the attachment.
	attachments, _ := created["attachments"].([]any)
	if len(attachments) != 1 {
		t.Fatalf("attachments = %v", created["attachments"])
	}
	ref, _ := attachments[0].(map[string]any)["storageRef"].(string)
	req, err := http.NewRequest(http.MethodGet, env.server.URL+"/api/patents/files/"+ref, nil)
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := env.server.Client().Do(req)
	if err != nil {
		t.Fatal(err)
	}
	content, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("download status = %d", resp.StatusCode)
	}
	if !strings.HasPrefix(string(content), "%PDF") {
		t.Errorf("downloaded content = %q", content)
	}
	if cd := resp.Header.Get("Content-Disposition"); !strings.Contains(cd, "cv.pdf") {
		t.Errorf("Content-Disposition = %q", cd)
	}
	// Forced download, never the file's own media type.
	if ct := resp.Header.Get("Content-Type"); ct != "application/octet-stream" {
		t.Errorf("Content-Type = %q, want application/octet-stream", ct)
	}

	// Update the record's fields.
	status, body = env.uploadRecord(t, http.MethodPut, "/api/patents/"+id, token, map[string]string{
		"title":        "Improved Widget",
		"patentNumber": "US-124",
	}, nil)
	if status != http.StatusOK {
		t.Fatalf("update status = %d: %v", status, body)
	}
	fields, _ = body["fields"].(map[string]any)
	if fields["title"] != "Improved Widget" {
		t.Errorf("updated title = %v", fields["title"])
	}
	attachments, _ = body["attachments"].([]any)
	if len(attachments) != 1 {
		t.Errorf("update without files should keep attachments, got %v", body["attachments"])
	}

	status, body = env.doJSON(t, http.MethodDelete, "/api/patents/"+id, token, nil)
	if status != http.StatusOK {
		t.Fatalf("delete status = %d: %v", status, body)
	}
	status, body = env.doJSON(t, http.MethodGet, "/api/patents", token, nil)
	if status != http.StatusOK {
		t.Fatal("list after delete failed")
	}
	items, _ = body["records"].([]any)
	if len(items) != 0 {
		t.Errorf("list after delete returned %d records", len(items))
	}
}

func TestRecordValidation(t *testing.T) {
	env := newTestEnv(t)
	token := env.register(t, "val@example.edu", "secret-pw", "Val")

	// Missing required field.
	status, body := env.uploadRecord(t, http.MethodPost, "/api/workshops", token, map[string]string{
		"venue": "Hall A",
	}, map[string][]byte{"a.pdf": []byte("%PDF-1.4")})
	if status != http.StatusBadRequest {
		t.Fatalf("missing fields status = %d: %v", status, body)
	}

	// No files on create.
	status, _ = env.uploadRecord(t, http.MethodPost, "/api/awards", token, map[string]string{
		"title": "Best Paper",
	}, nil)
	if status != http.StatusBadRequest {
		t.Fatalf("no files status = %d", status)
	}

	// Unknown kind.
	status, _ = env.uploadRecord(t, http.MethodPost, "/api/nonsense", token, map[string]string{}, map[string][]byte{"a.pdf": []byte("x")})
	if status != http.StatusNotFound {
		t.Fatalf("unknown kind status = %d, want 404", status)
	}
}

func TestRecordOwnerIsolation(t *testing.T) {
	env := newTestEnv(t)
	owner := env.register(t, "owner@example.edu", "secret-pw", "Owner")
	other := env.register(t, "other@example.edu", "secret-pw", "Other")

	created := env.createRecord(t, owner, "talks", map[string]string{"title": "Keynote"})
	id, _ := created["id"].(string)

	status, body := env.doJSON(t, http.MethodGet, "/api/talks", other, nil)
	if status != http.StatusOK {
		t.Fatal("list failed")
	}
	if items, _ := body["records"].([]any); len(items) != 0 {
		t.Errorf("other user sees %d records", len(items))
	}

	status, _ = env.doJSON(t, http.MethodDelete, "/api/talks/"+id, other, nil)
	if status != http.StatusNotFound {
		t.Errorf("cross-owner delete status = %d, want 404", status)
	}

	// Record still exists for the owner.
	status, body = env.doJSON(t, http.MethodGet, "/api/talks", owner, nil)
	if status != http.StatusOK {
		t.Fatal("owner list failed")
	}
	if items, _ := body["records"].([]any); len(items) != 1 {
		t.Errorf("owner list returned %d records", len(items))
	}
}

func TestAuthRateLimit(t *testing.T) {
	userService, err := identity.NewUserService(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	blobs, err := blobstore.New(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	store, err := records.NewStore(t.TempDir(), blobs, storage.DefaultQuotas())
	if err != nil {
		t.Fatal(err)
	}
	svc := &handlers.Services{User: userService, Records: store, Email: &capturingSender{}}
	cfg := &handlers.Config{JWTSecret: []byte("test-secret"), Quotas: storage.DefaultQuotas()}
	limiters := ratelimit.NewConfig(2)
	t.Cleanup(limiters.Close)
	srv := httptest.NewServer(NewRouter(svc, cfg, limiters))
	t.Cleanup(srv.Close)

	env := &testEnv{server: srv}
	var lastStatus int
	for range 5 {
		lastStatus, _ = env.postJSON(t, "/api/users/login", "", map[string]string{
			"email": "x@example.edu", "password": "pw",
		})
	}
	if lastStatus != http.StatusTooManyRequests {
		t.Fatalf("status after burst = %d, want 429", lastStatus)
	}
}
