package identity

import (
	"errors"
	"testing"

	"facultyfolio/internal/storage"
)

func newService(t *testing.T) *UserService {
	t.Helper()
	s, err := NewUserService(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func TestRegistrationFlow(t *testing.T) {
	s := newService(t)

	user, otp, err := s.StartVerification(" Ada@Example.EDU ", "hunter22")
	if err != nil {
		t.Fatal(err)
	}
	if user.Email != "ada@example.edu" {
		t.Fatalf("email not normalized: %q", user.Email)
	}
	if len(otp) != 6 {
		t.Fatalf("otp = %q", otp)
	}
	if user.Verified {
		t.Fatal("fresh account must be unverified")
	}

	// Login is refused until the email is verified.
	if _, err := s.Authenticate("ada@example.edu", "hunter22"); !errors.Is(err, ErrNotVerified) {
		t.Fatalf("expected ErrNotVerified, got %v", err)
	}

	if err := s.VerifyAndRegister("Ada", "ada@example.edu", "000000"); !errors.Is(err, ErrInvalidOTP) {
		t.Fatalf("expected ErrInvalidOTP, got %v", err)
	}
	if err := s.VerifyAndRegister("Ada", "ada@example.edu", otp); err != nil {
		t.Fatal(err)
	}
	if err := s.VerifyAndRegister("Ada", "ada@example.edu", otp); !errors.Is(err, ErrAlreadyRegistered) {
		t.Fatalf("expected ErrAlreadyRegistered, got %v", err)
	}

	got, err := s.Authenticate("Ada@example.edu", "hunter22")
	if err != nil {
		t.Fatal(err)
	}
	if got.Name != "Ada" || !got.Verified || got.ID != user.ID {
		t.Fatalf("authenticated user = %+v", got)
	}
	if _, err := s.Authenticate("ada@example.edu", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if _, err := s.Authenticate("nobody@example.edu", "hunter22"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestVerifyEmailIdempotent(t *testing.T) {
	s := newService(t)
	_, otp, err := s.StartVerification("bob@example.edu", "pw")
	if err != nil {
		t.Fatal(err)
	}
	if err := s.VerifyEmail("bob@example.edu", otp); err != nil {
		t.Fatal(err)
	}
	// A second verification succeeds even with a bogus code.
	if err := s.VerifyEmail("bob@example.edu", "999999"); err != nil {
		t.Fatal(err)
	}
	if err := s.VerifyEmail("ghost@example.edu", otp); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestStartVerificationResetsExisting(t *testing.T) {
	s := newService(t)
	user, otp1, err := s.StartVerification("eve@example.edu", "first")
	if err != nil {
		t.Fatal(err)
	}
	if err := s.VerifyEmail("eve@example.edu", otp1); err != nil {
		t.Fatal(err)
	}

	// A new request keeps the original password and un-verifies the
	// account until the new code is confirmed.
	again, otp2, err := s.StartVerification("eve@example.edu", "second")
	if err != nil {
		t.Fatal(err)
	}
	if again.ID != user.ID {
		t.Fatal("reset must not create a second account")
	}
	if _, err := s.Authenticate("eve@example.edu", "first"); !errors.Is(err, ErrNotVerified) {
		t.Fatalf("expected ErrNotVerified, got %v", err)
	}
	if err := s.VerifyEmail("eve@example.edu", otp2); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Authenticate("eve@example.edu", "second"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("password must not be overwritten, got %v", err)
	}
	if _, err := s.Authenticate("eve@example.edu", "first"); err != nil {
		t.Fatal(err)
	}
}

func TestExpiredOTP(t *testing.T) {
	s := newService(t)
	user, otp, err := s.StartVerification("tim@example.edu", "pw")
	if err != nil {
		t.Fatal(err)
	}
	stored := s.table.Get(user.ID)
	stored.OTPExpires = storage.Now() - 1
	if _, err := s.table.Update(stored); err != nil {
		t.Fatal(err)
	}
	if err := s.VerifyEmail("tim@example.edu", otp); !errors.Is(err, ErrOTPExpired) {
		t.Fatalf("expected ErrOTPExpired, got %v", err)
	}
}

func TestProfile(t *testing.T) {
	s := newService(t)
	user, otp, err := s.StartVerification("joe@example.edu", "pw")
	if err != nil {
		t.Fatal(err)
	}
	if err := s.VerifyAndRegister("Joe", "joe@example.edu", otp); err != nil {
		t.Fatal(err)
	}
	got, err := s.Get(user.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Name != "Joe" {
		t.Fatalf("name = %q", got.Name)
	}

	updated, err := s.UpdateProfile(user.ID, "Joseph", "Joseph@Example.EDU")
	if err != nil {
		t.Fatal(err)
	}
	if updated.Name != "Joseph" || updated.Email != "joseph@example.edu" {
		t.Fatalf("updated = %+v", updated)
	}

	if _, _, err := s.StartVerification("ann@example.edu", "pw"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.UpdateProfile(user.ID, "Joseph", "ann@example.edu"); !errors.Is(err, ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}
}
