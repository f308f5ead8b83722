// Implements the HTTP API router.

//go:generate go run facultyfolio/internal/apiroutes -q

package server

import (
	"net/http"

	"facultyfolio/internal/server/handlers"
	"facultyfolio/internal/server/ratelimit"
)

// NewRouter creates the HTTP router with all API routes.
//
// Record routes use a {kind} wildcard. Literal routes like /api/health and
// /api/users/... take precedence over the wildcard per ServeMux matching
// rules, so they never shadow each other. Unknown kinds 404 inside the
// record handlers.
func NewRouter(svc *handlers.Services, cfg *handlers.Config, limiters *ratelimit.Config) *http.ServeMux {
	mux := http.NewServeMux()

	healthHandler := handlers.NewHealthHandler(cfg.Version)
	authHandler := handlers.NewAuthHandler(svc, cfg)
	recordsHandler := handlers.NewRecordsHandler(svc, cfg)

	// Health.
	mux.Handle("GET /api/health", Wrap(healthHandler.Health, cfg, limiters))

	// Account lifecycle.
	mux.Handle("POST /api/users/send-otp", Wrap(authHandler.SendOTP, cfg, limiters))
	mux.Handle("POST /api/users/verify-email", Wrap(authHandler.VerifyEmail, cfg, limiters))
	mux.Handle("POST /api/users/verify-and-register", Wrap(authHandler.VerifyAndRegister, cfg, limiters))
	mux.Handle("POST /api/users/login", Wrap(authHandler.Login, cfg, limiters))

	// Profile.
	mux.Handle("GET /api/users/profile", WrapAuth(authHandler.GetProfile, svc, cfg, limiters))
	mux.Handle("PUT /api/users/profile", WrapAuth(authHandler.UpdateProfile, svc, cfg, limiters))

	// Records, one wildcard route set for every kind.
	mux.Handle("GET /api/{kind}", WrapAuth(recordsHandler.List, svc, cfg, limiters))
	mux.Handle("POST /api/{kind}", WrapAuthRaw(recordsHandler.CreateHandler, svc, cfg, limiters))
	mux.Handle("PUT /api/{kind}/{id}", WrapAuthRaw(recordsHandler.UpdateHandler, svc, cfg, limiters))
	mux.Handle("DELETE /api/{kind}/{id}", WrapAuth(recordsHandler.Delete, svc, cfg, limiters))
	mux.Handle("GET /api/{kind}/files/{ref}", WrapAuthRaw(recordsHandler.DownloadHandler, svc, cfg, limiters))

	return mux
}
