// Handles account endpoints: OTP verification, login and profile.

package handlers

import (
	"context"
	"log/slog"
	"time"

	"facultyfolio/internal/email"
	"facultyfolio/internal/server/dto"
	"facultyfolio/internal/server/reqctx"
	"facultyfolio/internal/storage/identity"

	"github.com/golang-jwt/jwt/v5"
)

// tokenValidity is how long an issued bearer token stays valid.
const tokenValidity = 24 * time.Hour

// AuthHandler handles account endpoints.
type AuthHandler struct {
	svc *Services
	cfg *Config
}

// NewAuthHandler creates a new auth handler.
func NewAuthHandler(svc *Services, cfg *Config) *AuthHandler {
	return &AuthHandler{svc: svc, cfg: cfg}
}

// SendOTP creates (or resets) an unverified account and emails a fresh
// one-time code. The code travels only by email.
func (h *AuthHandler) SendOTP(ctx context.Context, req *dto.SendOTPRequest) (*dto.MessageResponse, error) {
	if h.svc.Email == nil {
		return nil, dto.Internal("email delivery is not configured; account creation is disabled")
	}
	user, otp, err := h.svc.User.StartVerification(req.Email, req.Password)
	if err != nil {
		return nil, toAPIError(err, h.cfg.Quotas.MaxUploadBytes)
	}
	subject, body := email.VerificationEmail(otp, identity.OTPValidMinutes)
	if err := h.svc.Email.Send(ctx, user.Email, subject, body); err != nil {
		return nil, dto.InternalWithError("failed to send verification email", err)
	}
	slog.InfoContext(ctx, "OTP sent", "email", user.Email)
	return &dto.MessageResponse{Message: "OTP sent to email"}, nil
}

// VerifyEmail confirms the one-time code. Idempotent for already
// verified accounts.
func (h *AuthHandler) VerifyEmail(ctx context.Context, req *dto.VerifyEmailRequest) (*dto.MessageResponse, error) {
	if err := h.svc.User.VerifyEmail(req.Email, req.OTP); err != nil {
		return nil, toAPIError(err, h.cfg.Quotas.MaxUploadBytes)
	}
	return &dto.MessageResponse{Message: "Email verified successfully"}, nil
}

// VerifyAndRegister confirms the one-time code and completes
// registration with a display name.
func (h *AuthHandler) VerifyAndRegister(ctx context.Context, req *dto.VerifyAndRegisterRequest) (*dto.MessageResponse, error) {
	if err := h.svc.User.VerifyAndRegister(req.Name, req.Email, req.OTP); err != nil {
		return nil, toAPIError(err, h.cfg.Quotas.MaxUploadBytes)
	}
	slog.InfoContext(ctx, "User registered", "email", identity.NormalizeEmail(req.Email))
	return &dto.MessageResponse{Message: "User registered successfully"}, nil
}

// Login checks credentials and returns a bearer token.
func (h *AuthHandler) Login(ctx context.Context, req *dto.LoginRequest) (*dto.TokenResponse, error) {
	user, err := h.svc.User.Authenticate(req.Email, req.Password)
	if err != nil {
		slog.WarnContext(ctx, "Login refused", "email", identity.NormalizeEmail(req.Email), "ip", reqctx.ClientIP(ctx))
		return nil, toAPIError(err, h.cfg.Quotas.MaxUploadBytes)
	}

	now := time.Now()
	claims := jwt.MapClaims{
		"sub": user.ID.String(),
		"iat": now.Unix(),
		"exp": now.Add(tokenValidity).Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(h.cfg.JWTSecret)
	if err != nil {
		return nil, dto.InternalWithError("failed to sign token", err)
	}

	ip := reqctx.ClientIP(ctx)
	country := ""
	if h.svc.Geo != nil {
		country = h.svc.Geo.CountryCode(ip)
	}
	slog.InfoContext(ctx, "Login", "user_id", user.ID, "ip", ip, "country", country, "user_agent", reqctx.UserAgent(ctx))

	return &dto.TokenResponse{Token: token}, nil
}

// GetProfile returns the caller's account.
func (h *AuthHandler) GetProfile(ctx context.Context, user *identity.User, _ *dto.GetProfileRequest) (*dto.UserResponse, error) {
	out := userToDTO(user)
	return &out, nil
}

// UpdateProfile changes the caller's name and email.
func (h *AuthHandler) UpdateProfile(ctx context.Context, user *identity.User, req *dto.UpdateProfileRequest) (*dto.UserResponse, error) {
	updated, err := h.svc.User.UpdateProfile(user.ID, req.Name, req.Email)
	if err != nil {
		return nil, toAPIError(err, h.cfg.Quotas.MaxUploadBytes)
	}
	out := userToDTO(updated)
	return &out, nil
}
