package dto

import "strings"

// --- Accounts ---

// SendOTPRequest starts (or restarts) email verification for an account.
type SendOTPRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Validate validates the send OTP request fields.
func (r *SendOTPRequest) Validate() error {
	if strings.TrimSpace(r.Email) == "" {
		return MissingField("email")
	}
	if r.Password == "" {
		return MissingField("password")
	}
	return nil
}

// VerifyEmailRequest confirms an account's email with a one-time code.
type VerifyEmailRequest struct {
	Email string `json:"email"`
	OTP   string `json:"otp"`
}

// Validate validates the verify email request fields.
func (r *VerifyEmailRequest) Validate() error {
	if strings.TrimSpace(r.Email) == "" {
		return MissingField("email")
	}
	if r.OTP == "" {
		return MissingField("otp")
	}
	return nil
}

// VerifyAndRegisterRequest confirms the one-time code and completes
// registration with a display name.
type VerifyAndRegisterRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	OTP   string `json:"otp"`
}

// Validate validates the registration request fields.
func (r *VerifyAndRegisterRequest) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return MissingField("name")
	}
	if strings.TrimSpace(r.Email) == "" {
		return MissingField("email")
	}
	if r.OTP == "" {
		return MissingField("otp")
	}
	return nil
}

// LoginRequest is a request to log in.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Validate validates the login request fields.
func (r *LoginRequest) Validate() error {
	if strings.TrimSpace(r.Email) == "" {
		return MissingField("email")
	}
	if r.Password == "" {
		return MissingField("password")
	}
	return nil
}

// GetProfileRequest is a request for the caller's own profile.
type GetProfileRequest struct{}

// Validate is a no-op for GetProfileRequest.
func (r *GetProfileRequest) Validate() error {
	return nil
}

// UpdateProfileRequest updates the caller's name and email.
type UpdateProfileRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Validate validates the update profile request fields.
func (r *UpdateProfileRequest) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return MissingField("name")
	}
	if strings.TrimSpace(r.Email) == "" {
		return MissingField("email")
	}
	return nil
}

// --- Records ---

// ListRecordsRequest lists the caller's records of one kind.
type ListRecordsRequest struct {
	Kind string `path:"kind"`
}

// Validate validates the list records request fields.
func (r *ListRecordsRequest) Validate() error {
	if r.Kind == "" {
		return MissingField("kind")
	}
	return nil
}

// DeleteRecordRequest deletes one record by id.
type DeleteRecordRequest struct {
	Kind string `path:"kind"`
	ID   string `path:"id"`
}

// Validate validates the delete record request fields.
func (r *DeleteRecordRequest) Validate() error {
	if r.Kind == "" {
		return MissingField("kind")
	}
	if r.ID == "" {
		return MissingField("id")
	}
	return nil
}

// HealthRequest is a request for the health check.
type HealthRequest struct{}

// Validate is a no-op for HealthRequest.
func (r *HealthRequest) Validate() error {
	return nil
}
