// Package identity manages faculty accounts: OTP-based email
// verification, password authentication and profile data, backed by a
// JSONL table.
package identity

import (
	"errors"

	"facultyfolio/internal/storage"

	"github.com/maruel/ksid"
)

var (
	errUserIDRequired = errors.New("id is required")
	errEmailEmpty     = errors.New("email is required")

	// ErrNotFound is returned when no account exists for the email or id.
	ErrNotFound = errors.New("user not found")
	// ErrAlreadyRegistered is returned when registering an account that
	// already completed verification.
	ErrAlreadyRegistered = errors.New("user already registered")
	// ErrInvalidCredentials is returned for a bad email/password pair.
	// Unknown email and wrong password are indistinguishable.
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrNotVerified is returned when logging in before email verification.
	ErrNotVerified = errors.New("email not verified")
	// ErrInvalidOTP is returned for a wrong or missing one-time code.
	ErrInvalidOTP = errors.New("incorrect OTP")
	// ErrOTPExpired is returned for a correct but stale one-time code.
	ErrOTPExpired = errors.New("OTP has expired")
	// ErrEmailTaken is returned when a profile update collides with
	// another account's email.
	ErrEmailTaken = errors.New("email already in use")
)

// User is the outward account representation. It never carries the
// password hash or a pending one-time code.
type User struct {
	ID       ksid.ID      `json:"id"`
	Email    string       `json:"email"`
	Name     string       `json:"name"`
	Verified bool         `json:"verified"`
	Created  storage.Time `json:"created"`
	Modified storage.Time `json:"modified"`
}

// userStorage is the on-disk row, secrets included.
type userStorage struct {
	User
	PasswordHash string `json:"password_hash"`
	// OTP is the pending verification code, empty when none.
	OTP        string       `json:"otp,omitempty"`
	OTPExpires storage.Time `json:"otp_expires,omitempty"`
}

// Clone returns a deep copy.
func (u *userStorage) Clone() *userStorage {
	c := *u
	return &c
}

// GetID returns the user's ID.
func (u *userStorage) GetID() ksid.ID {
	return u.ID
}

// Validate checks that the row is storable.
func (u *userStorage) Validate() error {
	if u.ID.IsZero() {
		return errUserIDRequired
	}
	if u.Email == "" {
		return errEmailEmpty
	}
	return nil
}
