package identity

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"facultyfolio/internal/jsonldb"
	"facultyfolio/internal/storage"
	"facultyfolio/internal/utils"

	"github.com/maruel/ksid"
	"golang.org/x/crypto/bcrypt"
)

// otpValidity is how long a one-time code stays usable.
const otpValidity = 10 * time.Minute

// OTPValidMinutes is otpValidity in minutes, for email copy.
const OTPValidMinutes = int(otpValidity / time.Minute)

// UserService handles account management and authentication.
type UserService struct {
	table   *jsonldb.Table[*userStorage]
	byEmail *jsonldb.UniqueIndex[string, *userStorage]
}

// NewUserService opens (or creates) the users table under dbDir.
func NewUserService(dbDir string) (*UserService, error) {
	table, err := jsonldb.NewTable[*userStorage](filepath.Join(dbDir, "users.jsonl"))
	if err != nil {
		return nil, err
	}
	byEmail := jsonldb.NewUniqueIndex(table, func(u *userStorage) string { return u.Email })
	return &UserService{table: table, byEmail: byEmail}, nil
}

// NormalizeEmail canonicalizes an email address for storage and lookup.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// StartVerification creates an unverified account (or resets an existing
// unverified one) and issues a fresh one-time code. The code is returned
// so the caller can email it; it is never part of any API response. For
// an existing account the stored password is left alone.
func (s *UserService) StartVerification(email, password string) (*User, string, error) {
	email = NormalizeEmail(email)
	if email == "" || password == "" {
		return nil, "", fmt.Errorf("%w: email and password are required", ErrInvalidCredentials)
	}
	otp, err := utils.GenerateOTP(6)
	if err != nil {
		return nil, "", fmt.Errorf("failed to generate OTP: %w", err)
	}

	stored := s.lookup(email)
	if stored == nil {
		hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
		if err != nil {
			return nil, "", fmt.Errorf("failed to hash password: %w", err)
		}
		now := storage.Now()
		stored = &userStorage{
			User: User{
				ID:       ksid.NewID(),
				Email:    email,
				Created:  now,
				Modified: now,
			},
			PasswordHash: string(hash),
			OTP:          otp,
			OTPExpires:   storage.ToTime(time.Now().Add(otpValidity)),
		}
		if err := s.table.Append(stored); err != nil {
			return nil, "", err
		}
	} else {
		// Requesting a new code un-verifies the account until the new
		// code is confirmed.
		stored.Verified = false
		stored.OTP = otp
		stored.OTPExpires = storage.ToTime(time.Now().Add(otpValidity))
		stored.Modified = storage.Now()
		if _, err := s.table.Update(stored); err != nil {
			return nil, "", err
		}
	}
	user := stored.User
	return &user, otp, nil
}

// VerifyEmail confirms the one-time code. Verifying an already verified
// account is a no-op.
func (s *UserService) VerifyEmail(email, otp string) error {
	stored := s.lookup(NormalizeEmail(email))
	if stored == nil {
		return ErrNotFound
	}
	if stored.Verified {
		return nil
	}
	if err := checkOTP(stored, otp); err != nil {
		return err
	}
	return s.markVerified(stored, stored.Name)
}

// VerifyAndRegister confirms the one-time code and completes
// registration with the account's display name. Unlike VerifyEmail it
// refuses accounts that already registered.
func (s *UserService) VerifyAndRegister(name, email, otp string) error {
	stored := s.lookup(NormalizeEmail(email))
	if stored == nil {
		return ErrNotFound
	}
	if stored.Verified {
		return ErrAlreadyRegistered
	}
	if err := checkOTP(stored, otp); err != nil {
		return err
	}
	return s.markVerified(stored, strings.TrimSpace(name))
}

// Authenticate checks the email/password pair and returns the account.
// Only verified accounts can log in.
func (s *UserService) Authenticate(email, password string) (*User, error) {
	stored := s.lookup(NormalizeEmail(email))
	if stored == nil {
		return nil, ErrInvalidCredentials
	}
	if !stored.Verified {
		return nil, ErrNotVerified
	}
	if bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte(password)) != nil {
		return nil, ErrInvalidCredentials
	}
	user := stored.User
	return &user, nil
}

// Get returns the account by id.
func (s *UserService) Get(id ksid.ID) (*User, error) {
	stored := s.table.Get(id)
	if stored == nil {
		return nil, ErrNotFound
	}
	user := stored.User
	return &user, nil
}

// UpdateProfile changes the account's name and email.
func (s *UserService) UpdateProfile(id ksid.ID, name, email string) (*User, error) {
	stored := s.table.Get(id)
	if stored == nil {
		return nil, ErrNotFound
	}
	email = NormalizeEmail(email)
	if email == "" {
		return nil, errEmailEmpty
	}
	if other := s.byEmail.Get(email); other != nil && other.ID != id {
		return nil, ErrEmailTaken
	}
	stored.Name = strings.TrimSpace(name)
	stored.Email = email
	stored.Modified = storage.Now()
	if _, err := s.table.Update(stored); err != nil {
		return nil, err
	}
	user := stored.User
	return &user, nil
}

func (s *UserService) lookup(email string) *userStorage {
	if u := s.byEmail.Get(email); u != nil {
		return u.Clone()
	}
	return nil
}

func checkOTP(stored *userStorage, otp string) error {
	if stored.OTP == "" || stored.OTP != otp {
		return ErrInvalidOTP
	}
	if stored.OTPExpires.AsTime().Before(time.Now()) {
		return ErrOTPExpired
	}
	return nil
}

func (s *UserService) markVerified(stored *userStorage, name string) error {
	stored.Name = name
	stored.Verified = true
	stored.OTP = ""
	stored.OTPExpires = 0
	stored.Modified = storage.Now()
	_, err := s.table.Update(stored)
	return err
}
