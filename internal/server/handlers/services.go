// Defines shared service dependencies for handlers.

package handlers

import (
	"facultyfolio/internal/email"
	"facultyfolio/internal/records"
	"facultyfolio/internal/server/ipgeo"
	"facultyfolio/internal/storage"
	"facultyfolio/internal/storage/identity"
)

// Services holds all service dependencies for handlers.
type Services struct {
	User    *identity.UserService
	Records *records.Store
	Email   email.Sender  // nil when SMTP is not configured
	Geo     *ipgeo.Checker // nil when no MMDB file is configured
}

// Config holds configuration values needed by handlers.
type Config struct {
	JWTSecret []byte
	Version   string
	Quotas    storage.Quotas
}
