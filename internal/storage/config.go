// Manages server configuration stored in server_config.json.

package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"facultyfolio/internal/email"
	"facultyfolio/internal/utils"
)

// ServerConfig stores all server-wide configuration.
// Loaded from server_config.json, created with defaults if missing.
type ServerConfig struct {
	// JWTSecret is the secret used to sign JWT tokens.
	// Auto-generated if empty on first load.
	JWTSecret []byte `json:"jwt_secret"`

	// SMTP holds email configuration. Empty host disables email features,
	// which in turn disables account creation (OTP delivery).
	SMTP email.Config `json:"smtp"`

	// Quotas defines upload and request limits.
	Quotas Quotas `json:"quotas"`

	// RateLimits defines rate limiting configuration.
	RateLimits RateLimits `json:"rate_limits"`
}

// Quotas defines upload and request limits.
type Quotas struct {
	// MaxRequestBodyBytes limits the size of any single HTTP request body.
	MaxRequestBodyBytes int64 `json:"max_request_body_bytes"`

	// MaxUploadBytes limits the size of a single uploaded file.
	MaxUploadBytes int64 `json:"max_upload_bytes"`

	// MaxFilesPerRecord limits the number of attachments per record.
	MaxFilesPerRecord int `json:"max_files_per_record"`

	// DownloadBytesPerSecond throttles attachment downloads per request.
	// 0 means unlimited.
	DownloadBytesPerSecond int64 `json:"download_bytes_per_second"`
}

// Validate checks that all quota values are usable.
func (q *Quotas) Validate() error {
	if q.MaxUploadBytes <= 0 {
		return errors.New("max_upload_bytes must be positive")
	}
	if q.MaxFilesPerRecord <= 0 {
		return errors.New("max_files_per_record must be positive")
	}
	if q.MaxRequestBodyBytes < 0 {
		return errors.New("max_request_body_bytes must be non-negative")
	}
	if q.DownloadBytesPerSecond < 0 {
		return errors.New("download_bytes_per_second must be non-negative")
	}
	return nil
}

// DefaultQuotas returns the default quotas, matching the upload rules the
// web client was built against.
func DefaultQuotas() Quotas {
	return Quotas{
		MaxRequestBodyBytes: 64 * 1024 * 1024, // headroom for 5 files of 10 MiB
		MaxUploadBytes:      10 * 1024 * 1024, // 10 MiB
		MaxFilesPerRecord:   5,
	}
}

// RateLimits defines rate limiting configuration (requests per minute).
type RateLimits struct {
	// AuthRatePerMin limits authentication attempts (send-otp, login) per IP.
	// 0 means unlimited.
	AuthRatePerMin int `json:"auth_rate_per_min"`
}

// Validate checks that rate limit values are non-negative.
func (r *RateLimits) Validate() error {
	if r.AuthRatePerMin < 0 {
		return errors.New("auth_rate_per_min must be non-negative")
	}
	return nil
}

// DefaultRateLimits returns the default rate limits.
func DefaultRateLimits() RateLimits {
	return RateLimits{AuthRatePerMin: 5}
}

// Validate checks that the configuration is valid.
func (c *ServerConfig) Validate() error {
	if len(c.JWTSecret) < 32 {
		return errors.New("jwt_secret must be at least 32 bytes")
	}
	if c.SMTP.Enabled() {
		if err := c.SMTP.Validate(); err != nil {
			return fmt.Errorf("smtp: %w", err)
		}
	}
	if err := c.Quotas.Validate(); err != nil {
		return fmt.Errorf("quotas: %w", err)
	}
	if err := c.RateLimits.Validate(); err != nil {
		return fmt.Errorf("rate_limits: %w", err)
	}
	return nil
}

// Save writes the configuration to dataDir/server_config.json.
func (c *ServerConfig) Save(dataDir string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	path := filepath.Join(dataDir, "server_config.json")
	if err := os.WriteFile(path, append(data, '\n'), 0o600); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// LoadServerConfig loads configuration from dataDir/server_config.json.
// Creates the file with defaults if it doesn't exist.
// Auto-generates JWTSecret if empty.
func LoadServerConfig(dataDir string) (*ServerConfig, error) {
	path := filepath.Join(dataDir, "server_config.json")

	cfg := ServerConfig{Quotas: DefaultQuotas(), RateLimits: DefaultRateLimits()}

	data, err := os.ReadFile(path) //nolint:gosec // G304: path is constructed from dataDir, not user input
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read server_config.json: %w", err)
		}
		// File doesn't exist, will create with defaults.
	} else {
		if err := json.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse server_config.json: %w", err)
		}
	}

	dirty := false
	if len(cfg.JWTSecret) == 0 {
		secret, err := utils.GenerateToken(32)
		if err != nil {
			return nil, fmt.Errorf("failed to generate jwt secret: %w", err)
		}
		cfg.JWTSecret = []byte(secret)
		dirty = true
	}
	if cfg.Quotas == (Quotas{}) {
		cfg.Quotas = DefaultQuotas()
		dirty = true
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if dirty || len(data) == 0 {
		if err := cfg.Save(dataDir); err != nil {
			return nil, err
		}
	}
	return &cfg, nil
}
