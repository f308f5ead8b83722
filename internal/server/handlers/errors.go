// Provides domain-to-API error translation and raw error responses.

package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"facultyfolio/internal/records"
	"facultyfolio/internal/server/dto"
	"facultyfolio/internal/storage/identity"
)

// toAPIError translates domain sentinel errors into dto errors with the
// right status code and error code. Unknown errors become 500s.
func toAPIError(err error, maxUploadBytes int64) error {
	var verr *records.ValidationError
	switch {
	case err == nil:
		return nil
	case errors.As(err, &verr):
		apiErr := dto.BadRequest(verr.Error())
		if len(verr.Fields) != 0 {
			apiErr = apiErr.WithDetail("fields", verr.Fields)
		}
		return apiErr
	case errors.Is(err, records.ErrNotFound):
		return dto.NotFound("record")
	case errors.Is(err, records.ErrUnsupportedMediaType):
		return dto.UnsupportedMediaType(err.Error())
	case errors.Is(err, records.ErrPayloadTooLarge):
		return dto.PayloadTooLarge(maxUploadBytes)
	case errors.Is(err, identity.ErrNotFound):
		return dto.BadRequest("User not found. Please request an OTP first.")
	case errors.Is(err, identity.ErrAlreadyRegistered):
		return dto.Conflict("User already registered. Please log in.")
	case errors.Is(err, identity.ErrInvalidCredentials):
		return dto.InvalidCredentials()
	case errors.Is(err, identity.ErrNotVerified):
		return dto.NotVerified()
	case errors.Is(err, identity.ErrInvalidOTP):
		return dto.BadRequest("Incorrect OTP")
	case errors.Is(err, identity.ErrOTPExpired):
		return dto.Expired("OTP")
	case errors.Is(err, identity.ErrEmailTaken):
		return dto.Conflict("Email already in use")
	default:
		return dto.StorageError(err)
	}
}

// writeErrorResponse writes an APIError as a JSON response.
// Use this in raw http.HandlerFunc handlers that don't use server.Wrap.
func writeErrorResponse(w http.ResponseWriter, err error) {
	statusCode := http.StatusInternalServerError
	errorCode := dto.ErrorCodeInternal
	message := "internal error"
	var details map[string]any

	var ewsErr dto.ErrorWithStatus
	if errors.As(err, &ewsErr) {
		statusCode = ewsErr.StatusCode()
		errorCode = ewsErr.Code()
		message = ewsErr.Error()
		details = ewsErr.Details()
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	response := dto.ErrorResponse{
		Error: dto.ErrorDetails{
			Code:    errorCode,
			Message: message,
		},
		Details: details,
	}

	if err := json.NewEncoder(w).Encode(response); err != nil {
		slog.Error("Failed to encode error response", "error", err)
	}
}
