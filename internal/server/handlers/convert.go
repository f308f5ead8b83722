// Converts internal domain types to dto responses.

package handlers

import (
	"time"

	"facultyfolio/internal/records"
	"facultyfolio/internal/server/dto"
	"facultyfolio/internal/storage/identity"
)

func userToDTO(u *identity.User) dto.UserResponse {
	return dto.UserResponse{
		ID:       u.ID.String(),
		Email:    u.Email,
		Name:     u.Name,
		Verified: u.Verified,
		Created:  u.Created.AsTime().UTC().Format(time.RFC3339),
		Modified: u.Modified.AsTime().UTC().Format(time.RFC3339),
	}
}

func recordToDTO(r *records.Record) dto.RecordResponse {
	attachments := make([]dto.AttachmentResponse, len(r.Attachments))
	for i, a := range r.Attachments {
		attachments[i] = dto.AttachmentResponse{
			StorageRef: a.StorageRef,
			FileName:   a.Name,
			SizeBytes:  a.Size,
		}
	}
	return dto.RecordResponse{
		ID:          r.ID.String(),
		Kind:        r.Kind,
		Fields:      r.Fields,
		Attachments: attachments,
		Created:     r.Created.AsTime().UTC().Format(time.RFC3339),
	}
}

func recordsToDTO(recs []*records.Record) []dto.RecordResponse {
	out := make([]dto.RecordResponse, len(recs))
	for i, r := range recs {
		out[i] = recordToDTO(r)
	}
	return out
}
