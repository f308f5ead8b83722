package dto

// MessageResponse carries a human-readable status message.
type MessageResponse struct {
	Message string `json:"message"`
}

// TokenResponse carries a bearer token after a successful login.
type TokenResponse struct {
	Token string `json:"token"`
}

// UserResponse is the outward account representation.
type UserResponse struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	Name     string `json:"name"`
	Verified bool   `json:"verified"`
	Created  string `json:"created"`
	Modified string `json:"modified"`
}

// AttachmentResponse is one stored file of a record.
type AttachmentResponse struct {
	StorageRef string `json:"storageRef"`
	FileName   string `json:"fileName"`
	SizeBytes  int64  `json:"sizeBytes"`
}

// RecordResponse is one portfolio record.
type RecordResponse struct {
	ID          string               `json:"id"`
	Kind        string               `json:"kind"`
	Fields      map[string]any       `json:"fields"`
	Attachments []AttachmentResponse `json:"attachments"`
	Created     string               `json:"created"`
}

// RecordListResponse lists the caller's records of one kind.
type RecordListResponse struct {
	Records []RecordResponse `json:"records"`
}

// DeleteRecordResponse confirms a deletion.
type DeleteRecordResponse struct {
	Ok bool `json:"ok"`
}

// HealthResponse reports server health.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}
