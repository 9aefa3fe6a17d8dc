package models

import "time"

// Attachment is an uploaded image. Photo checklist answers reference an
// attachment by its handle; the handle is opaque to clients.
type Attachment struct {
	ID          int64     `json:"id"`
	Handle      string    `json:"handle"`
	Filename    string    `json:"filename"`
	ContentType string    `json:"content_type"`
	SizeBytes   int64     `json:"size_bytes"`
	CreatedAt   time.Time `json:"created_at"`
}
