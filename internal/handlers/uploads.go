package handlers

import (
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"sitekeeper-api/internal/models"

	"github.com/go-chi/chi/v5"
)

// UploadsHandler stores photo uploads on disk and records them in the
// attachments table. Checklist photo answers reference uploads by handle.
type UploadsHandler struct {
	DB       *sql.DB
	MediaDir string
	MaxBytes int64
}

// NewUploadsHandler creates a new uploads handler
func NewUploadsHandler(db *sql.DB, mediaDir string) *UploadsHandler {
	return &UploadsHandler{
		DB:       db,
		MediaDir: mediaDir,
		MaxBytes: 10 << 20, // 10 MB
	}
}

var allowedImageTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
}

// UploadPhoto accepts a multipart image upload and returns the attachment
// record, including the handle to use in photo checklist answers
func (h *UploadsHandler) UploadPhoto(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.MaxBytes)

	if !strings.Contains(r.Header.Get("Content-Type"), "multipart/form-data") {
		http.Error(w, "content-type must be multipart/form-data", http.StatusBadRequest)
		return
	}
	if err := r.ParseMultipartForm(h.MaxBytes); err != nil {
		http.Error(w, "invalid multipart form: "+err.Error(), http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "file is required: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer file.Close()

	// Sniff the real content type; the client header is just a claim
	head := make([]byte, 512)
	n, err := file.Read(head)
	if err != nil && err != io.EOF {
		http.Error(w, "failed to read file", http.StatusInternalServerError)
		return
	}
	contentType := http.DetectContentType(head[:n])
	ext, ok := allowedImageTypes[contentType]
	if !ok {
		http.Error(w, "only JPEG, PNG, and WebP images are accepted", http.StatusUnsupportedMediaType)
		return
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		http.Error(w, "failed to read file", http.StatusInternalServerError)
		return
	}

	handle, err := newHandle()
	if err != nil {
		http.Error(w, "failed to issue handle", http.StatusInternalServerError)
		return
	}

	if err := os.MkdirAll(h.MediaDir, 0o755); err != nil {
		http.Error(w, "failed to prepare media directory", http.StatusInternalServerError)
		return
	}

	path := filepath.Join(h.MediaDir, handle+ext)
	dst, err := os.Create(path)
	if err != nil {
		http.Error(w, "failed to store file", http.StatusInternalServerError)
		return
	}
	size, err := io.Copy(dst, file)
	if cerr := dst.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(path)
		http.Error(w, "failed to store file", http.StatusInternalServerError)
		return
	}

	var att models.Attachment
	err = h.DB.QueryRowContext(r.Context(), `
		INSERT INTO attachments (handle, filename, content_type, size_bytes)
		VALUES ($1, $2, $3, $4)
		RETURNING id, handle, filename, content_type, size_bytes, created_at
	`, handle, header.Filename, contentType, size).
		Scan(&att.ID, &att.Handle, &att.Filename, &att.ContentType, &att.SizeBytes, &att.CreatedAt)
	if err != nil {
		os.Remove(path)
		http.Error(w, "failed to record upload", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	writeJSONBody(w, att)
}

// GetPhoto streams a previously uploaded image by handle
func (h *UploadsHandler) GetPhoto(w http.ResponseWriter, r *http.Request) {
	handle := chi.URLParam(r, "handle")
	if !validHandle(handle) {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}

	var att models.Attachment
	err := h.DB.QueryRowContext(r.Context(), `
		SELECT id, handle, filename, content_type, size_bytes, created_at
		FROM attachments WHERE handle = $1`, handle).
		Scan(&att.ID, &att.Handle, &att.Filename, &att.ContentType, &att.SizeBytes, &att.CreatedAt)
	if err == sql.ErrNoRows {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, "database error", http.StatusInternalServerError)
		return
	}

	path := filepath.Join(h.MediaDir, att.Handle+allowedImageTypes[att.ContentType])
	f, err := os.Open(path)
	if err != nil {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	defer f.Close()

	w.Header().Set("Content-Type", att.ContentType)
	io.Copy(w, f)
}

// newHandle returns a random 32-hex-char upload handle
func newHandle() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return "ph_" + hex.EncodeToString(b), nil
}

func validHandle(h string) bool {
	if len(h) == 0 || len(h) > 128 {
		return false
	}
	for _, c := range h {
		switch {
		case c >= 'a' && c <= 'z', c >= '0' && c <= '9', c == '_':
		default:
			return false
		}
	}
	return true
}

func writeJSONBody(w http.ResponseWriter, v interface{}) {
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
