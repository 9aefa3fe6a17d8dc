package handlers

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUploadsHandler_UploadPhoto(t *testing.T) {
	handler := NewUploadsHandler(nil, t.TempDir())

	t.Run("rejects non-multipart content type", func(t *testing.T) {
		req := httptest.NewRequest("POST", "/uploads", nil)
		req.Header.Set("Content-Type", "application/json")

		w := httptest.NewRecorder()
		handler.UploadPhoto(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("rejects missing file", func(t *testing.T) {
		body := &bytes.Buffer{}
		writer := multipart.NewWriter(body)
		writer.Close()

		req := httptest.NewRequest("POST", "/uploads", body)
		req.Header.Set("Content-Type", writer.FormDataContentType())

		w := httptest.NewRecorder()
		handler.UploadPhoto(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "file is required")
	})

	t.Run("rejects non-image payload", func(t *testing.T) {
		body := &bytes.Buffer{}
		writer := multipart.NewWriter(body)
		fileWriter, _ := writer.CreateFormFile("file", "notes.txt")
		fileWriter.Write([]byte("definitely not an image"))
		writer.Close()

		req := httptest.NewRequest("POST", "/uploads", body)
		req.Header.Set("Content-Type", writer.FormDataContentType())

		w := httptest.NewRecorder()
		handler.UploadPhoto(w, req)

		assert.Equal(t, http.StatusUnsupportedMediaType, w.Code)
	})

	t.Run("rejects renamed non-image", func(t *testing.T) {
		// Extension says PNG, bytes say text; sniffing wins
		body := &bytes.Buffer{}
		writer := multipart.NewWriter(body)
		fileWriter, _ := writer.CreateFormFile("file", "photo.png")
		fileWriter.Write([]byte("still not an image"))
		writer.Close()

		req := httptest.NewRequest("POST", "/uploads", body)
		req.Header.Set("Content-Type", writer.FormDataContentType())

		w := httptest.NewRecorder()
		handler.UploadPhoto(w, req)

		assert.Equal(t, http.StatusUnsupportedMediaType, w.Code)
	})
}

func TestNewHandle(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		h, err := newHandle()
		require.NoError(t, err)
		assert.True(t, validHandle(h), "handle %q should be valid", h)
		assert.False(t, seen[h], "handle %q repeated", h)
		seen[h] = true
	}
}

func TestValidHandle(t *testing.T) {
	tests := []struct {
		name   string
		handle string
		want   bool
	}{
		{"typical handle", "ph_0123456789abcdef0123456789abcdef", true},
		{"empty", "", false},
		{"uppercase", "PH_ABC", false},
		{"path traversal", "../etc/passwd", false},
		{"slash", "ph/abc", false},
		{"too long", string(make([]byte, 129)), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, validHandle(tt.handle))
		})
	}
}
