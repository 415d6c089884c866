package gcs

import (
	"fmt"
	"path"
	"strings"

	"github.com/google/uuid"
)

// Object layout: covers/<book-id>/<filename> and pdfs/<book-id>/<filename>.

func CoverObjectPath(bookID uuid.UUID, filename string) string {
	return objectPath("covers", bookID, filename)
}

func PDFObjectPath(bookID uuid.UUID, filename string) string {
	return objectPath("pdfs", bookID, filename)
}

func objectPath(prefix string, bookID uuid.UUID, filename string) string {
	clean := path.Base(strings.TrimSpace(filename))
	if clean == "." || clean == "/" || clean == "" {
		clean = "file"
	}
	return fmt.Sprintf("%s/%s/%s", prefix, bookID, clean)
}

// ObjectFromURL extracts the bucket object from a public storage URL so
// deletes can target objects recorded as cover_url/pdf_url.
func ObjectFromURL(rawURL string) (string, bool) {
	trimmed := strings.TrimPrefix(rawURL, storageHost+"/")
	if trimmed == rawURL {
		return "", false
	}
	if idx := strings.IndexByte(trimmed, '?'); idx >= 0 {
		trimmed = trimmed[:idx]
	}
	parts := strings.SplitN(trimmed, "/", 2)
	if len(parts) != 2 || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}
