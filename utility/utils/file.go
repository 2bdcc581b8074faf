package utils

import (
	"mime"
	"os"
	"path/filepath"
)

// Exists reports whether path exists on disk.
func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// CreateNestedFile creates path along with any missing parent
// directories and returns the opened file.
func CreateNestedFile(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	return os.Create(path)
}

// GetMimeType returns the MIME type inferred from name's extension,
// defaulting to application/octet-stream.
func GetMimeType(name string) string {
	if t := mime.TypeByExtension(filepath.Ext(name)); t != "" {
		return t
	}
	return "application/octet-stream"
}
