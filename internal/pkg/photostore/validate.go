package photostore

import (
	"net/http"
	"path/filepath"
	"strings"

	"github.com/ManuelReschke/UrbanFix/internal/pkg/apperror"
)

var allowedExt = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".webp": true,
	".bmp":  true,
}

var allowedMime = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
	"image/webp": true,
	"image/bmp":  true,
}

// ValidateBySniff checks the filename extension and the first bytes of the upload
// against the photo whitelist. It returns the detected mime type.
func ValidateBySniff(filename string, head []byte) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if !allowedExt[ext] {
		return "", apperror.Validation("photo", "only JPG, PNG, GIF, WEBP and BMP photos are supported")
	}

	detected := http.DetectContentType(head)

	// Block scriptable types regardless of extension
	if strings.HasPrefix(detected, "text/html") || strings.HasPrefix(detected, "application/xhtml") {
		return "", apperror.Validation("photo", "HTML content is not allowed")
	}
	if strings.HasPrefix(detected, "text/xml") || strings.HasPrefix(detected, "application/xml") || detected == "image/svg+xml" {
		return "", apperror.Validation("photo", "SVG and XML files are not supported")
	}

	if allowedMime[detected] {
		return detected, nil
	}
	return "", apperror.Validation("photo", "unsupported file type %s", detected)
}
