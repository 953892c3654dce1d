package photostore

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/ManuelReschke/UrbanFix/internal/pkg/apperror"
	"github.com/gofiber/fiber/v2/log"
	"github.com/google/uuid"
)

const (
	keyPrefix     = "complaints"
	previewSuffix = "_preview.webp"
	sniffLen      = 512
)

// Photo describes a stored complaint photo.
type Photo struct {
	Ref        string   `json:"ref"`
	PreviewRef string   `json:"preview_ref,omitempty"`
	Latitude   *float64 `json:"latitude,omitempty"`
	Longitude  *float64 `json:"longitude,omitempty"`
}

// Store validates, normalizes and persists complaint photos.
type Store struct {
	backend Backend
	maxSize int64
	baseURL string
	now     func() time.Time
}

func NewStore(backend Backend, cfg *Config) *Store {
	maxSize := cfg.MaxSize
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	return &Store{
		backend: backend,
		maxSize: maxSize,
		baseURL: strings.TrimRight(cfg.PublicBaseURL, "/"),
		now:     time.Now,
	}
}

// Open picks the S3 backend when enabled and the local upload directory otherwise.
func Open(ctx context.Context, cfg *Config) (*Store, error) {
	if cfg.S3Enabled {
		b, err := NewS3Backend(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return NewStore(b, cfg), nil
	}
	log.Infof("[PhotoStore] Storing photos in %s", cfg.UploadDir)
	return NewStore(NewLocalBackend(cfg.UploadDir), cfg), nil
}

// Save reads an upload, validates it and stores the normalized photo with its preview.
func (s *Store) Save(ctx context.Context, filename string, r io.Reader) (*Photo, error) {
	data, err := io.ReadAll(io.LimitReader(r, s.maxSize+1))
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	if int64(len(data)) > s.maxSize {
		return nil, apperror.Validation("photo", "photo exceeds the maximum size of %d MB", s.maxSize>>20)
	}
	if len(data) == 0 {
		return nil, apperror.Validation("photo", "photo is empty")
	}

	head := data
	if len(head) > sniffLen {
		head = head[:sniffLen]
	}
	mime, err := ValidateBySniff(filename, head)
	if err != nil {
		return nil, err
	}

	processed, err := Process(data, mime)
	if err != nil {
		return nil, apperror.Validation("photo", "photo could not be read")
	}

	now := s.now()
	base := fmt.Sprintf("%s/%04d/%02d/%s", keyPrefix, now.Year(), int(now.Month()), uuid.New().String())
	photo := &Photo{
		Ref:       base + processed.Ext,
		Latitude:  processed.Latitude,
		Longitude: processed.Longitude,
	}
	if err := s.backend.Put(ctx, photo.Ref, processed.ContentType, processed.Original); err != nil {
		return nil, fmt.Errorf("store photo: %w", err)
	}
	if processed.Preview != nil {
		photo.PreviewRef = base + previewSuffix
		if err := s.backend.Put(ctx, photo.PreviewRef, "image/webp", processed.Preview); err != nil {
			log.Warnf("[PhotoStore] Could not store preview %s: %v", photo.PreviewRef, err)
			photo.PreviewRef = ""
		}
	}
	log.Infof("[PhotoStore] Stored %s (%dx%d)", photo.Ref, processed.Width, processed.Height)
	return photo, nil
}

// PreviewRef derives the preview key of a stored photo.
func PreviewRef(ref string) string {
	return strings.TrimSuffix(ref, path.Ext(ref)) + previewSuffix
}

// Delete removes a photo and its preview.
func (s *Store) Delete(ctx context.Context, ref string) error {
	if ref == "" {
		return nil
	}
	if err := s.backend.Delete(ctx, ref); err != nil {
		return fmt.Errorf("delete photo %s: %w", ref, err)
	}
	if err := s.backend.Delete(ctx, PreviewRef(ref)); err != nil {
		log.Warnf("[PhotoStore] Could not delete preview of %s: %v", ref, err)
	}
	return nil
}

// URL returns the public address of a stored photo.
func (s *Store) URL(ref string) string {
	if ref == "" {
		return ""
	}
	return s.baseURL + "/" + ref
}
