// Package media stores uploaded images (product photos, profile pictures)
// in an object store and hands out time-limited URLs for them.
package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
)

var (
	ErrTooLarge        = errors.New("media: file too large")
	ErrUnsupportedType = errors.New("media: unsupported file type")
	ErrNotFound        = errors.New("media: object not found")
)

// MaxImageBytes caps a single upload.
const MaxImageBytes = 5 << 20

var imageExt = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
}

type Config struct {
	Bucket     string        `koanf:"bucket"`
	Region     string        `koanf:"region"`
	Endpoint   string        `koanf:"endpoint" validate:"omitempty,url"`
	PathStyle  bool          `koanf:"path_style"`
	PresignTTL time.Duration `koanf:"presign_ttl"`
}

// ObjectStore is the blob storage used for images.
type ObjectStore interface {
	Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) error
	URL(ctx context.Context, key string) (string, error)
}

// Image is a validated upload ready to store.
type Image struct {
	Data        []byte
	ContentType string
}

// ReadImage reads at most MaxImageBytes from r and sniffs the content type
// from the bytes themselves; the client-declared type is ignored.
func ReadImage(r io.Reader) (Image, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxImageBytes+1))
	if err != nil {
		return Image{}, fmt.Errorf("read upload: %w", err)
	}
	if len(data) > MaxImageBytes {
		return Image{}, ErrTooLarge
	}
	ct := http.DetectContentType(data)
	if _, ok := imageExt[ct]; !ok {
		return Image{}, ErrUnsupportedType
	}
	return Image{Data: data, ContentType: ct}, nil
}

// Key builds a fresh object key such as products/prd-1/<uuid>.png.
func Key(prefix, ownerID, contentType string) string {
	return prefix + "/" + ownerID + "/" + uuid.NewString() + imageExt[contentType]
}

// Save stores img under a new key below prefix/ownerID and returns the key.
func Save(ctx context.Context, store ObjectStore, prefix, ownerID string, img Image) (string, error) {
	key := Key(prefix, ownerID, img.ContentType)
	if err := store.Put(ctx, key, bytes.NewReader(img.Data), int64(len(img.Data)), img.ContentType); err != nil {
		return "", err
	}
	return key, nil
}

// MemoryStore keeps objects in process. It backs local development when no
// bucket is configured.
type MemoryStore struct {
	mu      sync.RWMutex
	objects map[string]memObject
	base    string
}

type memObject struct {
	data        []byte
	contentType string
}

func NewMemoryStore(base string) *MemoryStore {
	return &MemoryStore{objects: map[string]memObject{}, base: base}
}

func (m *MemoryStore) Put(_ context.Context, key string, body io.Reader, _ int64, contentType string) error {
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.objects[key] = memObject{data: data, contentType: contentType}
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) URL(_ context.Context, key string) (string, error) {
	m.mu.RLock()
	_, ok := m.objects[key]
	m.mu.RUnlock()
	if !ok {
		return "", ErrNotFound
	}
	return m.base + "/" + key, nil
}

// Get returns a stored object.
func (m *MemoryStore) Get(key string) ([]byte, string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	o, ok := m.objects[key]
	return o.data, o.contentType, ok
}
