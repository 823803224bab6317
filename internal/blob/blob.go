// Package blob stores proof-of-payment images.
package blob

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg" // register jpeg
	_ "image/png"  // register png
	"io"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	_ "golang.org/x/image/webp" // register webp
)

// AllowedExtensions is the upload allow-list.
var AllowedExtensions = map[string]bool{"png": true, "jpg": true, "jpeg": true, "webp": true}

var (
	// ErrInvalidUpload is wrapped by every rejection of the uploaded file itself.
	ErrInvalidUpload = errors.New("invalid upload")
	ErrExtension     = fmt.Errorf("%w: file type not allowed", ErrInvalidUpload)
	ErrTooLarge      = fmt.Errorf("%w: file too large", ErrInvalidUpload)
	ErrNotImage      = fmt.Errorf("%w: file is not a supported image", ErrInvalidUpload)
	ErrEmpty         = fmt.Errorf("%w: no file selected", ErrInvalidUpload)
)

// Store accepts a byte stream and returns a stable reference to it.
type Store interface {
	Put(ctx context.Context, filename string, r io.Reader) (string, error)
}

// LocalStore writes blobs to a directory on disk.
type LocalStore struct {
	dir      string
	prefix   string
	maxBytes int64
	now      func() time.Time
	logger   *zap.Logger
}

// NewLocalStore creates dir if needed. References are returned as
// "<prefix>/<name>".
func NewLocalStore(dir, prefix string, maxBytes int64, logger *zap.Logger) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LocalStore{
		dir:      dir,
		prefix:   prefix,
		maxBytes: maxBytes,
		now:      time.Now,
		logger:   logger,
	}, nil
}

// Dir returns the directory blobs are written to.
func (s *LocalStore) Dir() string { return s.dir }

// Put validates and stores an image under a timestamp-prefixed unique name.
func (s *LocalStore) Put(ctx context.Context, filename string, r io.Reader) (string, error) {
	if strings.TrimSpace(filename) == "" {
		return "", ErrEmpty
	}
	ext, ok := Extension(filename)
	if !ok {
		return "", ErrExtension
	}

	buf, err := io.ReadAll(io.LimitReader(r, s.maxBytes+1))
	if err != nil {
		return "", fmt.Errorf("read upload: %w", err)
	}
	if int64(len(buf)) > s.maxBytes {
		return "", ErrTooLarge
	}
	if len(buf) == 0 {
		return "", ErrEmpty
	}
	if _, format, err := image.DecodeConfig(bytes.NewReader(buf)); err != nil || !formatMatches(format, ext) {
		return "", ErrNotImage
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	name := fmt.Sprintf("%s_%s_%s",
		s.now().UTC().Format("20060102_150405"),
		strings.ReplaceAll(uuid.NewString(), "-", "")[:8],
		SanitizeFilename(filename),
	)
	if err := os.WriteFile(filepath.Join(s.dir, name), buf, 0o644); err != nil {
		return "", fmt.Errorf("write upload: %w", err)
	}
	s.logger.Debug("stored upload", zap.String("name", name), zap.Int("bytes", len(buf)))
	return path.Join(s.prefix, name), nil
}

// Extension returns the lower-cased extension of filename if it is allowed.
func Extension(filename string) (string, bool) {
	i := strings.LastIndex(filename, ".")
	if i < 0 || i == len(filename)-1 {
		return "", false
	}
	ext := strings.ToLower(filename[i+1:])
	return ext, AllowedExtensions[ext]
}

func formatMatches(format, ext string) bool {
	switch format {
	case "png":
		return ext == "png"
	case "jpeg":
		return ext == "jpg" || ext == "jpeg"
	case "webp":
		return ext == "webp"
	}
	return false
}

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9_.-]`)

// SanitizeFilename reduces a client-supplied name to a safe base name.
func SanitizeFilename(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, `\`, "/"))
	name = strings.Join(strings.Fields(name), "_")
	name = unsafeChars.ReplaceAllString(name, "")
	name = strings.TrimLeft(name, "._")
	if name == "" {
		return "upload"
	}
	return name
}
