// Package intake accepts uploaded image files: it checks declared type and size,
// sniffs the content and writes accepted bytes under the destination directory.
package intake

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/timmy/memegen/internal/domain"
)

// DefaultMaxBytes is the upload size limit used when none is configured.
const DefaultMaxBytes int64 = 5 * 1024 * 1024

// sniffLen is how many leading bytes are inspected to detect the content type.
const sniffLen = 3072

// DefaultAllowedTypes are the MIME types accepted when none are configured.
var DefaultAllowedTypes = []string{"image/jpeg", "image/png", "image/gif"}

var knownExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
}

// Config controls what the validator accepts and where accepted files go.
type Config struct {
	// MaxBytes is the largest accepted upload; larger files fail with ErrFileTooLarge.
	MaxBytes int64
	// AllowedTypes lists accepted MIME types; anything else fails with ErrInvalidFileType.
	AllowedTypes []string
	// DestinationDir receives accepted files. It is created if missing.
	DestinationDir string
}

// RawFile is an accepted upload written to disk, not yet normalized.
type RawFile struct {
	Name         string // generated file name inside DestinationDir
	Path         string // full path on disk
	Size         int64  // bytes written
	DeclaredType string
	DetectedType string
}

// Validator enforces type and size limits for uploads.
type Validator struct {
	cfg     Config
	allowed map[string]bool
}

// New creates a Validator and ensures the destination directory exists.
// Parameters:
//   - cfg: intake configuration; zero values fall back to defaults.
// Returns:
//   - *Validator: ready validator.
//   - error: non-nil if the destination directory cannot be created.
func New(cfg Config) (*Validator, error) {
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = DefaultMaxBytes
	}
	if len(cfg.AllowedTypes) == 0 {
		cfg.AllowedTypes = DefaultAllowedTypes
	}
	if cfg.DestinationDir == "" {
		return nil, errors.New("intake destination directory is required")
	}
	if err := os.MkdirAll(cfg.DestinationDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %w", err)
	}

	allowed := make(map[string]bool, len(cfg.AllowedTypes))
	for _, t := range cfg.AllowedTypes {
		allowed[strings.ToLower(strings.TrimSpace(t))] = true
	}
	return &Validator{cfg: cfg, allowed: allowed}, nil
}

// MaxBytes returns the configured size limit.
func (v *Validator) MaxBytes() int64 {
	return v.cfg.MaxBytes
}

// DestinationDir returns the directory accepted files are written to.
func (v *Validator) DestinationDir() string {
	return v.cfg.DestinationDir
}

// Validate checks a declared MIME type and byte size without touching the disk.
// Parameters:
//   - declaredType: Content-Type sent with the file part.
//   - size: declared byte size; negative means unknown.
// Returns:
//   - error: wraps ErrInvalidFileType or ErrFileTooLarge on rejection.
func (v *Validator) Validate(declaredType string, size int64) error {
	if !v.isAllowed(declaredType) {
		return fmt.Errorf("%w: only JPEG, PNG, and GIF images are allowed", domain.ErrInvalidFileType)
	}
	if size > v.cfg.MaxBytes {
		return fmt.Errorf("%w: max size is %d bytes", domain.ErrFileTooLarge, v.cfg.MaxBytes)
	}
	return nil
}

// Receive validates an upload and writes it to the destination directory.
// Nothing is left on disk when it returns an error.
// Parameters:
//   - ctx: context for cancellation.
//   - src: file content.
//   - filename: client-supplied file name, used only for its extension.
//   - declaredType: Content-Type sent with the file part.
//   - size: declared byte size; negative means unknown.
// Returns:
//   - *RawFile: the accepted file on disk.
//   - error: ErrInvalidFileType, ErrFileTooLarge or an I/O failure.
func (v *Validator) Receive(ctx context.Context, src io.Reader, filename, declaredType string, size int64) (*RawFile, error) {
	if err := v.Validate(declaredType, size); err != nil {
		return nil, err
	}

	head := make([]byte, sniffLen)
	n, err := io.ReadFull(src, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}
	head = head[:n]
	if n == 0 {
		return nil, fmt.Errorf("%w: empty file", domain.ErrInvalidFileType)
	}

	detected := mimetype.Detect(head)
	if !v.isAllowedDetected(detected) {
		return nil, fmt.Errorf("%w: content is %s", domain.ErrInvalidFileType, detected.String())
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	name := GenerateName(filename, detected.Extension())
	path := filepath.Join(v.cfg.DestinationDir, name)
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to create upload file: %w", err)
	}

	body := io.MultiReader(bytes.NewReader(head), io.LimitReader(src, v.cfg.MaxBytes+1-int64(len(head))))
	written, err := io.Copy(f, body)
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(path)
		return nil, fmt.Errorf("failed to write upload file: %w", err)
	}
	if written > v.cfg.MaxBytes {
		os.Remove(path)
		return nil, fmt.Errorf("%w: max size is %d bytes", domain.ErrFileTooLarge, v.cfg.MaxBytes)
	}

	return &RawFile{
		Name:         name,
		Path:         path,
		Size:         written,
		DeclaredType: declaredType,
		DetectedType: detected.String(),
	}, nil
}

// Discard removes an accepted file that will not be kept.
func (v *Validator) Discard(f *RawFile) error {
	if f == nil {
		return nil
	}
	if err := os.Remove(f.Path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove upload file: %w", err)
	}
	return nil
}

// GenerateName builds a collision-resistant file name from the current time and a random suffix.
// The extension of original is kept when it is a known image extension, otherwise fallbackExt is used.
func GenerateName(original, fallbackExt string) string {
	ext := strings.ToLower(filepath.Ext(original))
	if !knownExtensions[ext] {
		ext = fallbackExt
	}
	suffix := strings.ReplaceAll(uuid.New().String(), "-", "")[:12]
	return fmt.Sprintf("%d-%s%s", time.Now().UnixMilli(), suffix, ext)
}

func (v *Validator) isAllowed(declaredType string) bool {
	mediaType, _, err := mime.ParseMediaType(declaredType)
	if err != nil {
		return false
	}
	return v.allowed[strings.ToLower(mediaType)]
}

func (v *Validator) isAllowedDetected(mt *mimetype.MIME) bool {
	for t := range v.allowed {
		if mt.Is(t) {
			return true
		}
	}
	return false
}
