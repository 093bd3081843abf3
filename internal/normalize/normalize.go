// Package normalize bounds uploaded images and re-encodes them as JPEG in place.
package normalize

import (
	"context"
	"fmt"
	"image"
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"
	"github.com/timmy/memegen/internal/domain"
)

const (
	DefaultMaxWidth  = 800
	DefaultMaxHeight = 800
	DefaultQuality   = 80
)

// Config holds the output bounds and JPEG quality.
type Config struct {
	MaxWidth  int
	MaxHeight int
	Quality   int
}

// Result describes a normalized image.
type Result struct {
	Path           string
	Width          int
	Height         int
	OriginalWidth  int
	OriginalHeight int
	Bytes          int64
}

// Resized reports whether the image was scaled down.
func (r *Result) Resized() bool {
	return r.Width != r.OriginalWidth || r.Height != r.OriginalHeight
}

// Normalizer resizes images to fit inside the configured box and re-encodes them.
type Normalizer struct {
	cfg Config
}

// New creates a Normalizer. Zero config values fall back to the defaults.
func New(cfg Config) *Normalizer {
	if cfg.MaxWidth <= 0 {
		cfg.MaxWidth = DefaultMaxWidth
	}
	if cfg.MaxHeight <= 0 {
		cfg.MaxHeight = DefaultMaxHeight
	}
	if cfg.Quality <= 0 || cfg.Quality > 100 {
		cfg.Quality = DefaultQuality
	}
	return &Normalizer{cfg: cfg}
}

// Normalize replaces the file at path with a JPEG no larger than the configured box.
// Aspect ratio is preserved and smaller images are not enlarged. EXIF orientation is not applied,
// so an image already inside the box keeps its stored dimensions. The output is written to a
// temporary file in the same directory and renamed over path, so path holds either the original
// or the complete result. On failure both the original and any temporary output are removed.
// Parameters:
//   - ctx: context for cancellation; checked before decoding and before the final rename.
//   - path: file written by intake.
// Returns:
//   - *Result: output dimensions and size.
//   - error: wraps ErrNormalization on any failure.
func (n *Normalizer) Normalize(ctx context.Context, path string) (*Result, error) {
	res, tmpPath, err := n.normalize(ctx, path)
	if err != nil {
		if tmpPath != "" {
			os.Remove(tmpPath)
		}
		os.Remove(path)
		return nil, fmt.Errorf("%w: %v", domain.ErrNormalization, err)
	}
	return res, nil
}

func (n *Normalizer) normalize(ctx context.Context, path string) (*Result, string, error) {
	if err := ctx.Err(); err != nil {
		return nil, "", err
	}

	src, err := imaging.Open(path)
	if err != nil {
		return nil, "", fmt.Errorf("failed to decode image: %w", err)
	}
	bounds := src.Bounds()
	dst := n.fit(src)

	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.processed")
	if err != nil {
		return nil, "", fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if err := imaging.Encode(tmp, dst, imaging.JPEG, imaging.JPEGQuality(n.cfg.Quality)); err != nil {
		tmp.Close()
		return nil, tmpPath, fmt.Errorf("failed to encode image: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return nil, tmpPath, fmt.Errorf("failed to sync image: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return nil, tmpPath, fmt.Errorf("failed to close image: %w", err)
	}
	info, err := os.Stat(tmpPath)
	if err != nil {
		return nil, tmpPath, fmt.Errorf("failed to stat image: %w", err)
	}

	if err := ctx.Err(); err != nil {
		return nil, tmpPath, err
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return nil, tmpPath, fmt.Errorf("failed to replace image: %w", err)
	}

	out := dst.Bounds()
	return &Result{
		Path:           path,
		Width:          out.Dx(),
		Height:         out.Dy(),
		OriginalWidth:  bounds.Dx(),
		OriginalHeight: bounds.Dy(),
		Bytes:          info.Size(),
	}, "", nil
}

// fit scales img down to the configured box; images already inside it are returned unchanged.
func (n *Normalizer) fit(img image.Image) image.Image {
	b := img.Bounds()
	if b.Dx() <= n.cfg.MaxWidth && b.Dy() <= n.cfg.MaxHeight {
		return img
	}
	return imaging.Fit(img, n.cfg.MaxWidth, n.cfg.MaxHeight, imaging.Lanczos)
}
