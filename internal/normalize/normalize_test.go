package normalize

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/gif"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/timmy/memegen/internal/domain"
)

func writeImage(t *testing.T, dir, name string, w, h int) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y += 7 {
		for x := 0; x < w; x += 5 {
			img.Set(x, y, color.RGBA{G: 180, B: uint8(x), A: 255})
		}
	}
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	switch filepath.Ext(name) {
	case ".png":
		require.NoError(t, png.Encode(f, img))
	case ".gif":
		require.NoError(t, gif.Encode(f, img, nil))
	default:
		require.NoError(t, jpeg.Encode(f, img, nil))
	}
	return path
}

func decodeConfig(t *testing.T, path string) (image.Config, string) {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	cfg, format, err := image.DecodeConfig(f)
	require.NoError(t, err)
	return cfg, format
}

func onlyFile(t *testing.T, dir string) string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	return entries[0].Name()
}

func TestNormalizeBoundsDimensions(t *testing.T) {
	tests := []struct {
		name         string
		file         string
		w, h         int
		wantW, wantH int
	}{
		{name: "wide png", file: "wide.png", w: 1600, h: 400, wantW: 800, wantH: 200},
		{name: "tall jpeg", file: "tall.jpg", w: 500, h: 1000, wantW: 400, wantH: 800},
		{name: "square gif", file: "sq.gif", w: 900, h: 900, wantW: 800, wantH: 800},
		{name: "small kept", file: "small.png", w: 320, h: 240, wantW: 320, wantH: 240},
		{name: "exact bound kept", file: "edge.jpg", w: 800, h: 600, wantW: 800, wantH: 600},
	}

	n := New(Config{})
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			dir := t.TempDir()
			path := writeImage(t, dir, tc.file, tc.w, tc.h)

			res, err := n.Normalize(context.Background(), path)
			require.NoError(t, err)
			assert.Equal(t, tc.wantW, res.Width)
			assert.Equal(t, tc.wantH, res.Height)
			assert.Equal(t, tc.w, res.OriginalWidth)
			assert.Equal(t, tc.h, res.OriginalHeight)
			assert.Equal(t, tc.w != tc.wantW, res.Resized())

			cfg, format := decodeConfig(t, path)
			assert.Equal(t, "jpeg", format)
			assert.Equal(t, tc.wantW, cfg.Width)
			assert.Equal(t, tc.wantH, cfg.Height)
			assert.LessOrEqual(t, max(cfg.Width, cfg.Height), 800)

			// exactly one file remains at the original path
			assert.Equal(t, tc.file, onlyFile(t, dir))
		})
	}
}

// withOrientation inserts an EXIF APP1 segment carrying orientation o after the JPEG SOI marker.
func withOrientation(t *testing.T, jpg []byte, o uint16) []byte {
	t.Helper()
	require.True(t, bytes.HasPrefix(jpg, []byte{0xFF, 0xD8}))
	tiff := []byte{
		'M', 'M', 0x00, 0x2A, 0x00, 0x00, 0x00, 0x08, // big-endian header, IFD at offset 8
		0x00, 0x01, // one entry
		0x01, 0x12, 0x00, 0x03, 0x00, 0x00, 0x00, 0x01, byte(o >> 8), byte(o), 0x00, 0x00,
		0x00, 0x00, 0x00, 0x00, // no next IFD
	}
	payload := append([]byte("Exif\x00\x00"), tiff...)
	n := len(payload) + 2
	seg := append([]byte{0xFF, 0xE1, byte(n >> 8), byte(n)}, payload...)

	out := append([]byte{0xFF, 0xD8}, seg...)
	return append(out, jpg[2:]...)
}

func TestNormalizeKeepsStoredOrientation(t *testing.T) {
	dir := t.TempDir()
	src := writeImage(t, dir, "src.jpg", 600, 400)
	raw, err := os.ReadFile(src)
	require.NoError(t, err)
	require.NoError(t, os.Remove(src))

	path := filepath.Join(dir, "rotated.jpg")
	require.NoError(t, os.WriteFile(path, withOrientation(t, raw, 6), 0o644))

	res, err := New(Config{}).Normalize(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, 600, res.Width)
	assert.Equal(t, 400, res.Height)
	assert.False(t, res.Resized())

	cfg, _ := decodeConfig(t, path)
	assert.Equal(t, 600, cfg.Width)
	assert.Equal(t, 400, cfg.Height)
}

func TestNormalizeFailureRemovesFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "broken.png")
	require.NoError(t, os.WriteFile(path, []byte("\x89PNG\r\n\x1a\nnot really"), 0o644))

	_, err := New(Config{}).Normalize(context.Background(), path)
	require.ErrorIs(t, err, domain.ErrNormalization)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestNormalizeCancelledContext(t *testing.T) {
	dir := t.TempDir()
	path := writeImage(t, dir, "a.png", 10, 10)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(Config{}).Normalize(ctx, path)
	require.ErrorIs(t, err, domain.ErrNormalization)
	assert.NoFileExists(t, path)
}

func TestNewDefaults(t *testing.T) {
	n := New(Config{Quality: 500})
	assert.Equal(t, Config{MaxWidth: 800, MaxHeight: 800, Quality: 80}, n.cfg)

	n = New(Config{MaxWidth: 100, MaxHeight: 50, Quality: 60})
	dir := t.TempDir()
	path := writeImage(t, dir, "a.jpg", 400, 400)
	res, err := n.Normalize(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, 50, res.Width)
	assert.Equal(t, 50, res.Height)
}
