package repository

import (
	"context"

	"github.com/timmy/memegen/internal/domain"
)

const (
	// DefaultPage is used when the requested page is absent or non-positive.
	DefaultPage = 1
	// DefaultLimit is used when the requested limit is absent or non-positive.
	DefaultLimit = 10
	// MaxLimit caps the page size.
	MaxLimit = 100
)

// MemeStore owns the lifecycle of stored meme records.
type MemeStore interface {
	// Create persists a new record; it fails with ErrValidation when captions is empty.
	Create(ctx context.Context, imageURL string, captions []string) (*domain.Meme, error)

	// GetByID returns one record or ErrNotFound.
	GetByID(ctx context.Context, id string) (*domain.Meme, error)

	// List returns a page of records newest first with the total record count.
	// Out-of-range pages are empty.
	List(ctx context.Context, page, limit int) (*domain.MemePage, error)

	// DeleteByID removes a record and returns it, or ErrNotFound.
	DeleteByID(ctx context.Context, id string) (*domain.Meme, error)

	// Ping checks that the backend is reachable.
	Ping(ctx context.Context) error

	// Close releases the backend connection.
	Close() error
}

// NormalizePage applies the pagination defaults and the page size cap.
func NormalizePage(page, limit int) (int, int) {
	if page <= 0 {
		page = DefaultPage
	}
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	return page, limit
}

// pageOffset returns the number of records to skip, or false when the page
// starts beyond total.
func pageOffset(page, limit int, total int64) (int64, bool) {
	skip := int64(page-1) * int64(limit)
	if skip < 0 || skip >= total {
		return 0, false
	}
	return skip, true
}
