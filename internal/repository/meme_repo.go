package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/timmy/memegen/internal/domain"
	"gorm.io/gorm"
)

// GormMemeStore stores meme records in SQLite or PostgreSQL through GORM.
type GormMemeStore struct {
	db  *gorm.DB
	now func() time.Time
}

// NewGormMemeStore creates a new GormMemeStore.
// Parameters:
//   - db: GORM database handle used for queries.
// Returns:
//   - *GormMemeStore: store bound to db.
func NewGormMemeStore(db *gorm.DB) *GormMemeStore {
	return &GormMemeStore{db: db, now: time.Now}
}

// withClock overrides the time source used for timestamps.
func (r *GormMemeStore) withClock(now func() time.Time) *GormMemeStore {
	r.now = now
	return r
}

// Create inserts a new meme record.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - imageURL: relative path of the normalized image.
//   - captions: generated captions; must not be empty.
// Returns:
//   - *domain.Meme: persisted record.
//   - error: ErrValidation or ErrPersistenceUnavailable.
func (r *GormMemeStore) Create(ctx context.Context, imageURL string, captions []string) (*domain.Meme, error) {
	now := r.now().UTC()
	meme := &domain.Meme{
		ID:        uuid.New().String(),
		ImageURL:  imageURL,
		Captions:  append(domain.StringArray(nil), captions...),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := meme.Validate(); err != nil {
		return nil, err
	}
	if err := r.db.WithContext(ctx).Create(meme).Error; err != nil {
		return nil, translateGormError(err)
	}
	return meme, nil
}

// GetByID retrieves a meme by its ID.
func (r *GormMemeStore) GetByID(ctx context.Context, id string) (*domain.Meme, error) {
	var meme domain.Meme
	if err := r.db.WithContext(ctx).First(&meme, "id = ?", id).Error; err != nil {
		return nil, translateGormError(err)
	}
	return &meme, nil
}

// List retrieves memes newest first with pagination.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - page: 1-based page number; non-positive means the first page.
//   - limit: page size; non-positive means DefaultLimit.
// Returns:
//   - *domain.MemePage: records on the page and the total count.
//   - error: ErrPersistenceUnavailable if a query fails.
func (r *GormMemeStore) List(ctx context.Context, page, limit int) (*domain.MemePage, error) {
	page, limit = NormalizePage(page, limit)
	result := &domain.MemePage{Memes: []domain.Meme{}, Page: page, Limit: limit}

	if err := r.db.WithContext(ctx).Model(&domain.Meme{}).Count(&result.Total).Error; err != nil {
		return nil, translateGormError(err)
	}
	skip, ok := pageOffset(page, limit, result.Total)
	if !ok {
		return result, nil
	}

	if err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Order("id DESC").
		Offset(int(skip)).
		Limit(limit).
		Find(&result.Memes).Error; err != nil {
		return nil, translateGormError(err)
	}
	return result, nil
}

// DeleteByID removes a meme by ID and returns the deleted record.
func (r *GormMemeStore) DeleteByID(ctx context.Context, id string) (*domain.Meme, error) {
	var meme domain.Meme
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&meme, "id = ?", id).Error; err != nil {
			return err
		}
		res := tx.Delete(&domain.Meme{}, "id = ?", id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
	if err != nil {
		return nil, translateGormError(err)
	}
	return &meme, nil
}

// Ping checks the database connection.
func (r *GormMemeStore) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrPersistenceUnavailable, err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrPersistenceUnavailable, err)
	}
	return nil
}

// Close closes the underlying connection pool.
func (r *GormMemeStore) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func translateGormError(err error) error {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return domain.ErrNotFound
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	default:
		return fmt.Errorf("%w: %v", domain.ErrPersistenceUnavailable, err)
	}
}
