package service

import (
	"context"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/timmy/memegen/internal/domain"
	"github.com/timmy/memegen/internal/events"
	"github.com/timmy/memegen/internal/logger"
	"github.com/timmy/memegen/internal/metrics"
	"github.com/timmy/memegen/internal/repository"
	"github.com/timmy/memegen/internal/storage"
)

// MemeService reads and deletes stored memes together with their image files.
type MemeService struct {
	store     repository.MemeStore
	uploadDir string
	mirror    *storage.Mirror
	publisher events.Publisher
	metrics   *metrics.Metrics
	logger    *logger.Logger
	now       func() time.Time
}

// MemeConfig holds the collaborators of MemeService.
type MemeConfig struct {
	// UploadDir is the directory holding normalized images.
	UploadDir string
	Mirror    *storage.Mirror
	Publisher events.Publisher
	Metrics   *metrics.Metrics
}

// NewMemeService creates a new meme service.
func NewMemeService(store repository.MemeStore, log *logger.Logger, cfg MemeConfig) *MemeService {
	publisher := cfg.Publisher
	if publisher == nil {
		publisher = events.Nop{}
	}
	return &MemeService{
		store:     store,
		uploadDir: cfg.UploadDir,
		mirror:    cfg.Mirror,
		publisher: publisher,
		metrics:   cfg.Metrics,
		logger:    log,
		now:       time.Now,
	}
}

func (s *MemeService) log(ctx context.Context) *logger.Logger {
	return logger.FromContextOr(ctx, s.logger)
}

// List returns one page of memes, newest first.
func (s *MemeService) List(ctx context.Context, page, limit int) (*domain.MemePage, error) {
	return s.store.List(ctx, page, limit)
}

// Get returns one meme or ErrNotFound.
func (s *MemeService) Get(ctx context.Context, id string) (*domain.Meme, error) {
	return s.store.GetByID(ctx, id)
}

// Delete removes the record and then its backing image file.
// Parameters:
//   - ctx: request context.
//   - id: meme identifier.
// Returns:
//   - *domain.Meme: the deleted record.
//   - error: ErrNotFound when no record has id; the store is left unchanged.
func (s *MemeService) Delete(ctx context.Context, id string) (*domain.Meme, error) {
	ctx = logger.WithField(s.log(ctx).WithContext(ctx), logger.FieldMemeID, id)

	meme, err := s.store.DeleteByID(ctx, id)
	if err != nil {
		return nil, err
	}

	// ImageURL is "<public path>/<name>"; only the base name is trusted
	name := path.Base(meme.ImageURL)
	if name != "." && name != "/" {
		if err := os.Remove(filepath.Join(s.uploadDir, name)); err != nil && !os.IsNotExist(err) {
			s.log(ctx).WithError(err).Warn("Failed to remove image file")
		}
		if err := s.mirror.Remove(ctx, name); err != nil {
			s.log(ctx).WithError(err).Warn("Failed to remove mirrored image")
		}
	}

	s.metrics.IncDeletions()
	publishEvent(ctx, s.publisher, s.metrics, s.log(ctx), events.NewMemeEvent(events.TypeMemeDeleted, meme, s.now()))
	s.log(ctx).Info("Meme deleted")
	return meme, nil
}

// Ping reports whether the record store is reachable.
func (s *MemeService) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}
