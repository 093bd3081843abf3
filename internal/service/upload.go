package service

import (
	"context"
	"io"
	"os"
	"path"
	"time"

	"github.com/google/uuid"
	"github.com/timmy/memegen/internal/domain"
	"github.com/timmy/memegen/internal/events"
	"github.com/timmy/memegen/internal/logger"
	"github.com/timmy/memegen/internal/metrics"
	"github.com/timmy/memegen/internal/repository"
	"github.com/timmy/memegen/internal/storage"
)

// UploadRequest is one file submitted for captioning.
type UploadRequest struct {
	File        io.Reader
	Filename    string
	ContentType string
	// Size is the declared byte size; negative when unknown.
	Size int64
}

// UploadService runs the upload pipeline:
// received, validated, normalized, captioned, persisted, responded.
type UploadService struct {
	intake     Intake
	normalizer Normalizer
	captions   CaptionGenerator
	store      repository.MemeStore
	mirror     *storage.Mirror
	publisher  events.Publisher
	metrics    *metrics.Metrics
	publicPath string
	logger     *logger.Logger
	now        func() time.Time
}

// UploadConfig holds the optional collaborators of UploadService.
type UploadConfig struct {
	// PublicPath prefixes stored image references, e.g. "/uploads".
	PublicPath string
	Mirror     *storage.Mirror
	Publisher  events.Publisher
	Metrics    *metrics.Metrics
}

// NewUploadService creates a new upload service.
func NewUploadService(
	in Intake,
	normalizer Normalizer,
	captions CaptionGenerator,
	store repository.MemeStore,
	log *logger.Logger,
	cfg UploadConfig,
) *UploadService {
	publisher := cfg.Publisher
	if publisher == nil {
		publisher = events.Nop{}
	}
	publicPath := cfg.PublicPath
	if publicPath == "" {
		publicPath = "/uploads"
	}
	return &UploadService{
		intake:     in,
		normalizer: normalizer,
		captions:   captions,
		store:      store,
		mirror:     cfg.Mirror,
		publisher:  publisher,
		metrics:    cfg.Metrics,
		publicPath: publicPath,
		logger:     log,
		now:        time.Now,
	}
}

// log returns a logger from context if available, otherwise returns the service logger
func (s *UploadService) log(ctx context.Context) *logger.Logger {
	return logger.FromContextOr(ctx, s.logger)
}

// Upload runs one file through the pipeline and returns the persisted record.
// Every failure removes what earlier stages wrote, so a failed upload leaves
// neither a file nor a record behind. Failures are *StageError values wrapping
// an error from the domain taxonomy.
// Parameters:
//   - ctx: request context; cancellation does not abort a started upload.
//   - req: the submitted file and its declared metadata.
// Returns:
//   - *domain.Meme: the stored record.
//   - error: *StageError on failure.
func (s *UploadService) Upload(ctx context.Context, req UploadRequest) (*domain.Meme, error) {
	start := s.now()
	uploadID := uuid.New().String()
	ctx = s.log(ctx).WithContext(ctx)
	ctx = logger.SetUploadID(logger.SetComponent(ctx, "upload"), uploadID)
	// a client disconnect must not leave a half-finished upload behind
	ctx = context.WithoutCancel(ctx)

	stage := StageReceived
	fail := func(err error) (*domain.Meme, error) {
		err = classify(err)
		s.metrics.ObserveUpload(metrics.OutcomeFailure, string(stage), 0, s.now().Sub(start))
		entry := s.log(ctx).WithFields(logger.Fields{
			logger.FieldStage:      string(stage),
			logger.FieldDurationMs: s.now().Sub(start).Milliseconds(),
		}).WithError(err)
		if domain.IsClientError(err) {
			entry.Warn("Upload rejected")
		} else {
			entry.Error("Upload failed")
		}
		return nil, &StageError{Stage: stage, Err: err}
	}

	// Received -> Validated
	raw, err := s.intake.Receive(ctx, req.File, req.Filename, req.ContentType, req.Size)
	if err != nil {
		if raw != nil {
			s.intake.Discard(raw)
		}
		return fail(err)
	}
	stage = StageValidated

	// Validated -> Normalized; the normalizer removes its own files on failure
	normStart := s.now()
	result, err := s.normalizer.Normalize(ctx, raw.Path)
	s.metrics.ObserveNormalize(s.now().Sub(normStart))
	if err != nil {
		return fail(err)
	}
	stage = StageNormalized

	mirrored := false
	if s.mirror != nil {
		if _, err := s.mirror.Put(ctx, result.Path, "image/jpeg"); err != nil {
			s.log(ctx).WithError(err).Warn("Failed to mirror image to object storage")
		} else {
			mirrored = true
		}
	}

	// Normalized -> Captioned
	captions := s.captions.Generate(raw.Size)
	stage = StageCaptioned

	// Captioned -> Persisted
	imageURL := path.Join(s.publicPath, raw.Name)
	meme, err := s.store.Create(ctx, imageURL, captions)
	if err != nil {
		if rmErr := os.Remove(result.Path); rmErr != nil && !os.IsNotExist(rmErr) {
			s.log(ctx).WithError(rmErr).Warn("Failed to remove normalized image")
		}
		if mirrored {
			if rmErr := s.mirror.Remove(ctx, raw.Name); rmErr != nil {
				s.log(ctx).WithError(rmErr).Warn("Failed to remove mirrored image")
			}
		}
		return fail(err)
	}
	stage = StagePersisted

	ev := events.NewMemeEvent(events.TypeMemeCreated, meme, s.now())
	if mirrored {
		ev.ObjectURL = s.mirror.URL(raw.Name)
	}
	s.publish(ctx, ev)
	stage = StageResponded

	elapsed := s.now().Sub(start)
	s.metrics.ObserveUpload(metrics.OutcomeSuccess, string(stage), raw.Size, elapsed)
	s.log(ctx).WithFields(logger.Fields{
		logger.FieldMemeID:     meme.ID,
		logger.FieldSize:       raw.Size,
		logger.FieldCount:      len(captions),
		logger.FieldDurationMs: elapsed.Milliseconds(),
		"resized":              result.Resized(),
	}).Infof("Upload stored: %dx%d -> %dx%d",
		result.OriginalWidth, result.OriginalHeight, result.Width, result.Height)

	return meme, nil
}

func (s *UploadService) publish(ctx context.Context, ev events.Event) {
	publishEvent(ctx, s.publisher, s.metrics, s.log(ctx), ev)
}

// publishEvent delivers ev; failures are logged and counted only.
func publishEvent(ctx context.Context, p events.Publisher, m *metrics.Metrics, log *logger.Logger, ev events.Event) {
	if err := p.Publish(ctx, ev); err != nil {
		m.IncEventFailure(string(ev.Type))
		log.WithFields(logger.Fields{
			logger.FieldMemeID: ev.MemeID,
			"event":            string(ev.Type),
		}).WithError(err).Warn("Failed to publish event")
	}
}
