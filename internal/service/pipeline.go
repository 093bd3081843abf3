package service

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/timmy/memegen/internal/domain"
	"github.com/timmy/memegen/internal/intake"
	"github.com/timmy/memegen/internal/normalize"
)

// Stage is a step of the upload pipeline.
type Stage string

const (
	StageReceived   Stage = "received"
	StageValidated  Stage = "validated"
	StageNormalized Stage = "normalized"
	StageCaptioned  Stage = "captioned"
	StagePersisted  Stage = "persisted"
	StageResponded  Stage = "responded"
	StageFailed     Stage = "failed"
)

// StageError records the pipeline stage that could not be reached.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("upload failed at %s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// FailedStage returns the stage recorded in err, or StageFailed when err carries none.
func FailedStage(err error) Stage {
	var se *StageError
	if errors.As(err, &se) {
		return se.Stage
	}
	return StageFailed
}

// Intake writes accepted uploads to disk.
type Intake interface {
	Receive(ctx context.Context, src io.Reader, filename, declaredType string, size int64) (*intake.RawFile, error)
	Discard(f *intake.RawFile) error
}

// Normalizer rewrites an image file in place.
type Normalizer interface {
	Normalize(ctx context.Context, path string) (*normalize.Result, error)
}

// CaptionGenerator picks captions for an upload of the given byte size.
type CaptionGenerator interface {
	Generate(size int64) []string
}

// classify keeps taxonomy errors as they are and wraps anything else as ErrUnexpected.
func classify(err error) error {
	for _, known := range []error{
		domain.ErrInvalidFileType,
		domain.ErrFileTooLarge,
		domain.ErrNormalization,
		domain.ErrValidation,
		domain.ErrNotFound,
		domain.ErrPersistenceUnavailable,
		domain.ErrUnexpected,
	} {
		if errors.Is(err, known) {
			return err
		}
	}
	return fmt.Errorf("%w: %v", domain.ErrUnexpected, err)
}
