package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"math/rand/v2"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/timmy/memegen/internal/captions"
	"github.com/timmy/memegen/internal/domain"
	"github.com/timmy/memegen/internal/events"
	"github.com/timmy/memegen/internal/intake"
	"github.com/timmy/memegen/internal/logger"
	"github.com/timmy/memegen/internal/metrics"
	"github.com/timmy/memegen/internal/normalize"
	"github.com/timmy/memegen/internal/repository"
	"github.com/timmy/memegen/internal/storage"
)

// memStore is an in-memory repository.MemeStore with injectable failures.
type memStore struct {
	mu        sync.Mutex
	memes     map[string]*domain.Meme
	seq       int
	createErr error
}

func newMemStore() *memStore {
	return &memStore{memes: make(map[string]*domain.Meme)}
}

func (s *memStore) Create(_ context.Context, imageURL string, caps []string) (*domain.Meme, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.createErr != nil {
		return nil, s.createErr
	}
	s.seq++
	now := time.Unix(int64(s.seq), 0)
	m := &domain.Meme{ID: fmt.Sprintf("m%d", s.seq), ImageURL: imageURL, Captions: caps, CreatedAt: now, UpdatedAt: now}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	s.memes[m.ID] = m
	return m, nil
}

func (s *memStore) GetByID(_ context.Context, id string) (*domain.Meme, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.memes[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return m, nil
}

func (s *memStore) List(_ context.Context, page, limit int) (*domain.MemePage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	page, limit = repository.NormalizePage(page, limit)
	all := make([]domain.Meme, 0, len(s.memes))
	for _, m := range s.memes {
		all = append(all, *m)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })
	res := &domain.MemePage{Memes: []domain.Meme{}, Total: int64(len(all)), Page: page, Limit: limit}
	from := (page - 1) * limit
	if from < len(all) {
		res.Memes = all[from:min(from+limit, len(all))]
	}
	return res, nil
}

func (s *memStore) DeleteByID(_ context.Context, id string) (*domain.Meme, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.memes[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	delete(s.memes, id)
	return m, nil
}

func (s *memStore) Ping(context.Context) error { return nil }

func (s *memStore) Close() error { return nil }

func (s *memStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.memes)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, ev events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, ev)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

// objectStore is an in-memory storage.ObjectStorage.
type objectStore struct {
	mu      sync.Mutex
	objects map[string]string
}

func newObjectStore() *objectStore {
	return &objectStore{objects: make(map[string]string)}
}

func (s *objectStore) Upload(ctx context.Context, key string, r io.Reader, _ int64, contentType string) error {
	if _, err := io.Copy(io.Discard, r); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = contentType
	return nil
}

func (s *objectStore) GetURL(key string) string {
	return "https://cdn.example/" + key
}

func (s *objectStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, key)
	return nil
}

func (s *objectStore) has(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.objects[key]
	return ok
}

func (s *objectStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.objects)
}

type fixture struct {
	dir       string
	store     *memStore
	objects   *objectStore
	publisher *recordingPublisher
	uploads   *UploadService
	memes     *MemeService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dir := t.TempDir()
	in, err := intake.New(intake.Config{MaxBytes: 1 << 20, DestinationDir: dir})
	require.NoError(t, err)

	f := &fixture{
		dir:       dir,
		store:     newMemStore(),
		objects:   newObjectStore(),
		publisher: &recordingPublisher{},
	}
	mirror := storage.NewMirror(f.objects, "memes")
	m := metrics.New()
	log := logger.New(&logger.Config{Level: "error", Format: "json", Output: &bytes.Buffer{}})
	gen := captions.NewGenerator(captions.DefaultPool(), rand.New(rand.NewPCG(1, 2)))

	f.uploads = NewUploadService(in, normalize.New(normalize.Config{}), gen, f.store, log, UploadConfig{
		PublicPath: "/uploads",
		Mirror:     mirror,
		Publisher:  f.publisher,
		Metrics:    m,
	})
	f.memes = NewMemeService(f.store, log, MemeConfig{
		UploadDir: dir,
		Mirror:    mirror,
		Publisher: f.publisher,
		Metrics:   m,
	})
	return f
}

func (f *fixture) files(t *testing.T) []string {
	t.Helper()
	entries, err := os.ReadDir(f.dir)
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func pngUpload(t *testing.T, w, h int) UploadRequest {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		img.Set(x, x%h, color.RGBA{R: 90, G: 10, A: 255})
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return UploadRequest{File: bytes.NewReader(buf.Bytes()), Filename: "funny.png", ContentType: "image/png", Size: int64(buf.Len())}
}

func TestUploadStoresRecordAndFile(t *testing.T) {
	f := newFixture(t)

	meme, err := f.uploads.Upload(context.Background(), pngUpload(t, 1200, 300))
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(meme.ImageURL, "/uploads/"))
	require.NotEmpty(t, meme.Captions)
	assert.LessOrEqual(t, len(meme.Captions), captions.MaxCaptions)
	assert.Contains(t, captions.DefaultPool().TierCaptions(captions.TierSmall), meme.Captions[0])

	name := filepath.Base(meme.ImageURL)
	assert.Equal(t, []string{name}, f.files(t))
	img, err := os.Open(filepath.Join(f.dir, name))
	require.NoError(t, err)
	defer img.Close()
	cfg, format, err := image.DecodeConfig(img)
	require.NoError(t, err)
	assert.Equal(t, "jpeg", format)
	assert.Equal(t, 800, cfg.Width)
	assert.Equal(t, 200, cfg.Height)

	assert.True(t, f.objects.has("memes/"+name))

	require.Len(t, f.publisher.events, 1)
	assert.Equal(t, events.TypeMemeCreated, f.publisher.events[0].Type)
	assert.Equal(t, meme.ID, f.publisher.events[0].MemeID)
	assert.Equal(t, "https://cdn.example/memes/"+name, f.publisher.events[0].ObjectURL)
}

func TestUploadRejectionLeavesNothing(t *testing.T) {
	f := newFixture(t)

	_, err := f.uploads.Upload(context.Background(), UploadRequest{
		File:        strings.NewReader("%PDF-1.7 not an image"),
		Filename:    "doc.pdf",
		ContentType: "application/pdf",
		Size:        21,
	})
	require.ErrorIs(t, err, domain.ErrInvalidFileType)
	assert.Equal(t, StageReceived, FailedStage(err))
	assert.Equal(t, 400, domain.StatusCode(err))

	assert.Empty(t, f.files(t))
	assert.Zero(t, f.store.count())
	assert.Zero(t, f.objects.Len())
	assert.Empty(t, f.publisher.events)
}

func TestUploadNormalizationFailure(t *testing.T) {
	f := newFixture(t)

	// valid PNG signature so intake accepts it, but the body does not decode
	body := append([]byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"), make([]byte, 64)...)
	_, err := f.uploads.Upload(context.Background(), UploadRequest{
		File: bytes.NewReader(body), Filename: "bad.png", ContentType: "image/png", Size: int64(len(body)),
	})
	require.ErrorIs(t, err, domain.ErrNormalization)
	assert.Equal(t, StageValidated, FailedStage(err))
	assert.Equal(t, 422, domain.StatusCode(err))
	assert.Empty(t, f.files(t))
	assert.Zero(t, f.store.count())
}

func TestUploadPersistenceFailureCompensates(t *testing.T) {
	f := newFixture(t)
	f.store.createErr = fmt.Errorf("%w: connection refused", domain.ErrPersistenceUnavailable)

	_, err := f.uploads.Upload(context.Background(), pngUpload(t, 40, 40))
	require.ErrorIs(t, err, domain.ErrPersistenceUnavailable)
	assert.Equal(t, StageCaptioned, FailedStage(err))
	assert.Equal(t, 503, domain.StatusCode(err))

	assert.Empty(t, f.files(t))
	assert.Zero(t, f.objects.Len())
	assert.Empty(t, f.publisher.events)
}

func TestUploadUnexpectedErrorsAreClassified(t *testing.T) {
	f := newFixture(t)
	f.store.createErr = errors.New("boom")

	_, err := f.uploads.Upload(context.Background(), pngUpload(t, 10, 10))
	require.ErrorIs(t, err, domain.ErrUnexpected)
	assert.Equal(t, 500, domain.StatusCode(err))
	assert.Contains(t, err.Error(), "captioned")
}

func TestUploadIgnoresPublishFailures(t *testing.T) {
	f := newFixture(t)
	f.publisher.err = errors.New("broker down")

	meme, err := f.uploads.Upload(context.Background(), pngUpload(t, 10, 10))
	require.NoError(t, err)
	assert.Equal(t, 1, f.store.count())
	assert.NotEmpty(t, meme.ID)
}

func TestUploadSurvivesCancelledRequest(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.uploads.Upload(ctx, pngUpload(t, 10, 10))
	require.NoError(t, err)
	assert.Len(t, f.files(t), 1)
}

func TestConcurrentUploadsAreIndependent(t *testing.T) {
	f := newFixture(t)
	const n = 8

	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		req := pngUpload(t, 20+i, 20)
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.uploads.Upload(context.Background(), req)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}
	assert.Equal(t, n, f.store.count())
	assert.Len(t, f.files(t), n)
}

func TestDeleteRemovesRecordAndFile(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	meme, err := f.uploads.Upload(ctx, pngUpload(t, 30, 30))
	require.NoError(t, err)

	deleted, err := f.memes.Delete(ctx, meme.ID)
	require.NoError(t, err)
	assert.Equal(t, meme.ID, deleted.ID)
	assert.Empty(t, f.files(t))
	assert.Zero(t, f.objects.Len())

	page, err := f.memes.List(ctx, 1, 10)
	require.NoError(t, err)
	assert.Empty(t, page.Memes)

	require.Len(t, f.publisher.events, 2)
	assert.Equal(t, events.TypeMemeDeleted, f.publisher.events[1].Type)
}

func TestDeleteMissingLeavesStoreUnchanged(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.uploads.Upload(ctx, pngUpload(t, 30, 30))
	require.NoError(t, err)

	_, err = f.memes.Delete(ctx, "nope")
	require.ErrorIs(t, err, domain.ErrNotFound)
	assert.Equal(t, 1, f.store.count())
	assert.Len(t, f.files(t), 1)
}

func TestDeleteToleratesMissingFile(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	meme, err := f.uploads.Upload(ctx, pngUpload(t, 30, 30))
	require.NoError(t, err)
	require.NoError(t, os.Remove(filepath.Join(f.dir, filepath.Base(meme.ImageURL))))

	_, err = f.memes.Delete(ctx, meme.ID)
	require.NoError(t, err)
	assert.Zero(t, f.store.count())
}

func TestListAndGet(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	empty, err := f.memes.List(ctx, 0, 0)
	require.NoError(t, err)
	assert.Zero(t, empty.Total)
	assert.Zero(t, empty.Pages())

	first, err := f.uploads.Upload(ctx, pngUpload(t, 10, 10))
	require.NoError(t, err)
	second, err := f.uploads.Upload(ctx, pngUpload(t, 12, 12))
	require.NoError(t, err)

	page, err := f.memes.List(ctx, 1, 10)
	require.NoError(t, err)
	require.Len(t, page.Memes, 2)
	assert.Equal(t, second.ID, page.Memes[0].ID)

	got, err := f.memes.Get(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, first.ImageURL, got.ImageURL)

	_, err = f.memes.Get(ctx, "missing")
	require.ErrorIs(t, err, domain.ErrNotFound)
}
