package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/timmy/memegen/internal/config"
	"github.com/timmy/memegen/internal/domain"
)

type fakeWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (f *fakeWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	if f.err != nil {
		return f.err
	}
	if _, ok := ctx.Deadline(); !ok {
		return errors.New("publish without deadline")
	}
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func (f *fakeWriter) Close() error {
	f.closed = true
	return nil
}

func sampleMeme() *domain.Meme {
	return &domain.Meme{ID: "m1", ImageURL: "/uploads/a.jpg", Captions: domain.StringArray{"a", "b"}}
}

func TestKafkaPublisherWritesKeyedMessage(t *testing.T) {
	w := &fakeWriter{}
	p := newKafkaPublisher(w, DefaultPublishTimeout)
	at := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

	require.NoError(t, p.Publish(context.Background(), NewMemeEvent(TypeMemeCreated, sampleMeme(), at)))
	require.Len(t, w.msgs, 1)

	msg := w.msgs[0]
	assert.Equal(t, "m1", string(msg.Key))
	assert.Equal(t, "meme.created", string(msg.Headers[0].Value))

	var ev Event
	require.NoError(t, json.Unmarshal(msg.Value, &ev))
	assert.Equal(t, TypeMemeCreated, ev.Type)
	assert.Equal(t, []string{"a", "b"}, ev.Captions)
	assert.True(t, at.Equal(ev.OccurredAt))

	require.NoError(t, p.Close())
	assert.True(t, w.closed)
}

func TestKafkaPublisherWrapsErrors(t *testing.T) {
	p := newKafkaPublisher(&fakeWriter{err: errors.New("broker down")}, DefaultPublishTimeout)
	err := p.Publish(context.Background(), NewMemeEvent(TypeMemeDeleted, sampleMeme(), time.Now()))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "meme.deleted")
}

// stalledWriter never completes a write before the context ends.
type stalledWriter struct{ fakeWriter }

func (*stalledWriter) WriteMessages(ctx context.Context, _ ...kafka.Message) error {
	<-ctx.Done()
	return ctx.Err()
}

func TestKafkaPublisherBoundsStalledBroker(t *testing.T) {
	p := newKafkaPublisher(&stalledWriter{}, 50*time.Millisecond)

	start := time.Now()
	err := p.Publish(context.Background(), NewMemeEvent(TypeMemeCreated, sampleMeme(), start))
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), time.Second)
}

func TestNewKafkaPublisherDefaultsTimeout(t *testing.T) {
	p := NewKafkaPublisher(config.EventsConfig{Brokers: []string{"localhost:9092"}, Topic: "memes"})
	defer p.Close()
	assert.Equal(t, DefaultPublishTimeout, p.timeout)

	w, ok := p.writer.(*kafka.Writer)
	require.True(t, ok)
	assert.Equal(t, DefaultPublishTimeout, w.WriteTimeout)
}

func TestDeletedEventOmitsCaptions(t *testing.T) {
	ev := NewMemeEvent(TypeMemeDeleted, sampleMeme(), time.Now())
	assert.Nil(t, ev.Captions)
}

func TestNewSelectsPublisher(t *testing.T) {
	_, isNop := New(config.EventsConfig{Topic: "memes"}).(Nop)
	assert.True(t, isNop)

	p := New(config.EventsConfig{Brokers: []string{"localhost:9092"}, Topic: "memes"})
	_, isKafka := p.(*KafkaPublisher)
	assert.True(t, isKafka)
	require.NoError(t, p.Close())

	require.NoError(t, Nop{}.Publish(context.Background(), Event{}))
}
