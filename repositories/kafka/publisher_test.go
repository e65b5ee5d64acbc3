package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"spatools/api/models/indexes"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWriter struct {
	written []kafka.Message
	err     error
	closed  bool
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	f.written = append(f.written, msgs...)
	return f.err
}

func (f *fakeWriter) Close() error {
	f.closed = true
	return nil
}

func TestNewPublisher(t *testing.T) {
	_, err := NewPublisher(nil, "calls")
	assert.Error(t, err)

	_, err = NewPublisher([]string{"localhost:9092"}, "")
	assert.Error(t, err)

	p, err := NewPublisher([]string{"localhost:9092"}, "calls", WithAsync(true), WithBatchTimeout(time.Millisecond))
	require.NoError(t, err)
	w := p.writer.(*kafka.Writer)
	assert.True(t, w.Async)
	assert.Equal(t, time.Millisecond, w.BatchTimeout)
	assert.Equal(t, "calls", w.Topic)
}

func TestPublisher_WriteGenotypes(t *testing.T) {
	w := &fakeWriter{}
	p := &Publisher{writer: w, topic: "calls"}

	created := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	err := p.WriteGenotypes(context.Background(), []indexes.Genotype{
		{SampleCode: "S1", LocusCode: "L1", Call: "A", Quality: 0.9, CreatedTime: created},
		{SampleCode: "S2", LocusCode: "L1", Call: "-"},
	})
	require.NoError(t, err)
	require.Len(t, w.written, 2)

	assert.Equal(t, "S1/L1", string(w.written[0].Key))
	assert.Equal(t, created, w.written[0].Time)

	var decoded indexes.Genotype
	require.NoError(t, json.Unmarshal(w.written[0].Value, &decoded))
	assert.Equal(t, "A", string(decoded.Call))
	assert.Equal(t, 0.9, decoded.Quality)

	require.NoError(t, p.WriteGenotypes(context.Background(), nil))
	assert.Len(t, w.written, 2)

	require.NoError(t, p.Close())
	assert.True(t, w.closed)
}

func TestPublisher_WriteGenotypesError(t *testing.T) {
	p := &Publisher{writer: &fakeWriter{err: errors.New("broker down")}, topic: "calls"}
	err := p.WriteGenotypes(context.Background(), []indexes.Genotype{{SampleCode: "S1"}})
	assert.ErrorContains(t, err, "publish to calls")
	assert.Equal(t, "kafka", p.Name())
}
