package kafka

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewProducer_WriterSettings(t *testing.T) {
	p := NewProducer([]string{"localhost:9092"}, nil)
	assert.Equal(t, defaultMaxAttempts, p.writer.MaxAttempts)
	assert.Zero(t, p.writer.WriteTimeout)

	p = NewProducer([]string{"localhost:9092"}, nil, WithMaxAttempts(5), WithWriteTimeout(time.Second))
	assert.Equal(t, 5, p.writer.MaxAttempts)
	assert.Equal(t, time.Second, p.writer.WriteTimeout)

	p = NewProducer([]string{"localhost:9092"}, nil, WithMaxAttempts(0), WithWriteTimeout(-time.Second))
	assert.Equal(t, defaultMaxAttempts, p.writer.MaxAttempts)
	assert.Zero(t, p.writer.WriteTimeout)
}

func TestProducer_PublishRespectsDeadline(t *testing.T) {
	// nothing listens on this port; the write must give up when ctx expires
	p := NewProducer([]string{"127.0.0.1:1"}, nil, WithMaxAttempts(10))
	defer p.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	start := time.Now()
	err := p.Publish(ctx, "bookings", "BK00000001", map[string]string{"type": "booking_created"})
	require.Error(t, err)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestProducer_CheckConnectionWithoutBrokers(t *testing.T) {
	p := NewProducer(nil, nil)
	assert.Error(t, p.CheckConnection(context.Background()))
}
