package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishOpensBreakerOnFailures(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		MaxRetries:  -1,
		DialTimeout: 100 * time.Millisecond,
	})
	broker := NewWithClient(client, Config{ConsecutiveFailures: 2, OpenTimeout: time.Minute}, nil)
	defer broker.Close()

	ctx := context.Background()
	for i := 0; i < 2; i++ {
		err := broker.Publish(ctx, "notifications", map[string]string{"n": "1"})
		require.Error(t, err)
		assert.False(t, errors.Is(err, gobreaker.ErrOpenState))
	}

	assert.Equal(t, gobreaker.StateOpen, broker.State())
	err := broker.Publish(ctx, "notifications", map[string]string{"n": "1"})
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
}

func TestPublishRejectsUnmarshalableMessage(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", MaxRetries: -1})
	broker := NewWithClient(client, Config{}, nil)
	defer broker.Close()

	err := broker.Publish(context.Background(), "notifications", make(chan int))
	require.Error(t, err)
	assert.Equal(t, gobreaker.StateClosed, broker.State())
}

func TestNewRedisBrokerInvalidURL(t *testing.T) {
	_, err := NewRedisBroker(Config{URL: "not-a-url"}, nil)
	require.Error(t, err)
}
