package messaging

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"intrusion-worker-go/internal/config"
)

func TestNewServiceUnreachable(t *testing.T) {
	cfg := &config.Config{
		WorkerID:           "intrusion-test",
		NatsURL:            "nats://127.0.0.1:1",
		NatsConnectTimeout: 200 * time.Millisecond,
		NatsReconnectWait:  10 * time.Millisecond,
		NatsMaxReconnects:  0,
		NatsDrainTimeout:   time.Second,
	}

	svc, err := NewService(cfg)

	require.Error(t, err)
	assert.Nil(t, svc)
}

func TestNilServiceIsInert(t *testing.T) {
	var svc *Service

	assert.False(t, svc.IsConnected())
	assert.ErrorIs(t, svc.Publish("alerts.intrusion", map[string]int{"n": 1}), ErrNotConnected)
	assert.NoError(t, svc.Shutdown(context.Background()))
}
