package observability

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()
	require.Equal(t, "amadeus", config.ServiceName)
	require.Equal(t, "localhost:4317", config.OTLPEndpoint)
	require.False(t, config.Enabled)
	require.True(t, config.Insecure)
}

func TestNewProviderDisabled(t *testing.T) {
	p, err := New(context.Background(), &Config{Enabled: false})
	require.NoError(t, err)
	require.NotNil(t, p)

	// Every recording method is a safe no-op when disabled.
	ctx := context.Background()
	p.RecordCommand(ctx, "open_app", true)
	p.RecordDenial(ctx, "policy")
	p.RecordDuration(ctx, 20*time.Millisecond, "open_app")
	p.SessionStarted(ctx)
	p.SessionEnded(ctx)

	_, span := p.StartSpan(ctx, "parse")
	span.End()

	require.NoError(t, p.Shutdown(ctx))
}

func TestNewProviderNilConfigUsesDefaults(t *testing.T) {
	p, err := New(context.Background(), nil)
	require.NoError(t, err)
	require.NotNil(t, p)
	require.False(t, p.config.Enabled)
}
