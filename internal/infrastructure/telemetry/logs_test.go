package telemetry

import (
	"context"
	"sync"
	"testing"

	"github.com/ledger/backend/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type memProcessor struct {
	mu     sync.Mutex
	bodies []string
}

func (p *memProcessor) OnEmit(_ context.Context, r *sdklog.Record) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.bodies = append(p.bodies, r.Body().AsString())
	return nil
}

func (p *memProcessor) Enabled(context.Context, sdklog.EnabledParameters) bool { return true }

func (p *memProcessor) Shutdown(context.Context) error   { return nil }
func (p *memProcessor) ForceFlush(context.Context) error { return nil }

func (p *memProcessor) all() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.bodies...)
}

func TestNewLoggerProvider_RequiresLogsFlag(t *testing.T) {
	lp, err := NewLoggerProvider(context.Background(), config.TelemetryConfig{Enabled: true}, zap.NewNop())
	require.NoError(t, err)
	assert.False(t, lp.IsEnabled())

	base := zap.NewNop()
	assert.Same(t, base, lp.Bridge(base, zapcore.InfoLevel))
	assert.NoError(t, lp.Shutdown(context.Background()))
}

func TestLoggerProvider_Bridge(t *testing.T) {
	proc := &memProcessor{}
	lp := NewLoggerProviderWithProcessor("ledger-test", proc, zap.NewNop())
	t.Cleanup(func() { _ = lp.Shutdown(context.Background()) })

	core, logs := observer.New(zapcore.DebugLevel)
	logger := lp.Bridge(zap.New(core), zapcore.InfoLevel)

	logger.Debug("local only")
	logger.Info("queue added", zap.Int64("id", 7))
	logger.Warn("balance low")
	require.NoError(t, lp.ForceFlush(context.Background()))

	assert.Equal(t, 3, logs.Len(), "the base core keeps every entry")
	assert.Equal(t, []string{"queue added", "balance low"}, proc.all())
}
