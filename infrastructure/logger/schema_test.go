package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestValidate(t *testing.T) {
	err := Validate("quote_event", map[string]interface{}{
		"event":      "decided",
		"reference":  1.78,
		"volatility": 0.01,
		"spread":     0.12,
		"bidPrice":   uint64(1_777_000),
		"askPrice":   uint64(1_791_000),
		"duration":   "1h30m0s",
	})
	assert.NoError(t, err)

	err = Validate("quote_event", map[string]interface{}{"event": "decided"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reference")

	assert.NoError(t, Validate("unknown_event", nil))
}

func TestKnownEvents(t *testing.T) {
	assert.Equal(t, []string{"order_event", "quote_event", "risk_event", "trade_event", "tx_event"}, Known())
}

func TestHelpersFlagSchemaViolations(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	l := Wrap(zap.New(core))

	l.LogQuote("decided", map[string]interface{}{"spread": 0.1})
	l.LogTx("place", "9xYz", nil)

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Contains(t, entries[0].ContextMap()["schema_error"], "reference")
	_, flagged := entries[1].ContextMap()["schema_error"]
	assert.False(t, flagged)
}
