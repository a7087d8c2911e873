package cli

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTerminalNotifier(t *testing.T) {
	var buf bytes.Buffer
	n := newTerminalNotifier(&buf)

	require.NoError(t, n.Notify("New message", "hello"))
	require.NoError(t, n.FlashTitle("New message"))

	assert.Equal(t, "\a\n[New message] hello\n\x1b]0;New message\x07", buf.String())
}

func TestIdlePresence(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	p := &idlePresence{window: time.Minute, now: func() time.Time { return now }}
	p.Touch()
	assert.True(t, p.Focused())

	now = now.Add(2 * time.Minute)
	assert.False(t, p.Focused())

	p.Touch()
	assert.True(t, p.Focused())
}
