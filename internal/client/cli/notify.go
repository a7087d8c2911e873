package cli

import (
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"
)

// terminalNotifier rings the bell for new messages and uses the window title
// (OSC 0) as the title flash.
type terminalNotifier struct {
	mu sync.Mutex
	w  io.Writer
}

func newTerminalNotifier(w io.Writer) *terminalNotifier {
	return &terminalNotifier{w: w}
}

func (n *terminalNotifier) Notify(title, body string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	_, err := fmt.Fprintf(n.w, "\a\n[%s] %s\n", title, body)
	return err
}

func (n *terminalNotifier) FlashTitle(text string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	_, err := fmt.Fprintf(n.w, "\x1b]0;%s\x07", text)
	return err
}

// idlePresence treats the user as focused while they typed something within
// the last window.
type idlePresence struct {
	window time.Duration
	now    func() time.Time
	last   atomic.Int64
}

func newIdlePresence(window time.Duration) *idlePresence {
	p := &idlePresence{window: window, now: time.Now}
	p.Touch()
	return p
}

// Touch records user activity.
func (p *idlePresence) Touch() {
	p.last.Store(p.now().UnixNano())
}

func (p *idlePresence) Focused() bool {
	return p.now().Sub(time.Unix(0, p.last.Load())) < p.window
}
