package cli

import (
	"sync"
	"time"

	"github.com/atotto/clipboard"
)

// Clipboard copies secrets to the system clipboard and clears them after
// a delay, unless something else was copied in the meantime.
type Clipboard struct {
	after time.Duration
	write func(string) error
	read  func() (string, error)

	mu      sync.Mutex
	timer   *time.Timer
	pending string
	gen     uint64
}

func NewClipboard(after time.Duration) *Clipboard {
	return &Clipboard{
		after: after,
		write: clipboard.WriteAll,
		read:  clipboard.ReadAll,
	}
}

// Copy places secret on the clipboard. A zero delay never clears.
func (c *Clipboard) Copy(secret string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.write(secret); err != nil {
		return err
	}
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	c.gen++
	if c.after <= 0 {
		return nil
	}
	c.pending = secret
	gen := c.gen
	c.timer = time.AfterFunc(c.after, func() { c.expire(gen) })
	return nil
}

// Flush clears a pending secret now instead of waiting for the timer.
func (c *Clipboard) Flush() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.timer == nil || !c.timer.Stop() {
		return
	}
	c.clearLocked()
}

// expire ignores timers superseded by a later Copy.
func (c *Clipboard) expire(gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen {
		return
	}
	c.clearLocked()
}

func (c *Clipboard) clearLocked() {
	if cur, err := c.read(); err == nil && cur == c.pending {
		c.write("")
	}
	c.pending = ""
	c.timer = nil
}

// After reports the clear delay.
func (c *Clipboard) After() time.Duration {
	return c.after
}
