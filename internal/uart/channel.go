package uart

import (
	"errors"
	"fmt"
	"io"
	"sync"
)

// maxStalls bounds how many zero-length writes SendByte tolerates before it
// reports the transmitter as stuck.
const maxStalls = 1 << 16

// ErrStalled is returned when the writer keeps accepting zero bytes.
var ErrStalled = errors.New("uart: transmitter not ready")

// Channel is a synchronous byte pipe: each byte is handed to the writer on
// its own and the call returns only once the writer took it. There is no
// buffering and no queue.
type Channel struct {
	mu   sync.Mutex
	w    io.Writer
	sent uint64
	one  [1]byte
}

func NewChannel(w io.Writer) *Channel {
	return &Channel{w: w}
}

// SendByte blocks until b has been written.
func (c *Channel) SendByte(b byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sendByte(b)
}

func (c *Channel) sendByte(b byte) error {
	c.one[0] = b
	for stalls := 0; ; stalls++ {
		n, err := c.w.Write(c.one[:])
		if n == 1 {
			c.sent++
			return nil
		}
		if err != nil {
			return fmt.Errorf("uart send 0x%02x: %w", b, err)
		}
		if stalls >= maxStalls {
			return ErrStalled
		}
	}
}

// SendString sends s byte by byte, stopping at the first NUL.
func (c *Channel) SendString(s string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := 0; i < len(s); i++ {
		if s[i] == 0 {
			return nil
		}
		if err := c.sendByte(s[i]); err != nil {
			return err
		}
	}
	return nil
}

// Write lets a Channel stand in for an io.Writer. Bytes are still sent one
// at a time and NULs are transmitted.
func (c *Channel) Write(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, b := range p {
		if err := c.sendByte(b); err != nil {
			return i, err
		}
	}
	return len(p), nil
}

// Sent is the number of bytes transmitted so far.
func (c *Channel) Sent() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sent
}
