package lensctl

import (
	"fmt"
	"sync"
)

// Controller serializes half-duplex request/response exchanges over a
// Port. A mutex guards against accidental concurrent use even though
// spec.md §5 gives the lens link a single owner; it costs nothing and
// documents the constraint in code.
type Controller struct {
	port Port
	mu   sync.Mutex
}

// NewController wraps an already-opened Port. Exported separately from
// Open so tests can drive a fake Port without a real serial device.
func NewController(port Port) *Controller {
	return &Controller{port: port}
}

// Close releases the underlying port.
func (c *Controller) Close() error {
	return c.port.Close()
}

// exchange writes token followed by a CR terminator, then reads the
// reply until the port's inter-character timeout returns a zero-length
// read, per spec.md §4.9's half-duplex dialog.
func (c *Controller) exchange(token string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, err := c.port.Write([]byte(token + "\r")); err != nil {
		return "", fmt.Errorf("lensctl: write %q: %w", token, err)
	}

	var reply []byte
	buf := make([]byte, readChunk)
	for {
		n, err := c.port.Read(buf)
		if n > 0 {
			reply = append(reply, buf[:n]...)
		}
		if err != nil {
			return string(reply), fmt.Errorf("lensctl: read reply to %q: %w", token, err)
		}
		if n == 0 {
			break
		}
	}
	return string(reply), nil
}
