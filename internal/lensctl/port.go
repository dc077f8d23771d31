// Package lensctl drives the motorized lens over a half-duplex ASCII
// serial link: write a short command token terminated by CR, then read
// the single reply before the next command may be sent. Unlike the
// teacher's radar link, there is no continuous telemetry stream to
// broadcast, so this package has no events channel and no background
// reader goroutine — the pipeline goroutine that owns the lens is the
// only caller, and every exchange is synchronous.
package lensctl

import (
	"fmt"
	"time"

	"go.bug.st/serial"
)

// Port is the subset of go.bug.st/serial.Port this package depends on,
// narrowed so tests can substitute an in-memory fake.
type Port interface {
	Write(p []byte) (int, error)
	Read(p []byte) (int, error)
	SetReadTimeout(t time.Duration) error
	Close() error
}

// interCharTimeout approximates the termios VTIME inter-character
// timeout from spec.md §4.9: once this much time passes with nothing
// new to read, the reply is considered complete.
const interCharTimeout = 100 * time.Millisecond

// readChunk is the maximum size of a single reply read, per spec.md
// §4.9.
const readChunk = 99

// Open configures portName at 115200 8N1 with no flow control and
// wraps it in a Controller ready for Startup.
func Open(portName string) (*Controller, error) {
	mode := &serial.Mode{
		BaudRate: 115200,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	port, err := serial.Open(portName, mode)
	if err != nil {
		return nil, fmt.Errorf("lensctl: open %s: %w", portName, err)
	}
	if err := port.SetReadTimeout(interCharTimeout); err != nil {
		port.Close()
		return nil, fmt.Errorf("lensctl: set read timeout: %w", err)
	}
	return NewController(port), nil
}
