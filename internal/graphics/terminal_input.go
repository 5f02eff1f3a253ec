//go:build !windows
// +build !windows

package graphics

import (
	"os"
	"sync"

	"github.com/pkg/errors"
	"github.com/pkg/term/termios"
	"golang.org/x/sys/unix"
)

// keyReader reads the terminal in cbreak mode on its own goroutine
type keyReader struct {
	input *os.File
	saved unix.Termios

	mu      sync.Mutex
	pending []InputEvent
}

func startKeyReader(input *os.File) (*keyReader, error) {
	k := &keyReader{input: input}
	if err := termios.Tcgetattr(input.Fd(), &k.saved); err != nil {
		return nil, errors.Wrap(err, "not a terminal")
	}

	cbreak := k.saved
	termios.Cfmakecbreak(&cbreak)
	if err := termios.Tcsetattr(input.Fd(), termios.TCIFLUSH, &cbreak); err != nil {
		return nil, errors.Wrap(err, "enter cbreak mode")
	}

	go k.run()
	return k, nil
}

func (k *keyReader) run() {
	buf := make([]byte, 16)
	for {
		n, err := k.input.Read(buf)
		if err != nil {
			return
		}
		events := decodeKeys(buf[:n])
		k.mu.Lock()
		k.pending = append(k.pending, events...)
		k.mu.Unlock()
	}
}

// drain returns and forgets the events read so far
func (k *keyReader) drain() []InputEvent {
	k.mu.Lock()
	defer k.mu.Unlock()
	events := k.pending
	k.pending = nil
	return events
}

// close puts the terminal back into its original mode
func (k *keyReader) close() error {
	return errors.Wrap(termios.Tcsetattr(k.input.Fd(), termios.TCIFLUSH, &k.saved), "restore terminal")
}
