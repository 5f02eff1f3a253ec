//go:build windows
// +build windows

package graphics

import (
	"os"

	"github.com/pkg/errors"
)

type keyReader struct{}

func startKeyReader(input *os.File) (*keyReader, error) {
	return nil, errors.New("terminal input is not supported on windows")
}

func (k *keyReader) drain() []InputEvent { return nil }
func (k *keyReader) close() error        { return nil }
