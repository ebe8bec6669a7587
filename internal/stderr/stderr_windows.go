//go:build windows

// Package stderr is a no-op on Windows, where the audio backends do not
// write to the console.
package stderr

import (
	"io"
	"os"
)

// Start is a no-op on Windows.
func Start() error {
	return nil
}

// Original returns os.Stderr.
func Original() io.Writer {
	return os.Stderr
}

// Stop is a no-op on Windows.
func Stop() {}
