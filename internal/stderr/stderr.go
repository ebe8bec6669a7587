//go:build !windows

// Package stderr captures output that C audio libraries (ALSA, faad2)
// write straight to file descriptor 2 and forwards it to the log, so a
// detached daemon does not lose it.
package stderr

import (
	"bufio"
	"io"
	"os"
	"strings"
	"sync"
	"syscall"

	"github.com/rs/zerolog/log"
)

var (
	mu       sync.Mutex
	original *os.File
	pipeRead *os.File
	pipeW    *os.File
	done     chan struct{}
)

// Start redirects fd 2 into a pipe whose lines are logged as warnings.
// It must run before the logger is configured so the console writer can
// target Original. On failure stderr is left untouched.
func Start() error {
	mu.Lock()
	defer mu.Unlock()
	if original != nil {
		return nil
	}

	r, w, err := os.Pipe()
	if err != nil {
		return err
	}
	fd, err := syscall.Dup(int(os.Stderr.Fd()))
	if err != nil {
		r.Close()
		w.Close()
		return err
	}
	if err := syscall.Dup2(int(w.Fd()), int(os.Stderr.Fd())); err != nil {
		syscall.Close(fd)
		r.Close()
		w.Close()
		return err
	}

	original = os.NewFile(uintptr(fd), "stderr")
	pipeRead, pipeW = r, w
	done = make(chan struct{})
	go forward(r, done)
	return nil
}

func forward(r io.Reader, done chan<- struct{}) {
	defer close(done)
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			log.Warn().Str("source", "native").Msg(line)
		}
	}
}

// Original returns the process's real stderr, bypassing the capture.
func Original() io.Writer {
	mu.Lock()
	defer mu.Unlock()
	if original != nil {
		return original
	}
	return os.Stderr
}

// Stop restores fd 2 and waits for buffered lines to be logged.
func Stop() {
	mu.Lock()
	defer mu.Unlock()
	if original == nil {
		return
	}
	_ = syscall.Dup2(int(original.Fd()), int(os.Stderr.Fd()))
	pipeW.Close()
	<-done
	pipeRead.Close()
	original.Close()
	original = nil
}
