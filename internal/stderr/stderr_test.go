//go:build !windows

package stderr

import (
	"bytes"
	"fmt"
	"os"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStart_ForwardsLinesToLog(t *testing.T) {
	var buf bytes.Buffer
	prev := log.Logger
	log.Logger = zerolog.New(&buf)
	t.Cleanup(func() { log.Logger = prev })

	require.NoError(t, Start())
	assert.NotSame(t, os.Stderr, Original())

	fmt.Fprintln(os.Stderr, "ALSA lib pcm.c: underrun occurred")
	fmt.Fprintln(os.Stderr, "   ")
	Stop()

	out := buf.String()
	assert.Contains(t, out, `"source":"native"`)
	assert.Contains(t, out, "underrun occurred")
	assert.Equal(t, 1, bytes.Count(buf.Bytes(), []byte("\n")))
	assert.Same(t, os.Stderr, Original())
}

func TestStop_WithoutStart(t *testing.T) {
	Stop()
	assert.Same(t, os.Stderr, Original())
}
