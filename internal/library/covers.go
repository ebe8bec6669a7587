package library

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/llehouerou/wavesd/internal/tags"
)

// coverResolver finds the cover image of a track: a sidecar image in the
// track's folder, or its embedded art extracted into the covers directory
// under a content-addressed name. Safe for concurrent use.
type coverResolver struct {
	dir string

	mu       sync.Mutex
	sidecars map[string]string // folder -> sidecar path ("" if none)
}

func newCoverResolver(coversDir string) *coverResolver {
	return &coverResolver{dir: coversDir, sidecars: make(map[string]string)}
}

func (c *coverResolver) resolve(path string) string {
	folder := filepath.Dir(path)

	c.mu.Lock()
	sidecar, ok := c.sidecars[folder]
	c.mu.Unlock()
	if !ok {
		sidecar = tags.FindFolderArtPath(folder)
		c.mu.Lock()
		c.sidecars[folder] = sidecar
		c.mu.Unlock()
	}
	if sidecar != "" {
		return sidecar
	}

	if c.dir == "" {
		return ""
	}
	data, mime, err := tags.ExtractEmbeddedArt(path)
	if err != nil || len(data) == 0 {
		return ""
	}
	out, err := c.store(data, mime)
	if err != nil {
		log.Warn().Err(err).Str("path", path).Msg("storing embedded cover")
		return ""
	}
	return out
}

// store writes data once under its content hash and returns the path.
func (c *coverResolver) store(data []byte, mime string) (string, error) {
	sum := sha256.Sum256(data)
	name := hex.EncodeToString(sum[:16]) + tags.ImageExt(mime)
	out := filepath.Join(c.dir, name)

	if _, err := os.Stat(out); err == nil {
		return out, nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return "", err
	}

	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return "", err
	}
	tmp, err := os.CreateTemp(c.dir, ".cover-*")
	if err != nil {
		return "", err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", err
	}
	if err := os.Rename(tmp.Name(), out); err != nil {
		os.Remove(tmp.Name())
		return "", err
	}
	return out, nil
}
