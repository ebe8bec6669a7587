package playlists

import (
	"context"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png" // PNG covers
	"os"
	"path/filepath"

	"github.com/nfnt/resize"

	dbutil "github.com/llehouerou/wavesd/internal/db"
)

// MaxCoverSize bounds the longest side of a stored playlist cover.
const MaxCoverSize = 512

// SetCover decodes the image at imagePath, downsizes it to at most
// MaxCoverSize pixels per side and stores it as the playlist's JPEG cover.
// It returns the stored cover path.
func (s *Store) SetCover(ctx context.Context, id int64, imagePath string) (string, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return "", err
	}

	f, err := os.Open(imagePath)
	if err != nil {
		return "", fmt.Errorf("open cover: %w", err)
	}
	img, _, err := image.Decode(f)
	f.Close()
	if err != nil {
		return "", fmt.Errorf("decode cover: %w", err)
	}

	thumb := resize.Thumbnail(MaxCoverSize, MaxCoverSize, img, resize.Lanczos3)

	dest := filepath.Join(s.coversDir, fmt.Sprintf("playlist-%d.jpg", id))
	if err := writeJPEG(dest, thumb); err != nil {
		return "", dbutil.Persistence("store playlist cover", err)
	}

	_, err = s.db.ExecContext(ctx,
		`UPDATE playlists SET cover = ?, updated_at = ? WHERE id = ?`,
		dest, s.clock.Now().Unix(), id)
	if err != nil {
		return "", dbutil.Persistence("set playlist cover", err)
	}
	return dest, nil
}

func writeJPEG(dest string, img image.Image) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(dest), ".cover-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if err := jpeg.Encode(tmp, img, &jpeg.Options{Quality: 90}); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), dest)
}
