package player

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/flac"
	"github.com/gopxl/beep/v2/vorbis"
	"github.com/gopxl/beep/v2/wav"
)

// decodeFile opens path and returns a seekable decoded stream.
// A missing file yields ErrTrackUnavailable; anything no decoder accepts
// yields ErrUnsupportedFormat.
func decodeFile(path string) (beep.StreamSeekCloser, beep.Format, string, error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, beep.Format{}, "", fmt.Errorf("%w: %s", ErrTrackUnavailable, path)
		}
		return nil, beep.Format{}, "", err
	}

	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".mp3", ".flac", ".ogg", ".oga", ".opus", ".wav", ".m4a", ".mp4":
	default:
		return nil, beep.Format{}, "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, ext)
	}

	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, beep.Format{}, "", fmt.Errorf("%w: %s", ErrTrackUnavailable, path)
		}
		return nil, beep.Format{}, "", err
	}

	var (
		streamer beep.StreamSeekCloser
		format   beep.Format
		name     string
	)
	switch ext {
	case ".mp3":
		name = "MP3"
		streamer, format, err = decodeMP3(f)
	case ".flac":
		name = "FLAC"
		// Some taggers prepend ID3v2 to FLAC files
		if err = skipID3v2(f); err == nil {
			streamer, format, err = flac.Decode(f)
		}
	case ".opus":
		name = "OPUS"
		streamer, format, err = decodeOpus(f)
	case ".ogg", ".oga":
		if isOpus(f) {
			name = "OPUS"
			streamer, format, err = decodeOpus(f)
		} else {
			name = "VORBIS"
			streamer, format, err = vorbis.Decode(f)
		}
	case ".m4a", ".mp4":
		streamer, format, name, err = decodeM4A(f)
	case ".wav":
		name = "WAV"
		streamer, format, err = wav.Decode(f)
	}
	if err != nil {
		f.Close()
		return nil, beep.Format{}, "", fmt.Errorf("%w: %w", ErrUnsupportedFormat, err)
	}
	return streamer, format, name, nil
}

// skipID3v2 skips an ID3v2 tag if present at the beginning of the file.
func skipID3v2(r io.ReadSeeker) error {
	header := make([]byte, 10)
	n, err := io.ReadFull(r, header)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return err
	}
	if n < 10 || string(header[0:3]) != "ID3" {
		_, err = r.Seek(0, io.SeekStart)
		return err
	}

	// ID3v2 size is stored as a syncsafe integer in bytes 6-9
	size := int64(header[6])<<21 | int64(header[7])<<14 | int64(header[8])<<7 | int64(header[9])
	_, err = r.Seek(10+size, io.SeekStart)
	return err
}
