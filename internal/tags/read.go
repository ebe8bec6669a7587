package tags

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/dhowden/tag"
)

// Read reads tag metadata from a music file.
// It returns only tag metadata, not audio stream properties.
func Read(path string) (*Tag, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	m, err := tag.ReadFrom(f)
	if err != nil {
		switch Ext(path) {
		case ExtMP3:
			// dhowden/tag has issues with some UTF-16 encoded ID3 tags
			return readMP3WithID3v2Fallback(path)
		case ExtM4A, ExtMP4:
			// dhowden/tag can't parse some M4A files (e.g., ffmpeg-created)
			return readM4AFallback(path)
		case ExtFLAC:
			return readFLACWithVorbisComments(path)
		case ExtOPUS, ExtOGG, ExtOGA:
			return readOggWithTaglib(path)
		}
		return nil, fmt.Errorf("read tags: %w", err)
	}

	track, totalTracks := m.Track()
	disc, totalDiscs := m.Disc()

	t := &Tag{
		Path:        path,
		Title:       m.Title(),
		Artist:      m.Artist(),
		AlbumArtist: m.AlbumArtist(),
		Album:       m.Album(),
		Date:        yearToDate(m.Year()),
		TrackNumber: track,
		TotalTracks: totalTracks,
		DiscNumber:  disc,
		TotalDiscs:  totalDiscs,
		Genre:       m.Genre(),
	}

	// Full dates live in format-specific frames
	switch Ext(path) {
	case ExtMP3:
		readMP3ExtendedTags(path, t)
	case ExtFLAC:
		readFLACExtendedTags(path, t)
	}

	finish(t)
	return t, nil
}

// ReadWithAudio reads both tag metadata and audio stream properties.
// Files without readable tags still succeed with a title taken from the
// file name; an unreadable audio stream is an error.
func ReadWithAudio(path string) (*FileInfo, error) {
	audio, err := ReadAudioInfo(path)
	if err != nil {
		return nil, err
	}

	t, err := Read(path)
	if err != nil {
		t = &Tag{Path: path}
		finish(t)
	}

	return &FileInfo{
		Tag:       *t,
		AudioInfo: *audio,
	}, nil
}

// finish applies the defaults every reader shares.
func finish(t *Tag) {
	t.Sanitize()
	if t.Title == "" {
		base := filepath.Base(t.Path)
		t.Title = base[:len(base)-len(filepath.Ext(base))]
	}
	if t.AlbumArtist == "" {
		t.AlbumArtist = t.Artist
	}
}

// yearToDate converts a year integer to a date string.
// Returns empty string for year 0.
func yearToDate(year int) string {
	if year == 0 {
		return ""
	}
	return strconv.Itoa(year)
}
