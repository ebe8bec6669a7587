package tags

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/bogem/id3v2/v2"
	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/wav"
)

const (
	formatWAV = "WAV"
	mimeJPEG  = "image/jpeg"
)

// createTestWAV writes a silent 16-bit stereo WAV of the given length.
func createTestWAV(t *testing.T, dir, name string, d time.Duration) string {
	t.Helper()
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create wav: %v", err)
	}
	defer f.Close()

	format := beep.Format{SampleRate: 44100, NumChannels: 2, Precision: 2}
	if err := wav.Encode(f, beep.Silence(format.SampleRate.N(d)), format); err != nil {
		t.Fatalf("encode wav: %v", err)
	}
	return path
}

// createTestMP3 creates a minimal MP3 file with optional tags.
func createTestMP3(t *testing.T, dir string, tags *Tag, cover []byte) string {
	t.Helper()
	path := filepath.Join(dir, "test.mp3")

	// Create minimal MP3 frame (MPEG1 Layer3, 128kbps, 44100Hz, stereo)
	mp3Frame := make([]byte, 417)
	mp3Frame[0] = 0xff
	mp3Frame[1] = 0xfb
	mp3Frame[2] = 0x90
	mp3Frame[3] = 0x00

	if err := os.WriteFile(path, mp3Frame, 0o600); err != nil {
		t.Fatalf("failed to create test MP3: %v", err)
	}

	if tags == nil {
		return path
	}

	id3tag, err := id3v2.Open(path, id3v2.Options{Parse: false})
	if err != nil {
		t.Fatalf("open id3: %v", err)
	}
	defer id3tag.Close()
	id3tag.SetDefaultEncoding(id3v2.EncodingUTF8)
	id3tag.SetTitle(tags.Title)
	id3tag.SetArtist(tags.Artist)
	id3tag.SetAlbum(tags.Album)
	id3tag.SetGenre(tags.Genre)
	if tags.AlbumArtist != "" {
		id3tag.AddTextFrame("TPE2", id3v2.EncodingUTF8, tags.AlbumArtist)
	}
	if tags.TrackNumber > 0 {
		id3tag.AddTextFrame("TRCK", id3v2.EncodingUTF8, "3/10")
	}
	if cover != nil {
		id3tag.AddAttachedPicture(id3v2.PictureFrame{
			Encoding:    id3v2.EncodingUTF8,
			MimeType:    mimeJPEG,
			PictureType: id3v2.PTFrontCover,
			Description: "Front",
			Picture:     cover,
		})
	}
	if err := id3tag.Save(); err != nil {
		t.Fatalf("save id3: %v", err)
	}
	return path
}

func TestReadAudioInfo_WAV(t *testing.T) {
	path := createTestWAV(t, t.TempDir(), "tone.wav", time.Second)

	info, err := ReadAudioInfo(path)
	if err != nil {
		t.Fatalf("ReadAudioInfo() error: %v", err)
	}
	if info.Format != formatWAV {
		t.Errorf("Format = %q, want %q", info.Format, formatWAV)
	}
	if info.SampleRate != 44100 {
		t.Errorf("SampleRate = %d, want 44100", info.SampleRate)
	}
	if info.BitDepth != 16 {
		t.Errorf("BitDepth = %d, want 16", info.BitDepth)
	}
	if info.Duration < 990*time.Millisecond || info.Duration > 1010*time.Millisecond {
		t.Errorf("Duration = %v, want ~1s", info.Duration)
	}
}

func TestReadAudioInfo_Corrupt(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "broken.wav")
	if err := os.WriteFile(path, []byte("this is not a riff file at all"), 0o600); err != nil {
		t.Fatal(err)
	}

	if _, err := ReadAudioInfo(path); err == nil {
		t.Error("expected error for corrupt file")
	}
}

func TestReadAudioInfo_Unsupported(t *testing.T) {
	_, err := ReadAudioInfo("/tmp/notes.txt")
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("err = %v, want ErrUnsupportedFormat", err)
	}
}

func TestReadAudioInfo_Missing(t *testing.T) {
	_, err := ReadAudioInfo(filepath.Join(t.TempDir(), "gone.wav"))
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("err = %v, want not exist", err)
	}
}

func TestReadWithAudio_UntaggedFallsBackToFilename(t *testing.T) {
	path := createTestWAV(t, t.TempDir(), "My Song.wav", 500*time.Millisecond)

	info, err := ReadWithAudio(path)
	if err != nil {
		t.Fatalf("ReadWithAudio() error: %v", err)
	}
	if info.Title != "My Song" {
		t.Errorf("Title = %q, want %q", info.Title, "My Song")
	}
	if info.Path != path {
		t.Errorf("Path = %q, want %q", info.Path, path)
	}
	if info.Format != formatWAV {
		t.Errorf("Format = %q", info.Format)
	}
}

func TestRead_MP3Tags(t *testing.T) {
	path := createTestMP3(t, t.TempDir(), &Tag{
		Title:       "Song",
		Artist:      "Band",
		Album:       "Record",
		Genre:       "Rock",
		TrackNumber: 3,
	}, nil)

	tag, err := Read(path)
	if err != nil {
		t.Fatalf("Read() error: %v", err)
	}
	if tag.Title != "Song" {
		t.Errorf("Title = %q", tag.Title)
	}
	if tag.Artist != "Band" {
		t.Errorf("Artist = %q", tag.Artist)
	}
	if tag.Album != "Record" {
		t.Errorf("Album = %q", tag.Album)
	}
	if tag.AlbumArtist != "Band" {
		t.Errorf("AlbumArtist = %q, want artist fallback", tag.AlbumArtist)
	}
	if tag.TrackNumber != 3 || tag.TotalTracks != 10 {
		t.Errorf("Track = %d/%d, want 3/10", tag.TrackNumber, tag.TotalTracks)
	}
}

func TestRead_MP3AlbumArtist(t *testing.T) {
	path := createTestMP3(t, t.TempDir(), &Tag{
		Title:       "Song",
		Artist:      "Guest",
		AlbumArtist: "Various Artists",
	}, nil)

	tag, err := Read(path)
	if err != nil {
		t.Fatalf("Read() error: %v", err)
	}
	if tag.AlbumArtist != "Various Artists" {
		t.Errorf("AlbumArtist = %q", tag.AlbumArtist)
	}
}

func TestReadMP3WithID3v2Fallback(t *testing.T) {
	path := createTestMP3(t, t.TempDir(), &Tag{Title: "Fallback", Artist: "Band"}, nil)

	tag, err := readMP3WithID3v2Fallback(path)
	if err != nil {
		t.Fatalf("fallback error: %v", err)
	}
	if tag.Title != "Fallback" || tag.Artist != "Band" {
		t.Errorf("tag = %+v", tag)
	}
}
