package tags

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	goflac "github.com/go-flac/go-flac"
	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/flac"
	"github.com/gopxl/beep/v2/vorbis"
	"github.com/gopxl/beep/v2/wav"
	"github.com/llehouerou/go-m4a"
	"github.com/llehouerou/go-mp3"
)

// ReadAudioInfo reads audio stream properties (duration, format, sample rate).
// This uses lighter-weight methods than full decoding where possible.
// A file whose stream cannot be parsed is reported as an error so that
// callers can tell corrupt files apart from untagged ones.
func ReadAudioInfo(path string) (*AudioInfo, error) {
	ext := Ext(path)
	if !IsMusicFile(path) {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, ext)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	switch ext {
	case ExtMP3:
		return readMP3AudioInfo(f)
	case ExtFLAC:
		return readFLACStreamInfo(path)
	case ExtOPUS, ExtOGG, ExtOGA:
		return readOggAudioInfo(f)
	case ExtM4A, ExtMP4:
		return readM4AAudioInfo(f)
	case ExtWAV:
		return readWAVAudioInfo(f)
	}

	return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, ext)
}

// readMP3AudioInfo extracts audio info from an MP3 file.
func readMP3AudioInfo(f *os.File) (*AudioInfo, error) {
	decoder, err := mp3.NewDecoder(f)
	if err != nil {
		return nil, err
	}

	sampleRate := decoder.SampleRate()
	if sampleRate == 0 {
		return nil, errors.New("mp3: invalid sample rate")
	}

	sampleCount := max(decoder.SampleCount(), 0)

	duration := time.Duration(float64(sampleCount) / float64(sampleRate) * float64(time.Second))

	return &AudioInfo{
		Duration:   duration,
		Format:     "MP3",
		SampleRate: sampleRate,
		BitDepth:   16, // MP3 decodes to 16-bit
	}, nil
}

// readFLACStreamInfo extracts audio info from FLAC streaminfo metadata.
func readFLACStreamInfo(path string) (*AudioInfo, error) {
	flacFile, err := goflac.ParseFile(path)
	if err != nil {
		// Try with ID3v2 skip for files with prepended ID3 tags
		return readFLACWithBeep(path)
	}

	for _, meta := range flacFile.Meta {
		if meta.Type != goflac.StreamInfo || len(meta.Data) < 18 {
			continue
		}
		data := meta.Data

		// Sample rate is in bits 0-19 of bytes 10-12
		sampleRate := int(data[10])<<12 | int(data[11])<<4 | int(data[12])>>4
		// Bits per sample is in bits 4-8 of bytes 12-13 (add 1 to get actual value)
		bitsPerSample := (int(data[12])&0x01)<<4 | int(data[13])>>4 + 1

		// Total samples is in bytes 14-17 (plus 4 bits from byte 13)
		totalSamples := int64(data[13]&0x0F)<<32 | int64(data[14])<<24 | int64(data[15])<<16 | int64(data[16])<<8 | int64(data[17])

		if sampleRate == 0 {
			return nil, errors.New("flac: invalid sample rate")
		}

		return &AudioInfo{
			Duration:   time.Duration(float64(totalSamples) / float64(sampleRate) * float64(time.Second)),
			Format:     "FLAC",
			SampleRate: sampleRate,
			BitDepth:   bitsPerSample,
		}, nil
	}

	return readFLACWithBeep(path)
}

// readFLACWithBeep uses beep's FLAC decoder as fallback.
func readFLACWithBeep(path string) (*AudioInfo, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	if err := skipID3v2(f); err != nil {
		return nil, err
	}

	streamer, format, err := flac.Decode(f)
	if err != nil {
		return nil, err
	}
	defer streamer.Close()

	return streamInfo("FLAC", streamer, format), nil
}

// readWAVAudioInfo decodes the WAV header with beep.
func readWAVAudioInfo(f *os.File) (*AudioInfo, error) {
	streamer, format, err := wav.Decode(f)
	if err != nil {
		return nil, err
	}
	return streamInfo("WAV", streamer, format), nil
}

func streamInfo(name string, s beep.StreamSeeker, format beep.Format) *AudioInfo {
	return &AudioInfo{
		Duration:   format.SampleRate.D(s.Len()),
		Format:     name,
		SampleRate: int(format.SampleRate),
		BitDepth:   format.Precision * 8,
	}
}

// readOggAudioInfo extracts audio info from an Ogg container holding
// either Opus or Vorbis.
func readOggAudioInfo(f *os.File) (*AudioInfo, error) {
	head := make([]byte, 64)
	n, err := io.ReadFull(f, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) {
		return nil, err
	}
	head = head[:n]
	if !bytes.HasPrefix(head, []byte("OggS")) {
		return nil, errors.New("ogg: missing capture pattern")
	}

	if bytes.Contains(head, []byte("OpusHead")) {
		return readOpusAudioInfo(f)
	}

	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}
	streamer, format, err := vorbis.Decode(f)
	if err != nil {
		return nil, err
	}
	defer streamer.Close()
	return streamInfo("VORBIS", streamer, format), nil
}

// readOpusAudioInfo extracts audio info from an Opus file.
func readOpusAudioInfo(f *os.File) (*AudioInfo, error) {
	// Opus always decodes at 48kHz
	const opusSampleRate = 48000

	duration, err := getOggDuration(f, opusSampleRate)
	if err != nil {
		return nil, err
	}

	return &AudioInfo{
		Duration:   duration,
		Format:     "OPUS",
		SampleRate: opusSampleRate,
		BitDepth:   16,
	}, nil
}

// getOggDuration calculates duration from the last OGG granule position.
func getOggDuration(f *os.File, sampleRate int) (time.Duration, error) {
	fi, err := f.Stat()
	if err != nil {
		return 0, err
	}

	// Read the last 64KB to find the last OGG page
	searchSize := min(int64(65536), fi.Size())

	if _, err := f.Seek(-searchSize, io.SeekEnd); err != nil {
		return 0, err
	}

	buf := make([]byte, searchSize)
	n, err := io.ReadFull(f, buf)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) {
		return 0, err
	}
	buf = buf[:n]

	var lastGranule int64
	for i := len(buf) - 27; i >= 0; i-- {
		if bytes.Equal(buf[i:i+4], []byte("OggS")) {
			// Granule position is at offset 6, 8 bytes little-endian
			lastGranule = int64(binary.LittleEndian.Uint64(buf[i+6 : i+14]))
			break
		}
	}

	if lastGranule > 0 {
		return time.Duration(float64(lastGranule) / float64(sampleRate) * float64(time.Second)), nil
	}

	return 0, errors.New("could not determine OGG duration")
}

// readM4AAudioInfo extracts audio info from an M4A/MP4 file.
func readM4AAudioInfo(f *os.File) (*AudioInfo, error) {
	container, err := m4a.Open(f)
	if err != nil {
		return nil, err
	}

	codecType := container.Codec()
	format := "M4A"
	switch codecType {
	case m4a.CodecAAC:
		format = "AAC"
	case m4a.CodecALAC:
		format = "ALAC"
	}

	bitDepth := 16
	if codecType == m4a.CodecALAC && container.SampleSize() == 24 {
		bitDepth = 24
	}

	return &AudioInfo{
		Duration:   container.Duration(),
		Format:     format,
		SampleRate: int(container.SampleRate()),
		BitDepth:   bitDepth,
	}, nil
}

// skipID3v2 skips an ID3v2 tag if present at the beginning of the file.
func skipID3v2(r io.ReadSeeker) error {
	header := make([]byte, 10)
	n, err := io.ReadFull(r, header)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) {
		return err
	}
	if n < 10 || string(header[0:3]) != id3Magic {
		_, err = r.Seek(0, io.SeekStart)
		return err
	}

	// ID3v2 size is stored as a syncsafe integer in bytes 6-9
	size := int64(header[6])<<21 | int64(header[7])<<14 | int64(header[8])<<7 | int64(header[9])
	_, err = r.Seek(10+size, io.SeekStart)
	return err
}
