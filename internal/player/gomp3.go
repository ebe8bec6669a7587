package player

import (
	"encoding/binary"
	"errors"
	"io"

	"github.com/gopxl/beep/v2"
	"github.com/llehouerou/go-mp3"
)

// mp3BytesPerFrame is the size of one decoded stereo 16-bit frame.
const mp3BytesPerFrame = 4

// mp3Stream adapts llehouerou/go-mp3 to beep.StreamSeekCloser. Unlike
// beep's own mp3 package it knows the exact sample count up front, which
// keeps durations and end-of-track detection sample accurate.
type mp3Stream struct {
	decoder *mp3.Decoder
	closer  io.Closer
	err     error
	buf     []byte
}

func decodeMP3(rc io.ReadCloser) (beep.StreamSeekCloser, beep.Format, error) {
	decoder, err := mp3.NewDecoder(rc)
	if err != nil {
		return nil, beep.Format{}, err
	}

	sampleRate := decoder.SampleRate()
	if sampleRate == 0 {
		return nil, beep.Format{}, errors.New("mp3: invalid sample rate")
	}

	format := beep.Format{
		SampleRate:  beep.SampleRate(sampleRate),
		NumChannels: 2, // go-mp3 always outputs stereo
		Precision:   2,
	}

	return &mp3Stream{
		decoder: decoder,
		closer:  rc,
		buf:     make([]byte, 8192),
	}, format, nil
}

func (d *mp3Stream) Stream(samples [][2]float64) (n int, ok bool) {
	if d.err != nil {
		return 0, false
	}

	need := len(samples) * mp3BytesPerFrame
	if len(d.buf) < need {
		d.buf = make([]byte, need)
	}

	read, err := io.ReadFull(d.decoder, d.buf[:need])
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		d.err = err
		return 0, false
	}

	n = read / mp3BytesPerFrame
	if n == 0 {
		return 0, false
	}
	for i := range n {
		samples[i] = pcm16Frame(d.buf[i*mp3BytesPerFrame:])
	}
	return n, true
}

// pcm16Frame converts one little-endian stereo 16-bit frame to floats.
func pcm16Frame(b []byte) [2]float64 {
	left := int16(binary.LittleEndian.Uint16(b))     //nolint:gosec // audio samples
	right := int16(binary.LittleEndian.Uint16(b[2:])) //nolint:gosec // audio samples
	return [2]float64{float64(left) / 32768.0, float64(right) / 32768.0}
}

func (d *mp3Stream) Err() error {
	return d.err
}

func (d *mp3Stream) Len() int {
	return int(max(d.decoder.SampleCount(), 0))
}

func (d *mp3Stream) Position() int {
	return int(d.decoder.SamplePosition())
}

func (d *mp3Stream) Seek(p int) error {
	p = min(max(p, 0), d.Len())
	if err := d.decoder.SeekToSample(int64(p)); err != nil {
		return err
	}
	d.err = nil
	return nil
}

func (d *mp3Stream) Close() error {
	return d.closer.Close()
}
