package player

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/llehouerou/alac"
	"github.com/llehouerou/go-faad2"
	"github.com/llehouerou/go-m4a"
)

// frameDecoder turns one container sample into stereo frames.
type frameDecoder interface {
	decode(packet []byte) ([][2]float64, error)
	close()
}

// m4aStream walks the samples of an MP4 container and decodes them with
// the codec the container declares (AAC or ALAC).
type m4aStream struct {
	container *m4a.Reader
	codec     frameDecoder
	closer    io.Closer
	rate      float64
	total     int
	next      int // next container sample index
	pending   [][2]float64
	err       error
}

func decodeM4A(rc io.ReadSeekCloser) (beep.StreamSeekCloser, beep.Format, string, error) {
	container, err := m4a.Open(rc)
	if err != nil {
		return nil, beep.Format{}, "", err
	}

	channels := int(container.Channels())
	format := beep.Format{
		SampleRate:  beep.SampleRate(container.SampleRate()),
		NumChannels: 2,
		Precision:   2,
	}

	var codec frameDecoder
	switch container.Codec() {
	case m4a.CodecAAC:
		codec, err = newAACFrames(container.CodecConfig(), channels)
	case m4a.CodecALAC:
		if container.SampleSize() == 24 {
			format.Precision = 3
		}
		codec, err = newALACFrames(int(container.SampleRate()), int(container.SampleSize()), channels)
	default:
		err = errors.New("m4a: unknown codec")
	}
	if err != nil {
		return nil, beep.Format{}, "", err
	}

	rate := float64(container.SampleRate())
	return &m4aStream{
		container: container,
		codec:     codec,
		closer:    rc,
		rate:      rate,
		total:     int(container.Duration().Seconds() * rate),
	}, format, container.Codec().String(), nil
}

func (d *m4aStream) Stream(samples [][2]float64) (n int, ok bool) {
	if d.err != nil {
		return 0, false
	}
	for n < len(samples) {
		if len(d.pending) > 0 {
			c := copy(samples[n:], d.pending)
			d.pending = d.pending[c:]
			n += c
			continue
		}
		if d.next >= d.container.SampleCount() {
			return n, n > 0
		}
		packet, err := d.container.ReadSample(d.next)
		if err != nil {
			d.err = err
			return n, n > 0
		}
		d.next++
		if d.pending, err = d.codec.decode(packet); err != nil {
			d.err = err
			return n, n > 0
		}
	}
	return n, true
}

func (d *m4aStream) Err() error { return d.err }

func (d *m4aStream) Len() int { return d.total }

func (d *m4aStream) Position() int {
	return int(d.container.SampleTime(d.next).Seconds()*d.rate) - len(d.pending)
}

func (d *m4aStream) Seek(p int) error {
	p = max(0, min(p, d.total))
	at := time.Duration(float64(p) / d.rate * float64(time.Second))
	d.next = d.container.SeekToTime(at)
	d.pending = nil
	d.err = nil
	return nil
}

func (d *m4aStream) Close() error {
	d.codec.close()
	return d.closer.Close()
}

type aacFrames struct {
	decoder  *faad2.Decoder
	channels int
}

func newAACFrames(config []byte, channels int) (*aacFrames, error) {
	ctx := context.Background()
	decoder, err := faad2.NewDecoder(ctx)
	if err != nil {
		return nil, err
	}
	if err := decoder.Init(ctx, config); err != nil {
		decoder.Close(ctx)
		return nil, err
	}
	return &aacFrames{decoder: decoder, channels: channels}, nil
}

func (a *aacFrames) decode(packet []byte) ([][2]float64, error) {
	pcm, err := a.decoder.Decode(context.Background(), packet)
	if err != nil {
		return nil, err
	}
	frames := make([][2]float64, len(pcm)/max(a.channels, 1))
	for i := range frames {
		left := float64(pcm[i*a.channels]) / 32768
		right := left
		if a.channels > 1 {
			right = float64(pcm[i*a.channels+1]) / 32768
		}
		frames[i] = [2]float64{left, right}
	}
	return frames, nil
}

func (a *aacFrames) close() { a.decoder.Close(context.Background()) }

type alacFrames struct {
	decoder  *alac.Alac
	width    int // bytes per sample
	channels int
}

func newALACFrames(sampleRate, sampleSize, channels int) (*alacFrames, error) {
	decoder, err := alac.NewWithConfig(alac.Config{
		SampleRate:  sampleRate,
		SampleSize:  sampleSize,
		NumChannels: channels,
		FrameSize:   4096,
	})
	if err != nil {
		return nil, err
	}
	return &alacFrames{decoder: decoder, width: sampleSize / 8, channels: channels}, nil
}

func (a *alacFrames) decode(packet []byte) ([][2]float64, error) {
	raw := a.decoder.Decode(packet)
	stride := a.width * a.channels
	if stride == 0 {
		return nil, errors.New("alac: invalid frame layout")
	}
	frames := make([][2]float64, len(raw)/stride)
	for i := range frames {
		off := i * stride
		left := a.sample(raw[off:])
		right := left
		if a.channels > 1 {
			right = a.sample(raw[off+a.width:])
		}
		frames[i] = [2]float64{left, right}
	}
	return frames, nil
}

// sample reads one little-endian signed sample.
func (a *alacFrames) sample(b []byte) float64 {
	if a.width == 3 {
		v := int32(b[0]) | int32(b[1])<<8 | int32(b[2])<<16
		if v&0x800000 != 0 {
			v |= ^0xFFFFFF
		}
		return float64(v) / (1 << 23)
	}
	return float64(int16(b[0])|int16(b[1])<<8) / (1 << 15)
}

func (a *alacFrames) close() {}
