package player

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/gopxl/beep/v2"
	"github.com/jj11hh/opus"
)

const (
	opusRate = 48000
	// opusPreroll is decoded and dropped before a seek target (80 ms).
	opusPreroll = 3840
	// opusMaxFrame is the longest Opus frame, 120 ms at 48 kHz.
	opusMaxFrame = 5760
)

var errOggSync = errors.New("ogg: lost page sync")

// oggReader splits an Ogg bitstream into packets, joining packets that
// span pages.
type oggReader struct {
	r       io.Reader
	partial []byte
}

// page reads the next page and returns its granule position and the
// packets completed on it.
func (o *oggReader) page() (int64, [][]byte, error) {
	var hdr [27]byte
	if _, err := io.ReadFull(o.r, hdr[:]); err != nil {
		return 0, nil, err
	}
	if string(hdr[:4]) != "OggS" {
		return 0, nil, errOggSync
	}
	granule := int64(binary.LittleEndian.Uint64(hdr[6:14]))
	lacing := make([]byte, hdr[26])
	if _, err := io.ReadFull(o.r, lacing); err != nil {
		return 0, nil, err
	}
	size := 0
	for _, l := range lacing {
		size += int(l)
	}
	body := make([]byte, size)
	if _, err := io.ReadFull(o.r, body); err != nil {
		return 0, nil, err
	}
	if hdr[5]&0x01 == 0 {
		o.partial = nil
	}

	var packets [][]byte
	pos, from := 0, 0
	for _, l := range lacing {
		pos += int(l)
		if l < 255 {
			packets = append(packets, append(o.partial, body[from:pos]...))
			o.partial = nil
			from = pos
		}
	}
	if from < pos || (len(lacing) > 0 && lacing[len(lacing)-1] == 255) {
		o.partial = append(o.partial, body[from:pos]...)
	}
	return granule, packets, nil
}

// isOpus reports whether the Ogg stream in r carries Opus. r is rewound.
func isOpus(r io.ReadSeeker) bool {
	var head [36]byte
	n, _ := io.ReadFull(r, head[:])
	_, _ = r.Seek(0, io.SeekStart)
	return n == len(head) && string(head[28:36]) == "OpusHead"
}

// opusStream decodes Ogg/Opus with jj11hh/opus.
type opusStream struct {
	src       io.ReadSeekCloser
	ogg       *oggReader
	decoder   *opus.Decoder
	channels  int
	preSkip   int
	dataStart int64
	total     int

	pos     int      // frames delivered
	skip    int      // decoded frames still to drop
	queue   [][]byte // packets not yet decoded
	pcm     []float32
	pending [][2]float64
	err     error
}

func decodeOpus(rc io.ReadSeekCloser) (beep.StreamSeekCloser, beep.Format, error) {
	d := &opusStream{src: rc, ogg: &oggReader{r: rc}}

	// identification and comment headers
	var headers [][]byte
	for len(headers) < 2 {
		_, packets, err := d.ogg.page()
		if err != nil {
			return nil, beep.Format{}, fmt.Errorf("opus headers: %w", err)
		}
		headers = append(headers, packets...)
	}
	head := headers[0]
	if len(head) < 19 || string(head[:8]) != "OpusHead" {
		return nil, beep.Format{}, errors.New("opus: missing OpusHead")
	}
	d.channels = int(head[9])
	if d.channels < 1 || d.channels > 2 {
		return nil, beep.Format{}, fmt.Errorf("opus: %d channels not supported", d.channels)
	}
	d.preSkip = int(binary.LittleEndian.Uint16(head[10:12]))

	var err error
	if d.dataStart, err = rc.Seek(0, io.SeekCurrent); err != nil {
		return nil, beep.Format{}, err
	}
	last, err := lastGranule(rc)
	if err != nil {
		return nil, beep.Format{}, err
	}
	d.total = max(int(last)-d.preSkip, 0)
	d.pcm = make([]float32, opusMaxFrame*d.channels)
	if err := d.reset(0); err != nil {
		return nil, beep.Format{}, err
	}

	format := beep.Format{SampleRate: opusRate, NumChannels: 2, Precision: 2}
	return d, format, nil
}

// lastGranule finds the granule position of the final page.
func lastGranule(r io.ReadSeeker) (int64, error) {
	end, err := r.Seek(0, io.SeekEnd)
	if err != nil {
		return 0, err
	}
	size := min(end, 65536)
	if _, err := r.Seek(-size, io.SeekEnd); err != nil {
		return 0, err
	}
	buf := make([]byte, size)
	if _, err := io.ReadFull(r, buf); err != nil {
		return 0, err
	}
	for i := len(buf) - 27; i >= 0; i-- {
		if string(buf[i:i+4]) == "OggS" {
			return int64(binary.LittleEndian.Uint64(buf[i+6 : i+14])), nil
		}
	}
	return 0, errors.New("ogg: no page found")
}

// reset positions the stream at granule target (pre-skip included) with a
// fresh decoder. Pages ending before the preroll window are skipped
// without decoding.
func (d *opusStream) reset(target int) error {
	if _, err := d.src.Seek(d.dataStart, io.SeekStart); err != nil {
		return err
	}
	decoder, err := opus.NewDecoder(opusRate, d.channels)
	if err != nil {
		return err
	}
	d.decoder = decoder
	d.ogg.partial = nil
	d.queue, d.pending, d.err = nil, nil, nil

	start := int64(max(target-opusPreroll, 0))
	var base int64
	for {
		granule, packets, err := d.ogg.page()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return err
		}
		if granule >= 0 && granule < start {
			base = granule
			continue
		}
		d.queue = packets
		break
	}
	d.skip = target - int(base)
	return nil
}

func (d *opusStream) Stream(samples [][2]float64) (n int, ok bool) {
	if d.err != nil {
		return 0, false
	}
	for n < len(samples) {
		if len(d.pending) > 0 {
			c := copy(samples[n:], d.pending)
			d.pending = d.pending[c:]
			d.pos += c
			n += c
			continue
		}
		if len(d.queue) == 0 {
			_, packets, err := d.ogg.page()
			if err != nil {
				if !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
					d.err = err
				}
				return n, n > 0
			}
			d.queue = packets
			continue
		}
		packet := d.queue[0]
		d.queue = d.queue[1:]
		perChannel, err := d.decoder.DecodeFloat32(packet, d.pcm)
		if err != nil {
			// corrupt packets are dropped
			continue
		}
		d.pending = d.frames(perChannel)
	}
	return n, true
}

// frames converts decoded PCM to stereo, dropping frames still owed to
// pre-skip or a seek.
func (d *opusStream) frames(perChannel int) [][2]float64 {
	drop := min(d.skip, perChannel)
	d.skip -= drop
	out := make([][2]float64, 0, perChannel-drop)
	for i := drop; i < perChannel; i++ {
		left := float64(d.pcm[i*d.channels])
		right := left
		if d.channels == 2 {
			right = float64(d.pcm[i*2+1])
		}
		out = append(out, [2]float64{left, right})
	}
	return out
}

func (d *opusStream) Err() error { return d.err }

func (d *opusStream) Len() int { return d.total }

func (d *opusStream) Position() int { return d.pos }

func (d *opusStream) Seek(p int) error {
	p = max(0, min(p, d.total))
	if err := d.reset(p + d.preSkip); err != nil {
		return err
	}
	d.pos = p
	return nil
}

func (d *opusStream) Close() error { return d.src.Close() }
