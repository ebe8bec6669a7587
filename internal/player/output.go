package player

import (
	"sync"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/speaker"
)

// Output is the audio device the engine streams to. Streamers added with
// Play are pulled from the device's own goroutine; Lock and Unlock
// exclude that goroutine while a streamer is being torn down.
type Output interface {
	Init(sampleRate beep.SampleRate, bufferSize int) error
	Play(s beep.Streamer)
	Clear()
	Lock()
	Unlock()
	Close()
}

// SpeakerOutput plays through the system audio device via beep's speaker.
type SpeakerOutput struct {
	mu          sync.Mutex
	initialized bool
}

// NewSpeakerOutput returns the default Output.
func NewSpeakerOutput() *SpeakerOutput {
	return &SpeakerOutput{}
}

func (o *SpeakerOutput) Init(sampleRate beep.SampleRate, bufferSize int) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.initialized {
		return nil
	}
	if err := speaker.Init(sampleRate, bufferSize); err != nil {
		return err
	}
	o.initialized = true
	return nil
}

func (o *SpeakerOutput) Play(s beep.Streamer) { speaker.Play(s) }
func (o *SpeakerOutput) Clear()               { speaker.Clear() }
func (o *SpeakerOutput) Lock()                { speaker.Lock() }
func (o *SpeakerOutput) Unlock()              { speaker.Unlock() }

func (o *SpeakerOutput) Close() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.initialized {
		speaker.Close()
		o.initialized = false
	}
}

// ManualOutput is an Output driven by explicit Pump calls instead of a
// sound card. It is used by tests and headless runs.
type ManualOutput struct {
	mu         sync.Mutex
	mixer      beep.Mixer
	sampleRate beep.SampleRate
	buf        [][2]float64
}

// NewManualOutput returns an Output that only advances when pumped.
func NewManualOutput() *ManualOutput {
	return &ManualOutput{buf: make([][2]float64, 512)}
}

func (o *ManualOutput) Init(sampleRate beep.SampleRate, _ int) error {
	o.mu.Lock()
	o.sampleRate = sampleRate
	o.mu.Unlock()
	return nil
}

func (o *ManualOutput) Play(s beep.Streamer) {
	o.mu.Lock()
	o.mixer.Add(s)
	o.mu.Unlock()
}

func (o *ManualOutput) Clear() {
	o.mu.Lock()
	o.mixer.Clear()
	o.mu.Unlock()
}

func (o *ManualOutput) Lock()   { o.mu.Lock() }
func (o *ManualOutput) Unlock() { o.mu.Unlock() }
func (o *ManualOutput) Close()  { o.Clear() }

// Pump streams n samples through every playing streamer.
func (o *ManualOutput) Pump(n int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	for n > 0 {
		chunk := min(n, len(o.buf))
		o.mixer.Stream(o.buf[:chunk])
		n -= chunk
	}
}

// PumpSeconds streams the given amount of time at the initialized rate.
func (o *ManualOutput) PumpSeconds(seconds float64) {
	o.mu.Lock()
	rate := o.sampleRate
	o.mu.Unlock()
	o.Pump(int(seconds * float64(rate)))
}
