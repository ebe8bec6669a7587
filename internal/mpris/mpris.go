//go:build linux

// Package mpris exposes the playback session on the session D-Bus so
// desktop media keys and widgets can drive it.
package mpris

import (
	"fmt"
	"hash/fnv"

	"github.com/godbus/dbus/v5"
	"github.com/quarckster/go-mpris-server/pkg/server"
	"github.com/quarckster/go-mpris-server/pkg/types"
	"github.com/rs/zerolog/log"

	"github.com/llehouerou/wavesd/internal/events"
	"github.com/llehouerou/wavesd/internal/playback"
	"github.com/llehouerou/wavesd/internal/playlist"
)

// Adapter connects a playback session to MPRIS over D-Bus.
type Adapter struct {
	server *server.Server
}

// New creates and starts an MPRIS adapter. Media key presses are
// published on pub before they reach the session.
func New(service playback.Service, pub events.Publisher) (*Adapter, error) {
	a := &Adapter{
		server: server.NewServer("wavesd", &rootAdapter{}, &playerAdapter{service: service, events: pub}),
	}
	go func() {
		if err := a.server.Listen(); err != nil {
			log.Warn().Err(err).Msg("mpris: listen")
		}
	}()
	return a, nil
}

// Close stops the adapter and releases D-Bus resources.
func (a *Adapter) Close() error {
	return a.server.Stop()
}

// rootAdapter implements OrgMprisMediaPlayer2Adapter.
type rootAdapter struct{}

func (r *rootAdapter) Raise() error { return nil }

// Quit is ignored; the daemon manages its own lifecycle.
func (r *rootAdapter) Quit() error { return nil }

func (r *rootAdapter) CanQuit() (bool, error) { return false, nil }

func (r *rootAdapter) CanRaise() (bool, error) { return false, nil }

func (r *rootAdapter) HasTrackList() (bool, error) { return false, nil }

func (r *rootAdapter) Identity() (string, error) { return "wavesd", nil }

//nolint:revive // Method name required by interface.
func (r *rootAdapter) SupportedUriSchemes() ([]string, error) {
	return []string{"file"}, nil
}

func (r *rootAdapter) SupportedMimeTypes() ([]string, error) {
	return []string{"audio/mpeg", "audio/flac", "audio/ogg", "audio/opus", "audio/mp4", "audio/wav"}, nil
}

// playerAdapter implements OrgMprisMediaPlayer2PlayerAdapter and the
// loop status and shuffle extensions.
type playerAdapter struct {
	service playback.Service
	events  events.Publisher
}

func (p *playerAdapter) Next() error {
	p.events.Publish(events.ControlsNextSong, nil)
	_, err := p.service.Next()
	return err
}

func (p *playerAdapter) Previous() error {
	p.events.Publish(events.ControlsPrevSong, nil)
	_, err := p.service.Previous()
	return err
}

func (p *playerAdapter) Pause() error {
	p.service.Pause()
	return nil
}

func (p *playerAdapter) PlayPause() error {
	p.events.Publish(events.ControlsPlayPause, nil)
	return p.service.Toggle()
}

func (p *playerAdapter) Stop() error {
	p.service.Stop()
	return nil
}

func (p *playerAdapter) Play() error {
	return p.service.Play()
}

// Seek moves relative to the current position.
func (p *playerAdapter) Seek(offset types.Microseconds) error {
	return p.service.Seek(p.service.Position() + seconds(offset))
}

func (p *playerAdapter) SetPosition(_ string, position types.Microseconds) error {
	return p.service.Seek(seconds(position))
}

//nolint:revive // Method name required by interface.
func (p *playerAdapter) OpenUri(_ string) error { return nil }

func (p *playerAdapter) PlaybackStatus() (types.PlaybackStatus, error) {
	st := p.service.Status()
	switch {
	case st.IsPlaying:
		return types.PlaybackStatusPlaying, nil
	case st.Track != nil:
		return types.PlaybackStatusPaused, nil
	}
	return types.PlaybackStatusStopped, nil
}

func (p *playerAdapter) Rate() (float64, error) { return 1.0, nil }

func (p *playerAdapter) SetRate(_ float64) error { return nil }

func (p *playerAdapter) Metadata() (types.Metadata, error) {
	track, ok := p.service.CurrentTrack()
	if !ok {
		return types.Metadata{}, nil
	}
	meta := types.Metadata{
		TrackId:     dbus.ObjectPath(formatTrackID(track.Path)),
		Length:      microseconds(track.Duration),
		Title:       track.Name,
		Album:       track.Album,
		TrackNumber: track.TrackNumber,
		DiscNumber:  track.DiscNumber,
		Url:         "file://" + track.Path,
	}
	if track.Artist != "" {
		meta.Artist = []string{track.Artist}
	}
	if track.AlbumArtist != "" {
		meta.AlbumArtist = []string{track.AlbumArtist}
	}
	if track.Genre != "" {
		meta.Genre = []string{track.Genre}
	}
	if track.Cover != "" {
		meta.ArtUrl = "file://" + track.Cover
	}
	return meta, nil
}

func (p *playerAdapter) Volume() (float64, error) {
	return p.service.Status().Volume, nil
}

func (p *playerAdapter) SetVolume(level float64) error {
	p.service.SetVolume(level)
	return nil
}

func (p *playerAdapter) Position() (int64, error) {
	return int64(microseconds(p.service.Position())), nil
}

func (p *playerAdapter) MinimumRate() (float64, error) { return 1.0, nil }

func (p *playerAdapter) MaximumRate() (float64, error) { return 1.0, nil }

func (p *playerAdapter) CanGoNext() (bool, error) { return p.service.Len() > 0, nil }

func (p *playerAdapter) CanGoPrevious() (bool, error) { return p.service.Len() > 0, nil }

func (p *playerAdapter) CanPlay() (bool, error) { return p.service.Len() > 0, nil }

func (p *playerAdapter) CanPause() (bool, error) { return true, nil }

func (p *playerAdapter) CanSeek() (bool, error) { return true, nil }

func (p *playerAdapter) CanControl() (bool, error) { return true, nil }

// LoopStatus implements OrgMprisMediaPlayer2PlayerAdapterLoopStatus.
func (p *playerAdapter) LoopStatus() (types.LoopStatus, error) {
	mode, _ := playlist.ParseRepeatMode(p.service.Status().Repeat)
	switch mode {
	case playlist.RepeatOne:
		return types.LoopStatusTrack, nil
	case playlist.RepeatAll:
		return types.LoopStatusPlaylist, nil
	case playlist.RepeatOff:
	}
	return types.LoopStatusNone, nil
}

// SetLoopStatus implements OrgMprisMediaPlayer2PlayerAdapterLoopStatus.
func (p *playerAdapter) SetLoopStatus(status types.LoopStatus) error {
	switch status {
	case types.LoopStatusNone:
		p.service.SetRepeatMode(playlist.RepeatOff)
	case types.LoopStatusTrack:
		p.service.SetRepeatMode(playlist.RepeatOne)
	case types.LoopStatusPlaylist:
		p.service.SetRepeatMode(playlist.RepeatAll)
	}
	return nil
}

// Shuffle implements OrgMprisMediaPlayer2PlayerAdapterShuffle.
func (p *playerAdapter) Shuffle() (bool, error) {
	return p.service.Status().Shuffled, nil
}

// SetShuffle implements OrgMprisMediaPlayer2PlayerAdapterShuffle.
func (p *playerAdapter) SetShuffle(shuffle bool) error {
	p.service.SetShuffle(shuffle)
	return nil
}

func seconds(us types.Microseconds) float64 {
	return float64(us) / 1e6
}

func microseconds(s float64) types.Microseconds {
	return types.Microseconds(s * 1e6)
}

func formatTrackID(path string) string {
	h := fnv.New64a()
	h.Write([]byte(path))
	return fmt.Sprintf("/org/mpris/MediaPlayer2/Track/%x", h.Sum64())
}
