package rpc

import (
	"context"
	"encoding/json"

	"github.com/llehouerou/wavesd/internal/library"
)

type queueParams struct {
	Queue []SongRef `json:"queue" validate:"required,min=1"`
	Index int       `json:"index" validate:"gte=0"`
}

type songsParams struct {
	Songs []SongRef `json:"songs" validate:"required,min=1"`
}

type appendParams struct {
	Queue []SongRef `json:"queue" validate:"required"`
}

type seekParams struct {
	Pos *float64 `json:"pos" validate:"required"`
}

type volumeParams struct {
	Volume *float64 `json:"volume" validate:"required"`
}

type repeatParams struct {
	Mode *RepeatParam `json:"mode" validate:"required"`
}

type shuffleParams struct {
	Mode *bool `json:"mode" validate:"required"`
}

type reorderQueueParams struct {
	OldIndex int `json:"old_index" validate:"gte=0"`
	NewIndex int `json:"new_index" validate:"gte=0"`
}

type indexParams struct {
	Index int `json:"index" validate:"gte=0"`
}

// resolveRefs keeps one track per reference so queue indices sent by the
// client stay aligned; missing files are left for the session to skip.
func resolveRefs(ctx context.Context, env *Env, refs []SongRef) ([]library.Track, error) {
	return env.Library.ResolveQueue(ctx, refPaths(refs))
}

func playerLoadAlbum(ctx context.Context, env *Env, raw json.RawMessage) (any, error) {
	var p queueParams
	if err := decodeParams(raw, &p); err != nil {
		return nil, err
	}
	tracks, err := resolveRefs(ctx, env, p.Queue)
	if err != nil {
		return nil, err
	}
	return env.Session.LoadQueue(tracks, p.Index)
}

func playerGetQueue(_ context.Context, env *Env, _ json.RawMessage) (any, error) {
	return env.Session.Queue(), nil
}

func playerGetQueueLength(_ context.Context, env *Env, _ json.RawMessage) (any, error) {
	return env.Session.Len(), nil
}

func playerAddToQueue(ctx context.Context, env *Env, raw json.RawMessage) (any, error) {
	var p appendParams
	if err := decodeParams(raw, &p); err != nil {
		return nil, err
	}
	tracks, err := resolveRefs(ctx, env, p.Queue)
	if err != nil {
		return nil, err
	}
	env.Session.Append(tracks)
	return env.Session.Len(), nil
}

func addToQueue(ctx context.Context, env *Env, raw json.RawMessage) (any, error) {
	var p songsParams
	if err := decodeParams(raw, &p); err != nil {
		return nil, err
	}
	tracks, err := resolveRefs(ctx, env, p.Songs)
	if err != nil {
		return nil, err
	}
	env.Session.Append(tracks)
	return env.Session.Len(), nil
}

func playerUpdateQueueAndPos(ctx context.Context, env *Env, raw json.RawMessage) (any, error) {
	var p queueParams
	if err := decodeParams(raw, &p); err != nil {
		return nil, err
	}
	tracks, err := resolveRefs(ctx, env, p.Queue)
	if err != nil {
		return nil, err
	}
	return nil, env.Session.UpdateQueue(tracks, p.Index)
}

func clearQueue(_ context.Context, env *Env, _ json.RawMessage) (any, error) {
	env.Session.Clear()
	return nil, nil
}

func createQueue(ctx context.Context, env *Env, raw json.RawMessage) (any, error) {
	var p songsParams
	if err := decodeParams(raw, &p); err != nil {
		return nil, err
	}
	tracks, err := resolveRefs(ctx, env, p.Songs)
	if err != nil {
		return nil, err
	}
	return nil, env.Session.CreateQueue(tracks)
}

func setShuffleMode(_ context.Context, env *Env, raw json.RawMessage) (any, error) {
	var p shuffleParams
	if err := decodeParams(raw, &p); err != nil {
		return nil, err
	}
	env.Session.SetShuffle(*p.Mode)
	return env.Session.Queue(), nil
}

func playerReorderQueue(_ context.Context, env *Env, raw json.RawMessage) (any, error) {
	var p reorderQueueParams
	if err := decodeParams(raw, &p); err != nil {
		return nil, err
	}
	if err := env.Session.Reorder(p.OldIndex, p.NewIndex); err != nil {
		return nil, err
	}
	return env.Session.Queue(), nil
}

func playerRemoveFromQueue(_ context.Context, env *Env, raw json.RawMessage) (any, error) {
	var p indexParams
	if err := decodeParams(raw, &p); err != nil {
		return nil, err
	}
	if err := env.Session.Remove(p.Index); err != nil {
		return nil, err
	}
	return env.Session.Queue(), nil
}

func playerRemoveSongs(_ context.Context, env *Env, raw json.RawMessage) (any, error) {
	var p songsParams
	if err := decodeParams(raw, &p); err != nil {
		return nil, err
	}
	env.Session.RemoveMany(refPaths(p.Songs))
	return env.Session.Queue(), nil
}

func playerPlay(_ context.Context, env *Env, _ json.RawMessage) (any, error) {
	return nil, env.Session.Play()
}

func playerPause(_ context.Context, env *Env, _ json.RawMessage) (any, error) {
	env.Session.Pause()
	return nil, nil
}

func playerStop(_ context.Context, env *Env, _ json.RawMessage) (any, error) {
	env.Session.Stop()
	return nil, nil
}

func playerIsPaused(_ context.Context, env *Env, _ json.RawMessage) (any, error) {
	return env.Session.IsPaused(), nil
}

func playerNextSong(_ context.Context, env *Env, _ json.RawMessage) (any, error) {
	return env.Session.Next()
}

func playerPreviousSong(_ context.Context, env *Env, _ json.RawMessage) (any, error) {
	return env.Session.Previous()
}

func playerSetSeek(_ context.Context, env *Env, raw json.RawMessage) (any, error) {
	var p seekParams
	if err := decodeParams(raw, &p); err != nil {
		return nil, err
	}
	return nil, env.Session.Seek(*p.Pos)
}

func playerSetVolume(_ context.Context, env *Env, raw json.RawMessage) (any, error) {
	var p volumeParams
	if err := decodeParams(raw, &p); err != nil {
		return nil, err
	}
	env.Session.SetVolume(*p.Volume)
	return nil, nil
}

func playerSetRepeatMode(_ context.Context, env *Env, raw json.RawMessage) (any, error) {
	var p repeatParams
	if err := decodeParams(raw, &p); err != nil {
		return nil, err
	}
	env.Session.SetRepeatMode(p.Mode.Mode)
	return p.Mode.Mode.String(), nil
}

func playerGetCurrentPosition(_ context.Context, env *Env, _ json.RawMessage) (any, error) {
	return env.Session.Position(), nil
}

func playerGetCurrentSong(_ context.Context, env *Env, _ json.RawMessage) (any, error) {
	t, ok := env.Session.CurrentTrack()
	if !ok {
		return nil, nil
	}
	return t, nil
}

func playerGetState(_ context.Context, env *Env, _ json.RawMessage) (any, error) {
	return env.Session.Status(), nil
}
