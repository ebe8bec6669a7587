package rpc

import (
	"context"
	"encoding/json"

	"github.com/llehouerou/wavesd/internal/events"
	"github.com/llehouerou/wavesd/internal/history"
	"github.com/llehouerou/wavesd/internal/library"
	"github.com/llehouerou/wavesd/internal/player"
)

type historyParams struct {
	Limit int `json:"limit" validate:"gte=0"`
}

type pathParams struct {
	Path SongRef `json:"path" validate:"required"`
}

type optionalPathParams struct {
	Path SongRef `json:"path"`
}

type settingParams struct {
	Key   string          `json:"key" validate:"required"`
	Value json.RawMessage `json:"value" validate:"required"`
}

// historyItem is a resolved play history entry.
type historyItem struct {
	library.Track
	PlayedAt int64 `json:"played_at"`
}

func getPlayHistory(ctx context.Context, env *Env, raw json.RawMessage) (any, error) {
	var p historyParams
	if err := decodeParams(raw, &p); err != nil {
		return nil, err
	}
	if p.Limit == 0 {
		p.Limit = history.DefaultLimit
	}
	entries, err := env.History.Recent(ctx, p.Limit)
	if err != nil {
		return nil, err
	}
	tracks, err := env.Library.ResolveAll(ctx, history.Paths(entries))
	if err != nil {
		return nil, err
	}
	byPath := make(map[string]library.Track, len(tracks))
	for _, t := range tracks {
		byPath[t.Path] = t
	}
	items := make([]historyItem, 0, len(entries))
	for _, e := range entries {
		t, ok := byPath[e.Path]
		if !ok {
			continue
		}
		items = append(items, historyItem{Track: t, PlayedAt: e.PlayedAt})
	}
	return items, nil
}

func addSongToHistory(ctx context.Context, env *Env, raw json.RawMessage) (any, error) {
	var p pathParams
	if err := decodeParams(raw, &p); err != nil {
		return nil, err
	}
	return nil, env.History.Record(ctx, string(p.Path))
}

// updateCurrentSongPlayed records a play of path, or of the current track,
// and re-announces the current track.
func updateCurrentSongPlayed(ctx context.Context, env *Env, raw json.RawMessage) (any, error) {
	var p optionalPathParams
	if err := decodeParams(raw, &p); err != nil {
		return nil, err
	}
	cur, loaded := env.Session.CurrentTrack()
	path := string(p.Path)
	if path == "" {
		if !loaded {
			return nil, player.ErrNotLoaded
		}
		path = cur.Path
	}
	if err := env.History.Record(ctx, path); err != nil {
		return nil, err
	}
	if loaded {
		env.Events.Publish(events.CurrentSong, events.SongPayload{Q: cur})
	}
	return nil, nil
}

func getSettings(ctx context.Context, env *Env, _ json.RawMessage) (any, error) {
	return env.State.Settings(ctx)
}

func setSetting(ctx context.Context, env *Env, raw json.RawMessage) (any, error) {
	var p settingParams
	if err := decodeParams(raw, &p); err != nil {
		return nil, err
	}
	return nil, env.State.SetRawSetting(ctx, p.Key, p.Value)
}

func getResumeState(_ context.Context, env *Env, _ json.RawMessage) (any, error) {
	return env.Session.Snapshot(), nil
}

func checkForNewVersion(ctx context.Context, env *Env, _ json.RawMessage) (any, error) {
	return env.Updates.Check(ctx)
}
