package rpc

import (
	"cmp"
	"context"
	"encoding/json"
	"fmt"
	"slices"

	"github.com/llehouerou/wavesd/internal/events"
	"github.com/llehouerou/wavesd/internal/library"
	"github.com/llehouerou/wavesd/internal/playlist"
	"github.com/llehouerou/wavesd/internal/playlists"
)

// playlistView is a playlist with its songs resolved to tracks.
type playlistView struct {
	ID        int64           `json:"id"`
	Name      string          `json:"name"`
	Cover     string          `json:"cover,omitempty"`
	Songs     []library.Track `json:"songs"`
	CreatedAt int64           `json:"created_at"`
	UpdatedAt int64           `json:"updated_at"`
}

// NewPlaylistPayload is the payload of the new-playlist-created event. The
// client expects a list; it holds the announced playlist.
type NewPlaylistPayload struct {
	Playlist []playlistView `json:"playlist"`
}

type playlistRefParams struct {
	ID   *int64 `json:"id"`
	Name string `json:"name" validate:"required_without=ID"`
}

type createPlaylistParams struct {
	Name       string    `json:"name" validate:"required"`
	Songs      []SongRef `json:"songs"`
	SongsToAdd []SongRef `json:"songs_to_add"`
}

type renamePlaylistParams struct {
	OldName string `json:"old_name" validate:"required"`
	NewName string `json:"new_name" validate:"required"`
}

type deletePlaylistParams struct {
	Name string `json:"name" validate:"required"`
}

type addToPlaylistParams struct {
	Songs        []SongRef `json:"songs" validate:"required,min=1"`
	PlaylistID   *int64    `json:"playlist_id"`
	PlaylistName string    `json:"playlist_name" validate:"required_without=PlaylistID"`
}

type removeSongParams struct {
	PlaylistID int64     `json:"playlist_id" validate:"required"`
	SongPath   SongRef   `json:"song_path"`
	Songs      []SongRef `json:"songs"`
}

type playlistSongsParams struct {
	PlaylistID int64     `json:"playlist_id" validate:"required"`
	Songs      []SongRef `json:"songs" validate:"required"`
}

type playlistCoverParams struct {
	FilePath     string `json:"file_path" validate:"required"`
	PlaylistID   *int64 `json:"playlist_id"`
	PlaylistName string `json:"playlist_name" validate:"required_without=PlaylistID"`
}

type newPlaylistParams struct {
	PlaylistID *int64 `json:"playlist_id"`
}

type playPlaylistParams struct {
	PlaylistID int64 `json:"playlist_id" validate:"required"`
	Index      int   `json:"index" validate:"gte=0"`
	Shuffled   bool  `json:"shuffled"`
}

// findPlaylist looks a playlist up by id, or by name when id is nil.
func findPlaylist(ctx context.Context, env *Env, id *int64, name string) (playlists.Playlist, error) {
	if id != nil {
		return env.Playlists.Get(ctx, *id)
	}
	return env.Playlists.FindByName(ctx, name)
}

func viewPlaylist(ctx context.Context, env *Env, pl playlists.Playlist) (playlistView, error) {
	tracks, err := env.Library.ResolveAll(ctx, pl.Songs)
	if err != nil {
		return playlistView{}, err
	}
	return playlistView{
		ID:        pl.ID,
		Name:      pl.Name,
		Cover:     pl.Cover,
		Songs:     tracks,
		CreatedAt: pl.CreatedAt,
		UpdatedAt: pl.UpdatedAt,
	}, nil
}

func loadView(ctx context.Context, env *Env, id int64) (playlistView, error) {
	pl, err := env.Playlists.Get(ctx, id)
	if err != nil {
		return playlistView{}, err
	}
	return viewPlaylist(ctx, env, pl)
}

func getPlaylist(ctx context.Context, env *Env, raw json.RawMessage) (any, error) {
	var p playlistRefParams
	if err := decodeParams(raw, &p); err != nil {
		return nil, err
	}
	pl, err := findPlaylist(ctx, env, p.ID, p.Name)
	if err != nil {
		return nil, err
	}
	return viewPlaylist(ctx, env, pl)
}

func getAllPlaylists(ctx context.Context, env *Env, _ json.RawMessage) (any, error) {
	all, err := env.Playlists.List(ctx)
	if err != nil {
		return nil, err
	}
	views := make([]playlistView, 0, len(all))
	for _, pl := range all {
		v, err := viewPlaylist(ctx, env, pl)
		if err != nil {
			return nil, err
		}
		views = append(views, v)
	}
	return views, nil
}

func createPlaylist(ctx context.Context, env *Env, raw json.RawMessage) (any, error) {
	var p createPlaylistParams
	if err := decodeParams(raw, &p); err != nil {
		return nil, err
	}
	songs := slices.Concat(refPaths(p.Songs), refPaths(p.SongsToAdd))
	id, err := env.Playlists.Create(ctx, p.Name, songs)
	if err != nil {
		return nil, err
	}
	view, err := loadView(ctx, env, id)
	if err != nil {
		return nil, err
	}
	env.Events.Publish(events.NewPlaylistCreated, NewPlaylistPayload{Playlist: []playlistView{view}})
	return view, nil
}

func renamePlaylist(ctx context.Context, env *Env, raw json.RawMessage) (any, error) {
	var p renamePlaylistParams
	if err := decodeParams(raw, &p); err != nil {
		return nil, err
	}
	pl, err := env.Playlists.FindByName(ctx, p.OldName)
	if err != nil {
		return nil, err
	}
	if err := env.Playlists.Rename(ctx, pl.ID, p.NewName); err != nil {
		return nil, err
	}
	return loadView(ctx, env, pl.ID)
}

func deletePlaylist(ctx context.Context, env *Env, raw json.RawMessage) (any, error) {
	var p deletePlaylistParams
	if err := decodeParams(raw, &p); err != nil {
		return nil, err
	}
	pl, err := env.Playlists.FindByName(ctx, p.Name)
	if err != nil {
		return nil, err
	}
	return nil, env.Playlists.Delete(ctx, pl.ID)
}

func addToPlaylist(ctx context.Context, env *Env, raw json.RawMessage) (any, error) {
	var p addToPlaylistParams
	if err := decodeParams(raw, &p); err != nil {
		return nil, err
	}
	pl, err := findPlaylist(ctx, env, p.PlaylistID, p.PlaylistName)
	if err != nil {
		return nil, err
	}
	if err := env.Playlists.AddTracks(ctx, pl.ID, refPaths(p.Songs)); err != nil {
		return nil, err
	}
	return loadView(ctx, env, pl.ID)
}

func removeSongFromPlaylist(ctx context.Context, env *Env, raw json.RawMessage) (any, error) {
	var p removeSongParams
	if err := decodeParams(raw, &p); err != nil {
		return nil, err
	}
	paths := refPaths(append([]SongRef{p.SongPath}, p.Songs...))
	if len(paths) == 0 {
		return nil, fmt.Errorf("%w: song_path or songs is required", ErrInvalidParams)
	}
	if err := env.Playlists.RemoveTracks(ctx, p.PlaylistID, paths); err != nil {
		return nil, err
	}
	return loadView(ctx, env, p.PlaylistID)
}

func removeSongsFromPlaylist(ctx context.Context, env *Env, raw json.RawMessage) (any, error) {
	var p playlistSongsParams
	if err := decodeParams(raw, &p); err != nil {
		return nil, err
	}
	if err := env.Playlists.RemoveTracks(ctx, p.PlaylistID, refPaths(p.Songs)); err != nil {
		return nil, err
	}
	return loadView(ctx, env, p.PlaylistID)
}

func reorderPlaylist(ctx context.Context, env *Env, raw json.RawMessage) (any, error) {
	var p playlistSongsParams
	if err := decodeParams(raw, &p); err != nil {
		return nil, err
	}
	if err := env.Playlists.Reorder(ctx, p.PlaylistID, refPaths(p.Songs)); err != nil {
		return nil, err
	}
	return loadView(ctx, env, p.PlaylistID)
}

func addPlaylistCover(ctx context.Context, env *Env, raw json.RawMessage) (any, error) {
	var p playlistCoverParams
	if err := decodeParams(raw, &p); err != nil {
		return nil, err
	}
	pl, err := findPlaylist(ctx, env, p.PlaylistID, p.PlaylistName)
	if err != nil {
		return nil, err
	}
	cover, err := env.Playlists.SetCover(ctx, pl.ID, p.FilePath)
	if err != nil {
		return nil, err
	}
	return map[string]string{"cover": cover}, nil
}

// newPlaylistAdded re-announces a playlist, the newest one by default.
func newPlaylistAdded(ctx context.Context, env *Env, raw json.RawMessage) (any, error) {
	var p newPlaylistParams
	if err := decodeParams(raw, &p); err != nil {
		return nil, err
	}
	var pl playlists.Playlist
	if p.PlaylistID != nil {
		var err error
		if pl, err = env.Playlists.Get(ctx, *p.PlaylistID); err != nil {
			return nil, err
		}
	} else {
		all, err := env.Playlists.List(ctx)
		if err != nil {
			return nil, err
		}
		if len(all) == 0 {
			return nil, playlists.ErrNotFound
		}
		pl = slices.MaxFunc(all, func(a, b playlists.Playlist) int {
			return cmp.Compare(a.ID, b.ID)
		})
	}
	view, err := viewPlaylist(ctx, env, pl)
	if err != nil {
		return nil, err
	}
	env.Events.Publish(events.NewPlaylistCreated, NewPlaylistPayload{Playlist: []playlistView{view}})
	return view, nil
}

func playPlaylist(ctx context.Context, env *Env, raw json.RawMessage) (any, error) {
	var p playPlaylistParams
	if err := decodeParams(raw, &p); err != nil {
		return nil, err
	}
	pl, err := env.Playlists.Get(ctx, p.PlaylistID)
	if err != nil {
		return nil, err
	}
	if len(pl.Songs) == 0 {
		return nil, playlist.ErrEmptyQueue
	}
	if p.Index < 0 || p.Index >= len(pl.Songs) {
		return nil, playlist.ErrIndexOutOfRange
	}
	tracks, err := env.Library.ResolveQueue(ctx, pl.Songs)
	if err != nil {
		return nil, err
	}
	env.Session.SetShuffle(p.Shuffled)
	return env.Session.LoadQueue(tracks, p.Index)
}
