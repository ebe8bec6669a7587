package rpc

import (
	"context"
	"encoding/json"
)

type limitParams struct {
	Limit int `json:"limit" validate:"gte=0"`
}

type albumParams struct {
	Name string `json:"name" validate:"required"`
}

type artistParams struct {
	Artist string `json:"artist" validate:"required"`
}

type songParams struct {
	SongPath SongRef `json:"song_path" validate:"required"`
}

type directoryParams struct {
	Directory string `json:"directory_name" validate:"required"`
}

func getAllSongs(ctx context.Context, env *Env, _ json.RawMessage) (any, error) {
	return env.Library.AllSongs(ctx)
}

func getAllAlbums(ctx context.Context, env *Env, _ json.RawMessage) (any, error) {
	return env.Library.AllAlbums(ctx)
}

func getAllArtists(ctx context.Context, env *Env, _ json.RawMessage) (any, error) {
	return env.Library.AllArtists(ctx)
}

func getAllGenres(ctx context.Context, env *Env, _ json.RawMessage) (any, error) {
	return env.Library.AllGenres(ctx)
}

func getSongsWithLimit(ctx context.Context, env *Env, raw json.RawMessage) (any, error) {
	var p limitParams
	if err := decodeParams(raw, &p); err != nil {
		return nil, err
	}
	return env.Library.SongsWithLimit(ctx, p.Limit)
}

func getAlbumsWithLimit(ctx context.Context, env *Env, raw json.RawMessage) (any, error) {
	var p limitParams
	if err := decodeParams(raw, &p); err != nil {
		return nil, err
	}
	return env.Library.AlbumsWithLimit(ctx, p.Limit)
}

func getAlbum(ctx context.Context, env *Env, raw json.RawMessage) (any, error) {
	var p albumParams
	if err := decodeParams(raw, &p); err != nil {
		return nil, err
	}
	return env.Library.Album(ctx, p.Name)
}

func getAlbumsByArtist(ctx context.Context, env *Env, raw json.RawMessage) (any, error) {
	var p artistParams
	if err := decodeParams(raw, &p); err != nil {
		return nil, err
	}
	return env.Library.AlbumsByArtist(ctx, p.Artist)
}

func getSong(ctx context.Context, env *Env, raw json.RawMessage) (any, error) {
	var p songParams
	if err := decodeParams(raw, &p); err != nil {
		return nil, err
	}
	return env.Library.Resolve(ctx, string(p.SongPath))
}

func scanDirectory(ctx context.Context, env *Env, _ json.RawMessage) (any, error) {
	return env.Maintenance.ScanAll(ctx)
}

func scanForDeleted(ctx context.Context, env *Env, _ json.RawMessage) (any, error) {
	return env.Maintenance.SweepDeleted(ctx)
}

func getDirectory(ctx context.Context, env *Env, _ json.RawMessage) (any, error) {
	return env.Library.Directories(ctx)
}

func addDirectory(ctx context.Context, env *Env, raw json.RawMessage) (any, error) {
	var p directoryParams
	if err := decodeParams(raw, &p); err != nil {
		return nil, err
	}
	return env.Library.AddDirectory(ctx, p.Directory)
}

func removeDirectory(ctx context.Context, env *Env, raw json.RawMessage) (any, error) {
	var p directoryParams
	if err := decodeParams(raw, &p); err != nil {
		return nil, err
	}
	return env.Maintenance.RemoveDirectory(ctx, p.Directory)
}
