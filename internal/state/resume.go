package state

import (
	"context"
	"database/sql"
	"encoding/json"

	dbutil "github.com/llehouerou/wavesd/internal/db"
)

// Resume setting keys.
const (
	KeySong          = "last-played-song"
	KeyQueue         = "last-played-queue"
	KeyPermutation   = "queue-permutation"
	KeyQueuePosition = "last-queue-position"
	KeySongPosition  = "last-song-position"
	KeyVolume        = "volume-level"
	KeyShuffle       = "shuffle-mode"
	KeyRepeat        = "repeat-mode"
)

// Resume is the snapshot needed to bring a session back after a restart.
type Resume struct {
	Song          string   `json:"last-played-song"`
	Queue         []string `json:"last-played-queue"`
	Permutation   []int    `json:"queue-permutation"`
	QueuePosition int      `json:"last-queue-position"`
	SongPosition  float64  `json:"last-song-position"`
	Volume        float64  `json:"volume-level"`
	Shuffle       bool     `json:"shuffle-mode"`
	Repeat        string   `json:"repeat-mode"`
}

// DefaultResume is the snapshot of a fresh install.
func DefaultResume() Resume {
	return Resume{Queue: []string{}, QueuePosition: -1, Volume: 1, Repeat: "off"}
}

func (r *Resume) fields() []struct {
	key string
	ptr any
} {
	return []struct {
		key string
		ptr any
	}{
		{KeySong, &r.Song},
		{KeyQueue, &r.Queue},
		{KeyPermutation, &r.Permutation},
		{KeyQueuePosition, &r.QueuePosition},
		{KeySongPosition, &r.SongPosition},
		{KeyVolume, &r.Volume},
		{KeyShuffle, &r.Shuffle},
		{KeyRepeat, &r.Repeat},
	}
}

// LoadResume reads the saved snapshot. Missing keys keep their defaults.
func (m *Manager) LoadResume(ctx context.Context) (Resume, error) {
	r := DefaultResume()
	for _, f := range r.fields() {
		if _, err := getSetting(ctx, m.db, f.key, f.ptr); err != nil {
			return DefaultResume(), err
		}
	}
	if r.Queue == nil {
		r.Queue = []string{}
	}
	return r, nil
}

// SaveResume writes every snapshot key in one transaction.
func (m *Manager) SaveResume(ctx context.Context, r Resume) error {
	err := dbutil.WithTx(ctx, m.db, func(tx *sql.Tx) error {
		for _, f := range r.fields() {
			raw, err := json.Marshal(f.ptr)
			if err != nil {
				return err
			}
			if err := putSetting(ctx, tx, f.key, raw); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return dbutil.Persistence("save resume state", err)
	}
	return nil
}
