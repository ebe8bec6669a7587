// Package state persists client settings and the playback resume point
// as JSON values in the settings table.
package state

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	dbutil "github.com/llehouerou/wavesd/internal/db"
)

const saveDebounce = 500 * time.Millisecond

// ErrInvalidValue is returned when a setting value is not valid JSON.
var ErrInvalidValue = errors.New("setting value is not valid JSON")

type Manager struct {
	db    *sql.DB
	clock clockwork.Clock

	saveMu    sync.Mutex
	saveTimer clockwork.Timer
	pending   *Resume
}

// New creates a Manager. A nil clock uses the real clock.
func New(db *sql.DB, clock clockwork.Clock) *Manager {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Manager{db: db, clock: clock}
}

// Close flushes a pending resume save. The database is owned by the caller.
func (m *Manager) Close() error {
	return m.Flush(context.Background())
}

// Flush writes a pending resume save now.
func (m *Manager) Flush(ctx context.Context) error {
	m.saveMu.Lock()
	if m.saveTimer != nil {
		m.saveTimer.Stop()
		m.saveTimer = nil
	}
	pending := m.pending
	m.pending = nil
	m.saveMu.Unlock()

	if pending == nil {
		return nil
	}
	return m.SaveResume(ctx, *pending)
}

// ScheduleResume queues r to be saved once no newer snapshot arrives for
// the debounce interval.
func (m *Manager) ScheduleResume(r Resume) {
	m.saveMu.Lock()
	defer m.saveMu.Unlock()

	m.pending = &r

	if m.saveTimer != nil {
		m.saveTimer.Stop()
	}

	m.saveTimer = m.clock.AfterFunc(saveDebounce, func() {
		m.saveMu.Lock()
		pending := m.pending
		m.pending = nil
		m.saveMu.Unlock()

		if pending != nil {
			if err := m.SaveResume(context.Background(), *pending); err != nil {
				log.Error().Err(err).Msg("failed to save resume state")
			}
		}
	})
}

// Settings returns every stored setting.
func (m *Manager) Settings(ctx context.Context) (map[string]json.RawMessage, error) {
	rows, err := m.db.QueryContext(ctx, `SELECT key, value FROM settings ORDER BY key`)
	if err != nil {
		return nil, dbutil.Persistence("load settings", err)
	}
	defer rows.Close()

	out := make(map[string]json.RawMessage)
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, dbutil.Persistence("load settings", err)
		}
		out[key] = json.RawMessage(value)
	}
	if err := rows.Err(); err != nil {
		return nil, dbutil.Persistence("load settings", err)
	}
	return out, nil
}

// Setting decodes the value stored under key into dest. It reports false
// when the key is absent.
func (m *Manager) Setting(ctx context.Context, key string, dest any) (bool, error) {
	return getSetting(ctx, m.db, key, dest)
}

// SetSetting stores value, JSON-encoded, under key.
func (m *Manager) SetSetting(ctx context.Context, key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode setting %s: %w", key, err)
	}
	return m.SetRawSetting(ctx, key, raw)
}

// SetRawSetting stores an already encoded JSON value under key.
func (m *Manager) SetRawSetting(ctx context.Context, key string, raw json.RawMessage) error {
	if !json.Valid(raw) {
		return fmt.Errorf("setting %s: %w", key, ErrInvalidValue)
	}
	if err := putSetting(ctx, m.db, key, raw); err != nil {
		return dbutil.Persistence("save settings", err)
	}
	return nil
}

func getSetting(ctx context.Context, ex dbutil.Executor, key string, dest any) (bool, error) {
	var value string
	err := ex.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, dbutil.Persistence("load settings", err)
	}
	if err := json.Unmarshal([]byte(value), dest); err != nil {
		return false, fmt.Errorf("decode setting %s: %w", key, err)
	}
	return true, nil
}

func putSetting(ctx context.Context, ex dbutil.Executor, key string, raw []byte) error {
	_, err := ex.ExecContext(ctx, `
		INSERT INTO settings (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, string(raw))
	return err
}
