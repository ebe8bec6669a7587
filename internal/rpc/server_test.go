package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/wav"
	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/llehouerou/wavesd/internal/db"
	"github.com/llehouerou/wavesd/internal/events"
	"github.com/llehouerou/wavesd/internal/history"
	"github.com/llehouerou/wavesd/internal/library"
	"github.com/llehouerou/wavesd/internal/playback"
	"github.com/llehouerou/wavesd/internal/player"
	"github.com/llehouerou/wavesd/internal/playlist"
	"github.com/llehouerou/wavesd/internal/playlists"
	"github.com/llehouerou/wavesd/internal/state"
	"github.com/llehouerou/wavesd/internal/update"
)

type stubMaintainer struct {
	scans   atomic.Int32
	sweeps  atomic.Int32
	removed []library.Track
}

func (m *stubMaintainer) ScanAll(context.Context) (library.ScanSummary, error) {
	m.scans.Add(1)
	return library.ScanSummary{Success: 3, ErrorDetails: []library.ScanError{}}, nil
}

func (m *stubMaintainer) SweepDeleted(context.Context) ([]library.Track, error) {
	m.sweeps.Add(1)
	return m.removed, nil
}

func (m *stubMaintainer) RemoveDirectory(context.Context, string) ([]library.Track, error) {
	return nil, fmt.Errorf("remove: %w", library.ErrDirectoryUnreadable)
}

type fixture struct {
	http  *httptest.Server
	env   *Env
	bus   *events.Bus
	maint *stubMaintainer
	songs []string
}

func writeWAV(t *testing.T, dir, name string) string {
	t.Helper()
	require.NoError(t, os.MkdirAll(dir, 0o755))
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	format := beep.Format{SampleRate: 44100, NumChannels: 2, Precision: 2}
	require.NoError(t, wav.Encode(f, beep.Silence(format.SampleRate.N(250*time.Millisecond)), format))
	return path
}

func setup(t *testing.T) *fixture {
	t.Helper()
	dir := t.TempDir()
	sqlDB, err := db.Open(filepath.Join(dir, "wavesd.db"))
	require.NoError(t, err)

	clock := clockwork.NewFakeClockAt(time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC))
	covers := filepath.Join(dir, "covers")
	lib := library.New(sqlDB, library.Options{CoversDir: covers, Workers: 2, Clock: clock})

	music := filepath.Join(dir, "music")
	songs := []string{
		writeWAV(t, music, "Alpha.wav"),
		writeWAV(t, music, "Bravo.wav"),
		writeWAV(t, music, "Charlie.wav"),
	}
	summary, err := lib.Scan(context.Background(), []string{music}, nil)
	require.NoError(t, err)
	require.Equal(t, 3, summary.Success)

	bus := events.NewBus()
	hist := history.New(sqlDB, clock)
	st := state.New(sqlDB, clock)
	sess := playback.New(player.NewMock(), playback.Options{
		Events:   bus,
		History:  hist,
		Saver:    st,
		Resolver: lib,
	})
	maint := &stubMaintainer{}
	env := &Env{
		Library:     lib,
		Playlists:   playlists.New(sqlDB, covers, clock),
		History:     hist,
		Session:     sess,
		State:       st,
		Updates:     update.NewChecker("1.2.0", ""),
		Events:      bus,
		Maintenance: maint,
	}
	srv := NewServer(env, bus, Options{Workers: 2})
	hs := httptest.NewServer(srv.Handler())

	t.Cleanup(func() {
		_ = srv.Close()
		hs.Close()
		_ = sess.Close()
		_ = st.Close()
		bus.Close()
		_ = sqlDB.Close()
	})
	return &fixture{http: hs, env: env, bus: bus, maint: maint, songs: songs}
}

func (f *fixture) invoke(t *testing.T, command string, params any) (int, Response) {
	t.Helper()
	var body io.Reader = http.NoBody
	if params != nil {
		data, err := json.Marshal(params)
		require.NoError(t, err)
		body = bytes.NewReader(data)
	}
	resp, err := http.Post(f.http.URL+"/invoke/"+command, "application/json", body)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out Response
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp.StatusCode, out
}

// call invokes command and decodes its result into dest.
func (f *fixture) call(t *testing.T, command string, params, dest any) {
	t.Helper()
	status, resp := f.invoke(t, command, params)
	require.Nil(t, resp.Error, "%s failed: %+v", command, resp.Error)
	require.Equal(t, http.StatusOK, status)
	if dest != nil {
		require.NoError(t, json.Unmarshal(resp.Result, dest))
	}
}

func trackPaths(tracks []library.Track) []string {
	out := make([]string, len(tracks))
	for i, t := range tracks {
		out[i] = t.Path
	}
	return out
}

func TestHealthz(t *testing.T) {
	f := setup(t)
	resp, err := http.Get(f.http.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestInvoke_UnknownCommand(t *testing.T) {
	f := setup(t)
	status, resp := f.invoke(t, "make_coffee", nil)
	assert.Equal(t, http.StatusNotFound, status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, CodeMethodNotFound, resp.Error.Code)
	assert.Nil(t, resp.Result)
}

func TestInvoke_InvalidParams(t *testing.T) {
	f := setup(t)

	status, resp := f.invoke(t, "get_album", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, CodeInvalidParams, resp.Error.Code)
	assert.Contains(t, resp.Error.Message, "name is required")
	assert.Equal(t, KindInvalidArgument, resp.Error.Data.Kind)

	_, resp = f.invoke(t, "player_set_repeat_mode", map[string]any{"mode": "sometimes"})
	require.NotNil(t, resp.Error)
	assert.Equal(t, CodeInvalidParams, resp.Error.Code)
}

func TestInvoke_DomainErrorCarriesKind(t *testing.T) {
	f := setup(t)

	status, resp := f.invoke(t, "player_play", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, CodeServerError, resp.Error.Code)
	assert.Equal(t, KindNotLoaded, resp.Error.Data.Kind)
	assert.Equal(t, "Failed to start playback: no track loaded", resp.Error.Message)

	_, resp = f.invoke(t, "player_next_song", nil)
	require.NotNil(t, resp.Error)
	assert.Equal(t, KindEmptyQueue, resp.Error.Data.Kind)

	_, resp = f.invoke(t, "remove_directory", map[string]any{"directory_name": "/gone"})
	require.NotNil(t, resp.Error)
	assert.Equal(t, KindDirectoryUnreadable, resp.Error.Data.Kind)
}

func TestInvoke_LibraryQueries(t *testing.T) {
	f := setup(t)

	var all []library.Track
	f.call(t, "get_all_songs", nil, &all)
	assert.ElementsMatch(t, f.songs, trackPaths(all))

	var limited []library.Track
	f.call(t, "get_songs_with_limit", map[string]any{"limit": 2}, &limited)
	assert.Len(t, limited, 2)

	var song library.Track
	f.call(t, "get_song", map[string]any{"song_path": f.songs[1]}, &song)
	assert.Equal(t, f.songs[1], song.Path)

	f.call(t, "get_song", map[string]any{"song_path": map[string]string{"path": f.songs[2]}}, &song)
	assert.Equal(t, f.songs[2], song.Path)

	_, resp := f.invoke(t, "get_song", map[string]any{"song_path": "/nowhere.mp3"})
	require.NotNil(t, resp.Error)
	assert.Equal(t, KindNotFound, resp.Error.Data.Kind)
}

func TestInvoke_Maintenance(t *testing.T) {
	f := setup(t)

	var summary library.ScanSummary
	f.call(t, "scan_directory", nil, &summary)
	assert.Equal(t, 3, summary.Success)
	assert.Equal(t, int32(1), f.maint.scans.Load())

	f.call(t, "scan_for_deleted", nil, nil)
	assert.Equal(t, int32(1), f.maint.sweeps.Load())

	var dir library.Directory
	f.call(t, "add_directory", map[string]any{"directory_name": t.TempDir()}, &dir)
	var dirs []library.Directory
	f.call(t, "get_directory", nil, &dirs)
	assert.Contains(t, dirs, dir)
}

func TestInvoke_PlaylistLifecycle(t *testing.T) {
	f := setup(t)
	sub := f.bus.Subscribe(8)
	defer sub.Close()

	var created playlistView
	f.call(t, "create_playlist", map[string]any{
		"name":         "Mix",
		"songs":        []any{f.songs[0], map[string]string{"path": f.songs[1]}},
		"songs_to_add": []string{f.songs[2]},
	}, &created)
	assert.Equal(t, "Mix", created.Name)
	assert.Equal(t, f.songs, trackPaths(created.Songs))

	select {
	case e := <-sub.C:
		assert.Equal(t, events.NewPlaylistCreated, e.Name)
		payload, ok := e.Payload.(NewPlaylistPayload)
		require.True(t, ok)
		require.Len(t, payload.Playlist, 1)
		assert.Equal(t, created.ID, payload.Playlist[0].ID)
		assert.Equal(t, f.songs, trackPaths(payload.Playlist[0].Songs))
	case <-time.After(time.Second):
		t.Fatal("new-playlist-created not published")
	}

	var renamed playlistView
	f.call(t, "rename_playlist", map[string]any{"old_name": "Mix", "new_name": "Road"}, &renamed)
	assert.Equal(t, created.ID, renamed.ID)

	var view playlistView
	f.call(t, "add_to_playlist", map[string]any{"songs": []string{f.songs[0]}, "playlist_name": "Road"}, &view)
	assert.Equal(t, []string{f.songs[0], f.songs[1], f.songs[2], f.songs[0]}, trackPaths(view.Songs))

	f.call(t, "remove_song_from_playlist", map[string]any{
		"playlist_id": created.ID,
		"song_path":   f.songs[0],
	}, &view)
	assert.Equal(t, []string{f.songs[1], f.songs[2]}, trackPaths(view.Songs))

	f.call(t, "reorder_playlist", map[string]any{
		"playlist_id": created.ID,
		"songs":       []string{f.songs[2], f.songs[1]},
	}, &view)
	assert.Equal(t, []string{f.songs[2], f.songs[1]}, trackPaths(view.Songs))

	_, resp := f.invoke(t, "reorder_playlist", map[string]any{
		"playlist_id": created.ID,
		"songs":       []string{f.songs[0]},
	})
	require.NotNil(t, resp.Error)
	assert.Equal(t, KindInvalidArgument, resp.Error.Data.Kind)

	var lists []playlistView
	f.call(t, "get_all_playlists", nil, &lists)
	require.Len(t, lists, 1)

	f.call(t, "delete_playlist", map[string]any{"name": "Road"}, nil)
	_, resp = f.invoke(t, "get_playlist", map[string]any{"id": created.ID})
	require.NotNil(t, resp.Error)
	assert.Equal(t, KindNotFound, resp.Error.Data.Kind)
}

func TestInvoke_PlayPlaylist(t *testing.T) {
	f := setup(t)

	var created playlistView
	f.call(t, "create_playlist", map[string]any{"name": "All", "songs": f.songs}, &created)

	var track library.Track
	f.call(t, "play_playlist", map[string]any{"playlist_id": created.ID, "index": 2, "shuffled": true}, &track)
	assert.Equal(t, f.songs[2], track.Path)

	var st playback.Status
	f.call(t, "player_get_state", nil, &st)
	assert.True(t, st.Shuffled)
	assert.True(t, st.IsPlaying)
	assert.Equal(t, 0, st.Index)
	assert.Equal(t, 3, st.Length)
}

func TestInvoke_PlayPlaylistBadIndexKeepsState(t *testing.T) {
	f := setup(t)

	var created playlistView
	f.call(t, "create_playlist", map[string]any{"name": "All", "songs": f.songs}, &created)
	var track library.Track
	f.call(t, "player_load_album", map[string]any{"queue": f.songs[:2], "index": 1}, &track)

	sub := f.bus.Subscribe(16)
	defer sub.Close()

	_, resp := f.invoke(t, "play_playlist", map[string]any{"playlist_id": created.ID, "index": 7, "shuffled": true})
	require.NotNil(t, resp.Error)
	assert.Equal(t, KindIndexOutOfRange, resp.Error.Data.Kind)

	var st playback.Status
	f.call(t, "player_get_state", nil, &st)
	assert.False(t, st.Shuffled)
	assert.Equal(t, 1, st.Index)
	assert.Equal(t, 2, st.Length)

drain:
	for {
		select {
		case e := <-sub.C:
			assert.NotEqual(t, events.PlayerShuffleMode, e.Name)
		default:
			break drain
		}
	}
}

func TestInvoke_QueueKeepsMissingEntries(t *testing.T) {
	f := setup(t)

	queue := []string{f.songs[0], "/gone/Lost.wav", f.songs[2]}
	var track library.Track
	f.call(t, "player_load_album", map[string]any{"queue": queue, "index": 2}, &track)
	assert.Equal(t, f.songs[2], track.Path)

	var st playback.Status
	f.call(t, "player_get_state", nil, &st)
	assert.Equal(t, 2, st.Index)
	assert.Equal(t, 3, st.Length)

	var got []library.Track
	f.call(t, "player_get_queue", nil, &got)
	assert.Equal(t, queue, trackPaths(got))
}

func TestInvoke_QueueAndTransport(t *testing.T) {
	f := setup(t)

	var track library.Track
	f.call(t, "player_load_album", map[string]any{"queue": f.songs, "index": 1}, &track)
	assert.Equal(t, f.songs[1], track.Path)

	var current *library.Track
	f.call(t, "player_get_current_song", nil, &current)
	require.NotNil(t, current)
	assert.Equal(t, f.songs[1], current.Path)

	f.call(t, "player_next_song", nil, &track)
	assert.Equal(t, f.songs[2], track.Path)

	var n int
	f.call(t, "player_get_queue_length", nil, &n)
	assert.Equal(t, 3, n)

	var queue []library.Track
	f.call(t, "player_reorder_queue", map[string]any{"old_index": 2, "new_index": 0}, &queue)
	assert.Equal(t, []string{f.songs[2], f.songs[0], f.songs[1]}, trackPaths(queue))

	f.call(t, "player_remove_songs", map[string]any{"songs": []string{f.songs[0]}}, &queue)
	assert.Equal(t, []string{f.songs[2], f.songs[1]}, trackPaths(queue))

	var mode string
	f.call(t, "player_set_repeat_mode", map[string]any{"mode": "all"}, &mode)
	assert.Equal(t, "all", mode)
	f.call(t, "player_set_repeat_mode", map[string]any{"mode": 2}, &mode)
	assert.Equal(t, "one", mode)

	f.call(t, "player_set_volume", map[string]any{"volume": 0.5}, nil)
	f.call(t, "player_pause", nil, nil)

	var paused bool
	f.call(t, "player_is_paused", nil, &paused)
	assert.True(t, paused)

	var resume state.Resume
	f.call(t, "get_resume_state", nil, &resume)
	assert.InDelta(t, 0.5, resume.Volume, 1e-9)
	assert.Equal(t, playlist.RepeatOne.String(), resume.Repeat)
	assert.Equal(t, []string{f.songs[2], f.songs[1]}, resume.Queue)

	f.call(t, "clear_queue", nil, nil)
	f.call(t, "player_get_queue_length", nil, &n)
	assert.Zero(t, n)
}

func TestInvoke_HistoryAndSettings(t *testing.T) {
	f := setup(t)

	f.call(t, "add_song_to_history", map[string]any{"path": f.songs[0]}, nil)
	var items []historyItem
	f.call(t, "get_play_history", map[string]any{"limit": 10}, &items)
	require.Len(t, items, 1)
	assert.Equal(t, f.songs[0], items[0].Path)

	_, resp := f.invoke(t, "update_current_song_played", nil)
	require.NotNil(t, resp.Error)
	assert.Equal(t, KindNotLoaded, resp.Error.Data.Kind)

	f.call(t, "set_setting", map[string]any{"key": "theme", "value": "dark"}, nil)
	var settings map[string]json.RawMessage
	f.call(t, "get_settings", nil, &settings)
	assert.JSONEq(t, `"dark"`, string(settings["theme"]))
}

func TestInvoke_CheckForNewVersion(t *testing.T) {
	f := setup(t)
	var res update.Result
	f.call(t, "check_for_new_version", nil, &res)
	assert.Equal(t, "1.2.0", res.Current)
	assert.False(t, res.UpdateAvailable)
}

func dialWS(t *testing.T, f *fixture) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(f.http.URL, "http") + "/ws"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	resp.Body.Close()
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) []byte {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	return data
}

func TestWebsocket_PingPong(t *testing.T) {
	f := setup(t)
	conn := dialWS(t, f)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("ping")))
	assert.Equal(t, "pong", string(readMessage(t, conn)))
}

func TestWebsocket_ParseError(t *testing.T) {
	f := setup(t)
	conn := dialWS(t, f)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("{not json")))
	var resp Response
	require.NoError(t, json.Unmarshal(readMessage(t, conn), &resp))
	require.NotNil(t, resp.Error)
	assert.Equal(t, CodeParseError, resp.Error.Code)
	assert.JSONEq(t, "null", string(resp.ID))
}

func TestWebsocket_RequestAndNotification(t *testing.T) {
	f := setup(t)
	conn := dialWS(t, f)

	req := map[string]any{
		"jsonrpc": "2.0",
		"id":      7,
		"method":  "player_load_album",
		"params":  map[string]any{"queue": f.songs, "index": 0},
	}
	require.NoError(t, conn.WriteJSON(req))

	var gotResponse, gotEvent bool
	for !gotResponse || !gotEvent {
		var msg struct {
			ID     json.RawMessage `json:"id"`
			Method string          `json:"method"`
			Result json.RawMessage `json:"result"`
			Params json.RawMessage `json:"params"`
		}
		require.NoError(t, json.Unmarshal(readMessage(t, conn), &msg))
		switch {
		case string(msg.ID) == "7":
			var track library.Track
			require.NoError(t, json.Unmarshal(msg.Result, &track))
			assert.Equal(t, f.songs[0], track.Path)
			gotResponse = true
		case msg.Method == events.CurrentSong:
			var payload struct {
				Q library.Track `json:"q"`
			}
			require.NoError(t, json.Unmarshal(msg.Params, &payload))
			assert.Equal(t, f.songs[0], payload.Q.Path)
			gotEvent = true
		}
	}
}

func TestSongRef_Unmarshal(t *testing.T) {
	var refs []SongRef
	require.NoError(t, json.Unmarshal([]byte(`["/a.mp3", {"path": "/b.mp3"}]`), &refs))
	assert.Equal(t, []string{"/a.mp3", "/b.mp3"}, refPaths(refs))

	var ref SongRef
	assert.Error(t, json.Unmarshal([]byte(`42`), &ref))
}

func TestKind(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{fmt.Errorf("load: %w", player.ErrTrackUnavailable), KindTrackUnavailable},
		{player.ErrUnsupportedFormat, KindUnsupportedFormat},
		{playlist.ErrIndexOutOfRange, KindIndexOutOfRange},
		{db.Persistence("save", errors.New("disk full")), KindPersistence},
		{playlists.ErrNotFound, KindNotFound},
		{state.ErrInvalidValue, KindInvalidArgument},
		{errors.New("boom"), KindInternal},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, Kind(tt.err))
		})
	}
}
