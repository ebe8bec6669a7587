package rpc

import (
	"context"
	"encoding/json"

	"github.com/llehouerou/wavesd/internal/errmsg"
)

type handlerFunc func(ctx context.Context, env *Env, params json.RawMessage) (any, error)

type method struct {
	fn handlerFunc
	op errmsg.Op
}

// methods maps command names to handlers. Names are the wire contract.
var methods = map[string]method{
	// library
	"get_all_songs":         {getAllSongs, errmsg.OpLibraryLoad},
	"get_all_albums":        {getAllAlbums, errmsg.OpLibraryLoad},
	"get_all_artists":       {getAllArtists, errmsg.OpLibraryLoad},
	"get_all_genres":        {getAllGenres, errmsg.OpLibraryLoad},
	"get_songs_with_limit":  {getSongsWithLimit, errmsg.OpLibraryLoad},
	"get_albums_with_limit": {getAlbumsWithLimit, errmsg.OpLibraryLoad},
	"get_album":             {getAlbum, errmsg.OpAlbumLoad},
	"get_albums_by_artist":  {getAlbumsByArtist, errmsg.OpLibraryLoad},
	"get_song":              {getSong, errmsg.OpSongLoad},
	"scan_directory":        {scanDirectory, errmsg.OpLibraryScan},
	"scan_for_deleted":      {scanForDeleted, errmsg.OpLibraryCleanup},
	"get_directory":         {getDirectory, errmsg.OpDirectoryLoad},
	"add_directory":         {addDirectory, errmsg.OpDirectoryAdd},
	"remove_directory":      {removeDirectory, errmsg.OpDirectoryRemove},

	// playlists
	"get_playlist":                        {getPlaylist, errmsg.OpPlaylistLoad},
	"get_all_playlists":                   {getAllPlaylists, errmsg.OpPlaylistLoad},
	"create_playlist":                     {createPlaylist, errmsg.OpPlaylistCreate},
	"rename_playlist":                     {renamePlaylist, errmsg.OpPlaylistRename},
	"delete_playlist":                     {deletePlaylist, errmsg.OpPlaylistDelete},
	"add_to_playlist":                     {addToPlaylist, errmsg.OpPlaylistAddTrack},
	"remove_song_from_playlist":           {removeSongFromPlaylist, errmsg.OpPlaylistRemove},
	"remove_multiple_songs_from_playlist": {removeSongsFromPlaylist, errmsg.OpPlaylistRemove},
	"reorder_playlist":                    {reorderPlaylist, errmsg.OpPlaylistReorder},
	"add_playlist_cover":                  {addPlaylistCover, errmsg.OpPlaylistCover},
	"new_playlist_added":                  {newPlaylistAdded, errmsg.OpPlaylistLoad},
	"play_playlist":                       {playPlaylist, errmsg.OpPlaybackStart},

	// history
	"get_play_history":           {getPlayHistory, errmsg.OpHistoryLoad},
	"add_song_to_history":        {addSongToHistory, errmsg.OpHistoryRecord},
	"update_current_song_played": {updateCurrentSongPlayed, errmsg.OpHistoryRecord},

	// queue
	"player_load_album":           {playerLoadAlbum, errmsg.OpQueueLoad},
	"player_get_queue":            {playerGetQueue, errmsg.OpQueueLoad},
	"player_get_queue_length":     {playerGetQueueLength, errmsg.OpQueueLoad},
	"player_add_to_queue":         {playerAddToQueue, errmsg.OpQueueAdd},
	"add_to_queue":                {addToQueue, errmsg.OpQueueAdd},
	"player_update_queue_and_pos": {playerUpdateQueueAndPos, errmsg.OpQueueLoad},
	"player_clear_queue":          {clearQueue, errmsg.OpQueueLoad},
	"clear_queue":                 {clearQueue, errmsg.OpQueueLoad},
	"create_queue":                {createQueue, errmsg.OpQueueLoad},
	"set_shuffle_mode":            {setShuffleMode, errmsg.OpQueueShuffle},
	"player_reorder_queue":        {playerReorderQueue, errmsg.OpQueueReorder},
	"player_remove_from_queue":    {playerRemoveFromQueue, errmsg.OpQueueRemove},
	"player_remove_songs":         {playerRemoveSongs, errmsg.OpQueueRemove},

	// transport
	"player_play":                 {playerPlay, errmsg.OpPlaybackStart},
	"player_pause":                {playerPause, errmsg.OpPlaybackPause},
	"player_stop":                 {playerStop, errmsg.OpPlaybackPause},
	"player_is_paused":            {playerIsPaused, errmsg.OpPlaybackStart},
	"player_next_song":            {playerNextSong, errmsg.OpPlaybackNext},
	"player_previous_song":        {playerPreviousSong, errmsg.OpPlaybackPrev},
	"player_set_seek":             {playerSetSeek, errmsg.OpPlaybackSeek},
	"player_set_volume":           {playerSetVolume, errmsg.OpPlaybackStart},
	"player_set_repeat_mode":      {playerSetRepeatMode, errmsg.OpPlaybackRepeat},
	"player_get_current_position": {playerGetCurrentPosition, errmsg.OpPlaybackSeek},
	"player_get_current_song":     {playerGetCurrentSong, errmsg.OpSongLoad},
	"player_get_state":            {playerGetState, errmsg.OpPlaybackStart},

	// settings and system
	"get_settings":          {getSettings, errmsg.OpSettingsLoad},
	"set_setting":           {setSetting, errmsg.OpSettingsSave},
	"get_resume_state":      {getResumeState, errmsg.OpSettingsLoad},
	"check_for_new_version": {checkForNewVersion, errmsg.OpUpdateCheck},
}

// Methods returns the registered command names.
func Methods() []string {
	names := make([]string, 0, len(methods))
	for name := range methods {
		names = append(names, name)
	}
	return names
}
