// Package errmsg provides consistent error formatting for user-facing messages.
package errmsg

import "fmt"

// Op represents an operation that can fail.
type Op string

// Operation constants - grouped by domain.
const (
	// Library operations
	OpLibraryScan    Op = "scan library"
	OpLibraryCleanup Op = "remove deleted songs"
	OpLibraryLoad    Op = "load library"
	OpSongLoad       Op = "load song"
	OpAlbumLoad      Op = "load album"

	// Directory operations
	OpDirectoryAdd    Op = "add directory"
	OpDirectoryRemove Op = "remove directory"
	OpDirectoryLoad   Op = "load directories"

	// Playlist operations
	OpPlaylistCreate   Op = "create playlist"
	OpPlaylistRename   Op = "rename playlist"
	OpPlaylistDelete   Op = "delete playlist"
	OpPlaylistLoad     Op = "load playlist"
	OpPlaylistAddTrack Op = "add songs to playlist"
	OpPlaylistRemove   Op = "remove songs from playlist"
	OpPlaylistReorder  Op = "reorder playlist"
	OpPlaylistCover    Op = "set playlist cover"

	// Queue operations
	OpQueueLoad    Op = "load queue"
	OpQueueAdd     Op = "add to queue"
	OpQueueReorder Op = "reorder queue"
	OpQueueRemove  Op = "remove from queue"
	OpQueueShuffle Op = "change shuffle mode"

	// Playback operations
	OpPlaybackStart  Op = "start playback"
	OpPlaybackPause  Op = "pause playback"
	OpPlaybackNext   Op = "skip to next song"
	OpPlaybackPrev   Op = "go to previous song"
	OpPlaybackSeek   Op = "seek"
	OpPlaybackRepeat Op = "change repeat mode"

	// History and settings
	OpHistoryLoad   Op = "load play history"
	OpHistoryRecord Op = "record play"
	OpSettingsLoad  Op = "load settings"
	OpSettingsSave  Op = "save settings"
	OpUpdateCheck   Op = "check for updates"
)

// Format creates a user-friendly error message.
func Format(op Op, err error) string {
	if err == nil {
		return ""
	}
	return fmt.Sprintf("Failed to %s: %v", op, err)
}
