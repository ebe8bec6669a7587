package player

import "errors"

var (
	// ErrTrackUnavailable is returned when the track's file no longer exists.
	ErrTrackUnavailable = errors.New("track unavailable")
	// ErrUnsupportedFormat is returned when no decoder accepts the file.
	ErrUnsupportedFormat = errors.New("unsupported format")
	// ErrNotLoaded is returned by transport operations with nothing loaded.
	ErrNotLoaded = errors.New("no track loaded")
)
