package rpc

import (
	"errors"

	"github.com/llehouerou/wavesd/internal/db"
	"github.com/llehouerou/wavesd/internal/errmsg"
	"github.com/llehouerou/wavesd/internal/library"
	"github.com/llehouerou/wavesd/internal/player"
	"github.com/llehouerou/wavesd/internal/playlist"
	"github.com/llehouerou/wavesd/internal/playlists"
	"github.com/llehouerou/wavesd/internal/state"
	"github.com/llehouerou/wavesd/internal/tags"
)

// Error kinds reported in ErrorData.
const (
	KindTrackUnavailable    = "TrackUnavailable"
	KindUnsupportedFormat   = "UnsupportedFormat"
	KindEmptyQueue          = "EmptyQueue"
	KindIndexOutOfRange     = "IndexOutOfRange"
	KindNotLoaded           = "NotLoaded"
	KindScanIO              = "ScanIoError"
	KindDirectoryUnreadable = "DirectoryUnreadable"
	KindPersistence         = "PersistenceError"
	KindNotFound            = "NotFound"
	KindInvalidArgument     = "InvalidArgument"
	KindInternal            = "Internal"
)

var kinds = []struct {
	err  error
	kind string
}{
	{player.ErrTrackUnavailable, KindTrackUnavailable},
	{player.ErrUnsupportedFormat, KindUnsupportedFormat},
	{tags.ErrUnsupportedFormat, KindUnsupportedFormat},
	{playlist.ErrEmptyQueue, KindEmptyQueue},
	{playlist.ErrIndexOutOfRange, KindIndexOutOfRange},
	{player.ErrNotLoaded, KindNotLoaded},
	{library.ErrScanIO, KindScanIO},
	{library.ErrDirectoryUnreadable, KindDirectoryUnreadable},
	{db.ErrPersistence, KindPersistence},
	{library.ErrNotFound, KindNotFound},
	{playlists.ErrNotFound, KindNotFound},
	{playlists.ErrInvalidOrder, KindInvalidArgument},
	{state.ErrInvalidValue, KindInvalidArgument},
}

// ErrInvalidParams marks params that failed to decode or validate.
var ErrInvalidParams = errors.New("invalid params")

// Kind returns the taxonomy name of err.
func Kind(err error) string {
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}
	return KindInternal
}

func errorObject(op errmsg.Op, err error) *ErrorObject {
	if errors.Is(err, ErrInvalidParams) {
		return &ErrorObject{
			Code:    CodeInvalidParams,
			Message: err.Error(),
			Data:    &ErrorData{Kind: KindInvalidArgument},
		}
	}
	return &ErrorObject{
		Code:    CodeServerError,
		Message: errmsg.Format(op, err),
		Data:    &ErrorData{Kind: Kind(err)},
	}
}
