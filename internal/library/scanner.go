package library

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"slices"
	"sync"

	"github.com/charlievieth/fastwalk"
	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	dbutil "github.com/llehouerou/wavesd/internal/db"
	"github.com/llehouerou/wavesd/internal/tags"
)

// Error kinds reported in a ScanSummary.
var (
	// ErrScanIO marks a single file that could not be read or parsed.
	ErrScanIO = errors.New("ScanIoError")
	// ErrDirectoryUnreadable marks a directory that could not be listed.
	ErrDirectoryUnreadable = errors.New("DirectoryUnreadable")
)

// upsertBatchSize is the number of tracks written per transaction.
const upsertBatchSize = 256

// Scan phases reported through ScanProgress.
const (
	PhaseDiscovering = "discovering"
	PhaseProcessing  = "processing"
	PhaseSaving      = "saving"
	PhaseDone        = "done"
)

// ScanProgress reports the progress of a library scan.
type ScanProgress struct {
	Phase   string `json:"phase"`
	Current int    `json:"current"`
	Total   int    `json:"total"`
}

// ScanError is one per-file or per-directory failure.
type ScanError struct {
	FileName  string `json:"file_name"`
	ErrorType string `json:"error_type"`
}

// ScanSummary aggregates a scan. Success counts indexed files, including
// unchanged ones; Error counts failed files and unreadable directories.
type ScanSummary struct {
	Success      int         `json:"success"`
	Error        int         `json:"error"`
	ErrorDetails []ScanError `json:"error_details"`
}

func (s *ScanSummary) fail(name string, kind error) {
	s.Error++
	s.ErrorDetails = append(s.ErrorDetails, ScanError{FileName: name, ErrorType: kind.Error()})
}

// fileInfo holds information about a discovered music file.
type fileInfo struct {
	path  string
	dir   string // configured directory the file was found under
	mtime int64
	size  int64
}

// trackResult holds the result of processing a music file.
type trackResult struct {
	file  fileInfo
	track Track
	err   error
}

// ProgressFunc receives scan progress. It may be nil.
type ProgressFunc func(ScanProgress)

// Scan walks dirs, indexes every music file that is new or changed and
// returns the summary. Per-file and per-directory failures are collected
// in the summary and never abort the scan. Concurrent scans are
// serialized.
func (l *Library) Scan(ctx context.Context, dirs []string, progress ProgressFunc) (ScanSummary, error) {
	l.scanMu.Lock()
	defer l.scanMu.Unlock()

	if progress == nil {
		progress = func(ScanProgress) {}
	}
	start := l.clock.Now()
	summary := ScanSummary{ErrorDetails: []ScanError{}}

	// Phase 1: discover files
	progress(ScanProgress{Phase: PhaseDiscovering})
	files := l.discoverFiles(dirs, &summary)

	// Phase 2: filter unchanged files
	existing, err := l.existingFiles(ctx)
	if err != nil {
		return summary, fmt.Errorf("load existing tracks: %w", err)
	}
	toProcess := make([]fileInfo, 0, len(files))
	for _, f := range files {
		if e, ok := existing[f.path]; ok && e.mtime == f.mtime && e.size == f.size {
			summary.Success++
			continue
		}
		toProcess = append(toProcess, f)
	}

	// Phase 3: read tags with bounded parallelism, collect results
	results, err := l.processFiles(ctx, toProcess, progress)
	if err != nil {
		return summary, err
	}

	// Phase 4: batch upsert, dropping rows of files that became unreadable
	progress(ScanProgress{Phase: PhaseSaving, Total: len(results)})
	var ok []trackResult
	var failed []string
	for _, r := range results {
		if r.err != nil {
			summary.fail(r.file.path, ErrScanIO)
			log.Debug().Err(r.err).Str("path", r.file.path).Msg("scan: skipping file")
			if _, known := existing[r.file.path]; known {
				failed = append(failed, r.file.path)
			}
			continue
		}
		ok = append(ok, r)
	}
	if err := l.saveResults(ctx, ok, failed); err != nil {
		return summary, err
	}
	summary.Success += len(ok)

	progress(ScanProgress{Phase: PhaseDone, Current: len(files), Total: len(files)})
	log.Info().
		Str("files", humanize.Comma(int64(len(files)))).
		Str("updated", humanize.Comma(int64(len(ok)))).
		Int("errors", summary.Error).
		Dur("elapsed", l.clock.Since(start)).
		Msg("library scan finished")
	return summary, nil
}

// discoverFiles walks dirs concurrently. Unreadable directories are
// recorded in summary.
func (l *Library) discoverFiles(dirs []string, summary *ScanSummary) []fileInfo {
	var (
		mu    sync.Mutex
		files []fileInfo
	)
	for _, dir := range dirs {
		st, err := os.Stat(dir)
		if err != nil || !st.IsDir() {
			summary.fail(dir, ErrDirectoryUnreadable)
			log.Warn().Err(err).Str("dir", dir).Msg("scan: directory unreadable")
			continue
		}

		conf := fastwalk.Config{NumWorkers: l.workers}
		walkErr := fastwalk.Walk(&conf, dir, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				// fastwalk reports a failed ReadDir against the directory itself
				mu.Lock()
				summary.fail(path, ErrDirectoryUnreadable)
				mu.Unlock()
				log.Warn().Err(err).Str("dir", path).Msg("scan: directory unreadable")
				return nil
			}
			if d.IsDir() || !tags.IsMusicFile(path) {
				return nil
			}
			info, err := d.Info()
			if err != nil {
				mu.Lock()
				summary.fail(path, ErrScanIO)
				mu.Unlock()
				return nil
			}
			mu.Lock()
			files = append(files, fileInfo{
				path:  path,
				dir:   dir,
				mtime: info.ModTime().UnixNano(),
				size:  info.Size(),
			})
			mu.Unlock()
			return nil
		})
		if walkErr != nil {
			summary.fail(dir, ErrDirectoryUnreadable)
		}
	}

	// fastwalk visits in no particular order
	slices.SortFunc(files, func(a, b fileInfo) int {
		switch {
		case a.path < b.path:
			return -1
		case a.path > b.path:
			return 1
		}
		return 0
	})
	// Overlapping directories yield the same file twice
	return slices.CompactFunc(files, func(a, b fileInfo) bool { return a.path == b.path })
}

// processFiles reads every file on a bounded worker group. Results are
// collected in input order by a single collector.
func (l *Library) processFiles(ctx context.Context, files []fileInfo, progress ProgressFunc) ([]trackResult, error) {
	total := len(files)
	results := make([]trackResult, total)
	resultCh := make(chan int, l.workers)

	collected := make(chan struct{})
	go func() {
		defer close(collected)
		done := 0
		for range resultCh {
			done++
			if done%50 == 0 || done == total {
				progress(ScanProgress{Phase: PhaseProcessing, Current: done, Total: total})
			}
		}
	}()

	covers := newCoverResolver(l.coversDir)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(l.workers)
	for i, f := range files {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				results[i] = trackResult{file: f, err: err}
				resultCh <- i
				return nil
			}
			t, err := readTrack(f.path, covers)
			results[i] = trackResult{file: f, track: t, err: err}
			resultCh <- i
			return nil
		})
	}
	waitErr := g.Wait()
	close(resultCh)
	<-collected

	if waitErr != nil {
		return nil, waitErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

// readTrack resolves the metadata of one file. A file whose audio
// stream cannot be probed is an error; missing tags are not.
func readTrack(path string, covers *coverResolver) (Track, error) {
	info, err := tags.ReadWithAudio(path)
	if err != nil {
		return Track{}, fmt.Errorf("%w: %w", ErrScanIO, err)
	}
	t := Track{
		Path:        path,
		Name:        info.Title,
		Album:       info.Album,
		Artist:      info.Artist,
		AlbumArtist: info.AlbumArtist,
		Genre:       info.Genre,
		Release:     info.Release(),
		TrackNumber: info.TrackNumber,
		DiscNumber:  info.DiscNumber,
		Duration:    info.Duration.Seconds(),
		Section:     SectionOf(info.Title),
	}
	if covers != nil {
		t.Cover = covers.resolve(path)
	}
	return t, nil
}

// existingFile is the change-detection key of an indexed file.
type existingFile struct {
	mtime int64
	size  int64
}

func (l *Library) existingFiles(ctx context.Context) (map[string]existingFile, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	rows, err := l.db.QueryContext(ctx, `SELECT path, mtime, size FROM songs`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	files := make(map[string]existingFile)
	for rows.Next() {
		var path string
		var f existingFile
		if err := rows.Scan(&path, &f.mtime, &f.size); err != nil {
			return nil, err
		}
		files[path] = f
	}
	return files, rows.Err()
}

// saveResults upserts ok in batches, one transaction and one write lock
// per batch, and removes rows for files that can no longer be read.
func (l *Library) saveResults(ctx context.Context, ok []trackResult, failed []string) error {
	for batch := range slices.Chunk(ok, upsertBatchSize) {
		if err := l.withWrite(ctx, func(tx *sql.Tx) error {
			now := l.clock.Now().Unix()
			for _, r := range batch {
				if err := upsertTrack(ctx, tx, r, now); err != nil {
					return fmt.Errorf("upsert %s: %w", r.file.path, err)
				}
			}
			return nil
		}); err != nil {
			return err
		}
	}
	if len(failed) == 0 {
		return nil
	}
	return l.withWrite(ctx, func(tx *sql.Tx) error {
		for _, path := range failed {
			if _, err := tx.ExecContext(ctx, `DELETE FROM songs WHERE path = ?`, path); err != nil {
				return err
			}
		}
		return nil
	})
}

func upsertTrack(ctx context.Context, ex dbutil.Executor, r trackResult, now int64) error {
	t := r.track
	_, err := ex.ExecContext(ctx, `
		INSERT INTO songs (path, name, album, artist, album_artist, genre, release_date,
			track_number, disc_number, duration, cover, song_section, directory, mtime, size,
			added_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			name = excluded.name,
			album = excluded.album,
			artist = excluded.artist,
			album_artist = excluded.album_artist,
			genre = excluded.genre,
			release_date = excluded.release_date,
			track_number = excluded.track_number,
			disc_number = excluded.disc_number,
			duration = excluded.duration,
			cover = excluded.cover,
			song_section = excluded.song_section,
			directory = excluded.directory,
			mtime = excluded.mtime,
			size = excluded.size,
			updated_at = excluded.updated_at
	`, t.Path, t.Name, t.Album, t.Artist, t.AlbumArtist, t.Genre, t.Release,
		t.TrackNumber, t.DiscNumber, t.Duration, dbutil.NullString(t.Cover), t.Section, r.file.dir,
		r.file.mtime, r.file.size, now, now)
	return err
}

// ScanForDeleted removes every track whose file no longer exists and
// returns the removed tracks.
func (l *Library) ScanForDeleted(ctx context.Context) ([]Track, error) {
	l.scanMu.Lock()
	defer l.scanMu.Unlock()

	all, err := l.AllSongs(ctx)
	if err != nil {
		return nil, err
	}

	var gone []Track
	for _, t := range all {
		if _, err := os.Stat(t.Path); errors.Is(err, fs.ErrNotExist) {
			gone = append(gone, t)
		}
	}
	if len(gone) == 0 {
		return nil, nil
	}

	err = l.withWrite(ctx, func(tx *sql.Tx) error {
		for _, t := range gone {
			if _, err := tx.ExecContext(ctx, `DELETE FROM songs WHERE path = ?`, t.Path); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	log.Info().Int("removed", len(gone)).Msg("removed deleted tracks")
	return gone, nil
}

// Refresh rescans every configured directory, then sweeps deleted files.
func (l *Library) Refresh(ctx context.Context, progress ProgressFunc) (ScanSummary, []Track, error) {
	dirs, err := l.Directories(ctx)
	if err != nil {
		return ScanSummary{}, nil, err
	}
	summary, err := l.Scan(ctx, dirPaths(dirs), progress)
	if err != nil {
		return summary, nil, err
	}
	removed, err := l.ScanForDeleted(ctx)
	return summary, removed, err
}
