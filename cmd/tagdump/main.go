// Command tagdump prints the metadata the library scanner would index for
// each file or directory given on the command line.
package main

import (
	"fmt"
	"io/fs"
	"log"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/charlievieth/fastwalk"
	"github.com/dustin/go-humanize"

	"github.com/llehouerou/wavesd/internal/tags"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: tagdump <file|dir>...")
		os.Exit(2)
	}

	var files []string
	for _, arg := range os.Args[1:] {
		info, err := os.Stat(arg)
		if err != nil {
			log.Fatalf("stat %s: %v", arg, err)
		}
		if !info.IsDir() {
			files = append(files, arg)
			continue
		}
		found, err := musicFiles(arg)
		if err != nil {
			log.Fatalf("walk %s: %v", arg, err)
		}
		files = append(files, found...)
	}

	failed := 0
	for _, path := range files {
		if err := dump(path); err != nil {
			log.Printf("%s: %v", path, err)
			failed++
		}
	}
	if failed > 0 {
		os.Exit(1)
	}
}

func musicFiles(root string) ([]string, error) {
	var (
		mu    sync.Mutex
		files []string
	)
	err := fastwalk.Walk(nil, root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil //nolint:nilerr // unreadable entries are skipped
		}
		if !d.IsDir() && tags.IsMusicFile(path) {
			mu.Lock()
			files = append(files, path)
			mu.Unlock()
		}
		return nil
	})
	sort.Strings(files)
	return files, err
}

func dump(path string) error {
	info, err := tags.ReadWithAudio(path)
	if err != nil {
		return err
	}

	fmt.Println(path)
	fmt.Printf("  title:        %s\n", info.Title)
	fmt.Printf("  artist:       %s\n", info.Artist)
	fmt.Printf("  album artist: %s\n", info.AlbumArtist)
	fmt.Printf("  album:        %s\n", info.Album)
	fmt.Printf("  genre:        %s\n", info.Genre)
	fmt.Printf("  track:        %d/%d\n", info.TrackNumber, info.TotalTracks)
	fmt.Printf("  disc:         %d/%d\n", info.DiscNumber, info.TotalDiscs)
	fmt.Printf("  date:         %s\n", info.Release())
	fmt.Printf("  format:       %s %d Hz %d-bit\n", info.Format, info.SampleRate, info.BitDepth)
	fmt.Printf("  duration:     %s\n", info.Duration.Round(time.Second))

	if data, mime, err := tags.ExtractCoverArt(path); err == nil && len(data) > 0 {
		fmt.Printf("  cover:        %s, %s\n", mime, humanize.Bytes(uint64(len(data))))
	}
	return nil
}
