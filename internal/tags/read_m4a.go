package tags

import (
	"github.com/Sorrow446/go-mp4tag"
	"go.senan.xyz/taglib"
)

// readM4AFallback reads M4A metadata with go-mp4tag, then TagLib, when
// dhowden/tag fails.
func readM4AFallback(path string) (*Tag, error) {
	if t, err := readM4AWithMP4Tag(path); err == nil {
		return t, nil
	}
	return readM4AWithTaglib(path)
}

func readM4AWithMP4Tag(path string) (*Tag, error) {
	mp4, err := mp4tag.Open(path)
	if err != nil {
		return nil, err
	}
	defer mp4.Close()

	tags, err := mp4.Read()
	if err != nil {
		return nil, err
	}

	t := &Tag{
		Path:        path,
		Title:       tags.Title,
		Artist:      tags.Artist,
		AlbumArtist: tags.AlbumArtist,
		Album:       tags.Album,
		Genre:       tags.CustomGenre,
		TrackNumber: int(tags.TrackNumber),
		TotalTracks: int(tags.TrackTotal),
		DiscNumber:  int(tags.DiscNumber),
		TotalDiscs:  int(tags.DiscTotal),
		Date:        tags.Date,
	}

	finish(t)
	return t, nil
}

// readM4AWithTaglib reads M4A metadata using TagLib as the last resort.
func readM4AWithTaglib(path string) (*Tag, error) {
	rawTags, err := taglib.ReadTags(path)
	if err != nil {
		return nil, err
	}
	return tagFromTaglib(path, taglibTags(rawTags)), nil
}
