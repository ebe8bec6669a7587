package tags

import (
	"go.senan.xyz/taglib"
)

// readOggWithTaglib reads Ogg (Opus or Vorbis) metadata using TagLib as
// fallback when dhowden/tag fails.
func readOggWithTaglib(path string) (*Tag, error) {
	rawTags, err := taglib.ReadTags(path)
	if err != nil {
		return nil, err
	}
	return tagFromTaglib(path, taglibTags(rawTags)), nil
}

func tagFromTaglib(path string, tags taglibTags) *Tag {
	trackNum, trackTotal := tags.parseNumberPair(taglib.TrackNumber)
	discNum, discTotal := tags.parseNumberPair(taglib.DiscNumber)

	t := &Tag{
		Path:         path,
		Title:        tags.get(taglib.Title),
		Artist:       tags.get(taglib.Artist),
		AlbumArtist:  tags.get(taglib.AlbumArtist),
		Album:        tags.get(taglib.Album),
		Genre:        tags.get(taglib.Genre),
		TrackNumber:  trackNum,
		TotalTracks:  trackTotal,
		DiscNumber:   discNum,
		TotalDiscs:   discTotal,
		Date:         tags.get(taglib.Date),
		OriginalDate: tags.get(taglib.OriginalDate, "ORIGINALYEAR"),
	}

	finish(t)
	return t
}
