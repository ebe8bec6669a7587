package tags

import (
	goflac "github.com/go-flac/go-flac"
	"github.com/go-flac/flacvorbis"
)

// readVorbisComments returns the first value of each Vorbis comment in a
// FLAC file, keyed by upper-case field name.
func readVorbisComments(path string) (map[string]string, error) {
	f, err := goflac.ParseFile(path)
	if err != nil {
		return nil, err
	}

	for _, meta := range f.Meta {
		if meta.Type != goflac.VorbisComment {
			continue
		}
		block, err := flacvorbis.ParseFromMetaDataBlock(*meta)
		if err != nil {
			return nil, err
		}
		comments := make(map[string]string)
		for _, key := range []string{
			flacvorbis.FIELD_TITLE, flacvorbis.FIELD_ARTIST, "ALBUMARTIST",
			flacvorbis.FIELD_ALBUM, flacvorbis.FIELD_GENRE, flacvorbis.FIELD_DATE,
			flacvorbis.FIELD_TRACKNUMBER, "DISCNUMBER", "TOTALTRACKS", "TOTALDISCS",
			"YEAR", "ORIGINALDATE", "ORIGINALYEAR",
		} {
			if values, err := block.Get(key); err == nil && len(values) > 0 {
				comments[key] = values[0]
			}
		}
		return comments, nil
	}
	return map[string]string{}, nil
}

// readFLACWithVorbisComments reads FLAC metadata directly from the Vorbis
// comment block when dhowden/tag fails.
func readFLACWithVorbisComments(path string) (*Tag, error) {
	comments, err := readVorbisComments(path)
	if err != nil {
		return nil, err
	}

	track, totalTracks := parseTrackNumber(comments[flacvorbis.FIELD_TRACKNUMBER])
	disc, totalDiscs := parseTrackNumber(comments["DISCNUMBER"])
	if totalTracks == 0 {
		totalTracks, _ = parseTrackNumber(comments["TOTALTRACKS"])
	}
	if totalDiscs == 0 {
		totalDiscs, _ = parseTrackNumber(comments["TOTALDISCS"])
	}

	t := &Tag{
		Path:        path,
		Title:       comments[flacvorbis.FIELD_TITLE],
		Artist:      comments[flacvorbis.FIELD_ARTIST],
		AlbumArtist: comments["ALBUMARTIST"],
		Album:       comments[flacvorbis.FIELD_ALBUM],
		Genre:       comments[flacvorbis.FIELD_GENRE],
		TrackNumber: track,
		TotalTracks: totalTracks,
		DiscNumber:  disc,
		TotalDiscs:  totalDiscs,
	}
	applyFLACDates(comments, t)

	finish(t)
	return t, nil
}

// readFLACExtendedTags fills the full release dates dhowden/tag reduces to a year.
func readFLACExtendedTags(path string, t *Tag) {
	comments, err := readVorbisComments(path)
	if err != nil {
		return
	}
	applyFLACDates(comments, t)
}

func applyFLACDates(comments map[string]string, t *Tag) {
	if date := comments[flacvorbis.FIELD_DATE]; date != "" {
		t.Date = date
	} else if year := comments["YEAR"]; year != "" {
		t.Date = year
	}
	t.OriginalDate = comments["ORIGINALDATE"]
	if t.OriginalDate == "" {
		t.OriginalDate = comments["ORIGINALYEAR"]
	}
}
