package tags

import (
	"github.com/bogem/id3v2/v2"
)

// readMP3ExtendedTags reads the full release dates from ID3v2 frames.
func readMP3ExtendedTags(path string, t *Tag) {
	id3tag, err := id3v2.Open(path, id3v2.Options{Parse: true})
	if err != nil {
		return
	}
	defer id3tag.Close()
	applyID3Dates(id3tag, t)
}

// applyID3Dates prefers the ID3v2.4 TDRC frame and falls back to the
// ID3v2.3 TYER/TDAT pair (TDAT is DDMM).
func applyID3Dates(id3tag *id3v2.Tag, t *Tag) {
	if date := id3Text(id3tag, "TDRC"); date != "" {
		t.Date = date
	} else if year := id3Text(id3tag, "TYER"); year != "" {
		t.Date = year
		if tdat := id3Text(id3tag, "TDAT"); len(tdat) == 4 {
			t.Date = year + "-" + tdat[2:4] + "-" + tdat[0:2]
		}
	}

	t.OriginalDate = id3Text(id3tag, "TDOR")
	if t.OriginalDate == "" {
		t.OriginalDate = id3Text(id3tag, "TORY")
	}
}

// readMP3WithID3v2Fallback reads MP3 metadata with id3v2 alone, for tags
// dhowden/tag rejects (some UTF-16 frames).
func readMP3WithID3v2Fallback(path string) (*Tag, error) {
	id3tag, err := id3v2.Open(path, id3v2.Options{Parse: true})
	if err != nil {
		return nil, err
	}
	defer id3tag.Close()

	t := &Tag{
		Path:        path,
		Title:       id3tag.Title(),
		Artist:      id3tag.Artist(),
		AlbumArtist: id3Text(id3tag, "TPE2"),
		Album:       id3tag.Album(),
		Genre:       id3tag.Genre(),
		Date:        id3tag.Year(),
	}
	t.TrackNumber, t.TotalTracks = parseTrackNumber(id3Text(id3tag, "TRCK"))
	t.DiscNumber, t.TotalDiscs = parseTrackNumber(id3Text(id3tag, "TPOS"))
	applyID3Dates(id3tag, t)

	finish(t)
	return t, nil
}

func id3Text(id3tag *id3v2.Tag, frameID string) string {
	for _, f := range id3tag.GetFrames(frameID) {
		if tf, ok := f.(id3v2.TextFrame); ok {
			return tf.Text
		}
	}
	return ""
}
