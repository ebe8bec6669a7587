package tags

import (
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/dhowden/tag"
	goflac "github.com/go-flac/go-flac"
	"github.com/go-flac/flacpicture"
)

// Common cover art filenames to look for in album folders.
var coverArtFilenames = []string{
	"cover.jpg", "cover.jpeg", "cover.png",
	"folder.jpg", "folder.jpeg", "folder.png",
	"album.jpg", "album.jpeg", "album.png",
	"front.jpg", "front.jpeg", "front.png",
	"artwork.jpg", "artwork.jpeg", "artwork.png",
}

// ExtractCoverArt reads cover art for an audio file.
// It first tries to extract embedded art from the file metadata.
// If no embedded art is found, it looks for common cover image files
// in the same directory (cover.jpg, folder.jpg, album.png, etc.).
// Returns the image data and MIME type, or nil if no art is found.
func ExtractCoverArt(path string) (data []byte, mimeType string, err error) {
	data, mimeType, err = ExtractEmbeddedArt(path)
	if err == nil && data != nil {
		return data, mimeType, nil
	}

	// Fall back to folder images
	return FindFolderArt(filepath.Dir(path))
}

// ExtractEmbeddedArt reads embedded cover art from an audio file's metadata.
func ExtractEmbeddedArt(path string) (data []byte, mimeType string, err error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, "", err
	}
	defer f.Close()

	m, err := tag.ReadFrom(f)
	if err != nil {
		if Ext(path) == ExtFLAC {
			return extractFLACPicture(path)
		}
		return nil, "", err
	}

	pic := m.Picture()
	if pic == nil {
		return nil, "", nil
	}

	return pic.Data, pic.MIMEType, nil
}

// extractFLACPicture reads the front cover picture block of a FLAC file.
func extractFLACPicture(path string) ([]byte, string, error) {
	f, err := goflac.ParseFile(path)
	if err != nil {
		return nil, "", err
	}

	var fallback *flacpicture.MetadataBlockPicture
	for _, meta := range f.Meta {
		if meta.Type != goflac.Picture {
			continue
		}
		pic, err := flacpicture.ParseFromMetaDataBlock(*meta)
		if err != nil {
			continue
		}
		if pic.PictureType == flacpicture.PictureTypeFrontCover {
			return pic.ImageData, pic.MIME, nil
		}
		if fallback == nil {
			fallback = pic
		}
	}
	if fallback != nil {
		return fallback.ImageData, fallback.MIME, nil
	}
	return nil, "", nil
}

// FindFolderArt looks for common cover art files in the given directory.
// Matching is case-insensitive.
func FindFolderArt(dir string) (data []byte, mimeType string, err error) {
	path := FindFolderArtPath(dir)
	if path == "" {
		return nil, "", nil
	}
	data, err = os.ReadFile(path)
	if err != nil {
		return nil, "", err
	}
	return data, mimeFromExt(filepath.Ext(path)), nil
}

// FindFolderArtPath returns the path of the first cover image in dir, or
// the empty string.
func FindFolderArtPath(dir string) string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return ""
	}
	best := -1
	var bestPath string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		idx := slices.Index(coverArtFilenames, strings.ToLower(e.Name()))
		if idx >= 0 && (best < 0 || idx < best) {
			best = idx
			bestPath = filepath.Join(dir, e.Name())
		}
	}
	return bestPath
}

// ImageExt returns a file extension for an image MIME type.
func ImageExt(mimeType string) string {
	switch mimeType {
	case "image/png":
		return ".png"
	case "image/jpeg", "image/jpg":
		return ".jpg"
	}
	return ".img"
}

func mimeFromExt(ext string) string {
	switch strings.ToLower(ext) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	}
	return "application/octet-stream"
}
