package frame_source

import (
	"image"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/Carmen-Shannon/oxy-vidfx/common"
	"github.com/anthonynsimon/bild/imgio"

	// registers the formats bild does not decode on its own
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

var imageExtensions = []string{".png", ".jpg", ".jpeg", ".gif", ".bmp", ".tif", ".tiff", ".webp"}

type imageSequenceDecoder struct {
	pattern string
}

var _ Decoder = &imageSequenceDecoder{}

// NewImageSequenceDecoder returns a decoder over still images. pattern is a directory, whose
// image files are read in name order, or a filepath.Match glob such as "frames/*.png".
//
// Parameters:
//   - pattern: a directory or glob
//
// Returns:
//   - Decoder: the image-sequence decoder
func NewImageSequenceDecoder(pattern string) Decoder {
	return &imageSequenceDecoder{pattern: pattern}
}

func (d *imageSequenceDecoder) Name() string {
	return d.pattern
}

func (d *imageSequenceDecoder) Decode(maxFrames int) ([]image.Image, error) {
	paths, err := d.paths()
	if err != nil {
		return nil, &common.DecodeFailure{Source: d.pattern, Frame: -1, Err: err}
	}
	if maxFrames > 0 && len(paths) > maxFrames {
		paths = paths[:maxFrames]
	}

	frames := make([]image.Image, 0, len(paths))
	for i, p := range paths {
		img, err := imgio.Open(p)
		if err != nil {
			return nil, &common.DecodeFailure{Source: d.pattern, Frame: i, Err: err}
		}
		frames = append(frames, img)
	}
	return frames, nil
}

func (d *imageSequenceDecoder) paths() ([]string, error) {
	var candidates []string
	if info, err := os.Stat(d.pattern); err == nil && info.IsDir() {
		entries, err := os.ReadDir(d.pattern)
		if err != nil {
			return nil, err
		}
		for _, e := range entries {
			if !e.IsDir() {
				candidates = append(candidates, filepath.Join(d.pattern, e.Name()))
			}
		}
	} else {
		matches, err := filepath.Glob(d.pattern)
		if err != nil {
			return nil, err
		}
		candidates = matches
	}

	var out []string
	for _, p := range candidates {
		if slices.Contains(imageExtensions, strings.ToLower(filepath.Ext(p))) {
			out = append(out, p)
		}
	}
	slices.Sort(out)
	return out, nil
}
