package parse

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"path/filepath"
	"strings"
)

// parseImage re-encodes an image in its own format and emits a single
// segment whose content names the file so it can be found by keyword.
func parseImage(filename, extension string, data []byte) ([]Segment, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("could not read image content: %s: %w", filename, err)
	}

	encoded, err := encodeImage(img, extension)
	if err != nil {
		return nil, fmt.Errorf("could not encode image: %s: %w", filename, err)
	}

	baseName := strings.TrimSuffix(filename, filepath.Ext(filename))
	segment := newSegment(fmt.Sprintf("Image: %s (%s)", baseName, filename))
	segment.ImageData = encoded
	segment.addMetadata(MetaSourceType, "image")
	segment.addMetadata(MetaFilename, filename)

	return []Segment{segment}, nil
}

// encodeImage encodes img as png, or as jpeg for any other format, and
// returns it base64 encoded.
func encodeImage(img image.Image, format string) (string, error) {
	var buf bytes.Buffer
	var err error
	switch format {
	case "png":
		err = png.Encode(&buf, img)
	default:
		err = jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpeg.DefaultQuality})
	}
	if err != nil {
		return "", err
	}

	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}
