package media

import (
	"bytes"
	"fmt"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"

	"github.com/chai2010/webp"

	// Register decoders so classification and thumbnailing can read the
	// common raster formats by signature.
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

// encodeQuality is the fixed quality used for stored originals, renditions
// and webp siblings.
const encodeQuality = 80

// isReadableImage reports whether the bytes carry a decodable raster image
// signature. Anything else is stored as a plain blob.
func isReadableImage(data []byte) bool {
	_, _, err := image.DecodeConfig(bytes.NewReader(data))
	return err == nil
}

func decodeImage(data []byte) (image.Image, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	return img, err
}

// encodeImage encodes img in the codec named by the file extension. An
// extension without a registered encoder returns an error so callers can skip
// that output.
func encodeImage(img image.Image, ext string) ([]byte, error) {
	var buf bytes.Buffer
	var err error

	switch ext {
	case "jpg", "jpeg":
		err = jpeg.Encode(&buf, img, &jpeg.Options{Quality: encodeQuality})
	case "png":
		err = png.Encode(&buf, img)
	case "gif":
		err = gif.Encode(&buf, img, nil)
	default:
		return nil, fmt.Errorf("no encoder for extension %q", ext)
	}

	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func encodeWebp(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := webp.Encode(&buf, img, &webp.Options{Quality: encodeQuality}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
