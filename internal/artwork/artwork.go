// Package artwork decodes embedded cover art and produces the fixed-size
// RGB thumbnail stored alongside each MediaSource.
package artwork

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/nfnt/resize"
	"golang.org/x/image/webp"

	"github.com/cartomix/meridian/internal/domain"
)

// ThumbnailDim is the pixel width/height of the stored thumbnail; its RGB
// bytes occupy domain.ThumbnailSize (ThumbnailDim*ThumbnailDim*3) bytes.
const ThumbnailDim = 4

// Downscale decodes raw image bytes and downsamples them to a
// ThumbnailDim x ThumbnailDim RGB thumbnail using a Lanczos3 kernel, per
// the importer's artwork-extraction stage.
func Downscale(data []byte) ([domain.ThumbnailSize]byte, *domain.ArtworkSize, error) {
	var out [domain.ThumbnailSize]byte

	img, _, err := decode(data)
	if err != nil {
		return out, nil, fmt.Errorf("artwork: decode: %w", err)
	}

	bounds := img.Bounds()
	size := &domain.ArtworkSize{Width: int32(bounds.Dx()), Height: int32(bounds.Dy())}

	small := resize.Resize(ThumbnailDim, ThumbnailDim, img, resize.Lanczos3)

	i := 0
	for y := 0; y < ThumbnailDim; y++ {
		for x := 0; x < ThumbnailDim; x++ {
			r, g, b, _ := small.At(x, y).RGBA()
			out[i] = byte(r >> 8)
			out[i+1] = byte(g >> 8)
			out[i+2] = byte(b >> 8)
			i += 3
		}
	}
	return out, size, nil
}

func decode(data []byte) (image.Image, string, error) {
	if img, err := webp.Decode(bytes.NewReader(data)); err == nil {
		return img, "webp", nil
	}
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", err
	}
	return img, format, nil
}
