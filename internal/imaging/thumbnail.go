package imaging

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"io"
	"os"

	// Registered decoders for the allow-listed formats.
	_ "image/gif"
	_ "image/png"

	"golang.org/x/image/draw"
)

// ThumbnailSize bounds the longest side of an embedded photo, in pixels.
const ThumbnailSize = 200

// MaxPixels caps width*height of a photo before it is decoded.
const MaxPixels = 40_000_000

var ErrImageTooLarge = errors.New("image dimensions exceed limit")

// FitWithin returns the size of a w×h image scaled down so that its longest
// side is at most limit. Images already within bounds are not enlarged.
func FitWithin(w, h, limit int) (int, int) {
	if w <= limit && h <= limit {
		return w, h
	}
	if w >= h {
		return limit, max(1, h*limit/w)
	}
	return max(1, w*limit/h), limit
}

// Thumbnail decodes src and returns a copy bounded by maxSide, flattened on white.
func Thumbnail(src string, maxSide int) (image.Image, error) {
	f, err := os.Open(src)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", src, err)
	}
	if int64(cfg.Width)*int64(cfg.Height) > MaxPixels {
		return nil, fmt.Errorf("decode %s: %dx%d: %w", src, cfg.Width, cfg.Height, ErrImageTooLarge)
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", src, err)
	}

	b := img.Bounds()
	w, h := FitWithin(b.Dx(), b.Dy(), maxSide)
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(dst, dst.Bounds(), &image.Uniform{C: color.White}, image.Point{}, draw.Src)
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Over, nil)
	return dst, nil
}

// WithThumbnail writes a JPEG thumbnail of src to a temporary file, passes
// its path to fn and removes the file afterwards, whether fn succeeds or not.
func WithThumbnail(src string, maxSide int, fn func(path string) error) error {
	thumb, err := Thumbnail(src, maxSide)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp("", "brgy-thumb-*.jpg")
	if err != nil {
		return fmt.Errorf("create thumbnail file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := jpeg.Encode(tmp, thumb, &jpeg.Options{Quality: 90}); err != nil {
		tmp.Close()
		return fmt.Errorf("encode thumbnail: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close thumbnail: %w", err)
	}
	return fn(tmp.Name())
}
