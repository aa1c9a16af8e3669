// Package vips adapts libvips, through bimg, to compress.Processor.
package vips

import (
	"fmt"

	"github.com/h2non/bimg"
)

type Processor struct{}

func New() Processor {
	return Processor{}
}

func (Processor) Size(data []byte) (int, int, error) {
	size, err := bimg.NewImage(data).Size()
	if err != nil {
		return 0, 0, fmt.Errorf("vips.Size: %w", err)
	}

	return size.Width, size.Height, nil
}

func (p Processor) Encode(data []byte, maxWidth, maxHeight, quality int) ([]byte, error) {
	const op = "vips.Encode"

	w, h, err := p.Size(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	opts := bimg.Options{
		Type:          bimg.JPEG,
		Quality:       quality,
		StripMetadata: true,
	}

	// Only the width is set so libvips keeps the aspect ratio.
	if width := fitWidth(w, h, maxWidth, maxHeight); width < w {
		opts.Width = width
	}

	out, err := bimg.NewImage(data).Process(opts)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return out, nil
}

func fitWidth(w, h, maxWidth, maxHeight int) int {
	if w <= 0 || h <= 0 {
		return w
	}

	scale := 1.0
	if maxWidth > 0 && w > maxWidth {
		scale = float64(maxWidth) / float64(w)
	}
	if maxHeight > 0 && float64(h)*scale > float64(maxHeight) {
		scale = float64(maxHeight) / float64(h)
	}

	width := int(float64(w) * scale)
	if width < 1 {
		width = 1
	}

	return width
}
