// Package compress shrinks oversized uploads by re-encoding them at
// decreasing JPEG quality until they fit a byte budget.
package compress

import (
	"context"
	"errors"
	"fmt"
)

var ErrEmptyInput = errors.New("empty image")

// Processor is the image library behind Compress.
type Processor interface {
	// Size returns the pixel dimensions of an encoded image.
	Size(data []byte) (width, height int, err error)
	// Encode scales data to fit within maxWidth x maxHeight, keeping the
	// aspect ratio and never upscaling, and re-encodes it as JPEG.
	Encode(data []byte, maxWidth, maxHeight, quality int) ([]byte, error)
}

type Options struct {
	MaxBytes     int
	MaxWidth     int
	MaxHeight    int
	StartQuality int
	Step         int
	MinQuality   int
}

func DefaultOptions() Options {
	return Options{
		MaxBytes:     2 << 20,
		MaxWidth:     2400,
		MaxHeight:    2400,
		StartQuality: 85,
		Step:         10,
		MinQuality:   40,
	}
}

type Result struct {
	Data    []byte
	Quality int
	// FloorReached is set when MinQuality was used and the output may still
	// exceed MaxBytes. It is not an error.
	FloorReached bool
	Attempts     int
}

// Compress re-encodes data at StartQuality, then lowers the quality by Step
// until the output fits MaxBytes or MinQuality has been tried. Quality only
// decreases, so the loop always terminates.
func Compress(ctx context.Context, p Processor, data []byte, o Options) (Result, error) {
	const op = "compress.Compress"

	if len(data) == 0 {
		return Result{}, fmt.Errorf("%s: %w", op, ErrEmptyInput)
	}

	o = o.normalized()

	var res Result
	for q := o.StartQuality; ; q -= o.Step {
		if q < o.MinQuality {
			q = o.MinQuality
		}

		if err := ctx.Err(); err != nil {
			return Result{}, fmt.Errorf("%s: %w", op, err)
		}

		out, err := p.Encode(data, o.MaxWidth, o.MaxHeight, q)
		if err != nil {
			return Result{}, fmt.Errorf("%s: quality %d: %w", op, q, err)
		}

		res = Result{Data: out, Quality: q, Attempts: res.Attempts + 1}

		if len(out) <= o.MaxBytes {
			return res, nil
		}
		if q == o.MinQuality {
			res.FloorReached = true
			return res, nil
		}
	}
}

func (o Options) normalized() Options {
	d := DefaultOptions()

	if o.MaxBytes <= 0 {
		o.MaxBytes = d.MaxBytes
	}
	if o.MaxWidth <= 0 {
		o.MaxWidth = d.MaxWidth
	}
	if o.MaxHeight <= 0 {
		o.MaxHeight = d.MaxHeight
	}
	if o.StartQuality <= 0 || o.StartQuality > 100 {
		o.StartQuality = d.StartQuality
	}
	if o.Step <= 0 {
		o.Step = d.Step
	}
	if o.MinQuality <= 0 {
		o.MinQuality = d.MinQuality
	}
	if o.MinQuality > o.StartQuality {
		o.MinQuality = o.StartQuality
	}

	return o
}
