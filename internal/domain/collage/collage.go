// Package collage lays garment images out on a grid and encodes the preview.
//
// Cells are 280 px squares separated by 25 px gaps, at most three per row.
// Each image is fitted inside its cell minus 20 px of padding per side:
// width first, then by height and centred horizontally if it would overflow.
package collage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	_ "image/gif" // decoder registration
	"image/jpeg"
	_ "image/png" // decoder registration
	"math"
	"time"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp" // decoder registration
	"golang.org/x/sync/errgroup"

	"github.com/okian/stylist/pkg/logger"
)

// Layout constants.
const (
	CellSize       = 280
	Gap            = 25
	Padding        = 20
	MaxColumns     = 3
	DefaultQuality = 92

	// ContentType is the MIME type of encoded composites.
	ContentType = "image/jpeg"
)

var (
	// Background fills the canvas and every cell.
	Background = color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}
	// Border is the 1 px cell outline.
	Border = color.RGBA{R: 0xe0, G: 0xe0, B: 0xe0, A: 0xff}
)

// Errors.
var (
	ErrNoImages      = errors.New("no images to compose")
	ErrDecodeFailure = errors.New("image decode failed")
)

// Grid is the canvas geometry for n cells.
type Grid struct {
	Columns int
	Rows    int
	Width   int
	Height  int
}

// Layout returns the grid for n images. n < 1 yields the zero Grid.
func Layout(n int) Grid {
	if n < 1 {
		return Grid{}
	}
	cols := min(n, MaxColumns)
	rows := (n + cols - 1) / cols
	return Grid{
		Columns: cols,
		Rows:    rows,
		Width:   cols*(CellSize+Gap) - Gap,
		Height:  rows*(CellSize+Gap) - Gap,
	}
}

// Cell returns the top-left corner of cell i in row-major order.
func (g Grid) Cell(i int) image.Point {
	if g.Columns == 0 {
		return image.Point{}
	}
	return image.Pt((i%g.Columns)*(CellSize+Gap), (i/g.Columns)*(CellSize+Gap))
}

// Placement is where an image lands inside a cell, in canvas units.
type Placement struct {
	X, Y, W, H float64
}

// Rect rounds p to whole pixels.
func (p Placement) Rect() image.Rectangle {
	x0, y0 := int(math.Round(p.X)), int(math.Round(p.Y))
	return image.Rect(x0, y0, x0+int(math.Round(p.W)), y0+int(math.Round(p.H)))
}

// Fit places a w x h image in the cell whose corner is (x, y).
// The top edge always sits at the padding, even when the height is the constraint.
func Fit(x, y, w, h int) Placement {
	inner := float64(CellSize - 2*Padding)
	if w <= 0 || h <= 0 {
		return Placement{X: float64(x + Padding), Y: float64(y + Padding)}
	}
	ratio := float64(w) / float64(h)

	p := Placement{
		X: float64(x + Padding),
		Y: float64(y + Padding),
		W: inner,
		H: inner / ratio,
	}
	if p.H > inner {
		p.H = inner
		p.W = inner * ratio
		p.X = float64(x) + (CellSize-p.W)/2
	}
	return p
}

// Option configures a Compositor.
type Option func(*Compositor)

// WithQuality sets the JPEG quality, 1 to 100.
func WithQuality(q int) Option {
	return func(c *Compositor) {
		if q >= 1 && q <= 100 {
			c.quality = q
		}
	}
}

// WithInterpolator replaces the CatmullRom scaler.
func WithInterpolator(i draw.Interpolator) Option {
	return func(c *Compositor) {
		if i != nil {
			c.scaler = i
		}
	}
}

// WithLogger sets the compositor logger.
func WithLogger(l logger.Logger) Option {
	return func(c *Compositor) {
		if l != nil {
			c.log = l
		}
	}
}

// Compositor renders outfit previews. Safe for concurrent use.
type Compositor struct {
	quality int
	scaler  draw.Interpolator
	log     logger.Logger
}

// New creates a compositor with configuration options.
func New(opts ...Option) *Compositor {
	c := &Compositor{
		quality: DefaultQuality,
		scaler:  draw.CatmullRom,
		log:     logger.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Compose draws images onto a grid. A single image is returned as is.
func (c *Compositor) Compose(images []image.Image) (image.Image, error) {
	switch len(images) {
	case 0:
		return nil, ErrNoImages
	case 1:
		return images[0], nil
	}

	g := Layout(len(images))
	canvas := image.NewRGBA(image.Rect(0, 0, g.Width, g.Height))
	draw.Draw(canvas, canvas.Bounds(), image.NewUniform(Background), image.Point{}, draw.Src)

	for i, img := range images {
		at := g.Cell(i)
		cell := image.Rect(at.X, at.Y, at.X+CellSize, at.Y+CellSize)
		draw.Draw(canvas, cell, image.NewUniform(Background), image.Point{}, draw.Src)
		outline(canvas, cell, Border)

		b := img.Bounds()
		dst := Fit(at.X, at.Y, b.Dx(), b.Dy()).Rect()
		if dst.Empty() {
			continue
		}
		c.scaler.Scale(canvas, dst, img, b, draw.Over, nil)
	}
	return canvas, nil
}

// outline strokes the 1 px border of r.
func outline(dst draw.Image, r image.Rectangle, col color.Color) {
	for x := r.Min.X; x < r.Max.X; x++ {
		dst.Set(x, r.Min.Y, col)
		dst.Set(x, r.Max.Y-1, col)
	}
	for y := r.Min.Y; y < r.Max.Y; y++ {
		dst.Set(r.Min.X, y, col)
		dst.Set(r.Max.X-1, y, col)
	}
}

// Decode decodes one encoded image. PNG, JPEG, GIF and WebP are supported.
func Decode(src []byte) (image.Image, error) {
	img, _, err := image.Decode(bytes.NewReader(src))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecodeFailure, err)
	}
	return img, nil
}

// Render composes encoded sources into a JPEG preview.
// One source is returned byte for byte; no decoding happens.
// Any undecodable source fails the whole render with ErrDecodeFailure.
func (c *Compositor) Render(ctx context.Context, sources [][]byte) ([]byte, error) {
	switch len(sources) {
	case 0:
		return nil, ErrNoImages
	case 1:
		return sources[0], nil
	}

	start := time.Now()
	images := make([]image.Image, len(sources))
	g, gctx := errgroup.WithContext(ctx)
	for i, src := range sources {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			img, err := Decode(src)
			if err != nil {
				return fmt.Errorf("source %d: %w", i, err)
			}
			images[i] = img
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		c.log.Warn(ctx, "render aborted", logger.Int("sources", len(sources)), logger.Error(err))
		return nil, err
	}

	img, err := c.Compose(images)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: c.quality}); err != nil {
		return nil, fmt.Errorf("encode preview: %w", err)
	}
	c.log.Debug(ctx, "preview rendered",
		logger.Int("sources", len(sources)),
		logger.Int("bytes", buf.Len()),
		logger.Duration("took", time.Since(start)),
	)
	return buf.Bytes(), nil
}
