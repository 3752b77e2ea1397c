// Package extractor finds the representative colour of a garment image.
package extractor

import (
	"context"
	"errors"
	"fmt"
	"image"

	"github.com/EdlinOrg/prominentcolor"
	colorful "github.com/lucasb-eyer/go-colorful"
)

// ErrIndeterminate is returned when no colour could be picked from the image.
var ErrIndeterminate = errors.New("no representative colour")

// Extractor returns a "#rrggbb" colour for img.
type Extractor interface {
	Extract(ctx context.Context, img image.Image) (string, error)
}

// Func adapts a function to Extractor.
type Func func(ctx context.Context, img image.Image) (string, error)

// Extract calls f.
func (f Func) Extract(ctx context.Context, img image.Image) (string, error) {
	return f(ctx, img)
}

// Option configures a Prominent extractor.
type Option func(*Prominent)

// WithClusters sets the number of k-means clusters.
func WithClusters(k int) Option {
	return func(p *Prominent) {
		if k > 0 {
			p.k = k
		}
	}
}

// WithVibrance sets the HSV saturation a cluster needs to count as vibrant.
func WithVibrance(s float64) Option {
	return func(p *Prominent) {
		if s >= 0 && s <= 1 {
			p.vibrance = s
		}
	}
}

// WithBackgroundMasks toggles masking of white, black and green backdrops.
func WithBackgroundMasks(on bool) Option {
	return func(p *Prominent) { p.masks = on }
}

// Prominent clusters pixels with k-means and picks the most prominent vibrant
// cluster, falling back to the most prominent muted one.
type Prominent struct {
	k        int
	vibrance float64
	masks    bool
}

// NewProminent creates a k-means extractor with configuration options.
func NewProminent(opts ...Option) *Prominent {
	p := &Prominent{
		k:        prominentcolor.DefaultK,
		vibrance: 0.35,
		masks:    true,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Extract implements Extractor.
func (p *Prominent) Extract(ctx context.Context, img image.Image) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if img == nil || img.Bounds().Empty() {
		return "", ErrIndeterminate
	}

	var masks []prominentcolor.ColorBackgroundMask
	if p.masks {
		masks = prominentcolor.GetDefaultMasks()
	}
	clusters, err := prominentcolor.KmeansWithAll(p.k, img, prominentcolor.ArgumentDefault, prominentcolor.DefaultSize, masks)
	if err != nil && p.masks {
		// everything was masked out; retry on raw pixels
		clusters, err = prominentcolor.KmeansWithAll(p.k, img, prominentcolor.ArgumentDefault, prominentcolor.DefaultSize, nil)
	}
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrIndeterminate, err)
	}
	if len(clusters) == 0 {
		return "", ErrIndeterminate
	}

	return Pick(clusters, p.vibrance), nil
}

// Pick returns the first cluster at or above the vibrance threshold,
// else the first cluster. Clusters are expected most prominent first.
func Pick(clusters []prominentcolor.ColorItem, vibrance float64) string {
	for _, c := range clusters {
		col := toColorful(c)
		if _, s, _ := col.Hsv(); s >= vibrance {
			return col.Hex()
		}
	}
	return toColorful(clusters[0]).Hex()
}

func toColorful(c prominentcolor.ColorItem) colorful.Color {
	return colorful.Color{
		R: float64(c.Color.R) / 255,
		G: float64(c.Color.G) / 255,
		B: float64(c.Color.B) / 255,
	}
}
