package stylectl

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/okian/stylist/internal/adapters/repository"
	"github.com/okian/stylist/internal/domain/model"
	"github.com/okian/stylist/internal/domain/quiz"
	"github.com/okian/stylist/pkg/logger"
)

// Sentinel errors for command-line input.
var (
	ErrBadGarment  = errors.New("garment must be category=path")
	ErrBadAnswers  = errors.New("quiz answers")
	ErrNoGarments  = errors.New("at least one garment is required")
	ErrUnsupported = errors.New("unsupported image type")
)

// Config holds one styling run.
type Config struct {
	BaseURL  string        // server for the run command
	Answers  []string      // one per question, option text or 1-based option number
	Garments []Garment     // uploaded in order
	Output   string        // preview path without extension
	Timeout  time.Duration // HTTP request timeout
	Logger   logger.Logger // nil discards
}

// Garment is a local image and the category it is filed under.
type Garment struct {
	Category model.Category
	Path     string
}

// ParseGarment reads "category=path".
func ParseGarment(s string) (Garment, error) {
	cat, path, ok := strings.Cut(s, "=")
	cat = strings.ToLower(strings.TrimSpace(cat))
	path = strings.TrimSpace(path)
	if !ok || cat == "" || path == "" {
		return Garment{}, fmt.Errorf("%q: %w", s, ErrBadGarment)
	}
	c := model.Category(cat)
	if !c.Valid() {
		return Garment{}, fmt.Errorf("%q: %w", cat, repository.ErrInvalidCategory)
	}
	return Garment{Category: c, Path: path}, nil
}

// ParseGarments parses every flag value, stopping at the first error.
func ParseGarments(values []string) ([]Garment, error) {
	if len(values) == 0 {
		return nil, ErrNoGarments
	}
	out := make([]Garment, 0, len(values))
	for _, v := range values {
		g, err := ParseGarment(v)
		if err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, nil
}

// ResolveAnswers maps each raw answer to an option label. A number picks
// the option by its 1-based position; anything else must match a label.
func ResolveAnswers(raw []string) ([]string, error) {
	qs := quiz.Questions()
	if len(raw) != len(qs) {
		return nil, fmt.Errorf("%w: want %d, got %d", ErrBadAnswers, len(qs), len(raw))
	}
	out := make([]string, len(raw))
	for i, r := range raw {
		r = strings.TrimSpace(r)
		if n, err := strconv.Atoi(r); err == nil {
			if n < 1 || n > len(qs[i].Options) {
				return nil, fmt.Errorf("%w: question %d has no option %d", ErrBadAnswers, i+1, n)
			}
			out[i] = qs[i].Options[n-1]
			continue
		}
		out[i] = r
	}
	return out, nil
}

// Validate checks the run can start before any request is sent.
func (c *Config) Validate() error {
	if len(c.Garments) == 0 {
		return ErrNoGarments
	}
	if _, err := ResolveAnswers(c.Answers); err != nil {
		return err
	}
	for _, g := range c.Garments {
		if _, err := os.Stat(g.Path); err != nil {
			return fmt.Errorf("garment %s: %w", g.Path, err)
		}
	}
	return nil
}

// previewPath adds the extension matching the preview's content type.
func previewPath(base, contentType string) (string, error) {
	if base == "" {
		base = DefaultOutput
	}
	var ext string
	switch contentType {
	case "image/jpeg":
		ext = ".jpg"
	case "image/png":
		ext = ".png"
	case "image/webp":
		ext = ".webp"
	case "image/gif":
		ext = ".gif"
	default:
		return "", fmt.Errorf("%q: %w", contentType, ErrUnsupported)
	}
	if filepath.Ext(base) == ext {
		return base, nil
	}
	return base + ext, nil
}
