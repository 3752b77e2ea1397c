// Package palette classifies representative garment colours.
//
// The warm/cool rule compares only the red and blue channels; green is ignored.
package palette

import (
	"errors"
	"fmt"
	"strings"

	colorful "github.com/lucasb-eyer/go-colorful"
)

// DefaultColor substitutes for a colour that is absent or could not be extracted.
const DefaultColor = "#cccccc"

// ErrMalformed is returned for strings that are not 3 or 6 digit hex colours.
var ErrMalformed = errors.New("malformed hex colour")

// neutrals is the minimalism palette, compared case-insensitively and verbatim.
var neutrals = []string{"#000000", "#ffffff", "#cccccc", "#eeeeee", "#333333"}

// Resolve returns hex, or DefaultColor when hex is empty.
func Resolve(hex string) string {
	if strings.TrimSpace(hex) == "" {
		return DefaultColor
	}
	return hex
}

// Parse converts a 3 or 6 digit hex colour with optional leading '#'.
func Parse(hex string) (colorful.Color, error) {
	digits := strings.TrimPrefix(strings.TrimSpace(hex), "#")
	if len(digits) != 3 && len(digits) != 6 {
		return colorful.Color{}, fmt.Errorf("%q: %w", hex, ErrMalformed)
	}
	for _, r := range digits {
		if !isHexDigit(r) {
			return colorful.Color{}, fmt.Errorf("%q: %w", hex, ErrMalformed)
		}
	}
	c, err := colorful.Hex("#" + digits)
	if err != nil {
		return colorful.Color{}, fmt.Errorf("%q: %w: %w", hex, ErrMalformed, err)
	}
	return c, nil
}

// Normalize returns hex in lowercase "#rrggbb" form.
func Normalize(hex string) (string, error) {
	c, err := Parse(hex)
	if err != nil {
		return "", err
	}
	return c.Hex(), nil
}

// IsWarm reports whether the red channel exceeds the blue channel.
// Malformed input is never warm.
func IsWarm(hex string) bool {
	c, err := Parse(hex)
	if err != nil {
		return false
	}
	return c.R > c.B
}

// IsNeutral reports whether hex is one of the minimalism neutrals, ignoring case.
// Shorthand forms such as "#fff" do not match.
func IsNeutral(hex string) bool {
	for _, n := range neutrals {
		if strings.EqualFold(n, hex) {
			return true
		}
	}
	return false
}

func isHexDigit(r rune) bool {
	return (r >= '0' && r <= '9') || (r >= 'a' && r <= 'f') || (r >= 'A' && r <= 'F')
}
