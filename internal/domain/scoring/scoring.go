// Package scoring rates single garments and top/bottom pairs against quiz preferences.
//
// Rules are additive and independent; higher is better and scores are not normalized.
package scoring

import (
	"github.com/okian/stylist/internal/domain/model"
	"github.com/okian/stylist/internal/domain/palette"
	"github.com/okian/stylist/internal/domain/quiz"
)

// Rule weights.
const (
	colorMatchBonus   = 2.0
	noPreferenceBonus = 1.0
	pearBonus         = 1.5
	hourglassBonus    = 1.0
	minimalismBonus   = 1.5
	bohoWarmBonus     = 1.0
	casualBonus       = 0.5
	comboSameTone     = 2.0
	comboMixedTone    = 0.5
	comboPearContrast = 2.0
)

// Scorer computes item and pair scores. Implementations must be pure.
type Scorer interface {
	// ScoreItem rates item in the given role.
	ScoreItem(item model.Item, role model.Role, p quiz.Preferences) float64
	// ScoreCombo rates the compatibility of a top and a bottom.
	ScoreCombo(top, bottom model.Item, bodyType string) float64
}

// Option applies a configuration option to the RuleScorer.
type Option func(*RuleScorer)

// WithDefaultColor sets the colour assumed for items whose colour is still absent.
func WithDefaultColor(hex string) Option {
	return func(s *RuleScorer) {
		if _, err := palette.Parse(hex); err == nil {
			s.defaultColor = hex
		}
	}
}

// RuleScorer implements Scorer with the fixed rule table.
type RuleScorer struct {
	defaultColor string
}

// NewRuleScorer creates a rule scorer with configuration options.
func NewRuleScorer(opts ...Option) *RuleScorer {
	s := &RuleScorer{defaultColor: palette.DefaultColor}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ColorOf returns the colour used for scoring item.
func (s *RuleScorer) ColorOf(item model.Item) string {
	if item.Pending() {
		return s.defaultColor
	}
	return item.Color
}

// ScoreItem rates item in the given role.
func (s *RuleScorer) ScoreItem(item model.Item, role model.Role, p quiz.Preferences) float64 {
	color := s.ColorOf(item)
	warm := palette.IsWarm(color)
	score := 0.0

	if p.WantsWarm && warm {
		score += colorMatchBonus
	}
	if p.WantsCool && !warm {
		score += colorMatchBonus
	}
	if !p.WantsWarm && !p.WantsCool {
		score += noPreferenceBonus
	}

	switch p.BodyType {
	case quiz.BodyPear:
		if role == model.RoleTop && warm {
			score += pearBonus
		}
		if role == model.RoleBottom && !warm {
			score += pearBonus
		}
	case quiz.BodyHourglass:
		if role == model.RoleTop || role == model.RoleBottom || role == model.RoleDress {
			score += hourglassBonus
		}
	}

	switch p.Style {
	case quiz.StyleMinimalism:
		if palette.IsNeutral(color) {
			score += minimalismBonus
		}
	case quiz.StyleBoho:
		if warm {
			score += bohoWarmBonus
		}
	case quiz.StyleCasual:
		score += casualBonus
	}

	return score
}

// ScoreCombo rates a top/bottom pair. Only tops and bottoms are ever passed.
func (s *RuleScorer) ScoreCombo(top, bottom model.Item, bodyType string) float64 {
	topWarm := palette.IsWarm(s.ColorOf(top))
	bottomWarm := palette.IsWarm(s.ColorOf(bottom))

	score := comboMixedTone
	if topWarm == bottomWarm {
		score = comboSameTone
	}
	if bodyType == quiz.BodyPear && topWarm && !bottomWarm {
		score += comboPearContrast
	}
	return score
}
