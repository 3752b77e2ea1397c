// Package selection picks the best outfit from a wardrobe snapshot.
//
// The search is exhaustive: every dress, then every top x bottom pair in
// row-major wardrobe order, tracked with a single running best. A later
// candidate replaces the best only when it scores strictly higher, so ties
// go to the first candidate seen. Shoes are chosen independently afterwards.
package selection

import (
	"context"
	"fmt"
	"math"

	"github.com/okian/stylist/internal/domain/model"
	"github.com/okian/stylist/internal/domain/quiz"
	"github.com/okian/stylist/internal/domain/scoring"
	"github.com/okian/stylist/pkg/logger"
)

// Option configures a Selector.
type Option func(*Selector)

// WithScorer replaces the default rule scorer.
func WithScorer(s scoring.Scorer) Option {
	return func(sel *Selector) {
		if s != nil {
			sel.scorer = s
		}
	}
}

// WithLogger sets the logger used for debug output.
func WithLogger(l logger.Logger) Option {
	return func(sel *Selector) {
		if l != nil {
			sel.log = l
		}
	}
}

// Selector runs outfit selection. It holds no per-call state and is safe for concurrent use.
type Selector struct {
	scorer scoring.Scorer
	log    logger.Logger
}

// NewSelector creates a selector with configuration options.
func NewSelector(opts ...Option) *Selector {
	s := &Selector{
		scorer: scoring.NewRuleScorer(),
		log:    logger.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type wardrobe struct {
	tops, bottoms, dresses, shoes []model.Item
}

// partition splits items by the categories selection uses. Outer and accessory items are skipped.
func partition(items []model.Item) wardrobe {
	var w wardrobe
	for _, it := range items {
		switch it.Category {
		case model.CategoryTop:
			w.tops = append(w.tops, it)
		case model.CategoryBottom:
			w.bottoms = append(w.bottoms, it)
		case model.CategoryDress:
			w.dresses = append(w.dresses, it)
		case model.CategoryShoes:
			w.shoes = append(w.shoes, it)
		}
	}
	return w
}

// Select returns the best outfit for items under answers.
// Items are read only; the returned outfit holds copies.
func (s *Selector) Select(ctx context.Context, items []model.Item, answers quiz.Answers) (model.Outfit, error) {
	if !answers.Complete() {
		return model.Outfit{}, fmt.Errorf("select: %d of %d answers: %w", len(answers), quiz.Count, ErrQuizIncomplete)
	}
	if len(items) == 0 {
		return model.Outfit{}, fmt.Errorf("select: %w", ErrEmptyWardrobe)
	}

	p := quiz.PreferencesFrom(answers)
	w := partition(items)

	var (
		best  model.Outfit
		found bool
	)
	s.enumerate(w, p, func(c model.ScoredCandidate) {
		if !found || c.Score > best.Score {
			best = c.Candidate
			found = true
		}
	})
	if !found {
		return model.Outfit{}, fmt.Errorf("select: %d items: %w", len(items), ErrInfeasible)
	}

	if shoe, score, ok := s.bestShoe(w.shoes, p); ok {
		best.Items = append(best.Items, shoe)
		s.log.Debug(ctx, "shoe appended", logger.String("item", shoe.ID), logger.Float64("score", score))
	}

	s.log.Debug(ctx, "outfit selected",
		logger.String("kind", string(best.Kind)),
		logger.Int("items", len(best.Items)),
		logger.Float64("score", best.Score),
	)
	return best, nil
}

// Candidates returns every scored candidate in enumeration order, without shoes.
// It does not check answer completeness.
func (s *Selector) Candidates(items []model.Item, answers quiz.Answers) []model.ScoredCandidate {
	p := quiz.PreferencesFrom(answers)
	var out []model.ScoredCandidate
	s.enumerate(partition(items), p, func(c model.ScoredCandidate) {
		out = append(out, c)
	})
	return out
}

// enumerate visits dresses in wardrobe order, then top x bottom pairs row-major.
func (s *Selector) enumerate(w wardrobe, p quiz.Preferences, visit func(model.ScoredCandidate)) {
	for _, d := range w.dresses {
		score := s.scorer.ScoreItem(d, model.RoleDress, p)
		visit(model.ScoredCandidate{
			Candidate: model.Outfit{Kind: model.OutfitDress, Items: []model.Item{d}, Score: score},
			Score:     score,
		})
	}
	for _, top := range w.tops {
		topScore := s.scorer.ScoreItem(top, model.RoleTop, p)
		for _, bottom := range w.bottoms {
			score := topScore +
				s.scorer.ScoreItem(bottom, model.RoleBottom, p) +
				s.scorer.ScoreCombo(top, bottom, p.BodyType)
			visit(model.ScoredCandidate{
				Candidate: model.Outfit{Kind: model.OutfitSeparates, Items: []model.Item{top, bottom}, Score: score},
				Score:     score,
			})
		}
	}
}

// bestShoe returns the highest scoring shoe; the first one wins ties.
func (s *Selector) bestShoe(shoes []model.Item, p quiz.Preferences) (model.Item, float64, bool) {
	var (
		best      model.Item
		bestScore = math.Inf(-1)
	)
	for _, shoe := range shoes {
		if score := s.scorer.ScoreItem(shoe, model.RoleShoe, p); score > bestScore {
			best, bestScore = shoe, score
		}
	}
	return best, bestScore, len(shoes) > 0
}
