package stylectl

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/okian/stylist/internal/domain/model"
	"github.com/okian/stylist/internal/domain/types"
	"github.com/okian/stylist/pkg/logger"
)

// Backend is what a styling run drives: the HTTP client or the in-process service.
type Backend interface {
	CreateSession(ctx context.Context) (types.SessionView, error)
	Answer(ctx context.Context, id string, question int, answer string) (types.SessionView, error)
	AddItem(ctx context.Context, id string, up types.Upload) (types.ItemView, bool, error)
	GenerateOutfit(ctx context.Context, id string) (types.OutfitView, error)
	Preview(ctx context.Context, id string) (model.Preview, error)
}

// Result is what one run produced.
type Result struct {
	SessionID   string
	Items       []types.ItemView
	Outfit      types.OutfitView
	PreviewFile string
	Duration    time.Duration
}

// Run answers the quiz, uploads every garment, generates the outfit and
// writes its preview next to cfg.Output.
func Run(ctx context.Context, b Backend, cfg *Config) (*Result, error) {
	start := time.Now()
	log := cfg.Logger
	if log == nil {
		log = logger.Nop()
	}

	answers, err := ResolveAnswers(cfg.Answers)
	if err != nil {
		return nil, err
	}

	sess, err := b.CreateSession(ctx)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	res := &Result{SessionID: sess.ID}
	log.Info(ctx, "session created", logger.String("session", sess.ID))

	for i, a := range answers {
		if _, err := b.Answer(ctx, sess.ID, i, a); err != nil {
			return res, fmt.Errorf("answer question %d: %w", i+1, err)
		}
	}

	for i, g := range cfg.Garments {
		img, err := os.ReadFile(g.Path)
		if err != nil {
			return res, fmt.Errorf("read garment %s: %w", g.Path, err)
		}
		item, dup, err := b.AddItem(ctx, sess.ID, types.Upload{
			Category: g.Category,
			Image:    img,
			UploadID: fmt.Sprintf("%s-%d", sess.ID, i),
		})
		if err != nil {
			return res, fmt.Errorf("upload %s: %w", g.Path, err)
		}
		res.Items = append(res.Items, item)
		log.Debug(ctx, "garment uploaded",
			logger.String("path", g.Path),
			logger.String("item", item.ID),
			logger.String("label", item.Label),
			logger.Bool("duplicate", dup))
	}

	outfit, err := b.GenerateOutfit(ctx, sess.ID)
	if err != nil {
		return res, fmt.Errorf("generate outfit: %w", err)
	}
	res.Outfit = outfit

	preview, err := b.Preview(ctx, sess.ID)
	if err != nil {
		return res, fmt.Errorf("fetch preview: %w", err)
	}
	if res.PreviewFile, err = savePreview(cfg.Output, preview); err != nil {
		return res, err
	}

	res.Duration = time.Since(start)
	log.Info(ctx, "outfit ready",
		logger.String("kind", outfit.Kind),
		logger.Float64("score", outfit.Score),
		logger.String("preview", res.PreviewFile),
		logger.Duration("took", res.Duration))
	return res, nil
}

func savePreview(base string, p model.Preview) (string, error) {
	path, err := previewPath(base, p.ContentType)
	if err != nil {
		return "", err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, directoryPermission); err != nil {
			return "", fmt.Errorf("create directory: %w", err)
		}
	}
	if err := os.WriteFile(path, p.Image, filePermission); err != nil {
		return "", fmt.Errorf("write preview: %w", err)
	}
	return path, nil
}
