// Package service provides the core business service that implements
// the dependencies required by the HTTP API and the offline CLI.
package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/okian/stylist/internal/adapters/extractor"
	"github.com/okian/stylist/internal/adapters/mq/queue"
	"github.com/okian/stylist/internal/adapters/mq/worker"
	"github.com/okian/stylist/internal/adapters/repository"
	"github.com/okian/stylist/internal/domain/collage"
	"github.com/okian/stylist/internal/domain/dedupe"
	"github.com/okian/stylist/internal/domain/model"
	"github.com/okian/stylist/internal/domain/palette"
	"github.com/okian/stylist/internal/domain/quiz"
	"github.com/okian/stylist/internal/domain/rationale"
	"github.com/okian/stylist/internal/domain/scoring"
	"github.com/okian/stylist/internal/domain/selection"
	"github.com/okian/stylist/internal/domain/types"
	"github.com/okian/stylist/pkg/logger"
	"github.com/okian/stylist/pkg/metrics"
)

// Default service configuration.
const (
	defaultQueueSize  = 256
	defaultDedupeSize = 10000
	defaultColorWait  = 5 * time.Second
	defaultSessionTTL = time.Hour
)

// Service runs quiz sessions, colour extraction and outfit generation.
type Service struct {
	mu sync.RWMutex

	// Core components
	store      *repository.MemoryStore
	deduper    dedupe.Deduper
	queue      *queue.InMemoryQueue
	pool       *worker.Pool
	extractor  extractor.Extractor
	selector   *selection.Selector
	compositor *collage.Compositor

	// Configuration
	workerCount    int
	queueSize      int
	dedupeSize     int
	maxItems       int
	sessionTTL     time.Duration
	colorWait      time.Duration
	extractTimeout time.Duration
	defaultColor   string
	jpegQuality    int

	// Counters
	selections  atomic.Int64
	extractions atomic.Int64
	fallbacks   atomic.Int64

	// State
	started   bool
	startedAt time.Time
	cancel    context.CancelFunc

	logger logger.Logger
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		workerCount:  runtime.NumCPU(),
		queueSize:    defaultQueueSize,
		dedupeSize:   defaultDedupeSize,
		maxItems:     repository.DefaultMaxItems,
		sessionTTL:   defaultSessionTTL,
		colorWait:    defaultColorWait,
		defaultColor: palette.DefaultColor,
		jpegQuality:  collage.DefaultQuality,
		logger:       logger.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if norm, err := palette.Normalize(s.defaultColor); err == nil {
		s.defaultColor = norm
	} else {
		s.defaultColor = palette.DefaultColor
	}
	return s
}

// Start initializes and starts the service components.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	s.logger.Info(ctx, "starting stylist service...")

	// Components outlive the request that started them.
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.cancel = cancel

	s.store = repository.NewMemoryStore(runCtx,
		repository.WithMaxItems(s.maxItems),
		repository.WithSessionTTL(s.sessionTTL),
	)
	s.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.dedupeSize))
	s.queue = queue.NewInMemoryQueue(queue.WithCapacity(s.queueSize))
	s.selector = selection.NewSelector(
		selection.WithScorer(scoring.NewRuleScorer(scoring.WithDefaultColor(s.defaultColor))),
		selection.WithLogger(s.logger.Named("selection")),
	)
	s.compositor = collage.New(
		collage.WithQuality(s.jpegQuality),
		collage.WithLogger(s.logger.Named("collage")),
	)
	if s.extractor == nil {
		s.extractor = extractor.NewProminent()
	}

	wopts := []worker.Option{
		worker.WithLogger(s.logger),
		worker.WithDefaultColor(s.defaultColor),
		worker.WithResultHook(s.countExtraction),
	}
	if s.extractTimeout > 0 {
		wopts = append(wopts, worker.WithExtractTimeout(s.extractTimeout))
	}
	s.pool = worker.NewPool(s.workerCount, s.queue, s.extractor, s.store, wopts...)
	s.pool.Start(runCtx)

	s.started = true
	s.startedAt = time.Now()
	s.logger.Info(ctx, "stylist service started",
		logger.Int("workers", s.pool.Size()),
		logger.Int("queueSize", s.queueSize),
		logger.Int("maxItems", s.maxItems),
		logger.Duration("sessionTTL", s.sessionTTL),
	)
	return nil
}

// Stop gracefully shuts down the service. Queued extractions are abandoned.
func (s *Service) Stop(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	s.logger.Info(ctx, "stopping stylist service...")

	if err := s.pool.Shutdown(ctx); err != nil {
		s.logger.Warn(ctx, "worker pool shutdown", logger.Error(err))
	}
	_ = s.store.Close()
	s.cancel()

	s.started = false
	s.logger.Info(ctx, "stylist service stopped")
}

func (s *Service) countExtraction(fallback bool) {
	s.extractions.Add(1)
	if fallback {
		s.fallbacks.Add(1)
	}
}

func (s *Service) ready() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return ErrNotStarted
	}
	return nil
}

// Quiz returns the questionnaire.
func (s *Service) Quiz() []quiz.Question {
	return quiz.Questions()
}

// CreateSession starts an empty session.
func (s *Service) CreateSession(ctx context.Context) (types.SessionView, error) {
	if err := s.ready(); err != nil {
		return types.SessionView{}, err
	}
	sess, err := s.store.Create(ctx)
	if err != nil {
		return types.SessionView{}, err
	}
	s.logger.Debug(ctx, "session created", logger.String("session", sess.ID))
	return view(sess), nil
}

// Session returns a session without image bytes.
func (s *Service) Session(ctx context.Context, id string) (types.SessionView, error) {
	if err := s.ready(); err != nil {
		return types.SessionView{}, err
	}
	sess, err := s.store.Get(ctx, id)
	if err != nil {
		return types.SessionView{}, err
	}
	return view(sess), nil
}

// Answer records the answer to one question.
func (s *Service) Answer(ctx context.Context, id string, question int, answer string) (types.SessionView, error) {
	if err := s.ready(); err != nil {
		return types.SessionView{}, err
	}
	sess, err := s.store.RecordAnswer(ctx, id, question, answer)
	if err != nil {
		return types.SessionView{}, err
	}
	return view(sess), nil
}

// ResetQuiz clears all answers of a session.
func (s *Service) ResetQuiz(ctx context.Context, id string) (types.SessionView, error) {
	if err := s.ready(); err != nil {
		return types.SessionView{}, err
	}
	sess, err := s.store.ResetQuiz(ctx, id)
	if err != nil {
		return types.SessionView{}, err
	}
	return view(sess), nil
}

// Profile returns the post-quiz summary. The quiz must be complete.
func (s *Service) Profile(ctx context.Context, id string) (quiz.Profile, error) {
	if err := s.ready(); err != nil {
		return quiz.Profile{}, err
	}
	sess, err := s.store.Get(ctx, id)
	if err != nil {
		return quiz.Profile{}, err
	}
	answers := quiz.Answers(sess.Answers)
	if !answers.Complete() {
		return quiz.Profile{}, fmt.Errorf("profile: %w", selection.ErrQuizIncomplete)
	}
	return quiz.Summarize(answers), nil
}

// AddItem stores an uploaded garment and queues its colour extraction.
// A repeated UploadID returns the item stored first and duplicate=true.
func (s *Service) AddItem(ctx context.Context, id string, up types.Upload) (item types.ItemView, duplicate bool, err error) {
	if err := s.ready(); err != nil {
		return types.ItemView{}, false, err
	}
	if !up.Category.Valid() {
		metrics.RecordUploadRejected("category")
		return types.ItemView{}, false, fmt.Errorf("category %q: %w", up.Category, repository.ErrInvalidCategory)
	}
	contentType := http.DetectContentType(up.Image)
	if len(up.Image) == 0 || !strings.HasPrefix(contentType, "image/") {
		metrics.RecordUploadRejected("content_type")
		return types.ItemView{}, false, fmt.Errorf("content type %q: %w", contentType, ErrInvalidImage)
	}

	it := model.Item{
		ID:          uuid.NewString(),
		Category:    up.Category,
		Image:       up.Image,
		ContentType: contentType,
	}

	var key string
	if up.UploadID != "" {
		key = dedupe.Key(id, up.UploadID)
		view, dup, err := s.claimUpload(ctx, id, key, it.ID)
		if err != nil || dup {
			return view, dup, err
		}
	}

	sess, err := s.store.AddItem(ctx, id, it)
	if err != nil {
		if key != "" {
			s.deduper.Forget(ctx, key)
		}
		if errors.Is(err, repository.ErrWardrobeFull) {
			metrics.RecordUploadRejected("wardrobe_full")
		}
		return types.ItemView{}, false, err
	}
	stored, _ := sess.Item(it.ID)

	if !s.queue.Enqueue(ctx, queue.Job{SessionID: id, ItemID: it.ID, Image: it.Image}) {
		// Roll back so the wardrobe never holds an item nobody will resolve.
		if _, rerr := s.store.RemoveItem(ctx, id, it.ID); rerr != nil {
			s.logger.Error(ctx, "rollback failed", logger.String("item", it.ID), logger.Error(rerr))
		}
		if key != "" {
			s.deduper.Forget(ctx, key)
		}
		metrics.RecordUploadRejected("backpressure")
		return types.ItemView{}, false, fmt.Errorf("enqueue %s: %w", it.ID, queue.ErrFull)
	}

	if key != "" {
		s.deduper.Commit(ctx, key)
	}
	metrics.RecordUpload()
	s.logger.Debug(ctx, "item added",
		logger.String("session", id),
		logger.String("item", it.ID),
		logger.String("category", string(it.Category)),
	)
	return types.NewItemView(stored), false, nil
}

// claimUpload claims key for itemID. A committed key returns the item it
// produced with dup=true; a key still in flight is ErrUploadInProgress.
// A committed key whose item is gone is stale and is claimed afresh.
func (s *Service) claimUpload(ctx context.Context, id, key, itemID string) (types.ItemView, bool, error) {
	first, status := s.deduper.Claim(ctx, key, itemID)
	switch status {
	case dedupe.Claimed:
		return types.ItemView{}, false, nil
	case dedupe.InFlight:
		metrics.RecordUploadRejected("in_progress")
		return types.ItemView{}, false, fmt.Errorf("key %s: %w", key, ErrUploadInProgress)
	}

	sess, err := s.store.Get(ctx, id)
	if err != nil {
		return types.ItemView{}, false, err
	}
	if existing, ok := sess.Item(first); ok {
		metrics.RecordUploadDuplicate()
		s.logger.Debug(ctx, "duplicate upload",
			logger.String("session", id),
			logger.String("key", key),
			logger.String("item", first),
		)
		return types.NewItemView(existing), true, nil
	}

	s.deduper.Forget(ctx, key)
	if _, status := s.deduper.Claim(ctx, key, itemID); status != dedupe.Claimed {
		return types.ItemView{}, false, fmt.Errorf("key %s: %w", key, ErrUploadInProgress)
	}
	return types.ItemView{}, false, nil
}

// Relabel changes the category of an item.
func (s *Service) Relabel(ctx context.Context, id, itemID string, category model.Category) (types.ItemView, error) {
	if err := s.ready(); err != nil {
		return types.ItemView{}, err
	}
	it, err := s.store.Relabel(ctx, id, itemID, category)
	if err != nil {
		return types.ItemView{}, err
	}
	return types.NewItemView(it), nil
}

// RemoveItem deletes an item from the wardrobe.
func (s *Service) RemoveItem(ctx context.Context, id, itemID string) (types.SessionView, error) {
	if err := s.ready(); err != nil {
		return types.SessionView{}, err
	}
	sess, err := s.store.RemoveItem(ctx, id, itemID)
	if err != nil {
		return types.SessionView{}, err
	}
	s.deduper.ForgetItem(ctx, itemID)
	return view(sess), nil
}

// GenerateOutfit selects the best outfit and renders its preview.
//
// Pending colour extractions are awaited up to the colour wait timeout;
// items still pending after that score with the default colour.
func (s *Service) GenerateOutfit(ctx context.Context, id string) (out types.OutfitView, err error) {
	if err := s.ready(); err != nil {
		return types.OutfitView{}, err
	}
	start := time.Now()
	defer func() {
		metrics.RecordSelection(outcomeOf(err), time.Since(start))
	}()

	sess, err := s.store.Get(ctx, id)
	if err != nil {
		return types.OutfitView{}, err
	}
	answers := quiz.Answers(sess.Answers)

	if sess.Pending > 0 && answers.Complete() {
		sess, err = s.awaitColors(ctx, id)
		if err != nil {
			return types.OutfitView{}, err
		}
	}

	items := make([]model.Item, len(sess.Items))
	for i, it := range sess.Items {
		if it.Pending() {
			it.Color = s.defaultColor
		}
		items[i] = it
	}

	selectStart := time.Now()
	outfit, err := s.selector.Select(ctx, items, answers)
	metrics.RecordSelectionLatency(time.Since(selectStart))
	if err != nil {
		return types.OutfitView{}, err
	}
	s.selections.Add(1)
	why := rationale.Explain(outfit, answers)

	composeStart := time.Now()
	sources := make([][]byte, len(outfit.Items))
	for i, it := range outfit.Items {
		sources[i] = it.Image
	}
	img, err := s.compositor.Render(ctx, sources)
	if err != nil {
		return types.OutfitView{}, fmt.Errorf("render preview: %w", err)
	}
	metrics.RecordCompose(time.Since(composeStart))

	contentType := collage.ContentType
	if len(outfit.Items) == 1 {
		contentType = outfit.Items[0].ContentType
	}
	if err := s.store.SetPreview(ctx, id, model.Preview{
		Outfit:      outfit,
		Rationale:   why,
		Image:       img,
		ContentType: contentType,
	}); err != nil {
		return types.OutfitView{}, err
	}

	s.logger.Info(ctx, "outfit generated",
		logger.String("session", id),
		logger.String("kind", string(outfit.Kind)),
		logger.Float64("score", outfit.Score),
		logger.Int("items", len(outfit.Items)),
	)
	return types.NewOutfitView(outfit, why, PreviewPath(id)), nil
}

// awaitColors waits for pending extractions and returns a fresh snapshot.
func (s *Service) awaitColors(ctx context.Context, id string) (model.Session, error) {
	waitCtx, cancel := context.WithTimeout(ctx, s.colorWait)
	defer cancel()

	err := s.store.AwaitColors(waitCtx, id)
	switch {
	case err == nil:
	case errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil:
		metrics.RecordColorWaitTimeout()
		s.logger.Warn(ctx, "colour extraction still pending, using default colour",
			logger.String("session", id),
			logger.Duration("waited", s.colorWait),
		)
	default:
		return model.Session{}, err
	}
	return s.store.Get(ctx, id)
}

// Preview returns the last rendered preview.
func (s *Service) Preview(ctx context.Context, id string) (model.Preview, error) {
	if err := s.ready(); err != nil {
		return model.Preview{}, err
	}
	sess, err := s.store.Get(ctx, id)
	if err != nil {
		return model.Preview{}, err
	}
	if sess.Preview == nil {
		return model.Preview{}, fmt.Errorf("session %s: %w", id, ErrNoPreview)
	}
	return *sess.Preview, nil
}

// DeleteSession drops a session and everything it holds, upload keys included.
func (s *Service) DeleteSession(ctx context.Context, id string) error {
	if err := s.ready(); err != nil {
		return err
	}
	sess, err := s.store.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	for _, it := range sess.Items {
		s.deduper.ForgetItem(ctx, it.ID)
	}
	return nil
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats(ctx context.Context) types.Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := types.Stats{
		Workers:        s.workerCount,
		QueueCapacity:  s.queueSize,
		MaxItems:       s.maxItems,
		SessionTTLSecs: s.sessionTTL.Seconds(),
		Selections:     s.selections.Load(),
		Extractions:    s.extractions.Load(),
		Fallbacks:      s.fallbacks.Load(),
	}
	if !s.started {
		return st
	}

	rs := s.store.Stats(ctx)
	st.Sessions = rs.Sessions
	st.Items = rs.Items
	st.PendingColors = rs.Pending
	st.QueueDepth = s.queue.Len(ctx)
	st.Workers = s.pool.Size()
	st.DedupeSize = s.deduper.Size()
	st.UptimeSeconds = time.Since(s.startedAt).Seconds()
	return st
}

// PreviewPath is where the preview of session id is served.
func PreviewPath(id string) string {
	return "/sessions/" + id + "/outfit/preview"
}

func view(sess model.Session) types.SessionView {
	return types.NewSessionView(sess, quiz.Answers(sess.Answers).Complete())
}

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return metrics.OutcomeOK
	case errors.Is(err, selection.ErrQuizIncomplete):
		return metrics.OutcomeQuizIncomplete
	case errors.Is(err, selection.ErrEmptyWardrobe):
		return metrics.OutcomeEmptyWardrobe
	case errors.Is(err, selection.ErrInfeasible):
		return metrics.OutcomeInfeasible
	default:
		return metrics.OutcomeError
	}
}
