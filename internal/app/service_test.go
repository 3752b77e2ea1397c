package service_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"sync"
	"testing"
	"time"

	"github.com/okian/stylist/internal/adapters/extractor"
	"github.com/okian/stylist/internal/adapters/mq/queue"
	"github.com/okian/stylist/internal/adapters/repository"
	service "github.com/okian/stylist/internal/app"
	"github.com/okian/stylist/internal/domain/model"
	"github.com/okian/stylist/internal/domain/quiz"
	"github.com/okian/stylist/internal/domain/selection"
	"github.com/okian/stylist/internal/domain/types"
	"github.com/okian/stylist/pkg/metrics"
	. "github.com/smartystreets/goconvey/convey"
)

var (
	warmRed  = color.RGBA{R: 200, G: 60, B: 40, A: 255}
	coolBlue = color.RGBA{R: 40, G: 60, B: 200, A: 255}
)

func solidPNG(c color.Color) []byte {
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

// pixelExtractor reports the colour of the top-left pixel.
var pixelExtractor = extractor.Func(func(_ context.Context, img image.Image) (string, error) {
	r, g, b, _ := img.At(img.Bounds().Min.X, img.Bounds().Min.Y).RGBA()
	return fmt.Sprintf("#%02x%02x%02x", r>>8, g>>8, b>>8), nil
})

// gatedExtractor blocks until gate is closed.
func gatedExtractor(gate <-chan struct{}) extractor.Extractor {
	return extractor.Func(func(ctx context.Context, img image.Image) (string, error) {
		select {
		case <-gate:
			return pixelExtractor(ctx, img)
		case <-ctx.Done():
			return "", ctx.Err()
		}
	})
}

func started(ctx context.Context, opts ...service.Option) *service.Service {
	svc := service.New(append([]service.Option{service.WithWorkerCount(2)}, opts...)...)
	So(svc.Start(ctx), ShouldBeNil)
	return svc
}

func answerAll(ctx context.Context, svc *service.Service, id string, answers ...string) {
	for i, a := range answers {
		_, err := svc.Answer(ctx, id, i, a)
		So(err, ShouldBeNil)
	}
}

func waitSettled(ctx context.Context, svc *service.Service, id string) types.SessionView {
	deadline := time.Now().Add(2 * time.Second)
	for {
		v, err := svc.Session(ctx, id)
		So(err, ShouldBeNil)
		if v.Pending == 0 || time.Now().After(deadline) {
			return v
		}
		time.Sleep(5 * time.Millisecond)
	}
}

const warmAnswer = "Тёплые: беж, олива, терракота"

func TestService_Lifecycle(t *testing.T) {
	Convey("Given a service that has not been started", t, func() {
		ctx := context.Background()
		svc := service.New()

		Convey("Then operations report it", func() {
			_, err := svc.CreateSession(ctx)
			So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)
			So(svc.GetStats(ctx).Sessions, ShouldEqual, 0)
		})

		Convey("When started twice and stopped twice", func() {
			So(svc.Start(ctx), ShouldBeNil)
			So(svc.Start(ctx), ShouldBeNil)
			svc.Stop(ctx)
			svc.Stop(ctx)

			_, err := svc.CreateSession(ctx)
			So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)
		})

		Convey("The questionnaire is available without starting", func() {
			So(svc.Quiz(), ShouldHaveLength, quiz.Count)
		})
	})
}

func TestService_Quiz(t *testing.T) {
	Convey("Given a started service with a session", t, func() {
		ctx := context.Background()
		svc := started(ctx, service.WithExtractor(pixelExtractor))
		defer svc.Stop(ctx)

		sess, err := svc.CreateSession(ctx)
		So(err, ShouldBeNil)
		So(sess.ID, ShouldNotBeEmpty)
		So(sess.Answers, ShouldBeEmpty)

		Convey("Questions must be answered in order", func() {
			_, err := svc.Answer(ctx, sess.ID, 1, quiz.BodyPear)
			So(errors.Is(err, quiz.ErrOutOfOrder), ShouldBeTrue)
		})

		Convey("Unknown options are rejected", func() {
			_, err := svc.Answer(ctx, sess.ID, 0, "Фиолетовые")
			So(errors.Is(err, quiz.ErrUnknownAnswer), ShouldBeTrue)
		})

		Convey("The profile needs a complete quiz", func() {
			_, err := svc.Profile(ctx, sess.ID)
			So(errors.Is(err, selection.ErrQuizIncomplete), ShouldBeTrue)

			answerAll(ctx, svc, sess.ID, warmAnswer, quiz.BodyPear, quiz.StyleBoho)
			p, err := svc.Profile(ctx, sess.ID)
			So(err, ShouldBeNil)
			So(p.ColorType, ShouldEqual, "Тёплая осень")
			So(p.Style, ShouldEqual, quiz.StyleBoho)
		})

		Convey("Restarting clears the answers", func() {
			answerAll(ctx, svc, sess.ID, warmAnswer, quiz.BodyPear)
			v, err := svc.ResetQuiz(ctx, sess.ID)
			So(err, ShouldBeNil)
			So(v.Answers, ShouldBeEmpty)
			So(v.QuizComplete, ShouldBeFalse)
		})

		Convey("Unknown sessions are not found", func() {
			_, err := svc.Answer(ctx, "nope", 0, warmAnswer)
			So(errors.Is(err, repository.ErrSessionNotFound), ShouldBeTrue)
		})
	})
}

func TestService_Wardrobe(t *testing.T) {
	Convey("Given a started service with a session", t, func() {
		ctx := context.Background()
		svc := started(ctx, service.WithExtractor(pixelExtractor))
		defer svc.Stop(ctx)

		sess, err := svc.CreateSession(ctx)
		So(err, ShouldBeNil)

		Convey("An uploaded item gets its colour extracted", func() {
			it, dup, err := svc.AddItem(ctx, sess.ID, types.Upload{Category: model.CategoryTop, Image: solidPNG(warmRed)})
			So(err, ShouldBeNil)
			So(dup, ShouldBeFalse)
			So(it.Label, ShouldEqual, "Топ / Верх")

			v := waitSettled(ctx, svc, sess.ID)
			So(v.Pending, ShouldEqual, 0)
			So(v.Items, ShouldHaveLength, 1)
			So(v.Items[0].Color, ShouldEqual, "#c83c28")

			st := svc.GetStats(ctx)
			So(st.Items, ShouldEqual, 1)
			So(st.Extractions, ShouldEqual, 1)
			So(st.Fallbacks, ShouldEqual, 0)
		})

		Convey("The sixth item is rejected", func() {
			for i := 0; i < 5; i++ {
				_, _, err := svc.AddItem(ctx, sess.ID, types.Upload{Category: model.CategoryTop, Image: solidPNG(warmRed)})
				So(err, ShouldBeNil)
			}
			_, _, err := svc.AddItem(ctx, sess.ID, types.Upload{Category: model.CategoryTop, Image: solidPNG(warmRed)})
			So(errors.Is(err, repository.ErrWardrobeFull), ShouldBeTrue)
		})

		Convey("Unknown categories and non-images are rejected", func() {
			_, _, err := svc.AddItem(ctx, sess.ID, types.Upload{Category: "hat", Image: solidPNG(warmRed)})
			So(errors.Is(err, repository.ErrInvalidCategory), ShouldBeTrue)

			_, _, err = svc.AddItem(ctx, sess.ID, types.Upload{Category: model.CategoryTop, Image: []byte("plain text")})
			So(errors.Is(err, service.ErrInvalidImage), ShouldBeTrue)
		})

		Convey("A repeated upload id is a duplicate", func() {
			up := types.Upload{Category: model.CategoryDress, Image: solidPNG(warmRed), UploadID: "u1"}
			first, dup, err := svc.AddItem(ctx, sess.ID, up)
			So(err, ShouldBeNil)
			So(dup, ShouldBeFalse)

			again, dup, err := svc.AddItem(ctx, sess.ID, up)
			So(err, ShouldBeNil)
			So(dup, ShouldBeTrue)
			So(again.ID, ShouldEqual, first.ID)

			v, err := svc.Session(ctx, sess.ID)
			So(err, ShouldBeNil)
			So(v.Items, ShouldHaveLength, 1)
		})

		Convey("A removed item frees its upload id for a fresh upload", func() {
			up := types.Upload{Category: model.CategoryTop, Image: solidPNG(warmRed), UploadID: "u1"}
			first, _, err := svc.AddItem(ctx, sess.ID, up)
			So(err, ShouldBeNil)
			_, err = svc.RemoveItem(ctx, sess.ID, first.ID)
			So(err, ShouldBeNil)
			So(svc.GetStats(ctx).DedupeSize, ShouldEqual, 0)

			again, dup, err := svc.AddItem(ctx, sess.ID, up)
			So(err, ShouldBeNil)
			So(dup, ShouldBeFalse)
			So(again.ID, ShouldNotEqual, first.ID)

			retry, dup, err := svc.AddItem(ctx, sess.ID, up)
			So(err, ShouldBeNil)
			So(dup, ShouldBeTrue)
			So(retry.ID, ShouldEqual, again.ID)

			v, err := svc.Session(ctx, sess.ID)
			So(err, ShouldBeNil)
			So(v.Items, ShouldHaveLength, 1)
		})

		Convey("Concurrent retries of one upload store a single item", func() {
			up := types.Upload{Category: model.CategoryTop, Image: solidPNG(warmRed), UploadID: "race"}
			type result struct {
				dup bool
				err error
			}
			results := make(chan result, 20)
			var wg sync.WaitGroup
			for i := 0; i < 20; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					_, dup, err := svc.AddItem(ctx, sess.ID, up)
					results <- result{dup: dup, err: err}
				}()
			}
			wg.Wait()
			close(results)

			fresh := 0
			for r := range results {
				if r.err != nil {
					So(errors.Is(r.err, service.ErrUploadInProgress), ShouldBeTrue)
					continue
				}
				if !r.dup {
					fresh++
				}
			}
			So(fresh, ShouldEqual, 1)

			v, err := svc.Session(ctx, sess.ID)
			So(err, ShouldBeNil)
			So(v.Items, ShouldHaveLength, 1)
		})

		Convey("Relabelling keeps the colour and removal drops the item", func() {
			it, _, err := svc.AddItem(ctx, sess.ID, types.Upload{Category: model.CategoryTop, Image: solidPNG(coolBlue)})
			So(err, ShouldBeNil)
			waitSettled(ctx, svc, sess.ID)

			relabelled, err := svc.Relabel(ctx, sess.ID, it.ID, model.CategoryBottom)
			So(err, ShouldBeNil)
			So(relabelled.Category, ShouldEqual, "bottom")
			So(relabelled.Color, ShouldEqual, "#283cc8")

			v, err := svc.RemoveItem(ctx, sess.ID, it.ID)
			So(err, ShouldBeNil)
			So(v.Items, ShouldBeEmpty)

			_, err = svc.RemoveItem(ctx, sess.ID, it.ID)
			So(errors.Is(err, repository.ErrItemNotFound), ShouldBeTrue)
		})

		Convey("A failed extraction falls back to the default colour", func() {
			failing := started(ctx,
				service.WithExtractor(extractor.Func(func(context.Context, image.Image) (string, error) {
					return "", extractor.ErrIndeterminate
				})),
				service.WithDefaultColor("#ABABAB"),
			)
			defer failing.Stop(ctx)

			s2, err := failing.CreateSession(ctx)
			So(err, ShouldBeNil)
			_, _, err = failing.AddItem(ctx, s2.ID, types.Upload{Category: model.CategoryTop, Image: solidPNG(warmRed)})
			So(err, ShouldBeNil)

			v := waitSettled(ctx, failing, s2.ID)
			So(v.Items[0].Color, ShouldEqual, "#ababab")
			So(failing.GetStats(ctx).Fallbacks, ShouldEqual, 1)
		})

		Convey("Deleting a session forgets it and its upload ids", func() {
			_, _, err := svc.AddItem(ctx, sess.ID, types.Upload{Category: model.CategoryTop, Image: solidPNG(warmRed), UploadID: "u9"})
			So(err, ShouldBeNil)
			So(svc.GetStats(ctx).DedupeSize, ShouldEqual, 1)

			So(svc.DeleteSession(ctx, sess.ID), ShouldBeNil)
			So(svc.GetStats(ctx).DedupeSize, ShouldEqual, 0)
			_, err = svc.Session(ctx, sess.ID)
			So(errors.Is(err, repository.ErrSessionNotFound), ShouldBeTrue)
		})
	})
}

func TestService_Backpressure(t *testing.T) {
	Convey("Given a single blocked worker and a queue of one", t, func() {
		ctx := context.Background()
		gate := make(chan struct{})
		svc := service.New(
			service.WithWorkerCount(1),
			service.WithQueueSize(1),
			service.WithMaxItems(10),
			service.WithExtractor(gatedExtractor(gate)),
		)
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop(ctx)
		defer close(gate)

		sess, err := svc.CreateSession(ctx)
		So(err, ShouldBeNil)

		Convey("Uploads eventually hit backpressure and are rolled back", func() {
			var (
				accepted int
				rejected error
			)
			for i := 0; i < 4 && rejected == nil; i++ {
				_, _, err := svc.AddItem(ctx, sess.ID, types.Upload{
					Category: model.CategoryTop,
					Image:    solidPNG(warmRed),
					UploadID: fmt.Sprintf("u%d", i),
				})
				if err != nil {
					rejected = err
					continue
				}
				accepted++
			}
			So(errors.Is(rejected, queue.ErrFull), ShouldBeTrue)

			v, err := svc.Session(ctx, sess.ID)
			So(err, ShouldBeNil)
			So(v.Items, ShouldHaveLength, accepted)
			So(v.Pending, ShouldEqual, accepted)
		})
	})
}

func TestService_GenerateOutfit(t *testing.T) {
	Convey("Given a started service with a session", t, func() {
		ctx := context.Background()
		svc := started(ctx, service.WithExtractor(pixelExtractor))
		defer svc.Stop(ctx)

		sess, err := svc.CreateSession(ctx)
		So(err, ShouldBeNil)

		add := func(cat model.Category, c color.Color) types.ItemView {
			it, _, err := svc.AddItem(ctx, sess.ID, types.Upload{Category: cat, Image: solidPNG(c)})
			So(err, ShouldBeNil)
			return it
		}

		Convey("An incomplete quiz is reported before an empty wardrobe", func() {
			_, err := svc.GenerateOutfit(ctx, sess.ID)
			So(errors.Is(err, selection.ErrQuizIncomplete), ShouldBeTrue)
		})

		Convey("An empty wardrobe is reported", func() {
			answerAll(ctx, svc, sess.ID, warmAnswer, quiz.BodyPear, quiz.StyleBoho)
			_, err := svc.GenerateOutfit(ctx, sess.ID)
			So(errors.Is(err, selection.ErrEmptyWardrobe), ShouldBeTrue)
		})

		Convey("Shoes alone are infeasible", func() {
			answerAll(ctx, svc, sess.ID, warmAnswer, quiz.BodyPear, quiz.StyleBoho)
			add(model.CategoryShoes, warmRed)
			_, err := svc.GenerateOutfit(ctx, sess.ID)
			So(errors.Is(err, selection.ErrInfeasible), ShouldBeTrue)

			_, err = svc.Preview(ctx, sess.ID)
			So(errors.Is(err, service.ErrNoPreview), ShouldBeTrue)
		})

		Convey("Separates with shoes are composed into a JPEG preview", func() {
			answerAll(ctx, svc, sess.ID, warmAnswer, quiz.BodyPear, quiz.StyleBoho)
			top := add(model.CategoryTop, warmRed)
			add(model.CategoryBottom, coolBlue)
			shoe := add(model.CategoryShoes, warmRed)

			out, err := svc.GenerateOutfit(ctx, sess.ID)
			So(err, ShouldBeNil)
			So(out.Kind, ShouldEqual, string(model.OutfitSeparates))
			So(out.Rows, ShouldHaveLength, 3)
			So(out.Rows[0].ItemID, ShouldEqual, top.ID)
			So(out.Rows[0].Color, ShouldEqual, "#c83c28")
			So(out.Rows[2].ItemID, ShouldEqual, shoe.ID)
			So(out.Score, ShouldBeGreaterThan, 0)
			So(out.Rationale, ShouldEndWith, "Стиль: Бохо/Романтика.")
			So(out.PreviewURL, ShouldEqual, service.PreviewPath(sess.ID))

			p, err := svc.Preview(ctx, sess.ID)
			So(err, ShouldBeNil)
			So(p.ContentType, ShouldEqual, "image/jpeg")
			cfg, _, err := image.DecodeConfig(bytes.NewReader(p.Image))
			So(err, ShouldBeNil)
			So(cfg.Width, ShouldEqual, 890)

			So(svc.GetStats(ctx).Selections, ShouldEqual, 1)
		})

		Convey("A single dress previews as the uploaded bytes", func() {
			answerAll(ctx, svc, sess.ID, warmAnswer, quiz.BodyHourglass, quiz.StyleCasual)
			src := solidPNG(warmRed)
			_, _, err := svc.AddItem(ctx, sess.ID, types.Upload{Category: model.CategoryDress, Image: src})
			So(err, ShouldBeNil)

			out, err := svc.GenerateOutfit(ctx, sess.ID)
			So(err, ShouldBeNil)
			So(out.Kind, ShouldEqual, string(model.OutfitDress))

			p, err := svc.Preview(ctx, sess.ID)
			So(err, ShouldBeNil)
			So(p.Image, ShouldResemble, src)
			So(p.ContentType, ShouldEqual, "image/png")
		})
	})

	Convey("Given extractions that never finish in time", t, func() {
		ctx := context.Background()
		gate := make(chan struct{})
		svc := started(ctx,
			service.WithExtractor(gatedExtractor(gate)),
			service.WithColorWaitTimeout(50*time.Millisecond),
		)
		defer svc.Stop(ctx)
		defer close(gate)

		sess, err := svc.CreateSession(ctx)
		So(err, ShouldBeNil)
		answerAll(ctx, svc, sess.ID, warmAnswer, quiz.BodyPear, quiz.StyleBoho)
		_, _, err = svc.AddItem(ctx, sess.ID, types.Upload{Category: model.CategoryDress, Image: solidPNG(warmRed)})
		So(err, ShouldBeNil)

		Convey("Then generation proceeds with the default colour", func() {
			start := time.Now()
			out, err := svc.GenerateOutfit(ctx, sess.ID)
			So(err, ShouldBeNil)
			So(time.Since(start), ShouldBeGreaterThanOrEqualTo, 50*time.Millisecond)
			So(out.Rows, ShouldHaveLength, 1)
			So(out.Rows[0].Color, ShouldEqual, "#cccccc")
		})

		Convey("Then the colour wait is not counted as selection time", func() {
			selSum, selCount := latency("stylist_outfits_selection_latency_milliseconds")
			genSum, genCount := latency("stylist_outfits_outfit_generation_latency_milliseconds")

			_, err := svc.GenerateOutfit(ctx, sess.ID)
			So(err, ShouldBeNil)

			selSum2, selCount2 := latency("stylist_outfits_selection_latency_milliseconds")
			genSum2, genCount2 := latency("stylist_outfits_outfit_generation_latency_milliseconds")
			So(selCount2, ShouldEqual, selCount+1)
			So(genCount2, ShouldEqual, genCount+1)
			So(selSum2-selSum, ShouldBeLessThan, 50)
			So(genSum2-genSum, ShouldBeGreaterThanOrEqualTo, 50)
		})
	})
}

// latency reads a histogram's sample sum and count from the metrics registry.
func latency(name string) (float64, uint64) {
	families, err := metrics.GetRegistry().Gather()
	if err != nil {
		return 0, 0
	}
	for _, f := range families {
		if f.GetName() == name {
			h := f.GetMetric()[0].GetHistogram()
			return h.GetSampleSum(), h.GetSampleCount()
		}
	}
	return 0, 0
}
