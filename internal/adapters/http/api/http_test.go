package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/okian/stylist/internal/adapters/http/api"
	"github.com/okian/stylist/internal/adapters/mq/queue"
	"github.com/okian/stylist/internal/adapters/repository"
	service "github.com/okian/stylist/internal/app"
	"github.com/okian/stylist/internal/domain/collage"
	"github.com/okian/stylist/internal/domain/model"
	"github.com/okian/stylist/internal/domain/quiz"
	"github.com/okian/stylist/internal/domain/selection"
	"github.com/okian/stylist/internal/domain/types"
	. "github.com/smartystreets/goconvey/convey"
)

// pngMagic is enough for content sniffing; the fake never decodes it.
var pngMagic = []byte("\x89PNG\r\n\x1a\n0000")

type mockDeps struct {
	err       error
	uploads   []types.Upload
	duplicate bool
	answered  []string
	relabel   model.Category
	preview   model.Preview
}

func (m *mockDeps) Quiz() []quiz.Question { return quiz.Questions() }

func (m *mockDeps) CreateSession(context.Context) (types.SessionView, error) {
	return types.SessionView{ID: "s1", Answers: []string{}}, m.err
}

func (m *mockDeps) Session(_ context.Context, id string) (types.SessionView, error) {
	return types.SessionView{ID: id, Answers: []string{}}, m.err
}

func (m *mockDeps) DeleteSession(context.Context, string) error { return m.err }

func (m *mockDeps) Answer(_ context.Context, id string, q int, a string) (types.SessionView, error) {
	m.answered = append(m.answered, fmt.Sprintf("%d=%s", q, a))
	return types.SessionView{ID: id, Answers: []string{a}}, m.err
}

func (m *mockDeps) ResetQuiz(_ context.Context, id string) (types.SessionView, error) {
	return types.SessionView{ID: id, Answers: []string{}}, m.err
}

func (m *mockDeps) Profile(context.Context, string) (quiz.Profile, error) {
	return quiz.Profile{ColorType: "Универсальный"}, m.err
}

func (m *mockDeps) AddItem(_ context.Context, _ string, up types.Upload) (types.ItemView, bool, error) {
	m.uploads = append(m.uploads, up)
	return types.ItemView{ID: "i1", Category: string(up.Category), Pending: true}, m.duplicate, m.err
}

func (m *mockDeps) Relabel(_ context.Context, _, itemID string, c model.Category) (types.ItemView, error) {
	m.relabel = c
	return types.ItemView{ID: itemID, Category: string(c)}, m.err
}

func (m *mockDeps) RemoveItem(_ context.Context, id, _ string) (types.SessionView, error) {
	return types.SessionView{ID: id}, m.err
}

func (m *mockDeps) GenerateOutfit(context.Context, string) (types.OutfitView, error) {
	return types.OutfitView{Kind: "dress", Score: 3.5, Rationale: "Стиль: Casual."}, m.err
}

func (m *mockDeps) Preview(context.Context, string) (model.Preview, error) {
	return m.preview, m.err
}

type mockStats struct{}

func (mockStats) GetStats(context.Context) types.Stats {
	return types.Stats{Sessions: 2, MaxItems: 5}
}

func newMux(deps api.Dependencies, opts ...api.Option) *http.ServeMux {
	mux := http.NewServeMux()
	api.NewServer(deps, mockStats{}, opts...).Register(context.Background(), mux)
	return mux
}

func do(mux http.Handler, method, path, body string) *httptest.ResponseRecorder {
	var r *http.Request
	if body == "" {
		r = httptest.NewRequest(method, path, nil)
	} else {
		r = httptest.NewRequest(method, path, strings.NewReader(body))
		r.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, r)
	return w
}

func upload(mux http.Handler, fields map[string]string, image []byte) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		_ = mw.WriteField(k, v)
	}
	if image != nil {
		fw, _ := mw.CreateFormFile("image", "item.png")
		_, _ = fw.Write(image)
	}
	_ = mw.Close()

	r := httptest.NewRequest(http.MethodPost, "/sessions/s1/items", &buf)
	r.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, r)
	return w
}

func errorCode(w *httptest.ResponseRecorder) string {
	var body struct {
		Code string `json:"code"`
	}
	_ = json.Unmarshal(w.Body.Bytes(), &body)
	return body.Code
}

func TestServer_Routes(t *testing.T) {
	Convey("Given a registered API server", t, func() {
		deps := &mockDeps{}
		mux := newMux(deps)

		Convey("Health serves Prometheus metrics", func() {
			w := do(mux, http.MethodGet, "/healthz", "")
			So(w.Code, ShouldEqual, http.StatusOK)
		})

		Convey("Stats are served as JSON", func() {
			w := do(mux, http.MethodGet, "/stats", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, `"sessions":2`)
		})

		Convey("Every response carries a request id", func() {
			w := do(mux, http.MethodGet, "/quiz", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Header().Get(api.RequestIDHeader), ShouldNotBeEmpty)

			r := httptest.NewRequest(http.MethodGet, "/quiz", nil)
			r.Header.Set(api.RequestIDHeader, "abc")
			w = httptest.NewRecorder()
			mux.ServeHTTP(w, r)
			So(w.Header().Get(api.RequestIDHeader), ShouldEqual, "abc")
		})

		Convey("The quiz lists three questions", func() {
			w := do(mux, http.MethodGet, "/quiz", "")
			var body struct {
				Questions []quiz.Question `json:"questions"`
			}
			So(json.Unmarshal(w.Body.Bytes(), &body), ShouldBeNil)
			So(body.Questions, ShouldHaveLength, 3)
		})

		Convey("Creating a session returns 201 with a location", func() {
			w := do(mux, http.MethodPost, "/sessions", "")
			So(w.Code, ShouldEqual, http.StatusCreated)
			So(w.Header().Get("Location"), ShouldEqual, "/sessions/s1")
		})

		Convey("Wrong methods are rejected by the mux", func() {
			w := do(mux, http.MethodPost, "/quiz", "")
			So(w.Code, ShouldEqual, http.StatusMethodNotAllowed)
		})

		Convey("Deleting a session returns 204", func() {
			w := do(mux, http.MethodDelete, "/sessions/s1", "")
			So(w.Code, ShouldEqual, http.StatusNoContent)
		})
	})
}

func TestServer_Quiz(t *testing.T) {
	Convey("Given a registered API server", t, func() {
		deps := &mockDeps{}
		mux := newMux(deps)

		Convey("An answer is recorded by question index", func() {
			w := do(mux, http.MethodPut, "/sessions/s1/quiz/1", `{"answer":"Груша"}`)
			So(w.Code, ShouldEqual, http.StatusOK)
			So(deps.answered, ShouldResemble, []string{"1=Груша"})
		})

		Convey("A missing answer fails validation", func() {
			w := do(mux, http.MethodPut, "/sessions/s1/quiz/0", `{"answer":""}`)
			So(w.Code, ShouldEqual, http.StatusBadRequest)
			So(errorCode(w), ShouldEqual, "bad_request")
		})

		Convey("A non-numeric question is a bad request", func() {
			w := do(mux, http.MethodPut, "/sessions/s1/quiz/first", `{"answer":"x"}`)
			So(w.Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("Unknown fields are rejected", func() {
			w := do(mux, http.MethodPut, "/sessions/s1/quiz/0", `{"answer":"x","extra":1}`)
			So(w.Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("Quiz errors map to 400", func() {
			deps.err = fmt.Errorf("record: %w", quiz.ErrOutOfOrder)
			w := do(mux, http.MethodPut, "/sessions/s1/quiz/2", `{"answer":"Casual"}`)
			So(w.Code, ShouldEqual, http.StatusBadRequest)
			So(errorCode(w), ShouldEqual, "out_of_order")
		})

		Convey("An incomplete profile is a conflict", func() {
			deps.err = selection.ErrQuizIncomplete
			w := do(mux, http.MethodGet, "/sessions/s1/profile", "")
			So(w.Code, ShouldEqual, http.StatusConflict)
			So(errorCode(w), ShouldEqual, "quiz_incomplete")
		})

		Convey("Restarting the quiz returns the session", func() {
			w := do(mux, http.MethodDelete, "/sessions/s1/quiz", "")
			So(w.Code, ShouldEqual, http.StatusOK)
		})
	})
}

func TestServer_Items(t *testing.T) {
	Convey("Given a registered API server", t, func() {
		deps := &mockDeps{}
		mux := newMux(deps)

		Convey("A multipart upload is accepted", func() {
			w := upload(mux, map[string]string{"category": "top", "upload_id": "u1"}, pngMagic)
			So(w.Code, ShouldEqual, http.StatusAccepted)
			So(deps.uploads, ShouldHaveLength, 1)
			So(deps.uploads[0].Category, ShouldEqual, model.CategoryTop)
			So(deps.uploads[0].UploadID, ShouldEqual, "u1")
			So(deps.uploads[0].Image, ShouldResemble, pngMagic)
		})

		Convey("A duplicate upload is acknowledged with 200", func() {
			deps.duplicate = true
			w := upload(mux, map[string]string{"category": "top", "upload_id": "u1"}, pngMagic)
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, `"duplicate":true`)
		})

		Convey("A missing category or image is a bad request", func() {
			So(upload(mux, map[string]string{}, pngMagic).Code, ShouldEqual, http.StatusBadRequest)
			So(upload(mux, map[string]string{"category": "top"}, nil).Code, ShouldEqual, http.StatusBadRequest)
			So(deps.uploads, ShouldBeEmpty)
		})

		Convey("Oversized uploads are rejected", func() {
			small := newMux(deps, api.WithMaxUploadBytes(64))
			w := upload(small, map[string]string{"category": "top"}, bytes.Repeat([]byte("x"), 1024))
			So(w.Code, ShouldEqual, http.StatusRequestEntityTooLarge)
		})

		Convey("A full wardrobe is a conflict", func() {
			deps.err = fmt.Errorf("add: %w", repository.ErrWardrobeFull)
			w := upload(mux, map[string]string{"category": "top"}, pngMagic)
			So(w.Code, ShouldEqual, http.StatusConflict)
			So(errorCode(w), ShouldEqual, "wardrobe_full")
		})

		Convey("A retry racing its first upload is a conflict", func() {
			deps.err = fmt.Errorf("key s/u1: %w", service.ErrUploadInProgress)
			w := upload(mux, map[string]string{"category": "top", "upload_id": "u1"}, pngMagic)
			So(w.Code, ShouldEqual, http.StatusConflict)
			So(errorCode(w), ShouldEqual, "upload_in_progress")
		})

		Convey("Queue backpressure is 429", func() {
			deps.err = fmt.Errorf("enqueue: %w", queue.ErrFull)
			w := upload(mux, map[string]string{"category": "top"}, pngMagic)
			So(w.Code, ShouldEqual, http.StatusTooManyRequests)
			So(errorCode(w), ShouldEqual, "backpressure")
		})

		Convey("Uploads beyond the burst are rate limited", func() {
			limited := newMux(deps, api.WithUploadRate(0.001, 1))
			So(upload(limited, map[string]string{"category": "top"}, pngMagic).Code, ShouldEqual, http.StatusAccepted)
			w := upload(limited, map[string]string{"category": "top"}, pngMagic)
			So(w.Code, ShouldEqual, http.StatusTooManyRequests)
			So(errorCode(w), ShouldEqual, "rate_limited")
			So(w.Header().Get("Retry-After"), ShouldEqual, "1")
		})

		Convey("Relabel validates the category", func() {
			w := do(mux, http.MethodPatch, "/sessions/s1/items/i1", `{"category":"shoes"}`)
			So(w.Code, ShouldEqual, http.StatusOK)
			So(deps.relabel, ShouldEqual, model.CategoryShoes)

			w = do(mux, http.MethodPatch, "/sessions/s1/items/i1", `{"category":"hat"}`)
			So(w.Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("Removing an unknown item is 404", func() {
			deps.err = repository.ErrItemNotFound
			w := do(mux, http.MethodDelete, "/sessions/s1/items/nope", "")
			So(w.Code, ShouldEqual, http.StatusNotFound)
			So(errorCode(w), ShouldEqual, "item_not_found")
		})
	})
}

func TestServer_Outfit(t *testing.T) {
	Convey("Given a registered API server", t, func() {
		deps := &mockDeps{}
		mux := newMux(deps)

		Convey("Generating returns the outfit", func() {
			w := do(mux, http.MethodPost, "/sessions/s1/outfit", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, `"kind":"dress"`)
		})

		Convey("Selection errors map to their statuses", func() {
			cases := []struct {
				err    error
				status int
				code   string
			}{
				{selection.ErrQuizIncomplete, http.StatusConflict, "quiz_incomplete"},
				{selection.ErrEmptyWardrobe, http.StatusConflict, "empty_wardrobe"},
				{selection.ErrInfeasible, http.StatusUnprocessableEntity, "infeasible"},
				{fmt.Errorf("render: source 1: %w", collage.ErrDecodeFailure), http.StatusUnprocessableEntity, "decode_failure"},
				{repository.ErrSessionNotFound, http.StatusNotFound, "session_not_found"},
				{service.ErrNotStarted, http.StatusServiceUnavailable, "unavailable"},
				{errors.New("boom"), http.StatusInternalServerError, "internal"},
			}
			for _, c := range cases {
				deps.err = c.err
				w := do(mux, http.MethodPost, "/sessions/s1/outfit", "")
				So(w.Code, ShouldEqual, c.status)
				So(errorCode(w), ShouldEqual, c.code)
			}
		})

		Convey("Server errors hide their message", func() {
			deps.err = errors.New("secret detail")
			w := do(mux, http.MethodPost, "/sessions/s1/outfit", "")
			So(w.Body.String(), ShouldNotContainSubstring, "secret detail")
		})

		Convey("The preview is served as raw bytes", func() {
			deps.preview = model.Preview{Image: []byte("jpegbytes"), ContentType: "image/jpeg"}
			w := do(mux, http.MethodGet, "/sessions/s1/outfit/preview", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Header().Get("Content-Type"), ShouldEqual, "image/jpeg")
			So(w.Body.String(), ShouldEqual, "jpegbytes")
		})

		Convey("A missing preview is 404", func() {
			deps.err = service.ErrNoPreview
			w := do(mux, http.MethodGet, "/sessions/s1/outfit/preview", "")
			So(w.Code, ShouldEqual, http.StatusNotFound)
			So(errorCode(w), ShouldEqual, "no_preview")
		})
	})
}

func TestErrorKinds(t *testing.T) {
	Convey("Kind helpers keep both errors matchable", t, func() {
		cause := errors.New("cause")
		err := api.WrapKind("op", api.ErrBadRequest, cause)
		So(errors.Is(err, api.ErrBadRequest), ShouldBeTrue)
		So(errors.Is(err, cause), ShouldBeTrue)
		So(err.Error(), ShouldEqual, "op: bad request: cause")

		So(api.NewKind("op", api.ErrBackpressure).Error(), ShouldEqual, "op: backpressure")
		So(errors.Is(api.WrapKind("op", api.ErrTooLarge, nil), api.ErrTooLarge), ShouldBeTrue)
		So(api.Wrap("op", nil), ShouldBeNil)
	})
}
