package api

import (
	"errors"
	"io"
	"net/http"

	"github.com/okian/stylist/internal/domain/model"
	"github.com/okian/stylist/internal/domain/types"
)

// IdempotencyKeyHeader may carry the upload id instead of the form field.
const IdempotencyKeyHeader = "Idempotency-Key"

type uploadForm struct {
	Category string `validate:"required"`
	UploadID string `validate:"omitempty,max=128"`
}

type relabelRequest struct {
	Category string `json:"category" validate:"required,oneof=top bottom dress outer shoes accessory"`
}

type itemResponse struct {
	Item      types.ItemView `json:"item"`
	Duplicate bool           `json:"duplicate"`
}

func (s *Server) handleAddItem(w http.ResponseWriter, r *http.Request) {
	const op = "api.add_item"

	if r.ContentLength > s.maxUploadBytes {
		s.fail(w, r, op, NewKind(op, ErrTooLarge))
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes)
	if err := r.ParseMultipartForm(s.maxUploadBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.fail(w, r, op, WrapKind(op, ErrTooLarge, err))
			return
		}
		s.fail(w, r, op, WrapKind(op, ErrBadRequest, err))
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	form := uploadForm{
		Category: r.FormValue("category"),
		UploadID: r.FormValue("upload_id"),
	}
	if form.UploadID == "" {
		form.UploadID = r.Header.Get(IdempotencyKeyHeader)
	}
	if err := s.validate.Struct(form); err != nil {
		s.fail(w, r, op, WrapKind(op, ErrBadRequest, err))
		return
	}

	file, _, err := r.FormFile("image")
	if err != nil {
		s.fail(w, r, op, WrapKind(op, ErrBadRequest, err))
		return
	}
	defer func() { _ = file.Close() }()
	img, err := io.ReadAll(file)
	if err != nil {
		s.fail(w, r, op, WrapKind(op, ErrBadRequest, err))
		return
	}

	item, duplicate, err := s.deps.AddItem(r.Context(), r.PathValue("id"), types.Upload{
		Category: model.Category(form.Category),
		Image:    img,
		UploadID: form.UploadID,
	})
	if err != nil {
		s.fail(w, r, op, err)
		return
	}
	status := http.StatusAccepted
	if duplicate {
		status = http.StatusOK
	}
	writeJSON(w, status, itemResponse{Item: item, Duplicate: duplicate})
}

func (s *Server) handleRelabel(w http.ResponseWriter, r *http.Request) {
	const op = "api.relabel"
	var req relabelRequest
	if err := s.decodeJSON(w, r, op, &req); err != nil {
		s.fail(w, r, op, err)
		return
	}
	item, err := s.deps.Relabel(r.Context(), r.PathValue("id"), r.PathValue("item"), model.Category(req.Category))
	if err != nil {
		s.fail(w, r, op, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (s *Server) handleRemoveItem(w http.ResponseWriter, r *http.Request) {
	const op = "api.remove_item"
	v, err := s.deps.RemoveItem(r.Context(), r.PathValue("id"), r.PathValue("item"))
	if err != nil {
		s.fail(w, r, op, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}
