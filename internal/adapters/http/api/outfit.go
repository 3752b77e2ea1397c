package api

import (
	"net/http"
	"strconv"
)

func (s *Server) handleGenerateOutfit(w http.ResponseWriter, r *http.Request) {
	const op = "api.generate_outfit"
	out, err := s.deps.GenerateOutfit(r.Context(), r.PathValue("id"))
	if err != nil {
		s.fail(w, r, op, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	const op = "api.preview"
	p, err := s.deps.Preview(r.Context(), r.PathValue("id"))
	if err != nil {
		s.fail(w, r, op, err)
		return
	}
	contentType := p.ContentType
	if contentType == "" {
		contentType = http.DetectContentType(p.Image)
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(p.Image)))
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(p.Image)
}
