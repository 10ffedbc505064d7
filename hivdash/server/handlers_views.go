package server

import (
	"bytes"
	"net/http"
	"strings"

	"github.com/arthur-debert/hivdash/hivdash/charts"
)

func (s *Server) handleView(w http.ResponseWriter, r *http.Request) {
	s.viewHandler(r.PathValue("view"))(w, r)
}

func (s *Server) viewHandler(name string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		params, err := ParseParams(r.URL.Query())
		if err != nil {
			s.writeError(w, r, invalid(err))
			return
		}
		records, err := s.data.Snapshot(r.Context())
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		view, err := BuildView(name, records, s.world, params)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, view)
	}
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	params, err := ParseParams(r.URL.Query())
	if err != nil {
		s.writeError(w, r, invalid(err))
		return
	}
	records, err := s.data.Snapshot(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	d, err := BuildDashboard(r.Context(), records, s.world, params)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// GET /charts/{view}.{png|svg}
func (s *Server) handleChart(w http.ResponseWriter, r *http.Request) {
	file := r.PathValue("file")
	dot := strings.LastIndexByte(file, '.')
	if dot < 0 {
		s.writeError(w, r, invalid(errMissingExtension))
		return
	}
	format, err := charts.ParseFormat(file[dot+1:])
	if err != nil {
		s.writeError(w, r, invalid(err))
		return
	}
	params, err := ParseParams(r.URL.Query())
	if err != nil {
		s.writeError(w, r, invalid(err))
		return
	}
	records, err := s.data.Snapshot(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	var buf bytes.Buffer
	if err := RenderChart(&buf, file[:dot], records, params, format, charts.Size{}); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", format.ContentType())
	_, _ = w.Write(buf.Bytes())
}
