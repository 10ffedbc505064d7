package server

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/arthur-debert/hivdash/hivdash/entry"
	"github.com/arthur-debert/hivdash/hivdash/table"
)

// textValue accepts a JSON string, number or null as text, so clients may
// send {"year": 1990} or {"year": "1990"}.
type textValue string

func (t *textValue) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*t = ""
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*t = textValue(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("expected a string or number, got %s", data)
	}
	*t = textValue(n.String())
	return nil
}

type recordInput struct {
	Entity    textValue `json:"entity"`
	Code      textValue `json:"code"`
	Year      textValue `json:"year"`
	Deaths    textValue `json:"deaths"`
	Incidence textValue `json:"incidence"`
}

func (in recordInput) form() entry.Form {
	return entry.Form{
		Entity:    string(in.Entity),
		Code:      string(in.Code),
		Year:      string(in.Year),
		Deaths:    string(in.Deaths),
		Incidence: string(in.Incidence),
	}
}

func (in recordInput) draft() table.Draft {
	return table.Draft{
		Entity:    string(in.Entity),
		Code:      string(in.Code),
		Year:      string(in.Year),
		Deaths:    string(in.Deaths),
		Incidence: string(in.Incidence),
	}
}

func decodeRecordInput(r *http.Request) (recordInput, error) {
	var in recordInput
	dec := json.NewDecoder(io.LimitReader(r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&in); err != nil {
		return in, invalid(fmt.Errorf("invalid request body: %w", err))
	}
	return in, nil
}

// GET /api/records?q=&sort=&order=
func (s *Server) handleListRecords(w http.ResponseWriter, r *http.Request) {
	records, err := s.data.Snapshot(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	q := r.URL.Query()
	var sort *table.SortState
	if name := q.Get("sort"); name != "" {
		col, err := table.ParseColumn(name)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		dir := table.Ascending
		switch q.Get("order") {
		case "", "asc", string(table.Ascending):
		case "desc", string(table.Descending):
			dir = table.Descending
		default:
			s.writeError(w, r, invalid(fmt.Errorf("invalid order %q (want asc or desc)", q.Get("order"))))
			return
		}
		sort = &table.SortState{Column: col, Direction: dir}
	}

	rows := table.View(records, q.Get("q"), sort)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"count":   len(rows),
		"records": rows,
	})
}

func (s *Server) handleCreateRecord(w http.ResponseWriter, r *http.Request) {
	in, err := decodeRecordInput(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	form := in.form()
	id, err := form.Submit(r.Context(), s.data, s.logger)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	rec, err := s.data.Get(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.Header().Set("Location", "/api/records/"+id)
	writeJSON(w, http.StatusCreated, rec)
}

func (s *Server) handleGetRecord(w http.ResponseWriter, r *http.Request) {
	rec, err := s.data.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// PUT overwrites every editable field, as the table's Save does.
func (s *Server) handleUpdateRecord(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	in, err := decodeRecordInput(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	if err := s.data.Update(r.Context(), id, in.draft().Update()); err != nil {
		s.writeError(w, r, err)
		return
	}

	rec, err := s.data.Get(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleDeleteRecord(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.data.Delete(r.Context(), id); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func parseBool(s string) (bool, error) {
	if s == "" {
		return false, nil
	}
	v, err := strconv.ParseBool(s)
	if err != nil {
		return false, invalid(fmt.Errorf("invalid boolean %q", s))
	}
	return v, nil
}
