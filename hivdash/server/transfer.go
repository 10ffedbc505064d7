package server

import (
	"bytes"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"
	"time"

	"github.com/arthur-debert/hivdash/hivdash/export"
	imports "github.com/arthur-debert/hivdash/hivdash/import"
)

type importResponse struct {
	Summary  imports.Summary    `json:"summary"`
	Result   *imports.Result    `json:"result"`
	Progress []imports.Progress `json:"progress"`
}

// POST /api/import takes a CSV body or a multipart form with a "file" field.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	dryRun, err := parseBool(r.URL.Query().Get("dry_run"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	body, err := uploadedCSV(w, r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	defer body.Close()

	resp := importResponse{Progress: make([]imports.Progress, 0)}
	result, err := imports.Import(r.Context(), s.data, body, imports.Options{
		DryRun:     dryRun,
		Logger:     s.logger,
		OnProgress: func(p imports.Progress) { resp.Progress = append(resp.Progress, p) },
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	resp.Result = result
	resp.Summary = result.Summary()
	writeJSON(w, http.StatusOK, resp)
}

func uploadedCSV(w http.ResponseWriter, r *http.Request) (io.ReadCloser, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "multipart/form-data" {
		return r.Body, nil
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		return nil, invalid(fmt.Errorf("missing upload field \"file\": %w", err))
	}
	return file, nil
}

// GET /api/export?format=csv|json|yaml
// unimportableHeader carries the number of exported CSV rows the importer
// would skip.
const unimportableHeader = "X-Hivdash-Unimportable-Rows"

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	format, err := export.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		s.writeError(w, r, invalid(err))
		return
	}

	records, err := s.data.ListAll(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	now := time.Now()
	var buf bytes.Buffer
	if err := export.WriteRecords(&buf, records, format, now); err != nil {
		s.writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.Filename(format, now)))
	if format == export.CSV {
		if n := export.Unimportable(records); n > 0 {
			s.logger.Warn("exported rows will not import again", "rows", n, "records", len(records))
			w.Header().Set(unimportableHeader, strconv.Itoa(n))
		}
	}
	_, _ = w.Write(buf.Bytes())
}
