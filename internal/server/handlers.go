package server

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/matzehuels/pivotview/pkg/buildinfo"
	"github.com/matzehuels/pivotview/pkg/errors"
	"github.com/matzehuels/pivotview/pkg/pipeline"
	"github.com/matzehuels/pivotview/pkg/pivot"
)

// contentTypes maps output formats to response content types.
var contentTypes = map[string]string{
	pipeline.FormatText: "text/plain; charset=utf-8",
	pipeline.FormatJSON: "application/json",
	pipeline.FormatXLSX: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	pipeline.FormatDOT:  "text/vnd.graphviz",
	pipeline.FormatSVG:  "image/svg+xml",
}

// RenderResponse is the body of POST /v1/render. Artifacts are base64
// encoded by encoding/json.
type RenderResponse struct {
	RequestID string             `json:"request_id"`
	View      *pivot.View        `json:"view"`
	Artifacts map[string][]byte  `json:"artifacts"`
	Cache     pipeline.CacheInfo `json:"cache"`
	Timings   timings            `json:"timings_ms"`
}

type timings struct {
	Fetch   int64 `json:"fetch"`
	Compute int64 `json:"compute"`
	Render  int64 `json:"render"`
}

// DistinctRequest is the body of POST /v1/distinct.
type DistinctRequest struct {
	Source string `json:"source"`
	Field  string `json:"field"`
}

// DistinctResponse is the answer to POST /v1/distinct.
type DistinctResponse struct {
	Field  string   `json:"field"`
	Values []string `json:"values"`
}

// ErrorResponse is the body of every error answer.
type ErrorResponse struct {
	Code      errors.Code `json:"code"`
	Message   string      `json:"message"`
	RequestID string      `json:"request_id,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, buildinfo.Get())
}

func (s *Server) handleRender(w http.ResponseWriter, r *http.Request) {
	opts, ok := s.decodeOptions(w, r)
	if !ok {
		return
	}
	result, err := s.runnerFor(r).Execute(r.Context(), opts)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, RenderResponse{
		RequestID: RequestIDFrom(r.Context()),
		View:      result.View,
		Artifacts: result.Artifacts,
		Cache:     result.CacheInfo,
		Timings: timings{
			Fetch:   result.Stats.FetchTime.Milliseconds(),
			Compute: result.Stats.ComputeTime.Milliseconds(),
			Render:  result.Stats.RenderTime.Milliseconds(),
		},
	})
}

func (s *Server) handleRenderFormat(w http.ResponseWriter, r *http.Request) {
	format := chi.URLParam(r, "format")
	if err := pipeline.ValidateFormat(format); err != nil {
		s.writeError(w, r, err)
		return
	}
	opts, ok := s.decodeOptions(w, r)
	if !ok {
		return
	}
	opts.Formats = []string{format}

	result, err := s.runnerFor(r).Execute(r.Context(), opts)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", contentTypes[format])
	if result.CacheInfo.RenderHit {
		w.Header().Set("X-Cache", "hit")
	} else {
		w.Header().Set("X-Cache", "miss")
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(result.Artifacts[format])
}

func (s *Server) handleDistinct(w http.ResponseWriter, r *http.Request) {
	var req DistinctRequest
	if !s.decode(w, r, &req) {
		return
	}
	opts := pipeline.Options{Source: req.Source}
	if err := s.prepare(&opts); err != nil {
		s.writeError(w, r, err)
		return
	}
	values, err := s.runnerFor(r).Distinct(r.Context(), opts, req.Field)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if values == nil {
		values = []string{}
	}
	writeJSON(w, http.StatusOK, DistinctResponse{Field: req.Field, Values: values})
}

func (s *Server) decodeOptions(w http.ResponseWriter, r *http.Request) (pipeline.Options, bool) {
	var opts pipeline.Options
	if !s.decode(w, r, &opts) {
		return opts, false
	}
	if err := s.prepare(&opts); err != nil {
		s.writeError(w, r, err)
		return opts, false
	}
	return opts, true
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		s.writeError(w, r, errors.Wrap(errors.ErrCodeInvalidInput, err, "decode request body"))
		return false
	}
	return true
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := errors.HTTPStatus(err)
	code := errors.GetCode(err)
	if code == "" {
		code = errors.ErrCodeInternal
	}
	if status >= http.StatusInternalServerError {
		s.cfg.Logger.Error("request failed", "id", RequestIDFrom(r.Context()), "err", err)
	}
	writeJSON(w, status, ErrorResponse{
		Code:      code,
		Message:   errors.UserMessage(err),
		RequestID: RequestIDFrom(r.Context()),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
