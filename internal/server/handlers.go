package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/muurk/serlink/internal/logging"
	"github.com/muurk/serlink/internal/settings"
)

// maxBodySize bounds JSON request bodies.
const maxBodySize = 64 << 10

// UpdateResponse is the body returned by PUT /api/settings.
type UpdateResponse struct {
	Settings settings.Snapshot `json:"settings"`
	Warnings []string          `json:"warnings,omitempty"`
}

// ErrorResponse is the JSON error body of the API routes.
type ErrorResponse struct {
	Error   string   `json:"error"`
	Type    string   `json:"type,omitempty"`
	Details []string `json:"details,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// handlePage applies a form submission carried in the query, if any, and
// renders the settings page.
func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	if err := s.applyForm(r); err != nil {
		writeFormError(w, err)
		return
	}
	s.writePage(w)
}

// handleBoot is handlePage followed by a reboot once the page is sent.
func (s *Server) handleBoot(w http.ResponseWriter, r *http.Request) {
	if err := s.applyForm(r); err != nil {
		writeFormError(w, err)
		return
	}
	if !s.writePage(w) {
		return
	}
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
	s.scheduleReboot("settings page")
}

func (s *Server) applyForm(r *http.Request) error {
	values := r.URL.Query()
	if !settings.IsFormSubmission(values) {
		return nil
	}

	_, warnings, err := s.store.Update("form", s.config.MaxPorts, func(cur *settings.Snapshot) error {
		next, err := settings.DecodeForm(*cur, values)
		if err != nil {
			return err
		}
		*cur = next
		return nil
	})
	for _, w := range warnings {
		logging.Warn("Settings warning", zap.String("source", "form"), zap.Error(w))
	}
	return err
}

// writePage renders the current snapshot. It reports whether the page
// was written.
func (s *Server) writePage(w http.ResponseWriter) bool {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if _, err := s.renderer.Render(w, s.store.Snapshot()); err != nil {
		logging.Error("Failed to render settings page", zap.Error(err))
		http.Error(w, err.Error(), renderStatus(err))
		return false
	}
	return true
}

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.store.Snapshot())
}

func (s *Server) handlePutSettings(w http.ResponseWriter, r *http.Request) {
	var snap settings.Snapshot

	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodySize))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&snap); err != nil {
		writeAPIError(w, settings.NewParseError("body", "invalid settings JSON", err))
		return
	}
	if err := settings.ValidateEncoding(snap); err != nil {
		writeAPIError(w, err)
		return
	}

	stored, warnings, err := s.store.Replace("api", s.config.MaxPorts, snap)
	if err != nil {
		writeAPIError(w, err)
		return
	}

	resp := UpdateResponse{Settings: stored}
	for _, w := range warnings {
		resp.Warnings = append(resp.Warnings, w.Error())
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleReboot(w http.ResponseWriter, r *http.Request) {
	if s.config.Reboot == nil {
		writeJSON(w, http.StatusNotImplemented, ErrorResponse{Error: "reboot is not supported"})
		return
	}
	w.WriteHeader(http.StatusAccepted)
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
	s.scheduleReboot("api")
}

// renderStatus maps render failures to HTTP status codes.
func renderStatus(err error) int {
	if settings.IsInvalidPortCount(err) {
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

// apiStatus maps update failures to HTTP status codes.
func apiStatus(err error) int {
	switch {
	case settings.IsInvalidPortCount(err):
		return http.StatusUnprocessableEntity
	case settings.IsValidationError(err), settings.IsInvalidEnumValue(err),
		settings.IsParseError(err), settings.IsEncodingFailure(err):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// formStatus maps form submission failures to HTTP status codes. Only
// rejected input is the client's fault.
func formStatus(err error) int {
	switch {
	case settings.IsValidationError(err), settings.IsInvalidEnumValue(err),
		settings.IsParseError(err), settings.IsEncodingFailure(err),
		settings.IsInvalidPortCount(err):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func writeFormError(w http.ResponseWriter, err error) {
	status := formStatus(err)
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	if status == http.StatusInternalServerError {
		logging.Error("Failed to apply settings form", zap.Error(err))
		_, _ = fmt.Fprintln(w, "failed to save settings")
		return
	}
	_, _ = fmt.Fprint(w, settings.FormatValidationErrors(unjoin(err)))
}

func writeAPIError(w http.ResponseWriter, err error) {
	resp := ErrorResponse{Error: "settings rejected"}

	var se *settings.Error
	if errors.As(err, &se) {
		resp.Type = se.Type.String()
	}
	for _, e := range unjoin(err) {
		resp.Details = append(resp.Details, e.Error())
	}

	writeJSON(w, apiStatus(err), resp)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Debug("Failed to write JSON response", zap.Error(err))
	}
}

// unjoin flattens an errors.Join result into its parts.
func unjoin(err error) []error {
	if err == nil {
		return nil
	}
	if j, ok := err.(interface{ Unwrap() []error }); ok {
		var out []error
		for _, e := range j.Unwrap() {
			out = append(out, unjoin(e)...)
		}
		return out
	}
	return []error{err}
}
