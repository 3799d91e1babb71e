package http

import (
	"bytes"
	"errors"
	"net/http"

	"cattlevalue/internal/core"
	"cattlevalue/internal/herd"
	"cattlevalue/internal/log"
)

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	s.renderPage(w, r, "index.html", "")
}

func (s *Server) handleHerdList(w http.ResponseWriter, r *http.Request) {
	s.renderPage(w, r, "herd_list.html", "")
}

func (s *Server) handleAddCattle(w http.ResponseWriter, r *http.Request) {
	form, err := ParseCattleForm(r)
	if err != nil {
		s.writeMutationError(w, r, log.OpAdd, err)
		return
	}
	if _, err := s.herd.Add(r.Context(), form.Type, form.Weight); err != nil {
		s.writeMutationError(w, r, log.OpAdd, err)
		return
	}
	s.writeHerdChanged(w, r, "Cattle added", true)
}

func (s *Server) handleEditCattle(w http.ResponseWriter, r *http.Request) {
	id := sanitizeInput(r.PathValue("id"))
	form, err := ParseCattleForm(r)
	if err != nil {
		s.writeMutationError(w, r, log.OpEdit, err)
		return
	}
	if _, err := s.herd.Edit(r.Context(), id, form.Type, form.Weight); err != nil {
		s.writeMutationError(w, r, log.OpEdit, err)
		return
	}
	s.writeHerdChanged(w, r, "Cattle updated", false)
}

func (s *Server) handleRemoveCattle(w http.ResponseWriter, r *http.Request) {
	id := sanitizeInput(r.PathValue("id"))
	if err := s.herd.Remove(r.Context(), id); err != nil {
		s.writeMutationError(w, r, log.OpRemove, err)
		return
	}
	s.writeHerdChanged(w, r, "Cattle removed", false)
}

func (s *Server) handleClearHerd(w http.ResponseWriter, r *http.Request) {
	if err := s.herd.Clear(r.Context()); err != nil {
		s.writeMutationError(w, r, log.OpClear, err)
		return
	}
	s.writeHerdChanged(w, r, "Herd cleared", false)
}

// writeHerdChanged renders the refreshed list partial and raises the
// herd:changed event so the page refetches its charts.
func (s *Server) writeHerdChanged(w http.ResponseWriter, r *http.Request, message string, resetForm bool) {
	h, version := s.herd.Snapshot()
	body, err := s.render("herd_list.html", buildHerdView(h, version, s.herd.Dataset().Types()))
	if err != nil {
		s.events.LogError(r.Context(), "Failed to render herd list", err, log.ComponentHTTP, log.OpRender,
			log.NewFields().WithErrorType(log.ErrorTypeInternal))
		InternalServerError("The herd was saved but the list could not be rendered.").Write(w)
		return
	}
	resp := NewHTMXResponse().
		TriggerHerdChanged(version, len(h)).
		TriggerSuccessNotification(message).
		BodyHTML(body)
	if resetForm {
		resp.TriggerFormReset()
	}
	resp.Write(w)
}

func (s *Server) writeMutationError(w http.ResponseWriter, r *http.Request, op string, err error) {
	var fe *FieldError
	switch {
	case errors.As(err, &fe):
		UnprocessableEntityError(validationMessage(err)).Write(w)
	case errors.Is(err, core.ErrEmptyType):
		UnprocessableEntityError(validationMessage(&FieldError{Field: "type", Err: err})).Write(w)
	case errors.Is(err, core.ErrInvalidWeight):
		UnprocessableEntityError(validationMessage(&FieldError{Field: "weight", Err: err})).Write(w)
	case errors.Is(err, ErrMalformedForm):
		log.FromContext(r.Context()).WarnContext(r.Context(), "Unreadable cattle form",
			log.FieldOperation, log.OpParse,
			log.FieldErrorType, log.ErrorTypeValidation,
			log.FieldError, err)
		BadRequestError("The form could not be read. Please reload the page and try again.").Write(w)
	case errors.Is(err, herd.ErrNotFound):
		NotFoundError("That animal is no longer in the herd.").Write(w)
	default:
		s.events.LogError(r.Context(), "Herd mutation failed", err, log.ComponentHerd, op,
			log.NewFields().WithErrorType(log.ErrorTypeDatabase))
		InternalServerError("Could not save the herd. Please try again.").Write(w)
	}
}

func (s *Server) renderPage(w http.ResponseWriter, r *http.Request, name, errMsg string) {
	h, version := s.herd.Snapshot()
	view := buildHerdView(h, version, s.herd.Dataset().Types())
	view.Error = errMsg
	body, err := s.render(name, view)
	if err != nil {
		s.events.LogError(r.Context(), "Template render failed", err, log.ComponentHTTP, log.OpRender,
			log.NewFields().WithHerd(len(h), version).WithErrorType(log.ErrorTypeInternal))
		http.Error(w, "template error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(body)
}

// render executes into a buffer so a failing template never leaves a
// half-written response.
func (s *Server) render(name string, data any) ([]byte, error) {
	if s.templates == nil {
		return nil, errTemplatesUnavailable
	}
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

var errTemplatesUnavailable = errors.New("templates not loaded")
