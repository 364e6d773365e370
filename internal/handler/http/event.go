package http

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/giftflow/giftflow/internal/service"
	"github.com/giftflow/giftflow/pkg/httputil"
	"github.com/giftflow/giftflow/pkg/middleware"
	"github.com/giftflow/giftflow/pkg/pagination"
)

// EventHandler handles gift event CRUD endpoints.
type EventHandler struct {
	events *service.EventService
	logger *slog.Logger
}

// NewEventHandler creates a new event HTTP handler.
func NewEventHandler(events *service.EventService, logger *slog.Logger) *EventHandler {
	return &EventHandler{events: events, logger: logger}
}

// Create handles POST /api/v1/events (auth required, multipart form with an
// optional cover image).
func (h *EventHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromContext(r.Context())

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_INPUT", Message: "invalid multipart form: " + err.Error()},
		})
		return
	}

	input := service.CreateEventInput{
		Name:        strings.TrimSpace(r.FormValue("name")),
		Description: strings.TrimSpace(r.FormValue("description")),
	}

	if raw := r.FormValue("date"); raw != "" {
		date, err := formDate(raw)
		if err != nil {
			httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
				Error: &httputil.ErrorResponse{Code: "INVALID_INPUT", Message: "invalid date: " + raw},
			})
			return
		}
		input.Date = date
	}

	image, err := formFile(r, "image")
	if err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_INPUT", Message: err.Error()},
		})
		return
	}
	input.Image = image

	event, err := h.events.Create(r.Context(), userID, input)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, httputil.Response{Data: event})
}

// Get handles GET /api/v1/events/{id}.
func (h *EventHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	event, err := h.events.Get(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: event})
}

// List handles GET /api/v1/events with page/per_page query parameters.
func (h *EventHandler) List(w http.ResponseWriter, r *http.Request) {
	params := pagination.FromRequest(r)

	events, total, err := h.events.List(r.Context(), params.PerPage, params.Offset)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, pagination.NewResult(events, total, params))
}

// ListMine handles GET /api/v1/events/mine (auth required).
func (h *EventHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromContext(r.Context())

	events, err := h.events.ListMine(r.Context(), userID)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: events})
}

// Update handles PATCH /api/v1/events/{id} (auth required, owner only,
// multipart form). Ownership and the collected total cannot be changed.
func (h *EventHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromContext(r.Context())
	id, ok := httputil.ParseID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_INPUT", Message: "invalid multipart form: " + err.Error()},
		})
		return
	}

	var input service.UpdateEventInput
	if values, ok := r.Form["name"]; ok && len(values) > 0 {
		name := strings.TrimSpace(values[0])
		input.Name = &name
	}
	if values, ok := r.Form["description"]; ok && len(values) > 0 {
		description := strings.TrimSpace(values[0])
		input.Description = &description
	}
	if raw := r.FormValue("date"); raw != "" {
		date, err := formDate(raw)
		if err != nil {
			httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
				Error: &httputil.ErrorResponse{Code: "INVALID_INPUT", Message: "invalid date: " + raw},
			})
			return
		}
		input.Date = &date
	}

	image, err := formFile(r, "image")
	if err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_INPUT", Message: err.Error()},
		})
		return
	}
	input.Image = image

	event, err := h.events.Update(r.Context(), userID, id, input)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: event})
}

// Delete handles DELETE /api/v1/events/{id} (auth required, owner only).
func (h *EventHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromContext(r.Context())
	id, ok := httputil.ParseID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	if err := h.events.Delete(r.Context(), userID, id); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{
		Data: map[string]string{"message": "event deleted"},
	})
}
