package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/SherPsu/cms-blog/internal/middleware"
	"github.com/SherPsu/cms-blog/internal/models"
	"github.com/SherPsu/cms-blog/internal/render"
)

// maxBodyBytes caps JSON request bodies. Post content is the largest field.
const maxBodyBytes = 1 << 20

// envelope is the shape of every JSON API response.
type envelope struct {
	Success    bool               `json:"success"`
	Message    string             `json:"message,omitempty"`
	Data       any                `json:"data,omitempty"`
	Pagination *models.Pagination `json:"pagination,omitempty"`
}

// API groups the JSON API handlers.
type API struct {
	svc      Services
	sessions Sessions
}

// NewAPI creates the JSON API handler group.
func NewAPI(svc Services, sessions Sessions) *API {
	return &API{svc: svc, sessions: sessions}
}

func writeJSON(w http.ResponseWriter, status int, body envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("encode json response failed", "error", err)
	}
}

func respond(w http.ResponseWriter, message string, data any) {
	writeJSON(w, http.StatusOK, envelope{Success: true, Message: message, Data: data})
}

func respondCreated(w http.ResponseWriter, message string, data any) {
	writeJSON(w, http.StatusCreated, envelope{Success: true, Message: message, Data: data})
}

func respondPage(w http.ResponseWriter, data any, p models.Pagination) {
	writeJSON(w, http.StatusOK, envelope{Success: true, Data: data, Pagination: &p})
}

// fail writes the error envelope for err. Store failures are logged.
func fail(w http.ResponseWriter, r *http.Request, err error) {
	status, message := render.StatusFor(err)
	if status == http.StatusInternalServerError {
		slog.Error("api request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"request_id", middleware.RequestIDFromCtx(r.Context()),
			"error", err,
		)
	}
	writeJSON(w, status, envelope{Success: false, Message: message})
}

func failMessage(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, envelope{Success: false, Message: message})
}

// decode reads a JSON request body into v.
func decode(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return models.NewValidationError("Request body is required")
		}
		return models.NewValidationError("Invalid JSON body")
	}
	return nil
}

// list returns s, or an empty slice so JSON shows [] instead of null.
func list[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

// idParam reads the {id} URL parameter and answers 400 when it is not a
// positive integer.
func idParam(w http.ResponseWriter, r *http.Request, what string) (int64, bool) {
	id, valid := pathID(r, "id")
	if !valid {
		failMessage(w, http.StatusBadRequest, what+" ID is required")
	}
	return id, valid
}

// NotFound answers unknown API paths.
func (a *API) NotFound(w http.ResponseWriter, r *http.Request) {
	failMessage(w, http.StatusNotFound, "Endpoint not found")
}

// MethodNotAllowed answers unsupported verbs on known API paths.
func (a *API) MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	failMessage(w, http.StatusMethodNotAllowed, "Method not allowed")
}
