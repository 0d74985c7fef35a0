package httputil

import (
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/banshee-data/mutant.report/internal/monitoring"
)

// ErrorResponse is the JSON body of every error reply.
type ErrorResponse struct {
	Timestamp int64  `json:"timestamp"`
	Status    int    `json:"status"`
	Error     bool   `json:"error"`
	Message   string `json:"message"`
	Path      string `json:"path,omitempty"`
}

// WriteJSONError writes a JSON error response with the given status code and message.
func WriteJSONError(w http.ResponseWriter, status int, msg string) {
	writeError(w, status, msg, "")
}

// WriteRequestError is WriteJSONError with the request path included in the body.
func WriteRequestError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	writeError(w, status, msg, r.URL.Path)
}

func writeError(w http.ResponseWriter, status int, msg, path string) {
	WriteJSON(w, status, ErrorResponse{
		Timestamp: time.Now().UnixMilli(),
		Status:    status,
		Error:     status >= http.StatusBadRequest,
		Message:   msg,
		Path:      path,
	})
}

// WriteJSON writes a JSON response with the given status code and data.
func WriteJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		monitoring.L().Warn("failed to encode json response", zap.Error(err))
	}
}

// WriteJSONOK writes a successful JSON response (200 OK).
func WriteJSONOK(w http.ResponseWriter, data interface{}) {
	WriteJSON(w, http.StatusOK, data)
}

// OK writes an empty 200 response.
func OK(w http.ResponseWriter) {
	w.WriteHeader(http.StatusOK)
}

// Forbidden writes an empty 403 response.
func Forbidden(w http.ResponseWriter) {
	w.WriteHeader(http.StatusForbidden)
}

// MethodNotAllowed writes a 405 Method Not Allowed response.
func MethodNotAllowed(w http.ResponseWriter) {
	WriteJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
}

// BadRequest writes a 400 Bad Request response with the given message.
func BadRequest(w http.ResponseWriter, msg string) {
	WriteJSONError(w, http.StatusBadRequest, msg)
}

// InternalServerError writes a 500 Internal Server Error response.
func InternalServerError(w http.ResponseWriter, msg string) {
	WriteJSONError(w, http.StatusInternalServerError, msg)
}

// NotFound writes a 404 Not Found response.
func NotFound(w http.ResponseWriter, msg string) {
	WriteJSONError(w, http.StatusNotFound, msg)
}
