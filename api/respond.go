package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"
	json "github.com/goccy/go-json"

	"hn-recommender/feed"
	"hn-recommender/model"
	"hn-recommender/recommender"
)

const (
	statusSuccess = "success"
	statusError   = "error"
)

type errorResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// errBadRequest marks client input errors that are not validator failures.
var errBadRequest = errors.New("bad request")

func respondJSON(w http.ResponseWriter, status int, body any) {
	data, err := json.Marshal(body)
	if err != nil {
		slog.Error("failed to marshal JSON response", "error", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(data); err != nil {
		slog.Error("failed to write JSON response", "error", err)
	}
}

func respondMessage(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, errorResponse{Status: statusError, Message: message})
}

// respondError maps err to a status code and writes the error envelope.
func respondError(w http.ResponseWriter, r *http.Request, err error) {
	var verrs validator.ValidationErrors
	status := http.StatusInternalServerError
	switch {
	// Checked first: invalid articles also wrap validator errors.
	case errors.Is(err, recommender.ErrInvalidArticle):
		status = http.StatusUnprocessableEntity
	case errors.As(err, &verrs), errors.Is(err, errBadRequest):
		status = http.StatusBadRequest
	case errors.Is(err, feed.ErrNotFound), errors.Is(err, errLikeNotFound):
		status = http.StatusNotFound
	}

	message := err.Error()
	if status == http.StatusInternalServerError {
		slog.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		message = "internal error"
	}
	respondMessage(w, status, message)
}

func validate() *validator.Validate {
	return model.Validator()
}
