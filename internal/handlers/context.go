package handlers

import (
	"database/sql"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
	"github.com/stanstork/nestpay-api/internal/authz"
	"github.com/stanstork/nestpay-api/internal/occupancy"
	"github.com/stanstork/nestpay-api/internal/repository"
)

type errorResponse struct {
	Error     string `json:"error"`
	Field     string `json:"field,omitempty"`
	Retryable bool   `json:"retryable,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(payload)
}

func writeMessage(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// writeServiceError maps lifecycle errors onto HTTP status codes. Unknown
// errors are logged and reported as a generic 500.
func writeServiceError(w http.ResponseWriter, logger zerolog.Logger, err error, fallback string) {
	var verr *occupancy.ValidationError
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: verr.Message, Field: verr.Field})
	case errors.Is(err, occupancy.ErrValidation):
		writeMessage(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, occupancy.ErrForbidden):
		writeMessage(w, http.StatusForbidden, "You do not have access to this resource")
	case errors.Is(err, occupancy.ErrNotFound), errors.Is(err, sql.ErrNoRows):
		writeMessage(w, http.StatusNotFound, "Not found")
	case errors.Is(err, occupancy.ErrConflict), errors.Is(err, occupancy.ErrInvalidState):
		writeJSON(w, http.StatusConflict, errorResponse{Error: err.Error(), Retryable: true})
	case repository.IsInvalidInput(err):
		logger.Warn().Err(err).Msg(fallback)
		writeMessage(w, http.StatusBadRequest, "Invalid input")
	default:
		logger.Error().Err(err).Msg(fallback)
		writeMessage(w, http.StatusInternalServerError, fallback)
	}
}

// decodeJSON reads a JSON body. An empty body leaves dst untouched when allowEmpty is set.
func decodeJSON(r *http.Request, dst interface{}, allowEmpty bool) error {
	err := json.NewDecoder(r.Body).Decode(dst)
	if errors.Is(err, io.EOF) && allowEmpty {
		return nil
	}
	return err
}

// idParam reads a UUID path variable, answering 404 for anything else.
func idParam(w http.ResponseWriter, r *http.Request, name string) (string, bool) {
	id := strings.TrimSpace(mux.Vars(r)[name])
	if _, err := uuid.Parse(id); err != nil {
		writeMessage(w, http.StatusNotFound, "Not found")
		return "", false
	}
	return id, true
}

func requireUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID, ok := authz.UserIDFromRequest(r)
	if !ok {
		writeMessage(w, http.StatusUnauthorized, "Missing user context")
		return "", false
	}
	return userID, true
}
