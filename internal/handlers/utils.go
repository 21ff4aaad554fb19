package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/chemo-it/backoffice/internal/services"
	"github.com/chemo-it/backoffice/internal/store"
)

type ErrorResponse struct {
	Error string `json:"error"`
}

type OKResponse struct {
	OK bool `json:"ok"`
}

func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Error: message})
}

// accountIDParam coerces the {accountID} URL parameter into a positive
// integer. Anything else, including injection-shaped values like "1 OR 1=1",
// is rejected here, before the id can reach a store filter.
func accountIDParam(r *http.Request) (int, error) {
	raw := strings.TrimSpace(chi.URLParam(r, "accountID"))
	id, err := strconv.Atoi(raw)
	if err != nil || id <= 0 {
		return 0, errors.New("invalid account id")
	}
	return id, nil
}

// writeServiceError maps the service error taxonomy onto HTTP statuses:
// validation 422, conflict 409, authentication 401, everything else 500.
func writeServiceError(w http.ResponseWriter, err error) {
	var validationErr *services.ValidationError
	switch {
	case errors.As(err, &validationErr):
		writeError(w, http.StatusUnprocessableEntity, validationErr.Error())
	case errors.Is(err, store.ErrConflict):
		writeError(w, http.StatusConflict, "email or identity number already in use")
	case errors.Is(err, services.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, "invalid credentials")
	default:
		writeError(w, http.StatusInternalServerError, "operation failed, try again")
	}
}

// Healthz is a liveness probe.
func Healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, OKResponse{OK: true})
}
