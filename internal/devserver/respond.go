package devserver

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dmitrijs2005/medchat/internal/common"
)

type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, errorBody{Error: message})
}

func respondCode(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, errorBody{Error: message, Code: code})
}

// respondStoreError maps Store errors onto statuses.
func respondStoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, common.ErrNotFound):
		respondError(w, http.StatusNotFound, "not found")
	case errors.Is(err, ErrForbidden):
		respondError(w, http.StatusForbidden, "forbidden")
	case errors.Is(err, ErrInvalid):
		respondError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		respondError(w, http.StatusInternalServerError, "internal error")
	}
}

func decodeJSON(r *http.Request, v any) error {
	return json.NewDecoder(r.Body).Decode(v)
}
