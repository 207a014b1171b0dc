package utils

import (
	"encoding/json"
	"net/http"

	"forkful/apperr"
)

type M map[string]interface{}

func RespondWithError(w http.ResponseWriter, code int, msg string) {
	RespondWithJSON(w, code, map[string]string{"error": msg})
}

func RespondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(payload)
}

// RespondAppError maps a taxonomy error to its HTTP status. Internal detail
// is not leaked on 500s.
func RespondAppError(w http.ResponseWriter, err error) {
	code := apperr.Status(err)
	msg := err.Error()
	if code == http.StatusInternalServerError {
		msg = "Something went wrong"
	}
	RespondWithError(w, code, msg)
}
