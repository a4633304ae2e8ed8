package utils

import (
	"encoding/json"
	"net/http"

	"farmledger/apperr"
)

func RespondWithError(w http.ResponseWriter, code int, msg string) {
	RespondWithJSON(w, code, M{"error": msg})
}

func RespondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(payload)
}

// RespondWithAppError writes err using its apperr kind for the status and
// only its public message for the body.
func RespondWithAppError(w http.ResponseWriter, err error) {
	RespondWithError(w, apperr.KindOf(err).Status(), apperr.PublicMessage(err))
}

type M map[string]interface{}
