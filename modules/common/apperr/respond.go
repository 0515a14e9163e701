package apperr

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog/log"
)

const genericMessage = "Something went wrong. Please try again."

// WriteJSON encodes body as the JSON response with the given status.
func WriteJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Error().Err(err).Msg("❌ failed to encode response")
	}
}

// WriteError writes {"error": msg} using the Kind's default status.
func WriteError(w http.ResponseWriter, err error) {
	WriteErrorStatus(w, KindOf(err).Status(), err)
}

// WriteErrorStatus writes {"error": msg} with an explicit status.
func WriteErrorStatus(w http.ResponseWriter, status int, err error) {
	WriteJSON(w, status, map[string]string{
		"error": PublicMessage(err, genericMessage),
	})
}
