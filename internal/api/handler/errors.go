package handler

import (
	"encoding/json"
	"net/http"

	"github.com/minhtien379/Loto/internal/api/apierr"
)

// maxBodyBytes caps host request bodies; the largest is a shout
const maxBodyBytes = 16 << 10

func WriteError(w http.ResponseWriter, err error) {
	apierr.WriteError(w, err)
}

// decodeBody reads a JSON body into v. On failure it writes INVALID_REQUEST
// and returns false.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		WriteError(w, apierr.NewInvalidRequestError("Invalid request body"))
		return false
	}
	return true
}
