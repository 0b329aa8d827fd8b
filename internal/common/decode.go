package common

import (
	"encoding/json"
	"errors"
	"net/http"
)

// DecodeJSON reads one JSON value from the request body into dst. A body cut
// off by http.MaxBytesReader is reported as 413, anything else as 400.
func DecodeJSON(r *http.Request, dst any) *AppError {
	err := json.NewDecoder(r.Body).Decode(dst)
	if err == nil {
		return nil
	}
	var tooBig *http.MaxBytesError
	if errors.As(err, &tooBig) {
		return TooLarge(err)
	}
	return BadRequest("body", "invalid JSON payload", err)
}
