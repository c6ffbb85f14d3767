package apperror

import (
	"encoding/json"
	"net/http"

	"github.com/abdul-hamid-achik/s3drop/internal/logger"
)

// ErrorResponse is the JSON body of every failed API request.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
}

// WriteJSON writes err as an ErrorResponse. Untyped errors can only come
// from the storage provider and are reported as provider errors.
func WriteJSON(w http.ResponseWriter, r *http.Request, err error) {
	e, ok := as(err)
	if !ok {
		e = Wrap(err, ErrProvider)
	}

	log := logger.FromContext(r.Context()).With("code", e.Code, "status", e.StatusCode)
	switch {
	case e.Internal != nil:
		log.Error("request failed", "cause", e.Internal.Error())
	case e.StatusCode >= http.StatusInternalServerError:
		log.Error("request failed", "message", e.Message)
	default:
		log.Warn("request rejected", "message", e.Message)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(e.StatusCode)
	_ = json.NewEncoder(w).Encode(ErrorResponse{Error: e.Code, Code: e.Code, Message: e.Message})
}
