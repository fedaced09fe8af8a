package middleware

import (
	"encoding/json"
	"net/http"

	wrap "github.com/Temutjin2k/droply/pkg/logger/wrapper"
)

// errorBody is the envelope middleware rejections share with the handlers,
// plus the request id so a client can quote it back.
type errorBody struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

// errorResponse writes a JSON error envelope. Middleware running outside
// RequestID still finds the id on the response header.
func errorResponse(w http.ResponseWriter, r *http.Request, status int, message string) {
	id := wrap.GetRequestID(r.Context())
	if id == "" {
		id = w.Header().Get(requestIDHeader)
	}

	js, err := json.Marshal(errorBody{Error: message, RequestID: id})
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(js)
}
