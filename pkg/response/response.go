// Package response owns the API envelope. Every endpoint, success or
// failure, answers with the same {status, message, data} shape.
package response

import (
	"encoding/json"
	"net/http"

	xerrors "jobnest-auth/pkg/xerrors"
)

type APIResponse struct {
	Status  string      `json:"status"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

func write(w http.ResponseWriter, status int, resp APIResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}

func JSON(w http.ResponseWriter, status int, data interface{}) {
	write(w, status, APIResponse{Status: "success", Data: data})
}

func Error(w http.ResponseWriter, status int, msg string) {
	write(w, status, APIResponse{Status: "error", Message: msg})
}

// FromError translates a sentinel error into the API error envelope. Unknown
// errors are reported as a generic internal error so internals never leak.
func FromError(w http.ResponseWriter, err error) {
	status := xerrors.HTTPStatus(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		msg = xerrors.ErrInternalServer.Error()
	}
	Error(w, status, msg)
}
