package common

import (
	"encoding/json"
	"net/http"

	pkgerrors "github.com/ithailevi/expert/pkg/errors"
)

// APIResponse represents a standard API response
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *ErrorInfo  `json:"error,omitempty"`
}

// ErrorInfo contains error details
type ErrorInfo struct {
	Type    string                 `json:"type"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// RespondJSON sends a JSON response
func RespondJSON(w http.ResponseWriter, status int, data interface{}) {
	writeJSON(w, status, APIResponse{
		Success: status >= 200 && status < 300,
		Data:    data,
	})
}

// RespondError sends err as an error response. AppErrors keep their type,
// status and details; anything else becomes an opaque 500.
func RespondError(w http.ResponseWriter, err error) {
	appErr := pkgerrors.GetAppError(err)
	if appErr == nil {
		appErr = pkgerrors.NewInternalError("internal server error")
	}
	writeJSON(w, pkgerrors.HTTPStatus(appErr), APIResponse{
		Error: &ErrorInfo{
			Type:    string(appErr.Type),
			Message: appErr.Message,
			Details: appErr.Details,
		},
	})
}

func writeJSON(w http.ResponseWriter, status int, response APIResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(response)
}
