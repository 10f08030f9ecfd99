package handler

import (
	"encoding/json"
	"net/http"

	"github.com/globalmoves/community/internal/logger"
	"github.com/globalmoves/community/internal/service"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Errorf("writeJSON encode: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// writeServiceError maps a service failure onto an HTTP status. Unclassified
// errors are logged and masked as 500.
func writeServiceError(w http.ResponseWriter, op string, err error) {
	switch service.KindOf(err) {
	case service.KindValidation:
		writeError(w, http.StatusBadRequest, err.Error())
	case service.KindNotFound:
		writeError(w, http.StatusNotFound, err.Error())
	case service.KindPermission:
		writeError(w, http.StatusForbidden, err.Error())
	case service.KindConflict:
		writeError(w, http.StatusConflict, err.Error())
	case service.KindState:
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		logger.Errorf("%s: %v", op, err)
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}
