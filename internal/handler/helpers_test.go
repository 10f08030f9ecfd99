package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/globalmoves/community/internal/service"
)

func TestWriteServiceError_StatusMapping(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		body   string
	}{
		{"validation", service.Validationf("room name is required"), http.StatusBadRequest, "room name is required"},
		{"not found", service.NotFoundf("room not found"), http.StatusNotFound, "room not found"},
		{"permission", service.Permissionf("only the room owner can do this"), http.StatusForbidden, "only the room owner can do this"},
		{"conflict", service.Conflictf("user is already a member"), http.StatusConflict, "user is already a member"},
		{"state", service.Statef("invitation already answered"), http.StatusUnprocessableEntity, "invitation already answered"},
		{"unknown masked", errors.New("pq: connection reset"), http.StatusInternalServerError, "internal server error"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			writeServiceError(rec, "test op", tc.err)

			assert.Equal(t, tc.status, rec.Code)
			assert.Equal(t, "application/json; charset=utf-8", rec.Header().Get("Content-Type"))

			var body errorResponse
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
			assert.Equal(t, tc.body, body.Error)
		})
	}
}

func TestWriteServiceError_WrappedErrorsKeepTheirKind(t *testing.T) {
	wrapped := fmt.Errorf("respond: %w", service.NotFoundf("invitation not found"))

	rec := httptest.NewRecorder()
	writeServiceError(rec, "test op", wrapped)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
