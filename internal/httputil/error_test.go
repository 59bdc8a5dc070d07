package httputil

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/AdamBeresnev/post-battles/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestError(t *testing.T) {
	testCases := []struct {
		name   string
		err    error
		status int
	}{
		{name: "not found", err: service.ErrTournamentNotFound, status: http.StatusNotFound},
		{name: "already voted", err: service.ErrAlreadyVoted, status: http.StatusConflict},
		{name: "round not finished", err: fmt.Errorf("progress: %w", service.ErrRoundNotFinished), status: http.StatusConflict},
		{name: "validation", err: service.ErrNotEnoughParticipants, status: http.StatusBadRequest},
		{name: "state", err: service.ErrMatchNotVotable, status: http.StatusBadRequest},
		{name: "unknown", err: errors.New("disk on fire"), status: http.StatusInternalServerError},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			Error(rec, "failed", tc.err)

			assert.Equal(t, tc.status, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

			var body map[string]string
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.NotEmpty(t, body["error"])
		})
	}
}

func TestInternalServerErrorHidesDetails(t *testing.T) {
	rec := httptest.NewRecorder()
	InternalServerError(rec, "failed", errors.New("secret path /var/db"))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "secret")
}
