package httpx

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRespondError(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{fmt.Errorf("approval: %w", ErrForbidden), http.StatusForbidden},
		{fmt.Errorf("content: %w", ErrConflict), http.StatusConflict},
		{ErrValidation, http.StatusUnprocessableEntity},
		{ErrNotFound, http.StatusNotFound},
		{ErrUnauthorized, http.StatusUnauthorized},
		{fmt.Errorf("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		rec := httptest.NewRecorder()
		RespondError(rec, tc.err)
		assert.Equal(t, tc.status, rec.Code, tc.err.Error())

		var body Envelope
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.False(t, body.Success)
		assert.NotEmpty(t, body.Message)
	}
}

func TestJSONEnvelopeOmitsEmptyData(t *testing.T) {
	rec := httptest.NewRecorder()
	JSON(rec, http.StatusOK, Envelope{Success: true, Message: "ok"})
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"success":true,"message":"ok"}`, rec.Body.String())
}
