package utils

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	internal_errors "github.com/itchan-dev/authgate/shared/errors"
	"github.com/stretchr/testify/assert"
)

func TestWriteErrorAndStatusCode(t *testing.T) {
	t.Run("status error", func(t *testing.T) {
		w := httptest.NewRecorder()
		WriteErrorAndStatusCode(w, internal_errors.BadRequest("bad form"))
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "bad form")
	})

	t.Run("wrapped status error", func(t *testing.T) {
		w := httptest.NewRecorder()
		err := fmt.Errorf("handler: %w", internal_errors.New(http.StatusTooManyRequests, "slow down"))
		WriteErrorAndStatusCode(w, err)
		assert.Equal(t, http.StatusTooManyRequests, w.Code)
	})

	t.Run("plain error hides message", func(t *testing.T) {
		w := httptest.NewRecorder()
		WriteErrorAndStatusCode(w, errors.New("db password is hunter2"))
		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.NotContains(t, w.Body.String(), "hunter2")
	})
}

func TestWriteJSON(t *testing.T) {
	w := httptest.NewRecorder()
	WriteJSON(w, http.StatusOK, map[string]bool{"ok": true})
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"ok":true}`, w.Body.String())
}
