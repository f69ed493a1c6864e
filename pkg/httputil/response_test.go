package httputil

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/planora/planora/pkg/errs"
)

func TestWriteJSON(t *testing.T) {
	w := httptest.NewRecorder()
	data := map[string]string{"message": "success"}

	err := WriteJSON(w, http.StatusOK, data)

	assert.NoError(t, err)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Body.String(), "success")
}

func TestWriteErrorMessage(t *testing.T) {
	w := httptest.NewRecorder()

	WriteErrorMessage(w, http.StatusNotFound, "resource not found")

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "resource not found")
}

func TestWriteValidationError(t *testing.T) {
	w := httptest.NewRecorder()

	WriteValidationError(w, "invalid input")

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "invalid input")
}

func TestWriteInternalError(t *testing.T) {
	w := httptest.NewRecorder()

	WriteInternalError(w)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "internal server error")
}

func TestWriteCreated(t *testing.T) {
	w := httptest.NewRecorder()

	err := WriteCreated(w, map[string]string{"id": "abc"})

	assert.NoError(t, err)
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, w.Body.String(), "abc")
}

func TestWriteNoContent(t *testing.T) {
	w := httptest.NewRecorder()

	WriteNoContent(w)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Empty(t, w.Body.String())
}

func TestStatusForKind(t *testing.T) {
	tests := []struct {
		kind   errs.Kind
		status int
	}{
		{errs.Invalid, http.StatusBadRequest},
		{errs.Unauthorized, http.StatusUnauthorized},
		{errs.Forbidden, http.StatusForbidden},
		{errs.NotFound, http.StatusNotFound},
		{errs.Conflict, http.StatusConflict},
		{errs.Unavailable, http.StatusServiceUnavailable},
		{errs.Internal, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.status, StatusForKind(tt.kind), "kind %s", tt.kind)
	}
}

func TestWriteErr(t *testing.T) {
	t.Run("not found passes message through", func(t *testing.T) {
		w := httptest.NewRecorder()

		WriteErr(w, errs.E(errs.NotFound, "task not found"))

		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Contains(t, w.Body.String(), "task not found")
	})

	t.Run("forbidden hides detail", func(t *testing.T) {
		w := httptest.NewRecorder()

		WriteErr(w, errs.E(errs.Forbidden, "user alice lacks admin on workspace xyz"))

		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.Contains(t, w.Body.String(), "not allowed")
		assert.NotContains(t, w.Body.String(), "alice")
	})

	t.Run("unauthorized hides detail", func(t *testing.T) {
		w := httptest.NewRecorder()

		WriteErr(w, errs.E(errs.Unauthorized, "token plnr_deadbeef expired"))

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Contains(t, w.Body.String(), "authentication required")
		assert.NotContains(t, w.Body.String(), "plnr_")
	})

	t.Run("unclassified error treated as internal", func(t *testing.T) {
		w := httptest.NewRecorder()

		WriteErr(w, errors.New("pq: connection refused"))

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.Contains(t, w.Body.String(), "internal server error")
		assert.NotContains(t, w.Body.String(), "pq:")
	})

	t.Run("wrapped kind is honored", func(t *testing.T) {
		w := httptest.NewRecorder()

		inner := errs.E(errs.Conflict, "name already taken")
		WriteErr(w, fmt.Errorf("create project: %w", inner))

		assert.Equal(t, http.StatusConflict, w.Code)
	})
}
