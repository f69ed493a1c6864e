package httputil

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/planora/planora/pkg/errs"
)

func TestParseJSON(t *testing.T) {
	t.Run("valid body", func(t *testing.T) {
		body := bytes.NewBufferString(`{"name": "Roadmap"}`)
		r := httptest.NewRequest("POST", "/projects", body)

		var dest struct {
			Name string `json:"name"`
		}
		err := ParseJSON(r, &dest)

		assert.NoError(t, err)
		assert.Equal(t, "Roadmap", dest.Name)
	})

	t.Run("malformed body", func(t *testing.T) {
		body := bytes.NewBufferString(`{"name": `)
		r := httptest.NewRequest("POST", "/projects", body)

		var dest map[string]string
		err := ParseJSON(r, &dest)

		assert.Error(t, err)
		assert.True(t, errs.IsInvalid(err))
	})
}

func TestParseJSONOrError(t *testing.T) {
	w := httptest.NewRecorder()
	body := bytes.NewBufferString(`not json`)
	r := httptest.NewRequest("POST", "/projects", body)

	var dest map[string]string
	ok := ParseJSONOrError(w, r, &dest)

	assert.False(t, ok)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestParsePathString(t *testing.T) {
	t.Run("present", func(t *testing.T) {
		r := httptest.NewRequest("GET", "/workspaces/abc", nil)
		r = mux.SetURLVars(r, map[string]string{"slug": "abc"})

		val, err := ParsePathString(r, "slug")

		assert.NoError(t, err)
		assert.Equal(t, "abc", val)
	})

	t.Run("missing", func(t *testing.T) {
		r := httptest.NewRequest("GET", "/workspaces", nil)

		_, err := ParsePathString(r, "slug")

		assert.Error(t, err)
		assert.True(t, errs.IsInvalid(err))
	})
}

func TestParsePathUUID(t *testing.T) {
	id := uuid.New()

	t.Run("valid", func(t *testing.T) {
		r := httptest.NewRequest("GET", "/tasks/"+id.String(), nil)
		r = mux.SetURLVars(r, map[string]string{"taskID": id.String()})

		got, err := ParsePathUUID(r, "taskID")

		require.NoError(t, err)
		assert.Equal(t, id, got)
	})

	t.Run("not a uuid", func(t *testing.T) {
		r := httptest.NewRequest("GET", "/tasks/42", nil)
		r = mux.SetURLVars(r, map[string]string{"taskID": "42"})

		_, err := ParsePathUUID(r, "taskID")

		assert.Error(t, err)
		assert.True(t, errs.IsInvalid(err))
	})

	t.Run("or-error writes 400", func(t *testing.T) {
		w := httptest.NewRecorder()
		r := httptest.NewRequest("GET", "/tasks/nope", nil)
		r = mux.SetURLVars(r, map[string]string{"taskID": "nope"})

		_, ok := ParsePathUUIDOrError(w, r, "taskID")

		assert.False(t, ok)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestParseQueryInt(t *testing.T) {
	t.Run("present", func(t *testing.T) {
		r := httptest.NewRequest("GET", "/tasks?limit=25", nil)

		val, err := ParseQueryInt(r, "limit", 50)

		assert.NoError(t, err)
		assert.Equal(t, 25, val)
	})

	t.Run("absent uses default", func(t *testing.T) {
		r := httptest.NewRequest("GET", "/tasks", nil)

		val, err := ParseQueryInt(r, "limit", 50)

		assert.NoError(t, err)
		assert.Equal(t, 50, val)
	})

	t.Run("invalid", func(t *testing.T) {
		r := httptest.NewRequest("GET", "/tasks?limit=abc", nil)

		_, err := ParseQueryInt(r, "limit", 50)

		assert.Error(t, err)
	})
}

func TestParseQueryBool(t *testing.T) {
	r := httptest.NewRequest("GET", "/tasks?archived=true", nil)

	val, err := ParseQueryBool(r, "archived", false)

	assert.NoError(t, err)
	assert.True(t, val)

	r = httptest.NewRequest("GET", "/tasks?archived=banana", nil)
	_, err = ParseQueryBool(r, "archived", false)
	assert.Error(t, err)
}

func TestParsePagination(t *testing.T) {
	tests := []struct {
		name       string
		query      string
		wantLimit  int
		wantOffset int
	}{
		{"defaults", "", DefaultPageSize, 0},
		{"explicit", "?limit=10&offset=30", 10, 30},
		{"limit capped", "?limit=9999", MaxPageSize, 0},
		{"negative limit falls back", "?limit=-5", DefaultPageSize, 0},
		{"negative offset clamped", "?offset=-10", DefaultPageSize, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/tasks"+tt.query, nil)

			limit, offset, err := ParsePagination(r)

			require.NoError(t, err)
			assert.Equal(t, tt.wantLimit, limit)
			assert.Equal(t, tt.wantOffset, offset)
		})
	}
}

func TestRequireNonEmpty(t *testing.T) {
	w := httptest.NewRecorder()
	assert.True(t, RequireNonEmpty(w, "value", "name"))

	w = httptest.NewRecorder()
	assert.False(t, RequireNonEmpty(w, "", "name"))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "name is required")
}
