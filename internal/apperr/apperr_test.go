package apperr

import (
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKinds(t *testing.T) {
	t.Run("Validation", func(t *testing.T) {
		err := Validation("items required")
		assert.True(t, errors.Is(err, ErrValidation))
		assert.False(t, errors.Is(err, ErrNotFound))
		assert.Equal(t, "items required", err.Error())
	})

	t.Run("Sentinel built on kind survives wrapping", func(t *testing.T) {
		errOrderNotFound := NotFound("order not found")
		wrapped := fmt.Errorf("load order 7: %w", errOrderNotFound)

		assert.True(t, errors.Is(wrapped, ErrNotFound))
		assert.True(t, errors.Is(wrapped, errOrderNotFound))
	})

	t.Run("Persistence keeps cause", func(t *testing.T) {
		err := Persistence("insert order", sql.ErrConnDone)
		assert.True(t, errors.Is(err, ErrPersistence))
		assert.True(t, errors.Is(err, sql.ErrConnDone))
		assert.Contains(t, err.Error(), "insert order")
	})

	t.Run("Persistence passes classified errors through", func(t *testing.T) {
		nf := NotFound("table not found")
		err := Persistence("transfer", nf)
		assert.Same(t, nf, err)
	})

	t.Run("Persistence of nil", func(t *testing.T) {
		assert.NoError(t, Persistence("noop", nil))
	})
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, http.StatusOK},
		{"validation", Validation("bad"), http.StatusBadRequest},
		{"conflict", Conflict("busy"), http.StatusBadRequest},
		{"not found", NotFound("gone"), http.StatusNotFound},
		{"persistence", Persistence("update", errors.New("boom")), http.StatusInternalServerError},
		{"unclassified", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HTTPStatus(tt.err))
		})
	}
}

func TestPublicMessage(t *testing.T) {
	assert.Equal(t, "gone", PublicMessage(NotFound("gone")))
	assert.Equal(t, "internal server error", PublicMessage(Persistence("update", errors.New("pq: deadlock"))))
	assert.Equal(t, "internal server error", PublicMessage(errors.New("raw")))
}
