package errors

import (
	stderrors "errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestWrap(t *testing.T) {
	base := stderrors.New("disk full")

	err := Wrap(base, "saving results").WithOperation("save").WithComponent("store")
	require.NotNil(t, err)

	assert.ErrorIs(t, err, base)
	assert.Contains(t, err.Error(), "saving results")
	assert.Contains(t, err.Error(), "operation=save")
	assert.Contains(t, err.Error(), "component=store")
	assert.NotEmpty(t, err.StackTrace())

	assert.Nil(t, Wrap(nil, "ignored"))
}

func TestWrapPreservesExistingError(t *testing.T) {
	inner := New("original")
	outer := Wrap(inner, "updated")

	assert.Same(t, inner, outer)
	assert.Equal(t, "updated", outer.Message)
}

func TestErrorf(t *testing.T) {
	err := Errorf("bad value %d", 7)
	assert.Contains(t, err.Error(), "bad value 7")
}

func TestRecoveryMiddleware(t *testing.T) {
	handler := RecoveryMiddleware(zaptest.NewLogger(t))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest("GET", "/panic", nil))

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
}

func TestErrorHandlerLogsErrorResponses(t *testing.T) {
	handler := ErrorHandler(zaptest.NewLogger(t))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusBadRequest)
	}))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest("GET", "/bad", nil))

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}
