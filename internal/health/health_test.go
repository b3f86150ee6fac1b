package health

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

type fakePinger struct {
	err error
}

func (f *fakePinger) Health(context.Context) error {
	return f.err
}

func TestHealthChecker_Ready(t *testing.T) {
	store := &fakePinger{}
	hc := NewHealthChecker(store, nil)

	rec := httptest.NewRecorder()
	hc.ReadyEndpoint(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	store.err = errors.New("connection refused")
	rec = httptest.NewRecorder()
	hc.ReadyEndpoint(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	// 存储故障不影响存活检查
	rec = httptest.NewRecorder()
	hc.LiveEndpoint(rec, httptest.NewRequest(http.MethodGet, "/live", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHealthChecker_CheckHealth(t *testing.T) {
	hc := NewHealthChecker(&fakePinger{err: errors.New("down")}, nil)

	results := hc.CheckHealth(context.Background())
	assert.Equal(t, "ERROR: down", results["storage"])
	assert.NotEmpty(t, results["timestamp"])
}
