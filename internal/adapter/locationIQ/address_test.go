package locationIQ

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Temutjin2k/droply/internal/domain/models"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *LocationIQClient {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	c := New("test-key", srv.URL, time.Second)
	c.backoff = time.Millisecond
	return c
}

func TestForwardGeocode(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/search", r.URL.Path)
		assert.Equal(t, "test-key", r.URL.Query().Get("key"))
		assert.Equal(t, "Rue Didouche Mourad, Alger", r.URL.Query().Get("q"))
		assert.Equal(t, "json", r.URL.Query().Get("format"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"lat":"36.7681","lon":"3.0516"},{"lat":"oops","lon":"1"},{"lat":"36.7","lon":"3.0"}]`))
	})

	got, err := c.ForwardGeocode(context.Background(), "Rue Didouche Mourad, Alger")
	require.NoError(t, err)
	assert.Equal(t, []models.Coordinate{
		{Latitude: 36.7681, Longitude: 3.0516},
		{Latitude: 36.7, Longitude: 3.0},
	}, got)
}

func TestForwardGeocode_NotFoundIsEmpty(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"Unable to geocode"}`))
	})

	got, err := c.ForwardGeocode(context.Background(), "nowhere")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestForwardGeocode_RetriesTransientErrors(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte(`[{"lat":"1","lon":"2"}]`))
	})

	got, err := c.ForwardGeocode(context.Background(), "A")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.EqualValues(t, 3, calls.Load())
}

func TestForwardGeocode_DoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	})

	_, err := c.ForwardGeocode(context.Background(), "A")
	require.Error(t, err)
	assert.EqualValues(t, 1, calls.Load())
}

func TestForwardGeocode_GivesUp(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	})

	_, err := c.ForwardGeocode(context.Background(), "A")
	require.Error(t, err)
	assert.EqualValues(t, maxAttempts, calls.Load())
}

func TestReverseGeocode(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/reverse", r.URL.Path)
		assert.Equal(t, "36.75", r.URL.Query().Get("lat"))
		assert.Equal(t, "3.06", r.URL.Query().Get("lon"))
		_, _ = w.Write([]byte(`{"display_name":"Place des Martyrs, Alger"}`))
	})

	got, err := c.ReverseGeocode(context.Background(), models.Coordinate{Latitude: 36.75, Longitude: 3.06})
	require.NoError(t, err)
	assert.Equal(t, "Place des Martyrs, Alger", got)
}

func TestReverseGeocode_EmptyAddress(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	})

	_, err := c.ReverseGeocode(context.Background(), models.Coordinate{})
	assert.ErrorIs(t, err, ErrLocationNotFound)
}
