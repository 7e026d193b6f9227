package positioning_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kasuwa/searchstream/internal/adapters/positioning"
)

func TestHTTPPositioner_ReturnsFix(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "test-key", r.URL.Query().Get("key"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"location": {"lat": 6.5244, "lng": 3.3792}, "accuracy": 20}`))
	}))
	defer server.Close()

	p := positioning.NewHTTPPositionerWithOptions("test-key", server.URL, server.Client())

	coord, err := p.CurrentPosition(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 6.5244, coord.Lat)
	assert.Equal(t, 3.3792, coord.Lon)
}

func TestHTTPPositioner_NonOKStatusFails(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusForbidden)
	}))
	defer server.Close()

	p := positioning.NewHTTPPositionerWithOptions("", server.URL, server.Client())

	_, err := p.CurrentPosition(context.Background())
	assert.Error(t, err)
}

func TestHTTPPositioner_HonorsContextDeadline(t *testing.T) {
	started := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		close(started)
		<-r.Context().Done()
	}))
	defer server.Close()

	p := positioning.NewHTTPPositionerWithOptions("", server.URL, server.Client())

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := p.CurrentPosition(ctx)
	assert.Error(t, err)
	<-started
}

func TestStaticPositioner_ReturnsPinnedCoordinate(t *testing.T) {
	p := positioning.NewStaticPositioner(9.0765, 7.3986)

	coord, err := p.CurrentPosition(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 9.0765, coord.Lat)
	assert.Equal(t, 7.3986, coord.Lon)
}

func TestStaticPositioner_ZeroCoordinateDenies(t *testing.T) {
	p := positioning.NewStaticPositioner(0, 0)

	_, err := p.CurrentPosition(context.Background())
	assert.Error(t, err)
}
