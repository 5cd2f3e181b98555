package geocode

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(srv *httptest.Server, opts ...Option) *NominatimClient {
	base := []Option{WithRateLimit(0), WithRetry(3, time.Millisecond), WithUserAgent("shop-test/1")}
	return NewNominatimClient(srv.URL, append(base, opts...)...)
}

func TestReverseGeocodePicksFirstPresentField(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
		ok   bool
	}{
		{"city", `{"address":{"city":"Kochi","town":"Aluva"}}`, "Kochi", true},
		{"town", `{"address":{"town":"Aluva","county":"Ernakulam"}}`, "Aluva", true},
		{"village", `{"address":{"village":"Kumbalangi"}}`, "Kumbalangi", true},
		{"suburb", `{"address":{"suburb":"Edappally","county":"Ernakulam"}}`, "Edappally", true},
		{"county", `{"address":{"county":"Ernakulam"}}`, "Ernakulam", true},
		{"none", `{"address":{"country":"India"}}`, UnknownLocation, true},
		{"no address", `{"error":"Unable to geocode"}`, "", false},
		{"bad json", `<html>`, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotUA, gotQuery string
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gotUA = r.Header.Get("User-Agent")
				gotQuery = r.URL.Query().Get("lat") + "," + r.URL.Query().Get("lon")
				assert.Equal(t, "/reverse", r.URL.Path)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			got, ok := newTestClient(srv).ReverseGeocode(context.Background(), 10.0, 76.25)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, "shop-test/1", gotUA)
			assert.Equal(t, "10,76.25", gotQuery)
		})
	}
}

func TestSearchReturnsFirstMatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search", r.URL.Path)
		assert.Equal(t, "Fort Kochi", r.URL.Query().Get("q"))
		assert.Equal(t, "1", r.URL.Query().Get("limit"))
		_, _ = w.Write([]byte(`[{"lat":"9.9658","lon":"76.2421","display_name":"Fort Kochi, Kerala, India"},{"lat":"0","lon":"0"}]`))
	}))
	defer srv.Close()

	place, ok := newTestClient(srv).Search(context.Background(), "  Fort Kochi ")
	require.True(t, ok)
	assert.Equal(t, 9.9658, place.Lat)
	assert.Equal(t, 76.2421, place.Lon)
	assert.Equal(t, "Fort Kochi, Kerala, India", place.DisplayName)
}

func TestSearchEmptyAndFailures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	c := newTestClient(srv)
	_, ok := c.Search(context.Background(), "nowhere")
	assert.False(t, ok)

	_, ok = c.Search(context.Background(), "   ")
	assert.False(t, ok)
}

func TestRetriesTransientErrorsButNotRateLimit(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"address":{"city":"Kochi"}}`))
	}))
	defer srv.Close()

	got, ok := newTestClient(srv).ReverseGeocode(context.Background(), 1, 2)
	require.True(t, ok)
	assert.Equal(t, "Kochi", got)
	assert.EqualValues(t, 3, calls.Load())

	var limited atomic.Int32
	srv429 := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		limited.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv429.Close()

	_, ok = newTestClient(srv429).ReverseGeocode(context.Background(), 1, 2)
	assert.False(t, ok)
	assert.EqualValues(t, 1, limited.Load())
}

func TestRateLimitSpacesRequests(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"address":{"city":"Kochi"}}`))
	}))
	defer srv.Close()

	const every = 50 * time.Millisecond
	c := newTestClient(srv, WithRateLimit(every))

	start := time.Now()
	for i := 0; i < 3; i++ {
		_, ok := c.ReverseGeocode(context.Background(), float64(i), 0)
		require.True(t, ok)
	}
	assert.GreaterOrEqual(t, time.Since(start), 2*every-5*time.Millisecond)
}

func TestConcurrentIdenticalLookupsShareOneCall(t *testing.T) {
	var calls atomic.Int32
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		<-release
		_, _ = w.Write([]byte(`{"address":{"town":"Aluva"}}`))
	}))
	defer srv.Close()

	c := newTestClient(srv)

	var wg sync.WaitGroup
	results := make([]string, 5)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], _ = c.ReverseGeocode(context.Background(), 10, 76)
		}(i)
	}

	// Give every goroutine time to join the in-flight call.
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.EqualValues(t, 1, calls.Load())
	for _, r := range results {
		assert.Equal(t, "Aluva", r)
	}
}

func TestCancelledCallerDoesNotFailSharedLookup(t *testing.T) {
	var calls atomic.Int32
	started := make(chan struct{})
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			close(started)
		}
		<-release
		_, _ = w.Write([]byte(`{"address":{"city":"Kochi"}}`))
	}))
	defer srv.Close()

	c := newTestClient(srv)

	ctx, cancel := context.WithCancel(context.Background())
	firstDone := make(chan bool)
	go func() {
		_, ok := c.ReverseGeocode(ctx, 10, 76)
		firstDone <- ok
	}()
	<-started

	secondDone := make(chan string)
	go func() {
		name, _ := c.ReverseGeocode(context.Background(), 10, 76)
		secondDone <- name
	}()
	// Let the second caller join the in-flight call.
	time.Sleep(50 * time.Millisecond)

	cancel()
	assert.False(t, <-firstDone)

	close(release)
	assert.Equal(t, "Kochi", <-secondDone)
	assert.EqualValues(t, 1, calls.Load())
}
