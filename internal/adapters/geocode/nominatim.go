package geocode

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"storefront-distance-service/internal/domain"
	"storefront-distance-service/internal/platform/obs"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"
)

const (
	DefaultBaseURL   = "https://nominatim.openstreetmap.org"
	DefaultUserAgent = "storefront-distance-service/1.0"

	// UnknownLocation is returned when an address has none of the place fields.
	UnknownLocation = "Unknown Location"
)

// NominatimClient resolves coordinates to place names and back.
//
// Lookups are best-effort: any failure yields a false result and a log line.
// Outbound requests share one rate limiter (1 req/s by default, per the
// public instance's policy) and identical concurrent lookups share one call.
type NominatimClient struct {
	session     *http.Client
	baseURL     string
	userAgent   string
	limiter     *rate.Limiter
	group       singleflight.Group
	logger      *zap.Logger
	maxAttempts int
	backoff     time.Duration
}

type Option func(*NominatimClient)

func WithHTTPClient(c *http.Client) Option {
	return func(n *NominatimClient) { n.session = c }
}

func WithUserAgent(ua string) Option {
	return func(n *NominatimClient) {
		if strings.TrimSpace(ua) != "" {
			n.userAgent = ua
		}
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(n *NominatimClient) { n.logger = obs.OrNop(l) }
}

// WithRateLimit spaces requests at least every apart; zero disables pacing.
func WithRateLimit(every time.Duration) Option {
	return func(n *NominatimClient) {
		if every <= 0 {
			n.limiter = rate.NewLimiter(rate.Inf, 1)
			return
		}
		n.limiter = rate.NewLimiter(rate.Every(every), 1)
	}
}

func WithRetry(attempts int, backoff time.Duration) Option {
	return func(n *NominatimClient) {
		if attempts < 1 {
			attempts = 1
		}
		n.maxAttempts = attempts
		n.backoff = backoff
	}
}

func NewNominatimClient(baseURL string, opts ...Option) *NominatimClient {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = DefaultBaseURL
	}

	n := &NominatimClient{
		session:     &http.Client{Timeout: 10 * time.Second},
		baseURL:     strings.TrimRight(baseURL, "/"),
		userAgent:   DefaultUserAgent,
		limiter:     rate.NewLimiter(rate.Every(time.Second), 1),
		logger:      zap.NewNop(),
		maxAttempts: 3,
		backoff:     200 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

type reverseResponse struct {
	Address *struct {
		City    string `json:"city"`
		Town    string `json:"town"`
		Village string `json:"village"`
		Suburb  string `json:"suburb"`
		County  string `json:"county"`
	} `json:"address"`
}

type searchResult struct {
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	DisplayName string `json:"display_name"`
}

// ReverseGeocode names the locality at lat, lon: the first present of city,
// town, village, suburb and county, or UnknownLocation when none is.
func (n *NominatimClient) ReverseGeocode(ctx context.Context, lat, lon float64) (string, bool) {
	key := "reverse:" + domain.Coordinates{Lat: lat, Lon: lon}.Key()

	v, err := n.shared(ctx, key, func(ctx context.Context) (any, error) {
		return n.reverse(ctx, lat, lon)
	})
	if err != nil {
		n.logger.Warn("reverse geocode failed",
			zap.String("req_id", obs.RequestID(ctx)),
			zap.Float64("lat", lat), zap.Float64("lon", lon), zap.Error(err))
		return "", false
	}
	return v.(string), true
}

// Search returns the best match for a free-text place name.
func (n *NominatimClient) Search(ctx context.Context, query string) (domain.Place, bool) {
	query = strings.TrimSpace(query)
	if query == "" {
		return domain.Place{}, false
	}

	v, err := n.shared(ctx, "search:"+query, func(ctx context.Context) (any, error) {
		return n.search(ctx, query)
	})
	if err != nil {
		n.logger.Warn("forward geocode failed",
			zap.String("req_id", obs.RequestID(ctx)),
			zap.String("query", query), zap.Error(err))
		return domain.Place{}, false
	}
	return v.(domain.Place), true
}

// shared runs fn once per key across concurrent callers. The call itself is
// detached from any single caller's cancellation; each caller's ctx only
// bounds how long that caller waits for the shared result.
func (n *NominatimClient) shared(
	ctx context.Context,
	key string,
	fn func(context.Context) (any, error),
) (any, error) {
	detached := context.WithoutCancel(ctx)
	ch := n.group.DoChan(key, func() (any, error) {
		return fn(detached)
	})

	select {
	case res := <-ch:
		return res.Val, res.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (n *NominatimClient) reverse(ctx context.Context, lat, lon float64) (_ string, err error) {
	defer obs.Time(ctx, n.logger, "nominatim.reverse")(&err)

	q := url.Values{}
	q.Set("format", "json")
	q.Set("lat", strconv.FormatFloat(lat, 'f', -1, 64))
	q.Set("lon", strconv.FormatFloat(lon, 'f', -1, 64))
	endpoint := n.baseURL + "/reverse?" + q.Encode()

	resp, err := n.doWithRetry(ctx, func() (*http.Request, error) {
		return n.newRequest(ctx, endpoint)
	})
	if err != nil {
		return "", fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	var decoded reverseResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", fmt.Errorf("decode reverse response: %w", err)
	}

	a := decoded.Address
	if a == nil {
		return "", errors.New("reverse response has no address")
	}

	for _, name := range []string{a.City, a.Town, a.Village, a.Suburb, a.County} {
		if name != "" {
			return name, nil
		}
	}
	return UnknownLocation, nil
}

func (n *NominatimClient) search(ctx context.Context, query string) (_ domain.Place, err error) {
	defer obs.Time(ctx, n.logger, "nominatim.search")(&err)

	q := url.Values{}
	q.Set("format", "json")
	q.Set("limit", "1")
	q.Set("q", query)
	endpoint := n.baseURL + "/search?" + q.Encode()

	resp, err := n.doWithRetry(ctx, func() (*http.Request, error) {
		return n.newRequest(ctx, endpoint)
	})
	if err != nil {
		return domain.Place{}, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	var decoded []searchResult
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return domain.Place{}, fmt.Errorf("decode search response: %w", err)
	}

	if len(decoded) == 0 {
		return domain.Place{}, fmt.Errorf("no geocode results for %q", query)
	}

	first := decoded[0]
	lat, err := strconv.ParseFloat(first.Lat, 64)
	if err != nil {
		return domain.Place{}, fmt.Errorf("parse lat %q: %w", first.Lat, err)
	}
	lon, err := strconv.ParseFloat(first.Lon, 64)
	if err != nil {
		return domain.Place{}, fmt.Errorf("parse lon %q: %w", first.Lon, err)
	}

	return domain.Place{
		Coordinates: domain.Coordinates{Lat: lat, Lon: lon},
		DisplayName: first.DisplayName,
	}, nil
}
