package distance

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"storefront-distance-service/internal/domain"
	"storefront-distance-service/internal/platform/obs"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	DefaultTableBaseURL = "https://router.project-osrm.org/table/v1"
	DefaultUserAgent    = "storefront-distance-service/1.0"
)

// OSRMClient queries an OSRM-compatible distance table endpoint.
//
// Each call is a single one-source request; batching, pacing and caching
// are the caller's concern. The client is safe for concurrent use.
type OSRMClient struct {
	session   *http.Client
	baseURL   string
	profile   string
	userAgent string
	logger    *zap.Logger
}

type OSRMOption func(*OSRMClient)

func WithHTTPClient(c *http.Client) OSRMOption {
	return func(o *OSRMClient) { o.session = c }
}

func WithUserAgent(ua string) OSRMOption {
	return func(o *OSRMClient) {
		if strings.TrimSpace(ua) != "" {
			o.userAgent = ua
		}
	}
}

func WithLogger(l *zap.Logger) OSRMOption {
	return func(o *OSRMClient) { o.logger = obs.OrNop(l) }
}

func NewOSRMClient(baseURL string, opts ...OSRMOption) *OSRMClient {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = DefaultTableBaseURL
	}

	o := &OSRMClient{
		session:   &http.Client{Timeout: 10 * time.Second},
		baseURL:   strings.TrimRight(baseURL, "/"),
		profile:   "driving",
		userAgent: DefaultUserAgent,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

type tableResponse struct {
	Code      string       `json:"code"`
	Distances [][]*float64 `json:"distances"`
}

// Table returns meters from origin to each destination, in request order.
// Position 0 of the request is the origin; nil entries are unroutable destinations.
func (o *OSRMClient) Table(
	ctx context.Context,
	origin domain.Coordinates,
	destinations []domain.Coordinates,
) (_ []*float64, err error) {
	defer obs.Time(ctx, o.logger, "osrm.Table")(&err)

	if len(destinations) == 0 {
		return []*float64{}, nil
	}

	req, err := o.newRequest(ctx, o.tableURL(origin, destinations))
	if err != nil {
		return nil, fmt.Errorf("table request: %w", err)
	}

	resp, err := o.do(req)
	if err != nil {
		return nil, fmt.Errorf("table request failed: %w", err)
	}
	defer resp.Body.Close()

	var tr tableResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return nil, fmt.Errorf("decode table response: %w: %v", ErrMalformedResponse, err)
	}

	if tr.Code != "Ok" {
		return nil, fmt.Errorf("table code %q: %w", tr.Code, ErrMalformedResponse)
	}

	if len(tr.Distances) == 0 {
		return nil, fmt.Errorf("table has no source row: %w", ErrMalformedResponse)
	}

	row := tr.Distances[0]
	if len(row) != len(destinations)+1 {
		return nil, fmt.Errorf(
			"row length %d does not match %d destinations: %w",
			len(row), len(destinations), ErrMalformedResponse,
		)
	}

	return row[1:], nil
}

func (o *OSRMClient) tableURL(origin domain.Coordinates, destinations []domain.Coordinates) string {
	parts := make([]string, 0, 1+len(destinations))
	parts = append(parts, lonLat(origin))
	for _, d := range destinations {
		parts = append(parts, lonLat(d))
	}

	return fmt.Sprintf("%s/%s/%s?sources=0&annotations=distance",
		o.baseURL, o.profile, strings.Join(parts, ";"))
}

func lonLat(c domain.Coordinates) string {
	return strconv.FormatFloat(c.Lon, 'f', -1, 64) + "," + strconv.FormatFloat(c.Lat, 'f', -1, 64)
}

// IsRateLimited reports whether err came from an HTTP 429.
func IsRateLimited(err error) bool {
	return errors.Is(err, ErrRateLimited)
}
