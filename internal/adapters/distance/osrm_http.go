package distance

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"storefront-distance-service/internal/ports"
	"strings"
)

// ErrRateLimited reports an HTTP 429 from the routing service.
var ErrRateLimited = ports.ErrRateLimited

// ErrMalformedResponse reports a body that does not match the table contract.
var ErrMalformedResponse = errors.New("malformed routing table response")

// HTTPStatusError is any non-success status other than 429.
type HTTPStatusError struct {
	Code int
	Body string
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("Code %d: %s", e.Code, e.Body)
}

func (o *OSRMClient) newRequest(ctx context.Context, url string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("User-Agent", o.userAgent)
	req.Header.Set("Accept", "application/json")

	return req, nil
}

// do executes req once. There is no retry: a failed batch is skipped by the caller.
func (o *OSRMClient) do(req *http.Request) (*http.Response, error) {
	resp, err := o.session.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusTooManyRequests {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1024))
		resp.Body.Close()
		return nil, ErrRateLimited
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		resp.Body.Close()
		return nil, &HTTPStatusError{
			Code: resp.StatusCode,
			Body: strings.TrimSpace(string(b)),
		}
	}
	return resp, nil
}
