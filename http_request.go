package resolver

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"
)

// httpCaller performs the outbound requests of the fallback tiers.
type httpCaller struct {
	hc         Doer
	ua         string
	header     http.Header
	timeout    time.Duration
	maxRetries int
	backoff    Backoff
}

type httpResult struct {
	status int
	header http.Header
	body   []byte
}

// do sends one request, retrying transient network errors and 429/502/503/504.
// Any other status is returned to the caller for classification.
func (c *httpCaller) do(ctx context.Context, method, u string, body []byte, header http.Header) (*httpResult, error) {
	for attempt := 1; ; attempt++ {
		res, wait, err := c.once(ctx, method, u, body, header, attempt)
		if wait < 0 {
			return res, err
		}
		if attempt > c.maxRetries {
			return res, err
		}
		if err := sleepCtx(ctx, wait); err != nil {
			return nil, err
		}
	}
}

// once returns wait >= 0 when the attempt may be retried after wait.
func (c *httpCaller) once(ctx context.Context, method, u string, body []byte, header http.Header, attempt int) (*httpResult, time.Duration, error) {
	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var rd io.Reader
	if body != nil {
		rd = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(reqCtx, method, u, rd)
	if err != nil {
		return nil, -1, err
	}
	req.Header.Set("User-Agent", c.ua)
	copyHeaders(req.Header, c.header)
	for k, vs := range header {
		req.Header.Del(k)
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		if ctx.Err() == nil && isRetryableNetErr(err) {
			return nil, c.backoff(attempt), err
		}
		return nil, -1, err
	}
	b, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	resp.Body.Close()
	if err != nil {
		return nil, c.backoff(attempt), err
	}
	res := &httpResult{status: resp.StatusCode, header: resp.Header, body: b}

	switch resp.StatusCode {
	case http.StatusTooManyRequests, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return res, retryAfter(resp.Header, c.backoff(attempt)), fmt.Errorf("%s %s: %s", method, u, resp.Status)
	}
	return res, -1, nil
}

func isRetryableNetErr(err error) bool {
	var ne net.Error
	if errors.As(err, &ne) && (ne.Timeout() || temporary(ne)) {
		return true
	}
	msg := lower(err.Error())
	return containsAny(msg, "connection reset", "broken pipe", "unexpected eof", "no such host")
}

// transportKind maps a failed HTTP exchange to Timeout or NetworkError.
func transportKind(ctx context.Context, err error) Kind {
	var ne net.Error
	if errors.Is(ctx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	if errors.As(err, &ne) && ne.Timeout() {
		return KindTimeout
	}
	return KindNetworkError
}
