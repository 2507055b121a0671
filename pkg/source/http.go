package source

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/pivotview/pkg/errors"
	"github.com/matzehuels/pivotview/pkg/httputil"
	pkgio "github.com/matzehuels/pivotview/pkg/io"
	"github.com/matzehuels/pivotview/pkg/observability"
	"github.com/matzehuels/pivotview/pkg/pivot"
)

const (
	defaultAttempts = 3
	defaultDelay    = 500 * time.Millisecond
)

// HTTPOptions configures an [HTTPSource].
type HTTPOptions struct {
	// Headers are sent with every request (e.g. Authorization).
	Headers map[string]string
	// Timeout bounds one request. Zero uses httputil.DefaultTimeout.
	Timeout time.Duration
	// Attempts is the retry budget for transient failures. Zero means 3.
	Attempts int
	// Delay is the initial backoff. Zero means 500ms.
	Delay time.Duration
	// Client overrides the HTTP client (Timeout is then ignored).
	Client *http.Client
	Logger *log.Logger
}

// HTTPSource queries an aggregation backend over HTTP.
type HTTPSource struct {
	base     *url.URL
	client   *http.Client
	headers  map[string]string
	attempts int
	delay    time.Duration
	logger   *log.Logger
}

// NewHTTPSource returns a source for the backend at baseURL.
func NewHTTPSource(baseURL string, opts HTTPOptions) (*HTTPSource, error) {
	if err := errors.ValidateURL(baseURL); err != nil {
		return nil, err
	}
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "parse backend URL")
	}

	s := &HTTPSource{
		base:     u,
		client:   opts.Client,
		headers:  opts.Headers,
		attempts: opts.Attempts,
		delay:    opts.Delay,
		logger:   opts.Logger,
	}
	if s.client == nil {
		s.client = httputil.NewClient(opts.Timeout)
	}
	if s.attempts <= 0 {
		s.attempts = defaultAttempts
	}
	if s.delay <= 0 {
		s.delay = defaultDelay
	}
	if s.logger == nil {
		s.logger = log.New(io.Discard)
	}
	return s, nil
}

// Name implements Source.
func (s *HTTPSource) Name() string { return "http:" + s.base.String() }

// Fetch implements Source.
func (s *HTTPSource) Fetch(ctx context.Context, q pivot.Query) (*pkgio.Payload, error) {
	var p pkgio.Payload
	if err := s.post(ctx, "/query", q, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

type distinctRequest struct {
	Field string `json:"field"`
}

type distinctResponse struct {
	Values []any `json:"values"`
}

// DistinctValues implements Source.
func (s *HTTPSource) DistinctValues(ctx context.Context, field string) ([]string, error) {
	if err := errors.ValidateFieldName(field); err != nil {
		return nil, err
	}
	var resp distinctResponse
	if err := s.post(ctx, "/distinct", distinctRequest{Field: field}, &resp); err != nil {
		return nil, err
	}
	values := make([]string, 0, len(resp.Values))
	for _, v := range resp.Values {
		values = append(values, textOf(v))
	}
	return values, nil
}

func (s *HTTPSource) post(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "encode request")
	}
	endpoint := s.base.JoinPath(path)

	return httputil.RetryNotify(ctx, s.attempts, s.delay, func() error {
		return s.do(ctx, endpoint, payload, out)
	}, func(attempt int, err error, wait time.Duration) {
		s.logger.Warn("retrying backend request", "path", endpoint.Path, "attempt", attempt, "wait", wait, "err", err)
	})
}

func (s *HTTPSource) do(ctx context.Context, endpoint *url.URL, payload []byte, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint.String(), bytes.NewReader(payload))
	if err != nil {
		return errors.Wrap(errors.ErrCodeInvalidInput, err, "build request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	for k, v := range s.headers {
		req.Header.Set(k, v)
	}

	hooks := observability.HTTP()
	hooks.OnRequest(ctx, req.Method, endpoint.Host, endpoint.Path)
	start := time.Now()

	resp, err := s.client.Do(req)
	if err != nil {
		hooks.OnError(ctx, req.Method, endpoint.Host, endpoint.Path, err)
		s.logger.Debug("backend request failed", "path", endpoint.Path, "err", err)
		return transportError(ctx, err)
	}
	defer resp.Body.Close()

	elapsed := time.Since(start)
	hooks.OnResponse(ctx, req.Method, endpoint.Host, endpoint.Path, resp.StatusCode, elapsed)
	s.logger.Debug("backend request", "path", endpoint.Path, "status", resp.StatusCode, "elapsed", elapsed)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		excerpt, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return httputil.CheckStatus(resp.StatusCode, excerpt)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.Wrap(errors.ErrCodeUpstream, err, "decode %s response", endpoint.Path)
	}
	return nil
}

// transportError classifies a client error. Cancellation is final;
// timeouts and other network failures are retried.
func transportError(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	var ne net.Error
	if stderrors.As(err, &ne) && ne.Timeout() {
		return &httputil.RetryableError{Err: errors.Wrap(errors.ErrCodeTimeout, err, "backend request timed out")}
	}
	return &httputil.RetryableError{Err: errors.Wrap(errors.ErrCodeNetwork, err, "backend request failed")}
}
