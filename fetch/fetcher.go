// Copyright 2026 Sievework
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package fetch

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/sievework/prospector/core"
	"github.com/sievework/prospector/ratelimit"
)

const (
	defaultTimeout    = 20 * time.Second
	defaultUserAgent  = "prospector/1.0"
	defaultHostCalls  = 30
	defaultHostWindow = time.Minute
	defaultRetryBase  = 500 * time.Millisecond
)

// Fetcher retrieves raw candidates from one source.
type Fetcher interface {
	// Fetch returns the candidates currently visible at the source. An
	// empty slice with a nil error is a successful but unproductive fetch.
	Fetch(ctx context.Context, source *core.Source) ([]*core.Candidate, error)
}

// Dispatcher routes a source to the fetcher for its protocol.
type Dispatcher struct {
	rss        Fetcher
	search     Fetcher
	submission Fetcher
}

// Option configures a Dispatcher and the fetchers it builds.
type Option func(*settings) error

type settings struct {
	client  *http.Client
	limiter *ratelimit.Limiter
	clock   core.Clock

	hostCalls  int
	hostWindow time.Duration
	retryBase  time.Duration
	userAgent  string
}

// WithHTTPClient sets the HTTP client shared by every fetcher.
func WithHTTPClient(client *http.Client) Option {
	return func(s *settings) error {
		if client == nil {
			return ErrClientRequired
		}
		s.client = client
		return nil
	}
}

// WithLimiter sets the shared rate limiter. Without one, fetches are
// unthrottled.
func WithLimiter(limiter *ratelimit.Limiter) Option {
	return func(s *settings) error {
		s.limiter = limiter
		return nil
	}
}

// WithHostBudget caps requests per host per window.
func WithHostBudget(maxCalls int, window time.Duration) Option {
	return func(s *settings) error {
		s.hostCalls = maxCalls
		s.hostWindow = window
		return nil
	}
}

// WithClock sets the time source used for candidate timestamps.
func WithClock(clock core.Clock) Option {
	return func(s *settings) error {
		if clock == nil {
			return ErrClockRequired
		}
		s.clock = clock
		return nil
	}
}

// WithRetryBase sets the base delay for the exponential retry backoff.
func WithRetryBase(base time.Duration) Option {
	return func(s *settings) error {
		s.retryBase = base
		return nil
	}
}

// NewDispatcher creates a dispatcher with one fetcher per protocol.
func NewDispatcher(opts ...Option) (*Dispatcher, error) {
	s := &settings{
		client:     &http.Client{Timeout: defaultTimeout},
		clock:      core.SystemClock(),
		hostCalls:  defaultHostCalls,
		hostWindow: defaultHostWindow,
		retryBase:  defaultRetryBase,
		userAgent:  defaultUserAgent,
	}

	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}

	return &Dispatcher{
		rss:        newRSSFetcher(s),
		search:     newSearchFetcher(s),
		submission: newPageFetcher(s),
	}, nil
}

// Fetch dispatches on the source's protocol tag. Unknown protocols are a
// configuration error, not a transient one.
func (d *Dispatcher) Fetch(ctx context.Context, source *core.Source) ([]*core.Candidate, error) {
	switch source.Protocol {
	case core.ProtocolRSS:
		return d.rss.Fetch(ctx, source)
	case core.ProtocolSearchQuery:
		return d.search.Fetch(ctx, source)
	case core.ProtocolAdminURL, core.ProtocolUserSubmission:
		return d.submission.Fetch(ctx, source)
	default:
		return nil, fmt.Errorf("%w: %s", core.ErrInvalidProtocol, source.Protocol)
	}
}

// get performs one throttled, retried GET and hands the response to parse.
// The response body belongs to parse; get closes it afterwards.
func (s *settings) get(ctx context.Context, rawURL string, parse func(*http.Response) error) error {
	host := hostOf(rawURL)

	operation := func() error {
		if s.limiter != nil && !s.limiter.CanProceed("fetch|"+host, s.hostCalls, s.hostWindow) {
			return fmt.Errorf("%w: host %s, retry in %s",
				core.ErrRateLimitExceeded, host, s.limiter.WaitTime("fetch|"+host))
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return fmt.Errorf("building request for %s: %w", rawURL, err)
		}
		req.Header.Set("User-Agent", s.userAgent)

		resp, err := s.client.Do(req)
		if err != nil {
			return classifyTransportError(err)
		}
		defer resp.Body.Close()

		if err := classifyStatus(resp.StatusCode); err != nil {
			return fmt.Errorf("%w: %s returned %s", err, host, resp.Status)
		}

		return parse(resp)
	}

	return ratelimit.RetryWithBackoff(ctx, operation, ratelimit.DefaultMaxAttempts, s.retryBase)
}

// classifyStatus maps HTTP status codes onto the error taxonomy: 5xx is
// transient, 429 is a rate limit, other non-2xx codes are terminal.
func classifyStatus(status int) error {
	switch {
	case status >= 200 && status < 300:
		return nil
	case status == http.StatusTooManyRequests:
		return core.ErrRateLimitExceeded
	case status >= 500:
		return core.ErrTransientNetwork
	default:
		return ErrUpstreamRejected
	}
}

// classifyTransportError marks timeouts and connection failures transient.
func classifyTransportError(err error) error {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: %w", core.ErrTransientNetwork, err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", core.ErrTransientNetwork, err)
	}
	// url.Error wraps dial and reset failures from the transport.
	var urlErr *url.Error
	if errors.As(err, &urlErr) && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("%w: %w", core.ErrTransientNetwork, err)
	}
	return err
}

func hostOf(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Host == "" {
		return rawURL
	}
	return parsed.Host
}
