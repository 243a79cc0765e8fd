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


package core

import "errors"

// Pipeline error taxonomy. Transient errors may be retried; terminal errors
// end the current record or cycle; only ErrFatalConfig aborts startup.
var (
	// ErrTransientNetwork indicates a timeout, 5xx response, or connection
	// reset. Retryable.
	ErrTransientNetwork = errors.New("transient network error")

	// ErrRateLimitExceeded indicates a local or remote rate limit was hit.
	// Retryable after backoff.
	ErrRateLimitExceeded = errors.New("rate limit exceeded")

	// ErrProviderUnavailable indicates an LLM provider failed; the router
	// responds by attempting its designated fallback.
	ErrProviderUnavailable = errors.New("provider unavailable")

	// ErrSourceSuspended indicates the source is suspended and needs manual
	// reactivation. Terminal for the cycle.
	ErrSourceSuspended = errors.New("source suspended")

	// ErrFatalConfig indicates configuration that prevents startup entirely.
	ErrFatalConfig = errors.New("fatal config error")
)

// Domain validation errors
var (
	// ErrInvalidSource indicates a Source failed validation.
	ErrInvalidSource = errors.New("invalid source")

	// ErrInvalidCandidate indicates a Candidate failed validation.
	ErrInvalidCandidate = errors.New("invalid candidate")

	// ErrInvalidProtocol indicates an unknown protocol value or name.
	ErrInvalidProtocol = errors.New("invalid protocol")

	// ErrEmptySourceID indicates the source ID field is empty.
	ErrEmptySourceID = errors.New("source id cannot be empty")

	// ErrEmptyEndpoint indicates the source endpoint field is empty.
	ErrEmptyEndpoint = errors.New("source endpoint cannot be empty")

	// ErrEmptyTitle indicates the candidate title is empty.
	ErrEmptyTitle = errors.New("candidate title cannot be empty")

	// ErrEmptyLink indicates the candidate link is empty.
	ErrEmptyLink = errors.New("candidate link cannot be empty")
)

// IsTransient reports whether err is worth retrying: a transient network
// failure or a rate limit that will clear once its window elapses.
func IsTransient(err error) bool {
	return errors.Is(err, ErrTransientNetwork) || errors.Is(err, ErrRateLimitExceeded)
}
