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

import "fmt"

// ValidateSource validates a Source according to domain rules.
//
// Validation rules:
//   - ID and Endpoint must not be empty
//   - Protocol must be one of the known variants
//   - Priority must be in [0,1]
//
// NOT validated (populated by the scheduler):
//   - CurrentInterval (0 is valid before the first attempt)
//   - the counters and EMAs
func ValidateSource(source *Source) error {
	if source == nil {
		return fmt.Errorf("%w: source is nil", ErrInvalidSource)
	}
	if source.ID == "" {
		return fmt.Errorf("%w: %w", ErrInvalidSource, ErrEmptySourceID)
	}
	if source.Endpoint == "" {
		return fmt.Errorf("%w: %w", ErrInvalidSource, ErrEmptyEndpoint)
	}
	if _, err := ParseProtocol(source.Protocol.String()); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidSource, err)
	}
	if source.Priority < 0 || source.Priority > 1 {
		return fmt.Errorf("%w: priority %f outside [0,1]", ErrInvalidSource, source.Priority)
	}
	return nil
}

// ValidateCandidate validates a Candidate according to domain rules.
// Title and Link are the two fields every later stage depends on; the
// content hash is derived, so an empty hash is filled rather than rejected.
func ValidateCandidate(candidate *Candidate) error {
	if candidate == nil {
		return fmt.Errorf("%w: candidate is nil", ErrInvalidCandidate)
	}
	if candidate.Title == "" {
		return fmt.Errorf("%w: %w", ErrInvalidCandidate, ErrEmptyTitle)
	}
	if candidate.Link == "" {
		return fmt.Errorf("%w: %w", ErrInvalidCandidate, ErrEmptyLink)
	}
	if candidate.SourceID == "" {
		return fmt.Errorf("%w: %w", ErrInvalidCandidate, ErrEmptySourceID)
	}
	return nil
}
