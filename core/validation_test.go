package core

import (
	"errors"
	"testing"
	"time"
)

func TestValidateSource(t *testing.T) {
	tests := []struct {
		name    string
		source  *Source
		wantErr error
	}{
		{
			name: "valid source",
			source: &Source{
				ID:       "eu-grants-rss",
				Protocol: ProtocolRSS,
				Endpoint: "https://example.org/feed.xml",
				Priority: 0.5,
			},
			wantErr: nil,
		},
		{
			name:    "nil source",
			source:  nil,
			wantErr: ErrInvalidSource,
		},
		{
			name: "empty id",
			source: &Source{
				Protocol: ProtocolRSS,
				Endpoint: "https://example.org/feed.xml",
			},
			wantErr: ErrEmptySourceID,
		},
		{
			name: "empty endpoint",
			source: &Source{
				ID:       "eu-grants-rss",
				Protocol: ProtocolRSS,
			},
			wantErr: ErrEmptyEndpoint,
		},
		{
			name: "unknown protocol",
			source: &Source{
				ID:       "eu-grants-rss",
				Protocol: Protocol(42),
				Endpoint: "https://example.org/feed.xml",
			},
			wantErr: ErrInvalidProtocol,
		},
		{
			name: "priority out of range",
			source: &Source{
				ID:       "eu-grants-rss",
				Protocol: ProtocolRSS,
				Endpoint: "https://example.org/feed.xml",
				Priority: 1.5,
			},
			wantErr: ErrInvalidSource,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateSource(tt.source)
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("got %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateCandidate(t *testing.T) {
	tests := []struct {
		name      string
		candidate *Candidate
		wantErr   error
	}{
		{
			name: "valid candidate",
			candidate: &Candidate{
				SourceID:  "eu-grants-rss",
				Title:     "New grant round",
				Link:      "https://example.org/call",
				FetchedAt: time.Now().UTC(),
			},
			wantErr: nil,
		},
		{
			name:      "nil candidate",
			candidate: nil,
			wantErr:   ErrInvalidCandidate,
		},
		{
			name: "empty title",
			candidate: &Candidate{
				SourceID: "eu-grants-rss",
				Link:     "https://example.org/call",
			},
			wantErr: ErrEmptyTitle,
		},
		{
			name: "empty link",
			candidate: &Candidate{
				SourceID: "eu-grants-rss",
				Title:    "New grant round",
			},
			wantErr: ErrEmptyLink,
		},
		{
			name: "empty source id",
			candidate: &Candidate{
				Title: "New grant round",
				Link:  "https://example.org/call",
			},
			wantErr: ErrEmptySourceID,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateCandidate(tt.candidate)
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("got %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestEnrichedRecordFields(t *testing.T) {
	record := &EnrichedRecord{}

	record.SetField(FieldAmount, FieldValue{Value: "$50,000", Confidence: 0.6, Stage: "base_extraction"})
	record.SetField(FieldAmount, FieldValue{Value: "$55,000", Confidence: 0.4, Stage: "deep_crawl"})

	fv, ok := record.Field(FieldAmount)
	if !ok {
		t.Fatal("amount field should be set")
	}
	if fv.Value != "$50,000" {
		t.Errorf("lower-confidence overwrite applied: got %q", fv.Value)
	}

	record.SetField(FieldAmount, FieldValue{Value: "$55,000", Confidence: 0.9, Stage: "deep_crawl"})
	fv, _ = record.Field(FieldAmount)
	if fv.Value != "$55,000" || fv.Stage != "deep_crawl" {
		t.Errorf("higher-confidence overwrite rejected: got %+v", fv)
	}

	if !record.HasSignal() {
		t.Error("record with amount should have signal")
	}

	empty := &EnrichedRecord{}
	if empty.HasSignal() {
		t.Error("empty record should not have signal")
	}
}

func TestDisposition(t *testing.T) {
	accepted := Accepted(&EnrichedRecord{})
	if !accepted.IsAccepted() {
		t.Error("Accepted() should be accepted")
	}

	dropped := Dropped(DropDuplicate)
	if dropped.IsAccepted() {
		t.Error("Dropped() should not be accepted")
	}
	if dropped.Reason.String() != "duplicate" {
		t.Errorf("reason name: got %q", dropped.Reason.String())
	}
}
