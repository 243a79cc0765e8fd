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


package storage

import (
	"slices"
	"time"

	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/varint"
	"github.com/sievework/prospector/core"
)

// MarshalSource serializes a Source to bytes.
func MarshalSource(source *core.Source) []byte {
	buf := make([]byte, SourceMUS.Size(*source))
	SourceMUS.Marshal(*source, buf)
	return buf
}

// UnmarshalSource deserializes a Source from bytes.
func UnmarshalSource(data []byte) (*core.Source, error) {
	source, _, err := SourceMUS.Unmarshal(data)
	if err != nil {
		return nil, err
	}
	return &source, nil
}

// MarshalRecord serializes an EnrichedRecord to bytes.
func MarshalRecord(record *core.EnrichedRecord) []byte {
	buf := make([]byte, RecordMUS.Size(*record))
	RecordMUS.Marshal(*record, buf)
	return buf
}

// UnmarshalRecord deserializes an EnrichedRecord from bytes.
func UnmarshalRecord(data []byte) (*core.EnrichedRecord, error) {
	record, _, err := RecordMUS.Unmarshal(data)
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// SourceMUS serializes core.Source values. Hand-written against the mus-go
// primitive serializers; field order is part of the on-disk format.
var SourceMUS = sourceSer{}

// RecordMUS serializes core.EnrichedRecord values.
var RecordMUS = recordSer{}

// Times are stored as a zero flag plus unix microseconds so that zero values
// survive a round trip as zero values.
func marshalTime(t time.Time, bs []byte) (n int) {
	n = ord.Bool.Marshal(t.IsZero(), bs)
	if !t.IsZero() {
		n += varint.Int64.Marshal(t.UnixMicro(), bs[n:])
	}
	return n
}

func unmarshalTime(bs []byte) (t time.Time, n int, err error) {
	zero, n, err := ord.Bool.Unmarshal(bs)
	if err != nil || zero {
		return time.Time{}, n, err
	}
	var (
		micros int64
		n1     int
	)
	micros, n1, err = varint.Int64.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return time.Time{}, n, err
	}
	return time.UnixMicro(micros).UTC(), n, nil
}

func sizeTime(t time.Time) (size int) {
	size = ord.Bool.Size(t.IsZero())
	if !t.IsZero() {
		size += varint.Int64.Size(t.UnixMicro())
	}
	return size
}

func marshalStrings(values []string, bs []byte) (n int) {
	n = varint.Int.Marshal(len(values), bs)
	for _, value := range values {
		n += ord.String.Marshal(value, bs[n:])
	}
	return n
}

func unmarshalStrings(bs []byte) (values []string, n int, err error) {
	count, n, err := varint.Int.Unmarshal(bs)
	if err != nil || count == 0 {
		return nil, n, err
	}
	values = make([]string, count)
	for i := 0; i < count; i++ {
		var n1 int
		values[i], n1, err = ord.String.Unmarshal(bs[n:])
		n += n1
		if err != nil {
			return nil, n, err
		}
	}
	return values, n, nil
}

func sizeStrings(values []string) (size int) {
	size = varint.Int.Size(len(values))
	for _, value := range values {
		size += ord.String.Size(value)
	}
	return size
}

type sourceSer struct{}

func (sourceSer) Marshal(v core.Source, bs []byte) (n int) {
	n = ord.String.Marshal(v.ID, bs)
	n += varint.Int.Marshal(int(v.Protocol), bs[n:])
	n += ord.String.Marshal(v.Endpoint, bs[n:])
	n += marshalStrings(v.DomainKeywords, bs[n:])
	n += marshalStrings(v.GeoKeywords, bs[n:])
	n += varint.Int64.Marshal(int64(v.BaseInterval), bs[n:])
	n += varint.Int64.Marshal(int64(v.CurrentInterval), bs[n:])
	n += varint.Float64.Marshal(v.Priority, bs[n:])
	n += varint.Int64.Marshal(v.SuccessCount, bs[n:])
	n += varint.Int64.Marshal(v.FailureCount, bs[n:])
	n += varint.Int.Marshal(v.ConsecutiveFailures, bs[n:])
	n += varint.Float64.Marshal(v.QualityEMA, bs[n:])
	n += varint.Float64.Marshal(v.ProductivityEMA, bs[n:])
	n += marshalTime(v.LastCheckedAt, bs[n:])
	n += ord.Bool.Marshal(v.Suspended, bs[n:])
	n += marshalTime(v.InsertedAt, bs[n:])
	n += marshalTime(v.UpdatedAt, bs[n:])
	return n
}

func (sourceSer) Unmarshal(bs []byte) (v core.Source, n int, err error) {
	var n1 int
	v.ID, n, err = ord.String.Unmarshal(bs)
	if err != nil {
		return
	}
	var protocol int
	protocol, n1, err = varint.Int.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.Protocol = core.Protocol(protocol)
	v.Endpoint, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.DomainKeywords, n1, err = unmarshalStrings(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.GeoKeywords, n1, err = unmarshalStrings(bs[n:])
	n += n1
	if err != nil {
		return
	}
	var interval int64
	interval, n1, err = varint.Int64.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.BaseInterval = time.Duration(interval)
	interval, n1, err = varint.Int64.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.CurrentInterval = time.Duration(interval)
	v.Priority, n1, err = varint.Float64.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.SuccessCount, n1, err = varint.Int64.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.FailureCount, n1, err = varint.Int64.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.ConsecutiveFailures, n1, err = varint.Int.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.QualityEMA, n1, err = varint.Float64.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.ProductivityEMA, n1, err = varint.Float64.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.LastCheckedAt, n1, err = unmarshalTime(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.Suspended, n1, err = ord.Bool.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.InsertedAt, n1, err = unmarshalTime(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.UpdatedAt, n1, err = unmarshalTime(bs[n:])
	n += n1
	return
}

func (sourceSer) Size(v core.Source) (size int) {
	size = ord.String.Size(v.ID)
	size += varint.Int.Size(int(v.Protocol))
	size += ord.String.Size(v.Endpoint)
	size += sizeStrings(v.DomainKeywords)
	size += sizeStrings(v.GeoKeywords)
	size += varint.Int64.Size(int64(v.BaseInterval))
	size += varint.Int64.Size(int64(v.CurrentInterval))
	size += varint.Float64.Size(v.Priority)
	size += varint.Int64.Size(v.SuccessCount)
	size += varint.Int64.Size(v.FailureCount)
	size += varint.Int.Size(v.ConsecutiveFailures)
	size += varint.Float64.Size(v.QualityEMA)
	size += varint.Float64.Size(v.ProductivityEMA)
	size += sizeTime(v.LastCheckedAt)
	size += ord.Bool.Size(v.Suspended)
	size += sizeTime(v.InsertedAt)
	size += sizeTime(v.UpdatedAt)
	return size
}

type recordSer struct{}

func (recordSer) Marshal(v core.EnrichedRecord, bs []byte) (n int) {
	n = ord.String.Marshal(v.SourceID, bs)
	n += ord.String.Marshal(v.Title, bs[n:])
	n += ord.String.Marshal(v.RawBody, bs[n:])
	n += ord.String.Marshal(v.Link, bs[n:])
	n += marshalTime(v.FetchedAt, bs[n:])
	n += ord.String.Marshal(v.ContentHash, bs[n:])
	n += varint.Float64.Marshal(v.RelevanceScore, bs[n:])
	n += varint.Int.Marshal(len(v.Fields), bs[n:])
	for _, name := range sortedFieldNames(v.Fields) {
		fv := v.Fields[name]
		n += ord.String.Marshal(name, bs[n:])
		n += ord.String.Marshal(fv.Value, bs[n:])
		n += varint.Float64.Marshal(fv.Confidence, bs[n:])
		n += ord.String.Marshal(fv.Stage, bs[n:])
	}
	n += marshalStrings(v.StagesApplied, bs[n:])
	n += varint.Float64.Marshal(v.Confidence, bs[n:])
	n += varint.Int.Marshal(len(v.Provenance), bs[n:])
	for _, ref := range v.Provenance {
		n += ord.String.Marshal(ref.Provider, bs[n:])
		n += ord.String.Marshal(ref.TaskType, bs[n:])
		n += ord.Bool.Marshal(ref.FallbackUsed, bs[n:])
	}
	n += marshalTime(v.InsertedAt, bs[n:])
	return n
}

func (recordSer) Unmarshal(bs []byte) (v core.EnrichedRecord, n int, err error) {
	var n1 int
	v.SourceID, n, err = ord.String.Unmarshal(bs)
	if err != nil {
		return
	}
	v.Title, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.RawBody, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.Link, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.FetchedAt, n1, err = unmarshalTime(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.ContentHash, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.RelevanceScore, n1, err = varint.Float64.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	var count int
	count, n1, err = varint.Int.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	if count > 0 {
		v.Fields = make(map[string]core.FieldValue, count)
	}
	for i := 0; i < count; i++ {
		var (
			name string
			fv   core.FieldValue
		)
		name, n1, err = ord.String.Unmarshal(bs[n:])
		n += n1
		if err != nil {
			return
		}
		fv.Value, n1, err = ord.String.Unmarshal(bs[n:])
		n += n1
		if err != nil {
			return
		}
		fv.Confidence, n1, err = varint.Float64.Unmarshal(bs[n:])
		n += n1
		if err != nil {
			return
		}
		fv.Stage, n1, err = ord.String.Unmarshal(bs[n:])
		n += n1
		if err != nil {
			return
		}
		v.Fields[name] = fv
	}
	v.StagesApplied, n1, err = unmarshalStrings(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.Confidence, n1, err = varint.Float64.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	count, n1, err = varint.Int.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	if count > 0 {
		v.Provenance = make([]core.ProviderRef, count)
	}
	for i := 0; i < count; i++ {
		v.Provenance[i].Provider, n1, err = ord.String.Unmarshal(bs[n:])
		n += n1
		if err != nil {
			return
		}
		v.Provenance[i].TaskType, n1, err = ord.String.Unmarshal(bs[n:])
		n += n1
		if err != nil {
			return
		}
		v.Provenance[i].FallbackUsed, n1, err = ord.Bool.Unmarshal(bs[n:])
		n += n1
		if err != nil {
			return
		}
	}
	v.InsertedAt, n1, err = unmarshalTime(bs[n:])
	n += n1
	return
}

func (recordSer) Size(v core.EnrichedRecord) (size int) {
	size = ord.String.Size(v.SourceID)
	size += ord.String.Size(v.Title)
	size += ord.String.Size(v.RawBody)
	size += ord.String.Size(v.Link)
	size += sizeTime(v.FetchedAt)
	size += ord.String.Size(v.ContentHash)
	size += varint.Float64.Size(v.RelevanceScore)
	size += varint.Int.Size(len(v.Fields))
	for name, fv := range v.Fields {
		size += ord.String.Size(name)
		size += ord.String.Size(fv.Value)
		size += varint.Float64.Size(fv.Confidence)
		size += ord.String.Size(fv.Stage)
	}
	size += sizeStrings(v.StagesApplied)
	size += varint.Float64.Size(v.Confidence)
	size += varint.Int.Size(len(v.Provenance))
	for _, ref := range v.Provenance {
		size += ord.String.Size(ref.Provider)
		size += ord.String.Size(ref.TaskType)
		size += ord.Bool.Size(ref.FallbackUsed)
	}
	size += sizeTime(v.InsertedAt)
	return size
}

// Map iteration order is not stable; fields are marshaled in sorted name
// order so equal records produce equal bytes.
func sortedFieldNames(fields map[string]core.FieldValue) []string {
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
