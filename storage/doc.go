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


// Package storage provides the storage abstraction layer for Prospector.
//
// This package defines repository interfaces that decouple storage
// implementation from pipeline logic:
//
//   - SourceRepository: the persisted source registry, one entry per source.
//   - DedupIndex: the append-only set of committed content hashes. The index
//     only ever grows; a committed hash is never removed.
//   - RecordRepository: the sink for enriched records, keyed by content hash
//     with conflicting inserts rejected.
//
// All public constructors in backend packages return interface types to keep
// consumers decoupled from BadgerDB specifics; see storage/badger for the
// production implementation and its in-memory test mode.
//
// Values are serialized with mus-go primitive serializers exposed as
// SourceMUS and RecordMUS, the Marshal/Unmarshal/Size triple used throughout
// the badger backend.
package storage
