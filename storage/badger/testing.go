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


package badger

import "github.com/sievework/prospector/storage"

// NewMemoryStores creates in-memory source, dedup, and record stores for
// testing. Caller must close all three stores and the backend when done.
func NewMemoryStores() (storage.SourceRepository, storage.DedupIndex, storage.RecordRepository, *Backend, error) {
	backend, err := OpenBackend("", true)
	if err != nil {
		return nil, nil, nil, nil, err
	}

	sources, err := NewSourceRepository(backend)
	if err != nil {
		backend.Close()
		return nil, nil, nil, nil, err
	}

	dedup, err := NewDedupIndex(backend)
	if err != nil {
		sources.Close()
		backend.Close()
		return nil, nil, nil, nil, err
	}

	records, err := NewRecordRepository(backend)
	if err != nil {
		dedup.Close()
		sources.Close()
		backend.Close()
		return nil, nil, nil, nil, err
	}

	return sources, dedup, records, backend, nil
}
