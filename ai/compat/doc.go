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


// Package compat implements ai.LLMBackend for OpenAI-compatible APIs
// (Ollama, LocalAI, vLLM, or any server speaking the /v1 chat protocol).
// This is the cheap provider in the default routing table, handling bulk
// classification and field extraction.
package compat
