// Copyright 2025 Poiesic Systems
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


// Package ai defines the embedding provider contract consumed by the
// ingestion pipeline and searcher.
//
// The package follows the dependency inversion principle: the pipeline
// depends on the Embedder interface, never on a concrete provider. Two
// implementation sub-packages exist:
//
//   - ai/openai: production implementation for OpenAI-compatible APIs
//   - ai/mock: deterministic test double, no network
//
// The batch contract is strict. EmbedTexts returns one vector per input text
// in input order, all of identical provider-fixed dimension, or it fails the
// whole batch with ErrEmbeddingProvider. There is no partial-batch resume:
// a partial vector set would desynchronize chunk-to-vector row alignment in
// the index, so the pipeline discards the attempt entirely on failure.
//
// Configuration is an explicit Config value constructed with functional
// options and injected where needed:
//
//	cfg := ai.NewConfig(
//	    ai.WithHost("http://localhost:11434/v1"),
//	    ai.WithModel("text-embedding-3-small"),
//	)
//	embedder, err := openai.NewEmbedder(cfg)
package ai
