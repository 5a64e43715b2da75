// Package openai provides an ai.Embedder backed by OpenAI-compatible
// embedding APIs (OpenAI, Azure OpenAI, Ollama, LocalAI, vLLM).
//
// The implementation wraps langchaingo's embeddings client and enforces the
// strict batch contract of ai.Embedder: one equal-dimension vector per input
// text, in input order, or a whole-batch ai.ErrEmbeddingProvider failure.
package openai
