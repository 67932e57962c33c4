// Package rag implements the retrieval-augmented-generation pipeline:
// query embedding, vector similarity search, confidence classification,
// gated generation, and response assembly.
//
// The pipeline depends only on small capability interfaces (Embedder,
// Searcher, Generator, SessionStore), so every external collaborator can be
// substituted with a deterministic fake in tests. Stage failures bubble up to
// the orchestrator, which is the single place that decides retry vs. fail;
// the components themselves never retry.
package rag
