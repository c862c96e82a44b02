// Package embedder defines the interface boundary to the external
// embedding provider.
//
// The retrieval core treats embedding generation as an external
// collaborator: it accepts finished vectors and never calls a model
// itself. The Embedder interface exists so the hybrid engine can
// optionally resolve a query embedding from query text when the caller
// did not supply one. Implementations, retries, and backoff live with
// the surrounding application.
package embedder
