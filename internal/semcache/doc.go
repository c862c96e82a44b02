// Package semcache caches expensive generation responses keyed by an
// exact request fingerprint, with an optional embedding-similarity
// fallback that recognizes near-identical prompts.
//
// The fingerprint is a stable hash over provider, model, prompt,
// temperature, and max-tokens. Storage is LRU-bounded; lookups never
// error on a miss. Each Cache owns its own hit/miss counters so
// instances stay independent across logical indexes and tests.
package semcache
