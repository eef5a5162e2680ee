// Package vectorstore implements the Vector Store Gateway (spec component
// C): CreateIndex, Upsert, and HybridQuery over a RediSearch-style
// TAG/TEXT/NUMERIC/VECTOR schema.
//
// Redis was chosen over Qdrant (the vector engine the teacher repo wraps in
// internal/persistence/databases/qdrant_vector.go) because the schema this
// spec names — named TAG/TEXT/NUMERIC/VECTOR fields with a single combined
// filter-then-KNN query — is RediSearch's data model, not Qdrant's flat
// payload-value model. Qdrant's filter conditions match a payload value
// directly; it has no first-class notion of a tokenized TEXT field or a
// lexical pre-filter combined with vector search in one round trip the way
// FT.SEARCH's query string does. A Qdrant-backed implementation would need a
// second index (e.g. Postgres full-text) to fulfil the lexical pre-filter,
// defeating the "single hybrid query" contract of §4.3.
//
// As a design note, a Qdrant-backed gateway remains plausible for a simpler
// variant of this system (vector-only search with payload equality filters,
// no TEXT tokenization, no dosage-form TAG matching) — see qdrant_vector.go
// in the teacher for the shape such a gateway would take if this system's
// filter surface were ever reduced to payload equality only.
package vectorstore
