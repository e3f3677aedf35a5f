// Package service implements the business rules of the dialogue store
// server.
//
// StoreService sits between the HTTP handlers and the repository. It
// validates payloads (struct tags checked with validator), maps repository
// results onto the domain error kinds, and publishes an Event for every
// write so connected SSE clients can follow along.
//
// # Rules
//
// - Node ids are chosen by the client; a duplicate id is a validation failure
// - A connection must join two distinct existing nodes (InvalidEdge otherwise)
// - Deleting a node leaves its connections alone
// - Import is all-or-nothing and rejects inconsistent documents as ParseFailure
package service
