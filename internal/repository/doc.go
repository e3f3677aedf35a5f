// Package repository defines the data access interface for the dialogue
// store server.
//
// The sqlite subpackage implements it. Rows are kept exactly as clients
// write them: deleting a node does not remove its connections, because
// the editor deletes those itself, one request at a time, and a partial
// cascade has to stay visible.
//
// # SQLite Implementation
//
// - Nodes keep their indexed columns (id, type, position, text) next to a
//   JSON column for choices, conditions and consequences
// - Connection ids default to the next free integer
// - Import replaces every table in one transaction
package repository
