// Package domain defines the core types of the dialogue tree editor.
//
// # Core Types
//
// Node is a single beat of dialogue placed on the canvas: an NPC line, a
// player choice, or a generic node. Nodes carry optional world-state
// conditions and consequences that reference game elements by name.
//
// Connection is a directed edge from an output port to an input port.
//
// GameElements holds the three named registries (npcs, items, locations)
// that nodes refer to. References are by name and are never cleaned up
// when a name is removed from a registry.
//
// Snapshot is the portable document used for export, import and the
// local recovery slot.
//
// # Errors
//
// Error carries one of the kinds NotFound, InvalidEdge, ValidationFailure,
// NetworkFailure or ParseFailure. Use errors.Is against the Err* sentinels
// or KindOf to branch on the kind.
//
// # Design Principles
//
// - No database or external dependencies
// - Value types copied in and out of the graph store
package domain
