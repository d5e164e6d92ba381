// Package types defines the Message entity and its content slots, the
// Resource entity, the store interfaces consumed by the lifecycle gateway,
// and the standard errors for the Vapor storage system.
//
// Entities carry their own behavior: the expiration state machine lives as
// methods on Message, and the resource-reference resolver is a pure method
// with no storage dependency. Persistence and cascade semantics live in
// pkg/lifecycle and internal/sqlite.
package types
