// Package modmap provides a hybrid key/value container: an insertion-ordered
// string-keyed map whose entries can be declared, typed, validated, and
// derived.
//
// A container is an instance of a Type built with Define. The type declares
// fields (with type expressions, defaults, and default factories), computed
// members (derived from other members, optionally cached with automatic
// invalidation), per-field check routines, and a Config controlling
// strictness, extra keys, coercion, and JSON-shape enforcement. The package
// variable Base is the lenient, undeclared type; New builds instances of it
// directly from plain maps.
//
// Nested plain maps convert to containers lazily on first read, and the
// converted value is stored back so repeated reads return the same instance.
// Convert and Unconvert translate whole structures eagerly in either
// direction.
//
// Containers are not safe for concurrent use. Share a container across
// goroutines only with external synchronization; a type, once defined, is
// immutable and safe to share.
package modmap
