// Package depgraph tracks which computed members of a container type read
// which other members. The graph is built once when a type is defined,
// verified acyclic, and then only queried: writing a member invalidates the
// caches of everything transitively downstream of it.
package depgraph
