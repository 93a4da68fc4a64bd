package modmap

import (
	"errors"

	"github.com/modmap/modmap/typecheck"
)

// Sentinel errors for matching with errors.Is. Errors returned by this
// package wrap exactly one of these.
var (
	// ErrKeyNotFound marks reads or deletes of keys that are not present.
	ErrKeyNotFound = errors.New("key not found")
	// ErrUnknownKey marks writes of undeclared keys on strict types that
	// forbid extras.
	ErrUnknownKey = errors.New("unknown key")
	// ErrComputedWrite marks writes or deletes of computed members.
	ErrComputedWrite = errors.New("computed members are read-only")
	// ErrMissingField marks construction without a required field.
	ErrMissingField = errors.New("required field missing")
	// ErrNotJSONable marks values rejected by JSON-shape enforcement.
	ErrNotJSONable = errors.New("value is not JSON-serializable")
	// ErrCycle marks computed members whose dependencies form a cycle.
	ErrCycle = errors.New("dependency cycle")
	// ErrBadSpec marks malformed type specs passed to Define.
	ErrBadSpec = errors.New("invalid type spec")

	// ErrTypeMismatch and ErrCoerce re-export the typecheck sentinels, so
	// callers of this package need not import typecheck to classify errors.
	ErrTypeMismatch = typecheck.ErrTypeMismatch
	ErrCoerce       = typecheck.ErrCoerce
)
