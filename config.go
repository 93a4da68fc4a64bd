package modmap

// Config controls how instances of a type treat writes. The zero value is
// permissive except that extra keys are forbidden; Define applies
// defaultConfig (extras allowed) when a spec carries no Config.
type Config struct {
	// Strict enforces declared field types on every write. Without it,
	// declarations serve defaults and documentation only.
	Strict bool
	// AllowExtra permits keys outside the declared fields. It matters only
	// under Strict; lenient types always accept extras.
	AllowExtra bool
	// Coerce converts non-conforming writes toward the declared type instead
	// of rejecting them outright. It matters only under Strict.
	Coerce bool
	// EnforceJSON rejects any written value whose shape cannot round-trip
	// through JSON.
	EnforceJSON bool
}

func defaultConfig() Config {
	return Config{AllowExtra: true}
}
