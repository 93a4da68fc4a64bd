package modmap

import (
	"fmt"
	"log/slog"

	"github.com/modmap/modmap/internal/depgraph"
	"github.com/modmap/modmap/typecheck"
	"github.com/modmap/modmap/typeexpr"
)

// Producer derives the value of a computed member from its container.
type Producer func(m *Map) (any, error)

// CheckFunc validates and optionally transforms a value being written to its
// field. Returning an error rejects the write; the returned value is what
// gets stored.
type CheckFunc func(m *Map, value any) (any, error)

// FieldDef declares one field of a container type.
//
// Default and Factory are mutually exclusive. A field with neither is
// required: construction fails unless the initial data provides it. A nil
// Default means "no default"; to default a field to nil, use a Factory that
// returns nil.
type FieldDef struct {
	Name string
	// Type is the shape writes must conform to under Config.Strict. The zero
	// value admits anything.
	Type typeexpr.Expr
	// Default is the value the field takes when construction omits it.
	Default any
	// Factory produces a fresh default per instance. Use it for mutable
	// defaults so instances do not share one value.
	Factory func() any
}

// Required reports whether construction must supply this field.
func (f FieldDef) Required() bool { return f.Default == nil && f.Factory == nil }

// ComputedDef declares a derived, read-only member.
type ComputedDef struct {
	Name string
	// Deps names the members this producer reads. They drive cache
	// invalidation and are verified acyclic at Define time.
	Deps []string
	// Cache stores the produced value until a dependency is written.
	Cache bool
	// Produce derives the value. It runs on first read and after
	// invalidation; a producer error leaves any cached value untouched.
	Produce Producer
}

// CheckDef attaches a check routine to writes of one field. The field does
// not have to be declared; checks on extra keys run whenever the key is
// written.
type CheckDef struct {
	Field string
	Check CheckFunc
}

// Spec declares a container type for Define.
type Spec struct {
	Fields   []FieldDef
	Computed []ComputedDef
	Checks   []CheckDef
	// Config controls write behavior for instances. Nil means the default
	// lenient config. An extending spec inherits its parent's config unless
	// it sets one.
	Config *Config
	// Extends inherits another type's declarations. Fields, computed members
	// and checks redeclared here override the parent's, keeping the parent's
	// declaration position.
	Extends *Type
	// Logger receives debug events from instances of the type. Nil inherits
	// the parent's, or slog.Default.
	Logger *slog.Logger
}

// Type is an immutable container type built by Define. It is safe to share
// across goroutines.
type Type struct {
	name     string
	fields   map[string]FieldDef
	order    []string // field declaration order, ancestors first
	computed map[string]ComputedDef
	checks   map[string]CheckFunc
	config   Config
	graph    *depgraph.Graph
	logger   *slog.Logger
}

// Define builds a container type named name from spec. It validates the
// declarations, wires the computed dependency graph, and rejects cycles.
func Define(name string, spec Spec) (*Type, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: type name must not be empty", ErrBadSpec)
	}

	t := &Type{
		name:     name,
		fields:   make(map[string]FieldDef),
		computed: make(map[string]ComputedDef),
		checks:   make(map[string]CheckFunc),
		config:   defaultConfig(),
		logger:   slog.Default(),
	}

	if parent := spec.Extends; parent != nil {
		for _, fname := range parent.order {
			t.fields[fname] = parent.fields[fname]
			t.order = append(t.order, fname)
		}
		for cname, def := range parent.computed {
			t.computed[cname] = def
		}
		for field, check := range parent.checks {
			t.checks[field] = check
		}
		t.config = parent.config
		t.logger = parent.logger
	}
	if spec.Config != nil {
		t.config = *spec.Config
	}
	if spec.Logger != nil {
		t.logger = spec.Logger
	}

	seen := make(map[string]bool)
	for _, def := range spec.Fields {
		if def.Name == "" {
			return nil, fmt.Errorf("%w: field name must not be empty", ErrBadSpec)
		}
		if seen[def.Name] {
			return nil, fmt.Errorf("%w: field %q declared twice", ErrBadSpec, def.Name)
		}
		seen[def.Name] = true
		if def.Default != nil && def.Factory != nil {
			return nil, fmt.Errorf("%w: field %q has both a default and a factory", ErrBadSpec, def.Name)
		}
		if _, isComputed := t.computed[def.Name]; isComputed {
			return nil, fmt.Errorf("%w: %q is declared as both field and computed", ErrBadSpec, def.Name)
		}
		if _, override := t.fields[def.Name]; !override {
			t.order = append(t.order, def.Name)
		}
		t.fields[def.Name] = def
	}

	for _, def := range spec.Computed {
		if def.Name == "" {
			return nil, fmt.Errorf("%w: computed member name must not be empty", ErrBadSpec)
		}
		if seen[def.Name] {
			return nil, fmt.Errorf("%w: %q declared twice", ErrBadSpec, def.Name)
		}
		seen[def.Name] = true
		if def.Produce == nil {
			return nil, fmt.Errorf("%w: computed member %q has no producer", ErrBadSpec, def.Name)
		}
		if _, isField := t.fields[def.Name]; isField {
			return nil, fmt.Errorf("%w: %q is declared as both field and computed", ErrBadSpec, def.Name)
		}
		t.computed[def.Name] = def
	}

	checkSeen := make(map[string]bool)
	for _, def := range spec.Checks {
		if def.Field == "" {
			return nil, fmt.Errorf("%w: check routine needs a field name", ErrBadSpec)
		}
		if def.Check == nil {
			return nil, fmt.Errorf("%w: check routine on %q is nil", ErrBadSpec, def.Field)
		}
		if checkSeen[def.Field] {
			return nil, fmt.Errorf("%w: field %q has two check routines", ErrBadSpec, def.Field)
		}
		checkSeen[def.Field] = true
		if _, isComputed := t.computed[def.Field]; isComputed {
			return nil, fmt.Errorf("%w: check routine on computed member %q", ErrBadSpec, def.Field)
		}
		t.checks[def.Field] = def.Check
	}

	if err := t.buildGraph(); err != nil {
		return nil, err
	}

	t.logger.Debug("container type defined",
		"type", t.name,
		"fields", len(t.fields),
		"computed", len(t.computed),
		"checks", len(t.checks))
	return t, nil
}

// MustDefine is Define for package-level type variables; it panics on error.
func MustDefine(name string, spec Spec) *Type {
	t, err := Define(name, spec)
	if err != nil {
		panic(fmt.Sprintf("modmap: MustDefine(%q): %v", name, err))
	}
	return t
}

// buildGraph wires dependency edges from every member a producer reads to the
// computed member reading it. Dependency names outside the declarations are
// registered too: they are extra keys that exist only at runtime.
func (t *Type) buildGraph() error {
	g := depgraph.New()
	for name := range t.fields {
		g.Add(name)
	}
	for name, def := range t.computed {
		g.Add(name)
		for _, dep := range def.Deps {
			g.Add(dep)
		}
	}
	for name, def := range t.computed {
		for _, dep := range def.Deps {
			if err := g.Depend(name, dep); err != nil {
				return fmt.Errorf("%w: %s", ErrCycle, err)
			}
		}
	}
	if err := g.CheckAcyclic(); err != nil {
		return fmt.Errorf("%w: %s", ErrCycle, err)
	}
	t.graph = g
	return nil
}

// Name returns the type's name.
func (t *Type) Name() string { return t.name }

// Config returns the write behavior of instances.
func (t *Type) Config() Config { return t.config }

// Fields returns the field declarations in declaration order, ancestors
// first.
func (t *Type) Fields() []FieldDef {
	out := make([]FieldDef, 0, len(t.order))
	for _, name := range t.order {
		out = append(out, t.fields[name])
	}
	return out
}

// Field looks up a field declaration by name.
func (t *Type) Field(name string) (FieldDef, bool) {
	def, ok := t.fields[name]
	return def, ok
}

// Computed looks up a computed member declaration by name.
func (t *Type) Computed(name string) (ComputedDef, bool) {
	def, ok := t.computed[name]
	return def, ok
}

// Dependents returns the computed members invalidated directly or indirectly
// by writing the given member.
func (t *Type) Dependents(name string) []string {
	return t.graph.Affected(name)
}

// InstanceOf returns a type expression matching instances of t, usable in
// field declarations and anywhere else the checker runs. Under coercion, a
// plain mapping converts by constructing a t instance from it. Matching is by
// type name.
func InstanceOf(t *Type) typeexpr.Expr {
	if t == nil {
		panic("modmap: InstanceOf(nil)")
	}
	return typeexpr.InstanceRef(t.name, t)
}

// Base is the lenient, undeclared container type: no fields, no computed
// members, extras allowed, nothing enforced. New builds instances of it.
var Base = MustDefine("Map", Spec{})

// containerCoercer backs coercing writes and Expr-level instance
// construction. Shared by all types; the hook resolves the declaring type
// from the instance expression itself.
var containerCoercer *typecheck.Coercer

// The coercer is assigned in init rather than at declaration because its
// instantiate hook refers back to the write pipeline, which the compiler's
// static initialization-cycle check rejects in a var initializer.
func init() {
	containerCoercer = typecheck.NewCoercer(typecheck.WithInstantiate(instantiate))
}

// instantiate builds an instance of the declaring type carried by an
// instance expression from mapping-shaped input.
func instantiate(ref any, typeName string, value any) (any, error) {
	t, ok := ref.(*Type)
	if !ok || t == nil {
		return nil, fmt.Errorf("no declaring type for container type %q", typeName)
	}
	initial, err := plainStringMap(value)
	if err != nil {
		return nil, err
	}
	return t.New(initial)
}
