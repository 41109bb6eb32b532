package catalog

import "strings"

// Introspection is what the classifier knows about a controller: which of
// the access flags its actions inherit and whether it overrides the standard
// authorization hooks.
type Introspection struct {
	// RequireAdmin restricts the controller's actions to system admins.
	RequireAdmin bool
	// RequireAnon restricts the controller's actions to anonymous callers.
	RequireAnon bool
	// AllowAnon opens the controller's actions to everyone.
	AllowAnon bool
	// NonStandard marks controllers that implement their own authorization
	// checks; enforcement may not follow the standard decision table.
	NonStandard bool
}

// ControllerIntrospector resolves the classification of a controller by
// name. The second return value reports whether the controller is known.
type ControllerIntrospector interface {
	Introspect(controller string) (Introspection, bool)
}

// Registry is a static ControllerIntrospector backed by an in-process map.
// Handlers register their controllers at startup; anything not registered
// classifies as unknown.
type Registry struct {
	entries map[string]Introspection
}

// NewRegistry creates an empty introspection registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]Introspection)}
}

// Register records the classification for a controller. Names are matched
// case-insensitively; a later registration replaces an earlier one.
func (r *Registry) Register(controller string, in Introspection) {
	r.entries[strings.ToLower(controller)] = in
}

// Introspect implements ControllerIntrospector.
func (r *Registry) Introspect(controller string) (Introspection, bool) {
	in, ok := r.entries[strings.ToLower(controller)]
	return in, ok
}
