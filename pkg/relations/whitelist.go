package relations

// Whitelist declares which relations of an entity type may be included.
type Whitelist struct {
	// Allowed lists the relations that may be included on request.
	Allowed []string
	// All permits every relation the entity can resolve.
	All bool
	// Defaults are included without being requested. Entries may be dotted.
	Defaults []string
	// Constraints apply when a relation is loaded, keyed by relation name.
	Constraints map[string]Constraint
}

// Allows reports whether name may be included on request.
func (w *Whitelist) Allows(name string) bool {
	if w == nil {
		return false
	}
	if w.All {
		return true
	}
	return containsString(w.Allowed, name)
}

// Constraint returns the constraint declared for name, if any.
func (w *Whitelist) Constraint(name string) Constraint {
	if w == nil || w.Constraints == nil {
		return nil
	}
	return w.Constraints[name]
}

// ChildLookup resolves the whitelist of a related entity type, together with
// the lookup for its own relations. A nil whitelist means none was declared.
type ChildLookup func(relation string) (*Whitelist, ChildLookup)
