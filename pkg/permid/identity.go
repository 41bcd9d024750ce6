// Package permid implements the identity interface of spec §6: two pure
// functions, provided by the embedder, that convert a user id to and from
// its stable string form.
package permid

// Identity pairs the two injective, mutually-inverse functions the registry
// needs to use arbitrary identifiers as map keys while keeping a stable
// on-disk representation.
type Identity[ID comparable] struct {
	// ToString must be injective and stable for the lifetime of any saved
	// state.
	ToString func(ID) string
	// FromString must be a left-inverse of ToString.
	FromString func(string) (ID, error)
}

// StringIdentity returns the trivial identity function for string-keyed
// users, used by callers who don't need a richer identifier type.
func StringIdentity() Identity[string] {
	return Identity[string]{
		ToString:   func(s string) string { return s },
		FromString: func(s string) (string, error) { return s, nil },
	}
}
