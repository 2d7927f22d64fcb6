package domain

// Opt is a tri-state update value: unset, or set to Value (which may itself
// be a nil pointer, meaning "clear").
type Opt[T any] struct {
	Set   bool
	Value T
}

// Some returns a set Opt.
func Some[T any](v T) Opt[T] {
	return Opt[T]{Set: true, Value: v}
}

// Null returns a set Opt holding a nil pointer.
func Null[T any]() Opt[*T] {
	return Opt[*T]{Set: true}
}

// ID returns a set Opt pointing at id.
func ID(id int64) Opt[*int64] {
	return Opt[*int64]{Set: true, Value: &id}
}

// Or returns the value when set, otherwise fallback.
func (o Opt[T]) Or(fallback T) T {
	if o.Set {
		return o.Value
	}
	return fallback
}
