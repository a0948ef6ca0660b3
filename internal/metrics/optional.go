package metrics

// Optional is a value that is either present or absent.
type Optional[T any] struct {
	value T
	ok    bool
}

// Some returns a present Optional holding v.
func Some[T any](v T) Optional[T] {
	return Optional[T]{value: v, ok: true}
}

// None returns an absent Optional.
func None[T any]() Optional[T] {
	return Optional[T]{}
}

// Get returns the value and whether it is present.
func (o Optional[T]) Get() (T, bool) {
	return o.value, o.ok
}

// Present reports whether a value is held.
func (o Optional[T]) Present() bool {
	return o.ok
}

// refresh replaces the value only when one is already present, so an absent
// slot stays absent.
func (o Optional[T]) refresh(v T) Optional[T] {
	if !o.ok {
		return o
	}
	return Some(v)
}
