package motortest

// Optional holds a header value that a motor file may leave unset, either by
// an empty line or by the "*" placeholder.
type Optional[T any] struct {
	value T
	set   bool
}

// Some returns a set Optional holding v.
func Some[T any](v T) Optional[T] {
	return Optional[T]{value: v, set: true}
}

// Get returns the value and whether it was set.
func (o Optional[T]) Get() (T, bool) { return o.value, o.set }

// IsSet reports whether the value was provided.
func (o Optional[T]) IsSet() bool { return o.set }

// Or returns the value, or def when unset.
func (o Optional[T]) Or(def T) T {
	if o.set {
		return o.value
	}
	return def
}
