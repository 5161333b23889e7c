package decider

// Source produces a value when it has one
type Source[T any] func() (T, bool)

// FirstOf returns the value of the first source that has one, in order.
// Config precedence (merchant override, global config, built-in default)
// is always expressed through it.
func FirstOf[T any](sources ...Source[T]) (T, bool) {
	for _, src := range sources {
		if src == nil {
			continue
		}
		if v, ok := src(); ok {
			return v, true
		}
	}
	var zero T
	return zero, false
}

// Value is a source that always has v
func Value[T any](v T) Source[T] {
	return func() (T, bool) { return v, true }
}

// Positive is a source that has v only when it is greater than zero
func Positive[T int | int64 | float64](v T) Source[T] {
	return func() (T, bool) { return v, v > 0 }
}

// NonEmpty is a source that has v only when it is not the empty string
func NonEmpty[T ~string](v T) Source[T] {
	return func() (T, bool) { return v, v != "" }
}

// Ptr is a source that has *p when p is set
func Ptr[T any](p *T) Source[T] {
	return func() (T, bool) {
		if p == nil {
			var zero T
			return zero, false
		}
		return *p, true
	}
}
