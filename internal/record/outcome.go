package record

// Kind classifies how a dataset request was resolved.
type Kind int

const (
	// KindOK means the value was extracted from the real source.
	KindOK Kind = iota
	// KindDegraded means the value is synthetic; Err holds the cause.
	KindDegraded
	// KindErr means no value is available; Err is terminal.
	KindErr
)

func (k Kind) String() string {
	switch k {
	case KindOK:
		return "ok"
	case KindDegraded:
		return "degraded"
	default:
		return "error"
	}
}

// MarshalText encodes the kind by name.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Outcome is the result of a fetch-and-extract operation.
type Outcome[T any] struct {
	Value T
	Kind  Kind
	Err   error
}

// OK wraps a real value.
func OK[T any](v T) Outcome[T] {
	return Outcome[T]{Value: v, Kind: KindOK}
}

// Degraded wraps a synthetic value and the failure that caused it.
func Degraded[T any](v T, cause error) Outcome[T] {
	return Outcome[T]{Value: v, Kind: KindDegraded, Err: cause}
}

// Failed wraps a terminal error.
func Failed[T any](err error) Outcome[T] {
	return Outcome[T]{Kind: KindErr, Err: err}
}

// Unwrap returns the value, or the error when the outcome failed.
func (o Outcome[T]) Unwrap() (T, error) {
	if o.Kind == KindErr {
		var zero T
		return zero, o.Err
	}
	return o.Value, nil
}
