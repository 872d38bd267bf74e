package util

// Status tells how a cached lookup was resolved.
type Status int

const (
	NotFound Status = iota
	Found
	// Stale means the refresh failed and a previously cached value was served.
	Stale
)

func (s Status) String() string {
	switch s {
	case Found:
		return "found"
	case Stale:
		return "stale"
	default:
		return "not_found"
	}
}

type Result[T any] struct {
	Value  T
	Status Status
}

func FoundResult[T any](v T) Result[T] {
	return Result[T]{Value: v, Status: Found}
}

func StaleResult[T any](v T) Result[T] {
	return Result[T]{Value: v, Status: Stale}
}

func NotFoundResult[T any]() Result[T] {
	return Result[T]{}
}

// OK reports whether the result carries a value.
func (r Result[T]) OK() bool {
	return r.Status != NotFound
}
