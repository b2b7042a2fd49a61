package store

import "github.com/anjiri1684/skill_exchange/api"

// Lifecycle is the request status shared by every operation of one slice.
// Concurrent operations share it and the last one to settle wins.
type Lifecycle struct {
	Loading   bool
	Error     string
	ErrorKind api.ErrorKind
	Fields    []api.FieldError
}

// track is the catch-all matcher run for every operation action of a slice.
func (l *Lifecycle) track(a Action) {
	switch a.Phase() {
	case PhasePending:
		l.Loading = true
		l.clearError()
	case PhaseFulfilled:
		l.Loading = false
	case PhaseRejected:
		l.Loading = false
		l.fail(a.Err)
	}
}

func (l *Lifecycle) fail(err *api.Error) {
	if err == nil {
		l.Error, l.ErrorKind, l.Fields = "Request failed", api.KindUnknown, nil
		return
	}
	l.Error, l.ErrorKind, l.Fields = err.Message, err.Kind, err.Fields
}

func (l *Lifecycle) clearError() {
	l.Error, l.ErrorKind, l.Fields = "", "", nil
}

// The list helpers never modify their input so snapshots handed out by the
// store stay valid after later dispatches.

func prepend[T any](list []T, v T) []T {
	out := make([]T, 0, len(list)+1)
	out = append(out, v)
	return append(out, list...)
}

func replaceWhere[T any](list []T, match func(T) bool, v T) []T {
	if list == nil {
		return nil
	}
	out := make([]T, len(list))
	for i, item := range list {
		if match(item) {
			out[i] = v
		} else {
			out[i] = item
		}
	}
	return out
}

func removeWhere[T any](list []T, match func(T) bool) []T {
	if list == nil {
		return nil
	}
	out := make([]T, 0, len(list))
	for _, item := range list {
		if !match(item) {
			out = append(out, item)
		}
	}
	return out
}

func appendCopy[T any](list []T, v ...T) []T {
	out := make([]T, 0, len(list)+len(v))
	out = append(out, list...)
	return append(out, v...)
}
