package core

import (
	"reflect"

	"github.com/encodeous/batsim/state"
)

func Get[T state.SimModule](s *state.State) T {
	t := reflect.TypeFor[T]()
	return s.Modules[t.String()].(T)
}

func Lookup[T state.SimModule](s *state.State) (T, bool) {
	t := reflect.TypeFor[T]()
	m, ok := s.Modules[t.String()].(T)
	return m, ok
}
