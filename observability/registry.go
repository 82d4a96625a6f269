package observability

import (
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strings"
	"sync"
)

// ErrUnknownObserver is returned by LookupObserver for unregistered names.
var ErrUnknownObserver = errors.New("unknown observer")

// Factory builds an observer bound to the application logger.
type Factory func(logger *slog.Logger) Observer

var (
	factoriesMu sync.RWMutex
	factories   = map[string]Factory{
		"noop": func(*slog.Logger) Observer { return NoOpObserver{} },
		"slog": func(l *slog.Logger) Observer { return NewSlogObserver(l) },
	}
)

// RegisterObserver makes a factory available under name for the --observer
// flag and the "observer" config key. A later registration replaces an
// earlier one.
func RegisterObserver(name string, f Factory) {
	factoriesMu.Lock()
	defer factoriesMu.Unlock()
	factories[name] = f
}

// LookupObserver builds the observer registered under name.
func LookupObserver(name string, logger *slog.Logger) (Observer, error) {
	factoriesMu.RLock()
	f, ok := factories[name]
	factoriesMu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w %q (available: %s)", ErrUnknownObserver, name, strings.Join(ObserverNames(), ", "))
	}
	return f(logger), nil
}

// ObserverNames lists registered names, sorted.
func ObserverNames() []string {
	factoriesMu.RLock()
	defer factoriesMu.RUnlock()
	return slices.Sorted(maps.Keys(factories))
}
