// Package grammar registers the built-in format grammars and resolves them
// by name for the CLI and the HTTP API. The registry is populated once at
// init and read-only afterwards.
package grammar

import (
	"fmt"
	"sort"

	"github.com/skypro1111/binspect/internal/decode"
	"github.com/skypro1111/binspect/internal/grammar/cbor"
	"github.com/skypro1111/binspect/internal/grammar/pgp"
	"github.com/skypro1111/binspect/internal/grammar/tagdir"
)

var registry = map[string]decode.Grammar{}

func init() {
	for _, g := range []decode.Grammar{
		cbor.New(),
		tagdir.New(),
		pgp.New(),
	} {
		registry[g.Name()] = g
	}
}

// Lookup resolves a grammar by name.
func Lookup(name string) (decode.Grammar, error) {
	g, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("unknown grammar %q (available: %v)", name, Names())
	}
	return g, nil
}

// Names returns the registered grammar names in sorted order.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
