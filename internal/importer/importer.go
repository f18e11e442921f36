// Package importer turns bank transaction exports into activity
// records for the store.
package importer

import (
	"fmt"
	"sort"

	"github.com/hrushi1881/fintrack-cycles/internal/recurrence"
)

// Parser parses a transaction file into activity records.
type Parser interface {
	Parse(path string) ([]recurrence.Transaction, error)
}

// ParserFunc is a function that implements Parser.
type ParserFunc func(path string) ([]recurrence.Transaction, error)

func (f ParserFunc) Parse(path string) ([]recurrence.Transaction, error) {
	return f(path)
}

// parsers is the registry of available parsers.
var parsers = map[string]Parser{}

// Register registers a parser under the given source name.
func Register(name string, p Parser) {
	parsers[name] = p
}

// Get returns the parser for the given source type.
func Get(source string) (Parser, error) {
	p, ok := parsers[source]
	if !ok {
		return nil, fmt.Errorf("unknown source type: %s (available: %v)", source, Sources())
	}
	return p, nil
}

// Sources returns the registered source names, sorted.
func Sources() []string {
	var sources []string
	for name := range parsers {
		sources = append(sources, name)
	}
	sort.Strings(sources)
	return sources
}

func init() {
	Register("xlsx", ParserFunc(ParseXLSX))
}
