package shared

import "regexp"

// SymbolSet is an immutable allow-list of regular-expression patterns,
// per §3 "Symbol set": populated at startup and never mutated afterward.
// It is safe for concurrent reads precisely because it is never written
// to after NewSymbolSet returns.
type SymbolSet struct {
	patterns []*regexp.Regexp
}

// NewSymbolSet compiles every pattern; a single bad pattern fails the
// whole set so a misconfigured allow-list is caught at startup.
func NewSymbolSet(patterns []string) (*SymbolSet, error) {
	compiled := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, err
		}
		compiled = append(compiled, re)
	}
	return &SymbolSet{patterns: compiled}, nil
}

// Include reports whether symbol matches at least one configured regex
// (§8 invariant 5), short-circuiting on the first match.
func (s *SymbolSet) Include(symbol string) bool {
	for _, re := range s.patterns {
		if re.MatchString(symbol) {
			return true
		}
	}
	return false
}
