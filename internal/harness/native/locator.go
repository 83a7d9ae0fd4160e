package native

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/charlievieth/fastwalk"
)

// DefaultMarker identifies shared objects by name on ELF platforms
const DefaultMarker = ".so"

// OtherPriority is the rank of libraries no rule matches
const OtherPriority = 9

// PriorityRule ranks every library whose lower-cased name contains Substring
type PriorityRule struct {
	Substring string `json:"substring" yaml:"substring" toml:"substring"`
	Priority  int    `json:"priority" yaml:"priority" toml:"priority"`
}

// DefaultPriorityRules loads linear algebra first, then the Fortran runtime,
// then the C++ runtime
func DefaultPriorityRules() []PriorityRule {
	return []PriorityRule{
		{Substring: "openblas", Priority: 0},
		{Substring: "gfortran", Priority: 1},
		{Substring: "stdc++", Priority: 2},
		{Substring: "c++", Priority: 2},
	}
}

// LocatorConfig configures library discovery
type LocatorConfig struct {
	Marker string
	Rules  []PriorityRule
}

// DefaultLocatorConfig returns the ELF marker and the default rules
func DefaultLocatorConfig() LocatorConfig {
	return LocatorConfig{
		Marker: DefaultMarker,
		Rules:  DefaultPriorityRules(),
	}
}

// Candidate is a library file to preload
type Candidate struct {
	Path     string `json:"path"`
	Priority int    `json:"priority"`
}

// Locator finds directories and files holding loadable libraries
type Locator struct {
	marker string
	rules  []PriorityRule
}

// NewLocator creates a locator
func NewLocator(cfg LocatorConfig) *Locator {
	if cfg.Marker == "" {
		cfg.Marker = DefaultMarker
	}
	if cfg.Rules == nil {
		cfg.Rules = DefaultPriorityRules()
	}
	return &Locator{marker: cfg.Marker, rules: cfg.Rules}
}

// Marker returns the name marker used to recognise libraries
func (l *Locator) Marker() string {
	return l.marker
}

// IsLibrary reports whether a file name carries the library marker
func (l *Locator) IsLibrary(name string) bool {
	return strings.Contains(name, l.marker)
}

// Priority ranks a library file name; lower loads first
func (l *Locator) Priority(name string) int {
	lower := strings.ToLower(name)
	for _, r := range l.rules {
		if strings.Contains(lower, strings.ToLower(r.Substring)) {
			return r.Priority
		}
	}
	return OtherPriority
}

// Dirs returns every base that is a directory plus every directory below it
// holding at least one library. Each base precedes its descendants and the
// result carries no duplicates.
func (l *Locator) Dirs(bases []string) []string {
	var result []string
	seen := make(map[string]struct{})
	add := func(dir string) {
		if _, ok := seen[dir]; ok {
			return
		}
		seen[dir] = struct{}{}
		result = append(result, dir)
	}

	for _, base := range bases {
		base = strings.TrimSpace(base)
		if base == "" {
			continue
		}
		info, err := os.Stat(base)
		if err != nil || !info.IsDir() {
			continue
		}
		add(base)
		for _, dir := range l.walkLibraryDirs(base) {
			add(dir)
		}
	}
	return result
}

// Candidates lists the libraries directly inside dir in load order
func (l *Locator) Candidates(dir string) []Candidate {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}

	var out []Candidate
	for _, e := range entries {
		if !l.IsLibrary(e.Name()) {
			continue
		}
		out = append(out, Candidate{
			Path:     filepath.Join(dir, e.Name()),
			Priority: l.Priority(e.Name()),
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Priority < out[j].Priority
	})
	return out
}

// Scan returns the candidates of every located directory, directory by directory
func (l *Locator) Scan(bases []string) []Candidate {
	var out []Candidate
	for _, dir := range l.Dirs(bases) {
		out = append(out, l.Candidates(dir)...)
	}
	return out
}

// walkLibraryDirs collects directories under base that hold a library file.
// fastwalk visits concurrently, so the result is put back into pre-order.
func (l *Locator) walkLibraryDirs(base string) []string {
	var (
		mu   sync.Mutex
		dirs = make(map[string]struct{})
	)

	conf := fastwalk.Config{Follow: false}
	_ = fastwalk.Walk(&conf, base, func(p string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		if !l.IsLibrary(d.Name()) {
			return nil
		}
		mu.Lock()
		dirs[filepath.Dir(p)] = struct{}{}
		mu.Unlock()
		return nil
	})

	out := make([]string, 0, len(dirs))
	for d := range dirs {
		out = append(out, d)
	}
	sortPreorder(out)
	return out
}

// preorderLess orders paths the way a sorted depth-first walk visits them
func preorderLess(a, b string) bool {
	as := strings.Split(filepath.ToSlash(a), "/")
	bs := strings.Split(filepath.ToSlash(b), "/")
	for i := 0; i < len(as) && i < len(bs); i++ {
		if as[i] != bs[i] {
			return as[i] < bs[i]
		}
	}
	return len(as) < len(bs)
}
