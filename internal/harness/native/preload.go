package native

import (
	"errors"
	"fmt"
	"os"

	"github.com/gabriel-vasile/mimetype"
)

// ErrPreloadUnsupported is returned for every file when the binary was built
// without dynamic loading support
var ErrPreloadUnsupported = errors.New("native preload not supported in this build")

// ErrNotSharedObject marks a candidate whose content is not a shared library
var ErrNotSharedObject = errors.New("not a shared object")

// Opener loads one library into the global symbol namespace
type Opener interface {
	Open(path string) error
}

// OpenerFunc adapts a function to the Opener interface
type OpenerFunc func(path string) error

// Open calls f(path)
func (f OpenerFunc) Open(path string) error {
	return f(path)
}

// DLOpener opens ELF shared objects with dlopen(RTLD_NOW|RTLD_GLOBAL). Files
// whose content is not a shared object (linker scripts named libc.so, for
// instance) are rejected without calling dlopen.
type DLOpener struct{}

// Open sniffs path and loads it
func (DLOpener) Open(path string) error {
	mt, err := mimetype.DetectFile(path)
	if err != nil {
		return fmt.Errorf("detect %s: %w", path, err)
	}
	if !mt.Is("application/x-sharedlib") {
		return fmt.Errorf("%s: %w (%s)", path, ErrNotSharedObject, mt.String())
	}
	return dlopenGlobal(path)
}

// Outcome classifies one preload attempt
type Outcome string

const (
	Loaded  Outcome = "loaded"
	Skipped Outcome = "skipped"
	Failed  Outcome = "failed"
)

// Attempt records what happened to one candidate
type Attempt struct {
	Candidate
	Outcome Outcome
	Err     error
}

// Report lists every attempt of one preload pass in order
type Report struct {
	Attempts []Attempt
}

// Count returns how many attempts had outcome o
func (r Report) Count(o Outcome) int {
	n := 0
	for _, a := range r.Attempts {
		if a.Outcome == o {
			n++
		}
	}
	return n
}

// Preloader opens located libraries once per process
type Preloader struct {
	locator  *Locator
	registry *Registry
	opener   Opener
}

// NewPreloader creates a preloader. A nil opener means DLOpener.
func NewPreloader(locator *Locator, registry *Registry, opener Opener) *Preloader {
	if opener == nil {
		opener = DLOpener{}
	}
	if registry == nil {
		registry = NewRegistry()
	}
	return &Preloader{locator: locator, registry: registry, opener: opener}
}

// Registry returns the registry the preloader records into
func (p *Preloader) Registry() *Registry {
	return p.registry
}

// Preload opens every candidate under bases in locator order. A failing file
// is recorded and skipped; the pass always runs to the end.
func (p *Preloader) Preload(bases []string) Report {
	var report Report
	for _, c := range p.locator.Scan(bases) {
		report.Attempts = append(report.Attempts, p.load(c))
	}
	return report
}

func (p *Preloader) load(c Candidate) Attempt {
	if info, err := os.Stat(c.Path); err != nil {
		return Attempt{Candidate: c, Outcome: Failed, Err: err}
	} else if info.IsDir() {
		return Attempt{Candidate: c, Outcome: Failed, Err: fmt.Errorf("%s: is a directory", c.Path)}
	}

	loaded, err := p.registry.LoadOnce(c.Path, p.opener.Open)
	switch {
	case err != nil:
		return Attempt{Candidate: c, Outcome: Failed, Err: err}
	case !loaded:
		return Attempt{Candidate: c, Outcome: Skipped}
	default:
		return Attempt{Candidate: c, Outcome: Loaded}
	}
}
