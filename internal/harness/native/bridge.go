package native

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/charlievieth/fastwalk"
)

// BridgeConfig names the library to bridge and the extension that needs it
type BridgeConfig struct {
	// Library is the exact file name the consumer links against
	Library string
	// Consumer is a glob matched against file names of the consuming extension
	Consumer string
}

// DefaultBridgeConfig bridges OpenBLAS for numpy's core extension
func DefaultBridgeConfig() BridgeConfig {
	return BridgeConfig{
		Library:  "libopenblas.so",
		Consumer: "_multiarray_umath*.so",
	}
}

// CopyOutcome classifies one bridging copy
type CopyOutcome string

const (
	CopyCreated CopyOutcome = "copied"
	CopyExists  CopyOutcome = "exists"
	CopyFailed  CopyOutcome = "failed"
)

// CopyAttempt records one copy of the resolved library
type CopyAttempt struct {
	Target  string
	Outcome CopyOutcome
	Err     error
}

// BridgeReport describes what a bridge run did
type BridgeReport struct {
	// Found is the library file selected by the scan, empty when none matched
	Found string
	// Resolved is the exact-name alias, or Found when aliasing failed
	Resolved string
	Copies   []CopyAttempt
}

// Bridge makes a versioned library reachable under its exact file name
type Bridge struct {
	locator *Locator
	cfg     BridgeConfig
}

// NewBridge creates a bridge over locator
func NewBridge(locator *Locator, cfg BridgeConfig) *Bridge {
	return &Bridge{locator: locator, cfg: cfg}
}

// Enabled reports whether a library name is configured
func (b *Bridge) Enabled() bool {
	return b.cfg.Library != ""
}

// Run resolves the library under bases, aliases it to the exact name and
// places a copy beside every consumer. It never fails.
func (b *Bridge) Run(bases []string) BridgeReport {
	var report BridgeReport
	if !b.Enabled() {
		return report
	}

	report.Found = b.Resolve(bases)
	if report.Found == "" {
		return report
	}

	resolved, attempt := b.alias(report.Found)
	if attempt != nil {
		report.Copies = append(report.Copies, *attempt)
	}
	report.Resolved = resolved

	if info, err := os.Stat(resolved); err != nil || !info.Mode().IsRegular() {
		return report
	}
	if b.cfg.Consumer == "" {
		return report
	}

	for _, dir := range b.consumerDirs(bases) {
		target := filepath.Join(dir, b.cfg.Library)
		if fileExists(target) {
			report.Copies = append(report.Copies, CopyAttempt{Target: target, Outcome: CopyExists})
			continue
		}
		if err := copyFile(resolved, target); err != nil {
			report.Copies = append(report.Copies, CopyAttempt{Target: target, Outcome: CopyFailed, Err: err})
			continue
		}
		report.Copies = append(report.Copies, CopyAttempt{Target: target, Outcome: CopyCreated})
	}
	return report
}

// Resolve returns the exact-name library if any located directory holds it,
// otherwise the first versioned variant in locator order
func (b *Bridge) Resolve(bases []string) string {
	want := strings.ToLower(b.cfg.Library)
	var fallback string
	for _, c := range b.locator.Scan(bases) {
		name := strings.ToLower(filepath.Base(c.Path))
		if !strings.HasPrefix(name, want) {
			continue
		}
		if name == want {
			return c.Path
		}
		if fallback == "" {
			fallback = c.Path
		}
	}
	return fallback
}

// alias copies found to the exact name in its own directory
func (b *Bridge) alias(found string) (string, *CopyAttempt) {
	if filepath.Base(found) == b.cfg.Library {
		return found, nil
	}
	target := filepath.Join(filepath.Dir(found), b.cfg.Library)
	if fileExists(target) {
		return target, &CopyAttempt{Target: target, Outcome: CopyExists}
	}
	if err := copyFile(found, target); err != nil {
		return found, &CopyAttempt{Target: target, Outcome: CopyFailed, Err: err}
	}
	return target, &CopyAttempt{Target: target, Outcome: CopyCreated}
}

// consumerDirs returns every directory under bases holding a consumer binary
func (b *Bridge) consumerDirs(bases []string) []string {
	var (
		mu   sync.Mutex
		out  []string
		seen = make(map[string]struct{})
	)
	for _, base := range bases {
		base = strings.TrimSpace(base)
		if base == "" {
			continue
		}
		if info, err := os.Stat(base); err != nil || !info.IsDir() {
			continue
		}

		var found []string
		conf := fastwalk.Config{Follow: false}
		_ = fastwalk.Walk(&conf, base, func(p string, d os.DirEntry, err error) error {
			if err != nil || d.IsDir() {
				return nil
			}
			ok, matchErr := doublestar.Match(b.cfg.Consumer, d.Name())
			if matchErr != nil || !ok {
				return nil
			}
			mu.Lock()
			found = append(found, filepath.Dir(p))
			mu.Unlock()
			return nil
		})

		sortPreorder(found)
		for _, dir := range found {
			if _, dup := seen[dir]; dup {
				continue
			}
			seen[dir] = struct{}{}
			out = append(out, dir)
		}
	}
	return out
}

func fileExists(p string) bool {
	info, err := os.Stat(p)
	return err == nil && info.Mode().IsRegular()
}

// copyFile copies content, permission bits and modification time. The target
// is written under a temporary name first so a reader never sees a partial file.
func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open source: %w", err)
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return fmt.Errorf("stat source: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(dst), "."+filepath.Base(dst)+".*")
	if err != nil {
		return fmt.Errorf("create target: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := io.Copy(tmp, in); err != nil {
		tmp.Close()
		return fmt.Errorf("copy: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close target: %w", err)
	}
	if err := os.Chmod(tmpName, info.Mode().Perm()); err != nil {
		return fmt.Errorf("chmod target: %w", err)
	}
	if err := os.Chtimes(tmpName, info.ModTime(), info.ModTime()); err != nil {
		return fmt.Errorf("chtimes target: %w", err)
	}
	if err := os.Rename(tmpName, dst); err != nil {
		return fmt.Errorf("rename target: %w", err)
	}
	return nil
}

func sortPreorder(paths []string) {
	sort.Slice(paths, func(i, j int) bool {
		return preorderLess(paths[i], paths[j])
	})
}
