// Package registry keeps the process-wide table of format entries and
// decides which format serves a given resource.
package registry

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/mferrell/frameio/internal/types"
)

// DefaultSniffLen is how many prefix bytes are offered to signature
// probes that do not ask for more.
const DefaultSniffLen = 64

// Registry is an append-only, ordered table of format entries with an
// extension index. Registration is expected at startup but is guarded,
// so late registrations cannot race lookups.
type Registry struct {
	mu      sync.RWMutex
	entries []*types.Format
	byName  map[string]*types.Format
	byExt   map[string][]*types.Format
}

// New returns an empty registry.
func New() *Registry {
	return &Registry{
		byName: make(map[string]*types.Format),
		byExt:  make(map[string][]*types.Format),
	}
}

// Default is the process-wide registry. Built-in formats register here
// from their package init functions; callers add plugins through the
// public frameio.RegisterFormat.
var Default = New()

// Register appends an entry. Names are unique; extensions are normalized
// to lowercase with a leading dot. The entry must not be mutated after
// registration.
func (r *Registry) Register(f *types.Format) error {
	if f == nil || f.Name == "" {
		return fmt.Errorf("%w: format registration requires a name", types.ErrFormat)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	key := strings.ToLower(f.Name)
	if _, exists := r.byName[key]; exists {
		return &types.DuplicateFormatError{Name: f.Name}
	}

	r.byName[key] = f
	r.entries = append(r.entries, f)
	for _, ext := range f.Extensions {
		ext = normalizeExt(ext)
		r.byExt[ext] = append(r.byExt[ext], f)
	}
	return nil
}

// Lookup returns the entry registered under name (case-insensitive), or
// nil.
func (r *Registry) Lookup(name string) *types.Format {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.byName[strings.ToLower(name)]
}

// Formats returns a snapshot of all entries in registration order.
func (r *Registry) Formats() []*types.Format {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*types.Format, len(r.entries))
	copy(out, r.entries)
	return out
}

// KnownExtensions returns every claimed extension, sorted.
func (r *Registry) KnownExtensions() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.byExt))
	for ext := range r.byExt {
		out = append(out, ext)
	}
	sort.Strings(out)
	return out
}

// Match selects the format for a resource.
//
// resourceName is used only for error messages. hint, when non-empty,
// names a format explicitly and bypasses detection. ext is the
// extension inferred by the locator. peek supplies a non-consuming byte
// prefix for sniffing and is nil in write mode, where the destination
// has no content to probe.
//
// The algorithm, in order:
//  1. An explicit hint selects its format directly; a hint whose format
//     lacks the requested capability fails rather than falling through.
//  2. If exactly one capable entry claims the extension, it wins.
//  3. Otherwise the candidates (extension claimants when there are
//     several, every capable entry when there are none) are sniffed
//     against the prefix. On multiple sniff hits the last-registered
//     entry wins: later registrations intentionally shadow earlier ones.
//  4. No acceptor means no match.
func (r *Registry) Match(resourceName, hint, ext string, peek func(n int) ([]byte, error), mode types.Mode) (*types.Format, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if hint != "" {
		f := r.byName[strings.ToLower(hint)]
		if f == nil {
			return nil, &types.NoMatchingFormatError{Resource: resourceName, Ext: hint, Mode: mode}
		}
		if !capable(f, mode) {
			return nil, &types.ModeNotSupportedError{Format: f.Name, Resource: resourceName, Mode: mode}
		}
		return f, nil
	}

	var extMatches []*types.Format
	if ext != "" {
		for _, f := range r.byExt[normalizeExt(ext)] {
			if capable(f, mode) {
				extMatches = append(extMatches, f)
			}
		}
	}
	if len(extMatches) == 1 {
		return extMatches[0], nil
	}

	candidates := extMatches
	if len(candidates) == 0 {
		for _, f := range r.entries {
			if capable(f, mode) {
				candidates = append(candidates, f)
			}
		}
	}

	if peek == nil {
		// Write mode: nothing to sniff. Ambiguous extension claims
		// resolve the same way sniff ties do.
		if len(extMatches) > 1 {
			return extMatches[len(extMatches)-1], nil
		}
		return nil, &types.NoMatchingFormatError{Resource: resourceName, Ext: ext, Mode: mode}
	}

	chosen, err := sniffCandidates(candidates, peek)
	if err != nil {
		return nil, err
	}
	if chosen != nil {
		return chosen, nil
	}
	return nil, &types.NoMatchingFormatError{Resource: resourceName, Ext: ext, Mode: mode}
}

// sniffCandidates probes candidates in registration order and keeps the
// last one that accepts, making shadowing by re-registration an explicit
// policy instead of an ordering accident. A peek failure is the
// resource's error, not a detection miss, and is passed through.
func sniffCandidates(candidates []*types.Format, peek func(n int) ([]byte, error)) (*types.Format, error) {
	want := 0
	for _, f := range candidates {
		if f.Sniff == nil {
			continue
		}
		n := f.SniffLen
		if n <= 0 {
			n = DefaultSniffLen
		}
		if n > want {
			want = n
		}
	}
	if want == 0 {
		return nil, nil
	}

	prefix, err := peek(want)
	if err != nil {
		return nil, err
	}

	var chosen *types.Format
	for _, f := range candidates {
		if f.Sniff != nil && f.Sniff(prefix) {
			chosen = f
		}
	}
	return chosen, nil
}

func capable(f *types.Format, mode types.Mode) bool {
	if mode == types.ModeRead {
		return f.Caps.Read
	}
	return f.Caps.Write
}

func normalizeExt(ext string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}
