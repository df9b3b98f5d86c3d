package guard

import (
	"regexp"
	"strings"

	"github.com/agora-civic/agora/internal/authz"
)

// Entry maps a path pattern to the permissions that open it. Patterns may
// contain bracketed dynamic segments ("/petitions/{id}/sign"); each one
// matches exactly one path segment. Semantics are any-of: holding one listed
// permission suffices.
type Entry struct {
	Pattern     string
	Permissions []authz.Permission
}

type compiledEntry struct {
	pattern     string
	re          *regexp.Regexp
	permissions []authz.Permission
}

// Registry resolves the permissions a path requires. Lookup is exact match
// first, then dynamic-segment patterns in declaration order; a path nothing
// matches gets the fail-closed default, never a free pass.
type Registry struct {
	exact        map[string][]authz.Permission
	patterns     []compiledEntry
	defaultPerms []authz.Permission
}

var segmentMarker = regexp.MustCompile(`\{[^/{}]+\}`)

// NewRegistry builds a Registry with the given fail-closed default.
func NewRegistry(defaultPerms []authz.Permission, entries ...Entry) *Registry {
	reg := &Registry{
		exact:        make(map[string][]authz.Permission, len(entries)),
		defaultPerms: defaultPerms,
	}
	for _, e := range entries {
		if !strings.Contains(e.Pattern, "{") {
			reg.exact[e.Pattern] = e.Permissions
			continue
		}
		reg.patterns = append(reg.patterns, compiledEntry{
			pattern:     e.Pattern,
			re:          compilePattern(e.Pattern),
			permissions: e.Permissions,
		})
	}
	return reg
}

// compilePattern converts bracketed segments to single-segment wildcards and
// anchors the result.
func compilePattern(pattern string) *regexp.Regexp {
	var b strings.Builder
	b.WriteString("^")
	last := 0
	for _, loc := range segmentMarker.FindAllStringIndex(pattern, -1) {
		b.WriteString(regexp.QuoteMeta(pattern[last:loc[0]]))
		b.WriteString("[^/]+")
		last = loc[1]
	}
	b.WriteString(regexp.QuoteMeta(pattern[last:]))
	b.WriteString("$")
	return regexp.MustCompile(b.String())
}

// ResolveRequiredPermissions returns the permissions required to reach path.
func (r *Registry) ResolveRequiredPermissions(path string) []authz.Permission {
	if perms, ok := r.exact[path]; ok {
		return perms
	}
	for _, e := range r.patterns {
		if e.re.MatchString(path) {
			return e.permissions
		}
	}
	return r.defaultPerms
}
