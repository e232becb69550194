// Package columns maps header labels to the subject/start/end roles.
package columns

import (
	"errors"
	"fmt"
	"strings"

	"csv2ics/internal/model"
)

// ErrResolution matches any *ResolutionError with errors.Is.
var ErrResolution = errors.New("cannot resolve subject/start/end columns")

// ResolutionError lists the header the resolver gave up on.
type ResolutionError struct {
	Header  []string
	Missing []model.Role
}

func (e *ResolutionError) Error() string {
	missing := make([]string, 0, len(e.Missing))
	for _, r := range e.Missing {
		missing = append(missing, string(r))
	}
	return fmt.Sprintf("%s: missing %s, header %q", ErrResolution.Error(), strings.Join(missing, ","), e.Header)
}

func (e *ResolutionError) Is(target error) bool {
	return target == ErrResolution
}

// DefaultHints are the built-in role-indicative substrings, lower case.
var DefaultHints = map[model.Role][]string{
	model.RoleSubject: {"subject", "summary", "title", "тема", "название"},
	model.RoleStart:   {"start", "начал"},
	model.RoleEnd:     {"end", "finish", "until", "оконч", "конец"},
}

// Resolver holds the hint table. It is safe to reuse across inputs.
type Resolver struct {
	hints map[model.Role][]string
}

// NewResolver returns a Resolver with the default hints plus extra.
func NewResolver(extra map[model.Role][]string) *Resolver {
	hints := make(map[model.Role][]string, len(DefaultHints))
	for role, hs := range DefaultHints {
		hints[role] = append([]string(nil), hs...)
	}
	for role, hs := range extra {
		for _, h := range hs {
			if h = strings.ToLower(strings.TrimSpace(h)); h != "" {
				hints[role] = append(hints[role], h)
			}
		}
	}
	return &Resolver{hints: hints}
}

// Resolve maps roles to columns by case-insensitive substring match. The
// first matching column wins a role and a column serves at most one role.
// When a role stays unresolved and there are at least three columns, the
// mapping falls back to positions 0, 1, 2.
func (r *Resolver) Resolve(header []string) (model.ColumnMapping, error) {
	found := make(map[model.Role]int, len(model.Roles))
	taken := make(map[int]bool, len(header))

	for _, role := range model.Roles {
		for i, name := range header {
			if taken[i] {
				continue
			}
			if r.matches(role, name) {
				found[role] = i
				taken[i] = true
				break
			}
		}
	}

	var missing []model.Role
	for _, role := range model.Roles {
		if _, ok := found[role]; !ok {
			missing = append(missing, role)
		}
	}

	if len(missing) == 0 {
		return mappingFrom(header, found[model.RoleSubject], found[model.RoleStart], found[model.RoleEnd], false), nil
	}
	if len(header) >= 3 {
		return mappingFrom(header, 0, 1, 2, true), nil
	}
	return model.ColumnMapping{}, &ResolutionError{Header: header, Missing: missing}
}

// Hinted reports whether name carries a hint for any role.
func (r *Resolver) Hinted(name string) bool {
	for _, role := range model.Roles {
		if r.matches(role, name) {
			return true
		}
	}
	return false
}

func (r *Resolver) matches(role model.Role, name string) bool {
	n := strings.ToLower(strings.TrimSpace(name))
	if n == "" {
		return false
	}
	for _, h := range r.hints[role] {
		if strings.Contains(n, h) {
			return true
		}
	}
	return false
}

func mappingFrom(header []string, subject, start, end int, positional bool) model.ColumnMapping {
	return model.ColumnMapping{
		Subject: subject,
		Start:   start,
		End:     end,
		Names: map[model.Role]string{
			model.RoleSubject: header[subject],
			model.RoleStart:   header[start],
			model.RoleEnd:     header[end],
		},
		Positional: positional,
	}
}
