// Package policy implements the declarative access-control table consulted by
// the request gatekeeper: an ordered list of (method, path pattern, required
// authorities) rules, fixed at startup.
//
// SECURITY NOTE: a request matching no rule is ALLOWED. This fail-open default
// is deliberate — routes not listed in the table (health probes, the login
// endpoint) are intentionally public. Adding a guarded route means adding a
// rule; forgetting to do so leaves the route open.
package policy

import "strings"

// Rule pairs an HTTP method and path pattern with the set of authority labels
// that may pass. A rule passes if the identity holds at least one of them.
//
// Patterns are segment-based:
//
//	/users            literal segments only
//	/users/{id}       {name} matches exactly one segment
//	/tasks/**         trailing ** matches zero or more segments
type Rule struct {
	Method      string
	Pattern     string
	Authorities []string
}

// Table is an immutable, ordered rule list. Evaluation is top-to-bottom and
// the first match wins, mirroring declaration order rather than specificity.
type Table struct {
	rules []Rule
}

// NewTable creates a policy table from rules in declaration order
func NewTable(rules ...Rule) *Table {
	copied := make([]Rule, len(rules))
	copy(copied, rules)
	return &Table{rules: copied}
}

// Match returns the first rule matching the method and path, or nil when no
// rule matches (implicit allow).
func (t *Table) Match(method, path string) *Rule {
	for i := range t.rules {
		rule := &t.rules[i]
		if rule.Method != method {
			continue
		}
		if matchPattern(rule.Pattern, path) {
			return rule
		}
	}
	return nil
}

// Rules returns a copy of the table's rules, for diagnostics
func (t *Table) Rules() []Rule {
	out := make([]Rule, len(t.rules))
	copy(out, t.rules)
	return out
}

// matchPattern reports whether path matches the segment pattern. A trailing
// "**" consumes the rest of the path, including nothing.
func matchPattern(pattern, path string) bool {
	patSegs := splitPath(pattern)
	pathSegs := splitPath(path)

	for i, seg := range patSegs {
		if seg == "**" {
			// Only valid as the final pattern segment.
			return i == len(patSegs)-1
		}
		if i >= len(pathSegs) {
			return false
		}
		if isVariable(seg) {
			if pathSegs[i] == "" {
				return false
			}
			continue
		}
		if seg != pathSegs[i] {
			return false
		}
	}
	return len(patSegs) == len(pathSegs)
}

func isVariable(segment string) bool {
	return strings.HasPrefix(segment, "{") && strings.HasSuffix(segment, "}")
}

func splitPath(p string) []string {
	p = strings.Trim(p, "/")
	if p == "" {
		return nil
	}
	return strings.Split(p, "/")
}

// DefaultTable returns the production access-control table. Order matters:
// first match wins, so the user-by-username rule precedes the broader
// /users/{id} rule.
func DefaultTable() *Table {
	admin := []string{"ADMIN"}
	adminOrUser := []string{"ADMIN", "USER"}

	return NewTable(
		Rule{Method: "POST", Pattern: "/users", Authorities: admin},
		Rule{Method: "GET", Pattern: "/users/username/{username}", Authorities: adminOrUser},
		Rule{Method: "GET", Pattern: "/users/{id}", Authorities: adminOrUser},
		Rule{Method: "GET", Pattern: "/users", Authorities: adminOrUser},
		Rule{Method: "PUT", Pattern: "/users/{id}", Authorities: adminOrUser},
		Rule{Method: "DELETE", Pattern: "/users/{id}", Authorities: admin},

		Rule{Method: "GET", Pattern: "/departments/**", Authorities: admin},
		Rule{Method: "GET", Pattern: "/departments", Authorities: admin},
		Rule{Method: "POST", Pattern: "/departments", Authorities: admin},
		Rule{Method: "PUT", Pattern: "/departments/{id}", Authorities: admin},
		Rule{Method: "DELETE", Pattern: "/departments/{id}", Authorities: admin},

		Rule{Method: "GET", Pattern: "/tasks/**", Authorities: adminOrUser},
		Rule{Method: "POST", Pattern: "/tasks", Authorities: adminOrUser},
		Rule{Method: "PUT", Pattern: "/tasks/{id}", Authorities: adminOrUser},
		Rule{Method: "DELETE", Pattern: "/tasks/{id}", Authorities: adminOrUser},
	)
}
