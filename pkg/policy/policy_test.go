package policy

import "testing"

// TestMatchPattern tests segment-based pattern matching
func TestMatchPattern(t *testing.T) {
	tests := []struct {
		name    string
		pattern string
		path    string
		want    bool
	}{
		{name: "literal match", pattern: "/users", path: "/users", want: true},
		{name: "literal mismatch", pattern: "/users", path: "/tasks", want: false},
		{name: "literal too long", pattern: "/users", path: "/users/5", want: false},
		{name: "trailing slash ignored", pattern: "/users", path: "/users/", want: true},
		{name: "variable matches one segment", pattern: "/users/{id}", path: "/users/5", want: true},
		{name: "variable matches non-numeric", pattern: "/users/{id}", path: "/users/abc", want: true},
		{name: "variable needs a segment", pattern: "/users/{id}", path: "/users", want: false},
		{name: "variable matches only one segment", pattern: "/users/{id}", path: "/users/5/extra", want: false},
		{name: "nested variable", pattern: "/users/username/{username}", path: "/users/username/alice", want: true},
		{name: "wildcard matches zero segments", pattern: "/tasks/**", path: "/tasks", want: true},
		{name: "wildcard matches one segment", pattern: "/tasks/**", path: "/tasks/42", want: true},
		{name: "wildcard matches many segments", pattern: "/tasks/**", path: "/tasks/42/comments/7", want: true},
		{name: "wildcard does not match other prefix", pattern: "/tasks/**", path: "/users/42", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := matchPattern(tt.pattern, tt.path); got != tt.want {
				t.Errorf("matchPattern(%q, %q) = %v, want %v", tt.pattern, tt.path, got, tt.want)
			}
		})
	}
}

// TestTableFirstMatchWins tests that evaluation follows declaration order,
// not specificity
func TestTableFirstMatchWins(t *testing.T) {
	table := NewTable(
		Rule{Method: "GET", Pattern: "/users/{id}", Authorities: []string{"USER"}},
		Rule{Method: "GET", Pattern: "/users/username/{username}", Authorities: []string{"ADMIN"}},
	)

	rule := table.Match("GET", "/users/username/alice")
	if rule == nil {
		t.Fatal("Match() = nil, want a rule")
	}
	// The broader {id} rule is declared first, so it wins even though the
	// username rule is more specific.
	if rule.Pattern != "/users/{id}" {
		t.Errorf("Match() pattern = %v, want /users/{id}", rule.Pattern)
	}
}

// TestTableMethodFilter tests that rules only apply to their own method
func TestTableMethodFilter(t *testing.T) {
	table := NewTable(
		Rule{Method: "POST", Pattern: "/users", Authorities: []string{"ADMIN"}},
	)

	if rule := table.Match("GET", "/users"); rule != nil {
		t.Errorf("Match(GET) = %v, want nil", rule)
	}
	if rule := table.Match("POST", "/users"); rule == nil {
		t.Error("Match(POST) = nil, want a rule")
	}
}

// TestTableNoMatchReturnsNil tests the implicit-allow signal for unlisted routes
func TestTableNoMatchReturnsNil(t *testing.T) {
	table := DefaultTable()

	for _, req := range []struct{ method, path string }{
		{"GET", "/healthz"},
		{"POST", "/api/login"},
		{"GET", "/unlisted/route"},
	} {
		if rule := table.Match(req.method, req.path); rule != nil {
			t.Errorf("Match(%s %s) = %v, want nil", req.method, req.path, rule)
		}
	}
}

// TestDefaultTable tests the production rule set against representative requests
func TestDefaultTable(t *testing.T) {
	table := DefaultTable()

	tests := []struct {
		name            string
		method          string
		path            string
		wantAuthorities []string
	}{
		{name: "create user is admin only", method: "POST", path: "/users", wantAuthorities: []string{"ADMIN"}},
		{name: "get user by id", method: "GET", path: "/users/5", wantAuthorities: []string{"ADMIN", "USER"}},
		{name: "get user by username", method: "GET", path: "/users/username/alice", wantAuthorities: []string{"ADMIN", "USER"}},
		{name: "list users", method: "GET", path: "/users", wantAuthorities: []string{"ADMIN", "USER"}},
		{name: "update user", method: "PUT", path: "/users/5", wantAuthorities: []string{"ADMIN", "USER"}},
		{name: "delete user is admin only", method: "DELETE", path: "/users/5", wantAuthorities: []string{"ADMIN"}},
		{name: "list departments is admin only", method: "GET", path: "/departments", wantAuthorities: []string{"ADMIN"}},
		{name: "get department is admin only", method: "GET", path: "/departments/3", wantAuthorities: []string{"ADMIN"}},
		{name: "create department is admin only", method: "POST", path: "/departments", wantAuthorities: []string{"ADMIN"}},
		{name: "get task", method: "GET", path: "/tasks/42", wantAuthorities: []string{"ADMIN", "USER"}},
		{name: "list tasks", method: "GET", path: "/tasks", wantAuthorities: []string{"ADMIN", "USER"}},
		{name: "create task", method: "POST", path: "/tasks", wantAuthorities: []string{"ADMIN", "USER"}},
		{name: "delete task", method: "DELETE", path: "/tasks/42", wantAuthorities: []string{"ADMIN", "USER"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rule := table.Match(tt.method, tt.path)
			if rule == nil {
				t.Fatalf("Match(%s %s) = nil, want a rule", tt.method, tt.path)
			}
			if len(rule.Authorities) != len(tt.wantAuthorities) {
				t.Fatalf("Authorities = %v, want %v", rule.Authorities, tt.wantAuthorities)
			}
			for i, want := range tt.wantAuthorities {
				if rule.Authorities[i] != want {
					t.Errorf("Authorities = %v, want %v", rule.Authorities, tt.wantAuthorities)
				}
			}
		})
	}
}
