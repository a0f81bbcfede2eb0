package testutil

import (
	"testing"

	id "watchdesk/pkg/domain"
)

// Story steps nest as subtests, so a failure is reported under its whole
// path, e.g. "Given_a_pending_case/When_a_manager_flags_it/Then_the_queue_shows_it".
// Each step reports whether it passed; a story may stop after a failed
// precondition.

func Given(t *testing.T, desc string, fn func(t *testing.T)) bool {
	t.Helper()
	return step(t, "Given", desc, fn)
}

func When(t *testing.T, desc string, fn func(t *testing.T)) bool {
	t.Helper()
	return step(t, "When", desc, fn)
}

func Then(t *testing.T, desc string, fn func(t *testing.T)) bool {
	t.Helper()
	return step(t, "Then", desc, fn)
}

func And(t *testing.T, desc string, fn func(t *testing.T)) bool {
	t.Helper()
	return step(t, "And", desc, fn)
}

// Roles lists the roles ForEachRole walks, officer first.
var Roles = []id.Role{id.RoleOfficer, id.RoleManager}

// ForEachRole runs fn once per role in Roles, each as a subtest named
// "As an officer" or "As a manager". It stops at the first failing role.
func ForEachRole(t *testing.T, fn func(t *testing.T, role id.Role)) bool {
	t.Helper()
	for _, role := range Roles {
		if !step(t, "As", RolePhrase(role), func(t *testing.T) { fn(t, role) }) {
			return false
		}
	}
	return true
}

// RolePhrase renders a role with its article: "an officer", "a manager".
func RolePhrase(role id.Role) string {
	switch r := string(role); {
	case r == "":
		return "an anonymous user"
	case r[0] == 'a' || r[0] == 'e' || r[0] == 'i' || r[0] == 'o' || r[0] == 'u':
		return "an " + r
	default:
		return "a " + r
	}
}

func step(t *testing.T, keyword, desc string, fn func(t *testing.T)) bool {
	t.Helper()
	return t.Run(keyword+" "+desc, fn)
}
