package testutil

import (
	"testing"

	"github.com/stretchr/testify/assert"

	id "watchdesk/pkg/domain"
)

func TestStepsNestUnderTheirKeywords(t *testing.T) {
	var path string
	ok := Given(t, "a pending case", func(t *testing.T) {
		When(t, "a manager flags it", func(t *testing.T) {
			And(t, "the owner reloads", func(t *testing.T) {
				Then(t, "the flag shows", func(t *testing.T) {
					path = t.Name()
				})
			})
		})
	})
	assert.True(t, ok)
	assert.Equal(t, t.Name()+"/Given_a_pending_case/When_a_manager_flags_it/And_the_owner_reloads/Then_the_flag_shows", path)
}

func TestForEachRoleWalksRolesInOrder(t *testing.T) {
	var seen []id.Role
	var names []string
	ok := ForEachRole(t, func(t *testing.T, role id.Role) {
		seen = append(seen, role)
		names = append(names, t.Name())
	})
	assert.True(t, ok)
	assert.Equal(t, Roles, seen)
	assert.Equal(t, []string{t.Name() + "/As_an_officer", t.Name() + "/As_a_manager"}, names)
}

func TestRolePhrase(t *testing.T) {
	assert.Equal(t, "an officer", RolePhrase(id.RoleOfficer))
	assert.Equal(t, "a manager", RolePhrase(id.RoleManager))
	assert.Equal(t, "an auditor", RolePhrase(id.Role("auditor")))
	assert.Equal(t, "an anonymous user", RolePhrase(""))
}
