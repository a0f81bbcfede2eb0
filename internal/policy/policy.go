// Package policy is the single place that decides who may see and change a
// case. Every case operation asks it before touching the store.
//
// Two roles exist. Officers work their own cases. Managers additionally see
// the fleet-wide queue (any case that is Pending or Flagged), may reassign
// any case and may delete any case.
package policy

import (
	id "watchdesk/pkg/domain"
)

// Capability is a coarse permission granted to a role.
type Capability string

const (
	CapSearch        Capability = "search"
	CapCreateCase    Capability = "create_case"
	CapUpdateOwnCase Capability = "update_own_case"
	CapDeleteOwnCase Capability = "delete_own_case"
	CapViewOwnCases  Capability = "view_own_cases"
	CapViewQueue     Capability = "view_queue"
	CapReassignAny   Capability = "reassign_any"
	CapDeleteAny     Capability = "delete_any"
)

var capabilities = map[id.Role]map[Capability]bool{
	id.RoleOfficer: {
		CapSearch:        true,
		CapCreateCase:    true,
		CapUpdateOwnCase: true,
		CapDeleteOwnCase: true,
		CapViewOwnCases:  true,
	},
	id.RoleManager: {
		CapSearch:        true,
		CapCreateCase:    true,
		CapUpdateOwnCase: true,
		CapDeleteOwnCase: true,
		CapViewOwnCases:  true,
		CapViewQueue:     true,
		CapReassignAny:   true,
		CapDeleteAny:     true,
	},
}

// Can reports whether role holds capability. Unknown roles hold nothing.
func Can(role id.Role, capability Capability) bool {
	return capabilities[role][capability]
}

// Operation names a mutating case operation.
type Operation string

const (
	OpSetStatus Operation = "setStatus"
	OpSetNotes  Operation = "setNotes"
	OpReassign  Operation = "reassign"
	OpDelete    Operation = "delete"
	OpClear     Operation = "clear"
)

// Target is what the policy needs to know about a case.
type Target struct {
	Owner id.UserID
	// Queued is true when the case is Pending or Flagged.
	Queued bool
}

// CanView reports whether requester, acting as role, may see the case.
func CanView(role id.Role, t Target, requester id.UserID) bool {
	if t.Owner == requester && Can(role, CapViewOwnCases) {
		return true
	}
	return t.Queued && Can(role, CapViewQueue)
}

// CanMutate reports whether requester, acting as role, may apply op.
//
// setStatus and clear require that the case is visible to the requester.
// setNotes is limited to the owner. delete needs ownership unless the role
// may delete any case. reassign ignores ownership and is manager-only.
func CanMutate(role id.Role, t Target, requester id.UserID, op Operation) bool {
	owns := t.Owner == requester
	switch op {
	case OpSetStatus, OpClear:
		return CanView(role, t, requester)
	case OpSetNotes:
		return owns && Can(role, CapUpdateOwnCase)
	case OpDelete:
		return Can(role, CapDeleteAny) || (owns && Can(role, CapDeleteOwnCase))
	case OpReassign:
		return Can(role, CapReassignAny)
	default:
		return false
	}
}

// Principal is the authenticated caller of an operation.
type Principal struct {
	ID   id.UserID
	Role id.Role
}
