package workflow

import (
	"fmt"
	"sort"
)

// transitionKey identifies one row of the transition rule table
type transitionKey struct {
	from   Status
	action Action
}

// transitionRule holds the resulting status and the roles allowed to request
// the transition from this particular status
type transitionRule struct {
	next  Status
	roles []Role
}

// Machine is the transition rule table for the timesheet approval workflow.
// It is pure and stateless: it is consulted at request time, never mutated.
// Any (status, action) pair absent from the table is an invalid transition;
// there are no implicit defaults. FINAL_CONFIRMED has no outgoing rows.
type Machine struct {
	transitions map[transitionKey]transitionRule
	actionRoles map[Action][]Role
}

// NewMachine builds the machine with the canonical transition table
func NewMachine() *Machine {
	m := &Machine{
		transitions: map[transitionKey]transitionRule{
			{StatusDraft, ActionSubmitForApproval}: {
				next:  StatusPendingTutorConfirmation,
				roles: []Role{RoleTutor, RoleLecturer, RoleAdmin},
			},
			{StatusPendingTutorConfirmation, ActionTutorConfirm}: {
				next:  StatusTutorConfirmed,
				roles: []Role{RoleTutor},
			},
			{StatusTutorConfirmed, ActionLecturerConfirm}: {
				next:  StatusLecturerConfirmed,
				roles: []Role{RoleLecturer, RoleAdmin},
			},
			{StatusTutorConfirmed, ActionReject}: {
				next:  StatusRejected,
				roles: []Role{RoleLecturer, RoleAdmin},
			},
			{StatusTutorConfirmed, ActionRequestModification}: {
				next:  StatusModificationRequested,
				roles: []Role{RoleLecturer, RoleAdmin},
			},
			{StatusLecturerConfirmed, ActionHRConfirm}: {
				next:  StatusFinalConfirmed,
				roles: []Role{RoleAdmin},
			},
			{StatusLecturerConfirmed, ActionReject}: {
				next:  StatusRejected,
				roles: []Role{RoleAdmin},
			},
			{StatusModificationRequested, ActionSubmitForApproval}: {
				next:  StatusPendingTutorConfirmation,
				roles: []Role{RoleTutor},
			},
			{StatusRejected, ActionSubmitForApproval}: {
				next:  StatusPendingTutorConfirmation,
				roles: []Role{RoleTutor, RoleLecturer},
			},
		},
	}

	// Union of roles per action across every status, used by the permission
	// layer when the (status, action) pair is not in the table at all. A role
	// that can never perform an action anywhere is a permission failure; a
	// wrong-status request by a capable role is a transition failure.
	m.actionRoles = make(map[Action][]Role)
	for key, rule := range m.transitions {
		for _, role := range rule.roles {
			if !containsRole(m.actionRoles[key.action], role) {
				m.actionRoles[key.action] = append(m.actionRoles[key.action], role)
			}
		}
	}
	// Map iteration order is random, so fix each union to tutor, lecturer,
	// admin order.
	for _, roles := range m.actionRoles {
		sort.Slice(roles, func(i, j int) bool {
			return roleRank[roles[i]] < roleRank[roles[j]]
		})
	}

	return m
}

var roleRank = map[Role]int{
	RoleTutor:    0,
	RoleLecturer: 1,
	RoleAdmin:    2,
}

// NextStatus resolves the status reached by applying action from the given
// status. Returns ErrInvalidTransition if the pair is not in the table.
func (m *Machine) NextStatus(from Status, action Action) (Status, error) {
	if !from.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidStatus, from)
	}
	if !action.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidAction, action)
	}

	rule, ok := m.transitions[transitionKey{from, action}]
	if !ok {
		return "", fmt.Errorf("%w: cannot apply %s from status %s", ErrInvalidTransition, action, from)
	}
	return rule.next, nil
}

// CanApply returns true if the action is legal from the given status
func (m *Machine) CanApply(from Status, action Action) bool {
	_, ok := m.transitions[transitionKey{from, action}]
	return ok
}

// AllowedRoles returns the roles permitted to request the action from the
// given status, or nil if the transition is not in the table
func (m *Machine) AllowedRoles(from Status, action Action) []Role {
	rule, ok := m.transitions[transitionKey{from, action}]
	if !ok {
		return nil
	}
	roles := make([]Role, len(rule.roles))
	copy(roles, rule.roles)
	return roles
}

// RolesForAction returns every role that can perform the action from some
// status. Used for status-independent role gating.
func (m *Machine) RolesForAction(action Action) []Role {
	roles := make([]Role, len(m.actionRoles[action]))
	copy(roles, m.actionRoles[action])
	return roles
}

// PermittedActions returns all actions legal from the given status
func (m *Machine) PermittedActions(from Status) []Action {
	var actions []Action
	for key := range m.transitions {
		if key.from == from {
			actions = append(actions, key.action)
		}
	}
	return actions
}

func containsRole(roles []Role, role Role) bool {
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}
