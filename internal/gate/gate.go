// Package gate is the authorization checkpoint for collection actions.
// Handlers resolve the caller into an auth.Actor and ask the gate before
// invoking a mutating service; services re-check nothing ambient.
package gate

import (
	"errors"

	"github.com/propadmin/backoffice/internal/auth"
)

// Action describes a mutating collection operation.
type Action string

const (
	ActionApproveProof Action = "invoice:approve_proof"
	ActionRejectProof  Action = "invoice:reject_proof"
	ActionAddRetention Action = "invoice:add_retention"
	ActionRecalculate  Action = "invoice:recalculate"
	ActionAddPayment   Action = "payment:create"
	ActionSyncPayments Action = "payment:sync"
)

// ErrUnauthorized is returned when the caller's role does not allow an action.
var ErrUnauthorized = errors.New("unauthorized")

// Roles allowed per action. Approve/reject/retention are management-only;
// payment entry extends to collections staff.
var allowed = map[Action][]string{
	ActionApproveProof: {auth.RoleAdministrador, auth.RoleDirectorio, auth.RoleJefeOperativo},
	ActionRejectProof:  {auth.RoleAdministrador, auth.RoleDirectorio, auth.RoleJefeOperativo},
	ActionAddRetention: {auth.RoleAdministrador, auth.RoleDirectorio, auth.RoleJefeOperativo},
	ActionRecalculate:  {auth.RoleAdministrador, auth.RoleDirectorio, auth.RoleJefeOperativo},
	ActionAddPayment:   {auth.RoleAdministrador, auth.RoleDirectorio, auth.RoleJefeOperativo, auth.RoleCobranza},
	ActionSyncPayments: {auth.RoleAdministrador, auth.RoleDirectorio, auth.RoleJefeOperativo, auth.RoleCobranza},
}

// Can reports whether actor may perform action.
func Can(actor auth.Actor, action Action) bool {
	roles, ok := allowed[action]
	if !ok {
		return false
	}
	for _, r := range roles {
		if actor.Role == r {
			return true
		}
	}
	return false
}

// Authorize returns ErrUnauthorized unless actor may perform action.
func Authorize(actor auth.Actor, action Action) error {
	if !Can(actor, action) {
		return ErrUnauthorized
	}
	return nil
}
