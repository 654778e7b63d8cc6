// Package permission decides which actor may do what to which task.
//
// Every function here is pure: callers load the actor and the target
// inside their own transaction and hand both in. Nothing is read from the
// database or the request, so the same decision is reached from the JSON
// API, the HTML forms and the tests.
package permission

import (
	"fmt"

	"taskprogress/internal/model"
)

type Operation string

const (
	ViewTask         Operation = "view"
	CreateTask       Operation = "create"
	EditTask         Operation = "edit"
	DeleteTask       Operation = "delete"
	ManageUsers      Operation = "manage_users"
	ManageCategories Operation = "manage_categories"
)

func (op Operation) isTaskOperation() bool {
	switch op {
	case ViewTask, CreateTask, EditTask, DeleteTask:
		return true
	}
	return false
}

// Decision is the outcome of Evaluate.
type Decision struct {
	Allowed bool
	Message string
	// NotOwner is set when a data entry user was refused because someone
	// else created the task, as opposed to a refusal based on role alone.
	NotOwner bool
	op       Operation
}

// Err returns nil for an allowed decision and a *DeniedError otherwise.
func (d Decision) Err() error {
	if d.Allowed {
		return nil
	}
	return &DeniedError{Operation: d.op, Message: d.Message, NotOwner: d.NotOwner}
}

// DeniedError carries a refusal through the service layer up to the handlers.
type DeniedError struct {
	Operation Operation
	Message   string
	NotOwner  bool
}

func (e *DeniedError) Error() string {
	return e.Message
}

const (
	msgUnauthenticated = "Authentication required"
	msgDisabled        = "Your account has been disabled, please contact an administrator"
	msgAdminTasks      = "Administrators cannot access task management"
	msgAdminOnly       = "Only administrators can manage users and categories"
)

func allow(op Operation) Decision {
	return Decision{Allowed: true, op: op}
}

func deny(op Operation, msg string) Decision {
	return Decision{Message: msg, op: op}
}

// Evaluate decides whether actor may perform op. task is the target for
// view, edit and delete and may be nil for list, create and the admin
// operations. A nil, unsaved or inactive actor is always refused.
func Evaluate(actor *model.User, op Operation, task *model.Task) Decision {
	if actor == nil || actor.ID == 0 {
		return deny(op, msgUnauthenticated)
	}
	if !actor.Active {
		return deny(op, msgDisabled)
	}

	switch actor.Role {
	case model.RoleAdmin:
		if op == ManageUsers || op == ManageCategories {
			return allow(op)
		}
		if op.isTaskOperation() {
			return deny(op, msgAdminTasks)
		}
	case model.RoleDataEntry:
		switch op {
		case ViewTask, CreateTask:
			return allow(op)
		case EditTask, DeleteTask:
			if task == nil {
				return deny(op, genericTaskDenial(op))
			}
			if task.IsCreatedBy(actor.ID) {
				return allow(op)
			}
			return ownershipDenial(op, task)
		case ManageUsers, ManageCategories:
			return deny(op, msgAdminOnly)
		}
	case model.RoleSupervisor:
		switch op {
		case ViewTask, CreateTask:
			return allow(op)
		case EditTask, DeleteTask:
			if task == nil {
				return deny(op, genericTaskDenial(op))
			}
			return allow(op)
		case ManageUsers, ManageCategories:
			return deny(op, msgAdminOnly)
		}
	}
	return deny(op, "You do not have permission to perform this action")
}

func genericTaskDenial(op Operation) string {
	return fmt.Sprintf("You do not have permission to %s this task.", op)
}

// ownershipDenial names the creator when there is one. Tasks whose creator
// was removed fall back to the generic message.
func ownershipDenial(op Operation, task *model.Task) Decision {
	if task.CreatorID == nil {
		return deny(op, genericTaskDenial(op))
	}
	creator := "an unknown user"
	if task.Creator != nil && task.Creator.FullName != "" {
		creator = task.Creator.FullName
	}
	return Decision{
		Message: fmt.Sprintf(
			"You do not have permission to %s this task. It was created by %s (user %d); data entry users can only %s tasks they created.",
			op, creator, *task.CreatorID, op,
		),
		NotOwner: true,
		op:       op,
	}
}

func CanViewTask(actor *model.User, task *model.Task) bool {
	return Evaluate(actor, ViewTask, task).Allowed
}

func CanCreateTask(actor *model.User) bool {
	return Evaluate(actor, CreateTask, nil).Allowed
}

func CanEditTask(actor *model.User, task *model.Task) bool {
	return Evaluate(actor, EditTask, task).Allowed
}

func CanDeleteTask(actor *model.User, task *model.Task) bool {
	return Evaluate(actor, DeleteTask, task).Allowed
}

func CanManageUsers(actor *model.User) bool {
	return Evaluate(actor, ManageUsers, nil).Allowed
}

func CanManageCategories(actor *model.User) bool {
	return Evaluate(actor, ManageCategories, nil).Allowed
}
