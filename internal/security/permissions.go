package security

import (
	"fmt"
	"strings"
)

// Action identifies what operation is being performed
type Action string

const (
	ActionCreate Action = "create"
	ActionRead   Action = "read"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// Entity identifies the kind of record being accessed
type Entity string

const (
	EntityUser     Entity = "user"
	EntityClient   Entity = "client"
	EntityContract Entity = "contract"
	EntityEvent    Entity = "event"
)

// Actions lists every action in matrix order.
func Actions() []Action {
	return []Action{ActionCreate, ActionRead, ActionUpdate, ActionDelete}
}

// Entities lists every guarded entity in matrix order.
func Entities() []Entity {
	return []Entity{EntityUser, EntityClient, EntityContract, EntityEvent}
}

// Permission is an (action, entity) pair rendered as "<action>_<entity>".
type Permission struct {
	Action Action
	Entity Entity
}

// Perm builds the permission for action on the entity.
func (e Entity) Perm(action Action) Permission {
	return Permission{Action: action, Entity: e}
}

func (p Permission) String() string {
	return string(p.Action) + "_" + string(p.Entity)
}

// Valid reports whether both halves are known values.
func (p Permission) Valid() bool {
	return validAction(p.Action) && validEntity(p.Entity)
}

// ParsePermission parses "<action>_<entity>".
func ParsePermission(s string) (Permission, error) {
	action, entity, ok := strings.Cut(strings.TrimSpace(s), "_")
	if !ok {
		return Permission{}, fmt.Errorf("invalid permission %q", s)
	}
	p := Permission{Action: Action(action), Entity: Entity(entity)}
	if !p.Valid() {
		return Permission{}, fmt.Errorf("invalid permission %q", s)
	}
	return p, nil
}

// AllPermissions returns every (action, entity) combination.
func AllPermissions() []Permission {
	out := make([]Permission, 0, len(Actions())*len(Entities()))
	for _, e := range Entities() {
		for _, a := range Actions() {
			out = append(out, Permission{Action: a, Entity: e})
		}
	}
	return out
}

var (
	PermCreateUser     = EntityUser.Perm(ActionCreate)
	PermReadUser       = EntityUser.Perm(ActionRead)
	PermUpdateUser     = EntityUser.Perm(ActionUpdate)
	PermDeleteUser     = EntityUser.Perm(ActionDelete)
	PermCreateClient   = EntityClient.Perm(ActionCreate)
	PermReadClient     = EntityClient.Perm(ActionRead)
	PermUpdateClient   = EntityClient.Perm(ActionUpdate)
	PermDeleteClient   = EntityClient.Perm(ActionDelete)
	PermCreateContract = EntityContract.Perm(ActionCreate)
	PermReadContract   = EntityContract.Perm(ActionRead)
	PermUpdateContract = EntityContract.Perm(ActionUpdate)
	PermDeleteContract = EntityContract.Perm(ActionDelete)
	PermCreateEvent    = EntityEvent.Perm(ActionCreate)
	PermReadEvent      = EntityEvent.Perm(ActionRead)
	PermUpdateEvent    = EntityEvent.Perm(ActionUpdate)
	PermDeleteEvent    = EntityEvent.Perm(ActionDelete)
)

func validAction(a Action) bool {
	switch a {
	case ActionCreate, ActionRead, ActionUpdate, ActionDelete:
		return true
	}
	return false
}

func validEntity(e Entity) bool {
	switch e {
	case EntityUser, EntityClient, EntityContract, EntityEvent:
		return true
	}
	return false
}
