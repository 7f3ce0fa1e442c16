// Package actor carries the identity responsible for a state change.
// Orchestrators take an Actor argument; nothing resolves it globally.
package actor

import (
	"github.com/google/uuid"

	"github.com/angelmondragon/orderflow/pkg/enums"
	"github.com/angelmondragon/orderflow/pkg/outbox"
)

// SystemID is recorded when no interactive user triggered the change.
var SystemID = uuid.Nil.String()

type Actor struct {
	ID   string
	Role enums.ActorRole
}

// System is the actor used by background workers.
func System() Actor {
	return Actor{ID: SystemID, Role: enums.ActorRoleSystem}
}

func New(id uuid.UUID, role enums.ActorRole) Actor {
	return Actor{ID: id.String(), Role: role}
}

// IsSystem reports whether a is the fallback system identity.
func (a Actor) IsSystem() bool {
	return a.ID == "" || a.ID == SystemID
}

// OrSystem returns a, or System when a is empty.
func (a Actor) OrSystem() Actor {
	if a.ID == "" {
		return System()
	}
	return a
}

func (a Actor) HasRole(roles ...enums.ActorRole) bool {
	for _, role := range roles {
		if a.Role == role {
			return true
		}
	}
	return false
}

// Ref converts a into the envelope actor reference.
func (a Actor) Ref() *outbox.ActorRef {
	a = a.OrSystem()
	return &outbox.ActorRef{ID: a.ID, Role: string(a.Role)}
}

// FromRef rebuilds an actor from an envelope reference.
func FromRef(ref *outbox.ActorRef) Actor {
	if ref == nil || ref.ID == "" {
		return System()
	}
	return Actor{ID: ref.ID, Role: enums.ActorRole(ref.Role)}
}
