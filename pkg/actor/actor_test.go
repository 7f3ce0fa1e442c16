package actor

import (
	"testing"

	"github.com/google/uuid"

	"github.com/angelmondragon/orderflow/pkg/enums"
	"github.com/angelmondragon/orderflow/pkg/outbox"
)

func TestSystemActor(t *testing.T) {
	sys := System()
	if sys.ID != "00000000-0000-0000-0000-000000000000" {
		t.Fatalf("unexpected system id %q", sys.ID)
	}
	if !sys.IsSystem() {
		t.Fatal("expected system actor")
	}
	if (Actor{}).OrSystem() != sys {
		t.Fatal("empty actor should fall back to system")
	}
}

func TestActorRoundTripsThroughRef(t *testing.T) {
	id := uuid.New()
	a := New(id, enums.ActorRoleOperator)
	if a.IsSystem() {
		t.Fatal("interactive actor reported as system")
	}
	if !a.HasRole(enums.ActorRoleProduction, enums.ActorRoleOperator) {
		t.Fatal("expected operator role match")
	}
	back := FromRef(a.Ref())
	if back != a {
		t.Fatalf("round trip mismatch %+v != %+v", back, a)
	}
	if FromRef(nil) != System() || FromRef(&outbox.ActorRef{}) != System() {
		t.Fatal("missing ref should resolve to system")
	}
}
