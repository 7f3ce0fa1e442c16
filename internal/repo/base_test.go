package repo

import (
	"context"
	"testing"

	"github.com/angelmondragon/orderflow/pkg/db/dbtest"
)

type ctxKey struct{}

func TestBaseDBBindsContext(t *testing.T) {
	conn := dbtest.Open(t)
	base := NewBase(conn)

	ctx := context.WithValue(context.Background(), ctxKey{}, "value")
	bound := base.DB(ctx)
	if bound.Statement == nil || bound.Statement.Context != ctx {
		t.Fatal("expected statement bound to the supplied context")
	}
	if base.DB(nil) != conn {
		t.Fatal("expected raw connection for nil context")
	}
}

func TestBaseWithTx(t *testing.T) {
	conn := dbtest.Open(t)
	base := NewBase(conn)

	if base.WithTx(nil).db != conn {
		t.Fatal("nil tx must keep the current connection")
	}
	tx := conn.Begin()
	defer tx.Rollback()
	if base.WithTx(tx).db != tx {
		t.Fatal("expected tx-bound copy")
	}
	if base.db != conn {
		t.Fatal("WithTx must not mutate the receiver")
	}
}
