package db

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

var (
	ErrTxActive    = errors.New("unit of work already has an active transaction")
	ErrTxNotActive = errors.New("unit of work has no active transaction")
)

// UnitOfWork groups persistence calls into one transaction. Outside of
// Begin/Commit, Conn returns the root connection so single saves commit
// immediately.
type UnitOfWork struct {
	root *gorm.DB
	tx   *gorm.DB
}

func (c *Client) UnitOfWork() *UnitOfWork {
	return &UnitOfWork{root: c.conn}
}

func (u *UnitOfWork) Begin(ctx context.Context) error {
	if u.tx != nil {
		return ErrTxActive
	}
	tx := u.root.WithContext(ctx).Begin()
	if tx.Error != nil {
		return tx.Error
	}
	u.tx = tx
	return nil
}

func (u *UnitOfWork) Commit() error {
	if u.tx == nil {
		return ErrTxNotActive
	}
	err := u.tx.Commit().Error
	u.tx = nil
	return err
}

// Rollback discards the active transaction. It is a no-op when none is open.
func (u *UnitOfWork) Rollback() error {
	if u.tx == nil {
		return nil
	}
	err := u.tx.Rollback().Error
	u.tx = nil
	return err
}

func (u *UnitOfWork) Active() bool {
	return u.tx != nil
}

func (u *UnitOfWork) Conn() *gorm.DB {
	if u.tx != nil {
		return u.tx
	}
	return u.root
}
