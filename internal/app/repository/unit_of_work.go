package repository

import (
	"context"

	"gorm.io/gorm"
)

// UnitOfWork exposes repositories bound to a single open transaction.
// Nothing inside a unit of work may use repositories built on the pool,
// or it would read outside the transaction.
type UnitOfWork struct {
	Products ProductRepository
	Carts    CartRepository
	Orders   OrderRepository
}

func newUnitOfWork(tx *gorm.DB) *UnitOfWork {
	return &UnitOfWork{
		Products: NewProductRepository(tx),
		Carts:    NewCartRepository(tx),
		Orders:   NewOrderRepository(tx),
	}
}

// Transactor runs fn inside a transaction that commits when fn returns nil
// and rolls back on error or panic.
type Transactor interface {
	WithinTransaction(ctx context.Context, fn func(uow *UnitOfWork) error) error
}

type gormTransactor struct {
	db *gorm.DB
}

func NewTransactor(db *gorm.DB) Transactor {
	return &gormTransactor{db: db}
}

func (t *gormTransactor) WithinTransaction(ctx context.Context, fn func(uow *UnitOfWork) error) error {
	return t.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(newUnitOfWork(tx))
	})
}
