package uow

import (
	"context"
	"errors"
	"fmt"

	iaudit "github.com/corray333/backend-labs/foodorder/internal/dal/interfaces/iauditrepo"
	iorder "github.com/corray333/backend-labs/foodorder/internal/dal/interfaces/iorderrepo"
	iorderitem "github.com/corray333/backend-labs/foodorder/internal/dal/interfaces/iorderitemrepo"
	"github.com/corray333/backend-labs/foodorder/internal/dal/interfaces/ioutboxrepo"
	"github.com/corray333/backend-labs/foodorder/internal/dal/interfaces/istreakrepo"
	"github.com/corray333/backend-labs/foodorder/internal/dal/postgres"
	auditrepo "github.com/corray333/backend-labs/foodorder/internal/dal/repositories/audit/postgres"
	orderrepo "github.com/corray333/backend-labs/foodorder/internal/dal/repositories/order/postgres"
	orderitemrepo "github.com/corray333/backend-labs/foodorder/internal/dal/repositories/orderitem/postgres"
	outboxrepo "github.com/corray333/backend-labs/foodorder/internal/dal/repositories/outbox/postgres"
	streakrepo "github.com/corray333/backend-labs/foodorder/internal/dal/repositories/streak/postgres"
	"github.com/jackc/pgx/v5"
)

// UnitOfWork groups repositories that share one transaction once Begin is called.
// Before Begin the repositories run directly on the pool.
type UnitOfWork struct {
	client *postgres.Client
	tx     pgx.Tx

	orderRepo     iorder.IOrderRepository
	orderItemRepo iorderitem.IOrderItemRepository
	auditRepo     iaudit.IAuditRepository
	outboxRepo    ioutboxrepo.IOutboxRepository
	streakRepo    istreakrepo.IStreakRepository
}

// NewUnitOfWork creates a unit of work bound to the pool.
func NewUnitOfWork(client *postgres.Client) *UnitOfWork {
	u := &UnitOfWork{client: client}
	u.bind(client.Pool())

	return u
}

func (u *UnitOfWork) bind(conn postgres.GenericConn) {
	u.orderRepo = orderrepo.NewPostgresOrderRepository(conn)
	u.orderItemRepo = orderitemrepo.NewPostgresOrderItemRepository(conn)
	u.auditRepo = auditrepo.NewAuditPostgresRepository(conn)
	u.outboxRepo = outboxrepo.NewOutboxRepository(conn)
	u.streakRepo = streakrepo.NewStreakPostgresRepository(conn)
}

func (u *UnitOfWork) OrderRepository() iorder.IOrderRepository {
	return u.orderRepo
}

func (u *UnitOfWork) OrderItemRepository() iorderitem.IOrderItemRepository {
	return u.orderItemRepo
}

func (u *UnitOfWork) AuditRepository() iaudit.IAuditRepository {
	return u.auditRepo
}

func (u *UnitOfWork) OutboxRepository() ioutboxrepo.IOutboxRepository {
	return u.outboxRepo
}

func (u *UnitOfWork) StreakRepository() istreakrepo.IStreakRepository {
	return u.streakRepo
}

// Begin starts a transaction and rebinds the repositories to it.
func (u *UnitOfWork) Begin(ctx context.Context) error {
	if u.tx != nil {
		return errors.New("transaction already started")
	}

	tx, err := u.client.Pool().Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	u.tx = tx
	u.bind(tx)

	return nil
}

func (u *UnitOfWork) Commit(ctx context.Context) error {
	if u.tx == nil {
		return nil
	}
	defer u.reset()

	return u.tx.Commit(ctx)
}

// Rollback is safe to call after Commit.
func (u *UnitOfWork) Rollback(ctx context.Context) error {
	if u.tx == nil {
		return nil
	}
	defer u.reset()

	err := u.tx.Rollback(ctx)
	if errors.Is(err, pgx.ErrTxClosed) {
		return nil
	}

	return err
}

func (u *UnitOfWork) reset() {
	u.tx = nil
	u.bind(u.client.Pool())
}
