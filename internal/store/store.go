package store

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"clubpuntos/backend/internal/domain"
)

// Error taxonomy surfaced by every repository implementation. Ledger
// operations wrap these with %w plus operator-readable detail.
var (
	ErrNotFound            = errors.New("not found")
	ErrInvalidState        = errors.New("invalid state")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrInsufficientStock   = errors.New("insufficient stock")
	ErrConflict            = errors.New("conflict")
	ErrValidation          = errors.New("invalid input")
)

// Repository is the persistence boundary. Every mutating method runs as one
// atomic unit: either all of its writes (entity update, ledger row, register
// side effect) are visible afterwards, or none are.
//
// CONSUME points transactions and EXIT/RETURN stock movements have no method
// here on purpose: they are written only by CreateSale and RefundSale, so a
// caller cannot deduct stock or consume points outside sale semantics.
type Repository interface {
	CreateMember(ctx context.Context, member domain.Member) (*domain.Member, error)
	GetMember(ctx context.Context, id string) (*domain.Member, error)
	ListMembers(ctx context.Context, includeInactive bool) ([]domain.Member, error)
	UpdateMember(ctx context.Context, member domain.Member) (*domain.Member, error)
	DeactivateMember(ctx context.Context, id string) (*domain.Member, error)

	CreateProduct(ctx context.Context, product domain.Product) (*domain.Product, error)
	GetProduct(ctx context.Context, id string) (*domain.Product, error)
	ListProducts(ctx context.Context, includeInactive bool) ([]domain.Product, error)
	UpdateProduct(ctx context.Context, product domain.Product) (*domain.Product, error)
	DeactivateProduct(ctx context.Context, id string) (*domain.Product, error)
	ListLowStockProducts(ctx context.Context) ([]domain.Product, error)

	// LoadPoints credits a member and, when a register is OPEN, adds the cash
	// equivalent (amount divided by pointsPerEuro) to its expected cash in the
	// same transaction.
	LoadPoints(ctx context.Context, memberID string, amount decimal.Decimal, actorID string, notes string, pointsPerEuro decimal.Decimal) (*domain.PointsTransaction, error)
	AdjustPoints(ctx context.Context, memberID string, amount decimal.Decimal, actorID string, notes string) (*domain.PointsTransaction, error)
	ListPointsTransactions(ctx context.Context, memberID string, limit int, offset int) ([]domain.PointsTransaction, error)

	AddStockEntry(ctx context.Context, productID string, quantity decimal.Decimal, actorID string, notes string) (*domain.StockMovement, error)
	AdjustStock(ctx context.Context, productID string, quantity decimal.Decimal, actorID string, reason string, notes string) (*domain.StockMovement, error)
	ListStockMovements(ctx context.Context, productID string, limit int, offset int) ([]domain.StockMovement, error)

	// CreateSale atomically snapshots prices, deducts stock (EXIT movements),
	// consumes the member's points (CONSUME transaction) and bumps the open
	// register's sales total. CreatedAt drives the day-scoped sale number.
	CreateSale(ctx context.Context, memberID string, soldByID string, lines []domain.SaleLine, cashRegisterID *string, notes string, at time.Time) (*domain.Sale, error)
	// RefundSale restores stock (RETURN movements) and points (REFUND
	// transaction), flips status to REFUNDED and reverses the originating
	// register's sales total.
	RefundSale(ctx context.Context, saleID string, actorID string, at time.Time) (*domain.Sale, error)
	GetSale(ctx context.Context, id string) (*domain.Sale, error)
	ListSales(ctx context.Context, limit int, offset int) ([]domain.Sale, error)

	OpenCashRegister(ctx context.Context, actorID string, initialCash decimal.Decimal, notes string, at time.Time) (*domain.CashRegister, error)
	CloseCashRegister(ctx context.Context, registerID string, actualCash decimal.Decimal, notes string, at time.Time) (*domain.CashRegister, error)
	GetCashRegister(ctx context.Context, id string) (*domain.CashRegister, error)
	GetActiveCashRegister(ctx context.Context) (*domain.CashRegister, error)
	RecordExpense(ctx context.Context, registerID string, amount decimal.Decimal, description string, actorID string, at time.Time) (*domain.Expense, error)
	ListExpenses(ctx context.Context, registerID string) ([]domain.Expense, error)
	GetRegisterSummary(ctx context.Context, registerID string) (*domain.RegisterSummary, error)

	CreateAuditLog(ctx context.Context, entry domain.AuditLog) error
	ListAuditLogs(ctx context.Context, from time.Time, to time.Time, limit int) ([]domain.AuditLog, error)

	CreateUser(ctx context.Context, user domain.UserAccount) error
	ListUsers(ctx context.Context) ([]domain.UserAccount, error)
	UpdateUserPassword(ctx context.Context, username string, password string) error
}

// Quiescer is the lifecycle handle handed to the archival service: the store
// is flushed and closed before files are copied, then reopened.
type Quiescer interface {
	Close() error
	Reopen(ctx context.Context) error
}
