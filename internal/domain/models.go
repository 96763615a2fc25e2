package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type Member struct {
	ID            string          `json:"id"`
	MemberNumber  string          `json:"member_number"`
	FirstName     string          `json:"first_name"`
	LastName      string          `json:"last_name"`
	DNI           string          `json:"dni,omitempty"`
	Email         string          `json:"email,omitempty"`
	Phone         string          `json:"phone,omitempty"`
	PointsBalance decimal.Decimal `json:"points_balance"`
	ReferredByID  *string         `json:"referred_by_id,omitempty"`
	Status        string          `json:"status"`
	Active        bool            `json:"active"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

type MemberCreateRequest struct {
	FirstName    string  `json:"first_name"`
	LastName     string  `json:"last_name"`
	DNI          string  `json:"dni"`
	Email        string  `json:"email"`
	Phone        string  `json:"phone"`
	ReferredByID *string `json:"referred_by_id,omitempty"`
}

type MemberUpdateRequest struct {
	FirstName *string `json:"first_name,omitempty"`
	LastName  *string `json:"last_name,omitempty"`
	Email     *string `json:"email,omitempty"`
	Phone     *string `json:"phone,omitempty"`
	Active    *bool   `json:"active,omitempty"`
}

type Product struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	Category     string          `json:"category"`
	PointsPrice  decimal.Decimal `json:"points_price"`
	Unit         string          `json:"unit"`
	CurrentStock decimal.Decimal `json:"current_stock"`
	MinStock     decimal.Decimal `json:"min_stock"`
	Active       bool            `json:"active"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

type ProductCreateRequest struct {
	Name        string          `json:"name"`
	Category    string          `json:"category"`
	PointsPrice decimal.Decimal `json:"points_price"`
	Unit        string          `json:"unit"`
	MinStock    decimal.Decimal `json:"min_stock"`
}

type ProductUpdateRequest struct {
	Name        *string          `json:"name,omitempty"`
	Category    *string          `json:"category,omitempty"`
	PointsPrice *decimal.Decimal `json:"points_price,omitempty"`
	Unit        *string          `json:"unit,omitempty"`
	MinStock    *decimal.Decimal `json:"min_stock,omitempty"`
	Active      *bool            `json:"active,omitempty"`
}

// PointsTransaction is an immutable row in the member points ledger. Amount is
// signed: positive for LOAD/REFUND, negative for CONSUME, either sign for
// ADJUSTMENT. BalanceAfter always equals BalanceBefore + Amount.
type PointsTransaction struct {
	ID            string          `json:"id"`
	MemberID      string          `json:"member_id"`
	Type          string          `json:"type"`
	Amount        decimal.Decimal `json:"amount"`
	BalanceBefore decimal.Decimal `json:"balance_before"`
	BalanceAfter  decimal.Decimal `json:"balance_after"`
	SaleID        *string         `json:"sale_id,omitempty"`
	LoadedByID    *string         `json:"loaded_by_id,omitempty"`
	Notes         string          `json:"notes,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
}

// StockMovement mirrors PointsTransaction over product stock. Quantity is
// signed: positive for ENTRY/RETURN, negative for EXIT, either for ADJUSTMENT.
type StockMovement struct {
	ID          string          `json:"id"`
	ProductID   string          `json:"product_id"`
	Type        string          `json:"type"`
	Quantity    decimal.Decimal `json:"quantity"`
	StockBefore decimal.Decimal `json:"stock_before"`
	StockAfter  decimal.Decimal `json:"stock_after"`
	UserID      string          `json:"user_id"`
	Reason      string          `json:"reason,omitempty"`
	Notes       string          `json:"notes,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}

type SaleItem struct {
	ID          string          `json:"id"`
	SaleID      string          `json:"sale_id"`
	ProductID   string          `json:"product_id"`
	ProductName string          `json:"product_name"`
	Quantity    decimal.Decimal `json:"quantity"`
	PointsPrice decimal.Decimal `json:"points_price"`
	TotalPoints decimal.Decimal `json:"total_points"`
}

type Sale struct {
	ID             string          `json:"id"`
	SaleNumber     string          `json:"sale_number"`
	MemberID       string          `json:"member_id"`
	SoldByID       string          `json:"sold_by_id"`
	CashRegisterID *string         `json:"cash_register_id,omitempty"`
	TotalPoints    decimal.Decimal `json:"total_points"`
	TotalItems     int             `json:"total_items"`
	Status         string          `json:"status"`
	Notes          string          `json:"notes,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	RefundedAt     *time.Time      `json:"refunded_at,omitempty"`
	Items          []SaleItem      `json:"items"`
}

type SaleLine struct {
	ProductID string          `json:"product_id"`
	Quantity  decimal.Decimal `json:"quantity"`
}

type SaleCreateRequest struct {
	MemberID       string     `json:"member_id"`
	CashRegisterID *string    `json:"cash_register_id,omitempty"`
	Notes          string     `json:"notes,omitempty"`
	Items          []SaleLine `json:"items"`
}

type CashRegister struct {
	ID            string           `json:"id"`
	Status        string           `json:"status"`
	OpenedByID    string           `json:"opened_by_id"`
	InitialCash   decimal.Decimal  `json:"initial_cash"`
	ExpectedCash  decimal.Decimal  `json:"expected_cash"`
	TotalSales    decimal.Decimal  `json:"total_sales"`
	TotalExpenses decimal.Decimal  `json:"total_expenses"`
	ActualCash    *decimal.Decimal `json:"actual_cash,omitempty"`
	Difference    *decimal.Decimal `json:"difference,omitempty"`
	Notes         string           `json:"notes,omitempty"`
	OpenDate      time.Time        `json:"open_date"`
	CloseDate     *time.Time       `json:"close_date,omitempty"`
}

type RegisterOpenRequest struct {
	InitialCash decimal.Decimal `json:"initial_cash"`
	Notes       string          `json:"notes,omitempty"`
}

type RegisterCloseRequest struct {
	RegisterID string          `json:"register_id"`
	ActualCash decimal.Decimal `json:"actual_cash"`
	Notes      string          `json:"notes,omitempty"`
}

type Expense struct {
	ID             string          `json:"id"`
	CashRegisterID string          `json:"cash_register_id"`
	Amount         decimal.Decimal `json:"amount"`
	Description    string          `json:"description"`
	CreatedByID    string          `json:"created_by_id"`
	CreatedAt      time.Time       `json:"created_at"`
}

type ExpenseCreateRequest struct {
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
}

type PointsLoadRequest struct {
	MemberID string          `json:"member_id"`
	Amount   decimal.Decimal `json:"amount"`
	Notes    string          `json:"notes,omitempty"`
}

type PointsAdjustRequest struct {
	MemberID string          `json:"member_id"`
	Amount   decimal.Decimal `json:"amount"`
	Notes    string          `json:"notes"`
}

type StockEntryRequest struct {
	ProductID string          `json:"product_id"`
	Quantity  decimal.Decimal `json:"quantity"`
	Notes     string          `json:"notes,omitempty"`
}

type StockAdjustRequest struct {
	ProductID string          `json:"product_id"`
	Quantity  decimal.Decimal `json:"quantity"`
	Reason    string          `json:"reason"`
	Notes     string          `json:"notes,omitempty"`
}

// RegisterSummary is the register-level daily report served by the reports
// endpoint and cached in redis.
type RegisterSummary struct {
	RegisterID    string          `json:"register_id"`
	Status        string          `json:"status"`
	InitialCash   decimal.Decimal `json:"initial_cash"`
	ExpectedCash  decimal.Decimal `json:"expected_cash"`
	TotalSales    decimal.Decimal `json:"total_sales"`
	TotalExpenses decimal.Decimal `json:"total_expenses"`
	SaleCount     int64           `json:"sale_count"`
	ExpenseCount  int64           `json:"expense_count"`
	OpenDate      time.Time       `json:"open_date"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	AccessToken string `json:"access_token"`
	Role        string `json:"role"`
	ExpiresAt   string `json:"expires_at"`
}

type Actor struct {
	Username string
	Role     string
}

type UserCreateRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

// UserInfo is the credential-free view of a user returned by the API.
type UserInfo struct {
	Username  string    `json:"username"`
	Role      string    `json:"role"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

// UserAccount is an internal persistence model for auth credentials.
type UserAccount struct {
	Username  string
	Password  string
	Role      string
	Active    bool
	CreatedAt time.Time
}

type AuditLog struct {
	ID            string    `json:"id"`
	ActorUsername string    `json:"actor_username"`
	ActorRole     string    `json:"actor_role"`
	Action        string    `json:"action"`
	EntityType    string    `json:"entity_type"`
	EntityID      string    `json:"entity_id"`
	Detail        string    `json:"detail"`
	CreatedAt     time.Time `json:"created_at"`
}

const (
	MemberStatusActive   = "ACTIVE"
	MemberStatusInactive = "INACTIVE"
)

const (
	PointsTxLoad       = "LOAD"
	PointsTxConsume    = "CONSUME"
	PointsTxRefund     = "REFUND"
	PointsTxAdjustment = "ADJUSTMENT"
)

const (
	StockMoveEntry      = "ENTRY"
	StockMoveExit       = "EXIT"
	StockMoveAdjustment = "ADJUSTMENT"
	StockMoveReturn     = "RETURN"
)

const (
	SaleStatusCompleted = "COMPLETED"
	SaleStatusRefunded  = "REFUNDED"
	SaleStatusCancelled = "CANCELLED"
)

const (
	RegisterStatusOpen   = "OPEN"
	RegisterStatusClosed = "CLOSED"
)

// Fixed movement reasons written by the sale orchestrator.
const (
	ReasonSale         = "Venta"
	ReasonRefundReturn = "Devolucion por reembolso"
)

const (
	UnitPiece = "unit"
	UnitGram  = "gram"
	UnitMl    = "ml"
	UnitKg    = "kg"
)
