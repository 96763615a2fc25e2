package memory

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"clubpuntos/backend/internal/domain"
	"clubpuntos/backend/internal/store"
)

func dec(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	if err != nil {
		t.Fatalf("bad decimal %q: %v", s, err)
	}
	return d
}

func loadPoints(t *testing.T, s *Store, memberID string, amount string) {
	t.Helper()
	if _, err := s.LoadPoints(context.Background(), memberID, dec(t, amount), "admin", "", decimal.NewFromInt(1)); err != nil {
		t.Fatalf("load points failed: %v", err)
	}
}

func TestLoadPointsWritesLedgerRow(t *testing.T) {
	s := NewSeeded()
	ctx := context.Background()

	tx, err := s.LoadPoints(ctx, "mbr-seed-ana", dec(t, "25.5"), "admin", "recarga", decimal.NewFromInt(1))
	if err != nil {
		t.Fatalf("load points failed: %v", err)
	}
	if tx.Type != domain.PointsTxLoad {
		t.Fatalf("expected LOAD, got %s", tx.Type)
	}
	if !tx.BalanceBefore.IsZero() || !tx.BalanceAfter.Equal(dec(t, "25.5")) {
		t.Fatalf("expected 0 -> 25.5, got %s -> %s", tx.BalanceBefore, tx.BalanceAfter)
	}

	member, err := s.GetMember(ctx, "mbr-seed-ana")
	if err != nil {
		t.Fatalf("get member failed: %v", err)
	}
	if !member.PointsBalance.Equal(dec(t, "25.5")) {
		t.Fatalf("expected balance 25.5, got %s", member.PointsBalance)
	}
}

func TestAdjustPointsRejectsNegativeBalance(t *testing.T) {
	s := NewSeeded()
	ctx := context.Background()
	loadPoints(t, s, "mbr-seed-ana", "10")

	_, err := s.AdjustPoints(ctx, "mbr-seed-ana", dec(t, "-15"), "admin", "correccion")
	if !errors.Is(err, store.ErrInsufficientBalance) {
		t.Fatalf("expected ErrInsufficientBalance, got %v", err)
	}

	// A rejected guard leaves no trace: balance and ledger unchanged.
	member, _ := s.GetMember(ctx, "mbr-seed-ana")
	if !member.PointsBalance.Equal(dec(t, "10")) {
		t.Fatalf("balance changed after rejected adjustment: %s", member.PointsBalance)
	}
	history, _ := s.ListPointsTransactions(ctx, "mbr-seed-ana", 50, 0)
	if len(history) != 1 {
		t.Fatalf("expected 1 ledger row, got %d", len(history))
	}
}

func TestAdjustPointsAllowsDrainToZero(t *testing.T) {
	s := NewSeeded()
	ctx := context.Background()
	loadPoints(t, s, "mbr-seed-ana", "10")

	tx, err := s.AdjustPoints(ctx, "mbr-seed-ana", dec(t, "-10"), "admin", "correccion")
	if err != nil {
		t.Fatalf("adjust to zero failed: %v", err)
	}
	if !tx.BalanceAfter.IsZero() {
		t.Fatalf("expected zero balance, got %s", tx.BalanceAfter)
	}
}

func TestStockAdjustmentRejectsNegativeStock(t *testing.T) {
	s := NewSeeded()
	ctx := context.Background()

	product, _ := s.GetProduct(ctx, "prd-seed-cola")
	tooMuch := product.CurrentStock.Add(decimal.NewFromInt(1)).Neg()

	_, err := s.AdjustStock(ctx, "prd-seed-cola", tooMuch, "admin", "merma", "")
	if !errors.Is(err, store.ErrInsufficientStock) {
		t.Fatalf("expected ErrInsufficientStock, got %v", err)
	}

	after, _ := s.GetProduct(ctx, "prd-seed-cola")
	if !after.CurrentStock.Equal(product.CurrentStock) {
		t.Fatalf("stock changed after rejected adjustment: %s", after.CurrentStock)
	}
}

func TestCreateSaleHappyPath(t *testing.T) {
	s := NewSeeded()
	ctx := context.Background()
	loadPoints(t, s, "mbr-seed-ana", "50")

	at := time.Date(2025, 6, 14, 20, 0, 0, 0, time.UTC)
	sale, err := s.CreateSale(ctx, "mbr-seed-ana", "cashier", []domain.SaleLine{
		{ProductID: "prd-seed-cerveza", Quantity: dec(t, "2")},
		{ProductID: "prd-seed-agua", Quantity: dec(t, "1")},
	}, nil, "", at)
	if err != nil {
		t.Fatalf("create sale failed: %v", err)
	}

	// 2 * 3.5 + 1 * 1 = 8
	if !sale.TotalPoints.Equal(dec(t, "8")) {
		t.Fatalf("expected total 8, got %s", sale.TotalPoints)
	}
	if sale.SaleNumber != "V-20250614-0001" {
		t.Fatalf("unexpected sale number %s", sale.SaleNumber)
	}
	if sale.Status != domain.SaleStatusCompleted {
		t.Fatalf("expected COMPLETED, got %s", sale.Status)
	}

	member, _ := s.GetMember(ctx, "mbr-seed-ana")
	if !member.PointsBalance.Equal(dec(t, "42")) {
		t.Fatalf("expected balance 42, got %s", member.PointsBalance)
	}

	product, _ := s.GetProduct(ctx, "prd-seed-cerveza")
	if !product.CurrentStock.Equal(dec(t, "46")) {
		t.Fatalf("expected stock 46, got %s", product.CurrentStock)
	}

	moves, _ := s.ListStockMovements(ctx, "prd-seed-cerveza", 10, 0)
	if moves[0].Type != domain.StockMoveExit || moves[0].Reason != domain.ReasonSale {
		t.Fatalf("expected EXIT/%s movement, got %s/%s", domain.ReasonSale, moves[0].Type, moves[0].Reason)
	}
	if !moves[0].Quantity.Equal(dec(t, "-2")) {
		t.Fatalf("expected quantity -2, got %s", moves[0].Quantity)
	}

	history, _ := s.ListPointsTransactions(ctx, "mbr-seed-ana", 10, 0)
	consume := history[0]
	if consume.Type != domain.PointsTxConsume {
		t.Fatalf("expected CONSUME, got %s", consume.Type)
	}
	if !strings.HasPrefix(consume.Notes, "Venta V-") {
		t.Fatalf("unexpected consume note %q", consume.Notes)
	}
	if consume.SaleID == nil || *consume.SaleID != sale.ID {
		t.Fatalf("consume row not linked to sale")
	}
}

func TestCreateSaleInsufficientStockLeavesNoTrace(t *testing.T) {
	s := NewSeeded()
	ctx := context.Background()
	loadPoints(t, s, "mbr-seed-ana", "1000")

	at := time.Now().UTC()
	_, err := s.CreateSale(ctx, "mbr-seed-ana", "cashier", []domain.SaleLine{
		{ProductID: "prd-seed-agua", Quantity: dec(t, "2")},
		{ProductID: "prd-seed-cerveza", Quantity: dec(t, "999")},
	}, nil, "", at)
	if !errors.Is(err, store.ErrInsufficientStock) {
		t.Fatalf("expected ErrInsufficientStock, got %v", err)
	}

	// The first line must not have been deducted either.
	agua, _ := s.GetProduct(ctx, "prd-seed-agua")
	if !agua.CurrentStock.Equal(dec(t, "72")) {
		t.Fatalf("partial deduction leaked: agua stock %s", agua.CurrentStock)
	}
	member, _ := s.GetMember(ctx, "mbr-seed-ana")
	if !member.PointsBalance.Equal(dec(t, "1000")) {
		t.Fatalf("balance changed on failed sale: %s", member.PointsBalance)
	}
	sales, _ := s.ListSales(ctx, 10, 0)
	if len(sales) != 0 {
		t.Fatalf("expected no sales, got %d", len(sales))
	}
}

func TestCreateSaleDuplicateProductLines(t *testing.T) {
	s := NewSeeded()
	ctx := context.Background()
	loadPoints(t, s, "mbr-seed-ana", "1000")

	at := time.Now().UTC()

	// Two lines of the same product draw from one stock pool: 30 + 30
	// exceeds the 48 cerveza units even though each line alone fits.
	_, err := s.CreateSale(ctx, "mbr-seed-ana", "cashier", []domain.SaleLine{
		{ProductID: "prd-seed-cerveza", Quantity: dec(t, "30")},
		{ProductID: "prd-seed-cerveza", Quantity: dec(t, "30")},
	}, nil, "", at)
	if !errors.Is(err, store.ErrInsufficientStock) {
		t.Fatalf("expected ErrInsufficientStock, got %v", err)
	}
	cerveza, _ := s.GetProduct(ctx, "prd-seed-cerveza")
	if !cerveza.CurrentStock.Equal(dec(t, "48")) {
		t.Fatalf("stock changed on rejected sale: %s", cerveza.CurrentStock)
	}
	member, _ := s.GetMember(ctx, "mbr-seed-ana")
	if !member.PointsBalance.Equal(dec(t, "1000")) {
		t.Fatalf("balance changed on rejected sale: %s", member.PointsBalance)
	}

	// Within stock, repeated lines sell normally and deduct the sum.
	sale, err := s.CreateSale(ctx, "mbr-seed-ana", "cashier", []domain.SaleLine{
		{ProductID: "prd-seed-cerveza", Quantity: dec(t, "2")},
		{ProductID: "prd-seed-cerveza", Quantity: dec(t, "3")},
	}, nil, "", at)
	if err != nil {
		t.Fatalf("create sale failed: %v", err)
	}
	if !sale.TotalPoints.Equal(dec(t, "17.5")) {
		t.Fatalf("expected total 17.5, got %s", sale.TotalPoints)
	}
	cerveza, _ = s.GetProduct(ctx, "prd-seed-cerveza")
	if !cerveza.CurrentStock.Equal(dec(t, "43")) {
		t.Fatalf("expected stock 43, got %s", cerveza.CurrentStock)
	}
}

func TestCreateSaleUnknownRegisterLeavesNoTrace(t *testing.T) {
	s := NewSeeded()
	ctx := context.Background()
	loadPoints(t, s, "mbr-seed-ana", "100")

	ghost := "reg-ghost"
	_, err := s.CreateSale(ctx, "mbr-seed-ana", "cashier", []domain.SaleLine{
		{ProductID: "prd-seed-cerveza", Quantity: dec(t, "3")},
	}, &ghost, "", time.Now().UTC())
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	member, _ := s.GetMember(ctx, "mbr-seed-ana")
	if !member.PointsBalance.Equal(dec(t, "100")) {
		t.Fatalf("balance changed on failed sale: %s", member.PointsBalance)
	}
	cerveza, _ := s.GetProduct(ctx, "prd-seed-cerveza")
	if !cerveza.CurrentStock.Equal(dec(t, "48")) {
		t.Fatalf("stock changed on failed sale: %s", cerveza.CurrentStock)
	}
	history, _ := s.ListPointsTransactions(ctx, "mbr-seed-ana", 50, 0)
	if len(history) != 1 {
		t.Fatalf("expected only the load row, got %d", len(history))
	}
	moves, _ := s.ListStockMovements(ctx, "prd-seed-cerveza", 50, 0)
	if len(moves) != 0 {
		t.Fatalf("expected no stock movements, got %d", len(moves))
	}
	sales, _ := s.ListSales(ctx, 10, 0)
	if len(sales) != 0 {
		t.Fatalf("expected no sales, got %d", len(sales))
	}
}

func TestCreateSaleInsufficientBalance(t *testing.T) {
	s := NewSeeded()
	ctx := context.Background()
	loadPoints(t, s, "mbr-seed-luis", "3")

	_, err := s.CreateSale(ctx, "mbr-seed-luis", "cashier", []domain.SaleLine{
		{ProductID: "prd-seed-cerveza", Quantity: dec(t, "2")},
	}, nil, "", time.Now().UTC())
	if !errors.Is(err, store.ErrInsufficientBalance) {
		t.Fatalf("expected ErrInsufficientBalance, got %v", err)
	}

	cerveza, _ := s.GetProduct(ctx, "prd-seed-cerveza")
	if !cerveza.CurrentStock.Equal(dec(t, "48")) {
		t.Fatalf("stock changed on failed sale: %s", cerveza.CurrentStock)
	}
}

func TestSaleNumbersRestartPerDay(t *testing.T) {
	s := NewSeeded()
	ctx := context.Background()
	loadPoints(t, s, "mbr-seed-ana", "100")

	day1 := time.Date(2025, 6, 14, 21, 0, 0, 0, time.UTC)
	day2 := time.Date(2025, 6, 15, 9, 0, 0, 0, time.UTC)
	line := []domain.SaleLine{{ProductID: "prd-seed-agua", Quantity: dec(t, "1")}}

	first, _ := s.CreateSale(ctx, "mbr-seed-ana", "cashier", line, nil, "", day1)
	second, _ := s.CreateSale(ctx, "mbr-seed-ana", "cashier", line, nil, "", day1)
	third, _ := s.CreateSale(ctx, "mbr-seed-ana", "cashier", line, nil, "", day2)

	if first.SaleNumber != "V-20250614-0001" || second.SaleNumber != "V-20250614-0002" {
		t.Fatalf("same-day numbering broken: %s, %s", first.SaleNumber, second.SaleNumber)
	}
	if third.SaleNumber != "V-20250615-0001" {
		t.Fatalf("expected day rollover to 0001, got %s", third.SaleNumber)
	}
}

func TestRefundSaleRestoresEverything(t *testing.T) {
	s := NewSeeded()
	ctx := context.Background()
	loadPoints(t, s, "mbr-seed-ana", "50")

	at := time.Now().UTC()
	sale, err := s.CreateSale(ctx, "mbr-seed-ana", "cashier", []domain.SaleLine{
		{ProductID: "prd-seed-cerveza", Quantity: dec(t, "3")},
	}, nil, "", at)
	if err != nil {
		t.Fatalf("create sale failed: %v", err)
	}

	refunded, err := s.RefundSale(ctx, sale.ID, "admin", at.Add(time.Hour))
	if err != nil {
		t.Fatalf("refund failed: %v", err)
	}
	if refunded.Status != domain.SaleStatusRefunded || refunded.RefundedAt == nil {
		t.Fatalf("refund status not recorded")
	}

	member, _ := s.GetMember(ctx, "mbr-seed-ana")
	if !member.PointsBalance.Equal(dec(t, "50")) {
		t.Fatalf("expected balance restored to 50, got %s", member.PointsBalance)
	}
	cerveza, _ := s.GetProduct(ctx, "prd-seed-cerveza")
	if !cerveza.CurrentStock.Equal(dec(t, "48")) {
		t.Fatalf("expected stock restored to 48, got %s", cerveza.CurrentStock)
	}

	moves, _ := s.ListStockMovements(ctx, "prd-seed-cerveza", 10, 0)
	if moves[0].Type != domain.StockMoveReturn || moves[0].Reason != domain.ReasonRefundReturn {
		t.Fatalf("expected RETURN/%s, got %s/%s", domain.ReasonRefundReturn, moves[0].Type, moves[0].Reason)
	}

	history, _ := s.ListPointsTransactions(ctx, "mbr-seed-ana", 10, 0)
	if history[0].Type != domain.PointsTxRefund {
		t.Fatalf("expected REFUND row, got %s", history[0].Type)
	}
	if !strings.HasPrefix(history[0].Notes, "Reembolso venta ") {
		t.Fatalf("unexpected refund note %q", history[0].Notes)
	}

	// Only COMPLETED sales can be refunded.
	_, err = s.RefundSale(ctx, sale.ID, "admin", at.Add(2*time.Hour))
	if !errors.Is(err, store.ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState on double refund, got %v", err)
	}
}

func TestSingleOpenRegister(t *testing.T) {
	s := NewSeeded()
	ctx := context.Background()
	at := time.Now().UTC()

	first, err := s.OpenCashRegister(ctx, "cashier", dec(t, "100"), "", at)
	if err != nil {
		t.Fatalf("open register failed: %v", err)
	}

	_, err = s.OpenCashRegister(ctx, "admin", dec(t, "50"), "", at)
	if !errors.Is(err, store.ErrConflict) {
		t.Fatalf("expected ErrConflict on second open, got %v", err)
	}

	if _, err := s.CloseCashRegister(ctx, first.ID, dec(t, "100"), "", at.Add(time.Hour)); err != nil {
		t.Fatalf("close register failed: %v", err)
	}

	if _, err := s.OpenCashRegister(ctx, "cashier", dec(t, "80"), "", at.Add(2*time.Hour)); err != nil {
		t.Fatalf("open after close failed: %v", err)
	}
}

func TestRegisterCashFlow(t *testing.T) {
	s := NewSeeded()
	ctx := context.Background()
	at := time.Now().UTC()

	register, err := s.OpenCashRegister(ctx, "cashier", dec(t, "100"), "", at)
	if err != nil {
		t.Fatalf("open register failed: %v", err)
	}

	// A load at ratio 2 points per euro adds amount/2 to expected cash.
	if _, err := s.LoadPoints(ctx, "mbr-seed-ana", dec(t, "20"), "cashier", "", decimal.NewFromInt(2)); err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if _, err := s.RecordExpense(ctx, register.ID, dec(t, "5"), "hielo", "cashier", at); err != nil {
		t.Fatalf("expense failed: %v", err)
	}

	// Sales move points, never cash.
	sale, err := s.CreateSale(ctx, "mbr-seed-ana", "cashier", []domain.SaleLine{
		{ProductID: "prd-seed-cola", Quantity: dec(t, "2")},
	}, &register.ID, "", at)
	if err != nil {
		t.Fatalf("sale failed: %v", err)
	}

	current, _ := s.GetCashRegister(ctx, register.ID)
	if !current.ExpectedCash.Equal(dec(t, "105")) {
		t.Fatalf("expected cash 100+10-5=105, got %s", current.ExpectedCash)
	}
	if !current.TotalSales.Equal(dec(t, "4")) {
		t.Fatalf("expected total sales 4, got %s", current.TotalSales)
	}
	if !current.TotalExpenses.Equal(dec(t, "5")) {
		t.Fatalf("expected total expenses 5, got %s", current.TotalExpenses)
	}

	// Refund reverses the sales total even after close.
	closed, err := s.CloseCashRegister(ctx, register.ID, dec(t, "103"), "", at.Add(time.Hour))
	if err != nil {
		t.Fatalf("close failed: %v", err)
	}
	if closed.Difference == nil || !closed.Difference.Equal(dec(t, "-2")) {
		t.Fatalf("expected difference -2, got %v", closed.Difference)
	}

	if _, err := s.RefundSale(ctx, sale.ID, "admin", at.Add(2*time.Hour)); err != nil {
		t.Fatalf("refund failed: %v", err)
	}
	after, _ := s.GetCashRegister(ctx, register.ID)
	if !after.TotalSales.IsZero() {
		t.Fatalf("expected total sales back to 0, got %s", after.TotalSales)
	}
}

func TestExpenseRequiresOpenRegister(t *testing.T) {
	s := NewSeeded()
	ctx := context.Background()
	at := time.Now().UTC()

	register, _ := s.OpenCashRegister(ctx, "cashier", dec(t, "50"), "", at)
	if _, err := s.CloseCashRegister(ctx, register.ID, dec(t, "50"), "", at); err != nil {
		t.Fatalf("close failed: %v", err)
	}

	_, err := s.RecordExpense(ctx, register.ID, dec(t, "5"), "hielo", "cashier", at)
	if !errors.Is(err, store.ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState, got %v", err)
	}
}

func TestBalanceReplaysFromLedger(t *testing.T) {
	s := NewSeeded()
	ctx := context.Background()
	loadPoints(t, s, "mbr-seed-ana", "40")

	at := time.Now().UTC()
	sale, _ := s.CreateSale(ctx, "mbr-seed-ana", "cashier", []domain.SaleLine{
		{ProductID: "prd-seed-cola", Quantity: dec(t, "3")},
	}, nil, "", at)
	_, _ = s.RefundSale(ctx, sale.ID, "admin", at)
	_, _ = s.AdjustPoints(ctx, "mbr-seed-ana", dec(t, "-7.5"), "admin", "correccion")

	history, _ := s.ListPointsTransactions(ctx, "mbr-seed-ana", 100, 0)
	replayed := decimal.Zero
	for i := len(history) - 1; i >= 0; i-- {
		tx := history[i]
		if !tx.BalanceBefore.Equal(replayed) {
			t.Fatalf("ledger row %s has before=%s, replay says %s", tx.ID, tx.BalanceBefore, replayed)
		}
		replayed = replayed.Add(tx.Amount)
		if !tx.BalanceAfter.Equal(replayed) {
			t.Fatalf("ledger row %s has after=%s, replay says %s", tx.ID, tx.BalanceAfter, replayed)
		}
	}

	member, _ := s.GetMember(ctx, "mbr-seed-ana")
	if !member.PointsBalance.Equal(replayed) {
		t.Fatalf("stored balance %s diverges from replayed %s", member.PointsBalance, replayed)
	}
}

func TestStockReplaysFromLedger(t *testing.T) {
	s := NewSeeded()
	ctx := context.Background()
	loadPoints(t, s, "mbr-seed-ana", "200")

	at := time.Now().UTC()
	if _, err := s.AddStockEntry(ctx, "prd-seed-snack", dec(t, "250"), "admin", ""); err != nil {
		t.Fatalf("stock entry failed: %v", err)
	}
	if _, err := s.CreateSale(ctx, "mbr-seed-ana", "cashier", []domain.SaleLine{
		{ProductID: "prd-seed-snack", Quantity: dec(t, "120.5")},
	}, nil, "", at); err != nil {
		t.Fatalf("sale failed: %v", err)
	}
	_, _ = s.AdjustStock(ctx, "prd-seed-snack", dec(t, "-30"), "admin", "merma", "")

	moves, _ := s.ListStockMovements(ctx, "prd-seed-snack", 100, 0)
	replayed := decimal.Zero
	for i := len(moves) - 1; i >= 0; i-- {
		mv := moves[i]
		if !mv.StockBefore.Equal(replayed) {
			t.Fatalf("movement %s has before=%s, replay says %s", mv.ID, mv.StockBefore, replayed)
		}
		replayed = replayed.Add(mv.Quantity)
	}

	product, _ := s.GetProduct(ctx, "prd-seed-snack")
	if !product.CurrentStock.Equal(replayed) {
		t.Fatalf("stored stock %s diverges from replayed %s", product.CurrentStock, replayed)
	}
}

func TestUpdateMemberNeverTouchesBalance(t *testing.T) {
	s := NewSeeded()
	ctx := context.Background()
	loadPoints(t, s, "mbr-seed-ana", "33")

	member, _ := s.GetMember(ctx, "mbr-seed-ana")
	updated := *member
	updated.FirstName = "Ana Maria"
	updated.PointsBalance = dec(t, "9999")

	saved, err := s.UpdateMember(ctx, updated)
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if !saved.PointsBalance.Equal(dec(t, "33")) {
		t.Fatalf("update overwrote ledger-owned balance: %s", saved.PointsBalance)
	}
}

func TestCreateMemberReferrals(t *testing.T) {
	s := NewSeeded()
	ctx := context.Background()

	ana := "mbr-seed-ana"
	created, err := s.CreateMember(ctx, domain.Member{
		FirstName:    "Marta",
		LastName:     "Ruiz",
		ReferredByID: &ana,
	})
	if err != nil {
		t.Fatalf("create with referral failed: %v", err)
	}
	if created.MemberNumber != "M-0003" {
		t.Fatalf("expected M-0003, got %s", created.MemberNumber)
	}

	ghost := "mbr-ghost"
	_, err = s.CreateMember(ctx, domain.Member{FirstName: "X", LastName: "Y", ReferredByID: &ghost})
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown referrer, got %v", err)
	}
}

func TestInactiveMemberCannotBuy(t *testing.T) {
	s := NewSeeded()
	ctx := context.Background()
	loadPoints(t, s, "mbr-seed-luis", "50")

	if _, err := s.DeactivateMember(ctx, "mbr-seed-luis"); err != nil {
		t.Fatalf("deactivate failed: %v", err)
	}

	_, err := s.CreateSale(ctx, "mbr-seed-luis", "cashier", []domain.SaleLine{
		{ProductID: "prd-seed-agua", Quantity: dec(t, "1")},
	}, nil, "", time.Now().UTC())
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for inactive member, got %v", err)
	}
}
