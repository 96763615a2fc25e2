package postgres

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"clubpuntos/backend/internal/domain"
	"clubpuntos/backend/internal/fieldcrypt"
	"clubpuntos/backend/internal/store"
)

func TestSaleAndRefundRoundTrip(t *testing.T) {
	databaseURL := os.Getenv("CLUBPUNTOS_TEST_DATABASE_URL")
	if databaseURL == "" {
		t.Skip("set CLUBPUNTOS_TEST_DATABASE_URL to run postgres integration test")
	}

	ctx := context.Background()
	s, err := New(ctx, databaseURL, fieldcrypt.Noop{})
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	t.Cleanup(func() {
		_ = s.Close()
	})

	stamp := time.Now().UnixNano()
	memberID := fmt.Sprintf("mbr-it-%d", stamp)
	productID := fmt.Sprintf("prd-it-%d", stamp)

	t.Cleanup(func() {
		_, _ = s.db.ExecContext(ctx, `DELETE FROM sale_items WHERE product_id = $1`, productID)
		_, _ = s.db.ExecContext(ctx, `DELETE FROM sales WHERE member_id = $1`, memberID)
		_, _ = s.db.ExecContext(ctx, `DELETE FROM points_transactions WHERE member_id = $1`, memberID)
		_, _ = s.db.ExecContext(ctx, `DELETE FROM stock_movements WHERE product_id = $1`, productID)
		_, _ = s.db.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, productID)
		_, _ = s.db.ExecContext(ctx, `DELETE FROM members WHERE id = $1`, memberID)
	})

	if _, err := s.CreateMember(ctx, domain.Member{
		ID:        memberID,
		FirstName: "Integracion",
		LastName:  "Prueba",
	}); err != nil {
		t.Fatalf("create member: %v", err)
	}

	price := decimal.RequireFromString("2.5")
	if _, err := s.CreateProduct(ctx, domain.Product{
		ID:          productID,
		Name:        fmt.Sprintf("Producto IT %d", stamp),
		Category:    "pruebas",
		PointsPrice: price,
		Unit:        domain.UnitPiece,
	}); err != nil {
		t.Fatalf("create product: %v", err)
	}

	if _, err := s.AddStockEntry(ctx, productID, decimal.NewFromInt(10), "admin", "stock inicial"); err != nil {
		t.Fatalf("stock entry: %v", err)
	}
	if _, err := s.LoadPoints(ctx, memberID, decimal.NewFromInt(20), "admin", "", decimal.NewFromInt(1)); err != nil {
		t.Fatalf("load points: %v", err)
	}

	at := time.Now().UTC()
	sale, err := s.CreateSale(ctx, memberID, "cashier", []domain.SaleLine{
		{ProductID: productID, Quantity: decimal.NewFromInt(4)},
	}, nil, "", at)
	if err != nil {
		t.Fatalf("create sale: %v", err)
	}
	if !sale.TotalPoints.Equal(decimal.NewFromInt(10)) {
		t.Fatalf("expected total 10, got %s", sale.TotalPoints)
	}

	afterSale, err := s.GetMember(ctx, memberID)
	if err != nil {
		t.Fatalf("get member: %v", err)
	}
	if !afterSale.PointsBalance.Equal(decimal.NewFromInt(10)) {
		t.Fatalf("expected balance 10, got %s", afterSale.PointsBalance)
	}

	product, err := s.GetProduct(ctx, productID)
	if err != nil {
		t.Fatalf("get product: %v", err)
	}
	if !product.CurrentStock.Equal(decimal.NewFromInt(6)) {
		t.Fatalf("expected stock 6, got %s", product.CurrentStock)
	}

	refunded, err := s.RefundSale(ctx, sale.ID, "admin", at.Add(time.Minute))
	if err != nil {
		t.Fatalf("refund sale: %v", err)
	}
	if refunded.Status != domain.SaleStatusRefunded {
		t.Fatalf("expected REFUNDED, got %s", refunded.Status)
	}

	afterRefund, _ := s.GetMember(ctx, memberID)
	if !afterRefund.PointsBalance.Equal(decimal.NewFromInt(20)) {
		t.Fatalf("expected balance restored to 20, got %s", afterRefund.PointsBalance)
	}
	restocked, _ := s.GetProduct(ctx, productID)
	if !restocked.CurrentStock.Equal(decimal.NewFromInt(10)) {
		t.Fatalf("expected stock restored to 10, got %s", restocked.CurrentStock)
	}

	history, err := s.ListPointsTransactions(ctx, memberID, 10, 0)
	if err != nil {
		t.Fatalf("list transactions: %v", err)
	}
	if len(history) != 3 {
		t.Fatalf("expected LOAD+CONSUME+REFUND rows, got %d", len(history))
	}

	// Repeated lines for one product draw from a single stock pool; the
	// whole transaction rolls back when their sum exceeds it.
	_, err = s.CreateSale(ctx, memberID, "cashier", []domain.SaleLine{
		{ProductID: productID, Quantity: decimal.NewFromInt(6)},
		{ProductID: productID, Quantity: decimal.NewFromInt(6)},
	}, nil, "", at.Add(2*time.Minute))
	if !errors.Is(err, store.ErrInsufficientStock) {
		t.Fatalf("expected ErrInsufficientStock, got %v", err)
	}
	unchanged, _ := s.GetProduct(ctx, productID)
	if !unchanged.CurrentStock.Equal(decimal.NewFromInt(10)) {
		t.Fatalf("stock changed on rejected sale: %s", unchanged.CurrentStock)
	}
}
