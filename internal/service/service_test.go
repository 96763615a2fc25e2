package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"clubpuntos/backend/internal/domain"
	"clubpuntos/backend/internal/store"
	"clubpuntos/backend/internal/store/memory"
)

func newTestService() *Service {
	repo := memory.NewSeeded()
	return New(repo, nil, nil, decimal.NewFromInt(1), 30*time.Second, false)
}

func adminCtx() context.Context {
	return WithActor(context.Background(), domain.Actor{Username: "admin", Role: "admin"})
}

func dec(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	if err != nil {
		t.Fatalf("bad decimal %q: %v", s, err)
	}
	return d
}

func TestCreateMemberValidation(t *testing.T) {
	svc := newTestService()

	_, err := svc.CreateMember(adminCtx(), domain.MemberCreateRequest{FirstName: "  ", LastName: "Solo"})
	if !errors.Is(err, store.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}

	member, err := svc.CreateMember(adminCtx(), domain.MemberCreateRequest{FirstName: "Marta", LastName: "Ruiz"})
	if err != nil {
		t.Fatalf("create member failed: %v", err)
	}
	if member.MemberNumber == "" || !member.Active {
		t.Fatalf("member not initialized: %+v", member)
	}
}

func TestLoadPointsRejectsNonPositiveAmount(t *testing.T) {
	svc := newTestService()

	_, err := svc.LoadPoints(adminCtx(), domain.PointsLoadRequest{MemberID: "mbr-seed-ana", Amount: decimal.Zero})
	if !errors.Is(err, store.ErrValidation) {
		t.Fatalf("expected ErrValidation for zero load, got %v", err)
	}

	_, err = svc.LoadPoints(adminCtx(), domain.PointsLoadRequest{MemberID: "mbr-seed-ana", Amount: dec(t, "-5")})
	if !errors.Is(err, store.ErrValidation) {
		t.Fatalf("expected ErrValidation for negative load, got %v", err)
	}
}

func TestAdjustPointsRequiresNotes(t *testing.T) {
	svc := newTestService()

	_, err := svc.AdjustPoints(adminCtx(), domain.PointsAdjustRequest{MemberID: "mbr-seed-ana", Amount: dec(t, "5")})
	if !errors.Is(err, store.ErrValidation) {
		t.Fatalf("expected ErrValidation for missing notes, got %v", err)
	}
}

func TestCreateSaleAttachesToOpenRegister(t *testing.T) {
	svc := newTestService()
	ctx := adminCtx()

	register, err := svc.OpenCashRegister(ctx, domain.RegisterOpenRequest{InitialCash: dec(t, "100")})
	if err != nil {
		t.Fatalf("open register failed: %v", err)
	}
	if _, err := svc.LoadPoints(ctx, domain.PointsLoadRequest{MemberID: "mbr-seed-ana", Amount: dec(t, "20")}); err != nil {
		t.Fatalf("load failed: %v", err)
	}

	sale, err := svc.CreateSale(ctx, domain.SaleCreateRequest{
		MemberID: "mbr-seed-ana",
		Items:    []domain.SaleLine{{ProductID: "prd-seed-cola", Quantity: dec(t, "1")}},
	})
	if err != nil {
		t.Fatalf("sale failed: %v", err)
	}
	if sale.CashRegisterID == nil || *sale.CashRegisterID != register.ID {
		t.Fatalf("sale not attached to the open register")
	}

	current, err := svc.GetCashRegister(ctx, register.ID)
	if err != nil {
		t.Fatalf("get register failed: %v", err)
	}
	if !current.TotalSales.Equal(dec(t, "2")) {
		t.Fatalf("expected total sales 2, got %s", current.TotalSales)
	}
}

func TestSaleNumbersUseInjectedClock(t *testing.T) {
	svc := newTestService()
	ctx := adminCtx()
	if _, err := svc.LoadPoints(ctx, domain.PointsLoadRequest{MemberID: "mbr-seed-ana", Amount: dec(t, "100")}); err != nil {
		t.Fatalf("load failed: %v", err)
	}

	now := time.Date(2025, 12, 31, 23, 50, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	req := domain.SaleCreateRequest{
		MemberID: "mbr-seed-ana",
		Items:    []domain.SaleLine{{ProductID: "prd-seed-agua", Quantity: dec(t, "1")}},
	}

	first, err := svc.CreateSale(ctx, req)
	if err != nil {
		t.Fatalf("sale failed: %v", err)
	}
	if first.SaleNumber != "V-20251231-0001" {
		t.Fatalf("unexpected sale number %s", first.SaleNumber)
	}

	// Midnight rollover restarts the counter.
	now = time.Date(2026, 1, 1, 0, 5, 0, 0, time.UTC)
	second, err := svc.CreateSale(ctx, req)
	if err != nil {
		t.Fatalf("sale failed: %v", err)
	}
	if second.SaleNumber != "V-20260101-0001" {
		t.Fatalf("expected rollover to V-20260101-0001, got %s", second.SaleNumber)
	}
}

func TestRefundSaleTwiceFails(t *testing.T) {
	svc := newTestService()
	ctx := adminCtx()
	if _, err := svc.LoadPoints(ctx, domain.PointsLoadRequest{MemberID: "mbr-seed-ana", Amount: dec(t, "50")}); err != nil {
		t.Fatalf("load failed: %v", err)
	}

	sale, err := svc.CreateSale(ctx, domain.SaleCreateRequest{
		MemberID: "mbr-seed-ana",
		Items:    []domain.SaleLine{{ProductID: "prd-seed-cerveza", Quantity: dec(t, "1")}},
	})
	if err != nil {
		t.Fatalf("sale failed: %v", err)
	}

	if _, err := svc.RefundSale(ctx, sale.ID); err != nil {
		t.Fatalf("refund failed: %v", err)
	}
	_, err = svc.RefundSale(ctx, sale.ID)
	if !errors.Is(err, store.ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState on second refund, got %v", err)
	}
}

func TestOpenRegisterConflict(t *testing.T) {
	svc := newTestService()
	ctx := adminCtx()

	if _, err := svc.OpenCashRegister(ctx, domain.RegisterOpenRequest{InitialCash: dec(t, "100")}); err != nil {
		t.Fatalf("open failed: %v", err)
	}
	_, err := svc.OpenCashRegister(ctx, domain.RegisterOpenRequest{InitialCash: dec(t, "50")})
	if !errors.Is(err, store.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
}

func TestRecordExpenseDefaultsToActiveRegister(t *testing.T) {
	svc := newTestService()
	ctx := adminCtx()

	register, err := svc.OpenCashRegister(ctx, domain.RegisterOpenRequest{InitialCash: dec(t, "100")})
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}

	expense, err := svc.RecordExpense(ctx, "", domain.ExpenseCreateRequest{Amount: dec(t, "12.5"), Description: "hielo"})
	if err != nil {
		t.Fatalf("expense failed: %v", err)
	}
	if expense.CashRegisterID != register.ID {
		t.Fatalf("expense landed on %s, expected %s", expense.CashRegisterID, register.ID)
	}

	current, _ := svc.GetCashRegister(ctx, register.ID)
	if !current.ExpectedCash.Equal(dec(t, "87.5")) {
		t.Fatalf("expected cash 87.5, got %s", current.ExpectedCash)
	}
}

func TestAuditTrailOnMutations(t *testing.T) {
	svc := newTestService()
	ctx := adminCtx()

	if _, err := svc.CreateMember(ctx, domain.MemberCreateRequest{FirstName: "Marta", LastName: "Ruiz"}); err != nil {
		t.Fatalf("create member failed: %v", err)
	}

	logs, err := svc.ListAuditLogs(ctx, time.Time{}, time.Time{}, 10)
	if err != nil {
		t.Fatalf("list audit logs failed: %v", err)
	}
	found := false
	for _, entry := range logs {
		if entry.Action == "member_create" && entry.ActorUsername == "admin" {
			found = true
		}
	}
	if !found {
		t.Fatalf("member_create audit entry missing, got %+v", logs)
	}
}

// countingCache records cache traffic so tests can assert hit behavior.
type countingCache struct {
	mu      sync.Mutex
	entries map[string]*domain.RegisterSummary
	gets    int
	sets    int
	hits    int
}

func newCountingCache() *countingCache {
	return &countingCache{entries: make(map[string]*domain.RegisterSummary)}
}

func (c *countingCache) Get(_ context.Context, key string) (*domain.RegisterSummary, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gets++
	if summary, ok := c.entries[key]; ok {
		c.hits++
		out := *summary
		return &out, true, nil
	}
	return nil, false, nil
}

func (c *countingCache) Set(_ context.Context, key string, summary *domain.RegisterSummary, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sets++
	out := *summary
	c.entries[key] = &out
	return nil
}

func (c *countingCache) Invalidate(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
	return nil
}

func TestRegisterSummaryUsesCache(t *testing.T) {
	cacheStore := newCountingCache()
	svc := New(memory.NewSeeded(), cacheStore, nil, decimal.NewFromInt(1), 30*time.Second, false)
	ctx := adminCtx()

	register, err := svc.OpenCashRegister(ctx, domain.RegisterOpenRequest{InitialCash: dec(t, "100")})
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}

	if _, err := svc.GetRegisterSummary(ctx, register.ID); err != nil {
		t.Fatalf("summary failed: %v", err)
	}
	if _, err := svc.GetRegisterSummary(ctx, register.ID); err != nil {
		t.Fatalf("summary failed: %v", err)
	}
	if cacheStore.sets != 1 || cacheStore.hits != 1 {
		t.Fatalf("expected 1 set and 1 hit, got sets=%d hits=%d", cacheStore.sets, cacheStore.hits)
	}

	// A mutation that touches the drawer invalidates the cached summary.
	if _, err := svc.RecordExpense(ctx, register.ID, domain.ExpenseCreateRequest{Amount: dec(t, "5"), Description: "hielo"}); err != nil {
		t.Fatalf("expense failed: %v", err)
	}
	summary, err := svc.GetRegisterSummary(ctx, register.ID)
	if err != nil {
		t.Fatalf("summary failed: %v", err)
	}
	if !summary.ExpectedCash.Equal(dec(t, "95")) {
		t.Fatalf("stale summary served: expected cash %s", summary.ExpectedCash)
	}
}

func TestActorFallsBackToSystem(t *testing.T) {
	svc := newTestService()

	// No actor on the context: mutations still work and record "system".
	if _, err := svc.CreateMember(context.Background(), domain.MemberCreateRequest{FirstName: "Sin", LastName: "Actor"}); err != nil {
		t.Fatalf("create member failed: %v", err)
	}

	logs, _ := svc.ListAuditLogs(context.Background(), time.Time{}, time.Time{}, 10)
	if len(logs) == 0 || logs[0].ActorUsername != "system" {
		t.Fatalf("expected system actor in audit log, got %+v", logs)
	}
}
