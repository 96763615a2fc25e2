package service

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"clubpuntos/backend/internal/archive"
	"clubpuntos/backend/internal/cache"
	"clubpuntos/backend/internal/domain"
	"clubpuntos/backend/internal/store"
	"clubpuntos/backend/internal/xid"
)

type actorContextKey struct{}

func WithActor(ctx context.Context, actor domain.Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

func ActorFromContext(ctx context.Context) (domain.Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(domain.Actor)
	return actor, ok
}

type Service struct {
	repo          store.Repository
	summaryCache  cache.SummaryCache
	archiver      archive.Archiver
	pointsPerEuro decimal.Decimal
	cacheTTL      time.Duration
	backupOnClose bool

	// now is swapped by tests to pin sale numbering to a simulated day.
	now func() time.Time
}

func New(repo store.Repository, summaryCache cache.SummaryCache, archiver archive.Archiver, pointsPerEuro decimal.Decimal, cacheTTL time.Duration, backupOnClose bool) *Service {
	if summaryCache == nil {
		summaryCache = cache.NoopSummaryCache{}
	}
	if archiver == nil {
		archiver = archive.NoopArchiver{}
	}
	if !pointsPerEuro.IsPositive() {
		pointsPerEuro = decimal.NewFromInt(1)
	}
	if cacheTTL <= 0 {
		cacheTTL = 30 * time.Second
	}

	return &Service{
		repo:          repo,
		summaryCache:  summaryCache,
		archiver:      archiver,
		pointsPerEuro: pointsPerEuro,
		cacheTTL:      cacheTTL,
		backupOnClose: backupOnClose,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

func (s *Service) actorID(ctx context.Context) string {
	actor, ok := ActorFromContext(ctx)
	if !ok {
		return "system"
	}
	return actor.Username
}

// ---- members ----

func (s *Service) CreateMember(ctx context.Context, req domain.MemberCreateRequest) (domain.Member, error) {
	req.FirstName = strings.TrimSpace(req.FirstName)
	req.LastName = strings.TrimSpace(req.LastName)
	if req.FirstName == "" || req.LastName == "" {
		return domain.Member{}, fmt.Errorf("%w: first and last name are required", store.ErrValidation)
	}

	member := domain.Member{
		ID:           xid.New("mbr"),
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		DNI:          strings.TrimSpace(req.DNI),
		Email:        strings.TrimSpace(req.Email),
		Phone:        strings.TrimSpace(req.Phone),
		ReferredByID: req.ReferredByID,
	}
	saved, err := s.repo.CreateMember(ctx, member)
	if err != nil {
		return domain.Member{}, err
	}

	s.logAudit(ctx, "member_create", "member", saved.ID, saved.MemberNumber)
	return *saved, nil
}

func (s *Service) GetMember(ctx context.Context, id string) (domain.Member, error) {
	member, err := s.repo.GetMember(ctx, id)
	if err != nil {
		return domain.Member{}, err
	}
	return *member, nil
}

func (s *Service) ListMembers(ctx context.Context, includeInactive bool) ([]domain.Member, error) {
	return s.repo.ListMembers(ctx, includeInactive)
}

func (s *Service) UpdateMember(ctx context.Context, id string, req domain.MemberUpdateRequest) (domain.Member, error) {
	existing, err := s.repo.GetMember(ctx, id)
	if err != nil {
		return domain.Member{}, err
	}

	updated := *existing
	if req.FirstName != nil {
		name := strings.TrimSpace(*req.FirstName)
		if name == "" {
			return domain.Member{}, fmt.Errorf("%w: first name cannot be empty", store.ErrValidation)
		}
		updated.FirstName = name
	}
	if req.LastName != nil {
		name := strings.TrimSpace(*req.LastName)
		if name == "" {
			return domain.Member{}, fmt.Errorf("%w: last name cannot be empty", store.ErrValidation)
		}
		updated.LastName = name
	}
	if req.Email != nil {
		updated.Email = strings.TrimSpace(*req.Email)
	}
	if req.Phone != nil {
		updated.Phone = strings.TrimSpace(*req.Phone)
	}
	if req.Active != nil {
		updated.Active = *req.Active
		if updated.Active {
			updated.Status = domain.MemberStatusActive
		} else {
			updated.Status = domain.MemberStatusInactive
		}
	}

	saved, err := s.repo.UpdateMember(ctx, updated)
	if err != nil {
		return domain.Member{}, err
	}
	s.logAudit(ctx, "member_update", "member", saved.ID, saved.MemberNumber)
	return *saved, nil
}

// DeactivateMember soft-deletes: referral links and ledger history must
// survive, so members are never hard-deleted.
func (s *Service) DeactivateMember(ctx context.Context, id string) (domain.Member, error) {
	member, err := s.repo.DeactivateMember(ctx, id)
	if err != nil {
		return domain.Member{}, err
	}
	s.logAudit(ctx, "member_deactivate", "member", member.ID, member.MemberNumber)
	return *member, nil
}

// ---- products ----

func validUnit(unit string) bool {
	switch unit {
	case domain.UnitPiece, domain.UnitGram, domain.UnitMl, domain.UnitKg:
		return true
	}
	return false
}

func (s *Service) CreateProduct(ctx context.Context, req domain.ProductCreateRequest) (domain.Product, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Category = strings.TrimSpace(req.Category)
	if req.Name == "" || req.Category == "" {
		return domain.Product{}, fmt.Errorf("%w: name and category are required", store.ErrValidation)
	}
	if !req.PointsPrice.IsPositive() {
		return domain.Product{}, fmt.Errorf("%w: points price must be positive", store.ErrValidation)
	}
	if req.Unit == "" {
		req.Unit = domain.UnitPiece
	}
	if !validUnit(req.Unit) {
		return domain.Product{}, fmt.Errorf("%w: unknown unit %q", store.ErrValidation, req.Unit)
	}
	if req.MinStock.IsNegative() {
		return domain.Product{}, fmt.Errorf("%w: min stock cannot be negative", store.ErrValidation)
	}

	product := domain.Product{
		ID:          xid.New("prd"),
		Name:        req.Name,
		Category:    req.Category,
		PointsPrice: req.PointsPrice,
		Unit:        req.Unit,
		MinStock:    req.MinStock,
	}
	saved, err := s.repo.CreateProduct(ctx, product)
	if err != nil {
		return domain.Product{}, err
	}

	s.logAudit(ctx, "product_create", "product", saved.ID, fmt.Sprintf("name=%s,price=%s", saved.Name, saved.PointsPrice))
	return *saved, nil
}

func (s *Service) GetProduct(ctx context.Context, id string) (domain.Product, error) {
	product, err := s.repo.GetProduct(ctx, id)
	if err != nil {
		return domain.Product{}, err
	}
	return *product, nil
}

func (s *Service) ListProducts(ctx context.Context, includeInactive bool) ([]domain.Product, error) {
	return s.repo.ListProducts(ctx, includeInactive)
}

func (s *Service) ListLowStockProducts(ctx context.Context) ([]domain.Product, error) {
	return s.repo.ListLowStockProducts(ctx)
}

func (s *Service) UpdateProduct(ctx context.Context, id string, req domain.ProductUpdateRequest) (domain.Product, error) {
	existing, err := s.repo.GetProduct(ctx, id)
	if err != nil {
		return domain.Product{}, err
	}

	updated := *existing
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return domain.Product{}, fmt.Errorf("%w: product name cannot be empty", store.ErrValidation)
		}
		updated.Name = name
	}
	if req.Category != nil {
		category := strings.TrimSpace(*req.Category)
		if category == "" {
			return domain.Product{}, fmt.Errorf("%w: category cannot be empty", store.ErrValidation)
		}
		updated.Category = category
	}
	if req.PointsPrice != nil {
		if !req.PointsPrice.IsPositive() {
			return domain.Product{}, fmt.Errorf("%w: points price must be positive", store.ErrValidation)
		}
		updated.PointsPrice = *req.PointsPrice
	}
	if req.Unit != nil {
		if !validUnit(*req.Unit) {
			return domain.Product{}, fmt.Errorf("%w: unknown unit %q", store.ErrValidation, *req.Unit)
		}
		updated.Unit = *req.Unit
	}
	if req.MinStock != nil {
		if req.MinStock.IsNegative() {
			return domain.Product{}, fmt.Errorf("%w: min stock cannot be negative", store.ErrValidation)
		}
		updated.MinStock = *req.MinStock
	}
	if req.Active != nil {
		updated.Active = *req.Active
	}

	saved, err := s.repo.UpdateProduct(ctx, updated)
	if err != nil {
		return domain.Product{}, err
	}
	s.logAudit(ctx, "product_update", "product", saved.ID, saved.Name)
	return *saved, nil
}

func (s *Service) DeactivateProduct(ctx context.Context, id string) (domain.Product, error) {
	product, err := s.repo.DeactivateProduct(ctx, id)
	if err != nil {
		return domain.Product{}, err
	}
	s.logAudit(ctx, "product_deactivate", "product", product.ID, product.Name)
	return *product, nil
}

// ---- points ledger ----

func (s *Service) LoadPoints(ctx context.Context, req domain.PointsLoadRequest) (domain.PointsTransaction, error) {
	if req.MemberID == "" {
		return domain.PointsTransaction{}, fmt.Errorf("%w: member id is required", store.ErrValidation)
	}
	if !req.Amount.IsPositive() {
		return domain.PointsTransaction{}, fmt.Errorf("%w: load amount must be positive", store.ErrValidation)
	}

	entry, err := s.repo.LoadPoints(ctx, req.MemberID, req.Amount, s.actorID(ctx), req.Notes, s.pointsPerEuro)
	if err != nil {
		return domain.PointsTransaction{}, err
	}

	s.invalidateActiveSummary(ctx)
	s.logAudit(ctx, "points_load", "member", req.MemberID, fmt.Sprintf("amount=%s", req.Amount))
	return *entry, nil
}

func (s *Service) AdjustPoints(ctx context.Context, req domain.PointsAdjustRequest) (domain.PointsTransaction, error) {
	if req.MemberID == "" {
		return domain.PointsTransaction{}, fmt.Errorf("%w: member id is required", store.ErrValidation)
	}
	if req.Amount.IsZero() {
		return domain.PointsTransaction{}, fmt.Errorf("%w: adjustment amount cannot be zero", store.ErrValidation)
	}
	if strings.TrimSpace(req.Notes) == "" {
		return domain.PointsTransaction{}, fmt.Errorf("%w: adjustment notes are required", store.ErrValidation)
	}

	entry, err := s.repo.AdjustPoints(ctx, req.MemberID, req.Amount, s.actorID(ctx), req.Notes)
	if err != nil {
		return domain.PointsTransaction{}, err
	}

	s.logAudit(ctx, "points_adjust", "member", req.MemberID, fmt.Sprintf("amount=%s", req.Amount))
	return *entry, nil
}

func (s *Service) ListPointsTransactions(ctx context.Context, memberID string, limit int, offset int) ([]domain.PointsTransaction, error) {
	return s.repo.ListPointsTransactions(ctx, memberID, limit, offset)
}

// ---- stock ledger ----

func (s *Service) AddStockEntry(ctx context.Context, req domain.StockEntryRequest) (domain.StockMovement, error) {
	if req.ProductID == "" {
		return domain.StockMovement{}, fmt.Errorf("%w: product id is required", store.ErrValidation)
	}
	if !req.Quantity.IsPositive() {
		return domain.StockMovement{}, fmt.Errorf("%w: entry quantity must be positive", store.ErrValidation)
	}

	entry, err := s.repo.AddStockEntry(ctx, req.ProductID, req.Quantity, s.actorID(ctx), req.Notes)
	if err != nil {
		return domain.StockMovement{}, err
	}

	s.logAudit(ctx, "stock_entry", "product", req.ProductID, fmt.Sprintf("quantity=%s", req.Quantity))
	return *entry, nil
}

func (s *Service) AdjustStock(ctx context.Context, req domain.StockAdjustRequest) (domain.StockMovement, error) {
	if req.ProductID == "" {
		return domain.StockMovement{}, fmt.Errorf("%w: product id is required", store.ErrValidation)
	}
	if req.Quantity.IsZero() {
		return domain.StockMovement{}, fmt.Errorf("%w: adjustment quantity cannot be zero", store.ErrValidation)
	}
	if strings.TrimSpace(req.Reason) == "" {
		return domain.StockMovement{}, fmt.Errorf("%w: adjustment reason is required", store.ErrValidation)
	}

	entry, err := s.repo.AdjustStock(ctx, req.ProductID, req.Quantity, s.actorID(ctx), req.Reason, req.Notes)
	if err != nil {
		return domain.StockMovement{}, err
	}

	s.logAudit(ctx, "stock_adjust", "product", req.ProductID, fmt.Sprintf("quantity=%s,reason=%s", req.Quantity, req.Reason))
	return *entry, nil
}

func (s *Service) ListStockMovements(ctx context.Context, productID string, limit int, offset int) ([]domain.StockMovement, error) {
	return s.repo.ListStockMovements(ctx, productID, limit, offset)
}

// ---- sales ----

func (s *Service) CreateSale(ctx context.Context, req domain.SaleCreateRequest) (domain.Sale, error) {
	if req.MemberID == "" {
		return domain.Sale{}, fmt.Errorf("%w: member id is required", store.ErrValidation)
	}
	if len(req.Items) == 0 {
		return domain.Sale{}, fmt.Errorf("%w: a sale needs at least one item", store.ErrValidation)
	}
	for _, item := range req.Items {
		if item.ProductID == "" {
			return domain.Sale{}, fmt.Errorf("%w: item product id is required", store.ErrValidation)
		}
		if !item.Quantity.IsPositive() {
			return domain.Sale{}, fmt.Errorf("%w: item quantity must be positive", store.ErrValidation)
		}
	}

	// A sale created with no explicit register attaches to the open one,
	// so drawer totals reflect walk-up sales by default.
	registerID := req.CashRegisterID
	if registerID == nil {
		if active, err := s.repo.GetActiveCashRegister(ctx); err == nil {
			registerID = &active.ID
		}
	}

	sale, err := s.repo.CreateSale(ctx, req.MemberID, s.actorID(ctx), req.Items, registerID, req.Notes, s.now())
	if err != nil {
		return domain.Sale{}, err
	}

	s.invalidateActiveSummary(ctx)
	s.logAudit(ctx, "sale_create", "sale", sale.ID, fmt.Sprintf("%s total=%s", sale.SaleNumber, sale.TotalPoints))
	return *sale, nil
}

func (s *Service) RefundSale(ctx context.Context, saleID string) (domain.Sale, error) {
	if saleID == "" {
		return domain.Sale{}, fmt.Errorf("%w: sale id is required", store.ErrValidation)
	}

	sale, err := s.repo.RefundSale(ctx, saleID, s.actorID(ctx), s.now())
	if err != nil {
		return domain.Sale{}, err
	}

	s.invalidateActiveSummary(ctx)
	s.logAudit(ctx, "sale_refund", "sale", sale.ID, sale.SaleNumber)
	return *sale, nil
}

func (s *Service) GetSale(ctx context.Context, id string) (domain.Sale, error) {
	sale, err := s.repo.GetSale(ctx, id)
	if err != nil {
		return domain.Sale{}, err
	}
	return *sale, nil
}

func (s *Service) ListSales(ctx context.Context, limit int, offset int) ([]domain.Sale, error) {
	return s.repo.ListSales(ctx, limit, offset)
}

// ---- cash register ----

func (s *Service) OpenCashRegister(ctx context.Context, req domain.RegisterOpenRequest) (domain.CashRegister, error) {
	if req.InitialCash.IsNegative() {
		return domain.CashRegister{}, fmt.Errorf("%w: initial cash cannot be negative", store.ErrValidation)
	}

	register, err := s.repo.OpenCashRegister(ctx, s.actorID(ctx), req.InitialCash, req.Notes, s.now())
	if err != nil {
		return domain.CashRegister{}, err
	}

	s.logAudit(ctx, "register_open", "cash_register", register.ID, fmt.Sprintf("initial_cash=%s", req.InitialCash))
	return *register, nil
}

func (s *Service) CloseCashRegister(ctx context.Context, req domain.RegisterCloseRequest) (domain.CashRegister, error) {
	if req.RegisterID == "" {
		return domain.CashRegister{}, fmt.Errorf("%w: register id is required", store.ErrValidation)
	}
	if req.ActualCash.IsNegative() {
		return domain.CashRegister{}, fmt.Errorf("%w: counted cash cannot be negative", store.ErrValidation)
	}

	register, err := s.repo.CloseCashRegister(ctx, req.RegisterID, req.ActualCash, req.Notes, s.now())
	if err != nil {
		return domain.CashRegister{}, err
	}

	if err := s.summaryCache.Invalidate(ctx, summaryCacheKey(register.ID)); err != nil {
		log.Printf("[service] WARN: summary cache invalidation failed for %s: %v", register.ID, err)
	}
	s.logAudit(ctx, "register_close", "cash_register", register.ID, fmt.Sprintf("actual_cash=%s,difference=%s", req.ActualCash, register.Difference))

	// Best-effort backup after close: never blocks the close, failure is
	// logged only.
	if s.backupOnClose {
		go func() {
			if err := s.archiver.Run(context.Background()); err != nil {
				log.Printf("[service] WARN: backup after register close failed: %v", err)
			}
		}()
	}

	return *register, nil
}

func (s *Service) GetActiveCashRegister(ctx context.Context) (domain.CashRegister, error) {
	register, err := s.repo.GetActiveCashRegister(ctx)
	if err != nil {
		return domain.CashRegister{}, err
	}
	return *register, nil
}

func (s *Service) GetCashRegister(ctx context.Context, id string) (domain.CashRegister, error) {
	register, err := s.repo.GetCashRegister(ctx, id)
	if err != nil {
		return domain.CashRegister{}, err
	}
	return *register, nil
}

func (s *Service) RecordExpense(ctx context.Context, registerID string, req domain.ExpenseCreateRequest) (domain.Expense, error) {
	if registerID == "" {
		active, err := s.repo.GetActiveCashRegister(ctx)
		if err != nil {
			return domain.Expense{}, err
		}
		registerID = active.ID
	}
	if !req.Amount.IsPositive() {
		return domain.Expense{}, fmt.Errorf("%w: expense amount must be positive", store.ErrValidation)
	}
	if strings.TrimSpace(req.Description) == "" {
		return domain.Expense{}, fmt.Errorf("%w: expense description is required", store.ErrValidation)
	}

	expense, err := s.repo.RecordExpense(ctx, registerID, req.Amount, req.Description, s.actorID(ctx), s.now())
	if err != nil {
		return domain.Expense{}, err
	}

	s.invalidateActiveSummary(ctx)
	s.logAudit(ctx, "expense_record", "cash_register", registerID, fmt.Sprintf("amount=%s", req.Amount))
	return *expense, nil
}

func (s *Service) ListExpenses(ctx context.Context, registerID string) ([]domain.Expense, error) {
	return s.repo.ListExpenses(ctx, registerID)
}

// GetRegisterSummary serves the drawer report the UI polls while a register
// is open; reads go through the summary cache.
func (s *Service) GetRegisterSummary(ctx context.Context, registerID string) (domain.RegisterSummary, error) {
	if registerID == "" {
		active, err := s.repo.GetActiveCashRegister(ctx)
		if err != nil {
			return domain.RegisterSummary{}, err
		}
		registerID = active.ID
	}

	key := summaryCacheKey(registerID)
	if cached, ok, err := s.summaryCache.Get(ctx, key); err == nil && ok {
		return *cached, nil
	} else if err != nil {
		log.Printf("[service] WARN: summary cache read failed for %s: %v", registerID, err)
	}

	summary, err := s.repo.GetRegisterSummary(ctx, registerID)
	if err != nil {
		return domain.RegisterSummary{}, err
	}

	if err := s.summaryCache.Set(ctx, key, summary, s.cacheTTL); err != nil {
		log.Printf("[service] WARN: summary cache write failed for %s: %v", registerID, err)
	}
	return *summary, nil
}

func summaryCacheKey(registerID string) string {
	return "register-summary:" + registerID
}

func (s *Service) invalidateActiveSummary(ctx context.Context) {
	active, err := s.repo.GetActiveCashRegister(ctx)
	if err != nil {
		return
	}
	if err := s.summaryCache.Invalidate(ctx, summaryCacheKey(active.ID)); err != nil {
		log.Printf("[service] WARN: summary cache invalidation failed for %s: %v", active.ID, err)
	}
}

// ---- audit ----

func (s *Service) ListAuditLogs(ctx context.Context, from time.Time, to time.Time, limit int) ([]domain.AuditLog, error) {
	if to.IsZero() {
		to = s.now()
	}
	if from.IsZero() {
		from = to.AddDate(0, 0, -7)
	}
	return s.repo.ListAuditLogs(ctx, from, to, limit)
}

func (s *Service) logAudit(ctx context.Context, action string, entityType string, entityID string, detail string) {
	actor, ok := ActorFromContext(ctx)
	if !ok {
		actor = domain.Actor{Username: "system", Role: "system"}
	}

	if err := s.repo.CreateAuditLog(ctx, domain.AuditLog{
		ID:            xid.New("aud"),
		ActorUsername: actor.Username,
		ActorRole:     actor.Role,
		Action:        action,
		EntityType:    entityType,
		EntityID:      entityID,
		Detail:        detail,
		CreatedAt:     s.now(),
	}); err != nil {
		log.Printf("[audit] WARN: failed to write audit log action=%s entity=%s/%s: %v", action, entityType, entityID, err)
	}
}
