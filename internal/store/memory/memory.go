package memory

import (
	"context"
	"fmt"
	"log"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"clubpuntos/backend/internal/domain"
	"clubpuntos/backend/internal/store"
	"clubpuntos/backend/internal/xid"
)

// Store is the in-memory repository used by tests and keyless dev runs. The
// single mutex gives every operation the same all-or-nothing visibility the
// postgres store gets from serializable transactions: guards are evaluated
// and state is mutated without releasing the lock in between.
type Store struct {
	mu               sync.Mutex
	members          map[string]*domain.Member
	products         map[string]*domain.Product
	pointsTxByMember map[string][]domain.PointsTransaction
	movesByProduct   map[string][]domain.StockMovement
	salesByID        map[string]*domain.Sale
	saleNumbers      map[string]bool
	registersByID    map[string]*domain.CashRegister
	activeRegisterID string
	expensesByReg    map[string][]domain.Expense
	auditLogs        []domain.AuditLog
	usersByUsername  map[string]domain.UserAccount
	memberSeq        int
}

func New() *Store {
	return &Store{
		members:          make(map[string]*domain.Member),
		products:         make(map[string]*domain.Product),
		pointsTxByMember: make(map[string][]domain.PointsTransaction),
		movesByProduct:   make(map[string][]domain.StockMovement),
		salesByID:        make(map[string]*domain.Sale),
		saleNumbers:      make(map[string]bool),
		registersByID:    make(map[string]*domain.CashRegister),
		expensesByReg:    make(map[string][]domain.Expense),
		usersByUsername:  make(map[string]domain.UserAccount),
	}
}

// seedUsers builds the initial staff accounts for dev/demo mode. Credentials
// come from SEED_ADMIN_PASSWORD and SEED_CASHIER_PASSWORD; hardcoded dev
// defaults are used with a warning when unset. Production runs use PostgreSQL
// and never touch these.
func seedUsers() map[string]domain.UserAccount {
	adminPwd := envOr("SEED_ADMIN_PASSWORD", "admin123")
	cashierPwd := envOr("SEED_CASHIER_PASSWORD", "cashier123")
	if os.Getenv("SEED_ADMIN_PASSWORD") == "" || os.Getenv("SEED_CASHIER_PASSWORD") == "" {
		log.Println("[memory-store] WARNING: using default dev credentials. Set SEED_ADMIN_PASSWORD and SEED_CASHIER_PASSWORD to override.")
	}

	now := time.Now().UTC()
	users := map[string]domain.UserAccount{}
	for _, u := range []struct {
		username string
		password string
		role     string
	}{
		{"admin", adminPwd, "admin"},
		{"cashier", cashierPwd, "cashier"},
	} {
		hash, err := bcrypt.GenerateFromPassword([]byte(u.password), bcrypt.DefaultCost)
		if err != nil {
			log.Fatalf("[memory-store] failed to hash seed password for %s: %v", u.username, err)
		}
		users[u.username] = domain.UserAccount{
			Username:  u.username,
			Password:  string(hash),
			Role:      u.role,
			Active:    true,
			CreatedAt: now,
		}
	}
	return users
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// NewSeeded returns a store preloaded with demo members, products and staff
// accounts. Stock is loaded through the movement ledger so the replay
// invariant holds from the first row.
func NewSeeded() *Store {
	s := New()
	s.usersByUsername = seedUsers()

	now := time.Now().UTC()
	members := []domain.Member{
		{ID: "mbr-seed-ana", MemberNumber: "M-0001", FirstName: "Ana", LastName: "Torres", Status: domain.MemberStatusActive, Active: true, PointsBalance: decimal.Zero, CreatedAt: now, UpdatedAt: now},
		{ID: "mbr-seed-luis", MemberNumber: "M-0002", FirstName: "Luis", LastName: "Marin", Status: domain.MemberStatusActive, Active: true, PointsBalance: decimal.Zero, CreatedAt: now, UpdatedAt: now},
	}
	for i := range members {
		m := members[i]
		s.members[m.ID] = &m
	}
	s.memberSeq = len(members)

	products := []struct {
		id    string
		name  string
		cat   string
		price string
		unit  string
		min   string
		stock string
	}{
		{"prd-seed-cerveza", "Cerveza Artesanal 33cl", "bebidas", "3.5", domain.UnitPiece, "12", "48"},
		{"prd-seed-cola", "Refresco Cola 33cl", "bebidas", "2", domain.UnitPiece, "12", "60"},
		{"prd-seed-snack", "Snack Mix", "snacks", "1.5", domain.UnitGram, "500", "2000"},
		{"prd-seed-agua", "Agua Mineral 50cl", "bebidas", "1", domain.UnitPiece, "24", "72"},
	}
	for _, p := range products {
		price, _ := decimal.NewFromString(p.price)
		minStock, _ := decimal.NewFromString(p.min)
		s.products[p.id] = &domain.Product{
			ID:           p.id,
			Name:         p.name,
			Category:     p.cat,
			PointsPrice:  price,
			Unit:         p.unit,
			CurrentStock: decimal.Zero,
			MinStock:     minStock,
			Active:       true,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		stock, _ := decimal.NewFromString(p.stock)
		if _, err := s.AddStockEntry(context.Background(), p.id, stock, "seed", "stock inicial"); err != nil {
			log.Fatalf("[memory-store] failed to seed stock for %s: %v", p.id, err)
		}
	}

	return s
}

// Close and Reopen satisfy the archival quiesce contract; there is nothing to
// flush in memory.
func (s *Store) Close() error { return nil }

func (s *Store) Reopen(_ context.Context) error { return nil }

// ---- members ----

func (s *Store) CreateMember(_ context.Context, member domain.Member) (*domain.Member, error) {
	if strings.TrimSpace(member.FirstName) == "" || strings.TrimSpace(member.LastName) == "" {
		return nil, fmt.Errorf("%w: first and last name are required", store.ErrValidation)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if member.ID == "" {
		member.ID = xid.New("mbr")
	}
	if member.ReferredByID != nil {
		if *member.ReferredByID == member.ID {
			return nil, fmt.Errorf("%w: a member cannot refer themselves", store.ErrValidation)
		}
		if _, ok := s.members[*member.ReferredByID]; !ok {
			return nil, fmt.Errorf("%w: referring member %s", store.ErrNotFound, *member.ReferredByID)
		}
	}

	s.memberSeq++
	member.MemberNumber = fmt.Sprintf("M-%04d", s.memberSeq)
	member.PointsBalance = decimal.Zero
	member.Status = domain.MemberStatusActive
	member.Active = true
	now := time.Now().UTC()
	member.CreatedAt = now
	member.UpdatedAt = now

	stored := member
	s.members[member.ID] = &stored
	saved := member
	return &saved, nil
}

func (s *Store) GetMember(_ context.Context, id string) (*domain.Member, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	member, ok := s.members[id]
	if !ok {
		return nil, fmt.Errorf("%w: member %s", store.ErrNotFound, id)
	}
	out := *member
	return &out, nil
}

func (s *Store) ListMembers(_ context.Context, includeInactive bool) ([]domain.Member, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	members := make([]domain.Member, 0, len(s.members))
	for _, m := range s.members {
		if !includeInactive && !m.Active {
			continue
		}
		members = append(members, *m)
	}
	sort.Slice(members, func(i, j int) bool { return members[i].MemberNumber < members[j].MemberNumber })
	return members, nil
}

func (s *Store) UpdateMember(_ context.Context, member domain.Member) (*domain.Member, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.members[member.ID]
	if !ok {
		return nil, fmt.Errorf("%w: member %s", store.ErrNotFound, member.ID)
	}

	// Balance is owned by the points ledger; updates never touch it.
	member.PointsBalance = existing.PointsBalance
	member.MemberNumber = existing.MemberNumber
	member.CreatedAt = existing.CreatedAt
	member.UpdatedAt = time.Now().UTC()

	stored := member
	s.members[member.ID] = &stored
	saved := member
	return &saved, nil
}

func (s *Store) DeactivateMember(_ context.Context, id string) (*domain.Member, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	member, ok := s.members[id]
	if !ok {
		return nil, fmt.Errorf("%w: member %s", store.ErrNotFound, id)
	}
	member.Active = false
	member.Status = domain.MemberStatusInactive
	member.UpdatedAt = time.Now().UTC()
	out := *member
	return &out, nil
}

// ---- products ----

func (s *Store) CreateProduct(_ context.Context, product domain.Product) (*domain.Product, error) {
	if strings.TrimSpace(product.Name) == "" || !product.PointsPrice.IsPositive() {
		return nil, fmt.Errorf("%w: product needs a name and a positive price", store.ErrValidation)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if product.ID == "" {
		product.ID = xid.New("prd")
	}
	product.CurrentStock = decimal.Zero
	product.Active = true
	now := time.Now().UTC()
	product.CreatedAt = now
	product.UpdatedAt = now

	stored := product
	s.products[product.ID] = &stored
	saved := product
	return &saved, nil
}

func (s *Store) GetProduct(_ context.Context, id string) (*domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	product, ok := s.products[id]
	if !ok {
		return nil, fmt.Errorf("%w: product %s", store.ErrNotFound, id)
	}
	out := *product
	return &out, nil
}

func (s *Store) ListProducts(_ context.Context, includeInactive bool) ([]domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	products := make([]domain.Product, 0, len(s.products))
	for _, p := range s.products {
		if !includeInactive && !p.Active {
			continue
		}
		products = append(products, *p)
	}
	sort.Slice(products, func(i, j int) bool {
		if products[i].Category != products[j].Category {
			return products[i].Category < products[j].Category
		}
		return products[i].Name < products[j].Name
	})
	return products, nil
}

func (s *Store) UpdateProduct(_ context.Context, product domain.Product) (*domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.products[product.ID]
	if !ok {
		return nil, fmt.Errorf("%w: product %s", store.ErrNotFound, product.ID)
	}

	// Stock is owned by the stock ledger; updates never touch it.
	product.CurrentStock = existing.CurrentStock
	product.CreatedAt = existing.CreatedAt
	product.UpdatedAt = time.Now().UTC()

	stored := product
	s.products[product.ID] = &stored
	saved := product
	return &saved, nil
}

func (s *Store) DeactivateProduct(_ context.Context, id string) (*domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	product, ok := s.products[id]
	if !ok {
		return nil, fmt.Errorf("%w: product %s", store.ErrNotFound, id)
	}
	product.Active = false
	product.UpdatedAt = time.Now().UTC()
	out := *product
	return &out, nil
}

func (s *Store) ListLowStockProducts(_ context.Context) ([]domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	low := make([]domain.Product, 0, 8)
	for _, p := range s.products {
		if p.Active && p.CurrentStock.LessThanOrEqual(p.MinStock) {
			low = append(low, *p)
		}
	}
	sort.Slice(low, func(i, j int) bool { return low[i].Name < low[j].Name })
	return low, nil
}

// ---- ledger primitives ----

// applyPointsDelta is the points side of the ledger kernel: evaluate the
// guard against the current balance, then write the new balance and the
// immutable transaction row together. Callers hold s.mu.
func (s *Store) applyPointsDelta(memberID string, delta decimal.Decimal, guard func(before decimal.Decimal) error, txType string, saleID *string, actorID *string, notes string, at time.Time) (*domain.PointsTransaction, error) {
	member, ok := s.members[memberID]
	if !ok {
		return nil, fmt.Errorf("%w: member %s", store.ErrNotFound, memberID)
	}

	before := member.PointsBalance
	if guard != nil {
		if err := guard(before); err != nil {
			return nil, err
		}
	}
	after := before.Add(delta)

	tx := domain.PointsTransaction{
		ID:            xid.New("ptx"),
		MemberID:      memberID,
		Type:          txType,
		Amount:        delta,
		BalanceBefore: before,
		BalanceAfter:  after,
		SaleID:        saleID,
		LoadedByID:    actorID,
		Notes:         notes,
		CreatedAt:     at,
	}

	member.PointsBalance = after
	member.UpdatedAt = at
	s.pointsTxByMember[memberID] = append(s.pointsTxByMember[memberID], tx)
	return &tx, nil
}

// applyStockDelta is the stock side of the same kernel. Callers hold s.mu.
func (s *Store) applyStockDelta(productID string, delta decimal.Decimal, guard func(before decimal.Decimal) error, moveType string, actorID string, reason string, notes string, at time.Time) (*domain.StockMovement, error) {
	product, ok := s.products[productID]
	if !ok {
		return nil, fmt.Errorf("%w: product %s", store.ErrNotFound, productID)
	}

	before := product.CurrentStock
	if guard != nil {
		if err := guard(before); err != nil {
			return nil, err
		}
	}
	after := before.Add(delta)

	move := domain.StockMovement{
		ID:          xid.New("stm"),
		ProductID:   productID,
		Type:        moveType,
		Quantity:    delta,
		StockBefore: before,
		StockAfter:  after,
		UserID:      actorID,
		Reason:      reason,
		Notes:       notes,
		CreatedAt:   at,
	}

	product.CurrentStock = after
	product.UpdatedAt = at
	s.movesByProduct[productID] = append(s.movesByProduct[productID], move)
	return &move, nil
}

// ---- points ledger ----

func (s *Store) LoadPoints(_ context.Context, memberID string, amount decimal.Decimal, actorID string, notes string, pointsPerEuro decimal.Decimal) (*domain.PointsTransaction, error) {
	if !amount.IsPositive() {
		return nil, fmt.Errorf("%w: load amount must be positive", store.ErrValidation)
	}
	if !pointsPerEuro.IsPositive() {
		return nil, fmt.Errorf("%w: points-per-euro ratio must be positive", store.ErrValidation)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	tx, err := s.applyPointsDelta(memberID, amount, nil, domain.PointsTxLoad, nil, &actorID, notes, now)
	if err != nil {
		return nil, err
	}

	// Cash-equivalent of the load lands on the open register, in the same
	// critical section as the balance change.
	if s.activeRegisterID != "" {
		register := s.registersByID[s.activeRegisterID]
		register.ExpectedCash = register.ExpectedCash.Add(amount.Div(pointsPerEuro))
	}

	return tx, nil
}

func (s *Store) AdjustPoints(_ context.Context, memberID string, amount decimal.Decimal, actorID string, notes string) (*domain.PointsTransaction, error) {
	if amount.IsZero() {
		return nil, fmt.Errorf("%w: adjustment amount cannot be zero", store.ErrValidation)
	}
	if strings.TrimSpace(notes) == "" {
		return nil, fmt.Errorf("%w: adjustment notes are required", store.ErrValidation)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	guard := func(before decimal.Decimal) error {
		if before.Add(amount).IsNegative() {
			return fmt.Errorf("%w: member %s has %s points, adjustment %s would go negative",
				store.ErrInsufficientBalance, memberID, before, amount)
		}
		return nil
	}
	return s.applyPointsDelta(memberID, amount, guard, domain.PointsTxAdjustment, nil, &actorID, notes, time.Now().UTC())
}

func (s *Store) ListPointsTransactions(_ context.Context, memberID string, limit int, offset int) ([]domain.PointsTransaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.members[memberID]; !ok {
		return nil, fmt.Errorf("%w: member %s", store.ErrNotFound, memberID)
	}

	all := s.pointsTxByMember[memberID]
	return pageNewestFirst(all, limit, offset), nil
}

// ---- stock ledger ----

func (s *Store) AddStockEntry(_ context.Context, productID string, quantity decimal.Decimal, actorID string, notes string) (*domain.StockMovement, error) {
	if !quantity.IsPositive() {
		return nil, fmt.Errorf("%w: entry quantity must be positive", store.ErrValidation)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.applyStockDelta(productID, quantity, nil, domain.StockMoveEntry, actorID, "", notes, time.Now().UTC())
}

func (s *Store) AdjustStock(_ context.Context, productID string, quantity decimal.Decimal, actorID string, reason string, notes string) (*domain.StockMovement, error) {
	if quantity.IsZero() {
		return nil, fmt.Errorf("%w: adjustment quantity cannot be zero", store.ErrValidation)
	}
	if strings.TrimSpace(reason) == "" {
		return nil, fmt.Errorf("%w: adjustment reason is required", store.ErrValidation)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	product, ok := s.products[productID]
	if !ok {
		return nil, fmt.Errorf("%w: product %s", store.ErrNotFound, productID)
	}
	guard := func(before decimal.Decimal) error {
		if before.Add(quantity).IsNegative() {
			return fmt.Errorf("%w: %s has %s in stock, adjustment %s would go negative",
				store.ErrInsufficientStock, product.Name, before, quantity)
		}
		return nil
	}
	return s.applyStockDelta(productID, quantity, guard, domain.StockMoveAdjustment, actorID, reason, notes, time.Now().UTC())
}

func (s *Store) ListStockMovements(_ context.Context, productID string, limit int, offset int) ([]domain.StockMovement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.products[productID]; !ok {
		return nil, fmt.Errorf("%w: product %s", store.ErrNotFound, productID)
	}

	all := s.movesByProduct[productID]
	return pageNewestFirst(all, limit, offset), nil
}

// ---- sale orchestration ----

func (s *Store) CreateSale(_ context.Context, memberID string, soldByID string, lines []domain.SaleLine, cashRegisterID *string, notes string, at time.Time) (*domain.Sale, error) {
	if len(lines) == 0 {
		return nil, fmt.Errorf("%w: a sale needs at least one item", store.ErrValidation)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	member, ok := s.members[memberID]
	if !ok || !member.Active {
		return nil, fmt.Errorf("%w: member %s", store.ErrNotFound, memberID)
	}

	// Price and stock checks before any mutation: a guard failure here must
	// leave no trace.
	type pricedLine struct {
		product *domain.Product
		qty     decimal.Decimal
		total   decimal.Decimal
	}
	priced := make([]pricedLine, 0, len(lines))
	totalPoints := decimal.Zero
	requested := make(map[string]decimal.Decimal, len(lines))
	for _, line := range lines {
		if !line.Quantity.IsPositive() {
			return nil, fmt.Errorf("%w: quantity must be positive", store.ErrValidation)
		}
		product, ok := s.products[line.ProductID]
		if !ok || !product.Active {
			return nil, fmt.Errorf("%w: product %s", store.ErrNotFound, line.ProductID)
		}
		// A product may appear on more than one line; the stock check runs
		// against the quantity summed across all of its lines.
		need := requested[line.ProductID].Add(line.Quantity)
		if product.CurrentStock.LessThan(need) {
			return nil, fmt.Errorf("%w: %s has %s available, requested %s",
				store.ErrInsufficientStock, product.Name, product.CurrentStock, need)
		}
		requested[line.ProductID] = need
		total := product.PointsPrice.Mul(line.Quantity)
		priced = append(priced, pricedLine{product: product, qty: line.Quantity, total: total})
		totalPoints = totalPoints.Add(total)
	}

	if member.PointsBalance.LessThan(totalPoints) {
		return nil, fmt.Errorf("%w: member %s has %s points, sale needs %s",
			store.ErrInsufficientBalance, member.MemberNumber, member.PointsBalance, totalPoints)
	}

	var register *domain.CashRegister
	if cashRegisterID != nil {
		register, ok = s.registersByID[*cashRegisterID]
		if !ok {
			return nil, fmt.Errorf("%w: cash register %s", store.ErrNotFound, *cashRegisterID)
		}
	}

	saleID := xid.New("sale")
	saleNumber := s.nextSaleNumber(at)

	sale := &domain.Sale{
		ID:             saleID,
		SaleNumber:     saleNumber,
		MemberID:       memberID,
		SoldByID:       soldByID,
		CashRegisterID: cashRegisterID,
		TotalPoints:    totalPoints,
		TotalItems:     len(priced),
		Status:         domain.SaleStatusCompleted,
		Notes:          notes,
		CreatedAt:      at,
		Items:          make([]domain.SaleItem, 0, len(priced)),
	}
	for _, pl := range priced {
		sale.Items = append(sale.Items, domain.SaleItem{
			ID:          xid.New("sli"),
			SaleID:      saleID,
			ProductID:   pl.product.ID,
			ProductName: pl.product.Name,
			Quantity:    pl.qty,
			PointsPrice: pl.product.PointsPrice,
			TotalPoints: pl.total,
		})
	}

	for _, pl := range priced {
		if _, err := s.applyStockDelta(pl.product.ID, pl.qty.Neg(), nil, domain.StockMoveExit, soldByID, domain.ReasonSale, "", at); err != nil {
			return nil, err
		}
	}

	consumeNote := fmt.Sprintf("Venta %s", saleNumber)
	if _, err := s.applyPointsDelta(memberID, totalPoints.Neg(), nil, domain.PointsTxConsume, &saleID, nil, consumeNote, at); err != nil {
		return nil, err
	}

	if register != nil && register.Status == domain.RegisterStatusOpen {
		register.TotalSales = register.TotalSales.Add(totalPoints)
	}

	s.salesByID[saleID] = sale
	s.saleNumbers[saleNumber] = true
	out := *sale
	out.Items = append([]domain.SaleItem(nil), sale.Items...)
	return &out, nil
}

// nextSaleNumber counts the sales already created on at's calendar day.
// Callers hold s.mu, so two concurrent sales cannot draw the same number.
func (s *Store) nextSaleNumber(at time.Time) string {
	prefix := fmt.Sprintf("V-%s-", at.Format("20060102"))
	count := 0
	for number := range s.saleNumbers {
		if strings.HasPrefix(number, prefix) {
			count++
		}
	}
	return fmt.Sprintf("%s%04d", prefix, count+1)
}

func (s *Store) RefundSale(_ context.Context, saleID string, actorID string, at time.Time) (*domain.Sale, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sale, ok := s.salesByID[saleID]
	if !ok {
		return nil, fmt.Errorf("%w: sale %s", store.ErrNotFound, saleID)
	}
	if sale.Status != domain.SaleStatusCompleted {
		return nil, fmt.Errorf("%w: sale %s is %s, only COMPLETED sales can be refunded",
			store.ErrInvalidState, sale.SaleNumber, sale.Status)
	}

	for _, item := range sale.Items {
		if _, err := s.applyStockDelta(item.ProductID, item.Quantity, nil, domain.StockMoveReturn, actorID, domain.ReasonRefundReturn, "", at); err != nil {
			return nil, err
		}
	}

	refundNote := fmt.Sprintf("Reembolso venta %s", sale.SaleNumber)
	if _, err := s.applyPointsDelta(sale.MemberID, sale.TotalPoints, nil, domain.PointsTxRefund, &sale.ID, &actorID, refundNote, at); err != nil {
		return nil, err
	}

	sale.Status = domain.SaleStatusRefunded
	refundedAt := at
	sale.RefundedAt = &refundedAt

	// Symmetric undo on the originating register, open or closed.
	if sale.CashRegisterID != nil {
		if register, ok := s.registersByID[*sale.CashRegisterID]; ok {
			register.TotalSales = register.TotalSales.Sub(sale.TotalPoints)
		}
	}

	out := *sale
	out.Items = append([]domain.SaleItem(nil), sale.Items...)
	return &out, nil
}

func (s *Store) GetSale(_ context.Context, id string) (*domain.Sale, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sale, ok := s.salesByID[id]
	if !ok {
		return nil, fmt.Errorf("%w: sale %s", store.ErrNotFound, id)
	}
	out := *sale
	out.Items = append([]domain.SaleItem(nil), sale.Items...)
	return &out, nil
}

func (s *Store) ListSales(_ context.Context, limit int, offset int) ([]domain.Sale, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sales := make([]domain.Sale, 0, len(s.salesByID))
	for _, sale := range s.salesByID {
		out := *sale
		out.Items = append([]domain.SaleItem(nil), sale.Items...)
		sales = append(sales, out)
	}
	sort.Slice(sales, func(i, j int) bool { return sales[i].CreatedAt.After(sales[j].CreatedAt) })
	return pageSlice(sales, limit, offset), nil
}

// ---- cash register ----

func (s *Store) OpenCashRegister(_ context.Context, actorID string, initialCash decimal.Decimal, notes string, at time.Time) (*domain.CashRegister, error) {
	if initialCash.IsNegative() {
		return nil, fmt.Errorf("%w: initial cash cannot be negative", store.ErrValidation)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.activeRegisterID != "" {
		return nil, fmt.Errorf("%w: a cash register is already open", store.ErrConflict)
	}

	register := &domain.CashRegister{
		ID:            xid.New("reg"),
		Status:        domain.RegisterStatusOpen,
		OpenedByID:    actorID,
		InitialCash:   initialCash,
		ExpectedCash:  initialCash,
		TotalSales:    decimal.Zero,
		TotalExpenses: decimal.Zero,
		Notes:         notes,
		OpenDate:      at,
	}
	s.registersByID[register.ID] = register
	s.activeRegisterID = register.ID
	out := *register
	return &out, nil
}

func (s *Store) CloseCashRegister(_ context.Context, registerID string, actualCash decimal.Decimal, notes string, at time.Time) (*domain.CashRegister, error) {
	if actualCash.IsNegative() {
		return nil, fmt.Errorf("%w: counted cash cannot be negative", store.ErrValidation)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	register, ok := s.registersByID[registerID]
	if !ok {
		return nil, fmt.Errorf("%w: cash register %s", store.ErrNotFound, registerID)
	}
	if register.Status != domain.RegisterStatusOpen {
		return nil, fmt.Errorf("%w: cash register %s is already closed", store.ErrInvalidState, registerID)
	}

	difference := actualCash.Sub(register.ExpectedCash)
	register.Status = domain.RegisterStatusClosed
	register.ActualCash = &actualCash
	register.Difference = &difference
	if notes != "" {
		register.Notes = notes
	}
	closeDate := at
	register.CloseDate = &closeDate
	s.activeRegisterID = ""

	out := *register
	return &out, nil
}

func (s *Store) GetCashRegister(_ context.Context, id string) (*domain.CashRegister, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	register, ok := s.registersByID[id]
	if !ok {
		return nil, fmt.Errorf("%w: cash register %s", store.ErrNotFound, id)
	}
	out := *register
	return &out, nil
}

func (s *Store) GetActiveCashRegister(_ context.Context) (*domain.CashRegister, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.activeRegisterID == "" {
		return nil, fmt.Errorf("%w: no open cash register", store.ErrNotFound)
	}
	out := *s.registersByID[s.activeRegisterID]
	return &out, nil
}

func (s *Store) RecordExpense(_ context.Context, registerID string, amount decimal.Decimal, description string, actorID string, at time.Time) (*domain.Expense, error) {
	if !amount.IsPositive() {
		return nil, fmt.Errorf("%w: expense amount must be positive", store.ErrValidation)
	}
	if strings.TrimSpace(description) == "" {
		return nil, fmt.Errorf("%w: expense description is required", store.ErrValidation)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	register, ok := s.registersByID[registerID]
	if !ok {
		return nil, fmt.Errorf("%w: cash register %s", store.ErrNotFound, registerID)
	}
	if register.Status != domain.RegisterStatusOpen {
		return nil, fmt.Errorf("%w: cash register %s is closed", store.ErrInvalidState, registerID)
	}

	expense := domain.Expense{
		ID:             xid.New("exp"),
		CashRegisterID: registerID,
		Amount:         amount,
		Description:    description,
		CreatedByID:    actorID,
		CreatedAt:      at,
	}
	register.TotalExpenses = register.TotalExpenses.Add(amount)
	register.ExpectedCash = register.ExpectedCash.Sub(amount)
	s.expensesByReg[registerID] = append(s.expensesByReg[registerID], expense)

	out := expense
	return &out, nil
}

func (s *Store) ListExpenses(_ context.Context, registerID string) ([]domain.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.registersByID[registerID]; !ok {
		return nil, fmt.Errorf("%w: cash register %s", store.ErrNotFound, registerID)
	}
	return append([]domain.Expense(nil), s.expensesByReg[registerID]...), nil
}

func (s *Store) GetRegisterSummary(_ context.Context, registerID string) (*domain.RegisterSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	register, ok := s.registersByID[registerID]
	if !ok {
		return nil, fmt.Errorf("%w: cash register %s", store.ErrNotFound, registerID)
	}

	saleCount := int64(0)
	for _, sale := range s.salesByID {
		if sale.CashRegisterID != nil && *sale.CashRegisterID == registerID && sale.Status == domain.SaleStatusCompleted {
			saleCount++
		}
	}

	return &domain.RegisterSummary{
		RegisterID:    register.ID,
		Status:        register.Status,
		InitialCash:   register.InitialCash,
		ExpectedCash:  register.ExpectedCash,
		TotalSales:    register.TotalSales,
		TotalExpenses: register.TotalExpenses,
		SaleCount:     saleCount,
		ExpenseCount:  int64(len(s.expensesByReg[registerID])),
		OpenDate:      register.OpenDate,
	}, nil
}

// ---- audit ----

func (s *Store) CreateAuditLog(_ context.Context, entry domain.AuditLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entry.ID == "" {
		entry.ID = xid.New("aud")
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	s.auditLogs = append(s.auditLogs, entry)
	return nil
}

func (s *Store) ListAuditLogs(_ context.Context, from time.Time, to time.Time, limit int) ([]domain.AuditLog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if limit < 1 {
		limit = 100
	}
	logs := make([]domain.AuditLog, 0, limit)
	for i := len(s.auditLogs) - 1; i >= 0 && len(logs) < limit; i-- {
		entry := s.auditLogs[i]
		if entry.CreatedAt.Before(from) || entry.CreatedAt.After(to) {
			continue
		}
		logs = append(logs, entry)
	}
	return logs, nil
}

// ---- users ----

func (s *Store) CreateUser(_ context.Context, user domain.UserAccount) error {
	if strings.TrimSpace(user.Username) == "" || user.Password == "" {
		return fmt.Errorf("%w: username and password are required", store.ErrValidation)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.usersByUsername[user.Username]; exists {
		return fmt.Errorf("%w: username %s is taken", store.ErrConflict, user.Username)
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	user.Active = true
	s.usersByUsername[user.Username] = user
	return nil
}

func (s *Store) ListUsers(_ context.Context) ([]domain.UserAccount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	users := make([]domain.UserAccount, 0, len(s.usersByUsername))
	for _, u := range s.usersByUsername {
		users = append(users, u)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].Username < users[j].Username })
	return users, nil
}

func (s *Store) UpdateUserPassword(_ context.Context, username string, password string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.usersByUsername[username]
	if !ok {
		return fmt.Errorf("%w: user %s", store.ErrNotFound, username)
	}
	user.Password = password
	s.usersByUsername[username] = user
	return nil
}

// ---- helpers ----

func pageNewestFirst[T any](all []T, limit int, offset int) []T {
	if limit < 1 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	reversed := make([]T, 0, len(all))
	for i := len(all) - 1; i >= 0; i-- {
		reversed = append(reversed, all[i])
	}
	return pageSlice(reversed, limit, offset)
}

func pageSlice[T any](all []T, limit int, offset int) []T {
	if limit < 1 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	if offset >= len(all) {
		return []T{}
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return append([]T(nil), all[offset:end]...)
}
