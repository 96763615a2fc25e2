package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/shopspring/decimal"

	"clubpuntos/backend/internal/domain"
	"clubpuntos/backend/internal/fieldcrypt"
	"clubpuntos/backend/internal/store"
	"clubpuntos/backend/internal/xid"
)

// saleNumberAttempts bounds the whole-transaction retry on a sale-number
// collision. The sale_number column is UNIQUE, so two same-day sales racing
// through the counter cannot both commit; the loser restarts here.
const saleNumberAttempts = 3

type Store struct {
	db          *sql.DB
	databaseURL string
	cipher      fieldcrypt.Cipher
}

func New(ctx context.Context, databaseURL string, cipher fieldcrypt.Cipher) (*Store, error) {
	if cipher == nil {
		cipher = fieldcrypt.Noop{}
	}
	s := &Store{databaseURL: databaseURL, cipher: cipher}
	if err := s.Reopen(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// Reopen (re)dials the database. Together with Close it lets the archival
// service quiesce the store around a file copy.
func (s *Store) Reopen(ctx context.Context) error {
	db, err := sql.Open("pgx", s.databaseURL)
	if err != nil {
		return err
	}

	db.SetMaxIdleConns(8)
	db.SetMaxOpenConns(30)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 6*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return err
	}

	s.db = db
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// ---- members ----

const memberColumns = `id, member_number, first_name, last_name, dni, email, phone,
	points_balance, referred_by_id, status, active, created_at, updated_at`

func (s *Store) scanMember(row interface{ Scan(...any) error }) (*domain.Member, error) {
	var m domain.Member
	var dni, email, phone, referredBy sql.NullString
	err := row.Scan(&m.ID, &m.MemberNumber, &m.FirstName, &m.LastName, &dni, &email, &phone,
		&m.PointsBalance, &referredBy, &m.Status, &m.Active, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if m.DNI, err = s.cipher.Open(dni.String); err != nil {
		return nil, err
	}
	if m.Email, err = s.cipher.Open(email.String); err != nil {
		return nil, err
	}
	m.Phone = phone.String
	if referredBy.Valid {
		ref := referredBy.String
		m.ReferredByID = &ref
	}
	return &m, nil
}

func (s *Store) CreateMember(ctx context.Context, member domain.Member) (*domain.Member, error) {
	if strings.TrimSpace(member.FirstName) == "" || strings.TrimSpace(member.LastName) == "" {
		return nil, fmt.Errorf("%w: first and last name are required", store.ErrValidation)
	}
	if member.ID == "" {
		member.ID = xid.New("mbr")
	}
	if member.ReferredByID != nil && *member.ReferredByID == member.ID {
		return nil, fmt.Errorf("%w: a member cannot refer themselves", store.ErrValidation)
	}

	sealedDNI, err := s.cipher.Seal(member.DNI)
	if err != nil {
		return nil, err
	}
	sealedEmail, err := s.cipher.Seal(member.Email)
	if err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	if member.ReferredByID != nil {
		var exists bool
		err := tx.QueryRowContext(ctx, `SELECT true FROM members WHERE id = $1`, *member.ReferredByID).Scan(&exists)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: referring member %s", store.ErrNotFound, *member.ReferredByID)
		}
		if err != nil {
			return nil, err
		}
	}

	var seq int
	if err := tx.QueryRowContext(ctx, `SELECT count(*) FROM members`).Scan(&seq); err != nil {
		return nil, err
	}
	member.MemberNumber = fmt.Sprintf("M-%04d", seq+1)
	member.PointsBalance = decimal.Zero
	member.Status = domain.MemberStatusActive
	member.Active = true
	now := time.Now().UTC()
	member.CreatedAt = now
	member.UpdatedAt = now

	_, err = tx.ExecContext(ctx, `
		INSERT INTO members (id, member_number, first_name, last_name, dni, email, phone,
			points_balance, referred_by_id, status, active, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
	`, member.ID, member.MemberNumber, member.FirstName, member.LastName,
		nullIfEmpty(sealedDNI), nullIfEmpty(sealedEmail), nullIfEmpty(member.Phone),
		member.PointsBalance, nullIfEmptyPtr(member.ReferredByID), member.Status, member.Active,
		member.CreatedAt, member.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: member number %s", store.ErrConflict, member.MemberNumber)
		}
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	saved := member
	return &saved, nil
}

func (s *Store) GetMember(ctx context.Context, id string) (*domain.Member, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+memberColumns+` FROM members WHERE id = $1`, id)
	member, err := s.scanMember(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: member %s", store.ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return member, nil
}

func (s *Store) ListMembers(ctx context.Context, includeInactive bool) ([]domain.Member, error) {
	query := `SELECT ` + memberColumns + ` FROM members`
	if !includeInactive {
		query += ` WHERE active = true`
	}
	query += ` ORDER BY member_number`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	members := make([]domain.Member, 0, 64)
	for rows.Next() {
		member, err := s.scanMember(rows)
		if err != nil {
			return nil, err
		}
		members = append(members, *member)
	}
	return members, rows.Err()
}

func (s *Store) UpdateMember(ctx context.Context, member domain.Member) (*domain.Member, error) {
	sealedDNI, err := s.cipher.Seal(member.DNI)
	if err != nil {
		return nil, err
	}
	sealedEmail, err := s.cipher.Seal(member.Email)
	if err != nil {
		return nil, err
	}

	// points_balance is deliberately absent: only the ledger writes it.
	res, err := s.db.ExecContext(ctx, `
		UPDATE members
		SET first_name = $2, last_name = $3, dni = $4, email = $5, phone = $6,
			status = $7, active = $8, updated_at = now()
		WHERE id = $1
	`, member.ID, member.FirstName, member.LastName, nullIfEmpty(sealedDNI),
		nullIfEmpty(sealedEmail), nullIfEmpty(member.Phone), member.Status, member.Active)
	if err != nil {
		return nil, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, fmt.Errorf("%w: member %s", store.ErrNotFound, member.ID)
	}
	return s.GetMember(ctx, member.ID)
}

func (s *Store) DeactivateMember(ctx context.Context, id string) (*domain.Member, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE members SET active = false, status = $2, updated_at = now() WHERE id = $1
	`, id, domain.MemberStatusInactive)
	if err != nil {
		return nil, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, fmt.Errorf("%w: member %s", store.ErrNotFound, id)
	}
	return s.GetMember(ctx, id)
}

// ---- products ----

const productColumns = `id, name, category, points_price, unit, current_stock, min_stock,
	active, created_at, updated_at`

func scanProduct(row interface{ Scan(...any) error }) (*domain.Product, error) {
	var p domain.Product
	err := row.Scan(&p.ID, &p.Name, &p.Category, &p.PointsPrice, &p.Unit, &p.CurrentStock,
		&p.MinStock, &p.Active, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *Store) CreateProduct(ctx context.Context, product domain.Product) (*domain.Product, error) {
	if strings.TrimSpace(product.Name) == "" || !product.PointsPrice.IsPositive() {
		return nil, fmt.Errorf("%w: product needs a name and a positive price", store.ErrValidation)
	}
	if product.ID == "" {
		product.ID = xid.New("prd")
	}
	product.CurrentStock = decimal.Zero
	product.Active = true
	now := time.Now().UTC()
	product.CreatedAt = now
	product.UpdatedAt = now

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO products (id, name, category, points_price, unit, current_stock, min_stock,
			active, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
	`, product.ID, product.Name, product.Category, product.PointsPrice, product.Unit,
		product.CurrentStock, product.MinStock, product.Active, product.CreatedAt, product.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: product %s", store.ErrConflict, product.ID)
		}
		return nil, err
	}
	saved := product
	return &saved, nil
}

func (s *Store) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id)
	product, err := scanProduct(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: product %s", store.ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return product, nil
}

func (s *Store) ListProducts(ctx context.Context, includeInactive bool) ([]domain.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products`
	if !includeInactive {
		query += ` WHERE active = true`
	}
	query += ` ORDER BY category, name`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	products := make([]domain.Product, 0, 128)
	for rows.Next() {
		product, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, *product)
	}
	return products, rows.Err()
}

func (s *Store) UpdateProduct(ctx context.Context, product domain.Product) (*domain.Product, error) {
	// current_stock is deliberately absent: only the ledger writes it.
	res, err := s.db.ExecContext(ctx, `
		UPDATE products
		SET name = $2, category = $3, points_price = $4, unit = $5, min_stock = $6,
			active = $7, updated_at = now()
		WHERE id = $1
	`, product.ID, product.Name, product.Category, product.PointsPrice, product.Unit,
		product.MinStock, product.Active)
	if err != nil {
		return nil, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, fmt.Errorf("%w: product %s", store.ErrNotFound, product.ID)
	}
	return s.GetProduct(ctx, product.ID)
}

func (s *Store) DeactivateProduct(ctx context.Context, id string) (*domain.Product, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE products SET active = false, updated_at = now() WHERE id = $1
	`, id)
	if err != nil {
		return nil, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, fmt.Errorf("%w: product %s", store.ErrNotFound, id)
	}
	return s.GetProduct(ctx, id)
}

func (s *Store) ListLowStockProducts(ctx context.Context) ([]domain.Product, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+productColumns+`
		FROM products
		WHERE active = true AND current_stock <= min_stock
		ORDER BY name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	products := make([]domain.Product, 0, 16)
	for rows.Next() {
		product, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, *product)
	}
	return products, rows.Err()
}

// ---- ledger primitives ----

// applyPointsDelta locks the member row, evaluates the guard against the
// balance before the change, then writes the new balance and the immutable
// transaction row in the caller's transaction. A guard rejection aborts with
// no mutation and no log row.
func (s *Store) applyPointsDelta(ctx context.Context, tx *sql.Tx, memberID string, delta decimal.Decimal, guard func(before decimal.Decimal) error, txType string, saleID *string, actorID *string, notes string, at time.Time) (*domain.PointsTransaction, error) {
	var before decimal.Decimal
	err := tx.QueryRowContext(ctx, `
		SELECT points_balance FROM members WHERE id = $1 FOR UPDATE
	`, memberID).Scan(&before)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: member %s", store.ErrNotFound, memberID)
	}
	if err != nil {
		return nil, err
	}

	if guard != nil {
		if err := guard(before); err != nil {
			return nil, err
		}
	}
	after := before.Add(delta)

	if _, err := tx.ExecContext(ctx, `
		UPDATE members SET points_balance = $2, updated_at = $3 WHERE id = $1
	`, memberID, after, at); err != nil {
		return nil, err
	}

	entry := domain.PointsTransaction{
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
	_, err = tx.ExecContext(ctx, `
		INSERT INTO points_transactions (id, member_id, type, amount, balance_before,
			balance_after, sale_id, loaded_by_id, notes, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
	`, entry.ID, entry.MemberID, entry.Type, entry.Amount, entry.BalanceBefore,
		entry.BalanceAfter, nullIfEmptyPtr(entry.SaleID), nullIfEmptyPtr(entry.LoadedByID),
		nullIfEmpty(entry.Notes), entry.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// applyStockDelta is the stock mirror of applyPointsDelta. It also returns
// the product name so guard messages can name the product for the operator.
func (s *Store) applyStockDelta(ctx context.Context, tx *sql.Tx, productID string, delta decimal.Decimal, guard func(name string, before decimal.Decimal) error, moveType string, actorID string, reason string, notes string, at time.Time) (*domain.StockMovement, error) {
	var name string
	var before decimal.Decimal
	err := tx.QueryRowContext(ctx, `
		SELECT name, current_stock FROM products WHERE id = $1 FOR UPDATE
	`, productID).Scan(&name, &before)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: product %s", store.ErrNotFound, productID)
	}
	if err != nil {
		return nil, err
	}

	if guard != nil {
		if err := guard(name, before); err != nil {
			return nil, err
		}
	}
	after := before.Add(delta)

	if _, err := tx.ExecContext(ctx, `
		UPDATE products SET current_stock = $2, updated_at = $3 WHERE id = $1
	`, productID, after, at); err != nil {
		return nil, err
	}

	entry := domain.StockMovement{
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
	_, err = tx.ExecContext(ctx, `
		INSERT INTO stock_movements (id, product_id, type, quantity, stock_before,
			stock_after, user_id, reason, notes, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
	`, entry.ID, entry.ProductID, entry.Type, entry.Quantity, entry.StockBefore,
		entry.StockAfter, entry.UserID, nullIfEmpty(entry.Reason), nullIfEmpty(entry.Notes),
		entry.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// ---- points ledger ----

func (s *Store) LoadPoints(ctx context.Context, memberID string, amount decimal.Decimal, actorID string, notes string, pointsPerEuro decimal.Decimal) (*domain.PointsTransaction, error) {
	if !amount.IsPositive() {
		return nil, fmt.Errorf("%w: load amount must be positive", store.ErrValidation)
	}
	if !pointsPerEuro.IsPositive() {
		return nil, fmt.Errorf("%w: points-per-euro ratio must be positive", store.ErrValidation)
	}

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now().UTC()
	entry, err := s.applyPointsDelta(ctx, tx, memberID, amount, nil, domain.PointsTxLoad, nil, &actorID, notes, now)
	if err != nil {
		return nil, err
	}

	// The cash handed over for the load lands on the open register inside
	// the same transaction, or not at all.
	var registerID string
	err = tx.QueryRowContext(ctx, `
		SELECT id FROM cash_registers WHERE status = $1 FOR UPDATE
	`, domain.RegisterStatusOpen).Scan(&registerID)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if registerID != "" {
		cashEquivalent := amount.Div(pointsPerEuro)
		if _, err := tx.ExecContext(ctx, `
			UPDATE cash_registers SET expected_cash = expected_cash + $2 WHERE id = $1
		`, registerID, cashEquivalent); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return entry, nil
}

func (s *Store) AdjustPoints(ctx context.Context, memberID string, amount decimal.Decimal, actorID string, notes string) (*domain.PointsTransaction, error) {
	if amount.IsZero() {
		return nil, fmt.Errorf("%w: adjustment amount cannot be zero", store.ErrValidation)
	}
	if strings.TrimSpace(notes) == "" {
		return nil, fmt.Errorf("%w: adjustment notes are required", store.ErrValidation)
	}

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	guard := func(before decimal.Decimal) error {
		if before.Add(amount).IsNegative() {
			return fmt.Errorf("%w: member %s has %s points, adjustment %s would go negative",
				store.ErrInsufficientBalance, memberID, before, amount)
		}
		return nil
	}
	entry, err := s.applyPointsDelta(ctx, tx, memberID, amount, guard, domain.PointsTxAdjustment, nil, &actorID, notes, time.Now().UTC())
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return entry, nil
}

func (s *Store) ListPointsTransactions(ctx context.Context, memberID string, limit int, offset int) ([]domain.PointsTransaction, error) {
	if limit < 1 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	if _, err := s.GetMember(ctx, memberID); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, member_id, type, amount, balance_before, balance_after,
			sale_id, loaded_by_id, notes, created_at
		FROM points_transactions
		WHERE member_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3
	`, memberID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := make([]domain.PointsTransaction, 0, limit)
	for rows.Next() {
		var entry domain.PointsTransaction
		var saleID, loadedBy, notes sql.NullString
		if err := rows.Scan(&entry.ID, &entry.MemberID, &entry.Type, &entry.Amount,
			&entry.BalanceBefore, &entry.BalanceAfter, &saleID, &loadedBy, &notes, &entry.CreatedAt); err != nil {
			return nil, err
		}
		if saleID.Valid {
			v := saleID.String
			entry.SaleID = &v
		}
		if loadedBy.Valid {
			v := loadedBy.String
			entry.LoadedByID = &v
		}
		entry.Notes = notes.String
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// ---- stock ledger ----

func (s *Store) AddStockEntry(ctx context.Context, productID string, quantity decimal.Decimal, actorID string, notes string) (*domain.StockMovement, error) {
	if !quantity.IsPositive() {
		return nil, fmt.Errorf("%w: entry quantity must be positive", store.ErrValidation)
	}

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	entry, err := s.applyStockDelta(ctx, tx, productID, quantity, nil, domain.StockMoveEntry, actorID, "", notes, time.Now().UTC())
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return entry, nil
}

func (s *Store) AdjustStock(ctx context.Context, productID string, quantity decimal.Decimal, actorID string, reason string, notes string) (*domain.StockMovement, error) {
	if quantity.IsZero() {
		return nil, fmt.Errorf("%w: adjustment quantity cannot be zero", store.ErrValidation)
	}
	if strings.TrimSpace(reason) == "" {
		return nil, fmt.Errorf("%w: adjustment reason is required", store.ErrValidation)
	}

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	guard := func(name string, before decimal.Decimal) error {
		if before.Add(quantity).IsNegative() {
			return fmt.Errorf("%w: %s has %s in stock, adjustment %s would go negative",
				store.ErrInsufficientStock, name, before, quantity)
		}
		return nil
	}
	entry, err := s.applyStockDelta(ctx, tx, productID, quantity, guard, domain.StockMoveAdjustment, actorID, reason, notes, time.Now().UTC())
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return entry, nil
}

func (s *Store) ListStockMovements(ctx context.Context, productID string, limit int, offset int) ([]domain.StockMovement, error) {
	if limit < 1 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	if _, err := s.GetProduct(ctx, productID); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, product_id, type, quantity, stock_before, stock_after,
			user_id, reason, notes, created_at
		FROM stock_movements
		WHERE product_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3
	`, productID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := make([]domain.StockMovement, 0, limit)
	for rows.Next() {
		var entry domain.StockMovement
		var reason, notes sql.NullString
		if err := rows.Scan(&entry.ID, &entry.ProductID, &entry.Type, &entry.Quantity,
			&entry.StockBefore, &entry.StockAfter, &entry.UserID, &reason, &notes, &entry.CreatedAt); err != nil {
			return nil, err
		}
		entry.Reason = reason.String
		entry.Notes = notes.String
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// ---- sale orchestration ----

func (s *Store) CreateSale(ctx context.Context, memberID string, soldByID string, lines []domain.SaleLine, cashRegisterID *string, notes string, at time.Time) (*domain.Sale, error) {
	if len(lines) == 0 {
		return nil, fmt.Errorf("%w: a sale needs at least one item", store.ErrValidation)
	}
	for _, line := range lines {
		if !line.Quantity.IsPositive() {
			return nil, fmt.Errorf("%w: quantity must be positive", store.ErrValidation)
		}
	}

	// Concurrent same-day sales collide on the sale_number UNIQUE constraint
	// or abort with a serialization failure; both are retried whole.
	var lastErr error
	for attempt := 0; attempt < saleNumberAttempts; attempt++ {
		sale, err := s.createSaleTx(ctx, memberID, soldByID, lines, cashRegisterID, notes, at)
		if err == nil {
			return sale, nil
		}
		if !isUniqueViolation(err) && !isSerializationFailure(err) {
			return nil, err
		}
		lastErr = err
	}
	return nil, fmt.Errorf("%w: concurrent sale conflict persisted after %d attempts: %v",
		store.ErrConflict, saleNumberAttempts, lastErr)
}

func (s *Store) createSaleTx(ctx context.Context, memberID string, soldByID string, lines []domain.SaleLine, cashRegisterID *string, notes string, at time.Time) (*domain.Sale, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	var memberNumber string
	var balance decimal.Decimal
	var memberActive bool
	err = tx.QueryRowContext(ctx, `
		SELECT member_number, points_balance, active FROM members WHERE id = $1 FOR UPDATE
	`, memberID).Scan(&memberNumber, &balance, &memberActive)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: member %s", store.ErrNotFound, memberID)
	}
	if err != nil {
		return nil, err
	}
	if !memberActive {
		return nil, fmt.Errorf("%w: member %s is inactive", store.ErrNotFound, memberID)
	}

	// Lock and price every line before mutating anything. A failed item,
	// stock or balance check rolls back with zero writes.
	type pricedLine struct {
		productID string
		name      string
		price     decimal.Decimal
		qty       decimal.Decimal
		total     decimal.Decimal
	}
	priced := make([]pricedLine, 0, len(lines))
	totalPoints := decimal.Zero
	requested := make(map[string]decimal.Decimal, len(lines))
	for _, line := range lines {
		var name string
		var price, stock decimal.Decimal
		var active bool
		err := tx.QueryRowContext(ctx, `
			SELECT name, points_price, current_stock, active FROM products WHERE id = $1 FOR UPDATE
		`, line.ProductID).Scan(&name, &price, &stock, &active)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: product %s", store.ErrNotFound, line.ProductID)
		}
		if err != nil {
			return nil, err
		}
		if !active {
			return nil, fmt.Errorf("%w: product %s is inactive", store.ErrNotFound, line.ProductID)
		}
		// A repeated product reads the same locked row, so the stock check
		// runs against the quantity summed across all of its lines.
		need := requested[line.ProductID].Add(line.Quantity)
		if stock.LessThan(need) {
			return nil, fmt.Errorf("%w: %s has %s available, requested %s",
				store.ErrInsufficientStock, name, stock, need)
		}
		requested[line.ProductID] = need
		total := price.Mul(line.Quantity)
		priced = append(priced, pricedLine{productID: line.ProductID, name: name, price: price, qty: line.Quantity, total: total})
		totalPoints = totalPoints.Add(total)
	}

	if balance.LessThan(totalPoints) {
		return nil, fmt.Errorf("%w: member %s has %s points, sale needs %s",
			store.ErrInsufficientBalance, memberNumber, balance, totalPoints)
	}

	saleNumber, err := nextSaleNumber(ctx, tx, at)
	if err != nil {
		return nil, err
	}

	sale := domain.Sale{
		ID:             xid.New("sale"),
		SaleNumber:     saleNumber,
		MemberID:       memberID,
		SoldByID:       soldByID,
		CashRegisterID: cashRegisterID,
		TotalPoints:    totalPoints,
		TotalItems:     len(priced),
		Status:         domain.SaleStatusCompleted,
		Notes:          notes,
		CreatedAt:      at,
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO sales (id, sale_number, member_id, sold_by_id, cash_register_id,
			total_points, total_items, status, notes, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
	`, sale.ID, sale.SaleNumber, sale.MemberID, sale.SoldByID, nullIfEmptyPtr(sale.CashRegisterID),
		sale.TotalPoints, sale.TotalItems, sale.Status, nullIfEmpty(sale.Notes), sale.CreatedAt)
	if err != nil {
		return nil, err
	}

	for _, pl := range priced {
		item := domain.SaleItem{
			ID:          xid.New("sli"),
			SaleID:      sale.ID,
			ProductID:   pl.productID,
			ProductName: pl.name,
			Quantity:    pl.qty,
			PointsPrice: pl.price,
			TotalPoints: pl.total,
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO sale_items (id, sale_id, product_id, product_name, quantity,
				points_price, total_points)
			VALUES ($1,$2,$3,$4,$5,$6,$7)
		`, item.ID, item.SaleID, item.ProductID, item.ProductName, item.Quantity,
			item.PointsPrice, item.TotalPoints)
		if err != nil {
			return nil, err
		}
		sale.Items = append(sale.Items, item)
	}

	for _, pl := range priced {
		qty := pl.qty
		guard := func(name string, before decimal.Decimal) error {
			if before.LessThan(qty) {
				return fmt.Errorf("%w: %s has %s available, requested %s",
					store.ErrInsufficientStock, name, before, qty)
			}
			return nil
		}
		if _, err := s.applyStockDelta(ctx, tx, pl.productID, pl.qty.Neg(), guard,
			domain.StockMoveExit, soldByID, domain.ReasonSale, "", at); err != nil {
			return nil, err
		}
	}

	saleID := sale.ID
	consumeNote := fmt.Sprintf("Venta %s", saleNumber)
	if _, err := s.applyPointsDelta(ctx, tx, memberID, totalPoints.Neg(), nil,
		domain.PointsTxConsume, &saleID, nil, consumeNote, at); err != nil {
		return nil, err
	}

	if cashRegisterID != nil {
		var status string
		err := tx.QueryRowContext(ctx, `
			SELECT status FROM cash_registers WHERE id = $1 FOR UPDATE
		`, *cashRegisterID).Scan(&status)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: cash register %s", store.ErrNotFound, *cashRegisterID)
		}
		if err != nil {
			return nil, err
		}
		if status == domain.RegisterStatusOpen {
			if _, err := tx.ExecContext(ctx, `
				UPDATE cash_registers SET total_sales = total_sales + $2 WHERE id = $1
			`, *cashRegisterID, totalPoints); err != nil {
				return nil, err
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return &sale, nil
}

// nextSaleNumber derives the day-scoped sequence from the count of sales
// already created on at's calendar day. The UNIQUE constraint on sale_number
// catches the rare concurrent collision; CreateSale retries the transaction.
func nextSaleNumber(ctx context.Context, tx *sql.Tx, at time.Time) (string, error) {
	prefix := fmt.Sprintf("V-%s-", at.Format("20060102"))
	var count int
	err := tx.QueryRowContext(ctx, `
		SELECT count(*) FROM sales WHERE sale_number LIKE $1
	`, prefix+"%").Scan(&count)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s%04d", prefix, count+1), nil
}

func (s *Store) RefundSale(ctx context.Context, saleID string, actorID string, at time.Time) (*domain.Sale, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	sale, err := scanSaleTx(ctx, tx, saleID, true)
	if err != nil {
		return nil, err
	}
	if sale.Status != domain.SaleStatusCompleted {
		return nil, fmt.Errorf("%w: sale %s is %s, only COMPLETED sales can be refunded",
			store.ErrInvalidState, sale.SaleNumber, sale.Status)
	}

	for _, item := range sale.Items {
		if _, err := s.applyStockDelta(ctx, tx, item.ProductID, item.Quantity, nil,
			domain.StockMoveReturn, actorID, domain.ReasonRefundReturn, "", at); err != nil {
			return nil, err
		}
	}

	refundNote := fmt.Sprintf("Reembolso venta %s", sale.SaleNumber)
	if _, err := s.applyPointsDelta(ctx, tx, sale.MemberID, sale.TotalPoints, nil,
		domain.PointsTxRefund, &sale.ID, &actorID, refundNote, at); err != nil {
		return nil, err
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE sales SET status = $2, refunded_at = $3 WHERE id = $1
	`, sale.ID, domain.SaleStatusRefunded, at); err != nil {
		return nil, err
	}

	// Symmetric undo on the originating register, open or closed.
	if sale.CashRegisterID != nil {
		if _, err := tx.ExecContext(ctx, `
			UPDATE cash_registers SET total_sales = total_sales - $2 WHERE id = $1
		`, *sale.CashRegisterID, sale.TotalPoints); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	sale.Status = domain.SaleStatusRefunded
	refundedAt := at
	sale.RefundedAt = &refundedAt
	return sale, nil
}

const saleColumns = `id, sale_number, member_id, sold_by_id, cash_register_id,
	total_points, total_items, status, notes, created_at, refunded_at`

func scanSaleRow(row interface{ Scan(...any) error }) (*domain.Sale, error) {
	var sale domain.Sale
	var registerID, notes sql.NullString
	var refundedAt sql.NullTime
	err := row.Scan(&sale.ID, &sale.SaleNumber, &sale.MemberID, &sale.SoldByID, &registerID,
		&sale.TotalPoints, &sale.TotalItems, &sale.Status, &notes, &sale.CreatedAt, &refundedAt)
	if err != nil {
		return nil, err
	}
	if registerID.Valid {
		v := registerID.String
		sale.CashRegisterID = &v
	}
	sale.Notes = notes.String
	if refundedAt.Valid {
		v := refundedAt.Time.UTC()
		sale.RefundedAt = &v
	}
	return &sale, nil
}

func scanSaleTx(ctx context.Context, tx *sql.Tx, saleID string, forUpdate bool) (*domain.Sale, error) {
	query := `SELECT ` + saleColumns + ` FROM sales WHERE id = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}
	sale, err := scanSaleRow(tx.QueryRowContext(ctx, query, saleID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: sale %s", store.ErrNotFound, saleID)
	}
	if err != nil {
		return nil, err
	}

	rows, err := tx.QueryContext(ctx, `
		SELECT id, sale_id, product_id, product_name, quantity, points_price, total_points
		FROM sale_items WHERE sale_id = $1
	`, saleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var item domain.SaleItem
		if err := rows.Scan(&item.ID, &item.SaleID, &item.ProductID, &item.ProductName,
			&item.Quantity, &item.PointsPrice, &item.TotalPoints); err != nil {
			return nil, err
		}
		sale.Items = append(sale.Items, item)
	}
	return sale, rows.Err()
}

func (s *Store) GetSale(ctx context.Context, id string) (*domain.Sale, error) {
	sale, err := scanSaleRow(s.db.QueryRowContext(ctx, `SELECT `+saleColumns+` FROM sales WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: sale %s", store.ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, sale_id, product_id, product_name, quantity, points_price, total_points
		FROM sale_items WHERE sale_id = $1
	`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var item domain.SaleItem
		if err := rows.Scan(&item.ID, &item.SaleID, &item.ProductID, &item.ProductName,
			&item.Quantity, &item.PointsPrice, &item.TotalPoints); err != nil {
			return nil, err
		}
		sale.Items = append(sale.Items, item)
	}
	return sale, rows.Err()
}

func (s *Store) ListSales(ctx context.Context, limit int, offset int) ([]domain.Sale, error) {
	if limit < 1 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+saleColumns+`
		FROM sales
		ORDER BY created_at DESC, id DESC
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sales := make([]domain.Sale, 0, limit)
	for rows.Next() {
		sale, err := scanSaleRow(rows)
		if err != nil {
			return nil, err
		}
		sales = append(sales, *sale)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range sales {
		full, err := s.GetSale(ctx, sales[i].ID)
		if err != nil {
			return nil, err
		}
		sales[i].Items = full.Items
	}
	return sales, nil
}

// ---- cash register ----

const registerColumns = `id, status, opened_by_id, initial_cash, expected_cash, total_sales,
	total_expenses, actual_cash, difference, notes, open_date, close_date`

func scanRegister(row interface{ Scan(...any) error }) (*domain.CashRegister, error) {
	var reg domain.CashRegister
	var actual, diff decimal.NullDecimal
	var notes sql.NullString
	var closeDate sql.NullTime
	err := row.Scan(&reg.ID, &reg.Status, &reg.OpenedByID, &reg.InitialCash, &reg.ExpectedCash,
		&reg.TotalSales, &reg.TotalExpenses, &actual, &diff, &notes, &reg.OpenDate, &closeDate)
	if err != nil {
		return nil, err
	}
	if actual.Valid {
		v := actual.Decimal
		reg.ActualCash = &v
	}
	if diff.Valid {
		v := diff.Decimal
		reg.Difference = &v
	}
	reg.Notes = notes.String
	if closeDate.Valid {
		v := closeDate.Time.UTC()
		reg.CloseDate = &v
	}
	return &reg, nil
}

func (s *Store) OpenCashRegister(ctx context.Context, actorID string, initialCash decimal.Decimal, notes string, at time.Time) (*domain.CashRegister, error) {
	if initialCash.IsNegative() {
		return nil, fmt.Errorf("%w: initial cash cannot be negative", store.ErrValidation)
	}

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	var openID string
	err = tx.QueryRowContext(ctx, `
		SELECT id FROM cash_registers WHERE status = $1 FOR UPDATE
	`, domain.RegisterStatusOpen).Scan(&openID)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if openID != "" {
		return nil, fmt.Errorf("%w: cash register %s is already open", store.ErrConflict, openID)
	}

	register := domain.CashRegister{
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
	_, err = tx.ExecContext(ctx, `
		INSERT INTO cash_registers (id, status, opened_by_id, initial_cash, expected_cash,
			total_sales, total_expenses, notes, open_date)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
	`, register.ID, register.Status, register.OpenedByID, register.InitialCash,
		register.ExpectedCash, register.TotalSales, register.TotalExpenses,
		nullIfEmpty(register.Notes), register.OpenDate)
	if err != nil {
		// The partial unique index on status=OPEN backs the check above
		// against a concurrent open.
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: a cash register is already open", store.ErrConflict)
		}
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	saved := register
	return &saved, nil
}

func (s *Store) CloseCashRegister(ctx context.Context, registerID string, actualCash decimal.Decimal, notes string, at time.Time) (*domain.CashRegister, error) {
	if actualCash.IsNegative() {
		return nil, fmt.Errorf("%w: counted cash cannot be negative", store.ErrValidation)
	}

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	register, err := scanRegister(tx.QueryRowContext(ctx, `
		SELECT `+registerColumns+` FROM cash_registers WHERE id = $1 FOR UPDATE
	`, registerID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: cash register %s", store.ErrNotFound, registerID)
	}
	if err != nil {
		return nil, err
	}
	if register.Status != domain.RegisterStatusOpen {
		return nil, fmt.Errorf("%w: cash register %s is already closed", store.ErrInvalidState, registerID)
	}

	difference := actualCash.Sub(register.ExpectedCash)
	if notes == "" {
		notes = register.Notes
	}
	_, err = tx.ExecContext(ctx, `
		UPDATE cash_registers
		SET status = $2, actual_cash = $3, difference = $4, notes = $5, close_date = $6
		WHERE id = $1
	`, registerID, domain.RegisterStatusClosed, actualCash, difference, nullIfEmpty(notes), at)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	register.Status = domain.RegisterStatusClosed
	register.ActualCash = &actualCash
	register.Difference = &difference
	register.Notes = notes
	closeDate := at
	register.CloseDate = &closeDate
	return register, nil
}

func (s *Store) GetCashRegister(ctx context.Context, id string) (*domain.CashRegister, error) {
	register, err := scanRegister(s.db.QueryRowContext(ctx, `
		SELECT `+registerColumns+` FROM cash_registers WHERE id = $1
	`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: cash register %s", store.ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return register, nil
}

func (s *Store) GetActiveCashRegister(ctx context.Context) (*domain.CashRegister, error) {
	register, err := scanRegister(s.db.QueryRowContext(ctx, `
		SELECT `+registerColumns+` FROM cash_registers WHERE status = $1
	`, domain.RegisterStatusOpen))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: no open cash register", store.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return register, nil
}

func (s *Store) RecordExpense(ctx context.Context, registerID string, amount decimal.Decimal, description string, actorID string, at time.Time) (*domain.Expense, error) {
	if !amount.IsPositive() {
		return nil, fmt.Errorf("%w: expense amount must be positive", store.ErrValidation)
	}
	if strings.TrimSpace(description) == "" {
		return nil, fmt.Errorf("%w: expense description is required", store.ErrValidation)
	}

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	var status string
	err = tx.QueryRowContext(ctx, `
		SELECT status FROM cash_registers WHERE id = $1 FOR UPDATE
	`, registerID).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: cash register %s", store.ErrNotFound, registerID)
	}
	if err != nil {
		return nil, err
	}
	if status != domain.RegisterStatusOpen {
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
	_, err = tx.ExecContext(ctx, `
		INSERT INTO expenses (id, cash_register_id, amount, description, created_by_id, created_at)
		VALUES ($1,$2,$3,$4,$5,$6)
	`, expense.ID, expense.CashRegisterID, expense.Amount, expense.Description,
		expense.CreatedByID, expense.CreatedAt)
	if err != nil {
		return nil, err
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE cash_registers
		SET total_expenses = total_expenses + $2, expected_cash = expected_cash - $2
		WHERE id = $1
	`, registerID, amount)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	saved := expense
	return &saved, nil
}

func (s *Store) ListExpenses(ctx context.Context, registerID string) ([]domain.Expense, error) {
	if _, err := s.GetCashRegister(ctx, registerID); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, cash_register_id, amount, description, created_by_id, created_at
		FROM expenses
		WHERE cash_register_id = $1
		ORDER BY created_at
	`, registerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	expenses := make([]domain.Expense, 0, 16)
	for rows.Next() {
		var expense domain.Expense
		if err := rows.Scan(&expense.ID, &expense.CashRegisterID, &expense.Amount,
			&expense.Description, &expense.CreatedByID, &expense.CreatedAt); err != nil {
			return nil, err
		}
		expenses = append(expenses, expense)
	}
	return expenses, rows.Err()
}

func (s *Store) GetRegisterSummary(ctx context.Context, registerID string) (*domain.RegisterSummary, error) {
	register, err := s.GetCashRegister(ctx, registerID)
	if err != nil {
		return nil, err
	}

	var saleCount, expenseCount int64
	err = s.db.QueryRowContext(ctx, `
		SELECT
			(SELECT count(*) FROM sales WHERE cash_register_id = $1 AND status = $2),
			(SELECT count(*) FROM expenses WHERE cash_register_id = $1)
	`, registerID, domain.SaleStatusCompleted).Scan(&saleCount, &expenseCount)
	if err != nil {
		return nil, err
	}

	return &domain.RegisterSummary{
		RegisterID:    register.ID,
		Status:        register.Status,
		InitialCash:   register.InitialCash,
		ExpectedCash:  register.ExpectedCash,
		TotalSales:    register.TotalSales,
		TotalExpenses: register.TotalExpenses,
		SaleCount:     saleCount,
		ExpenseCount:  expenseCount,
		OpenDate:      register.OpenDate,
	}, nil
}

// ---- audit ----

func (s *Store) CreateAuditLog(ctx context.Context, entry domain.AuditLog) error {
	if entry.ID == "" {
		entry.ID = xid.New("aud")
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO audit_logs (id, actor_username, actor_role, action, entity_type,
			entity_id, detail, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
	`, entry.ID, entry.ActorUsername, entry.ActorRole, entry.Action, entry.EntityType,
		entry.EntityID, entry.Detail, entry.CreatedAt)
	return err
}

func (s *Store) ListAuditLogs(ctx context.Context, from time.Time, to time.Time, limit int) ([]domain.AuditLog, error) {
	if limit < 1 {
		limit = 100
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, actor_username, actor_role, action, entity_type, entity_id, detail, created_at
		FROM audit_logs
		WHERE created_at >= $1 AND created_at <= $2
		ORDER BY created_at DESC
		LIMIT $3
	`, from, to, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	logs := make([]domain.AuditLog, 0, limit)
	for rows.Next() {
		var entry domain.AuditLog
		if err := rows.Scan(&entry.ID, &entry.ActorUsername, &entry.ActorRole, &entry.Action,
			&entry.EntityType, &entry.EntityID, &entry.Detail, &entry.CreatedAt); err != nil {
			return nil, err
		}
		logs = append(logs, entry)
	}
	return logs, rows.Err()
}

// ---- users ----

func (s *Store) CreateUser(ctx context.Context, user domain.UserAccount) error {
	if strings.TrimSpace(user.Username) == "" || user.Password == "" {
		return fmt.Errorf("%w: username and password are required", store.ErrValidation)
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (username, password, role, active, created_at)
		VALUES ($1,$2,$3,true,$4)
	`, user.Username, user.Password, user.Role, user.CreatedAt)
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: username %s is taken", store.ErrConflict, user.Username)
	}
	return err
}

func (s *Store) ListUsers(ctx context.Context) ([]domain.UserAccount, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT username, password, role, active, created_at FROM users ORDER BY username
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := make([]domain.UserAccount, 0, 16)
	for rows.Next() {
		var user domain.UserAccount
		if err := rows.Scan(&user.Username, &user.Password, &user.Role, &user.Active, &user.CreatedAt); err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

func (s *Store) UpdateUserPassword(ctx context.Context, username string, password string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE users SET password = $2 WHERE username = $1
	`, username, password)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("%w: user %s", store.ErrNotFound, username)
	}
	return nil
}

// ---- helpers ----

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

func isSerializationFailure(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "40001"
	}
	return false
}

func nullIfEmpty(val string) any {
	if val == "" {
		return nil
	}
	return val
}

func nullIfEmptyPtr(val *string) any {
	if val == nil || *val == "" {
		return nil
	}
	return *val
}
