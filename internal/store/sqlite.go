package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"cryptodesk/internal/models"
)

// SQLiteStore implements DataStore using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite-based data store.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool for concurrent access
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	store := &SQLiteStore{db: db}

	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

// initSchema creates all required tables and indexes.
func (s *SQLiteStore) initSchema() error {
	schema := `
	-- Orders table
	CREATE TABLE IF NOT EXISTS orders (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		base_asset TEXT NOT NULL,
		quote_asset TEXT NOT NULL,
		side TEXT NOT NULL,
		type TEXT NOT NULL,
		amount REAL NOT NULL,
		limit_price REAL DEFAULT 0,
		stop_price REAL DEFAULT 0,
		trailing_percent REAL DEFAULT 0,
		oco_linked_id TEXT DEFAULT '',
		margin INTEGER DEFAULT 0,
		leverage INTEGER DEFAULT 1,
		status TEXT NOT NULL,
		filled_amount REAL DEFAULT 0,
		execution_price REAL DEFAULT 0,
		reject_reason TEXT DEFAULT '',
		preferred_venue TEXT DEFAULT '',
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_orders_user ON orders(user_id, status);
	CREATE INDEX IF NOT EXISTS idx_orders_status_type ON orders(status, type);

	-- Balances table (cash and platform token)
	CREATE TABLE IF NOT EXISTS balances (
		user_id TEXT NOT NULL,
		asset TEXT NOT NULL,
		amount REAL NOT NULL DEFAULT 0,
		updated_at DATETIME NOT NULL,
		PRIMARY KEY (user_id, asset),
		CHECK (amount >= 0)
	);

	-- Holdings table (traded assets)
	CREATE TABLE IF NOT EXISTS holdings (
		user_id TEXT NOT NULL,
		asset TEXT NOT NULL,
		amount REAL NOT NULL DEFAULT 0,
		average_price REAL NOT NULL DEFAULT 0,
		updated_at DATETIME NOT NULL,
		PRIMARY KEY (user_id, asset),
		CHECK (amount >= 0)
	);

	-- Immutable transaction records, one per settlement
	CREATE TABLE IF NOT EXISTS transactions (
		id TEXT PRIMARY KEY,
		order_id TEXT NOT NULL UNIQUE,
		user_id TEXT NOT NULL,
		base_asset TEXT NOT NULL,
		quote_asset TEXT NOT NULL,
		side TEXT NOT NULL,
		amount REAL NOT NULL,
		execution_price REAL NOT NULL,
		total_value REAL NOT NULL,
		trading_fee REAL NOT NULL,
		platform_fee REAL NOT NULL,
		venue TEXT NOT NULL,
		tx_ref TEXT NOT NULL,
		created_at DATETIME NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_transactions_user_time ON transactions(user_id, created_at);

	-- Ledger mutations, linked to the transaction that caused them
	CREATE TABLE IF NOT EXISTS ledger_mutations (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id TEXT NOT NULL,
		asset TEXT NOT NULL,
		delta REAL NOT NULL,
		resulting_amount REAL NOT NULL,
		transaction_id TEXT NOT NULL,
		applied_at DATETIME NOT NULL,
		FOREIGN KEY (transaction_id) REFERENCES transactions(id)
	);

	-- Risk events, durable regardless of order outcome
	CREATE TABLE IF NOT EXISTS risk_events (
		id TEXT PRIMARY KEY,
		type TEXT NOT NULL,
		severity TEXT NOT NULL,
		action TEXT NOT NULL,
		user_id TEXT DEFAULT '',
		order_id TEXT DEFAULT '',
		metric REAL DEFAULT 0,
		threshold REAL DEFAULT 0,
		detail TEXT DEFAULT '',
		created_at DATETIME NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_risk_events_type_time ON risk_events(type, created_at);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

const orderColumns = `id, user_id, base_asset, quote_asset, side, type, amount,
	limit_price, stop_price, trailing_percent, oco_linked_id, margin, leverage,
	status, filled_amount, execution_price, reject_reason, preferred_venue,
	created_at, updated_at`

func scanOrder(row interface{ Scan(...interface{}) error }) (*models.Order, error) {
	var o models.Order
	var margin int
	err := row.Scan(&o.ID, &o.UserID, &o.BaseAsset, &o.QuoteAsset, &o.Side, &o.Type,
		&o.Amount, &o.LimitPrice, &o.StopPrice, &o.TrailingPercent, &o.OCOLinkedID,
		&margin, &o.Leverage, &o.Status, &o.FilledAmount, &o.ExecutionPrice,
		&o.RejectReason, &o.PreferredVenue, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return nil, err
	}
	o.Margin = margin != 0
	return &o, nil
}

func insertOrderTx(ctx context.Context, tx *sql.Tx, o *models.Order) error {
	margin := 0
	if o.Margin {
		margin = 1
	}
	_, err := tx.ExecContext(ctx, `
		INSERT INTO orders (`+orderColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		o.ID, o.UserID, o.BaseAsset, o.QuoteAsset, o.Side, o.Type, o.Amount,
		o.LimitPrice, o.StopPrice, o.TrailingPercent, o.OCOLinkedID, margin,
		o.Leverage, o.Status, o.FilledAmount, o.ExecutionPrice, o.RejectReason,
		o.PreferredVenue, o.CreatedAt, o.UpdatedAt)
	return err
}

// CreateOrder persists a new order.
func (s *SQLiteStore) CreateOrder(ctx context.Context, order *models.Order) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := insertOrderTx(ctx, tx, order); err != nil {
		return fmt.Errorf("insert order: %w", err)
	}
	return tx.Commit()
}

// CreateOCOPair persists both legs of a one-cancels-other pair with mutual
// back-references in a single transaction. Either both legs exist with their
// links set or neither does.
func (s *SQLiteStore) CreateOCOPair(ctx context.Context, limitLeg, stopLeg *models.Order) error {
	limitLeg.OCOLinkedID = stopLeg.ID
	stopLeg.OCOLinkedID = limitLeg.ID

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := insertOrderTx(ctx, tx, limitLeg); err != nil {
		return fmt.Errorf("insert limit leg: %w", err)
	}
	if err := insertOrderTx(ctx, tx, stopLeg); err != nil {
		return fmt.Errorf("insert stop leg: %w", err)
	}
	return tx.Commit()
}

// GetOrder fetches an order by id.
func (s *SQLiteStore) GetOrder(ctx context.Context, id string) (*models.Order, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = ?`, id)
	order, err := scanOrder(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get order: %w", err)
	}
	return order, nil
}

// ListOpenOrders returns all non-terminal orders, optionally for one user.
func (s *SQLiteStore) ListOpenOrders(ctx context.Context, userID string) ([]models.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE status IN ('OPEN', 'PARTIALLY_FILLED')`
	args := []interface{}{}
	if userID != "" {
		query += ` AND user_id = ?`
		args = append(args, userID)
	}
	query += ` ORDER BY created_at`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list open orders: %w", err)
	}
	defer rows.Close()

	var orders []models.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, *o)
	}
	return orders, rows.Err()
}

// ListOpenStopOrders returns open stop and trailing-stop orders for the
// stop-loss scan loop.
func (s *SQLiteStore) ListOpenStopOrders(ctx context.Context) ([]models.Order, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+orderColumns+` FROM orders
		WHERE status = 'OPEN' AND type IN ('STOP', 'TRAILING_STOP')
		ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("list stop orders: %w", err)
	}
	defer rows.Close()

	var orders []models.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, *o)
	}
	return orders, rows.Err()
}

// TransitionOrder moves an order to a new status under the state machine
// rules. Attempts to move out of a terminal state fail with
// ErrInvalidTransition, never a silent no-op.
func (s *SQLiteStore) TransitionOrder(ctx context.Context, id string, to models.OrderStatus, reason string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := transitionOrderTx(ctx, tx, id, to, reason); err != nil {
		return err
	}
	return tx.Commit()
}

func transitionOrderTx(ctx context.Context, tx *sql.Tx, id string, to models.OrderStatus, reason string) error {
	row := tx.QueryRowContext(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = ?`, id)
	order, err := scanOrder(row)
	if err == sql.ErrNoRows {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("read order: %w", err)
	}

	if !order.CanTransition(to) {
		return fmt.Errorf("%w: %s -> %s for order %s", ErrInvalidTransition, order.Status, to, id)
	}

	// Conditional on the status just read, so a concurrent transition
	// cannot be overwritten.
	res, err := tx.ExecContext(ctx, `
		UPDATE orders SET status = ?, reject_reason = ?, updated_at = ?
		WHERE id = ? AND status = ?`,
		to, reason, time.Now().UTC(), id, order.Status)
	if err != nil {
		return fmt.Errorf("update order status: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("%w: order %s changed concurrently", ErrInvalidTransition, id)
	}

	// Cancelling one OCO leg cancels the sibling in the same transaction.
	if to == models.StatusCancelled && order.OCOLinkedID != "" {
		if _, err := tx.ExecContext(ctx, `
			UPDATE orders SET status = ?, updated_at = ?
			WHERE id = ? AND status IN ('OPEN', 'PARTIALLY_FILLED')`,
			models.StatusCancelled, time.Now().UTC(), order.OCOLinkedID); err != nil {
			return fmt.Errorf("cancel oco sibling: %w", err)
		}
	}
	return nil
}

// TightenStopPrice updates a stop price only when the new value is tighter
// in the order's favor: higher for a protective sell, lower for a
// protective buy. Loosening updates are silently skipped.
func (s *SQLiteStore) TightenStopPrice(ctx context.Context, id string, stopPrice float64, side models.OrderSide) error {
	cmp := "stop_price < ?"
	if side == models.OrderSideBuy {
		cmp = "stop_price > ?"
	}
	_, err := s.db.ExecContext(ctx, `
		UPDATE orders SET stop_price = ?, updated_at = ?
		WHERE id = ? AND status = 'OPEN' AND `+cmp,
		stopPrice, time.Now().UTC(), id, stopPrice)
	if err != nil {
		return fmt.Errorf("tighten stop price: %w", err)
	}
	return nil
}

// GetBalance fetches a user's balance in one asset. A missing row is a
// zero balance, not an error.
func (s *SQLiteStore) GetBalance(ctx context.Context, userID, asset string) (*models.Balance, error) {
	b := &models.Balance{UserID: userID, Asset: asset}
	err := s.db.QueryRowContext(ctx, `
		SELECT amount, updated_at FROM balances WHERE user_id = ? AND asset = ?`,
		userID, asset).Scan(&b.Amount, &b.UpdatedAt)
	if err == sql.ErrNoRows {
		return b, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get balance: %w", err)
	}
	return b, nil
}

// CreditBalance adds funds to a user's balance, creating the row if needed.
func (s *SQLiteStore) CreditBalance(ctx context.Context, userID, asset string, amount float64) error {
	if amount <= 0 {
		return fmt.Errorf("credit amount must be positive, got %f", amount)
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO balances (user_id, asset, amount, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(user_id, asset) DO UPDATE SET
			amount = amount + excluded.amount,
			updated_at = excluded.updated_at`,
		userID, asset, amount, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("credit balance: %w", err)
	}
	return nil
}

// GetHolding fetches a user's holding in one asset. A missing row is a
// zero holding, not an error.
func (s *SQLiteStore) GetHolding(ctx context.Context, userID, asset string) (*models.Holding, error) {
	h := &models.Holding{UserID: userID, Asset: asset}
	err := s.db.QueryRowContext(ctx, `
		SELECT amount, average_price, updated_at FROM holdings
		WHERE user_id = ? AND asset = ?`,
		userID, asset).Scan(&h.Amount, &h.AveragePrice, &h.UpdatedAt)
	if err == sql.ErrNoRows {
		return h, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get holding: %w", err)
	}
	return h, nil
}

// ListHoldings returns all of a user's holdings.
func (s *SQLiteStore) ListHoldings(ctx context.Context, userID string) ([]models.Holding, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT user_id, asset, amount, average_price, updated_at
		FROM holdings WHERE user_id = ? AND amount > 0`, userID)
	if err != nil {
		return nil, fmt.Errorf("list holdings: %w", err)
	}
	defer rows.Close()

	var holdings []models.Holding
	for rows.Next() {
		var h models.Holding
		if err := rows.Scan(&h.UserID, &h.Asset, &h.Amount, &h.AveragePrice, &h.UpdatedAt); err != nil {
			return nil, err
		}
		holdings = append(holdings, h)
	}
	return holdings, rows.Err()
}

// Settle applies one settlement as a single transaction: claim the order
// row, debit the platform fee, adjust the traded holding, cancel the OCO
// sibling, and insert the immutable transaction record. A failure at any
// step rolls back every mutation.
func (s *SQLiteStore) Settle(ctx context.Context, p SettlementParams) (*models.Transaction, error) {
	now := time.Now().UTC()
	order := p.Order

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	// Claim the order row. The conditional update is the per-order lock:
	// exactly one concurrent settlement attempt can flip OPEN to FILLED.
	res, err := tx.ExecContext(ctx, `
		UPDATE orders SET status = ?, filled_amount = amount, execution_price = ?, updated_at = ?
		WHERE id = ? AND status IN ('OPEN', 'PARTIALLY_FILLED')`,
		models.StatusFilled, p.ExecutionPrice, now, order.ID)
	if err != nil {
		return nil, fmt.Errorf("claim order: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		current, err := s.GetOrder(ctx, order.ID)
		if err != nil {
			return nil, err
		}
		if current.Status == models.StatusFilled {
			return nil, ErrAlreadySettled
		}
		return nil, fmt.Errorf("%w: order %s is %s", ErrSettlementConflict, order.ID, current.Status)
	}

	// Debit the platform fee. The amount guard keeps the balance
	// invariant in the statement itself.
	res, err = tx.ExecContext(ctx, `
		UPDATE balances SET amount = amount - ?, updated_at = ?
		WHERE user_id = ? AND asset = ? AND amount >= ?`,
		p.PlatformFee, now, order.UserID, models.PlatformToken, p.PlatformFee)
	if err != nil {
		return nil, fmt.Errorf("debit platform fee: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, ErrInsufficientFeeBalance
	}

	// Adjust the traded holding: increase on buy, decrease on sell,
	// never below zero.
	if order.Side == models.OrderSideBuy {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO holdings (user_id, asset, amount, average_price, updated_at)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT(user_id, asset) DO UPDATE SET
				average_price = (amount * average_price + excluded.amount * excluded.average_price)
					/ (amount + excluded.amount),
				amount = amount + excluded.amount,
				updated_at = excluded.updated_at`,
			order.UserID, order.BaseAsset, order.Amount, p.ExecutionPrice, now)
		if err != nil {
			return nil, fmt.Errorf("increase holding: %w", err)
		}
	} else {
		res, err = tx.ExecContext(ctx, `
			UPDATE holdings SET amount = amount - ?, updated_at = ?
			WHERE user_id = ? AND asset = ? AND amount >= ?`,
			order.Amount, now, order.UserID, order.BaseAsset, order.Amount)
		if err != nil {
			return nil, fmt.Errorf("decrease holding: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return nil, ErrInsufficientHolding
		}
	}

	// Filling one OCO leg cancels the sibling in the same transaction.
	if order.OCOLinkedID != "" {
		if _, err := tx.ExecContext(ctx, `
			UPDATE orders SET status = ?, updated_at = ?
			WHERE id = ? AND status IN ('OPEN', 'PARTIALLY_FILLED')`,
			models.StatusCancelled, now, order.OCOLinkedID); err != nil {
			return nil, fmt.Errorf("cancel oco sibling: %w", err)
		}
	}

	record := &models.Transaction{
		ID:             uuid.NewString(),
		OrderID:        order.ID,
		UserID:         order.UserID,
		BaseAsset:      order.BaseAsset,
		QuoteAsset:     order.QuoteAsset,
		Side:           order.Side,
		Amount:         order.Amount,
		ExecutionPrice: p.ExecutionPrice,
		TotalValue:     p.TotalValue,
		TradingFee:     p.TradingFee,
		PlatformFee:    p.PlatformFee,
		Venue:          p.Venue,
		TxRef:          p.TxRef,
		CreatedAt:      now,
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO transactions (id, order_id, user_id, base_asset, quote_asset,
			side, amount, execution_price, total_value, trading_fee, platform_fee,
			venue, tx_ref, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		record.ID, record.OrderID, record.UserID, record.BaseAsset, record.QuoteAsset,
		record.Side, record.Amount, record.ExecutionPrice, record.TotalValue,
		record.TradingFee, record.PlatformFee, record.Venue, record.TxRef, record.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert transaction: %w", err)
	}

	// Record the ledger mutations alongside the transaction.
	feeBalance, holdingDelta := -p.PlatformFee, order.Amount
	if order.Side == models.OrderSideSell {
		holdingDelta = -order.Amount
	}
	mutations := []struct {
		asset string
		delta float64
	}{
		{models.PlatformToken, feeBalance},
		{order.BaseAsset, holdingDelta},
	}
	for _, m := range mutations {
		var resulting float64
		table, column := "balances", "amount"
		if m.asset != models.PlatformToken {
			table = "holdings"
		}
		if err := tx.QueryRowContext(ctx,
			`SELECT `+column+` FROM `+table+` WHERE user_id = ? AND asset = ?`,
			order.UserID, m.asset).Scan(&resulting); err != nil && err != sql.ErrNoRows {
			return nil, fmt.Errorf("read resulting amount: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO ledger_mutations (user_id, asset, delta, resulting_amount, transaction_id, applied_at)
			VALUES (?, ?, ?, ?, ?, ?)`,
			order.UserID, m.asset, m.delta, resulting, record.ID, now); err != nil {
			return nil, fmt.Errorf("insert ledger mutation: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit settlement: %w", err)
	}
	return record, nil
}

// GetTransactionByOrder fetches the settlement record for an order.
func (s *SQLiteStore) GetTransactionByOrder(ctx context.Context, orderID string) (*models.Transaction, error) {
	var t models.Transaction
	err := s.db.QueryRowContext(ctx, `
		SELECT id, order_id, user_id, base_asset, quote_asset, side, amount,
			execution_price, total_value, trading_fee, platform_fee, venue, tx_ref, created_at
		FROM transactions WHERE order_id = ?`, orderID).Scan(
		&t.ID, &t.OrderID, &t.UserID, &t.BaseAsset, &t.QuoteAsset, &t.Side, &t.Amount,
		&t.ExecutionPrice, &t.TotalValue, &t.TradingFee, &t.PlatformFee, &t.Venue,
		&t.TxRef, &t.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get transaction: %w", err)
	}
	return &t, nil
}

// ListLedgerMutations returns the audit trail for one settlement, in the
// order the deltas were applied.
func (s *SQLiteStore) ListLedgerMutations(ctx context.Context, transactionID string) ([]models.LedgerMutation, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT user_id, asset, delta, resulting_amount, transaction_id, applied_at
		FROM ledger_mutations WHERE transaction_id = ? ORDER BY id`, transactionID)
	if err != nil {
		return nil, fmt.Errorf("list ledger mutations: %w", err)
	}
	defer rows.Close()

	var mutations []models.LedgerMutation
	for rows.Next() {
		var m models.LedgerMutation
		if err := rows.Scan(&m.UserID, &m.Asset, &m.Delta, &m.ResultingAmt,
			&m.TransactionID, &m.AppliedAt); err != nil {
			return nil, err
		}
		mutations = append(mutations, m)
	}
	return mutations, rows.Err()
}

// CountUserTransactionsSince counts a user's settled trades in a trailing
// window, used by anomaly detection.
func (s *SQLiteStore) CountUserTransactionsSince(ctx context.Context, userID string, since time.Time) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM transactions WHERE user_id = ? AND created_at >= ?`,
		userID, since).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count transactions: %w", err)
	}
	return count, nil
}

// SaveRiskEvent persists a risk event record.
func (s *SQLiteStore) SaveRiskEvent(ctx context.Context, event *models.RiskEvent) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO risk_events (id, type, severity, action, user_id, order_id,
			metric, threshold, detail, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		event.ID, event.Type, event.Severity, event.Action, event.UserID,
		event.OrderID, event.Metric, event.Threshold, event.Detail, event.CreatedAt)
	if err != nil {
		return fmt.Errorf("save risk event: %w", err)
	}
	return nil
}

// GetRiskEvents returns risk events matching the filter, newest first.
func (s *SQLiteStore) GetRiskEvents(ctx context.Context, filter RiskEventFilter) ([]models.RiskEvent, error) {
	query := `SELECT id, type, severity, action, user_id, order_id, metric,
		threshold, detail, created_at FROM risk_events WHERE 1=1`
	args := []interface{}{}

	if filter.Type != "" {
		query += ` AND type = ?`
		args = append(args, filter.Type)
	}
	if filter.UserID != "" {
		query += ` AND user_id = ?`
		args = append(args, filter.UserID)
	}
	if !filter.StartDate.IsZero() {
		query += ` AND created_at >= ?`
		args = append(args, filter.StartDate)
	}
	query += ` ORDER BY created_at DESC`
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("get risk events: %w", err)
	}
	defer rows.Close()

	var events []models.RiskEvent
	for rows.Next() {
		var e models.RiskEvent
		if err := rows.Scan(&e.ID, &e.Type, &e.Severity, &e.Action, &e.UserID,
			&e.OrderID, &e.Metric, &e.Threshold, &e.Detail, &e.CreatedAt); err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}
