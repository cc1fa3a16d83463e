package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mattn/go-sqlite3"

	"github.com/Chiwu19/Yumm-Yard-Tracker/internal/domain"
	"github.com/Chiwu19/Yumm-Yard-Tracker/internal/store"
)

// Store is the canonical SQLite-backed repository. The schema matches the
// database files produced by earlier versions of the tracker, so an existing
// file keeps working unchanged.
type Store struct {
	db *sql.DB
}

func New(ctx context.Context, dbPath string) (*Store, error) {
	if strings.TrimSpace(dbPath) == "" {
		return nil, fmt.Errorf("sqlite path must not be empty")
	}

	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, err
	}

	// SQLite does not benefit from multiple connections.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pingCtx, cancel := context.WithTimeout(ctx, 6*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &Store{db: db}
	if err := s.initSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// initSchema creates the three tracker tables if missing. The DDL is fixed:
// historical database files depend on exactly these column definitions.
func (s *Store) initSchema(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS menus (
			item_name TEXT,
			channel TEXT,
			price REAL,
			PRIMARY KEY (item_name, channel)
		)`,
		`CREATE TABLE IF NOT EXISTS sales (
			timestamp TEXT PRIMARY KEY,
			item_name TEXT,
			quantity INTEGER,
			price_per_item REAL,
			total_sale REAL,
			channel TEXT,
			sale_date TEXT,
			status TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS expenses (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			expense_date TEXT,
			amount REAL,
			description TEXT,
			status TEXT
		)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("init schema: %w", err)
		}
	}
	return nil
}

func (s *Store) ListMenu(ctx context.Context, channel string) ([]domain.MenuItem, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT item_name, channel, price
		FROM menus
		WHERE channel = ?
		ORDER BY item_name
	`, channel)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]domain.MenuItem, 0, 32)
	for rows.Next() {
		var item domain.MenuItem
		if err := rows.Scan(&item.ItemName, &item.Channel, &item.Price); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func (s *Store) GetMenuPrice(ctx context.Context, itemName string, channel string) (float64, error) {
	var price float64
	err := s.db.QueryRowContext(ctx, `
		SELECT price FROM menus WHERE item_name = ? AND channel = ?
	`, itemName, channel).Scan(&price)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, store.ErrNotFound
		}
		return 0, err
	}
	return price, nil
}

func (s *Store) UpsertMenuItem(ctx context.Context, item domain.MenuItem) error {
	if item.ItemName == "" || !domain.ValidChannel(item.Channel) || item.Price < 0 {
		return store.ErrInvalidRecord
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO menus (item_name, price, channel) VALUES (?, ?, ?)
	`, item.ItemName, item.Price, item.Channel)
	return err
}

func (s *Store) DeleteMenuItem(ctx context.Context, itemName string, channel string) error {
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM menus WHERE item_name = ? AND channel = ?
	`, itemName, channel)
	return err
}

func (s *Store) AppendSale(ctx context.Context, record domain.SaleRecord) error {
	if err := store.ValidateSale(record); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sales (timestamp, item_name, quantity, price_per_item, total_sale, channel, sale_date, status)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, record.Timestamp, record.ItemName, record.Quantity, record.PricePerItem,
		record.TotalSale, record.Channel, record.SaleDate, record.Status)
	if err != nil {
		if isPrimaryKeyViolation(err) {
			return store.ErrDuplicateTimestamp
		}
		return err
	}
	return nil
}

func (s *Store) QuerySales(ctx context.Context, filter store.SaleFilter) ([]domain.SaleRecord, error) {
	query := `
		SELECT timestamp, item_name, quantity, price_per_item, total_sale, channel, sale_date, status
		FROM sales WHERE 1=1`
	args := make([]any, 0, 4)

	if filter.Status != "" {
		query += " AND status = ?"
		args = append(args, filter.Status)
	}
	if filter.Channel != "" {
		query += " AND channel = ?"
		args = append(args, filter.Channel)
	}
	if filter.StartDate != "" {
		query += " AND sale_date >= ?"
		args = append(args, filter.StartDate)
	}
	if filter.EndDate != "" {
		query += " AND sale_date <= ?"
		args = append(args, filter.EndDate)
	}
	query += " ORDER BY timestamp"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := make([]domain.SaleRecord, 0, 64)
	for rows.Next() {
		var r domain.SaleRecord
		if err := rows.Scan(&r.Timestamp, &r.ItemName, &r.Quantity, &r.PricePerItem,
			&r.TotalSale, &r.Channel, &r.SaleDate, &r.Status); err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// DeleteSaleByTimestamp removes one sale regardless of status. Deleting an
// absent key succeeds: the caller may be acting on a stale view.
func (s *Store) DeleteSaleByTimestamp(ctx context.Context, timestamp string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM sales WHERE timestamp = ?`, timestamp)
	return err
}

func (s *Store) ClearLiveSales(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM sales WHERE status = ?`, domain.StatusLive)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// ArchiveLiveSales flips every live sale to archived in one statement, so the
// transition is all-or-nothing.
func (s *Store) ArchiveLiveSales(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE sales SET status = ? WHERE status = ?
	`, domain.StatusArchived, domain.StatusLive)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *Store) ListArchivedSaleDates(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT sale_date FROM sales WHERE status = ? ORDER BY sale_date DESC
	`, domain.StatusArchived)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	dates := make([]string, 0, 32)
	for rows.Next() {
		var date string
		if err := rows.Scan(&date); err != nil {
			return nil, err
		}
		dates = append(dates, date)
	}
	return dates, rows.Err()
}

func (s *Store) DeleteArchivedSalesByDate(ctx context.Context, date string) error {
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM sales WHERE status = ? AND sale_date = ?
	`, domain.StatusArchived, date)
	return err
}

func (s *Store) TopItems(ctx context.Context, channel string, limit int, metric string) ([]domain.ItemRank, error) {
	if limit < 1 {
		limit = 5
	}

	order := "orders"
	if metric == domain.TopItemsByQuantity {
		order = "quantity"
	} else if metric != "" && metric != domain.TopItemsByOrders {
		return nil, store.ErrInvalidRecord
	}

	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT item_name, COUNT(*) AS orders, COALESCE(SUM(quantity), 0) AS quantity
		FROM sales
		WHERE channel = ?
		GROUP BY item_name
		ORDER BY %s DESC
		LIMIT ?
	`, order), channel, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ranks := make([]domain.ItemRank, 0, limit)
	for rows.Next() {
		var rank domain.ItemRank
		if err := rows.Scan(&rank.ItemName, &rank.Orders, &rank.Quantity); err != nil {
			return nil, err
		}
		ranks = append(ranks, rank)
	}
	return ranks, rows.Err()
}

func (s *Store) AppendExpense(ctx context.Context, record domain.ExpenseRecord) (*domain.ExpenseRecord, error) {
	if err := store.ValidateExpense(record); err != nil {
		return nil, err
	}
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO expenses (expense_date, amount, description, status)
		VALUES (?, ?, ?, ?)
	`, record.ExpenseDate, record.Amount, record.Description, record.Status)
	if err != nil {
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	record.ID = id
	return &record, nil
}

func (s *Store) QueryExpenses(ctx context.Context, filter store.ExpenseFilter) ([]domain.ExpenseRecord, error) {
	query := `SELECT id, expense_date, amount, description, status FROM expenses WHERE 1=1`
	args := make([]any, 0, 3)

	if filter.Status != "" {
		query += " AND status = ?"
		args = append(args, filter.Status)
	}
	if filter.StartDate != "" {
		query += " AND expense_date >= ?"
		args = append(args, filter.StartDate)
	}
	if filter.EndDate != "" {
		query += " AND expense_date <= ?"
		args = append(args, filter.EndDate)
	}
	query += " ORDER BY id"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := make([]domain.ExpenseRecord, 0, 16)
	for rows.Next() {
		var r domain.ExpenseRecord
		var description sql.NullString
		if err := rows.Scan(&r.ID, &r.ExpenseDate, &r.Amount, &description, &r.Status); err != nil {
			return nil, err
		}
		r.Description = description.String
		records = append(records, r)
	}
	return records, rows.Err()
}

func (s *Store) DeleteExpenseByID(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM expenses WHERE id = ?`, id)
	return err
}

func (s *Store) ClearLiveExpenses(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM expenses WHERE status = ?`, domain.StatusLive)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *Store) ArchiveLiveExpenses(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE expenses SET status = ? WHERE status = ?
	`, domain.StatusArchived, domain.StatusLive)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *Store) DeleteArchivedExpensesByDate(ctx context.Context, date string) error {
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM expenses WHERE status = ? AND expense_date = ?
	`, domain.StatusArchived, date)
	return err
}

func isPrimaryKeyViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	return sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey ||
		sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
}
