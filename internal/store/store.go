package store

import (
	"context"
	"errors"

	"github.com/Chiwu19/Yumm-Yard-Tracker/internal/domain"
)

var (
	// ErrNotFound is returned by point lookups. Deletes deliberately do
	// NOT return it: a delete of an absent key is a successful no-op,
	// because the caller may be acting on a stale cached view.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateTimestamp means a new sale's timestamp key collided
	// with an existing record. Surfaced rather than silently resolved so
	// a sale is never under-counted.
	ErrDuplicateTimestamp = errors.New("duplicate sale timestamp")

	// ErrInvalidRecord covers writes that fail validation, including the
	// total_sale != quantity * price_per_item invariant.
	ErrInvalidRecord = errors.New("invalid record")
)

// SaleFilter narrows QuerySales. Zero-valued fields act as wildcards.
// Dates are ISO YYYY-MM-DD and compare lexically.
type SaleFilter struct {
	Status    string
	Channel   string
	StartDate string
	EndDate   string
}

// ExpenseFilter narrows QueryExpenses the same way.
type ExpenseFilter struct {
	Status    string
	StartDate string
	EndDate   string
}

// Repository is the durable tracker store: the menu catalog plus the sales
// and expense ledgers with their live/archived lifecycle.
type Repository interface {
	// Menu catalog.
	ListMenu(ctx context.Context, channel string) ([]domain.MenuItem, error)
	GetMenuPrice(ctx context.Context, itemName string, channel string) (float64, error)
	UpsertMenuItem(ctx context.Context, item domain.MenuItem) error
	DeleteMenuItem(ctx context.Context, itemName string, channel string) error

	// Sales ledger. AppendSale inserts with status live and fails with
	// ErrDuplicateTimestamp on key collision. ArchiveLiveSales is a
	// single bulk update and therefore atomic.
	AppendSale(ctx context.Context, record domain.SaleRecord) error
	QuerySales(ctx context.Context, filter SaleFilter) ([]domain.SaleRecord, error)
	DeleteSaleByTimestamp(ctx context.Context, timestamp string) error
	ClearLiveSales(ctx context.Context) (int64, error)
	ArchiveLiveSales(ctx context.Context) (int64, error)
	ListArchivedSaleDates(ctx context.Context) ([]string, error)
	DeleteArchivedSalesByDate(ctx context.Context, date string) error
	TopItems(ctx context.Context, channel string, limit int, metric string) ([]domain.ItemRank, error)

	// Expense ledger, keyed by surrogate id. AppendExpense assigns the id.
	AppendExpense(ctx context.Context, record domain.ExpenseRecord) (*domain.ExpenseRecord, error)
	QueryExpenses(ctx context.Context, filter ExpenseFilter) ([]domain.ExpenseRecord, error)
	DeleteExpenseByID(ctx context.Context, id int64) error
	ClearLiveExpenses(ctx context.Context) (int64, error)
	ArchiveLiveExpenses(ctx context.Context) (int64, error)
	DeleteArchivedExpensesByDate(ctx context.Context, date string) error
}

// ValidateSale enforces write-time invariants shared by every Repository
// implementation. The redundant total_sale column must equal the product
// exactly as computed at creation time.
func ValidateSale(record domain.SaleRecord) error {
	if record.Timestamp == "" || record.ItemName == "" {
		return ErrInvalidRecord
	}
	if record.Quantity < 1 || record.PricePerItem < 0 {
		return ErrInvalidRecord
	}
	if !domain.ValidChannel(record.Channel) {
		return ErrInvalidRecord
	}
	if record.Status != domain.StatusLive && record.Status != domain.StatusArchived {
		return ErrInvalidRecord
	}
	if record.TotalSale != float64(record.Quantity)*record.PricePerItem {
		return ErrInvalidRecord
	}
	return nil
}

// ValidateExpense mirrors ValidateSale for expense rows.
func ValidateExpense(record domain.ExpenseRecord) error {
	if record.ExpenseDate == "" || record.Amount < 0 {
		return ErrInvalidRecord
	}
	if record.Status != domain.StatusLive && record.Status != domain.StatusArchived {
		return ErrInvalidRecord
	}
	return nil
}
