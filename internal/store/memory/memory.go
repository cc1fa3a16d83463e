package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/Chiwu19/Yumm-Yard-Tracker/internal/domain"
	"github.com/Chiwu19/Yumm-Yard-Tracker/internal/store"
)

type menuKey struct {
	itemName string
	channel  string
}

// Store is an in-memory repository with the same semantics as the SQLite
// store. Used by tests and for cache-less dev runs without a database file.
type Store struct {
	mu            sync.RWMutex
	menus         map[menuKey]float64
	sales         map[string]domain.SaleRecord
	expenses      map[int64]domain.ExpenseRecord
	nextExpenseID int64
}

func New() *Store {
	return &Store{
		menus:         make(map[menuKey]float64),
		sales:         make(map[string]domain.SaleRecord),
		expenses:      make(map[int64]domain.ExpenseRecord),
		nextExpenseID: 1,
	}
}

// NewSeeded returns a store preloaded with a small menu for dev/demo mode.
func NewSeeded() *Store {
	s := New()
	seed := []domain.MenuItem{
		{ItemName: "Tea", Channel: domain.ChannelOffline, Price: 20},
		{ItemName: "Coffee", Channel: domain.ChannelOffline, Price: 35},
		{ItemName: "Veg Sandwich", Channel: domain.ChannelOffline, Price: 60},
		{ItemName: "Tea", Channel: domain.ChannelOnline, Price: 25},
		{ItemName: "Veg Sandwich", Channel: domain.ChannelOnline, Price: 75},
	}
	for _, item := range seed {
		s.menus[menuKey{item.ItemName, item.Channel}] = item.Price
	}
	return s
}

func (s *Store) ListMenu(_ context.Context, channel string) ([]domain.MenuItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items := make([]domain.MenuItem, 0, len(s.menus))
	for key, price := range s.menus {
		if key.channel != channel {
			continue
		}
		items = append(items, domain.MenuItem{ItemName: key.itemName, Channel: key.channel, Price: price})
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ItemName < items[j].ItemName })
	return items, nil
}

func (s *Store) GetMenuPrice(_ context.Context, itemName string, channel string) (float64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	price, ok := s.menus[menuKey{itemName, channel}]
	if !ok {
		return 0, store.ErrNotFound
	}
	return price, nil
}

func (s *Store) UpsertMenuItem(_ context.Context, item domain.MenuItem) error {
	if item.ItemName == "" || !domain.ValidChannel(item.Channel) || item.Price < 0 {
		return store.ErrInvalidRecord
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.menus[menuKey{item.ItemName, item.Channel}] = item.Price
	return nil
}

func (s *Store) DeleteMenuItem(_ context.Context, itemName string, channel string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.menus, menuKey{itemName, channel})
	return nil
}

func (s *Store) AppendSale(_ context.Context, record domain.SaleRecord) error {
	if err := store.ValidateSale(record); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.sales[record.Timestamp]; exists {
		return store.ErrDuplicateTimestamp
	}
	s.sales[record.Timestamp] = record
	return nil
}

func (s *Store) QuerySales(_ context.Context, filter store.SaleFilter) ([]domain.SaleRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	records := make([]domain.SaleRecord, 0, len(s.sales))
	for _, record := range s.sales {
		if filter.Status != "" && record.Status != filter.Status {
			continue
		}
		if filter.Channel != "" && record.Channel != filter.Channel {
			continue
		}
		if filter.StartDate != "" && record.SaleDate < filter.StartDate {
			continue
		}
		if filter.EndDate != "" && record.SaleDate > filter.EndDate {
			continue
		}
		records = append(records, record)
	}
	sort.Slice(records, func(i, j int) bool { return records[i].Timestamp < records[j].Timestamp })
	return records, nil
}

func (s *Store) DeleteSaleByTimestamp(_ context.Context, timestamp string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sales, timestamp)
	return nil
}

func (s *Store) ClearLiveSales(_ context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var removed int64
	for key, record := range s.sales {
		if record.Status == domain.StatusLive {
			delete(s.sales, key)
			removed++
		}
	}
	return removed, nil
}

func (s *Store) ArchiveLiveSales(_ context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var archived int64
	for key, record := range s.sales {
		if record.Status == domain.StatusLive {
			record.Status = domain.StatusArchived
			s.sales[key] = record
			archived++
		}
	}
	return archived, nil
}

func (s *Store) ListArchivedSaleDates(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[string]struct{})
	for _, record := range s.sales {
		if record.Status == domain.StatusArchived {
			seen[record.SaleDate] = struct{}{}
		}
	}
	dates := make([]string, 0, len(seen))
	for date := range seen {
		dates = append(dates, date)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(dates)))
	return dates, nil
}

func (s *Store) DeleteArchivedSalesByDate(_ context.Context, date string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for key, record := range s.sales {
		if record.Status == domain.StatusArchived && record.SaleDate == date {
			delete(s.sales, key)
		}
	}
	return nil
}

func (s *Store) TopItems(_ context.Context, channel string, limit int, metric string) ([]domain.ItemRank, error) {
	if limit < 1 {
		limit = 5
	}
	if metric != "" && metric != domain.TopItemsByOrders && metric != domain.TopItemsByQuantity {
		return nil, store.ErrInvalidRecord
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	byItem := make(map[string]*domain.ItemRank)
	for _, record := range s.sales {
		if record.Channel != channel {
			continue
		}
		rank, ok := byItem[record.ItemName]
		if !ok {
			rank = &domain.ItemRank{ItemName: record.ItemName}
			byItem[record.ItemName] = rank
		}
		rank.Orders++
		rank.Quantity += int64(record.Quantity)
	}

	ranks := make([]domain.ItemRank, 0, len(byItem))
	for _, rank := range byItem {
		ranks = append(ranks, *rank)
	}
	sort.Slice(ranks, func(i, j int) bool {
		if metric == domain.TopItemsByQuantity {
			return ranks[i].Quantity > ranks[j].Quantity
		}
		return ranks[i].Orders > ranks[j].Orders
	})
	if len(ranks) > limit {
		ranks = ranks[:limit]
	}
	return ranks, nil
}

func (s *Store) AppendExpense(_ context.Context, record domain.ExpenseRecord) (*domain.ExpenseRecord, error) {
	if err := store.ValidateExpense(record); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	record.ID = s.nextExpenseID
	s.nextExpenseID++
	s.expenses[record.ID] = record
	return &record, nil
}

func (s *Store) QueryExpenses(_ context.Context, filter store.ExpenseFilter) ([]domain.ExpenseRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	records := make([]domain.ExpenseRecord, 0, len(s.expenses))
	for _, record := range s.expenses {
		if filter.Status != "" && record.Status != filter.Status {
			continue
		}
		if filter.StartDate != "" && record.ExpenseDate < filter.StartDate {
			continue
		}
		if filter.EndDate != "" && record.ExpenseDate > filter.EndDate {
			continue
		}
		records = append(records, record)
	}
	sort.Slice(records, func(i, j int) bool { return records[i].ID < records[j].ID })
	return records, nil
}

func (s *Store) DeleteExpenseByID(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.expenses, id)
	return nil
}

func (s *Store) ClearLiveExpenses(_ context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var removed int64
	for id, record := range s.expenses {
		if record.Status == domain.StatusLive {
			delete(s.expenses, id)
			removed++
		}
	}
	return removed, nil
}

func (s *Store) ArchiveLiveExpenses(_ context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var archived int64
	for id, record := range s.expenses {
		if record.Status == domain.StatusLive {
			record.Status = domain.StatusArchived
			s.expenses[id] = record
			archived++
		}
	}
	return archived, nil
}

func (s *Store) DeleteArchivedExpensesByDate(_ context.Context, date string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, record := range s.expenses {
		if record.Status == domain.StatusArchived && record.ExpenseDate == date {
			delete(s.expenses, id)
		}
	}
	return nil
}
