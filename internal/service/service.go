package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/Chiwu19/Yumm-Yard-Tracker/internal/cache"
	"github.com/Chiwu19/Yumm-Yard-Tracker/internal/domain"
	"github.com/Chiwu19/Yumm-Yard-Tracker/internal/order"
	"github.com/Chiwu19/Yumm-Yard-Tracker/internal/salekey"
	"github.com/Chiwu19/Yumm-Yard-Tracker/internal/store"
)

var ErrItemNotOnMenu = errors.New("item not on the channel menu")

// Service is the tracker core: it owns the sales and expense ledgers, the
// order commit path, and the end-of-day archival cutover. Reads of today's
// live sales go through a read-through cache; the store stays authoritative
// and every mutation invalidates the affected channels.
type Service struct {
	repo      store.Repository
	liveCache cache.LiveSalesCache
	keys      *salekey.Generator
	cacheTTL  time.Duration
	closeMu   sync.Mutex

	orderMu sync.Mutex
	orders  map[string]*order.Builder
}

func New(repo store.Repository, liveCache cache.LiveSalesCache, cacheTTL time.Duration) *Service {
	if liveCache == nil {
		liveCache = cache.NoopLiveSalesCache{}
	}
	if cacheTTL <= 0 {
		cacheTTL = 30 * time.Second
	}

	return &Service{
		repo:      repo,
		liveCache: liveCache,
		keys:      salekey.NewGenerator(),
		cacheTTL:  cacheTTL,
		orders:    make(map[string]*order.Builder),
	}
}

// WithKeyGenerator swaps the timestamp key source. Tests use it to pin the
// clock.
func (s *Service) WithKeyGenerator(keys *salekey.Generator) *Service {
	s.keys = keys
	return s
}

// --- Menu catalog ---

func (s *Service) GetMenu(ctx context.Context, channel string) ([]domain.MenuItem, error) {
	if !domain.ValidChannel(channel) {
		return nil, store.ErrInvalidRecord
	}
	return s.repo.ListMenu(ctx, channel)
}

func (s *Service) UpsertMenuItem(ctx context.Context, req domain.MenuUpsertRequest) (domain.MenuItem, error) {
	req.ItemName = strings.TrimSpace(req.ItemName)
	if req.ItemName == "" || !domain.ValidChannel(req.Channel) || req.Price < 0 {
		return domain.MenuItem{}, store.ErrInvalidRecord
	}

	item := domain.MenuItem{ItemName: req.ItemName, Channel: req.Channel, Price: req.Price}
	if err := s.repo.UpsertMenuItem(ctx, item); err != nil {
		return domain.MenuItem{}, err
	}
	return item, nil
}

func (s *Service) DeleteMenuItem(ctx context.Context, itemName string, channel string) error {
	if !domain.ValidChannel(channel) {
		return store.ErrInvalidRecord
	}
	return s.repo.DeleteMenuItem(ctx, itemName, channel)
}

// --- Sales ledger ---

// LogSale records one live sale line. The unit price is captured from the
// menu at log time, so a later menu edit never rewrites history.
func (s *Service) LogSale(ctx context.Context, req domain.LogSaleRequest) (domain.SaleRecord, error) {
	req.ItemName = strings.TrimSpace(req.ItemName)
	if req.ItemName == "" || req.Quantity < 1 || !domain.ValidChannel(req.Channel) {
		return domain.SaleRecord{}, store.ErrInvalidRecord
	}

	price, err := s.repo.GetMenuPrice(ctx, req.ItemName, req.Channel)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.SaleRecord{}, ErrItemNotOnMenu
		}
		return domain.SaleRecord{}, err
	}

	record := domain.SaleRecord{
		Timestamp:    s.keys.Next(),
		ItemName:     req.ItemName,
		Quantity:     req.Quantity,
		PricePerItem: price,
		TotalSale:    float64(req.Quantity) * price,
		Channel:      req.Channel,
		SaleDate:     s.keys.Today(),
		Status:       domain.StatusLive,
	}
	if err := s.repo.AppendSale(ctx, record); err != nil {
		return domain.SaleRecord{}, err
	}

	s.invalidateLive(ctx, req.Channel)
	return record, nil
}

// GetLiveSales returns today's live view. With a channel it is served
// read-through from the cache; with no channel it always hits the store.
func (s *Service) GetLiveSales(ctx context.Context, channel string) ([]domain.SaleRecord, error) {
	if channel == "" {
		return s.repo.QuerySales(ctx, store.SaleFilter{Status: domain.StatusLive})
	}
	if !domain.ValidChannel(channel) {
		return nil, store.ErrInvalidRecord
	}

	if cached, ok, err := s.liveCache.Get(ctx, channel); err != nil {
		log.Printf("[service] WARN: live cache read failed for %s: %v", channel, err)
	} else if ok {
		return cached, nil
	}

	records, err := s.repo.QuerySales(ctx, store.SaleFilter{Status: domain.StatusLive, Channel: channel})
	if err != nil {
		return nil, err
	}
	if err := s.liveCache.Set(ctx, channel, records, s.cacheTTL); err != nil {
		log.Printf("[service] WARN: live cache write failed for %s: %v", channel, err)
	}
	return records, nil
}

// DeleteSale removes one sale by its timestamp key. Deleting a sale that is
// already gone succeeds: the caller may be looking at a stale view.
func (s *Service) DeleteSale(ctx context.Context, timestamp string) error {
	if strings.TrimSpace(timestamp) == "" {
		return store.ErrInvalidRecord
	}
	if err := s.repo.DeleteSaleByTimestamp(ctx, timestamp); err != nil {
		return err
	}
	s.invalidateLive(ctx, domain.ChannelOffline, domain.ChannelOnline)
	return nil
}

func (s *Service) ClearLiveSales(ctx context.Context) (int64, error) {
	removed, err := s.repo.ClearLiveSales(ctx)
	if err != nil {
		return 0, err
	}
	s.invalidateLive(ctx, domain.ChannelOffline, domain.ChannelOnline)
	return removed, nil
}

// --- Pending order session ---

// pendingOrder returns the channel's builder, creating it on first use.
// Callers must hold orderMu.
func (s *Service) pendingOrder(channel string) *order.Builder {
	b, ok := s.orders[channel]
	if !ok {
		b = order.NewBuilder(channel)
		s.orders[channel] = b
	}
	return b
}

// AddOrderLine adds one unit of the item to the channel's pending order. The
// item must be on the channel's menu right now; the price is looked up again
// at commit time.
func (s *Service) AddOrderLine(ctx context.Context, req domain.OrderLineRequest) ([]domain.OrderLine, error) {
	req.ItemName = strings.TrimSpace(req.ItemName)
	if req.ItemName == "" || !domain.ValidChannel(req.Channel) {
		return nil, store.ErrInvalidRecord
	}

	items, err := s.repo.ListMenu(ctx, req.Channel)
	if err != nil {
		return nil, err
	}
	menu := make(map[string]float64, len(items))
	for _, item := range items {
		menu[item.ItemName] = item.Price
	}

	s.orderMu.Lock()
	defer s.orderMu.Unlock()
	b := s.pendingOrder(req.Channel)
	if err := b.Add(req.ItemName, menu); err != nil {
		if errors.Is(err, order.ErrItemNotOnMenu) {
			return nil, ErrItemNotOnMenu
		}
		return nil, err
	}
	return b.Lines(), nil
}

// RemoveOrderLine drops the item's line from the channel's pending order.
// Removing an item that is not pending is a no-op.
func (s *Service) RemoveOrderLine(channel string, itemName string) ([]domain.OrderLine, error) {
	if !domain.ValidChannel(channel) {
		return nil, store.ErrInvalidRecord
	}

	s.orderMu.Lock()
	defer s.orderMu.Unlock()
	b := s.pendingOrder(channel)
	b.Remove(strings.TrimSpace(itemName))
	return b.Lines(), nil
}

func (s *Service) ClearOrder(channel string) error {
	if !domain.ValidChannel(channel) {
		return store.ErrInvalidRecord
	}

	s.orderMu.Lock()
	defer s.orderMu.Unlock()
	s.pendingOrder(channel).Clear()
	return nil
}

func (s *Service) PendingOrderLines(channel string) ([]domain.OrderLine, error) {
	if !domain.ValidChannel(channel) {
		return nil, store.ErrInvalidRecord
	}

	s.orderMu.Lock()
	defer s.orderMu.Unlock()
	return s.pendingOrder(channel).Lines(), nil
}

// CommitOrder persists one live sale record per order line, looking prices up
// at commit time. With no explicit lines the channel's pending order session
// is committed and cleared. The loop is not one store statement: a mid-loop
// failure leaves the earlier lines written, and the result reports the line
// that failed so the caller can retry the rest. No rollback is attempted;
// lines already written are dropped from the pending session so a retry does
// not duplicate them.
func (s *Service) CommitOrder(ctx context.Context, req domain.CommitOrderRequest) (domain.CommitOrderResult, error) {
	if !domain.ValidChannel(req.Channel) {
		return domain.CommitOrderResult{}, store.ErrInvalidRecord
	}

	fromPending := len(req.Lines) == 0
	if fromPending {
		s.orderMu.Lock()
		req.Lines = s.pendingOrder(req.Channel).Lines()
		s.orderMu.Unlock()
	}
	if len(req.Lines) == 0 {
		return domain.CommitOrderResult{}, order.ErrEmptyOrder
	}
	for _, line := range req.Lines {
		if strings.TrimSpace(line.ItemName) == "" || line.Quantity < 1 {
			return domain.CommitOrderResult{}, store.ErrInvalidRecord
		}
	}

	result := domain.CommitOrderResult{Records: make([]domain.SaleRecord, 0, len(req.Lines))}
	for _, line := range req.Lines {
		record, err := s.LogSale(ctx, domain.LogSaleRequest{
			ItemName: line.ItemName,
			Quantity: line.Quantity,
			Channel:  req.Channel,
		})
		if err != nil {
			failed := line
			result.Failed = &failed
			result.Err = err.Error()
			log.Printf("[service] WARN: order commit stopped after %d of %d lines: %v",
				len(result.Records), len(req.Lines), err)
			if fromPending {
				s.dropCommittedLines(req.Channel, result.Records)
			}
			return result, fmt.Errorf("commit line %q: %w", line.ItemName, err)
		}
		result.Records = append(result.Records, record)
	}

	if fromPending {
		s.orderMu.Lock()
		s.pendingOrder(req.Channel).Clear()
		s.orderMu.Unlock()
	}
	return result, nil
}

// dropCommittedLines removes the lines that made it into the ledger from the
// pending session, leaving the failed line and everything after it for a
// retry.
func (s *Service) dropCommittedLines(channel string, records []domain.SaleRecord) {
	s.orderMu.Lock()
	defer s.orderMu.Unlock()
	b := s.pendingOrder(channel)
	for _, record := range records {
		b.Remove(record.ItemName)
	}
}

// --- Day close ---

// CloseDay archives every live sale, then every live expense. The sales
// update is one bulk statement, so it either applies to all live records or
// none. Expense archival is best-effort: a deployment without a reachable
// expense ledger still closes the day, and the result carries the expense
// error instead of failing the whole operation. The mutex makes the
// confirmed close a single entry point that cannot race a second close.
func (s *Service) CloseDay(ctx context.Context) (domain.DayCloseResult, error) {
	s.closeMu.Lock()
	defer s.closeMu.Unlock()

	salesArchived, err := s.repo.ArchiveLiveSales(ctx)
	if err != nil {
		return domain.DayCloseResult{}, fmt.Errorf("archive live sales: %w", err)
	}

	result := domain.DayCloseResult{SalesArchived: salesArchived}
	expensesArchived, err := s.repo.ArchiveLiveExpenses(ctx)
	if err != nil {
		log.Printf("[service] WARN: expense archival failed after sales archival: %v", err)
		result.ExpenseErr = err.Error()
	} else {
		result.ExpensesArchived = expensesArchived
	}

	s.invalidateLive(ctx, domain.ChannelOffline, domain.ChannelOnline)
	return result, nil
}

// --- Archived history ---

func (s *Service) GetArchivedDates(ctx context.Context) ([]string, error) {
	return s.repo.ListArchivedSaleDates(ctx)
}

func (s *Service) GetArchivedSales(ctx context.Context, date string) ([]domain.SaleRecord, error) {
	if _, err := time.Parse(domain.DateLayout, date); err != nil {
		return nil, store.ErrInvalidRecord
	}
	return s.repo.QuerySales(ctx, store.SaleFilter{
		Status:    domain.StatusArchived,
		StartDate: date,
		EndDate:   date,
	})
}

func (s *Service) DeleteArchivedSales(ctx context.Context, date string) error {
	if _, err := time.Parse(domain.DateLayout, date); err != nil {
		return store.ErrInvalidRecord
	}
	return s.repo.DeleteArchivedSalesByDate(ctx, date)
}

func (s *Service) TopItems(ctx context.Context, channel string, limit int, metric string) ([]domain.ItemRank, error) {
	if !domain.ValidChannel(channel) {
		return nil, store.ErrInvalidRecord
	}
	if metric == "" {
		metric = domain.TopItemsByOrders
	}
	return s.repo.TopItems(ctx, channel, limit, metric)
}

// --- Expense ledger ---

func (s *Service) AddExpense(ctx context.Context, req domain.AddExpenseRequest) (domain.ExpenseRecord, error) {
	if req.Amount < 0 {
		return domain.ExpenseRecord{}, store.ErrInvalidRecord
	}

	record := domain.ExpenseRecord{
		ExpenseDate: s.keys.Today(),
		Amount:      req.Amount,
		Description: strings.TrimSpace(req.Description),
		Status:      domain.StatusLive,
	}
	saved, err := s.repo.AppendExpense(ctx, record)
	if err != nil {
		return domain.ExpenseRecord{}, err
	}
	return *saved, nil
}

func (s *Service) GetLiveExpenses(ctx context.Context) ([]domain.ExpenseRecord, error) {
	return s.repo.QueryExpenses(ctx, store.ExpenseFilter{Status: domain.StatusLive})
}

func (s *Service) GetArchivedExpenses(ctx context.Context, date string) ([]domain.ExpenseRecord, error) {
	if _, err := time.Parse(domain.DateLayout, date); err != nil {
		return nil, store.ErrInvalidRecord
	}
	return s.repo.QueryExpenses(ctx, store.ExpenseFilter{
		Status:    domain.StatusArchived,
		StartDate: date,
		EndDate:   date,
	})
}

func (s *Service) DeleteExpense(ctx context.Context, id int64) error {
	if id < 1 {
		return store.ErrInvalidRecord
	}
	return s.repo.DeleteExpenseByID(ctx, id)
}

func (s *Service) ClearLiveExpenses(ctx context.Context) (int64, error) {
	return s.repo.ClearLiveExpenses(ctx)
}

func (s *Service) DeleteArchivedExpenses(ctx context.Context, date string) error {
	if _, err := time.Parse(domain.DateLayout, date); err != nil {
		return store.ErrInvalidRecord
	}
	return s.repo.DeleteArchivedExpensesByDate(ctx, date)
}

// --- Aggregation (read-only) ---

// RevenueSummary sums today's live ledgers: revenue per channel, live
// expenses, and profit = revenue - expenses. After a day close both live
// views are empty and the summary resets to zero.
func (s *Service) RevenueSummary(ctx context.Context) (domain.RevenueSummary, error) {
	offline, err := s.GetLiveSales(ctx, domain.ChannelOffline)
	if err != nil {
		return domain.RevenueSummary{}, err
	}
	online, err := s.GetLiveSales(ctx, domain.ChannelOnline)
	if err != nil {
		return domain.RevenueSummary{}, err
	}
	expenses, err := s.GetLiveExpenses(ctx)
	if err != nil {
		return domain.RevenueSummary{}, err
	}

	var summary domain.RevenueSummary
	for _, record := range offline {
		summary.OfflineRevenue += record.TotalSale
	}
	for _, record := range online {
		summary.OnlineRevenue += record.TotalSale
	}
	for _, record := range expenses {
		summary.LiveExpenses += record.Amount
	}
	summary.GrandTotal = summary.OfflineRevenue + summary.OnlineRevenue
	summary.Profit = summary.GrandTotal - summary.LiveExpenses
	return summary, nil
}

// SalesBreakdown aggregates archived history over an inclusive date range:
// grand totals, the revenue split by channel, and best sellers by revenue.
func (s *Service) SalesBreakdown(ctx context.Context, startDate, endDate string) (domain.SalesBreakdown, error) {
	if _, err := time.Parse(domain.DateLayout, startDate); err != nil {
		return domain.SalesBreakdown{}, store.ErrInvalidRecord
	}
	if _, err := time.Parse(domain.DateLayout, endDate); err != nil {
		return domain.SalesBreakdown{}, store.ErrInvalidRecord
	}
	if endDate < startDate {
		return domain.SalesBreakdown{}, store.ErrInvalidRecord
	}

	records, err := s.repo.QuerySales(ctx, store.SaleFilter{
		Status:    domain.StatusArchived,
		StartDate: startDate,
		EndDate:   endDate,
	})
	if err != nil {
		return domain.SalesBreakdown{}, err
	}

	breakdown := domain.SalesBreakdown{StartDate: startDate, EndDate: endDate}
	revenueByChannel := make(map[string]float64)
	sellers := make(map[string]*domain.BestSeller)
	for _, record := range records {
		breakdown.TotalRevenue += record.TotalSale
		breakdown.TotalItemsSold += int64(record.Quantity)
		revenueByChannel[record.Channel] += record.TotalSale

		seller, ok := sellers[record.ItemName]
		if !ok {
			seller = &domain.BestSeller{ItemName: record.ItemName}
			sellers[record.ItemName] = seller
		}
		seller.QuantitySold += int64(record.Quantity)
		seller.RevenueGenerated += record.TotalSale
	}

	for channel, revenue := range revenueByChannel {
		breakdown.ByChannel = append(breakdown.ByChannel, domain.ChannelRevenue{Channel: channel, Revenue: revenue})
	}
	sort.Slice(breakdown.ByChannel, func(i, j int) bool {
		return breakdown.ByChannel[i].Channel < breakdown.ByChannel[j].Channel
	})

	for _, seller := range sellers {
		breakdown.BestSellers = append(breakdown.BestSellers, *seller)
	}
	sort.Slice(breakdown.BestSellers, func(i, j int) bool {
		return breakdown.BestSellers[i].RevenueGenerated > breakdown.BestSellers[j].RevenueGenerated
	})
	return breakdown, nil
}

// invalidateLive drops the cached live view for the given channels. Cache
// failures are logged, not returned: the next read falls through to the
// store, which is authoritative.
func (s *Service) invalidateLive(ctx context.Context, channels ...string) {
	if err := s.liveCache.Invalidate(ctx, channels...); err != nil {
		log.Printf("[service] WARN: live cache invalidation failed: %v", err)
	}
}
