package memory

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/Chiwu19/Yumm-Yard-Tracker/internal/domain"
	"github.com/Chiwu19/Yumm-Yard-Tracker/internal/store"
)

func sale(ts, item string, qty int, price float64, channel, date, status string) domain.SaleRecord {
	return domain.SaleRecord{
		Timestamp:    ts,
		ItemName:     item,
		Quantity:     qty,
		PricePerItem: price,
		TotalSale:    float64(qty) * price,
		Channel:      channel,
		SaleDate:     date,
		Status:       status,
	}
}

func TestAppendSaleRejectsDuplicateTimestamp(t *testing.T) {
	s := New()
	ctx := context.Background()

	record := sale("2024-01-01 10:00:00.000001", "Tea", 1, 20, domain.ChannelOffline, "2024-01-01", domain.StatusLive)
	if err := s.AppendSale(ctx, record); err != nil {
		t.Fatalf("append failed: %v", err)
	}
	if err := s.AppendSale(ctx, record); !errors.Is(err, store.ErrDuplicateTimestamp) {
		t.Fatalf("expected ErrDuplicateTimestamp, got %v", err)
	}
}

func TestAppendSaleRejectsInconsistentTotal(t *testing.T) {
	s := New()

	record := sale("2024-01-01 10:00:00.000001", "Tea", 2, 20, domain.ChannelOffline, "2024-01-01", domain.StatusLive)
	record.TotalSale = 39 // not quantity * price
	if err := s.AppendSale(context.Background(), record); !errors.Is(err, store.ErrInvalidRecord) {
		t.Fatalf("expected ErrInvalidRecord, got %v", err)
	}
}

func TestQuerySalesFilters(t *testing.T) {
	s := New()
	ctx := context.Background()

	records := []domain.SaleRecord{
		sale("2024-01-01 10:00:00.000001", "Tea", 1, 20, domain.ChannelOffline, "2024-01-01", domain.StatusArchived),
		sale("2024-01-02 10:00:00.000001", "Tea", 1, 20, domain.ChannelOffline, "2024-01-02", domain.StatusArchived),
		sale("2024-01-03 10:00:00.000001", "Tea", 1, 20, domain.ChannelOnline, "2024-01-03", domain.StatusLive),
	}
	for _, record := range records {
		if err := s.AppendSale(ctx, record); err != nil {
			t.Fatalf("append failed: %v", err)
		}
	}

	live, err := s.QuerySales(ctx, store.SaleFilter{Status: domain.StatusLive})
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if len(live) != 1 || live[0].Channel != domain.ChannelOnline {
		t.Fatalf("unexpected live result: %+v", live)
	}

	ranged, err := s.QuerySales(ctx, store.SaleFilter{
		Status:    domain.StatusArchived,
		StartDate: "2024-01-02",
		EndDate:   "2024-01-02",
	})
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if len(ranged) != 1 || ranged[0].SaleDate != "2024-01-02" {
		t.Fatalf("unexpected ranged result: %+v", ranged)
	}

	all, err := s.QuerySales(ctx, store.SaleFilter{})
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("wildcard query should return everything, got %d", len(all))
	}
}

func TestLiveAndArchivedStayDisjoint(t *testing.T) {
	s := New()
	ctx := context.Background()

	for i, status := range []string{domain.StatusLive, domain.StatusLive, domain.StatusArchived} {
		record := sale(
			fmt.Sprintf("2024-01-01 10:00:00.00000%d", i+1),
			"Tea", 1, 20, domain.ChannelOffline, "2024-01-01", status,
		)
		if err := s.AppendSale(ctx, record); err != nil {
			t.Fatalf("append failed: %v", err)
		}
	}

	assertDisjoint := func() {
		t.Helper()
		live, err := s.QuerySales(ctx, store.SaleFilter{Status: domain.StatusLive})
		if err != nil {
			t.Fatalf("query failed: %v", err)
		}
		archived, err := s.QuerySales(ctx, store.SaleFilter{Status: domain.StatusArchived})
		if err != nil {
			t.Fatalf("query failed: %v", err)
		}
		seen := map[string]struct{}{}
		for _, record := range live {
			seen[record.Timestamp] = struct{}{}
		}
		for _, record := range archived {
			if _, dup := seen[record.Timestamp]; dup {
				t.Fatalf("record %s appears in both views", record.Timestamp)
			}
		}
	}

	assertDisjoint()

	archived, err := s.ArchiveLiveSales(ctx)
	if err != nil {
		t.Fatalf("archive failed: %v", err)
	}
	if archived != 2 {
		t.Fatalf("expected 2 archived, got %d", archived)
	}
	assertDisjoint()

	// Archival changes status only; nothing is deleted.
	all, err := s.QuerySales(ctx, store.SaleFilter{})
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected all 3 records to survive archival, got %d", len(all))
	}
	for _, record := range all {
		if record.Status != domain.StatusArchived {
			t.Fatalf("expected every record archived, got %+v", record)
		}
	}
}

func TestArchivedDatesDescending(t *testing.T) {
	s := New()
	ctx := context.Background()

	for i, date := range []string{"2024-01-02", "2024-03-01", "2024-01-15"} {
		record := sale(
			fmt.Sprintf("%s 10:00:00.00000%d", date, i+1),
			"Tea", 1, 20, domain.ChannelOffline, date, domain.StatusArchived,
		)
		if err := s.AppendSale(ctx, record); err != nil {
			t.Fatalf("append failed: %v", err)
		}
	}

	dates, err := s.ListArchivedSaleDates(ctx)
	if err != nil {
		t.Fatalf("list dates failed: %v", err)
	}
	want := []string{"2024-03-01", "2024-01-15", "2024-01-02"}
	if len(dates) != len(want) {
		t.Fatalf("expected %d dates, got %v", len(want), dates)
	}
	for i := range want {
		if dates[i] != want[i] {
			t.Fatalf("expected descending order %v, got %v", want, dates)
		}
	}
}

func TestExpenseLifecycle(t *testing.T) {
	s := New()
	ctx := context.Background()

	first, err := s.AppendExpense(ctx, domain.ExpenseRecord{
		ExpenseDate: "2024-01-01",
		Amount:      50,
		Description: "Gas refill",
		Status:      domain.StatusLive,
	})
	if err != nil {
		t.Fatalf("append failed: %v", err)
	}
	second, err := s.AppendExpense(ctx, domain.ExpenseRecord{
		ExpenseDate: "2024-01-01",
		Amount:      120,
		Status:      domain.StatusLive,
	})
	if err != nil {
		t.Fatalf("append failed: %v", err)
	}
	if second.ID <= first.ID {
		t.Fatalf("expected increasing ids, got %d then %d", first.ID, second.ID)
	}

	archived, err := s.ArchiveLiveExpenses(ctx)
	if err != nil {
		t.Fatalf("archive failed: %v", err)
	}
	if archived != 2 {
		t.Fatalf("expected 2 archived, got %d", archived)
	}

	if err := s.DeleteArchivedExpensesByDate(ctx, "2024-01-01"); err != nil {
		t.Fatalf("delete by date failed: %v", err)
	}
	remaining, err := s.QueryExpenses(ctx, store.ExpenseFilter{})
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if len(remaining) != 0 {
		t.Fatalf("expected empty ledger, got %+v", remaining)
	}
}
