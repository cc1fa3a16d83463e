package domain

// Sale and expense records carry a lifecycle status. Records are created
// live, flipped to archived by the end-of-day action, and never transition
// back.
const (
	StatusLive     = "live"
	StatusArchived = "archived"
)

const (
	ChannelOffline = "Offline"
	ChannelOnline  = "Online"
)

// TimestampLayout is the sale key format: lexically sortable, microsecond
// precision. It doubles as the primary key in the sales table, so two sales
// logged in the same microsecond collide.
const TimestampLayout = "2006-01-02 15:04:05.000000"

// DateLayout is the ISO calendar date used for sale_date and expense_date.
const DateLayout = "2006-01-02"

type MenuItem struct {
	ItemName string  `json:"item_name"`
	Channel  string  `json:"channel"`
	Price    float64 `json:"price"`
}

type SaleRecord struct {
	Timestamp    string  `json:"timestamp"`
	ItemName     string  `json:"item_name"`
	Quantity     int     `json:"quantity"`
	PricePerItem float64 `json:"price_per_item"`
	TotalSale    float64 `json:"total_sale"`
	Channel      string  `json:"channel"`
	SaleDate     string  `json:"sale_date"`
	Status       string  `json:"status"`
}

type ExpenseRecord struct {
	ID          int64   `json:"id"`
	ExpenseDate string  `json:"expense_date"`
	Amount      float64 `json:"amount"`
	Description string  `json:"description"`
	Status      string  `json:"status"`
}

type LogSaleRequest struct {
	ItemName string `json:"item_name"`
	Quantity int    `json:"quantity"`
	Channel  string `json:"channel"`
}

type OrderLine struct {
	ItemName string `json:"item_name"`
	Quantity int    `json:"quantity"`
}

// CommitOrderRequest commits an order for a channel. With Lines present the
// given lines are committed directly; with Lines empty the channel's pending
// order session is committed instead.
type CommitOrderRequest struct {
	Channel string      `json:"channel"`
	Lines   []OrderLine `json:"lines,omitempty"`
}

type OrderLineRequest struct {
	Channel  string `json:"channel"`
	ItemName string `json:"item_name"`
}

// CommitOrderResult reports exactly what landed. A mid-loop store failure
// leaves the already-written lines in place; Failed names the line that did
// not make it so the caller can decide whether to retry the rest.
type CommitOrderResult struct {
	Records []SaleRecord `json:"records"`
	Failed  *OrderLine   `json:"failed,omitempty"`
	Err     string       `json:"error,omitempty"`
}

// DayCloseResult reports both ledger outcomes. Expense archival is
// best-effort: when it fails the day close is still considered successful
// and ExpenseErr carries the reason.
type DayCloseResult struct {
	SalesArchived    int64  `json:"sales_archived"`
	ExpensesArchived int64  `json:"expenses_archived"`
	ExpenseErr       string `json:"expense_error,omitempty"`
}

type AddExpenseRequest struct {
	Amount      float64 `json:"amount"`
	Description string  `json:"description"`
}

type MenuUpsertRequest struct {
	ItemName string  `json:"item_name"`
	Channel  string  `json:"channel"`
	Price    float64 `json:"price"`
}

// RevenueSummary is the live view shown at the top of the tracker: today's
// running totals and profit. Derived by summing ledger entries, never stored.
type RevenueSummary struct {
	OfflineRevenue float64 `json:"offline_revenue"`
	OnlineRevenue  float64 `json:"online_revenue"`
	GrandTotal     float64 `json:"grand_total"`
	LiveExpenses   float64 `json:"live_expenses"`
	Profit         float64 `json:"profit"`
}

type ChannelRevenue struct {
	Channel string  `json:"channel"`
	Revenue float64 `json:"revenue"`
}

type BestSeller struct {
	ItemName         string  `json:"item_name"`
	QuantitySold     int64   `json:"quantity_sold"`
	RevenueGenerated float64 `json:"revenue_generated"`
}

// SalesBreakdown aggregates archived history for a date range.
type SalesBreakdown struct {
	StartDate      string           `json:"start_date"`
	EndDate        string           `json:"end_date"`
	TotalRevenue   float64          `json:"total_revenue"`
	TotalItemsSold int64            `json:"total_items_sold"`
	ByChannel      []ChannelRevenue `json:"by_channel"`
	BestSellers    []BestSeller     `json:"best_sellers"`
}

// Metrics accepted by the top-items ranking.
const (
	TopItemsByOrders   = "orders"
	TopItemsByQuantity = "quantity"
)

// ItemRank is one row of the top-items ranking. Popularity is all-time
// (live and archived alike); tie order is whatever the store returns.
type ItemRank struct {
	ItemName string `json:"item_name"`
	Orders   int64  `json:"orders"`
	Quantity int64  `json:"quantity"`
}

func ValidChannel(channel string) bool {
	return channel == ChannelOffline || channel == ChannelOnline
}
