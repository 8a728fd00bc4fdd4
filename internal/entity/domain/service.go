package domain

import "context"

// Service is the feature module that owns non-settlement entity fields.
type Service interface {
	RecordSale(ctx context.Context, req RecordSaleRequest) (Sale, error)
	RecordServiceJob(ctx context.Context, req RecordServiceJobRequest) (ServiceJob, error)
	CompleteServiceJob(ctx context.Context, id string, req CompleteServiceJobRequest) (ServiceJob, error)
	AddStock(ctx context.Context, req AddStockRequest) (StockItem, error)
	SellStock(ctx context.Context, id string, qty float64) (StockItem, error)
	RecordExpense(ctx context.Context, req RecordExpenseRequest) (Expense, error)

	ListSales(ctx context.Context) []Sale
	ListServiceJobs(ctx context.Context) []ServiceJob
	ListStockItems(ctx context.Context) []StockItem
	ListExpenses(ctx context.Context) []Expense
}

type RecordSaleRequest struct {
	Date        string   `json:"date"`
	Customer    string   `json:"customer"`
	Product     string   `json:"product"`
	Qty         float64  `json:"qty"`
	Price       float64  `json:"price"`
	Total       float64  `json:"total"`
	Profit      *float64 `json:"profit"`
	Status      string   `json:"status"`
	StockItemID string   `json:"stock_item_id"`
}

type RecordServiceJobRequest struct {
	DateIn   string  `json:"date_in"`
	Customer string  `json:"customer"`
	Phone    string  `json:"phone"`
	Item     string  `json:"item"`
	Model    string  `json:"model"`
	Problem  string  `json:"problem"`
	Advance  float64 `json:"advance"`
}

type CompleteServiceJobRequest struct {
	DateOut string `json:"date_out"`
	// Returned marks the job Failed/Returned and refunds the advance.
	Returned bool    `json:"returned"`
	Charge   float64 `json:"charge"`
	Invest   float64 `json:"invest"`
	Paid     float64 `json:"paid"`
}

type AddStockRequest struct {
	Date  string  `json:"date"`
	Type  string  `json:"type"`
	Name  string  `json:"name"`
	Qty   float64 `json:"qty"`
	Cost  float64 `json:"cost"`
	Limit float64 `json:"limit"`
}

type RecordExpenseRequest struct {
	Date     string  `json:"date"`
	Category string  `json:"category"`
	Amount   float64 `json:"amount"`
	Note     string  `json:"note"`
}
