// Package creditview rebuilds the credit-collected views from the ledger.
// The views are caches: Build is pure and is rerun after every ledger change.
package creditview

import (
	"github.com/smallbiznis/shopbooks/internal/ledger/domain"
)

type SalesRow struct {
	ColID    string  `json:"__colId"`
	Date     string  `json:"date"`
	Customer string  `json:"customer"`
	Product  string  `json:"product"`
	Qty      float64 `json:"qty"`
	Price    float64 `json:"price"`
	Amount   float64 `json:"amount"`
	Details  string  `json:"details"`
	RefID    string  `json:"refId,omitempty"`
}

type ServiceRow struct {
	ColID    string  `json:"__colId"`
	Date     string  `json:"date"`
	Customer string  `json:"customer"`
	Item     string  `json:"item"`
	Model    string  `json:"model"`
	Amount   float64 `json:"amount"`
	Details  string  `json:"details"`
	RefID    string  `json:"refId,omitempty"`
}

type Views struct {
	CreditSalesCollected   []SalesRow   `json:"creditSalesCollected"`
	CreditServiceCollected []ServiceRow `json:"creditServiceCollected"`
}

// Build projects every sales and service credit entry into a display row that
// carries the originating entry id. Ledger order is kept.
func Build(entries []domain.CollectionEntry) Views {
	views := Views{
		CreditSalesCollected:   []SalesRow{},
		CreditServiceCollected: []ServiceRow{},
	}
	for _, e := range entries {
		switch e.Kind {
		case domain.KindSalesCredit:
			views.CreditSalesCollected = append(views.CreditSalesCollected, SalesRow{
				ColID:    e.ID,
				Date:     e.Date,
				Customer: e.Customer,
				Product:  e.Product,
				Qty:      e.Qty.Float(),
				Price:    e.Price.Float(),
				Amount:   e.Amount.Float(),
				Details:  e.Details,
				RefID:    e.RefID,
			})
		case domain.KindServiceCredit:
			views.CreditServiceCollected = append(views.CreditServiceCollected, ServiceRow{
				ColID:    e.ID,
				Date:     e.Date,
				Customer: e.Customer,
				Item:     e.Item,
				Model:    e.Model,
				Amount:   e.Amount.Float(),
				Details:  e.Details,
				RefID:    e.RefID,
			})
		}
	}
	return views
}
