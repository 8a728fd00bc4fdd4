package domain

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/smallbiznis/shopbooks/pkg/coerce"
)

// CollectionKey is the persistence key of the ledger.
const CollectionKey = "collections"

// DefaultSource is written on entries submitted without a source.
const DefaultSource = "Unknown"

// Kind classifies what a collection settles. It is attached when the entry is
// created and never derived from display text afterwards.
type Kind string

const (
	KindSalesCredit           Kind = "sales_credit"
	KindServiceCredit         Kind = "service_credit"
	KindNetProfitPool         Kind = "net_profit_pool"
	KindStockInvestmentPool   Kind = "stock_investment_pool"
	KindServiceInvestmentPool Kind = "service_investment_pool"
	KindOther                 Kind = "other"
)

var kinds = []Kind{
	KindSalesCredit,
	KindServiceCredit,
	KindNetProfitPool,
	KindStockInvestmentPool,
	KindServiceInvestmentPool,
	KindOther,
}

func ParseKind(s string) (Kind, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, k := range kinds {
		if string(k) == s {
			return k, true
		}
	}
	return "", false
}

// IsPool reports whether the kind settles a pending pool rather than a credit.
func (k Kind) IsPool() bool {
	switch k {
	case KindNetProfitPool, KindStockInvestmentPool, KindServiceInvestmentPool:
		return true
	default:
		return false
	}
}

// Domain groups kinds for the legacy best-match removal.
type Domain string

const (
	DomainSales   Domain = "sales"
	DomainService Domain = "service"
)

func ParseDomain(s string) (Domain, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "sales", "sale":
		return DomainSales, true
	case "service", "services":
		return DomainService, true
	default:
		return "", false
	}
}

// ClassifySource maps legacy free-text sources to a kind. It only runs for
// entries loaded from storage without a kind.
func ClassifySource(source string) Kind {
	s := strings.ToLower(source)
	switch {
	case strings.Contains(s, "net profit"):
		return KindNetProfitPool
	case strings.Contains(s, "stock") && strings.Contains(s, "invest"):
		return KindStockInvestmentPool
	case strings.Contains(s, "service") && strings.Contains(s, "invest"):
		return KindServiceInvestmentPool
	case strings.Contains(s, "sale") && strings.Contains(s, "collec"):
		return KindSalesCredit
	case strings.Contains(s, "service") && strings.Contains(s, "collec"):
		return KindServiceCredit
	default:
		return KindOther
	}
}

// InDomain reports whether the entry belongs to d. Unclassified entries fall
// back to a keyword match on the source.
func (e CollectionEntry) InDomain(d Domain) bool {
	switch e.Kind {
	case KindSalesCredit:
		return d == DomainSales
	case KindServiceCredit:
		return d == DomainService
	case KindOther:
		s := strings.ToLower(e.Source)
		if d == DomainSales {
			return strings.Contains(s, "sale")
		}
		return strings.Contains(s, "service")
	default:
		return false
	}
}

type CollectionEntry struct {
	ID       string        `json:"id"`
	Date     string        `json:"date"`
	Source   string        `json:"source"`
	Kind     Kind          `json:"kind"`
	Details  string        `json:"details"`
	Amount   coerce.Number `json:"amount"`
	Customer string        `json:"customer,omitempty"`
	Product  string        `json:"product,omitempty"`
	Qty      coerce.Number `json:"qty,omitempty"`
	Price    coerce.Number `json:"price,omitempty"`
	Item     string        `json:"item,omitempty"`
	Model    string        `json:"model,omitempty"`
	// RefID links the entry to the sale or service job it settled.
	RefID string `json:"refId,omitempty"`
}

// Key is the composite uniqueness key among live entries.
func (e CollectionEntry) Key() DedupKey {
	return DedupKey{
		Date:    e.Date,
		Source:  e.Source,
		Details: e.Details,
		Amount:  strconv.FormatFloat(e.Amount.Float(), 'f', -1, 64),
	}
}

type DedupKey struct {
	Date    string
	Source  string
	Details string
	Amount  string
}

// UnmarshalJSON tolerates garbled stored entries and legacy kinds.
func (e *CollectionEntry) UnmarshalJSON(b []byte) error {
	var aux struct {
		ID       json.RawMessage `json:"id"`
		Date     coerce.Text     `json:"date"`
		Source   coerce.Text     `json:"source"`
		Kind     coerce.Text     `json:"kind"`
		Details  coerce.Text     `json:"details"`
		Amount   coerce.Number   `json:"amount"`
		Customer coerce.Text     `json:"customer"`
		Product  coerce.Text     `json:"product"`
		Qty      coerce.Number   `json:"qty"`
		Price    coerce.Number   `json:"price"`
		Item     coerce.Text     `json:"item"`
		Model    coerce.Text     `json:"model"`
		RefID    json.RawMessage `json:"refId"`
	}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	kind, _ := ParseKind(aux.Kind.String())
	*e = CollectionEntry{
		ID:       coerce.ID(aux.ID),
		Date:     aux.Date.String(),
		Source:   aux.Source.String(),
		Kind:     kind,
		Details:  aux.Details.String(),
		Amount:   aux.Amount,
		Customer: aux.Customer.String(),
		Product:  aux.Product.String(),
		Qty:      aux.Qty,
		Price:    aux.Price,
		Item:     aux.Item.String(),
		Model:    aux.Model.String(),
		RefID:    coerce.ID(aux.RefID),
	}
	return nil
}

// Candidate is a collection submitted for the ledger. Zero fields take defaults.
type Candidate struct {
	ID       string        `json:"id"`
	Date     string        `json:"date"`
	Source   string        `json:"source"`
	Kind     Kind          `json:"kind"`
	Details  string        `json:"details"`
	Amount   coerce.Number `json:"amount"`
	Customer string        `json:"customer"`
	Product  string        `json:"product"`
	Qty      coerce.Number `json:"qty"`
	Price    coerce.Number `json:"price"`
	Item     string        `json:"item"`
	Model    string        `json:"model"`
	RefID    string        `json:"refId"`
}

// MatchQuery locates a ledger entry from a derived row that lacks an id.
type MatchQuery struct {
	Date   string
	Amount float64
	Domain Domain
}
