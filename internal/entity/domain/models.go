package domain

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/smallbiznis/shopbooks/pkg/coerce"
)

// Number and Text are the lenient field types shared with stored payloads.
type (
	Number = coerce.Number
	Text   = coerce.Text
)

// Collection keys used for persistence.
const (
	CollectionSales    = "sales"
	CollectionServices = "services"
	CollectionStock    = "stock"
	CollectionExpenses = "expenses"
)

type SaleStatus string

const (
	SaleStatusPaid   SaleStatus = "Paid"
	SaleStatusCredit SaleStatus = "Credit"
)

// ParseSaleStatus canonicalises s. Unknown values are kept verbatim and never
// classify as credit.
func ParseSaleStatus(s string) SaleStatus {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "paid":
		return SaleStatusPaid
	case "credit":
		return SaleStatusCredit
	default:
		return SaleStatus(strings.TrimSpace(s))
	}
}

func (s *SaleStatus) UnmarshalJSON(b []byte) error {
	*s = ParseSaleStatus(coerce.CoerceText(b))
	return nil
}

func (s SaleStatus) IsCredit() bool { return s == SaleStatusCredit }

type ServiceStatus string

const (
	ServiceStatusPending   ServiceStatus = "Pending"
	ServiceStatusCompleted ServiceStatus = "Completed"
	ServiceStatusReturned  ServiceStatus = "Failed/Returned"
	ServiceStatusCollected ServiceStatus = "collected"

	// ServiceStatusCredit only appears on legacy records that stored the
	// credit flag in status instead of creditStatus.
	ServiceStatusCredit ServiceStatus = "Credit"
)

func ParseServiceStatus(s string) ServiceStatus {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "pending":
		return ServiceStatusPending
	case "completed":
		return ServiceStatusCompleted
	case "failed/returned", "failed", "returned":
		return ServiceStatusReturned
	case "collected":
		return ServiceStatusCollected
	case "credit":
		return ServiceStatusCredit
	default:
		return ServiceStatus(strings.TrimSpace(s))
	}
}

func (s *ServiceStatus) UnmarshalJSON(b []byte) error {
	*s = ParseServiceStatus(coerce.CoerceText(b))
	return nil
}

// Done reports whether the job's invest and profit count toward totals.
func (s ServiceStatus) Done() bool {
	return s == ServiceStatusCompleted || s == ServiceStatusCollected
}

type CreditStatus string

const (
	CreditStatusNone   CreditStatus = ""
	CreditStatusCredit CreditStatus = "Credit"
	CreditStatusPaid   CreditStatus = "Paid"
)

func ParseCreditStatus(s string) CreditStatus {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "credit":
		return CreditStatusCredit
	case "paid":
		return CreditStatusPaid
	default:
		return CreditStatus(strings.TrimSpace(s))
	}
}

func (s *CreditStatus) UnmarshalJSON(b []byte) error {
	*s = ParseCreditStatus(coerce.CoerceText(b))
	return nil
}

type Sale struct {
	ID                string     `json:"id"`
	Date              Text       `json:"date"`
	Customer          Text       `json:"customer"`
	Product           Text       `json:"product"`
	Qty               Number     `json:"qty"`
	Price             Number     `json:"price"`
	Total             Number     `json:"total"`
	Profit            Number     `json:"profit"`
	Status            SaleStatus `json:"status"`
	StockItemID       string     `json:"stockItemId,omitempty"`
	CollectedAmount   *Number    `json:"collectedAmount,omitempty"`
	CreditCollectedOn Text       `json:"creditCollectedOn,omitempty"`
}

// Amount is the sale total, derived from qty×price when no explicit total is set.
func (s Sale) Amount() Number {
	if s.Total != 0 {
		return s.Total
	}
	return s.Qty * s.Price
}

// UnmarshalJSON accepts the id as either a string or a number.
func (s *Sale) UnmarshalJSON(b []byte) error {
	type plain Sale
	aux := struct {
		*plain
		ID json.RawMessage `json:"id"`
	}{plain: (*plain)(s)}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	s.ID = coerce.ID(aux.ID)
	return nil
}

type ServiceJob struct {
	ID                    string        `json:"id"`
	JobNum                int64         `json:"jobNum"`
	JobID                 string        `json:"jobId"`
	DateIn                Text          `json:"date_in"`
	DateOut               Text          `json:"date_out"`
	Customer              Text          `json:"customer"`
	Phone                 Text          `json:"phone"`
	Item                  Text          `json:"item"`
	Model                 Text          `json:"model"`
	Problem               Text          `json:"problem"`
	Advance               Number        `json:"advance"`
	Invest                Number        `json:"invest"`
	Paid                  Number        `json:"paid"`
	Remaining             Number        `json:"remaining"`
	Profit                Number        `json:"profit"`
	ReturnedAdvance       Number        `json:"returnedAdvance"`
	Status                ServiceStatus `json:"status"`
	CreditStatus          CreditStatus  `json:"creditStatus,omitempty"`
	CreditCollectedAmount *Number       `json:"creditCollectedAmount,omitempty"`
	CreditCollectedOn     Text          `json:"creditCollectedOn,omitempty"`
}

// OnCredit reports whether the job still has an outstanding credit balance.
func (j ServiceJob) OnCredit() bool {
	return j.CreditStatus == CreditStatusCredit || j.Status == ServiceStatusCredit
}

func (j *ServiceJob) UnmarshalJSON(b []byte) error {
	type plain ServiceJob
	aux := struct {
		*plain
		ID     json.RawMessage `json:"id"`
		JobNum Number          `json:"jobNum"`
		JobID  json.RawMessage `json:"jobId"`
	}{plain: (*plain)(j)}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	j.ID = coerce.ID(aux.ID)
	j.JobNum = int64(aux.JobNum)
	j.JobID = coerce.ID(aux.JobID)
	if j.JobID == "" && j.JobNum > 0 {
		j.JobID = FormatJobID(j.JobNum)
	}
	return nil
}

// FormatJobID renders a job number as the zero-padded display id.
func FormatJobID(num int64) string {
	return fmt.Sprintf("%04d", num)
}

type StockItem struct {
	ID     string `json:"id"`
	Date   Text   `json:"date"`
	Type   Text   `json:"type"`
	Name   Text   `json:"name"`
	Qty    Number `json:"qty"`
	Remain Number `json:"remain"`
	Sold   Number `json:"sold"`
	Cost   Number `json:"cost"`
	Limit  Number `json:"limit"`
}

// Investment is the realized stock investment, sold×cost.
func (s StockItem) Investment() Number {
	return s.Sold * s.Cost
}

// LowStock reports whether the remaining quantity reached the alert limit.
func (s StockItem) LowStock() bool {
	return s.Limit > 0 && s.Remain <= s.Limit
}

func (s *StockItem) UnmarshalJSON(b []byte) error {
	type plain StockItem
	aux := struct {
		*plain
		ID json.RawMessage `json:"id"`
	}{plain: (*plain)(s)}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	s.ID = coerce.ID(aux.ID)
	return nil
}

type Expense struct {
	ID       string `json:"id"`
	Date     Text   `json:"date"`
	Category Text   `json:"category"`
	Amount   Number `json:"amount"`
	Note     Text   `json:"note"`
}

func (e *Expense) UnmarshalJSON(b []byte) error {
	type plain Expense
	aux := struct {
		*plain
		ID json.RawMessage `json:"id"`
	}{plain: (*plain)(e)}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	e.ID = coerce.ID(aux.ID)
	return nil
}
