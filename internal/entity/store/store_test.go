package store

import (
	"testing"

	"github.com/smallbiznis/shopbooks/internal/entity/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSettleSaleOnlyTouchesSettlementFields(t *testing.T) {
	s := New()
	s.PutSale(domain.Sale{ID: "s1", Customer: "Ana", Product: "Charger", Total: 500, Profit: 120, Status: domain.SaleStatusCredit})

	updated, err := s.SettleSale("s1", domain.SaleSettlement{
		Status:            domain.SaleStatusPaid,
		CollectedAmount:   500,
		CreditCollectedOn: "2024-05-02",
	})
	require.NoError(t, err)

	assert.Equal(t, domain.SaleStatusPaid, updated.Status)
	require.NotNil(t, updated.CollectedAmount)
	assert.Equal(t, domain.Number(500), *updated.CollectedAmount)
	assert.Equal(t, domain.Text("Ana"), updated.Customer)
	assert.Equal(t, domain.Number(120), updated.Profit)

	_, err = s.SettleSale("missing", domain.SaleSettlement{})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestListingKeepsInsertionOrder(t *testing.T) {
	s := New()
	s.PutExpense(domain.Expense{ID: "b", Amount: 1})
	s.PutExpense(domain.Expense{ID: "a", Amount: 2})
	s.PutExpense(domain.Expense{ID: "b", Amount: 3})

	got := s.Expenses()
	require.Len(t, got, 2)
	assert.Equal(t, "b", got[0].ID)
	assert.Equal(t, domain.Number(3), got[0].Amount)
	assert.Equal(t, "a", got[1].ID)
}

func TestLoadAssignsLegacyIDs(t *testing.T) {
	s := New()
	s.LoadSales([]domain.Sale{{Total: 10}, {ID: "x", Total: 20}, {Total: 30}})

	got := s.Sales()
	require.Len(t, got, 3)
	assert.Equal(t, "sales-legacy-1", got[0].ID)
	assert.Equal(t, "x", got[1].ID)
	assert.Equal(t, "sales-legacy-3", got[2].ID)
}

func TestLoadKeepsRecordsSharingAnID(t *testing.T) {
	s := New()
	reassigned := s.LoadSales([]domain.Sale{
		{ID: "1700000000000", Total: 100, Profit: 40, Status: domain.SaleStatusPaid},
		{ID: "1700000000000", Total: 200, Profit: 70, Status: domain.SaleStatusPaid},
		{ID: "sales-legacy-2", Total: 50, Profit: 5, Status: domain.SaleStatusPaid},
	})
	assert.Equal(t, 2, reassigned)

	got := s.Sales()
	require.Len(t, got, 3)
	assert.Equal(t, "1700000000000", got[0].ID)
	assert.Equal(t, domain.Number(40), got[0].Profit)
	assert.Equal(t, "sales-legacy-2", got[1].ID)
	assert.Equal(t, domain.Number(70), got[1].Profit)
	assert.NotEqual(t, "sales-legacy-2", got[2].ID)
	assert.NotEqual(t, "1700000000000", got[2].ID)
	assert.Equal(t, domain.Number(5), got[2].Profit)

	var profit domain.Number
	for _, sale := range got {
		profit += sale.Profit
	}
	assert.Equal(t, domain.Number(115), profit)
}

func TestNextJobNum(t *testing.T) {
	s := New()
	assert.Equal(t, int64(1), s.NextJobNum())

	s.PutServiceJob(domain.ServiceJob{ID: "j1", JobNum: 7})
	s.PutServiceJob(domain.ServiceJob{ID: "j2", JobNum: 3})
	assert.Equal(t, int64(8), s.NextJobNum())
}
