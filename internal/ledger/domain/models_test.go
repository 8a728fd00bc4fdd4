package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifySource(t *testing.T) {
	cases := map[string]Kind{
		"Sales (Credit Collected)":       KindSalesCredit,
		"credit sale collection":         KindSalesCredit,
		"Service (Credit Collected)":     KindServiceCredit,
		"Service Investment (Collected)": KindServiceInvestmentPool,
		"Stock Investment (Collected)":   KindStockInvestmentPool,
		"Net Profit (Collected)":         KindNetProfitPool,
		"Unknown":                        KindOther,
		"":                               KindOther,
	}
	for source, want := range cases {
		assert.Equal(t, want, ClassifySource(source), source)
	}
}

func TestInDomain(t *testing.T) {
	assert.True(t, CollectionEntry{Kind: KindSalesCredit}.InDomain(DomainSales))
	assert.False(t, CollectionEntry{Kind: KindSalesCredit}.InDomain(DomainService))
	assert.False(t, CollectionEntry{Kind: KindNetProfitPool, Source: "sales net profit"}.InDomain(DomainSales))
	assert.True(t, CollectionEntry{Kind: KindOther, Source: "Old SALES row"}.InDomain(DomainSales))
}

func TestKeyFormatsAmount(t *testing.T) {
	a := CollectionEntry{Date: "d", Source: "s", Details: "x", Amount: 1000}
	b := CollectionEntry{Date: "d", Source: "s", Details: "x", Amount: 1000.0}
	assert.Equal(t, a.Key(), b.Key())
	assert.Equal(t, "1000", a.Key().Amount)
}
