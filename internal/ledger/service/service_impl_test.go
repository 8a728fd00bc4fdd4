package service

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/shopbooks/internal/clock"
	"github.com/smallbiznis/shopbooks/internal/config"
	"github.com/smallbiznis/shopbooks/internal/ledger/domain"
	"github.com/smallbiznis/shopbooks/pkg/coerce"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestLedger(t *testing.T) *Service {
	t.Helper()
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	return New(Params{
		Log:    zap.NewNop(),
		Clock:  clock.NewFakeClock(time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)),
		GenID:  node,
		Config: config.NewStaticBooksConfigHolder(config.DefaultBooksConfig()),
	})
}

func TestAddNormalizesCandidate(t *testing.T) {
	l := newTestLedger(t)

	entry, err := l.Add(domain.Candidate{Amount: 250, Details: "cash drawer"})
	require.NoError(t, err)

	assert.NotEmpty(t, entry.ID)
	assert.Equal(t, "2024-05-01", entry.Date)
	assert.Equal(t, domain.DefaultSource, entry.Source)
	assert.Equal(t, domain.KindOther, entry.Kind)
	assert.Equal(t, 1, l.Len())
}

func TestAddRejects(t *testing.T) {
	tests := []struct {
		name string
		c    domain.Candidate
		want error
	}{
		{name: "zero amount", c: domain.Candidate{Source: "Net Profit (Collected)"}, want: domain.ErrZeroAmount},
		{name: "unknown kind", c: domain.Candidate{Amount: 5, Kind: "barter"}, want: domain.ErrInvalidKind},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := newTestLedger(t)
			_, err := l.Add(tt.c)
			assert.ErrorIs(t, err, tt.want)
			assert.Equal(t, 0, l.Len())
		})
	}
}

func TestAddIsIdempotentOnCompositeKey(t *testing.T) {
	l := newTestLedger(t)
	c := domain.Candidate{Date: "2024-05-01", Source: "Net Profit (Collected)", Details: "week 18", Amount: 1000}

	first, err := l.Add(c)
	require.NoError(t, err)
	assert.Equal(t, domain.KindNetProfitPool, first.Kind)

	_, err = l.Add(c)
	assert.ErrorIs(t, err, domain.ErrDuplicateEntry)
	assert.Equal(t, 1, l.Len())

	c.Amount = 1000.5
	_, err = l.Add(c)
	require.NoError(t, err)
	assert.Equal(t, 2, l.Len())
}

func TestAcceptsDoesNotMutate(t *testing.T) {
	l := newTestLedger(t)
	c := domain.Candidate{Source: "Sales (Credit Collected)", Details: "Ana", Amount: 500}

	assert.True(t, l.Accepts(c))
	assert.Equal(t, 0, l.Len())

	_, err := l.Add(c)
	require.NoError(t, err)
	assert.False(t, l.Accepts(c))
	assert.False(t, l.Accepts(domain.Candidate{Details: "nothing"}))
}

func TestEntriesAreMostRecentFirst(t *testing.T) {
	l := newTestLedger(t)
	for _, details := range []string{"a", "b", "c"} {
		_, err := l.Add(domain.Candidate{Details: details, Amount: 1})
		require.NoError(t, err)
	}

	entries := l.Entries()
	require.Len(t, entries, 3)
	assert.Equal(t, "c", entries[0].Details)
	assert.Equal(t, "a", entries[2].Details)
}

func TestRemoveFreesKey(t *testing.T) {
	l := newTestLedger(t)
	c := domain.Candidate{Source: "Sales (Credit Collected)", Details: "Ana", Amount: 500}
	entry, err := l.Add(c)
	require.NoError(t, err)

	removed, err := l.Remove(entry.ID)
	require.NoError(t, err)
	assert.Equal(t, entry.ID, removed.ID)

	_, err = l.Remove(entry.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = l.Add(c)
	assert.NoError(t, err)
}

func TestRemoveBestMatch(t *testing.T) {
	l := newTestLedger(t)
	_, err := l.Add(domain.Candidate{Date: "2024-05-01", Kind: domain.KindServiceCredit, Source: "Service (Credit Collected)", Details: "job 0001", Amount: 300})
	require.NoError(t, err)
	sale, err := l.Add(domain.Candidate{Date: "2024-05-01", Kind: domain.KindSalesCredit, Source: "Sales (Credit Collected)", Details: "Ana", Amount: 300})
	require.NoError(t, err)

	_, err = l.RemoveBestMatch(domain.MatchQuery{Date: "2024-05-02", Amount: 300, Domain: domain.DomainSales})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = l.RemoveBestMatch(domain.MatchQuery{Date: "2024-05-01", Amount: 300.001, Domain: domain.DomainSales})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	removed, err := l.RemoveBestMatch(domain.MatchQuery{Date: "2024-05-01", Amount: 300.00001, Domain: domain.DomainSales})
	require.NoError(t, err)
	assert.Equal(t, sale.ID, removed.ID)
	require.Equal(t, 1, l.Len())
	assert.Equal(t, domain.KindServiceCredit, l.Entries()[0].Kind)
}

func TestRemoveBestMatchPicksMostRecentOnCollision(t *testing.T) {
	l := newTestLedger(t)
	older, err := l.Add(domain.Candidate{Date: "2024-05-01", Kind: domain.KindSalesCredit, Details: "Ana", Amount: 50})
	require.NoError(t, err)
	newer, err := l.Add(domain.Candidate{Date: "2024-05-01", Kind: domain.KindSalesCredit, Details: "Ben", Amount: 50})
	require.NoError(t, err)

	removed, err := l.RemoveBestMatch(domain.MatchQuery{Date: "2024-05-01", Amount: 50, Domain: domain.DomainSales})
	require.NoError(t, err)
	assert.Equal(t, newer.ID, removed.ID)

	_, ok := l.Get(older.ID)
	assert.True(t, ok)
}

func TestLoadClassifiesLegacyEntries(t *testing.T) {
	raw := []byte(`[
		{"date":"2024-04-30","source":"Service Investment (Collected)","details":"april","amount":"120"},
		{"id":"x1","date":"2024-04-30","source":"Sales (Credit Collected)","details":"Ana","amount":500},
		{"id":"x1","date":"2024-04-29","source":"service collection","details":"0007","amount":80},
		{"date":"2024-04-28","source":42,"details":"?","amount":"oops"}
	]`)
	entries := coerce.DecodeRecords[domain.CollectionEntry](raw)
	require.Len(t, entries, 4)

	l := newTestLedger(t)
	l.Load(entries)
	got := l.Entries()
	require.Len(t, got, 4)

	assert.NotEmpty(t, got[0].ID)
	assert.Equal(t, domain.KindServiceInvestmentPool, got[0].Kind)
	assert.Equal(t, "x1", got[1].ID)
	assert.Equal(t, domain.KindSalesCredit, got[1].Kind)
	assert.NotEqual(t, "x1", got[2].ID)
	assert.Equal(t, domain.KindServiceCredit, got[2].Kind)
	assert.Equal(t, domain.DefaultSource, got[3].Source)
	assert.Equal(t, coerce.Number(0), got[3].Amount)

	_, err := l.Add(domain.Candidate{Date: "2024-04-30", Source: "Sales (Credit Collected)", Details: "Ana", Amount: 500})
	assert.ErrorIs(t, err, domain.ErrDuplicateEntry)
}

func TestEntryJSONKeepsKind(t *testing.T) {
	l := newTestLedger(t)
	entry, err := l.Add(domain.Candidate{Kind: domain.KindStockInvestmentPool, Source: "Stock Investment (Collected)", Amount: 75})
	require.NoError(t, err)

	b, err := json.Marshal(entry)
	require.NoError(t, err)

	var back domain.CollectionEntry
	require.NoError(t, json.Unmarshal(b, &back))
	assert.Equal(t, entry, back)
}
