package ingest

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spendtrail/spendtrail/internal/model"
)

// stubResolver labels by description and records every call.
type stubResolver struct {
	mu     sync.Mutex
	labels map[string]model.Category
	calls  []string
}

func (s *stubResolver) Resolve(_ context.Context, description string, _ decimal.Decimal) model.Category {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, description)
	if c, ok := s.labels[description]; ok {
		return c
	}
	return model.CategoryOther
}

func (s *stubResolver) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

func TestConvert_Accepts(t *testing.T) {
	res := &stubResolver{labels: map[string]model.Category{"SWIGGY ORDER": model.CategoryFood}}
	c := NewConverter(res)

	txn, skip := c.Convert(context.Background(), []string{"15/01/2023", "  SWIGGY ORDER  ", "", "₹1,200.50", "0", "8800"}, "user-1")
	require.Equal(t, SkipReason(""), skip)
	assert.Equal(t, "user-1", txn.Owner)
	assert.Equal(t, time.Date(2023, 1, 15, 0, 0, 0, 0, time.UTC), txn.Date)
	assert.Equal(t, "SWIGGY ORDER", txn.Description)
	assert.Equal(t, "1200.50", txn.Amount.StringFixed(2))
	assert.True(t, txn.Amount.Equal(decimal.RequireFromString("1200.5")))
	assert.Equal(t, model.CategoryFood, txn.Category)
	assert.Equal(t, model.Debit, txn.Direction)
	assert.Equal(t, []string{"SWIGGY ORDER"}, res.calls)
}

func TestConvert_SerialDate(t *testing.T) {
	c := NewConverter(&stubResolver{})
	txn, skip := c.Convert(context.Background(), []string{"44927", "NEFT IN", "", "", "100", ""}, "u")
	require.Equal(t, SkipReason(""), skip)
	assert.Equal(t, time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC), txn.Date)
	assert.Equal(t, model.Credit, txn.Direction)
}

func TestConvert_Skips(t *testing.T) {
	tests := []struct {
		name string
		row  []string
		want SkipReason
	}{
		{"nil row", nil, SkipShortRow},
		{"five cells", []string{"01/01/2023", "TEA", "", "10", "0"}, SkipShortRow},
		{"bad date", []string{"Opening", "TEA", "", "10", "0", "90"}, SkipNoDate},
		{"empty date", []string{"", "TEA", "", "10", "0", "90"}, SkipNoDate},
		{"small number date", []string{"123", "TEA", "", "10", "0", "90"}, SkipNoDate},
		{"blank description", []string{"01/01/2023", "   ", "", "10", "0", "90"}, SkipNoDescription},
		{"no amounts", []string{"01/01/2023", "TEA", "", "0", "0", "90"}, SkipNoAmount},
		{"unparseable amounts", []string{"01/01/2023", "TEA", "", "abc", "-", "90"}, SkipNoAmount},
		{"negative withdrawal", []string{"01/01/2023", "TEA", "", "-10", "", "90"}, SkipNoAmount},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := &stubResolver{}
			txn, skip := NewConverter(res).Convert(context.Background(), tt.row, "u")
			assert.Equal(t, tt.want, skip)
			assert.Equal(t, model.Transaction{}, txn)
			assert.Zero(t, res.callCount(), "skipped rows must not reach the resolver")
		})
	}
}

func TestConvert_BalanceIgnored(t *testing.T) {
	c := NewConverter(&stubResolver{})
	a, _ := c.Convert(context.Background(), []string{"01/01/2023", "TEA", "", "10", "", "999999"}, "u")
	b, _ := c.Convert(context.Background(), []string{"01/01/2023", "TEA", "", "10", "", "garbage"}, "u")
	assert.Equal(t, a, b)
}

func TestConvert_ExtraColumns(t *testing.T) {
	c := NewConverter(&stubResolver{})
	txn, skip := c.Convert(context.Background(), []string{"01/01/2023", "TEA", "", "10", "", "90", "extra", "more"}, "u")
	require.Equal(t, SkipReason(""), skip)
	assert.Equal(t, "10", txn.Amount.String())
}
