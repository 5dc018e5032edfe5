package classify

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/spendtrail/spendtrail/internal/model"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name       string
		desc       string
		withdrawal string
		deposit    string
		wantAmount string
		wantDir    model.Direction
	}{
		{"withdrawal plain", "ATM CASH WDL", "1500", "0", "1500", model.Debit},
		{"deposit plain", "NEFT FROM ACME", "0", "2500", "2500", model.Credit},
		{"withdrawal wins over deposit", "TRANSFER", "100", "200", "100", model.Debit},
		{"no amount", "OPENING BALANCE", "0", "0", "0", model.Debit},
		{"debit keyword flips deposit", "GPAY-SWIGGY", "0", "300", "300", model.Debit},
		{"paytm deposit", "PAYTM WALLET", "0", "50", "50", model.Debit},
		{"credit keyword flips withdrawal", "REFUND AMAZON", "120", "0", "120", model.Credit},
		{"salary deposit", "SALARY CREDIT", "0", "50000", "50000", model.Credit},
		{"credit beats debit", "POS REVERSAL", "0", "799", "799", model.Credit},
		{"bill refund", "BILL REFUND", "250", "0", "250", model.Credit},
		{"upi deposit forced debit", "UPI-AMAZON-PAY", "0", "500", "500", model.Debit},
		{"upi deposit beats credit keyword", "UPI REFUND FROM FLIPKART", "0", "999", "999", model.Debit},
		{"upi withdrawal with refund stays credit", "UPI REFUND", "10", "0", "10", model.Credit},
		{"upi with both columns", "UPI REFUND", "10", "20", "10", model.Credit},
		{"case insensitive", "Interest Paid", "0", "12.34", "12.34", model.Credit},
		{"int substring matches", "PRINT SHOP", "45", "0", "45", model.Credit},
		{"pos substring in deposit", "CASH DEPOSIT", "0", "1000", "1000", model.Debit},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			amount, dir := Classify(tt.desc, dec(tt.withdrawal), dec(tt.deposit))
			assert.True(t, amount.Equal(dec(tt.wantAmount)), "amount = %s, want %s", amount, tt.wantAmount)
			assert.Equal(t, tt.wantDir, dir)
		})
	}
}

func TestClassify_WithdrawalWithoutKeywordsIsDebit(t *testing.T) {
	for _, desc := range []string{"ATM", "CHQ 000123", "NEFT TO LANDLORD", "ACH D- LIC"} {
		for _, w := range []string{"0.01", "10", "99999.99"} {
			amount, dir := Classify(desc, dec(w), dec("0"))
			assert.Equal(t, model.Debit, dir, "%s / %s", desc, w)
			assert.True(t, amount.Equal(dec(w)))
		}
	}
}

func TestClassify_UPIDepositAlwaysDebit(t *testing.T) {
	for _, desc := range []string{"UPI", "upi salary", "UPI/REFUND/REVERSAL/CREDITED", "xxupixx interest"} {
		_, dir := Classify(desc, decimal.Zero, dec("1"))
		assert.Equal(t, model.Debit, dir, desc)
	}
}

func TestClassify_BothKeywordSetsCredit(t *testing.T) {
	for _, desc := range []string{"QR REFUND", "MERCHANT REVERSAL", "FASTAG CREDITED", "SCAN REIMB"} {
		_, dir := Classify(desc, dec("100"), decimal.Zero)
		assert.Equal(t, model.Credit, dir, desc)

		_, dir = Classify(desc, decimal.Zero, dec("100"))
		assert.Equal(t, model.Credit, dir, desc)
	}
}
