package classify

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/spendtrail/spendtrail/internal/model"
)

// debitKeywords are payment-rail and point-of-sale terms.
var debitKeywords = [...]string{
	"upi", "gpay", "googlepay", "phonepe", "paytm", "pos",
	"merchant", "qr", "scan", "payu", "bill", "fastag",
}

var creditKeywords = [...]string{
	"refund", "reversal", "credited", "salary", "interest", "int", "reimb",
}

// row is what the override rules look at.
type row struct {
	desc       string // lower-cased
	withdrawal decimal.Decimal
	deposit    decimal.Decimal
}

// rule returns a direction and true when it applies to r.
type rule func(r row) (model.Direction, bool)

// overrides run in order after the column baseline; a later match replaces
// an earlier one.
var overrides = [...]rule{
	debitKeywordRule,
	creditKeywordRule,
	upiDepositRule,
}

// Classify picks the amount from the withdrawal/deposit columns and then
// settles the direction through the keyword overrides. A zero amount means
// neither column carried a value.
func Classify(description string, withdrawal, deposit decimal.Decimal) (decimal.Decimal, model.Direction) {
	amount := decimal.Zero
	direction := model.Debit

	switch {
	case withdrawal.IsPositive():
		amount, direction = withdrawal, model.Debit
	case deposit.IsPositive():
		amount, direction = deposit, model.Credit
	}

	r := row{
		desc:       strings.ToLower(description),
		withdrawal: withdrawal,
		deposit:    deposit,
	}
	for _, apply := range overrides {
		if d, ok := apply(r); ok {
			direction = d
		}
	}
	return amount, direction
}

func debitKeywordRule(r row) (model.Direction, bool) {
	if containsAny(r.desc, debitKeywords[:]) {
		return model.Debit, true
	}
	return "", false
}

func creditKeywordRule(r row) (model.Direction, bool) {
	if containsAny(r.desc, creditKeywords[:]) {
		return model.Credit, true
	}
	return "", false
}

// upiDepositRule handles statements that list UPI payments under the
// deposit column.
func upiDepositRule(r row) (model.Direction, bool) {
	if r.deposit.IsPositive() && r.withdrawal.IsZero() && strings.Contains(r.desc, "upi") {
		return model.Debit, true
	}
	return "", false
}

func containsAny(s string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(s, k) {
			return true
		}
	}
	return false
}
