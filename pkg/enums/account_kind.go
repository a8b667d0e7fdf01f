package enums

import "fmt"

// AccountKind classifies a ledger account. The kind decides which side of a
// journal line increases the account balance.
type AccountKind string

const (
	AccountKindAsset     AccountKind = "asset"
	AccountKindLiability AccountKind = "liability"
	AccountKindEquity    AccountKind = "equity"
	AccountKindIncome    AccountKind = "income"
	AccountKindExpense   AccountKind = "expense"
)

var validAccountKinds = []AccountKind{
	AccountKindAsset,
	AccountKindLiability,
	AccountKindEquity,
	AccountKindIncome,
	AccountKindExpense,
}

// debitNormalKinds lists the kinds whose balance grows on the debit side.
var debitNormalKinds = map[AccountKind]bool{
	AccountKindAsset:   true,
	AccountKindExpense: true,
}

// IsValid reports whether the value matches a known account kind.
func (k AccountKind) IsValid() bool {
	for _, candidate := range validAccountKinds {
		if candidate == k {
			return true
		}
	}
	return false
}

// DebitNormal reports whether debits increase balances for this kind.
// Liability, equity and income accounts increase on the credit side.
func (k AccountKind) DebitNormal() bool {
	return debitNormalKinds[k]
}

// ParseAccountKind converts raw input into an AccountKind.
func ParseAccountKind(value string) (AccountKind, error) {
	for _, candidate := range validAccountKinds {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid account kind %q", value)
}
