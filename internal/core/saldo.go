package core

import "github.com/shopspring/decimal"

// Saldo computes an account's current balance from its starting balance and
// its history. transactions are the rows on the account itself, including
// outgoing transfers; transfersIn are transfer rows on other accounts whose
// destination is this account.
//
// A transfer's inflow and outflow are recorded from the source account's
// perspective, so at the receiving side the polarity inverts: the source's
// outflow arrives as an inflow here and vice versa.
//
// Scheduled template rows are skipped; only realized transactions count.
// With no history the saldo is the starting balance. Pure read, no side
// effects.
func Saldo(account Account, transactions, transfersIn []Transaction) decimal.Decimal {
	saldo := account.StartingBalance
	for _, t := range transactions {
		if t.Scheduled {
			continue
		}
		saldo = saldo.Sub(t.Outflow).Add(t.Inflow)
	}
	for _, t := range transfersIn {
		if t.Scheduled || !t.IsTransfer() {
			continue
		}
		saldo = saldo.Add(t.Outflow).Sub(t.Inflow)
	}
	return saldo
}
