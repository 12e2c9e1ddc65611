package domain

import "time"

type PaymentMethod string

const (
	MethodCard         PaymentMethod = "card"
	MethodWallet       PaymentMethod = "wallet"
	MethodBankTransfer PaymentMethod = "bank_transfer"
	MethodBNPL         PaymentMethod = "bnpl"
)

// Transaction is the immutable per-request view of one incoming payment.
// Built once when the decision request arrives and never mutated.
type Transaction struct {
	MerchantID      string        `json:"merchant_id"`
	BuyerCountry    string        `json:"buyer_country"`
	MerchantCountry string        `json:"merchant_country"`
	Currency        string        `json:"currency"`
	Amount          float64       `json:"amount"`
	Method          PaymentMethod `json:"method"`
	CardScheme      string        `json:"card_scheme,omitempty"`
	SCARequired     bool          `json:"sca_required"`
	RiskScore       float64       `json:"risk_score"`
	BIN             string        `json:"bin,omitempty"`
	CreatedAt       time.Time     `json:"created_at"`
}

// IsCard reports whether the transaction pays with a card instrument.
func (t Transaction) IsCard() bool {
	return t.Method == MethodCard
}
