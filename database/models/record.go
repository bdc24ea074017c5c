package models

// Record is a history entry of the bound account.
type Record struct {
	Account   string `json:"account" bson:"account"`
	Type      string `json:"type" bson:"type"` // "Spin", "Claim" or a lottery name
	AmountWei string `json:"amount_wei" bson:"amount_wei"`
	Date      int64  `json:"date" bson:"date"`
	TxHash    string `json:"tx_hash" bson:"tx_hash"`
}
