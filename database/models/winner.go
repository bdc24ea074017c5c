package models

// Winner is one winner of a lottery draw. Position is the winner's index
// in the draw, which keeps repeated addresses in one draw distinct.
type Winner struct {
	Address     string `json:"address" bson:"address"`
	PrizeWei    string `json:"prize_wei" bson:"prize_wei"`
	LotteryType uint8  `json:"lottery_type" bson:"lottery_type"`
	RoundID     string `json:"round_id" bson:"round_id"`
	Position    int    `json:"position" bson:"position"`
	Date        int64  `json:"date" bson:"date"`
	TxHash      string `json:"tx_hash" bson:"tx_hash"`
}
