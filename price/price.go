// Package price converts USD entry prices into wei at the current
// ETH/USD rate.
package price

import (
	"math/big"
)

const (
	// DefaultBufferBps is the upward buffer applied to quotes, in basis points.
	DefaultBufferBps = 100
	bpsDenominator   = 10_000
)

var weiPerEther = new(big.Rat).SetInt(big.NewInt(1_000_000_000_000_000_000))

// Source supplies the current USD price of one ETH.
type Source interface {
	USDPerETH() *big.Rat
}

// Fixed is a Source with a constant rate.
type Fixed struct {
	rate *big.Rat
}

func NewFixed(usdPerETH *big.Rat) *Fixed {
	return &Fixed{rate: new(big.Rat).Set(usdPerETH)}
}

func (f *Fixed) USDPerETH() *big.Rat {
	return new(big.Rat).Set(f.rate)
}

func exactWei(usd, usdPerETH *big.Rat) *big.Rat {
	if usdPerETH == nil || usdPerETH.Sign() <= 0 {
		return new(big.Rat)
	}
	eth := new(big.Rat).Quo(usd, usdPerETH)
	return eth.Mul(eth, weiPerEther)
}

func floor(r *big.Rat) *big.Int {
	return new(big.Int).Quo(r.Num(), r.Denom())
}

// ToWei converts usd to wei at usdPerETH, rounding down.
func ToWei(usd, usdPerETH *big.Rat) *big.Int {
	return floor(exactWei(usd, usdPerETH))
}

// BufferedWei converts usd to wei and raises it by bufferBps basis points,
// rounding down once at the end.
func BufferedWei(usd, usdPerETH *big.Rat, bufferBps int64) *big.Int {
	wei := exactWei(usd, usdPerETH)
	wei.Mul(wei, big.NewRat(bpsDenominator+bufferBps, bpsDenominator))
	return floor(wei)
}

// TicketsForAmount returns how many whole tickets amountWei pays for at
// perTicketWei. A zero price buys nothing.
func TicketsForAmount(amountWei, perTicketWei *big.Int) int64 {
	if perTicketWei == nil || perTicketWei.Sign() <= 0 || amountWei == nil || amountWei.Sign() <= 0 {
		return 0
	}
	n := new(big.Int).Quo(amountWei, perTicketWei)
	if !n.IsInt64() {
		return 0
	}
	return n.Int64()
}

// ParseEther parses a decimal ETH amount such as "0.001" into wei.
func ParseEther(s string) (*big.Int, bool) {
	r, ok := new(big.Rat).SetString(s)
	if !ok || r.Sign() < 0 {
		return nil, false
	}
	return floor(r.Mul(r, weiPerEther)), true
}
