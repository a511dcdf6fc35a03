// Package fetch provides the live market data client. It wraps the
// DexScreener search API behind a token bucket rate limiter and a circuit
// breaker, since the upstream is shared and implicitly rate-limited.
package fetch

import (
	"context"
	"errors"
	"strconv"
)

// ErrUpstream marks any live-fetch failure: network error, timeout, non-200
// response, or an open circuit. Callers degrade the affected fields to
// unknown; they must never coerce the failure to a zero value.
var ErrUpstream = errors.New("market data upstream unavailable")

// ErrNoPairs is returned when the upstream answered but listed no market
// pairs for the contract.
var ErrNoPairs = errors.New("no market pairs for contract")

// Fetcher retrieves fresh market pair records for a contract address.
// Callers consume the first pair of a successful response as authoritative.
type Fetcher interface {
	FetchByContract(ctx context.Context, contract string) ([]Pair, error)
}

// Token identifies one side of a market pair.
type Token struct {
	Address string `json:"address"`
	Name    string `json:"name"`
	Symbol  string `json:"symbol"`
}

// Liquidity is the pooled liquidity of a pair.
type Liquidity struct {
	Usd   *float64 `json:"usd"`
	Base  float64  `json:"base"`
	Quote float64  `json:"quote"`
}

// Pair is one market pair row from the search response. PriceUsd arrives as
// a decimal string on the wire.
type Pair struct {
	ChainID     string             `json:"chainId"`
	DexID       string             `json:"dexId"`
	URL         string             `json:"url"`
	PairAddress string             `json:"pairAddress"`
	BaseToken   Token              `json:"baseToken"`
	QuoteToken  Token              `json:"quoteToken"`
	PriceUsd    string             `json:"priceUsd"`
	MarketCap   *float64           `json:"marketCap"`
	FDV         *float64           `json:"fdv"`
	Liquidity   *Liquidity         `json:"liquidity"`
	Volume      map[string]float64 `json:"volume"`
	PriceChange map[string]float64 `json:"priceChange"`
}

// PriceUsdFloat parses the string-typed price. Returns nil when the field is
// absent or unparseable: unknown, not zero.
func (p Pair) PriceUsdFloat() *float64 {
	if p.PriceUsd == "" {
		return nil
	}
	v, err := strconv.ParseFloat(p.PriceUsd, 64)
	if err != nil {
		return nil
	}
	return &v
}
