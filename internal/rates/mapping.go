package rates

import "strings"

var externalIDs = map[string]string{
	"BTC":  "bitcoin",
	"ETH":  "ethereum",
	"USDT": "tether",
	"USDC": "usd-coin",
	"BNB":  "binancecoin",
	"XRP":  "ripple",
	"ADA":  "cardano",
	"SOL":  "solana",
	"DOGE": "dogecoin",
	"DOT":  "polkadot",
	"USD":  "usd",
	"EUR":  "eur",
}

// MapCurrencyID translates an exchange currency code into the identifier the
// external price source uses. Codes without an entry are lower-cased.
func MapCurrencyID(code string) string {
	upper := strings.ToUpper(strings.TrimSpace(code))
	if id, ok := externalIDs[upper]; ok {
		return id
	}
	return strings.ToLower(upper)
}
