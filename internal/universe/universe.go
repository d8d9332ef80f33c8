package universe

import "strings"

// Asset identifies one tracked asset: canonical base-asset symbol plus the
// aliases some venues list it under.
type Asset struct {
	Name    string
	Symbol  string
	Aliases []string
}

// Keys returns the normalized base-asset symbols this asset may appear
// under in an exchange snapshot (canonical symbol first).
func (a Asset) Keys() []string {
	keys := make([]string, 0, 1+len(a.Aliases))
	keys = append(keys, strings.ToUpper(strings.TrimSpace(a.Symbol)))
	for _, alias := range a.Aliases {
		keys = append(keys, strings.ToUpper(strings.TrimSpace(alias)))
	}
	return keys
}

// topAssets is the fixed 30-asset target universe. Order matters: it is the
// tie-break order for equal ranking scores.
var topAssets = []Asset{
	{Name: "Bitcoin", Symbol: "BTC", Aliases: []string{"XBT"}},
	{Name: "Ethereum", Symbol: "ETH"},
	{Name: "Tether", Symbol: "USDT"},
	{Name: "BNB", Symbol: "BNB"},
	{Name: "XRP", Symbol: "XRP"},
	{Name: "USD Coin", Symbol: "USDC"},
	{Name: "Solana", Symbol: "SOL"},
	{Name: "TRON", Symbol: "TRX"},
	{Name: "Dogecoin", Symbol: "DOGE", Aliases: []string{"XDG"}},
	{Name: "Cardano", Symbol: "ADA"},
	{Name: "Bitcoin Cash", Symbol: "BCH"},
	{Name: "Chainlink", Symbol: "LINK"},
	{Name: "Monero", Symbol: "XMR"},
	{Name: "Hyperliquid", Symbol: "HYPE"},
	{Name: "UNUS SED LEO", Symbol: "LEO"},
	{Name: "Zcash", Symbol: "ZEC"},
	{Name: "Stellar", Symbol: "XLM"},
	{Name: "Ethena USDe", Symbol: "USDE"},
	{Name: "Litecoin", Symbol: "LTC"},
	{Name: "Sui", Symbol: "SUI"},
	{Name: "Dai", Symbol: "DAI"},
	{Name: "Avalanche", Symbol: "AVAX"},
	{Name: "Hedera", Symbol: "HBAR"},
	{Name: "Shiba Inu", Symbol: "SHIB"},
	{Name: "Uniswap", Symbol: "UNI"},
	{Name: "PayPal USD", Symbol: "PYUSD"},
	{Name: "Mantle", Symbol: "MNT"},
	{Name: "Cronos", Symbol: "CRO"},
	{Name: "Canton Coin", Symbol: "CC"},
	{Name: "Toncoin", Symbol: "TON"},
}

// TopAssets returns the target universe in ranking tie-break order.
func TopAssets() []Asset {
	assets := make([]Asset, len(topAssets))
	copy(assets, topAssets)
	return assets
}
