package universe

import "testing"

func TestTopAssetsShape(t *testing.T) {
	assets := TopAssets()
	if len(assets) != 30 {
		t.Fatalf("universe should hold 30 assets, got %d", len(assets))
	}
	if assets[0].Symbol != "BTC" {
		t.Fatalf("BTC should lead the universe, got %s", assets[0].Symbol)
	}

	seen := make(map[string]bool, len(assets))
	for _, asset := range assets {
		if asset.Name == "" || asset.Symbol == "" {
			t.Fatalf("asset with empty name or symbol: %+v", asset)
		}
		if seen[asset.Symbol] {
			t.Fatalf("duplicate symbol %s", asset.Symbol)
		}
		seen[asset.Symbol] = true
	}
}

func TestTopAssetsReturnsCopy(t *testing.T) {
	first := TopAssets()
	first[0].Symbol = "MUTATED"

	second := TopAssets()
	if second[0].Symbol != "BTC" {
		t.Fatal("TopAssets must not expose the internal slice")
	}
}

func TestAssetKeysIncludeAliases(t *testing.T) {
	asset := Asset{Name: "Bitcoin", Symbol: "btc", Aliases: []string{" xbt "}}
	keys := asset.Keys()

	if len(keys) != 2 {
		t.Fatalf("expected 2 keys, got %d", len(keys))
	}
	if keys[0] != "BTC" || keys[1] != "XBT" {
		t.Fatalf("keys should be normalized, got %v", keys)
	}
}

func TestKrakenAliasesPresent(t *testing.T) {
	var btc, doge *Asset
	for i, asset := range topAssets {
		switch asset.Symbol {
		case "BTC":
			btc = &topAssets[i]
		case "DOGE":
			doge = &topAssets[i]
		}
	}

	if btc == nil || len(btc.Aliases) == 0 || btc.Aliases[0] != "XBT" {
		t.Fatal("BTC must carry the XBT alias")
	}
	if doge == nil || len(doge.Aliases) == 0 || doge.Aliases[0] != "XDG" {
		t.Fatal("DOGE must carry the XDG alias")
	}
}
