package market

import "testing"

func TestNormalizeCode(t *testing.T) {
	cases := map[string]string{
		"600519.SZ": "600519",
		"600519.SH": "600519",
		"600519":    "600519",
		"000001.sz": "000001",
		"830799.BJ": "830799",
		" 600036.SH ": "600036",
		"": "",
	}
	for in, want := range cases {
		if got := NormalizeCode(in); got != want {
			t.Errorf("NormalizeCode(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestNormalizeCodeSuffixEquivalence(t *testing.T) {
	if NormalizeCode("600519.SZ") != NormalizeCode("600519") {
		t.Fatal("suffixed and bare codes must normalize identically")
	}
	if NormalizeCode("000001.SZ") != NormalizeCode("000001.SH") {
		t.Fatal("all market suffixes must strip to the same bare code")
	}
}

func TestMarketType(t *testing.T) {
	cases := map[string]string{
		"600519.SH": "SH",
		"000001.SZ": "SZ",
		"830799.BJ": "BJ",
		"600519":    "SH",
		"300750":    "SZ",
		"430047":    "BJ",
		"":          "",
	}
	for in, want := range cases {
		if got := MarketType(in); got != want {
			t.Errorf("MarketType(%q) = %q, want %q", in, got, want)
		}
	}
}
