package valuation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		code   string
		want   string
		wantOK bool
	}{
		{"600000", "SH600000", true},
		{"510300", "SH510300", true},
		{"900901", "SH900901", true},
		{"000001", "SZ000001", true},
		{"300750", "SZ300750", true},
		{"00700", "HK00700", true},
		{"AAPL", "USAAPL", true},
		{"aapl", "USAAPL", true},
		{" TSLA ", "USTSLA", true},
		{"sh600000", "SH600000", true},
		{"hk00700", "HK00700", true},
		{"12345678", "", false},
		{"", "", false},
		{"ABCDEF", "", false},
		{"1234", "", false},
		{"BRK.B", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			got, ok := Normalize(tt.code)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMarketOf(t *testing.T) {
	assert.Equal(t, MarketSH, MarketOf("SH000300"))
	assert.Equal(t, MarketHK, MarketOf("hkHSI"))
	assert.Equal(t, MarketUS, MarketOf("USINX"))
	assert.Equal(t, "", MarketOf("XX123"))
	assert.Equal(t, "", MarketOf("SH"))
}
