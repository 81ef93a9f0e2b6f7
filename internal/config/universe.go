package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// DefaultSymbolUniverse is the baked-in ~90 symbol perpetual-futures
// universe. Entries are base symbols (e.g. "BTC"); every venue client and
// the WS ingest shard append their own quote-pair suffix, so the universe
// itself never carries one. It ships in the binary so the process never
// depends on an external fetch just to know what to subscribe to.
var DefaultSymbolUniverse = []string{
	"BTC", "ETH", "BNB", "SOL", "XRP", "DOGE", "ADA",
	"AVAX", "TRX", "LINK", "DOT", "MATIC", "TON", "SHIB",
	"LTC", "BCH", "NEAR", "UNI", "ATOM", "ETC", "XLM",
	"APT", "FIL", "ARB", "OP", "IMX", "HBAR", "VET",
	"MKR", "INJ", "RNDR", "GRT", "AAVE", "ALGO", "QNT",
	"SAND", "MANA", "EGLD", "THETA", "FTM", "AXS", "XTZ",
	"EOS", "FLOW", "CHZ", "KAVA", "GALA", "CRV", "COMP",
	"SNX", "1INCH", "ZEC", "DASH", "ENJ", "BAT", "ZIL",
	"WAVES", "KSM", "ANKR", "OMG", "SUSHI", "YFI", "RSR",
	"CELO", "IOTA", "ICX", "ONT", "STX", "RUNE", "LDO",
	"DYDX", "GMX", "APE", "OCEAN", "MASK", "CFX", "ROSE",
	"WOO", "JOE", "SUI", "SEI", "TIA", "PYTH", "JUP",
	"WLD", "STRK", "ORDI", "PEPE", "BONK", "FLOKI", "WIF",
	"NOT", "PENDLE",
}

// loadSymbolsFile overrides the baked universe from a YAML file of the form
// `symbols: [BTC, ETH, ...]`, base symbols like DefaultSymbolUniverse.
func loadSymbolsFile(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read symbols file: %w", err)
	}
	var doc struct {
		Symbols []string `yaml:"symbols"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse symbols file: %w", err)
	}
	if len(doc.Symbols) == 0 {
		return nil, fmt.Errorf("symbols file %s has no symbols", path)
	}
	return doc.Symbols, nil
}
