package calibration

import (
	"slices"
	"strings"
)

// Coin is a reference coin of known diameter.
type Coin struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	Country    string  `json:"country"`
	DiameterMM float64 `json:"diameter_mm"`
}

// DefaultCoinID is used when no coin has been chosen yet.
const DefaultCoinID = "us-quarter"

var coinCatalogue = []Coin{
	{"us-penny", "US Penny", "US", 19.05},
	{"us-nickel", "US Nickel", "US", 21.21},
	{"us-dime", "US Dime", "US", 17.91},
	{"us-quarter", "US Quarter", "US", 24.26},
	{"us-half-dollar", "US Half Dollar", "US", 30.61},
	{"us-dollar", "US Dollar Coin", "US", 26.49},
	{"eur-1c", "1 Euro Cent", "EU", 16.25},
	{"eur-2c", "2 Euro Cent", "EU", 18.75},
	{"eur-5c", "5 Euro Cent", "EU", 21.25},
	{"eur-10c", "10 Euro Cent", "EU", 19.75},
	{"eur-20c", "20 Euro Cent", "EU", 22.25},
	{"eur-50c", "50 Euro Cent", "EU", 24.25},
	{"eur-1", "1 Euro", "EU", 23.25},
	{"eur-2", "2 Euro", "EU", 25.75},
	{"gbp-1p", "1 Penny", "GB", 20.3},
	{"gbp-2p", "2 Pence", "GB", 25.9},
	{"gbp-5p", "5 Pence", "GB", 18.0},
	{"gbp-10p", "10 Pence", "GB", 24.5},
	{"gbp-20p", "20 Pence", "GB", 21.4},
	{"gbp-50p", "50 Pence", "GB", 27.3},
	{"gbp-1", "1 Pound", "GB", 23.43},
	{"gbp-2", "2 Pounds", "GB", 28.4},
	{"cad-25c", "Canadian Quarter", "CA", 23.88},
	{"cad-1", "Loonie", "CA", 26.5},
	{"cad-2", "Toonie", "CA", 28.0},
	{"aud-20c", "Australian 20 Cent", "AU", 28.65},
	{"aud-1", "Australian Dollar", "AU", 25.0},
	{"jpy-100", "100 Yen", "JP", 22.6},
	{"jpy-500", "500 Yen", "JP", 26.5},
	{"mxn-10", "10 Pesos", "MX", 28.0},
}

// Coins returns a copy of the catalogue.
func Coins() []Coin {
	return slices.Clone(coinCatalogue)
}

// CoinsByCountry filters the catalogue by ISO country code.
func CoinsByCountry(country string) []Coin {
	var out []Coin
	for _, c := range coinCatalogue {
		if strings.EqualFold(c.Country, country) {
			out = append(out, c)
		}
	}
	return out
}

// LookupCoin finds a coin by id, case-insensitively.
func LookupCoin(id string) (Coin, bool) {
	id = strings.TrimSpace(id)
	for _, c := range coinCatalogue {
		if strings.EqualFold(c.ID, id) {
			return c, true
		}
	}
	return Coin{}, false
}
