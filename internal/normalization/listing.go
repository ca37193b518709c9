// Package normalization maps raw provider listing records into canonical
// domain types. Providers disagree on field names (beds vs bedrooms, sqft
// vs livingArea, several spellings of the rent estimate), so all alias
// resolution happens here, once, at the boundary. Consumers downstream
// only ever see domain.PropertyFeatures.
package normalization

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"dscr-analyzer/internal/domain"
)

// RawListing is one provider record before canonicalization.
type RawListing map[string]any

// Alias tables. First match wins; later names are provider variants
// observed in the wild.
var (
	bedroomKeys  = []string{"bedrooms", "beds", "bedroomCount"}
	bathroomKeys = []string{"bathrooms", "baths", "bathroomCount"}
	priceKeys    = []string{"price", "listPrice", "list_price"}
	sqftKeys     = []string{"sqft", "squareFeet", "square_feet", "livingArea", "living_area"}
	distanceKeys = []string{"neighborhood_distance_miles", "distance_miles", "distanceMiles", "distance"}
	addressKeys  = []string{"address", "streetAddress", "street_address", "formattedAddress"}
	rentKeys     = []string{"rentZestimate", "rent_zestimate", "rentEstimate", "rent_estimate", "monthlyRent", "rent"}
	zpidKeys     = []string{"zpid", "id"}
	hoaKeys      = []string{"hoaFee", "hoa_fee", "monthlyHoaFee"}
	taxRateKeys  = []string{"propertyTaxRate", "property_tax_rate", "taxRate"}
)

// Features extracts canonical PropertyFeatures from a raw record.
// Missing or malformed numeric fields resolve to zero; the address is
// trimmed but otherwise untouched (dedup normalization happens later).
func Features(raw RawListing) domain.PropertyFeatures {
	return domain.PropertyFeatures{
		Bedrooms:      intField(raw, bedroomKeys),
		Bathrooms:     floatField(raw, bathroomKeys),
		Price:         floatField(raw, priceKeys),
		SquareFeet:    intField(raw, sqftKeys),
		DistanceMiles: floatField(raw, distanceKeys),
		Address:       stringField(raw, addressKeys),
	}
}

// FeaturesSlice canonicalizes a batch of raw records.
func FeaturesSlice(raws []RawListing) []domain.PropertyFeatures {
	out := make([]domain.PropertyFeatures, 0, len(raws))
	for _, raw := range raws {
		out = append(out, Features(raw))
	}
	return out
}

// Rent resolves the listing's rent estimate across all known alias
// spellings. ok is false when no alias holds a positive number.
func Rent(raw RawListing) (rent float64, ok bool) {
	v := floatField(raw, rentKeys)
	if v <= 0 {
		return 0, false
	}
	return v, true
}

// ZPID extracts the provider listing identifier as a string. Numeric
// identifiers are formatted without an exponent.
func ZPID(raw RawListing) string {
	for _, key := range zpidKeys {
		v, present := raw[key]
		if !present || v == nil {
			continue
		}
		switch t := v.(type) {
		case string:
			if s := strings.TrimSpace(t); s != "" {
				return s
			}
		case float64:
			return strconv.FormatFloat(t, 'f', -1, 64)
		case json.Number:
			return t.String()
		case int:
			return strconv.Itoa(t)
		case int64:
			return strconv.FormatInt(t, 10)
		}
	}
	return ""
}

// HOAFee returns the monthly HOA fee, zero when absent.
func HOAFee(raw RawListing) float64 {
	return floatField(raw, hoaKeys)
}

// TaxRate returns the property tax rate as a fraction, zero when absent.
// Callers substitute their own default for zero.
func TaxRate(raw RawListing) float64 {
	return floatField(raw, taxRateKeys)
}

func stringField(raw RawListing, keys []string) string {
	for _, key := range keys {
		if v, present := raw[key]; present {
			if s, isStr := v.(string); isStr {
				if trimmed := strings.TrimSpace(s); trimmed != "" {
					return trimmed
				}
			}
		}
	}
	return ""
}

func floatField(raw RawListing, keys []string) float64 {
	for _, key := range keys {
		v, present := raw[key]
		if !present || v == nil {
			continue
		}
		if f, convOK := toFloat(v); convOK {
			return f
		}
	}
	return 0
}

func intField(raw RawListing, keys []string) int {
	return int(floatField(raw, keys))
}

// toFloat accepts the numeric shapes encoding/json produces plus
// numeric strings, which some providers emit for prices.
func toFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return 0, false
		}
		return f, true
	case string:
		s := strings.TrimSpace(strings.ReplaceAll(strings.TrimPrefix(t, "$"), ",", ""))
		if s == "" {
			return 0, false
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

// DecodeListings unmarshals a JSON array of provider records.
func DecodeListings(data []byte) ([]RawListing, error) {
	var raws []RawListing
	if err := json.Unmarshal(data, &raws); err != nil {
		return nil, fmt.Errorf("decode listings: %w", err)
	}
	return raws, nil
}
