package comps

import "strings"

// NormalizeAddress produces the deduplication key for an address:
// lower-cased with runs of whitespace collapsed to single spaces.
// "123 Main St" and "123   main st" normalize identically.
func NormalizeAddress(address string) string {
	return strings.Join(strings.Fields(strings.ToLower(address)), " ")
}
