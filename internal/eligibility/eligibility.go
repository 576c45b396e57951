// Package eligibility decides whether transactions count toward NAFFL
// (no-added-fee fee-free limit) reporting. A transaction is eligible unless
// its category is explicitly excluded; unknown categories are eligible.
package eligibility

// IneligibleCategories lists the categories excluded from NAFFL eligibility,
// in reporting order.
var IneligibleCategories = []string{
	"Quasi-cash",
	"Cash-in",
}

// Check reports whether a transaction in the given category is NAFFL
// eligible. Matching is exact and case-sensitive: "quasi-cash" is not
// excluded, "Quasi-cash" is.
func Check(category string) bool {
	for _, excluded := range IneligibleCategories {
		if category == excluded {
			return false
		}
	}
	return true
}

// EligibleCategories renders the exclusion list as the "Not <category>"
// strings reported alongside every eligibility decision.
func EligibleCategories() []string {
	out := make([]string, len(IneligibleCategories))
	for i, category := range IneligibleCategories {
		out[i] = "Not " + category
	}
	return out
}
