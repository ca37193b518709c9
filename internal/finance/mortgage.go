// Package finance provides the mortgage payment and DSCR arithmetic used
// to rank investment properties.
package finance

import (
	"math"

	"dscr-analyzer/internal/domain"
)

// Default assumptions applied when a listing does not carry its own
// figures. Rates are annual fractions of purchase price.
const (
	DefaultTaxRate       = 0.0125
	InsuranceRate        = 0.0035
	PMIRate              = 0.005
	PMIDownPaymentCutoff = 0.20
)

// MortgageTerms are the inputs to a monthly payment calculation.
type MortgageTerms struct {
	Price               float64 // purchase price, > 0
	DownPaymentFraction float64 // e.g. 0.20
	AnnualRatePct       float64 // e.g. 7.0
	TermYears           int     // > 0
	AnnualPropertyTax   float64 // dollars per year
	AnnualInsurance     float64 // dollars per year
	MonthlyHOA          float64 // dollars per month
}

// MonthlyPayment computes the total monthly cost: amortized principal and
// interest plus monthly shares of tax and insurance plus HOA. A zero
// interest rate degrades to straight-line amortization; the closed-form
// formula would divide by zero.
func MonthlyPayment(t MortgageTerms) (float64, error) {
	if t.Price <= 0 || t.TermYears <= 0 {
		return 0, domain.ErrInvalidInput
	}
	if t.DownPaymentFraction < 0 || t.DownPaymentFraction > 1 {
		return 0, domain.ErrInvalidInput
	}

	loanAmount := t.Price * (1 - t.DownPaymentFraction)
	monthlyRate := t.AnnualRatePct / 100 / 12
	n := float64(t.TermYears * 12)

	var principalAndInterest float64
	if monthlyRate == 0 {
		principalAndInterest = loanAmount / n
	} else {
		growth := math.Pow(1+monthlyRate, n)
		principalAndInterest = loanAmount * monthlyRate * growth / (growth - 1)
	}

	total := principalAndInterest + t.AnnualPropertyTax/12 + t.AnnualInsurance/12 + t.MonthlyHOA
	return total, nil
}

// EstimateMonthlyPayment mirrors the listing-search path: tax from a rate
// on price, insurance from the flat estimate, and PMI added when the down
// payment is below 20%.
func EstimateMonthlyPayment(price, downPaymentFraction, annualRatePct float64, termYears int, taxRate, monthlyHOA float64) (float64, error) {
	if taxRate <= 0 {
		taxRate = DefaultTaxRate
	}
	payment, err := MonthlyPayment(MortgageTerms{
		Price:               price,
		DownPaymentFraction: downPaymentFraction,
		AnnualRatePct:       annualRatePct,
		TermYears:           termYears,
		AnnualPropertyTax:   price * taxRate,
		AnnualInsurance:     price * InsuranceRate,
		MonthlyHOA:          monthlyHOA,
	})
	if err != nil {
		return 0, err
	}
	if downPaymentFraction < PMIDownPaymentCutoff {
		payment += price * PMIRate / 12
	}
	return payment, nil
}

// MonthlyInsurance returns the estimated monthly insurance cost for a
// purchase price.
func MonthlyInsurance(price float64) float64 {
	return price * InsuranceRate / 12
}

// DSCR computes the debt service coverage ratio: monthly rent divided by
// monthly payment. Returns 0 when the payment is not positive.
func DSCR(monthlyRent, monthlyPayment float64) float64 {
	if monthlyPayment <= 0 {
		return 0
	}
	return monthlyRent / monthlyPayment
}

// Round2 rounds to cents for presentation.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
