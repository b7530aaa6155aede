package calc

import (
	"fmt"
	"math"
)

// Tolerances for cent-rounded amounts and two-decimal percentages.
const (
	AmountTolerance = 0.005
	MarginTolerance = 0.01
)

// PnLLine is one month of a P&L as checked by the verifier.
type PnLLine struct {
	Label              string
	Revenue            float64
	COGS               float64
	Opex               float64
	EBIT               float64
	OperatingMarginPct float64
}

// VerificationResult holds the status of integrity checks
type VerificationResult struct {
	IsBalanced bool
	BalanceGap float64
	Warnings   []string
}

// CheckPnL verifies EBIT = Revenue - COGS - OPEX and that the margin matches
// EBIT / Revenue (0 when there is no revenue).
func CheckPnL(l PnLLine) VerificationResult {
	gap := l.EBIT - (l.Revenue - l.COGS - l.Opex)
	res := VerificationResult{IsBalanced: math.Abs(gap) <= AmountTolerance, BalanceGap: gap}
	if !res.IsBalanced {
		res.Warnings = append(res.Warnings, fmt.Sprintf("%s: EBIT out of balance by %.2f", l.Label, gap))
	}

	want := 0.0
	if l.Revenue != 0 {
		want = l.EBIT / l.Revenue * 100
	}
	if math.Abs(want-l.OperatingMarginPct) > MarginTolerance {
		res.IsBalanced = false
		res.Warnings = append(res.Warnings, fmt.Sprintf("%s: operating margin %.2f, expected %.2f", l.Label, l.OperatingMarginPct, want))
	}
	return res
}

// CheckAggregate verifies that OPEX splits exactly into its fixed and
// variable parts.
func CheckAggregate(a MonthlyAggregate) VerificationResult {
	gap := a.Opex - (a.FixedOpex + a.VariableOpex)
	isBalanced := math.Abs(gap) <= AmountTolerance

	var warnings []string
	if !isBalanced {
		warnings = append(warnings, fmt.Sprintf("%s: OPEX split out of balance by %.2f", a.Month, gap))
	}

	return VerificationResult{
		IsBalanced: isBalanced,
		BalanceGap: gap,
		Warnings:   warnings,
	}
}
