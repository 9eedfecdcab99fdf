package db

import (
	"context"
	"fmt"
)

// SamplePolicyContent is the compensation policy document installed by Seed.
const SamplePolicyContent = `Compensation Policy COMP-POL-India-2025-v3.2

Salary Structure:
- Base salary ranges are determined by job level and location
- SOE-1 Bangalore: INR 15,00,000 - 18,00,000
- Equity bands: 100-200 stock options
- Performance bonus: Up to 10% of base salary

Benefits:
- Healthcare coverage for employee and family
- Provident Fund (PF) as per government regulations
- Gratuity after 5 years of service
- ESOP eligibility after 1 year

Compliance Requirements:
- Equal opportunity employer
- No discrimination based on gender, religion, caste
- Interview questions must be job-related only
- Salary negotiations within approved band only

Scheduling Guidelines:
- Minimum 2-hour buffer between interviews
- Time zone considerations for remote candidates
- Confirmation required 24 hours before interview
`

// SamplePolicy is the policy row installed by Seed.
var SamplePolicy = Policy{
	PolicyID:   "POL-COMP-001",
	PolicyType: "compensation",
	PolicyName: "Compensation Policy India 2025",
	Content:    SamplePolicyContent,
	DocID:      "COMP-POL-India-2025-v3.2",
}

// SampleBands are the salary bands installed by Seed.
var SampleBands = []SalaryBand{
	{JobLevel: "SOE-1", Location: "Bangalore", Currency: "INR", BaseRangeMin: 1500000, BaseRangeMax: 1800000,
		EquityBandMin: 100, EquityBandMax: 200, BenefitsNotes: "Healthcare, PF, gratuity, ESOP after 1 year", PolicyDocID: "COMP-POL-India-2025-v3.2"},
	{JobLevel: "SOE-2", Location: "Bangalore", Currency: "INR", BaseRangeMin: 2200000, BaseRangeMax: 2800000,
		EquityBandMin: 200, EquityBandMax: 400, BenefitsNotes: "Healthcare, PF, gratuity, ESOP after 1 year", PolicyDocID: "COMP-POL-India-2025-v3.2"},
}

// SeedResult reports what Seed inserted.
type SeedResult struct {
	Policies int
	Bands    int
}

// Seed installs the sample policy when the policies table is empty and the
// sample bands when no band exists for their level and location.
func (d *DB) Seed(ctx context.Context) (*SeedResult, error) {
	res := &SeedResult{}

	count, err := d.CountPolicies(ctx)
	if err != nil {
		return nil, err
	}
	if count == 0 {
		if err := d.InsertPolicy(ctx, SamplePolicy); err != nil {
			return nil, fmt.Errorf("seed policy: %w", err)
		}
		res.Policies++
	}

	for _, b := range SampleBands {
		existing, err := d.FetchSalaryBands(ctx, b.JobLevel, b.Location)
		if err != nil {
			return nil, err
		}
		if len(existing) > 0 {
			continue
		}
		if err := d.InsertSalaryBand(ctx, b); err != nil {
			return nil, fmt.Errorf("seed salary band %s/%s: %w", b.JobLevel, b.Location, err)
		}
		res.Bands++
	}
	return res, nil
}
