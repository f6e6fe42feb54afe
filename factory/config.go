/*
Package factory provides JSON to Go configuration conversion.

PURPOSE:
  Converts JSON configuration documents into billing fee configs and
  scholarship sponsor records. This enables policy configuration without
  code changes - the registrar's office can adjust fee schedules and
  sponsor terms in JSON, and the factory creates the proper Go structs.

WHY JSON?
  - Non-developers can modify fee schedules and sponsor terms
  - Easy integration with an admin UI
  - Version control for configuration
  - Database storage of configs

JSON SCHEMA:
  {
    "fee_configs": [
      {
        "cycle_type": "new_entry",
        "fee_amount": "100.00",
        "included_units": 10,
        "active": true
      }
    ],
    "excess_fee_configs": [
      {"cycle_type": "new_entry", "fee_per_unit": "5.00", "active": true}
    ],
    "sponsors": [
      {
        "code": "NGO-A",
        "name": "Aurora Foundation",
        "discount_percent": "60",
        "payment_mode": "bulk_invoice",
        "mou_start": "2024-01-01",
        "mou_end": "2026-12-31",
        "active": true
      }
    ]
  }

KEY FEATURES:
  - Validates cycle types, payment modes and date windows
  - Normalizes every monetary field through the money kernel
  - Rejects documents that would seed an unusable configuration

USAGE:
  f := factory.NewConfigFactory()
  seed, err := f.ParseSeed(jsonString)
  for _, cfg := range seed.FeeConfigs { store.SaveFeeConfig(ctx, cfg) }

SEE ALSO:
  - billing/types.go: FeeConfig and ExcessFeeConfig definitions
  - scholarship/types.go: Sponsor definition
  - store/sqlite: persistence of seeded configs
*/
package factory

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/keystone/sis-engine/billing"
	"github.com/keystone/sis-engine/money"
	"github.com/keystone/sis-engine/scholarship"
)

const dateLayout = "2006-01-02"

// =============================================================================
// JSON SCHEMA TYPES
// =============================================================================

// SeedJSON is the JSON representation of a configuration document.
type SeedJSON struct {
	FeeConfigs       []FeeConfigJSON       `json:"fee_configs,omitempty"`
	ExcessFeeConfigs []ExcessFeeConfigJSON `json:"excess_fee_configs,omitempty"`
	Sponsors         []SponsorJSON         `json:"sponsors,omitempty"`
}

// FeeConfigJSON represents an administrative fee configuration.
type FeeConfigJSON struct {
	CycleType     string `json:"cycle_type"`
	FeeAmount     string `json:"fee_amount"`
	IncludedUnits int    `json:"included_units"`
	Active        *bool  `json:"active,omitempty"` // Default true
}

// ExcessFeeConfigJSON represents a per-unit overage rate.
type ExcessFeeConfigJSON struct {
	CycleType  string `json:"cycle_type"`
	FeePerUnit string `json:"fee_per_unit"`
	Active     *bool  `json:"active,omitempty"`
}

// SponsorJSON represents an NGO sponsor with its MOU window.
type SponsorJSON struct {
	Code            string `json:"code"`
	Name            string `json:"name"`
	DiscountPercent string `json:"discount_percent"`
	PaymentMode     string `json:"payment_mode"` // direct, bulk_invoice
	MOUStart        string `json:"mou_start"`
	MOUEnd          string `json:"mou_end,omitempty"`
	Active          *bool  `json:"active,omitempty"`
}

// Seed holds the parsed, validated configuration ready for storage.
type Seed struct {
	FeeConfigs       []billing.FeeConfig
	ExcessFeeConfigs []billing.ExcessFeeConfig
	Sponsors         []scholarship.Sponsor
}

// =============================================================================
// CONFIG FACTORY
// =============================================================================

// ConfigFactory converts JSON configuration to Go structs.
type ConfigFactory struct{}

// NewConfigFactory creates a new configuration factory.
func NewConfigFactory() *ConfigFactory {
	return &ConfigFactory{}
}

// ParseSeed parses a JSON document into a validated Seed.
func (f *ConfigFactory) ParseSeed(jsonStr string) (*Seed, error) {
	var sj SeedJSON
	if err := json.Unmarshal([]byte(jsonStr), &sj); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}
	return f.FromJSON(sj)
}

// FromJSON converts SeedJSON to a validated Seed.
func (f *ConfigFactory) FromJSON(sj SeedJSON) (*Seed, error) {
	seed := &Seed{}

	for i, fj := range sj.FeeConfigs {
		cfg, err := parseFeeConfig(fj)
		if err != nil {
			return nil, fmt.Errorf("fee_configs[%d]: %w", i, err)
		}
		seed.FeeConfigs = append(seed.FeeConfigs, cfg)
	}
	for i, ej := range sj.ExcessFeeConfigs {
		cfg, err := parseExcessFeeConfig(ej)
		if err != nil {
			return nil, fmt.Errorf("excess_fee_configs[%d]: %w", i, err)
		}
		seed.ExcessFeeConfigs = append(seed.ExcessFeeConfigs, cfg)
	}
	for i, pj := range sj.Sponsors {
		sp, err := parseSponsor(pj)
		if err != nil {
			return nil, fmt.Errorf("sponsors[%d]: %w", i, err)
		}
		seed.Sponsors = append(seed.Sponsors, sp)
	}
	return seed, nil
}

func parseCycleType(s string) (billing.CycleType, error) {
	switch billing.CycleType(s) {
	case billing.CycleNewEntry, billing.CycleLanguageToBachelor:
		return billing.CycleType(s), nil
	default:
		return "", fmt.Errorf("unknown cycle_type %q", s)
	}
}

func parseFeeConfig(fj FeeConfigJSON) (billing.FeeConfig, error) {
	var cfg billing.FeeConfig

	cycle, err := parseCycleType(fj.CycleType)
	if err != nil {
		return cfg, err
	}
	amount, err := money.Normalize(fj.FeeAmount)
	if err != nil {
		return cfg, fmt.Errorf("fee_amount: %w", err)
	}
	if amount.IsNegative() {
		return cfg, fmt.Errorf("fee_amount %s is negative", amount)
	}
	if fj.IncludedUnits < 0 {
		return cfg, fmt.Errorf("included_units %d is negative", fj.IncludedUnits)
	}

	cfg = billing.FeeConfig{
		CycleType:     cycle,
		FeeAmount:     amount,
		IncludedUnits: fj.IncludedUnits,
		Active:        boolOrDefault(fj.Active, true),
	}
	return cfg, nil
}

func parseExcessFeeConfig(ej ExcessFeeConfigJSON) (billing.ExcessFeeConfig, error) {
	var cfg billing.ExcessFeeConfig

	cycle, err := parseCycleType(ej.CycleType)
	if err != nil {
		return cfg, err
	}
	perUnit, err := money.Normalize(ej.FeePerUnit)
	if err != nil {
		return cfg, fmt.Errorf("fee_per_unit: %w", err)
	}
	if perUnit.IsNegative() {
		return cfg, fmt.Errorf("fee_per_unit %s is negative", perUnit)
	}

	cfg = billing.ExcessFeeConfig{
		CycleType:  cycle,
		FeePerUnit: perUnit,
		Active:     boolOrDefault(ej.Active, true),
	}
	return cfg, nil
}

func parseSponsor(pj SponsorJSON) (scholarship.Sponsor, error) {
	var sp scholarship.Sponsor

	if pj.Code == "" {
		return sp, fmt.Errorf("sponsor code is required")
	}

	percent, err := money.Normalize(pj.DiscountPercent)
	if err != nil {
		return sp, fmt.Errorf("discount_percent: %w", err)
	}
	if percent.IsNegative() || percent.GreaterThan(money.MustNormalize(100)) {
		return sp, fmt.Errorf("discount_percent %s out of range", percent)
	}

	var mode scholarship.PaymentMode
	switch scholarship.PaymentMode(pj.PaymentMode) {
	case scholarship.PayDirect, scholarship.PayBulkInvoice:
		mode = scholarship.PaymentMode(pj.PaymentMode)
	case "":
		mode = scholarship.PayDirect
	default:
		return sp, fmt.Errorf("unknown payment_mode %q", pj.PaymentMode)
	}

	mouStart, err := time.Parse(dateLayout, pj.MOUStart)
	if err != nil {
		return sp, fmt.Errorf("mou_start: %w", err)
	}
	var mouEnd *time.Time
	if pj.MOUEnd != "" {
		end, err := time.Parse(dateLayout, pj.MOUEnd)
		if err != nil {
			return sp, fmt.Errorf("mou_end: %w", err)
		}
		if end.Before(mouStart) {
			return sp, fmt.Errorf("mou_end %s precedes mou_start %s", pj.MOUEnd, pj.MOUStart)
		}
		mouEnd = &end
	}

	sp = scholarship.Sponsor{
		Code:                   pj.Code,
		Name:                   pj.Name,
		DefaultDiscountPercent: percent,
		PaymentMode:            mode,
		MOUStart:               mouStart,
		MOUEnd:                 mouEnd,
		Active:                 boolOrDefault(pj.Active, true),
	}
	return sp, nil
}

func boolOrDefault(b *bool, def bool) bool {
	if b == nil {
		return def
	}
	return *b
}

// =============================================================================
// PRESETS
// =============================================================================

// DefaultSeedJSON returns the standard seed document with both cycle fees
// at their catalog rates. Useful for development databases and tests.
func DefaultSeedJSON() string {
	return `{
		"fee_configs": [
			{"cycle_type": "new_entry", "fee_amount": "100.00", "included_units": 10},
			{"cycle_type": "language_to_bachelor", "fee_amount": "100.00", "included_units": 10}
		],
		"excess_fee_configs": [
			{"cycle_type": "new_entry", "fee_per_unit": "5.00"},
			{"cycle_type": "language_to_bachelor", "fee_per_unit": "5.00"}
		]
	}`
}
