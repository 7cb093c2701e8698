package database

import (
	"context"
	"fmt"
	"strings"
	"time"

	"taxcalc/internal/engine"
	"taxcalc/internal/model"

	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

// seedEpoch is the effective date given to seeded rates.
var seedEpoch = time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)

// Seed loads the reference configuration into empty tables. Tables that
// already hold rows are left untouched.
func Seed(ctx context.Context, db *gorm.DB, log zerolog.Logger) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&model.Jurisdiction{}).Count(&count).Error; err != nil {
			return fmt.Errorf("count jurisdictions: %w", err)
		}
		if count == 0 {
			jurisdictions, rates := seedRates()
			if err := tx.Create(&jurisdictions).Error; err != nil {
				return fmt.Errorf("seed jurisdictions: %w", err)
			}
			if err := tx.Create(&rates).Error; err != nil {
				return fmt.Errorf("seed tax rates: %w", err)
			}
			log.Info().Int("jurisdictions", len(jurisdictions)).Msg("seeded jurisdictions and rates")
		}

		if err := tx.Model(&model.TaxRule{}).Count(&count).Error; err != nil {
			return fmt.Errorf("count tax rules: %w", err)
		}
		if count == 0 {
			rules := seedRules()
			if err := tx.Create(&rules).Error; err != nil {
				return fmt.Errorf("seed tax rules: %w", err)
			}
			log.Info().Int("rules", len(rules)).Msg("seeded tax rules")
		}

		if err := tx.Model(&model.NexusThreshold{}).Count(&count).Error; err != nil {
			return fmt.Errorf("count nexus thresholds: %w", err)
		}
		if count == 0 {
			thresholds := seedThresholds()
			if err := tx.Create(&thresholds).Error; err != nil {
				return fmt.Errorf("seed nexus thresholds: %w", err)
			}
		}

		if err := tx.Model(&model.VATRate{}).Count(&count).Error; err != nil {
			return fmt.Errorf("count vat rates: %w", err)
		}
		if count == 0 {
			vat := seedVATRates()
			if err := tx.Create(&vat).Error; err != nil {
				return fmt.Errorf("seed vat rates: %w", err)
			}
		}
		return nil
	})
}

func seedRates() ([]model.Jurisdiction, []model.TaxRate) {
	defaults := engine.DefaultRates()
	jurisdictions := make([]model.Jurisdiction, 0, len(defaults))
	rates := make([]model.TaxRate, 0, len(defaults))
	for _, r := range defaults {
		country, state, _ := strings.Cut(r.JurisdictionKey, "-")
		jurisdictions = append(jurisdictions, model.Jurisdiction{
			Name:            r.DisplayName,
			Code:            strings.TrimSuffix(r.JurisdictionKey, "-"),
			Country:         country,
			StateProvince:   state,
			JurisdictionKey: r.JurisdictionKey,
		})
		rates = append(rates, model.TaxRate{
			JurisdictionKey: r.JurisdictionKey,
			Rate:            r.BaseRate,
			EffectiveFrom:   seedEpoch,
			Description:     "Standard rate for digital products",
		})
	}
	return jurisdictions, rates
}

func seedRules() []model.TaxRule {
	defaults := engine.DefaultRules()
	rules := make([]model.TaxRule, 0, len(defaults))
	for _, r := range defaults {
		rules = append(rules, model.TaxRule{
			JurisdictionKey: r.JurisdictionKey,
			Name:            r.Name,
			Description:     r.Description,
			Kind:            string(r.Kind),
			Position:        r.Position,
			Conditions:      r.Conditions,
			TransformKind:   string(r.Transform.Kind),
			TransformValue:  r.Transform.Value,
			Threshold:       r.Threshold,
		})
	}
	return rules
}

func seedThresholds() []model.NexusThreshold {
	defaults := engine.DefaultNexusThresholds()
	out := make([]model.NexusThreshold, 0, len(defaults))
	for _, t := range defaults {
		out = append(out, model.NexusThreshold{
			JurisdictionKey:      t.JurisdictionKey,
			RevenueThreshold:     t.RevenueThreshold,
			TransactionThreshold: t.TransactionThreshold,
		})
	}
	return out
}

func seedVATRates() []model.VATRate {
	out := make([]model.VATRate, 0, 4)
	for country, rate := range engine.DefaultVATRates() {
		out = append(out, model.VATRate{CountryKey: country, Rate: rate})
	}
	return out
}
