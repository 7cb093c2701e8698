package service

import (
	"context"
	"errors"
	"time"

	"taxcalc/internal/engine"
	"taxcalc/internal/obs"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// --- DTOs ---

type CalculateRequest struct {
	Items            []engine.LineItem       `json:"items"`
	CustomerLocation engine.CustomerLocation `json:"customer_location"`
}

type VATRequest struct {
	Items            []engine.LineItem       `json:"items"`
	CustomerLocation engine.CustomerLocation `json:"customer_location"`
}

type VATResponse struct {
	CountryKey    string `json:"country_key"`
	Rate          string `json:"rate"`
	ReverseCharge bool   `json:"reverse_charge"`
	Configured    bool   `json:"configured"`
	Subtotal      string `json:"subtotal"`
	VATAmount     string `json:"vat_amount"`
	Total         string `json:"total"`
}

// --- Interface ---

type CalculatorService interface {
	Calculate(ctx context.Context, req CalculateRequest) (*engine.CalculationResult, error)
	CalculateVAT(ctx context.Context, req VATRequest) (*VATResponse, error)
}

type calculatorService struct {
	calc    *engine.Calculator
	vat     *engine.VATEvaluator
	metrics *obs.Metrics
	logger  zerolog.Logger
}

func NewCalculatorService(store engine.ConfigStore, metrics *obs.Metrics, logger zerolog.Logger) CalculatorService {
	return &calculatorService{
		calc:    engine.NewCalculator(store),
		vat:     engine.NewVATEvaluator(store),
		metrics: metrics,
		logger:  logger.With().Str("component", "calculator").Logger(),
	}
}

// --- Implementation ---

func (s *calculatorService) Calculate(ctx context.Context, req CalculateRequest) (*engine.CalculationResult, error) {
	start := time.Now()
	key := req.CustomerLocation.JurisdictionKey()

	res, err := s.calc.Calculate(ctx, req.Items, req.CustomerLocation)
	s.observe(ctx, key, start, res, err)
	return res, err
}

func (s *calculatorService) CalculateVAT(ctx context.Context, req VATRequest) (*VATResponse, error) {
	if err := engine.ValidateLineItems(req.Items); err != nil {
		return nil, err
	}

	det, err := s.vat.Determine(ctx, req.Items[0], req.CustomerLocation)
	if err != nil {
		s.countLookupFailure(err)
		return nil, err
	}

	subtotal := decimal.Zero
	vat := decimal.Zero
	for _, item := range req.Items {
		sub := item.Subtotal()
		subtotal = subtotal.Add(sub)
		vat = vat.Add(sub.Mul(det.Rate).Div(decimal.NewFromInt(100)))
	}
	subtotal = subtotal.Round(2)
	vat = vat.Round(2)

	s.logger.Debug().
		Str("country", det.CountryKey).
		Bool("reverse_charge", det.ReverseCharge).
		Str("rate", det.Rate.String()).
		Msg("vat determined")

	return &VATResponse{
		CountryKey:    det.CountryKey,
		Rate:          det.Rate.String(),
		ReverseCharge: det.ReverseCharge,
		Configured:    det.Configured,
		Subtotal:      subtotal.StringFixed(2),
		VATAmount:     vat.StringFixed(2),
		Total:         subtotal.Add(vat).StringFixed(2),
	}, nil
}

// Metric labels only carry configured keys so callers cannot mint new series.
const unknownJurisdictionLabel = "unknown"

func (s *calculatorService) observe(ctx context.Context, key string, start time.Time, res *engine.CalculationResult, err error) {
	elapsed := time.Since(start)
	if s.metrics != nil {
		s.metrics.CalculationDuration.Observe(elapsed.Seconds())
	}

	switch {
	case err == nil:
		if s.metrics != nil {
			label := unknownJurisdictionLabel
			if res.RateConfigured {
				label = key
			}
			s.metrics.CalculationsTotal.WithLabelValues(label, "ok").Inc()
			for _, name := range res.Exemptions() {
				s.metrics.ExemptionsTotal.WithLabelValues(label, name).Inc()
			}
		}
		s.logger.Info().
			Str("request_id", obs.RequestID(ctx)).
			Str("jurisdiction", key).
			Int("lines", len(res.Lines)).
			Str("tax_amount", res.TaxAmount.StringFixed(2)).
			Str("total", res.Total.StringFixed(2)).
			Dur("elapsed", elapsed).
			Msg("tax calculated")
	case engine.IsValidation(err):
		if s.metrics != nil {
			s.metrics.CalculationsTotal.WithLabelValues(unknownJurisdictionLabel, "invalid").Inc()
		}
		s.logger.Debug().Err(err).Str("jurisdiction", key).Msg("calculation rejected")
	default:
		if s.metrics != nil {
			s.metrics.CalculationsTotal.WithLabelValues(unknownJurisdictionLabel, "error").Inc()
		}
		s.countLookupFailure(err)
		s.logger.Error().Err(err).Str("request_id", obs.RequestID(ctx)).Str("jurisdiction", key).Msg("calculation failed")
	}
}

func (s *calculatorService) countLookupFailure(err error) {
	var lerr *engine.LookupError
	if s.metrics != nil && errors.As(err, &lerr) {
		s.metrics.LookupFailures.WithLabelValues(lerr.Op).Inc()
	}
}
