// Package masterdata serves the hospital-wide settings that feed fee
// calculation, read through a short-lived in-memory cache.
package masterdata

import (
	"context"
	"errors"
	"slices"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/shopspring/decimal"

	"github.com/jwalitptl/frontdesk-api/internal/model"
	"github.com/jwalitptl/frontdesk-api/internal/repository"
	apperrors "github.com/jwalitptl/frontdesk-api/pkg/errors"
	"github.com/jwalitptl/frontdesk-api/pkg/logger"
)

// DefaultSpecializations is used until the specializations setting exists.
var DefaultSpecializations = []string{
	"Cardiology", "Dermatology", "ENT", "General Practice", "Gynaecology", "Neurology",
	"Ophthalmology", "Orthopaedics", "Paediatrics", "Psychiatry", "Radiology", "Urology",
}

type Service struct {
	repo          repository.SettingsRepository
	cache         *cache.Cache
	defaultCharge decimal.Decimal
	logger        *logger.Logger
}

func NewService(repo repository.SettingsRepository, defaultCharge decimal.Decimal, ttl time.Duration, log *logger.Logger) *Service {
	return &Service{
		repo:          repo,
		cache:         cache.New(ttl, 2*ttl),
		defaultCharge: defaultCharge,
		logger:        log,
	}
}

// HospitalCharge is the flat charge added to every appointment fee. A missing
// or malformed setting falls back to the configured default.
func (s *Service) HospitalCharge(ctx context.Context) (decimal.Decimal, error) {
	if v, ok := s.cache.Get(model.SettingHospitalCharge); ok {
		return v.(decimal.Decimal), nil
	}

	charge := s.defaultCharge
	raw, err := s.repo.Get(ctx, model.SettingHospitalCharge)
	switch {
	case errors.Is(err, apperrors.NotFoundErr):
	case err != nil:
		return decimal.Zero, err
	default:
		parsed, perr := decimal.NewFromString(strings.TrimSpace(raw))
		if perr != nil || parsed.IsNegative() {
			s.logger.Warn("Ignoring invalid hospital charge setting", "value", raw)
		} else {
			charge = parsed
		}
	}

	s.cache.SetDefault(model.SettingHospitalCharge, charge)
	return charge, nil
}

// Specializations returns the configured list trimmed, de-duplicated and sorted.
func (s *Service) Specializations(ctx context.Context) ([]string, error) {
	if v, ok := s.cache.Get(model.SettingSpecializations); ok {
		return slices.Clone(v.([]string)), nil
	}

	list := DefaultSpecializations
	raw, err := s.repo.Get(ctx, model.SettingSpecializations)
	switch {
	case errors.Is(err, apperrors.NotFoundErr):
	case err != nil:
		return nil, err
	default:
		list = strings.Split(raw, ",")
	}

	out := make([]string, 0, len(list))
	for _, item := range list {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	slices.Sort(out)
	out = slices.Compact(out)

	s.cache.SetDefault(model.SettingSpecializations, out)
	return slices.Clone(out), nil
}

// Invalidate drops cached values so the next read hits the database.
func (s *Service) Invalidate() {
	s.cache.Flush()
}
