package service

import (
	"context"

	"finance/internal/store"

	"go.uber.org/zap"
)

// RegistrationService exposes the registration flag on top of a settings store.
type RegistrationService struct {
	store  store.SettingsStore
	logger *zap.Logger
}

func NewRegistrationService(settings store.SettingsStore, logger *zap.Logger) *RegistrationService {
	return &RegistrationService{store: settings, logger: logger}
}

// IsEnabled fails open: when the store cannot be read registration is
// reported as enabled.
func (s *RegistrationService) IsEnabled(ctx context.Context) bool {
	enabled, err := s.store.RegistrationEnabled(ctx)
	if err != nil {
		s.logger.Warn("reading registration flag failed, treating registration as enabled", zap.Error(err))
		return true
	}
	return enabled
}

func (s *RegistrationService) Set(ctx context.Context, enabled bool) error {
	if err := s.store.SetRegistrationEnabled(ctx, enabled); err != nil {
		return Upstream("failed to update registration setting", err)
	}
	s.logger.Info("registration setting changed", zap.Bool("enabled", enabled))
	return nil
}

func (s *RegistrationService) Enable(ctx context.Context) error {
	return s.Set(ctx, true)
}

func (s *RegistrationService) Disable(ctx context.Context) error {
	return s.Set(ctx, false)
}

// Toggle flips the flag and returns the new value. Unlike IsEnabled it does
// not fail open, so a broken store never flips registration off by accident.
func (s *RegistrationService) Toggle(ctx context.Context) (bool, error) {
	current, err := s.store.RegistrationEnabled(ctx)
	if err != nil {
		return false, Upstream("failed to read registration setting", err)
	}
	next := !current
	if err := s.Set(ctx, next); err != nil {
		return false, err
	}
	return next, nil
}
