package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"app/internal/model"
	"app/internal/repository"

	"github.com/rs/zerolog"
)

const configKeyDailyLimits = "dailyLimits"

// Built-in per-model daily caps, used for any model an operator has not
// configured explicitly.
var defaultDailyLimits = map[string]int{
	model.ModelChatGPT: 50,
	model.ModelLlama:   40,
	model.ModelGemini:  60,
}

const quotaDeniedReason = "Daily message limit reached for this model."

// ErrInvalidLimits marks a rejected daily-limits update.
var ErrInvalidLimits = errors.New("invalid daily limits")

// Decision is the outcome of a quota check. Reason is set on denial and is
// safe to show to the user.
type Decision struct {
	Allowed bool
	Reason  string
}

// QuotaService enforces the per-user, per-model daily message cap. The
// counter resets when the calendar date changes, not after a rolling 24h
// window. Concurrent requests for the same (user, model) pair race between
// read and persisted increment; a transient overshoot bounded by the number
// of in-flight requests is accepted.
type QuotaService interface {
	// CheckAndAdmit admits or denies one call for (userID, modelTag). On
	// admission the incremented counter is persisted before returning; a
	// denial never mutates the counter.
	CheckAndAdmit(ctx context.Context, userID, modelTag string) (Decision, error)
	DailyLimits(ctx context.Context) (map[string]int, error)
	SetDailyLimits(ctx context.Context, limits map[string]int) error
}

type quotaService struct {
	usageRepo  repository.UsageRepository
	configRepo repository.ConfigRepository
	now        func() time.Time
	logger     zerolog.Logger
}

func NewQuotaService(usageRepo repository.UsageRepository, configRepo repository.ConfigRepository, logger zerolog.Logger) QuotaService {
	return &quotaService{
		usageRepo:  usageRepo,
		configRepo: configRepo,
		now:        time.Now,
		logger:     logger.With().Str("service", "QuotaService").Logger(),
	}
}

// sameCalendarDay compares dates, not elapsed duration.
func sameCalendarDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

func (s *quotaService) CheckAndAdmit(ctx context.Context, userID, modelTag string) (Decision, error) {
	limits, err := s.DailyLimits(ctx)
	if err != nil {
		return Decision{}, err
	}
	limit, ok := limits[modelTag]
	if !ok {
		return Decision{}, fmt.Errorf("no daily limit configured for model %q", modelTag)
	}

	entry, err := s.usageRepo.GetOrCreateEntry(ctx, userID, modelTag)
	if err != nil {
		return Decision{}, fmt.Errorf("loading usage entry: %w", err)
	}

	now := s.now()
	if !sameCalendarDay(entry.LastReset, now) {
		entry.DailyCount = 0
		entry.LastReset = now
	}

	if entry.DailyCount >= limit {
		return Decision{Allowed: false, Reason: quotaDeniedReason}, nil
	}

	entry.DailyCount++
	if err := s.usageRepo.SaveEntry(ctx, userID, entry); err != nil {
		return Decision{}, fmt.Errorf("persisting usage entry: %w", err)
	}
	return Decision{Allowed: true}, nil
}

func (s *quotaService) DailyLimits(ctx context.Context) (map[string]int, error) {
	limits := make(map[string]int, len(defaultDailyLimits))
	for tag, limit := range defaultDailyLimits {
		limits[tag] = limit
	}

	raw, err := s.configRepo.Get(ctx, configKeyDailyLimits)
	if err != nil {
		return nil, fmt.Errorf("loading daily limits: %w", err)
	}
	if raw == nil {
		return limits, nil
	}

	var configured map[string]int
	if err := json.Unmarshal(raw, &configured); err != nil {
		return nil, fmt.Errorf("decoding daily limits: %w", err)
	}
	for tag, limit := range configured {
		limits[tag] = limit
	}
	return limits, nil
}

func (s *quotaService) SetDailyLimits(ctx context.Context, limits map[string]int) error {
	for tag, limit := range limits {
		if !model.IsKnownModel(tag) {
			return fmt.Errorf("%w: unknown model %q", ErrInvalidLimits, tag)
		}
		if limit < 0 {
			return fmt.Errorf("%w: limit for %q must not be negative", ErrInvalidLimits, tag)
		}
	}

	// Merge over the currently effective limits so a partial update does
	// not silently reset the other models.
	current, err := s.DailyLimits(ctx)
	if err != nil {
		return err
	}
	for tag, limit := range limits {
		current[tag] = limit
	}

	raw, err := json.Marshal(current)
	if err != nil {
		return fmt.Errorf("encoding daily limits: %w", err)
	}
	if err := s.configRepo.Upsert(ctx, configKeyDailyLimits, raw); err != nil {
		return fmt.Errorf("saving daily limits: %w", err)
	}
	s.logger.Info().Interface("limits", current).Msg("Daily limits updated")
	return nil
}
