package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/harborchat/harbor/internal/scheduling/domain"
	"github.com/google/uuid"
)

// TimezoneResolver looks up a user's IANA zone identifier. An empty string
// means the user never configured one.
type TimezoneResolver interface {
	Timezone(ctx context.Context, userID uuid.UUID) (string, error)
}

// SlotGeneratorConfig configures candidate generation.
type SlotGeneratorConfig struct {
	// AnchorHours are the hour-of-day candidates, interpreted in ReferenceZone.
	AnchorHours []int

	// SearchDays is how many consecutive days are searched.
	SearchDays int

	// MaxSlots caps the number of returned slots.
	MaxSlots int

	// WorkStartHour/WorkEndHour bound the local working-hours window
	// [WorkStartHour, WorkEndHour) every participant must satisfy.
	WorkStartHour int
	WorkEndHour   int

	// DefaultZone is used when a participant has no stored timezone or the
	// lookup fails.
	DefaultZone string

	// ReferenceZone anchors the candidate grid when no participant zone
	// resolves. Normally the grid is anchored in the westernmost
	// participant zone.
	ReferenceZone string
}

// DefaultSlotGeneratorConfig returns the fixed candidate menu: 7 days by 7
// anchors, 49 candidates per generation regardless of participant count.
func DefaultSlotGeneratorConfig() SlotGeneratorConfig {
	return SlotGeneratorConfig{
		AnchorHours:   []int{9, 10, 11, 13, 14, 15, 16},
		SearchDays:    7,
		MaxSlots:      3,
		WorkStartHour: 9,
		WorkEndHour:   18,
		DefaultZone:   "America/Los_Angeles",
		ReferenceZone: "America/Los_Angeles",
	}
}

// TimeSlotGenerator computes feasible meeting times across participant
// time zones. Generation is a pure function of the resolved zones, the
// duration, and the urgency.
type TimeSlotGenerator struct {
	profiles TimezoneResolver
	config   SlotGeneratorConfig
	logger   *slog.Logger
	now      func() time.Time
}

// NewTimeSlotGenerator creates a generator.
func NewTimeSlotGenerator(profiles TimezoneResolver, config SlotGeneratorConfig, logger *slog.Logger) *TimeSlotGenerator {
	if logger == nil {
		logger = slog.Default()
	}
	defaults := DefaultSlotGeneratorConfig()
	if len(config.AnchorHours) == 0 {
		config.AnchorHours = defaults.AnchorHours
	}
	if config.SearchDays <= 0 {
		config.SearchDays = defaults.SearchDays
	}
	if config.MaxSlots <= 0 {
		config.MaxSlots = defaults.MaxSlots
	}
	if config.WorkEndHour <= config.WorkStartHour {
		config.WorkStartHour = defaults.WorkStartHour
		config.WorkEndHour = defaults.WorkEndHour
	}
	if config.DefaultZone == "" {
		config.DefaultZone = defaults.DefaultZone
	}
	if config.ReferenceZone == "" {
		config.ReferenceZone = defaults.ReferenceZone
	}
	return &TimeSlotGenerator{
		profiles: profiles,
		config:   config,
		logger:   logger,
		now:      time.Now,
	}
}

// Generate computes up to MaxSlots feasible slots for the participants,
// earliest first. An empty result means no candidate satisfied every
// participant's working hours; it is a valid outcome, not an error.
func (g *TimeSlotGenerator) Generate(
	ctx context.Context,
	participantIDs []uuid.UUID,
	duration time.Duration,
	urgency domain.Urgency,
) ([]domain.TimeSlot, error) {
	if len(participantIDs) == 0 {
		return nil, fmt.Errorf("generate slots: %w", domain.ErrNoParticipants)
	}
	if duration <= 0 {
		duration = domain.DefaultSlotDuration
	}

	zones := g.resolveZones(ctx, participantIDs)
	anchor := g.anchorZone(zones)

	// The search window starts at midnight, lead-days out, in the anchor zone.
	now := g.now().In(anchor)
	firstDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, anchor).
		AddDate(0, 0, urgency.LeadDays())

	slots := make([]domain.TimeSlot, 0, g.config.MaxSlots)
	for day := 0; day < g.config.SearchDays; day++ {
		date := firstDay.AddDate(0, 0, day)
		for _, hour := range g.config.AnchorHours {
			candidate := time.Date(date.Year(), date.Month(), date.Day(), hour, 0, 0, 0, anchor)
			if !g.feasibleForAll(candidate, zones) {
				continue
			}
			slots = append(slots, domain.TimeSlot{
				Start:    candidate.UTC(),
				Duration: duration,
				Displays: g.formatDisplays(candidate, zones),
			})
			if len(slots) == g.config.MaxSlots {
				return slots, nil
			}
		}
	}

	return slots, nil
}

// anchorZone picks the zone the candidate grid is laid out in: the
// westernmost participant zone. Anchors run 9:00 to 16:00 there, so the
// westernmost participant always satisfies its own working hours and every
// zone east of it lands at a later local hour. A single participant gets
// the full menu in their own zone. The configured ReferenceZone is only a
// fallback for when no participant zone resolves.
func (g *TimeSlotGenerator) anchorZone(zones map[uuid.UUID]*time.Location) *time.Location {
	anchor, err := time.LoadLocation(g.config.ReferenceZone)
	if err != nil {
		g.logger.Warn("invalid reference zone, falling back to UTC",
			"zone", g.config.ReferenceZone,
			"error", err,
		)
		anchor = time.UTC
	}

	at := g.now()
	best := 0
	found := false
	for _, zone := range zones {
		_, offset := at.In(zone).Zone()
		switch {
		case !found, offset < best:
			anchor, best, found = zone, offset, true
		case offset == best && zone.String() < anchor.String():
			// Deterministic tie-break between equal offsets
			anchor = zone
		}
	}
	return anchor
}

// resolveZones looks up every participant's zone concurrently. A failed or
// missing lookup degrades that participant to the default zone instead of
// aborting the whole computation.
func (g *TimeSlotGenerator) resolveZones(ctx context.Context, participantIDs []uuid.UUID) map[uuid.UUID]*time.Location {
	defaultZone, err := time.LoadLocation(g.config.DefaultZone)
	if err != nil {
		defaultZone = time.UTC
	}

	zones := make(map[uuid.UUID]*time.Location, len(participantIDs))
	var mu sync.Mutex
	var wg sync.WaitGroup

	for _, id := range participantIDs {
		wg.Add(1)
		go func(userID uuid.UUID) {
			defer wg.Done()

			zone := defaultZone
			name, err := g.profiles.Timezone(ctx, userID)
			if err != nil {
				g.logger.Warn("timezone lookup failed, using default",
					"user_id", userID,
					"error", err,
				)
			} else if name != "" {
				loc, err := time.LoadLocation(name)
				if err != nil {
					g.logger.Warn("invalid stored timezone, using default",
						"user_id", userID,
						"zone", name,
					)
				} else {
					zone = loc
				}
			}

			mu.Lock()
			zones[userID] = zone
			mu.Unlock()
		}(id)
	}
	wg.Wait()

	return zones
}

// feasibleForAll checks the candidate's local start hour against the working
// window for every participant. A single miss discards the candidate.
func (g *TimeSlotGenerator) feasibleForAll(candidate time.Time, zones map[uuid.UUID]*time.Location) bool {
	for _, zone := range zones {
		hour := candidate.In(zone).Hour()
		if hour < g.config.WorkStartHour || hour >= g.config.WorkEndHour {
			return false
		}
	}
	return true
}

// formatDisplays renders the per-participant localized display strings,
// e.g. "Tuesday, Mar 3 at 8:00 AM PST".
func (g *TimeSlotGenerator) formatDisplays(candidate time.Time, zones map[uuid.UUID]*time.Location) map[uuid.UUID]string {
	displays := make(map[uuid.UUID]string, len(zones))
	for id, zone := range zones {
		displays[id] = candidate.In(zone).Format("Monday, Jan 2 at 3:04 PM MST")
	}
	return displays
}
