package filters

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ImenBenAmar/SmartAI-hack-sofrecom-tunisie/internal/logging"
	"github.com/ImenBenAmar/SmartAI-hack-sofrecom-tunisie/internal/store"
)

const settingsPrefix = "filterSettings"

// Service loads and saves filter settings.
type Service struct {
	store  store.Store
	logger *slog.Logger
	now    func() time.Time
}

// NewService creates a service on top of s.
func NewService(s store.Store, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:  s,
		logger: logging.WithOperation(logger, "filters"),
		now:    time.Now,
	}
}

func settingsKey(user string) string {
	return store.Key(settingsPrefix, store.SanitizeKey(user))
}

// Get returns the user's settings, or defaults when none are stored.
func (s *Service) Get(ctx context.Context, user string) (*UserSettings, error) {
	stored, err := store.Load[UserSettings](ctx, s.store, settingsKey(user))
	if errors.Is(err, store.ErrNotFound) {
		return &UserSettings{
			UserID:        user,
			SenderGroups:  []SenderGroup{},
			ActiveFilters: DefaultFilters(),
		}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load filter settings: %w", err)
	}
	settings := &stored

	if settings.SenderGroups == nil {
		settings.SenderGroups = []SenderGroup{}
	}
	if settings.ActiveFilters.ReadStatus == "" {
		settings.ActiveFilters.ReadStatus = ReadStatusAll
	}
	return settings, nil
}

// Save validates and stores settings for user. Groups without an ID get a
// new one, timestamps are stamped, and active group IDs that no longer
// exist are dropped.
func (s *Service) Save(ctx context.Context, user string, settings UserSettings) (*UserSettings, error) {
	if err := settings.ActiveFilters.Validate(); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	known := map[string]bool{}
	groups := make([]SenderGroup, 0, len(settings.SenderGroups))
	for _, g := range settings.SenderGroups {
		g.Name = strings.TrimSpace(g.Name)
		if g.Name == "" {
			return nil, fmt.Errorf("%w: sender group name is required", ErrInvalid)
		}
		if g.ID == "" {
			g.ID = uuid.NewString()
		}
		if g.CreatedAt.IsZero() {
			g.CreatedAt = now
		}
		if g.Senders == nil {
			g.Senders = []string{}
		}
		g.UpdatedAt = now
		known[g.ID] = true
		groups = append(groups, g)
	}

	active := make([]string, 0, len(settings.ActiveFilters.ActiveSenderGroups))
	for _, id := range settings.ActiveFilters.ActiveSenderGroups {
		if known[id] {
			active = append(active, id)
		}
	}

	settings.UserID = user
	settings.SenderGroups = groups
	settings.ActiveFilters.ActiveSenderGroups = active
	if settings.ActiveFilters.IndividualSenders == nil {
		settings.ActiveFilters.IndividualSenders = []string{}
	}
	if settings.ActiveFilters.ReadStatus == "" {
		settings.ActiveFilters.ReadStatus = ReadStatusAll
	}
	settings.UpdatedAt = now

	if err := s.store.Set(ctx, settingsKey(user), settings); err != nil {
		return nil, fmt.Errorf("failed to save filter settings: %w", err)
	}

	logging.WithUser(s.logger, user).Info("Filter settings saved",
		"groups", len(groups),
		"enabled", settings.ActiveFilters.Enabled)
	return &settings, nil
}

// Query returns the Gmail search query for the user's active filters.
func (s *Service) Query(ctx context.Context, user string) (string, error) {
	settings, err := s.Get(ctx, user)
	if err != nil {
		return "", err
	}
	return BuildQuery(settings.ActiveFilters, settings.SenderGroups), nil
}
