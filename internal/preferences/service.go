package preferences

import (
	"context"
	"strings"
	"time"

	pkgerrors "github.com/aarvika/storefront-backend/pkg/errors"
)

const (
	preferencesKey = "preferences"

	maxRecentlyViewed = 10
)

// PreferencesDTO is the small bag of browsing state the storefront restores
// across visits.
type PreferencesDTO struct {
	LastRoute         string   `json:"last_route,omitempty"`
	PreferredCategory string   `json:"preferred_category,omitempty"`
	RecentlyViewed    []string `json:"recently_viewed,omitempty"`
}

// PrefStore is the snapshot surface preferences persist in.
type PrefStore interface {
	Save(ctx context.Context, scope, key string, value any)
	Load(ctx context.Context, scope, key string, maxAge time.Duration, dest any) bool
	Remove(ctx context.Context, scope, key string)
}

// ServiceParams groups dependencies for the preferences service.
type ServiceParams struct {
	Store PrefStore
}

// Service persists per-user browsing preferences. Preferences never expire;
// they live until overwritten or cleared.
type Service interface {
	Get(ctx context.Context, userID string) (PreferencesDTO, error)
	Update(ctx context.Context, userID string, prefs PreferencesDTO) (PreferencesDTO, error)
	RecordView(ctx context.Context, userID, productSlug string) (PreferencesDTO, error)
	Clear(ctx context.Context, userID string) error
}

type service struct {
	store PrefStore
}

// NewService builds the preferences service.
func NewService(params ServiceParams) (Service, error) {
	if params.Store == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "preference store is required")
	}
	return &service{store: params.Store}, nil
}

// Get returns the stored preferences, or a zero value for new visitors.
func (s *service) Get(ctx context.Context, userID string) (PreferencesDTO, error) {
	if strings.TrimSpace(userID) == "" {
		return PreferencesDTO{}, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	var prefs PreferencesDTO
	s.store.Load(ctx, userID, preferencesKey, 0, &prefs)
	return prefs, nil
}

// Update overwrites the stored preferences with the provided value.
func (s *service) Update(ctx context.Context, userID string, prefs PreferencesDTO) (PreferencesDTO, error) {
	if strings.TrimSpace(userID) == "" {
		return PreferencesDTO{}, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	if len(prefs.RecentlyViewed) > maxRecentlyViewed {
		prefs.RecentlyViewed = prefs.RecentlyViewed[:maxRecentlyViewed]
	}
	s.store.Save(ctx, userID, preferencesKey, prefs)
	return prefs, nil
}

// RecordView pushes a product onto the recently-viewed list, most recent
// first, deduplicated and capped.
func (s *service) RecordView(ctx context.Context, userID, productSlug string) (PreferencesDTO, error) {
	slug := strings.TrimSpace(productSlug)
	if slug == "" {
		return PreferencesDTO{}, pkgerrors.New(pkgerrors.CodeValidation, "product slug is required")
	}

	prefs, err := s.Get(ctx, userID)
	if err != nil {
		return PreferencesDTO{}, err
	}

	viewed := make([]string, 0, maxRecentlyViewed)
	viewed = append(viewed, slug)
	for _, existing := range prefs.RecentlyViewed {
		if existing == slug {
			continue
		}
		viewed = append(viewed, existing)
		if len(viewed) == maxRecentlyViewed {
			break
		}
	}
	prefs.RecentlyViewed = viewed

	s.store.Save(ctx, userID, preferencesKey, prefs)
	return prefs, nil
}

// Clear wipes the stored preferences.
func (s *service) Clear(ctx context.Context, userID string) error {
	if strings.TrimSpace(userID) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	s.store.Remove(ctx, userID, preferencesKey)
	return nil
}
