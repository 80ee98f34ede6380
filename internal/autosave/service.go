package autosave

import (
	"context"
	"strings"
	"sync"
	"time"

	pkgerrors "github.com/aarvika/storefront-backend/pkg/errors"
	"github.com/aarvika/storefront-backend/pkg/logger"
)

const (
	defaultDebounceWindow = time.Second
	defaultSnapshotMaxAge = 24 * time.Hour

	formKeyPrefix = "form:"
)

// Fields never persisted, regardless of what the form posts.
var excludedFields = map[string]struct{}{
	"password":         {},
	"password_confirm": {},
	"card_number":      {},
	"cvv":              {},
	"otp":              {},
}

// FormStore is the snapshot surface autosave persists drafts in.
type FormStore interface {
	Save(ctx context.Context, scope, key string, value any)
	Load(ctx context.Context, scope, key string, maxAge time.Duration, dest any) bool
	Remove(ctx context.Context, scope, key string)
	Clear(ctx context.Context, scope string)
}

// ServiceParams groups dependencies for the form autosave service.
type ServiceParams struct {
	Store          FormStore
	Logger         *logger.Logger
	DebounceWindow time.Duration
	SnapshotMaxAge time.Duration
}

// Service drafts form input so an interrupted session can pick up where it
// left off. Writes are debounced; the newest draft always wins.
type Service interface {
	Record(ctx context.Context, userID, formID string, fields map[string]string) error
	SaveNow(ctx context.Context, userID, formID string, fields map[string]string) error
	Restore(ctx context.Context, userID, formID string, current map[string]string) (map[string]string, bool, error)
	Clear(ctx context.Context, userID, formID string) error
	ClearAll(ctx context.Context, userID string) error
	OnSessionChange(ctx context.Context, userID, event string)
}

type service struct {
	store    FormStore
	logg     *logger.Logger
	debounce time.Duration
	maxAge   time.Duration

	mu      sync.Mutex
	pending map[string]*pendingWrite
}

type pendingWrite struct {
	timer  *time.Timer
	fields map[string]string
}

// NewService builds the autosave service.
func NewService(params ServiceParams) (Service, error) {
	if params.Store == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "form store is required")
	}
	debounce := params.DebounceWindow
	if debounce <= 0 {
		debounce = defaultDebounceWindow
	}
	maxAge := params.SnapshotMaxAge
	if maxAge <= 0 {
		maxAge = defaultSnapshotMaxAge
	}
	return &service{
		store:    params.Store,
		logg:     params.Logger,
		debounce: debounce,
		maxAge:   maxAge,
		pending:  map[string]*pendingWrite{},
	}, nil
}

// Record schedules a draft write. Repeated calls inside the debounce window
// replace the pending payload and restart the timer, so only the latest
// keystroke burst hits the store.
func (s *service) Record(ctx context.Context, userID, formID string, fields map[string]string) error {
	if err := validateIDs(userID, formID); err != nil {
		return err
	}

	sanitized := sanitize(fields)

	s.mu.Lock()
	defer s.mu.Unlock()

	key := userID + "/" + formID
	if existing, ok := s.pending[key]; ok {
		existing.timer.Stop()
	}

	write := &pendingWrite{fields: sanitized}
	// the request context dies with the response; flush detached
	write.timer = time.AfterFunc(s.debounce, func() {
		s.flush(context.Background(), userID, formID, key)
	})
	s.pending[key] = write
	return nil
}

// SaveNow bypasses the debounce, e.g. on blur or page navigation.
func (s *service) SaveNow(ctx context.Context, userID, formID string, fields map[string]string) error {
	if err := validateIDs(userID, formID); err != nil {
		return err
	}

	s.mu.Lock()
	key := userID + "/" + formID
	if existing, ok := s.pending[key]; ok {
		existing.timer.Stop()
		delete(s.pending, key)
	}
	s.mu.Unlock()

	s.store.Save(ctx, userID, formKeyPrefix+formID, sanitize(fields))
	return nil
}

// Restore merges the saved draft into the current form values, filling only
// fields the shopper has not already typed into. Anything present in current
// is never overwritten.
func (s *service) Restore(ctx context.Context, userID, formID string, current map[string]string) (map[string]string, bool, error) {
	if err := validateIDs(userID, formID); err != nil {
		return nil, false, err
	}

	var saved map[string]string
	if !s.store.Load(ctx, userID, formKeyPrefix+formID, s.maxAge, &saved) {
		return current, false, nil
	}

	merged := make(map[string]string, len(current)+len(saved))
	for field, value := range current {
		merged[field] = value
	}
	restored := false
	for field, value := range saved {
		if _, skip := excludedFields[field]; skip {
			continue
		}
		if existing, ok := merged[field]; ok && existing != "" {
			continue
		}
		merged[field] = value
		restored = true
	}
	return merged, restored, nil
}

// Clear drops the draft for one form.
func (s *service) Clear(ctx context.Context, userID, formID string) error {
	if err := validateIDs(userID, formID); err != nil {
		return err
	}

	s.mu.Lock()
	key := userID + "/" + formID
	if existing, ok := s.pending[key]; ok {
		existing.timer.Stop()
		delete(s.pending, key)
	}
	s.mu.Unlock()

	s.store.Remove(ctx, userID, formKeyPrefix+formID)
	return nil
}

// ClearAll drops every draft for the user, used when the session ends.
func (s *service) ClearAll(ctx context.Context, userID string) error {
	if strings.TrimSpace(userID) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}

	s.mu.Lock()
	prefix := userID + "/"
	for key, write := range s.pending {
		if strings.HasPrefix(key, prefix) {
			write.timer.Stop()
			delete(s.pending, key)
		}
	}
	s.mu.Unlock()

	s.store.Clear(ctx, userID)
	return nil
}

// OnSessionChange clears drafts when the user logs out.
func (s *service) OnSessionChange(ctx context.Context, userID, event string) {
	if event != "logout" {
		return
	}
	if err := s.ClearAll(ctx, userID); err != nil && s.logg != nil {
		s.logg.Warn(ctx, "clear drafts on logout: "+err.Error())
	}
}

func (s *service) flush(ctx context.Context, userID, formID, key string) {
	s.mu.Lock()
	write, ok := s.pending[key]
	if ok {
		delete(s.pending, key)
	}
	s.mu.Unlock()
	if !ok {
		return
	}

	s.store.Save(ctx, userID, formKeyPrefix+formID, write.fields)
}

// sanitize keeps only fields worth restoring: excluded fields never persist,
// and neither do empty values, which would otherwise shadow a later draft
// merge.
func sanitize(fields map[string]string) map[string]string {
	out := make(map[string]string, len(fields))
	for field, value := range fields {
		if value == "" {
			continue
		}
		if _, skip := excludedFields[field]; skip {
			continue
		}
		out[field] = value
	}
	return out
}

func validateIDs(userID, formID string) error {
	if strings.TrimSpace(userID) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	if strings.TrimSpace(formID) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "form id is required")
	}
	return nil
}
