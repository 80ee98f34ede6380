package autosave

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type memStore struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newMemStore() *memStore {
	return &memStore{data: map[string][]byte{}}
}

func (m *memStore) Save(ctx context.Context, scope, key string, value any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	raw, _ := json.Marshal(value)
	m.data[scope+":"+key] = raw
}

func (m *memStore) Load(ctx context.Context, scope, key string, maxAge time.Duration, dest any) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	raw, ok := m.data[scope+":"+key]
	if !ok {
		return false
	}
	if dest != nil {
		_ = json.Unmarshal(raw, dest)
	}
	return true
}

func (m *memStore) Remove(ctx context.Context, scope, key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, scope+":"+key)
}

func (m *memStore) Clear(ctx context.Context, scope string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for key := range m.data {
		if strings.HasPrefix(key, scope+":") {
			delete(m.data, key)
		}
	}
}

func (m *memStore) saved(scope, key string) (map[string]string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	raw, ok := m.data[scope+":"+key]
	if !ok {
		return nil, false
	}
	var fields map[string]string
	_ = json.Unmarshal(raw, &fields)
	return fields, true
}

func newTestService(t *testing.T, store FormStore, debounce time.Duration) Service {
	t.Helper()
	svc, err := NewService(ServiceParams{Store: store, DebounceWindow: debounce})
	require.NoError(t, err)
	return svc
}

func TestRecordDebouncesAndLastWriteWins(t *testing.T) {
	store := newMemStore()
	svc := newTestService(t, store, 20*time.Millisecond)
	ctx := context.Background()

	require.NoError(t, svc.Record(ctx, "user-1", "checkout", map[string]string{"city": "Jai"}))
	require.NoError(t, svc.Record(ctx, "user-1", "checkout", map[string]string{"city": "Jaip"}))
	require.NoError(t, svc.Record(ctx, "user-1", "checkout", map[string]string{"city": "Jaipur"}))

	// nothing flushed before the window elapses
	_, ok := store.saved("user-1", "form:checkout")
	require.False(t, ok)

	require.Eventually(t, func() bool {
		fields, ok := store.saved("user-1", "form:checkout")
		return ok && fields["city"] == "Jaipur"
	}, time.Second, 5*time.Millisecond)
}

func TestSaveNowBypassesDebounce(t *testing.T) {
	store := newMemStore()
	svc := newTestService(t, store, time.Hour)
	ctx := context.Background()

	require.NoError(t, svc.Record(ctx, "user-1", "checkout", map[string]string{"city": "stale"}))
	require.NoError(t, svc.SaveNow(ctx, "user-1", "checkout", map[string]string{"city": "Jaipur"}))

	fields, ok := store.saved("user-1", "form:checkout")
	require.True(t, ok)
	require.Equal(t, "Jaipur", fields["city"])

	// the pending debounced write must not resurrect the stale draft
	time.Sleep(30 * time.Millisecond)
	fields, _ = store.saved("user-1", "form:checkout")
	require.Equal(t, "Jaipur", fields["city"])
}

func TestSensitiveFieldsNeverPersisted(t *testing.T) {
	store := newMemStore()
	svc := newTestService(t, store, time.Millisecond)
	ctx := context.Background()

	require.NoError(t, svc.SaveNow(ctx, "user-1", "signup", map[string]string{
		"email":    "meera@example.com",
		"password": "hunter2",
		"cvv":      "123",
	}))

	fields, ok := store.saved("user-1", "form:signup")
	require.True(t, ok)
	require.Equal(t, "meera@example.com", fields["email"])
	require.NotContains(t, fields, "password")
	require.NotContains(t, fields, "cvv")
}

func TestEmptyFieldsNeverPersisted(t *testing.T) {
	store := newMemStore()
	svc := newTestService(t, store, time.Millisecond)
	ctx := context.Background()

	require.NoError(t, svc.SaveNow(ctx, "user-1", "checkout", map[string]string{
		"name": "",
		"city": "Jaipur",
	}))

	fields, ok := store.saved("user-1", "form:checkout")
	require.True(t, ok)
	require.Equal(t, "Jaipur", fields["city"])
	require.NotContains(t, fields, "name")

	// a draft holding nothing but blanks must not report a restore
	require.NoError(t, svc.SaveNow(ctx, "user-1", "profile", map[string]string{"name": ""}))
	merged, restored, err := svc.Restore(ctx, "user-1", "profile", map[string]string{"name": ""})
	require.NoError(t, err)
	require.False(t, restored)
	require.Equal(t, "", merged["name"])
}

func TestRestoreFillsOnlyEmptyFields(t *testing.T) {
	store := newMemStore()
	svc := newTestService(t, store, time.Millisecond)
	ctx := context.Background()

	require.NoError(t, svc.SaveNow(ctx, "user-1", "checkout", map[string]string{
		"name": "Meera Sharma",
		"city": "Jaipur",
	}))

	merged, restored, err := svc.Restore(ctx, "user-1", "checkout", map[string]string{
		"name": "Asha Patel",
		"city": "",
	})
	require.NoError(t, err)
	require.True(t, restored)
	require.Equal(t, "Asha Patel", merged["name"], "typed value must win over the draft")
	require.Equal(t, "Jaipur", merged["city"])
}

func TestRestoreWithoutDraft(t *testing.T) {
	store := newMemStore()
	svc := newTestService(t, store, time.Millisecond)

	current := map[string]string{"name": "Asha"}
	merged, restored, err := svc.Restore(context.Background(), "user-1", "checkout", current)
	require.NoError(t, err)
	require.False(t, restored)
	require.Equal(t, current, merged)
}

func TestClearAllDropsDraftsAndPendingWrites(t *testing.T) {
	store := newMemStore()
	svc := newTestService(t, store, 20*time.Millisecond)
	ctx := context.Background()

	require.NoError(t, svc.SaveNow(ctx, "user-1", "checkout", map[string]string{"city": "Jaipur"}))
	require.NoError(t, svc.Record(ctx, "user-1", "profile", map[string]string{"name": "Meera"}))

	require.NoError(t, svc.ClearAll(ctx, "user-1"))

	_, ok := store.saved("user-1", "form:checkout")
	require.False(t, ok)

	// cancelled debounce must not write after the wipe
	time.Sleep(50 * time.Millisecond)
	_, ok = store.saved("user-1", "form:profile")
	require.False(t, ok)
}
