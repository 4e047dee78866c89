package sync

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"aurioncal/internal/models"
	"aurioncal/internal/planning"
)

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// fakeStore is an in-memory Store with switchable failure injection.
type fakeStore struct {
	mu         sync.Mutex
	users      map[uuid.UUID]*models.User
	statuses   map[uuid.UUID]*models.RefreshStatus
	events     map[uuid.UUID][]models.CalendarEvent
	replaceErr error
	saveCount  int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:    make(map[uuid.UUID]*models.User),
		statuses: make(map[uuid.UUID]*models.RefreshStatus),
		events:   make(map[uuid.UUID][]models.CalendarEvent),
	}
}

func (f *fakeStore) addUser(email string) uuid.UUID {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := uuid.New()
	f.users[id] = &models.User{
		ID:                id,
		Email:             email,
		PasswordEncrypted: "enc:" + email,
		CalendarToken:     uuid.New(),
	}
	return id
}

func (f *fakeStore) GetUser(_ context.Context, id uuid.UUID) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return nil, errors.New("no such user")
	}
	cp := *u
	return &cp, nil
}

func (f *fakeStore) ReplaceEvents(_ context.Context, userID uuid.UUID, events []models.CalendarEvent, syncedAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.replaceErr != nil {
		return f.replaceErr
	}
	f.events[userID] = events
	if u, ok := f.users[userID]; ok {
		ts := syncedAt
		u.LastUpdate = &ts
	}
	return nil
}

func (f *fakeStore) GetRefreshStatus(_ context.Context, userID uuid.UUID) (*models.RefreshStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if st, ok := f.statuses[userID]; ok {
		cp := *st
		return &cp, nil
	}
	return &models.RefreshStatus{UserID: userID}, nil
}

func (f *fakeStore) SaveRefreshStatus(_ context.Context, st *models.RefreshStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *st
	f.statuses[st.UserID] = &cp
	f.saveCount++
	return nil
}

func (f *fakeStore) status(userID uuid.UUID) models.RefreshStatus {
	f.mu.Lock()
	defer f.mu.Unlock()
	if st, ok := f.statuses[userID]; ok {
		return *st
	}
	return models.RefreshStatus{UserID: userID}
}

func (f *fakeStore) storedEvents(userID uuid.UUID) []models.CalendarEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.events[userID]
}

// fakeSource returns canned events or an error; fetchFn overrides both.
type fakeSource struct {
	mu      sync.Mutex
	events  []planning.RawEvent
	err     error
	calls   int
	fetchFn func(ctx context.Context) ([]planning.RawEvent, error)
}

func (f *fakeSource) FetchEvents(ctx context.Context, _, _ string, _, _ time.Time) ([]planning.RawEvent, error) {
	f.mu.Lock()
	f.calls++
	fn := f.fetchFn
	events, err := f.events, f.err
	f.mu.Unlock()

	if fn != nil {
		return fn(ctx)
	}
	return events, err
}

func (f *fakeSource) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// fakeDecryptor strips the "enc:" prefix the fakeStore applies.
type fakeDecryptor struct {
	err error
}

func (f *fakeDecryptor) Decrypt(ciphertext string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return "pw-for-" + ciphertext, nil
}

type fakeNotifier struct {
	mu    sync.Mutex
	sent  []string
	goods []*time.Time
}

func (f *fakeNotifier) NotifyFetchFailure(_ context.Context, email string, lastKnownGood *time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, email)
	f.goods = append(f.goods, lastKnownGood)
}

func (f *fakeNotifier) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

func rawEvent(id, title, courseType string) planning.RawEvent {
	return planning.RawEvent{
		ID:         id,
		Title:      title,
		CourseType: courseType,
		Start:      planning.APITime{Time: time.Date(2026, 1, 12, 8, 0, 0, 0, time.UTC)},
		End:        planning.APITime{Time: time.Date(2026, 1, 12, 10, 0, 0, 0, time.UTC)},
	}
}
