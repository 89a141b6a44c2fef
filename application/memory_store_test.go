package application

import (
	"context"
	"strings"
	"sync"
	"time"

	"skywager/domain/entities"
	"skywager/domain/events"
	"skywager/domain/interfaces"

	"github.com/google/uuid"
)

// memoryStore is an in-memory database for application tests.
// A unit of work holds the store lock from Begin until Commit or Rollback, and a rollback
// restores the state captured at Begin.
type memoryStore struct {
	mu             sync.Mutex
	nextID         int64
	wagers         map[entities.WagerKind]map[int64]*entities.Settleable
	balances       map[balanceKey]int64
	history        []*entities.BalanceHistory
	notifications  []*entities.Notification
	accuracy       []*entities.AccuracyLog
	published      []events.Event
	commits        int
	failNextLedger error
	failNotify     error
}

type balanceKey struct {
	userID   uuid.UUID
	currency entities.CurrencyKind
}

type storeSnapshot struct {
	nextID        int64
	wagers        map[entities.WagerKind]map[int64]*entities.Settleable
	balances      map[balanceKey]int64
	history       int
	notifications int
	accuracy      int
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		wagers: map[entities.WagerKind]map[int64]*entities.Settleable{
			entities.WagerKindSingle:   {},
			entities.WagerKindParlay:   {},
			entities.WagerKindCombined: {},
		},
		balances: make(map[balanceKey]int64),
	}
}

func cloneWager(w *entities.Settleable) *entities.Settleable {
	c := *w
	c.Legs = make([]*entities.Leg, len(w.Legs))
	for i, leg := range w.Legs {
		l := *leg
		c.Legs[i] = &l
	}
	return &c
}

func (s *memoryStore) snapshot() storeSnapshot {
	wagers := make(map[entities.WagerKind]map[int64]*entities.Settleable, len(s.wagers))
	for kind, byID := range s.wagers {
		wagers[kind] = make(map[int64]*entities.Settleable, len(byID))
		for id, w := range byID {
			wagers[kind][id] = cloneWager(w)
		}
	}
	balances := make(map[balanceKey]int64, len(s.balances))
	for k, v := range s.balances {
		balances[k] = v
	}
	return storeSnapshot{
		nextID:        s.nextID,
		wagers:        wagers,
		balances:      balances,
		history:       len(s.history),
		notifications: len(s.notifications),
		accuracy:      len(s.accuracy),
	}
}

func (s *memoryStore) restore(snap storeSnapshot) {
	s.nextID = snap.nextID
	s.wagers = snap.wagers
	s.balances = snap.balances
	s.history = s.history[:snap.history]
	s.notifications = s.notifications[:snap.notifications]
	s.accuracy = s.accuracy[:snap.accuracy]
}

// seed stores a wager outside any unit of work
func (s *memoryStore) seed(w *entities.Settleable) *entities.Settleable {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	w.ID = s.nextID
	s.wagers[w.Kind][w.ID] = cloneWager(w)
	return w
}

func (s *memoryStore) fund(userID uuid.UUID, currency entities.CurrencyKind, amount int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.balances[balanceKey{userID, currency}] += amount
}

func (s *memoryStore) balance(userID uuid.UUID, currency entities.CurrencyKind) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.balances[balanceKey{userID, currency}]
}

func (s *memoryStore) wager(kind entities.WagerKind, id int64) *entities.Settleable {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneWager(s.wagers[kind][id])
}

func (s *memoryStore) eventsOfType(eventType events.EventType) []events.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []events.Event
	for _, e := range s.published {
		if e.Type() == eventType {
			out = append(out, e)
		}
	}
	return out
}

// memoryUnitOfWorkFactory creates units of work over a memoryStore
type memoryUnitOfWorkFactory struct {
	store *memoryStore
}

func (f *memoryUnitOfWorkFactory) Create() UnitOfWork {
	return &memoryUnitOfWork{store: f.store}
}

type memoryUnitOfWork struct {
	store   *memoryStore
	snap    storeSnapshot
	pending []events.Event
	active  bool
}

func (u *memoryUnitOfWork) Begin(ctx context.Context) error {
	u.store.mu.Lock()
	u.snap = u.store.snapshot()
	u.active = true
	return nil
}

func (u *memoryUnitOfWork) Commit() error {
	if !u.active {
		return nil
	}
	u.store.published = append(u.store.published, u.pending...)
	u.store.commits++
	u.pending = nil
	u.active = false
	u.store.mu.Unlock()
	return nil
}

func (u *memoryUnitOfWork) Rollback() error {
	if !u.active {
		return nil
	}
	u.store.restore(u.snap)
	u.pending = nil
	u.active = false
	u.store.mu.Unlock()
	return nil
}

func (u *memoryUnitOfWork) SettleableRepository() interfaces.SettleableRepository {
	return (*memoryWagerRepo)(u.store)
}

func (u *memoryUnitOfWork) BalanceRepository() interfaces.BalanceRepository {
	return (*memoryBalanceRepo)(u.store)
}

func (u *memoryUnitOfWork) BalanceHistoryRepository() interfaces.BalanceHistoryRepository {
	return (*memoryHistoryRepo)(u.store)
}

func (u *memoryUnitOfWork) NotificationRepository() interfaces.NotificationRepository {
	return (*memoryNotificationRepo)(u.store)
}

func (u *memoryUnitOfWork) AccuracyLogRepository() interfaces.AccuracyLogRepository {
	return (*memoryAccuracyRepo)(u.store)
}

func (u *memoryUnitOfWork) EventBus() interfaces.EventPublisher {
	return u
}

func (u *memoryUnitOfWork) Publish(event events.Event) error {
	u.pending = append(u.pending, event)
	return nil
}

// Repositories below run with the store lock already held by the unit of work

type memoryWagerRepo memoryStore

func (r *memoryWagerRepo) Create(ctx context.Context, w *entities.Settleable) error {
	r.nextID++
	w.ID = r.nextID
	if w.CreatedAt.IsZero() {
		w.CreatedAt = time.Now().UTC()
	}
	r.wagers[w.Kind][w.ID] = cloneWager(w)
	return nil
}

func (r *memoryWagerRepo) GetByID(ctx context.Context, kind entities.WagerKind, id int64) (*entities.Settleable, error) {
	w, ok := r.wagers[kind][id]
	if !ok {
		return nil, nil
	}
	return cloneWager(w), nil
}

func (r *memoryWagerRepo) GetDue(ctx context.Context, kind entities.WagerKind, now time.Time) ([]*entities.Settleable, error) {
	var due []*entities.Settleable
	for _, w := range r.wagers[kind] {
		if w.IsDue(now) {
			due = append(due, cloneWager(w))
		}
	}
	return due, nil
}

func (r *memoryWagerRepo) GetPendingByUser(ctx context.Context, kind entities.WagerKind, userID uuid.UUID) ([]*entities.Settleable, error) {
	var pending []*entities.Settleable
	for _, w := range r.wagers[kind] {
		if w.UserID == userID && w.IsPending() {
			pending = append(pending, cloneWager(w))
		}
	}
	return pending, nil
}

func (r *memoryWagerRepo) MarkSettled(ctx context.Context, kind entities.WagerKind, id int64, result entities.WagerResult, payout int64, settledAt time.Time) (bool, error) {
	w, ok := r.wagers[kind][id]
	if !ok || !w.IsPending() {
		return false, nil
	}
	w.Result = result
	w.Payout = payout
	w.SettledAt = &settledAt
	return true, nil
}

func (r *memoryWagerRepo) MarkCashedOut(ctx context.Context, kind entities.WagerKind, id int64, amount int64, at time.Time) (bool, error) {
	w, ok := r.wagers[kind][id]
	if !ok || !w.IsPending() {
		return false, nil
	}
	w.Result = entities.WagerResultCashedOut
	w.CashedOut = true
	w.CashOutAmount = amount
	w.SettledAt = &at
	return true, nil
}

func (r *memoryWagerRepo) RecordLegResults(ctx context.Context, wager *entities.Settleable) error {
	stored := r.wagers[wager.Kind][wager.ID]
	for i, leg := range wager.Legs {
		stored.Legs[i].Result = leg.Result
	}
	return nil
}

type memoryBalanceRepo memoryStore

func (r *memoryBalanceRepo) GetBalance(ctx context.Context, userID uuid.UUID, currency entities.CurrencyKind) (int64, error) {
	return r.balances[balanceKey{userID, currency}], nil
}

func (r *memoryBalanceRepo) Adjust(ctx context.Context, userID uuid.UUID, currency entities.CurrencyKind, delta int64) (int64, int64, error) {
	key := balanceKey{userID, currency}
	before := r.balances[key]
	if before+delta < 0 {
		return 0, 0, entities.ErrInsufficientBalance
	}
	r.balances[key] = before + delta
	return before, before + delta, nil
}

type memoryHistoryRepo memoryStore

func (r *memoryHistoryRepo) Record(ctx context.Context, h *entities.BalanceHistory) error {
	if err := r.failNextLedger; err != nil {
		r.failNextLedger = nil
		return err
	}
	if h.RelatedID != nil && h.RelatedType != nil {
		for _, existing := range r.history {
			if existing.RelatedID != nil && *existing.RelatedID == *h.RelatedID &&
				*existing.RelatedType == *h.RelatedType && existing.TransactionType == h.TransactionType {
				return entities.ErrDuplicateLedgerEntry
			}
		}
	}
	h.ID = int64(len(r.history) + 1)
	h.CreatedAt = time.Now().UTC()
	r.history = append(r.history, h)
	return nil
}

func (r *memoryHistoryRepo) GetByUser(ctx context.Context, userID uuid.UUID, limit int) ([]*entities.BalanceHistory, error) {
	var out []*entities.BalanceHistory
	for i := len(r.history) - 1; i >= 0 && len(out) < limit; i-- {
		if r.history[i].UserID == userID {
			out = append(out, r.history[i])
		}
	}
	return out, nil
}

func (r *memoryHistoryRepo) GetByRelated(ctx context.Context, relatedType entities.RelatedType, relatedID int64) ([]*entities.BalanceHistory, error) {
	var out []*entities.BalanceHistory
	for _, h := range r.history {
		if h.RelatedID != nil && *h.RelatedID == relatedID && *h.RelatedType == relatedType {
			out = append(out, h)
		}
	}
	return out, nil
}

type memoryNotificationRepo memoryStore

func (r *memoryNotificationRepo) Create(ctx context.Context, n *entities.Notification) error {
	if r.failNotify != nil {
		return r.failNotify
	}
	n.ID = int64(len(r.notifications) + 1)
	r.notifications = append(r.notifications, n)
	return nil
}

func (r *memoryNotificationRepo) GetByUser(ctx context.Context, userID uuid.UUID, limit int) ([]*entities.Notification, error) {
	var out []*entities.Notification
	for i := len(r.notifications) - 1; i >= 0 && len(out) < limit; i-- {
		if r.notifications[i].UserID == userID {
			out = append(out, r.notifications[i])
		}
	}
	return out, nil
}

type memoryAccuracyRepo memoryStore

func (r *memoryAccuracyRepo) Record(ctx context.Context, entry *entities.AccuracyLog) error {
	entry.ID = int64(len(r.accuracy) + 1)
	r.accuracy = append(r.accuracy, entry)
	return nil
}

func (r *memoryAccuracyRepo) GetAccuracyScore(ctx context.Context, city, category string, since time.Time) (entities.AccuracyScore, error) {
	score := entities.AccuracyScore{City: city, Category: category}
	for _, entry := range r.accuracy {
		if strings.EqualFold(entry.City, city) && entry.Category == category && !entry.ObservedAt.Before(since) {
			score.Samples++
			if entry.Hit {
				score.Hits++
			}
		}
	}
	return score, nil
}
