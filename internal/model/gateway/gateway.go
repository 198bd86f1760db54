package gateway

import (
	"context"
	"sync"

	"github.com/opentracing/opentracing-go"
	"github.com/opentracing/opentracing-go/ext"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"max.ks1230/spending-tracker/internal/entity/expense"
	"max.ks1230/spending-tracker/internal/entity/user"
	"max.ks1230/spending-tracker/internal/logger"
	"max.ks1230/spending-tracker/internal/model/aggregator"
	"max.ks1230/spending-tracker/internal/model/records"
	"max.ks1230/spending-tracker/internal/model/storage"
)

const (
	subscriberBuffer = 16
	allUsers         = "*"
)

type documentReader interface {
	Get(ctx context.Context, path string) (storage.Document, error)
	Query(ctx context.Context, q storage.Query) ([]storage.Document, error)
}

type ChangeKind string

const (
	ExpenseChanged  ChangeKind = "expense"
	CategoryChanged ChangeKind = "category"
	ProfileChanged  ChangeKind = "profile"
)

type Change struct {
	UserID     string
	Kind       ChangeKind
	DocumentID string
	Deleted    bool
}

// Snapshot is everything the aggregator needs for one user. When Loaded is
// false the store holds nothing for the user yet.
type Snapshot struct {
	UserID      string
	Loaded      bool
	Profile     user.Profile
	Categories  []expense.Category
	Expenses    []expense.Expense
	Quarantined []*records.CorruptRecordError
}

type Gateway struct {
	store documentReader

	mu     sync.Mutex
	nextID int
	subs   map[string]map[int]*subscriber
}

func New(store documentReader) *Gateway {
	return &Gateway{
		store: store,
		subs:  make(map[string]map[int]*subscriber),
	}
}

func (g *Gateway) Snapshot(ctx context.Context, userID string) (Snapshot, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "snapshot")
	defer span.Finish()

	snap, err := g.snapshot(ctx, userID)
	if err != nil {
		ext.Error.Set(span, true)
		return Snapshot{}, errors.Wrap(err, "snapshot")
	}

	for _, c := range snap.Quarantined {
		observeCorrupt(c.Field)
		logger.Warn("quarantined record",
			zap.String("userID", userID),
			zap.String("path", c.Path),
			zap.String("field", c.Field),
			zap.String("reason", c.Reason))
	}
	span.SetTag("quarantined", len(snap.Quarantined))
	return snap, nil
}

func (g *Gateway) snapshot(ctx context.Context, userID string) (Snapshot, error) {
	snap := Snapshot{UserID: userID, Profile: user.Profile{ID: userID}}

	profileDoc, err := g.store.Get(ctx, storage.UserPath(userID))
	switch {
	case err == nil:
		snap.Loaded = true
		profile, err := records.DecodeProfile(profileDoc)
		snap.Profile = profile
		snap.quarantine(err)
	case !errors.Is(err, storage.ErrNotFound):
		return Snapshot{}, errors.Wrap(err, "get profile")
	}

	categoryDocs, err := g.store.Query(ctx, storage.Query{
		Collection: storage.CategoriesPath(userID),
		OrderBy:    records.FieldName,
	})
	if err != nil {
		return Snapshot{}, errors.Wrap(err, "get categories")
	}
	for _, d := range categoryDocs {
		c, err := records.DecodeCategory(d)
		if err != nil {
			snap.quarantine(err)
			continue
		}
		snap.Categories = append(snap.Categories, c)
	}

	expenseDocs, err := g.store.Query(ctx, storage.Query{
		Collection: storage.ExpensesPath(userID),
		OrderBy:    records.FieldDate,
		Desc:       true,
	})
	if err != nil {
		return Snapshot{}, errors.Wrap(err, "get expenses")
	}
	decoded := make([]expense.Expense, 0, len(expenseDocs))
	for _, d := range expenseDocs {
		e, err := records.DecodeExpense(d)
		if err != nil {
			snap.quarantine(err)
			continue
		}
		decoded = append(decoded, e)
	}

	valid, orphans := aggregator.Orphans(decoded, snap.Categories)
	for _, o := range orphans {
		snap.Quarantined = append(snap.Quarantined, &records.CorruptRecordError{
			Path:   storage.DocPath(storage.ExpensesPath(userID), o.ID),
			Field:  records.FieldCategory,
			Reason: "references unknown category " + o.Category,
		})
	}
	snap.Expenses = valid

	if len(categoryDocs) > 0 || len(expenseDocs) > 0 {
		snap.Loaded = true
	}
	return snap, nil
}

func (s *Snapshot) quarantine(err error) {
	if err == nil {
		return
	}
	var cre *records.CorruptRecordError
	if errors.As(err, &cre) {
		s.Quarantined = append(s.Quarantined, cre)
	}
}

// Subscribe delivers changes of one user until cancel is called. Pass "*"
// to receive every user's changes. The channel is closed after cancel.
func (g *Gateway) Subscribe(userID string) (<-chan Change, func()) {
	sub := newSubscriber()

	g.mu.Lock()
	id := g.nextID
	g.nextID++
	if g.subs[userID] == nil {
		g.subs[userID] = make(map[int]*subscriber)
	}
	g.subs[userID][id] = sub
	g.mu.Unlock()

	cancel := func() {
		g.mu.Lock()
		delete(g.subs[userID], id)
		if len(g.subs[userID]) == 0 {
			delete(g.subs, userID)
		}
		g.mu.Unlock()
		sub.close()
	}
	return sub.out, cancel
}

func (g *Gateway) SubscribeAll() (<-chan Change, func()) {
	return g.Subscribe(allUsers)
}

// Publish never blocks. A subscriber that falls behind gets the latest
// change of each user it has not read yet.
func (g *Gateway) Publish(c Change) {
	g.mu.Lock()
	defer g.mu.Unlock()

	for _, key := range []string{c.UserID, allUsers} {
		for _, sub := range g.subs[key] {
			sub.offer(c)
		}
	}
}
