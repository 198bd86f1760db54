package gateway

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"max.ks1230/spending-tracker/internal/model/records"
	"max.ks1230/spending-tracker/internal/model/storage"
)

func seed(t *testing.T, store *storage.InMemStorage) {
	t.Helper()
	ctx := context.Background()
	date := time.Date(2024, time.March, 5, 0, 0, 0, 0, time.UTC)

	require.NoError(t, store.Set(ctx, storage.UserPath("u1"), storage.Fields{"username": "ann", "budget": "120"}))
	require.NoError(t, store.Set(ctx, storage.DocPath(storage.CategoriesPath("u1"), "food"), storage.Fields{"name": "Food", "icon": "pizza"}))
	require.NoError(t, store.Set(ctx, storage.DocPath(storage.CategoriesPath("u1"), "broken"), storage.Fields{"icon": "x"}))
	require.NoError(t, store.Set(ctx, storage.DocPath(storage.ExpensesPath("u1"), "ok"), storage.Fields{"name": "lunch", "amount": 100.0, "category": "food", "date": date}))
	require.NoError(t, store.Set(ctx, storage.DocPath(storage.ExpensesPath("u1"), "nan"), storage.Fields{"name": "junk", "amount": "abc", "category": "food", "date": date}))
	require.NoError(t, store.Set(ctx, storage.DocPath(storage.ExpensesPath("u1"), "orphan"), storage.Fields{"name": "lost", "amount": 5.0, "category": "gone", "date": date}))
}

func Test_Snapshot_QuarantinesMalformedDocuments(t *testing.T) {
	store := storage.NewInMemStorage()
	seed(t, store)

	snap, err := New(store).Snapshot(context.Background(), "u1")
	require.NoError(t, err)

	assert.True(t, snap.Loaded)
	assert.Equal(t, "ann", snap.Profile.Username)
	assert.Equal(t, "120", snap.Profile.Budget.String())
	require.Len(t, snap.Categories, 1)
	assert.Equal(t, "Food", snap.Categories[0].Name)
	require.Len(t, snap.Expenses, 1)
	assert.Equal(t, "ok", snap.Expenses[0].ID)

	fields := map[string]string{}
	for _, q := range snap.Quarantined {
		assert.ErrorIs(t, q, records.ErrCorruptRecord)
		fields[q.Path] = q.Field
	}
	assert.Equal(t, map[string]string{
		"users/u1/categories/broken": records.FieldName,
		"users/u1/expenses/nan":      records.FieldAmount,
		"users/u1/expenses/orphan":   records.FieldCategory,
	}, fields)
}

func Test_Snapshot_UnknownUserIsNotLoaded(t *testing.T) {
	snap, err := New(storage.NewInMemStorage()).Snapshot(context.Background(), "nobody")
	require.NoError(t, err)

	assert.False(t, snap.Loaded)
	assert.Empty(t, snap.Expenses)
	assert.Empty(t, snap.Categories)
	assert.Equal(t, "nobody", snap.Profile.ID)
}

func receive(t *testing.T, ch <-chan Change) Change {
	t.Helper()
	select {
	case c := <-ch:
		return c
	case <-time.After(time.Second):
		t.Fatal("no change delivered")
	}
	return Change{}
}

func Test_Subscribe_DeliversOwnChangesOnly(t *testing.T) {
	g := New(storage.NewInMemStorage())

	mine, cancelMine := g.Subscribe("u1")
	defer cancelMine()
	all, cancelAll := g.SubscribeAll()
	defer cancelAll()

	g.Publish(Change{UserID: "u2", Kind: ExpenseChanged})
	g.Publish(Change{UserID: "u1", Kind: CategoryChanged, DocumentID: "c1"})

	c := receive(t, mine)
	assert.Equal(t, "u1", c.UserID)
	assert.Equal(t, CategoryChanged, c.Kind)

	assert.Equal(t, "u2", receive(t, all).UserID)
	assert.Equal(t, "u1", receive(t, all).UserID)

	select {
	case c := <-mine:
		t.Fatalf("unexpected change for %s", c.UserID)
	case <-time.After(50 * time.Millisecond):
	}
}

func Test_Subscribe_LaggingReaderStillHearsEveryUser(t *testing.T) {
	g := New(storage.NewInMemStorage())
	all, cancel := g.SubscribeAll()
	defer cancel()

	for i := 0; i < subscriberBuffer*2; i++ {
		g.Publish(Change{UserID: "busy-user", Kind: ExpenseChanged, DocumentID: strconv.Itoa(i)})
	}
	g.Publish(Change{UserID: "victim", Kind: ProfileChanged})

	var last Change
	for {
		c := receive(t, all)
		if c.UserID == "victim" {
			assert.Equal(t, ProfileChanged, c.Kind)
			break
		}
		require.Equal(t, "busy-user", c.UserID)
		last = c
	}
	assert.Equal(t, strconv.Itoa(subscriberBuffer*2-1), last.DocumentID)
}

func Test_Subscribe_CoalescesPendingChangesPerUser(t *testing.T) {
	sub := &subscriber{
		wake:    make(chan struct{}, 1),
		pending: make(map[string]Change),
	}

	sub.offer(Change{UserID: "u1", DocumentID: "a"})
	sub.offer(Change{UserID: "u2", DocumentID: "b"})
	sub.offer(Change{UserID: "u1", DocumentID: "c", Deleted: true})

	assert.Equal(t, []Change{
		{UserID: "u1", DocumentID: "c", Deleted: true},
		{UserID: "u2", DocumentID: "b"},
	}, sub.take())
	assert.Empty(t, sub.take())
	assert.Len(t, sub.wake, 1)
}

func Test_Subscribe_CancelClosesChannel(t *testing.T) {
	g := New(storage.NewInMemStorage())
	ch, cancel := g.Subscribe("u1")
	cancel()
	cancel()

	_, open := <-ch
	assert.False(t, open)

	// publishing after cancel must not panic
	g.Publish(Change{UserID: "u1"})
}

func Test_Publish_NeverBlocks(t *testing.T) {
	g := New(storage.NewInMemStorage())
	_, cancel := g.Subscribe("u1")
	defer cancel()

	done := make(chan struct{})
	go func() {
		for i := 0; i < subscriberBuffer*4; i++ {
			g.Publish(Change{UserID: "u1"})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked on a full subscriber")
	}
}
