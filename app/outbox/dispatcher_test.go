package outbox

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/escomrepo/users-service/app/authors"
	"github.com/escomrepo/users-service/app/config"
	"github.com/escomrepo/users-service/app/logger"
	"github.com/escomrepo/users-service/app/models"
	"github.com/escomrepo/users-service/app/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

/*
Dispatcher Test Cases:

1. TestDispatcher_CreateAuthor_Success
   - Author not found -> created, linked, event marked processed

2. TestDispatcher_CreateAuthor_ExistingAuthorReused
   - Author already in the registry -> no second create, link uses its id

3. TestDispatcher_CreateAuthor_RegistryDown
   - Registry failing -> retry count incremented, event not marked processed

4. TestDispatcher_CreateAuthor_IdempotentAcrossRetries
   - Same event processed twice against a stateful fake registry ends with
     exactly one author and one link

5. TestDispatcher_DeleteLink_Success / NoLinkIsNoOp

6. TestDispatcher_UnknownEventType_DeadLettered
   - Marked processed without touching the registry

7. TestDispatcher_UnreadablePayload_DeadLettered

8. TestDispatcher_Run_StopsOnContextCancel
*/

type fakeOutboxStore struct {
	pending   []models.OutboxEvent
	processed []int64
	retries   map[int64]int
	fetchErr  error
	markErr   error
	retryErr  error
}

func newFakeOutboxStore(events ...models.OutboxEvent) *fakeOutboxStore {
	return &fakeOutboxStore{pending: events, retries: make(map[int64]int)}
}

func (f *fakeOutboxStore) Append(ctx context.Context, eventType, payload string, userID int64) error {
	return nil
}

func (f *fakeOutboxStore) FetchPending(ctx context.Context, limit int) ([]models.OutboxEvent, error) {
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	if len(f.pending) > limit {
		return f.pending[:limit], nil
	}
	return f.pending, nil
}

func (f *fakeOutboxStore) MarkProcessed(ctx context.Context, eventID int64) error {
	if f.markErr != nil {
		return f.markErr
	}
	f.processed = append(f.processed, eventID)
	remaining := f.pending[:0]
	for _, e := range f.pending {
		if e.ID != eventID {
			remaining = append(remaining, e)
		}
	}
	f.pending = remaining
	return nil
}

func (f *fakeOutboxStore) IncrementRetry(ctx context.Context, eventID int64) (int, error) {
	if f.retryErr != nil {
		return 0, f.retryErr
	}
	f.retries[eventID]++
	return f.retries[eventID], nil
}

// fakeRegistry is a stateful in-memory author registry. It behaves like the
// real one: find-by-email, create, link, unlink, all idempotent targets.
type fakeRegistry struct {
	nextID  int
	authors map[string]authors.AuthorData // by email
	links   map[int64]int                 // userID -> authorID

	createCalls int
	linkCalls   int
	down        bool
}

func newFakeRegistry() *fakeRegistry {
	return &fakeRegistry{
		nextID:  1,
		authors: make(map[string]authors.AuthorData),
		links:   make(map[int64]int),
	}
}

func (f *fakeRegistry) FindAuthorByEmail(ctx context.Context, email string) authors.Response {
	if f.down {
		return authors.Response{Ok: false, Message: "registry unavailable"}
	}
	if a, ok := f.authors[email]; ok {
		found := a
		return authors.Response{Ok: true, Data: &found}
	}
	return authors.Response{Ok: false, Message: "author not found"}
}

func (f *fakeRegistry) CreateAuthor(ctx context.Context, name, surname, email string) authors.Response {
	f.createCalls++
	if f.down {
		return authors.Response{Ok: false, Message: "registry unavailable"}
	}
	a := authors.AuthorData{ID: f.nextID, Name: name, Surname: surname, Email: email}
	f.nextID++
	f.authors[email] = a
	created := a
	return authors.Response{Ok: true, Data: &created}
}

func (f *fakeRegistry) GetLink(ctx context.Context, userID int64) authors.Response {
	if f.down {
		return authors.Response{Ok: false, Message: "registry unavailable"}
	}
	authorID, ok := f.links[userID]
	if !ok {
		return authors.Response{Ok: false, Message: "link not found"}
	}
	return authors.Response{Ok: true, Data: &authors.AuthorData{ID: authorID}}
}

func (f *fakeRegistry) CreateLink(ctx context.Context, userID int64, authorID int) authors.Response {
	f.linkCalls++
	if f.down {
		return authors.Response{Ok: false, Message: "registry unavailable"}
	}
	f.links[userID] = authorID
	return authors.Response{Ok: true}
}

func (f *fakeRegistry) DeleteLink(ctx context.Context, userID int64, authorID int) authors.Response {
	if f.down {
		return authors.Response{Ok: false, Message: "registry unavailable"}
	}
	delete(f.links, userID)
	return authors.Response{Ok: true}
}

func testDispatcher(ob *fakeOutboxStore, registry authors.Client) *Dispatcher {
	cfg := config.App{
		RetryCap:     3,
		PollInterval: 10 * time.Millisecond,
		BatchSize:    10,
	}
	return NewDispatcher(store.Storage{Outbox: ob}, registry, cfg, logger.Logger)
}

func mustEncode(t *testing.T, ev UserEvent) string {
	t.Helper()
	payload, err := EncodeUserEvent(ev)
	require.NoError(t, err)
	return payload
}

func createAuthorEvent(t *testing.T, id int64) models.OutboxEvent {
	return models.OutboxEvent{
		ID:        id,
		EventType: models.EventCreateAuthor,
		UserID:    7,
		Payload: mustEncode(t, UserEvent{
			UserID:    7,
			Email:     "luis@ipn.mx",
			Name:      "Luis",
			LastNameP: "Mora",
			LastNameM: "Diaz",
			PrevRole:  models.RoleGeneral,
			NewRole:   models.RoleAuthor,
		}),
	}
}

func TestDispatcher_CreateAuthor_Success(t *testing.T) {
	ob := newFakeOutboxStore(createAuthorEvent(t, 1))
	registry := newFakeRegistry()
	d := testDispatcher(ob, registry)

	d.processPending(context.Background())

	assert.Equal(t, []int64{1}, ob.processed, "Event should be marked processed")
	assert.Equal(t, 1, registry.createCalls)
	require.Contains(t, registry.authors, "luis@ipn.mx")
	assert.Equal(t, "Mora Diaz", registry.authors["luis@ipn.mx"].Surname, "Both surnames are joined")
	assert.Equal(t, registry.authors["luis@ipn.mx"].ID, registry.links[7], "User is linked to the new author")
}

func TestDispatcher_CreateAuthor_ExistingAuthorReused(t *testing.T) {
	ob := newFakeOutboxStore(createAuthorEvent(t, 1))
	registry := newFakeRegistry()
	registry.authors["luis@ipn.mx"] = authors.AuthorData{ID: 55, Email: "luis@ipn.mx"}
	d := testDispatcher(ob, registry)

	d.processPending(context.Background())

	assert.Equal(t, 0, registry.createCalls, "Existing author must not be recreated")
	assert.Equal(t, 55, registry.links[7], "Link uses the existing author id")
	assert.Equal(t, []int64{1}, ob.processed)
}

func TestDispatcher_CreateAuthor_RegistryDown(t *testing.T) {
	ob := newFakeOutboxStore(createAuthorEvent(t, 1))
	registry := newFakeRegistry()
	registry.down = true
	d := testDispatcher(ob, registry)

	d.processPending(context.Background())

	assert.Empty(t, ob.processed, "Failed event must stay pending")
	assert.Equal(t, 1, ob.retries[1], "Retry count is incremented")

	// Two more failing passes reach the cap; the event is never marked
	// processed, FetchPending filtering is what retires it.
	d.processPending(context.Background())
	d.processPending(context.Background())
	assert.Equal(t, 3, ob.retries[1])
	assert.Empty(t, ob.processed)
}

func TestDispatcher_CreateAuthor_IdempotentAcrossRetries(t *testing.T) {
	event := createAuthorEvent(t, 1)
	registry := newFakeRegistry()

	// First attempt succeeds remotely but MarkProcessed fails, so the event
	// is seen again. The second attempt must not create a second author.
	ob := newFakeOutboxStore(event)
	ob.markErr = errors.New("db hiccup")
	d := testDispatcher(ob, registry)
	d.processPending(context.Background())

	ob.markErr = nil
	d.processPending(context.Background())

	assert.Equal(t, 1, registry.createCalls, "Author created exactly once")
	assert.Len(t, registry.authors, 1)
	assert.Len(t, registry.links, 1)
	assert.Equal(t, []int64{1}, ob.processed)
}

func TestDispatcher_DeleteLink_Success(t *testing.T) {
	event := models.OutboxEvent{
		ID:        2,
		EventType: models.EventDeleteLink,
		UserID:    7,
		Payload: mustEncode(t, UserEvent{
			UserID:   7,
			Email:    "luis@ipn.mx",
			PrevRole: models.RoleAuthor,
			NewRole:  models.RoleGeneral,
		}),
	}
	ob := newFakeOutboxStore(event)
	registry := newFakeRegistry()
	registry.links[7] = 55
	d := testDispatcher(ob, registry)

	d.processPending(context.Background())

	assert.NotContains(t, registry.links, int64(7), "Link should be removed")
	assert.Equal(t, []int64{2}, ob.processed)
}

func TestDispatcher_DeleteLink_NoLinkIsNoOp(t *testing.T) {
	event := models.OutboxEvent{
		ID:        2,
		EventType: models.EventDeleteLink,
		UserID:    7,
		Payload:   mustEncode(t, UserEvent{UserID: 7, Email: "luis@ipn.mx"}),
	}
	ob := newFakeOutboxStore(event)
	registry := newFakeRegistry()
	d := testDispatcher(ob, registry)

	d.processPending(context.Background())

	assert.Equal(t, []int64{2}, ob.processed, "Absent link still counts as success")
	assert.Empty(t, ob.retries, "No retry for an already-gone link")
}

func TestDispatcher_UnknownEventType_DeadLettered(t *testing.T) {
	event := models.OutboxEvent{
		ID:        3,
		EventType: "RENAME_AUTHOR",
		UserID:    7,
		Payload:   mustEncode(t, UserEvent{UserID: 7}),
	}
	ob := newFakeOutboxStore(event)
	registry := newFakeRegistry()
	d := testDispatcher(ob, registry)

	d.processPending(context.Background())

	assert.Equal(t, []int64{3}, ob.processed, "Unknown type is retired immediately")
	assert.Equal(t, 0, registry.createCalls, "Registry is never contacted")
	assert.Empty(t, ob.retries)
}

func TestDispatcher_UnreadablePayload_DeadLettered(t *testing.T) {
	event := models.OutboxEvent{
		ID:        4,
		EventType: models.EventCreateAuthor,
		UserID:    7,
		Payload:   "{not json",
	}
	ob := newFakeOutboxStore(event)
	registry := newFakeRegistry()
	d := testDispatcher(ob, registry)

	d.processPending(context.Background())

	assert.Equal(t, []int64{4}, ob.processed)
	assert.Equal(t, 0, registry.createCalls)
}

func TestDispatcher_Run_StopsOnContextCancel(t *testing.T) {
	ob := newFakeOutboxStore()
	d := testDispatcher(ob, newFakeRegistry())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		d.Run(ctx)
	}()

	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("dispatcher did not stop after context cancellation")
	}
}
