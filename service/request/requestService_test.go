package request

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"bookswap/event"
	"bookswap/model"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"
)

// The service only uses the DB handle for transaction demarcation; the
// repo fakes ignore the tx. A stub driver keeps Begin/Commit/Rollback real.

type stubDriver struct{}

func (stubDriver) Open(string) (driver.Conn, error) { return stubConn{}, nil }

type stubConn struct{}

func (stubConn) Prepare(string) (driver.Stmt, error) { return nil, errors.New("not supported") }
func (stubConn) Close() error                        { return nil }
func (stubConn) Begin() (driver.Tx, error)           { return stubTx{}, nil }

type stubTx struct{}

func (stubTx) Commit() error   { return nil }
func (stubTx) Rollback() error { return nil }

var registerOnce sync.Once

func testDB(t *testing.T) *sql.DB {
	t.Helper()
	registerOnce.Do(func() { sql.Register("stub", stubDriver{}) })
	db, err := sql.Open("stub", "")
	require.NoError(t, err)
	return db
}

// in-memory request repo with the same guard-update semantics as SQL

type fakeRequestRepo struct {
	mu   sync.Mutex
	rows map[string]*model.Request
}

func newFakeRequestRepo() *fakeRequestRepo {
	return &fakeRequestRepo{rows: make(map[string]*model.Request)}
}

func (f *fakeRequestRepo) Insert(_ context.Context, r *model.Request) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, row := range f.rows {
		if row.BookID == r.BookID && row.RequesterID == r.RequesterID && row.Status == model.RequestPending {
			return &pgconn.PgError{Code: pgerrcode.UniqueViolation, ConstraintName: "requests_pending_once"}
		}
	}
	cp := *r
	f.rows[r.ID] = &cp
	return nil
}

func (f *fakeRequestRepo) GetForUpdate(_ context.Context, _ *sql.Tx, id string) (*model.Request, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	row, ok := f.rows[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *row
	return &cp, nil
}

func (f *fakeRequestRepo) UpdateStatus(_ context.Context, _ *sql.Tx, id string, from, to model.RequestStatus, dueAt *time.Time, at time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	row, ok := f.rows[id]
	if !ok || row.Status != from {
		return false, nil
	}
	row.Status = to
	row.UpdatedAt = at
	if dueAt != nil {
		row.DueAt = dueAt
	}
	return true, nil
}

func (f *fakeRequestRepo) Delete(_ context.Context, _ *sql.Tx, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.rows, id)
	return nil
}

func (f *fakeRequestRepo) ListByRequester(_ context.Context, userID int64) ([]model.Request, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Request
	for _, r := range f.rows {
		if r.RequesterID == userID {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (f *fakeRequestRepo) ListByOwner(_ context.Context, userID int64) ([]model.Request, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Request
	for _, r := range f.rows {
		if r.OwnerID == userID {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (f *fakeRequestRepo) CountByRequester(ctx context.Context, userID int64) (int64, error) {
	rows, _ := f.ListByRequester(ctx, userID)
	return int64(len(rows)), nil
}

func (f *fakeRequestRepo) CountByOwner(ctx context.Context, userID int64) (int64, error) {
	rows, _ := f.ListByOwner(ctx, userID)
	return int64(len(rows)), nil
}

func (f *fakeRequestRepo) DueForReminder(context.Context, time.Time, time.Duration) ([]model.Request, error) {
	return nil, nil
}
func (f *fakeRequestRepo) Overdue(context.Context, time.Time) ([]model.Request, error) {
	return nil, nil
}
func (f *fakeRequestRepo) MarkReminderSent(context.Context, string) error { return nil }
func (f *fakeRequestRepo) MarkOverdueSent(context.Context, string) error  { return nil }

type fakeBookRepo struct {
	byIDFn func(ctx context.Context, id int64) (*model.Book, error)
}

func (f *fakeBookRepo) Create(context.Context, *model.Book) error { return nil }
func (f *fakeBookRepo) List(context.Context) ([]model.Book, error) {
	return nil, nil
}
func (f *fakeBookRepo) ByID(ctx context.Context, id int64) (*model.Book, error) {
	return f.byIDFn(ctx, id)
}
func (f *fakeBookRepo) CountByOwner(context.Context, int64) (int64, error) { return 0, nil }

type fakeUserRepo struct {
	byIDFn func(ctx context.Context, id int64) (*model.User, error)
}

func (f *fakeUserRepo) Create(context.Context, *model.User) error { return nil }
func (f *fakeUserRepo) ByEmail(context.Context, string) (*model.User, error) {
	return nil, sql.ErrNoRows
}
func (f *fakeUserRepo) ByID(ctx context.Context, id int64) (*model.User, error) {
	return f.byIDFn(ctx, id)
}

type eventRecorder struct {
	mu     sync.Mutex
	events []event.Event
}

func (r *eventRecorder) HandleEvent(_ context.Context, ev event.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return nil
}

func (r *eventRecorder) all() []event.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]event.Event, len(r.events))
	copy(out, r.events)
	return out
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

const (
	ownerID     = int64(1)
	requesterID = int64(2)
)

func testService(t *testing.T) (Service, *fakeRequestRepo, *eventRecorder) {
	t.Helper()
	repo := newFakeRequestRepo()
	books := &fakeBookRepo{
		byIDFn: func(_ context.Context, id int64) (*model.Book, error) {
			if id != 1 {
				return nil, sql.ErrNoRows
			}
			return &model.Book{ID: 1, Title: "1984", OwnerID: ownerID, OwnerName: "Alice"}, nil
		},
	}
	users := &fakeUserRepo{
		byIDFn: func(_ context.Context, id int64) (*model.User, error) {
			return &model.User{ID: id, Name: "Bob", Email: "bob@example.com"}, nil
		},
	}
	rec := &eventRecorder{}
	svc := New(testDB(t), repo, books, users, rec, 14*24*time.Hour, testLogger())
	return svc, repo, rec
}

func TestCreate_Success(t *testing.T) {
	svc, _, rec := testService(t)

	req, err := svc.Create(context.Background(), requesterID, CreateReq{BookID: 1, RequestType: model.RequestBorrow})
	require.NoError(t, err)
	require.Equal(t, model.RequestPending, req.Status)
	require.Equal(t, "1984", req.BookTitle)
	require.Equal(t, ownerID, req.OwnerID)
	require.Equal(t, "Bob", req.RequesterName)
	require.Equal(t, "bob@example.com", req.RequesterEmail)

	events := rec.all()
	require.Len(t, events, 1)
	require.Equal(t, event.RequestSent, events[0].Type)
	require.Equal(t, ownerID, events[0].UserID)
	require.Equal(t, "1984", events[0].Data.BookTitle)
}

func TestCreate_OwnBook(t *testing.T) {
	svc, _, rec := testService(t)

	_, err := svc.Create(context.Background(), ownerID, CreateReq{BookID: 1, RequestType: model.RequestBorrow})
	require.Error(t, err)
	require.Equal(t, ErrValidation, Code(err))
	require.Empty(t, rec.all())
}

func TestCreate_BookMissing(t *testing.T) {
	svc, _, _ := testService(t)

	_, err := svc.Create(context.Background(), requesterID, CreateReq{BookID: 99, RequestType: model.RequestBorrow})
	require.Equal(t, ErrBookNotFound, Code(err))
}

func TestCreate_BadType(t *testing.T) {
	svc, _, _ := testService(t)

	_, err := svc.Create(context.Background(), requesterID, CreateReq{BookID: 1, RequestType: "steal"})
	require.Equal(t, ErrValidation, Code(err))
}

func TestCreate_DuplicatePending(t *testing.T) {
	svc, _, rec := testService(t)

	_, err := svc.Create(context.Background(), requesterID, CreateReq{BookID: 1, RequestType: model.RequestBorrow})
	require.NoError(t, err)

	// repeated create with the same (book, requester) pair keeps failing
	for i := 0; i < 5; i++ {
		_, err = svc.Create(context.Background(), requesterID, CreateReq{BookID: 1, RequestType: model.RequestSwap})
		require.Equal(t, ErrConflict, Code(err))
	}
	require.Len(t, rec.all(), 1)
}

func TestTransition_ApproveByOwner(t *testing.T) {
	svc, _, rec := testService(t)

	req, err := svc.Create(context.Background(), requesterID, CreateReq{BookID: 1, RequestType: model.RequestBorrow})
	require.NoError(t, err)

	got, err := svc.Transition(context.Background(), req.ID, ownerID, model.RequestApproved)
	require.NoError(t, err)
	require.Equal(t, model.RequestApproved, got.Status)
	require.NotNil(t, got.DueAt, "approved borrow must get a due date")

	events := rec.all()
	require.Len(t, events, 2)
	require.Equal(t, event.RequestApproved, events[1].Type)
	require.Equal(t, requesterID, events[1].UserID)
}

func TestTransition_SwapHasNoDueDate(t *testing.T) {
	svc, _, _ := testService(t)

	req, err := svc.Create(context.Background(), requesterID, CreateReq{BookID: 1, RequestType: model.RequestSwap})
	require.NoError(t, err)

	got, err := svc.Transition(context.Background(), req.ID, ownerID, model.RequestApproved)
	require.NoError(t, err)
	require.Nil(t, got.DueAt)
}

func TestTransition_NotOwner(t *testing.T) {
	svc, repo, rec := testService(t)

	req, err := svc.Create(context.Background(), requesterID, CreateReq{BookID: 1, RequestType: model.RequestBorrow})
	require.NoError(t, err)

	_, err = svc.Transition(context.Background(), req.ID, requesterID, model.RequestApproved)
	require.Equal(t, ErrForbidden, Code(err))

	// nothing mutated, no extra event
	row, err := repo.GetForUpdate(context.Background(), nil, req.ID)
	require.NoError(t, err)
	require.Equal(t, model.RequestPending, row.Status)
	require.Len(t, rec.all(), 1)
}

func TestTransition_ReturnOnlyByRequester(t *testing.T) {
	svc, _, rec := testService(t)

	req, err := svc.Create(context.Background(), requesterID, CreateReq{BookID: 1, RequestType: model.RequestBorrow})
	require.NoError(t, err)
	_, err = svc.Transition(context.Background(), req.ID, ownerID, model.RequestApproved)
	require.NoError(t, err)

	_, err = svc.Transition(context.Background(), req.ID, ownerID, model.RequestReturned)
	require.Equal(t, ErrForbidden, Code(err))

	got, err := svc.Transition(context.Background(), req.ID, requesterID, model.RequestReturned)
	require.NoError(t, err)
	require.Equal(t, model.RequestReturned, got.Status)

	events := rec.all()
	require.Equal(t, event.RequestReturned, events[len(events)-1].Type)
	require.Equal(t, ownerID, events[len(events)-1].UserID)
}

func TestTransition_NoSkipsOrReversals(t *testing.T) {
	svc, _, _ := testService(t)

	req, err := svc.Create(context.Background(), requesterID, CreateReq{BookID: 1, RequestType: model.RequestBorrow})
	require.NoError(t, err)

	// pending cannot jump straight to returned
	_, err = svc.Transition(context.Background(), req.ID, requesterID, model.RequestReturned)
	require.Equal(t, ErrInvalidTransition, Code(err))

	_, err = svc.Transition(context.Background(), req.ID, ownerID, model.RequestRejected)
	require.NoError(t, err)

	// rejected is terminal
	_, err = svc.Transition(context.Background(), req.ID, ownerID, model.RequestApproved)
	require.Equal(t, ErrInvalidTransition, Code(err))
}

func TestTransition_Missing(t *testing.T) {
	svc, _, _ := testService(t)
	_, err := svc.Transition(context.Background(), "nope", ownerID, model.RequestApproved)
	require.Equal(t, ErrNotFound, Code(err))
}

func TestTransition_ConcurrentApproveReject(t *testing.T) {
	svc, _, rec := testService(t)

	req, err := svc.Create(context.Background(), requesterID, CreateReq{BookID: 1, RequestType: model.RequestBorrow})
	require.NoError(t, err)

	var wg sync.WaitGroup
	results := make([]error, 2)
	targets := []model.RequestStatus{model.RequestApproved, model.RequestRejected}
	for i := range targets {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, results[i] = svc.Transition(context.Background(), req.ID, ownerID, targets[i])
		}(i)
	}
	wg.Wait()

	var okCount, conflictCount int
	for _, err := range results {
		switch {
		case err == nil:
			okCount++
		case Code(err) == ErrInvalidTransition:
			conflictCount++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	require.Equal(t, 1, okCount, "exactly one racing transition wins")
	require.Equal(t, 1, conflictCount)
	require.Len(t, rec.all(), 2, "create + exactly one transition event")
}

func TestWithdraw(t *testing.T) {
	svc, repo, rec := testService(t)

	req, err := svc.Create(context.Background(), requesterID, CreateReq{BookID: 1, RequestType: model.RequestBorrow})
	require.NoError(t, err)

	// only the requester may withdraw
	err = svc.Withdraw(context.Background(), req.ID, ownerID)
	require.Equal(t, ErrForbidden, Code(err))

	err = svc.Withdraw(context.Background(), req.ID, requesterID)
	require.NoError(t, err)

	_, err = repo.GetForUpdate(context.Background(), nil, req.ID)
	require.ErrorIs(t, err, sql.ErrNoRows)
	require.Len(t, rec.all(), 1, "withdraw emits no event")
}

func TestWithdraw_NotPending(t *testing.T) {
	svc, _, _ := testService(t)

	req, err := svc.Create(context.Background(), requesterID, CreateReq{BookID: 1, RequestType: model.RequestBorrow})
	require.NoError(t, err)
	_, err = svc.Transition(context.Background(), req.ID, ownerID, model.RequestApproved)
	require.NoError(t, err)

	err = svc.Withdraw(context.Background(), req.ID, requesterID)
	require.Equal(t, ErrInvalidState, Code(err))
}

func TestLists(t *testing.T) {
	svc, _, _ := testService(t)

	req, err := svc.Create(context.Background(), requesterID, CreateReq{BookID: 1, RequestType: model.RequestBorrow})
	require.NoError(t, err)

	out, err := svc.ListOutgoing(context.Background(), requesterID)
	require.NoError(t, err)
	require.Len(t, out, 1)
	require.Equal(t, req.ID, out[0].ID)

	in, err := svc.ListIncoming(context.Background(), ownerID)
	require.NoError(t, err)
	require.Len(t, in, 1)

	none, err := svc.ListOutgoing(context.Background(), ownerID)
	require.NoError(t, err)
	require.Empty(t, none)
}
