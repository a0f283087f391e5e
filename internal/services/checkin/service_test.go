package checkin

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"geopickup/internal/config"
	domainerrors "geopickup/internal/errors"
	"geopickup/internal/identity"
	"geopickup/internal/models"
	"geopickup/internal/repositories"
	"geopickup/internal/services/notification"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type clock struct{ t time.Time }

func (c *clock) Now() time.Time          { return c.t }
func (c *clock) Advance(d time.Duration) { c.t = c.t.Add(d) }

type recorder struct {
	mu   sync.Mutex
	msgs []notification.Message
	err  error
}

func (r *recorder) Send(_ context.Context, msg notification.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, msg)
	return r.err
}

type MockBoard struct {
	mock.Mock
}

func (m *MockBoard) Publish(eventType, schoolID string, payload interface{}) {
	m.Called(eventType, schoolID, payload)
}

type MockStore struct {
	mock.Mock
}

func (m *MockStore) LoadAll(ctx context.Context) ([]models.CheckIn, error) {
	args := m.Called(ctx)
	all, _ := args.Get(0).([]models.CheckIn)
	return all, args.Error(1)
}

func (m *MockStore) Upsert(ctx context.Context, c models.CheckIn) error {
	return m.Called(ctx, c).Error(0)
}

func (m *MockStore) Delete(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockStore) DeleteAll(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

var parent = models.User{
	ID:       "u1",
	Name:     "Pat Parent",
	Role:     models.RoleParent,
	Students: []models.Student{{ID: "s1", ParentID: "u1", Name: "Sam", Grade: "2nd", SchoolID: "school-1"}},
}

type fixture struct {
	svc      *Service
	clock    *clock
	notifier *recorder
	store    repositories.CheckInStore
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	c := &clock{t: time.Date(2024, 3, 4, 15, 0, 0, 0, time.UTC)}
	rec := &recorder{}
	store := repositories.NewBlobCheckInStore(repositories.NewMemoryKV())
	svc := NewService(
		store,
		identity.NewMockProvider(parent, c.Now),
		repositories.NewMemoryUserRepository(),
		rec,
		nil,
		config.NewSchoolCatalog(config.DefaultSchools),
		Config{Now: c.Now, Location: time.UTC},
	)
	return &fixture{svc: svc, clock: c, notifier: rec, store: store}
}

func TestRegisterCheckIn_Deduplicates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.svc.RegisterCheckIn(ctx, "u1", "s1", "school-1", "tok-1")
	require.NoError(t, err)
	assert.Equal(t, models.CheckInWaiting, first.Status)
	assert.Equal(t, "Pat Parent", first.ParentName)
	assert.Equal(t, "Sam", first.StudentName)
	assert.Equal(t, "2nd", first.StudentGrade)

	_, err = f.svc.UpdateCheckInStatus(ctx, first.ID, models.CheckInProcessing)
	require.NoError(t, err)

	f.clock.Advance(3 * time.Minute)
	second, err := f.svc.RegisterCheckIn(ctx, "u1", "s1", "school-1", "tok-2")
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, f.clock.t, second.CheckedInAt)
	assert.Equal(t, models.CheckInWaiting, second.Status)

	board := f.svc.GetCheckIns(ctx, "")
	require.Len(t, board, 1)
	assert.Equal(t, f.clock.t, board[0].CheckedInAt)

	// persisted too
	stored, err := f.store.LoadAll(ctx)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, models.CheckInWaiting, stored[0].Status)
}

func TestRegisterCheckIn_NewRecordAfterCompletion(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.svc.RegisterCheckIn(ctx, "u1", "s1", "school-1", "")
	require.NoError(t, err)
	_, err = f.svc.UpdateCheckInStatus(ctx, first.ID, models.CheckInCompleted)
	require.NoError(t, err)

	second, err := f.svc.RegisterCheckIn(ctx, "u1", "s1", "school-1", "")
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)
	assert.Len(t, f.svc.History(ctx), 2)
}

func TestRegisterCheckIn_DisplayNameFallbacks(t *testing.T) {
	ctx := context.Background()
	now := func() time.Time { return time.Date(2024, 3, 4, 15, 0, 0, 0, time.UTC) }
	store := func() repositories.CheckInStore { return repositories.NewBlobCheckInStore(repositories.NewMemoryKV()) }

	t.Run("directory lookup", func(t *testing.T) {
		users := repositories.NewMemoryUserRepository(models.User{
			ID: "u2", Name: "Dana", Students: []models.Student{{ID: "s9", Name: "Lee", Grade: "K"}},
		})
		svc := NewService(store(), identity.NewMockProvider(parent, now), users, nil, nil, nil, Config{Now: now})
		c, err := svc.RegisterCheckIn(ctx, "u2", "s9", "school-1", "")
		require.NoError(t, err)
		assert.Equal(t, []string{"Dana", "Lee", "K"}, []string{c.ParentName, c.StudentName, c.StudentGrade})
	})

	t.Run("placeholders", func(t *testing.T) {
		svc := NewService(store(), identity.NewMockProvider(parent, now), repositories.NewMemoryUserRepository(), nil, nil, nil, Config{Now: now})
		c, err := svc.RegisterCheckIn(ctx, "ghost", "s1", "school-1", "")
		require.NoError(t, err)
		assert.Equal(t, []string{"Parent Name", "Student Name", "Grade Unknown"}, []string{c.ParentName, c.StudentName, c.StudentGrade})
	})

	t.Run("lookup failure", func(t *testing.T) {
		failing := &failingIdentity{}
		svc := NewService(store(), failing, nil, nil, nil, nil, Config{Now: now})
		c, err := svc.RegisterCheckIn(ctx, "u1", "s1", "school-1", "")
		require.NoError(t, err)
		assert.Equal(t, []string{"Unknown Parent", "Unknown Student", "Unknown"}, []string{c.ParentName, c.StudentName, c.StudentGrade})
	})
}

type failingIdentity struct{}

func (failingIdentity) CurrentUser(context.Context) (*models.User, error) {
	return nil, errors.New("identity down")
}
func (failingIdentity) AuthToken(context.Context) (string, error) { return "", nil }
func (failingIdentity) SignOut(context.Context) error             { return nil }

func TestUpdateCheckInStatus_CompletionScenario(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	c, err := f.svc.RegisterCheckIn(ctx, "u1", "s1", "school-1", "")
	require.NoError(t, err)
	_, err = f.svc.UpdateCheckInStatus(ctx, c.ID, models.CheckInProcessing)
	require.NoError(t, err)
	assert.Empty(t, f.notifier.msgs)

	f.clock.Advance(7 * time.Minute)
	done, err := f.svc.UpdateCheckInStatus(ctx, c.ID, models.CheckInCompleted)
	require.NoError(t, err)
	require.NotNil(t, done.WaitTimeMinutes)
	assert.Equal(t, 7, *done.WaitTimeMinutes)
	assert.Equal(t, f.clock.t, *done.CompletedAt)

	require.Len(t, f.notifier.msgs, 2)
	assert.Equal(t, notification.KindPickupConfirmation, f.notifier.msgs[0].Kind)
	assert.Equal(t, "u1", f.notifier.msgs[0].Recipient)
	assert.Contains(t, f.notifier.msgs[0].Body, "Mashburn Elementary")
	assert.Equal(t, notification.KindPickupSchool, f.notifier.msgs[1].Kind)
	assert.Equal(t, "school:school-1", f.notifier.msgs[1].Recipient)

	// completing again changes nothing and sends nothing
	f.clock.Advance(5 * time.Minute)
	again, err := f.svc.UpdateCheckInStatus(ctx, c.ID, models.CheckInCompleted)
	require.NoError(t, err)
	assert.Equal(t, 7, *again.WaitTimeMinutes)
	assert.Equal(t, done.CompletedAt, again.CompletedAt)
	assert.Len(t, f.notifier.msgs, 2)
}

func TestUpdateCheckInStatus_WaitTimeRounding(t *testing.T) {
	tests := []struct {
		name    string
		elapsed time.Duration
		want    int
	}{
		{"exact", 7 * time.Minute, 7},
		{"rounds down", 7*time.Minute + 29*time.Second, 7},
		{"half rounds up", 7*time.Minute + 30*time.Second, 8},
		{"instant", 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			c, err := f.svc.RegisterCheckIn(context.Background(), "u1", "s1", "school-1", "")
			require.NoError(t, err)
			f.clock.Advance(tt.elapsed)
			done, err := f.svc.UpdateCheckInStatus(context.Background(), c.ID, models.CheckInCompleted)
			require.NoError(t, err)
			assert.Equal(t, tt.want, *done.WaitTimeMinutes)
		})
	}
}

func TestUpdateCheckInStatus_Rejections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c, err := f.svc.RegisterCheckIn(ctx, "u1", "s1", "school-1", "")
	require.NoError(t, err)

	_, err = f.svc.UpdateCheckInStatus(ctx, "missing", models.CheckInProcessing)
	assert.ErrorIs(t, err, domainerrors.ErrCheckInNotFound)

	_, err = f.svc.UpdateCheckInStatus(ctx, c.ID, models.CheckInStatus("lost"))
	assert.ErrorIs(t, err, domainerrors.ErrInvalidStatus)

	_, err = f.svc.UpdateCheckInStatus(ctx, c.ID, models.CheckInProcessing)
	require.NoError(t, err)
	_, err = f.svc.UpdateCheckInStatus(ctx, c.ID, models.CheckInWaiting)
	assert.ErrorIs(t, err, domainerrors.ErrInvalidTransition)

	// same status is allowed
	_, err = f.svc.UpdateCheckInStatus(ctx, c.ID, models.CheckInProcessing)
	assert.NoError(t, err)
}

func TestUpdateCheckInStatus_NotificationFailureDoesNotFail(t *testing.T) {
	f := newFixture(t)
	f.notifier.err = errors.New("push gateway down")
	ctx := context.Background()

	c, err := f.svc.RegisterCheckIn(ctx, "u1", "s1", "school-1", "")
	require.NoError(t, err)
	done, err := f.svc.UpdateCheckInStatus(ctx, c.ID, models.CheckInCompleted)
	require.NoError(t, err)
	assert.Equal(t, models.CheckInCompleted, done.Status)
	assert.Len(t, f.notifier.msgs, 2)
}

func TestGetCheckIns_FiltersAndOrders(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	old, err := f.svc.RegisterCheckIn(ctx, "u1", "s1", "school-1", "")
	require.NoError(t, err)
	_, err = f.svc.UpdateCheckInStatus(ctx, old.ID, models.CheckInCompleted)
	require.NoError(t, err)

	f.clock.Advance(10 * time.Minute)
	_, err = f.svc.RegisterCheckIn(ctx, "u2", "s2", "school-2", "")
	require.NoError(t, err)
	f.clock.Advance(time.Minute)
	_, err = f.svc.RegisterCheckIn(ctx, "u3", "s3", "school-1", "")
	require.NoError(t, err)

	board := f.svc.GetCheckIns(ctx, "")
	require.Len(t, board, 3)
	assert.Equal(t, old.ID, board[0].ID)

	school1 := f.svc.GetCheckIns(ctx, "school-1")
	require.Len(t, school1, 2)
	assert.Equal(t, 1, f.svc.GetCheckInCount(ctx, "school-1"))
	assert.Equal(t, 2, f.svc.GetCheckInCount(ctx, ""))

	// an hour after check-in the completed record leaves the board but not history
	f.clock.Advance(50 * time.Minute)
	board = f.svc.GetCheckIns(ctx, "school-1")
	require.Len(t, board, 1)
	assert.Equal(t, "u3", board[0].UserID)
	assert.Len(t, f.svc.History(ctx), 3)
}

func TestRemoveAndClear(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	a, err := f.svc.RegisterCheckIn(ctx, "u1", "s1", "school-1", "")
	require.NoError(t, err)
	_, err = f.svc.RegisterCheckIn(ctx, "u2", "s2", "school-1", "")
	require.NoError(t, err)

	require.NoError(t, f.svc.RemoveCheckIn(ctx, a.ID))
	assert.ErrorIs(t, f.svc.RemoveCheckIn(ctx, a.ID), domainerrors.ErrCheckInNotFound)
	assert.Len(t, f.svc.GetCheckIns(ctx, ""), 1)

	require.NoError(t, f.svc.ClearAllCheckIns(ctx))
	assert.Empty(t, f.svc.GetCheckIns(ctx, ""))
	assert.Empty(t, f.svc.History(ctx))
}

func TestGetCheckInAndClearOneSchool(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	a, err := f.svc.RegisterCheckIn(ctx, "u1", "s1", "school-1", "")
	require.NoError(t, err)
	b, err := f.svc.RegisterCheckIn(ctx, "u2", "s2", "school-2", "")
	require.NoError(t, err)

	got, err := f.svc.GetCheckIn(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, "school-1", got.SchoolID)
	_, err = f.svc.GetCheckIn(ctx, "missing")
	assert.ErrorIs(t, err, domainerrors.ErrCheckInNotFound)

	require.NoError(t, f.svc.ClearCheckIns(ctx, "school-1"))
	assert.Empty(t, f.svc.GetCheckIns(ctx, "school-1"))
	left := f.svc.GetCheckIns(ctx, "")
	require.Len(t, left, 1)
	assert.Equal(t, b.ID, left[0].ID)
}

func TestBoardEvents(t *testing.T) {
	board := new(MockBoard)
	board.On("Publish", EventCreated, "school-1", mock.Anything).Once()
	board.On("Publish", EventUpdated, "school-1", mock.Anything).Once()
	board.On("Publish", EventRemoved, "school-1", mock.Anything).Once()
	board.On("Publish", EventCleared, "", nil).Once()

	now := func() time.Time { return time.Date(2024, 3, 4, 15, 0, 0, 0, time.UTC) }
	svc := NewService(repositories.NewBlobCheckInStore(repositories.NewMemoryKV()), identity.NewMockProvider(parent, now), nil, nil, board, nil, Config{Now: now})
	ctx := context.Background()

	c, err := svc.RegisterCheckIn(ctx, "u1", "s1", "school-1", "")
	require.NoError(t, err)
	_, err = svc.UpdateCheckInStatus(ctx, c.ID, models.CheckInProcessing)
	require.NoError(t, err)
	require.NoError(t, svc.RemoveCheckIn(ctx, c.ID))
	require.NoError(t, svc.ClearAllCheckIns(ctx))

	board.AssertExpectations(t)
}

func TestStorageFailures(t *testing.T) {
	ctx := context.Background()
	now := func() time.Time { return time.Date(2024, 3, 4, 15, 0, 0, 0, time.UTC) }

	store := new(MockStore)
	store.On("LoadAll", mock.Anything).Return(nil, errors.New("redis down"))
	store.On("Upsert", mock.Anything, mock.Anything).Return(errors.New("redis down"))
	store.On("DeleteAll", mock.Anything).Return(errors.New("redis down"))
	svc := NewService(store, identity.NewMockProvider(parent, now), nil, nil, nil, nil, Config{Now: now})

	// reads degrade to empty
	assert.Empty(t, svc.GetCheckIns(ctx, ""))
	assert.Equal(t, 0, svc.GetCheckInCount(ctx, ""))

	_, err := svc.RegisterCheckIn(ctx, "u1", "s1", "school-1", "")
	assert.ErrorIs(t, err, domainerrors.ErrStorageFailure)
	assert.ErrorIs(t, svc.ClearAllCheckIns(ctx), domainerrors.ErrStorageFailure)
}
