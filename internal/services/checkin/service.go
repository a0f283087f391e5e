// Package checkin maintains the live pickup queue and its history.
package checkin

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	domainerrors "geopickup/internal/errors"
	"geopickup/internal/identity"
	"geopickup/internal/models"
	"geopickup/internal/repositories"
	"geopickup/internal/services/notification"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

// Board event types.
const (
	EventCreated = "checkin.created"
	EventUpdated = "checkin.updated"
	EventRemoved = "checkin.removed"
	EventCleared = "checkin.cleared"
)

// DefaultBoardRetention is how long completed check-ins stay on the board.
const DefaultBoardRetention = time.Hour

const (
	placeholderParent  = "Parent Name"
	placeholderStudent = "Student Name"
	placeholderGrade   = "Grade Unknown"

	unknownParent  = "Unknown Parent"
	unknownStudent = "Unknown Student"
	unknownGrade   = "Unknown"
)

var tracer = otel.Tracer("geopickup/services/checkin")

// UserDirectory resolves parents who are not the current principal.
type UserDirectory interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
}

// BoardPublisher receives every ledger change.
type BoardPublisher interface {
	Publish(eventType, schoolID string, payload interface{})
}

// SchoolNames resolves a school id to its display name.
type SchoolNames interface {
	Name(id string) string
}

type Config struct {
	Now            func() time.Time
	Location       *time.Location
	BoardRetention time.Duration
}

type Service struct {
	mu       sync.Mutex
	checkIns []models.CheckIn

	store    repositories.CheckInStore
	identity identity.Provider
	users    UserDirectory
	notifier notification.Notifier
	board    BoardPublisher
	schools  SchoolNames

	now       func() time.Time
	loc       *time.Location
	retention time.Duration
}

func NewService(
	store repositories.CheckInStore,
	provider identity.Provider,
	users UserDirectory,
	notifier notification.Notifier,
	board BoardPublisher,
	schools SchoolNames,
	cfg Config,
) *Service {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if cfg.BoardRetention <= 0 {
		cfg.BoardRetention = DefaultBoardRetention
	}
	if notifier == nil {
		notifier = notification.NoopNotifier{}
	}
	return &Service{
		store:     store,
		identity:  provider,
		users:     users,
		notifier:  notifier,
		board:     board,
		schools:   schools,
		now:       cfg.Now,
		loc:       cfg.Location,
		retention: cfg.BoardRetention,
	}
}

// refresh reloads the cache from the store. A failed read keeps the cache.
// Callers hold s.mu.
func (s *Service) refresh(ctx context.Context) {
	all, err := s.store.LoadAll(ctx)
	if err != nil {
		log.Printf("Load check-ins error: %v", err)
		return
	}
	s.checkIns = all
}

// persist writes one check-in. The cache is rebuilt from the store on the
// next call, so a lost write is reported to the caller.
func (s *Service) persist(ctx context.Context, c models.CheckIn) error {
	if err := s.store.Upsert(ctx, c); err != nil {
		log.Printf("Save check-in %s error: %v", c.ID, err)
		return fmt.Errorf("%w: %v", domainerrors.ErrStorageFailure, err)
	}
	return nil
}

func (s *Service) publish(eventType, schoolID string, payload interface{}) {
	if s.board != nil {
		s.board.Publish(eventType, schoolID, payload)
	}
}

func (s *Service) indexOf(id string) int {
	for i := range s.checkIns {
		if s.checkIns[i].ID == id {
			return i
		}
	}
	return -1
}

// RegisterCheckIn records a parent at pickup. A re-scan while the previous
// check-in is still open refreshes that record instead of adding another.
func (s *Service) RegisterCheckIn(ctx context.Context, userID, studentID, schoolID, tokenID string) (*models.CheckIn, error) {
	ctx, span := tracer.Start(ctx, "checkin.Register")
	defer span.End()
	span.SetAttributes(attribute.String("school.id", schoolID), attribute.String("user.id", userID))

	s.mu.Lock()
	defer s.mu.Unlock()
	s.refresh(ctx)

	now := s.now()
	for i := range s.checkIns {
		c := s.checkIns[i]
		if c.UserID == userID && c.StudentID == studentID && c.Status != models.CheckInCompleted {
			c.CheckedInAt = now
			c.Status = models.CheckInWaiting
			if err := s.persist(ctx, c); err != nil {
				return nil, err
			}
			s.checkIns[i] = c
			s.publish(EventUpdated, c.SchoolID, c)
			return &c, nil
		}
	}

	parentName, studentName, grade := s.displayNames(ctx, userID, studentID)
	c := models.CheckIn{
		ID:           newCheckInID(now),
		UserID:       userID,
		StudentID:    studentID,
		SchoolID:     schoolID,
		ParentName:   parentName,
		StudentName:  studentName,
		StudentGrade: grade,
		CheckedInAt:  now,
		Status:       models.CheckInWaiting,
		TokenID:      tokenID,
	}
	if err := s.persist(ctx, c); err != nil {
		return nil, err
	}
	s.checkIns = append(s.checkIns, c)
	s.publish(EventCreated, schoolID, c)
	log.Printf("Check-in %s registered for user %s student %s at %s", c.ID, userID, studentID, schoolID)
	return &c, nil
}

// displayNames snapshots the names shown on the board. The current principal
// is tried first, then the user directory.
func (s *Service) displayNames(ctx context.Context, userID, studentID string) (string, string, string) {
	current, err := s.identity.CurrentUser(ctx)
	if err != nil {
		log.Printf("Fetch user details error: %v", err)
		return unknownParent, unknownStudent, unknownGrade
	}
	if current != nil && current.ID == userID {
		if student, ok := current.Student(studentID); ok {
			return current.Name, student.Name, student.Grade
		}
	}

	if s.users != nil {
		parent, err := s.users.GetByID(ctx, userID)
		switch {
		case errors.Is(err, domainerrors.ErrUserNotFound):
		case err != nil:
			log.Printf("Fetch user details error: %v", err)
			return unknownParent, unknownStudent, unknownGrade
		default:
			if student, ok := parent.Student(studentID); ok {
				return parent.Name, student.Name, student.Grade
			}
			return parent.Name, placeholderStudent, placeholderGrade
		}
	}
	return placeholderParent, placeholderStudent, placeholderGrade
}

// GetCheckIns returns the board for a school (all schools when empty),
// oldest first. Completed check-ins drop off after the retention period.
func (s *Service) GetCheckIns(ctx context.Context, schoolID string) []models.CheckIn {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refresh(ctx)

	cutoff := s.now().Add(-s.retention)
	out := make([]models.CheckIn, 0, len(s.checkIns))
	for _, c := range s.checkIns {
		if schoolID != "" && c.SchoolID != schoolID {
			continue
		}
		if c.Status == models.CheckInCompleted && !c.CheckedInAt.After(cutoff) {
			continue
		}
		out = append(out, c)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CheckedInAt.Before(out[j].CheckedInAt)
	})
	return out
}

// GetCheckInCount counts outstanding (not completed) check-ins.
func (s *Service) GetCheckInCount(ctx context.Context, schoolID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refresh(ctx)

	n := 0
	for _, c := range s.checkIns {
		if schoolID != "" && c.SchoolID != schoolID {
			continue
		}
		if c.Status != models.CheckInCompleted {
			n++
		}
	}
	return n
}

// GetCheckIn returns one check-in by id, including ones no longer on the board.
func (s *Service) GetCheckIn(ctx context.Context, id string) (*models.CheckIn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refresh(ctx)

	i := s.indexOf(id)
	if i < 0 {
		return nil, domainerrors.ErrCheckInNotFound
	}
	c := s.checkIns[i]
	return &c, nil
}

// History returns every check-in ever recorded, regardless of age.
func (s *Service) History(ctx context.Context) []models.CheckIn {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refresh(ctx)
	return append([]models.CheckIn(nil), s.checkIns...)
}

// UpdateCheckInStatus moves a check-in forward. Completing it stamps the
// completion time and wait time once and notifies the parent and the school.
func (s *Service) UpdateCheckInStatus(ctx context.Context, id string, status models.CheckInStatus) (*models.CheckIn, error) {
	ctx, span := tracer.Start(ctx, "checkin.UpdateStatus")
	defer span.End()
	span.SetAttributes(attribute.String("checkin.id", id), attribute.String("checkin.status", string(status)))

	if !status.Valid() {
		return nil, domainerrors.ErrInvalidStatus.WithMessage("invalid check-in status %q", status)
	}

	s.mu.Lock()
	s.refresh(ctx)
	i := s.indexOf(id)
	if i < 0 {
		s.mu.Unlock()
		return nil, domainerrors.ErrCheckInNotFound
	}
	c := s.checkIns[i]
	previous := c.Status
	if !previous.CanTransition(status) {
		s.mu.Unlock()
		return nil, domainerrors.ErrInvalidTransition.WithMessage("cannot move check-in from %s to %s", previous, status)
	}

	c.Status = status
	if status == models.CheckInCompleted && c.CompletedAt == nil {
		completedAt := s.now()
		wait := roundHalfUp(float64(completedAt.Sub(c.CheckedInAt).Milliseconds()) / 60000)
		c.CompletedAt = &completedAt
		c.WaitTimeMinutes = &wait
	}
	if err := s.persist(ctx, c); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	s.checkIns[i] = c
	s.publish(EventUpdated, c.SchoolID, c)
	s.mu.Unlock()

	if status == models.CheckInCompleted && previous != models.CheckInCompleted {
		s.sendPickupNotifications(ctx, c)
	}
	return &c, nil
}

func (s *Service) sendPickupNotifications(ctx context.Context, c models.CheckIn) {
	schoolName := c.SchoolID
	if s.schools != nil {
		schoolName = s.schools.Name(c.SchoolID)
	}
	pickupTime := s.now()
	if c.CompletedAt != nil {
		pickupTime = *c.CompletedAt
	}
	pickupTime = pickupTime.In(s.loc)

	msgs := []notification.Message{
		notification.PickupConfirmation(c.UserID, c.StudentName, schoolName, pickupTime),
		notification.PickupCompleted(c.SchoolID, c.ParentName, c.StudentName, c.StudentGrade, schoolName, pickupTime),
	}
	for _, msg := range msgs {
		if err := s.notifier.Send(ctx, msg); err != nil {
			log.Printf("Send pickup notifications error: %v", err)
		}
	}
}

func (s *Service) RemoveCheckIn(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refresh(ctx)

	i := s.indexOf(id)
	if i < 0 {
		return domainerrors.ErrCheckInNotFound
	}
	removed := s.checkIns[i]
	if err := s.store.Delete(ctx, id); err != nil {
		log.Printf("Remove check-in %s error: %v", id, err)
		return fmt.Errorf("%w: %v", domainerrors.ErrStorageFailure, err)
	}
	s.checkIns = append(s.checkIns[:i], s.checkIns[i+1:]...)
	s.publish(EventRemoved, removed.SchoolID, removed)
	return nil
}

func (s *Service) ClearAllCheckIns(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.store.DeleteAll(ctx); err != nil {
		log.Printf("Clear check-ins error: %v", err)
		return fmt.Errorf("%w: %v", domainerrors.ErrStorageFailure, err)
	}
	s.checkIns = nil
	s.publish(EventCleared, "", nil)
	return nil
}

// ClearCheckIns empties the board of one school, or of every school when
// schoolID is empty.
func (s *Service) ClearCheckIns(ctx context.Context, schoolID string) error {
	if schoolID == "" {
		return s.ClearAllCheckIns(ctx)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.refresh(ctx)

	kept := s.checkIns[:0]
	var failed error
	for _, c := range s.checkIns {
		if c.SchoolID != schoolID || failed != nil {
			kept = append(kept, c)
			continue
		}
		if err := s.store.Delete(ctx, c.ID); err != nil {
			log.Printf("Clear check-ins for %s error: %v", schoolID, err)
			failed = fmt.Errorf("%w: %v", domainerrors.ErrStorageFailure, err)
			kept = append(kept, c)
		}
	}
	s.checkIns = kept
	s.publish(EventCleared, schoolID, nil)
	return failed
}

func roundHalfUp(x float64) int {
	return int(math.Floor(x + 0.5))
}

func newCheckInID(now time.Time) string {
	return fmt.Sprintf("checkin-%d-%s", now.UnixMilli(), strings.ReplaceAll(uuid.NewString(), "-", "")[:9])
}
