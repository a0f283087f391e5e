package notification

import (
	"context"
	"fmt"
	"log"
	"time"

	"geopickup/internal/models"

	"github.com/robfig/cron/v3"
)

// ParentDirectory lists the parents to remind for a school.
type ParentDirectory interface {
	ListParentsBySchool(ctx context.Context, schoolID string) ([]models.User, error)
}

// ReminderScheduler sends a pickup reminder to every parent of a school a
// fixed lead time before each of its pickup windows, Monday to Friday.
type ReminderScheduler struct {
	cron     *cron.Cron
	schools  []models.School
	parents  ParentDirectory
	notifier Notifier
	lead     time.Duration
}

func NewReminderScheduler(schools []models.School, parents ParentDirectory, notifier Notifier, lead time.Duration, loc *time.Location) *ReminderScheduler {
	if loc == nil {
		loc = time.Local
	}
	return &ReminderScheduler{
		cron:     cron.New(cron.WithLocation(loc), cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger))),
		schools:  schools,
		parents:  parents,
		notifier: notifier,
		lead:     lead,
	}
}

// ReminderSpec is the cron expression firing lead before the window start.
func ReminderSpec(w models.PickupWindow, lead time.Duration) (string, error) {
	start, err := time.Parse("15:04", w.Start)
	if err != nil {
		return "", fmt.Errorf("invalid window start %q: %w", w.Start, err)
	}
	minutes := start.Hour()*60 + start.Minute() - int(lead/time.Minute)
	minutes = ((minutes % 1440) + 1440) % 1440
	return fmt.Sprintf("%d %d * * 1-5", minutes%60, minutes/60), nil
}

// Start registers one job per school window and starts the cron runner.
func (s *ReminderScheduler) Start() error {
	for _, school := range s.schools {
		for _, window := range school.PickupTimes {
			spec, err := ReminderSpec(window, s.lead)
			if err != nil {
				return err
			}
			if _, err := s.cron.AddFunc(spec, func() {
				ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
				defer cancel()
				sent := s.Remind(ctx, school, window)
				log.Printf("[REMINDER] %s %s: %d reminders sent", school.ID, window.Label, sent)
			}); err != nil {
				return fmt.Errorf("add reminder for %s: %w", school.ID, err)
			}
			log.Printf("[REMINDER] scheduled %s %q at %q", school.ID, window.Label, spec)
		}
	}
	s.cron.Start()
	return nil
}

// Stop halts the runner and waits for running jobs.
func (s *ReminderScheduler) Stop() {
	<-s.cron.Stop().Done()
}

func (s *ReminderScheduler) Jobs() int {
	return len(s.cron.Entries())
}

// Remind sends one reminder per student of the school and returns how many
// were delivered.
func (s *ReminderScheduler) Remind(ctx context.Context, school models.School, window models.PickupWindow) int {
	parents, err := s.parents.ListParentsBySchool(ctx, school.ID)
	if err != nil {
		log.Printf("[REMINDER] list parents for %s: %v", school.ID, err)
		return 0
	}
	sent := 0
	for _, parent := range parents {
		for _, student := range parent.Students {
			if student.SchoolID != school.ID {
				continue
			}
			msg := PickupReminder(parent.ID, student.Name, window.Start, school.Name)
			if err := s.notifier.Send(ctx, msg); err != nil {
				log.Printf("[REMINDER] send to %s: %v", parent.ID, err)
				continue
			}
			sent++
		}
	}
	return sent
}
