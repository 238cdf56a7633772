// Package scheduler runs the engine's background jobs on cron schedules.
package scheduler

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/stavrou/ballast/internal/events"
)

// Job represents a scheduled job
type Job interface {
	Run() error
	Name() string
}

// LastRunStore persists per-job last-run timestamps across restarts.
type LastRunStore interface {
	Get(key string) (*string, error)
	Set(key, value string) error
}

// JobStatus describes one registered job for the operational API.
type JobStatus struct {
	Name     string     `json:"name"`
	Schedule string     `json:"schedule"`
	LastRun  *time.Time `json:"last_run,omitempty"`
	NextRun  *time.Time `json:"next_run,omitempty"`
}

type registeredJob struct {
	job      Job
	schedule string
	entryID  cron.EntryID
}

// Scheduler manages background jobs
type Scheduler struct {
	cron    *cron.Cron
	bus     *events.Bus
	lastRun LastRunStore
	log     zerolog.Logger

	mu   sync.Mutex
	jobs []*registeredJob
}

// New creates a new scheduler. bus and lastRun may be nil; job lifecycle
// events and last-run bookkeeping are skipped when they are.
func New(bus *events.Bus, lastRun LastRunStore, log zerolog.Logger) *Scheduler {
	return &Scheduler{
		cron:    cron.New(cron.WithSeconds()),
		bus:     bus,
		lastRun: lastRun,
		log:     log.With().Str("component", "scheduler").Logger(),
	}
}

// Start starts the scheduler
func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info().Msg("Scheduler started")
}

// Stop stops the scheduler and waits for running jobs to finish
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.log.Info().Msg("Scheduler stopped")
}

// AddJob registers a new job with cron schedule
// Schedule examples:
//   - "0 */5 * * * *"      - Every 5 minutes
//   - "@hourly"            - Every hour
//   - "@every 30s"         - Every 30 seconds
func (s *Scheduler) AddJob(schedule string, job Job) error {
	entryID, err := s.cron.AddFunc(schedule, func() {
		s.execute(job)
	})
	if err != nil {
		return fmt.Errorf("failed to register job %s: %w", job.Name(), err)
	}

	s.mu.Lock()
	s.jobs = append(s.jobs, &registeredJob{job: job, schedule: schedule, entryID: entryID})
	s.mu.Unlock()

	s.log.Info().
		Str("schedule", schedule).
		Str("job", job.Name()).
		Msg("Job registered")

	return nil
}

// RunNow executes a registered job immediately, outside its schedule.
func (s *Scheduler) RunNow(name string) error {
	s.mu.Lock()
	var found *registeredJob
	for _, rj := range s.jobs {
		if rj.job.Name() == name {
			found = rj
			break
		}
	}
	s.mu.Unlock()

	if found == nil {
		return fmt.Errorf("unknown job: %s", name)
	}

	s.log.Info().Str("job", name).Msg("Running job immediately")
	return s.execute(found.job)
}

// Jobs returns the status of every registered job.
func (s *Scheduler) Jobs() []JobStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	statuses := make([]JobStatus, 0, len(s.jobs))
	for _, rj := range s.jobs {
		status := JobStatus{Name: rj.job.Name(), Schedule: rj.schedule}

		if entry := s.cron.Entry(rj.entryID); !entry.Next.IsZero() {
			next := entry.Next
			status.NextRun = &next
		}
		if last := s.loadLastRun(rj.job.Name()); last != nil {
			status.LastRun = last
		}

		statuses = append(statuses, status)
	}
	return statuses
}

// execute runs a job with lifecycle events and last-run bookkeeping.
func (s *Scheduler) execute(job Job) error {
	jobID := uuid.New().String()
	start := time.Now()

	s.log.Debug().Str("job", job.Name()).Msg("Running job")
	s.emitStatus(&events.JobStatusData{
		JobID:     jobID,
		JobType:   job.Name(),
		Status:    "started",
		Timestamp: start,
	})

	err := job.Run()
	duration := time.Since(start).Seconds()

	if err != nil {
		s.log.Error().Err(err).Str("job", job.Name()).Msg("Job failed")
		s.emitStatus(&events.JobStatusData{
			JobID:     jobID,
			JobType:   job.Name(),
			Status:    "failed",
			Error:     err.Error(),
			Duration:  duration,
			Timestamp: time.Now(),
		})
		return err
	}

	s.recordLastRun(job.Name(), start)
	s.log.Debug().Str("job", job.Name()).Float64("duration_s", duration).Msg("Job completed")
	s.emitStatus(&events.JobStatusData{
		JobID:     jobID,
		JobType:   job.Name(),
		Status:    "completed",
		Duration:  duration,
		Timestamp: time.Now(),
	})
	return nil
}

func (s *Scheduler) emitStatus(data *events.JobStatusData) {
	if s.bus != nil {
		s.bus.EmitTyped("scheduler", data)
	}
}

func (s *Scheduler) recordLastRun(name string, at time.Time) {
	if s.lastRun == nil {
		return
	}
	if err := s.lastRun.Set(lastRunKey(name), at.UTC().Format(time.RFC3339)); err != nil {
		s.log.Warn().Err(err).Str("job", name).Msg("Failed to record job last run")
	}
}

func (s *Scheduler) loadLastRun(name string) *time.Time {
	if s.lastRun == nil {
		return nil
	}
	raw, err := s.lastRun.Get(lastRunKey(name))
	if err != nil || raw == nil {
		return nil
	}
	t, err := time.Parse(time.RFC3339, *raw)
	if err != nil {
		return nil
	}
	return &t
}

func lastRunKey(name string) string {
	return "job:last_run:" + name
}
