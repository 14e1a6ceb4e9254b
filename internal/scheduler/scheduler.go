// Package scheduler runs cron-driven background jobs on one process-wide gocron scheduler.
package scheduler

import (
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

var (
	service     *Service
	serviceOnce sync.Once
	serviceErr  error
)

var (
	ErrNotInitialized = errors.New("scheduler not initialized")
	ErrEmptyJobName   = errors.New("job name is required")
	ErrEmptyCronExpr  = errors.New("cron expression is required")
	ErrDuplicateJob   = errors.New("job already registered")
)

// Service wraps a gocron scheduler. Cron expressions are evaluated in the
// location it was created with.
type Service struct {
	scheduler gocron.Scheduler
	location  *time.Location

	mu   sync.Mutex
	jobs map[string]gocron.Job

	stopOnce sync.Once
	stopErr  error
}

// New creates a stopped scheduler evaluating cron expressions in loc.
func New(loc *time.Location) (*Service, error) {
	if loc == nil {
		loc = time.UTC
	}
	sched, err := gocron.NewScheduler(
		gocron.WithLocation(loc),
		gocron.WithGlobalJobOptions(
			gocron.WithEventListeners(
				gocron.AfterJobRunsWithPanic(func(jobID uuid.UUID, jobName string, recoverData any) {
					log.Error().
						Str("job_id", jobID.String()).
						Str("job_name", jobName).
						Interface("panic", recoverData).
						Msg("Scheduler job panicked")
				}),
				gocron.AfterJobRunsWithError(func(jobID uuid.UUID, jobName string, err error) {
					log.Error().Err(err).Str("job_name", jobName).Msg("Scheduler job failed")
				}),
			),
		),
	)
	if err != nil {
		return nil, err
	}
	return &Service{scheduler: sched, location: loc, jobs: make(map[string]gocron.Job)}, nil
}

// Init creates the process-wide scheduler. Later calls are no-ops.
func Init(loc *time.Location) error {
	serviceOnce.Do(func() {
		service, serviceErr = New(loc)
		if serviceErr == nil {
			log.Info().Str("location", service.location.String()).Msg("Scheduler initialized")
		}
	})
	return serviceErr
}

func ServiceInstance() (*Service, error) {
	if service == nil && serviceErr == nil {
		return nil, ErrNotInitialized
	}
	return service, serviceErr
}

func Start() error {
	svc, err := ServiceInstance()
	if err != nil {
		return err
	}
	svc.Start()
	return nil
}

func Stop() error {
	svc, err := ServiceInstance()
	if err != nil {
		return err
	}
	return svc.Stop()
}

// AddJob registers a cron job with the process-wide scheduler.
func AddJob(name, cronExpr string, task func(), opts ...gocron.JobOption) (gocron.Job, error) {
	svc, err := ServiceInstance()
	if err != nil {
		return nil, err
	}
	return svc.AddJob(name, cronExpr, task, opts...)
}

func (s *Service) Start() {
	if s == nil {
		log.Error().Msg("Scheduler start requested before initialization")
		return
	}
	log.Info().Int("jobs", len(s.JobNames())).Msg("Scheduler starting")
	s.scheduler.Start()
}

// Stop shuts down the scheduler, waiting for running jobs. It is safe to call
// more than once.
func (s *Service) Stop() error {
	if s == nil {
		return ErrNotInitialized
	}
	s.stopOnce.Do(func() {
		log.Info().Msg("Scheduler stopping")
		s.stopErr = s.scheduler.Shutdown()
	})
	return s.stopErr
}

// AddJob registers task under a unique name. opts are applied after the name.
func (s *Service) AddJob(name, cronExpr string, task func(), opts ...gocron.JobOption) (gocron.Job, error) {
	if s == nil {
		return nil, ErrNotInitialized
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrEmptyJobName
	}
	if strings.TrimSpace(cronExpr) == "" {
		return nil, ErrEmptyCronExpr
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.jobs[name]; ok {
		return nil, ErrDuplicateJob
	}

	jobLogger := log.With().Str("job_name", name).Str("cron", cronExpr).Logger()
	wrappedTask := func() {
		started := time.Now()
		task()
		jobLogger.Debug().Dur("duration", time.Since(started)).Msg("Scheduler job completed")
	}

	job, err := s.scheduler.NewJob(
		gocron.CronJob(cronExpr, false),
		gocron.NewTask(wrappedTask),
		append([]gocron.JobOption{gocron.WithName(name)}, opts...)...,
	)
	if err != nil {
		jobLogger.Error().Err(err).Msg("Failed to register scheduler job")
		return nil, err
	}
	s.jobs[name] = job
	jobLogger.Info().Msg("Scheduler job registered")
	return job, nil
}

// JobNames lists registered jobs.
func (s *Service) JobNames() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.jobs))
	for name := range s.jobs {
		names = append(names, name)
	}
	return names
}
