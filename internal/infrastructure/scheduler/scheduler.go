package scheduler

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/robfig/cron/v3"
)

// Parser accepts standard five-field expressions, an optional leading seconds
// field, and descriptors such as @daily.
var Parser = cron.NewParser(
	cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

type Logger interface {
	Infof(template string, args ...interface{})
	Errorf(template string, args ...interface{})
}

// Scheduler runs named cron jobs. Registering a name that already exists replaces
// the previous entry.
type Scheduler struct {
	cron   *cron.Cron
	mu     sync.Mutex
	jobs   map[string]cron.EntryID
	logger Logger
}

func New(logger Logger) *Scheduler {
	return &Scheduler{
		cron: cron.New(
			cron.WithParser(Parser),
			cron.WithChain(cron.Recover(cronLogger{logger})),
		),
		jobs:   make(map[string]cron.EntryID),
		logger: logger,
	}
}

func (s *Scheduler) AddJob(name, spec string, job func(context.Context) error) error {
	if _, err := Parser.Parse(spec); err != nil {
		return fmt.Errorf("invalid cron expression %q: %w", spec, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if id, ok := s.jobs[name]; ok {
		s.cron.Remove(id)
		delete(s.jobs, name)
	}

	id, err := s.cron.AddFunc(spec, func() {
		if err := job(context.Background()); err != nil {
			s.logger.Errorf("Job %s failed: %v", name, err)
		}
	})
	if err != nil {
		return err
	}
	s.jobs[name] = id
	return nil
}

func (s *Scheduler) Remove(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.jobs[name]
	if ok {
		s.cron.Remove(id)
		delete(s.jobs, name)
	}
	return ok
}

func (s *Scheduler) RemoveAll() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for name, id := range s.jobs {
		s.cron.Remove(id)
		delete(s.jobs, name)
	}
}

func (s *Scheduler) Names() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	names := make([]string, 0, len(s.jobs))
	for name := range s.jobs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop halts the cron loop and waits for running jobs to return.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}

type cronLogger struct {
	logger Logger
}

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.logger.Infof("cron: %s %v", msg, keysAndValues)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.logger.Errorf("cron: %s: %v %v", msg, err, keysAndValues)
}
