// Package supervisor keeps long-running pipeline stages alive. Each
// stage runs in its own goroutine; a panic or premature error return
// triggers a restart with exponential backoff, and a stage that stays
// up past the healthy threshold earns its backoff back.
package supervisor

import (
	"context"
	"fmt"
	"log"
	"runtime/debug"
	"sort"
	"sync"
	"time"
)

// Config tunes restart pacing.
type Config struct {
	BackoffMin   time.Duration // first restart delay
	BackoffMax   time.Duration // restart delay cap
	HealthyAfter time.Duration // uptime that resets the backoff
}

func (c *Config) defaults() {
	if c.BackoffMin <= 0 {
		c.BackoffMin = 1 * time.Second
	}
	if c.BackoffMax <= 0 {
		c.BackoffMax = 30 * time.Second
	}
	if c.HealthyAfter <= 0 {
		c.HealthyAfter = 1 * time.Minute
	}
}

// Stage is one supervised worker. Run blocks until the stage fails or
// ctx is canceled; returning nil before cancellation retires the stage.
type Stage struct {
	Name string
	Run  func(ctx context.Context) error
}

// Status is a point-in-time view of one stage.
type Status struct {
	Name      string `json:"name"`
	Up        bool   `json:"up"`
	Restarts  int    `json:"restarts"`
	LastError string `json:"last_error,omitempty"`
}

// Supervisor runs stages and restarts the ones that die.
type Supervisor struct {
	cfg    Config
	stages []Stage

	// OnStageUp fires when a stage starts or restarts; OnStageDown
	// fires when it exits abnormally, before the restart wait. Both
	// receive the stage's completed restart count.
	OnStageUp   func(name string, restarts int)
	OnStageDown func(name string, restarts int, err error)

	mu      sync.Mutex
	status  map[string]*Status
	started bool

	wg sync.WaitGroup
}

// New returns a supervisor with no stages.
func New(cfg Config) *Supervisor {
	cfg.defaults()
	return &Supervisor{cfg: cfg, status: make(map[string]*Status)}
}

// Add registers a stage. All stages must be added before Start.
func (s *Supervisor) Add(name string, run func(ctx context.Context) error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stages = append(s.stages, Stage{Name: name, Run: run})
	s.status[name] = &Status{Name: name}
}

// Start launches every stage and returns immediately. Cancel ctx to
// stop; Wait blocks until all stage loops have exited.
func (s *Supervisor) Start(ctx context.Context) {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return
	}
	s.started = true
	stages := make([]Stage, len(s.stages))
	copy(stages, s.stages)
	s.mu.Unlock()

	for _, st := range stages {
		s.wg.Add(1)
		go s.supervise(ctx, st)
	}
}

// Wait blocks until every stage loop has exited.
func (s *Supervisor) Wait() { s.wg.Wait() }

// Statuses returns a snapshot of all stages, sorted by name.
func (s *Supervisor) Statuses() []Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Status, 0, len(s.status))
	for _, st := range s.status {
		out = append(out, *st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (s *Supervisor) supervise(ctx context.Context, st Stage) {
	defer s.wg.Done()

	delay := s.cfg.BackoffMin
	restarts := 0
	for {
		if ctx.Err() != nil {
			return
		}
		s.mark(st.Name, true, restarts, nil)
		if s.OnStageUp != nil {
			s.OnStageUp(st.Name, restarts)
		}

		started := time.Now()
		err := runStage(ctx, st)
		uptime := time.Since(started)

		if ctx.Err() != nil {
			// Shutdown, not failure. Keep the last real error.
			s.mark(st.Name, false, restarts, nil)
			return
		}
		s.mark(st.Name, false, restarts, err)
		if err == nil {
			// A stage that finishes on its own is done for good.
			log.Printf("[supervisor] stage %s finished", st.Name)
			return
		}
		if s.OnStageDown != nil {
			s.OnStageDown(st.Name, restarts, err)
		}

		if uptime >= s.cfg.HealthyAfter {
			delay = s.cfg.BackoffMin
		}
		log.Printf("[supervisor] stage %s died after %s (%v), restarting in %s",
			st.Name, uptime.Round(time.Millisecond), err, delay)

		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}
		delay *= 2
		if delay > s.cfg.BackoffMax {
			delay = s.cfg.BackoffMax
		}
		restarts++
	}
}

// runStage converts a stage panic into an error so one crashing stage
// cannot take the process down.
func runStage(ctx context.Context, st Stage) (err error) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[supervisor] stage %s panic: %v\n%s", st.Name, r, debug.Stack())
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return st.Run(ctx)
}

func (s *Supervisor) mark(name string, up bool, restarts int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.status[name]
	if st == nil {
		return
	}
	st.Up = up
	st.Restarts = restarts
	if err != nil {
		st.LastError = err.Error()
	}
}
