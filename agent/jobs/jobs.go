package jobs

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	contractx "github.com/quillon/intake-orchestrator/agent/contract"
	"github.com/quillon/intake-orchestrator/pkg/callback"
)

var (
	ErrJobNotFound = errors.New("job not found")
	ErrNilRunner   = errors.New("turn runner is required")
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// JobRecord is the observable lifecycle of one asynchronous turn. Status
// moves strictly pending -> running -> succeeded | failed.
type JobRecord struct {
	JobID          string    `json:"job_id"`
	Status         Status    `json:"status"`
	ConversationID string    `json:"conversation_id"`
	EventID        string    `json:"event_id,omitempty"`
	ResponseText   string    `json:"response_text,omitempty"`
	ErrorText      string    `json:"error_text,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// TurnRunner is the synchronous turn entrypoint the runner wraps.
type TurnRunner interface {
	RunTurn(ctx context.Context, req contractx.TurnRequest) (contractx.TurnResult, error)
}

type Option func(*Runner)

// WithPublisher posts each finished job to the configured callback endpoint.
func WithPublisher(p *callback.Publisher) Option {
	return func(r *Runner) { r.publisher = p }
}

// WithClock fixes the runner's clock, for tests.
func WithClock(now func() time.Time) Option {
	return func(r *Runner) {
		if now != nil {
			r.now = now
		}
	}
}

// WithMaxRecords caps how many finished job records are retained for Get.
func WithMaxRecords(n int) Option {
	return func(r *Runner) {
		if n > 0 {
			r.maxRecords = n
		}
	}
}

// defaultMaxRecords bounds finished-record retention when WithMaxRecords
// is not given.
const defaultMaxRecords = 1024

// convLock serializes one conversation's jobs. refs counts the jobs that
// hold or are waiting for it so the entry can be dropped once idle.
type convLock struct {
	mu   sync.Mutex
	refs int
}

// Runner executes turns asynchronously. Jobs for the same conversation are
// serialized with a per-conversation lock so turn order is preserved; jobs
// for different conversations run concurrently. Finished records are kept
// for Get up to maxRecords, oldest evicted first; pending and running jobs
// are never evicted.
type Runner struct {
	runner    TurnRunner
	publisher *callback.Publisher

	mu         sync.Mutex
	jobs       map[string]*JobRecord
	done       []string
	maxRecords int
	convLoc    map[string]*convLock

	wg  sync.WaitGroup
	now func() time.Time
}

func New(runner TurnRunner, opts ...Option) (*Runner, error) {
	if runner == nil {
		return nil, ErrNilRunner
	}
	r := &Runner{
		runner:     runner,
		jobs:       make(map[string]*JobRecord),
		maxRecords: defaultMaxRecords,
		convLoc:    make(map[string]*convLock),
		now:        time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r, nil
}

// Submit registers the turn and starts it in the background, returning the
// pending job record immediately.
func (r *Runner) Submit(ctx context.Context, req contractx.TurnRequest) (JobRecord, error) {
	now := r.now().UTC()
	rec := &JobRecord{
		JobID:          uuid.NewString(),
		Status:         StatusPending,
		ConversationID: req.ConversationID,
		EventID:        req.EventID,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	r.mu.Lock()
	r.jobs[rec.JobID] = rec
	lock := r.convLoc[req.ConversationID]
	if lock == nil {
		lock = &convLock{}
		r.convLoc[req.ConversationID] = lock
	}
	lock.refs++
	snapshot := *rec
	r.mu.Unlock()

	r.wg.Add(1)
	go r.run(ctx, rec.JobID, lock, req)

	return snapshot, nil
}

// Get returns a copy of the job record.
func (r *Runner) Get(jobID string) (JobRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.jobs[jobID]
	if !ok {
		return JobRecord{}, ErrJobNotFound
	}
	return *rec, nil
}

// Wait blocks until all submitted jobs have finished.
func (r *Runner) Wait() {
	r.wg.Wait()
}

func (r *Runner) run(ctx context.Context, jobID string, lock *convLock, req contractx.TurnRequest) {
	defer r.wg.Done()
	defer r.releaseConvLock(req.ConversationID, lock)

	lock.mu.Lock()
	defer lock.mu.Unlock()

	r.transition(jobID, func(rec *JobRecord) {
		rec.Status = StatusRunning
	})

	res, err := r.runner.RunTurn(ctx, req)

	if err != nil {
		r.transition(jobID, func(rec *JobRecord) {
			rec.Status = StatusFailed
			rec.ErrorText = err.Error()
		})
	} else {
		r.transition(jobID, func(rec *JobRecord) {
			rec.Status = StatusSucceeded
			rec.ResponseText = res.ResponseText
		})
	}
	r.retire(jobID)

	if r.publisher == nil {
		return
	}
	rec, getErr := r.Get(jobID)
	if getErr != nil {
		return
	}
	if pubErr := r.publisher.Publish(ctx, rec); pubErr != nil {
		log.Warn().Err(pubErr).
			Str("job_id", jobID).
			Str("conversation_id", req.ConversationID).
			Msg("job callback delivery failed")
	}
}

func (r *Runner) transition(jobID string, apply func(*JobRecord)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.jobs[jobID]
	if !ok {
		return
	}
	apply(rec)
	rec.UpdatedAt = r.now().UTC()
}

// retire marks the job as finished for retention purposes and evicts the
// oldest finished records beyond the cap.
func (r *Runner) retire(jobID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.done = append(r.done, jobID)
	for len(r.done) > r.maxRecords {
		oldest := r.done[0]
		r.done = r.done[1:]
		delete(r.jobs, oldest)
	}
}

// releaseConvLock drops the conversation lock entry once no job holds or
// waits for it.
func (r *Runner) releaseConvLock(conversationID string, lock *convLock) {
	r.mu.Lock()
	defer r.mu.Unlock()
	lock.refs--
	if lock.refs == 0 && r.convLoc[conversationID] == lock {
		delete(r.convLoc, conversationID)
	}
}
