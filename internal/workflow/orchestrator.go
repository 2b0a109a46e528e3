// Package workflow coordinates multi-step agent workflows over a thread.
package workflow

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/corvid-labs/agentgw/internal/domain"
)

// Invoker executes one agent turn on behalf of a workflow step. Streamed
// text and data parts are reported through onPart as they arrive.
type Invoker interface {
	RunAgent(ctx context.Context, threadID, agentID, prompt string, onPart func(p domain.Part)) error
}

// Notifier pushes workflow state changes to a thread's watchers. The hub
// satisfies this.
type Notifier interface {
	BroadcastJSON(threadID string, v interface{}) error
}

// Orchestrator drives one workflow definition against one thread. At most
// one step runs at a time; steps advance pending -> running -> completed or
// error, and pending steps may be skipped.
type Orchestrator struct {
	def      domain.WorkflowDef
	threadID string
	invoker  Invoker
	notifier Notifier

	mu       sync.Mutex
	status   domain.WorkflowStatus
	steps    []domain.WorkflowStep
	progress []domain.ProgressEvent
	cancel   context.CancelFunc
	gen      int
}

// NewOrchestrator creates an orchestrator with all steps pending.
func NewOrchestrator(def domain.WorkflowDef, threadID string, invoker Invoker, notifier Notifier) *Orchestrator {
	o := &Orchestrator{
		def:      def,
		threadID: threadID,
		invoker:  invoker,
		notifier: notifier,
		status:   domain.WorkflowStatusIdle,
	}
	o.steps = freshSteps(def)
	return o
}

func freshSteps(def domain.WorkflowDef) []domain.WorkflowStep {
	steps := make([]domain.WorkflowStep, 0, len(def.Steps))
	for i, s := range def.Steps {
		steps = append(steps, domain.WorkflowStep{
			StepID:      s.StepID,
			Ordinal:     i,
			Label:       s.Label,
			Description: s.Description,
			AgentID:     s.AgentID,
			Status:      domain.StepStatusPending,
		})
	}
	return steps
}

// WorkflowID returns the definition's identifier.
func (o *Orchestrator) WorkflowID() string { return o.def.WorkflowID }

// ThreadID returns the thread this orchestrator operates on.
func (o *Orchestrator) ThreadID() string { return o.threadID }

// Status returns the workflow-level status.
func (o *Orchestrator) Status() domain.WorkflowStatus {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.status
}

// Steps returns a snapshot of the current step states.
func (o *Orchestrator) Steps() []domain.WorkflowStep {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]domain.WorkflowStep, len(o.steps))
	copy(out, o.steps)
	return out
}

// Progress returns the progress events of the currently running step.
// Empty whenever no step is running.
func (o *Orchestrator) Progress() []domain.ProgressEvent {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]domain.ProgressEvent, len(o.progress))
	copy(out, o.progress)
	return out
}

// RunStep executes one step synchronously. The step must be pending or
// errored, and no other step may be running.
func (o *Orchestrator) RunStep(ctx context.Context, stepID string) error {
	def, gen, err := o.begin(stepID)
	if err != nil {
		return err
	}
	return o.execute(ctx, def, gen)
}

// StartStep validates and transitions a step to running, then executes it in
// the background. Validation errors are returned synchronously.
func (o *Orchestrator) StartStep(stepID string) error {
	def, gen, err := o.begin(stepID)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithCancel(context.Background())
	o.mu.Lock()
	o.cancel = cancel
	o.mu.Unlock()

	go func() {
		defer cancel()
		if err := o.execute(ctx, def, gen); err != nil {
			log.Printf("WARN: workflow %s step %s failed: %v", o.def.WorkflowID, stepID, err)
		}
	}()
	return nil
}

// RunAll executes every pending step in definition order, halting at the
// first error.
func (o *Orchestrator) RunAll(ctx context.Context) error {
	for _, s := range o.Steps() {
		if s.Status != domain.StepStatusPending {
			continue
		}
		if err := o.RunStep(ctx, s.StepID); err != nil {
			return err
		}
	}
	return nil
}

// SkipStep marks a pending step as skipped. Running or finished steps cannot
// be skipped.
func (o *Orchestrator) SkipStep(stepID string) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	step := o.step(stepID)
	if step == nil {
		return fmt.Errorf("unknown step %s", stepID)
	}
	if step.Status != domain.StepStatusPending {
		return fmt.Errorf("step %s is %s, only pending steps can be skipped", stepID, step.Status)
	}
	step.Status = domain.StepStatusSkipped
	o.refreshStatusLocked()
	o.notifyLocked()
	return nil
}

// Cancel aborts the step started with StartStep, if any.
func (o *Orchestrator) Cancel() {
	o.mu.Lock()
	cancel := o.cancel
	o.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// Reset returns the workflow to idle with every step pending. An in-flight
// step is cancelled and its outcome discarded. Used after a checkpoint
// restore invalidates prior step outcomes.
func (o *Orchestrator) Reset() {
	o.mu.Lock()
	o.gen++
	cancel := o.cancel
	o.steps = freshSteps(o.def)
	o.status = domain.WorkflowStatusIdle
	o.progress = nil
	o.cancel = nil
	o.notifyLocked()
	o.mu.Unlock()

	if cancel != nil {
		cancel()
	}
}

// begin validates the transition and marks the step running. The returned
// generation ties the eventual outcome to the current run; a Reset in the
// meantime invalidates it.
func (o *Orchestrator) begin(stepID string) (domain.WorkflowStepDef, int, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	step := o.step(stepID)
	if step == nil {
		return domain.WorkflowStepDef{}, 0, fmt.Errorf("unknown step %s", stepID)
	}
	if step.Status != domain.StepStatusPending && step.Status != domain.StepStatusError {
		return domain.WorkflowStepDef{}, 0, fmt.Errorf("step %s is %s, only pending or errored steps can run", stepID, step.Status)
	}
	for i := range o.steps {
		if o.steps[i].Status == domain.StepStatusRunning {
			return domain.WorkflowStepDef{}, 0, fmt.Errorf("step %s is already running", o.steps[i].StepID)
		}
	}

	step.Status = domain.StepStatusRunning
	o.status = domain.WorkflowStatusRunning
	o.progress = nil
	o.notifyLocked()

	for _, d := range o.def.Steps {
		if d.StepID == stepID {
			return d, o.gen, nil
		}
	}
	return domain.WorkflowStepDef{}, 0, fmt.Errorf("unknown step %s", stepID)
}

// execute runs a step already marked running and records its outcome.
func (o *Orchestrator) execute(ctx context.Context, def domain.WorkflowStepDef, gen int) error {
	err := o.invoker.RunAgent(ctx, o.threadID, def.AgentID, def.Prompt, func(p domain.Part) {
		o.appendProgress(def.StepID, p, gen)
	})

	o.mu.Lock()
	defer o.mu.Unlock()

	if gen != o.gen {
		// A reset raced this step; its outcome no longer applies.
		return err
	}

	step := o.step(def.StepID)
	// Progress is only meaningful while the step runs.
	o.progress = nil
	o.cancel = nil
	o.notifyStepDoneLocked(def.StepID)

	if err != nil {
		if ctx.Err() != nil {
			err = fmt.Errorf("step cancelled: %w", ctx.Err())
		}
		step.Status = domain.StepStatusError
		o.status = domain.WorkflowStatusError
		o.notifyLocked()
		return err
	}

	step.Status = domain.StepStatusCompleted
	o.refreshStatusLocked()
	o.notifyLocked()
	return nil
}

func (o *Orchestrator) appendProgress(stepID string, p domain.Part, gen int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if gen != o.gen {
		return
	}
	ev := domain.ProgressEvent{
		StepID: stepID,
		Ts:     time.Now().UnixMilli(),
	}
	if p.Type == domain.PartTypeText {
		ev.Text = p.Text
	} else {
		ev.Data = domain.MarshalPart(p)
	}
	o.progress = append(o.progress, ev)
	if o.notifier != nil {
		_ = o.notifier.BroadcastJSON(o.threadID, map[string]interface{}{
			"type":     "workflow_progress",
			"progress": ev,
		})
	}
}

// notifyStepDoneLocked broadcasts the terminal progress marker for a step
// leaving running. Caller holds the lock.
func (o *Orchestrator) notifyStepDoneLocked(stepID string) {
	if o.notifier == nil {
		return
	}
	_ = o.notifier.BroadcastJSON(o.threadID, map[string]interface{}{
		"type": "workflow_progress",
		"progress": domain.ProgressEvent{
			StepID: stepID,
			Done:   true,
			Ts:     time.Now().UnixMilli(),
		},
	})
}

func (o *Orchestrator) step(stepID string) *domain.WorkflowStep {
	for i := range o.steps {
		if o.steps[i].StepID == stepID {
			return &o.steps[i]
		}
	}
	return nil
}

// refreshStatusLocked derives the workflow status from step states. Caller
// holds the lock.
func (o *Orchestrator) refreshStatusLocked() {
	allDone := true
	for i := range o.steps {
		switch o.steps[i].Status {
		case domain.StepStatusRunning:
			o.status = domain.WorkflowStatusRunning
			return
		case domain.StepStatusError:
			o.status = domain.WorkflowStatusError
			return
		case domain.StepStatusPending:
			allDone = false
		}
	}
	if allDone {
		o.status = domain.WorkflowStatusCompleted
	} else {
		o.status = domain.WorkflowStatusIdle
	}
}

// notifyLocked pushes a full state snapshot to watchers. Caller holds the
// lock.
func (o *Orchestrator) notifyLocked() {
	if o.notifier == nil {
		return
	}
	steps := make([]domain.WorkflowStep, len(o.steps))
	copy(steps, o.steps)
	_ = o.notifier.BroadcastJSON(o.threadID, map[string]interface{}{
		"type":        "workflow_state",
		"workflow_id": o.def.WorkflowID,
		"status":      o.status,
		"steps":       steps,
	})
}
