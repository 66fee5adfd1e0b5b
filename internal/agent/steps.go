package agent

import (
	"sync"
)

// ProgressCallback is called with the full step list after every transition.
type ProgressCallback func(steps []ResearchStep)

// StepTracker keeps an ordered, id-keyed list of research steps. Updating an
// existing id overwrites it in place; new ids are appended. Steps are never
// removed. Callbacks are delivered one at a time, in mutation order.
type StepTracker struct {
	mu       sync.Mutex
	deliver  sync.Mutex
	steps    []ResearchStep
	index    map[string]int
	callback ProgressCallback
}

// NewStepTracker creates a tracker that reports to callback (may be nil).
func NewStepTracker(callback ProgressCallback) *StepTracker {
	return &StepTracker{index: make(map[string]int), callback: callback}
}

// Update upserts a step and notifies the callback. An empty description keeps
// the previous one.
func (t *StepTracker) Update(id, description string, status StepStatus) {
	t.mu.Lock()
	if i, ok := t.index[id]; ok {
		if description != "" {
			t.steps[i].Description = description
		}
		t.steps[i].Status = status
	} else {
		t.index[id] = len(t.steps)
		t.steps = append(t.steps, ResearchStep{ID: id, Description: description, Status: status})
	}
	t.unlockAndNotify(true)
}

// Start marks a step in progress.
func (t *StepTracker) Start(id, description string) {
	t.Update(id, description, StepInProgress)
}

// Complete marks a step completed.
func (t *StepTracker) Complete(id string) {
	t.Update(id, "", StepCompleted)
}

// Fail marks a step failed.
func (t *StepTracker) Fail(id string) {
	t.Update(id, "", StepFailed)
}

// Merge folds steps into the tracker: existing ids are overwritten (last
// status and description win) and unseen ids are appended in the given order.
func (t *StepTracker) Merge(steps []ResearchStep) {
	if len(steps) == 0 {
		return
	}
	t.mu.Lock()
	for _, s := range steps {
		if i, ok := t.index[s.ID]; ok {
			t.steps[i] = s
			continue
		}
		t.index[s.ID] = len(t.steps)
		t.steps = append(t.steps, s)
	}
	t.unlockAndNotify(true)
}

// FailInProgress marks every step still in progress as failed.
func (t *StepTracker) FailInProgress() {
	t.mu.Lock()
	changed := false
	for i := range t.steps {
		if t.steps[i].Status == StepInProgress {
			t.steps[i].Status = StepFailed
			changed = true
		}
	}
	t.unlockAndNotify(changed)
}

// Get returns the step with id.
func (t *StepTracker) Get(id string) (ResearchStep, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	i, ok := t.index[id]
	if !ok {
		return ResearchStep{}, false
	}
	return t.steps[i], true
}

// Steps returns a copy of the current steps.
func (t *StepTracker) Steps() []ResearchStep {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.snapshotLocked()
}

// unlockAndNotify releases mu and, when notify is set, hands the current steps
// to the callback. deliver is taken before mu is released so a later mutation
// cannot overtake an earlier one.
func (t *StepTracker) unlockAndNotify(notify bool) {
	if !notify || t.callback == nil {
		t.mu.Unlock()
		return
	}
	snapshot := t.snapshotLocked()
	t.deliver.Lock()
	t.mu.Unlock()
	defer t.deliver.Unlock()
	t.callback(snapshot)
}

func (t *StepTracker) snapshotLocked() []ResearchStep {
	out := make([]ResearchStep, len(t.steps))
	copy(out, t.steps)
	return out
}
