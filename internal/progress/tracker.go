package progress

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

type StepStatus string

const (
	StatusPending    StepStatus = "pending"
	StatusInProgress StepStatus = "in_progress"
	StatusCompleted  StepStatus = "completed"
)

// Pipeline step ids in execution order.
const (
	StepUpload          = "upload"
	StepATS             = "ats"
	StepParsing         = "parsing"
	StepKeywords        = "keywords"
	StepEmbeddings      = "embeddings"
	StepSimilarity      = "similarity"
	StepRecommendations = "recommendations"
	StepSuggestions     = "suggestions"
	StepComplete        = "complete"
)

// Step is one named stage of the pipeline with a fixed percentage tag.
type Step struct {
	ID         string         `json:"id"`
	Name       string         `json:"name"`
	Percentage int            `json:"percentage"`
	Status     StepStatus     `json:"status"`
	Details    map[string]any `json:"details,omitempty"`
}

// Event is a single progress frame pushed to subscribers.
type Event struct {
	CurrentStep Step           `json:"currentStep"`
	Percentage  int            `json:"percentage"`
	Message     string         `json:"message"`
	Details     map[string]any `json:"details,omitempty"`
	Completed   bool           `json:"completed"`
	Timestamp   int64          `json:"timestamp"` // epoch millis
}

// Snapshot is the polling view of one analysis' progress.
type Snapshot struct {
	CurrentStep Step          `json:"currentStep"`
	Percentage  int           `json:"percentage"`
	Terminal    bool          `json:"terminal"`
	Elapsed     time.Duration `json:"elapsedMs"`
}

var pipelineSteps = []Step{
	{ID: StepUpload, Name: "Receiving documents", Percentage: 5},
	{ID: StepATS, Name: "Checking ATS formatting", Percentage: 15},
	{ID: StepParsing, Name: "Parsing sections", Percentage: 25},
	{ID: StepKeywords, Name: "Extracting keywords", Percentage: 40},
	{ID: StepEmbeddings, Name: "Computing embeddings", Percentage: 55},
	{ID: StepSimilarity, Name: "Scoring alignment", Percentage: 70},
	{ID: StepRecommendations, Name: "Analyzing keyword impact", Percentage: 85},
	{ID: StepSuggestions, Name: "Ranking suggestions", Percentage: 95},
	{ID: StepComplete, Name: "Analysis complete", Percentage: 100},
}

// StepIDs returns the fixed step order.
func StepIDs() []string {
	ids := make([]string, len(pipelineSteps))
	for i, s := range pipelineSteps {
		ids[i] = s.ID
	}
	return ids
}

type entry struct {
	steps       []Step
	current     int
	startedAt   time.Time
	updatedAt   time.Time
	terminal    bool
	subscribers map[int]chan Event
	nextSubID   int
}

// Tracker owns the process-wide analysis-id -> progress registry. Only the
// tracker mutates step state; only the orchestrator creates and removes
// entries. Entries that outlive their client are evicted by the janitor
// after the TTL.
type Tracker struct {
	mu      sync.Mutex
	entries map[string]*entry
	ttl     time.Duration
	stopCh  chan struct{}
	logger  *zap.Logger
}

func NewTracker(ttl time.Duration, logger *zap.Logger) *Tracker {
	return &Tracker{
		entries: make(map[string]*entry),
		ttl:     ttl,
		stopCh:  make(chan struct{}),
		logger:  logger,
	}
}

// Init creates the full pending step list for an analysis id. Re-initting
// an existing id resets it.
func (t *Tracker) Init(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.entries[id] = newEntry()
}

// Ensure creates the entry if it does not exist yet. Unlike Init it leaves
// an existing entry and its subscribers untouched, so a worker picking up a
// job already registered at enqueue time does not reset the stream.
func (t *Tracker) Ensure(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.entries[id]; ok {
		return
	}
	t.entries[id] = newEntry()
}

func newEntry() *entry {
	steps := make([]Step, len(pipelineSteps))
	copy(steps, pipelineSteps)
	for i := range steps {
		steps[i].Status = StatusPending
	}

	return &entry{
		steps:       steps,
		current:     -1,
		startedAt:   time.Now(),
		updatedAt:   time.Now(),
		subscribers: make(map[int]chan Event),
	}
}

// Advance marks the step in_progress, completes every earlier step, and
// emits a non-terminal event. Advancing to a step that already completed
// is a no-op: a step never regresses.
func (t *Tracker) Advance(id, stepID string, details map[string]any) {
	t.mu.Lock()
	defer t.mu.Unlock()

	e, ok := t.entries[id]
	if !ok || e.terminal {
		return
	}

	idx := stepIndex(stepID)
	if idx < 0 || e.steps[idx].Status == StatusCompleted {
		return
	}

	for i := 0; i < idx; i++ {
		e.steps[i].Status = StatusCompleted
	}
	e.steps[idx].Status = StatusInProgress
	e.steps[idx].Details = details
	e.current = idx
	e.updatedAt = time.Now()

	t.publishLocked(e, Event{
		CurrentStep: e.steps[idx],
		Percentage:  e.steps[idx].Percentage,
		Message:     e.steps[idx].Name,
		Details:     details,
		Completed:   false,
		Timestamp:   time.Now().UnixMilli(),
	})
}

// Complete marks the step completed. For the final step it emits the
// single terminal event and tears the subscriber channels down; for any
// other step it auto-advances to the next one.
func (t *Tracker) Complete(id, stepID string, details map[string]any) {
	t.mu.Lock()

	e, ok := t.entries[id]
	if !ok || e.terminal {
		t.mu.Unlock()
		return
	}

	idx := stepIndex(stepID)
	if idx < 0 {
		t.mu.Unlock()
		return
	}

	for i := 0; i <= idx; i++ {
		e.steps[i].Status = StatusCompleted
	}
	e.current = idx
	e.updatedAt = time.Now()

	if stepID == StepComplete {
		e.terminal = true
		t.publishLocked(e, Event{
			CurrentStep: e.steps[idx],
			Percentage:  100,
			Message:     e.steps[idx].Name,
			Details:     details,
			Completed:   true,
			Timestamp:   time.Now().UnixMilli(),
		})
		t.closeSubscribersLocked(e)
		t.mu.Unlock()
		return
	}

	t.mu.Unlock()

	if next := nextStepID(stepID); next != "" {
		t.Advance(id, next, details)
	}
}

// Fail emits the terminal event for a pipeline that aborted. The caller is
// responsible for the user-facing message; the detailed cause stays in the
// logs.
func (t *Tracker) Fail(id, message string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	e, ok := t.entries[id]
	if !ok || e.terminal {
		return
	}

	e.terminal = true
	e.updatedAt = time.Now()

	current := Step{ID: StepUpload, Name: "Analysis failed", Percentage: 0, Status: StatusPending}
	if e.current >= 0 {
		current = e.steps[e.current]
	}

	t.publishLocked(e, Event{
		CurrentStep: current,
		Percentage:  current.Percentage,
		Message:     message,
		Completed:   true,
		Timestamp:   time.Now().UnixMilli(),
	})
	t.closeSubscribersLocked(e)
}

// Subscribe attaches a listener for an analysis' events. The returned
// cancel only detaches the listener; it never cancels the pipeline.
func (t *Tracker) Subscribe(id string) (<-chan Event, func(), bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	e, ok := t.entries[id]
	if !ok {
		return nil, nil, false
	}

	ch := make(chan Event, 16)
	subID := e.nextSubID
	e.nextSubID++
	e.subscribers[subID] = ch

	cancel := func() {
		t.mu.Lock()
		defer t.mu.Unlock()
		if sub, ok := e.subscribers[subID]; ok {
			delete(e.subscribers, subID)
			close(sub)
		}
	}

	return ch, cancel, true
}

// Snapshot returns the current step, percentage and elapsed time for
// polling clients.
func (t *Tracker) Snapshot(id string) (Snapshot, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	e, ok := t.entries[id]
	if !ok {
		return Snapshot{}, false
	}

	current := e.steps[0]
	if e.current >= 0 {
		current = e.steps[e.current]
	}

	return Snapshot{
		CurrentStep: current,
		Percentage:  current.Percentage,
		Terminal:    e.terminal,
		Elapsed:     time.Since(e.startedAt),
	}, true
}

// Remove tears down the entry for an analysis id.
func (t *Tracker) Remove(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	e, ok := t.entries[id]
	if !ok {
		return
	}

	t.closeSubscribersLocked(e)
	delete(t.entries, id)
}

// StartJanitor begins TTL-based eviction of stale entries. Entries whose
// client disconnected before completion would otherwise leak.
func (t *Tracker) StartJanitor() {
	go func() {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()

		for {
			select {
			case <-t.stopCh:
				return
			case <-ticker.C:
				t.evictStale()
			}
		}
	}()
}

// Stop halts the janitor.
func (t *Tracker) Stop() {
	close(t.stopCh)
}

func (t *Tracker) evictStale() {
	t.mu.Lock()
	defer t.mu.Unlock()

	cutoff := time.Now().Add(-t.ttl)
	for id, e := range t.entries {
		if e.updatedAt.Before(cutoff) {
			t.logger.Warn("evicting stale progress entry", zap.String("analysis_id", id))
			t.closeSubscribersLocked(e)
			delete(t.entries, id)
		}
	}
}

// publishLocked delivers an event to all subscribers without blocking; a
// subscriber that cannot keep up loses frames rather than stalling the
// pipeline.
func (t *Tracker) publishLocked(e *entry, event Event) {
	for _, ch := range e.subscribers {
		select {
		case ch <- event:
		default:
		}
	}
}

func (t *Tracker) closeSubscribersLocked(e *entry) {
	for id, ch := range e.subscribers {
		delete(e.subscribers, id)
		close(ch)
	}
}

func stepIndex(stepID string) int {
	for i, s := range pipelineSteps {
		if s.ID == stepID {
			return i
		}
	}
	return -1
}

func nextStepID(stepID string) string {
	idx := stepIndex(stepID)
	if idx < 0 || idx+1 >= len(pipelineSteps) {
		return ""
	}
	return pipelineSteps[idx+1].ID
}
