package action

import (
	"context"
	"sync"
)

// Recorder is an Executor that records every Action and serves configured
// responses. Hosts use it for script dry-runs; tests use it to assert on the
// exact action sequence a script produces.
//
//	rec := action.NewRecorder()
//	rec.Respond("navigate", action.Fail(action.Timeout, "page load timed out"))
//
//	// after a run
//	acts := rec.Performed()
type Recorder struct {
	mu sync.Mutex

	// Configured responses, keyed by verb. Verbs without an entry succeed
	// with a nil value.
	responses map[string][]Result

	performed []Action
}

// NewRecorder creates an empty Recorder where every action succeeds.
func NewRecorder() *Recorder {
	return &Recorder{responses: map[string][]Result{}}
}

// Respond queues a response for the next Perform of verb. Queued responses
// are consumed in order; once the queue drains, the verb succeeds again.
func (r *Recorder) Respond(verb string, res Result) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.responses[verb] = append(r.responses[verb], res)
}

// Perform records the action and returns the queued response, if any.
func (r *Recorder) Perform(ctx context.Context, act Action) Result {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.performed = append(r.performed, act)

	if err := ctx.Err(); err != nil {
		return Fail(Timeout, "cancelled: %v", err)
	}
	if queue := r.responses[act.Verb]; len(queue) > 0 {
		res := queue[0]
		r.responses[act.Verb] = queue[1:]
		return res
	}
	return Success(nil)
}

// Performed returns a copy of every action performed so far, in order.
func (r *Recorder) Performed() []Action {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Action, len(r.performed))
	copy(out, r.performed)
	return out
}

// Reset clears the recorded actions but keeps configured responses.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.performed = nil
}
