package store

import "github.com/appcanvas/appcanvas/pkg/models"

// ItemOutcome is the result of one item of a bulk operation. Before is the
// element as loaded prior to the change; After is nil for deletions and for
// failed updates.
type ItemOutcome struct {
	ElementID string
	Before    *models.CanvasElement
	After     *models.CanvasElement
	Err       error
}

// OK reports whether the item succeeded.
func (o ItemOutcome) OK() bool {
	return o.Err == nil
}

// BatchResult lists per-item outcomes in request order.
type BatchResult struct {
	Outcomes []ItemOutcome
}

// Succeeded returns the number of items that were applied.
func (r BatchResult) Succeeded() int {
	n := 0
	for _, o := range r.Outcomes {
		if o.OK() {
			n++
		}
	}
	return n
}

// Failed returns the number of items that were not applied.
func (r BatchResult) Failed() int {
	return len(r.Outcomes) - r.Succeeded()
}

// Failures returns the failed outcomes.
func (r BatchResult) Failures() []ItemOutcome {
	var out []ItemOutcome
	for _, o := range r.Outcomes {
		if !o.OK() {
			out = append(out, o)
		}
	}
	return out
}

// Successes returns the applied outcomes.
func (r BatchResult) Successes() []ItemOutcome {
	var out []ItemOutcome
	for _, o := range r.Outcomes {
		if o.OK() {
			out = append(out, o)
		}
	}
	return out
}
