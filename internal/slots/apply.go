package slots

import (
	"incidentdesk/internal/domain"
	"incidentdesk/internal/metrics"
)

// Apply writes an outcome into the slot set and the queue in one step, so a
// field always ends up resolved, absent, or queued. It reports whether the
// field was newly queued.
func Apply(out Outcome, values map[domain.Field]string, queue *Queue) bool {
	for _, f := range out.Clear {
		delete(values, f)
	}
	for f, v := range out.Set {
		values[f] = v
	}

	if out.Ambiguous() {
		delete(values, out.Field)
		added := queue.Enqueue(out.Field, out.Candidates)
		if added {
			metrics.RecordConfirmation(string(out.Field))
		}
		return added
	}

	if out.Rejected() {
		metrics.RecordRejection(string(out.Field))
	}
	queue.Drop(out.Field)
	for f := range out.Set {
		queue.Drop(f)
	}
	return false
}
