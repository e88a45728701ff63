package report

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"incidentdesk/internal/domain"
	"incidentdesk/internal/metrics"
)

// Ticketer creates the ticket for a finished report.
type Ticketer interface {
	Submit(ctx context.Context, record domain.IncidentRecord) error
}

// Archiver stores every closed report, whatever its outcome.
type Archiver interface {
	SaveIncident(ctx context.Context, event domain.IncidentEvent) error
}

type EventPublisher interface {
	PublishIncident(ctx context.Context, event domain.IncidentEvent) error
}

type Result struct {
	IncidentID string
	Outcome    domain.SubmissionOutcome
	// Messages are utterance keys in the order they are shown.
	Messages []string
}

type Submitter struct {
	tickets   Ticketer
	archive   Archiver
	publisher EventPublisher
	logger    *slog.Logger
}

// NewSubmitter wires the ticket endpoint plus the optional archive and event
// publisher. Either of the latter may be nil.
func NewSubmitter(tickets Ticketer, archive Archiver, publisher EventPublisher, logger *slog.Logger) *Submitter {
	return &Submitter{
		tickets:   tickets,
		archive:   archive,
		publisher: publisher,
		logger:    logger,
	}
}

// Finish closes a report. When the user did not affirm, nothing is sent. The
// caller resets the session afterwards regardless of the outcome.
func (s *Submitter) Finish(ctx context.Context, sessionID string, issue domain.IssueType, slots map[domain.Field]string, affirmed bool) Result {
	event := domain.IncidentEvent{
		IncidentID: uuid.NewString(),
		SessionID:  sessionID,
		IssueType:  issue,
		Record:     domain.NewIncidentRecord(slots),
		CreatedAt:  time.Now().UTC(),
	}

	res := Result{IncidentID: event.IncidentID}
	switch {
	case !affirmed:
		res.Outcome = domain.OutcomeDeclined
		res.Messages = []string{"utter_acknowledge", "utter_handoff"}
	default:
		if err := s.tickets.Submit(ctx, event.Record); err != nil {
			s.logger.Error("incident submission failed", "session_id", sessionID, "incident_id", event.IncidentID, "error", err)
			event.Error = err.Error()
			res.Outcome = domain.OutcomeFailed
			res.Messages = []string{"utter_general_error", "utter_handoff"}
		} else {
			s.logger.Info("incident submitted", "session_id", sessionID, "incident_id", event.IncidentID, "issue_type", issue)
			res.Outcome = domain.OutcomeSubmitted
			res.Messages = []string{"utter_incident_submit_success", "utter_do_survey"}
		}
	}
	event.Outcome = res.Outcome
	metrics.RecordSubmission(string(res.Outcome))

	s.record(ctx, event)
	return res
}

func (s *Submitter) record(ctx context.Context, event domain.IncidentEvent) {
	if s.archive != nil {
		if err := s.archive.SaveIncident(ctx, event); err != nil {
			s.logger.Warn("archive incident failed", "incident_id", event.IncidentID, "error", err)
		}
	}
	if s.publisher != nil {
		if err := s.publisher.PublishIncident(ctx, event); err != nil {
			s.logger.Warn("publish incident failed", "incident_id", event.IncidentID, "error", err)
		}
	}
}
