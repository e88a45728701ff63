package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"incidentdesk/internal/domain"
	"incidentdesk/internal/messages"
	"incidentdesk/internal/report"
	"incidentdesk/internal/session"
	"incidentdesk/internal/slots"
)

// ErrInvalidTurn marks input the engine cannot interpret, such as a
// malformed button payload.
var ErrInvalidTurn = errors.New("invalid turn")

const (
	intentExplain = "explain"
	intentHelp    = "help"
	intentDeny    = "deny"
)

// affirmIntents close a finished form with a submission.
var affirmIntents = map[string]struct{}{
	"confirm":  {},
	"thankyou": {},
}

type Finisher interface {
	Finish(ctx context.Context, sessionID string, issue domain.IssueType, slots map[domain.Field]string, affirmed bool) report.Result
}

type Service struct {
	sessions  *session.Registry
	validator *slots.Validator
	finisher  Finisher
	messages  *messages.Catalog
	logger    *slog.Logger
}

func New(sessions *session.Registry, validator *slots.Validator, finisher Finisher, catalog *messages.Catalog, logger *slog.Logger) *Service {
	return &Service{
		sessions:  sessions,
		validator: validator,
		finisher:  finisher,
		messages:  catalog,
		logger:    logger,
	}
}

func (s *Service) StartSession() string {
	id := s.sessions.Create()
	s.logger.Info("session started", "session_id", id)
	return id
}

func (s *Service) EndSession(id string) error {
	if err := s.sessions.Abandon(id); err != nil {
		return err
	}
	s.logger.Info("session abandoned", "session_id", id)
	return nil
}

// HandleTurn runs one user turn: it applies the extractions, settles any
// confirmation that was asked for, and decides what to ask next.
func (s *Service) HandleTurn(ctx context.Context, req domain.TurnRequest) (domain.TurnResponse, error) {
	intent := strings.TrimSpace(req.Intent)
	entities := append([]domain.Entity{}, req.Entities...)
	if strings.TrimSpace(req.Payload) != "" {
		payloadIntent, payloadEntities, err := slots.ParsePayload(req.Payload)
		if err != nil {
			return domain.TurnResponse{}, fmt.Errorf("%w: %v", ErrInvalidTurn, err)
		}
		intent = payloadIntent
		entities = append(entities, payloadEntities...)
	}

	var resp domain.TurnResponse
	err := s.sessions.Do(req.SessionID, func(sess *session.Session) error {
		resp = s.runTurn(ctx, sess, intent, req.Text, entities)
		return nil
	})
	if err != nil {
		return domain.TurnResponse{}, err
	}
	return resp, nil
}

func (s *Service) runTurn(ctx context.Context, sess *session.Session, intent, text string, entities []domain.Entity) domain.TurnResponse {
	resp := domain.TurnResponse{SessionID: sess.ID}

	if sess.AwaitingSubmit {
		_, affirmed := affirmIntents[intent]
		res := s.finisher.Finish(ctx, sess.ID, sess.IssueType, sess.Snapshot(), affirmed)
		s.logger.Info("report closed", "session_id", sess.ID, "incident_id", res.IncidentID, "outcome", res.Outcome)
		resp.IssueType = sess.IssueType
		sess.Reset()
		for _, key := range res.Messages {
			resp.Messages = append(resp.Messages, s.message(key, nil, nil))
		}
		resp.Outcome = res.Outcome
		resp.Slots = sess.Snapshot()
		return resp
	}

	if domain.IsIssueIntent(intent) {
		sess.IssueType = domain.IssueTypeFromIntent(intent)
	}

	switch intent {
	case intentExplain:
		resp.Messages = append(resp.Messages, s.fieldMessage("utter_explain_", sess.Requested, "utter_can_not_explain"))
	case intentHelp:
		resp.Messages = append(resp.Messages, s.fieldMessage("utter_help_", sess.Requested, "utter_can_not_help_slot"))
	default:
		resp.Messages = append(resp.Messages, s.applyExtractions(ctx, sess, intent, text, entities)...)
	}

	resp.Messages = append(resp.Messages, s.askNext(sess))
	resp.IssueType = sess.IssueType
	resp.RequestedField = sess.Requested
	resp.Slots = sess.Snapshot()
	resp.Pending = sess.Queue.Fields()
	return resp
}

func (s *Service) applyExtractions(ctx context.Context, sess *session.Session, intent, text string, entities []domain.Entity) []domain.Message {
	groups := groupEntities(entities)

	if f := sess.Requested; f.FreeText() && strings.TrimSpace(text) != "" && intent != intentDeny {
		if _, extracted := groups.values[f]; !extracted {
			groups.add(f, strings.TrimSpace(text), 1)
		}
	}

	active, confirming := sess.Queue.Active()
	if confirming && intent == intentDeny {
		s.logger.Info("confirmation denied", "session_id", sess.ID, "field", active.Field)
	}

	var out []domain.Message
	for _, field := range groups.order {
		vc := slots.Context{
			Requested:  sess.Requested,
			Confidence: groups.confidence[field],
			Values:     sess.Values,
		}
		outcome := s.validator.Validate(ctx, field, groups.values[field], vc)
		if slots.Apply(outcome, sess.Values, sess.Queue) {
			s.logger.Info("field needs confirmation", "session_id", sess.ID, "field", field, "candidates", len(outcome.Candidates))
		}
		if outcome.Message != "" {
			out = append(out, s.message(outcome.Message, outcome.MessageArgs, nil))
		}
	}

	if confirming {
		sess.Queue.Resolve(active.Field)
	}
	return out
}

// askNext picks the next prompt. Pending confirmations come before any
// missing field; with nothing left the user is asked to submit.
func (s *Service) askNext(sess *session.Session) domain.Message {
	required := slots.RequiredFields(sess.IssueType, sess.Values[domain.FieldPlatform], sess.Queue)
	field, ok := slots.NextField(required, sess.Values)
	switch {
	case !ok:
		sess.Requested = ""
		sess.AwaitingSubmit = true
		return s.message("utter_ask_submit", nil, []domain.Choice{
			{Title: "Ja", Payload: "/confirm"},
			{Title: "Nein", Payload: "/deny"},
		})
	case field == domain.FieldConfirm:
		p, _ := sess.Queue.Next()
		delete(sess.Values, p.Field)
		sess.Requested = p.Field
		key, choices := slots.ConfirmationPrompt(p)
		var args map[string]string
		if len(p.Candidates) > 0 {
			args = map[string]string{"value": p.Candidates[0]}
		}
		return s.message(key, args, choices)
	default:
		sess.Requested = field
		return s.message(messages.AskKey(string(field)), nil, nil)
	}
}

func (s *Service) fieldMessage(prefix string, field domain.Field, fallback string) domain.Message {
	if field != "" {
		if key := prefix + string(field); s.messages.Has(key) {
			return s.message(key, nil, nil)
		}
	}
	return s.message(fallback, nil, nil)
}

func (s *Service) message(key string, args map[string]string, choices []domain.Choice) domain.Message {
	return domain.Message{
		Key:     key,
		Text:    s.messages.Render(key, args),
		Choices: choices,
	}
}

type entityGroups struct {
	order      []domain.Field
	values     map[domain.Field][]string
	confidence map[domain.Field]float64
}

func (g *entityGroups) add(field domain.Field, value string, confidence float64) {
	if _, seen := g.values[field]; !seen {
		g.order = append(g.order, field)
		g.confidence[field] = confidence
	}
	g.values[field] = append(g.values[field], value)
}

// groupEntities collects the values per field in order of first appearance.
// The confidence of a field is that of its first entity; a missing
// confidence counts as certain.
func groupEntities(entities []domain.Entity) *entityGroups {
	g := &entityGroups{
		values:     make(map[domain.Field][]string),
		confidence: make(map[domain.Field]float64),
	}
	for _, e := range entities {
		field, ok := domain.ParseField(strings.TrimSpace(e.Entity))
		if !ok || field == domain.FieldConfirm || field == domain.FieldIssueType {
			continue
		}
		confidence := 1.0
		if e.Confidence != nil {
			confidence = *e.Confidence
		}
		g.add(field, e.Value, confidence)
	}
	return g
}
