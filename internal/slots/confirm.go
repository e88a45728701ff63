package slots

import (
	"encoding/json"
	"fmt"
	"strings"

	"incidentdesk/internal/domain"
)

// Pending is a field waiting for the user to pick one of its candidates.
type Pending struct {
	Field      domain.Field
	Candidates []string
}

type State int

const (
	StateIdle State = iota
	StatePending
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePending:
		return "pending"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Queue holds ambiguous fields in arrival order. A field is queued at most
// once. Next moves the front record under confirmation for the following
// turn; Resolve ends that confirmation once the user answered or denied.
type Queue struct {
	pending []Pending
	active  *Pending
}

func NewQueue() *Queue {
	return &Queue{}
}

// Enqueue adds field to the back of the queue. A field that is already queued
// keeps its position and takes the newer candidates. It reports whether the
// field was newly added.
func (q *Queue) Enqueue(field domain.Field, candidates []string) bool {
	cands := append([]string{}, candidates...)
	for i := range q.pending {
		if q.pending[i].Field == field {
			q.pending[i].Candidates = cands
			return false
		}
	}
	if q.active != nil && q.active.Field == field {
		q.active = nil
	}
	q.pending = append(q.pending, Pending{Field: field, Candidates: cands})
	return true
}

func (q *Queue) HasPending() bool {
	return len(q.pending) > 0
}

// Fields lists the queued fields in order, excluding the one under confirmation.
func (q *Queue) Fields() []domain.Field {
	out := make([]domain.Field, 0, len(q.pending))
	for _, p := range q.pending {
		out = append(out, p.Field)
	}
	return out
}

// Drop removes field from the queue and ends its confirmation. A field that
// got a value or was rejected has nothing left to confirm.
func (q *Queue) Drop(field domain.Field) {
	q.Resolve(field)
	kept := q.pending[:0]
	for _, p := range q.pending {
		if p.Field != field {
			kept = append(kept, p)
		}
	}
	q.pending = kept
}

// Next pops the front record and puts it under confirmation.
func (q *Queue) Next() (Pending, bool) {
	if len(q.pending) == 0 {
		return Pending{}, false
	}
	front := q.pending[0]
	q.pending = q.pending[1:]
	q.active = &front
	return front, true
}

// Active returns the record currently under confirmation.
func (q *Queue) Active() (Pending, bool) {
	if q.active == nil {
		return Pending{}, false
	}
	return *q.active, true
}

// Resolve ends the confirmation of field once the user answered it.
func (q *Queue) Resolve(field domain.Field) {
	if q.active != nil && q.active.Field == field {
		q.active = nil
	}
}

// State is Pending while a record waits in the queue or is under
// confirmation, and Idle otherwise.
func (q *Queue) State() State {
	if len(q.pending) > 0 || q.active != nil {
		return StatePending
	}
	return StateIdle
}

func (q *Queue) Reset() {
	q.pending = nil
	q.active = nil
}

// ConfirmationPrompt builds the message key and choices for a popped record.
// A single low-confidence model name gets a yes/no question instead of a list.
func ConfirmationPrompt(p Pending) (string, []domain.Choice) {
	switch p.Field {
	case domain.FieldModel:
		if len(p.Candidates) == 1 {
			return "utter_ask_confirm_model_name", []domain.Choice{
				{Title: "Nein", Payload: "/deny"},
				{Title: "Ja", Payload: InformPayload(domain.FieldModel, p.Candidates[0])},
			}
		}
		return "utter_ask_select_model", candidateChoices(p)
	case domain.FieldAppVersion:
		return "utter_ask_confirm_app_version", candidateChoices(p)
	case domain.FieldOSName:
		return "utter_ask_confirm_os_name", candidateChoices(p)
	case domain.FieldVendor:
		return "utter_ask_confirm_vendor", candidateChoices(p)
	case domain.FieldProblem, domain.FieldExpected, domain.FieldSteps, domain.FieldPlatform,
		domain.FieldOSVersion, domain.FieldContentType, domain.FieldContentID, domain.FieldInterruptions,
		domain.FieldConnectivity, domain.FieldErrorMessage, domain.FieldEmail, domain.FieldBrowser,
		domain.FieldConfirm, domain.FieldIssueType:
		return "utter_ask_confirm_value", candidateChoices(p)
	}
	return "utter_ask_confirm_value", candidateChoices(p)
}

func candidateChoices(p Pending) []domain.Choice {
	choices := make([]domain.Choice, 0, len(p.Candidates))
	for _, c := range p.Candidates {
		choices = append(choices, domain.Choice{Title: c, Payload: InformPayload(p.Field, c)})
	}
	return choices
}

// InformPayload encodes a forced extraction of value for field, in the
// "/intent{json}" form the dialogue layer feeds back on the next turn.
func InformPayload(field domain.Field, value string) string {
	body, _ := json.Marshal(map[string]string{string(field): value})
	return "/inform" + string(body)
}

// ParsePayload decodes a "/intent" or "/intent{json}" payload. Every entity
// carries full confidence.
func ParsePayload(payload string) (string, []domain.Entity, error) {
	payload = strings.TrimSpace(payload)
	if !strings.HasPrefix(payload, "/") {
		return "", nil, fmt.Errorf("payload must start with '/': %q", payload)
	}
	rest := payload[1:]
	intent := rest
	var raw string
	if i := strings.Index(rest, "{"); i >= 0 {
		intent, raw = rest[:i], rest[i:]
	}
	intent = strings.TrimSpace(intent)
	if intent == "" {
		return "", nil, fmt.Errorf("payload has no intent: %q", payload)
	}
	if raw == "" {
		return intent, nil, nil
	}

	var values map[string]string
	if err := json.Unmarshal([]byte(raw), &values); err != nil {
		return "", nil, fmt.Errorf("payload entities: %w", err)
	}
	full := 1.0
	entities := make([]domain.Entity, 0, len(values))
	for _, f := range domain.RecordFields {
		if v, ok := values[string(f)]; ok {
			entities = append(entities, domain.Entity{Entity: string(f), Value: v, Confidence: &full})
		}
	}
	if v, ok := values[string(domain.FieldBrowser)]; ok {
		entities = append(entities, domain.Entity{Entity: string(domain.FieldBrowser), Value: v, Confidence: &full})
	}
	return intent, entities, nil
}
