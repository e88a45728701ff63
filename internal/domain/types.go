package domain

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

type TurnRequest struct {
	SessionID string   `json:"session_id"`
	Intent    string   `json:"intent,omitempty"`
	Text      string   `json:"text,omitempty"`
	Payload   string   `json:"payload,omitempty"`
	Entities  []Entity `json:"entities,omitempty"`
}

// Entity is one raw extraction produced by the NLU step.
type Entity struct {
	Entity     string   `json:"entity"`
	Value      string   `json:"value"`
	Confidence *float64 `json:"confidence,omitempty"`
}

type TurnResponse struct {
	SessionID      string            `json:"session_id"`
	IssueType      IssueType         `json:"issue_type,omitempty"`
	Messages       []Message         `json:"messages"`
	RequestedField Field             `json:"requested_field,omitempty"`
	Slots          map[Field]string  `json:"slots"`
	Pending        []Field           `json:"pending_confirmations,omitempty"`
	Outcome        SubmissionOutcome `json:"outcome,omitempty"`
}

type Message struct {
	Key     string   `json:"key"`
	Text    string   `json:"text"`
	Choices []Choice `json:"choices,omitempty"`
}

// Choice is one discrete answer offered to the user. Payload is fed back
// verbatim on the next turn.
type Choice struct {
	Title   string `json:"title"`
	Payload string `json:"payload"`
}

type SubmissionOutcome string

const (
	OutcomeSubmitted SubmissionOutcome = "submitted"
	OutcomeFailed    SubmissionOutcome = "failed"
	OutcomeDeclined  SubmissionOutcome = "declined"
)

// IncidentRecord is the flat record handed to the ticketing endpoint. Every
// column is a string; absent slots are empty.
type IncidentRecord struct {
	Problem       string `json:"Problem Statement"`
	Expected      string `json:"Expected Behavior"`
	Steps         string `json:"Steps to reproduce"`
	Platform      string `json:"Platform"`
	Model         string `json:"Device Model"`
	Vendor        string `json:"Vendor"`
	OS            string `json:"OS"`
	OSVersion     string `json:"OS Version"`
	ContentType   string `json:"Content Type"`
	ContentID     string `json:"Content ID"`
	Interruptions string `json:"Interruption"`
	AppVersion    string `json:"App Version"`
	Connectivity  string `json:"Connectivity"`
	ErrorMessage  string `json:"Error Msg"`
	Email         string `json:"Email"`
}

// NewIncidentRecord flattens a slot set. On the web platform the browser name
// takes the OS column when no OS was collected.
func NewIncidentRecord(slots map[Field]string) IncidentRecord {
	get := func(f Field) string {
		return Sanitize(slots[f], "")
	}
	rec := IncidentRecord{
		Problem:       get(FieldProblem),
		Expected:      get(FieldExpected),
		Steps:         get(FieldSteps),
		Platform:      get(FieldPlatform),
		Model:         get(FieldModel),
		Vendor:        get(FieldVendor),
		OS:            get(FieldOSName),
		OSVersion:     get(FieldOSVersion),
		ContentType:   get(FieldContentType),
		ContentID:     get(FieldContentID),
		Interruptions: get(FieldInterruptions),
		AppVersion:    get(FieldAppVersion),
		Connectivity:  get(FieldConnectivity),
		ErrorMessage:  get(FieldErrorMessage),
		Email:         get(FieldEmail),
	}
	if rec.OS == "" && rec.Platform == PlatformWeb {
		rec.OS = get(FieldBrowser)
	}
	return rec
}

// Sanitize renders a value as a string, falling back to def when it is empty.
func Sanitize(value any, def string) string {
	switch v := value.(type) {
	case nil:
		return def
	case string:
		if strings.TrimSpace(v) == "" {
			return def
		}
		return strings.TrimSpace(v)
	case bool:
		if !v {
			return def
		}
		return "True"
	case []string:
		if len(v) == 0 {
			return def
		}
		return fmt.Sprintf("%v", v)
	default:
		return fmt.Sprintf("%v", v)
	}
}

// IncidentEvent is published and archived once per closed conversation.
type IncidentEvent struct {
	IncidentID string            `json:"incident_id"`
	SessionID  string            `json:"session_id"`
	IssueType  IssueType         `json:"issue_type"`
	Outcome    SubmissionOutcome `json:"outcome"`
	Record     IncidentRecord    `json:"record"`
	Error      string            `json:"error,omitempty"`
	CreatedAt  time.Time         `json:"created_at"`
}

func (e IncidentEvent) MarshalRecord() ([]byte, error) {
	return json.Marshal(e.Record)
}
