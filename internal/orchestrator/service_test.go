package orchestrator

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"incidentdesk/internal/domain"
	"incidentdesk/internal/messages"
	"incidentdesk/internal/report"
	"incidentdesk/internal/session"
	"incidentdesk/internal/slots"
)

type fakeFinisher struct {
	outcome  domain.SubmissionOutcome
	calls    int
	affirmed bool
	slots    map[domain.Field]string
}

func (f *fakeFinisher) Finish(_ context.Context, _ string, _ domain.IssueType, values map[domain.Field]string, affirmed bool) report.Result {
	f.calls++
	f.affirmed = affirmed
	f.slots = values
	outcome := f.outcome
	if !affirmed {
		outcome = domain.OutcomeDeclined
	}
	return report.Result{IncidentID: "inc-1", Outcome: outcome, Messages: []string{"utter_acknowledge"}}
}

func newTestService(f Finisher) *Service {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(
		session.NewRegistry(time.Minute),
		slots.NewValidator(nil, logger),
		f,
		messages.MustLoadDefault(),
		logger,
	)
}

func turn(t *testing.T, s *Service, req domain.TurnRequest) domain.TurnResponse {
	t.Helper()
	resp, err := s.HandleTurn(context.Background(), req)
	if err != nil {
		t.Fatalf("HandleTurn(%+v): %v", req, err)
	}
	return resp
}

func lastKey(resp domain.TurnResponse) string {
	if len(resp.Messages) == 0 {
		return ""
	}
	return resp.Messages[len(resp.Messages)-1].Key
}

func TestOfflineReportEndToEnd(t *testing.T) {
	finisher := &fakeFinisher{outcome: domain.OutcomeSubmitted}
	s := newTestService(finisher)
	id := s.StartSession()

	resp := turn(t, s, domain.TurnRequest{SessionID: id, Intent: "issue_offline", Text: "Downloads gehen nicht"})
	if resp.IssueType != domain.IssueOffline || resp.RequestedField != domain.FieldInterruptions {
		t.Fatalf("issue=%s requested=%s", resp.IssueType, resp.RequestedField)
	}

	resp = turn(t, s, domain.TurnRequest{SessionID: id, Intent: "inform", Text: "nach 5 Minuten"})
	if resp.Slots[domain.FieldInterruptions] != "nach 5 Minuten" {
		t.Fatalf("slots=%v", resp.Slots)
	}
	if resp.RequestedField != domain.FieldContentID {
		t.Fatalf("requested=%s, want video_content_id", resp.RequestedField)
	}

	turn(t, s, domain.TurnRequest{SessionID: id, Intent: "inform", Text: "Tatort"})
	resp = turn(t, s, domain.TurnRequest{SessionID: id, Intent: "inform", Text: "a@b.de"})
	if lastKey(resp) != "utter_ask_submit" {
		t.Fatalf("last message=%s, want utter_ask_submit", lastKey(resp))
	}
	if len(resp.Messages[len(resp.Messages)-1].Choices) != 2 {
		t.Fatalf("submit prompt should offer yes/no")
	}

	resp = turn(t, s, domain.TurnRequest{SessionID: id, Payload: "/confirm"})
	if finisher.calls != 1 || !finisher.affirmed {
		t.Fatalf("finisher calls=%d affirmed=%v", finisher.calls, finisher.affirmed)
	}
	if finisher.slots[domain.FieldEmail] != "a@b.de" || finisher.slots[domain.FieldContentID] != "Tatort" {
		t.Fatalf("submitted slots=%v", finisher.slots)
	}
	if resp.Outcome != domain.OutcomeSubmitted {
		t.Fatalf("outcome=%s", resp.Outcome)
	}
	if len(resp.Slots) != 0 {
		t.Fatalf("slots after submission=%v, want empty", resp.Slots)
	}
}

func TestFailedSubmissionStillClearsForm(t *testing.T) {
	finisher := &fakeFinisher{outcome: domain.OutcomeFailed}
	s := newTestService(finisher)
	id := s.StartSession()

	turn(t, s, domain.TurnRequest{SessionID: id, Intent: "issue_offline"})
	turn(t, s, domain.TurnRequest{SessionID: id, Text: "immer"})
	turn(t, s, domain.TurnRequest{SessionID: id, Text: "Tatort"})
	resp := turn(t, s, domain.TurnRequest{SessionID: id, Text: "a@b.de"})
	if lastKey(resp) != "utter_ask_submit" {
		t.Fatalf("last message=%s, want utter_ask_submit", lastKey(resp))
	}

	resp = turn(t, s, domain.TurnRequest{SessionID: id, Payload: "/confirm"})
	if resp.Outcome != domain.OutcomeFailed || !finisher.affirmed {
		t.Fatalf("outcome=%s affirmed=%v", resp.Outcome, finisher.affirmed)
	}
	if len(resp.Slots) != 0 || len(resp.Pending) != 0 {
		t.Fatalf("slots=%v pending=%v, want empty", resp.Slots, resp.Pending)
	}

	err := s.sessions.Do(id, func(sess *session.Session) error {
		if len(sess.Values) != 0 || sess.AwaitingSubmit || sess.Requested != "" {
			t.Fatalf("session not reset: values=%v awaiting=%v requested=%s", sess.Values, sess.AwaitingSubmit, sess.Requested)
		}
		if sess.Queue.State() != slots.StateIdle {
			t.Fatalf("queue state=%s, want idle", sess.Queue.State())
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
}

func TestDeclinedSubmissionResets(t *testing.T) {
	finisher := &fakeFinisher{outcome: domain.OutcomeSubmitted}
	s := newTestService(finisher)
	id := s.StartSession()

	turn(t, s, domain.TurnRequest{SessionID: id, Intent: "issue_offline"})
	turn(t, s, domain.TurnRequest{SessionID: id, Text: "oft"})
	turn(t, s, domain.TurnRequest{SessionID: id, Text: "ZDF"})
	turn(t, s, domain.TurnRequest{SessionID: id, Text: "x@y.de"})

	resp := turn(t, s, domain.TurnRequest{SessionID: id, Payload: "/deny"})
	if resp.Outcome != domain.OutcomeDeclined || finisher.affirmed {
		t.Fatalf("outcome=%s affirmed=%v", resp.Outcome, finisher.affirmed)
	}

	// the session starts over with an empty form
	resp = turn(t, s, domain.TurnRequest{SessionID: id, Intent: "issue_offline"})
	if resp.RequestedField != domain.FieldInterruptions || len(resp.Slots) != 0 {
		t.Fatalf("requested=%s slots=%v", resp.RequestedField, resp.Slots)
	}
}

func TestAmbiguousAppVersionIsConfirmed(t *testing.T) {
	s := newTestService(&fakeFinisher{})
	id := s.StartSession()

	turn(t, s, domain.TurnRequest{SessionID: id, Intent: "issue_playback"})
	resp := turn(t, s, domain.TurnRequest{
		SessionID: id,
		Intent:    "inform",
		Entities: []domain.Entity{
			{Entity: "app_version", Value: "5.1"},
			{Entity: "app_version", Value: "5.2"},
		},
	})

	prompt := resp.Messages[len(resp.Messages)-1]
	if prompt.Key != "utter_ask_confirm_app_version" || len(prompt.Choices) != 2 {
		t.Fatalf("prompt=%+v", prompt)
	}
	if resp.RequestedField != domain.FieldAppVersion {
		t.Fatalf("requested=%s", resp.RequestedField)
	}
	if _, ok := resp.Slots[domain.FieldAppVersion]; ok {
		t.Fatalf("app_version must stay unset while unconfirmed")
	}

	resp = turn(t, s, domain.TurnRequest{SessionID: id, Payload: prompt.Choices[1].Payload})
	if resp.Slots[domain.FieldAppVersion] != "5.2" {
		t.Fatalf("slots=%v", resp.Slots)
	}
	if resp.RequestedField != domain.FieldProblem {
		t.Fatalf("requested=%s, want a_detailed_problem", resp.RequestedField)
	}
	if len(resp.Pending) != 0 {
		t.Fatalf("pending=%v", resp.Pending)
	}
}

func TestConfirmationsComeFirstInArrivalOrder(t *testing.T) {
	s := newTestService(&fakeFinisher{})
	id := s.StartSession()

	resp := turn(t, s, domain.TurnRequest{
		SessionID: id,
		Intent:    "issue_playback",
		Entities: []domain.Entity{
			{Entity: "os_name", Value: "ios"},
			{Entity: "os_name", Value: "android"},
			{Entity: "vendor", Value: "Sony"},
			{Entity: "vendor", Value: "LG"},
		},
	})
	if lastKey(resp) != "utter_ask_confirm_os_name" {
		t.Fatalf("prompt=%s, want os_name first", lastKey(resp))
	}
	if len(resp.Pending) != 1 || resp.Pending[0] != domain.FieldVendor {
		t.Fatalf("pending=%v", resp.Pending)
	}

	resp = turn(t, s, domain.TurnRequest{SessionID: id, Payload: slots.InformPayload(domain.FieldOSName, "ios")})
	if lastKey(resp) != "utter_ask_confirm_vendor" {
		t.Fatalf("prompt=%s, want vendor", lastKey(resp))
	}
}

func TestAnsweredQueuedFieldIsNotAskedAgain(t *testing.T) {
	s := newTestService(&fakeFinisher{})
	id := s.StartSession()

	resp := turn(t, s, domain.TurnRequest{
		SessionID: id,
		Intent:    "issue_playback",
		Entities: []domain.Entity{
			{Entity: "app_version", Value: "5.1"},
			{Entity: "app_version", Value: "5.2"},
			{Entity: "vendor", Value: "Sony"},
			{Entity: "vendor", Value: "LG"},
		},
	})
	if lastKey(resp) != "utter_ask_confirm_app_version" {
		t.Fatalf("prompt=%s, want app_version first", lastKey(resp))
	}

	// the user picks a version and names a single vendor in the same turn
	resp = turn(t, s, domain.TurnRequest{
		SessionID: id,
		Payload:   slots.InformPayload(domain.FieldAppVersion, "5.2"),
		Entities:  []domain.Entity{{Entity: "vendor", Value: "Samsung"}},
	})
	if resp.Slots[domain.FieldAppVersion] != "5.2" || resp.Slots[domain.FieldVendor] != "Samsung" {
		t.Fatalf("slots=%v", resp.Slots)
	}
	if len(resp.Pending) != 0 {
		t.Fatalf("pending=%v, want empty", resp.Pending)
	}
	if lastKey(resp) == "utter_ask_confirm_vendor" || resp.RequestedField == domain.FieldVendor {
		t.Fatalf("vendor asked again: key=%s requested=%s", lastKey(resp), resp.RequestedField)
	}

	resp = turn(t, s, domain.TurnRequest{SessionID: id, Text: "Bild friert ein"})
	if resp.Slots[domain.FieldVendor] != "Samsung" {
		t.Fatalf("vendor lost on the following turn: %v", resp.Slots)
	}
}

func TestDeniedModelIsAskedAgain(t *testing.T) {
	s := newTestService(&fakeFinisher{})
	id := s.StartSession()
	low := 0.4

	resp := turn(t, s, domain.TurnRequest{
		SessionID: id,
		Intent:    "issue_playback",
		Entities:  []domain.Entity{{Entity: "model_name", Value: "Pixel 4", Confidence: &low}},
	})
	if lastKey(resp) != "utter_ask_confirm_model_name" {
		t.Fatalf("prompt=%s", lastKey(resp))
	}
	if resp.Messages[len(resp.Messages)-1].Text != "Meinst du das Gerät Pixel 4?" {
		t.Fatalf("text=%q", resp.Messages[len(resp.Messages)-1].Text)
	}

	resp = turn(t, s, domain.TurnRequest{SessionID: id, Payload: "/deny"})
	if _, ok := resp.Slots[domain.FieldModel]; ok {
		t.Fatalf("model_name should be unset after deny")
	}
	if resp.RequestedField != domain.FieldProblem {
		t.Fatalf("requested=%s", resp.RequestedField)
	}
}

func TestExplainAndHelp(t *testing.T) {
	s := newTestService(&fakeFinisher{})
	id := s.StartSession()

	turn(t, s, domain.TurnRequest{SessionID: id, Intent: "issue_playback", Entities: []domain.Entity{
		{Entity: "a_detailed_problem", Value: "Bild bleibt schwarz"},
		{Entity: "c_steps_to_reproduce", Value: "App starten"},
		{Entity: "model_name", Value: "Bravia"},
		{Entity: "platform", Value: "TV"},
		{Entity: "vendor", Value: "Sony"},
		{Entity: "os_name", Value: "android"},
		{Entity: "os_version", Value: "11"},
	}})

	resp := turn(t, s, domain.TurnRequest{SessionID: id, Intent: "explain"})
	if resp.Messages[0].Key != "utter_explain_app_version" {
		t.Fatalf("messages=%+v", resp.Messages)
	}
	if resp.RequestedField != domain.FieldAppVersion {
		t.Fatalf("requested=%s", resp.RequestedField)
	}

	resp = turn(t, s, domain.TurnRequest{SessionID: id, Intent: "help", Text: "wo finde ich das"})
	if resp.Messages[0].Key != "utter_help_app_version" {
		t.Fatalf("messages=%+v", resp.Messages)
	}
	if _, ok := resp.Slots[domain.FieldAppVersion]; ok {
		t.Fatalf("help text must not fill the slot")
	}
}

func TestExplainWithoutText(t *testing.T) {
	s := newTestService(&fakeFinisher{})
	id := s.StartSession()

	turn(t, s, domain.TurnRequest{SessionID: id, Intent: "issue_offline"})
	resp := turn(t, s, domain.TurnRequest{SessionID: id, Intent: "explain"})
	if resp.Messages[0].Key != "utter_can_not_explain" {
		t.Fatalf("messages=%+v", resp.Messages)
	}
}

func TestRejectionMessageIsShown(t *testing.T) {
	s := newTestService(&fakeFinisher{})
	id := s.StartSession()

	resp := turn(t, s, domain.TurnRequest{SessionID: id, Intent: "issue_playback", Entities: []domain.Entity{
		{Entity: "model_name", Value: "Phone"},
	}})
	if resp.Messages[0].Key != "utter_model_too_generic" {
		t.Fatalf("messages=%+v", resp.Messages)
	}
}

func TestHandleTurnErrors(t *testing.T) {
	s := newTestService(&fakeFinisher{})

	_, err := s.HandleTurn(context.Background(), domain.TurnRequest{SessionID: "nope", Intent: "inform"})
	if !errors.Is(err, session.ErrNotFound) {
		t.Fatalf("err=%v, want ErrNotFound", err)
	}

	id := s.StartSession()
	_, err = s.HandleTurn(context.Background(), domain.TurnRequest{SessionID: id, Payload: `/inform{"model_name":`})
	if !errors.Is(err, ErrInvalidTurn) {
		t.Fatalf("err=%v, want ErrInvalidTurn", err)
	}

	if err := s.EndSession(id); err != nil {
		t.Fatalf("EndSession: %v", err)
	}
	if err := s.EndSession(id); !errors.Is(err, session.ErrNotFound) {
		t.Fatalf("second EndSession err=%v", err)
	}
}
