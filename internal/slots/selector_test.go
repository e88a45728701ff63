package slots

import (
	"reflect"
	"testing"

	"incidentdesk/internal/domain"
)

var issueTypes = []domain.IssueType{
	domain.IssuePlayback,
	domain.IssueStreamInterrupt,
	domain.IssueSynchronisation,
	domain.IssueOffline,
	domain.IssueUndefined,
	domain.IssueType("something-new"),
}

func TestRequiredFieldsStayInCatalogAndUnique(t *testing.T) {
	queued := NewQueue()
	queued.Enqueue(domain.FieldAppVersion, []string{"5.1", "5.2"})

	for _, issue := range issueTypes {
		for _, platform := range []string{"", domain.PlatformWeb, "Phone", "TV"} {
			for _, q := range []*Queue{nil, NewQueue(), queued} {
				fields := RequiredFields(issue, platform, q)
				seen := map[domain.Field]bool{}
				for _, f := range fields {
					if !f.Valid() {
						t.Fatalf("issue=%s platform=%q: field %q outside catalog", issue, platform, f)
					}
					if seen[f] {
						t.Fatalf("issue=%s platform=%q: duplicate field %q in %v", issue, platform, f, fields)
					}
					seen[f] = true
				}
			}
		}
	}
}

func TestRequiredFieldsPlayback(t *testing.T) {
	got := RequiredFields(domain.IssuePlayback, "", NewQueue())
	want := []domain.Field{
		domain.FieldProblem, domain.FieldSteps, domain.FieldModel, domain.FieldPlatform,
		domain.FieldVendor, domain.FieldOSName, domain.FieldOSVersion, domain.FieldAppVersion,
		domain.FieldContentType, domain.FieldContentID, domain.FieldInterruptions,
		domain.FieldConnectivity, domain.FieldErrorMessage, domain.FieldEmail,
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("RequiredFields(playback) =\n%v\nwant\n%v", got, want)
	}
}

func TestRequiredFieldsWebDropsNativeFields(t *testing.T) {
	got := RequiredFields(domain.IssueUndefined, domain.PlatformWeb, nil)
	want := []domain.Field{
		domain.FieldProblem, domain.FieldSteps, domain.FieldModel, domain.FieldBrowser,
		domain.FieldPlatform, domain.FieldEmail,
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("RequiredFields(web) = %v, want %v", got, want)
	}
}

func TestRequiredFieldsOfflineOnWeb(t *testing.T) {
	got := RequiredFields(domain.IssueOffline, domain.PlatformWeb, nil)
	want := []domain.Field{domain.FieldInterruptions, domain.FieldContentID, domain.FieldEmail}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("RequiredFields(offline, web) = %v, want %v", got, want)
	}
}

func TestRequiredFieldsConfirmFirst(t *testing.T) {
	q := NewQueue()
	q.Enqueue(domain.FieldOSName, []string{"ios", "android"})
	got := RequiredFields(domain.IssueOffline, "", q)
	if len(got) == 0 || got[0] != domain.FieldConfirm {
		t.Fatalf("first field = %v, want confirm_slot", got)
	}
}

func TestNextField(t *testing.T) {
	required := []domain.Field{domain.FieldProblem, domain.FieldModel, domain.FieldEmail}
	values := map[domain.Field]string{domain.FieldProblem: "ruckelt"}
	got, ok := NextField(required, values)
	if !ok || got != domain.FieldModel {
		t.Fatalf("NextField = (%s,%v), want (model_name,true)", got, ok)
	}

	values[domain.FieldModel] = "iPad"
	values[domain.FieldEmail] = "a@b.de"
	if got, ok := NextField(required, values); ok {
		t.Fatalf("NextField = %s, want none", got)
	}

	withConfirm := append([]domain.Field{domain.FieldConfirm}, required...)
	if got, _ := NextField(withConfirm, values); got != domain.FieldConfirm {
		t.Fatalf("NextField = %s, want confirm_slot", got)
	}
}
