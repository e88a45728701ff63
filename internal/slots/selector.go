package slots

import "incidentdesk/internal/domain"

var baseForm = []domain.Field{
	domain.FieldProblem,
	domain.FieldSteps,
	domain.FieldModel,
	domain.FieldPlatform,
	domain.FieldVendor,
	domain.FieldOSName,
	domain.FieldOSVersion,
	domain.FieldAppVersion,
}

// FormFields returns the ordered fields an issue type asks for, before any
// platform or confirmation adjustments. Unknown issue types get the full form.
func FormFields(issue domain.IssueType) []domain.Field {
	fields := append([]domain.Field{}, baseForm...)
	switch issue {
	case domain.IssueStreamInterrupt:
		fields = append(fields, domain.FieldContentType, domain.FieldContentID, domain.FieldConnectivity)
	case domain.IssueSynchronisation:
		fields = append(fields, domain.FieldContentType, domain.FieldContentID, domain.FieldInterruptions, domain.FieldConnectivity)
	case domain.IssuePlayback:
		fields = append(fields, domain.FieldContentType, domain.FieldContentID, domain.FieldInterruptions, domain.FieldConnectivity, domain.FieldErrorMessage)
	case domain.IssueOffline:
		fields = []domain.Field{domain.FieldInterruptions, domain.FieldContentID}
	case domain.IssueUndefined:
	}
	return append(fields, domain.FieldEmail)
}

// webExcluded are the fields that only make sense for native apps.
func webExcluded(f domain.Field) bool {
	switch f {
	case domain.FieldAppVersion, domain.FieldOSName, domain.FieldOSVersion, domain.FieldVendor:
		return true
	}
	return false
}

// RequiredFields computes the ordered, duplicate-free list of fields the
// conversation still has to collect. Web reports drop the native-app fields
// and ask for the browser right after the device model. While confirmations
// are pending, the synthetic confirmation field comes first.
func RequiredFields(issue domain.IssueType, platform string, queue *Queue) []domain.Field {
	form := FormFields(issue)
	fields := make([]domain.Field, 0, len(form)+2)
	if queue != nil && queue.HasPending() {
		fields = append(fields, domain.FieldConfirm)
	}
	for _, f := range form {
		if platform != domain.PlatformWeb {
			fields = append(fields, f)
			continue
		}
		if webExcluded(f) {
			continue
		}
		fields = append(fields, f)
		if f == domain.FieldModel {
			fields = append(fields, domain.FieldBrowser)
		}
	}
	return unique(fields)
}

// NextField returns the first required field without a value. The
// confirmation field never holds a value, so it is always next when present.
func NextField(required []domain.Field, values map[domain.Field]string) (domain.Field, bool) {
	for _, f := range required {
		if f == domain.FieldConfirm {
			return f, true
		}
		if v, ok := values[f]; !ok || v == "" {
			return f, true
		}
	}
	return "", false
}

func unique(fields []domain.Field) []domain.Field {
	seen := make(map[domain.Field]struct{}, len(fields))
	out := fields[:0]
	for _, f := range fields {
		if _, ok := seen[f]; ok {
			continue
		}
		seen[f] = struct{}{}
		out = append(out, f)
	}
	return out
}
