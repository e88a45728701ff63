package domain

// Field names one slot of the incident form. The set is closed: every Field
// value used by the engine is declared below.
type Field string

const (
	FieldProblem       Field = "a_detailed_problem"
	FieldExpected      Field = "b_expected_behavior"
	FieldSteps         Field = "c_steps_to_reproduce"
	FieldPlatform      Field = "platform"
	FieldModel         Field = "model_name"
	FieldVendor        Field = "vendor"
	FieldOSName        Field = "os_name"
	FieldOSVersion     Field = "os_version"
	FieldContentType   Field = "video_content_type"
	FieldContentID     Field = "video_content_id"
	FieldInterruptions Field = "video_interruptions"
	FieldAppVersion    Field = "app_version"
	FieldConnectivity  Field = "connectivity"
	FieldErrorMessage  Field = "error_message"
	FieldEmail         Field = "email_contact"
	FieldBrowser       Field = "browser_name"
	FieldConfirm       Field = "confirm_slot"
	FieldIssueType     Field = "issue_type"
)

// RecordFields lists the fields that end up in an IncidentRecord, in column order.
var RecordFields = []Field{
	FieldProblem,
	FieldExpected,
	FieldSteps,
	FieldPlatform,
	FieldModel,
	FieldVendor,
	FieldOSName,
	FieldOSVersion,
	FieldContentType,
	FieldContentID,
	FieldInterruptions,
	FieldAppVersion,
	FieldConnectivity,
	FieldErrorMessage,
	FieldEmail,
}

var allFields = append(append([]Field{}, RecordFields...), FieldBrowser, FieldConfirm, FieldIssueType)

// Valid reports whether f belongs to the field catalog.
func (f Field) Valid() bool {
	for _, known := range allFields {
		if f == known {
			return true
		}
	}
	return false
}

// ParseField maps a wire name to a catalog field.
func ParseField(name string) (Field, bool) {
	f := Field(name)
	return f, f.Valid()
}

// FreeText reports whether the field is filled verbatim from the user's text
// when it is the requested field.
func (f Field) FreeText() bool {
	switch f {
	case FieldProblem, FieldExpected, FieldSteps, FieldContentType, FieldContentID,
		FieldInterruptions, FieldConnectivity, FieldErrorMessage, FieldEmail, FieldBrowser:
		return true
	case FieldPlatform, FieldModel, FieldVendor, FieldOSName, FieldOSVersion, FieldAppVersion,
		FieldConfirm, FieldIssueType:
		return false
	}
	return false
}

func (f Field) String() string {
	return string(f)
}

// IssueType selects the form a conversation fills.
type IssueType string

const (
	IssuePlayback        IssueType = "playback"
	IssueStreamInterrupt IssueType = "stream_interrupt"
	IssueSynchronisation IssueType = "synchronisation"
	IssueOffline         IssueType = "offline"
	IssueUndefined       IssueType = "undefined"
)

// IssueTypeFromIntent maps the NLU intent that opened the conversation to an issue type.
func IssueTypeFromIntent(intent string) IssueType {
	switch intent {
	case "issue_playback":
		return IssuePlayback
	case "issue_stream_interruptions":
		return IssueStreamInterrupt
	case "issue_synchronization":
		return IssueSynchronisation
	case "issue_offline":
		return IssueOffline
	default:
		return IssueUndefined
	}
}

// IsIssueIntent reports whether intent opens a new incident form.
func IsIssueIntent(intent string) bool {
	switch intent {
	case "issue_playback", "issue_stream_interruptions", "issue_synchronization", "issue_offline", "issue_other":
		return true
	}
	return false
}

const (
	PlatformWeb = "web"

	VendorApple = "Apple"

	OSAndroid = "android"
	OSIOS     = "ios"
)
