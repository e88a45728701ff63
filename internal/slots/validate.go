package slots

import (
	"context"
	"log/slog"
	"strings"

	"incidentdesk/internal/catalog"
	"incidentdesk/internal/domain"
	"incidentdesk/internal/fuzzy"
	"incidentdesk/internal/version"
)

// MinConfidence is the extraction confidence below which a model name picked
// up in passing is confirmed with the user before it is used.
const MinConfidence = 0.9

var genericModelTerms = map[string]struct{}{
	"phone":  {},
	"tablet": {},
	"tv":     {},
}

// Context is what a validator may read about the conversation.
type Context struct {
	// Requested is the field the last prompt asked for.
	Requested domain.Field
	// Confidence of the extraction being validated.
	Confidence float64
	// Values are the currently resolved slots. Validators must not modify them.
	Values map[domain.Field]string
}

// Outcome is a validator's verdict. Clear is applied before Set. A non-nil
// Candidates slice means the field is ambiguous and must be confirmed.
type Outcome struct {
	Field       domain.Field
	Set         map[domain.Field]string
	Clear       []domain.Field
	Candidates  []string
	Message     string
	MessageArgs map[string]string
}

func (o Outcome) Ambiguous() bool {
	return o.Candidates != nil
}

// Rejected reports whether the validated field was turned down. An outcome
// that clears the field but sets others, like a desktop model switching the
// report to web, is not a rejection.
func (o Outcome) Rejected() bool {
	if o.Ambiguous() || len(o.Set) > 0 {
		return false
	}
	for _, f := range o.Clear {
		if f == o.Field {
			return true
		}
	}
	return false
}

func resolved(field domain.Field, value string) Outcome {
	return Outcome{Field: field, Set: map[domain.Field]string{field: value}}
}

func rejected(field domain.Field) Outcome {
	return Outcome{Field: field, Clear: []domain.Field{field}}
}

func ambiguous(field domain.Field, candidates []string) Outcome {
	return Outcome{Field: field, Candidates: append([]string{}, candidates...)}
}

type Validator struct {
	catalog catalog.Looker
	logger  *slog.Logger
}

func NewValidator(looker catalog.Looker, logger *slog.Logger) *Validator {
	return &Validator{catalog: looker, logger: logger}
}

// Validate checks the raw values extracted for field in this turn.
func (v *Validator) Validate(ctx context.Context, field domain.Field, values []string, vc Context) Outcome {
	switch field {
	case domain.FieldModel:
		return v.validateModel(ctx, values, vc)
	case domain.FieldVendor:
		return v.validateVendor(ctx, values)
	case domain.FieldOSName:
		return validateOSName(values)
	case domain.FieldOSVersion:
		return validateOSVersion(values, vc)
	case domain.FieldAppVersion:
		return validateAppVersion(values)
	case domain.FieldProblem, domain.FieldExpected, domain.FieldSteps, domain.FieldPlatform,
		domain.FieldContentType, domain.FieldContentID, domain.FieldInterruptions,
		domain.FieldConnectivity, domain.FieldErrorMessage, domain.FieldEmail, domain.FieldBrowser:
		return acceptFirst(field, values)
	case domain.FieldConfirm, domain.FieldIssueType:
		return Outcome{Field: field}
	}
	return Outcome{Field: field}
}

func acceptFirst(field domain.Field, values []string) Outcome {
	for _, val := range values {
		if s := strings.TrimSpace(val); s != "" {
			return resolved(field, s)
		}
	}
	return rejected(field)
}

func (v *Validator) validateModel(ctx context.Context, values []string, vc Context) Outcome {
	values = uniqueNonEmpty(values)
	switch {
	case len(values) == 0:
		return rejected(domain.FieldModel)
	case len(values) > 1:
		return ambiguous(domain.FieldModel, values)
	}

	model := values[0]
	if _, generic := genericModelTerms[strings.ToLower(model)]; generic {
		out := rejected(domain.FieldModel)
		out.Message = "utter_model_too_generic"
		out.MessageArgs = map[string]string{"value": model}
		return out
	}

	// Only values picked up in passing need confidence; an answer to a direct
	// question is taken as given.
	if vc.Requested != domain.FieldModel && vc.Confidence < MinConfidence {
		v.logger.Info("model name needs confirmation", "value", model, "confidence", vc.Confidence)
		return ambiguous(domain.FieldModel, []string{model})
	}

	out := resolved(domain.FieldModel, model)
	res := v.lookup(ctx, model, catalog.TargetModel)
	platform := vc.Values[domain.FieldPlatform]

	// The catalog holds no browsers; a device named like one must not
	// overwrite what we already know about a web report.
	if res.Hit != nil && strings.EqualFold(res.Hit.ModelName, model) && platform != domain.PlatformWeb {
		hit := res.Hit
		if hit.FormFactor != "" {
			platform = hit.FormFactor
		}
		if platform == "Desktop" {
			// there is no desktop app, only the web player
			out.Set[domain.FieldPlatform] = domain.PlatformWeb
			delete(out.Set, domain.FieldModel)
			out.Clear = append(out.Clear, domain.FieldModel)
		} else if platform != "" {
			out.Set[domain.FieldPlatform] = platform
		}
		if hit.AndroidSDK {
			out.Set[domain.FieldOSName] = domain.OSAndroid
		}
		vendor := hit.Manufacturer
		if vendor == "" {
			vendor = vc.Values[domain.FieldVendor]
		}
		if vendor != "" {
			out.Set[domain.FieldVendor] = vendor
			if strings.EqualFold(vendor, domain.VendorApple) {
				out.Set[domain.FieldOSName] = domain.OSIOS
			}
		}
		return out
	}

	v.logger.Info("not prefilling from model name", "value", model, "hit", res.Hit != nil, "suggestion", res.Suggestion)
	if _, ok := fuzzy.MatchAnyToken(model, fuzzy.AppleVocabulary); ok {
		out.Set[domain.FieldVendor] = domain.VendorApple
		out.Set[domain.FieldOSName] = domain.OSIOS
	} else if _, ok := fuzzy.MatchAnyToken(model, fuzzy.AndroidVocabulary); ok && vc.Values[domain.FieldOSName] == "" {
		out.Set[domain.FieldOSName] = domain.OSAndroid
	}
	return out
}

func (v *Validator) validateVendor(ctx context.Context, values []string) Outcome {
	values = uniqueNonEmpty(values)
	switch {
	case len(values) == 0:
		return rejected(domain.FieldVendor)
	case len(values) > 1:
		return ambiguous(domain.FieldVendor, values)
	}

	vendor := values[0]
	out := resolved(domain.FieldVendor, vendor)
	res := v.lookup(ctx, vendor, catalog.TargetManufacturer)
	if res.Hit != nil && strings.EqualFold(res.Hit.Manufacturer, vendor) {
		if res.Hit.AndroidSDK {
			out.Set[domain.FieldOSName] = domain.OSAndroid
		} else if strings.EqualFold(res.Hit.Manufacturer, domain.VendorApple) {
			out.Set[domain.FieldOSName] = domain.OSIOS
		}
		out.Set[domain.FieldVendor] = res.Hit.Manufacturer
		return out
	}

	if _, ok := fuzzy.FindMatch(vendor, fuzzy.AppleVocabulary); ok {
		out.Set[domain.FieldOSName] = domain.OSIOS
	}
	return out
}

func (v *Validator) lookup(ctx context.Context, query string, target catalog.Target) catalog.Result {
	if v.catalog == nil {
		return catalog.Result{}
	}
	res, err := v.catalog.Lookup(ctx, query, target)
	if err != nil {
		v.logger.Warn("catalog lookup failed, continuing without enrichment", "target", target, "query", query, "error", err)
		return catalog.Result{}
	}
	return res
}

func validateOSName(values []string) Outcome {
	var valid []string
	for _, val := range values {
		// lower-cased so downstream comparisons stay case-insensitive
		name := strings.ToLower(strings.TrimSpace(val))
		if name == "" || !version.IsValidOSName(name) || contains(valid, name) {
			continue
		}
		valid = append(valid, name)
	}

	switch len(valid) {
	case 0:
		return rejected(domain.FieldOSName)
	case 1:
		out := resolved(domain.FieldOSName, valid[0])
		if vers := version.MatchOSVersion(valid[0]); len(vers) > 0 {
			out.Set[domain.FieldOSVersion] = vers[0]
		}
		return out
	default:
		return ambiguous(domain.FieldOSName, valid)
	}
}

func validateOSVersion(values []string, vc Context) Outcome {
	vers := version.MatchOSVersion(values...)
	if len(vers) > 0 {
		return resolved(domain.FieldOSVersion, vers[0])
	}
	if vc.Requested == domain.FieldOSVersion {
		out := rejected(domain.FieldOSVersion)
		out.Message = "utter_validate_os_version"
		return out
	}
	// incidental mentions without a usable version leave the slot alone
	if prev := vc.Values[domain.FieldOSVersion]; prev != "" {
		return resolved(domain.FieldOSVersion, prev)
	}
	return Outcome{Field: domain.FieldOSVersion}
}

func validateAppVersion(values []string) Outcome {
	vers := version.MatchAppVersion(values...)
	switch len(vers) {
	case 0:
		out := rejected(domain.FieldAppVersion)
		out.Message = "utter_validate_app_version"
		return out
	case 1:
		return resolved(domain.FieldAppVersion, vers[0])
	default:
		return ambiguous(domain.FieldAppVersion, vers)
	}
}

func uniqueNonEmpty(values []string) []string {
	out := make([]string, 0, len(values))
	for _, val := range values {
		s := strings.TrimSpace(val)
		if s == "" || contains(out, s) {
			continue
		}
		out = append(out, s)
	}
	return out
}

func contains(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}
