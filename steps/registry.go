// ABOUTME: Per-step schema validation dispatched by step tag
// ABOUTME: Also validates the untagged email-capture and consent payloads
package steps

import (
	"fmt"
	"strings"

	"github.com/harperreed/intake/formdata"
)

const maxNotesLength = 2000

// Validate checks a tagged step payload's data against the schema for its
// tag and returns the validated, normalized fields to merge into the
// session. prior is the session's accumulated form data, used where a step's
// shape branches on an earlier answer (PROFILE_DETAILS).
//
// Every violated constraint is collected; the returned error is a
// *ValidationError when any field fails. Unknown tags are a validation
// failure on the step field itself.
func Validate(tag string, data formdata.Tree, prior formdata.Tree) (formdata.Tree, error) {
	switch tag {
	case StepProfileType:
		return validateProfileType(data)
	case StepProfileDetails:
		return validateProfileDetails(data, prior)
	case StepServiceCategory:
		return validateServiceCategory(data)
	case StepServiceDetails:
		return validateServiceDetails(data)
	case StepAdditionalInfo:
		return validateAdditionalInfo(data)
	case StepReview:
		return validateReview(data)
	default:
		return nil, &ValidationError{Fields: []FieldError{
			{Field: "step", Code: CodeInvalid, Message: fmt.Sprintf("unknown step %q", tag)},
		}}
	}
}

// ValidateEmailCapture checks the untagged initial payload. Honeypot and
// timestamp are the caller's concern (the guard); this validates the email
// only.
func ValidateEmailCapture(payload EmailCapture) (formdata.Tree, error) {
	var v violations
	email := strings.TrimSpace(payload.Email)
	checkEmail(&v, "email", email)
	if err := v.err(); err != nil {
		return nil, err
	}
	return formdata.Tree{"email": email}, nil
}

// ValidateSubmission checks the final consent payload. Both consents must be
// explicitly true.
func ValidateSubmission(payload Submission) (formdata.Tree, error) {
	var v violations
	if !payload.PrivacyPolicyAccepted {
		v.add("privacyPolicyAccepted", CodeRequired, "privacy policy must be accepted")
	}
	if !payload.TermsAccepted {
		v.add("termsAccepted", CodeRequired, "terms must be accepted")
	}
	if err := v.err(); err != nil {
		return nil, err
	}

	out := formdata.Tree{
		"privacyPolicyAccepted": true,
		"termsAccepted":         true,
	}
	if payload.MarketingConsent != nil {
		out["marketingConsent"] = *payload.MarketingConsent
	}
	return out, nil
}

func validateProfileType(data formdata.Tree) (formdata.Tree, error) {
	var v violations
	profileType, _ := formdata.GetString(data, "profileType")
	switch profileType {
	case "RESIDENTIAL", "COMMERCIAL":
	case "":
		v.add("profileType", CodeRequired, "profileType is required")
	default:
		v.add("profileType", CodeInvalid, "profileType must be RESIDENTIAL or COMMERCIAL")
	}
	if err := v.err(); err != nil {
		return nil, err
	}
	return formdata.Tree{"profileType": profileType}, nil
}

func validateProfileDetails(data formdata.Tree, prior formdata.Tree) (formdata.Tree, error) {
	profileType, _ := formdata.GetString(prior, "profileType")
	if profileType == "COMMERCIAL" {
		return validateCommercialDetails(data)
	}
	return validateResidentialDetails(data)
}

func validateResidentialDetails(data formdata.Tree) (formdata.Tree, error) {
	var v violations
	out := formdata.Tree{}

	for _, field := range []string{"firstName", "lastName"} {
		value, ok := formdata.GetString(data, field)
		if !ok {
			v.add(field, CodeRequired, field+" is required")
			continue
		}
		out[field] = strings.TrimSpace(value)
	}

	checkPhoneField(&v, out, data, "phone")
	checkPostalCodeField(&v, out, data, "postalCode")

	if err := v.err(); err != nil {
		return nil, err
	}
	return out, nil
}

func validateCommercialDetails(data formdata.Tree) (formdata.Tree, error) {
	var v violations
	out := formdata.Tree{}

	for _, field := range []string{"businessName", "contactName"} {
		value, ok := formdata.GetString(data, field)
		if !ok {
			v.add(field, CodeRequired, field+" is required")
			continue
		}
		out[field] = strings.TrimSpace(value)
	}

	checkPhoneField(&v, out, data, "phone")
	checkPostalCodeField(&v, out, data, "postalCode")

	if err := v.err(); err != nil {
		return nil, err
	}
	return out, nil
}

func checkPhoneField(v *violations, out, data formdata.Tree, field string) {
	phone, ok := formdata.GetString(data, field)
	if !ok {
		v.add(field, CodeRequired, field+" is required")
		return
	}
	if !validPhone(phone) {
		v.add(field, CodeInvalid, "phone must be a North American number")
		return
	}
	out[field] = phone
}

func checkPostalCodeField(v *violations, out, data formdata.Tree, field string) {
	code, ok := formdata.GetString(data, field)
	if !ok {
		v.add(field, CodeRequired, field+" is required")
		return
	}
	if !validPostalCode(code) {
		v.add(field, CodeInvalid, "postal code must be a Canadian postal code")
		return
	}
	out[field] = normalizePostalCode(code)
}

func validateServiceCategory(data formdata.Tree) (formdata.Tree, error) {
	var v violations
	serviceType, ok := formdata.GetString(data, "serviceType")
	if !ok {
		v.add("serviceType", CodeRequired, "serviceType is required")
	}
	if err := v.err(); err != nil {
		return nil, err
	}
	return formdata.Tree{"serviceType": strings.TrimSpace(serviceType)}, nil
}

func validateServiceDetails(data formdata.Tree) (formdata.Tree, error) {
	var v violations
	out := formdata.Tree{}

	description, ok := formdata.GetString(data, "description")
	if !ok {
		v.add("description", CodeRequired, "description is required")
	} else {
		out["description"] = strings.TrimSpace(description)
	}

	urgency, ok := formdata.GetString(data, "urgency")
	if !ok {
		v.add("urgency", CodeRequired, "urgency is required")
	} else {
		switch urgency {
		case "LOW", "MEDIUM", "HIGH", "EMERGENCY":
			out["urgency"] = urgency
		default:
			v.add("urgency", CodeInvalid, "urgency must be LOW, MEDIUM, HIGH, or EMERGENCY")
		}
	}

	if budget, present := formdata.Get(data, "estimatedBudget"); present {
		amount, isNumber := budget.(float64)
		if !isNumber || amount < 0 {
			v.add("estimatedBudget", CodeInvalid, "estimatedBudget must be a non-negative number")
		} else {
			out["estimatedBudget"] = amount
		}
	}

	if err := v.err(); err != nil {
		return nil, err
	}
	return out, nil
}

func validateAdditionalInfo(data formdata.Tree) (formdata.Tree, error) {
	var v violations
	out := formdata.Tree{}

	if notes, ok := formdata.GetString(data, "notes"); ok {
		if len(notes) > maxNotesLength {
			v.add("notes", CodeTooLong, "notes are too long")
		} else {
			out["notes"] = notes
		}
	}

	if method, ok := formdata.GetString(data, "preferredContactMethod"); ok {
		switch method {
		case "EMAIL", "PHONE":
			out["preferredContactMethod"] = method
		default:
			v.add("preferredContactMethod", CodeInvalid, "preferredContactMethod must be EMAIL or PHONE")
		}
	}

	if err := v.err(); err != nil {
		return nil, err
	}
	return out, nil
}

func validateReview(data formdata.Tree) (formdata.Tree, error) {
	confirmed, _ := formdata.Get(data, "confirmed")
	if confirmed != true {
		return nil, &ValidationError{Fields: []FieldError{
			{Field: "confirmed", Code: CodeRequired, Message: "review must be confirmed"},
		}}
	}
	return formdata.Tree{"confirmed": true}, nil
}
