// ABOUTME: Step tags and the fixed intake step order
// ABOUTME: Defines the payload envelope shared by every tagged step
package steps

import "github.com/harperreed/intake/formdata"

// Step tags, in submission order. A session's current step is always one of
// these or StepSubmission once REVIEW has been accepted.
const (
	StepProfileType     = "PROFILE_TYPE"
	StepProfileDetails  = "PROFILE_DETAILS"
	StepServiceCategory = "SERVICE_CATEGORY"
	StepServiceDetails  = "SERVICE_DETAILS"
	StepAdditionalInfo  = "ADDITIONAL_INFO"
	StepReview          = "REVIEW"

	// StepSubmission is the pseudo-step after REVIEW; it is completed by the
	// consent payload, not a tagged envelope.
	StepSubmission = "SUBMISSION"
)

// Order is the fixed sequence of tagged steps.
var Order = []string{
	StepProfileType,
	StepProfileDetails,
	StepServiceCategory,
	StepServiceDetails,
	StepAdditionalInfo,
	StepReview,
}

// Next returns the step following tag, or StepSubmission after the last
// tagged step. Unknown tags return "".
func Next(tag string) string {
	for i, step := range Order {
		if step != tag {
			continue
		}
		if i == len(Order)-1 {
			return StepSubmission
		}
		return Order[i+1]
	}
	return ""
}

// Envelope is the common shape of every tagged step payload. Website is the
// honeypot field and must be empty; ClientTimestamp is epoch milliseconds.
type Envelope struct {
	Step            string        `json:"step"`
	Data            formdata.Tree `json:"data"`
	Website         string        `json:"website"`
	ClientTimestamp int64         `json:"clientTimestamp"`
}

// EmailCapture is the initial, untagged payload that creates a session.
type EmailCapture struct {
	Email     string `json:"email"`
	Website   string `json:"website"`
	Timestamp int64  `json:"timestamp"`
}

// Submission is the final, untagged consent payload.
type Submission struct {
	PrivacyPolicyAccepted bool  `json:"privacyPolicyAccepted"`
	TermsAccepted         bool  `json:"termsAccepted"`
	MarketingConsent      *bool `json:"marketingConsent,omitempty"`
}
