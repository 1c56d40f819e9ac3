package fraud

import "encoding/json"

// Status is the four-way reading of a Verdict.
type Status string

const (
	// StatusInvalid means the identifier failed structural validation.
	StatusInvalid Status = "invalid"
	// StatusSuspicious means at least one fraud signal fired.
	StatusSuspicious Status = "suspicious"
	// StatusUnverified means nothing fired but the issuer is not recognised.
	StatusUnverified Status = "unverified"
	// StatusSafe means a recognised issuer with no signals.
	StatusSafe Status = "safe"
)

// Reason strings appended by the classifier.
const (
	ReasonPatternFormat = `Contains suspicious pattern: "%s"`
	ReasonSeparators    = "Domain contains suspicious special characters (hyphens or underscores)"
	ReasonKeywordFormat = `Domain contains suspicious keyword: "%s"`
	ReasonUnverified    = "Domain is not in our verified legitimate domains list"
)

// Verdict is the outcome of classifying one identifier.
//
// When ValidationError is set the identifier did not parse: IsSuspicious is
// false, Reasons is empty and Domain is empty. Otherwise Domain holds the
// domain segment in its original case and Reasons lists every signal in
// evaluation order.
type Verdict struct {
	IsSuspicious    bool
	Reasons         []string
	Domain          string
	ValidationError string
}

// Valid reports whether the identifier parsed.
func (v Verdict) Valid() bool {
	return v.ValidationError == ""
}

// Status derives the four-way status. A non-suspicious verdict only ever
// carries the unverified reason, so any reason at all means unverified.
func (v Verdict) Status() Status {
	switch {
	case !v.Valid():
		return StatusInvalid
	case v.IsSuspicious:
		return StatusSuspicious
	case len(v.Reasons) > 0:
		return StatusUnverified
	default:
		return StatusSafe
	}
}

type verdictJSON struct {
	IsSuspicious    bool     `json:"is_suspicious"`
	Status          Status   `json:"status"`
	Reasons         []string `json:"reasons"`
	Domain          *string  `json:"domain"`
	ValidationError *string  `json:"validation_error"`
}

// MarshalJSON renders absent domain and validation error as null.
func (v Verdict) MarshalJSON() ([]byte, error) {
	out := verdictJSON{
		IsSuspicious: v.IsSuspicious,
		Status:       v.Status(),
		Reasons:      v.Reasons,
	}
	if out.Reasons == nil {
		out.Reasons = []string{}
	}
	if v.Domain != "" {
		d := v.Domain
		out.Domain = &d
	}
	if v.ValidationError != "" {
		e := v.ValidationError
		out.ValidationError = &e
	}
	return json.Marshal(out)
}

// UnmarshalJSON accepts the MarshalJSON form; status is derived, not read.
func (v *Verdict) UnmarshalJSON(data []byte) error {
	var in verdictJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	*v = Verdict{IsSuspicious: in.IsSuspicious, Reasons: in.Reasons}
	if v.Reasons == nil {
		v.Reasons = []string{}
	}
	if in.Domain != nil {
		v.Domain = *in.Domain
	}
	if in.ValidationError != nil {
		v.ValidationError = *in.ValidationError
	}
	return nil
}
