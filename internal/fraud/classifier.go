// Package fraud classifies virtual payment addresses as suspicious,
// unverified or safe by inspecting their issuer domain.
package fraud

import (
	"errors"
	"fmt"
	"strings"

	"github.com/richxcame/upi-guard/internal/upi"
)

// Classifier applies the domain heuristics against one Registry.
// It holds no mutable state and is safe for concurrent use.
type Classifier struct {
	registry *Registry
}

// NewClassifier returns a classifier backed by reg, or by the built-in
// registry when reg is nil.
func NewClassifier(reg *Registry) *Classifier {
	if reg == nil {
		reg = DefaultRegistry()
	}
	return &Classifier{registry: reg}
}

// Registry returns the registry the classifier evaluates against.
func (c *Classifier) Registry() *Registry {
	return c.registry
}

// Classify parses raw and evaluates its domain. It never fails: malformed
// input comes back as a Verdict with ValidationError set.
func (c *Classifier) Classify(raw string) Verdict {
	addr, err := upi.Parse(raw)
	if err != nil {
		return invalidVerdict(err)
	}
	return c.ClassifyAddress(addr)
}

// ClassifyAddress evaluates an already parsed address.
func (c *Classifier) ClassifyAddress(addr upi.ParsedAddress) Verdict {
	v := Verdict{Domain: addr.Domain, Reasons: []string{}}
	domain := strings.ToLower(addr.Domain)

	c.checkImpersonationPatterns(domain, &v)
	c.checkSeparators(domain, &v)
	c.checkKeywords(domain, &v)
	c.checkUnverified(domain, &v)

	return v
}

func invalidVerdict(err error) Verdict {
	msg := upi.MsgInvalidFormat
	var fe *upi.FormatError
	if errors.As(err, &fe) {
		msg = fe.Message
	}
	return Verdict{Reasons: []string{}, ValidationError: msg}
}

// checkImpersonationPatterns flags every known impersonation substring.
func (c *Classifier) checkImpersonationPatterns(domain string, v *Verdict) {
	for _, p := range c.registry.MatchingPatterns(domain) {
		v.flag(fmt.Sprintf(ReasonPatternFormat, p))
	}
}

// checkSeparators flags '-' or '_' unless the domain is a recognised issuer
// or a dotted sub/superdomain of one.
func (c *Classifier) checkSeparators(domain string, v *Verdict) {
	if !strings.ContainsAny(domain, "-_") {
		return
	}
	if c.registry.IsRecognizedIssuer(domain) {
		return
	}
	v.flag(ReasonSeparators)
}

// checkKeywords flags the first suspicious keyword. Only an exact issuer
// match exempts the domain here; dotted relatives do not.
func (c *Classifier) checkKeywords(domain string, v *Verdict) {
	keyword, ok := c.registry.FirstKeyword(domain)
	if !ok || c.registry.IsExactIssuer(domain) {
		return
	}
	v.flag(fmt.Sprintf(ReasonKeywordFormat, keyword))
}

// checkUnverified notes an unrecognised issuer without raising suspicion.
func (c *Classifier) checkUnverified(domain string, v *Verdict) {
	if v.IsSuspicious || c.registry.IsRecognizedIssuer(domain) {
		return
	}
	v.Reasons = append(v.Reasons, ReasonUnverified)
}

func (v *Verdict) flag(reason string) {
	v.IsSuspicious = true
	v.Reasons = append(v.Reasons, reason)
}
