package fraud

import (
	"errors"
	"strings"
)

// Built-in issuer short codes recognised as legitimate.
var defaultLegitimateIssuers = []string{
	"paytm", "phonepe", "googlepay", "amazonpay", "bhim", "sbi",
	"hdfcbank", "icicibank", "axisbank", "ybl", "ibl", "oksbi",
	"okhdfcbank", "okicici", "okaxis", "idfcbank", "indus", "kotak",
	"pnb", "bob", "boi", "cbi", "union", "canara",
}

// Built-in substrings seen in domains crafted to impersonate an issuer.
var defaultImpersonationPatterns = []string{
	"ok-sbi", "support-paytm", "gpay-care", "help-phonepe",
	"assist-googlepay", "care-paytm", "customer-sbi", "service-hdfc",
	"refund-paytm", "cashback-gpay", "reward-phonepe", "verify-upi",
	"confirm-payment", "secure-pay",
}

// Keywords are scanned in this order and only the first hit is reported.
var defaultSuspiciousKeywords = []string{
	"support", "help", "care", "customer", "service", "refund",
	"cashback", "reward", "verify", "confirm", "secure",
}

// ErrEmptyIssuerList is returned when a registry would recognise no issuer.
var ErrEmptyIssuerList = errors.New("fraud: registry must list at least one legitimate issuer")

// RegistryConfig is the serialisable form of a Registry. A nil list selects
// the built-in defaults for that list; an explicit empty list disables it.
type RegistryConfig struct {
	LegitimateIssuers     []string `yaml:"legitimate_issuers" json:"legitimate_issuers"`
	ImpersonationPatterns []string `yaml:"impersonation_patterns" json:"impersonation_patterns"`
	SuspiciousKeywords    []string `yaml:"suspicious_keywords" json:"suspicious_keywords"`
}

// Registry holds the lookup tables the classifier evaluates against. It is
// built once and never modified, so one instance can be shared by any number
// of goroutines.
type Registry struct {
	issuers   []string
	issuerSet map[string]struct{}
	patterns  []string
	keywords  []string
}

// DefaultRegistry returns a registry with the built-in lists.
func DefaultRegistry() *Registry {
	reg, _ := NewRegistry(RegistryConfig{})
	return reg
}

// NewRegistry normalises cfg (trim, lowercase, drop blanks and duplicates
// while keeping first-seen order) and builds a Registry from it.
func NewRegistry(cfg RegistryConfig) (*Registry, error) {
	issuers := normalizeList(cfg.LegitimateIssuers, defaultLegitimateIssuers)
	if len(issuers) == 0 {
		return nil, ErrEmptyIssuerList
	}

	set := make(map[string]struct{}, len(issuers))
	for _, issuer := range issuers {
		set[issuer] = struct{}{}
	}

	return &Registry{
		issuers:   issuers,
		issuerSet: set,
		patterns:  normalizeList(cfg.ImpersonationPatterns, defaultImpersonationPatterns),
		keywords:  normalizeList(cfg.SuspiciousKeywords, defaultSuspiciousKeywords),
	}, nil
}

func normalizeList(values, defaults []string) []string {
	if values == nil {
		values = defaults
	}

	out := make([]string, 0, len(values))
	seen := make(map[string]struct{}, len(values))
	for _, v := range values {
		v = strings.ToLower(strings.TrimSpace(v))
		if v == "" {
			continue
		}
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

// IsExactIssuer reports whether domain is exactly a listed issuer.
// domain must already be lowercase.
func (r *Registry) IsExactIssuer(domain string) bool {
	_, ok := r.issuerSet[domain]
	return ok
}

// IsRecognizedIssuer reports whether domain is a listed issuer, starts with
// "<issuer>." or ends with ".<issuer>". domain must already be lowercase.
func (r *Registry) IsRecognizedIssuer(domain string) bool {
	if r.IsExactIssuer(domain) {
		return true
	}
	for _, issuer := range r.issuers {
		if strings.HasPrefix(domain, issuer+".") || strings.HasSuffix(domain, "."+issuer) {
			return true
		}
	}
	return false
}

// MatchingPatterns returns every impersonation pattern contained in domain,
// in registry order.
func (r *Registry) MatchingPatterns(domain string) []string {
	var matches []string
	for _, p := range r.patterns {
		if strings.Contains(domain, p) {
			matches = append(matches, p)
		}
	}
	return matches
}

// FirstKeyword returns the first suspicious keyword contained in domain.
func (r *Registry) FirstKeyword(domain string) (string, bool) {
	for _, k := range r.keywords {
		if strings.Contains(domain, k) {
			return k, true
		}
	}
	return "", false
}

// Issuers returns a copy of the legitimate issuer list.
func (r *Registry) Issuers() []string { return append([]string(nil), r.issuers...) }

// Patterns returns a copy of the impersonation pattern list.
func (r *Registry) Patterns() []string { return append([]string(nil), r.patterns...) }

// Keywords returns a copy of the keyword list.
func (r *Registry) Keywords() []string { return append([]string(nil), r.keywords...) }

// Config returns the registry in serialisable form.
func (r *Registry) Config() RegistryConfig {
	return RegistryConfig{
		LegitimateIssuers:     r.Issuers(),
		ImpersonationPatterns: r.Patterns(),
		SuspiciousKeywords:    r.Keywords(),
	}
}
