package fraud

import (
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	verdictsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "upi_verdicts_total",
		Help: "Total number of UPI classifications by resulting status",
	}, []string{"source", "status"})

	signalsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "upi_fraud_signals_total",
		Help: "Total number of fraud signals raised by rule",
	}, []string{"rule"})
)

// RecordVerdict counts v under source (for example "api" or "cli").
// Classification itself stays side-effect free; callers record afterwards.
func RecordVerdict(source string, v Verdict) {
	verdictsTotal.WithLabelValues(source, string(v.Status())).Inc()
	for _, r := range v.Reasons {
		signalsTotal.WithLabelValues(ruleOf(r)).Inc()
	}
}

func ruleOf(reason string) string {
	switch {
	case strings.HasPrefix(reason, "Contains suspicious pattern"):
		return "impersonation_pattern"
	case reason == ReasonSeparators:
		return "separator"
	case strings.HasPrefix(reason, "Domain contains suspicious keyword"):
		return "keyword"
	case reason == ReasonUnverified:
		return "unverified"
	default:
		return "other"
	}
}
