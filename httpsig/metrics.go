package httpsig

import (
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	verificationsTotal   = "httpsig_verifications_total"
	verificationDuration = "httpsig_verification_duration_seconds"
	resultLabel          = "result"
	algorithmLabel       = "algorithm"
)

// OtherAlgorithm is the algorithm label recorded for tags that are neither
// built in nor hs2019.
const OtherAlgorithm = "other"

// Verification outcomes recorded by Metrics.
const (
	ResultValid   = "valid"
	ResultInvalid = "invalid"
	ResultError   = "error"
)

// Metrics records middleware verification outcomes.
type Metrics struct {
	verifications *prometheus.CounterVec
	duration      *prometheus.HistogramVec
}

// NewMetrics creates the verification collectors and registers them with
// reg. A nil reg leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		verifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: verificationsTotal,
			Help: "Indicates the number of signature verifications by result",
		}, []string{resultLabel, algorithmLabel}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    verificationDuration,
			Help:    "Indicates the latency of each signature verification in seconds",
			Buckets: prometheus.ExponentialBuckets(0.00005, 2, 12),
		}, []string{resultLabel}),
	}

	if reg != nil {
		for _, c := range []prometheus.Collector{m.verifications, m.duration} {
			if err := reg.Register(c); err != nil {
				return nil, err
			}
		}
	}

	return m, nil
}

// observe is a no-op on a nil receiver.
func (m *Metrics) observe(result string, alg Algorithm, d time.Duration) {
	if m == nil {
		return
	}

	m.verifications.WithLabelValues(result, algorithmLabelValue(alg)).Inc()
	m.duration.WithLabelValues(result).Observe(d.Seconds())
}

// algorithmLabelValue bounds the algorithm label, which comes from the
// unauthenticated request, to the known tags.
func algorithmLabelValue(alg Algorithm) string {
	switch {
	case alg == "":
		return ""
	case alg.IsBuiltin(), alg.is(AlgorithmHS2019):
		return strings.ToLower(alg.String())
	default:
		return OtherAlgorithm
	}
}
