package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
)

// Counters are created eagerly so services can Inc() them whether or
// not a registry has been wired (tests, embedded use). Register attaches
// them to a Prometheus registry at startup.
var (
	LoginSuccessTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "authd_logins_success_total",
		Help: "Total number of completed provider logins.",
	})
	LoginFailureTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "authd_logins_failure_total",
		Help: "Total number of failed provider logins.",
	})
	TokensCreatedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "authd_tokens_created_total",
		Help: "Total number of access/refresh token pairs issued.",
	})
	TokensRefreshedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "authd_tokens_refreshed_total",
		Help: "Total number of access tokens minted via refresh.",
	})
	TokenVerifyFailureTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "authd_token_verify_failure_total",
		Help: "Total number of rejected session tokens.",
	})
)

// Register registers all counters with reg. Call once at startup.
func Register(reg prometheus.Registerer) {
	if reg == nil {
		log.Error().Msg("prometheus registry is nil, metrics not registered")
		return
	}
	for _, c := range []prometheus.Collector{
		LoginSuccessTotal,
		LoginFailureTotal,
		TokensCreatedTotal,
		TokensRefreshedTotal,
		TokenVerifyFailureTotal,
	} {
		if err := reg.Register(c); err != nil {
			log.Warn().Err(err).Msg("failed to register metric")
		}
	}
}
