package prometheus

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ResolutionsTotal counts resolution attempts by computed status.
	ResolutionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lockyolinks_resolutions_total",
		Help: "Resolution attempts by link status.",
	}, []string{"status"})

	// GateDenialsTotal counts gate checks that ended in a denial.
	GateDenialsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lockyolinks_gate_denials_total",
		Help: "Denied gate verifications by gate kind.",
	}, []string{"gate"})

	// RedirectsTotal counts completed redirects to original URLs.
	RedirectsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "lockyolinks_redirects_total",
		Help: "Completed redirects to destination URLs.",
	})
)
