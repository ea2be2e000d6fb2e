package securestore

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	resultOK     = "ok"
	resultAbsent = "absent"
	resultError  = "error"
)

// Metrics holds the store's Prometheus collectors
type Metrics struct {
	OperationsTotal *prometheus.CounterVec
}

// NewMetrics registers the store collectors on reg
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		OperationsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "talentlink_securestore_operations_total",
			Help: "Secure store operations by operation and result",
		}, []string{"op", "result"}),
	}
}

func (m *Metrics) observe(op, result string) {
	if m == nil {
		return
	}
	m.OperationsTotal.WithLabelValues(op, result).Inc()
}
