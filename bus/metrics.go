package bus

import "github.com/prometheus/client_golang/prometheus"

// switchMetrics is the optional, purely-observational counter family a
// Switch reports through if constructed with WithRegisterer. No switching
// invariant depends on it — see SPEC_FULL.md §6 "Addition — metrics".
type switchMetrics struct {
	packets *prometheus.CounterVec
	lagged  *prometheus.CounterVec
}

func newSwitchMetrics(reg prometheus.Registerer) *switchMetrics {
	packets := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "fabric_switch_packets_total",
		Help: "Packets processed by a switch, by outcome.",
	}, []string{"switch", "result"})
	lagged := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "fabric_switch_lag_total",
		Help: "Packets a switch port's subscriber missed due to a full buffer.",
	}, []string{"switch", "port"})
	if reg == nil {
		return &switchMetrics{packets: packets, lagged: lagged}
	}
	return &switchMetrics{
		packets: registerOrReuse(reg, packets),
		lagged:  registerOrReuse(reg, lagged),
	}
}

// registerOrReuse registers cv against reg, or — when a prior switch already
// registered a CounterVec with the same fqName/labels — returns that
// existing collector instead. Every switch shares one family per registerer,
// distinguished by the "switch" label, rather than each switch colliding
// with an AlreadyRegisteredError on its own freshly built CounterVec.
func registerOrReuse(reg prometheus.Registerer, cv *prometheus.CounterVec) *prometheus.CounterVec {
	if err := reg.Register(cv); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			return are.ExistingCollector.(*prometheus.CounterVec)
		}
		panic(err)
	}
	return cv
}

func (m *switchMetrics) incResult(switchName, result string) {
	if m == nil {
		return
	}
	m.packets.WithLabelValues(switchName, result).Inc()
}

func (m *switchMetrics) incLag(switchName, port string) {
	if m == nil {
		return
	}
	m.lagged.WithLabelValues(switchName, port).Inc()
}
