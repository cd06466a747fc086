// Package metrics exports SIP transaction statistics as Prometheus metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/ghettovoice/siptx/sip"
)

// CollectorOptions are options of the [Collector].
type CollectorOptions struct {
	// Namespace is the metric name prefix. Defaults to "sip".
	Namespace string
	// Subsystem is the metric name part after the namespace. Defaults to "transaction".
	Subsystem string
	// ConstLabels are labels attached to all metrics.
	ConstLabels prometheus.Labels
}

func (o *CollectorOptions) names() (namespace, subsystem string, labels prometheus.Labels) {
	namespace, subsystem = "sip", "transaction"
	if o == nil {
		return namespace, subsystem, nil
	}
	if o.Namespace != "" {
		namespace = o.Namespace
	}
	if o.Subsystem != "" {
		subsystem = o.Subsystem
	}
	return namespace, subsystem, o.ConstLabels
}

var txTypes = []sip.TransactionType{
	sip.TransactionTypeClientInvite,
	sip.TransactionTypeClientNonInvite,
	sip.TransactionTypeServerInvite,
	sip.TransactionTypeServerNonInvite,
}

// Collector is a [prometheus.Collector] reading a [sip.StatsRecorder] on each scrape.
type Collector struct {
	rcdr *sip.StatsRecorder

	active,
	total,
	timeouts,
	transpErrs,
	retrans *prometheus.Desc
}

// NewCollector creates a collector of the stats recorder.
func NewCollector(rcdr *sip.StatsRecorder, opts *CollectorOptions) *Collector {
	ns, sub, labels := opts.names()
	return &Collector{
		rcdr: rcdr,
		active: prometheus.NewDesc(
			prometheus.BuildFQName(ns, sub, "active"),
			"Number of active transactions.",
			[]string{"type"}, labels,
		),
		total: prometheus.NewDesc(
			prometheus.BuildFQName(ns, sub, "created_total"),
			"Total number of created transactions.",
			[]string{"type"}, labels,
		),
		timeouts: prometheus.NewDesc(
			prometheus.BuildFQName(ns, sub, "timeouts_total"),
			"Total number of transactions terminated by Timer B, F or H.",
			nil, labels,
		),
		transpErrs: prometheus.NewDesc(
			prometheus.BuildFQName(ns, sub, "transport_errors_total"),
			"Total number of failed message sends.",
			nil, labels,
		),
		retrans: prometheus.NewDesc(
			prometheus.BuildFQName(ns, sub, "retransmissions_total"),
			"Total number of retransmitted messages.",
			nil, labels,
		),
	}
}

// Describe implements [prometheus.Collector].
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.active
	ch <- c.total
	ch <- c.timeouts
	ch <- c.transpErrs
	ch <- c.retrans
}

// Collect implements [prometheus.Collector].
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	rep := c.rcdr.Report()
	for _, typ := range txTypes {
		ch <- prometheus.MustNewConstMetric(c.active, prometheus.GaugeValue, float64(rep.Active.Of(typ)), string(typ))
		ch <- prometheus.MustNewConstMetric(c.total, prometheus.CounterValue, float64(rep.Created.Of(typ)), string(typ))
	}
	ch <- prometheus.MustNewConstMetric(c.timeouts, prometheus.CounterValue, float64(rep.Timeouts))
	ch <- prometheus.MustNewConstMetric(c.transpErrs, prometheus.CounterValue, float64(rep.TransportErrors))
	ch <- prometheus.MustNewConstMetric(c.retrans, prometheus.CounterValue, float64(rep.Retransmissions))
}
