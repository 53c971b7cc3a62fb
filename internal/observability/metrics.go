// Package observability provides logging and Prometheus metrics.
package observability

import (
	"math/big"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"meme-ledger/internal/domain"
)

// Metrics holds all Prometheus metrics for the application.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	// Ledger metrics, fed by committed events
	TokensCreated   prometheus.Counter
	Purchases       prometheus.Counter
	PurchaseVolume  prometheus.Counter
	Stakes          prometheus.Counter
	Unstakes        prometheus.Counter
	RewardsMinted   prometheus.Counter
	VotesCast       prometheus.Counter
	VotingRounds    *prometheus.CounterVec
	LastEventSeq    prometheus.Gauge
	SpotlightUpdate prometheus.Counter

	// Operation metrics
	OperationLatency *prometheus.HistogramVec
	OperationErrors  *prometheus.CounterVec

	// Delivery metrics
	EventsDropped *prometheus.CounterVec
	JournalWrites *prometheus.CounterVec
	FeedClients   prometheus.Gauge

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec

	// HTTP metrics
	HTTPRequests *prometheus.CounterVec
	HTTPLatency  *prometheus.HistogramVec
}

// NewMetrics creates a Metrics instance registered with reg.
// A nil reg uses the default Prometheus registerer.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	if namespace == "" {
		namespace = "meme_ledger"
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		TokensCreated: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "launchpad",
			Name:      "tokens_created_total",
			Help:      "Total number of tokens created",
		}),
		Purchases: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "launchpad",
			Name:      "purchases_total",
			Help:      "Total number of token purchases",
		}),
		PurchaseVolume: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "launchpad",
			Name:      "purchase_volume_units_total",
			Help:      "Native units paid for purchases (whole units, approximate)",
		}),
		Stakes: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "staking",
			Name:      "stakes_total",
			Help:      "Total number of stake operations",
		}),
		Unstakes: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "staking",
			Name:      "unstakes_total",
			Help:      "Total number of unstake operations",
		}),
		RewardsMinted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "staking",
			Name:      "rewards_minted_units_total",
			Help:      "Reward tokens minted (whole units, approximate)",
		}),
		VotesCast: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "governance",
			Name:      "votes_cast_total",
			Help:      "Total number of votes cast",
		}),
		VotingRounds: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "governance",
			Name:      "voting_rounds_total",
			Help:      "Finished voting rounds by outcome",
		}, []string{"passed"}),
		LastEventSeq: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "last_event_seq",
			Help:      "Sequence number of the last committed event",
		}),
		SpotlightUpdate: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "launchpad",
			Name:      "spotlight_updates_total",
			Help:      "Total number of spotlight weight changes",
		}),

		OperationLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "operation_duration_seconds",
			Help:      "Operation latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		OperationErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "operation_errors_total",
			Help:      "Failed operations by operation and error code",
		}, []string{"operation", "code"}),

		EventsDropped: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "events",
			Name:      "dropped_total",
			Help:      "Events dropped by a slow consumer",
		}, []string{"consumer"}),
		JournalWrites: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "journal",
			Name:      "writes_total",
			Help:      "Journal batch writes by store and status",
		}, []string{"store", "status"}),
		FeedClients: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "clients",
			Help:      "Connected websocket feed clients",
		}),

		DBQueryDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_duration_seconds",
			Help:      "Database query duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"database", "operation"}),
		DBQueryErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_errors_total",
			Help:      "Total number of database query errors",
		}, []string{"database", "operation"}),

		HTTPRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by method, route and status",
		}, []string{"method", "route", "status"}),
		HTTPLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// HandlerFor returns a /metrics handler serving only g.
func HandlerFor(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

// Notify records a committed ledger event. It never blocks, so Metrics can
// sit directly on the event bus.
func (m *Metrics) Notify(ev *domain.Event) {
	if m == nil || ev == nil {
		return
	}

	m.LastEventSeq.Set(float64(ev.Seq))
	switch ev.Kind {
	case domain.EventTokenCreated:
		m.TokensCreated.Inc()
	case domain.EventTokenPurchased:
		m.Purchases.Inc()
		m.PurchaseVolume.Add(wholeUnits(ev.Cost))
	case domain.EventStaked:
		m.Stakes.Inc()
	case domain.EventUnstaked:
		m.Unstakes.Inc()
	case domain.EventRewardClaimed:
		m.RewardsMinted.Add(wholeUnits(ev.Amount))
	case domain.EventVoted:
		m.VotesCast.Inc()
	case domain.EventVotingEnded:
		m.VotingRounds.WithLabelValues(strconv.FormatBool(ev.Passed)).Inc()
	case domain.EventSpotlightUpdated:
		m.SpotlightUpdate.Inc()
	}
}

// ObserveOperation records one operation's latency and, when code is not
// empty, a failure with that error code.
func (m *Metrics) ObserveOperation(op, code string, d time.Duration) {
	if m == nil {
		return
	}
	m.OperationLatency.WithLabelValues(op).Observe(d.Seconds())
	if code != "" {
		m.OperationErrors.WithLabelValues(op, code).Inc()
	}
}

// RecordDrop counts an event a consumer could not keep up with.
func (m *Metrics) RecordDrop(consumer string) {
	if m == nil {
		return
	}
	m.EventsDropped.WithLabelValues(consumer).Inc()
}

// RecordJournalWrite counts a batch write to store.
func (m *Metrics) RecordJournalWrite(store string, err error) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.JournalWrites.WithLabelValues(store, status).Inc()
}

// RecordDBQuery records database query metrics.
func (m *Metrics) RecordDBQuery(database, operation string, seconds float64, err error) {
	if m == nil {
		return
	}
	m.DBQueryDuration.WithLabelValues(database, operation).Observe(seconds)
	if err != nil {
		m.DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}

// SetFeedClients sets the connected feed client gauge.
func (m *Metrics) SetFeedClients(n int) {
	if m == nil {
		return
	}
	m.FeedClients.Set(float64(n))
}

// RecordHTTPRequest records one served request.
func (m *Metrics) RecordHTTPRequest(method, route string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.HTTPLatency.WithLabelValues(method, route).Observe(d.Seconds())
}

var unitFloat = new(big.Float).SetInt(new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil))

// wholeUnits converts sub-units to a float of whole units for counters.
func wholeUnits(v *big.Int) float64 {
	if v == nil || v.Sign() <= 0 {
		return 0
	}
	f, _ := new(big.Float).Quo(new(big.Float).SetInt(v), unitFloat).Float64()
	return f
}
