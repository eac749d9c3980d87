package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Settlement agrupa as métricas do serviço de liquidação.
type Settlement struct {
	Calls         *prometheus.CounterVec   // op, result
	CallDuration  *prometheus.HistogramVec // op
	Payouts       prometheus.Counter
	PayoutWei     prometheus.Counter
	Resolutions   *prometheus.CounterVec // kind: winners | no_winners
	Liquidity     prometheus.Gauge       // wei, aproximado em float
	Escrow        prometheus.Gauge
	Sequence      prometheus.Gauge
	Notifications *prometheus.CounterVec // subscriber, result
	FeedMessages  *prometheus.CounterVec // stage
}

// NewSettlement registra as métricas no registerer informado.
func NewSettlement(reg prometheus.Registerer) *Settlement {
	f := promauto.With(reg)
	return &Settlement{
		Calls: f.NewCounterVec(prometheus.CounterOpts{
			Name: "settlement_calls_total",
			Help: "chamadas por operação e resultado",
		}, []string{"op", "result"}),
		CallDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "settlement_call_duration_seconds",
			Help:    "duração das chamadas por operação",
			Buckets: []float64{0.00001, 0.00005, 0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1},
		}, []string{"op"}),
		Payouts: f.NewCounter(prometheus.CounterOpts{
			Name: "settlement_payouts_total",
			Help: "pagamentos a vencedores",
		}),
		PayoutWei: f.NewCounter(prometheus.CounterOpts{
			Name: "settlement_payout_wei_total",
			Help: "volume pago a vencedores (wei)",
		}),
		Resolutions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "settlement_resolutions_total",
			Help: "eventos resolvidos",
		}, []string{"kind"}),
		Liquidity: f.NewGauge(prometheus.GaugeOpts{
			Name: "settlement_reserve_liquidity_wei",
			Help: "liquidez do pool da reserva",
		}),
		Escrow: f.NewGauge(prometheus.GaugeOpts{
			Name: "settlement_reserve_escrow_wei",
			Help: "apostas em escrow de eventos abertos",
		}),
		Sequence: f.NewGauge(prometheus.GaugeOpts{
			Name: "settlement_chain_sequence",
			Help: "última sequência confirmada",
		}),
		Notifications: f.NewCounterVec(prometheus.CounterOpts{
			Name: "settlement_notifications_total",
			Help: "entregas de notificação por assinante",
		}, []string{"subscriber", "result"}),
		FeedMessages: f.NewCounterVec(prometheus.CounterOpts{
			Name: "settlement_result_feed_messages_total",
			Help: "mensagens do feed de resultados por estágio",
		}, []string{"stage"}),
	}
}
