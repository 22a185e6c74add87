package usecase

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exposes the trading counters:
//
//	signal_trader_signals_total{market,side,result}
//	signal_trader_orders_total{market,side,type,status}
//	signal_trader_order_retries_total{market}
//	signal_trader_loans_total{op,result}
//	signal_trader_rollovers_total{result}
//
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	signals   *prometheus.CounterVec
	orders    *prometheus.CounterVec
	retries   *prometheus.CounterVec
	loans     *prometheus.CounterVec
	rollovers *prometheus.CounterVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		signals: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "signal_trader_signals_total",
				Help: "Signals handled by terminal result",
			},
			[]string{"market", "side", "result"},
		),
		orders: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "signal_trader_orders_total",
				Help: "Orders submitted by outcome",
			},
			[]string{"market", "side", "type", "status"},
		),
		retries: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "signal_trader_order_retries_total",
				Help: "Lot size corrective retries",
			},
			[]string{"market"},
		),
		loans: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "signal_trader_loans_total",
				Help: "Margin borrow and repay calls",
			},
			[]string{"op", "result"},
		),
		rollovers: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "signal_trader_rollovers_total",
				Help: "Pair rollovers by result",
			},
			[]string{"result"},
		),
	}
	if reg != nil {
		reg.MustRegister(m.signals, m.orders, m.retries, m.loans, m.rollovers)
	}
	return m
}

func (m *Metrics) signal(market, side, result string) {
	if m == nil {
		return
	}
	m.signals.WithLabelValues(market, side, result).Inc()
}

func (m *Metrics) order(market, side, typ, status string) {
	if m == nil {
		return
	}
	m.orders.WithLabelValues(market, side, typ, status).Inc()
}

func (m *Metrics) retry(market string) {
	if m == nil {
		return
	}
	m.retries.WithLabelValues(market).Inc()
}

func (m *Metrics) loan(op, result string) {
	if m == nil {
		return
	}
	m.loans.WithLabelValues(op, result).Inc()
}

func (m *Metrics) rollover(result string) {
	if m == nil {
		return
	}
	m.rollovers.WithLabelValues(result).Inc()
}

func outcomeLabel(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
