package permtools

import (
	"sort"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// TransactionMetrics provides transaction performance and failure statistics.
type TransactionMetrics struct {
	TotalTransactions      int64         `json:"total_transactions"`
	SuccessfulTransactions int64         `json:"successful_transactions"`
	FailedTransactions     int64         `json:"failed_transactions"`
	AverageDuration        time.Duration `json:"average_duration"`
	MaxDuration            time.Duration `json:"max_duration"`
	MinDuration            time.Duration `json:"min_duration"`
	LastReset              time.Time     `json:"last_reset"`
}

type opStats struct {
	success  int64
	failure  int64
	duration time.Duration
}

// transactionMonitor holds the transaction monitoring state, totals and per operation.
type transactionMonitor struct {
	mu sync.Mutex

	totalCount    int64
	successCount  int64
	failureCount  int64
	totalDuration time.Duration
	maxDuration   time.Duration
	minDuration   time.Duration
	lastReset     time.Time

	byOp map[string]*opStats
}

// newTransactionMonitor creates a new transaction monitor
func newTransactionMonitor() *transactionMonitor {
	return &transactionMonitor{
		minDuration: time.Hour,
		lastReset:   time.Now(),
		byOp:        make(map[string]*opStats),
	}
}

// recordTransaction records a transaction completion with its duration and success status
func (tm *transactionMonitor) recordTransaction(op string, duration time.Duration, success bool) {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	tm.totalCount++
	tm.totalDuration += duration
	if duration > tm.maxDuration {
		tm.maxDuration = duration
	}
	if duration < tm.minDuration {
		tm.minDuration = duration
	}

	stats, ok := tm.byOp[op]
	if !ok {
		stats = &opStats{}
		tm.byOp[op] = stats
	}
	stats.duration += duration

	if success {
		tm.successCount++
		stats.success++
	} else {
		tm.failureCount++
		stats.failure++
	}
}

// getMetrics returns the current transaction metrics
func (tm *transactionMonitor) getMetrics() TransactionMetrics {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	var avg time.Duration
	if tm.totalCount > 0 {
		avg = tm.totalDuration / time.Duration(tm.totalCount)
	}

	return TransactionMetrics{
		TotalTransactions:      tm.totalCount,
		SuccessfulTransactions: tm.successCount,
		FailedTransactions:     tm.failureCount,
		AverageDuration:        avg,
		MaxDuration:            tm.maxDuration,
		MinDuration:            tm.minDuration,
		LastReset:              tm.lastReset,
	}
}

// reset resets all metrics
func (tm *transactionMonitor) reset() {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	tm.totalCount = 0
	tm.successCount = 0
	tm.failureCount = 0
	tm.totalDuration = 0
	tm.maxDuration = 0
	tm.minDuration = time.Hour
	tm.lastReset = time.Now()
	tm.byOp = make(map[string]*opStats)
}

var (
	txTotalDesc = prometheus.NewDesc(
		"permtools_transactions_total",
		"Transactions completed, by operation and result.",
		[]string{"op", "result"}, nil,
	)
	txDurationDesc = prometheus.NewDesc(
		"permtools_transaction_duration_seconds_total",
		"Cumulative time spent in transactions, by operation.",
		[]string{"op"}, nil,
	)
	txMaxDurationDesc = prometheus.NewDesc(
		"permtools_transaction_max_duration_seconds",
		"Longest transaction since the last reset.",
		nil, nil,
	)
)

// Describe implements prometheus.Collector.
func (tm *transactionMonitor) Describe(ch chan<- *prometheus.Desc) {
	ch <- txTotalDesc
	ch <- txDurationDesc
	ch <- txMaxDurationDesc
}

// Collect implements prometheus.Collector.
func (tm *transactionMonitor) Collect(ch chan<- prometheus.Metric) {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	ops := make([]string, 0, len(tm.byOp))
	for op := range tm.byOp {
		ops = append(ops, op)
	}
	sort.Strings(ops)

	for _, op := range ops {
		stats := tm.byOp[op]
		ch <- prometheus.MustNewConstMetric(txTotalDesc, prometheus.CounterValue, float64(stats.success), op, "success")
		ch <- prometheus.MustNewConstMetric(txTotalDesc, prometheus.CounterValue, float64(stats.failure), op, "failure")
		ch <- prometheus.MustNewConstMetric(txDurationDesc, prometheus.CounterValue, stats.duration.Seconds(), op)
	}
	ch <- prometheus.MustNewConstMetric(txMaxDurationDesc, prometheus.GaugeValue, tm.maxDuration.Seconds())
}

// GetTransactionMetrics returns the current transaction performance metrics.
func (s *Service) GetTransactionMetrics() TransactionMetrics {
	return s.txMonitor.getMetrics()
}

// ResetTransactionMetrics resets all transaction metrics.
func (s *Service) ResetTransactionMetrics() {
	s.txMonitor.reset()
}

// MetricsCollector exposes the transaction metrics for registration with a
// Prometheus registry.
func (s *Service) MetricsCollector() prometheus.Collector {
	return s.txMonitor
}

// IsTransactionHealthy checks if transaction performance is within acceptable thresholds.
func (s *Service) IsTransactionHealthy() bool {
	metrics := s.txMonitor.getMetrics()

	// If we have very few transactions, consider it healthy
	if metrics.TotalTransactions < 10 {
		return true
	}

	failureRate := float64(metrics.FailedTransactions) / float64(metrics.TotalTransactions)
	if failureRate > 0.05 {
		return false
	}

	return metrics.AverageDuration <= time.Second
}
