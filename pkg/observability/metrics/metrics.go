package metrics

import (
	"fmt"
	"net/http"
	"sync/atomic"

	"github.com/cardioguard/platform/pkg/common/models"
)

var (
	predictionsHigh   atomic.Int64
	predictionsLow    atomic.Int64
	inputErrors       atomic.Int64
	inferenceErrors   atomic.Int64
	logAppendFailures atomic.Int64
	logDropped        atomic.Int64
	historyReads      atomic.Int64
	cacheHits         atomic.Int64
	cacheMisses       atomic.Int64
)

// Counters is a point-in-time copy of every counter.
type Counters struct {
	PredictionsHigh   int64
	PredictionsLow    int64
	InputErrors       int64
	InferenceErrors   int64
	LogAppendFailures int64
	LogDropped        int64
	HistoryReads      int64
	CacheHits         int64
	CacheMisses       int64
}

func ObservePrediction(risk models.Risk) {
	if risk == models.HighRisk {
		predictionsHigh.Add(1)
		return
	}
	predictionsLow.Add(1)
}

func IncInputError()       { inputErrors.Add(1) }
func IncInferenceError()   { inferenceErrors.Add(1) }
func IncLogAppendFailure() { logAppendFailures.Add(1) }
func IncLogDropped()       { logDropped.Add(1) }
func IncHistoryRead()      { historyReads.Add(1) }

func ObserveCache(hit bool) {
	if hit {
		cacheHits.Add(1)
		return
	}
	cacheMisses.Add(1)
}

func Snapshot() Counters {
	return Counters{
		PredictionsHigh:   predictionsHigh.Load(),
		PredictionsLow:    predictionsLow.Load(),
		InputErrors:       inputErrors.Load(),
		InferenceErrors:   inferenceErrors.Load(),
		LogAppendFailures: logAppendFailures.Load(),
		LogDropped:        logDropped.Load(),
		HistoryReads:      historyReads.Load(),
		CacheHits:         cacheHits.Load(),
		CacheMisses:       cacheMisses.Load(),
	}
}

func WritePrometheus(w http.ResponseWriter) {
	c := Snapshot()
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")

	fmt.Fprintf(w, "# HELP cardioguard_predictions_total Number of completed predictions by risk label.\n")
	fmt.Fprintf(w, "# TYPE cardioguard_predictions_total counter\n")
	fmt.Fprintf(w, "cardioguard_predictions_total{risk=\"high\"} %d\n", c.PredictionsHigh)
	fmt.Fprintf(w, "cardioguard_predictions_total{risk=\"low\"} %d\n", c.PredictionsLow)

	fmt.Fprintf(w, "# HELP cardioguard_prediction_errors_total Number of rejected predictions by error kind.\n")
	fmt.Fprintf(w, "# TYPE cardioguard_prediction_errors_total counter\n")
	fmt.Fprintf(w, "cardioguard_prediction_errors_total{kind=\"input\"} %d\n", c.InputErrors)
	fmt.Fprintf(w, "cardioguard_prediction_errors_total{kind=\"inference\"} %d\n", c.InferenceErrors)

	fmt.Fprintf(w, "# HELP cardioguard_log_append_failures_total Number of prediction records the log failed to store.\n")
	fmt.Fprintf(w, "# TYPE cardioguard_log_append_failures_total counter\n")
	fmt.Fprintf(w, "cardioguard_log_append_failures_total %d\n", c.LogAppendFailures)

	fmt.Fprintf(w, "# HELP cardioguard_log_dropped_total Number of prediction records dropped because the writer queue was full.\n")
	fmt.Fprintf(w, "# TYPE cardioguard_log_dropped_total counter\n")
	fmt.Fprintf(w, "cardioguard_log_dropped_total %d\n", c.LogDropped)

	fmt.Fprintf(w, "# HELP cardioguard_history_reads_total Number of history reads served.\n")
	fmt.Fprintf(w, "# TYPE cardioguard_history_reads_total counter\n")
	fmt.Fprintf(w, "cardioguard_history_reads_total %d\n", c.HistoryReads)

	fmt.Fprintf(w, "# HELP cardioguard_history_cache_total History cache lookups by result.\n")
	fmt.Fprintf(w, "# TYPE cardioguard_history_cache_total counter\n")
	fmt.Fprintf(w, "cardioguard_history_cache_total{result=\"hit\"} %d\n", c.CacheHits)
	fmt.Fprintf(w, "cardioguard_history_cache_total{result=\"miss\"} %d\n", c.CacheMisses)
}
