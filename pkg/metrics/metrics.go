package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	realia = "realia"

	// Pipeline metrics
	pipelineStagesTotal    = "pipeline_stages_total"
	pipelineStageDuration  = "pipeline_stage_duration_milliseconds"
	pipelineRunsTotal      = "pipeline_runs_total"
	chainOutcomeMissing    = "chain_outcome_missing_total"
	consensusPollsTotal    = "consensus_polls_total"
	agentResponsesSubmited = "agent_responses_total"

	// Labels
	kindLabel    = "kind"
	stageLabel   = "stage"
	outcomeLabel = "outcome"
	resultLabel  = "result"
)

/**
* Metrics definition
**/
var pipelineStagesTotalMetric = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Subsystem: realia,
		Name:      pipelineStagesTotal,
		Help:      "number of pipeline stages executed partitioned by kind, stage and outcome",
	},
	[]string{kindLabel, stageLabel, outcomeLabel},
)

var pipelineStageDurationMetric = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Subsystem: realia,
		Name:      pipelineStageDuration,
		Help:      "time spent in each pipeline stage",
		Buckets:   []float64{10, 50, 100, 500, 1000, 5000, 15000, 60000},
	},
	[]string{kindLabel, stageLabel},
)

var pipelineRunsTotalMetric = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Subsystem: realia,
		Name:      pipelineRunsTotal,
		Help:      "number of pipeline runs partitioned by kind and terminal outcome",
	},
	[]string{kindLabel, outcomeLabel},
)

var chainOutcomeMissingMetric = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Subsystem: realia,
		Name:      chainOutcomeMissing,
		Help:      "transactions mined without the expected event; gas was spent with no usable result",
	},
	[]string{kindLabel},
)

var consensusPollsTotalMetric = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Subsystem: realia,
		Name:      consensusPollsTotal,
		Help:      "number of agent response polls partitioned by result",
	},
	[]string{resultLabel},
)

var agentResponsesTotalMetric = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Subsystem: realia,
		Name:      agentResponsesSubmited,
		Help:      "number of verification responses submitted by the verifier agent",
	},
	[]string{resultLabel},
)

func ObserveStage(kind, stage, outcome string, millis float64) {
	pipelineStagesTotalMetric.With(prometheus.Labels{kindLabel: kind, stageLabel: stage, outcomeLabel: outcome}).Inc()
	pipelineStageDurationMetric.With(prometheus.Labels{kindLabel: kind, stageLabel: stage}).Observe(millis)
}

func IncreasePipelineRuns(kind, outcome string) {
	pipelineRunsTotalMetric.With(prometheus.Labels{kindLabel: kind, outcomeLabel: outcome}).Inc()
}

func IncreaseChainOutcomeMissing(kind string) {
	chainOutcomeMissingMetric.With(prometheus.Labels{kindLabel: kind}).Inc()
}

func IncreaseConsensusPolls(result string) {
	consensusPollsTotalMetric.With(prometheus.Labels{resultLabel: result}).Inc()
}

func IncreaseAgentResponses(result string) {
	agentResponsesTotalMetric.With(prometheus.Labels{resultLabel: result}).Inc()
}

type PrometheusMetricsHandler struct{}

func NewPrometheusMetricsHandler() *PrometheusMetricsHandler {
	return &PrometheusMetricsHandler{}
}

func (h *PrometheusMetricsHandler) Handler() http.Handler {
	return promhttp.Handler()
}

func init() {
	registerMetrics()
}

func registerMetrics() {
	prometheus.MustRegister(pipelineStagesTotalMetric)
	prometheus.MustRegister(pipelineStageDurationMetric)
	prometheus.MustRegister(pipelineRunsTotalMetric)
	prometheus.MustRegister(chainOutcomeMissingMetric)
	prometheus.MustRegister(consensusPollsTotalMetric)
	prometheus.MustRegister(agentResponsesTotalMetric)
}
