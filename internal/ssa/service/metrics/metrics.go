// Package metrics holds the prometheus collectors shared by the agent services.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "ssa"

var (
	// GatewayRequests counts ERP gateway calls by operation and outcome.
	GatewayRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "gateway",
		Name:      "requests_total",
		Help:      "Sankhya gateway requests by operation and result.",
	}, []string{"operation", "result"})

	// GatewayLatency observes gateway round-trip time in seconds.
	GatewayLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "gateway",
		Name:      "request_duration_seconds",
		Help:      "Sankhya gateway request latency.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"operation"})

	// GatewayReauth counts refresh-on-401 retries.
	GatewayReauth = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "gateway",
		Name:      "reauth_total",
		Help:      "Token refreshes triggered by a 401 response.",
	})

	// ToolCalls counts tool invocations by tool and outcome.
	ToolCalls = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "tools",
		Name:      "calls_total",
		Help:      "Tool invocations by tool name and result.",
	}, []string{"tool", "result"})

	// RegistryReloads counts registry rebuilds by result.
	RegistryReloads = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "tools",
		Name:      "reloads_total",
		Help:      "Tool registry reloads.",
	}, []string{"result"})

	// RegistrySize is the number of tools in the current snapshot.
	RegistrySize = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "tools",
		Name:      "registered",
		Help:      "Tools in the current registry snapshot.",
	})

	// Turns counts conversation turns by how they ended.
	Turns = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "agent",
		Name:      "turns_total",
		Help:      "Conversation turns by outcome (final, round_limit, fallback, simulation).",
	}, []string{"outcome"})

	// ProviderFailures counts completion provider errors by classified reason.
	ProviderFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "agent",
		Name:      "provider_failures_total",
		Help:      "Completion provider failures by reason.",
	}, []string{"provider", "reason"})

	// RulesProposed counts auto-learning proposals that created a new rule.
	RulesProposed = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "agent",
		Name:      "rules_proposed_total",
		Help:      "Business rules proposed by auto-learning.",
	})

	// SelfCorrections counts successful self-correction retries.
	SelfCorrections = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "agent",
		Name:      "self_corrections_total",
		Help:      "Tool re-invocations made by the self-correction hook.",
	}, []string{"tool"})
)

// Registry is the collector registry exposed on /metrics.
var Registry = prometheus.NewRegistry()

func init() {
	Registry.MustRegister(
		GatewayRequests, GatewayLatency, GatewayReauth,
		ToolCalls, RegistryReloads, RegistrySize,
		Turns, ProviderFailures, RulesProposed, SelfCorrections,
	)
}
