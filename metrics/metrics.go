// Package metrics defines the Prometheus metrics exported by the router.
// All metrics use the "srouter_" prefix.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "srouter"

var (
	// FramesReceived counts inbound frames by interface and ethertype.
	FramesReceived = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "frames_received_total",
		Help:      "Total Ethernet frames received, by interface and ethertype.",
	}, []string{"iface", "ethertype"})

	// FramesDropped counts frames dropped during classification or
	// validation, by reason.
	FramesDropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "frames_dropped_total",
		Help:      "Total frames dropped, by reason.",
	}, []string{"reason"})

	// PacketsForwarded counts transit IPv4 datagrams forwarded, by egress
	// interface.
	PacketsForwarded = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "packets_forwarded_total",
		Help:      "Total IPv4 packets forwarded, by egress interface.",
	}, []string{"iface"})

	// ICMPRepliesSent counts ICMP messages the router originates, by type.
	ICMPRepliesSent = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "icmp_replies_sent_total",
		Help:      "Total ICMP messages originated by the router, by type.",
	}, []string{"type"})

	// ARPRequestsSent counts ARP requests transmitted by the resolver.
	ARPRequestsSent = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "arp_requests_sent_total",
		Help:      "Total ARP requests transmitted by the resolver.",
	})

	// ARPRequestsExhausted counts request records that gave up after
	// MaxAttempts transmissions with no reply.
	ARPRequestsExhausted = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "arp_requests_exhausted_total",
		Help:      "Total ARP request records that exhausted all retries.",
	})

	// ARPCacheSize is a gauge of resolved entries currently in the ARP cache.
	ARPCacheSize = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "arp_cache_entries",
		Help:      "Current number of resolved entries in the ARP cache.",
	})

	// ARPPendingRequests is a gauge of in-flight ARP request records.
	ARPPendingRequests = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "arp_pending_requests",
		Help:      "Current number of in-flight ARP request records.",
	})

	// GatewayReachable is 1 when the most recent ICMP probe of a route's
	// gateway succeeded, 0 otherwise, by gateway address.
	GatewayReachable = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "gateway_reachable",
		Help:      "Whether the most recent reachability probe of a route gateway succeeded (1) or not (0).",
	}, []string{"gateway"})

	// GatewayProbeRTTSeconds is the round-trip time of the most recent
	// successful gateway probe, by gateway address.
	GatewayProbeRTTSeconds = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "gateway_probe_rtt_seconds",
		Help:      "Round-trip time of the most recent successful gateway reachability probe.",
	}, []string{"gateway"})
)
