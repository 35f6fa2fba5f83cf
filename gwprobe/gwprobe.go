// Package gwprobe periodically pings each distinct route gateway with ICMP
// echo requests and records the result as Prometheus gauges, so reachability
// of a next hop can be observed independently of whether traffic happens to
// be flowing toward it.
package gwprobe

import (
	"context"
	"log/slog"
	"net/netip"
	"time"

	probing "github.com/prometheus-community/pro-bing"

	"github.com/plaidnet/srouter/internal"
	"github.com/plaidnet/srouter/metrics"
	"github.com/plaidnet/srouter/routetable"
)

const defaultProbeSize = 56

// Prober runs one ICMP probe per distinct non-zero gateway address in a
// route table, on a fixed interval, until its context is canceled.
type Prober struct {
	Routes   *routetable.Table
	Log      *slog.Logger
	Interval time.Duration
	Timeout  time.Duration

	// Privileged selects a raw ICMP socket (requires CAP_NET_RAW) instead of
	// an unprivileged datagram socket.
	Privileged bool
}

// Run probes every distinct gateway once per Interval until ctx is done.
func (p *Prober) Run(ctx context.Context) {
	ticker := time.NewTicker(p.Interval)
	defer ticker.Stop()

	p.probeAll(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.probeAll(ctx)
		}
	}
}

func (p *Prober) probeAll(ctx context.Context) {
	for _, gw := range p.gateways() {
		p.probeOne(ctx, gw)
	}
}

// gateways returns the distinct non-zero gateway addresses across the route
// table. Directly-connected routes (Gateway == 0.0.0.0) have nothing to
// probe at this layer; reachability of an on-link peer is what the ARP
// resolver already tracks.
func (p *Prober) gateways() []netip.Addr {
	seen := make(map[[4]byte]bool)
	var out []netip.Addr
	for _, r := range p.Routes.Routes() {
		if r.Gateway == ([4]byte{}) {
			continue
		}
		if seen[r.Gateway] {
			continue
		}
		seen[r.Gateway] = true
		out = append(out, netip.AddrFrom4(r.Gateway))
	}
	return out
}

func (p *Prober) probeOne(ctx context.Context, gw netip.Addr) {
	label := gw.String()

	pinger, err := probing.NewPinger(label)
	if err != nil {
		p.log().Warn("gateway probe: pinger setup failed", "gateway", label, "err", err)
		metrics.GatewayReachable.WithLabelValues(label).Set(0)
		return
	}
	defer pinger.Stop()

	pinger.SetPrivileged(p.Privileged)
	pinger.Count = 1
	pinger.Size = defaultProbeSize
	pinger.Timeout = p.Timeout

	runErr := pinger.RunWithContext(ctx)
	stats := pinger.Statistics()
	if runErr != nil || stats == nil || stats.PacketsRecv == 0 {
		p.log().Debug("gateway unreachable", "gateway", label, internal.SlogIPv4("gateway_ipv4", gw.As4()))
		metrics.GatewayReachable.WithLabelValues(label).Set(0)
		return
	}

	metrics.GatewayReachable.WithLabelValues(label).Set(1)
	metrics.GatewayProbeRTTSeconds.WithLabelValues(label).Set(stats.AvgRtt.Seconds())
}

func (p *Prober) log() *slog.Logger {
	if p.Log != nil {
		return p.Log
	}
	return slog.Default()
}
