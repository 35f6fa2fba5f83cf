package router

import (
	"context"
	"time"

	"github.com/plaidnet/srouter/arpcache"
	"github.com/plaidnet/srouter/ethernet"
	"github.com/plaidnet/srouter/ipv4"
	"github.com/plaidnet/srouter/ipv4/icmpv4"
	"github.com/plaidnet/srouter/metrics"
)

// RunSweepWorker is the periodic worker (C5): it wakes once per tick, calls
// Sweep on the ARP resolver, and executes whatever actions come back. It
// runs until ctx is canceled. Tests that drive time explicitly call
// RunSweepOnce instead of running this loop.
func (p *Pipeline) RunSweepWorker(ctx context.Context, tick time.Duration) {
	ticker := time.NewTicker(tick)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			p.RunSweepOnce(now)
		}
	}
}

// RunSweepOnce executes a single sweep of the ARP resolver's in-flight
// requests as of now, retransmitting or failing them as appropriate.
func (p *Pipeline) RunSweepOnce(now time.Time) {
	actions := p.Ctx.ARP.Sweep(now)
	metrics.ARPCacheSize.Set(float64(p.Ctx.ARP.Len()))
	metrics.ARPPendingRequests.Set(float64(p.Ctx.ARP.PendingCount()))

	for _, a := range actions {
		if a.Broadcast {
			p.sweepBroadcast(a)
			continue
		}
		if a.Exhausted {
			p.sweepExhausted(a)
		}
	}
}

func (p *Pipeline) sweepBroadcast(a arpcache.Action) {
	outIface, ok := p.Ctx.Interfaces.ByName(a.OutIface)
	if !ok {
		p.drop("sweep_unknown_iface", "iface", a.OutIface)
		return
	}
	p.broadcastARPRequest(outIface, a.IP)
}

func (p *Pipeline) sweepExhausted(a arpcache.Action) {
	metrics.ARPRequestsExhausted.Inc()
	for _, pkt := range a.Queue {
		p.sendHostUnreachable(pkt)
	}
}

// sendHostUnreachable synthesizes the ICMP destination-host-unreachable
// (type 3, code 1) reply for one packet whose ARP request exhausted all
// retries, per §4.3's terminal "exhausted" state.
func (p *Pipeline) sendHostUnreachable(pkt arpcache.Pending) {
	ef, err := ethernet.NewFrame(pkt.Bytes)
	if err != nil {
		return
	}
	ifrm, err := ipv4.NewFrame(ef.Payload())
	if err != nil {
		return
	}
	origSrc := *ifrm.SourceAddr()

	n := ifrm.HeaderLength() + 8
	if n > len(ifrm.RawData()) {
		n = len(ifrm.RawData())
	}
	origDatagram := ifrm.RawData()[:n]

	icmpBuf := make([]byte, 8+icmpv4.ErrorDataLen)
	if _, err := icmpv4.BuildError(icmpBuf, icmpv4.TypeDestinationUnreachable, uint8(icmpv4.CodeHostUnreachable), origDatagram); err != nil {
		return
	}

	ipLen := 20 + len(icmpBuf)
	outBuf := make([]byte, 14+ipLen)
	oef, _ := ethernet.NewFrame(outBuf)
	oef.SetEtherType(ethernet.TypeIPv4)

	oif, _ := ipv4.NewFrame(outBuf[14:])
	oif.SetVersionAndIHL(4, 5)
	oif.SetTotalLength(uint16(ipLen))
	oif.SetTTL(64)
	oif.SetProtocol(ipv4.ProtoICMP)
	*oif.SourceAddr() = pkt.SrcIP
	*oif.DestinationAddr() = origSrc
	copy(oif.Payload(), icmpBuf)
	oif.SetCRC(0)
	oif.SetCRC(oif.CalculateHeaderCRC())

	metrics.ICMPRepliesSent.WithLabelValues(icmpv4.TypeDestinationUnreachable.String()).Inc()
	p.egressRoute(outBuf, origSrc, pkt.SrcIP)
}
