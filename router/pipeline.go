// Package router implements the packet classifier and forwarding pipeline
// (the frame-handling core) and the periodic ARP-resolver worker that
// drives it. It is the component every inbound frame and every outbound
// ARP/ICMP message passes through.
package router

import (
	"log/slog"
	"time"

	"github.com/plaidnet/srouter"
	"github.com/plaidnet/srouter/arp"
	"github.com/plaidnet/srouter/arpcache"
	"github.com/plaidnet/srouter/ethernet"
	"github.com/plaidnet/srouter/iface"
	"github.com/plaidnet/srouter/internal"
	"github.com/plaidnet/srouter/ipv4"
	"github.com/plaidnet/srouter/ipv4/icmpv4"
	"github.com/plaidnet/srouter/metrics"
)

// Sender transmits a complete Ethernet frame on a named interface. It is
// the only blocking call in the pipeline; implementations should treat
// send failures as best-effort, since the pipeline never retries them.
type Sender interface {
	SendFrame(ifaceName string, frame []byte) error
}

// Pipeline dispatches inbound frames and implements the router's
// forwarding decision and ICMP error synthesis.
type Pipeline struct {
	Ctx  *iface.Context
	Send Sender
	Log  *slog.Logger
}

// New returns a Pipeline ready to handle frames.
func New(ctx *iface.Context, send Sender, log *slog.Logger) *Pipeline {
	if log == nil {
		log = slog.Default()
	}
	return &Pipeline{Ctx: ctx, Send: send, Log: log}
}

func (p *Pipeline) drop(reason string, attrs ...any) {
	metrics.FramesDropped.WithLabelValues(reason).Inc()
	p.Log.Debug("dropped frame", append([]any{"reason", reason}, attrs...)...)
}

// HandleFrame is the pipeline's entry point: it classifies one inbound
// frame received on rxIface and either answers it locally, forwards it, or
// drops it. buf is borrowed for the duration of the call.
func (p *Pipeline) HandleFrame(rxIface string, buf []byte) {
	rx, ok := p.Ctx.Interfaces.ByName(rxIface)
	if !ok {
		p.drop("unknown_iface", "iface", rxIface)
		return
	}
	efrm, err := ethernet.NewFrame(buf)
	if err != nil {
		p.drop("too_short")
		return
	}
	var v srouter.Validator
	efrm.ValidateSize(&v)
	if v.HasError() {
		p.drop("bad_ethernet_size", "err", v.Err())
		return
	}

	et := efrm.EtherTypeOrSize()
	metrics.FramesReceived.WithLabelValues(rxIface, et.String()).Inc()
	switch et {
	case ethernet.TypeARP:
		p.handleARP(rx, efrm)
	case ethernet.TypeIPv4:
		p.handleIPv4(rx, efrm)
	default:
		p.drop("unhandled_ethertype", "ethertype", et.String())
	}
}

func (p *Pipeline) handleARP(rx iface.Interface, efrm ethernet.Frame) {
	afrm, err := arp.NewFrame(efrm.Payload())
	if err != nil {
		p.drop("short_arp")
		return
	}
	var v srouter.Validator
	afrm.ValidateSize(&v)
	if v.HasError() {
		p.drop("bad_arp", "err", v.Err())
		return
	}

	switch afrm.Operation() {
	case arp.OpRequest:
		_, targetIP := afrm.Target()
		if *targetIP != rx.IPv4 {
			p.drop("arp_not_for_us")
			return
		}
		p.sendARPReply(rx, afrm)
	case arp.OpReply:
		senderHW, senderIP := afrm.Sender()
		p.Log.Debug("arp reply learned", internal.SlogIPv4("ip", *senderIP), internal.SlogMAC("mac", *senderHW))
		flushed, hadRequest := p.Ctx.ARP.Insert(*senderIP, *senderHW)
		if hadRequest {
			for _, pkt := range flushed.Queue {
				p.flushPending(pkt, *senderHW)
			}
		}
	default:
		p.drop("arp_unknown_op")
	}
}

func (p *Pipeline) sendARPReply(rx iface.Interface, req arp.Frame) {
	buf := make([]byte, 14+28)
	oef, _ := ethernet.NewFrame(buf)
	reqSenderHW, _ := req.Sender()
	*oef.DestinationHardwareAddr() = *reqSenderHW
	*oef.SourceHardwareAddr() = rx.MAC
	oef.SetEtherType(ethernet.TypeARP)

	oaf, _ := arp.NewFrame(buf[14:])
	oaf.SetupIPv4Reply(req, rx.MAC, rx.IPv4)
	p.sendFrame(rx.Name, buf)
}

func (p *Pipeline) flushPending(pkt arpcache.Pending, mac [6]byte) {
	ef, err := ethernet.NewFrame(pkt.Bytes)
	if err != nil {
		return
	}
	*ef.DestinationHardwareAddr() = mac
	p.sendFrame(pkt.OutIface, pkt.Bytes)
}

func (p *Pipeline) handleIPv4(rx iface.Interface, efrm ethernet.Frame) {
	ifrm, err := ipv4.NewFrame(efrm.Payload())
	if err != nil {
		p.drop("short_ipv4")
		return
	}
	var v srouter.Validator
	ifrm.ValidateExceptCRC(&v)
	if v.HasError() {
		p.drop("bad_ipv4", "err", v.Err())
		return
	}
	ifrm.ValidateCRC(&v)
	if v.HasError() {
		p.drop("bad_checksum")
		return
	}
	// Clip to the datagram's declared length: the Ethernet payload may
	// include trailing driver padding beyond ip.total_len.
	ifrm, _ = ipv4.NewFrame(ifrm.RawData()[:ifrm.TotalLength()])

	dst := *ifrm.DestinationAddr()
	if local, ok := p.Ctx.Interfaces.ByIPv4(dst); ok {
		p.handleLocal(rx, efrm, ifrm, local)
		return
	}
	p.handleTransit(rx, efrm, ifrm)
}

func (p *Pipeline) handleLocal(rx iface.Interface, efrm ethernet.Frame, ifrm ipv4.Frame, local iface.Interface) {
	if ifrm.Protocol() == ipv4.ProtoICMP {
		icmpFrm, err := icmpv4.NewFrame(ifrm.Payload())
		if err == nil {
			var v srouter.Validator
			icmpFrm.ValidateSize(&v)
			if !v.HasError() && icmpFrm.Type() == icmpv4.TypeEcho {
				p.sendEchoReply(rx, ifrm, icmpv4.FrameEcho{Frame: icmpFrm}, local)
				return
			}
		}
		// Any other ICMP message addressed to the router (replies, errors,
		// etc.) is dropped silently; only non-ICMP traffic gets a
		// port-unreachable below.
		p.drop("icmp_not_echo")
		return
	}
	p.sendICMPError(rx, ifrm, icmpv4.TypeDestinationUnreachable, uint8(icmpv4.CodePortUnreachable), local.IPv4)
}

func (p *Pipeline) sendEchoReply(rx iface.Interface, ifrm ipv4.Frame, echo icmpv4.FrameEcho, local iface.Interface) {
	if ifrm.HeaderLength() != 20 {
		// Echo-reply construction assumes an options-free header; a
		// datagram with IP options is dropped rather than handled.
		p.drop("echo_reply_has_options")
		return
	}
	icmpLen := int(ifrm.TotalLength()) - ifrm.HeaderLength()
	ipLen := 20 + icmpLen
	outBuf := make([]byte, 14+ipLen)

	oef, _ := ethernet.NewFrame(outBuf)
	oef.SetEtherType(ethernet.TypeIPv4)

	oif, _ := ipv4.NewFrame(outBuf[14:])
	oif.SetVersionAndIHL(4, 5)
	oif.SetTotalLength(uint16(ipLen))
	oif.SetFlags(0)
	oif.SetTTL(64)
	oif.SetProtocol(ipv4.ProtoICMP)
	*oif.SourceAddr() = local.IPv4
	*oif.DestinationAddr() = *ifrm.SourceAddr()

	if _, err := icmpv4.BuildEchoReply(oif.Payload(), echo.RawData(), icmpLen); err != nil {
		p.drop("echo_reply_build_failed", "err", err)
		return
	}

	oif.SetCRC(0)
	oif.SetCRC(oif.CalculateHeaderCRC())

	metrics.ICMPRepliesSent.WithLabelValues(icmpv4.TypeEchoReply.String()).Inc()
	p.egressRoute(outBuf, *ifrm.SourceAddr(), rx.IPv4)
}

func (p *Pipeline) handleTransit(rx iface.Interface, efrm ethernet.Frame, ifrm ipv4.Frame) {
	dst := *ifrm.DestinationAddr()
	route, ok := p.Ctx.Routes.Lookup(dst)
	if !ok {
		p.sendICMPError(rx, ifrm, icmpv4.TypeDestinationUnreachable, uint8(icmpv4.CodeNetUnreachable), rx.IPv4)
		return
	}
	if ifrm.TTL() <= 1 {
		p.sendICMPError(rx, ifrm, icmpv4.TypeTimeExceeded, uint8(icmpv4.CodeExceededInTransit), rx.IPv4)
		return
	}
	outIface, ok := p.Ctx.Interfaces.ByName(route.OutIface)
	if !ok {
		p.drop("route_to_unknown_iface", "iface", route.OutIface)
		return
	}

	ifrm.SetTTL(ifrm.TTL() - 1)
	ifrm.SetCRC(0)
	ifrm.SetCRC(ifrm.CalculateHeaderCRC())

	frame := efrm.RawData()[:efrm.HeaderLength()+int(ifrm.TotalLength())]
	metrics.PacketsForwarded.WithLabelValues(outIface.Name).Inc()
	p.egress(outIface, route.Gateway, frame, rx.IPv4)
}

func (p *Pipeline) sendICMPError(rx iface.Interface, ifrm ipv4.Frame, t icmpv4.Type, code uint8, srcIP [4]byte) {
	n := ifrm.HeaderLength() + 8
	if n > len(ifrm.RawData()) {
		n = len(ifrm.RawData())
	}
	origDatagram := ifrm.RawData()[:n]

	icmpBuf := make([]byte, 8+icmpv4.ErrorDataLen)
	if _, err := icmpv4.BuildError(icmpBuf, t, code, origDatagram); err != nil {
		p.drop("icmp_error_build_failed", "err", err)
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
	*oif.SourceAddr() = srcIP
	*oif.DestinationAddr() = *ifrm.SourceAddr()
	copy(oif.Payload(), icmpBuf)
	oif.SetCRC(0)
	oif.SetCRC(oif.CalculateHeaderCRC())

	metrics.ICMPRepliesSent.WithLabelValues(t.String()).Inc()
	p.egressRoute(outBuf, *ifrm.SourceAddr(), rx.IPv4)
}

// egressRoute performs the route lookup §4.4.3 expects before handing the
// datagram to egress. A miss is a silent drop: self-originated replies
// never recurse into another round of ICMP error synthesis.
func (p *Pipeline) egressRoute(frame []byte, dstIP, srcIfaceIP [4]byte) {
	route, ok := p.Ctx.Routes.Lookup(dstIP)
	if !ok {
		p.drop("no_route_for_reply")
		return
	}
	outIface, ok := p.Ctx.Interfaces.ByName(route.OutIface)
	if !ok {
		p.drop("route_to_unknown_iface", "iface", route.OutIface)
		return
	}
	p.egress(outIface, route.Gateway, frame, srcIfaceIP)
}

// egress implements §4.4.3: set the outgoing source MAC, then either send
// immediately on an ARP cache hit or queue behind a coalesced ARP request.
func (p *Pipeline) egress(outIface iface.Interface, nextHop [4]byte, frame []byte, srcIfaceIP [4]byte) {
	ef, err := ethernet.NewFrame(frame)
	if err != nil {
		return
	}
	*ef.SourceHardwareAddr() = outIface.MAC

	if mac, ok := p.Ctx.ARP.Lookup(nextHop); ok {
		*ef.DestinationHardwareAddr() = mac
		p.sendFrame(outIface.Name, frame)
		return
	}

	owned := append([]byte(nil), frame...)
	fresh := p.Ctx.ARP.QueueRequest(nextHop, arpcache.Pending{
		Bytes:    owned,
		OutIface: outIface.Name,
		SrcIP:    srcIfaceIP,
	})
	if fresh {
		p.broadcastARPRequest(outIface, nextHop)
		p.Ctx.ARP.MarkSent(nextHop, time.Now())
	}
}

func (p *Pipeline) broadcastARPRequest(outIface iface.Interface, targetIP [4]byte) {
	buf := make([]byte, 14+28)
	ef, _ := ethernet.NewFrame(buf)
	*ef.DestinationHardwareAddr() = ethernet.BroadcastAddr()
	*ef.SourceHardwareAddr() = outIface.MAC
	ef.SetEtherType(ethernet.TypeARP)

	af, _ := arp.NewFrame(buf[14:])
	af.SetupIPv4Request(outIface.MAC, outIface.IPv4, targetIP)

	metrics.ARPRequestsSent.Inc()
	p.sendFrame(outIface.Name, buf)
}

func (p *Pipeline) sendFrame(ifaceName string, frame []byte) {
	if err := p.Send.SendFrame(ifaceName, frame); err != nil {
		p.Log.Warn("send_frame failed", "iface", ifaceName, "err", err)
	}
}
