package arp

import (
	"encoding/binary"
	"fmt"
	"net"
	"net/netip"

	"github.com/plaidnet/srouter"
	"github.com/plaidnet/srouter/ethernet"
)

// hardwareEthernet with ethernet.TypeIPv4, at these address lengths, is the
// only link/protocol combination the router's ARP codec emits or accepts.
const (
	hardwareEthernet uint16 = 1
	hwLen            uint8  = 6
	protoLen         uint8  = 4
)

// NewFrame returns a Frame with data set to buf. An error is returned if the
// buffer is smaller than the fixed 28-byte IPv4-over-Ethernet ARP packet.
func NewFrame(buf []byte) (Frame, error) {
	if len(buf) < sizeHeaderv4 {
		return Frame{buf: nil}, errShortARP
	}
	return Frame{buf: buf}, nil
}

// Frame is a zero-copy view over an ARP packet resolving IPv4 addresses to
// Ethernet MAC addresses.
type Frame struct {
	buf []byte
}

// RawData returns the underlying slice the Frame was created with.
func (afrm Frame) RawData() []byte { return afrm.buf }

// Hardware returns the hardware type and address-length fields.
func (afrm Frame) Hardware() (typ uint16, length uint8) {
	return binary.BigEndian.Uint16(afrm.buf[0:2]), afrm.buf[4]
}

// SetHardware sets the hardware type and address-length fields.
func (afrm Frame) SetHardware(typ uint16, length uint8) {
	binary.BigEndian.PutUint16(afrm.buf[0:2], typ)
	afrm.buf[4] = length
}

// Protocol returns the protocol type and address-length fields.
func (afrm Frame) Protocol() (typ ethernet.Type, length uint8) {
	return ethernet.Type(binary.BigEndian.Uint16(afrm.buf[2:4])), afrm.buf[5]
}

// SetProtocol sets the protocol type and address-length fields.
func (afrm Frame) SetProtocol(typ ethernet.Type, length uint8) {
	binary.BigEndian.PutUint16(afrm.buf[2:4], uint16(typ))
	afrm.buf[5] = length
}

// Operation returns the ARP opcode field.
func (afrm Frame) Operation() Operation { return Operation(binary.BigEndian.Uint16(afrm.buf[6:8])) }

// SetOperation sets the ARP opcode field.
func (afrm Frame) SetOperation(op Operation) { binary.BigEndian.PutUint16(afrm.buf[6:8], uint16(op)) }

// Sender returns pointers to the sender hardware and protocol addresses.
func (afrm Frame) Sender() (hw *[6]byte, proto *[4]byte) {
	return (*[6]byte)(afrm.buf[8:14]), (*[4]byte)(afrm.buf[14:18])
}

// Target returns pointers to the target hardware and protocol addresses.
func (afrm Frame) Target() (hw *[6]byte, proto *[4]byte) {
	return (*[6]byte)(afrm.buf[18:24]), (*[4]byte)(afrm.buf[24:28])
}

// ClearHeader zeros out the fixed header contents.
func (afrm Frame) ClearHeader() {
	for i := range afrm.buf[:sizeHeaderv4] {
		afrm.buf[i] = 0
	}
}

// SetupIPv4Request turns buf (already carrying a Frame) into a well-formed
// ARP-over-Ethernet IPv4 request asking who owns targetIP, sent from
// (senderMAC, senderIP).
func (afrm Frame) SetupIPv4Request(senderMAC [6]byte, senderIP [4]byte, targetIP [4]byte) {
	afrm.SetHardware(hardwareEthernet, hwLen)
	afrm.SetProtocol(ethernet.TypeIPv4, protoLen)
	afrm.SetOperation(OpRequest)
	shw, sip := afrm.Sender()
	*shw, *sip = senderMAC, senderIP
	thw, tip := afrm.Target()
	*thw, *tip = [6]byte{}, targetIP
}

// SetupIPv4Reply turns buf into a well-formed ARP-over-Ethernet IPv4 reply
// answering req, asserting that targetIP (the request's sender) should now
// address senderIP at senderMAC.
func (afrm Frame) SetupIPv4Reply(req Frame, senderMAC [6]byte, senderIP [4]byte) {
	reqSHW, reqSIP := req.Sender()
	afrm.SetHardware(hardwareEthernet, hwLen)
	afrm.SetProtocol(ethernet.TypeIPv4, protoLen)
	afrm.SetOperation(OpReply)
	shw, sip := afrm.Sender()
	*shw, *sip = senderMAC, senderIP
	thw, tip := afrm.Target()
	*thw, *tip = *reqSHW, *reqSIP
}

// ValidateSize checks the frame's declared address lengths against the
// backing buffer and rejects anything but Ethernet/IPv4.
func (afrm Frame) ValidateSize(v *srouter.Validator) {
	if len(afrm.buf) < sizeHeader {
		v.AddError(errShortARP)
		return
	}
	hwt, hlen := afrm.Hardware()
	pt, plen := afrm.Protocol()
	if hwt != hardwareEthernet || hlen != hwLen || pt != ethernet.TypeIPv4 || plen != protoLen {
		v.AddError(errShortARP)
		return
	}
	if len(afrm.buf) < sizeHeaderv4 {
		v.AddError(errShortARP)
	}
}

func (afrm Frame) String() string {
	op := afrm.Operation()
	proto, _ := afrm.Protocol()
	shw, sip := afrm.Sender()
	thw, tip := afrm.Target()
	return fmt.Sprintf("ARP %s HW=(SENDER=%s,TARGET=%s) %s=(SENDER=%s,TARGET=%s)",
		op, net.HardwareAddr(shw[:]), net.HardwareAddr(thw[:]),
		proto, netip.AddrFrom4(*sip), netip.AddrFrom4(*tip))
}
