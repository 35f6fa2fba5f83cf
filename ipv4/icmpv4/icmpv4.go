// Package icmpv4 implements the ICMP header view and message construction
// helpers the router uses to answer echo requests and synthesize the error
// messages its forwarding decisions produce. See RFC 792.
package icmpv4

import (
	"encoding/binary"
	"errors"

	"github.com/plaidnet/srouter"
)

// Type is the ICMP message type field.
type Type uint8

// Message types the router's pipeline emits or consumes.
const (
	TypeEchoReply              Type = 0
	TypeEcho                   Type = 8
	TypeDestinationUnreachable Type = 3
	TypeTimeExceeded           Type = 11
)

func (t Type) String() string {
	switch t {
	case TypeEchoReply:
		return "echo-reply"
	case TypeEcho:
		return "echo"
	case TypeDestinationUnreachable:
		return "dest-unreachable"
	case TypeTimeExceeded:
		return "time-exceeded"
	default:
		return "icmp"
	}
}

// CodeTimeExceeded enumerates the code byte of a type-11 message.
type CodeTimeExceeded uint8

// CodeExceededInTransit is the only time-exceeded code the router emits:
// it never reassembles fragments, so the fragment-reassembly code (1) does
// not apply.
const CodeExceededInTransit CodeTimeExceeded = 0

// CodeDestinationUnreachable enumerates the code byte of a type-3 message.
type CodeDestinationUnreachable uint8

// Destination-unreachable codes the router's pipeline synthesizes.
const (
	CodeNetUnreachable  CodeDestinationUnreachable = 0
	CodeHostUnreachable CodeDestinationUnreachable = 1
	CodePortUnreachable CodeDestinationUnreachable = 3
)

var errShortFrame = errors.New("icmpv4: short frame")

// NewFrame returns a Frame with data set to buf. An error is returned if buf
// cannot hold the fixed 8-byte ICMP header.
func NewFrame(buf []byte) (Frame, error) {
	if len(buf) < 8 {
		return Frame{}, errShortFrame
	}
	return Frame{buf: buf}, nil
}

// Frame is a zero-copy view over an ICMP header and payload.
type Frame struct {
	buf []byte
}

// RawData returns the underlying slice the Frame was created with.
func (frm Frame) RawData() []byte { return frm.buf }

// Type returns the message type field.
func (frm Frame) Type() Type { return Type(frm.buf[0]) }

// SetType sets the message type field.
func (frm Frame) SetType(t Type) { frm.buf[0] = uint8(t) }

// Code returns the message code field.
func (frm Frame) Code() uint8 { return frm.buf[1] }

// SetCode sets the message code field.
func (frm Frame) SetCode(code uint8) { frm.buf[1] = code }

// CRC returns the checksum field.
func (frm Frame) CRC() uint16 { return binary.BigEndian.Uint16(frm.buf[2:4]) }

// SetCRC sets the checksum field.
func (frm Frame) SetCRC(crc uint16) { binary.BigEndian.PutUint16(frm.buf[2:4], crc) }

// CalculateCRC computes the checksum over the frame's current contents,
// treating the checksum field itself as zero, per RFC 792 §3.1.
func (frm Frame) CalculateCRC() uint16 {
	var crc srouter.CRC791
	crc.AddUint16(binary.BigEndian.Uint16(frm.buf[0:2]))
	crc.Write(frm.buf[4:])
	return srouter.NeverZero(crc.Sum16())
}

// RestOfHeader returns the 4 bytes following type/code/checksum. Their
// meaning depends on Type: echo identifier+sequence, or unused for errors.
func (frm Frame) RestOfHeader() []byte { return frm.buf[4:8] }

// Data returns everything following the 8-byte ICMP header.
func (frm Frame) Data() []byte { return frm.buf[8:] }

// ValidateSize checks that buf can hold the fixed 8-byte header.
func (frm Frame) ValidateSize(v *srouter.Validator) {
	if len(frm.buf) < 8 {
		v.AddError(errShortFrame)
	}
}

// FrameEcho views an echo/echo-reply message (types 0 and 8).
type FrameEcho struct{ Frame }

// Identifier returns the echo identifier field.
func (frm FrameEcho) Identifier() uint16 { return binary.BigEndian.Uint16(frm.buf[4:6]) }

// SetIdentifier sets the echo identifier field.
func (frm FrameEcho) SetIdentifier(id uint16) { binary.BigEndian.PutUint16(frm.buf[4:6], id) }

// SequenceNumber returns the echo sequence number field.
func (frm FrameEcho) SequenceNumber() uint16 { return binary.BigEndian.Uint16(frm.buf[6:8]) }

// SetSequenceNumber sets the echo sequence number field.
func (frm FrameEcho) SetSequenceNumber(seq uint16) {
	binary.BigEndian.PutUint16(frm.buf[6:8], seq)
}

// BuildEchoReply turns dst (an 8-byte-plus ICMP header buffer, already sized
// to hold echoLen bytes) into an echo reply carrying the same identifier,
// sequence number and payload as src, an echo request of echoLen bytes.
// The caller is responsible for the surrounding IP/Ethernet fields.
func BuildEchoReply(dst, src []byte, echoLen int) (Frame, error) {
	if len(dst) < echoLen || len(src) < echoLen {
		return Frame{}, errShortFrame
	}
	copy(dst[:echoLen], src[:echoLen])
	frm, err := NewFrame(dst[:echoLen])
	if err != nil {
		return Frame{}, err
	}
	frm.SetType(TypeEchoReply)
	frm.SetCode(0)
	frm.SetCRC(0)
	frm.SetCRC(frm.CalculateCRC())
	return frm, nil
}

// ErrorDataLen is the number of bytes of the original datagram (IP header
// plus the first 8 payload bytes, zero-padded if shorter) that error
// messages of type 3 and 11 carry in their data field.
const ErrorDataLen = 28

// BuildError writes a type-3 or type-11 ICMP error message into dst, which
// must be at least 8+ErrorDataLen bytes, carrying origDatagram (the
// original IP header plus up to its first 8 payload bytes) zero-padded to
// ErrorDataLen in the data field. code's meaning depends on t.
func BuildError(dst []byte, t Type, code uint8, origDatagram []byte) (Frame, error) {
	want := 8 + ErrorDataLen
	if len(dst) < want {
		return Frame{}, errShortFrame
	}
	frm, err := NewFrame(dst[:want])
	if err != nil {
		return Frame{}, err
	}
	for i := range frm.RestOfHeader() {
		frm.buf[4+i] = 0
	}
	data := frm.Data()
	n := copy(data, origDatagram)
	for i := n; i < len(data); i++ {
		data[i] = 0
	}
	frm.SetType(t)
	frm.SetCode(code)
	frm.SetCRC(0)
	frm.SetCRC(frm.CalculateCRC())
	return frm, nil
}
