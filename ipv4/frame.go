package ipv4

import (
	"encoding/binary"
	"errors"
	"fmt"
	"net/netip"

	"github.com/plaidnet/srouter"
)

// NewFrame returns a Frame with data set to buf. An error is returned if the
// buffer is smaller than the fixed 20-byte header. Callers should still call
// ValidateSize before touching options/payload to avoid a panic.
func NewFrame(buf []byte) (Frame, error) {
	if len(buf) < sizeHeader {
		return Frame{buf: nil}, errShort
	}
	return Frame{buf: buf}, nil
}

// Frame is a zero-copy view over an IPv4 header and payload. See RFC 791.
type Frame struct {
	buf []byte
}

// RawData returns the underlying slice the Frame was created with.
func (ifrm Frame) RawData() []byte { return ifrm.buf }

// HeaderLength returns the IPv4 header length in bytes, as given by IHL.
// It includes any IP options.
func (ifrm Frame) HeaderLength() int { return int(ifrm.ihl()) * 4 }

func (ifrm Frame) ihl() uint8     { return ifrm.buf[0] & 0xf }
func (ifrm Frame) version() uint8 { return ifrm.buf[0] >> 4 }

// VersionAndIHL returns the version and IHL fields. Version should always be 4.
func (ifrm Frame) VersionAndIHL() (version, IHL uint8) {
	v := ifrm.buf[0]
	return v >> 4, v & 0xf
}

// SetVersionAndIHL sets the version and IHL fields.
func (ifrm Frame) SetVersionAndIHL(version, IHL uint8) { ifrm.buf[0] = version<<4 | IHL&0xf }

// ToS returns the Type-of-Service field.
func (ifrm Frame) ToS() ToS { return ToS(ifrm.buf[1]) }

// SetToS sets the ToS field.
func (ifrm Frame) SetToS(tos ToS) { ifrm.buf[1] = byte(tos) }

// TotalLength returns the entire datagram size in bytes, header included.
func (ifrm Frame) TotalLength() uint16 { return binary.BigEndian.Uint16(ifrm.buf[2:4]) }

// SetTotalLength sets the TotalLength field.
func (ifrm Frame) SetTotalLength(tl uint16) { binary.BigEndian.PutUint16(ifrm.buf[2:4], tl) }

// ID identifies the datagram for reassembly of its fragments.
func (ifrm Frame) ID() uint16 { return binary.BigEndian.Uint16(ifrm.buf[4:6]) }

// SetID sets the ID field.
func (ifrm Frame) SetID(id uint16) { binary.BigEndian.PutUint16(ifrm.buf[4:6], id) }

// Flags returns the flags/fragment-offset field.
func (ifrm Frame) Flags() Flags { return Flags(binary.BigEndian.Uint16(ifrm.buf[6:8])) }

// SetFlags sets the flags/fragment-offset field.
func (ifrm Frame) SetFlags(flags Flags) {
	binary.BigEndian.PutUint16(ifrm.buf[6:8], uint16(flags))
}

// TTL returns the time-to-live / hop-count field.
func (ifrm Frame) TTL() uint8 { return ifrm.buf[8] }

// SetTTL sets the TTL field.
func (ifrm Frame) SetTTL(ttl uint8) { ifrm.buf[8] = ttl }

// Protocol returns the upper-layer protocol carried in the payload.
func (ifrm Frame) Protocol() Proto { return Proto(ifrm.buf[9]) }

// SetProtocol sets the protocol field.
func (ifrm Frame) SetProtocol(proto Proto) { ifrm.buf[9] = uint8(proto) }

// CRC returns the header checksum field.
func (ifrm Frame) CRC() uint16 { return binary.BigEndian.Uint16(ifrm.buf[10:12]) }

// SetCRC sets the header checksum field.
func (ifrm Frame) SetCRC(cs uint16) { binary.BigEndian.PutUint16(ifrm.buf[10:12], cs) }

// CalculateHeaderCRC computes the header checksum over the header as it
// stands, skipping the checksum field itself. IP options, if any, are
// included since they precede the payload within HeaderLength.
func (ifrm Frame) CalculateHeaderCRC() uint16 {
	var crc srouter.CRC791
	crc.Write(ifrm.buf[0:10])
	crc.Write(ifrm.buf[12:ifrm.HeaderLength()])
	return crc.Sum16()
}

// SourceAddr returns a pointer to the source address field.
func (ifrm Frame) SourceAddr() *[4]byte { return (*[4]byte)(ifrm.buf[12:16]) }

// DestinationAddr returns a pointer to the destination address field.
func (ifrm Frame) DestinationAddr() *[4]byte { return (*[4]byte)(ifrm.buf[16:20]) }

// Payload returns the datagram's payload. Call ValidateSize first.
func (ifrm Frame) Payload() []byte {
	off := ifrm.HeaderLength()
	l := ifrm.TotalLength()
	return ifrm.buf[off:l]
}

// Options returns the IP options portion of the header, which may be empty.
// Call ValidateSize first; the router does not interpret option contents,
// only skips over them.
func (ifrm Frame) Options() []byte {
	off := ifrm.HeaderLength()
	return ifrm.buf[sizeHeader:off]
}

// ClearHeader zeros out the fixed (non-option) header contents.
func (ifrm Frame) ClearHeader() {
	for i := range ifrm.buf[:sizeHeader] {
		ifrm.buf[i] = 0
	}
}

var (
	errBadTL      = errors.New("ipv4: bad total length")
	errShort      = errors.New("ipv4: short data")
	errBadIHL     = errors.New("ipv4: bad IHL")
	errBadVersion = errors.New("ipv4: bad version")
	errBadCRC     = errors.New("ipv4: bad header checksum")
)

// ValidateSize checks the frame's length fields against the backing buffer.
func (ifrm Frame) ValidateSize(v *srouter.Validator) {
	ihl := ifrm.ihl()
	tl := ifrm.TotalLength()
	if tl < sizeHeader {
		v.AddError(errBadTL)
	}
	if int(tl) > len(ifrm.RawData()) {
		v.AddError(errShort)
	}
	if ihl < 5 {
		v.AddError(errBadIHL)
	}
	if int(tl) < int(ihl)*4 {
		v.AddError(errBadTL)
	}
}

// ValidateExceptCRC checks size and version but skips checksum verification.
func (ifrm Frame) ValidateExceptCRC(v *srouter.Validator) {
	ifrm.ValidateSize(v)
	if ifrm.version() != 4 {
		v.AddError(errBadVersion)
	}
}

// ValidateCRC reports whether the header checksum is consistent with the
// header's current contents; a correctly-checksummed header sums to zero.
func (ifrm Frame) ValidateCRC(v *srouter.Validator) {
	var crc srouter.CRC791
	crc.Write(ifrm.buf[0:ifrm.HeaderLength()])
	if crc.Sum16() != 0 {
		v.AddError(errBadCRC)
	}
}

func (ifrm Frame) String() string {
	dst := netip.AddrFrom4(*ifrm.DestinationAddr())
	src := netip.AddrFrom4(*ifrm.SourceAddr())

	hl := ifrm.HeaderLength()
	tl := int(ifrm.TotalLength())
	ttl := ifrm.TTL()
	id := ifrm.ID()
	proto := ifrm.Protocol()
	tos := ifrm.ToS()
	return fmt.Sprintf("IP %s SRC=%s DST=%s LEN=%d OPT=%d TTL=%d ID=%d ToS=0x%x", proto, src, dst, tl, hl-sizeHeader, ttl, id, tos)
}
