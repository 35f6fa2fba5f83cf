package ethernet

import (
	"encoding/binary"
	"errors"

	"github.com/plaidnet/srouter"
)

// NewFrame returns a Frame with data set to buf. An error is returned if the
// buffer cannot hold the fixed 14-byte Ethernet II header. Callers should
// still call ValidateSize before touching VLAN fields to avoid a panic.
func NewFrame(buf []byte) (Frame, error) {
	if len(buf) < sizeHeaderNoVLAN {
		return Frame{buf: nil}, errShort
	}
	return Frame{buf: buf}, nil
}

// Frame is a zero-copy view over an Ethernet II header and payload. It does
// not own the backing storage, which must outlive the Frame.
type Frame struct {
	buf []byte
}

// RawData returns the underlying slice the Frame was created with.
func (efrm Frame) RawData() []byte { return efrm.buf }

// HeaderLength returns 14, or 18 for a VLAN-tagged frame.
func (efrm Frame) HeaderLength() int {
	if efrm.IsVLAN() {
		return 18
	}
	return sizeHeaderNoVLAN
}

// Payload returns the data portion of the frame, honoring VLAN tagging and
// 802.3 length-as-EtherType framing.
func (efrm Frame) Payload() []byte {
	hl := efrm.HeaderLength()
	et := efrm.EtherTypeOrSize()
	if et.IsSize() {
		return efrm.buf[hl : hl+int(et)]
	}
	return efrm.buf[hl:]
}

// DestinationHardwareAddr returns the frame's destination MAC address.
func (efrm Frame) DestinationHardwareAddr() (dst *[6]byte) {
	return (*[6]byte)(efrm.buf[0:6])
}

// IsBroadcast reports whether the destination is the Ethernet broadcast address.
func (efrm Frame) IsBroadcast() bool {
	return efrm.buf[0] == 0xff && efrm.buf[1] == 0xff && efrm.buf[2] == 0xff &&
		efrm.buf[3] == 0xff && efrm.buf[4] == 0xff && efrm.buf[5] == 0xff
}

// SourceHardwareAddr returns the frame's source MAC address.
func (efrm Frame) SourceHardwareAddr() (src *[6]byte) {
	return (*[6]byte)(efrm.buf[6:12])
}

// EtherTypeOrSize returns the EtherType/Size field. Check Type.IsSize before
// interpreting it as a protocol identifier.
func (efrm Frame) EtherTypeOrSize() Type {
	return Type(binary.BigEndian.Uint16(efrm.buf[12:14]))
}

// SetEtherType sets the EtherType field.
func (efrm Frame) SetEtherType(v Type) {
	binary.BigEndian.PutUint16(efrm.buf[12:14], uint16(v))
}

// VLANTag returns the VLAN tag field following the TPID. Call ValidateSize first.
func (efrm Frame) VLANTag() VLANTag { return VLANTag(binary.BigEndian.Uint16(efrm.buf[14:16])) }

// VLANEtherType returns the EtherType carried after a VLAN tag.
func (efrm Frame) VLANEtherType() Type {
	return Type(binary.BigEndian.Uint16(efrm.buf[16:18]))
}

// IsVLAN reports whether EtherTypeOrSize is the VLAN TPID (0x8100).
func (efrm Frame) IsVLAN() bool {
	return efrm.EtherTypeOrSize() == TypeVLAN
}

// ClearHeader zeros out the fixed (non-VLAN) header contents.
func (efrm Frame) ClearHeader() {
	for i := range efrm.buf[:sizeHeaderNoVLAN] {
		efrm.buf[i] = 0
	}
}

var (
	errShort     = errors.New("ethernet: too short")
	errShortVLAN = errors.New("ethernet: short VLAN")
)

// ValidateSize checks the frame's size fields against the backing buffer.
func (efrm Frame) ValidateSize(v *srouter.Validator) {
	sz := efrm.EtherTypeOrSize()
	if sz.IsSize() && len(efrm.buf) < int(sz) {
		v.AddError(errShort)
	}
	if sz == TypeVLAN && len(efrm.buf) < 18 {
		v.AddError(errShortVLAN)
	}
}
