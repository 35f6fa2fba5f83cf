// Package ethernet implements the Ethernet II frame header used to carry
// ARP and IPv4 traffic between the router and its neighbors.
package ethernet

import "strconv"

const sizeHeaderNoVLAN = 14

// AppendAddr appends the colon-hex text representation of a MAC address to dst.
func AppendAddr(dst []byte, hwAddr [6]byte) []byte {
	for i, b := range hwAddr {
		if i != 0 {
			dst = append(dst, ':')
		}
		if b < 16 {
			dst = append(dst, '0')
		}
		dst = strconv.AppendUint(dst, uint64(b), 16)
	}
	return dst
}

// BroadcastAddr returns the all-0xff broadcast MAC address.
func BroadcastAddr() [6]byte {
	return [6]byte{0xff, 0xff, 0xff, 0xff, 0xff, 0xff}
}

// Type is the EtherType field of an Ethernet II frame.
type Type uint16

// IsSize returns true if the EtherType is actually the size of the payload
// (802.3 framing) and should NOT be interpreted as an EtherType.
func (et Type) IsSize() bool { return et <= 1500 }

// Ethernet types the router's wire codec understands.
const (
	TypeIPv4 Type = 0x0800 // IPv4
	TypeARP  Type = 0x0806 // ARP
	TypeVLAN Type = 0x8100 // VLAN
)

func (et Type) String() string {
	switch et {
	case TypeIPv4:
		return "IPv4"
	case TypeARP:
		return "ARP"
	case TypeVLAN:
		return "VLAN"
	default:
		var buf [4]byte
		return "0x" + string(appendHex(buf[:0], uint16(et)))
	}
}

func appendHex(dst []byte, v uint16) []byte {
	const hextable = "0123456789abcdef"
	return append(dst, hextable[v>>12&0xf], hextable[v>>8&0xf], hextable[v>>4&0xf], hextable[v&0xf])
}

// VLANTag holds the priority (PCP), drop-eligible (DEI) and VLAN ID bits of
// the 802.1Q VLAN tag field.
type VLANTag uint16

// DropEligibleIndicator returns true if the DEI bit is set.
func (vt VLANTag) DropEligibleIndicator() bool { return vt&(1<<12) != 0 }

// PriorityCodePoint returns the 3-bit 802.1p class-of-service field.
func (vt VLANTag) PriorityCodePoint() uint8 { return uint8(vt >> 13) }

// VLANIdentifier returns the 12-bit VLAN ID field.
func (vt VLANTag) VLANIdentifier() uint16 { return uint16(vt) & 0x0fff }
