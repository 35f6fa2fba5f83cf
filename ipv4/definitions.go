// Package ipv4 implements the IPv4 header view used by the router's wire
// codec: parsing, field mutation, and checksum computation. IP options are
// never interpreted, only skipped via IHL, per the router's scope.
package ipv4

const sizeHeader = 20

// ToS represents the Type-of-Service / Traffic-Class octet: 6 bits of
// Differentiated Services Code Point plus 2 bits of Explicit Congestion Notification.
type ToS uint8

// DS returns the Differentiated Services Code Point.
func (tos ToS) DS() uint8 { return uint8(tos) >> 2 }

// ECN returns the Explicit Congestion Notification bits.
func (tos ToS) ECN() uint8 { return uint8(tos & 0b11) }

// Flags holds the 3-bit flags field plus the 13-bit fragment offset that
// together make up the IPv4 header's 16-bit flags/fragment-offset word.
type Flags uint16

// DontFragment reports whether the DF bit is set.
func (f Flags) DontFragment() bool { return f&0x4000 != 0 }

// MoreFragments reports whether the MF bit is set.
func (f Flags) MoreFragments() bool { return f&0x2000 != 0 }

// FragmentOffset returns the fragment offset in 8-byte units.
func (f Flags) FragmentOffset() uint16 { return uint16(f) & 0x1fff }

// Proto identifies the protocol carried in the IPv4 payload.
type Proto uint8

// Protocol numbers the router's pipeline inspects.
const (
	ProtoICMP Proto = 1
	ProtoTCP  Proto = 6
	ProtoUDP  Proto = 17
)

func (p Proto) String() string {
	switch p {
	case ProtoICMP:
		return "ICMP"
	case ProtoTCP:
		return "TCP"
	case ProtoUDP:
		return "UDP"
	default:
		return "proto"
	}
}
