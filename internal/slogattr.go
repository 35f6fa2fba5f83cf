package internal

import (
	"log/slog"
	"net"
	"net/netip"
)

// SlogIPv4 returns a slog.Attr rendering a 4-byte IPv4 address as dotted text.
func SlogIPv4(key string, addr [4]byte) slog.Attr {
	return slog.String(key, netip.AddrFrom4(addr).String())
}

// SlogMAC returns a slog.Attr rendering a 6-byte hardware address as colon-hex text.
func SlogMAC(key string, addr [6]byte) slog.Attr {
	return slog.String(key, net.HardwareAddr(addr[:]).String())
}
