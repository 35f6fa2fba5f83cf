//go:build linux

// Package driver binds the router core to a host network interface via an
// AF_PACKET raw socket, so the router reads and writes real Ethernet frames
// on an interface the host already owns (a physical NIC or a pre-created
// TAP device) instead of a simulated link.
package driver

import (
	"encoding/binary"
	"fmt"
	"math/bits"
	"net"
	"net/netip"
	"syscall"
	"unsafe"
)

const safamilyHW6 = 1

// Bridge is a raw socket bound to an existing named interface, delivering
// every frame the interface sees (ETH_P_ALL) and accepting whole Ethernet
// frames for transmission.
type Bridge struct {
	fd    int
	name  string
	index int
}

// Open binds a Bridge to the named interface. The interface must already
// exist and be up; Open does not create or configure it.
func Open(name string) (*Bridge, error) {
	iface, err := net.InterfaceByName(name)
	if err != nil {
		return nil, err
	}
	proto := htons(syscall.ETH_P_ALL)
	fd, err := syscall.Socket(syscall.AF_PACKET, syscall.SOCK_RAW, int(proto))
	if err != nil {
		return nil, err
	}
	ll := syscall.SockaddrLinklayer{
		Protocol: proto,
		Ifindex:  iface.Index,
	}
	if err := syscall.Bind(fd, &ll); err != nil {
		syscall.Close(fd)
		return nil, err
	}
	return &Bridge{fd: fd, name: iface.Name, index: iface.Index}, nil
}

// Write transmits a complete Ethernet frame.
func (br *Bridge) Write(frame []byte) (int, error) { return syscall.Write(br.fd, frame) }

// Read blocks until a frame arrives on the interface and copies it into buf.
func (br *Bridge) Read(buf []byte) (int, error) { return syscall.Read(br.fd, buf) }

// Close releases the underlying socket.
func (br *Bridge) Close() error { return syscall.Close(br.fd) }

// Name returns the bound interface's name.
func (br *Bridge) Name() string { return br.name }

// HardwareAddress6 returns the interface's MAC address.
func (br *Bridge) HardwareAddress6() (hw [6]byte, err error) {
	sock, err := br.ctrlSock()
	if err != nil {
		return hw, err
	}
	defer syscall.Close(sock)
	ifr := makeifreq(br.name)
	err = ioctl(sock, syscall.SIOCGIFHWADDR, ifr.ptr())
	if err != nil {
		return hw, err
	}
	family := *(*uint16)(unsafe.Pointer(&ifr.data[0]))
	if family != safamilyHW6 {
		return hw, fmt.Errorf("driver: unexpected sa_family %d for hwaddr", family)
	}
	copy(hw[:], ifr.data[2:])
	return hw, nil
}

// Addr returns the interface's configured IPv4 address and prefix length.
func (br *Bridge) Addr() (netip.Prefix, error) {
	sock, err := br.ctrlSock()
	if err != nil {
		return netip.Prefix{}, err
	}
	defer syscall.Close(sock)
	ifr := makeifreq(br.name)
	if err := ioctl(sock, syscall.SIOCGIFADDR, ifr.ptr()); err != nil {
		return netip.Prefix{}, err
	}
	family := *(*uint16)(unsafe.Pointer(&ifr.data[0]))
	if family != 2 { // AF_INET
		return netip.Prefix{}, fmt.Errorf("driver: unsupported sa_family %d for addr", family)
	}
	addr, _ := netip.AddrFromSlice(ifr.data[4:8])

	ifr = makeifreq(br.name)
	if err := ioctl(sock, syscall.SIOCGIFNETMASK, ifr.ptr()); err != nil {
		return netip.Prefix{}, err
	}
	mask := binary.BigEndian.Uint32(ifr.data[4:8])
	return netip.PrefixFrom(addr, bits.OnesCount32(mask)), nil
}

// MTU returns the interface's configured MTU.
func (br *Bridge) MTU() (int, error) {
	sock, err := br.ctrlSock()
	if err != nil {
		return 0, err
	}
	defer syscall.Close(sock)
	ifr := makeifreq(br.name)
	if err := ioctl(sock, syscall.SIOCGIFMTU, ifr.ptr()); err != nil {
		return 0, err
	}
	return int(*(*int32)(unsafe.Pointer(&ifr.data[0]))), nil
}

func (br *Bridge) ctrlSock() (int, error) {
	return syscall.Socket(syscall.AF_INET, syscall.SOCK_DGRAM, syscall.IPPROTO_IP)
}

func ioctl(fd int, request uintptr, argp unsafe.Pointer) error {
	_, _, errno := syscall.Syscall(syscall.SYS_IOCTL, uintptr(fd), request, uintptr(argp))
	if errno != 0 {
		return errno
	}
	return nil
}

type ifreq struct {
	name [syscall.IFNAMSIZ]byte
	data [64]byte
}

func makeifreq(name string) ifreq {
	var ifr ifreq
	copy(ifr.name[:], name)
	return ifr
}

func (ifr *ifreq) ptr() unsafe.Pointer { return unsafe.Pointer(ifr) }

func htons(i uint16) uint16 { return (i<<8)&0xff00 | i>>8 }
