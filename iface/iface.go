// Package iface holds the router's immutable interface inventory and the
// shared, read-mostly context (interfaces, routes, ARP cache) the packet
// pipeline and periodic worker both operate on.
package iface

import (
	"net/netip"

	"github.com/plaidnet/srouter/arpcache"
	"github.com/plaidnet/srouter/routetable"
)

// Interface describes one of the router's network-facing ports. It is
// immutable once the inventory is built at startup.
type Interface struct {
	Name string
	MAC  [6]byte
	IPv4 [4]byte
}

// Addr returns the interface's IPv4 address as a netip.Addr, for logging.
func (i Interface) Addr() netip.Addr { return netip.AddrFrom4(i.IPv4) }

// Inventory is the fixed set of interfaces the router was started with. A
// name uniquely identifies one interface; the set never changes after
// construction.
type Inventory struct {
	byName map[string]Interface
	ips    map[[4]byte]Interface
	all    []Interface
}

// NewInventory builds an Inventory from a list of interfaces. It panics if
// two interfaces share a name, since that would make lookups ambiguous and
// can only reflect a configuration bug.
func NewInventory(ifaces []Interface) *Inventory {
	inv := &Inventory{
		byName: make(map[string]Interface, len(ifaces)),
		ips:    make(map[[4]byte]Interface, len(ifaces)),
		all:    append([]Interface(nil), ifaces...),
	}
	for _, i := range ifaces {
		if _, dup := inv.byName[i.Name]; dup {
			panic("iface: duplicate interface name " + i.Name)
		}
		inv.byName[i.Name] = i
		inv.ips[i.IPv4] = i
	}
	return inv
}

// ByName returns the interface registered under name.
func (inv *Inventory) ByName(name string) (Interface, bool) {
	i, ok := inv.byName[name]
	return i, ok
}

// ByIPv4 reports whether ip belongs to one of the router's own interfaces,
// and returns it if so. Used to decide local-vs-transit delivery.
func (inv *Inventory) ByIPv4(ip [4]byte) (Interface, bool) {
	i, ok := inv.ips[ip]
	return i, ok
}

// All returns every interface in the inventory, in construction order.
func (inv *Inventory) All() []Interface { return inv.all }

// Context bundles the three pieces of shared state the forwarding pipeline
// (C4) and the periodic worker (C5) both need: the interface inventory and
// route table (immutable after startup, read lock-free) and the ARP cache
// (its own internal locking, see arpcache.Cache).
type Context struct {
	Interfaces *Inventory
	Routes     *routetable.Table
	ARP        *arpcache.Cache
}
