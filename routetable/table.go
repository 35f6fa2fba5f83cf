// Package routetable implements the router's static longest-prefix-match
// forwarding table, loaded once at startup and read lock-free thereafter.
package routetable

import (
	"encoding/binary"
	"errors"
	"net/netip"
)

// Route is a single forwarding entry. Dest and Mask are in network byte
// order, matching the on-wire representation of an IPv4 address.
type Route struct {
	Dest     [4]byte
	Mask     [4]byte
	Gateway  [4]byte // 0.0.0.0 for a directly-connected destination.
	OutIface string
}

// ErrBadRoute is returned by Add when dest&mask != dest.
var ErrBadRoute = errors.New("routetable: dest & mask != dest")

func asUint32(b [4]byte) uint32 { return binary.BigEndian.Uint32(b[:]) }

// Table holds a fixed set of routes, scanned linearly on lookup. It is safe
// for concurrent reads once built; it is never mutated after Add calls
// finish at startup.
type Table struct {
	routes []Route
}

// New returns an empty Table.
func New() *Table { return &Table{} }

// Add appends a route to the table. It rejects a route whose dest/mask pair
// violates dest&mask==dest; order among Add calls determines tie-break order
// for routes that share a mask length (see Lookup).
func (t *Table) Add(r Route) error {
	if asUint32(r.Dest)&asUint32(r.Mask) != asUint32(r.Dest) {
		return ErrBadRoute
	}
	t.routes = append(t.routes, r)
	return nil
}

// Lookup returns the route with the longest matching prefix for dst, and
// true. Ties between equal-length masks are broken by insertion order: the
// first Add'd route wins. Lookup returns false if no route matches.
func (t *Table) Lookup(dst [4]byte) (Route, bool) {
	dstN := asUint32(dst)
	var best Route
	var bestMask uint32
	found := false
	for _, r := range t.routes {
		mask := asUint32(r.Mask)
		if dstN&mask != asUint32(r.Dest) {
			continue
		}
		if !found || mask > bestMask {
			best, bestMask, found = r, mask, true
		}
	}
	return best, found
}

// Len returns the number of routes in the table.
func (t *Table) Len() int { return len(t.routes) }

// Routes returns a copy of the table's routes in insertion order, for
// diagnostics and config reload comparisons.
func (t *Table) Routes() []Route {
	out := make([]Route, len(t.routes))
	copy(out, t.routes)
	return out
}

// ParsePrefix converts a netip.Prefix into the dest/mask pair Route expects.
func ParsePrefix(p netip.Prefix) (dest, mask [4]byte) {
	dest = p.Masked().Addr().As4()
	var m uint32
	if p.Bits() > 0 {
		m = ^uint32(0) << (32 - p.Bits())
	}
	binary.BigEndian.PutUint32(mask[:], m)
	return dest, mask
}
