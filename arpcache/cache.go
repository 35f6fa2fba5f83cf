// Package arpcache implements the router's concurrent IPv4-to-MAC cache and
// its ARP request/retry state machine: lookups serve forwarding decisions,
// misses queue packets and coalesce into a single outstanding request per
// target, and a periodic sweep retransmits or gives up after five tries.
package arpcache

import (
	"encoding/binary"
	"sync"
	"time"

	"github.com/jellydator/ttlcache/v3"
)

// EntryTTL is how long a resolved cache entry remains valid. Expiry is lazy:
// Lookup filters by age rather than proactively evicting.
const EntryTTL = 15 * time.Second

// MaxAttempts is the number of ARP requests sent before a pending record is
// considered exhausted and its queued packets are failed with an ICMP
// host-unreachable.
const MaxAttempts = 5

// RetryInterval is the minimum spacing between ARP retransmissions for the
// same target, enforced by Sweep.
const RetryInterval = 1 * time.Second

func key(ip [4]byte) uint32 { return binary.BigEndian.Uint32(ip[:]) }

// Pending is a frame queued while waiting for a target IP to resolve. Bytes
// is an owned copy of the outbound frame (Ethernet header through payload)
// with the destination MAC not yet filled in; OutIface is the interface the
// frame will be sent on once resolved. SrcIP is the IP address to source an
// ICMP host-unreachable from if this request ultimately exhausts.
type Pending struct {
	Bytes    []byte
	OutIface string
	SrcIP    [4]byte
}

// request is the resolver's pending-ARP state for one target IP.
type request struct {
	ip         [4]byte
	sentCount  int
	lastSentAt time.Time
	queue      []Pending
}

// Cache maps IPv4 addresses to resolved MAC addresses, and tracks requests
// in flight for addresses that have not resolved yet. The zero value is not
// usable; construct with New.
type Cache struct {
	mu       sync.Mutex
	entries  *ttlcache.Cache[uint32, [6]byte]
	requests map[uint32]*request
}

// New returns a ready-to-use Cache.
func New() *Cache {
	entries := ttlcache.New[uint32, [6]byte](
		ttlcache.WithTTL[uint32, [6]byte](EntryTTL),
		ttlcache.WithDisableTouchOnHit[uint32, [6]byte](),
	)
	return &Cache{
		entries:  entries,
		requests: make(map[uint32]*request),
	}
}

// Lookup returns the MAC address for ip if a non-expired entry exists.
// Touching an entry via Lookup never refreshes its TTL.
func (c *Cache) Lookup(ip [4]byte) (mac [6]byte, ok bool) {
	item := c.entries.Get(key(ip))
	if item == nil {
		return mac, false
	}
	return item.Value(), true
}

// FlushedRequest is a request record detached by Insert, ready for its
// queued packets to be addressed with the newly learned MAC and flushed out
// by the caller.
type FlushedRequest struct {
	Queue []Pending
}

// Insert installs or refreshes the cache entry for ip. If a request record
// for ip was in flight, it is detached and returned so the caller can flush
// its queued packets outside the cache's lock.
func (c *Cache) Insert(ip [4]byte, mac [6]byte) (flushed FlushedRequest, hadRequest bool) {
	k := key(ip)
	c.mu.Lock()
	c.entries.Set(k, mac, EntryTTL)
	req, ok := c.requests[k]
	if ok {
		delete(c.requests, k)
	}
	c.mu.Unlock()
	if !ok {
		return FlushedRequest{}, false
	}
	return FlushedRequest{Queue: req.queue}, true
}

// QueueRequest enqueues pkt to be sent to ip once resolved. It reports
// whether this call created a fresh request record (the queue was empty
// before), which tells the caller to fast-path an immediate ARP broadcast
// rather than waiting for the next sweep.
func (c *Cache) QueueRequest(ip [4]byte, pkt Pending) (fresh bool) {
	k := key(ip)
	c.mu.Lock()
	defer c.mu.Unlock()
	req, ok := c.requests[k]
	if !ok {
		req = &request{ip: ip}
		c.requests[k] = req
		fresh = true
	}
	req.queue = append(req.queue, pkt)
	return fresh
}

// MarkSent records that an ARP request for ip was just transmitted, for use
// by the QueueRequest fast-path immediately after a fresh record is created.
func (c *Cache) MarkSent(ip [4]byte, now time.Time) {
	k := key(ip)
	c.mu.Lock()
	defer c.mu.Unlock()
	if req, ok := c.requests[k]; ok {
		req.sentCount = 1
		req.lastSentAt = now
	}
}

// Action is one unit of work the sweep produced, to be executed after the
// cache's lock has been released.
type Action struct {
	// Broadcast is set when an ARP request should be (re)transmitted.
	Broadcast bool
	IP        [4]byte
	OutIface  string // valid when Broadcast is true, taken from the first queued packet.

	// Exhausted is set when the request gave up; Queue holds the packets to
	// fail with an ICMP host-unreachable.
	Exhausted bool
	Queue     []Pending
}

// Sweep examines every in-flight request and produces the actions to take,
// without performing any I/O itself: the caller executes the returned
// actions after Sweep has released the cache's internal lock, so that
// send_frame and ICMP synthesis never run while the mutex is held.
func (c *Cache) Sweep(now time.Time) []Action {
	c.mu.Lock()
	defer c.mu.Unlock()

	var actions []Action
	for k, req := range c.requests {
		if !req.lastSentAt.IsZero() && now.Sub(req.lastSentAt) < RetryInterval {
			continue
		}
		if req.sentCount >= MaxAttempts {
			actions = append(actions, Action{
				Exhausted: true,
				IP:        req.ip,
				Queue:     req.queue,
			})
			delete(c.requests, k)
			continue
		}
		outIface := ""
		if len(req.queue) > 0 {
			outIface = req.queue[0].OutIface
		}
		req.sentCount++
		req.lastSentAt = now
		actions = append(actions, Action{
			Broadcast: true,
			IP:        req.ip,
			OutIface:  outIface,
		})
	}
	return actions
}

// Len returns the number of resolved entries currently cached, including
// entries not yet lazily expired.
func (c *Cache) Len() int { return c.entries.Len() }

// PendingCount returns the number of in-flight request records.
func (c *Cache) PendingCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.requests)
}
