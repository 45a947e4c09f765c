// Package discovery finds peers on the local network with multicast DNS and
// reports them to the broadcast view.
package discovery

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/ardanlabs/ledger/foundation/blockchain/peer"
	"github.com/grandcat/zeroconf"
)

// Defaults for the advertised service.
const (
	DefaultService = "_ledger._tcp"
	DefaultDomain  = "local."
)

// expireInterval is how often entries are checked against their TTL.
const expireInterval = 5 * time.Second

// Membership is the behavior discovery needs to maintain the broadcast view.
type Membership interface {
	PeerJoined(pr peer.Peer, source string) bool
	PeerLeft(pr peer.Peer, source string) bool
	SetPeerNodeID(pr peer.Peer, nodeID string)
}

// Config represents the configuration required to start discovery.
type Config struct {
	NodeID     string
	Service    string
	Domain     string
	Port       int
	Membership Membership
	EvHandler  func(v string, args ...any)
}

// Discovery advertises this node and tracks the peers it finds.
type Discovery struct {
	server  *zeroconf.Server
	tracker *Tracker
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	ev      func(v string, args ...any)
}

// Start registers the node as an instance of the service and browses for
// the other instances until Shutdown is called.
func Start(cfg Config) (*Discovery, error) {
	if cfg.Membership == nil {
		return nil, errors.New("membership is required")
	}

	ev := func(v string, args ...any) {
		if cfg.EvHandler != nil {
			cfg.EvHandler(v, args...)
		}
	}

	service := cfg.Service
	if service == "" {
		service = DefaultService
	}
	domain := cfg.Domain
	if domain == "" {
		domain = DefaultDomain
	}

	server, err := zeroconf.Register(cfg.NodeID, service, domain, cfg.Port, []string{"id=" + cfg.NodeID}, nil)
	if err != nil {
		return nil, fmt.Errorf("register %s: %w", service, err)
	}

	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		server.Shutdown()
		return nil, fmt.Errorf("resolver: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	entries := make(chan *zeroconf.ServiceEntry)
	if err := resolver.Browse(ctx, service, domain, entries); err != nil {
		cancel()
		server.Shutdown()
		return nil, fmt.Errorf("browse %s: %w", service, err)
	}

	d := Discovery{
		server:  server,
		tracker: NewTracker(cfg.NodeID, cfg.Membership, ev),
		cancel:  cancel,
		ev:      ev,
	}

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		d.browse(ctx, entries)
	}()

	ev("discovery: Start: registered: service[%s]: domain[%s]: port[%d]", service, domain, cfg.Port)

	return &d, nil
}

// Shutdown stops advertising and browsing.
func (d *Discovery) Shutdown() {
	d.ev("discovery: shutdown: started")
	defer d.ev("discovery: shutdown: completed")

	d.cancel()
	d.wg.Wait()
	d.server.Shutdown()
}

func (d *Discovery) browse(ctx context.Context, entries <-chan *zeroconf.ServiceEntry) {
	ticker := time.NewTicker(expireInterval)
	defer ticker.Stop()

	for {
		select {
		case entry, ok := <-entries:
			if !ok {
				return
			}
			d.tracker.Observe(fromServiceEntry(entry), time.Now())

		case now := <-ticker.C:
			d.tracker.Expire(now)

		case <-ctx.Done():
			return
		}
	}
}

// =============================================================================

// Entry is what discovery needs from an mDNS answer.
type Entry struct {
	NodeID string
	Host   string
	TTL    time.Duration
}

func fromServiceEntry(se *zeroconf.ServiceEntry) Entry {
	var nodeID string
	for _, txt := range se.Text {
		if v, found := strings.CutPrefix(txt, "id="); found {
			nodeID = v
		}
	}

	var ip net.IP
	switch {
	case len(se.AddrIPv4) > 0:
		ip = se.AddrIPv4[0]
	case len(se.AddrIPv6) > 0:
		ip = se.AddrIPv6[0]
	}

	var host string
	if ip != nil {
		host = net.JoinHostPort(ip.String(), strconv.Itoa(se.Port))
	}

	return Entry{
		NodeID: nodeID,
		Host:   host,
		TTL:    time.Duration(se.TTL) * time.Second,
	}
}

// =============================================================================

// Tracker turns mDNS answers into joined and left events. A peer is left
// once its TTL passes without a fresh answer.
type Tracker struct {
	mu         sync.Mutex
	nodeID     string
	membership Membership
	deadlines  map[peer.Peer]time.Time
	ev         func(v string, args ...any)
}

// NewTracker constructs a tracker for the node.
func NewTracker(nodeID string, membership Membership, ev func(v string, args ...any)) *Tracker {
	return &Tracker{
		nodeID:     nodeID,
		membership: membership,
		deadlines:  make(map[peer.Peer]time.Time),
		ev:         ev,
	}
}

// Observe records an answer seen at the specified time. A zero TTL is a
// goodbye and the peer is left immediately.
func (t *Tracker) Observe(entry Entry, now time.Time) {
	if entry.Host == "" || entry.NodeID == t.nodeID {
		return
	}

	pr := peer.New(entry.Host)

	t.mu.Lock()
	defer t.mu.Unlock()

	if entry.TTL <= 0 {
		delete(t.deadlines, pr)
		t.membership.PeerLeft(pr, peer.SourceMDNS)
		return
	}

	if _, exists := t.deadlines[pr]; !exists {
		t.ev("discovery: Observe: discovered: peer[%s]: node[%s]", pr, entry.NodeID)
	}
	t.deadlines[pr] = now.Add(entry.TTL)

	t.membership.PeerJoined(pr, peer.SourceMDNS)
	if entry.NodeID != "" {
		t.membership.SetPeerNodeID(pr, entry.NodeID)
	}
}

// Expire leaves every peer whose TTL passed before now.
func (t *Tracker) Expire(now time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for pr, deadline := range t.deadlines {
		if now.Before(deadline) {
			continue
		}

		t.ev("discovery: Expire: expired: peer[%s]", pr)
		delete(t.deadlines, pr)
		t.membership.PeerLeft(pr, peer.SourceMDNS)
	}
}
