package server

import (
	"strings"
	"sync"

	"github.com/groupwire/msgp/pkg/protocol"
)

// Channel is the outbound half of a user's connection: the server pushes raw
// message frames to users through it. SafeConn and wsConn both implement it.
type Channel interface {
	WriteFrame(frame string) error
}

// Group is a named member list plus an append-only history of raw message
// frames, ordered by arrival at the server. Groups are created lazily on
// first join and persist even when emptied.
type Group struct {
	name    string
	members []string
	history []string
}

func (g *Group) hasMember(user string) bool {
	for _, m := range g.members {
		if m == user {
			return true
		}
	}
	return false
}

// Directory is the server's shared state: every known user bound to an
// outbound channel, and every group. It is the single source of truth; all
// reads and mutations are serialized through one mutex, and every operation
// is atomic with respect to concurrent requests.
type Directory struct {
	mu      sync.Mutex
	users   map[string]Channel
	groups  map[string]*Group
	metrics *Metrics
}

// NewDirectory creates an empty directory. metrics may be nil.
func NewDirectory(metrics *Metrics) *Directory {
	return &Directory{
		users:   make(map[string]Channel),
		groups:  make(map[string]*Group),
		metrics: metrics,
	}
}

// AddUser binds (or rebinds) a username to an outbound channel. Uniqueness is
// deliberately not enforced: a second addUser with the same name silently
// takes over the binding, which is how a reconnecting client recovers its
// name.
func (d *Directory) AddUser(user string, ch Channel) protocol.Response {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.users[user]; ok {
		debugLog.Printf("addUser: rebinding channel for %q", user)
	}
	d.users[user] = ch
	return protocol.OK("")
}

// Join adds a user to a group, registering the user and creating the group
// as needed. Joining a group the user is already in leaves membership
// unchanged and reports EMPTY.
func (d *Directory) Join(user, group string, ch Channel) protocol.Response {
	d.mu.Lock()
	defer d.mu.Unlock()

	// Unknown users are registered implicitly; known users keep their
	// existing channel binding.
	if _, ok := d.users[user]; !ok {
		d.users[user] = ch
	}

	g, ok := d.groups[group]
	if !ok {
		g = &Group{name: group}
		d.groups[group] = g
		if d.metrics != nil {
			d.metrics.RecordGroupCount(len(d.groups))
		}
	}

	if g.hasMember(user) {
		return protocol.NoResult()
	}
	g.members = append(g.members, user)
	return protocol.OK("")
}

// Leave removes a user from a group's member list. The group itself persists
// even when emptied.
func (d *Directory) Leave(user, group string) protocol.Response {
	d.mu.Lock()
	defer d.mu.Unlock()

	g, ok := d.groups[group]
	if !ok {
		return protocol.Error()
	}
	if !g.hasMember(user) {
		return protocol.NoResult()
	}

	members := g.members[:0]
	for _, m := range g.members {
		if m != user {
			members = append(members, m)
		}
	}
	g.members = members
	return protocol.OK("")
}

// Groups lists all known group names, one per line. Order across groups is
// unspecified; callers must not depend on it.
func (d *Directory) Groups() protocol.Response {
	d.mu.Lock()
	defer d.mu.Unlock()

	if len(d.groups) == 0 {
		return protocol.NoResult()
	}

	names := make([]string, 0, len(d.groups))
	for name := range d.groups {
		names = append(names, name)
	}
	return protocol.OK(strings.Join(names, "\n"))
}

// Users lists a group's members in join order, one per line.
func (d *Directory) Users(group string) protocol.Response {
	d.mu.Lock()
	defer d.mu.Unlock()

	g, ok := d.groups[group]
	if !ok {
		return protocol.Error()
	}
	if len(g.members) == 0 {
		return protocol.NoResult()
	}
	return protocol.OK(strings.Join(g.members, "\n"))
}

// History returns a group's stored raw message frames concatenated in
// arrival order.
func (d *Directory) History(group string) protocol.Response {
	d.mu.Lock()
	defer d.mu.Unlock()

	g, ok := d.groups[group]
	if !ok {
		return protocol.Error()
	}
	if len(g.history) == 0 {
		return protocol.NoResult()
	}
	return protocol.OK(strings.Join(g.history, ""))
}

// delivery is one resolved recipient: a username and the channel it was
// bound to at send time.
type delivery struct {
	user string
	ch   Channel
}

// Send validates a message envelope's recipient tokens against the
// directory, records it in group histories, and fans it out.
//
// Validation is all-or-nothing: every token must resolve (@name to a known
// user, #name to a known group, anything else is invalid) before any history
// is touched or any frame is written. Recipients reachable through several
// tokens receive exactly one copy. Fan-out happens after the directory lock
// is released so one slow channel cannot stall unrelated requests, and a
// failure on one channel never aborts delivery to the rest.
func (d *Directory) Send(raw string) protocol.Response {
	tokens := protocol.RecipientTokens(raw)

	d.mu.Lock()

	// Phase one: resolve every token before mutating anything.
	var groups []*Group
	var deliveries []delivery
	seen := make(map[string]bool)
	addRecipient := func(user string) {
		if seen[user] {
			return
		}
		seen[user] = true
		if ch, ok := d.users[user]; ok {
			deliveries = append(deliveries, delivery{user: user, ch: ch})
		}
	}

	for _, tok := range tokens {
		switch {
		case strings.HasPrefix(tok, "@"):
			name := tok[1:]
			if _, ok := d.users[name]; !ok {
				d.mu.Unlock()
				return protocol.Error()
			}
			addRecipient(name)
		case strings.HasPrefix(tok, "#"):
			g, ok := d.groups[tok[1:]]
			if !ok {
				d.mu.Unlock()
				return protocol.Error()
			}
			groups = append(groups, g)
			for _, member := range g.members {
				addRecipient(member)
			}
		default:
			d.mu.Unlock()
			return protocol.Error()
		}
	}

	// Phase two: append the raw frame to each addressed group's history, in
	// token order. One append per #token occurrence.
	for _, g := range groups {
		g.history = append(g.history, raw)
		if d.metrics != nil {
			d.metrics.RecordHistoryAppend()
		}
	}

	d.mu.Unlock()

	// Phase three: fan out. Per-recipient failures are logged and isolated;
	// the overall result stays OK.
	for _, dv := range deliveries {
		if err := dv.ch.WriteFrame(raw); err != nil {
			errorLog.Printf("send: delivery to %q failed: %v", dv.user, err)
			if d.metrics != nil {
				d.metrics.RecordDeliveryFailure()
			}
			continue
		}
		if d.metrics != nil {
			d.metrics.RecordDelivery()
		}
	}

	return protocol.OK("")
}
