package remote

import (
	"fmt"
	"sort"
	"sync"

	"github.com/tliron/commonlog"
)

// Provider hands out one Control per remote node id for the lifetime of the
// local node.
type Provider struct {
	localID string
	log     commonlog.Logger

	mu       sync.Mutex
	controls map[string]*Control
}

// Option configures a Provider.
type Option func(*Provider)

// WithLogger sets the logger shared by the provider's controls.
func WithLogger(log commonlog.Logger) Option {
	return func(p *Provider) { p.log = log }
}

// NewProvider creates a provider for the node with the given id.
func NewProvider(localID string, opts ...Option) *Provider {
	p := &Provider{
		localID:  localID,
		log:      commonlog.GetLogger("endo.remote"),
		controls: make(map[string]*Control),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// LocalID returns the local node id.
func (p *Provider) LocalID() string { return p.localID }

// Provide returns the Control for remoteID, creating it on first use.
func (p *Provider) Provide(remoteID string) (*Control, error) {
	if remoteID == p.localID {
		return nil, fmt.Errorf("provide %q: %w", remoteID, ErrSelfConnection)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	c, ok := p.controls[remoteID]
	if !ok {
		c = newControl(p.localID, remoteID, p.log)
		p.controls[remoteID] = c
	}
	return c, nil
}

// Peers returns the ids of every remote node seen so far, sorted.
func (p *Provider) Peers() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	ids := make([]string, 0, len(p.controls))
	for id := range p.controls {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
