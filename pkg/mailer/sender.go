package mailer

import (
	"context"
	"fmt"
	"sort"
	"strings"
)

// Sender delivers a single message.
type Sender interface {
	Name() string
	Send(ctx context.Context, msg *Message) (*Result, error)
	// Verify checks connectivity/credentials without sending anything.
	Verify(ctx context.Context) error
}

// Router resolves a transport name to a registered sender.
type Router struct {
	senders  map[string]Sender
	fallback string
}

// NewRouter registers senders under their Name and uses fallback for
// unknown or empty transport names.
func NewRouter(fallback string, senders ...Sender) (*Router, error) {
	r := &Router{senders: make(map[string]Sender, len(senders)), fallback: strings.ToLower(fallback)}
	for _, s := range senders {
		if s == nil {
			continue
		}
		r.senders[strings.ToLower(s.Name())] = s
	}
	if _, ok := r.senders[r.fallback]; !ok {
		return nil, fmt.Errorf("default transport %q is not configured", fallback)
	}
	return r, nil
}

// Resolve returns the sender for transport, or the default one.
func (r *Router) Resolve(transport string) Sender {
	if s, ok := r.senders[strings.ToLower(strings.TrimSpace(transport))]; ok {
		return s
	}
	return r.senders[r.fallback]
}

// Lookup returns the sender registered under transport without falling back.
func (r *Router) Lookup(transport string) (Sender, bool) {
	s, ok := r.senders[strings.ToLower(strings.TrimSpace(transport))]
	return s, ok
}

// Default returns the name of the fallback transport.
func (r *Router) Default() string {
	return r.fallback
}

// Names lists the registered transports in sorted order.
func (r *Router) Names() []string {
	names := make([]string, 0, len(r.senders))
	for name := range r.senders {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
