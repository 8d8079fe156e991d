// Package db keeps a small pool of OxiDB connections alive.
package db

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bagumbayan/brgydocs/internal/oxidb"
)

const (
	dialTimeout       = 5 * time.Second
	keepaliveInterval = 10 * time.Second
)

// Pool is a round-robin connection pool for OxiDB with auto-reconnect.
type Pool struct {
	host    string
	port    int
	logger  *slog.Logger
	clients []*oxidb.Client
	mu      []sync.RWMutex
	idx     uint64
	stop    chan struct{}
	done    chan struct{}
}

// NewPool creates a pool of size OxiDB connections.
func NewPool(ctx context.Context, host string, port, size int, logger *slog.Logger) (*Pool, error) {
	if size < 1 {
		size = 1
	}
	p := &Pool{
		host:    host,
		port:    port,
		logger:  logger,
		clients: make([]*oxidb.Client, size),
		mu:      make([]sync.RWMutex, size),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	for i := 0; i < size; i++ {
		c, err := p.dial(ctx)
		if err != nil {
			p.closeClients()
			return nil, fmt.Errorf("pool: connect client %d: %w", i, err)
		}
		p.clients[i] = c
	}
	// Idle connections are dropped by the server; ping them periodically.
	go p.keepalive()
	return p, nil
}

func (p *Pool) dial(ctx context.Context) (*oxidb.Client, error) {
	ctx, cancel := context.WithTimeout(ctx, dialTimeout)
	defer cancel()
	return oxidb.Connect(ctx, p.host, p.port)
}

// Get returns the next client in round-robin order.
func (p *Pool) Get() *oxidb.Client {
	n := atomic.AddUint64(&p.idx, 1)
	i := int(n % uint64(len(p.clients)))
	p.mu[i].RLock()
	defer p.mu[i].RUnlock()
	return p.clients[i]
}

// Ping checks every connection; used by the readiness check.
func (p *Pool) Ping(ctx context.Context) error {
	for i := range p.clients {
		p.mu[i].RLock()
		c := p.clients[i]
		p.mu[i].RUnlock()
		if _, err := c.Ping(ctx); err != nil {
			return fmt.Errorf("pool: client %d: %w", i, err)
		}
	}
	return nil
}

func (p *Pool) Name() string { return "oxidb" }

// CheckReady pings the pool with a short deadline.
func (p *Pool) CheckReady(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	return p.Ping(ctx)
}

// reconnect replaces a broken client at index i.
func (p *Pool) reconnect(i int) {
	c, err := p.dial(context.Background())
	if err != nil {
		p.logger.Warn("oxidb reconnect failed", slog.Int("client", i), slog.String("error", err.Error()))
		return
	}
	p.mu[i].Lock()
	old := p.clients[i]
	p.clients[i] = c
	p.mu[i].Unlock()
	if old != nil {
		old.Close()
	}
}

func (p *Pool) keepalive() {
	defer close(p.done)
	ticker := time.NewTicker(keepaliveInterval)
	defer ticker.Stop()
	for {
		select {
		case <-p.stop:
			return
		case <-ticker.C:
			for i := range p.clients {
				p.mu[i].RLock()
				c := p.clients[i]
				p.mu[i].RUnlock()
				ctx, cancel := context.WithTimeout(context.Background(), dialTimeout)
				_, err := c.Ping(ctx)
				cancel()
				if err != nil {
					p.logger.Warn("oxidb ping failed, reconnecting", slog.Int("client", i), slog.String("error", err.Error()))
					p.reconnect(i)
				}
			}
		}
	}
}

// Close stops the keepalive loop and closes all connections.
func (p *Pool) Close() {
	close(p.stop)
	<-p.done
	p.closeClients()
}

func (p *Pool) closeClients() {
	for i, c := range p.clients {
		if c != nil {
			c.Close()
			p.clients[i] = nil
		}
	}
}
