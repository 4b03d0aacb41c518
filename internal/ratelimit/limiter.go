// Package ratelimit throttles datagrams per peer address with token buckets.
package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

type peer struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// PeerLimiter keeps one token bucket per peer IP
type PeerLimiter struct {
	mu          sync.Mutex
	peers       map[string]*peer
	rps         rate.Limit
	burst       int
	idleTimeout time.Duration

	now  func() time.Time
	stop chan struct{}
	done chan struct{}
}

// NewPeerLimiter creates a limiter allowing rps datagrams per second per peer with the
// given burst. Peers idle for longer than idleTimeout are forgotten.
func NewPeerLimiter(rps float64, burst int, idleTimeout time.Duration) *PeerLimiter {
	l := &PeerLimiter{
		peers:       make(map[string]*peer),
		rps:         rate.Limit(rps),
		burst:       burst,
		idleTimeout: idleTimeout,
		now:         time.Now,
		stop:        make(chan struct{}),
		done:        make(chan struct{}),
	}
	go l.cleanupLoop()
	return l
}

// Allow reports whether a datagram from ip may be processed now
func (l *PeerLimiter) Allow(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	p, exists := l.peers[ip]
	if !exists {
		p = &peer{limiter: rate.NewLimiter(l.rps, l.burst)}
		l.peers[ip] = p
	}
	p.lastSeen = now

	return p.limiter.AllowN(now, 1)
}

// PeerCount returns the number of tracked peers
func (l *PeerLimiter) PeerCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.peers)
}

// Stop terminates the cleanup goroutine
func (l *PeerLimiter) Stop() {
	close(l.stop)
	<-l.done
}

func (l *PeerLimiter) cleanupLoop() {
	defer close(l.done)

	interval := l.idleTimeout / 2
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-l.stop:
			return
		case <-ticker.C:
			l.evictIdle()
		}
	}
}

// evictIdle drops peers not seen within idleTimeout
func (l *PeerLimiter) evictIdle() {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	for ip, p := range l.peers {
		if now.Sub(p.lastSeen) > l.idleTimeout {
			delete(l.peers, ip)
		}
	}
}
