// Package geocode serializes reverse-geocoding lookups against an
// external, rate-limited collaborator: one FIFO queue, one request in
// flight, a fixed minimum interval between calls and a longer backoff
// after a throttle signal.
package geocode

import (
	"errors"
	"fmt"
	"log"
	"sync"
	"time"
)

// ErrThrottled is the "too many requests" signal a Resolver returns when
// the upstream service pushes back. The limiter retries the same request
// after the backoff instead of dropping it.
var ErrThrottled = errors.New("geocode: too many requests")

// Unknown is the sentinel place name for lookups that failed for any
// reason other than throttling.
const Unknown = "unknown"

// throttled lookups wait this many normal intervals before retrying
const backoffFactor = 3

// cache keys round coordinates to this many decimal places (~11m)
const cacheKeyPrecision = "%.4f,%.4f"

// Resolver is the external reverse-geocoding collaborator.
type Resolver interface {
	Lookup(lat, lng float64) (string, error)
}

// ResolverFunc adapts a function to the Resolver interface.
type ResolverFunc func(lat, lng float64) (string, error)

// Lookup calls f.
func (f ResolverFunc) Lookup(lat, lng float64) (string, error) {
	return f(lat, lng)
}

type request struct {
	lat, lng float64
	key      string
	reply    chan string
}

// Limiter owns the process-wide lookup queue. Construct one and pass it by
// reference to every component that issues lookups; tests can build
// isolated instances with short intervals.
type Limiter struct {
	resolver Resolver
	interval time.Duration

	queue chan *request
	stop  chan struct{}
	done  chan struct{}

	mu    sync.Mutex
	cache map[string]string
}

// NewLimiter starts the queue worker. interval is the minimum spacing
// between successive upstream calls.
func NewLimiter(resolver Resolver, interval time.Duration) *Limiter {
	l := &Limiter{
		resolver: resolver,
		interval: interval,
		queue:    make(chan *request, 256),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
		cache:    make(map[string]string),
	}
	go l.loop()
	return l
}

// Resolve returns the place name for the coordinates, or Unknown. Cached
// results return immediately; everything else waits its turn in the queue.
func (l *Limiter) Resolve(lat, lng float64) (string, error) {
	key := fmt.Sprintf(cacheKeyPrecision, lat, lng)

	l.mu.Lock()
	cached, ok := l.cache[key]
	l.mu.Unlock()
	if ok {
		return cached, nil
	}

	req := &request{lat: lat, lng: lng, key: key, reply: make(chan string, 1)}
	select {
	case l.queue <- req:
	case <-l.stop:
		return "", errors.New("geocode: limiter closed")
	}

	select {
	case name := <-req.reply:
		return name, nil
	case <-l.stop:
		return "", errors.New("geocode: limiter closed")
	}
}

// Close stops the worker; queued requests are abandoned.
func (l *Limiter) Close() {
	close(l.stop)
	<-l.done
}

func (l *Limiter) loop() {
	defer close(l.done)
	for {
		select {
		case <-l.stop:
			return
		case req := <-l.queue:
			name := l.process(req)
			req.reply <- name
			if !l.sleep(l.interval) {
				return
			}
		}
	}
}

// process runs one lookup, retrying the same request after a backoff for
// as long as the upstream keeps throttling.
func (l *Limiter) process(req *request) string {
	l.mu.Lock()
	cached, ok := l.cache[req.key]
	l.mu.Unlock()
	if ok {
		return cached
	}

	for {
		name, err := l.resolver.Lookup(req.lat, req.lng)
		if errors.Is(err, ErrThrottled) {
			log.Printf("geocode: throttled, backing off %s before retrying (%s)", backoffFactor*l.interval, req.key)
			if !l.sleep(backoffFactor * l.interval) {
				return Unknown
			}
			continue
		}
		if err != nil {
			log.Printf("geocode: lookup failed for %s: %v", req.key, err)
			name = Unknown
		}

		l.mu.Lock()
		l.cache[req.key] = name
		l.mu.Unlock()
		return name
	}
}

func (l *Limiter) sleep(d time.Duration) bool {
	select {
	case <-time.After(d):
		return true
	case <-l.stop:
		return false
	}
}
