package stream

import "sync"

// defaultMaxTotal caps connections across all IPs when no explicit total
// is configured.
const defaultMaxTotal = 1000

// connLimiter bounds concurrent SSE connections, per client IP and overall.
type connLimiter struct {
	mu       sync.Mutex
	perIP    map[string]int
	active   int
	maxPerIP int
	maxTotal int
}

func newConnLimiter(maxPerIP, maxTotal int) *connLimiter {
	if maxTotal <= 0 {
		maxTotal = defaultMaxTotal
	}
	return &connLimiter{
		perIP:    make(map[string]int),
		maxPerIP: maxPerIP,
		maxTotal: maxTotal,
	}
}

// acquire registers a connection for ip. It fails when either the per-IP
// or the overall cap is already met.
func (l *connLimiter) acquire(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.active >= l.maxTotal || l.perIP[ip] >= l.maxPerIP {
		return false
	}
	l.perIP[ip]++
	l.active++
	return true
}

// release drops a connection for ip.
func (l *connLimiter) release(ip string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.active--
	if l.perIP[ip]--; l.perIP[ip] <= 0 {
		delete(l.perIP, ip)
	}
}

// count reports the active connections for ip.
func (l *connLimiter) count(ip string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.perIP[ip]
}
