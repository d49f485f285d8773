package security

import (
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"

	applog "invoicer/internal/log"
)

// DetectionMetrics tracks security detection events
type DetectionMetrics struct {
	SuspiciousRequests int64
	BlockedRequests    int64
}

// Detector flags probing requests and resolves client IPs behind trusted proxies.
type Detector struct {
	suspicious int64
	blocked    int64

	mu             sync.RWMutex
	trustedProxies []*net.IPNet
}

var (
	suspiciousPatterns = []string{
		"../", "..\\", ".env", "wp-admin", "phpmyadmin",
		"admin.php", "config.php", ".git", ".ssh",
		"eval(", "javascript:", "<script", "union select",
		"etc/passwd", "cmd.exe",
	}

	suspiciousAgents = []string{
		"sqlmap", "nmap", "nikto", "gobuster", "dirb", "masscan", "zgrab",
	}

	// blockedMethods are rejected outright.
	blockedMethods = map[string]bool{
		"TRACE": true, "TRACK": true, "DEBUG": true, "CONNECT": true,
	}
)

// NewDetector trusts loopback and private networks as proxies.
func NewDetector() *Detector {
	return &Detector{
		trustedProxies: []*net.IPNet{
			parseCIDR("127.0.0.0/8"),
			parseCIDR("10.0.0.0/8"),
			parseCIDR("172.16.0.0/12"),
			parseCIDR("192.168.0.0/16"),
			parseCIDR("::1/128"),
		},
	}
}

func parseCIDR(cidr string) *net.IPNet {
	_, network, err := net.ParseCIDR(cidr)
	if err != nil {
		panic(fmt.Sprintf("failed to parse trusted proxy CIDR %s: %v", cidr, err))
	}
	return network
}

// DetectSuspiciousRequest reports whether r looks like a scan or injection attempt.
func (d *Detector) DetectSuspiciousRequest(r *http.Request) bool {
	if reason := suspicionReason(r); reason != "" {
		atomic.AddInt64(&d.suspicious, 1)
		return true
	}
	return false
}

func suspicionReason(r *http.Request) string {
	if blockedMethods[r.Method] {
		return "method"
	}
	if len(r.URL.String()) > 2048 {
		return "url_length"
	}

	path := strings.ToLower(r.URL.Path)
	query := strings.ToLower(r.URL.RawQuery)
	for _, pattern := range suspiciousPatterns {
		if strings.Contains(path, pattern) || strings.Contains(query, pattern) {
			return "pattern"
		}
	}

	userAgent := strings.ToLower(r.Header.Get("User-Agent"))
	for _, agent := range suspiciousAgents {
		if strings.Contains(userAgent, agent) {
			return "user_agent"
		}
	}

	if strings.Count(r.Header.Get("X-Forwarded-For"), ",") > 5 {
		return "proxy_hops"
	}
	return ""
}

// Middleware logs suspicious requests and rejects blocked methods and
// path traversal attempts.
func (d *Detector) Middleware(logger *applog.Logger) func(http.Handler) http.Handler {
	logger = logger.WithComponent(applog.ComponentSecurity)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reason := suspicionReason(r)
			if reason == "" {
				next.ServeHTTP(w, r)
				return
			}
			atomic.AddInt64(&d.suspicious, 1)
			logger.WarnContext(r.Context(), "Suspicious request detected",
				applog.FieldClientIP, d.ExtractClientIP(r),
				applog.FieldMethod, r.Method,
				applog.FieldPath, r.URL.Path,
				applog.FieldUserAgent, r.Header.Get("User-Agent"),
				"reason", reason)

			switch reason {
			case "method":
				atomic.AddInt64(&d.blocked, 1)
				http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			case "pattern", "url_length":
				atomic.AddInt64(&d.blocked, 1)
				http.NotFound(w, r)
			default:
				next.ServeHTTP(w, r)
			}
		})
	}
}

// ExtractClientIP returns the client IP, honouring X-Forwarded-For and
// X-Real-IP only when the direct peer is a trusted proxy.
func (d *Detector) ExtractClientIP(r *http.Request) string {
	directIP, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		directIP = r.RemoteAddr
	}

	parsedDirectIP := net.ParseIP(directIP)
	if parsedDirectIP == nil || !d.isTrustedProxy(parsedDirectIP) {
		return directIP
	}

	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		first = strings.TrimSpace(first)
		if net.ParseIP(first) != nil {
			return first
		}
	}
	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); net.ParseIP(xri) != nil {
		return xri
	}
	return directIP
}

func (d *Detector) isTrustedProxy(ip net.IP) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	for _, network := range d.trustedProxies {
		if network.Contains(ip) {
			return true
		}
	}
	return false
}

// GetMetrics returns current security metrics
func (d *Detector) GetMetrics() DetectionMetrics {
	return DetectionMetrics{
		SuspiciousRequests: atomic.LoadInt64(&d.suspicious),
		BlockedRequests:    atomic.LoadInt64(&d.blocked),
	}
}

// AddTrustedProxy adds a trusted proxy network
func (d *Detector) AddTrustedProxy(cidr string) error {
	_, network, err := net.ParseCIDR(cidr)
	if err != nil {
		return fmt.Errorf("invalid CIDR %s: %w", cidr, err)
	}

	d.mu.Lock()
	d.trustedProxies = append(d.trustedProxies, network)
	d.mu.Unlock()
	return nil
}
