package utils

import (
	"context"
	"net"

	"github.com/gin-gonic/gin"
)

type contextKey string

// ClientIPKey is the request-context key the client IP is stored under.
const ClientIPKey contextKey = "client_ip"

// ClientIPGinKey is the gin.Context key for handlers that only see gin
const ClientIPGinKey = "client_ip"

// WithClientIP returns a copy of ctx carrying ip.
func WithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, ClientIPKey, ip)
}

// ClientIPFromContext returns the IP stored by WithClientIP, or "".
func ClientIPFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if ip, ok := ctx.Value(ClientIPKey).(string); ok {
		return ip
	}
	return ""
}

// ExtractClientIP returns the client IP as resolved by gin. Forwarding
// headers (X-Forwarded-For, X-Real-IP) are only honored when the direct peer
// is in the engine's trusted proxy list, see gin.Engine.SetTrustedProxies.
//
// VNPay only accepts IPv4 for vnp_IpAddr, so IPv6 loopback is mapped to 127.0.0.1.
func ExtractClientIP(c *gin.Context) string {
	ip := c.ClientIP()
	if !isValidIP(ip) {
		return "127.0.0.1"
	}
	return normalizeIP(ip)
}

func normalizeIP(ip string) string {
	parsed := net.ParseIP(ip)
	if parsed == nil {
		return ip
	}
	if parsed.IsLoopback() {
		return "127.0.0.1"
	}
	if v4 := parsed.To4(); v4 != nil {
		return v4.String()
	}
	return ip
}

// isValidIP validates if a string is a valid IPv4 or IPv6 address
func isValidIP(ip string) bool {
	if ip == "" {
		return false
	}
	return net.ParseIP(ip) != nil
}

// IsPrivateIP checks if an IP address is in private range
func IsPrivateIP(ip string) bool {
	parsed := net.ParseIP(ip)
	if parsed == nil {
		return false
	}
	return parsed.IsPrivate() || parsed.IsLoopback()
}
