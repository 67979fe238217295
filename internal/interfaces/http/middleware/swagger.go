package middleware

import (
	"net"
	"net/http"
	"net/netip"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/erp/storesync/internal/infrastructure/config"
)

// SwaggerProtection guards the API documentation routes.
//
//   - Disabled: every request gets 404
//   - AllowedIPs: callers outside the list get 403
//   - RequireAuth: auth runs before the docs handler and may abort
//
// Invalid entries in AllowedIPs are ignored.
func SwaggerProtection(cfg config.SwaggerConfig, auth gin.HandlerFunc) gin.HandlerFunc {
	allowed := parseAllowList(cfg.AllowedIPs)

	return func(c *gin.Context) {
		if !cfg.Enabled {
			c.AbortWithStatusJSON(http.StatusNotFound, errorBody("ERR_NOT_FOUND", "API documentation is not available"))
			return
		}
		if len(cfg.AllowedIPs) > 0 && !allowed.contains(clientAddr(c)) {
			c.AbortWithStatusJSON(http.StatusForbidden, errorBody("ERR_FORBIDDEN", "Access to API documentation is restricted"))
			return
		}
		if cfg.RequireAuth && auth != nil {
			auth(c)
			if c.IsAborted() {
				return
			}
		}
		c.Next()
	}
}

type allowList []netip.Prefix

func parseAllowList(entries []string) allowList {
	var list allowList
	for _, e := range entries {
		e = strings.TrimSpace(e)
		if strings.Contains(e, "/") {
			if p, err := netip.ParsePrefix(e); err == nil {
				list = append(list, p.Masked())
			}
			continue
		}
		if a, err := netip.ParseAddr(e); err == nil {
			list = append(list, netip.PrefixFrom(a.Unmap(), a.Unmap().BitLen()))
		}
	}
	return list
}

func (l allowList) contains(addr netip.Addr) bool {
	if !addr.IsValid() {
		return false
	}
	addr = addr.Unmap()
	for _, p := range l {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}

// clientAddr prefers gin's proxy-aware ClientIP and falls back to the
// connection address
func clientAddr(c *gin.Context) netip.Addr {
	if a, err := netip.ParseAddr(c.ClientIP()); err == nil {
		return a
	}
	host, _, err := net.SplitHostPort(c.Request.RemoteAddr)
	if err != nil {
		host = c.Request.RemoteAddr
	}
	a, _ := netip.ParseAddr(host)
	return a
}
