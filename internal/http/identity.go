package http

import (
	"net/http"
	"strings"

	"caption-llm/internal/service"
)

// ResolveIdentity obtiene la clave de rate limit desde las cabeceras de proxy.
// Sin cabeceras, todos los clientes comparten el bucket "unknown".
func ResolveIdentity(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}
	return service.UnknownIdentity
}
