package domain

import "fmt"

// IngressConfig is the bind address and credential of the front listener.
type IngressConfig struct {
	Host  string
	Port  int
	Token string
}

// Addr returns the host:port bind address.
func (c IngressConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Equal reports whether two ingress configurations are identical.
func (c IngressConfig) Equal(other IngressConfig) bool {
	return c == other
}

// ConfigSnapshot is an immutable, versioned view of the ingress
// configuration. A new snapshot triggers the reconfiguration supervisor;
// the supervisor always acts on the latest version it has seen.
type ConfigSnapshot struct {
	Version uint64
	Ingress IngressConfig
}
