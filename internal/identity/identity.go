// Package identity supplies the caller's ledger identity.
package identity

import "context"

// Provider returns the connected identity, or ok=false when none is connected.
type Provider interface {
	Identity(ctx context.Context) (address string, ok bool)
}

// Static is a fixed identity, typically read from config or the environment.
// It is returned exactly as given. The empty string means not connected.
type Static string

// Identity implements Provider.
func (s Static) Identity(context.Context) (string, bool) {
	return string(s), s != ""
}

// Resolve returns p's identity, or "" when p is nil or not connected.
func Resolve(ctx context.Context, p Provider) string {
	if p == nil {
		return ""
	}
	addr, ok := p.Identity(ctx)
	if !ok {
		return ""
	}
	return addr
}
