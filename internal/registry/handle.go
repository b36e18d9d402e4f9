package registry

import (
	"context"

	"codeatlas/internal/address"
	"codeatlas/internal/resource"
)

// Handle is a callable front for one address in the registry. Calling it
// navigates there; Child composes dotted addresses so handles can be chained
// without string concatenation at call sites.
type Handle struct {
	registry *Registry
	addr     address.Address
}

// Address returns the dotted address this handle navigates to.
func (h *Handle) Address() string { return h.addr.String() }

// Call navigates the registry to the handle's address.
func (h *Handle) Call(ctx context.Context) (string, error) {
	return h.registry.Navigate(ctx, h.addr.String())
}

// Child returns a handle one segment deeper.
func (h *Handle) Child(name string) (*Handle, error) {
	child, err := h.addr.Child(name)
	if err != nil {
		return nil, resource.Addressf("%v", err)
	}
	return &Handle{registry: h.registry, addr: child}, nil
}
