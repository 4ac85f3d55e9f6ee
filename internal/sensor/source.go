package sensor

import (
	"context"

	"github.com/verte-zerg/gyrocall/internal/model"
)

// Source produces readings until ctx is cancelled or the stream ends.
type Source interface {
	Run(ctx context.Context, sink Sink) error
}

// Capability reports whether orientation data may be used. Sources that
// need user consent implement it; Permission blocks until the state is known or
// ctx is done.
type Capability interface {
	Permission(ctx context.Context) (model.Permission, error)
}

// Available is a Capability for sources that need no consent.
type Available struct{}

// Permission implements Capability.
func (Available) Permission(context.Context) (model.Permission, error) {
	return model.PermissionAvailable, nil
}

// CapabilityOf returns src's own Capability, or Available when it has none.
func CapabilityOf(src Source) Capability {
	if c, ok := src.(Capability); ok {
		return c
	}
	return Available{}
}
