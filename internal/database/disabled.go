package database

import "context"

// DisabledGateway never yields a handle. Injecting it forces every store
// built on top of it onto the in-memory path.
type DisabledGateway struct{}

// NewDisabledGateway returns a gateway whose Open always fails.
func NewDisabledGateway() DisabledGateway { return DisabledGateway{} }

func (DisabledGateway) Driver() string   { return DriverDisabled }
func (DisabledGateway) Platform() string { return currentPlatform() }

func (DisabledGateway) Open(context.Context, string) (Handle, error) {
	return nil, ErrGatewayDisabled
}
