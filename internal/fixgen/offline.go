package fixgen

import (
	"context"
	"errors"

	"github.com/EnockMagara/dependafix-sub000/api/schemas"
)

// ErrDisabled is returned by the offline generator for every request.
var ErrDisabled = errors.New("fix generation service not configured")

// Disabled is the generator used when no service endpoint is configured.
// Every call fails immediately, which routes the handlers straight to the
// static substitution table and manual-review stubs.
type Disabled struct{}

// NewDisabled creates the offline generator.
func NewDisabled() Disabled { return Disabled{} }

// GenerateFix implements schemas.FixGenerator.
func (Disabled) GenerateFix(ctx context.Context, req schemas.GenerationRequest) (*schemas.GenerationResponse, error) {
	return nil, ErrDisabled
}

// GenerateGroupFix implements schemas.FixGenerator.
func (Disabled) GenerateGroupFix(ctx context.Context, req schemas.GenerationRequest) (*schemas.GenerationResponse, error) {
	return nil, ErrDisabled
}
