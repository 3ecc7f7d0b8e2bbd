package handlers

import (
	"context"

	"go.uber.org/zap"

	"github.com/EnockMagara/dependafix-sub000/api/schemas"
)

// Handler is the shared contract of all category handlers. Detect is a pure
// function of the build output plus read access to the repository; Apply
// mutates the working tree through the shared Applier.
type Handler interface {
	// Category reports which issue category this handler owns.
	Category() schemas.Category
	// Detect scans build output for issues of this handler's category.
	Detect(output, repoPath string) []schemas.Issue
	// GenerateFix produces a fix for one issue. It never fails: when the
	// generation collaborator is unavailable it falls back to the static
	// substitution table, and when no table entry matches it returns a
	// manual-review stub, so every detected issue yields a fix.
	GenerateFix(ctx context.Context, issue schemas.Issue, change *schemas.VersionChange) schemas.Fix
	// Apply writes the fix to the working tree.
	Apply(fix schemas.Fix) error
}

// GroupHandler is implemented by handlers whose fixes span multiple files.
// The orchestrator prefers the group path when available so that coordinated
// edits come from a single generation call per group.
type GroupHandler interface {
	Handler
	// Groups returns the file groups discovered by the last Detect call.
	Groups() []schemas.FileGroup
	// GenerateGroupFixes requests one coordinated fix per group and expands
	// it into per-file fixes.
	GenerateGroupFixes(ctx context.Context, change *schemas.VersionChange) []schemas.Fix
}

// Registry holds the category handlers in a lookup table. Adding a sixth
// category means registering one more handler; the orchestrator never
// enumerates concrete types.
type Registry struct {
	handlers map[schemas.Category]Handler
	order    []schemas.Category
}

// NewRegistry creates a registry populated with the five standard handlers.
func NewRegistry(logger *zap.Logger, gen schemas.FixGenerator) *Registry {
	applier := NewApplier(logger)
	r := &Registry{
		handlers: make(map[schemas.Category]Handler),
		order:    schemas.HandlerCategories,
	}
	r.Register(NewDependencyScopeHandler(logger, gen, applier))
	r.Register(NewRemovedClassHandler(logger, gen, applier))
	r.Register(NewDeprecatedMethodHandler(logger, gen, applier))
	r.Register(NewAPISignatureChangeHandler(logger, gen, applier))
	r.Register(NewMultiFileChangeHandler(logger, gen, applier))
	return r
}

// Register adds a handler to the table, extending the apply order if its
// category is new.
func (r *Registry) Register(h Handler) {
	if _, known := r.handlers[h.Category()]; !known {
		found := false
		for _, c := range r.order {
			if c == h.Category() {
				found = true
				break
			}
		}
		if !found {
			r.order = append(r.order, h.Category())
		}
	}
	r.handlers[h.Category()] = h
}

// Handler looks up the handler for a category.
func (r *Registry) Handler(c schemas.Category) (Handler, bool) {
	h, ok := r.handlers[c]
	return h, ok
}

// All returns the handlers in apply order.
func (r *Registry) All() []Handler {
	out := make([]Handler, 0, len(r.order))
	for _, c := range r.order {
		if h, ok := r.handlers[c]; ok {
			out = append(out, h)
		}
	}
	return out
}

// ApplyOrder returns the fixed category order fixes must be applied in.
func (r *Registry) ApplyOrder() []schemas.Category {
	return r.order
}
