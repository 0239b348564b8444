// Package observability provides hooks for metrics, tracing, and logging.
//
// This package enables optional instrumentation without adding hard dependencies
// on specific observability backends. Consumers can register hooks at startup
// to receive events about validation checks and collaborator invocations.
//
// # Architecture
//
// The package uses a simple hooks pattern:
//   - Define hook interfaces for different event categories
//   - Provide no-op default implementations
//   - Allow registration of custom implementations at startup
//
// Hooks are registered by main, never by libraries, so library packages
// stay free of observability frameworks.
//
// # Usage
//
// Register hooks at application startup:
//
//	func main() {
//	    observability.SetBundleHooks(&myBundleHooks{})
//	    observability.SetCollaboratorHooks(&myCollaboratorHooks{})
//	    // ... run application
//	}
//
// Libraries call hooks to emit events:
//
//	observability.Bundle().OnCheckStart(ctx, "license")
//	// ... run the check ...
//	observability.Bundle().OnCheckComplete(ctx, "license", len(violations), duration, err)
package observability

import (
	"context"
	"sync"
	"time"
)

// =============================================================================
// Bundle Hooks
// =============================================================================

// BundleHooks receives events from validation, fix and pack runs.
type BundleHooks interface {
	// Check events, one pair per check (license, cycles, notice, resources)
	OnCheckStart(ctx context.Context, check string)
	OnCheckComplete(ctx context.Context, check string, violations int, duration time.Duration, err error)

	// Pack events
	OnPackStart(ctx context.Context, pkg string)
	OnPackComplete(ctx context.Context, tarball string, duration time.Duration, err error)
}

// =============================================================================
// Collaborator Hooks
// =============================================================================

// CollaboratorHooks receives events from the external tools a pack run
// delegates to: the bundler, the sanity-test command and the archiver.
type CollaboratorHooks interface {
	// OnInvoke records the start of a collaborator call.
	OnInvoke(ctx context.Context, collaborator string)

	// OnComplete records the outcome of a collaborator call.
	OnComplete(ctx context.Context, collaborator string, duration time.Duration, err error)
}

// =============================================================================
// No-op Implementations
// =============================================================================

// NoopBundleHooks is a no-op implementation of BundleHooks.
type NoopBundleHooks struct{}

func (NoopBundleHooks) OnCheckStart(context.Context, string)                                {}
func (NoopBundleHooks) OnCheckComplete(context.Context, string, int, time.Duration, error) {}
func (NoopBundleHooks) OnPackStart(context.Context, string)                                 {}
func (NoopBundleHooks) OnPackComplete(context.Context, string, time.Duration, error)        {}

// NoopCollaboratorHooks is a no-op implementation of CollaboratorHooks.
type NoopCollaboratorHooks struct{}

func (NoopCollaboratorHooks) OnInvoke(context.Context, string)                          {}
func (NoopCollaboratorHooks) OnComplete(context.Context, string, time.Duration, error) {}

// =============================================================================
// Global Hook Registry
// =============================================================================

var (
	bundleHooks       BundleHooks       = NoopBundleHooks{}
	collaboratorHooks CollaboratorHooks = NoopCollaboratorHooks{}
	hooksMu           sync.RWMutex
)

// SetBundleHooks registers custom bundle hooks.
// This should be called once at application startup before any validation.
func SetBundleHooks(h BundleHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		bundleHooks = h
	}
}

// SetCollaboratorHooks registers custom collaborator hooks.
// This should be called once at application startup before any pack run.
func SetCollaboratorHooks(h CollaboratorHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		collaboratorHooks = h
	}
}

// Bundle returns the registered bundle hooks.
func Bundle() BundleHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return bundleHooks
}

// Collaborator returns the registered collaborator hooks.
func Collaborator() CollaboratorHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return collaboratorHooks
}

// Reset restores all hooks to their no-op defaults.
// This is primarily useful for testing.
func Reset() {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	bundleHooks = NoopBundleHooks{}
	collaboratorHooks = NoopCollaboratorHooks{}
}
