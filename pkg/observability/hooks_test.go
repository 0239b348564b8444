package observability

import (
	"context"
	"testing"
	"time"
)

func TestNoopHooksDoNotPanic(t *testing.T) {
	ctx := context.Background()

	// Bundle hooks
	b := NoopBundleHooks{}
	b.OnCheckStart(ctx, "license")
	b.OnCheckComplete(ctx, "license", 2, time.Second, nil)
	b.OnPackStart(ctx, "consumer@1.0.0")
	b.OnPackComplete(ctx, "consumer-1.0.0.tgz", time.Second, nil)

	// Collaborator hooks
	c := NoopCollaboratorHooks{}
	c.OnInvoke(ctx, "bundler")
	c.OnComplete(ctx, "bundler", time.Second, nil)
}

func TestGlobalHooksRegistry(t *testing.T) {
	// Reset to known state
	Reset()

	// Verify defaults are noop
	if _, ok := Bundle().(NoopBundleHooks); !ok {
		t.Error("Bundle() should return NoopBundleHooks by default")
	}
	if _, ok := Collaborator().(NoopCollaboratorHooks); !ok {
		t.Error("Collaborator() should return NoopCollaboratorHooks by default")
	}

	// Set custom hooks
	customBundle := &testBundleHooks{}
	SetBundleHooks(customBundle)
	if Bundle() != customBundle {
		t.Error("SetBundleHooks should set custom hooks")
	}

	customCollaborator := &testCollaboratorHooks{}
	SetCollaboratorHooks(customCollaborator)
	if Collaborator() != customCollaborator {
		t.Error("SetCollaboratorHooks should set custom hooks")
	}

	// Reset and verify
	Reset()
	if _, ok := Bundle().(NoopBundleHooks); !ok {
		t.Error("Reset() should restore NoopBundleHooks")
	}
}

func TestSetNilHooksIsIgnored(t *testing.T) {
	Reset()

	custom := &testBundleHooks{}
	SetBundleHooks(custom)

	// Setting nil should be ignored
	SetBundleHooks(nil)

	if Bundle() != custom {
		t.Error("SetBundleHooks(nil) should be ignored")
	}

	Reset()
}

// Test implementations
type testBundleHooks struct{ NoopBundleHooks }
type testCollaboratorHooks struct{ NoopCollaboratorHooks }
