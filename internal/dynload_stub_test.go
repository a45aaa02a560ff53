//go:build !dynload

// Tests for dynload_stub.go -- the default build (no dynload tag).

package iotrt_internal

import "testing"

func TestDynloadDisabledByDefault(t *testing.T) {
	if dynloadEnabled {
		t.Fatal("dynloadEnabled should be false without the dynload build tag")
	}
}

func TestDynloadStubLogsAndReturnsNil(t *testing.T) {
	log := NewCompLogger("dynload-test")
	h := tryLoadComponentFactory(log, "libfoo.so", "foo_factory")
	if h != nil {
		t.Errorf("tryLoadComponentFactory on the stub build should return nil, got %v", h)
	}
}
