//go:build dynload

// Dynamic loading of component factories from shared objects, behind a
// build tag so the core container is usable without it. Go's only portable
// mechanism for loading native code produced outside the current build is
// the standard library's plugin package (linux/darwin, same toolchain
// version as the host binary).

package iotrt_internal

import "plugin"

// dlHandle wraps the opened plugin so the container can close it at
// teardown.
type dlHandle struct {
	p *plugin.Plugin
}

func (h *dlHandle) Close() error {
	// plugin.Plugin has no Close/unload -- the Go runtime does not support
	// unloading a loaded plugin. The handle is kept only so the container's
	// own bookkeeping stays consistent; there is nothing left to release here.
	return nil
}

// tryLoadComponentFactory opens library and resolves factorySymbol as a
// nullary function returning a *ComponentFactory. On success it registers
// the returned factory and returns a handle for the container to retain;
// on any failure (missing library, missing symbol, wrong signature) it
// logs and returns nil rather than treating the failure as fatal.
func tryLoadComponentFactory(log logEntry, library, factorySymbol string) *dlHandle {
	p, err := plugin.Open(library)
	if err != nil {
		log.Errorf("could not dynamically load library %q: %v", library, err)
		return nil
	}

	sym, err := p.Lookup(factorySymbol)
	if err != nil {
		log.Errorf("could not find factory symbol %q in library %q: %v", factorySymbol, library, err)
		return nil
	}

	factoryFn, ok := sym.(func() *ComponentFactory)
	if !ok {
		log.Errorf("symbol %q in library %q is not a nullary factory constructor", factorySymbol, library)
		return nil
	}

	RegisterComponentFactory(factoryFn())
	return &dlHandle{p: p}
}

const dynloadEnabled = true
