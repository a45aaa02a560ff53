// Container: named registry of components, driving configuration-driven
// instantiation (with optional dynamic library load), ordered startup and
// shutdown, and runtime add/remove. The holder array grows in chunks during
// Init and one slot at a time for AddComponent; snapshots returned by
// ListComponents/ListContainers are deep-cloned so callers can't reach back
// into the container's internal state.

package iotrt_internal

import (
	"fmt"
	"sync"

	clone "github.com/huandu/go-clone"
)

// ComponentDelta is the chunk size by which a container's holder array grows
// during Init; post-init growth (AddComponent) is one slot at a time,
// matching a conservative, allocation-amortizing growth policy.
const ComponentDelta = 4

var containerLog = NewCompLogger("container")

type componentHolder struct {
	component Component
	factory   *ComponentFactory
	name      string
}

// ComponentInfo is a snapshot row returned by ListComponents.
type ComponentInfo struct {
	Name  string
	Type  string
	State ComponentState
}

// Container is a named registry of components in declaration order.
// Declaration order is both the startup order and the reverse of the
// teardown order.
type Container struct {
	name string

	mu      sync.RWMutex
	holders []*componentHolder // holders[0:ccount] are valid, [ccount:] unused
	ccount  int

	handles []*dlHandle

	insertIndex int
	next, prev  *Container
}

func (c *Container) Name() string { return c.name }

// Alloc creates a uniquely named container and links it into the global
// registry. A duplicate name returns nil (silently ignored).
func Alloc(name string) *Container {
	globalMu.Lock()
	defer globalMu.Unlock()

	if findContainerLocked(name) != nil {
		return nil
	}

	cont := &Container{
		name:    name,
		holders: make([]*componentHolder, ComponentDelta),
	}

	cont.insertIndex = nextContainerIndex()
	cont.next = containerHead
	if containerHead != nil {
		containerHead.prev = cont
	}
	containerHead = cont
	return cont
}

var containerIndexCounter int

func nextContainerIndex() int {
	idx := containerIndexCounter
	containerIndexCounter++
	return idx
}

func findContainerLocked(name string) *Container {
	for c := containerHead; c != nil; c = c.next {
		if c.name == name {
			return c
		}
	}
	return nil
}

// Find looks up a container by name.
func Find(name string) *Container {
	globalMu.Lock()
	defer globalMu.Unlock()
	return findContainerLocked(name)
}

// Free unlinks the container from the global registry, stops nothing itself
// (callers are expected to Stop first), frees every component in reverse
// declaration order and closes any retained dynamic-library handles.
func (c *Container) Free() {
	globalMu.Lock()
	if c.next != nil {
		c.next.prev = c.prev
	}
	if c.prev != nil {
		c.prev.next = c.next
	} else if containerHead == c {
		containerHead = c.next
	}
	globalMu.Unlock()

	c.mu.Lock()
	for i := c.ccount - 1; i >= 0; i-- {
		h := c.holders[i]
		if h.factory != nil && h.factory.FreeFn != nil {
			h.factory.FreeFn(h.component)
		} else {
			h.component.Free()
		}
	}
	c.ccount = 0
	c.holders = nil
	for _, h := range c.handles {
		h.Close()
	}
	c.handles = nil
	c.mu.Unlock()
}

// growHolders grows the holder slice by ComponentDelta when chunked is true
// (init-time instantiation) or by exactly one slot otherwise (AddComponent).
func (c *Container) growHolders(chunked bool) {
	if c.ccount+1 != len(c.holders) {
		return
	}
	delta := 1
	if chunked {
		delta = ComponentDelta
	}
	grown := make([]*componentHolder, len(c.holders)+delta)
	copy(grown, c.holders)
	c.holders = grown
}

func (c *Container) appendHolder(h *componentHolder, chunked bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.growHolders(chunked)
	c.holders[c.ccount] = h
	c.ccount++
}

func (c *Container) addDLHandle(h *dlHandle) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handles = append(c.handles, h)
}

func (c *Container) componentConfig(name string) (map[string]any, error) {
	loader := currentGlobalLoader()
	if loader == nil {
		return nil, fmt.Errorf("no global loader configured")
	}
	raw, err := loader.Load(name, loader.Uri)
	if err != nil {
		return nil, err
	}
	return DecodeConfigMap([]byte(raw))
}

func (c *Container) rawComponentConfig(name string) (string, error) {
	loader := currentGlobalLoader()
	if loader == nil {
		return "", fmt.Errorf("no global loader configured")
	}
	return loader.Load(name, loader.Uri)
}

// dynLoadConfig is the shape of the two reserved keys a per-component config
// may carry when dynamic loading is needed.
type dynLoadConfig struct {
	Library string
	Factory string
}

func (c *Container) tryDynamicLoad(rawConfig string) {
	var dl dynLoadConfig
	m, err := DecodeConfigMap([]byte(rawConfig))
	if err != nil {
		containerLog.Errorf("container %q: invalid per-component config for dynamic load: %v", c.name, err)
		return
	}
	if err := DecodeInto(m, &dl); err != nil || dl.Library == "" || dl.Factory == "" {
		containerLog.Warnf("container %q: missing Library/Factory fields, skipping dynamic load", c.name)
		return
	}
	if h := tryLoadComponentFactory(containerLog, dl.Library, dl.Factory); h != nil {
		c.addDLHandle(h)
	}
}

// Init reads the container's own configuration via the installed loader,
// which maps component name -> component type, preserving declaration
// order. It performs the discovery pass (dynamic load of unknown types,
// when enabled) over the full map, then the instantiation pass over the
// full map -- the original reference advances its map iterator during
// discovery so instantiation silently starts mid-map; this implementation
// avoids that by iterating the complete map both times.
func (c *Container) Init() error {
	loader := currentGlobalLoader()
	if loader == nil {
		return fmt.Errorf("container %q: no global loader configured", c.name)
	}
	topLevel, err := loader.Load(c.name, loader.Uri)
	if err != nil {
		return fmt.Errorf("container %q: %w", c.name, err)
	}

	keys, types, err := DecodeOrderedStringMap([]byte(topLevel))
	if err != nil {
		return fmt.Errorf("container %q: invalid configuration: %w", c.name, err)
	}

	if dynloadEnabled {
		for _, name := range keys {
			ctype := types[name]
			if FindComponentFactory(ctype) != nil {
				continue
			}
			rawConfig, err := c.rawComponentConfig(name)
			if err != nil {
				containerLog.Warnf("container %q: component %q: could not load config for dynamic load: %v", c.name, name, err)
				continue
			}
			c.tryDynamicLoad(rawConfig)
		}
	}

	for _, name := range keys {
		ctype := types[name]
		factory := FindComponentFactory(ctype)
		if factory == nil {
			containerLog.Errorf("container %q: component %q: unknown factory type %q", c.name, name, ctype)
			continue
		}
		config, err := c.componentConfig(name)
		if err != nil {
			containerLog.Warnf("container %q: component %q: could not load config: %v", c.name, name, err)
			continue
		}
		comp := factory.ConfigFn(c, config)
		if comp == nil {
			continue
		}
		c.appendHolder(&componentHolder{component: comp, factory: factory, name: name}, true)
	}
	return nil
}

// Start iterates holders in declaration order (dependencies first) and
// returns the AND of every component's Start result.
func (c *Container) Start() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	ok := true
	for i := 0; i < c.ccount; i++ {
		ok = c.holders[i].component.Start() && ok
	}
	return ok
}

// Stop iterates in reverse declaration order.
func (c *Container) Stop() {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for i := c.ccount - 1; i >= 0; i-- {
		c.holders[i].component.Stop()
	}
}

// AddComponent is the runtime add: optionally dynamic-load, resolve
// factory, instantiate, and append a holder. Post-init growth is one slot
// at a time.
func (c *Container) AddComponent(ctype, name, rawConfig string) error {
	factory := FindComponentFactory(ctype)
	if factory == nil && dynloadEnabled {
		c.tryDynamicLoad(rawConfig)
		factory = FindComponentFactory(ctype)
	}
	if factory == nil {
		containerLog.Errorf("container %q: could not find or load factory %q", c.name, ctype)
		return fmt.Errorf("unknown component type %q", ctype)
	}
	config, err := DecodeConfigMap([]byte(rawConfig))
	if err != nil {
		return fmt.Errorf("component %q: invalid config: %w", name, err)
	}
	comp := factory.ConfigFn(c, config)
	if comp == nil {
		return fmt.Errorf("component %q: factory %q declined to construct", name, ctype)
	}
	c.appendHolder(&componentHolder{component: comp, factory: factory, name: name}, false)
	return nil
}

// DeleteComponent stops the named component (if not already stopped), frees
// it, and compacts the holder array, preserving the order of the remaining
// entries.
func (c *Container) DeleteComponent(name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	index := -1
	for i := 0; i < c.ccount; i++ {
		if c.holders[i].name == name {
			index = i
			break
		}
	}
	if index < 0 {
		return fmt.Errorf("component %q not found", name)
	}

	h := c.holders[index]
	if h.component.State() != ComponentStopped {
		h.component.Stop()
	}
	if h.factory != nil && h.factory.FreeFn != nil {
		h.factory.FreeFn(h.component)
	} else {
		h.component.Free()
	}

	for i := index; i < c.ccount-1; i++ {
		c.holders[i] = c.holders[i+1]
	}
	c.holders[c.ccount-1] = nil
	c.ccount--
	return nil
}

// FindComponent does a linear scan under the read lock.
func (c *Container) FindComponent(name string) Component {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for i := 0; i < c.ccount; i++ {
		if c.holders[i].name == name {
			return c.holders[i].component
		}
	}
	return nil
}

// ListComponents returns a snapshot of (name, type, state) for each holder,
// deep-cloned so mutating the returned slice cannot reach into the
// container's internal state.
func (c *Container) ListComponents() []ComponentInfo {
	c.mu.RLock()
	info := make([]ComponentInfo, c.ccount)
	for i := 0; i < c.ccount; i++ {
		h := c.holders[i]
		info[i] = ComponentInfo{Name: h.name, Type: h.factory.Type, State: h.component.State()}
	}
	c.mu.RUnlock()
	return clone.Clone(info).([]ComponentInfo)
}

// ListContainers returns a snapshot of all containers keyed by insertion
// index.
func ListContainers() map[int]string {
	globalMu.Lock()
	snapshot := make(map[int]string)
	for cont := containerHead; cont != nil; cont = cont.next {
		snapshot[cont.insertIndex] = cont.name
	}
	globalMu.Unlock()
	return clone.Clone(snapshot).(map[int]string)
}
