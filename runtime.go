// The public face of the runtime for users of this module.

package iotruntime

import (
	"github.com/sirupsen/logrus"

	iotrt_internal "github.com/aron566/iot-runtime/internal"
)

// ComponentState re-exports the lifecycle states a Component moves through.
type ComponentState = iotrt_internal.ComponentState

const (
	ComponentInitialized = iotrt_internal.ComponentInitialized
	ComponentRunning     = iotrt_internal.ComponentRunning
	ComponentStopped     = iotrt_internal.ComponentStopped
	ComponentDeleted     = iotrt_internal.ComponentDeleted
)

// Component is the capability set every container-managed object exposes.
type Component = iotrt_internal.Component

// ComponentFactory is a process-wide registry entry mapping a type name to a
// constructor. Register one from an init() the same way Scheduler and Bus
// register themselves.
type ComponentFactory = iotrt_internal.ComponentFactory

// RegisterComponentFactory adds factory to the global registry. A duplicate
// Type is silently ignored.
func RegisterComponentFactory(factory *ComponentFactory) {
	iotrt_internal.RegisterComponentFactory(factory)
}

// FindComponentFactory looks up a registered factory by type name.
func FindComponentFactory(typeName string) *ComponentFactory {
	return iotrt_internal.FindComponentFactory(typeName)
}

// ThreadPool is the external collaborator the Scheduler and Bus post work
// to; supply any type satisfying this interface, or use ChannelThreadPool.
type ThreadPool = iotrt_internal.ThreadPool

// ChannelThreadPool is the reference ThreadPool implementation.
type ChannelThreadPool = iotrt_internal.ChannelThreadPool

func NewChannelThreadPool(numWorkers int) *ChannelThreadPool {
	return iotrt_internal.NewChannelThreadPool(numWorkers)
}

// Schedule is a single job descriptor owned by a Scheduler.
type Schedule = iotrt_internal.Schedule

// Scheduler is a time-driven dispatcher: one goroutine sleeps until the
// earliest due schedule, hands its function to a ThreadPool, and reschedules
// it per its repeat/period.
type Scheduler = iotrt_internal.Scheduler

func NewScheduler(pool ThreadPool) *Scheduler {
	return iotrt_internal.NewScheduler(pool)
}

// Value is the opaque, reference-counted payload type the Bus carries.
type Value = iotrt_internal.Value

// ValueKind tags a Value's concrete shape.
type ValueKind = iotrt_internal.ValueKind

// MapValue is the in-module reference Value: an ordered string-keyed map.
type MapValue = iotrt_internal.MapValue

func NewMapValue() *MapValue { return iotrt_internal.NewMapValue() }

// MatchTopic reports whether topic satisfies pattern under the bus's
// '+'/'#' glob grammar.
func MatchTopic(pattern, topic string) bool {
	return iotrt_internal.MatchTopic(pattern, topic)
}

// Subscription and Publisher are the two registration handles a Bus hands
// back from SubAlloc/PubAlloc.
type Subscription = iotrt_internal.Subscription
type Publisher = iotrt_internal.Publisher

// Bus is an in-process topic pub/sub component, itself instantiable from
// container configuration as the "bus" component type.
type Bus = iotrt_internal.Bus

func NewBus() *Bus { return iotrt_internal.NewBus() }

// Container is a named registry of components, driving configuration-driven
// instantiation, ordered startup/shutdown, and runtime add/remove.
type Container = iotrt_internal.Container

// ComponentInfo is a snapshot row returned by Container.ListComponents.
type ComponentInfo = iotrt_internal.ComponentInfo

// Alloc creates a uniquely named container and links it into the global
// registry; a duplicate name returns nil.
func Alloc(name string) *Container { return iotrt_internal.Alloc(name) }

// Find looks up a container by name in the global registry.
func Find(name string) *Container { return iotrt_internal.Find(name) }

// ListContainers returns a snapshot of all containers keyed by insertion
// index.
func ListContainers() map[int]string { return iotrt_internal.ListContainers() }

// GlobalLoader is the capability Container.Init uses to fetch configuration:
// Load(name, uri) -> json string.
type GlobalLoader = iotrt_internal.GlobalLoader

// Config installs the process-wide configuration loader.
func Config(gl *GlobalLoader) { iotrt_internal.Config(gl) }

// FileLoader is a reference GlobalLoader backed by the filesystem, where
// each component's configuration lives at "<uri>/<name>.json".
type FileLoader = iotrt_internal.FileLoader

func NewFileLoader() *FileLoader { return iotrt_internal.NewFileLoader() }

// RuntimeConfig is the process bootstrap configuration (instance name,
// logger config, default worker-pool sizing), loaded once before a host
// program calls Container.Init; distinct from the per-component JSON the
// container and bus consume.
type RuntimeConfig = iotrt_internal.RuntimeConfig

func DefaultRuntimeConfig() *RuntimeConfig { return iotrt_internal.DefaultRuntimeConfig() }

// LoadRuntimeConfig loads a RuntimeConfig from a YAML file (or buf, if
// non-nil, for testing).
func LoadRuntimeConfig(cfgFile string, buf []byte) (*RuntimeConfig, error) {
	return iotrt_internal.LoadRuntimeConfig(cfgFile, buf)
}

// LoggerConfig controls the root logger's level, format, and destination.
type LoggerConfig = iotrt_internal.LoggerConfig

func DefaultLoggerConfig() *LoggerConfig { return iotrt_internal.DefaultLoggerConfig() }

// SetLogger (re)configures the root logger from logCfg (nil uses defaults).
func SetLogger(logCfg *LoggerConfig) error { return iotrt_internal.SetLogger(logCfg) }

// NewCompLogger creates a component sub-logger tagged comp=compName.
func NewCompLogger(compName string) *logrus.Entry {
	return iotrt_internal.NewCompLogger(compName)
}

// GetRootLogger exposes the root logger, needed only for tests that capture
// log output (see testutils.NewTestLogCollect); its concrete type is
// obscured.
func GetRootLogger() any { return iotrt_internal.GetRootLogger() }

// AddCallerSrcPathPrefixToLogger registers the caller's module root (going
// up upNDirs directories from the caller's own file) as a path prefix to
// strip when logging source locations. Typically called once from an
// embedding program's init(), assuming that call site is at the module
// root.
func AddCallerSrcPathPrefixToLogger(upNDirs int) error {
	return iotrt_internal.AddCallerSrcPathPrefixToLogger(upNDirs, 1)
}
