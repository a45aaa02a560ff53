// The configuration loader capability: (name, uri) -> json. It is a value
// (a GlobalLoader struct) installed in a process-wide slot by Config;
// Container reads that slot, so every container uses the loader most
// recently installed, and tests install their own loader through Config.

package iotrt_internal

// GlobalLoader is the capability Container.Init uses to fetch configuration:
// Load(name, uri) -> json string. Uri is carried alongside the function so
// callers of Config need not close over it themselves.
type GlobalLoader struct {
	Load func(name, uri string) (string, error)
	Uri  string
}

var globalLoader *GlobalLoader

// Config installs the process-wide loader, matching the container
// contract's `config(global_loader)`.
func Config(gl *GlobalLoader) {
	globalLoaderMu.Lock()
	defer globalLoaderMu.Unlock()
	globalLoader = gl
}

func currentGlobalLoader() *GlobalLoader {
	globalLoaderMu.Lock()
	defer globalLoaderMu.Unlock()
	return globalLoader
}

// FileLoader is a reference GlobalLoader backed by the filesystem: uri is a
// directory and each component's configuration lives at
// "<uri>/<name>.json". Reads go through a pooled buffer
// (readfile_buf_pool.go) instead of a one-shot os.ReadFile to avoid an
// allocation per config fetch.
type FileLoader struct {
	bufPool *ReadFileBufPool
}

func NewFileLoader() *FileLoader {
	return &FileLoader{bufPool: NewBufPool(8)}
}

func (fl *FileLoader) Load(name, uri string) (string, error) {
	path := uri + "/" + name + ".json"
	buf, err := fl.bufPool.ReadFile(path)
	if err != nil {
		return "", err
	}
	defer fl.bufPool.ReturnBuf(buf)
	return buf.String(), nil
}

// AsGlobalLoader adapts fl into a GlobalLoader bound to uri.
func (fl *FileLoader) AsGlobalLoader(uri string) *GlobalLoader {
	return &GlobalLoader{Load: fl.Load, Uri: uri}
}
