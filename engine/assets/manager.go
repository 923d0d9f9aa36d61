package assets

import (
	"errors"
	"fmt"
	"runtime/debug"

	"github.com/charmbracelet/log"

	"github.com/spaghettifunk/kiln/engine/core"
	"github.com/spaghettifunk/kiln/engine/jobs"
)

const (
	DefaultCacheTag  = "data"
	DefaultSourceTag = "src"
)

// FileSource is the virtual file system the manager reads and writes through.
// Names have the form "tag:path".
type FileSource interface {
	// ModTime returns 0 when the file does not exist.
	ModTime(name string) uint64
	Read(name string) ([]byte, error)
	Write(name string, data []byte) error
	AbsPath(name string) (string, bool)
}

type Config struct {
	Workers   int
	CacheTag  string
	SourceTag string
}

// DeliverFunc receives the payload of a delivery, nil on any failure.
type DeliverFunc func(data AssetData)

// Manager delivers asset payloads on a worker farm, either from the cached
// binary or by rebuilding from the source files.
type Manager struct {
	log       *log.Logger
	registry  *Registry
	files     FileSource
	farm      *jobs.Farm
	cacheTag  string
	sourceTag string
}

func NewManager(registry *Registry, files FileSource, cfg Config) (*Manager, error) {
	if cfg.CacheTag == "" {
		cfg.CacheTag = DefaultCacheTag
	}
	if cfg.SourceTag == "" {
		cfg.SourceTag = DefaultSourceTag
	}
	farm, err := jobs.NewFarm("assets", cfg.Workers)
	if err != nil {
		return nil, err
	}
	return &Manager{
		log:       core.Logger("assets"),
		registry:  registry,
		files:     files,
		farm:      farm,
		cacheTag:  cfg.CacheTag,
		sourceTag: cfg.SourceTag,
	}, nil
}

func (m *Manager) Registry() *Registry {
	return m.registry
}

func (m *Manager) Farm() *jobs.Farm {
	return m.farm
}

// StartWork releases deliveries queued before the farm was started.
func (m *Manager) StartWork() {
	m.farm.StartWork()
}

// AddBarrier makes deliveries requested after it wait for the ones before it.
func (m *Manager) AddBarrier() {
	m.farm.AddBarrier()
}

func (m *Manager) WaitIdle() error {
	return m.farm.WaitIdle()
}

func (m *Manager) KillWorkerFarm() {
	m.farm.KillWorkers()
}

// CacheName returns the virtual name of the cached binary of name.
func (m *Manager) CacheName(info *TypeInfo, name string) string {
	return m.cacheTag + ":" + name + info.Ext
}

// DeliverAsync runs Deliver on the farm and hands the payload, or nil on
// failure, to cb on the worker goroutine.
func (m *Manager) DeliverAsync(tag, name string, params CreateParams, cb DeliverFunc) {
	m.farm.Submit(func() {
		data, err := m.Deliver(tag, name, params)
		if err != nil {
			m.log.Error("asset delivery failed", "type", tag, "name", name, "err", err)
			data = nil
		}
		cb(data)
	})
}

// Deliver resolves one asset synchronously. The cached binary is used when it
// exists and no source file is newer; otherwise the asset is rebuilt from its
// sources and written back to the cache.
func (m *Manager) Deliver(tag, name string, params CreateParams) (AssetData, error) {
	info, ok := m.registry.Lookup(tag)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownAssetType, tag)
	}
	m.log.Debug(">> request asset", "name", name, "type", tag)

	cacheName := m.CacheName(info, name)
	binTime := m.files.ModTime(cacheName)

	sources := make([]string, len(info.Sources))
	var srcTime uint64
	missingRequired := -1
	for i, group := range info.Sources {
		for _, ext := range group.Extensions {
			candidate := m.sourceTag + ":" + name + ext
			if t := m.files.ModTime(candidate); t > 0 {
				sources[i] = candidate
				if t > srcTime {
					srcTime = t
				}
				break
			}
		}
		if sources[i] == "" && group.Required && missingRequired < 0 {
			missingRequired = i
		}
	}

	if srcTime == 0 && binTime == 0 {
		return nil, fmt.Errorf("%w: %s [%s]", ErrAssetNotFound, name, tag)
	}

	if binTime > 0 && (srcTime == 0 || srcTime <= binTime) {
		data, err := m.loadCached(info, cacheName)
		if err == nil {
			m.log.Debug("deliver from asset data", "name", name, "type", tag)
			return data, nil
		}
		if srcTime == 0 {
			return nil, err
		}
		m.log.Info("cached asset unusable, rebuilding", "name", cacheName, "err", err)
	}

	if missingRequired >= 0 {
		return nil, fmt.Errorf("%w: %s [%s] missing required source group %d", ErrBuildFailed, name, tag, missingRequired)
	}
	return m.build(info, name, cacheName, sources, params)
}

func (m *Manager) loadCached(info *TypeInfo, cacheName string) (AssetData, error) {
	raw, err := m.files.Read(cacheName)
	if err != nil {
		return nil, fmt.Errorf("failed to read asset data file %s: %w", cacheName, err)
	}
	data := info.New()
	if err := DecodeAsset(info, raw, data); err != nil {
		if errors.Is(err, ErrStaleAsset) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to decode %s: %w", cacheName, err)
	}
	return data, nil
}

func (m *Manager) build(info *TypeInfo, name, cacheName string, sources []string, params CreateParams) (AssetData, error) {
	data := info.New()
	builder, ok := data.(SourceBuilder)
	if !ok {
		return nil, fmt.Errorf("%w: type %s cannot be built from source", ErrBuildFailed, info.Name)
	}

	files := make([]SourceFile, len(sources))
	for i, src := range sources {
		if src == "" {
			continue
		}
		raw, err := m.files.Read(src)
		if err != nil {
			return nil, fmt.Errorf("%w: reading %s: %v", ErrBuildFailed, src, err)
		}
		files[i] = SourceFile{Name: src, Data: raw}
		if path, ok := m.files.AbsPath(src); ok {
			files[i].Path = path
		}
	}

	m.log.Debug("deliver from src files", "name", name, "type", info.Name)
	if err := runBuilder(builder, files, params); err != nil {
		return nil, fmt.Errorf("%w: %s [%s]: %v", ErrBuildFailed, name, info.Name, err)
	}

	encoded, err := EncodeAsset(info, data)
	if err != nil {
		m.log.Error("failed to serialise asset", "name", cacheName, "err", err)
		return data, nil
	}
	if err := m.files.Write(cacheName, encoded); err != nil {
		// the asset is built, it just cannot be cached
		m.log.Error("failed to write asset data, check disk space and permissions", "name", cacheName, "err", err)
	}
	return data, nil
}

func runBuilder(b SourceBuilder, files []SourceFile, params CreateParams) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("builder panicked: %v\n%s", r, debug.Stack())
		}
	}()
	return b.BuildFromSource(files, params)
}
