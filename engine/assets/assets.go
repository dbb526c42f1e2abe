package assets

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/kilnworks/vetro/engine/core"
)

type AssetInfo struct {
	Path       string
	LastLoaded time.Time
}

// AssetManager serves files from the assets directory and watches it for
// changes. A create or write under the watched tree fires an
// EVENT_CODE_ASSET_CHANGED event carrying the file path, so interested
// systems can reload without polling.
type AssetManager struct {
	root   string
	assets map[string]AssetInfo

	mutex sync.RWMutex

	done     chan struct{}
	fsnotify *fsnotify.Watcher
	isClosed bool
}

func NewAssetManager() (*AssetManager, error) {
	fsWatch, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &AssetManager{
		assets:   make(map[string]AssetInfo),
		fsnotify: fsWatch,
		done:     make(chan struct{}),
	}, nil
}

func (am *AssetManager) Initialize(assetsDir string) error {
	am.root = assetsDir
	go am.start()
	return am.watchRecursive(assetsDir)
}

func (am *AssetManager) Shutdown() {
	am.mutex.Lock()
	defer am.mutex.Unlock()
	if am.isClosed {
		return
	}
	am.isClosed = true
	close(am.done)
}

// LoadBinary reads a file relative to the assets root, recording the load
// time so reloads can be observed.
func (am *AssetManager) LoadBinary(relPath string) ([]byte, error) {
	path := filepath.Join(am.root, relPath)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading asset %s: %w", relPath, err)
	}

	am.mutex.Lock()
	am.assets[path] = AssetInfo{Path: path, LastLoaded: time.Now()}
	am.mutex.Unlock()

	return data, nil
}

// LoadShaderModule reads a compiled SPIR-V module from the shaders
// subdirectory by its base name, e.g. "color.vert".
func (am *AssetManager) LoadShaderModule(name string) ([]byte, error) {
	data, err := am.LoadBinary(filepath.Join("shaders", name+".spv"))
	if err != nil {
		return nil, err
	}
	if len(data)%4 != 0 {
		return nil, fmt.Errorf("shader %s is not valid SPIR-V: size %d is not a multiple of 4", name, len(data))
	}
	return data, nil
}

func (am *AssetManager) start() {
	for {
		select {
		case e, ok := <-am.fsnotify.Events:
			if !ok {
				return
			}
			if s, err := os.Stat(e.Name); err == nil && s.IsDir() {
				if e.Op&fsnotify.Create != 0 {
					am.watchRecursive(e.Name)
				}
				continue
			}
			if e.Op&(fsnotify.Create|fsnotify.Write) != 0 {
				core.LogDebug("asset changed on disk: %s", e.Name)
				core.EventFire(core.EventContext{
					Type: core.EVENT_CODE_ASSET_CHANGED,
					Data: core.AssetEvent{Path: e.Name},
				})
			}
			if e.Op&fsnotify.Remove != 0 {
				am.removeAsset(e.Name)
			}

		case err, ok := <-am.fsnotify.Errors:
			if !ok {
				return
			}
			core.LogError("asset watcher: %s", err.Error())

		case <-am.done:
			am.fsnotify.Close()
			return
		}
	}
}

// watchRecursive adds the directory and everything below it to the watch
// list. Files created between the walk and the watch taking effect are
// picked up on their next write.
func (am *AssetManager) watchRecursive(path string) error {
	return filepath.Walk(path, func(walkPath string, fi os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if fi.IsDir() {
			return am.fsnotify.Add(walkPath)
		}
		return nil
	})
}

func (am *AssetManager) removeAsset(path string) {
	am.mutex.Lock()
	delete(am.assets, path)
	am.mutex.Unlock()
	am.fsnotify.Remove(path)
}
