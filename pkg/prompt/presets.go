package prompt

import (
	"fmt"
	"sync"

	"github.com/BurntSushi/toml"
	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/conduitlabs/relay/pkg/chat"
)

// DefaultPresetKey always exists and carries no extra instructions.
const DefaultPresetKey = "default"

// Table is the jailbreak preset lookup: a named, pre-authored sequence of
// instruction messages selected by key and spliced into the conversation.
// Unknown keys are a configuration error, never silently defaulted.
type Table struct {
	mu      sync.RWMutex
	presets map[string][]chat.Message

	path    string
	watcher *fsnotify.Watcher
	logger  *zap.Logger
}

// presetFile is the on-disk TOML shape:
//
//	[presets]
//	[[presets.gpt-dan]]
//	role = "user"
//	content = "..."
type presetFile struct {
	Presets map[string][]chat.Message `toml:"presets"`
}

// NewTable creates a table holding only the built-in default preset.
func NewTable(logger *zap.Logger) *Table {
	return &Table{
		presets: map[string][]chat.Message{DefaultPresetKey: {}},
		logger:  logger,
	}
}

// LoadTable reads the preset table from a TOML file. The built-in default
// key is added if the file does not define one.
func LoadTable(path string, logger *zap.Logger) (*Table, error) {
	t := NewTable(logger)
	t.path = path
	if err := t.reload(); err != nil {
		return nil, err
	}
	return t, nil
}

func (t *Table) reload() error {
	var file presetFile
	if _, err := toml.DecodeFile(t.path, &file); err != nil {
		return fmt.Errorf("loading preset table %s: %w", t.path, err)
	}

	presets := file.Presets
	if presets == nil {
		presets = map[string][]chat.Message{}
	}
	if _, ok := presets[DefaultPresetKey]; !ok {
		presets[DefaultPresetKey] = []chat.Message{}
	}

	t.mu.Lock()
	t.presets = presets
	t.mu.Unlock()

	t.logger.Info("preset table loaded",
		zap.String("path", t.path),
		zap.Int("presets", len(presets)),
	)
	return nil
}

// Lookup returns the preset messages for key. The returned slice must not be
// mutated by callers.
func (t *Table) Lookup(key string) ([]chat.Message, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	preset, ok := t.presets[key]
	if !ok {
		return nil, &chat.ConfigurationError{Msg: fmt.Sprintf("unknown jailbreak preset %q", key)}
	}
	return preset, nil
}

// Set registers or replaces a preset. Used by tests and embedded setups.
func (t *Table) Set(key string, messages []chat.Message) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.presets[key] = messages
}

// Watch reloads the table whenever the backing file changes. No-op for
// tables without a file.
func (t *Table) Watch() error {
	if t.path == "" {
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating preset watcher: %w", err)
	}
	if err := watcher.Add(t.path); err != nil {
		watcher.Close()
		return fmt.Errorf("watching preset table %s: %w", t.path, err)
	}
	t.watcher = watcher

	go func() {
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				if err := t.reload(); err != nil {
					// Keep serving the last good table on a bad write.
					t.logger.Warn("preset table reload failed", zap.Error(err))
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				t.logger.Warn("preset watcher error", zap.Error(err))
			}
		}
	}()

	return nil
}

// Close stops the file watcher if one is running.
func (t *Table) Close() error {
	if t.watcher != nil {
		return t.watcher.Close()
	}
	return nil
}
