package prompt

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/conduitlabs/relay/pkg/chat"
)

const presetTOML = `
[presets]

[[presets.gpt-math-genius]]
role = "user"
content = "solve it step by step"

[[presets.gpt-math-genius]]
role = "assistant"
content = "understood"
`

func writePresetFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "presets.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadTable(t *testing.T) {
	table, err := LoadTable(writePresetFile(t, presetTOML), zap.NewNop())
	require.NoError(t, err)
	defer table.Close()

	preset, err := table.Lookup("gpt-math-genius")
	require.NoError(t, err)
	require.Len(t, preset, 2)
	assert.Equal(t, chat.Message{Role: "user", Content: "solve it step by step"}, preset[0])
	assert.Equal(t, chat.Message{Role: "assistant", Content: "understood"}, preset[1])
}

func TestLoadTableAlwaysHasDefault(t *testing.T) {
	table, err := LoadTable(writePresetFile(t, presetTOML), zap.NewNop())
	require.NoError(t, err)
	defer table.Close()

	preset, err := table.Lookup(DefaultPresetKey)
	require.NoError(t, err)
	assert.Empty(t, preset)
}

func TestLookupUnknownKey(t *testing.T) {
	table := NewTable(zap.NewNop())

	_, err := table.Lookup("nonexistent")
	var cfgErr *chat.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
}

func TestLoadTableBadFile(t *testing.T) {
	_, err := LoadTable(filepath.Join(t.TempDir(), "missing.toml"), zap.NewNop())
	require.Error(t, err)
}

func TestWatchReloadsOnWrite(t *testing.T) {
	path := writePresetFile(t, presetTOML)
	table, err := LoadTable(path, zap.NewNop())
	require.NoError(t, err)
	defer table.Close()
	require.NoError(t, table.Watch())

	updated := presetTOML + `
[[presets.gpt-dan]]
role = "user"
content = "new preset"
`
	require.NoError(t, os.WriteFile(path, []byte(updated), 0o644))

	assert.Eventually(t, func() bool {
		_, err := table.Lookup("gpt-dan")
		return err == nil
	}, 2*time.Second, 10*time.Millisecond)
}
