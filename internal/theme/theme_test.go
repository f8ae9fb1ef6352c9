package theme

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestDetectInPriority(t *testing.T) {
	home := t.TempDir()

	p, name := DetectIn(home)
	assert.Equal(t, "", name)
	assert.Equal(t, DefaultPalette(), p)

	writeFile(t, filepath.Join(home, ".config", "foot", "foot.ini"), `
[colors]
background=101010
foreground=e0e0e0
regular2=00ff00
`)
	p, name = DetectIn(home)
	assert.Equal(t, "foot", name)
	assert.Equal(t, "#101010", p.BG)
	assert.Equal(t, "#e0e0e0", p.FG)
	assert.Equal(t, "#00ff00", p.Accent)
	assert.Equal(t, "#707070", p.Muted)

	writeFile(t, filepath.Join(home, ".config", "kitty", "kitty.conf"), `
# comment
background #222222
foreground #CCCCCC
selection_background #444
`)
	p, name = DetectIn(home)
	assert.Equal(t, "kitty", name)
	assert.Equal(t, "#cccccc", p.FG)
	assert.Equal(t, "#444444", p.AccentBg)

	writeFile(t, filepath.Join(home, ".alacritty.toml"), `
[colors.primary]
background = "0x000000"
foreground = "0xffffff"

[colors.normal]
red = "#ff0000"
`)
	p, name = DetectIn(home)
	assert.Equal(t, "alacritty", name)
	assert.Equal(t, "#000000", p.BG)
	assert.Equal(t, "#ff0000", p.Error)
	assert.Equal(t, "#262626", p.AccentBg, "selection derived from a bg/fg mix")
}

func TestParseAlacrittyRequiresPrimaryColors(t *testing.T) {
	path := filepath.Join(t.TempDir(), "alacritty.toml")
	writeFile(t, path, "[colors.primary]\nbackground = \"#000000\"\n")

	_, ok := parseAlacrittyTOML(path)
	assert.False(t, ok)

	_, ok = parseAlacrittyTOML(filepath.Join(t.TempDir(), "missing.toml"))
	assert.False(t, ok)
}

func TestApplyEnvOverrides(t *testing.T) {
	env := map[string]string{"TORRENTHUNT_FG": "abc", "TORRENTHUNT_ACCENT": "0x123456"}
	p := applyEnvOverrides(DefaultPalette(), func(k string) string { return env[k] })

	assert.Equal(t, "#aabbcc", p.FG)
	assert.Equal(t, "#123456", p.Accent)
	assert.Equal(t, DefaultPalette().BG, p.BG)
}

func TestColorHelpers(t *testing.T) {
	assert.Equal(t, "#aabbcc", normalizeHex(" 'AABBCC' "))
	assert.Equal(t, "#112233", normalizeHex("#123"))
	assert.Equal(t, "#notacolor", normalizeHex("notacolor"))

	assert.Equal(t, "#7f7f7f", dimColor("#ffffff", 0.5))
	assert.Equal(t, "#000000", MixColors("#000000", "#ffffff", 0))
	assert.Equal(t, "#7f7f7f", MixColors("#000000", "#ffffff", 0.5))
	assert.Equal(t, "#ffffff", MixColors("#000000", "#ffffff", 1))
	assert.Equal(t, "bogus", MixColors("bogus", "#ffffff", 0.5))
}

func TestSetAndCurrent(t *testing.T) {
	orig := CurrentPalette()
	t.Cleanup(func() { Set(orig) })

	p := DefaultPalette()
	p.FG = "#123456"
	Set(p)

	assert.Equal(t, p, CurrentPalette())
	assert.NotPanics(t, func() { _ = Current().Title.Render("x") })
}

func TestWatcherReloadsOnWrite(t *testing.T) {
	dir := t.TempDir()
	changed := make(chan Palette, 1)

	w, err := newWatcher([]string{dir, filepath.Join(dir, "missing")}, DefaultPalette, func(p Palette) {
		select {
		case changed <- p:
		default:
		}
	})
	require.NoError(t, err)
	defer w.Stop()

	writeFile(t, filepath.Join(dir, "kitty.conf"), "background #000000\n")

	select {
	case p := <-changed:
		assert.Equal(t, DefaultPalette(), p)
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not report the change")
	}

	w.Stop()
	assert.NotPanics(t, w.Stop)
}
