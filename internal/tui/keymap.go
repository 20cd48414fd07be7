package tui

import (
	"slices"
	"strings"
	"unicode"
	"unicode/utf8"

	"charm.land/bubbles/v2/key"
)

// KeyConfig holds user overrides for rebindable board keys. Blank values keep defaults.
type KeyConfig struct {
	Grab   string
	Filter string
	Reload string
}

// keyMap represents key map data used by this package.
type keyMap struct {
	focusNext  key.Binding
	focusPrev  key.Binding
	grab       key.Binding
	moveLeft   key.Binding
	moveRight  key.Binding
	filter     key.Binding
	clear      key.Binding
	reload     key.Binding
	copyRef    key.Binding
	taskInfo   key.Binding
	toggleHelp key.Binding
	quit       key.Binding
	forceQuit  key.Binding
}

// newKeyMap constructs key map.
func newKeyMap() keyMap {
	return keyMap{
		focusNext:  key.NewBinding(key.WithKeys("j", "down", "tab"), key.WithHelp("j/↓", "next task")),
		focusPrev:  key.NewBinding(key.WithKeys("k", "up", "shift+tab"), key.WithHelp("k/↑", "prev task")),
		grab:       key.NewBinding(key.WithKeys(" ", "space", "enter"), key.WithHelp("space", "grab/drop")),
		moveLeft:   key.NewBinding(key.WithKeys("h", "left"), key.WithHelp("h/←", "move left")),
		moveRight:  key.NewBinding(key.WithKeys("l", "right"), key.WithHelp("l/→", "move right")),
		filter:     key.NewBinding(key.WithKeys("/"), key.WithHelp("/", "filter")),
		clear:      key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "drop/clear")),
		reload:     key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "reload")),
		copyRef:    key.NewBinding(key.WithKeys("y"), key.WithHelp("y", "copy ref")),
		taskInfo:   key.NewBinding(key.WithKeys("i"), key.WithHelp("i", "task info")),
		toggleHelp: key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "toggle help")),
		quit:       key.NewBinding(key.WithKeys("q"), key.WithHelp("q", "quit")),
		forceQuit:  key.NewBinding(key.WithKeys("ctrl+c"), key.WithHelp("ctrl+c", "force quit")),
	}
}

// applyConfig overrides configurable bindings.
func (k *keyMap) applyConfig(cfg KeyConfig) {
	configureBinding(&k.grab, cfg.Grab, "space", "grab/drop")
	if keys := k.grab.Keys(); !slices.Contains(keys, "enter") {
		k.grab.SetKeys(append(keys, "enter")...)
	}
	configureBinding(&k.filter, cfg.Filter, "/", "filter")
	configureBinding(&k.reload, cfg.Reload, "r", "reload")
}

// configureBinding replaces a binding's keys and help from one configured value.
func configureBinding(b *key.Binding, raw, fallback, desc string) {
	keys, help := parseBindingKeys(raw, fallback)
	b.SetKeys(keys...)
	b.SetHelp(help, desc)
}

// parseBindingKeys maps a configured key name to key matchers and help text.
func parseBindingKeys(raw, fallback string) ([]string, string) {
	value := strings.TrimSpace(raw)
	if value == "" && raw != " " {
		value = strings.TrimSpace(fallback)
	}
	if raw == " " {
		value = "space"
	}
	switch strings.ToLower(value) {
	case "space":
		return []string{" ", "space"}, "space"
	case "enter":
		return []string{"enter"}, "enter"
	}
	if utf8.RuneCountInString(value) == 1 {
		r, _ := utf8.DecodeRuneInString(value)
		if unicode.IsUpper(r) {
			return []string{value, "shift+" + string(unicode.ToLower(r))}, value
		}
		return []string{value}, value
	}
	return []string{strings.ToLower(value)}, value
}

// ShortHelp handles short help.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{
		k.focusNext, k.grab, k.moveLeft, k.moveRight, k.filter, k.toggleHelp, k.quit,
	}
}

// FullHelp handles full help.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.focusNext, k.focusPrev, k.grab, k.moveLeft, k.moveRight, k.clear},
		{k.filter, k.reload, k.copyRef, k.taskInfo},
		{k.toggleHelp, k.quit, k.forceQuit},
	}
}
