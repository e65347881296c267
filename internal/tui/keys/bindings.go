package keys

import (
	"github.com/gdamore/tcell/v2"
	"github.com/matheus3301/connect/internal/tui/ui"
)

// Action represents a keybinding action.
type Action struct {
	Key         tcell.Key
	Rune        rune
	Description string
	Handler     func()
	Hidden      bool
}

// Matches reports whether a key press of key (and r, for KeyRune) triggers the action.
func (a *Action) Matches(key tcell.Key, r rune) bool {
	if a.Key != tcell.KeyRune {
		return key == a.Key
	}
	return key == tcell.KeyRune && r == a.Rune
}

// Label is the key as shown in the menu.
func (a *Action) Label() string {
	if a.Key == tcell.KeyRune {
		return string(a.Rune)
	}
	if name, ok := tcell.KeyNames[a.Key]; ok {
		return name
	}
	return "?"
}

type binding struct {
	name   string
	action *Action
}

// Registry holds keybindings organized by scope. Bindings are matched and
// listed in registration order; re-adding a name replaces it in place.
type Registry struct {
	global []binding
	views  map[string][]binding
}

// NewRegistry creates a new keybinding registry.
func NewRegistry() *Registry {
	return &Registry{views: make(map[string][]binding)}
}

// AddGlobal registers a global keybinding.
func (r *Registry) AddGlobal(name string, action *Action) {
	r.global = upsert(r.global, name, action)
}

// AddView registers a view-specific keybinding.
func (r *Registry) AddView(view, name string, action *Action) {
	r.views[view] = upsert(r.views[view], name, action)
}

func upsert(list []binding, name string, action *Action) []binding {
	for i := range list {
		if list[i].name == name {
			list[i].action = action
			return list
		}
	}
	return append(list, binding{name: name, action: action})
}

// Hints returns the menu entries active in view, view bindings first. A
// global binding shadowed by a view binding on the same key is left out.
func (r *Registry) Hints(view string) []ui.MenuHint {
	var hints []ui.MenuHint
	var local []*Action
	for _, b := range r.views[view] {
		local = append(local, b.action)
		if !b.action.Hidden {
			hints = append(hints, hint(b.action))
		}
	}
	for _, b := range r.global {
		if b.action.Hidden || shadowed(b.action, local) {
			continue
		}
		hints = append(hints, hint(b.action))
	}
	return hints
}

func hint(a *Action) ui.MenuHint {
	return ui.MenuHint{
		Key:         a.Label(),
		Description: a.Description,
		Numeric:     a.Key == tcell.KeyRune && a.Rune >= '0' && a.Rune <= '9',
	}
}

func shadowed(a *Action, local []*Action) bool {
	for _, l := range local {
		if l.Matches(a.Key, a.Rune) {
			return true
		}
	}
	return false
}

// HandleEvent dispatches a key event to the first matching action, checking
// view bindings before global ones. Returns true if a handler matched.
func (r *Registry) HandleEvent(view string, ev *tcell.EventKey) bool {
	return r.HandleKey(view, ev.Key(), ev.Rune())
}

// HandleKey is HandleEvent for a decoded key press.
func (r *Registry) HandleKey(view string, key tcell.Key, ch rune) bool {
	for _, list := range [][]binding{r.views[view], r.global} {
		for _, b := range list {
			if b.action.Matches(key, ch) {
				b.action.Handler()
				return true
			}
		}
	}
	return false
}
