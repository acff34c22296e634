// Package theme resolves the configured UI theme to dark or light and keeps
// it in sync with the system preference when the theme is "system".
package theme

// Mode is the user's theme setting.
type Mode string

const (
	System Mode = "system"
	Light  Mode = "light"
	Dark   Mode = "dark"
)

// Root is what a theme is applied to.
type Root interface {
	SetDark(dark bool)
}

// Preference is the system's dark-mode preference.
type Preference interface {
	Dark() bool
	// OnChange registers fn for preference changes and returns its remover.
	OnChange(fn func()) (remove func())
}

// Resolve reports whether mode renders dark. Anything other than System
// and Dark renders light.
func Resolve(pref Preference, mode Mode) bool {
	if mode == System {
		return pref != nil && pref.Dark()
	}
	return mode == Dark
}

// Apply sets root to the resolved theme. It has no other side effect.
func Apply(root Root, pref Preference, mode Mode) {
	root.SetDark(Resolve(pref, mode))
}

// Watch keeps root in step with the system preference while mode is System
// and returns the cleanup. For any other mode the preference is not touched
// and the cleanup does nothing.
func Watch(root Root, pref Preference, mode Mode) func() {
	if mode != System || pref == nil {
		return func() {}
	}
	return pref.OnChange(func() { Apply(root, pref, System) })
}

// Static is a fixed preference.
type Static bool

func (s Static) Dark() bool { return bool(s) }

func (Static) OnChange(func()) func() { return func() {} }
