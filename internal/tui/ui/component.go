package ui

import "github.com/rivo/tview"

// MenuHint describes a keyboard shortcut shown in the header menu.
type MenuHint struct {
	Key         string
	Description string
	Numeric     bool // screen switches, drawn in NumericKeyColor
}

// Component is a page of the host simulator.
type Component interface {
	tview.Primitive
	// Name is the page title.
	Name() string
}
