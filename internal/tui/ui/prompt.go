package ui

import (
	"strings"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
)

// PromptMode indicates the type of prompt (command or filter).
type PromptMode int

const (
	PromptCommand PromptMode = iota
	PromptFilter
)

// Prompt is the input bar for ':' commands and '/' tray filters. In command
// mode the first word completes against the known command names.
type Prompt struct {
	*tview.InputField
	theme    *Theme
	mode     PromptMode
	commands []string
	onSubmit func(mode PromptMode, text string)
	onCancel func()
}

// NewPrompt creates a prompt that completes the given command names.
func NewPrompt(theme *Theme, commands ...string) *Prompt {
	input := tview.NewInputField()
	input.SetBorder(true)
	input.SetBorderColor(theme.PromptBorderColor)
	input.SetBackgroundColor(theme.BgColor)
	input.SetFieldBackgroundColor(theme.BgColor)
	input.SetFieldTextColor(theme.FgColor)
	input.SetLabelColor(theme.MenuKeyColor)

	p := &Prompt{
		InputField: input,
		theme:      theme,
		commands:   commands,
	}

	input.SetAutocompleteFunc(func(text string) []string {
		if p.mode != PromptCommand {
			return nil
		}
		return p.Complete(text)
	})
	input.SetDoneFunc(p.done)

	return p
}

func (p *Prompt) done(key tcell.Key) {
	text := strings.TrimSpace(p.GetText())
	p.SetText("")
	switch key {
	case tcell.KeyEnter:
		if text == "" {
			if p.onCancel != nil {
				p.onCancel()
			}
			return
		}
		if p.onSubmit != nil {
			p.onSubmit(p.mode, text)
		}
	case tcell.KeyEscape:
		if p.onCancel != nil {
			p.onCancel()
		}
	}
}

// Complete returns the command names starting with text. Nothing is offered
// once arguments are being typed.
func (p *Prompt) Complete(text string) []string {
	if text == "" || strings.ContainsRune(text, ' ') {
		return nil
	}
	var out []string
	for _, c := range p.commands {
		if strings.HasPrefix(c, strings.ToLower(text)) && c != text {
			out = append(out, c)
		}
	}
	return out
}

// SetOnSubmit sets the callback when the prompt is submitted.
func (p *Prompt) SetOnSubmit(fn func(mode PromptMode, text string)) {
	p.onSubmit = fn
}

// SetOnCancel sets the callback run on Esc or an empty submit.
func (p *Prompt) SetOnCancel(fn func()) {
	p.onCancel = fn
}

// Activate shows the prompt in the specified mode.
func (p *Prompt) Activate(mode PromptMode) {
	p.mode = mode
	p.SetText("")
	switch mode {
	case PromptCommand:
		p.SetLabel(":")
		p.SetTitle(" Command ")
	case PromptFilter:
		p.SetLabel("/")
		p.SetTitle(" Filter notifications ")
	}
}

// Mode returns the current prompt mode.
func (p *Prompt) Mode() PromptMode {
	return p.mode
}
