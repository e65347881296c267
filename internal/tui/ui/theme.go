package ui

import (
	"fmt"

	"github.com/gdamore/tcell/v2"
)

// Theme holds the colors of the host simulator. IPM colors come from the
// payload; the Ipm* fields are used when a payload leaves one unset.
type Theme struct {
	BgColor     tcell.Color
	FgColor     tcell.Color
	BorderColor tcell.Color
	TitleColor  tcell.Color

	TableHeaderFg tcell.Color
	TableHeaderBg tcell.Color
	TableCursorFg tcell.Color
	TableCursorBg tcell.Color

	CrumbActiveFg   tcell.Color
	CrumbActiveBg   tcell.Color
	CrumbInactiveFg tcell.Color
	CrumbInactiveBg tcell.Color

	MenuKeyColor      tcell.Color
	NumericKeyColor   tcell.Color
	CounterColor      tcell.Color
	PromptBorderColor tcell.Color

	FlashInfoColor tcell.Color
	FlashWarnColor tcell.Color
	FlashErrColor  tcell.Color

	ForegroundColor tcell.Color
	BackgroundColor tcell.Color

	IpmBorderColor tcell.Color
	IpmButtonFg    tcell.Color
	IpmButtonBg    tcell.Color
}

// DefaultTheme returns a dark theme.
func DefaultTheme() *Theme {
	return &Theme{
		BgColor:     tcell.ColorBlack,
		FgColor:     tcell.ColorCadetBlue,
		BorderColor: tcell.ColorDodgerBlue,
		TitleColor:  tcell.ColorFuchsia,

		TableHeaderFg: tcell.ColorWhite,
		TableHeaderBg: tcell.ColorBlack,
		TableCursorFg: tcell.ColorBlack,
		TableCursorBg: tcell.ColorAqua,

		CrumbActiveFg:   tcell.ColorBlack,
		CrumbActiveBg:   tcell.ColorOrange,
		CrumbInactiveFg: tcell.ColorBlack,
		CrumbInactiveBg: tcell.ColorAqua,

		MenuKeyColor:      tcell.ColorDodgerBlue,
		NumericKeyColor:   tcell.ColorFuchsia,
		CounterColor:      tcell.ColorPapayaWhip,
		PromptBorderColor: tcell.ColorDodgerBlue,

		FlashInfoColor: tcell.ColorNavajoWhite,
		FlashWarnColor: tcell.ColorOrange,
		FlashErrColor:  tcell.ColorOrangeRed,

		ForegroundColor: tcell.ColorLime,
		BackgroundColor: tcell.ColorGray,

		IpmBorderColor: tcell.ColorLightSkyBlue,
		IpmButtonFg:    tcell.ColorBlack,
		IpmButtonBg:    tcell.ColorLightSkyBlue,
	}
}

// colorName returns a tview color tag for c.
func colorName(c tcell.Color) string {
	for name, val := range tcell.ColorNames {
		if val == c {
			return name
		}
	}
	return fmt.Sprintf("#%06x", c.Hex())
}
