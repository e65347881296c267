package ui

import (
	"testing"

	"github.com/rivo/tview"
	"github.com/stretchr/testify/assert"
)

func newTestPages(names ...string) (*Pages, *[][]string) {
	p := NewPages()
	for _, n := range names {
		p.AddPage(n, tview.NewBox(), true, false)
	}
	var changes [][]string
	p.SetOnChange(func(stack []string) { changes = append(changes, stack) })
	return p, &changes
}

func TestPagesPushPop(t *testing.T) {
	p, changes := newTestPages("home", "ipm", "help")

	p.Reset("home")
	p.Push("ipm")
	p.Push("help")
	assert.Equal(t, "help", p.Current())
	assert.Equal(t, 3, p.Depth())

	assert.Equal(t, "help", p.Pop())
	assert.Equal(t, "ipm", p.Current())
	assert.Equal(t, []string{"home", "ipm"}, (*changes)[len(*changes)-1])
}

func TestPagesRemoveBuried(t *testing.T) {
	p, changes := newTestPages("home", "ipm", "deeplink")
	p.Reset("home")
	p.Push("ipm")
	p.Push("deeplink")

	assert.True(t, p.Remove("ipm"))
	assert.Equal(t, []string{"home", "deeplink"}, p.Stack())
	assert.Equal(t, "deeplink", p.Current())
	assert.Equal(t, []string{"home", "deeplink"}, (*changes)[len(*changes)-1])
	assert.False(t, p.Contains("ipm"))

	assert.False(t, p.Remove("ipm"))
	assert.True(t, p.Remove("deeplink"))
	assert.Equal(t, "home", p.Current())
}

func TestPagesPopEmpty(t *testing.T) {
	p, _ := newTestPages()
	assert.Equal(t, "", p.Pop())
	assert.Equal(t, "", p.Current())
}
