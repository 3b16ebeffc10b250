package display

import (
	"fmt"
	"sync/atomic"

	"github.com/climabus/climabus/pkg/climate"
	"github.com/climabus/climabus/pkg/monitor"
	"github.com/jroimartin/gocui"
)

const maxEventLines = 5000

// Dashboard is a gocui screen with the climate values, the engine status and
// a scrolling event log. Show, ShowStatus and Log may be called from any
// goroutine.
type Dashboard struct {
	g     *gocui.Gui
	lines int64
}

// New takes over the terminal.
func New() (*Dashboard, error) {
	g, err := gocui.NewGui(gocui.OutputNormal)
	if err != nil {
		return nil, err
	}
	d := &Dashboard{g: g}
	g.SetManagerFunc(d.layout)
	if err := d.keybindings(); err != nil {
		g.Close()
		return nil, err
	}
	return d, nil
}

// Run blocks in the gui main loop until the user quits or Quit is called.
func (d *Dashboard) Run() error {
	defer d.g.Close()
	if err := d.g.MainLoop(); err != nil && err != gocui.ErrQuit {
		return err
	}
	return nil
}

// Quit ends Run.
func (d *Dashboard) Quit() {
	d.g.Update(func(*gocui.Gui) error {
		return gocui.ErrQuit
	})
}

// Show redraws the climate view.
func (d *Dashboard) Show(s climate.Snapshot) {
	d.g.Update(func(g *gocui.Gui) error {
		return d.rewrite(g, "climate", ClimateLines(s))
	})
}

// ShowStatus redraws the status view.
func (d *Dashboard) ShowStatus(st monitor.Status) {
	d.g.Update(func(g *gocui.Gui) error {
		return d.rewrite(g, "status", StatusLines(st))
	})
}

// Log appends a line to the event view.
func (d *Dashboard) Log(line string) {
	if atomic.LoadInt64(&d.lines) > maxEventLines {
		return
	}
	atomic.AddInt64(&d.lines, 1)
	d.g.Update(func(g *gocui.Gui) error {
		v, err := g.View("events")
		if err != nil {
			return err
		}
		fmt.Fprintln(v, line)
		return nil
	})
}

func (d *Dashboard) rewrite(g *gocui.Gui, view string, lines []string) error {
	v, err := g.View(view)
	if err != nil {
		return err
	}
	v.Clear()
	for _, l := range lines {
		fmt.Fprintln(v, l)
	}
	return nil
}

func (d *Dashboard) layout(g *gocui.Gui) error {
	maxX, maxY := g.Size()

	if v, err := g.SetView("climate", 0, 0, 30, 7); err != nil {
		if err != gocui.ErrUnknownView {
			return err
		}
		v.Title = "Climate"
		fmt.Fprintln(v, "waiting for signals")
	}
	if v, err := g.SetView("status", 0, 8, 30, 16); err != nil {
		if err != gocui.ErrUnknownView {
			return err
		}
		v.Title = "Status"
	}
	if v, err := g.SetView("help", 0, 17, 30, 21); err != nil {
		if err != gocui.ErrUnknownView {
			return err
		}
		v.Title = "Help"
		fmt.Fprintln(v, "<Q, Ctrl-C> Quit")
		fmt.Fprintln(v, "<Space> Autoscroll")
		fmt.Fprintln(v, "<C> Clear events")
	}
	if v, err := g.SetView("events", 31, 0, maxX-1, maxY-1); err != nil {
		if err != gocui.ErrUnknownView {
			return err
		}
		v.Title = "Changes"
		v.Autoscroll = true
		v.Wrap = true
		if _, err := g.SetCurrentView("events"); err != nil {
			return err
		}
	}
	return nil
}

func (d *Dashboard) keybindings() error {
	quit := func(*gocui.Gui, *gocui.View) error { return gocui.ErrQuit }
	if err := d.g.SetKeybinding("", 'q', gocui.ModNone, quit); err != nil {
		return err
	}
	if err := d.g.SetKeybinding("", gocui.KeyCtrlC, gocui.ModNone, quit); err != nil {
		return err
	}
	if err := d.g.SetKeybinding("events", gocui.KeySpace, gocui.ModNone,
		func(g *gocui.Gui, v *gocui.View) error {
			v.Autoscroll = !v.Autoscroll
			return nil
		}); err != nil {
		return err
	}
	if err := d.g.SetKeybinding("events", 'c', gocui.ModNone,
		func(g *gocui.Gui, v *gocui.View) error {
			atomic.StoreInt64(&d.lines, 0)
			v.Autoscroll = true
			v.Clear()
			return v.SetOrigin(0, 0)
		}); err != nil {
		return err
	}
	if err := d.g.SetKeybinding("events", gocui.KeyArrowUp, gocui.ModNone,
		func(g *gocui.Gui, v *gocui.View) error {
			v.MoveCursor(0, -1, false)
			return nil
		}); err != nil {
		return err
	}
	return d.g.SetKeybinding("events", gocui.KeyArrowDown, gocui.ModNone,
		func(g *gocui.Gui, v *gocui.View) error {
			v.MoveCursor(0, 1, false)
			return nil
		})
}
