package layer

import (
	"errors"
	"sync"
	"sync/atomic"

	"github.com/mywallpaper/desktop/internal/geom"
	"github.com/mywallpaper/desktop/internal/hook"
	"github.com/mywallpaper/desktop/internal/monitor"
	"github.com/mywallpaper/desktop/internal/shell"
	"github.com/mywallpaper/desktop/internal/watchdog"
)

type fakeWin struct {
	class, title   string
	parent         shell.Handle
	style, exStyle uint32
	visible        bool
	children       []shell.Handle
}

// fakeShell is an in-memory explorer plus the wallpaper window.
type fakeShell struct {
	mu      sync.Mutex
	next    shell.Handle
	wins    map[shell.Handle]*fakeWin
	top     []shell.Handle
	sends   int
	onSend  func(n int)
	pos     map[shell.Handle]geom.Rect
	set     monitor.Set
	pid     uint32
	created atomic.Int64
}

func newFakeShell() *fakeShell {
	return &fakeShell{
		next: 0x1000,
		wins: make(map[shell.Handle]*fakeWin),
		pos:  make(map[shell.Handle]geom.Rect),
		set: monitor.Set{
			{Index: 0, Bounds: geom.RectXYWH(0, 0, 1920, 1080), Primary: true},
			{Index: 1, Bounds: geom.RectXYWH(1920, -200, 2560, 1440)},
		},
		pid: 4242,
	}
}

func (d *fakeShell) add(parent shell.Handle, class, title string) shell.Handle {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.addLocked(parent, class, title)
}

func (d *fakeShell) addLocked(parent shell.Handle, class, title string) shell.Handle {
	d.next += 0x10
	h := d.next
	d.wins[h] = &fakeWin{class: class, title: title, parent: parent, visible: true}
	if parent == 0 {
		d.top = append(d.top, h)
	} else {
		d.wins[parent].children = append(d.wins[parent].children, h)
	}
	return h
}

func (d *fakeShell) destroy(hs ...shell.Handle) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, h := range hs {
		delete(d.wins, h)
		for i, t := range d.top {
			if t == h {
				d.top = append(d.top[:i:i], d.top[i+1:]...)
				break
			}
		}
	}
}

// explorer builds the split legacy layout and returns the WorkerW the
// wallpaper belongs under.
func (d *fakeShell) explorer() (progman, host, list, worker shell.Handle) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.explorerLocked()
}

func (d *fakeShell) explorerLocked() (progman, host, list, worker shell.Handle) {
	host = d.addLocked(0, shell.ClassWorkerW, "")
	defView := d.addLocked(host, shell.ClassDefView, "")
	list = d.addLocked(defView, shell.ClassListView, shell.TitleIconList)
	worker = d.addLocked(0, shell.ClassWorkerW, "")
	progman = d.addLocked(0, shell.ClassProgman, "Program Manager")
	return
}

func (d *fakeShell) monitors() (monitor.Set, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.set) == 0 {
		return nil, monitor.ErrNoMonitors
	}
	return append(monitor.Set(nil), d.set...), nil
}

func (d *fakeShell) setMonitors(s monitor.Set) {
	d.mu.Lock()
	d.set = s
	d.mu.Unlock()
}

func (d *fakeShell) visible(h shell.Handle) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	w, ok := d.wins[h]
	return ok && w.visible
}

func (d *fakeShell) position(h shell.Handle) geom.Rect {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pos[h]
}

func (d *fakeShell) list(parent shell.Handle) []shell.Handle {
	if parent == 0 {
		return d.top
	}
	if w, ok := d.wins[parent]; ok {
		return w.children
	}
	return nil
}

func (d *fakeShell) Find(parent, after shell.Handle, class, title string) shell.Handle {
	d.mu.Lock()
	defer d.mu.Unlock()
	seen := after == 0
	for _, h := range d.list(parent) {
		if !seen {
			seen = h == after
			continue
		}
		w, ok := d.wins[h]
		if !ok {
			continue
		}
		if (class == "" || w.class == class) && (title == "" || w.title == title) {
			return h
		}
	}
	return 0
}

func (d *fakeShell) TopLevel(fn func(shell.Handle) bool) {
	d.mu.Lock()
	top := append([]shell.Handle(nil), d.top...)
	d.mu.Unlock()
	for _, h := range top {
		if !fn(h) {
			return
		}
	}
}

func (d *fakeShell) ClassOf(h shell.Handle) string {
	d.mu.Lock()
	defer d.mu.Unlock()
	if w, ok := d.wins[h]; ok {
		return w.class
	}
	return ""
}

func (d *fakeShell) ExStyle(h shell.Handle) uint32 { return 0 }

func (d *fakeShell) Send(h shell.Handle, msg uint32, wparam, lparam uintptr, timeoutMs uint32) error {
	d.mu.Lock()
	d.sends++
	n, fn := d.sends, d.onSend
	d.mu.Unlock()
	if fn != nil {
		fn(n)
	}
	return nil
}

func (d *fakeShell) Build() uint32 { return 19045 }

func (d *fakeShell) IsWindow(h shell.Handle) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.wins[h]
	return ok
}

func (d *fakeShell) Parent(h shell.Handle) shell.Handle {
	d.mu.Lock()
	defer d.mu.Unlock()
	if w, ok := d.wins[h]; ok {
		return w.parent
	}
	return 0
}

func (d *fakeShell) Styles(h shell.Handle) (uint32, uint32) {
	d.mu.Lock()
	defer d.mu.Unlock()
	w := d.wins[h]
	return w.style, w.exStyle
}

func (d *fakeShell) SetStyles(h shell.Handle, style, exStyle uint32) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	w, ok := d.wins[h]
	if !ok {
		return shell.ErrStaleHandle
	}
	w.style, w.exStyle = style, exStyle
	return nil
}

func (d *fakeShell) DisableFrame(shell.Handle) error { return nil }

func (d *fakeShell) SetParent(h, parent shell.Handle) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	w, ok := d.wins[h]
	if !ok {
		return shell.ErrStaleHandle
	}
	if w.parent == 0 {
		for i, t := range d.top {
			if t == h {
				d.top = append(d.top[:i:i], d.top[i+1:]...)
				break
			}
		}
	} else if p, ok := d.wins[w.parent]; ok {
		for i, c := range p.children {
			if c == h {
				p.children = append(p.children[:i:i], p.children[i+1:]...)
				break
			}
		}
	}
	w.parent = parent
	if parent == 0 {
		d.top = append(d.top, h)
	} else if p, ok := d.wins[parent]; ok {
		p.children = append(p.children, h)
	}
	return nil
}

func (d *fakeShell) ScreenToClient(_ shell.Handle, p geom.Point) geom.Point { return p }

func (d *fakeShell) SetPos(h, _ shell.Handle, r geom.Rect) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.pos[h] = r
	return nil
}

func (d *fakeShell) Show(h shell.Handle, visible bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	w, ok := d.wins[h]
	if !ok {
		return shell.ErrStaleHandle
	}
	w.visible = visible
	return nil
}

func (d *fakeShell) Post(shell.Handle, uint32, uintptr, uintptr) bool { return true }
func (d *fakeShell) CursorPos() (geom.Point, bool)                    { return geom.Point{}, false }
func (d *fakeShell) Foreground() (watchdog.Window, bool)              { return watchdog.Window{}, false }
func (d *fakeShell) WindowAt(geom.Point) shell.Handle                 { return 0 }
func (d *fakeShell) RoleAt(geom.Point) (uint32, bool)                 { return 0, false }
func (d *fakeShell) At(geom.Point) (shell.Handle, bool)               { return 0, false }

func (d *fakeShell) ownerPID(shell.Handle) uint32 { return d.pid }

func (d *fakeShell) identify(pid uint32) (Identity, error) {
	if pid == 0 {
		return Identity{}, errors.New("no process")
	}
	return Identity{PID: int32(pid), Created: d.created.Load(), Name: "explorer.exe"}, nil
}

type fakeHook struct {
	startErr error
	running  atomic.Bool
	stops    atomic.Int32
}

func (h *fakeHook) Start() error {
	if h.startErr != nil {
		return h.startErr
	}
	h.running.Store(true)
	return nil
}

func (h *fakeHook) Stop() error {
	h.stops.Add(1)
	h.running.Store(false)
	return nil
}

func (h *fakeHook) Running() bool { return h.running.Load() }

func (d *fakeShell) deps(h *fakeHook) Deps {
	return Deps{
		Tree:       d,
		Windows:    d,
		Icons:      d,
		Monitors:   d.monitors,
		Foreground: d,
		Probe:      d,
		Input:      d,
		Desktop:    func(*shell.Cache) hook.Desktop { return d },
		NewHook: func(*hook.Engine, *hook.Signals, func(any)) HookRunner {
			return h
		},
		OwnerPID: d.ownerPID,
		Identify: d.identify,
	}
}
