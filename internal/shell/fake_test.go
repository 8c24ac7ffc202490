package shell

import (
	"errors"
	"sync"

	"github.com/mywallpaper/desktop/internal/geom"
)

type fakeWin struct {
	class, title   string
	parent         Handle
	style, exStyle uint32
	visible        bool
	children       []Handle
}

// fakeDesktop is an in-memory window tree standing in for explorer.
type fakeDesktop struct {
	mu       sync.Mutex
	next     Handle
	wins     map[Handle]*fakeWin
	top      []Handle
	build    uint32
	sent     []uint32
	onSpawn  func()
	failPos  bool
	failShow bool
	failSend bool
	pos      map[Handle]geom.Rect
	after    map[Handle]Handle
	shows    []bool
	// origin of the client area of each window, in screen coordinates.
	origins map[Handle]geom.Point
}

func newFakeDesktop(build uint32) *fakeDesktop {
	return &fakeDesktop{
		next:    0x1000,
		wins:    make(map[Handle]*fakeWin),
		build:   build,
		pos:     make(map[Handle]geom.Rect),
		after:   make(map[Handle]Handle),
		origins: make(map[Handle]geom.Point),
	}
}

func (d *fakeDesktop) add(parent Handle, class, title string) Handle {
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

func (d *fakeDesktop) destroy(h Handle) {
	delete(d.wins, h)
}

func (d *fakeDesktop) list(parent Handle) []Handle {
	if parent == 0 {
		return d.top
	}
	if w, ok := d.wins[parent]; ok {
		return w.children
	}
	return nil
}

func (d *fakeDesktop) Find(parent, after Handle, class, title string) Handle {
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

func (d *fakeDesktop) TopLevel(fn func(Handle) bool) {
	d.mu.Lock()
	top := append([]Handle(nil), d.top...)
	d.mu.Unlock()
	for _, h := range top {
		if !fn(h) {
			return
		}
	}
}

func (d *fakeDesktop) ClassOf(h Handle) string {
	d.mu.Lock()
	defer d.mu.Unlock()
	if w, ok := d.wins[h]; ok {
		return w.class
	}
	return ""
}

func (d *fakeDesktop) ExStyle(h Handle) uint32 {
	d.mu.Lock()
	defer d.mu.Unlock()
	if w, ok := d.wins[h]; ok {
		return w.exStyle
	}
	return 0
}

func (d *fakeDesktop) Send(h Handle, msg uint32, wparam, lparam uintptr, timeoutMs uint32) error {
	d.mu.Lock()
	d.sent = append(d.sent, msg)
	spawn := d.onSpawn
	d.onSpawn = nil
	fail := d.failSend
	d.mu.Unlock()
	if spawn != nil {
		spawn()
	}
	if fail {
		return errors.New("send timed out")
	}
	return nil
}

func (d *fakeDesktop) Build() uint32 { return d.build }

func (d *fakeDesktop) IsWindow(h Handle) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.wins[h]
	return ok
}

func (d *fakeDesktop) Parent(h Handle) Handle {
	d.mu.Lock()
	defer d.mu.Unlock()
	if w, ok := d.wins[h]; ok {
		return w.parent
	}
	return 0
}

func (d *fakeDesktop) Styles(h Handle) (uint32, uint32) {
	d.mu.Lock()
	defer d.mu.Unlock()
	w := d.wins[h]
	return w.style, w.exStyle
}

func (d *fakeDesktop) SetStyles(h Handle, style, exStyle uint32) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	w := d.wins[h]
	w.style, w.exStyle = style, exStyle
	return nil
}

func (d *fakeDesktop) DisableFrame(h Handle) error {
	return errors.New("attribute not supported")
}

func (d *fakeDesktop) SetParent(h, parent Handle) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	w := d.wins[h]
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
	} else {
		d.wins[parent].children = append(d.wins[parent].children, h)
	}
	return nil
}

func (d *fakeDesktop) ScreenToClient(parent Handle, p geom.Point) geom.Point {
	d.mu.Lock()
	defer d.mu.Unlock()
	return p.Sub(d.origins[parent])
}

func (d *fakeDesktop) SetPos(h, insertAfter Handle, r geom.Rect) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.failPos {
		return errors.New("access denied")
	}
	d.pos[h] = r
	d.after[h] = insertAfter
	return nil
}

func (d *fakeDesktop) Show(h Handle, visible bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.failShow {
		return errors.New("show failed")
	}
	w, ok := d.wins[h]
	if !ok {
		return ErrStaleHandle
	}
	w.visible = visible
	d.shows = append(d.shows, visible)
	return nil
}

// legacyDesktop builds the split layout: a WorkerW hosting the icons, then
// the empty WorkerW behind it.
func legacyDesktop() (d *fakeDesktop, host, defView, list, worker, progman Handle) {
	d = newFakeDesktop(19045)
	d.add(0, "Shell_TrayWnd", "")
	host = d.add(0, ClassWorkerW, "")
	defView = d.add(host, ClassDefView, "")
	list = d.add(defView, ClassListView, TitleIconList)
	worker = d.add(0, ClassWorkerW, "")
	progman = d.add(0, ClassProgman, "Program Manager")
	return
}

// raisedDesktop builds the 24H2 layout under Progman.
func raisedDesktop() (d *fakeDesktop, progman, defView, list, worker Handle) {
	d = newFakeDesktop(26100)
	d.add(0, "Shell_TrayWnd", "")
	progman = d.add(0, ClassProgman, "Program Manager")
	d.wins[progman].exStyle = 0x00200000
	defView = d.add(progman, ClassDefView, "")
	list = d.add(defView, ClassListView, TitleIconList)
	worker = d.add(progman, ClassWorkerW, "")
	return
}
