package shell

import (
	"fmt"

	"github.com/mywallpaper/desktop/internal/logging"
	"github.com/mywallpaper/desktop/internal/win32"
)

var log = logging.L("shell")

// Window classes of the explorer desktop.
const (
	ClassProgman  = "Progman"
	ClassWorkerW  = "WorkerW"
	ClassDefView  = "SHELLDLL_DefView"
	ClassListView = "SysListView32"
	TitleIconList = "FolderView"
)

// RaisedDesktopBuild is the first Windows build whose explorer hosts the
// desktop icons and wallpaper worker inside Progman.
const RaisedDesktopBuild = 26002

const spawnTimeoutMs = 1000

// Tree is the read side of the window hierarchy the resolver walks.
type Tree interface {
	// Find mirrors FindWindowEx: parent 0 searches top-level windows,
	// empty class or title match anything.
	Find(parent, after Handle, class, title string) Handle
	// TopLevel calls fn for each top-level window in Z order until fn
	// returns false.
	TopLevel(fn func(Handle) bool)
	// ClassOf returns the window class of h.
	ClassOf(h Handle) string
	// ExStyle returns the GWL_EXSTYLE bits of h.
	ExStyle(h Handle) uint32
	// Send delivers msg with a timeout.
	Send(h Handle, msg uint32, wparam, lparam uintptr, timeoutMs uint32) error
	// Build returns the OS build number.
	Build() uint32
}

// Resolver locates the shell chain. Resolve only reads the window tree;
// SpawnWorker is the one call that asks explorer to change it.
type Resolver struct {
	tree Tree
}

// NewResolver returns a resolver over tree.
func NewResolver(tree Tree) *Resolver {
	return &Resolver{tree: tree}
}

// SpawnWorker asks Progman to split the desktop into WorkerW windows. The
// message is ignored when the split already happened, and harmless on the
// raised layout. All three variants are sent even when one fails; the first
// failure is returned.
func (r *Resolver) SpawnWorker() error {
	root := r.tree.Find(0, 0, ClassProgman, "")
	if root == 0 {
		return fmt.Errorf("%w: %s not found", ErrTopologyUnresolved, ClassProgman)
	}
	var firstErr error
	for _, p := range [][2]uintptr{{0xD, 0}, {0xD, 1}, {0, 0}} {
		if err := r.tree.Send(root, win32.WM_SPAWN_WORKER, p[0], p[1], spawnTimeoutMs); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if firstErr != nil {
		return fmt.Errorf("spawn worker: %w", firstErr)
	}
	return nil
}

// Resolve returns the fully resolved shell chain, or ErrTopologyUnresolved.
// The raised layout is preferred when its preconditions hold; otherwise, or
// when it does not pan out, the legacy layout is tried.
func (r *Resolver) Resolve() (Handles, error) {
	root := r.tree.Find(0, 0, ClassProgman, "")
	if root == 0 {
		return Handles{}, fmt.Errorf("%w: %s not found", ErrTopologyUnresolved, ClassProgman)
	}

	if r.raisedLikely(root) {
		if h, ok := r.resolveRaised(root); ok {
			return h, nil
		}
		log.Debug("raised desktop preconditions met but layout not found, trying legacy")
	}
	if h, ok := r.resolveLegacy(root); ok {
		return h, nil
	}
	return Handles{}, fmt.Errorf("%w: no %s under %s or %s", ErrTopologyUnresolved,
		ClassDefView, ClassProgman, ClassWorkerW)
}

func (r *Resolver) raisedLikely(root Handle) bool {
	return r.tree.Build() >= RaisedDesktopBuild && r.tree.ExStyle(root)&win32.WS_EX_NOREDIRECTIONBITMAP != 0
}

// resolveRaised: Progman > SHELLDLL_DefView > SysListView32, with the
// surface parented under Progman directly behind DefView.
func (r *Resolver) resolveRaised(root Handle) (Handles, bool) {
	defView := r.tree.Find(root, 0, ClassDefView, "")
	if defView == 0 {
		return Handles{}, false
	}
	list := r.iconList(defView)
	if list == 0 {
		return Handles{}, false
	}
	return Handles{
		Variant:   VariantRaised,
		Root:      root,
		Host:      root,
		DefView:   defView,
		IconList:  list,
		Insertion: root,
	}, true
}

// resolveLegacy: a top-level WorkerW hosts SHELLDLL_DefView and the next
// WorkerW behind it is where the wallpaper goes. When explorer has not split
// the desktop, DefView is still under Progman and Progman is the insertion
// point.
func (r *Resolver) resolveLegacy(root Handle) (Handles, bool) {
	host, defView := r.defViewHost()
	if host == 0 {
		if defView = r.tree.Find(root, 0, ClassDefView, ""); defView == 0 {
			return Handles{}, false
		}
		host = root
	}
	list := r.iconList(defView)
	if list == 0 {
		return Handles{}, false
	}

	insertion := Handle(0)
	if host != root {
		insertion = r.tree.Find(0, host, ClassWorkerW, "")
	}
	if insertion == 0 {
		insertion = r.emptyWorker()
	}
	if insertion == 0 {
		log.Warn("no empty WorkerW, falling back to Progman")
		insertion = root
	}

	return Handles{
		Variant:   VariantLegacy,
		Root:      root,
		Host:      host,
		DefView:   defView,
		IconList:  list,
		Insertion: insertion,
	}, true
}

// defViewHost finds the top-level WorkerW that parents SHELLDLL_DefView.
func (r *Resolver) defViewHost() (host, defView Handle) {
	r.tree.TopLevel(func(h Handle) bool {
		if r.tree.ClassOf(h) != ClassWorkerW {
			return true
		}
		if dv := r.tree.Find(h, 0, ClassDefView, ""); dv != 0 {
			host, defView = h, dv
			return false
		}
		return true
	})
	return host, defView
}

// emptyWorker finds any top-level WorkerW without SHELLDLL_DefView.
func (r *Resolver) emptyWorker() Handle {
	var found Handle
	r.tree.TopLevel(func(h Handle) bool {
		if r.tree.ClassOf(h) == ClassWorkerW && r.tree.Find(h, 0, ClassDefView, "") == 0 {
			found = h
			return false
		}
		return true
	})
	return found
}

func (r *Resolver) iconList(defView Handle) Handle {
	if h := r.tree.Find(defView, 0, ClassListView, TitleIconList); h != 0 {
		return h
	}
	return r.tree.Find(defView, 0, ClassListView, "")
}
