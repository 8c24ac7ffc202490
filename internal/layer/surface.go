package layer

import (
	"fmt"

	"github.com/mywallpaper/desktop/internal/shell"
)

// FindSurface locates the wallpaper window by class and title. A window
// still parented under the shell from an earlier run is found too.
func FindSurface(tree shell.Tree, class, title string) (shell.Handle, error) {
	if h := tree.Find(0, 0, class, title); h != 0 {
		return h, nil
	}
	if chain, err := shell.NewResolver(tree).Resolve(); err == nil {
		if h := tree.Find(chain.Insertion, 0, class, title); h != 0 {
			return h, nil
		}
	}
	return 0, fmt.Errorf("%w: class=%q title=%q", ErrNoSurface, class, title)
}
