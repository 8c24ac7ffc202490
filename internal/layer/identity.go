package layer

import (
	"fmt"

	"github.com/shirou/gopsutil/v3/process"
)

// Identity tells two processes apart even when the OS reuses a pid.
type Identity struct {
	PID     int32  `json:"pid" yaml:"pid"`
	Created int64  `json:"created" yaml:"created"`
	Name    string `json:"name,omitempty" yaml:"name,omitempty"`
}

// Same reports whether i and o describe the same process instance.
func (i Identity) Same(o Identity) bool {
	return i.PID == o.PID && i.Created == o.Created
}

// ProcessIdentity reads the creation time and name of pid.
func ProcessIdentity(pid uint32) (Identity, error) {
	if pid == 0 {
		return Identity{}, fmt.Errorf("no process")
	}
	p, err := process.NewProcess(int32(pid))
	if err != nil {
		return Identity{}, fmt.Errorf("open process %d: %w", pid, err)
	}
	created, err := p.CreateTime()
	if err != nil {
		return Identity{}, fmt.Errorf("process %d create time: %w", pid, err)
	}
	name, _ := p.Name()
	return Identity{PID: int32(pid), Created: created, Name: name}, nil
}
