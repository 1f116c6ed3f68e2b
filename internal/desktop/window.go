package desktop

import (
	"fmt"
	"strings"
	"sync"
)

// Flags are per-window UI adjustments owned by consumers. Reconciliation
// assigns them once on creation and never writes them again.
type Flags struct {
	// Compact extends the window upwards over its title bar when fitted.
	Compact bool `json:"compact"`
	// BorderAdjust widens the window to hide an invisible resize border.
	BorderAdjust bool `json:"border_adjust"`
}

// Window is the managed view of one live window. Values handed out by the
// Registry are snapshots; mutating them has no effect on the registry.
type Window struct {
	Handle      Handle `json:"handle"`
	Title       string `json:"title"`
	Rect        Rect   `json:"rect"`
	PID         int    `json:"pid,omitempty"`
	ProcessPath string `json:"process_path,omitempty"`
	State       State  `json:"state"`
	Manageable  bool   `json:"manageable"`
	Flags       Flags  `json:"flags"`

	aux *Aux
}

// HasProcess reports whether the owning process is known.
func (w Window) HasProcess() bool {
	return w.PID > 0
}

// Aux returns the auxiliary data cell for this window lifecycle. It is nil
// for zero Windows.
func (w Window) Aux() *Aux {
	return w.aux
}

func (w Window) String() string {
	return fmt.Sprintf("%q (%s) (%s)", w.Title, w.Handle, w.Rect)
}

// Aux carries data enriched off the reconciliation goroutine. All snapshots of
// one window lifecycle share the same cell; it is detached when the window is
// destroyed so late writes are dropped.
type Aux struct {
	mu         sync.Mutex
	detached   bool
	icon       []byte
	iconDenied bool
}

// SetIcon stores encoded icon data. It reports false if the window is gone.
func (a *Aux) SetIcon(data []byte) bool {
	if a == nil {
		return false
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.detached {
		return false
	}
	a.icon = data
	a.iconDenied = false
	return true
}

// DenyIcon records that no icon could be produced for this window.
func (a *Aux) DenyIcon() bool {
	if a == nil {
		return false
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.detached {
		return false
	}
	a.iconDenied = true
	return true
}

// Icon returns the stored icon and whether lookup was denied.
func (a *Aux) Icon() (data []byte, denied bool) {
	if a == nil {
		return nil, false
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.icon, a.iconDenied
}

// Detached reports whether the owning window has been destroyed.
func (a *Aux) Detached() bool {
	if a == nil {
		return true
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.detached
}

func (a *Aux) detach() {
	a.mu.Lock()
	a.detached = true
	a.icon = nil
	a.mu.Unlock()
}

// Policy decides manageability and default flags.
type Policy struct {
	titleExclusions map[string]struct{}
	borderProcesses []string
}

// NewPolicy builds a policy from a title exclusion list and a list of process
// path substrings that need border adjustment.
func NewPolicy(titleExclusions, borderProcesses []string) *Policy {
	p := &Policy{}
	p.SetTitleExclusions(titleExclusions)
	p.SetBorderProcesses(borderProcesses)
	return p
}

// SetTitleExclusions replaces the exact-match title exclusion set.
func (p *Policy) SetTitleExclusions(titles []string) {
	p.titleExclusions = make(map[string]struct{}, len(titles))
	for _, t := range titles {
		p.titleExclusions[t] = struct{}{}
	}
}

// SetBorderProcesses replaces the border-adjust process list.
func (p *Policy) SetBorderProcesses(procs []string) {
	p.borderProcesses = p.borderProcesses[:0]
	for _, s := range procs {
		s = strings.ToLower(strings.TrimSpace(s))
		if s != "" {
			p.borderProcesses = append(p.borderProcesses, s)
		}
	}
}

// Manageable reports whether a window with the given observed state is
// eligible for region membership.
func (p *Policy) Manageable(title string, rect Rect, state State) bool {
	if !state.TopLevel || !state.Visible || state.Minimized {
		return false
	}
	if rect.Width <= 1 || rect.Height <= 1 {
		return false
	}
	if title == "" {
		return false
	}
	if p != nil {
		if _, excluded := p.titleExclusions[title]; excluded {
			return false
		}
	}
	return true
}

// DefaultFlags returns the flags a newly created window starts with.
func (p *Policy) DefaultFlags(processPath string) Flags {
	var f Flags
	if p == nil || processPath == "" {
		return f
	}
	path := strings.ToLower(processPath)
	for _, s := range p.borderProcesses {
		if strings.Contains(path, s) {
			f.BorderAdjust = true
			break
		}
	}
	return f
}
