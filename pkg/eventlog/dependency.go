package eventlog

// DependencyState is the resolution progress of a Dependency.
type DependencyState int

const (
	DependencyUnsettled DependencyState = iota
	DependencyResolved
	DependencyNotFound
)

func (s DependencyState) String() string {
	switch s {
	case DependencyResolved:
		return "resolved"
	case DependencyNotFound:
		return "not_found"
	default:
		return "unsettled"
	}
}

// Dependency references another item by id.
//
// A locally bound dependency never holds the referenced item: it is looked up
// by RefID on every use, so the window can drop that item at any time. A
// fetched target is owned by the dependency and dies with the owning item.
type Dependency struct {
	RefID int64

	state   DependencyState
	local   bool
	target  *Item
	pending string
}

func (d *Dependency) State() DependencyState { return d.state }

// Settled reports whether resolution reached a terminal state.
func (d *Dependency) Settled() bool {
	return d.state == DependencyResolved || d.state == DependencyNotFound
}

// Local reports whether the dependency is bound to an item of the window.
func (d *Dependency) Local() bool { return d.state == DependencyResolved && d.local }

// Pending returns the handle id of the in-flight request, if any.
func (d *Dependency) Pending() string { return d.pending }

func (d *Dependency) SetPending(handle string) { d.pending = handle }

func (d *Dependency) BindLocal() {
	d.state = DependencyResolved
	d.local = true
	d.target = nil
	d.pending = ""
}

func (d *Dependency) BindTarget(target *Item) {
	d.state = DependencyResolved
	d.local = false
	d.target = target
	d.pending = ""
}

func (d *Dependency) SetNotFound() {
	d.state = DependencyNotFound
	d.local = false
	d.target = nil
	d.pending = ""
}

// Unsettle returns the dependency to its initial state.
func (d *Dependency) Unsettle() {
	d.state = DependencyUnsettled
	d.local = false
	d.target = nil
	d.pending = ""
}

// Target returns the referenced item. lookup is consulted for local bindings
// and may be nil, in which case local bindings report no target.
func (d *Dependency) Target(lookup Lookup) (*Item, bool) {
	if d.state != DependencyResolved {
		return nil, false
	}
	if d.local {
		if lookup == nil {
			return nil, false
		}
		return lookup(d.RefID)
	}
	return d.target, d.target != nil
}
