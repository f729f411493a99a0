package sim

// CellID is a stable slot index into the cell arena. A slot is reused only
// after its previous occupant has been purged from both registry and bucket.
type CellID int32

const (
	supplySoftCap   = 2.0
	initialSupply   = 1.0
	initialHealth   = 1.0
	initialStrength = 1.0
)

// Cell is one autonomous agent.
type Cell struct {
	Team     int
	Seed     int32 // identity only
	Strength float64

	// Health is floored at zero by combat only; starvation can push it below.
	Health float64
	Supply float64

	Velocity  Vec2
	Preferred Vec2 // preferred heading, mirrored by wall hits
	Position  Vec2

	LastBirth float64
	HasBorn   bool

	alive bool
}

// registry is the authoritative set of live cells. slots owns the cell data,
// order lists live IDs in insertion order and drives every per-cell pass.
type registry struct {
	slots []Cell
	free  []CellID
	order []CellID
}

func (r *registry) insert(c Cell) CellID {
	c.alive = true
	var id CellID
	if n := len(r.free); n > 0 {
		id = r.free[n-1]
		r.free = r.free[:n-1]
		r.slots[id] = c
	} else {
		id = CellID(len(r.slots))
		r.slots = append(r.slots, c)
	}
	r.order = append(r.order, id)
	return id
}

func (r *registry) get(id CellID) *Cell {
	return &r.slots[id]
}

func (r *registry) len() int {
	return len(r.order)
}

// release frees a slot. The caller compacts order itself.
func (r *registry) release(id CellID) {
	r.slots[id] = Cell{}
	r.free = append(r.free, id)
}

// contains reports whether id is a live slot.
func (r *registry) contains(id CellID) bool {
	return id >= 0 && int(id) < len(r.slots) && r.slots[id].alive
}
