package sim

// Chunk is one cell of the coarse territory grid. It holds references to the
// cells standing inside it but does not own their lifetime.
type Chunk struct {
	buckets [][]CellID // per team, insertion ordered

	// Ownership is the per-team claim in [0,1]. The sum drifts around 1 and
	// is never renormalised.
	Ownership []float64

	// Supply can go negative while the chunk is unowned.
	Supply float64

	// Generation is sampled once at construction.
	Generation float64

	// IsSpawn is reserved; the tick pipeline never writes it.
	IsSpawn bool
}

func newChunk(numTeams int) Chunk {
	return Chunk{
		buckets:   make([][]CellID, numTeams),
		Ownership: make([]float64, numTeams),
	}
}

// Count returns how many cells of team stand in the chunk.
func (c *Chunk) Count(team int) int {
	return len(c.buckets[team])
}

// Total returns the population over all teams.
func (c *Chunk) Total() int {
	n := 0
	for _, b := range c.buckets {
		n += len(b)
	}
	return n
}

// Bucket returns the IDs of team's cells in this chunk. The slice is owned by
// the chunk and must not be modified.
func (c *Chunk) Bucket(team int) []CellID {
	return c.buckets[team]
}

// Owner returns the team with the strictly largest ownership, the lowest
// team index on ties, or -1 when no team holds any claim.
func (c *Chunk) Owner() int {
	owner := -1
	best := 0.0
	for team, v := range c.Ownership {
		if v > best {
			best = v
			owner = team
		}
	}
	return owner
}

func (c *Chunk) insert(team int, id CellID) {
	c.buckets[team] = append(c.buckets[team], id)
}

// remove deletes id from team's bucket, keeping the order of the rest since
// the combat scan uses bucket order as its tie break.
func (c *Chunk) remove(team int, id CellID) bool {
	b := c.buckets[team]
	for i, other := range b {
		if other == id {
			copy(b[i:], b[i+1:])
			c.buckets[team] = b[:len(b)-1]
			return true
		}
	}
	return false
}

// setOwnerOnly makes the chunk fully owned by team.
func (c *Chunk) setOwnerOnly(team int) {
	for k := range c.Ownership {
		if k == team {
			c.Ownership[k] = 1
		} else {
			c.Ownership[k] = 0
		}
	}
}

// chunkFields are the per-pass scratch buffers of the diffusion stage. They
// are sized once to the grid and never alias chunk state.
type chunkFields struct {
	owners     []int
	prevOwners []int // owners seen by the previous diffusion pass
	transfer   []float64
}

func newChunkFields(n int) chunkFields {
	return chunkFields{
		owners:     make([]int, n),
		prevOwners: make([]int, n),
		transfer:   make([]float64, n),
	}
}
