package queue

// Prefetch tracks which items await synthesis and how many synthesis
// calls are in flight, bounding concurrent engine work. It is plain
// bookkeeping with no locking of its own; the manager serializes access.
type Prefetch struct {
	limit      int
	pending    []string
	pendingSet map[string]struct{}
	generating int
}

// NewPrefetch returns a tracker admitting at most limit concurrent
// synthesis calls. A limit below 1 is raised to 1.
func NewPrefetch(limit int) *Prefetch {
	if limit < 1 {
		limit = 1
	}
	return &Prefetch{
		limit:      limit,
		pendingSet: map[string]struct{}{},
	}
}

// AddPending registers an item id awaiting synthesis. Duplicates are ignored.
func (p *Prefetch) AddPending(id string) {
	if _, ok := p.pendingSet[id]; ok {
		return
	}
	p.pending = append(p.pending, id)
	p.pendingSet[id] = struct{}{}
}

// ItemsToGenerate returns the ids whose synthesis may start now, in
// enqueue order, limited by the free generation slots. It does not
// change any state; callers remove admitted ids and bump the counter.
func (p *Prefetch) ItemsToGenerate() []string {
	free := p.limit - p.generating
	if free <= 0 || len(p.pending) == 0 {
		return nil
	}
	if free > len(p.pending) {
		free = len(p.pending)
	}
	ids := make([]string, free)
	copy(ids, p.pending[:free])
	return ids
}

// Remove drops an item id from the pending order.
func (p *Prefetch) Remove(id string) {
	if _, ok := p.pendingSet[id]; !ok {
		return
	}
	delete(p.pendingSet, id)
	for i, pending := range p.pending {
		if pending == id {
			p.pending = append(p.pending[:i], p.pending[i+1:]...)
			break
		}
	}
}

// IncrementGenerating records one more synthesis call in flight.
func (p *Prefetch) IncrementGenerating() {
	p.generating++
}

// DecrementGenerating records a finished synthesis call. The counter
// floors at zero; completions may arrive after a Clear already reset it.
func (p *Prefetch) DecrementGenerating() {
	if p.generating > 0 {
		p.generating--
	}
}

// Clear drops all pending ids and resets the in-flight counter.
func (p *Prefetch) Clear() {
	p.pending = nil
	p.pendingSet = map[string]struct{}{}
	p.generating = 0
}

// Generating returns the number of synthesis calls in flight.
func (p *Prefetch) Generating() int {
	return p.generating
}

// PendingCount returns the number of ids awaiting synthesis.
func (p *Prefetch) PendingCount() int {
	return len(p.pending)
}
