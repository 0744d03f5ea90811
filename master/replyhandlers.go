package master

import "github.com/unixpickle/syncmaster/syncprim"

// Tag identifies a rendezvous slot in the reply-handler registry. Most tags
// mirror a wire.Kind one-to-one; DDeltaAny and DDeltaAll are virtual tags
// fed by the same physical DDelta receipt, per spec.md §4.2.
type Tag int

const (
	TagOnline Tag = iota
	TagWorkersAck
	TagDataset
	TagReady
	TagTrainPauseAck
	TagTrainContinueAck
	TagDDeltaAny
	TagDDeltaAll
	TagClosed
	TagPapBatch
	TagDParam
)

// policy selects which rendezvous shape a tag is bound to.
type policy int

const (
	policyEach policy = iota
	policyAny
)

type entry struct {
	policy policy
	each   *syncprim.Each
	any    *syncprim.Any
}

// replyRegistry is the RPH: a table mapping message tags to a policy and a
// bound rendezvous, active only while the tag has not been deactivated.
type replyRegistry struct {
	n        int
	entries  map[Tag]*entry
	inactive map[Tag]bool
}

func newReplyRegistry(n int) *replyRegistry {
	return &replyRegistry{
		n:        n,
		entries:  make(map[Tag]*entry),
		inactive: make(map[Tag]bool),
	}
}

// RegisterEach binds tag to a fresh Each rendezvous expecting a signal from
// every one of the registry's N sources.
func (r *replyRegistry) RegisterEach(tag Tag) *syncprim.Each {
	e := syncprim.NewEach(r.n)
	r.entries[tag] = &entry{policy: policyEach, each: e}
	return e
}

// RegisterAny binds tag to a fresh Any rendezvous.
func (r *replyRegistry) RegisterAny(tag Tag) *syncprim.Any {
	a := syncprim.NewAny()
	r.entries[tag] = &entry{policy: policyAny, any: a}
	return a
}

// Input records that lid reported for tag, firing the bound rendezvous if
// its policy is satisfied. A call for a deactivated or unregistered tag is
// a silent no-op (mirrors the tail-handler drain behavior after
// terminate: deltas keep arriving but the registry no longer routes them
// into a live rendezvous).
func (r *replyRegistry) Input(tag Tag, lid int) {
	if r.inactive[tag] {
		return
	}
	e, ok := r.entries[tag]
	if !ok {
		return
	}
	switch e.policy {
	case policyEach:
		e.each.Signal(lid)
	case policyAny:
		e.any.Signal()
	}
}

// DeactivateType stops routing for tag, used once terminate has begun.
func (r *replyRegistry) DeactivateType(tag Tag) {
	r.inactive[tag] = true
}

// Reactivate resumes routing for tag (used by modes that reuse a tag across
// rounds via WaitAndReset rather than deactivation).
func (r *replyRegistry) Reactivate(tag Tag) {
	delete(r.inactive, tag)
}

// InputDelta feeds one physical DDelta receipt into both virtual tags,
// exactly as spec.md §4.2 requires; a mode that only registered one of the
// two tags simply ignores the other's Input call.
func (r *replyRegistry) InputDelta(lid int) {
	r.Input(TagDDeltaAll, lid)
	r.Input(TagDDeltaAny, lid)
}

// Each returns the Each rendezvous bound to tag, or nil if tag is not
// registered with the each policy.
func (r *replyRegistry) Each(tag Tag) *syncprim.Each {
	e, ok := r.entries[tag]
	if !ok || e.policy != policyEach {
		return nil
	}
	return e.each
}

// Any returns the Any rendezvous bound to tag, or nil if tag is not
// registered with the any policy.
func (r *replyRegistry) Any(tag Tag) *syncprim.Any {
	e, ok := r.entries[tag]
	if !ok || e.policy != policyAny {
		return nil
	}
	return e.any
}
