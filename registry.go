package mcdb

import "sync"

// regMu is the single process-wide mutex spec.md §5/§9 calls for: every
// read/write of a generation's refcnt and every mutation of its next chain
// happens under this lock, across every DB and Handle in the process. The
// lock-free read path (FindStart/FindNext/ReadValue, and refreshSelf's
// initial peek) never touches it.
var regMu sync.Mutex

// registerOp composes the direction (incr for a reader joining/refreshing,
// decr for a reader leaving) with the lock-held flags reopenThreadsafe uses
// to fold its own transition into the lock it already holds — spec.md
// §4.3.2's single parameterized primitive.
type registerOp struct {
	incr       bool
	lockHeld   bool // caller already holds regMu; don't lock
	keepLocked bool // leave regMu held on return; don't unlock
}

// transition implements spec.md §4.3.2's register/unregister protocol
// against *slot, a pointer to the field a single Handle (or DB) uses to
// track which generation it currently references.
//
// Precondition for incr: *slot already holds a counted reference. With no
// published successor, this call adds one more reference to the same
// generation; otherwise it trades the reference forward for one on the
// chain tail (migration) — see DESIGN.md's "Open Question resolutions" #1.
// New handles acquire their first reference via bootstrap, not transition.
func transition(slot **generation, op registerOp) bool {
	if !op.lockHeld {
		regMu.Lock()
	}
	if !op.keepLocked {
		defer regMu.Unlock()
	}

	cur := *slot
	if cur == nil || (op.incr && cur.data == nil) {
		// Either nothing to operate on, or another goroutine finished
		// destroying this generation while we waited for the lock — the
		// null-data case signals the caller must re-create or re-register
		// against the latest generation.
		return !op.incr
	}

	var migrated *generation
	if op.incr {
		if next := cur.next.Load(); next == nil {
			cur.refcnt++
		} else {
			tail := next
			for t := tail.next.Load(); t != nil; t = t.next.Load() {
				tail = t
			}
			tail.refcnt++
			*slot = tail
			migrated = tail
		}
	}

	if !op.incr || migrated != nil {
		cur.refcnt--
		if cur.refcnt == 0 {
			reclaimChain(cur)
			cur.free()
			if !op.incr {
				*slot = nil
			}
		}
	}

	return true
}

// reclaimChain frees every superseded successor of head whose refcnt has
// also reached zero, walking forward along next. head itself is left for
// the caller to free.
func reclaimChain(head *generation) {
	for {
		next := head.next.Load()
		if next == nil || next.refcnt != 0 {
			return
		}
		head.next.Store(next.next.Load())
		next.free()
	}
}

// releaseAnchor is DB.Close's exit path: decrement the DB's own reference
// and, if that was the last one, unlink *slot and hand the now-unreferenced
// generation back to the caller for a full destroy (which — unlike the
// ordinary free used above — also closes the shared directory fd). Returns
// nil if other readers still hold references.
func releaseAnchor(slot **generation) *generation {
	regMu.Lock()
	defer regMu.Unlock()

	cur := *slot
	if cur == nil {
		return nil
	}
	cur.refcnt--
	if cur.refcnt != 0 {
		return nil
	}
	reclaimChain(cur)
	*slot = nil
	return cur
}

// register advances *slot to the chain tail if one has been published,
// adjusting refcounts per transition's migration branch; if none has been
// published it only increments *slot's refcnt. Returns false if
// *slot was nil or pointed at an already-destroyed generation.
func register(slot **generation) bool {
	return transition(slot, registerOp{incr: true})
}

// unregister releases *slot's reference, reclaiming the generation (and any
// zero-refcount predecessors) if this was the last one.
func unregister(slot **generation) bool {
	return transition(slot, registerOp{incr: false})
}

// bootstrap gives a brand new reader its first reference: under the
// registry lock, walk from anchor to the true tail, increment its refcnt,
// and store it into *slot. Unlike transition's incr branch, this never
// reaches the decrement step, because the caller has no prior reference to
// release.
func bootstrap(anchor **generation, slot **generation) bool {
	regMu.Lock()
	defer regMu.Unlock()

	cur := *anchor
	if cur == nil || cur.data == nil {
		return false
	}
	tail := cur
	for next := tail.next.Load(); next != nil; next = tail.next.Load() {
		tail = next
	}
	tail.refcnt++
	*slot = tail
	return true
}

// reopenThreadsafe is the maintenance actor's entry point (spec.md
// §4.3.3): under the registry lock, build a new generation linked as
// anchor's next unless one is already pending, then migrate *anchor
// forward onto it via transition's lock-already-held path.
func reopenThreadsafe(anchor **generation) error {
	regMu.Lock()

	cur := *anchor
	if cur.next.Load() == nil {
		next := &generation{dir: cur.dir, fname: cur.fname}
		if err := next.reopen(); err != nil {
			regMu.Unlock()
			return err
		}
		cur.next.Store(next)
	}

	ok := transition(anchor, registerOp{incr: true, lockHeld: true, keepLocked: true})
	regMu.Unlock()
	if !ok {
		return ErrSuperseded
	}
	return nil
}
