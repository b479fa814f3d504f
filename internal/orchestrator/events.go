package orchestrator

// Event announces a per-resource state transition so UI layers can react
// without polling Snapshot.
type Event struct {
	Resource Resource
	State    ResourceState
}

const eventBuffer = 16

// Subscribe registers an event channel. The returned func unsubscribes and
// closes the channel. Slow consumers lose events rather than stall a load.
func (o *Orchestrator) Subscribe() (<-chan Event, func()) {
	o.emu.Lock()
	defer o.emu.Unlock()
	id := o.nextSub
	o.nextSub++
	ch := make(chan Event, eventBuffer)
	o.subs[id] = ch
	return ch, func() {
		o.emu.Lock()
		defer o.emu.Unlock()
		if c, ok := o.subs[id]; ok {
			delete(o.subs, id)
			close(c)
		}
	}
}

// setStateLocked updates one resource state and fans the event out. Callers
// hold o.mu.
func (o *Orchestrator) setStateLocked(res Resource, st ResourceState) {
	o.cur.States[res] = st
	o.emit(Event{Resource: res, State: st})
}

func (o *Orchestrator) emit(ev Event) {
	o.emu.Lock()
	defer o.emu.Unlock()
	for _, ch := range o.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}
