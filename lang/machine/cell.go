package machine

// Upvalue is a closure's capture cell (spec §3). It is either open,
// meaning it still points at a live stack slot in some frame below the
// top of the stack, or closed, meaning the captured value has been copied
// out of the stack into the cell itself. A closure's env is an array of
// *Upvalue; a variable captured by more than one nested closure shares
// the same *Upvalue instance, so writes through one closure are visible
// through the other (spec §8 scenario S2).
type Upvalue struct {
	closed bool
	value  Value // valid only when closed

	// open-state fields: the stack this cell currently points into, and
	// the absolute index of the slot within that stack.
	stack     *[]Value
	stackSlot int

	gcHeader
}

// newOpenUpvalue creates an Upvalue pointing at stack[slot].
func newOpenUpvalue(stack *[]Value, slot int) *Upvalue {
	return &Upvalue{stack: stack, stackSlot: slot}
}

// Get returns the upvalue's current value.
func (u *Upvalue) Get() Value {
	if u.closed {
		return u.value
	}
	return (*u.stack)[u.stackSlot]
}

// Set stores v into the upvalue's current location.
func (u *Upvalue) Set(v Value) {
	if u.closed {
		u.value = v
		return
	}
	(*u.stack)[u.stackSlot] = v
}

// Close copies the live stack value into the cell and detaches it from
// the stack, called when the frame that owns the slot is about to be
// popped (the `close` opcode, spec §4.6).
func (u *Upvalue) Close() {
	if u.closed {
		return
	}
	u.value = (*u.stack)[u.stackSlot]
	u.closed = true
	u.stack = nil
}

func (u *Upvalue) String() string { return "upvalue" }
func (*Upvalue) Type() string     { return "upvalue" }

// isOpenOnto reports whether u is currently open and points at exactly
// (stack, slot), the condition mk_closure's capture logic uses to decide
// whether to share an existing cell instead of allocating a new one
// (spec §4.6 "mk_closure").
func (u *Upvalue) isOpenOnto(stack *[]Value, slot int) bool {
	return !u.closed && u.stack == stack && u.stackSlot == slot
}
