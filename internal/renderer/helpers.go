package renderer

// Unwind collects cleanup funcs while a multi-step GPU resource is being
// built, so a failure halfway through releases what was already allocated.
type Unwind []func()

func (u *Unwind) Add(cleanup func()) {
	*u = append(*u, cleanup)
}

// Unwind runs the cleanups in reverse order.
func (u *Unwind) Unwind() {
	for i := len(*u) - 1; i >= 0; i-- {
		(*u)[i]()
	}
	*u = (*u)[:0]
}

// Discard forgets the cleanups once construction succeeded.
func (u *Unwind) Discard() {
	*u = (*u)[:0]
}
