package crowdsale

// Window is the contribution-acceptance time box. It is set once at
// construction and immutable thereafter.
type Window struct {
	opening int64
	closing int64
}

// NewWindow validates and constructs the sale window. The opening time must
// not be in the past relative to now and the closing time must not precede
// the opening time.
func NewWindow(opening, closing, now int64) (Window, error) {
	if opening < now {
		return Window{}, ErrInvalidRange
	}
	if closing < opening {
		return Window{}, ErrInvalidRange
	}
	return Window{opening: opening, closing: closing}, nil
}

// RestoreWindow reconstructs a previously validated window, checking only the
// internal ordering. Revalidating the opening time against the clock would
// reject any sale whose window has already opened, making a restart
// impossible mid-sale.
func RestoreWindow(opening, closing int64) (Window, error) {
	if closing < opening {
		return Window{}, ErrInvalidRange
	}
	return Window{opening: opening, closing: closing}, nil
}

// Opening returns the first timestamp at which contributions are accepted.
func (w Window) Opening() int64 { return w.opening }

// Closing returns the last timestamp at which contributions are accepted.
func (w Window) Closing() int64 { return w.closing }

// IsOpen reports whether now falls inside the inclusive contribution window.
func (w Window) IsOpen(now int64) bool {
	return now >= w.opening && now <= w.closing
}

// HasClosed reports whether the window has elapsed.
func (w Window) HasClosed(now int64) bool {
	return now > w.closing
}
