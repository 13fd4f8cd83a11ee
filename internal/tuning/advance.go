package tuning

// Advancer moves the tuning target to the next string once the current one
// has been brought in tune. It remembers only the previous status.
type Advancer struct {
	Enabled bool
	prev    Status
}

// Observe feeds the status of the latest reading. It returns the string to
// tune next when auto-advance is enabled, the status has just become in
// tune and currentID is not the last string of catalog.
func (a *Advancer) Observe(status Status, currentID string, catalog Catalog) (ReferenceString, bool) {
	entered := status == StatusInTune && a.prev != StatusInTune
	a.prev = status
	if !a.Enabled || !entered {
		return ReferenceString{}, false
	}

	i := catalog.Index(currentID)
	if i < 0 || i+1 >= catalog.Len() {
		return ReferenceString{}, false
	}
	return catalog.At(i + 1), true
}

// Reset forgets the previous status, e.g. after the target changed by hand
func (a *Advancer) Reset() {
	a.prev = ""
}
