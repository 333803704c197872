package core

// Recorder receives counters from the relay path. Implementations must be
// safe for concurrent use.
type Recorder interface {
	SessionJoined()
	SessionLeft()
	RoomsActive(n int)
	EventRelayed(kind EventKind, recipients int)
	EventDropped(reason string)
	SnapshotSaved(err error)
}

type nopRecorder struct{}

func (nopRecorder) SessionJoined()              {}
func (nopRecorder) SessionLeft()                {}
func (nopRecorder) RoomsActive(int)             {}
func (nopRecorder) EventRelayed(EventKind, int) {}
func (nopRecorder) EventDropped(string)         {}
func (nopRecorder) SnapshotSaved(error)         {}
