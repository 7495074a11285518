package device

// Event is a joystick notification coming from the input source
type Event interface {
	isEvent()
}

// Added announces a joystick. Which is the provider's enumeration index,
// not the instance id.
type Added struct {
	Which int
}

type Removed struct {
	ID int32
}

type Button struct {
	ID     int32
	Button int
	Down   bool
}

func (Added) isEvent()   {}
func (Removed) isEvent() {}
func (Button) isEvent()  {}
