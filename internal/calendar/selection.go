package calendar

// Selection tracks the single event whose detail popover is open.
// The zero value has nothing open.
type Selection struct {
	id string
}

// Open opens the popover of id, closing any other.
func (s *Selection) Open(id string) {
	s.id = id
}

// Toggle opens the popover of id, or closes it if it is already open.
func (s *Selection) Toggle(id string) {
	if s.id == id {
		s.id = ""
		return
	}
	s.id = id
}

func (s *Selection) Close() {
	s.id = ""
}

// IsOpen reports whether the popover of id is open.
func (s *Selection) IsOpen(id string) bool {
	return id != "" && s.id == id
}

// Current returns the open event ID, if any.
func (s *Selection) Current() (string, bool) {
	return s.id, s.id != ""
}
