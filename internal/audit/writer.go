package audit

// Writer writes audit events to a destination
type Writer interface {
	Write(event Event) error
	Close() error
}
