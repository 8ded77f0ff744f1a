package download

// EventKind identifies what happened during a run.
type EventKind int

const (
	BrokerStarted EventKind = iota
	MessagesFound
	NoMessages
	FileWritten
	MessageFailed
	BrokerFailed
	Finished
)

func (k EventKind) String() string {
	switch k {
	case BrokerStarted:
		return "broker-started"
	case MessagesFound:
		return "messages-found"
	case NoMessages:
		return "no-messages"
	case FileWritten:
		return "file-written"
	case MessageFailed:
		return "message-failed"
	case BrokerFailed:
		return "broker-failed"
	case Finished:
		return "finished"
	}
	return "unknown"
}

// Event is a progress notification. Only the fields relevant to Kind are set.
type Event struct {
	Kind      EventKind
	Broker    string
	Count     int
	MessageID string
	File      string
	Path      string
	Err       error
	Report    *Report
}

// Observer receives progress events in order.
type Observer interface {
	Notify(Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Event)

func (f ObserverFunc) Notify(e Event) { f(e) }

// ChannelObserver forwards events to a channel.
type ChannelObserver chan<- Event

func (c ChannelObserver) Notify(e Event) { c <- e }

type nopObserver struct{}

func (nopObserver) Notify(Event) {}
