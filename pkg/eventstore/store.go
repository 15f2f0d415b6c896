package eventstore

// Store is the audit boundary: every lifecycle event for every order
// passes through AddEvent, and the ClOrdID chain it maintains lets a
// gateway resolve "which order does this cancel/replace refer to" without
// the matching core ever needing to know about client order IDs at all.
type Store interface {
	AddEvent(ev *Event)
	TrackClOrdChain(orderID, clOrdID, origClOrdID string)
	GetLatestClOrdID(orderID string) string
	GetOrigClOrdID(clOrdID string) string
	GetOrderID(clOrdID string) string
	ReconstructChain(clOrdID string) []string
	History(orderID string) []*Event
}
