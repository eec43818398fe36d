package enums

// HistoryActor identifies who caused an order status history entry.
type HistoryActor string

const (
	HistoryActorSystem HistoryActor = "system"
	HistoryActorAdmin  HistoryActor = "admin"
	HistoryActorUser   HistoryActor = "user"
)

// String implements fmt.Stringer.
func (a HistoryActor) String() string {
	return string(a)
}

// IsValid reports whether the value is a known HistoryActor.
func (a HistoryActor) IsValid() bool {
	switch a {
	case HistoryActorSystem, HistoryActorAdmin, HistoryActorUser:
		return true
	}
	return false
}
