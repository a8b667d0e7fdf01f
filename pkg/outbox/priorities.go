package outbox

// Dispatch priorities. Lower values go first within a poll, so financial
// records reach the remote store before supporting data.
const (
	PriorityFinancial = 1 // sales, journal entries, period locks
	PriorityShift     = 2
	PriorityInventory = 3 // stock levels, customers
	PriorityDevice    = 4
)
