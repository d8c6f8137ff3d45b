package tools

// Operation is the closed set of operations the planner may request
type Operation int

const (
	OpUnknown Operation = iota
	OpFindAvailableSlots
	OpCreateBooking
	OpListBookings
	OpCancelBooking
	OpRescheduleBooking
)

var operationNames = [...]string{
	OpUnknown:            "unknown",
	OpFindAvailableSlots: "find-available-slots",
	OpCreateBooking:      "create-booking",
	OpListBookings:       "list-bookings",
	OpCancelBooking:      "cancel-booking",
	OpRescheduleBooking:  "reschedule-booking",
}

// Operations lists the known operations in catalog order
func Operations() []Operation {
	return []Operation{
		OpFindAvailableSlots,
		OpCreateBooking,
		OpListBookings,
		OpCancelBooking,
		OpRescheduleBooking,
	}
}

// String returns the wire name of the operation
func (o Operation) String() string {
	if o < 0 || int(o) >= len(operationNames) {
		return operationNames[OpUnknown]
	}
	return operationNames[o]
}

// ParseOperation maps a wire name to an operation.
// Unrecognized names return OpUnknown and false.
func ParseOperation(name string) (Operation, bool) {
	for _, op := range Operations() {
		if op.String() == name {
			return op, true
		}
	}
	return OpUnknown, false
}
