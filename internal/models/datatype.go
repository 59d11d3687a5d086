package models

// DataType identifies one replicated collection. The set is closed; the
// engine only syncs types that an entity manager has registered.
type DataType string

const (
	DataTypeBookings DataType = "bookings"
	DataTypeClients  DataType = "clients"
	DataTypeStaff    DataType = "staff"
	DataTypeServices DataType = "services"
)

// AllDataTypes returns every replicated collection type in a stable order.
func AllDataTypes() []DataType {
	return []DataType{
		DataTypeBookings,
		DataTypeClients,
		DataTypeStaff,
		DataTypeServices,
	}
}

// Valid reports whether dt is one of the closed set of collection types.
func (dt DataType) Valid() bool {
	switch dt {
	case DataTypeBookings, DataTypeClients, DataTypeStaff, DataTypeServices:
		return true
	default:
		return false
	}
}

func (dt DataType) String() string {
	return string(dt)
}
