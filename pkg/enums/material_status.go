package enums

// MaterialStatus is derived from served vs required quantity; it is never stored.
type MaterialStatus string

const (
	MaterialStatusPending         MaterialStatus = "pending"
	MaterialStatusPartiallyServed MaterialStatus = "partially_served"
	MaterialStatusFullyServed     MaterialStatus = "fully_served"
)

// String implements fmt.Stringer.
func (m MaterialStatus) String() string {
	return string(m)
}
