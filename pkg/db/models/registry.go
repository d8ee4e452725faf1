package models

// All lists every persisted model in dependency order.
func All() []any {
	return []any{
		&CatalogRow{},
		&RequisitionTable{},
		&Requisition{},
		&RequisitionMaterial{},
		&POReceipt{},
		&OutboxEvent{},
	}
}
