package outbox

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/matreq-backend/pkg/enums"
)

// TableStatusChangedEvent is emitted on submit, approve and reject.
type TableStatusChangedEvent struct {
	TableID   uuid.UUID         `json:"table_id"`
	Name      string            `json:"name"`
	OwnerID   uuid.UUID         `json:"owner_id"`
	From      enums.TableStatus `json:"from"`
	To        enums.TableStatus `json:"to"`
	ItemCount int               `json:"item_count"`
	Remarks   *string           `json:"remarks,omitempty"`
}

// TableDeletedEvent records a cascade delete and what it removed.
type TableDeletedEvent struct {
	TableID             uuid.UUID `json:"table_id"`
	RequisitionsDeleted int       `json:"requisitions_deleted"`
	ReceiptsDetached    int64     `json:"receipts_detached"`
}

// RequisitionServedEvent is emitted when a serve changes a requisition.
type RequisitionServedEvent struct {
	RequisitionID     uuid.UUID               `json:"requisition_id"`
	RequisitionNumber string                  `json:"requisition_number"`
	TableID           uuid.UUID               `json:"table_id"`
	MaterialID        uuid.UUID               `json:"material_id"`
	Material          string                  `json:"material"`
	ServedQty         string                  `json:"served_qty"`
	Status            enums.RequisitionStatus `json:"status"`
}

// CatalogIngestedEvent is emitted after an upload is persisted.
type CatalogIngestedEvent struct {
	Mode      enums.CatalogUploadMode `json:"mode"`
	Persisted int                     `json:"persisted"`
}

// CutOffApproachingEvent warns a table owner that a cut-off is near.
type CutOffApproachingEvent struct {
	TableID uuid.UUID             `json:"table_id"`
	OwnerID uuid.UUID             `json:"owner_id"`
	Type    enums.RequisitionType `json:"type"`
	CutOff  time.Time             `json:"cut_off"`
}

// ReceiptStatusChangedEvent is emitted when a receipt is verified or rejected.
type ReceiptStatusChangedEvent struct {
	ReceiptID uuid.UUID           `json:"receipt_id"`
	TableID   *uuid.UUID          `json:"table_id,omitempty"`
	Status    enums.ReceiptStatus `json:"status"`
}
