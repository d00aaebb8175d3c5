package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusPaid       OrderStatus = "paid"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusShipped    OrderStatus = "shipped"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusCancelled  OrderStatus = "cancelled"
)

func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusPaid, OrderStatusProcessing,
		OrderStatusShipped, OrderStatusDelivered, OrderStatusCancelled:
		return true
	}
	return false
}

type Order struct {
	ID             uuid.UUID       `gorm:"type:uuid;primaryKey"               json:"id"`
	UserID         uuid.UUID       `gorm:"type:uuid;index;not null"           json:"user_id"`
	Status         OrderStatus     `gorm:"type:varchar(16);not null;index"    json:"status"`
	Subtotal       decimal.Decimal `gorm:"type:numeric(12,2);not null"        json:"subtotal"`
	Shipping       decimal.Decimal `gorm:"type:numeric(12,2);not null"        json:"shipping"`
	Total          decimal.Decimal `gorm:"type:numeric(12,2);not null"        json:"total"`
	Carrier        string          `gorm:"type:varchar(64)"                   json:"carrier,omitempty"`
	CourierName    string          `gorm:"type:varchar(64)"                   json:"courier_name,omitempty"`
	TrackingNumber string          `gorm:"type:varchar(64)"                   json:"tracking_number,omitempty"`
	TrackingURL    string          `gorm:"type:text"                          json:"tracking_url,omitempty"`
	Notes          string          `gorm:"type:text"                          json:"notes,omitempty"`
	CreatedAt      time.Time       `gorm:"not null;index"                     json:"created_at"`
	UpdatedAt      time.Time       `                                          json:"updated_at"`
	ShippedAt      *time.Time      `                                          json:"shipped_at,omitempty"`
	DeliveredAt    *time.Time      `                                          json:"delivered_at,omitempty"`
	Items          []OrderItem     `gorm:"foreignKey:OrderID"                 json:"items"`
}

func (o *Order) BeforeCreate(*gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	return nil
}

// OrderItem snapshots name and price at checkout and is never updated afterwards.
type OrderItem struct {
	ID           uuid.UUID       `gorm:"type:uuid;primaryKey"               json:"id"`
	OrderID      uuid.UUID       `gorm:"type:uuid;index;not null"           json:"order_id"`
	ProductID    uuid.UUID       `gorm:"type:uuid;not null"                 json:"product_id"`
	NameSnapshot string          `gorm:"type:varchar(255);not null"         json:"name_snapshot"`
	UnitPrice    decimal.Decimal `gorm:"type:numeric(12,2);not null"        json:"unit_price"`
	Quantity     int             `gorm:"not null;check:quantity > 0"        json:"quantity"`
}

func (i *OrderItem) BeforeCreate(*gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}

func (i OrderItem) LineTotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

type ReturnStatus string

const (
	ReturnRequested          ReturnStatus = "requested"
	ReturnApproved           ReturnStatus = "approved"
	ReturnInTransit          ReturnStatus = "in_transit"
	ReturnReceived           ReturnStatus = "received"
	ReturnRefunded           ReturnStatus = "refunded"
	ReturnReplacementShipped ReturnStatus = "replacement_shipped"
	ReturnReplaced           ReturnStatus = "replaced"
	ReturnRejected           ReturnStatus = "rejected"
	ReturnCancelled          ReturnStatus = "cancelled"
)

// ReturnStatusesReleasingCapacity do not count against an item's returnable quantity.
var ReturnStatusesReleasingCapacity = []ReturnStatus{ReturnRejected, ReturnCancelled}

func (s ReturnStatus) Valid() bool {
	switch s {
	case ReturnRequested, ReturnApproved, ReturnInTransit, ReturnReceived, ReturnRefunded,
		ReturnReplacementShipped, ReturnReplaced, ReturnRejected, ReturnCancelled:
		return true
	}
	return false
}

func (s ReturnStatus) Open() bool {
	switch s {
	case ReturnRequested, ReturnApproved, ReturnInTransit, ReturnReceived:
		return true
	}
	return false
}

func (s ReturnStatus) Completed() bool {
	switch s {
	case ReturnRefunded, ReturnReplacementShipped, ReturnReplaced:
		return true
	}
	return false
}

type Resolution string

const (
	ResolutionRefund      Resolution = "refund"
	ResolutionReplacement Resolution = "replacement"
	ResolutionStoreCredit Resolution = "store_credit"
)

func (r Resolution) Valid() bool {
	return r == ResolutionRefund || r == ResolutionReplacement || r == ResolutionStoreCredit
}

type ReasonCode string

const (
	ReasonDamaged        ReasonCode = "damaged"
	ReasonWrongItem      ReasonCode = "wrong_item"
	ReasonNotAsDescribed ReasonCode = "not_as_described"
	ReasonQualityIssue   ReasonCode = "quality_issue"
	ReasonSizeFit        ReasonCode = "size_fit"
	ReasonOther          ReasonCode = "other"
)

func (r ReasonCode) Valid() bool {
	switch r {
	case ReasonDamaged, ReasonWrongItem, ReasonNotAsDescribed, ReasonQualityIssue, ReasonSizeFit, ReasonOther:
		return true
	}
	return false
}

// SubmissionState tracks the multi-step write of a return. Pending headers are resumed on retry.
type SubmissionState string

const (
	SubmissionPending  SubmissionState = "pending"
	SubmissionComplete SubmissionState = "complete"
)

type Return struct {
	ID                     uuid.UUID       `gorm:"type:uuid;primaryKey"                          json:"id"`
	RMACode                string          `gorm:"type:varchar(32);uniqueIndex;not null"         json:"rma_code"`
	UserID                 uuid.UUID       `gorm:"type:uuid;index;not null"                      json:"user_id"`
	OrderID                uuid.UUID       `gorm:"type:uuid;index;not null"                      json:"order_id"`
	Resolution             Resolution      `gorm:"type:varchar(16);not null"                     json:"resolution"`
	Status                 ReturnStatus    `gorm:"type:varchar(24);not null;index"               json:"status"`
	SubmissionState        SubmissionState `gorm:"type:varchar(16);not null;default:'pending'"   json:"submission_state"`
	Notes                  string          `gorm:"type:text"                                     json:"notes,omitempty"`
	AdminNotes             string          `gorm:"type:text"                                     json:"admin_notes,omitempty"`
	ReplacementOrderID     *uuid.UUID      `gorm:"type:uuid"                                     json:"replacement_order_id,omitempty"`
	ReplacementCarrier     string          `gorm:"type:varchar(64)"                              json:"replacement_carrier,omitempty"`
	ReplacementAWB         string          `gorm:"type:varchar(64)"                              json:"replacement_awb,omitempty"`
	ReplacementTrackingURL string          `gorm:"type:text"                                     json:"replacement_tracking_url,omitempty"`
	ReplacementShippedAt   *time.Time      `                                                     json:"replacement_shipped_at,omitempty"`
	CreatedAt              time.Time       `gorm:"not null;index"                                json:"created_at"`
	UpdatedAt              time.Time       `                                                     json:"updated_at"`
	Items                  []ReturnItem    `gorm:"foreignKey:ReturnID"                           json:"items"`
}

func (r *Return) BeforeCreate(*gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

type ReturnItem struct {
	ID             uuid.UUID  `gorm:"type:uuid;primaryKey"                                              json:"id"`
	ReturnID       uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:ux_return_items_return_order_item"  json:"return_id"`
	OrderItemID    uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:ux_return_items_return_order_item;index" json:"order_item_id"`
	ProductID      uuid.UUID  `gorm:"type:uuid;not null"                                                json:"product_id"`
	Quantity       int        `gorm:"not null;check:quantity > 0"                                       json:"quantity"`
	ReasonCode     ReasonCode `gorm:"type:varchar(24);not null"                                         json:"reason_code"`
	ConditionNote  string     `gorm:"type:text"                                                         json:"condition_note,omitempty"`
	EvidenceImages ImageURLs  `                                                                         json:"evidence_images"`
}

func (i *ReturnItem) BeforeCreate(*gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}

// ReturnEvent is one entry of a return's timeline.
type ReturnEvent struct {
	ID        uuid.UUID    `gorm:"type:uuid;primaryKey"        json:"id"`
	ReturnID  uuid.UUID    `gorm:"type:uuid;index;not null"    json:"return_id"`
	Status    ReturnStatus `gorm:"type:varchar(24);not null"   json:"status"`
	Note      string       `gorm:"type:text"                   json:"note,omitempty"`
	CreatedBy *uuid.UUID   `gorm:"type:uuid"                   json:"created_by,omitempty"`
	CreatedAt time.Time    `gorm:"not null;index"              json:"created_at"`
}

func (e *ReturnEvent) BeforeCreate(*gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}

func All() []any {
	return []any{&Order{}, &OrderItem{}, &Return{}, &ReturnItem{}, &ReturnEvent{}}
}
