package transport

import (
	"github.com/Skotchmaster/returns/services/returns/internal/draft"
	"github.com/Skotchmaster/returns/services/returns/internal/eligibility"
	"github.com/Skotchmaster/returns/services/returns/internal/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type CreateOrderItem struct {
	ProductID uuid.UUID       `json:"product_id" validate:"required"`
	Name      string          `json:"name"       validate:"required,max=255"`
	Quantity  int             `json:"quantity"   validate:"gt=0"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

type CreateOrderRequest struct {
	Items    []CreateOrderItem `json:"items"    validate:"required,min=1,dive"`
	Shipping decimal.Decimal   `json:"shipping"`
	Notes    string            `json:"notes"    validate:"max=2000"`
}

type UpdateOrderStatusRequest struct {
	Status         string  `json:"status"          validate:"required"`
	Carrier        *string `json:"carrier"         validate:"omitempty,max=64"`
	CourierName    *string `json:"courier_name"    validate:"omitempty,max=64"`
	TrackingNumber *string `json:"tracking_number" validate:"omitempty,max=64"`
	TrackingURL    *string `json:"tracking_url"    validate:"omitempty,url"`
}

type OrderView struct {
	models.Order
	TrackingLink string                      `json:"tracking_link,omitempty"`
	Capacities   []eligibility.Capacity      `json:"capacities"`
	Returns      []models.Return             `json:"returns"`
	Aggregate    eligibility.AggregateStatus `json:"return_aggregate"`
	CTA          eligibility.CTA             `json:"return_cta"`
}

type OrderList struct {
	Items []OrderView `json:"items"`
	Total int64       `json:"total"`
	Page  int         `json:"page"`
	Size  int         `json:"size"`
}

type DraftPatchRequest struct {
	Resolution *string `json:"resolution"`
	Notes      *string `json:"notes" validate:"omitempty,max=2000"`
}

type DraftLinePatchRequest struct {
	Selected      *bool   `json:"selected"`
	Quantity      *int    `json:"quantity"`
	ReasonCode    *string `json:"reason_code"`
	ConditionNote *string `json:"condition_note" validate:"omitempty,max=1000"`
}

// DraftView is a draft without attachment bodies.
type DraftView struct {
	draft.Draft
	CanSubmit bool `json:"can_submit"`
}

func NewDraftView(d *draft.Draft) DraftView {
	v := DraftView{Draft: *d, CanSubmit: d.CanSubmit()}
	v.Lines = make([]draft.Line, len(d.Lines))
	for i, l := range d.Lines {
		imgs := make([]draft.Attachment, len(l.Images))
		for j, a := range l.Images {
			a.Data = nil
			imgs[j] = a
		}
		l.Images = imgs
		v.Lines[i] = l
	}
	return v
}

type ReturnStatusRequest struct {
	Status string `json:"status" validate:"required"`
	Note   string `json:"note"   validate:"max=2000"`
}

type AdminNotesRequest struct {
	Notes string `json:"notes" validate:"max=4000"`
}

type ReplacementItem struct {
	ReturnItemID uuid.UUID `json:"return_item_id" validate:"required"`
	Quantity     int       `json:"quantity"       validate:"gte=0"`
}

type ReplacementRequest struct {
	Items       []ReplacementItem `json:"items"        validate:"dive"`
	Shipping    decimal.Decimal   `json:"shipping"`
	Carrier     string            `json:"carrier"      validate:"max=64"`
	AWB         string            `json:"awb"          validate:"max=64"`
	TrackingURL string            `json:"tracking_url" validate:"omitempty,url"`
	Note        string            `json:"note"         validate:"max=2000"`
}

type ReturnList struct {
	Items []models.Return `json:"items"`
	Total int64           `json:"total"`
	Page  int             `json:"page"`
	Size  int             `json:"size"`
}
