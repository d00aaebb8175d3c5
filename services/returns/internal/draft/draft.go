// Package draft holds a customer's return request while it is being assembled, before anything is persisted.
package draft

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"net/http"
	"time"

	"github.com/Skotchmaster/returns/services/returns/internal/eligibility"
	"github.com/Skotchmaster/returns/services/returns/internal/models"
	"github.com/google/uuid"
	"golang.org/x/image/webp"
)

const (
	MaxImagesPerLine = 5
	MaxImageBytes    = 5 << 20

	DefaultReason     = models.ReasonNotAsDescribed
	DefaultResolution = models.ResolutionRefund
)

var (
	ErrInvalid = errors.New("invalid draft")

	ErrUnknownItem       = fmt.Errorf("%w: item is not part of this order", ErrInvalid)
	ErrInvalidReason     = fmt.Errorf("%w: unknown reason code", ErrInvalid)
	ErrInvalidResolution = fmt.Errorf("%w: unknown resolution", ErrInvalid)
	ErrTooManyImages     = fmt.Errorf("%w: at most %d images per item", ErrInvalid, MaxImagesPerLine)
	ErrImageTooLarge     = fmt.Errorf("%w: image exceeds %d bytes", ErrInvalid, MaxImageBytes)
	ErrUnsupportedImage  = fmt.Errorf("%w: only jpeg, png, gif and webp images are accepted", ErrInvalid)
	ErrDuplicateImage    = fmt.Errorf("%w: image with this name already attached", ErrInvalid)
	ErrImageNotFound     = fmt.Errorf("%w: image not attached", ErrInvalid)
)

type Attachment struct {
	Name        string `json:"name"`
	ContentType string `json:"content_type"`
	Size        int    `json:"size"`
	Data        []byte `json:"data,omitempty"`
}

type Line struct {
	OrderItemID   uuid.UUID         `json:"order_item_id"`
	ProductID     uuid.UUID         `json:"product_id"`
	Name          string            `json:"name"`
	Cap           int               `json:"cap"`
	Quantity      int               `json:"quantity"`
	Reason        models.ReasonCode `json:"reason_code"`
	ConditionNote string            `json:"condition_note,omitempty"`
	Images        []Attachment      `json:"images,omitempty"`
}

type Draft struct {
	UserID     uuid.UUID         `json:"user_id"`
	OrderID    uuid.UUID         `json:"order_id"`
	Resolution models.Resolution `json:"resolution"`
	Notes      string            `json:"notes,omitempty"`
	Lines      []Line            `json:"lines"`
	CreatedAt  time.Time         `json:"created_at"`
}

// New starts a draft with every item unselected. It refuses (ok=false) when the order's CTA is disabled.
func New(order models.Order, caps map[uuid.UUID]eligibility.Capacity, cta eligibility.CTA) (*Draft, bool) {
	if cta.Disabled {
		return nil, false
	}
	d := &Draft{
		UserID:     order.UserID,
		OrderID:    order.ID,
		Resolution: DefaultResolution,
		Lines:      make([]Line, 0, len(order.Items)),
		CreatedAt:  time.Now().UTC(),
	}
	for _, it := range order.Items {
		d.Lines = append(d.Lines, Line{
			OrderItemID: it.ID,
			ProductID:   it.ProductID,
			Name:        it.NameSnapshot,
			Cap:         max(0, eligibility.RemainingFor(caps, it)),
			Reason:      DefaultReason,
		})
	}
	return d, true
}

func (d *Draft) line(itemID uuid.UUID) (*Line, error) {
	for i := range d.Lines {
		if d.Lines[i].OrderItemID == itemID {
			return &d.Lines[i], nil
		}
	}
	return nil, ErrUnknownItem
}

func (d *Draft) Line(itemID uuid.UUID) (Line, bool) {
	l, err := d.line(itemID)
	if err != nil {
		return Line{}, false
	}
	return *l, true
}

func (d *Draft) Toggle(itemID uuid.UUID, on bool) error {
	l, err := d.line(itemID)
	if err != nil {
		return err
	}
	if on {
		l.Quantity = min(1, l.Cap)
	} else {
		l.Quantity = 0
	}
	return nil
}

// SetQuantity clamps q into [1, cap]; it never rejects an out of range value.
func (d *Draft) SetQuantity(itemID uuid.UUID, q int) error {
	l, err := d.line(itemID)
	if err != nil {
		return err
	}
	l.Quantity = clamp(q, l.Cap)
	return nil
}

func clamp(q, limit int) int {
	if limit <= 0 {
		return 0
	}
	return min(max(q, 1), limit)
}

func (d *Draft) SetReason(itemID uuid.UUID, reason models.ReasonCode) error {
	if !reason.Valid() {
		return ErrInvalidReason
	}
	l, err := d.line(itemID)
	if err != nil {
		return err
	}
	l.Reason = reason
	return nil
}

func (d *Draft) SetConditionNote(itemID uuid.UUID, note string) error {
	l, err := d.line(itemID)
	if err != nil {
		return err
	}
	l.ConditionNote = note
	return nil
}

func (d *Draft) SetResolution(r models.Resolution) error {
	if !r.Valid() {
		return ErrInvalidResolution
	}
	d.Resolution = r
	return nil
}

func (d *Draft) SetNotes(notes string) {
	d.Notes = notes
}

// AttachImage sniffs the content and stores the sniffed type, ignoring whatever the client claimed.
func (d *Draft) AttachImage(itemID uuid.UUID, name string, data []byte) (Attachment, error) {
	l, err := d.line(itemID)
	if err != nil {
		return Attachment{}, err
	}
	if len(l.Images) >= MaxImagesPerLine {
		return Attachment{}, ErrTooManyImages
	}
	if len(data) > MaxImageBytes {
		return Attachment{}, ErrImageTooLarge
	}
	for _, img := range l.Images {
		if img.Name == name {
			return Attachment{}, ErrDuplicateImage
		}
	}
	ct, err := SniffImage(data)
	if err != nil {
		return Attachment{}, err
	}

	a := Attachment{Name: name, ContentType: ct, Size: len(data), Data: data}
	l.Images = append(l.Images, a)
	return a, nil
}

func (d *Draft) RemoveImage(itemID uuid.UUID, name string) error {
	l, err := d.line(itemID)
	if err != nil {
		return err
	}
	for i, img := range l.Images {
		if img.Name == name {
			l.Images = append(l.Images[:i], l.Images[i+1:]...)
			return nil
		}
	}
	return ErrImageNotFound
}

func (d *Draft) CanSubmit() bool {
	for _, l := range d.Lines {
		if l.Quantity > 0 {
			return true
		}
	}
	return false
}

// Selected returns the lines the customer picked.
func (d *Draft) Selected() []Line {
	var out []Line
	for _, l := range d.Lines {
		if l.Quantity > 0 {
			out = append(out, l)
		}
	}
	return out
}

// SniffImage returns the MIME type of a supported image or ErrUnsupportedImage.
func SniffImage(data []byte) (string, error) {
	ct := http.DetectContentType(data)
	switch ct {
	case "image/webp":
		if _, err := webp.DecodeConfig(bytes.NewReader(data)); err != nil {
			return "", ErrUnsupportedImage
		}
	case "image/jpeg", "image/png", "image/gif":
		if _, _, err := image.DecodeConfig(bytes.NewReader(data)); err != nil {
			return "", ErrUnsupportedImage
		}
	default:
		return "", ErrUnsupportedImage
	}
	return ct, nil
}
