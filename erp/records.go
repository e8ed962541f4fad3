package erp

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

// Many2One decodes the [id, display_name] pair the ERP returns for relational
// fields. Unset relations arrive as false and decode to the zero value.
type Many2One struct {
	Id   int
	Name string
}

func (m *Many2One) UnmarshalJSON(b []byte) error {
	if string(b) == "false" {
		*m = Many2One{}
		return nil
	}
	var pair []json.RawMessage
	if err := json.Unmarshal(b, &pair); err != nil {
		return err
	}
	if len(pair) > 0 {
		if err := json.Unmarshal(pair[0], &m.Id); err != nil {
			return err
		}
	}
	if len(pair) > 1 {
		if err := json.Unmarshal(pair[1], &m.Name); err != nil {
			return err
		}
	}
	return nil
}

// Text is a string field that the ERP serializes as false when unset.
type Text string

func (t *Text) UnmarshalJSON(b []byte) error {
	if string(b) == "false" {
		*t = ""
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	*t = Text(s)
	return nil
}

type Product struct {
	Id           int             `json:"id"`
	Name         string          `json:"name"`
	DefaultCode  Text            `json:"default_code"`
	QtyAvailable decimal.Decimal `json:"qty_available"`
	ListPrice    decimal.Decimal `json:"lst_price"`
}

type Partner struct {
	Id           int      `json:"id"`
	Name         string   `json:"name"`
	Email        Text     `json:"email"`
	Phone        Text     `json:"phone"`
	Street       Text     `json:"street"`
	Type         Text     `json:"type"`
	ParentId     Many2One `json:"parent_id"`
	CustomerRank int      `json:"customer_rank"`
}

type SalesOrder struct {
	Id            int             `json:"id"`
	Name          string          `json:"name"`
	State         string          `json:"state"`
	PartnerId     Many2One        `json:"partner_id"`
	ShippingId    Many2One        `json:"partner_shipping_id"`
	AmountTotal   decimal.Decimal `json:"amount_total"`
	InvoiceStatus Text            `json:"invoice_status"`
	InvoiceIds    []int           `json:"invoice_ids"`
	PickingIds    []int           `json:"picking_ids"`
}

type OrderLine struct {
	Id            int             `json:"id"`
	OrderId       Many2One        `json:"order_id"`
	ProductId     Many2One        `json:"product_id"`
	Name          string          `json:"name"`
	Quantity      decimal.Decimal `json:"product_uom_qty"`
	PriceUnit     decimal.Decimal `json:"price_unit"`
	PriceSubtotal decimal.Decimal `json:"price_subtotal"`
}

// Picking lifecycle states observed through the port: draft, waiting,
// confirmed, assigned, done, cancel.
type Picking struct {
	Id    int    `json:"id"`
	State string `json:"state"`
}

const (
	PickingStateDone      = "done"
	PickingStateCancelled = "cancel"
)

type StockMove struct {
	Id             int             `json:"id"`
	PickingId      Many2One        `json:"picking_id"`
	ProductId      Many2One        `json:"product_id"`
	ProductUomId   Many2One        `json:"product_uom"`
	Quantity       decimal.Decimal `json:"product_uom_qty"`
	LocationId     Many2One        `json:"location_id"`
	LocationDestId Many2One        `json:"location_dest_id"`
}

type Invoice struct {
	Id           int             `json:"id"`
	Name         Text            `json:"name"`
	State        string          `json:"state"`
	PaymentState Text            `json:"payment_state"`
	AmountTotal  decimal.Decimal `json:"amount_total"`
}

const (
	InvoiceStateDraft  = "draft"
	InvoiceStatePosted = "posted"

	InvoicePaymentStatePaid = "paid"
)

type Journal struct {
	Id   int    `json:"id"`
	Name string `json:"name"`
	Type string `json:"type"`
}

type User struct {
	Id        int      `json:"id"`
	Login     string   `json:"login"`
	Name      string   `json:"name"`
	Active    bool     `json:"active"`
	PartnerId Many2One `json:"partner_id"`
}

type Vehicle struct {
	Id                 int      `json:"id"`
	Name               string   `json:"vehicle_name"`
	RegistrationNumber string   `json:"registration_number"`
	Model              Text     `json:"model"`
	RegistrationYear   Text     `json:"registration_year"`
	Colour             Text     `json:"colour"`
	OwnerId            Many2One `json:"owner_id"`
}
