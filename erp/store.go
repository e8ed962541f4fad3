package erp

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// The gateway consumes the ERP through these narrow, typed ports. Workflows
// take the smallest interface they need; the JSON-RPC adapter implements all
// of them.

type ProductStore interface {
	ListProducts(ctx context.Context, offset, limit int) ([]Product, error)
	GetProduct(ctx context.Context, id int) (*Product, error)
	FindProductByCode(ctx context.Context, code string) (*Product, error)
	ProductImage(ctx context.Context, id int) ([]byte, error)
}

type PartnerInput struct {
	Name         string
	Email        string
	Phone        string
	Street       string
	Type         string
	ParentId     int
	CustomerRank int
	IsCompany    bool
}

type PartnerStore interface {
	FirstCustomer(ctx context.Context) (*Partner, error)
	GetPartner(ctx context.Context, id int) (*Partner, error)
	// FindDeliveryChild returns the partner's current delivery-type
	// sub-record, or ErrNotFound when none exists yet.
	FindDeliveryChild(ctx context.Context, parentId int) (*Partner, error)
	CreatePartner(ctx context.Context, input PartnerInput) (int, error)
	UpdatePartner(ctx context.Context, id int, input PartnerInput) error
	DeletePartner(ctx context.Context, id int) error
}

type OrderLineInput struct {
	OrderId   int
	ProductId int
	Quantity  decimal.Decimal
	PriceUnit decimal.Decimal
	Name      string
}

type OrderStore interface {
	CreateOrder(ctx context.Context, customerId, shippingId int) (*SalesOrder, error)
	GetOrder(ctx context.Context, id int) (*SalesOrder, error)
	CreateOrderLine(ctx context.Context, input OrderLineInput) (int, error)
	OrderLines(ctx context.Context, orderId int) ([]OrderLine, error)
	ConfirmOrder(ctx context.Context, orderId int) error
	OrderPickings(ctx context.Context, orderId int) ([]Picking, error)
	ConfirmPicking(ctx context.Context, pickingId int) error
	AssignPicking(ctx context.Context, pickingId int) error
	// CompleteMoves rewrites the picking's move lines to the full ordered
	// quantity so validation closes the shipment without a backorder.
	CompleteMoves(ctx context.Context, pickingId int) error
	ValidatePicking(ctx context.Context, pickingId int) error
}

type InvoiceStore interface {
	OrderInvoices(ctx context.Context, orderId int) ([]Invoice, error)
	CreateInvoiceFromOrder(ctx context.Context, orderId int) (*Invoice, error)
	PostInvoice(ctx context.Context, invoiceId int) error
	FindBankJournal(ctx context.Context) (*Journal, error)
	RegisterPayment(ctx context.Context, invoiceId, journalId int, amount decimal.Decimal, date time.Time) error
}

type UserInput struct {
	Name      string
	Login     string
	Email     string
	Phone     string
	Password  string
	PartnerId int
	GroupId   int
}

type UserStore interface {
	// FindUserByLogin returns ErrNotFound when no account carries the login.
	FindUserByLogin(ctx context.Context, login string) (*User, error)
	PortalGroupId(ctx context.Context) (int, error)
	CreateUser(ctx context.Context, input UserInput) (int, error)
	DeleteUser(ctx context.Context, id int) error
	SetPassword(ctx context.Context, userId int, newPassword string) error
	// CheckCredential returns true when login/password authenticate.
	CheckCredential(ctx context.Context, login, password string) (bool, error)
}

type VehicleInput struct {
	Name               string
	RegistrationNumber string
	Model              string
	RegistrationYear   string
	Colour             string
	OwnerId            int
}

type VehicleStore interface {
	FindVehicle(ctx context.Context, registrationNumber string, ownerId int) (*Vehicle, error)
	CreateVehicle(ctx context.Context, input VehicleInput) (int, error)
	DeleteVehicle(ctx context.Context, id int) error
}

// Store is the full port surface; the composition in main wires one adapter
// behind all of it.
type Store interface {
	ProductStore
	PartnerStore
	OrderStore
	InvoiceStore
	UserStore
	VehicleStore
}
