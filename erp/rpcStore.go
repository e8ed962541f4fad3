package erp

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"
)

// RpcStore implements the port interfaces over the ERP JSON-RPC client. A
// single instance is shared by every request handler.
type RpcStore struct {
	client *Client

	portalGroupId atomic.Int64
}

func NewRpcStore(client *Client) *RpcStore {
	return &RpcStore{client: client}
}

var productFields = []string{"id", "name", "default_code", "qty_available", "lst_price"}

func (s *RpcStore) ListProducts(ctx context.Context, offset, limit int) ([]Product, error) {
	var products []Product
	err := s.client.SearchRead(ctx, "product.product", []any{}, productFields, offset, limit, &products)
	if err != nil {
		return nil, err
	}
	return products, nil
}

func (s *RpcStore) GetProduct(ctx context.Context, id int) (*Product, error) {
	var products []Product
	err := s.client.SearchRead(ctx, "product.product", []any{[]any{"id", "=", id}}, productFields, 0, 1, &products)
	if err != nil {
		return nil, err
	}
	if len(products) == 0 {
		return nil, ErrNotFound
	}
	return &products[0], nil
}

func (s *RpcStore) FindProductByCode(ctx context.Context, code string) (*Product, error) {
	var products []Product
	err := s.client.SearchRead(ctx, "product.product", []any{[]any{"default_code", "=", code}}, productFields, 0, 1, &products)
	if err != nil {
		return nil, err
	}
	if len(products) == 0 {
		return nil, ErrNotFound
	}
	return &products[0], nil
}

func (s *RpcStore) ProductImage(ctx context.Context, id int) ([]byte, error) {
	var records []struct {
		Image Text `json:"image_1920"`
	}
	err := s.client.Read(ctx, "product.product", []int{id}, []string{"image_1920"}, &records)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 || records[0].Image == "" {
		return nil, ErrNotFound
	}
	return base64.StdEncoding.DecodeString(string(records[0].Image))
}

var partnerFields = []string{"id", "name", "email", "phone", "street", "type", "parent_id", "customer_rank"}

func (s *RpcStore) FirstCustomer(ctx context.Context) (*Partner, error) {
	var partners []Partner
	err := s.client.SearchRead(ctx, "res.partner", []any{[]any{"customer_rank", ">", 0}}, partnerFields, 0, 1, &partners)
	if err != nil {
		return nil, err
	}
	if len(partners) == 0 {
		return nil, ErrNotFound
	}
	return &partners[0], nil
}

func (s *RpcStore) GetPartner(ctx context.Context, id int) (*Partner, error) {
	var partners []Partner
	err := s.client.SearchRead(ctx, "res.partner", []any{[]any{"id", "=", id}}, partnerFields, 0, 1, &partners)
	if err != nil {
		return nil, err
	}
	if len(partners) == 0 {
		return nil, ErrNotFound
	}
	return &partners[0], nil
}

func (s *RpcStore) FindDeliveryChild(ctx context.Context, parentId int) (*Partner, error) {
	domain := []any{
		[]any{"parent_id", "=", parentId},
		[]any{"type", "=", "delivery"},
	}
	var partners []Partner
	err := s.client.SearchRead(ctx, "res.partner", domain, partnerFields, 0, 1, &partners)
	if err != nil {
		return nil, err
	}
	if len(partners) == 0 {
		return nil, ErrNotFound
	}
	return &partners[0], nil
}

func partnerValues(input PartnerInput) map[string]any {
	values := map[string]any{
		"name":       input.Name,
		"is_company": input.IsCompany,
	}
	if input.Email != "" {
		values["email"] = input.Email
	}
	if input.Phone != "" {
		values["phone"] = input.Phone
	}
	if input.Street != "" {
		values["street"] = input.Street
	}
	if input.Type != "" {
		values["type"] = input.Type
	}
	if input.ParentId > 0 {
		values["parent_id"] = input.ParentId
	}
	if input.CustomerRank > 0 {
		values["customer_rank"] = input.CustomerRank
	}
	return values
}

func (s *RpcStore) CreatePartner(ctx context.Context, input PartnerInput) (int, error) {
	return s.client.Create(ctx, "res.partner", partnerValues(input), nil)
}

func (s *RpcStore) UpdatePartner(ctx context.Context, id int, input PartnerInput) error {
	return s.client.Write(ctx, "res.partner", []int{id}, partnerValues(input))
}

func (s *RpcStore) DeletePartner(ctx context.Context, id int) error {
	return s.client.Unlink(ctx, "res.partner", []int{id})
}

var orderFields = []string{"id", "name", "state", "partner_id", "partner_shipping_id", "amount_total", "invoice_status", "invoice_ids", "picking_ids"}

func (s *RpcStore) CreateOrder(ctx context.Context, customerId, shippingId int) (*SalesOrder, error) {
	id, err := s.client.Create(ctx, "sale.order", map[string]any{
		"partner_id":          customerId,
		"partner_shipping_id": shippingId,
	}, nil)
	if err != nil {
		return nil, err
	}
	return s.GetOrder(ctx, id)
}

func (s *RpcStore) GetOrder(ctx context.Context, id int) (*SalesOrder, error) {
	var orders []SalesOrder
	err := s.client.SearchRead(ctx, "sale.order", []any{[]any{"id", "=", id}}, orderFields, 0, 1, &orders)
	if err != nil {
		return nil, err
	}
	if len(orders) == 0 {
		return nil, ErrNotFound
	}
	return &orders[0], nil
}

func (s *RpcStore) CreateOrderLine(ctx context.Context, input OrderLineInput) (int, error) {
	return s.client.Create(ctx, "sale.order.line", map[string]any{
		"order_id":        input.OrderId,
		"product_id":      input.ProductId,
		"product_uom_qty": input.Quantity.InexactFloat64(),
		"price_unit":      input.PriceUnit.InexactFloat64(),
		"name":            input.Name,
	}, nil)
}

func (s *RpcStore) OrderLines(ctx context.Context, orderId int) ([]OrderLine, error) {
	fields := []string{"id", "order_id", "product_id", "name", "product_uom_qty", "price_unit", "price_subtotal"}
	var lines []OrderLine
	err := s.client.SearchRead(ctx, "sale.order.line", []any{[]any{"order_id", "=", orderId}}, fields, 0, 0, &lines)
	if err != nil {
		return nil, err
	}
	return lines, nil
}

func (s *RpcStore) ConfirmOrder(ctx context.Context, orderId int) error {
	return s.client.CallMethod(ctx, "sale.order", "action_confirm", []int{orderId}, nil)
}

func (s *RpcStore) OrderPickings(ctx context.Context, orderId int) ([]Picking, error) {
	var pickings []Picking
	err := s.client.SearchRead(ctx, "stock.picking", []any{[]any{"sale_id", "=", orderId}}, []string{"id", "state"}, 0, 0, &pickings)
	if err != nil {
		return nil, err
	}
	return pickings, nil
}

func (s *RpcStore) ConfirmPicking(ctx context.Context, pickingId int) error {
	return s.client.CallMethod(ctx, "stock.picking", "action_confirm", []int{pickingId}, nil)
}

func (s *RpcStore) AssignPicking(ctx context.Context, pickingId int) error {
	return s.client.CallMethod(ctx, "stock.picking", "action_assign", []int{pickingId}, nil)
}

func (s *RpcStore) CompleteMoves(ctx context.Context, pickingId int) error {
	moveFields := []string{"id", "picking_id", "product_id", "product_uom", "product_uom_qty", "location_id", "location_dest_id"}
	var moves []StockMove
	err := s.client.SearchRead(ctx, "stock.move", []any{[]any{"picking_id", "=", pickingId}}, moveFields, 0, 0, &moves)
	if err != nil {
		return err
	}

	for _, move := range moves {
		var lineIds []int
		res, err := s.client.ExecuteKw(ctx, "stock.move.line", "search", []any{[]any{[]any{"move_id", "=", move.Id}}}, nil)
		if err != nil {
			return err
		}
		if err := json.Unmarshal(res, &lineIds); err != nil {
			return err
		}
		if len(lineIds) > 0 {
			if err := s.client.Unlink(ctx, "stock.move.line", lineIds); err != nil {
				return err
			}
		}

		_, err = s.client.Create(ctx, "stock.move.line", map[string]any{
			"move_id":          move.Id,
			"picking_id":       move.PickingId.Id,
			"product_id":       move.ProductId.Id,
			"product_uom_id":   move.ProductUomId.Id,
			"qty_done":         move.Quantity.InexactFloat64(),
			"location_id":      move.LocationId.Id,
			"location_dest_id": move.LocationDestId.Id,
		}, nil)
		if err != nil {
			return err
		}
	}
	return nil
}

func (s *RpcStore) ValidatePicking(ctx context.Context, pickingId int) error {
	return s.client.CallMethod(ctx, "stock.picking", "button_validate", []int{pickingId}, nil)
}

var invoiceFields = []string{"id", "name", "state", "payment_state", "amount_total"}

func (s *RpcStore) OrderInvoices(ctx context.Context, orderId int) ([]Invoice, error) {
	order, err := s.GetOrder(ctx, orderId)
	if err != nil {
		return nil, err
	}
	if len(order.InvoiceIds) == 0 {
		return nil, nil
	}
	var invoices []Invoice
	if err := s.client.Read(ctx, "account.move", order.InvoiceIds, invoiceFields, &invoices); err != nil {
		return nil, err
	}
	return invoices, nil
}

// CreateInvoiceFromOrder drives the ERP's invoicing wizard for the order and
// returns the invoice it produced.
func (s *RpcStore) CreateInvoiceFromOrder(ctx context.Context, orderId int) (*Invoice, error) {
	before, err := s.GetOrder(ctx, orderId)
	if err != nil {
		return nil, err
	}

	wizardCtx := map[string]any{
		"context": map[string]any{
			"active_model": "sale.order",
			"active_ids":   []int{orderId},
		},
	}
	wizardId, err := s.client.Create(ctx, "sale.advance.payment.inv", map[string]any{
		"advance_payment_method": "delivered",
	}, wizardCtx)
	if err != nil {
		return nil, err
	}
	if err := s.client.CallMethod(ctx, "sale.advance.payment.inv", "create_invoices", []int{wizardId}, wizardCtx); err != nil {
		return nil, err
	}

	after, err := s.GetOrder(ctx, orderId)
	if err != nil {
		return nil, err
	}

	known := make(map[int]bool, len(before.InvoiceIds))
	for _, id := range before.InvoiceIds {
		known[id] = true
	}
	for _, id := range after.InvoiceIds {
		if !known[id] {
			var invoices []Invoice
			if err := s.client.Read(ctx, "account.move", []int{id}, invoiceFields, &invoices); err != nil {
				return nil, err
			}
			if len(invoices) > 0 {
				return &invoices[0], nil
			}
		}
	}
	return nil, ErrNotFound
}

func (s *RpcStore) PostInvoice(ctx context.Context, invoiceId int) error {
	return s.client.CallMethod(ctx, "account.move", "action_post", []int{invoiceId}, nil)
}

func (s *RpcStore) FindBankJournal(ctx context.Context) (*Journal, error) {
	var journals []Journal
	err := s.client.SearchRead(ctx, "account.journal", []any{[]any{"type", "=", "bank"}}, []string{"id", "name", "type"}, 0, 1, &journals)
	if err != nil {
		return nil, err
	}
	if len(journals) == 0 {
		return nil, ErrNotFound
	}
	return &journals[0], nil
}

func (s *RpcStore) RegisterPayment(ctx context.Context, invoiceId, journalId int, amount decimal.Decimal, date time.Time) error {
	wizardCtx := map[string]any{
		"context": map[string]any{
			"active_model": "account.move",
			"active_ids":   []int{invoiceId},
		},
	}
	wizardId, err := s.client.Create(ctx, "account.payment.register", map[string]any{
		"payment_date": date.Format("2006-01-02"),
		"journal_id":   journalId,
		"amount":       amount.InexactFloat64(),
	}, wizardCtx)
	if err != nil {
		return err
	}
	return s.client.CallMethod(ctx, "account.payment.register", "action_create_payments", []int{wizardId}, wizardCtx)
}

var userFields = []string{"id", "login", "name", "active", "partner_id"}

func (s *RpcStore) FindUserByLogin(ctx context.Context, login string) (*User, error) {
	var users []User
	err := s.client.SearchRead(ctx, "res.users", []any{[]any{"login", "=", login}}, userFields, 0, 1, &users)
	if err != nil {
		return nil, err
	}
	if len(users) == 0 {
		return nil, ErrNotFound
	}
	return &users[0], nil
}

func (s *RpcStore) PortalGroupId(ctx context.Context) (int, error) {
	if id := s.portalGroupId.Load(); id != 0 {
		return int(id), nil
	}
	id, err := s.client.ResolveExternalId(ctx, "base", "group_portal")
	if err != nil {
		return 0, err
	}
	s.portalGroupId.Store(int64(id))
	return id, nil
}

func (s *RpcStore) CreateUser(ctx context.Context, input UserInput) (int, error) {
	values := map[string]any{
		"name":       input.Name,
		"login":      input.Login,
		"email":      input.Email,
		"password":   input.Password,
		"partner_id": input.PartnerId,
		"groups_id":  []any{[]any{6, 0, []int{input.GroupId}}},
		"active":     true,
		"share":      true,
	}
	if input.Phone != "" {
		values["phone"] = input.Phone
	}
	return s.client.Create(ctx, "res.users", values, nil)
}

func (s *RpcStore) DeleteUser(ctx context.Context, id int) error {
	return s.client.Unlink(ctx, "res.users", []int{id})
}

func (s *RpcStore) SetPassword(ctx context.Context, userId int, newPassword string) error {
	return s.client.Write(ctx, "res.users", []int{userId}, map[string]any{"password": newPassword})
}

func (s *RpcStore) CheckCredential(ctx context.Context, login, password string) (bool, error) {
	uid, err := s.client.Authenticate(ctx, login, password)
	if err != nil {
		return false, err
	}
	return uid > 0, nil
}

var vehicleFields = []string{"id", "vehicle_name", "registration_number", "model", "registration_year", "colour", "owner_id"}

func (s *RpcStore) FindVehicle(ctx context.Context, registrationNumber string, ownerId int) (*Vehicle, error) {
	domain := []any{
		[]any{"registration_number", "=", registrationNumber},
		[]any{"owner_id", "=", ownerId},
	}
	var vehicles []Vehicle
	err := s.client.SearchRead(ctx, "vehicle.management", domain, vehicleFields, 0, 1, &vehicles)
	if err != nil {
		return nil, err
	}
	if len(vehicles) == 0 {
		return nil, ErrNotFound
	}
	return &vehicles[0], nil
}

func (s *RpcStore) CreateVehicle(ctx context.Context, input VehicleInput) (int, error) {
	return s.client.Create(ctx, "vehicle.management", map[string]any{
		"vehicle_name":        input.Name,
		"registration_number": input.RegistrationNumber,
		"model":               input.Model,
		"registration_year":   input.RegistrationYear,
		"colour":              input.Colour,
		"owner_id":            input.OwnerId,
	}, nil)
}

func (s *RpcStore) DeleteVehicle(ctx context.Context, id int) error {
	return s.client.Unlink(ctx, "vehicle.management", []int{id})
}
