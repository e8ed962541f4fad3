package workflow

import (
	"context"
	"errors"
	"strings"

	"bitbucket.org/bjitlabs/erpgate_backend/config"
	"bitbucket.org/bjitlabs/erpgate_backend/erp"
	"github.com/bsm/redislock"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

type OrderLineRequest struct {
	ProductCode string          `json:"product_code"`
	ProductId   int             `json:"product_id"`
	Quantity    decimal.Decimal `json:"quantity"`
}

type CreateOrderRequest struct {
	CustomerId      int                `json:"customer_id"`
	Products        []OrderLineRequest `json:"products"`
	PaymentStatus   string             `json:"payment_status"`
	DeliveryAddress string             `json:"delivery_address"`
}

type CreateOrderResult struct {
	OrderId     int    `json:"order_id"`
	OrderName   string `json:"sale_order"`
	InvoiceId   *int   `json:"invoice_id"`
	InvoiceName string `json:"invoice,omitempty"`
	Status      string `json:"status"`
}

type resolvedLine struct {
	product  erp.Product
	quantity decimal.Decimal
}

// CreateOrder creates the order header and lines, then runs fulfillment when
// the caller reports the order as paid. Order creation and fulfillment are two
// separable units of work: a fulfillment failure leaves the created order in
// place and is returned alongside the partial result, never rolled back.
func CreateOrder(ctx context.Context, store erp.Store, locker *redislock.Client, logger *logrus.Logger, req CreateOrderRequest) (*CreateOrderResult, error) {
	if len(req.Products) == 0 {
		return nil, Validation("invalid or missing products list")
	}

	// Resolve every line before writing anything: an unknown product aborts
	// the whole order, partial orders are never created.
	lines := make([]resolvedLine, 0, len(req.Products))
	for _, line := range req.Products {
		qty := line.Quantity
		if qty.IsZero() {
			qty = decimal.NewFromInt(1)
		}
		if qty.IsNegative() {
			return nil, Validation("quantity must be greater than 0")
		}

		var product *erp.Product
		var err error
		switch {
		case line.ProductCode != "":
			product, err = store.FindProductByCode(ctx, line.ProductCode)
		case line.ProductId > 0:
			product, err = store.GetProduct(ctx, line.ProductId)
		default:
			return nil, Validation("missing product_code in line item")
		}
		if errors.Is(err, erp.ErrNotFound) {
			if line.ProductCode != "" {
				return nil, NotFound("product with code " + line.ProductCode + " not found")
			}
			return nil, NotFound("product not found")
		}
		if err != nil {
			config.LogError(logger, "orderWorkflow.go", "CreateOrder", "ResolveProduct", line, err)
			return nil, Dependency("could not resolve a product", err)
		}
		lines = append(lines, resolvedLine{product: *product, quantity: qty})
	}

	var customer *erp.Partner
	var err error
	if req.CustomerId > 0 {
		customer, err = store.GetPartner(ctx, req.CustomerId)
	} else {
		customer, err = store.FirstCustomer(ctx)
	}
	if errors.Is(err, erp.ErrNotFound) {
		return nil, NotFound("no customer found in the system")
	}
	if err != nil {
		config.LogError(logger, "orderWorkflow.go", "CreateOrder", "ResolveCustomer", req.CustomerId, err)
		return nil, Dependency("could not resolve the customer", err)
	}

	shippingId := customer.Id
	if strings.TrimSpace(req.DeliveryAddress) != "" {
		shippingId, err = UpsertShippingAddress(ctx, store, logger, customer.Id, ShippingAddressRequest{
			Street: req.DeliveryAddress,
		})
		if err != nil {
			return nil, err
		}
	}

	order, err := store.CreateOrder(ctx, customer.Id, shippingId)
	if err != nil {
		config.LogError(logger, "orderWorkflow.go", "CreateOrder", "CreateOrderHeader", customer.Id, err)
		return nil, Dependency("could not create the order", err)
	}

	for _, line := range lines {
		// Price and name are snapshotted now; later product changes must not
		// touch existing lines.
		_, err := store.CreateOrderLine(ctx, erp.OrderLineInput{
			OrderId:   order.Id,
			ProductId: line.product.Id,
			Quantity:  line.quantity,
			PriceUnit: line.product.ListPrice,
			Name:      line.product.Name,
		})
		if err != nil {
			config.LogError(logger, "orderWorkflow.go", "CreateOrder", "CreateOrderLine", order.Id, err)
			result := &CreateOrderResult{OrderId: order.Id, OrderName: order.Name, Status: statusLabel(req.PaymentStatus)}
			return result, Dependency("could not create an order line", err)
		}
	}

	result := &CreateOrderResult{
		OrderId:   order.Id,
		OrderName: order.Name,
		Status:    statusLabel(req.PaymentStatus),
	}

	if strings.EqualFold(strings.TrimSpace(req.PaymentStatus), "paid") {
		invoice, err := FulfillOrder(ctx, store, locker, logger, order.Id)
		if err != nil {
			// The order stays; the caller retries fulfillment separately.
			return result, err
		}
		result.InvoiceId = &invoice.Id
		result.InvoiceName = string(invoice.Name)
	}

	return result, nil
}

func statusLabel(paymentStatus string) string {
	s := strings.ToLower(strings.TrimSpace(paymentStatus))
	if s == "" {
		return "Unpaid"
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

type ShippingAddressRequest struct {
	Street string `json:"street" binding:"required"`
	Phone  string `json:"phone"`
	Email  string `json:"email"`
}

// UpsertShippingAddress maintains the customer's single current delivery
// sub-record: the existing delivery-type child is updated in place, otherwise
// one is created. Returns the delivery partner id.
func UpsertShippingAddress(ctx context.Context, partners erp.PartnerStore, logger *logrus.Logger, customerId int, input ShippingAddressRequest) (int, error) {
	if strings.TrimSpace(input.Street) == "" {
		return 0, Validation("street is required")
	}

	customer, err := partners.GetPartner(ctx, customerId)
	if errors.Is(err, erp.ErrNotFound) {
		return 0, NotFound("customer not found")
	}
	if err != nil {
		config.LogError(logger, "orderWorkflow.go", "UpsertShippingAddress", "GetPartner", customerId, err)
		return 0, Dependency("could not resolve the customer", err)
	}

	values := erp.PartnerInput{
		Name:   customer.Name + " (Delivery)",
		Street: input.Street,
		Phone:  input.Phone,
		Email:  input.Email,
		Type:   "delivery",
	}

	existing, err := partners.FindDeliveryChild(ctx, customer.Id)
	if err == nil {
		if err := partners.UpdatePartner(ctx, existing.Id, values); err != nil {
			config.LogError(logger, "orderWorkflow.go", "UpsertShippingAddress", "UpdatePartner", existing.Id, err)
			return 0, Dependency("could not update the delivery address", err)
		}
		return existing.Id, nil
	}
	if !errors.Is(err, erp.ErrNotFound) {
		config.LogError(logger, "orderWorkflow.go", "UpsertShippingAddress", "FindDeliveryChild", customer.Id, err)
		return 0, Dependency("could not look up the delivery address", err)
	}

	values.ParentId = customer.Id
	id, err := partners.CreatePartner(ctx, values)
	if err != nil {
		config.LogError(logger, "orderWorkflow.go", "UpsertShippingAddress", "CreatePartner", customer.Id, err)
		return 0, Dependency("could not create the delivery address", err)
	}
	return id, nil
}
