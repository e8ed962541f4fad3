package workflow

import (
	"context"
	"errors"

	"bitbucket.org/bjitlabs/erpgate_backend/config"
	"bitbucket.org/bjitlabs/erpgate_backend/erp"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

const (
	PaymentStatusPaid        = "Paid"
	PaymentStatusUnpaid      = "Unpaid"
	PaymentStatusNotInvoiced = "Not Invoiced"

	DeliveryStatusShipped    = "Shipped"
	DeliveryStatusPending    = "Pending"
	DeliveryStatusNoDelivery = "No Delivery"
)

type TrackedLine struct {
	Product   string          `json:"product"`
	Quantity  decimal.Decimal `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Subtotal  decimal.Decimal `json:"subtotal"`
}

type OrderStatus struct {
	OrderId        int             `json:"order_id"`
	Customer       string          `json:"customer"`
	Lines          []TrackedLine   `json:"order_lines"`
	TotalAmount    decimal.Decimal `json:"total_amount"`
	PaymentStatus  string          `json:"payment_status"`
	DeliveryStatus string          `json:"delivery_status"`
}

// TrackOrder is a pure read. Payment status derives from the order's invoices
// (none yet means Not Invoiced, Paid only when every invoice is fully paid);
// delivery status derives from its shipments the same way.
func TrackOrder(ctx context.Context, orders erp.OrderStore, invoiceStore erp.InvoiceStore, logger *logrus.Logger, orderId int) (*OrderStatus, error) {
	order, err := orders.GetOrder(ctx, orderId)
	if errors.Is(err, erp.ErrNotFound) {
		return nil, NotFound("sale order not found")
	}
	if err != nil {
		config.LogError(logger, "trackingWorkflow.go", "TrackOrder", "GetOrder", orderId, err)
		return nil, Dependency("could not load the order", err)
	}

	lines, err := orders.OrderLines(ctx, order.Id)
	if err != nil {
		config.LogError(logger, "trackingWorkflow.go", "TrackOrder", "OrderLines", order.Id, err)
		return nil, Dependency("could not load the order lines", err)
	}

	status := &OrderStatus{
		OrderId:     order.Id,
		Customer:    order.PartnerId.Name,
		TotalAmount: order.AmountTotal,
		Lines:       make([]TrackedLine, 0, len(lines)),
	}
	for _, line := range lines {
		status.Lines = append(status.Lines, TrackedLine{
			Product:   line.ProductId.Name,
			Quantity:  line.Quantity,
			UnitPrice: line.PriceUnit,
			Subtotal:  line.PriceSubtotal,
		})
	}

	invoices, err := invoiceStore.OrderInvoices(ctx, order.Id)
	if err != nil {
		config.LogError(logger, "trackingWorkflow.go", "TrackOrder", "OrderInvoices", order.Id, err)
		return nil, Dependency("could not load the order invoices", err)
	}
	switch {
	case len(invoices) == 0:
		status.PaymentStatus = PaymentStatusNotInvoiced
	case allPaid(invoices):
		status.PaymentStatus = PaymentStatusPaid
	default:
		status.PaymentStatus = PaymentStatusUnpaid
	}

	pickings, err := orders.OrderPickings(ctx, order.Id)
	if err != nil {
		config.LogError(logger, "trackingWorkflow.go", "TrackOrder", "OrderPickings", order.Id, err)
		return nil, Dependency("could not load the shipments", err)
	}
	switch {
	case len(pickings) == 0:
		status.DeliveryStatus = DeliveryStatusNoDelivery
	case allDone(pickings):
		status.DeliveryStatus = DeliveryStatusShipped
	default:
		status.DeliveryStatus = DeliveryStatusPending
	}

	return status, nil
}

func allPaid(invoices []erp.Invoice) bool {
	for _, inv := range invoices {
		if string(inv.PaymentState) != erp.InvoicePaymentStatePaid {
			return false
		}
	}
	return true
}

func allDone(pickings []erp.Picking) bool {
	for _, p := range pickings {
		if p.State != erp.PickingStateDone {
			return false
		}
	}
	return true
}
