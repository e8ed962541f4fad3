package workflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"bitbucket.org/bjitlabs/erpgate_backend/config"
	"bitbucket.org/bjitlabs/erpgate_backend/erp"
	"github.com/bsm/redislock"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("erpgate-workflow")

// FulfillOrder drives a created order through shipment, invoicing and payment.
// Safe to re-invoke: an order whose invoice is already posted and paid returns
// that invoice without creating anything, and concurrent runs on the same
// order are serialized by a redis lock. Steps already done in the ERP
// (confirmed order, validated picking, posted invoice) are skipped.
func FulfillOrder(ctx context.Context, store erp.Store, locker *redislock.Client, logger *logrus.Logger, orderId int) (*erp.Invoice, error) {
	ctx, span := tracer.Start(ctx, "FulfillOrder")
	defer span.End()

	if locker != nil {
		lock, err := locker.Obtain(ctx, fmt.Sprintf("fulfill:%d", orderId), 30*time.Second, nil)
		if errors.Is(err, redislock.ErrNotObtained) {
			return nil, Conflict("fulfillment already in progress for this order")
		}
		if err != nil {
			config.LogError(logger, "fulfillmentWorkflow.go", "FulfillOrder", "ObtainLock", orderId, err)
			return nil, Dependency("could not serialize fulfillment", err)
		}
		defer func() {
			_ = lock.Release(ctx)
		}()
	}

	order, err := store.GetOrder(ctx, orderId)
	if errors.Is(err, erp.ErrNotFound) {
		return nil, NotFound("sale order not found")
	}
	if err != nil {
		config.LogError(logger, "fulfillmentWorkflow.go", "FulfillOrder", "GetOrder", orderId, err)
		return nil, Dependency("could not load the order", err)
	}

	// Idempotency check before any write: a posted, fully paid invoice means
	// fulfillment already completed.
	invoices, err := store.OrderInvoices(ctx, order.Id)
	if err != nil {
		config.LogError(logger, "fulfillmentWorkflow.go", "FulfillOrder", "OrderInvoices", order.Id, err)
		return nil, Dependency("could not load the order invoices", err)
	}
	var invoice *erp.Invoice
	for i := range invoices {
		inv := invoices[i]
		if inv.State == erp.InvoiceStatePosted && string(inv.PaymentState) == erp.InvoicePaymentStatePaid {
			return &inv, nil
		}
		if invoice == nil {
			invoice = &invoices[i]
		}
	}

	if order.State == "draft" {
		if err := store.ConfirmOrder(ctx, order.Id); err != nil {
			config.LogError(logger, "fulfillmentWorkflow.go", "FulfillOrder", "ConfirmOrder", order.Id, err)
			return nil, Dependency("could not confirm the order", err)
		}
	}

	pickings, err := store.OrderPickings(ctx, order.Id)
	if err != nil {
		config.LogError(logger, "fulfillmentWorkflow.go", "FulfillOrder", "OrderPickings", order.Id, err)
		return nil, Dependency("could not load the shipments", err)
	}
	for _, picking := range pickings {
		if picking.State == erp.PickingStateDone || picking.State == erp.PickingStateCancelled {
			continue
		}
		if err := store.ConfirmPicking(ctx, picking.Id); err != nil {
			config.LogError(logger, "fulfillmentWorkflow.go", "FulfillOrder", "ConfirmPicking", picking.Id, err)
			return nil, Dependency("could not confirm a shipment", err)
		}
		if err := store.AssignPicking(ctx, picking.Id); err != nil {
			config.LogError(logger, "fulfillmentWorkflow.go", "FulfillOrder", "AssignPicking", picking.Id, err)
			return nil, Dependency("could not assign a shipment", err)
		}
		if err := store.CompleteMoves(ctx, picking.Id); err != nil {
			config.LogError(logger, "fulfillmentWorkflow.go", "FulfillOrder", "CompleteMoves", picking.Id, err)
			return nil, Dependency("could not complete the stock moves", err)
		}
		if err := store.ValidatePicking(ctx, picking.Id); err != nil {
			config.LogError(logger, "fulfillmentWorkflow.go", "FulfillOrder", "ValidatePicking", picking.Id, err)
			return nil, Dependency("could not validate a shipment", err)
		}
	}

	if invoice == nil {
		invoice, err = store.CreateInvoiceFromOrder(ctx, order.Id)
		if err != nil {
			config.LogError(logger, "fulfillmentWorkflow.go", "FulfillOrder", "CreateInvoiceFromOrder", order.Id, err)
			return nil, Dependency("could not generate the invoice", err)
		}
	}

	if invoice.State == erp.InvoiceStateDraft {
		if err := store.PostInvoice(ctx, invoice.Id); err != nil {
			config.LogError(logger, "fulfillmentWorkflow.go", "FulfillOrder", "PostInvoice", invoice.Id, err)
			return nil, Dependency("could not post the invoice", err)
		}
		invoice.State = erp.InvoiceStatePosted
	}

	if string(invoice.PaymentState) != erp.InvoicePaymentStatePaid {
		journal, err := store.FindBankJournal(ctx)
		if errors.Is(err, erp.ErrNotFound) {
			return nil, Dependency("no bank journal found", err)
		}
		if err != nil {
			config.LogError(logger, "fulfillmentWorkflow.go", "FulfillOrder", "FindBankJournal", nil, err)
			return nil, Dependency("could not find a payment channel", err)
		}
		if err := store.RegisterPayment(ctx, invoice.Id, journal.Id, invoice.AmountTotal, time.Now()); err != nil {
			config.LogError(logger, "fulfillmentWorkflow.go", "FulfillOrder", "RegisterPayment", invoice.Id, err)
			return nil, Dependency("could not register the payment", err)
		}
		invoice.PaymentState = erp.Text(erp.InvoicePaymentStatePaid)
	}

	return invoice, nil
}
