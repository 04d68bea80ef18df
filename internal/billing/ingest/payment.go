package ingest

import (
	"context"
	"errors"
	"fmt"

	billingerrors "tutorhub/internal/billing/errors"
	"tutorhub/internal/billing/repository"
	"tutorhub/internal/billing/service"
	apperrors "tutorhub/pkg/errors"
	"tutorhub/pkg/kafka"
	"tutorhub/pkg/logger"
)

const (
	EventPaymentCaptured = "payment.captured"
	EventPaymentFailed   = "payment.failed"
)

// PaymentNotification is the payload published by the payment provider
// bridge. Either InvoiceID or ExternalRef identifies the invoice.
type PaymentNotification struct {
	Type        string `json:"type"`
	InvoiceID   string `json:"invoice_id,omitempty"`
	ExternalRef string `json:"external_ref,omitempty"`
	Notes       string `json:"notes,omitempty"`
}

// PaymentIngestor turns asynchronous payment notifications into invoice
// decisions. Unknown event types are dropped; unresolvable invoices are
// permanent failures (DLQ), infrastructure errors are retried.
type PaymentIngestor struct {
	billing  service.BillingService
	invoices repository.InvoiceRepository
	log      *logger.Logger
}

func NewPaymentIngestor(billing service.BillingService, invoices repository.InvoiceRepository, log *logger.Logger) *PaymentIngestor {
	return &PaymentIngestor{
		billing:  billing,
		invoices: invoices,
		log:      log,
	}
}

// Handle implements kafka.MessageHandler.
func (i *PaymentIngestor) Handle(ctx context.Context, msg kafka.Message) error {
	var notification PaymentNotification
	if err := msg.DecodeValue(&notification); err != nil {
		return kafka.NewPermanentError("malformed payment notification", err)
	}

	eventType := notification.Type
	if eventType == "" {
		eventType = msg.GetEventType()
	}

	switch eventType {
	case EventPaymentCaptured, EventPaymentFailed:
	default:
		i.log.Debug("Ignoring payment event", "event_type", eventType, "event_id", msg.GetEventID())
		return nil
	}

	invoiceID, err := i.resolveInvoiceID(ctx, &notification)
	if err != nil {
		return err
	}

	switch eventType {
	case EventPaymentCaptured:
		err = i.billing.ApproveInvoice(ctx, invoiceID)
	case EventPaymentFailed:
		notes := notification.Notes
		if notes == "" {
			notes = "Payment failed at provider"
		}
		err = i.billing.RejectInvoice(ctx, invoiceID, notes)
	}
	if err != nil {
		return i.classify(eventType, invoiceID, err)
	}

	i.log.Info("Payment notification applied",
		"event_type", eventType,
		"invoice_id", invoiceID,
		"event_id", msg.GetEventID(),
	)
	return nil
}

func (i *PaymentIngestor) resolveInvoiceID(ctx context.Context, n *PaymentNotification) (string, error) {
	if n.InvoiceID != "" {
		return n.InvoiceID, nil
	}
	if n.ExternalRef == "" {
		return "", kafka.NewPermanentError("payment notification carries neither invoice_id nor external_ref", nil)
	}

	invoice, err := i.invoices.FindByExternalRef(ctx, n.ExternalRef)
	if err != nil {
		if errors.Is(err, billingerrors.ErrInvoiceNotFound) {
			return "", kafka.NewPermanentError(fmt.Sprintf("no invoice for external ref %s", n.ExternalRef), err)
		}
		return "", kafka.NewTransientError("failed to resolve invoice by external ref", err)
	}

	return invoice.ID, nil
}

// classify maps application errors onto the consumer's retry semantics.
// Concurrent modifications resolve themselves on redelivery; invalid or
// conflicting decisions never will.
func (i *PaymentIngestor) classify(eventType, invoiceID string, err error) error {
	if apperrors.IsCode(err, apperrors.CodeConcurrentModification) {
		return kafka.NewTransientError("invoice decision raced, retrying", err)
	}
	if apperrors.IsCode(err, apperrors.CodeNotFound) ||
		apperrors.IsCode(err, apperrors.CodeInvalidInput) ||
		apperrors.IsCode(err, apperrors.CodeMissingReason) ||
		apperrors.IsCode(err, apperrors.CodeConflict) {
		return kafka.NewPermanentError(fmt.Sprintf("cannot apply %s to invoice %s", eventType, invoiceID), err)
	}
	return kafka.NewTransientError("invoice decision failed", err)
}
