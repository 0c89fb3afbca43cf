package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"consigna/backend/internal/domain"
	"consigna/backend/internal/invoice"
	"consigna/backend/internal/mailer"
	"consigna/backend/internal/payout"
	"consigna/backend/internal/store"
)

func (s *Service) buildInvoice(ctx context.Context, data domain.InvoiceData) (domain.BrandAggregate, string, error) {
	ref, err := brandRef(data.BrandID, data.BrandName)
	if err != nil {
		return domain.BrandAggregate{}, "", err
	}
	records, opts, err := s.snapshot(ctx)
	if err != nil {
		return domain.BrandAggregate{}, "", err
	}
	resolved, inCatalog := ref.Resolve(opts.BrandNames)
	if inCatalog {
		ref = resolved
	}
	brandRecords, err := payout.BrandRecords(records, ref, data.Filter, opts)
	if err != nil {
		return domain.BrandAggregate{}, "", filterError(err)
	}

	agg := payout.Tally(brandRecords)
	switch {
	case inCatalog:
		agg.BrandID = ref.ID
		agg.BrandName = ref.Name
	case len(brandRecords) > 0:
		agg.BrandID = brandRecords[0].BrandID
		agg.BrandName = payout.DisplayName(brandRecords[0], opts.BrandNames)
	default:
		label := ref.ID
		if label == "" {
			label = ref.Name
		}
		return domain.BrandAggregate{}, "", fmt.Errorf("%w: brand %q", store.ErrNotFound, label)
	}

	html, err := invoice.Render(invoice.Input{
		Seller:        s.opts.Seller,
		BrandName:     agg.BrandName,
		PeriodLabel:   strings.TrimSpace(data.PeriodLabel),
		InvoiceDate:   defaultString(strings.TrimSpace(data.InvoiceDate), s.now().In(s.opts.Location).Format("2006-01-02")),
		InvoiceNumber: strings.TrimSpace(data.InvoiceNumber),
		Records:       brandRecords,
		Currency:      s.opts.Currency,
	})
	if err != nil {
		if errors.Is(err, invoice.ErrMissingBrand) {
			return domain.BrandAggregate{}, "", fmt.Errorf("%w: %w", store.ErrValidation, err)
		}
		return domain.BrandAggregate{}, "", err
	}
	return agg, html, nil
}

func (s *Service) InvoicePreview(ctx context.Context, data domain.InvoiceData) (domain.InvoicePreviewResponse, error) {
	agg, html, err := s.buildInvoice(ctx, data)
	if err != nil {
		return domain.InvoicePreviewResponse{}, err
	}
	return domain.InvoicePreviewResponse{Aggregate: agg, HTML: html}, nil
}

// SendInvoice renders the brand statement from the current ledger and emails
// it. Delivery failures, including the email timeout, wrap mailer.ErrDelivery.
func (s *Service) SendInvoice(ctx context.Context, req domain.InvoiceEmailRequest) (domain.InvoiceEmailResponse, error) {
	msg := mailer.Message{
		ToEmail: strings.TrimSpace(req.ToEmail),
		ToName:  strings.TrimSpace(req.ToName),
		Subject: strings.TrimSpace(req.Subject),
	}
	agg, html, err := s.buildInvoice(ctx, req.Data)
	if err != nil {
		return domain.InvoiceEmailResponse{}, err
	}
	msg.HTML = html
	if msg.Subject == "" {
		msg.Subject = fmt.Sprintf("Payout statement for %s", agg.BrandName)
	}
	if err := msg.Validate(); err != nil {
		s.metrics.InvoiceEmail("invalid")
		return domain.InvoiceEmailResponse{}, fmt.Errorf("%w: %w", store.ErrValidation, err)
	}

	id, err := mailer.Deliver(ctx, s.sender, msg, s.opts.EmailTimeout)
	if err != nil {
		outcome := "failed"
		if errors.Is(err, context.DeadlineExceeded) {
			outcome = "timeout"
		}
		s.metrics.InvoiceEmail(outcome)
		s.log.Error("invoice email failed",
			zap.String("brand", agg.BrandName),
			zap.String("to", msg.ToEmail),
			zap.String("outcome", outcome),
			zap.Error(err),
		)
		return domain.InvoiceEmailResponse{}, err
	}

	s.metrics.InvoiceEmail("sent")
	s.logAudit(ctx, "invoice_send", "brand", agg.BrandID, fmt.Sprintf("to=%s,message_id=%s,payout=%d", msg.ToEmail, id, agg.TotalPayoutCents))
	return domain.InvoiceEmailResponse{Success: true, ID: id}, nil
}
