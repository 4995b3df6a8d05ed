package workspace

import (
	"context"
	"time"
)

const DefaultExpiryScanInterval = time.Hour

// StartExpiryScanner keeps date-derived statuses current until ctx is done.
func (s *Service) StartExpiryScanner(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultExpiryScanInterval
	}
	go s.scanLoop(ctx, interval)
}

func (s *Service) scanLoop(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.RefreshStatuses(ctx); err != nil {
				s.logger.Error("refresh expiry statuses", "error", err)
			}
		}
	}
}

// RefreshStatuses rewrites policy statuses and flags overdue vendor invoices.
func (s *Service) RefreshStatuses(ctx context.Context) error {
	policies, err := s.refreshPolicyStatuses(ctx)
	if err != nil {
		return err
	}
	invoices, err := s.markOverdueInvoices(ctx)
	if err != nil {
		return err
	}
	if policies > 0 || invoices > 0 {
		s.logger.Info("expiry statuses refreshed", "policies", policies, "vendor_invoices", invoices)
	}
	return nil
}
