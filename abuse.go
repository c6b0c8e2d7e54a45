package main

import (
	"context"
	"fmt"

	"gorm.io/gorm"
)

// faultOptions selects what checkFaults does to each host. FlagAbuse < 0
// disables abuse flagging.
type faultOptions struct {
	FlagAbuse         int
	Notify            bool
	ShowClient        bool
	ShowServer        bool
	ResetClient       bool
	ResetServer       bool
	ResetAPIAuth      bool
	ResetAvailable    bool
	ResetAbuse        bool
	ResetAbuseBlocked bool
}

// checkFaults flags hosts whose client fault count exceeds FlagAbuse and
// applies the requested resets.
func (s *server) checkFaults(ctx context.Context, opts faultOptions) (*sweepReport, error) {
	report := newSweepReport("faults")
	hosts, err := s.persist.listHosts(ctx)
	if err != nil {
		return report, err
	}

	for _, h := range hosts {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		if opts.ShowClient && h.ClientFaults > 0 {
			report.act(h.fqdn(), "client-faults", fmt.Sprintf("%d %s", h.ClientFaults, h.ClientResultMsg))
		}
		if opts.ShowServer && h.ServerFaults > 0 {
			report.act(h.fqdn(), "server-faults", fmt.Sprintf("%d %s", h.ServerFaults, h.ServerResultMsg))
		}
		if err := s.checkHostFaults(ctx, h.ID, opts, report); err != nil {
			report.fail(h.fqdn(), err)
		}
	}
	return report, nil
}

func (s *server) checkHostFaults(ctx context.Context, id uint64, opts faultOptions, report *sweepReport) error {
	var (
		flagged hostModel
		faults  int
	)
	err := s.persist.withHost(ctx, id, func(tx *gorm.DB, h *hostModel) error {
		changed := false
		if opts.FlagAbuse >= 0 && h.ClientFaults > opts.FlagAbuse {
			faults = h.ClientFaults
			h.Abuse = true
			h.ClientFaults = 0
			flagged = *h
			changed = true
		}
		if opts.ResetClient && h.ClientFaults != 0 {
			h.ClientFaults = 0
			changed = true
		}
		if opts.ResetServer && h.ServerFaults != 0 {
			h.ServerFaults = 0
			changed = true
		}
		if opts.ResetAPIAuth && h.APIAuthFaults != 0 {
			h.APIAuthFaults = 0
			changed = true
		}
		if opts.ResetAvailable && !h.Available {
			h.Available = true
			changed = true
		}
		if opts.ResetAbuse && h.Abuse && faults == 0 {
			h.Abuse = false
			changed = true
		}
		if opts.ResetAbuseBlocked && h.AbuseBlocked {
			h.AbuseBlocked = false
			changed = true
		}
		if !changed {
			return nil
		}
		return saveHost(tx, h)
	})
	if err != nil || faults == 0 {
		return err
	}

	report.act(flagged.fqdn(), "abuse", fmt.Sprintf("client_faults=%d", faults))
	if opts.Notify {
		s.notify.Notify(ctx, flagged.Owner, subjectHostAbuse, bodyHostAbuse, map[string]any{
			"fqdn":   flagged.fqdn(),
			"faults": faults,
		})
	}
	return nil
}
