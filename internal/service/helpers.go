package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/alexanderramin/timekeeper/internal/access"
	"github.com/alexanderramin/timekeeper/internal/apperr"
	"github.com/alexanderramin/timekeeper/internal/config"
)

// Options tunes service behavior. Zero values fall back to defaults.
type Options struct {
	StartPolicy   config.StartPolicy
	ActionTimeout time.Duration
	Now           func() time.Time
}

func (o Options) withDefaults() Options {
	if o.StartPolicy == "" {
		o.StartPolicy = config.PolicyReject
	}
	if o.ActionTimeout <= 0 {
		o.ActionTimeout = config.DefaultActionTimeout
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

// authorize lets owners through and otherwise requires perm.
func authorize(ctx context.Context, authz access.Authorizer, ownerID, requesterID string, perm access.Permission, meta map[string]string) error {
	if requesterID == "" {
		return apperr.WithMetadata(apperr.CodeValidation, "requester id is required",
			map[string]string{"field": "requester_id"})
	}
	if ownerID == requesterID {
		return nil
	}
	ok, err := authz.Can(ctx, requesterID, perm)
	if err != nil {
		return fmt.Errorf("checking %s permission: %w", perm, err)
	}
	if ok {
		return nil
	}
	md := map[string]string{"requester_id": requesterID, "permission": string(perm)}
	for k, v := range meta {
		md[k] = v
	}
	return apperr.WithMetadata(apperr.CodeForbidden,
		fmt.Sprintf("%s may not act on resources owned by %s (requires %s)", requesterID, ownerID, perm), md)
}

// classify marks errors caused by the action deadline as unknown-outcome.
// A write may have committed before the deadline fired, so callers must
// re-fetch before retrying.
func classify(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}
	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		return err
	}
	if ctx.Err() != nil || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return apperr.Wrap(apperr.CodeUnavailable,
			"action did not finish in time; its outcome is unknown, re-fetch the session before retrying", err)
	}
	return err
}
