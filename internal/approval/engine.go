// Package approval evaluates queued master-data requests against the
// per-type auto-approval rules and applies approved values to the masters.
package approval

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"x2beta/internal/config"
	"x2beta/internal/domain"
	"x2beta/internal/port"
)

// Engine drives the auto-approval pass and manual decisions.
type Engine struct {
	approvals port.ApprovalRepository
	items     port.ItemMasterRepository
	ledgers   port.LedgerMasterRepository
	notifier  port.Notifier
	policy    config.ApprovalConfig
}

// NewEngine wires the engine. notifier may be the noop implementation.
func NewEngine(approvals port.ApprovalRepository, items port.ItemMasterRepository, ledgers port.LedgerMasterRepository, notifier port.Notifier, policy config.ApprovalConfig) *Engine {
	return &Engine{
		approvals: approvals,
		items:     items,
		ledgers:   ledgers,
		notifier:  notifier,
		policy:    policy,
	}
}

// EvaluateRun walks the run's pending requests, auto-approves where the
// rules allow and notifies for the remainder. Returns (approved, pending).
func (e *Engine) EvaluateRun(ctx context.Context, runID uuid.UUID) (int, int, error) {
	requests, err := e.approvals.ListByRun(ctx, runID)
	if err != nil {
		return 0, 0, fmt.Errorf("approval.EvaluateRun: %w", err)
	}

	approved, pending := 0, 0
	for i := range requests {
		req := &requests[i]
		if req.Status != domain.ApprovalStatusPending {
			continue
		}
		ok, err := e.autoApprovable(req)
		if err != nil {
			return approved, pending, err
		}
		if ok {
			if err := e.apply(ctx, req, string(domain.ActorSystem), "auto-approved"); err != nil {
				return approved, pending, err
			}
			if err := e.approvals.Decide(ctx, req.ID, domain.ApprovalStatusApproved, string(domain.ActorSystem), "auto-approved"); err != nil && !errors.Is(err, domain.ErrApprovalDecided) {
				return approved, pending, fmt.Errorf("approval.EvaluateRun: deciding %s: %w", req.ID, err)
			}
			approved++
			continue
		}
		pending++
		e.notifyPending(ctx, req)
	}
	return approved, pending, nil
}

// autoApprovable applies the per-type rule set.
func (e *Engine) autoApprovable(req *domain.ApprovalRequest) (bool, error) {
	switch req.Type {
	case domain.ApprovalTypeItem:
		var p domain.ItemApprovalPayload
		if err := json.Unmarshal(req.Payload, &p); err != nil {
			return false, fmt.Errorf("approval: item payload: %w", err)
		}
		if !e.allowedPrefix(p.SKU) {
			return false, nil
		}
		return p.EstimatedValue.LessThanOrEqual(decimal.NewFromFloat(e.policy.ValueThreshold)), nil

	case domain.ApprovalTypeLedger:
		var p domain.LedgerApprovalPayload
		if err := json.Unmarshal(req.Payload, &p); err != nil {
			return false, fmt.Errorf("approval: ledger payload: %w", err)
		}
		if !domain.Channel(p.Channel).Valid() {
			return false, nil
		}
		return domain.KnownStateAbbrev(p.StateCode), nil

	case domain.ApprovalTypeGSTRate:
		if !e.policy.AllowGSTOverride {
			return false, nil
		}
		var p domain.GSTRateApprovalPayload
		if err := json.Unmarshal(req.Payload, &p); err != nil {
			return false, fmt.Errorf("approval: gst payload: %w", err)
		}
		return domain.ValidGSTRate(p.ProposedRate), nil

	case domain.ApprovalTypeInvoice:
		var p domain.InvoiceApprovalPayload
		if err := json.Unmarshal(req.Payload, &p); err != nil {
			return false, fmt.Errorf("approval: invoice payload: %w", err)
		}
		return p.OverrideType == "format_fix", nil

	default:
		return false, nil
	}
}

func (e *Engine) allowedPrefix(sku string) bool {
	for _, prefix := range e.policy.SKUPrefixAllowlist {
		if prefix != "" && strings.HasPrefix(sku, prefix) {
			return true
		}
	}
	return false
}

// apply mutates the master tables for an approved request. Duplicate
// inserts are fine; the masters may already carry the value.
func (e *Engine) apply(ctx context.Context, req *domain.ApprovalRequest, approver, notes string) error {
	now := time.Now().UTC()
	switch req.Type {
	case domain.ApprovalTypeItem:
		var p domain.ItemApprovalPayload
		if err := json.Unmarshal(req.Payload, &p); err != nil {
			return fmt.Errorf("approval: item payload: %w", err)
		}
		fg := p.SuggestedFG
		if req.SuggestedValue != "" {
			fg = req.SuggestedValue
		}
		_, err := e.items.Insert(ctx, &domain.ItemMaster{
			ID:             uuid.New(),
			SKU:            p.SKU,
			ASIN:           p.ASIN,
			ItemCode:       p.ItemCode,
			FG:             fg,
			GSTRateDefault: p.GSTRate,
			ApprovedBy:     approver,
			ApprovedAt:     &now,
		})
		if err != nil {
			return fmt.Errorf("approval: applying item %s: %w", p.SKU, err)
		}

	case domain.ApprovalTypeLedger:
		var p domain.LedgerApprovalPayload
		if err := json.Unmarshal(req.Payload, &p); err != nil {
			return fmt.Errorf("approval: ledger payload: %w", err)
		}
		name := p.SuggestedLedger
		if name == "" {
			name = SuggestLedger(domain.Channel(p.Channel), p.StateCode)
		}
		if req.SuggestedValue != "" {
			name = req.SuggestedValue
		}
		_, err := e.ledgers.Insert(ctx, &domain.LedgerMaster{
			ID:         uuid.New(),
			Channel:    p.Channel,
			StateCode:  p.StateCode,
			LedgerName: name,
			ApprovedBy: approver,
			ApprovedAt: &now,
		})
		if err != nil {
			return fmt.Errorf("approval: applying ledger %s/%s: %w", p.Channel, p.StateCode, err)
		}
	}
	_ = notes
	return nil
}

// Decide records a manual decision and applies approved values.
func (e *Engine) Decide(ctx context.Context, id uuid.UUID, status domain.ApprovalStatus, approver, notes string) (*domain.ApprovalRequest, error) {
	if status != domain.ApprovalStatusApproved && status != domain.ApprovalStatusRejected {
		return nil, fmt.Errorf("approval.Decide: status %q: %w", status, domain.ErrUnsupportedInput)
	}
	req, err := e.approvals.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("approval.Decide: %w", err)
	}
	if req.Status != domain.ApprovalStatusPending {
		return nil, fmt.Errorf("approval.Decide: %s: %w", id, domain.ErrApprovalDecided)
	}

	if status == domain.ApprovalStatusApproved {
		if err := e.apply(ctx, req, approver, notes); err != nil {
			return nil, err
		}
	}
	if err := e.approvals.Decide(ctx, id, status, approver, notes); err != nil {
		return nil, fmt.Errorf("approval.Decide: %w", err)
	}
	return e.approvals.GetByID(ctx, id)
}

// SuggestLedger is the rule-set's suggestion for a manual ledger request,
// full state name rather than the abbreviation.
func SuggestLedger(channel domain.Channel, stateCode string) string {
	name := strings.ToUpper(stateCode)
	if s, ok := domain.StateByAbbrev(stateCode); ok {
		name = s.Name
	}
	return fmt.Sprintf("%s %s", channel.Title(), name)
}

func (e *Engine) notifyPending(ctx context.Context, req *domain.ApprovalRequest) {
	err := e.notifier.Send(ctx, domain.SeverityWarning,
		fmt.Sprintf("Approval pending: %s", req.Type),
		map[string]string{
			"request_id": req.ID.String(),
			"run_id":     req.RunID.String(),
			"type":       string(req.Type),
			"suggested":  req.SuggestedValue,
		})
	if err != nil {
		log.Printf("approval: notification for %s failed: %v", req.ID, err)
	}
}
