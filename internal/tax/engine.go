package tax

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"x2beta/internal/domain"
)

var two = decimal.NewFromInt(2)

// Engine computes the GST split for one run's rows. Channel and company
// state are fixed at construction; rows only contribute their customer or
// seller state.
type Engine struct {
	channel      domain.Channel
	gstin        string
	companyState string
	workers      int
}

// NewEngine resolves the company state from the GSTIN prefix.
func NewEngine(channel domain.Channel, gstin string, workers int) (*Engine, error) {
	state, ok := domain.StateByGSTIN(gstin)
	if !ok {
		return nil, fmt.Errorf("tax.NewEngine: gstin %q: %w", gstin, domain.ErrInvalidGSTIN)
	}
	if workers <= 0 {
		workers = 4
	}
	return &Engine{
		channel:      channel,
		gstin:        gstin,
		companyState: state.Abbrev,
		workers:      workers,
	}, nil
}

// CompanyState returns the two-letter abbreviation derived from the GSTIN.
func (e *Engine) CompanyState() string { return e.companyState }

// Compute fills CGST/SGST/IGST (and NetQty for pepperfry) on the row.
func (e *Engine) Compute(row *domain.NormalizedRow) error {
	if !domain.ValidGSTRate(row.GSTRate) {
		return fmt.Errorf("%s: rate %s for sku %s: %w",
			domain.CodeInvalidGSTRate, row.GSTRate, row.SKU, domain.ErrInvalidGSTRate)
	}

	if e.channel == domain.ChannelPepperfry && row.TotalQty > 0 {
		// Return adjustment: scale taxable by the net fraction and keep the
		// adjusted value so downstream aggregation matches the tax.
		net := row.TotalQty - row.ReturnedQty
		frac := decimal.NewFromInt(int64(net)).Div(decimal.NewFromInt(int64(row.TotalQty)))
		row.TaxableValue = row.TaxableValue.Mul(frac).Round(2)
		row.NetQty = net
	}

	total := row.TaxableValue.Add(row.ShippingValue)

	intra, err := e.intrastate(row)
	if err != nil {
		return err
	}

	if intra {
		half := total.Mul(row.GSTRate).Div(two).Round(2)
		row.CGST = half
		row.SGST = half
		row.IGST = decimal.Zero
	} else {
		row.CGST = decimal.Zero
		row.SGST = decimal.Zero
		row.IGST = total.Mul(row.GSTRate).Round(2)
	}
	return nil
}

// intrastate applies the channel rule against the company state.
func (e *Engine) intrastate(row *domain.NormalizedRow) (bool, error) {
	switch e.channel {
	case domain.ChannelAmazonSTR:
		return false, nil
	case domain.ChannelFlipkart:
		seller := e.companyState
		if row.SellerState != "" {
			norm, ok := domain.NormalizeState(row.SellerState)
			if !ok {
				return false, fmt.Errorf("%s: seller state %q: %w",
					domain.CodeInterstateUnknown, row.SellerState, domain.ErrUnknownStateCode)
			}
			seller = norm
		}
		customer, ok := domain.NormalizeState(row.StateCode)
		if !ok {
			return false, fmt.Errorf("%s: state %q: %w",
				domain.CodeInterstateUnknown, row.StateCode, domain.ErrUnknownStateCode)
		}
		return seller == customer, nil
	default:
		customer, ok := domain.NormalizeState(row.StateCode)
		if !ok {
			return false, fmt.Errorf("%s: state %q: %w",
				domain.CodeInterstateUnknown, row.StateCode, domain.ErrUnknownStateCode)
		}
		return customer == e.companyState, nil
	}
}

// RowError ties a compute failure back to its row index.
type RowError struct {
	Index int
	Err   error
}

func (e RowError) Error() string {
	return fmt.Sprintf("row %d: %v", e.Index, e.Err)
}

func (e RowError) Unwrap() error { return e.Err }

// ComputeAll splits the row set across the worker pool and computes in
// place. Row order is preserved since each worker writes only its own
// indexes. Per-row failures are collected, not fatal; only context
// cancellation aborts.
func (e *Engine) ComputeAll(ctx context.Context, rows []domain.NormalizedRow) ([]RowError, error) {
	type result struct {
		idx int
		err error
	}

	indexes := make(chan int)
	results := make(chan result, len(rows))

	var wg sync.WaitGroup
	for w := 0; w < e.workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range indexes {
				if err := e.Compute(&rows[i]); err != nil {
					results <- result{i, err}
				}
			}
		}()
	}

	var aborted error
feed:
	for i := range rows {
		select {
		case <-ctx.Done():
			aborted = ctx.Err()
			break feed
		case indexes <- i:
		}
	}
	close(indexes)
	wg.Wait()
	close(results)

	if aborted != nil {
		return nil, aborted
	}

	var errs []RowError
	for r := range results {
		errs = append(errs, RowError{Index: r.idx, Err: r.err})
	}
	sortRowErrors(errs)
	return errs, nil
}

func sortRowErrors(errs []RowError) {
	for i := 1; i < len(errs); i++ {
		for j := i; j > 0 && errs[j].Index < errs[j-1].Index; j-- {
			errs[j], errs[j-1] = errs[j-1], errs[j]
		}
	}
}

// Validate checks the split predicate: cgst and sgst move together, igst
// excludes them, and the sum matches expected within the money tolerance.
func Validate(row *domain.NormalizedRow, expectedTotal decimal.Decimal) error {
	cgstZero := row.CGST.IsZero()
	sgstZero := row.SGST.IsZero()
	igstZero := row.IGST.IsZero()

	if cgstZero != sgstZero {
		return fmt.Errorf("%s: cgst=%s sgst=%s: %w",
			domain.CodeTaxMismatch, row.CGST, row.SGST, domain.ErrVoucherUnbalanced)
	}
	if !cgstZero && !igstZero {
		return fmt.Errorf("%s: both cgst/sgst and igst set: %w",
			domain.CodeTaxMismatch, domain.ErrVoucherUnbalanced)
	}

	sum := row.CGST.Add(row.SGST).Add(row.IGST)
	if sum.Sub(expectedTotal).Abs().GreaterThan(domain.Tolerance) {
		return fmt.Errorf("%s: computed %s, expected %s: %w",
			domain.CodeTaxMismatch, sum, expectedTotal, domain.ErrVoucherUnbalanced)
	}
	return nil
}

// Computation materializes the persisted tax record for a computed row.
func Computation(runID uuid.UUID, row *domain.NormalizedRow) domain.TaxComputation {
	return domain.TaxComputation{
		RunID:         runID,
		Channel:       row.Channel,
		GSTIN:         row.GSTIN,
		StateCode:     row.StateCode,
		SKU:           row.SKU,
		TaxableValue:  row.TaxableValue,
		ShippingValue: row.ShippingValue,
		CGST:          row.CGST,
		SGST:          row.SGST,
		IGST:          row.IGST,
		GSTRate:       row.GSTRate,
	}
}
