package invoice

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"x2beta/internal/domain"
	"x2beta/internal/port"
)

// channelPrefixes fixes the per-channel invoice prefix. All channels share
// the PREFIX-ST-MM-SEQ shape.
var channelPrefixes = map[domain.Channel]string{
	domain.ChannelAmazonMTR: "AMZ",
	domain.ChannelAmazonSTR: "AMZST",
	domain.ChannelFlipkart:  "FLIP",
	domain.ChannelPepperfry: "PEPP",
}

// Parts is a decomposed invoice number.
type Parts struct {
	Prefix    string
	StateCode string
	MonthCode string
	Sequence  int
}

// Prefix returns the invoice prefix for channel.
func Prefix(channel domain.Channel) (string, error) {
	p, ok := channelPrefixes[channel]
	if !ok {
		return "", fmt.Errorf("invoice.Prefix: %q: %w", channel, domain.ErrUnknownChannel)
	}
	return p, nil
}

// Format joins the parts into PREFIX-ST-MM-SEQ with a four digit sequence.
func Format(prefix, stateCode, monthCode string, seq int) string {
	return fmt.Sprintf("%s-%s-%s-%04d", prefix, stateCode, monthCode, seq)
}

// Parse decomposes an invoice number generated for channel. It is the exact
// inverse of Format for that channel's prefix.
func Parse(channel domain.Channel, invoiceNo string) (Parts, error) {
	prefix, err := Prefix(channel)
	if err != nil {
		return Parts{}, err
	}
	re := regexp.MustCompile(`^` + regexp.QuoteMeta(prefix) + `-([A-Z]{2})-(\d{2})-(\d{4,})$`)
	m := re.FindStringSubmatch(invoiceNo)
	if m == nil {
		return Parts{}, fmt.Errorf("%s: %q does not match %s pattern: %w",
			domain.CodeInvoiceFormat, invoiceNo, prefix, domain.ErrUnsupportedInput)
	}
	seq, _ := strconv.Atoi(m[3])
	return Parts{Prefix: prefix, StateCode: m[1], MonthCode: m[2], Sequence: seq}, nil
}

// Numberer assigns registry-unique invoice numbers for one (channel, gstin,
// month) scope.
type Numberer struct {
	registry port.InvoiceRegistry
	channel  domain.Channel
	gstin    string
	month    string // YYYY-MM

	prefix    string
	monthCode string
	used      map[string]bool
}

// NewNumberer preloads the used-number set for the scope.
func NewNumberer(ctx context.Context, registry port.InvoiceRegistry, channel domain.Channel, gstin, month string) (*Numberer, error) {
	prefix, err := Prefix(channel)
	if err != nil {
		return nil, err
	}
	mm, err := monthCode(month)
	if err != nil {
		return nil, err
	}
	existing, err := registry.ListNumbers(ctx, channel, gstin, month)
	if err != nil {
		return nil, fmt.Errorf("invoice.NewNumberer: preload: %w", err)
	}
	used := make(map[string]bool, len(existing))
	for _, n := range existing {
		used[n] = true
	}
	return &Numberer{
		registry:  registry,
		channel:   channel,
		gstin:     gstin,
		month:     month,
		prefix:    prefix,
		monthCode: mm,
		used:      used,
	}, nil
}

func monthCode(month string) (string, error) {
	if len(month) != 7 || month[4] != '-' {
		return "", fmt.Errorf("invoice: month %q: %w", month, domain.ErrInvalidMonth)
	}
	return month[5:], nil
}

// Assign numbers rows in place, partitioned by state code in ascending
// order, sequence starting at 1 per partition. Collisions with preloaded
// numbers skip forward until unique. New registrations are persisted in one
// batch; on a duplicate-key race the used-set is reloaded and numbering is
// retried once.
func (n *Numberer) Assign(ctx context.Context, runID uuid.UUID, rows []domain.NormalizedRow) error {
	if err := n.assign(ctx, runID, rows); err != nil {
		if !errors.Is(err, domain.ErrDuplicateKey) {
			return err
		}
		existing, lerr := n.registry.ListNumbers(ctx, n.channel, n.gstin, n.month)
		if lerr != nil {
			return fmt.Errorf("invoice: reload after duplicate: %w", lerr)
		}
		used := make(map[string]bool, len(existing))
		for _, num := range existing {
			used[num] = true
		}
		n.used = used
		return n.assign(ctx, runID, rows)
	}
	return nil
}

func (n *Numberer) assign(ctx context.Context, runID uuid.UUID, rows []domain.NormalizedRow) error {
	// Candidates are tracked on a copy of the used-set; the copy replaces
	// it only after the batch commits.
	used := make(map[string]bool, len(n.used))
	for num := range n.used {
		used[num] = true
	}

	byState := make(map[string][]int)
	for i := range rows {
		state := strings.ToUpper(rows[i].StateCode)
		if norm, ok := domain.NormalizeState(rows[i].StateCode); ok {
			state = norm
		}
		byState[state] = append(byState[state], i)
	}

	states := make([]string, 0, len(byState))
	for s := range byState {
		states = append(states, s)
	}
	sort.Strings(states)

	var entries []domain.InvoiceRegistryEntry
	for _, state := range states {
		seq := 1
		for _, idx := range byState[state] {
			candidate := Format(n.prefix, state, n.monthCode, seq)
			for used[candidate] {
				seq++
				candidate = Format(n.prefix, state, n.monthCode, seq)
			}
			used[candidate] = true
			rows[idx].InvoiceNo = candidate
			entries = append(entries, domain.InvoiceRegistryEntry{
				RunID:     runID,
				Channel:   n.channel,
				GSTIN:     n.gstin,
				StateCode: state,
				InvoiceNo: candidate,
				Month:     n.month,
			})
			seq++
		}
	}

	if len(entries) == 0 {
		return nil
	}
	if err := n.registry.CreateBatch(ctx, entries); err != nil {
		return err
	}
	n.used = used
	return nil
}
