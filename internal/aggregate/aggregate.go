// Package aggregate groups statement records into the units that each become
// one journal entry.
package aggregate

import (
	"fmt"
	"regexp"
	"sort"
	"time"

	"github.com/Veraticus/statement-ledger/internal/basket"
	"github.com/Veraticus/statement-ledger/internal/common"
	"github.com/Veraticus/statement-ledger/internal/model"
	"github.com/shopspring/decimal"
)

// UnbasketedPolicy decides what happens to activity rows with no basket.
type UnbasketedPolicy string

// Unbasketed policies.
const (
	UnbasketedGroup  UnbasketedPolicy = "group"
	UnbasketedReject UnbasketedPolicy = "reject"
)

// ParseUnbasketedPolicy validates a policy name. Empty means group.
func ParseUnbasketedPolicy(s string) (UnbasketedPolicy, error) {
	switch UnbasketedPolicy(s) {
	case "", UnbasketedGroup:
		return UnbasketedGroup, nil
	case UnbasketedReject:
		return UnbasketedReject, nil
	default:
		return "", fmt.Errorf("%w: unbasketed policy %q (want group or reject)", common.ErrInvalidConfig, s)
	}
}

// DefaultNettedPattern matches cash sweeps and settlement obligations that
// net out inside the account and never reach the books.
var DefaultNettedPattern = regexp.MustCompile(`(?i)(netted|obligation|core account|sweep)`)

// MaterialityThreshold is the smallest unrealized change worth an entry.
var MaterialityThreshold = decimal.New(1, -2)

// Options configures an Aggregator.
type Options struct {
	Table                *basket.Table
	Resolver             basket.Resolver // defaults to basket.DefaultChain
	NettedPattern        *regexp.Regexp  // nil disables netted filtering
	Unbasketed           UnbasketedPolicy
	IncludeReinvestments bool
}

// Skipped records a row that was deliberately left out of every group.
type Skipped struct {
	Date   time.Time
	Kind   model.EntryKind
	Symbol string
	Reason string
}

// Failure is a group that could not be formed.
type Failure struct {
	Err  error
	Date time.Time
	Kind model.EntryKind
	Key  string
}

func (f Failure) Error() string {
	return fmt.Sprintf("%s %s %s: %v", f.Kind, model.FormatDate(f.Date), f.Key, f.Err)
}

func (f Failure) Unwrap() error { return f.Err }

// Result holds every group for one statement, in entry order per kind.
type Result struct {
	Dividends  []model.EntryGroup
	Purchases  []model.EntryGroup
	Sales      []model.EntryGroup
	Unrealized []model.EntryGroup
	Skipped    []Skipped
	Failures   []Failure
}

// Groups returns the groups for one kind.
func (r *Result) Groups(kind model.EntryKind) []model.EntryGroup {
	switch kind {
	case model.KindDividend:
		return r.Dividends
	case model.KindPurchase:
		return r.Purchases
	case model.KindSale:
		return r.Sales
	case model.KindUnrealized:
		return r.Unrealized
	default:
		return nil
	}
}

// Aggregator groups records. It holds only read-only configuration.
type Aggregator struct {
	table    *basket.Table
	resolver basket.Resolver
	netted   *regexp.Regexp
	opts     Options
}

// New creates an Aggregator.
func New(opts Options) (*Aggregator, error) {
	if opts.Table == nil {
		return nil, fmt.Errorf("%w: aggregator needs a basket table", common.ErrMissingConfig)
	}
	policy, err := ParseUnbasketedPolicy(string(opts.Unbasketed))
	if err != nil {
		return nil, err
	}
	opts.Unbasketed = policy

	resolver := opts.Resolver
	if resolver == nil {
		resolver = basket.DefaultChain(opts.Table)
	}
	return &Aggregator{
		table:    opts.Table,
		resolver: resolver,
		netted:   opts.NettedPattern,
		opts:     opts,
	}, nil
}

// Statement aggregates every record stream of a statement.
func (a *Aggregator) Statement(stmt *model.Statement) *Result {
	res := &Result{}
	res.Dividends, res.Skipped = a.IncomeGroups(stmt.Income)

	purchases, sales, skipped, failures := a.ActivityGroups(stmt.Activity)
	res.Purchases = purchases
	res.Sales = sales
	res.Skipped = append(res.Skipped, skipped...)
	res.Failures = failures

	// mark-to-market needs a statement-level summary to anchor the period
	if stmt.Summary == nil {
		return res
	}
	unrealized, skipped := a.UnrealizedGroups(stmt.Period.End(), stmt.Holdings, stmt.PriorHoldings, stmt.Activity)
	res.Unrealized = unrealized
	res.Skipped = append(res.Skipped, skipped...)
	return res
}

// IncomeGroups builds one dividend group per settlement date across every
// symbol, money-market funds included.
func (a *Aggregator) IncomeGroups(rows []model.IncomeRecord) ([]model.EntryGroup, []Skipped) {
	var skipped []Skipped
	b := newBuilder(model.KindDividend)
	for i := range rows {
		r := &rows[i]
		if r.Kind == model.IncomeReinvestment && !a.opts.IncludeReinvestments {
			skipped = append(skipped, Skipped{Kind: model.KindDividend, Date: r.SettlementDate, Symbol: r.Symbol, Reason: "reinvestment"})
			continue
		}
		qty := decimal.Zero
		if r.Quantity != nil {
			qty = *r.Quantity
		}
		g := b.group(r.SettlementDate, "", "")
		addMember(g, r.Symbol, r.SecurityName, qty, r.Amount)
	}
	groups := b.finish()

	// netted reinvestments can cancel a symbol or a whole date
	if a.opts.IncludeReinvestments {
		kept := groups[:0]
		for _, g := range groups {
			g.Members = dropZero(g.Members)
			if len(g.Members) > 0 {
				kept = append(kept, g)
			}
		}
		groups = kept
	}
	return groups, skipped
}

// Exclusion reports why an activity row is dropped before grouping.
func (a *Aggregator) Exclusion(r *model.ActivityRecord) (string, bool) {
	switch {
	case a.table.IsMoneyMarket(r.Symbol):
		return "money market", true
	case a.netted != nil && a.netted.MatchString(r.ActionText):
		return "netted", true
	case r.Action != model.ActionBought && r.Action != model.ActionSold:
		return "unsupported action " + r.ActionText, true
	default:
		return "", false
	}
}

// ActivityGroups groups buys and sells by (basket, settlement date).
func (a *Aggregator) ActivityGroups(rows []model.ActivityRecord) (purchases, sales []model.EntryGroup, skipped []Skipped, failures []Failure) {
	bought := newBuilder(model.KindPurchase)
	sold := newBuilder(model.KindSale)
	rejected := make(map[string]struct{})

	for i := range rows {
		r := &rows[i]
		kind := model.KindPurchase
		b := bought
		if r.Action == model.ActionSold {
			kind, b = model.KindSale, sold
		}

		if reason, excluded := a.Exclusion(r); excluded {
			skipped = append(skipped, Skipped{Kind: kind, Date: r.SettlementDate, Symbol: r.Symbol, Reason: reason})
			continue
		}

		id, ok := a.resolver.Resolve(r)
		if !ok && a.opts.Unbasketed == UnbasketedReject {
			key := fmt.Sprintf("%s|%s|%s", kind, model.FormatDate(r.SettlementDate), r.Symbol)
			if _, seen := rejected[key]; !seen {
				rejected[key] = struct{}{}
				failures = append(failures, Failure{
					Kind: kind,
					Date: r.SettlementDate,
					Key:  r.Symbol,
					Err:  &common.UnknownBasketError{Symbol: r.Symbol, Date: model.FormatDate(r.SettlementDate)},
				})
			}
			continue
		}

		var g *model.EntryGroup
		if ok {
			g = b.group(r.SettlementDate, id, "")
		} else {
			g = b.group(r.SettlementDate, "", r.Symbol)
		}
		addMember(g, r.Symbol, r.SecurityName, r.Quantity, r.Magnitude())
	}

	return bought.finish(), sold.finish(), skipped, failures
}

// PurchasesBySymbol totals the bought amounts per symbol after exclusions.
func (a *Aggregator) PurchasesBySymbol(rows []model.ActivityRecord) map[string]decimal.Decimal {
	return a.bySymbol(rows, model.ActionBought)
}

// SalesBySymbol totals the sold proceeds per symbol after exclusions.
func (a *Aggregator) SalesBySymbol(rows []model.ActivityRecord) map[string]decimal.Decimal {
	return a.bySymbol(rows, model.ActionSold)
}

func (a *Aggregator) bySymbol(rows []model.ActivityRecord, action model.Action) map[string]decimal.Decimal {
	totals := make(map[string]decimal.Decimal)
	for i := range rows {
		r := &rows[i]
		if r.Action != action {
			continue
		}
		if _, excluded := a.Exclusion(r); excluded {
			continue
		}
		totals[r.Symbol] = totals[r.Symbol].Add(r.Magnitude())
	}
	return totals
}

// UnrealizedGroups builds one mark-to-market group per basket, dated at the
// period end.
//
// Positions held at the start of the period (beginning value above zero)
// have the period's purchases backed out and its sale proceeds added back,
// so trading is not booked as a gain or loss. Symbols sold out entirely
// contribute proceeds minus their prior-period ending value; without a
// prior value they contribute nothing. Baskets whose change is below the
// materiality threshold are skipped.
func (a *Aggregator) UnrealizedGroups(periodEnd time.Time, holdings, prior []model.HoldingRecord, activity []model.ActivityRecord) ([]model.EntryGroup, []Skipped) {
	purchases := a.PurchasesBySymbol(activity)
	sales := a.SalesBySymbol(activity)
	byBasket := make(map[string]*model.EntryGroup)
	group := func(id string) *model.EntryGroup {
		g, ok := byBasket[id]
		if !ok {
			g = &model.EntryGroup{Kind: model.KindUnrealized, Date: periodEnd, BasketID: id}
			byBasket[id] = g
		}
		return g
	}

	held := make(map[string]struct{}, len(holdings))
	for i := range holdings {
		h := &holdings[i]
		held[h.Symbol] = struct{}{}
		id, ok := a.table.ResolveBySymbol(h.Symbol)
		if !ok {
			continue
		}
		change := h.Change()
		if h.BeginningValue != nil && h.BeginningValue.IsPositive() {
			change = change.Sub(purchases[h.Symbol]).Add(sales[h.Symbol])
		}
		addMember(group(id), h.Symbol, h.Description, h.Quantity, change)
	}

	priorValue := make(map[string]decimal.Decimal, len(prior))
	for i := range prior {
		priorValue[prior[i].Symbol] = priorValue[prior[i].Symbol].Add(prior[i].EndingValue)
	}
	soldOut := make(map[string]bool)
	for i := range activity {
		r := &activity[i]
		if r.Action != model.ActionSold {
			continue
		}
		if _, ok := held[r.Symbol]; ok || soldOut[r.Symbol] {
			continue
		}
		if _, excluded := a.Exclusion(r); excluded {
			continue
		}
		soldOut[r.Symbol] = true
		begin, ok := priorValue[r.Symbol]
		if !ok {
			continue
		}
		id, ok := a.table.ResolveBySymbol(r.Symbol)
		if !ok {
			if id, ok = a.resolver.Resolve(r); !ok {
				continue
			}
		}
		addMember(group(id), r.Symbol, r.SecurityName, decimal.Zero, sales[r.Symbol].Sub(begin))
	}

	var groups []model.EntryGroup
	var skipped []Skipped
	for _, b := range a.table.Baskets() {
		g, ok := byBasket[b.ID]
		if !ok {
			continue
		}
		if g.Total.Abs().LessThan(MaterialityThreshold) {
			skipped = append(skipped, Skipped{Kind: model.KindUnrealized, Date: periodEnd, Symbol: b.ID, Reason: "immaterial change " + model.FormatAmount(g.Total)})
			continue
		}
		groups = append(groups, *g)
	}
	return groups, skipped
}

// builder keeps groups in first-seen order and indexes them by key.
type builder struct {
	index  map[string]int
	kind   model.EntryKind
	groups []*model.EntryGroup
}

func newBuilder(kind model.EntryKind) *builder {
	return &builder{kind: kind, index: make(map[string]int)}
}

func (b *builder) group(date time.Time, basketID, symbol string) *model.EntryGroup {
	key := model.FormatDate(date) + "|" + basketID + "|" + symbol
	if i, ok := b.index[key]; ok {
		return b.groups[i]
	}
	g := &model.EntryGroup{Kind: b.kind, Date: date, BasketID: basketID, Symbol: symbol}
	b.index[key] = len(b.groups)
	b.groups = append(b.groups, g)
	return g
}

// finish orders groups by date, keeping first-seen order within a date.
func (b *builder) finish() []model.EntryGroup {
	out := make([]model.EntryGroup, 0, len(b.groups))
	for _, g := range b.groups {
		out = append(out, *g)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Date.Before(out[j].Date)
	})
	return out
}

// addMember folds a row into the group, combining rows for the same symbol.
func addMember(g *model.EntryGroup, symbol, name string, qty, amount decimal.Decimal) {
	g.Total = model.Round(g.Total.Add(amount))
	for i := range g.Members {
		if g.Members[i].Symbol == symbol {
			m := &g.Members[i]
			m.Quantity = m.Quantity.Add(qty)
			m.Amount = model.Round(m.Amount.Add(amount))
			m.Rows++
			return
		}
	}
	g.Members = append(g.Members, model.GroupMember{
		Symbol:       symbol,
		SecurityName: name,
		Quantity:     qty,
		Amount:       model.Round(amount),
		Rows:         1,
	})
}

func dropZero(members []model.GroupMember) []model.GroupMember {
	kept := members[:0]
	for _, m := range members {
		if !m.Amount.IsZero() {
			kept = append(kept, m)
		}
	}
	return kept
}
