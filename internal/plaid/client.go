// Package plaid provides a client for interacting with the Plaid API.
package plaid

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Veraticus/statement-ledger/internal/common"
	"github.com/Veraticus/statement-ledger/internal/model"
	"github.com/Veraticus/statement-ledger/internal/service"
	"github.com/plaid/plaid-go/v20/plaid"
)

// Config holds Plaid API configuration.
type Config struct {
	ClientID    string
	Secret      string
	Environment string // sandbox or production
	AccessToken string
}

// Validate ensures all required fields are present.
func (c *Config) Validate() error {
	if c.ClientID == "" {
		return fmt.Errorf("%w: plaid client ID is required", common.ErrMissingConfig)
	}
	if c.Secret == "" {
		return fmt.Errorf("%w: plaid secret is required", common.ErrMissingConfig)
	}
	if c.AccessToken == "" {
		return fmt.Errorf("%w: plaid access token is required", common.ErrMissingConfig)
	}
	if c.Environment == "" {
		return fmt.Errorf("%w: plaid environment is required", common.ErrMissingConfig)
	}

	validEnvs := map[string]bool{
		"sandbox":    true,
		"production": true,
	}
	if !validEnvs[c.Environment] {
		return fmt.Errorf("%w: invalid Plaid environment: must be sandbox or production", common.ErrInvalidConfig)
	}

	return nil
}

// Client fetches investment activity and holdings from Plaid.
type Client struct {
	client      *plaid.APIClient
	logger      *slog.Logger
	retryOpts   common.RetryOptions
	accessToken string
}

// NewClient creates a new Plaid client with the given configuration.
func NewClient(cfg Config) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	configuration := plaid.NewConfiguration()
	configuration.AddDefaultHeader("PLAID-CLIENT-ID", cfg.ClientID)
	configuration.AddDefaultHeader("PLAID-SECRET", cfg.Secret)

	switch cfg.Environment {
	case "sandbox":
		configuration.UseEnvironment(plaid.Sandbox)
	case "production":
		configuration.UseEnvironment(plaid.Production)
	}

	return &Client{
		client:      plaid.NewAPIClient(configuration),
		accessToken: cfg.AccessToken,
		logger:      slog.Default().With("component", "plaid"),
		retryOpts:   common.DefaultRetryOptions(),
	}, nil
}

// FetchStatement fetches one period of investment transactions plus the
// current holdings. Plaid has no account summary, so Summary is nil, and
// holdings carry no beginning values.
func (c *Client) FetchStatement(ctx context.Context, period model.Period) (*model.Statement, error) {
	if ctx == nil {
		return nil, fmt.Errorf("context cannot be nil")
	}
	if err := period.Validate(); err != nil {
		return nil, err
	}

	txns, txnSecs, err := c.investmentTransactions(ctx, period.Start(), period.End())
	if err != nil {
		return nil, err
	}
	holdings, holdingSecs, err := c.holdings(ctx)
	if err != nil {
		return nil, err
	}

	secs := indexSecurities(append(txnSecs, holdingSecs...))
	stmt := buildStatement(period, mapTransactions(txns), mapHoldings(holdings), secs)

	c.logger.Info("Fetched investment statement",
		"period", period.String(),
		"income_rows", len(stmt.Income),
		"activity_rows", len(stmt.Activity),
		"holdings", len(stmt.Holdings))
	return stmt, nil
}

func (c *Client) investmentTransactions(ctx context.Context, start, end time.Time) ([]plaid.InvestmentTransaction, []plaid.Security, error) {
	c.logger.Info("Fetching investment transactions from Plaid",
		"start_date", start.Format(model.DateLayout),
		"end_date", end.Format(model.DateLayout))

	var (
		all  []plaid.InvestmentTransaction
		secs []plaid.Security
	)
	offset := int32(0)
	const pageSize = int32(500)

	for {
		var page []plaid.InvestmentTransaction

		retryErr := common.WithRetry(ctx, func() error {
			request := plaid.NewInvestmentsTransactionsGetRequest(
				c.accessToken,
				start.Format(model.DateLayout),
				end.Format(model.DateLayout),
			)
			request.SetOptions(plaid.InvestmentsTransactionsGetRequestOptions{
				Count:  plaid.PtrInt32(pageSize),
				Offset: plaid.PtrInt32(offset),
			})

			resp, _, err := c.client.PlaidApi.InvestmentsTransactionsGet(ctx).InvestmentsTransactionsGetRequest(*request).Execute()
			if err != nil {
				return c.classify(err, "failed to fetch investment transactions")
			}

			page = resp.GetInvestmentTransactions()
			secs = append(secs, resp.GetSecurities()...)
			c.logger.Debug("Fetched investment transaction batch",
				"count", len(page),
				"offset", offset,
				"total", resp.GetTotalInvestmentTransactions())
			return nil
		}, c.retryOpts)
		if retryErr != nil {
			return nil, nil, retryErr
		}

		all = append(all, page...)
		if len(page) < int(pageSize) {
			break
		}
		offset += pageSize
	}

	return all, secs, nil
}

func (c *Client) holdings(ctx context.Context) ([]plaid.Holding, []plaid.Security, error) {
	var (
		holdings []plaid.Holding
		secs     []plaid.Security
	)
	retryErr := common.WithRetry(ctx, func() error {
		request := plaid.NewInvestmentsHoldingsGetRequest(c.accessToken)
		resp, _, err := c.client.PlaidApi.InvestmentsHoldingsGet(ctx).InvestmentsHoldingsGetRequest(*request).Execute()
		if err != nil {
			return c.classify(err, "failed to fetch holdings")
		}
		holdings = resp.GetHoldings()
		secs = resp.GetSecurities()
		return nil
	}, c.retryOpts)
	if retryErr != nil {
		return nil, nil, retryErr
	}

	c.logger.Info("Fetched holdings", "count", len(holdings))
	return holdings, secs, nil
}

// classify marks rate limits retryable and wraps everything else.
func (c *Client) classify(err error, action string) error {
	if plaidError := extractPlaidError(err); plaidError != nil {
		if plaidError.ErrorCode == "RATE_LIMIT_EXCEEDED" {
			c.logger.Warn("Rate limit hit, will retry", "error", plaidError.ErrorMessage)
			return &common.RetryableError{Err: fmt.Errorf("%w: %s", common.ErrPlaidRateLimit, plaidError.ErrorMessage), Retryable: true}
		}
		return &common.RetryableError{
			Err:       fmt.Errorf("%w: %s - %s", common.ErrPlaidConnection, plaidError.ErrorCode, plaidError.ErrorMessage),
			Retryable: false,
		}
	}
	return fmt.Errorf("%s: %w", action, err)
}

// extractPlaidError attempts to extract a Plaid error from a generic error.
func extractPlaidError(err error) *plaid.PlaidError {
	plaidErr, convErr := plaid.ToPlaidError(err)
	if convErr != nil {
		return nil
	}
	return &plaidErr
}

func mapTransactions(txns []plaid.InvestmentTransaction) []investmentTxn {
	out := make([]investmentTxn, 0, len(txns))
	for _, t := range txns {
		out = append(out, investmentTxn{
			ID:         t.GetInvestmentTransactionId(),
			Date:       t.GetDate(),
			Name:       t.GetName(),
			Type:       string(t.GetType()),
			Subtype:    string(t.GetSubtype()),
			SecurityID: t.GetSecurityId(),
			Quantity:   t.GetQuantity(),
			Price:      t.GetPrice(),
			Amount:     t.GetAmount(),
			Fees:       t.GetFees(),
		})
	}
	return out
}

func mapHoldings(holdings []plaid.Holding) []holding {
	out := make([]holding, 0, len(holdings))
	for _, h := range holdings {
		mapped := holding{
			SecurityID: h.GetSecurityId(),
			Quantity:   h.GetQuantity(),
			Price:      h.GetInstitutionPrice(),
			Value:      h.GetInstitutionValue(),
		}
		if basis, ok := h.GetCostBasisOk(); ok && basis != nil {
			v := *basis
			mapped.CostBasis = &v
		}
		out = append(out, mapped)
	}
	return out
}

func indexSecurities(secs []plaid.Security) map[string]security {
	out := make(map[string]security, len(secs))
	for _, s := range secs {
		out[s.GetSecurityId()] = security{
			Ticker: s.GetTickerSymbol(),
			Name:   s.GetName(),
			CUSIP:  s.GetCusip(),
		}
	}
	return out
}

// Ensure Client implements the statement source interface.
var _ service.StatementSource = (*Client)(nil)
