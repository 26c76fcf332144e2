package subgraph

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/hxuan190/pair-router/internal/config"
	"github.com/hxuan190/pair-router/internal/domain"
	"github.com/hxuan190/pair-router/internal/metrics"
)

const (
	DefaultTimeout = 30 * time.Second

	pairsQuery = `query getV2StylePairs {
  pairs(where: {reserveUSD_gte: %s, createdAtTimestamp_gte: %d}, orderBy: createdAtBlockNumber, first: %d) {
    id
    createdAtTimestamp
    reserve0
    reserve1
    token0 { id symbol decimals name }
    token1 { id symbol decimals name }
  }
}`
)

var ErrGraphQL = errors.New("subgraph returned errors")

type graphqlRequest struct {
	Query string `json:"query"`
}

type pairsResponse struct {
	Data struct {
		Pairs []pairRecord `json:"pairs"`
	} `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors,omitempty"`
}

type tokenRecord struct {
	ID       string `json:"id"`
	Symbol   string `json:"symbol"`
	Decimals string `json:"decimals"`
	Name     string `json:"name"`
}

type pairRecord struct {
	ID                 string      `json:"id"`
	CreatedAtTimestamp string      `json:"createdAtTimestamp"`
	Reserve0           string      `json:"reserve0"`
	Reserve1           string      `json:"reserve1"`
	Token0             tokenRecord `json:"token0"`
	Token1             tokenRecord `json:"token1"`
}

// Client pulls Uniswap V2 style pairs from a subgraph, one createdAtTimestamp-ordered page at a time.
type Client struct {
	url           string
	queryOverride string
	pageSize      int
	maxAttempts   int
	retryDelay    time.Duration
	feeBps        uint16
	httpClient    *http.Client
}

func NewClient(cfg *config.RefdataConfig, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: DefaultTimeout}
	}
	return &Client{
		url:           cfg.URL,
		queryOverride: cfg.QueryOverride,
		pageSize:      cfg.PageSize,
		maxAttempts:   cfg.MaxAttempts,
		retryDelay:    cfg.RetryDelay,
		feeBps:        cfg.FeeBps,
		httpClient:    httpClient,
	}
}

// FetchMarkets walks every page starting at fromTimestamp. The next page starts at the creation
// timestamp of the last record, so pages overlap on equal timestamps; records are deduplicated
// by pair address. A page that still fails after all attempts fails the whole fetch.
func (c *Client) FetchMarkets(ctx context.Context, minReserveUSD decimal.Decimal, fromTimestamp int64) ([]domain.Market, error) {
	var (
		markets []domain.Market
		seen    = make(map[string]struct{})
		cursor  = fromTimestamp
	)

	for page := 0; ; page++ {
		records, err := c.fetchPageWithRetry(ctx, minReserveUSD, cursor)
		if err != nil {
			return nil, fmt.Errorf("page %d (from %d): %w", page, cursor, err)
		}
		metrics.RefdataPagesFetched.Inc()

		added := 0
		for i := range records {
			m, err := toMarket(&records[i], c.feeBps)
			if err != nil {
				log.Warn().Err(err).Str("pair", records[i].ID).Msg("[SubgraphClient] skipping malformed pair")
				continue
			}
			if _, dup := seen[m.Address]; dup {
				continue
			}
			seen[m.Address] = struct{}{}
			markets = append(markets, m)
			added++
		}

		log.Debug().Int("page", page).Int("records", len(records)).Int("new", added).Int64("from", cursor).Msg("[SubgraphClient] page fetched")

		if len(records) < c.pageSize {
			break
		}
		next, err := strconv.ParseInt(records[len(records)-1].CreatedAtTimestamp, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("page %d: bad createdAtTimestamp %q: %w", page, records[len(records)-1].CreatedAtTimestamp, err)
		}
		if next <= cursor {
			// A full page of one timestamp cannot be paged past with this cursor.
			log.Warn().Int64("timestamp", cursor).Msg("[SubgraphClient] page filled by a single timestamp, advancing cursor past it")
			next = cursor + 1
		}
		cursor = next
	}

	log.Info().Int("markets", len(markets)).Msg("[SubgraphClient] reference data fetched")
	return markets, nil
}

func (c *Client) fetchPageWithRetry(ctx context.Context, minReserveUSD decimal.Decimal, cursor int64) ([]pairRecord, error) {
	var records []pairRecord
	attempt := 0

	op := func() error {
		attempt++
		var err error
		records, err = c.fetchPage(ctx, minReserveUSD, cursor)
		if err != nil && attempt < c.maxAttempts {
			metrics.RefdataPageRetries.Inc()
			log.Warn().Err(err).Int("attempt", attempt).Int64("from", cursor).Msg("[SubgraphClient] page fetch failed, retrying")
		}
		return err
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(c.retryDelay), uint64(c.maxAttempts-1)),
		ctx,
	)
	if err := backoff.Retry(op, policy); err != nil {
		return nil, err
	}
	return records, nil
}

func (c *Client) fetchPage(ctx context.Context, minReserveUSD decimal.Decimal, cursor int64) ([]pairRecord, error) {
	body, err := sonic.Marshal(graphqlRequest{Query: c.query(minReserveUSD, cursor)})
	if err != nil {
		return nil, backoff.Permanent(fmt.Errorf("marshal query: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, backoff.Permanent(fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("query subgraph: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		err := fmt.Errorf("subgraph status %d: %s", resp.StatusCode, truncate(raw, 256))
		if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
			return nil, backoff.Permanent(err)
		}
		return nil, err
	}

	var parsed pairsResponse
	if err := sonic.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if len(parsed.Errors) > 0 {
		msgs := make([]string, len(parsed.Errors))
		for i, e := range parsed.Errors {
			msgs[i] = e.Message
		}
		return nil, fmt.Errorf("%w: %s", ErrGraphQL, strings.Join(msgs, "; "))
	}
	return parsed.Data.Pairs, nil
}

func (c *Client) query(minReserveUSD decimal.Decimal, cursor int64) string {
	if c.queryOverride != "" {
		q := strings.ReplaceAll(c.queryOverride, "%reserveUSD", minReserveUSD.String())
		return strings.ReplaceAll(q, "%timestamp", strconv.FormatInt(cursor, 10))
	}
	return fmt.Sprintf(pairsQuery, minReserveUSD.String(), cursor, c.pageSize)
}

// toMarket converts one subgraph record. Empty pools are not tradeable and are rejected here so
// they never reach the graph build.
func toMarket(r *pairRecord, feeBps uint16) (domain.Market, error) {
	reserve0, err := decimal.NewFromString(r.Reserve0)
	if err != nil {
		return domain.Market{}, fmt.Errorf("reserve0: %w", err)
	}
	reserve1, err := decimal.NewFromString(r.Reserve1)
	if err != nil {
		return domain.Market{}, fmt.Errorf("reserve1: %w", err)
	}
	if !reserve0.IsPositive() || !reserve1.IsPositive() {
		return domain.Market{}, fmt.Errorf("empty pool (reserve0=%s reserve1=%s)", r.Reserve0, r.Reserve1)
	}
	token0, err := toToken(&r.Token0)
	if err != nil {
		return domain.Market{}, fmt.Errorf("token0: %w", err)
	}
	token1, err := toToken(&r.Token1)
	if err != nil {
		return domain.Market{}, fmt.Errorf("token1: %w", err)
	}
	createdAt, err := strconv.ParseInt(r.CreatedAtTimestamp, 10, 64)
	if err != nil {
		return domain.Market{}, fmt.Errorf("createdAtTimestamp: %w", err)
	}

	m := domain.Market{
		Address:   r.ID,
		Token0:    token0,
		Token1:    token1,
		Reserve0:  reserve0,
		Reserve1:  reserve1,
		FeeBps:    feeBps,
		CreatedAt: createdAt,
	}
	m.Normalize()
	return m, nil
}

func toToken(t *tokenRecord) (domain.Token, error) {
	if t.ID == "" {
		return domain.Token{}, errors.New("missing id")
	}
	decimals, err := strconv.ParseUint(t.Decimals, 10, 8)
	if err != nil {
		return domain.Token{}, fmt.Errorf("decimals %q: %w", t.Decimals, err)
	}
	return domain.Token{
		Address:  t.ID,
		Symbol:   t.Symbol,
		Name:     t.Name,
		Decimals: uint8(decimals),
	}, nil
}

func truncate(b []byte, n int) string {
	if len(b) > n {
		return string(b[:n]) + "..."
	}
	return string(b)
}
