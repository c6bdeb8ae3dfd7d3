package breach

import (
	"bufio"
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/passvault/internal/logging"
	"github.com/hashicorp/go-retryablehttp"
	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/time/rate"
)

const (
	prefixLen    = 5
	apiKeyHeader = "hibp-api-key"
	defaultAgent = "passvault-breach-check"
	defaultRetry = 2
)

// maxBodyBytes caps a range response. A larger body fails the check rather
// than being parsed in part.
var maxBodyBytes int64 = 2 << 20

var errBodyTooLarge = errors.New("range response too large")

// RangeConfig configures a RangeChecker. Zero numeric fields take the
// defaults below.
type RangeConfig struct {
	BaseURL   string
	APIKey    string
	Timeout   time.Duration // default 2s
	RateLimit float64       // requests per second, default 10
	Burst     int           // default 10
	CacheSize int           // prefixes, default 1024
	CacheTTL  time.Duration // default 1h
	RetryMax  int           // default 2
}

type rangeEntry struct {
	counts  map[string]int
	fetched time.Time
}

// RangeChecker queries a k-anonymity range API: only the first five hex
// characters of the password's SHA-1 leave the process, and the returned
// suffix list is matched locally.
type RangeChecker struct {
	baseURL string
	apiKey  string
	timeout time.Duration
	ttl     time.Duration

	client  *retryablehttp.Client
	limiter *rate.Limiter
	cache   *lru.Cache[string, rangeEntry]
	log     logging.Logger

	now func() time.Time
}

func NewRangeChecker(cfg RangeConfig, log logging.Logger) (*RangeChecker, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("breach: base URL is empty")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 2 * time.Second
	}
	if cfg.RateLimit <= 0 {
		cfg.RateLimit = 10
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 10
	}
	if cfg.CacheSize <= 0 {
		cfg.CacheSize = 1024
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = time.Hour
	}
	if cfg.RetryMax <= 0 {
		cfg.RetryMax = defaultRetry
	}

	cache, err := lru.New[string, rangeEntry](cfg.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("breach cache: %w", err)
	}

	client := retryablehttp.NewClient()
	client.RetryMax = cfg.RetryMax
	client.RetryWaitMin = 50 * time.Millisecond
	client.RetryWaitMax = 250 * time.Millisecond
	client.Logger = nil

	return &RangeChecker{
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		timeout: cfg.Timeout,
		ttl:     cfg.CacheTTL,
		client:  client,
		limiter: rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.Burst),
		cache:   cache,
		log:     log.With("component", "breach"),
		now:     time.Now,
	}, nil
}

func (c *RangeChecker) Check(ctx context.Context, password []byte) Verdict {
	sum := sha1.Sum(password)
	digest := strings.ToUpper(hex.EncodeToString(sum[:]))
	prefix, suffix := digest[:prefixLen], digest[prefixLen:]

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	counts, err := c.lookup(ctx, prefix)
	if err != nil {
		reason := "lookup failed"
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			reason = "timeout"
		}
		c.log.Warn(ctx, "breach check failed", "prefix", prefix, "error", err)
		return CheckFailed(reason)
	}

	if n := counts[suffix]; n > 0 {
		return Compromised(n)
	}
	return Clean()
}

func (c *RangeChecker) lookup(ctx context.Context, prefix string) (map[string]int, error) {
	if e, ok := c.cache.Get(prefix); ok {
		if c.now().Sub(e.fetched) < c.ttl {
			return e.counts, nil
		}
		c.cache.Remove(prefix)
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit: %w", err)
	}

	counts, err := c.fetch(ctx, prefix)
	if err != nil {
		return nil, err
	}
	c.cache.Add(prefix, rangeEntry{counts: counts, fetched: c.now()})
	return counts, nil
}

func (c *RangeChecker) fetch(ctx context.Context, prefix string) (map[string]int, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/range/"+prefix, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", defaultAgent)
	req.Header.Set("Add-Padding", "true")
	if c.apiKey != "" {
		req.Header.Set(apiKeyHeader, c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("range API returned %s", resp.Status)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes+1))
	if err != nil {
		return nil, err
	}
	if int64(len(body)) > maxBodyBytes {
		return nil, fmt.Errorf("%w: over %d bytes", errBodyTooLarge, maxBodyBytes)
	}
	return parseRange(bytes.NewReader(body))
}

// parseRange reads SUFFIX:COUNT lines. Padding rows carry a zero count and
// are skipped.
func parseRange(r io.Reader) (map[string]int, error) {
	counts := make(map[string]int)
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		suffix, count, ok := strings.Cut(line, ":")
		if !ok {
			return nil, fmt.Errorf("malformed range line %q", line)
		}
		n, err := strconv.Atoi(strings.TrimSpace(count))
		if err != nil {
			return nil, fmt.Errorf("malformed count in %q: %w", line, err)
		}
		if n > 0 {
			counts[strings.ToUpper(suffix)] = n
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return counts, nil
}
