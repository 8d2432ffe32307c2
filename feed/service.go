package feed

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"placement-engine/logger"
	"placement-engine/models"
)

const (
	battedBallsPath = "/v1/batted-balls"

	// MaxLimit is the largest page the platform serves
	MaxLimit = 5000

	defaultTimeout  = 30 * time.Second
	defaultCacheTTL = 10 * time.Minute
	defaultPageGap  = 150 * time.Millisecond
)

// ErrNotConfigured is returned when no base URL is set
var ErrNotConfigured = errors.New("feed base URL not configured")

// Options tunes the client; zero values take the defaults
type Options struct {
	Timeout           time.Duration
	CacheTTL          time.Duration
	RequestsPerSecond float64
}

// Service fetches batted balls from the tracking platform and caches them
type Service struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	limiter    *rate.Limiter
	cache      *itemCache
	cacheTTL   time.Duration
	log        *logger.Entry
}

type itemCache struct {
	data map[string]*cachedItems
	mu   sync.RWMutex
}

type cachedItems struct {
	items     []Item
	expiresAt time.Time
}

// Query selects batted balls. Empty fields are not sent.
type Query struct {
	PlayerIDs  []string          `json:"player_ids,omitempty"`
	Handedness models.Handedness `json:"hand,omitempty"`
	StartDate  string            `json:"start_date,omitempty"`
	EndDate    string            `json:"end_date,omitempty"`
	Limit      int               `json:"limit,omitempty"`
}

// Player is one (id, name, side) combination seen in the feed
type Player struct {
	PlayerID   string            `json:"player_id"`
	Player     string            `json:"player"`
	Handedness models.Handedness `json:"handedness"`
}

type page struct {
	Items      []Item `json:"items"`
	Results    []Item `json:"results"`
	NextCursor string `json:"next_cursor"`
}

// NewService creates a feed client for baseURL
func NewService(baseURL, apiKey string, opts Options) *Service {
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = defaultCacheTTL
	}
	every := rate.Every(defaultPageGap)
	if opts.RequestsPerSecond > 0 {
		every = rate.Limit(opts.RequestsPerSecond)
	}

	return &Service{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: opts.Timeout},
		limiter:    rate.NewLimiter(every, 1),
		cache:      &itemCache{data: make(map[string]*cachedItems)},
		cacheTTL:   opts.CacheTTL,
		log:        logger.GetLogger().WithComponent("feed"),
	}
}

// Configured reports whether a base URL is set
func (s *Service) Configured() bool {
	return s.baseURL != ""
}

// FetchBattedBalls follows next_cursor until the feed is exhausted or limit
// items are collected. Pages are paced by the rate limiter.
func (s *Service) FetchBattedBalls(ctx context.Context, q Query) ([]Item, error) {
	if !s.Configured() {
		return nil, ErrNotConfigured
	}
	q.Limit = normalizeLimit(q.Limit)

	key := generateCacheKey(q)
	if items, ok := s.getCached(key); ok {
		s.log.WithFields(logger.Fields{"items": len(items)}).Debug("serving batted balls from cache")
		return items, nil
	}

	params := q.params()
	var items []Item
	for {
		if err := s.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		p, err := s.get(ctx, battedBallsPath, params)
		if err != nil {
			return nil, err
		}

		batch := p.Items
		if batch == nil {
			batch = p.Results
		}
		items = append(items, batch...)

		if p.NextCursor == "" || len(items) >= q.Limit {
			break
		}
		params.Set("cursor", p.NextCursor)
	}

	if len(items) > q.Limit {
		items = items[:q.Limit]
	}
	s.setCached(key, items)

	s.log.WithFields(logger.Fields{"items": len(items), "hand": q.Handedness}).Info("fetched batted balls")
	return items, nil
}

// FetchPlayers derives the distinct players from fetched batted balls.
// Items without a player id are ignored.
func (s *Service) FetchPlayers(ctx context.Context, q Query) ([]Player, error) {
	items, err := s.FetchBattedBalls(ctx, q)
	if err != nil {
		return nil, err
	}

	seen := make(map[Player]bool)
	players := []Player{}
	for _, it := range items {
		if it.BatterID == "" {
			continue
		}
		p := Player{PlayerID: string(it.BatterID), Player: it.BatterName, Handedness: models.Handedness(strings.ToUpper(it.BatSide))}
		if !seen[p] {
			seen[p] = true
			players = append(players, p)
		}
	}
	return players, nil
}

func (s *Service) get(ctx context.Context, path string, params url.Values) (*page, error) {
	apiURL := fmt.Sprintf("%s%s?%s", s.baseURL, path, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if s.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.apiKey)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("feed request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("feed returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var p page
	if err := json.NewDecoder(resp.Body).Decode(&p); err != nil {
		return nil, fmt.Errorf("failed to parse feed response: %w", err)
	}
	return &p, nil
}

func (q Query) params() url.Values {
	params := url.Values{}
	if q.StartDate != "" {
		params.Set("start_date", q.StartDate)
	}
	if q.EndDate != "" {
		params.Set("end_date", q.EndDate)
	}
	if q.Handedness != "" && q.Handedness != models.HandBoth {
		params.Set("hand", string(q.Handedness))
	}
	if len(q.PlayerIDs) > 0 {
		params.Set("player_ids", strings.Join(q.PlayerIDs, ","))
	}
	params.Set("limit", strconv.Itoa(q.Limit))
	return params
}

func normalizeLimit(limit int) int {
	if limit <= 0 || limit > MaxLimit {
		return MaxLimit
	}
	return limit
}

// generateCacheKey creates a deterministic cache key from a query
func generateCacheKey(q Query) string {
	data, _ := json.Marshal(q)
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])
}

func (s *Service) getCached(key string) ([]Item, bool) {
	s.cache.mu.RLock()
	defer s.cache.mu.RUnlock()

	if cached, ok := s.cache.data[key]; ok && time.Now().Before(cached.expiresAt) {
		return cached.items, true
	}
	return nil, false
}

func (s *Service) setCached(key string, items []Item) {
	s.cache.mu.Lock()
	defer s.cache.mu.Unlock()

	s.cache.data[key] = &cachedItems{items: items, expiresAt: time.Now().Add(s.cacheTTL)}
}

// CleanExpiredCache removes expired entries from cache
func (s *Service) CleanExpiredCache() {
	s.cache.mu.Lock()
	defer s.cache.mu.Unlock()

	now := time.Now()
	for key, cached := range s.cache.data {
		if now.After(cached.expiresAt) {
			delete(s.cache.data, key)
		}
	}
}

// StartCacheCleanup cleans the cache every interval until ctx is done
func (s *Service) StartCacheCleanup(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.CleanExpiredCache()
				s.log.WithFields(logger.Fields{"entries": s.CacheSize()}).Debug("feed cache cleaned")
			}
		}
	}()
}

// CacheSize returns the number of cached queries
func (s *Service) CacheSize() int {
	s.cache.mu.RLock()
	defer s.cache.mu.RUnlock()
	return len(s.cache.data)
}
