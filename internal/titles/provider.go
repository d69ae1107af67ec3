// Package titles selects the games a session will process, from the
// public app catalog or from a fixed test set.
package titles

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/slopscraper/slopscraper/internal/scraper"
)

const appListURL = "https://api.steampowered.com/ISteamApps/GetAppList/v2/"

// Name filters. Catalog entries matching these are never worth a
// metadata request.
var (
	blocklistTerms = regexp.MustCompile(`(?i)(dlc|soundtrack|beta|demo|test|adult|hentai|xxx|mature|expansion|tool|software)`)
	nonLatin       = regexp.MustCompile(`[^\x00-\x7F]`)
	symbolsOnly    = regexp.MustCompile(`^[0-9\s\-_+=.,!@#$%^&*()\[\]{}|\\/<>?;:'"` + "`" + `~]*$`)
)

// Well-known franchises processed ahead of the alphabetical remainder.
var priorityKeywords = []string{
	"counter-strike", "dota", "team fortress", "half-life", "portal",
	"final fantasy", "dark souls", "witcher", "cyberpunk",
}

// Provider turns the raw app catalog into a vetted title list. Every
// outbound request it issues goes through the shared cache, limiter and
// monitor, the same path the option sources use.
type Provider struct {
	fetcher scraper.Fetcher
	cache   scraper.Cache
	limiter scraper.Limiter
	monitor scraper.Monitor
	logger  *zap.Logger
}

func NewProvider(fetcher scraper.Fetcher, cache scraper.Cache, limiter scraper.Limiter, monitor scraper.Monitor, logger *zap.Logger) *Provider {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Provider{fetcher: fetcher, cache: cache, limiter: limiter, monitor: monitor, logger: logger}
}

type appListResponse struct {
	AppList struct {
		Apps []struct {
			AppID int    `json:"appid"`
			Name  string `json:"name"`
		} `json:"apps"`
	} `json:"applist"`
}

type appDetailsEntry struct {
	Success bool `json:"success"`
	Data    struct {
		Type        string   `json:"type"`
		Name        string   `json:"name"`
		Developers  []string `json:"developers"`
		ReleaseDate struct {
			ComingSoon bool `json:"coming_soon"`
		} `json:"release_date"`
	} `json:"data"`
}

// Fetch returns up to limit released games absent from skip, in priority
// order. Candidates are name-filtered first so metadata requests are
// spent only on plausible games; each survivor is confirmed via the
// store details endpoint.
func (p *Provider) Fetch(ctx context.Context, limit int, skip map[int]struct{}) ([]scraper.Title, error) {
	apps, err := p.fetchAppList(ctx)
	if err != nil {
		return nil, err
	}

	candidates := make([]scraper.Title, 0, limit*3)
	for _, app := range apps {
		if _, seen := skip[app.AppID]; seen {
			continue
		}
		if !plausibleGameName(app.Name) {
			continue
		}
		candidates = append(candidates, scraper.Title{AppID: app.AppID, Name: app.Name})
	}
	sortByPriority(candidates)

	p.logger.Info("catalog filtered",
		zap.Int("total_apps", len(apps)),
		zap.Int("candidates", len(candidates)),
	)

	titles := make([]scraper.Title, 0, limit)
	for _, cand := range candidates {
		if len(titles) >= limit {
			break
		}
		if ctx.Err() != nil {
			return titles, ctx.Err()
		}
		title, ok, err := p.confirmGame(ctx, cand)
		if err != nil {
			p.monitor.RecordError()
			p.logger.Debug("details lookup failed", zap.Int("app_id", cand.AppID), zap.Error(err))
			continue
		}
		if ok {
			titles = append(titles, title)
		}
	}
	return titles, nil
}

// TestTitles is the fixed development set, skipping already-stored games.
func (p *Provider) TestTitles(limit int, skip map[int]struct{}) []scraper.Title {
	known := []scraper.Title{
		{AppID: 570, Name: "Dota 2"},
		{AppID: 730, Name: "Counter-Strike 2"},
		{AppID: 264710, Name: "Subnautica"},
		{AppID: 377840, Name: "Final Fantasy IX"},
		{AppID: 1868140, Name: "Dave the Diver"},
	}
	out := make([]scraper.Title, 0, limit)
	for _, t := range known {
		if len(out) >= limit {
			break
		}
		if _, seen := skip[t.AppID]; seen {
			continue
		}
		out = append(out, t)
	}
	return out
}

func (p *Provider) fetchAppList(ctx context.Context) ([]scraper.Title, error) {
	body, err := p.fetch(ctx, appListURL)
	if err != nil {
		return nil, fmt.Errorf("fetch app list: %w", err)
	}
	var resp appListResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode app list: %w", err)
	}
	apps := make([]scraper.Title, 0, len(resp.AppList.Apps))
	for _, a := range resp.AppList.Apps {
		apps = append(apps, scraper.Title{AppID: a.AppID, Name: a.Name})
	}
	return apps, nil
}

// confirmGame checks the store details endpoint: released, actual game,
// not a tool or DLC the name filter missed. ok=false means rejected, not
// failed.
func (p *Provider) confirmGame(ctx context.Context, cand scraper.Title) (scraper.Title, bool, error) {
	url := "https://store.steampowered.com/api/appdetails?appids=" + strconv.Itoa(cand.AppID) + "&cc=us&l=en"
	body, err := p.fetch(ctx, url)
	if err != nil {
		return scraper.Title{}, false, err
	}
	var details map[string]appDetailsEntry
	if err := json.Unmarshal(body, &details); err != nil {
		return scraper.Title{}, false, fmt.Errorf("decode details: %w", err)
	}
	entry, ok := details[strconv.Itoa(cand.AppID)]
	if !ok || !entry.Success {
		return scraper.Title{}, false, nil
	}
	if entry.Data.Type != "game" || entry.Data.ReleaseDate.ComingSoon {
		return scraper.Title{}, false, nil
	}
	name := entry.Data.Name
	if name == "" {
		name = cand.Name
	}
	return scraper.Title{AppID: cand.AppID, Name: name}, true, nil
}

// fetch goes through cache, limiter and fetcher in that order, mirroring
// the per-unit path in the orchestrator.
func (p *Provider) fetch(ctx context.Context, rawURL string) ([]byte, error) {
	id, err := scraper.NewRequestIdentity("GET", rawURL)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if body, ok := p.cache.Get(id); ok {
		p.monitor.RecordCacheHit()
		return body, nil
	}
	if err := p.limiter.Acquire(ctx); err != nil {
		return nil, fmt.Errorf("acquire slot: %w", err)
	}
	body, err := p.fetcher.Fetch(ctx, id)
	if err != nil {
		return nil, err
	}
	p.cache.Put(id, body)
	p.monitor.RecordRequest()
	return body, nil
}

func plausibleGameName(name string) bool {
	if len(name) < 3 || len(name) > 100 {
		return false
	}
	if blocklistTerms.MatchString(name) || nonLatin.MatchString(name) || symbolsOnly.MatchString(name) {
		return false
	}
	return true
}

// sortByPriority puts franchise matches first, then alphabetical.
func sortByPriority(titles []scraper.Title) {
	sort.SliceStable(titles, func(i, j int) bool {
		pi, pj := isPriority(titles[i].Name), isPriority(titles[j].Name)
		if pi != pj {
			return pi
		}
		return strings.ToLower(titles[i].Name) < strings.ToLower(titles[j].Name)
	})
}

func isPriority(name string) bool {
	lower := strings.ToLower(name)
	for _, kw := range priorityKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}
