package sources

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/slopscraper/slopscraper/internal/scraper"
)

// ProtonDB reads the per-title report summary API and contributes
// compatibility options keyed off the reported tier. The summary carries
// no free-form report text, so the options are curated per tier rather
// than scraped.
type ProtonDB struct{}

func NewProtonDB() *ProtonDB { return &ProtonDB{} }

func (s *ProtonDB) Name() string { return "protondb" }

func (s *ProtonDB) BuildRequest(title scraper.Title) (scraper.RequestIdentity, bool) {
	if title.AppID <= 0 || title.AppID > 999999999 {
		return scraper.RequestIdentity{}, false
	}
	id, err := scraper.NewRequestIdentity("GET",
		"https://www.protondb.com/api/v1/reports/summaries/"+strconv.Itoa(title.AppID)+".json")
	if err != nil {
		return scraper.RequestIdentity{}, false
	}
	return id, true
}

type protonSummary struct {
	Total        int    `json:"total"`
	Tier         string `json:"tier"`
	TrendingTier string `json:"trendingTier"`
}

func (s *ProtonDB) Extract(body []byte, title scraper.Title) ([]scraper.LaunchOption, error) {
	if len(body) == 0 {
		return nil, nil
	}
	var summary protonSummary
	if err := json.Unmarshal(body, &summary); err != nil {
		return nil, fmt.Errorf("decode summary: %w", err)
	}
	if summary.Total == 0 {
		return nil, nil
	}
	tier := summary.TrendingTier
	if tier == "" {
		tier = summary.Tier
	}
	return s.tierOptions(tier), nil
}

// tierOptions returns the compatibility options appropriate for the
// reported tier. Borked titles get nothing; suggesting tweaks for a
// game that does not run is noise.
func (s *ProtonDB) tierOptions(tier string) []scraper.LaunchOption {
	var opts []scraper.LaunchOption

	switch tier {
	case "platinum", "gold":
		opts = append(opts,
			scraper.LaunchOption{
				Command:     "PROTON_ENABLE_NVAPI=1",
				Description: "Enable Nvidia API support for better GPU compatibility",
				Source:      s.Name(),
			},
			scraper.LaunchOption{
				Command:     "PROTON_HIDE_NVIDIA_GPU=0",
				Description: "Ensure Nvidia GPU is visible to the game",
				Source:      s.Name(),
			},
		)
	case "silver", "bronze":
		opts = append(opts,
			scraper.LaunchOption{
				Command:     "PROTON_FORCE_LARGE_ADDRESS_AWARE=1",
				Description: "Allow 32-bit games to use more than 2GB of RAM",
				Source:      s.Name(),
			},
			scraper.LaunchOption{
				Command:     "DXVK_ASYNC=1",
				Description: "Enable DXVK async for potentially better performance",
				Source:      s.Name(),
			},
		)
	}

	if tier != "borked" {
		opts = append(opts,
			scraper.LaunchOption{
				Command:     "gamemode",
				Description: "Enable GameMode for Linux performance optimization",
				Source:      s.Name(),
			},
			scraper.LaunchOption{
				Command:     "mangohud",
				Description: "Enable MangoHud overlay for performance monitoring",
				Source:      s.Name(),
			},
		)
	}

	return opts
}
