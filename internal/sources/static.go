package sources

import (
	"strings"

	"github.com/slopscraper/slopscraper/internal/scraper"
)

var sourceEngineTitles = []string{
	"counter-strike", "half-life", "portal", "team fortress",
	"left 4 dead", "garry", "dota",
}

// EngineKnowledge contributes options known to apply across games built
// on the same engine. It fetches nothing; the lowest-priority source, it
// only fills in what the scraped sources missed.
type EngineKnowledge struct{}

func NewEngineKnowledge() *EngineKnowledge { return &EngineKnowledge{} }

func (s *EngineKnowledge) Name() string { return "engine" }

func (s *EngineKnowledge) BuildRequest(scraper.Title) (scraper.RequestIdentity, bool) {
	return scraper.RequestIdentity{}, false
}

func (s *EngineKnowledge) Extract(_ []byte, title scraper.Title) ([]scraper.LaunchOption, error) {
	lower := strings.ToLower(title.Name)

	var opts []scraper.LaunchOption
	switch {
	case matchesAny(lower, sourceEngineTitles):
		opts = s.options([][2]string{
			{"-novid", "Skip intro videos when starting the game"},
			{"-console", "Enable developer console"},
			{"-windowed", "Run the game in windowed mode"},
			{"-fullscreen", "Run the game in fullscreen mode"},
			{"-noborder", "Run the game in borderless windowed mode"},
		})
	case strings.Contains(lower, "unity"):
		opts = s.options([][2]string{
			{"-screen-width", "Set screen width (e.g., -screen-width 1920)"},
			{"-screen-height", "Set screen height (e.g., -screen-height 1080)"},
			{"-popupwindow", "Run in borderless windowed mode"},
			{"-window-mode", "Set window mode (values: exclusive, windowed, borderless)"},
		})
	case strings.Contains(lower, "unreal"):
		opts = s.options([][2]string{
			{"-windowed", "Run the game in windowed mode"},
			{"-fullscreen", "Run the game in fullscreen mode"},
			{"-presets=", "Specify graphics preset (e.g., -presets=high)"},
			{"-dx12", "Force DirectX 12 rendering"},
			{"-dx11", "Force DirectX 11 rendering"},
		})
	}

	opts = append(opts, s.options([][2]string{
		{"-fps_max", "Limit maximum FPS (e.g., -fps_max 144)"},
		{"-nojoy", "Disable joystick/controller support"},
		{"-nosplash", "Skip splash/intro screens"},
	})...)

	return opts, nil
}

func (s *EngineKnowledge) options(pairs [][2]string) []scraper.LaunchOption {
	out := make([]scraper.LaunchOption, 0, len(pairs))
	for _, p := range pairs {
		out = append(out, scraper.LaunchOption{
			Command:     p[0],
			Description: p[1],
			Source:      s.Name(),
		})
	}
	return out
}

func matchesAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
