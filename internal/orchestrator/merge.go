package orchestrator

import "github.com/slopscraper/slopscraper/internal/scraper"

// mergeOptions folds per-source results into the title's final option
// set. First-seen precedence follows the fixed source priority (the
// slice order), not arrival time; later sources may only add commands
// not already present.
func mergeOptions(sources []scraper.SourceResult) []scraper.LaunchOption {
	seen := make(map[string]struct{})
	var out []scraper.LaunchOption
	for _, sr := range sources {
		for _, opt := range sr.Options {
			key := opt.DedupeKey()
			if key == "" {
				continue
			}
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			out = append(out, opt)
		}
	}
	return out
}
