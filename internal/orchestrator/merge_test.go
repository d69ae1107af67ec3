package orchestrator

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/slopscraper/slopscraper/internal/scraper"
)

func TestMergeOptionsFirstSeenWins(t *testing.T) {
	t.Parallel()

	sources := []scraper.SourceResult{
		{Source: "a", Options: []scraper.LaunchOption{
			{Command: "-novid", Description: "skip intro", Source: "a"},
			{Command: "-console", Description: "enable console", Source: "a"},
		}},
		{Source: "b", Options: []scraper.LaunchOption{
			{Command: "  -NOVID ", Description: "other wording", Source: "b"},
			{Command: "-windowed", Description: "windowed mode", Source: "b"},
		}},
	}

	merged := mergeOptions(sources)
	assert.Len(t, merged, 3)
	assert.Equal(t, "skip intro", merged[0].Description)
	assert.Equal(t, "-console", merged[1].Command)
	assert.Equal(t, "-windowed", merged[2].Command)
}

func TestMergeOptionsEmptyInput(t *testing.T) {
	t.Parallel()

	assert.Empty(t, mergeOptions(nil))
	assert.Empty(t, mergeOptions([]scraper.SourceResult{{Source: "a"}}))
}

func TestMergeOptionsPreservesWithinSourceOrder(t *testing.T) {
	t.Parallel()

	sources := []scraper.SourceResult{
		{Source: "a", Options: []scraper.LaunchOption{
			{Command: "-a", Source: "a"},
			{Command: "-b", Source: "a"},
			{Command: "-c", Source: "a"},
		}},
	}

	merged := mergeOptions(sources)
	commands := make([]string, len(merged))
	for i, o := range merged {
		commands[i] = o.Command
	}
	assert.Equal(t, []string{"-a", "-b", "-c"}, commands)
}
