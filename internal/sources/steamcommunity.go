package sources

import (
	"bytes"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/slopscraper/slopscraper/internal/scraper"
)

// Option token patterns known from Steam, Source, Unity and Unreal
// documentation. Anything a guide mentions that matches none of these is
// discarded: community pages are too noisy to trust free-form tokens.
var communityPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(?:^|\s)(-(?:novid|windowed|fullscreen|console|high|low|noborder|sw))(?:\s|$)`),
	regexp.MustCompile(`(?i)(?:^|\s)(-(?:dx9|dx11|dx12|gl|vulkan|opengl))(?:\s|$)`),
	regexp.MustCompile(`(?i)(?:^|\s)(-(?:w|h|refresh|freq) \d{3,5})(?:\s|$)`),
	regexp.MustCompile(`(?i)(?:^|\s)(-dxlevel (?:80|81|90|95|100))(?:\s|$)`),
	regexp.MustCompile(`(?i)(?:^|\s)(-threads [1-8])(?:\s|$)`),
	regexp.MustCompile(`(?i)(?:^|\s)(\+(?:fps_max|mat_queue_mode|cl_forcepreload|cl_showfps|exec|connect) ?\d*)(?:\s|$)`),
	regexp.MustCompile(`(?i)(?:^|\s)(-force-(?:d3d11|d3d12|vulkan|opengl|metal))(?:\s|$)`),
	regexp.MustCompile(`(?i)(?:^|\s)(-(?:nographics|nolog|popupwindow|screen-width \d{3,5}|screen-height \d{3,5}))(?:\s|$)`),
	regexp.MustCompile(`(?i)(?:^|\s)(-(?:useallavailablecores|onethread|sm4|sm5|borderless|lowmemory))(?:\s|$)`),
	regexp.MustCompile(`(?i)(?:^|\s)(-(?:ResX|ResY)=\d{3,5})(?:\s|$)`),
	regexp.MustCompile(`(?i)(?:^|\s)(-(?:nosound|nojoy|dev|safe|autoconfig|condebug|showfps|nopreload|insecure))(?:\s|$)`),
}

// Phrases that mark a passage as genuinely about launch options.
var launchContextPhrases = []string{
	"launch option", "launch parameter", "launch command",
	"startup option", "startup parameter", "command line option",
	"steam launch", "game properties", "launch properties",
	"add to launch options", "set launch options",
}

var wellKnownOptions = []string{
	"-novid", "-windowed", "-fullscreen", "-console", "-high", "-dx11", "-dx12",
}

var communityContentSelectors = []string{
	".guide_body",
	".subSectionContents",
	".guide_content",
	".workshopItemDescription",
	".guide_section",
}

// SteamCommunity mines the community guide hub page of a title for
// launch-option tokens. Only tokens matching the known-option patterns
// survive, and only from passages with explicit launch-option context.
type SteamCommunity struct{}

func NewSteamCommunity() *SteamCommunity { return &SteamCommunity{} }

func (s *SteamCommunity) Name() string { return "steamcommunity" }

func (s *SteamCommunity) BuildRequest(title scraper.Title) (scraper.RequestIdentity, bool) {
	if title.AppID <= 0 || title.AppID > 999999999 {
		return scraper.RequestIdentity{}, false
	}
	id, err := scraper.NewRequestIdentity("GET",
		"https://steamcommunity.com/app/"+strconv.Itoa(title.AppID)+"/guides/")
	if err != nil {
		return scraper.RequestIdentity{}, false
	}
	return id, true
}

func (s *SteamCommunity) Extract(body []byte, title scraper.Title) ([]scraper.LaunchOption, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse guide page: %w", err)
	}

	content := s.findContent(doc)
	var opts []scraper.LaunchOption

	// Code blocks first: formatted text is the highest-quality signal.
	content.Find("code, pre, tt, kbd, samp").Each(func(_ int, block *goquery.Selection) {
		opts = append(opts, s.extractKnown(cleanText(block.Text()))...)
	})

	if len(opts) < 5 {
		content.Find("p, div, li, td").EachWithBreak(func(i int, el *goquery.Selection) bool {
			if i >= 30 {
				return false
			}
			text := cleanText(el.Text())
			if text == "" || len(text) > 800 || !hasLaunchContext(text) {
				return true
			}
			opts = append(opts, s.extractKnown(text)...)
			return true
		})
	}

	return dedupe(opts, 20), nil
}

func (s *SteamCommunity) findContent(doc *goquery.Document) *goquery.Selection {
	for _, selector := range communityContentSelectors {
		if content := doc.Find(selector).First(); content.Length() > 0 {
			return content
		}
	}
	return doc.Find("body")
}

// extractKnown matches text against the known-option patterns and builds
// options with a context-derived description.
func (s *SteamCommunity) extractKnown(text string) []scraper.LaunchOption {
	var opts []scraper.LaunchOption
	for _, pattern := range communityPatterns {
		for _, groups := range pattern.FindAllStringSubmatch(text, -1) {
			command := strings.TrimSpace(groups[1])
			if !validCommand(command) {
				continue
			}
			opts = append(opts, scraper.LaunchOption{
				Command:     command,
				Description: describeFromContext(command, text),
				Source:      s.Name(),
			})
		}
	}
	return opts
}

// describeFromContext pulls the sentence mentioning the option, trimmed
// of the option itself and of filler prefixes.
func describeFromContext(command, text string) string {
	for _, sentence := range strings.Split(text, ".") {
		sentence = strings.TrimSpace(sentence)
		if !strings.Contains(sentence, command) || len(sentence) <= len(command)+5 {
			continue
		}
		desc := strings.TrimSpace(strings.Replace(sentence, command, "", 1))
		for _, prefix := range []string{"add", "use", "try", "set", "put", "include", "apply"} {
			if strings.HasPrefix(strings.ToLower(desc), prefix) {
				desc = strings.TrimSpace(desc[len(prefix):])
			}
		}
		desc = strings.Trim(desc, ":-.,; ")
		if len(desc) > 10 && len(desc) < 200 && !strings.ContainsAny(desc, "<>{}|") {
			return desc
		}
	}
	return "Launch option from community guide"
}

func hasLaunchContext(text string) bool {
	if len(text) < 10 {
		return false
	}
	lower := strings.ToLower(text)
	for _, phrase := range launchContextPhrases {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	for _, opt := range wellKnownOptions {
		if strings.Contains(lower, opt) {
			return true
		}
	}
	return false
}
