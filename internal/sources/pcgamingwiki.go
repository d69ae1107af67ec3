package sources

import (
	"bytes"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/slopscraper/slopscraper/internal/scraper"
)

// Section anchors that hold launch options on wiki articles, in the
// order they are tried.
var wikiSectionIDs = []string{
	"Command_line_arguments",
	"Launch_options",
	"Launch_commands",
	"Parameters",
	"Launch_parameters",
	"Command-line_arguments",
	"Command_line_parameters",
	"Steam_launch_options",
	"Command_line_options",
	"Startup_parameters",
	"Execution_parameters",
}

var (
	leadingOption  = regexp.MustCompile(`^(-{1,2}\w[\w\-]*)`)
	anyOption      = regexp.MustCompile(`(-{1,2}\w[\w\-]*)`)
	listSeparators = []string{":", " - ", " – ", " — ", " | "}
)

// PCGamingWiki extracts launch options from wiki article pages. Articles
// keep options in wikitables under well-known section anchors; lists and
// code blocks are fallbacks for less structured pages.
type PCGamingWiki struct{}

func NewPCGamingWiki() *PCGamingWiki { return &PCGamingWiki{} }

func (s *PCGamingWiki) Name() string { return "pcgamingwiki" }

// BuildRequest maps the title name onto the wiki's article URL scheme.
func (s *PCGamingWiki) BuildRequest(title scraper.Title) (scraper.RequestIdentity, bool) {
	slug := wikiSlug(title.Name)
	if slug == "" {
		return scraper.RequestIdentity{}, false
	}
	id, err := scraper.NewRequestIdentity("GET", "https://www.pcgamingwiki.com/wiki/"+slug)
	if err != nil {
		return scraper.RequestIdentity{}, false
	}
	return id, true
}

// wikiSlug converts a game title into the wiki article name. Returns ""
// for titles that cannot form a safe URL path segment.
func wikiSlug(name string) string {
	name = strings.TrimSpace(name)
	if name == "" || len(name) > 200 {
		return ""
	}
	r := strings.NewReplacer(
		" ", "_",
		":", "",
		"&", "and",
		"'", "",
		"-", "_",
		"<", "", ">", "", `"`, "", `\`, "", "/", "",
	)
	return url.PathEscape(r.Replace(name))
}

func (s *PCGamingWiki) Extract(body []byte, title scraper.Title) ([]scraper.LaunchOption, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse wiki page: %w", err)
	}

	opts := s.fromTables(doc)
	if len(opts) == 0 {
		opts = s.fromLists(doc)
	}
	if len(opts) == 0 {
		opts = s.fromCodeBlocks(doc)
	}
	return dedupe(opts, maxOptionsPerPage), nil
}

// fromTables reads wikitable rows under the known section headings. The
// first cell is the command, the second its description.
func (s *PCGamingWiki) fromTables(doc *goquery.Document) []scraper.LaunchOption {
	var opts []scraper.LaunchOption
	s.eachSectionHeading(doc, func(heading *goquery.Selection) {
		table := heading.NextAllFiltered("table.wikitable").First()
		if table.Length() == 0 {
			return
		}
		table.Find("tr").Each(func(i int, row *goquery.Selection) {
			if i == 0 {
				return
			}
			cells := row.Find("td")
			if cells.Length() < 2 {
				return
			}
			command := strings.TrimSpace(cells.Eq(0).Text())
			description := strings.TrimSpace(cells.Eq(1).Text())
			if validCommand(command) && len(description) <= maxDescriptionLen {
				opts = append(opts, scraper.LaunchOption{
					Command:     command,
					Description: clampDescription(description),
					Source:      s.Name(),
				})
			}
		})
	})
	return opts
}

// fromLists handles articles that keep options in bullet lists near the
// section heading rather than in a table.
func (s *PCGamingWiki) fromLists(doc *goquery.Document) []scraper.LaunchOption {
	var opts []scraper.LaunchOption
	s.eachSectionHeading(doc, func(heading *goquery.Selection) {
		sibling := heading.Next()
		for i := 0; i < 5 && sibling.Length() > 0; i++ {
			list := sibling
			if name := goquery.NodeName(sibling); name != "ul" && name != "ol" {
				list = sibling.Find("ul, ol").First()
			}
			list.Find("li").Each(func(_ int, item *goquery.Selection) {
				text := strings.TrimSpace(item.Text())
				if text == "" || len(text) > 1000 {
					return
				}
				command, description := splitListItem(text)
				if validCommand(command) && description != "" {
					opts = append(opts, scraper.LaunchOption{
						Command:     command,
						Description: clampDescription(description),
						Source:      s.Name(),
					})
				}
			})
			sibling = sibling.Next()
		}
	})
	return opts
}

// fromCodeBlocks is the last resort: bare <code>/<pre> fragments that
// look like options, described by their surrounding element when short
// enough to be meaningful.
func (s *PCGamingWiki) fromCodeBlocks(doc *goquery.Document) []scraper.LaunchOption {
	var opts []scraper.LaunchOption
	doc.Find("code, pre, kbd, samp").EachWithBreak(func(i int, block *goquery.Selection) bool {
		if i >= 15 {
			return false
		}
		text := strings.TrimSpace(block.Text())
		if len(text) > 200 || !validCommand(text) {
			return true
		}
		description := "No description available"
		if parent := block.Parent(); parent.Length() > 0 {
			parentText := strings.TrimSpace(parent.Text())
			if len(parentText) > len(text) && len(parentText) <= maxDescriptionLen {
				description = strings.TrimSpace(strings.Replace(parentText, text, "", 1))
			}
		}
		opts = append(opts, scraper.LaunchOption{
			Command:     text,
			Description: clampDescription(description),
			Source:      s.Name(),
		})
		return true
	})
	return opts
}

// eachSectionHeading calls fn with the heading element of every known
// launch-option section present in the article.
func (s *PCGamingWiki) eachSectionHeading(doc *goquery.Document, fn func(*goquery.Selection)) {
	for _, id := range wikiSectionIDs {
		anchor := doc.Find("#" + id)
		if anchor.Length() == 0 {
			continue
		}
		heading := anchor.Parent()
		if !strings.HasPrefix(goquery.NodeName(heading), "h") {
			continue
		}
		fn(heading)
	}
}

// splitListItem pulls a command and description out of one list entry,
// trying explicit separators before falling back to option-shaped tokens.
func splitListItem(text string) (string, string) {
	for _, sep := range listSeparators {
		if idx := strings.Index(text, sep); idx > 0 {
			return strings.TrimSpace(text[:idx]), strings.TrimSpace(text[idx+len(sep):])
		}
	}
	if m := leadingOption.FindString(text); m != "" {
		return m, strings.TrimSpace(strings.Replace(text, m, "", 1))
	}
	if m := anyOption.FindString(text); m != "" {
		return m, strings.TrimSpace(strings.Replace(text, m, "", 1))
	}
	return "", ""
}
