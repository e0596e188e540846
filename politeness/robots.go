package politeness

import (
	"bufio"
	"strconv"
	"strings"
	"time"
)

// ParseCrawlDelay extracts the Crawl-delay directive (in seconds) from a
// robots.txt body, applying to the User-agent: * group — or to any group
// the caller's user-agent matches, whichever is more specific.
//
// Returns (0, false) when no directive applies.
func ParseCrawlDelay(body string, userAgent string) (time.Duration, bool) {
	scanner := bufio.NewScanner(strings.NewReader(body))

	var inStarGroup, inMatchingGroup, matching bool
	var starDelay, matchDelay time.Duration
	var haveStar, haveMatch bool

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := splitDirective(line)
		if !ok {
			continue
		}
		switch strings.ToLower(key) {
		case "user-agent":
			agent := strings.ToLower(value)
			inStarGroup = agent == "*"
			inMatchingGroup = userAgent != "" && strings.Contains(strings.ToLower(userAgent), agent) && agent != "*"
			if inMatchingGroup {
				matching = true
			}
		case "crawl-delay":
			secs, err := strconv.ParseFloat(value, 64)
			if err != nil {
				continue
			}
			d := time.Duration(secs * float64(time.Second))
			if inStarGroup {
				starDelay = d
				haveStar = true
			}
			if inMatchingGroup {
				matchDelay = d
				haveMatch = true
			}
		}
	}

	if matching && haveMatch {
		return matchDelay, true
	}
	if haveStar {
		return starDelay, true
	}
	return 0, false
}

func splitDirective(line string) (key, value string, ok bool) {
	idx := strings.IndexByte(line, ':')
	if idx < 0 {
		return "", "", false
	}
	return strings.TrimSpace(line[:idx]), strings.TrimSpace(line[idx+1:]), true
}
