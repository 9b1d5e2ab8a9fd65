package services

import (
	"strings"

	"subwatch/internal/core"
)

// KnownService maps a merchant keyword to a canonical subscription service
// and the cadence that service typically bills on.
type KnownService struct {
	Pattern          string
	Canonical        string
	LogoURL          string
	TypicalFrequency core.Frequency
}

// knownServices is deliberately an ordered slice, not a map: substring
// matching is first-match-wins, so lookup order must be insertion order.
var knownServices = []KnownService{
	{"netflix", "Netflix", "https://logo.clearbit.com/netflix.com", core.Monthly},
	{"spotify", "Spotify", "https://logo.clearbit.com/spotify.com", core.Monthly},
	{"hulu", "Hulu", "https://logo.clearbit.com/hulu.com", core.Monthly},
	{"disney plus", "Disney+", "https://logo.clearbit.com/disneyplus.com", core.Monthly},
	{"disney", "Disney+", "https://logo.clearbit.com/disneyplus.com", core.Monthly},
	{"hbo max", "HBO Max", "https://logo.clearbit.com/hbomax.com", core.Monthly},
	{"hbo", "HBO Max", "https://logo.clearbit.com/hbomax.com", core.Monthly},
	{"paramount", "Paramount+", "https://logo.clearbit.com/paramountplus.com", core.Monthly},
	{"peacock", "Peacock", "https://logo.clearbit.com/peacocktv.com", core.Monthly},
	{"youtube premium", "YouTube Premium", "https://logo.clearbit.com/youtube.com", core.Monthly},
	{"youtube", "YouTube Premium", "https://logo.clearbit.com/youtube.com", core.Monthly},
	{"amazon prime", "Amazon Prime", "https://logo.clearbit.com/amazon.com", core.Monthly},
	{"prime video", "Amazon Prime", "https://logo.clearbit.com/amazon.com", core.Monthly},
	{"audible", "Audible", "https://logo.clearbit.com/audible.com", core.Monthly},
	{"kindle unlimited", "Kindle Unlimited", "https://logo.clearbit.com/amazon.com", core.Monthly},
	{"apple music", "Apple Music", "https://logo.clearbit.com/apple.com", core.Monthly},
	{"apple tv", "Apple TV+", "https://logo.clearbit.com/apple.com", core.Monthly},
	{"icloud", "iCloud+", "https://logo.clearbit.com/icloud.com", core.Monthly},
	{"apple", "Apple", "https://logo.clearbit.com/apple.com", core.Monthly},
	{"google one", "Google One", "https://logo.clearbit.com/one.google.com", core.Monthly},
	{"google storage", "Google One", "https://logo.clearbit.com/one.google.com", core.Monthly},
	{"dropbox", "Dropbox", "https://logo.clearbit.com/dropbox.com", core.Yearly},
	{"github", "GitHub", "https://logo.clearbit.com/github.com", core.Monthly},
	{"adobe", "Adobe Creative Cloud", "https://logo.clearbit.com/adobe.com", core.Monthly},
	{"microsoft 365", "Microsoft 365", "https://logo.clearbit.com/microsoft.com", core.Yearly},
	{"office 365", "Microsoft 365", "https://logo.clearbit.com/microsoft.com", core.Yearly},
	{"playstation", "PlayStation Plus", "https://logo.clearbit.com/playstation.com", core.Monthly},
	{"xbox game pass", "Xbox Game Pass", "https://logo.clearbit.com/xbox.com", core.Monthly},
	{"xbox", "Xbox Game Pass", "https://logo.clearbit.com/xbox.com", core.Monthly},
	{"nintendo", "Nintendo Switch Online", "https://logo.clearbit.com/nintendo.com", core.Yearly},
	{"crunchyroll", "Crunchyroll", "https://logo.clearbit.com/crunchyroll.com", core.Monthly},
	{"patreon", "Patreon", "https://logo.clearbit.com/patreon.com", core.Monthly},
	{"nytimes", "The New York Times", "https://logo.clearbit.com/nytimes.com", core.Monthly},
	{"new york times", "The New York Times", "https://logo.clearbit.com/nytimes.com", core.Monthly},
	{"wall street journal", "The Wall Street Journal", "https://logo.clearbit.com/wsj.com", core.Monthly},
	{"planet fitness", "Planet Fitness", "https://logo.clearbit.com/planetfitness.com", core.Monthly},
	{"peloton", "Peloton", "https://logo.clearbit.com/onepeloton.com", core.Monthly},
	{"duolingo", "Duolingo", "https://logo.clearbit.com/duolingo.com", core.Yearly},
	{"chatgpt", "ChatGPT Plus", "https://logo.clearbit.com/openai.com", core.Monthly},
	{"openai", "ChatGPT Plus", "https://logo.clearbit.com/openai.com", core.Monthly},
	{"notion", "Notion", "https://logo.clearbit.com/notion.so", core.Monthly},
	{"slack", "Slack", "https://logo.clearbit.com/slack.com", core.Monthly},
	{"zoom", "Zoom", "https://logo.clearbit.com/zoom.us", core.Monthly},
	{"1password", "1Password", "https://logo.clearbit.com/1password.com", core.Yearly},
	{"nordvpn", "NordVPN", "https://logo.clearbit.com/nordvpn.com", core.Yearly},
	{"expressvpn", "ExpressVPN", "https://logo.clearbit.com/expressvpn.com", core.Yearly},
}

// LookupKnownService resolves a normalized merchant name against the service
// dictionary. Exact matches win over substring matches; substring matching is
// bidirectional (keyword inside merchant, or merchant inside keyword) and
// scans in dictionary order, first match wins.
func LookupKnownService(normalized string) (KnownService, bool) {
	if normalized == "" {
		return KnownService{}, false
	}
	for _, s := range knownServices {
		if s.Pattern == normalized {
			return s, true
		}
	}
	for _, s := range knownServices {
		if strings.Contains(normalized, s.Pattern) || strings.Contains(s.Pattern, normalized) {
			return s, true
		}
	}
	return KnownService{}, false
}
