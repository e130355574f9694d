package fetcher

import "math/rand"

// mobileUserAgents is the small pool both fetch strategies draw from (spec
// §4.3: "a randomized mobile User-Agent drawn from a small pool"). Sites
// frequently serve lighter, less bot-gated markup to mobile clients.
var mobileUserAgents = []string{
	"Mozilla/5.0 (iPhone; CPU iPhone OS 17_5 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.5 Mobile/15E148 Safari/604.1",
	"Mozilla/5.0 (Linux; Android 14; Pixel 8) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/125.0.0.0 Mobile Safari/537.36",
	"Mozilla/5.0 (iPad; CPU OS 17_5 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.5 Mobile/15E148 Safari/604.1",
	"Mozilla/5.0 (Linux; Android 13; SM-G998B) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Mobile Safari/537.36",
}

const googleReferer = "https://www.google.com/"

func randomUserAgent() string {
	return mobileUserAgents[rand.Intn(len(mobileUserAgents))]
}
