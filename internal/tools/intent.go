package tools

import (
	"regexp"
	"strings"
)

type Intent int

const (
	IntentStats Intent = iota
	IntentDescribe
	IntentReviews
	IntentPopular
	IntentRelated
	IntentCommunities
)

func (i Intent) String() string {
	switch i {
	case IntentDescribe:
		return "describe"
	case IntentReviews:
		return "reviews"
	case IntentPopular:
		return "popular"
	case IntentRelated:
		return "related"
	case IntentCommunities:
		return "communities"
	default:
		return "stats"
	}
}

var asinPattern = regexp.MustCompile(`[A-Z0-9]{10}`)

var intentKeywords = []struct {
	intent   Intent
	keywords []string
}{
	{IntentPopular, []string{"popular", "best selling"}},
	{IntentRelated, []string{"similar", "related"}},
	{IntentReviews, []string{"review"}},
	{IntentCommunities, []string{"cluster", "community", "pattern"}},
	{IntentDescribe, []string{"find", "looking for", "search", "recommend", "describe", "like"}},
}

// Classify picks the first intent whose keywords occur in the question.
func Classify(question string) Intent {
	q := strings.ToLower(question)
	for _, k := range intentKeywords {
		for _, kw := range k.keywords {
			if strings.Contains(q, kw) {
				return k.intent
			}
		}
	}
	return IntentStats
}

// ExtractASIN returns the first ten-character run of capitals and digits, or "".
func ExtractASIN(text string) string {
	return asinPattern.FindString(text)
}
