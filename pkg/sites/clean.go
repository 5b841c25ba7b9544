package sites

import (
	"regexp"
	"strings"
)

var (
	emailRe   = regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`)
	hashtagRe = regexp.MustCompile(`#\S+`)
	bylineRe  = regexp.MustCompile(`/[가-힣]{2,4}\s*기자.*$`)
)

// defaultNoiseKeywords are the footer/byline markers that end article text on
// Korean news sites. Body text is truncated at the first occurrence.
var defaultNoiseKeywords = []string{
	"저작권자",
	"다른기사 보기",
	"좋아요 0",
	"관련기사",
	"재배포 금지",
	"무단 전재",
	"기자 =",
}

// CleanText strips article-body noise: everything from the first reporter
// email onward, everything from the first noise keyword onward, hashtags,
// and trailing "/아무개 기자" bylines. extra keywords come from the site
// config and are applied after the defaults.
func CleanText(text string, extra []string) string {
	if text == "" {
		return ""
	}

	if loc := emailRe.FindStringIndex(text); loc != nil {
		text = text[:loc[0]]
	}

	for _, kw := range defaultNoiseKeywords {
		if i := strings.Index(text, kw); i >= 0 {
			text = text[:i]
		}
	}
	for _, kw := range extra {
		if kw == "" {
			continue
		}
		if i := strings.Index(text, kw); i >= 0 {
			text = text[:i]
		}
	}

	text = hashtagRe.ReplaceAllString(text, "")
	text = bylineRe.ReplaceAllString(text, "")

	return strings.TrimSpace(text)
}
