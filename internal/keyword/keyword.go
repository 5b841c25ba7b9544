package keyword

import (
	"sort"
	"strings"
	"unicode"
)

// Package keyword fills the `keyword` column of the relational store with a
// comma-joined list of frequent terms from title and body. Downstream
// analyzers re-extract with proper morphology; this column only needs to be
// good enough for filtering.

const (
	// maxContentRunes caps how much body text is scanned; the head of an
	// article carries its topic.
	maxContentRunes = 600
	defaultTopN     = 5
	minTermLen      = 2
)

// stopwords mix generic news noise with region names: a regional corpus
// where every keyword is the region's own name tells nobody anything.
var stopwords = map[string]bool{
	"기자": true, "뉴스": true, "배포": true, "무단": true, "금지": true,
	"전재": true, "오늘": true, "어제": true, "내일": true, "이번": true,
	"지난": true, "때문": true, "대한": true, "관련": true, "통해": true,
	"위해": true, "경우": true, "사진": true, "최근": true, "지역": true,
	"기사": true, "오전": true, "오후": true, "시간": true, "지난해": true,
	"밝혔다": true, "말했다": true,
	"전국": true, "서울": true, "경기": true, "경기도": true, "인천": true,
	"충청": true, "충남": true, "충북": true, "대전": true, "세종": true,
	"부산": true, "경남": true, "울산": true, "대구": true, "경북": true,
	"광주": true, "전남": true, "전북": true, "전라": true, "강원": true,
	"강원도": true, "제주": true, "경상": true,
}

// Extract returns up to topN frequent terms from title+content, most
// frequent first, ties broken lexicographically so output is deterministic.
func Extract(title, content string, topN int) []string {
	if topN <= 0 {
		topN = defaultTopN
	}

	text := title + " " + truncateRunes(content, maxContentRunes)
	counts := make(map[string]int)
	for _, term := range tokenize(text) {
		counts[term]++
	}

	terms := make([]string, 0, len(counts))
	for term := range counts {
		terms = append(terms, term)
	}
	sort.Slice(terms, func(i, j int) bool {
		if counts[terms[i]] != counts[terms[j]] {
			return counts[terms[i]] > counts[terms[j]]
		}
		return terms[i] < terms[j]
	})

	if len(terms) > topN {
		terms = terms[:topN]
	}
	return terms
}

// Join renders terms the way the store column expects.
func Join(terms []string) string {
	return strings.Join(terms, ",")
}

func tokenize(text string) []string {
	fields := strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	var out []string
	for _, f := range fields {
		if len([]rune(f)) < minTermLen {
			continue
		}
		if stopwords[f] {
			continue
		}
		if isAllDigits(f) {
			continue
		}
		out = append(out, f)
	}
	return out
}

func isAllDigits(s string) bool {
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
