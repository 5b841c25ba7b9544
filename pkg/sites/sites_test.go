package sites

import (
	"strings"
	"testing"
)

const sampleYAML = `
sites:
  - name: seoul_seoul
    press: 서울신문
    region: Seoul
    base_url: https://www.seoul.co.kr/
    listing_url: "https://www.seoul.co.kr/newsList/economy?page={page}"
    item_selector: li.newsBox
    link_selector: div.articleTitle a
    date_selector: span.date
    title_selector: h2.title
    detail:
      content: ["div#articleContent"]
  - name: gyeonggi_kyeongin
    press: 경인일보
    region: gyeonggi
    base_url: https://www.kyeongin.com
    listing_url: "https://www.kyeongin.com/economy?page={page}"
    item_selector: li.article
    link_selector: a
    date_selector: span.time
    detail:
      subtitle: [div.sub]
      content: [div.body]
    max_pages: 10
    stale_stop_threshold: 3
`

func TestParseRegistryNormalizesAndIndexes(t *testing.T) {
	reg, err := ParseRegistry([]byte(sampleYAML), ".yaml")
	if err != nil {
		t.Fatalf("ParseRegistry: %v", err)
	}

	if got := len(reg.All()); got != 2 {
		t.Fatalf("expected 2 sites, got %d", got)
	}

	s, ok := reg.ByName("seoul_seoul")
	if !ok {
		t.Fatalf("seoul_seoul not indexed")
	}
	if s.Region != "seoul" {
		t.Fatalf("region not lowercased: %q", s.Region)
	}
	if s.BaseURL != "https://www.seoul.co.kr" {
		t.Fatalf("base_url not trimmed: %q", s.BaseURL)
	}
	if s.MaxPages != defaultMaxPages || s.StaleStopThreshold != defaultStaleStopThreshold {
		t.Fatalf("defaults not applied: %+v", s)
	}

	g, _ := reg.ByName("gyeonggi_kyeongin")
	if g.MaxPages != 10 || g.StaleStopThreshold != 3 {
		t.Fatalf("explicit values overridden: %+v", g)
	}

	if regions := reg.Regions(); len(regions) != 2 || regions[0] != "gyeonggi" || regions[1] != "seoul" {
		t.Fatalf("unexpected regions %v", regions)
	}
	if byRegion := reg.ByRegion("SEOUL"); len(byRegion) != 1 || byRegion[0].Name != "seoul_seoul" {
		t.Fatalf("ByRegion lookup failed: %v", byRegion)
	}
}

func TestParseRegistryRejectsBadConfigs(t *testing.T) {
	cases := []struct {
		name string
		yaml string
		want string
	}{
		{
			name: "missing listing placeholder",
			yaml: `
sites:
  - name: x
    press: p
    region: r
    base_url: https://a
    listing_url: "https://a/list"
    item_selector: li
    link_selector: a
    date_selector: span
    detail:
      content: [div]
`,
			want: "{page}",
		},
		{
			name: "duplicate names",
			yaml: `
sites:
  - {name: x, press: p, region: r, base_url: "https://a", listing_url: "https://a?p={page}", item_selector: li, link_selector: a, date_selector: s, detail: {content: [d]}}
  - {name: x, press: p, region: r, base_url: "https://a", listing_url: "https://a?p={page}", item_selector: li, link_selector: a, date_selector: s, detail: {content: [d]}}
`,
			want: "duplicate site name",
		},
		{
			name: "no content selectors",
			yaml: `
sites:
  - {name: x, press: p, region: r, base_url: "https://a", listing_url: "https://a?p={page}", item_selector: li, link_selector: a, date_selector: s}
`,
			want: "detail.content",
		},
		{
			name: "empty file",
			yaml: "sites: []",
			want: "no site entries",
		},
	}

	for _, tc := range cases {
		if _, err := ParseRegistry([]byte(tc.yaml), ".yaml"); err == nil || !strings.Contains(err.Error(), tc.want) {
			t.Fatalf("%s: expected error containing %q, got %v", tc.name, tc.want, err)
		}
	}
}

func TestListingPageURL(t *testing.T) {
	s := Site{ListingURL: "https://a/list?page={page}"}
	if got := s.ListingPageURL(7); got != "https://a/list?page=7" {
		t.Fatalf("ListingPageURL: %q", got)
	}
}

func TestRequestHeadersMergesOverrides(t *testing.T) {
	s := Site{ExtraHeaders: map[string]string{"User-Agent": "custom", "Referer": "https://a"}}
	h := s.RequestHeaders()
	if h["User-Agent"] != "custom" {
		t.Fatalf("override lost: %q", h["User-Agent"])
	}
	if h["Referer"] != "https://a" || h["Accept"] == "" {
		t.Fatalf("unexpected headers %v", h)
	}
}
