package generic

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	reChapterTitle = regexp.MustCompile(`(?i)(?:vol(?:ume)?[._\-\s]*(\d+)[_\-\s]*)?(?:chapter|ch)[_\-\s.]*0*([0-9]+)(?:[_\-\s]*([.\-])[_\-\s]*([0-9]+))?`)
	reChapterDash  = regexp.MustCompile(`chapter[_\-]?0*([0-9]+)(?:[_\-]([0-9]+))?`)
	reVolChapter   = regexp.MustCompile(`vol[_\-]?(\d+)[/_\-]ch[_\-]?(\d+(?:\.\d+)?)`)
	reShortCh      = regexp.MustCompile(`(?:^|[/\-_])ch[_\-]?(\d+(?:\.\d+)?)`)
	rePlainNumber  = regexp.MustCompile(`[/\-](\d+(?:\.\d+)?)(?:$|[/\-_])`)
	reTitleNumber  = regexp.MustCompile(`^\s*(\d+(?:\.\d+)?)\s*[.\- ]`)

	reLikelyChapter = regexp.MustCompile(`(?i)(?:^|[-_/])(?:ch|chapter)[-_]?\d+`)
)

// chapterRef is what a link says about its chapter. Token is the chapter
// number as the site writes it ("12", "12.5", "12-2").
type chapterRef struct {
	Main   int
	Sep    string
	Sub    int
	Volume string
	Token  string
}

func dotted(s string) chapterRef {
	main, sub, found := strings.Cut(s, ".")
	ref := chapterRef{Token: s}
	ref.Main, _ = strconv.Atoi(main)
	if found {
		ref.Sep = "."
		ref.Sub, _ = strconv.Atoi(sub)
	}
	return ref
}

func joined(main int, sep string, sub int) chapterRef {
	ref := chapterRef{Main: main, Sep: sep, Sub: sub, Token: strconv.Itoa(main)}
	if sep != "" {
		ref.Token += sep + strconv.Itoa(sub)
	}
	return ref
}

// linkMatchers run in order; the href ones see the lowercased href.
var linkMatchers = []func(href, title string) (chapterRef, bool){
	func(h, _ string) (chapterRef, bool) {
		m := reChapterDash.FindStringSubmatch(h)
		if m == nil {
			return chapterRef{}, false
		}
		main, _ := strconv.Atoi(m[1])
		if m[2] == "" {
			return joined(main, "", 0), true
		}
		sub, _ := strconv.Atoi(m[2])
		return joined(main, "-", sub), true
	},
	func(h, _ string) (chapterRef, bool) {
		m := reVolChapter.FindStringSubmatch(h)
		if m == nil {
			return chapterRef{}, false
		}
		ref := dotted(m[2])
		ref.Volume = m[1]
		return ref, true
	},
	func(h, _ string) (chapterRef, bool) {
		if m := reShortCh.FindStringSubmatch(h); m != nil {
			return dotted(m[1]), true
		}
		return chapterRef{}, false
	},
	func(h, _ string) (chapterRef, bool) {
		if m := rePlainNumber.FindStringSubmatch(h); m != nil {
			return dotted(m[1]), true
		}
		return chapterRef{}, false
	},
	func(_, t string) (chapterRef, bool) {
		if m := reTitleNumber.FindStringSubmatch(t); m != nil {
			return dotted(m[1]), true
		}
		return chapterRef{}, false
	},
	func(_, t string) (chapterRef, bool) {
		m := reChapterTitle.FindStringSubmatch(t)
		if m == nil {
			return chapterRef{}, false
		}
		main, _ := strconv.Atoi(m[2])
		sub, _ := strconv.Atoi(m[4])
		ref := joined(main, m[3], sub)
		ref.Volume = m[1]
		return ref, true
	},
}

func parseChapterLink(href, title string) (chapterRef, bool) {
	h := strings.ToLower(href)
	t := strings.ToLower(title)

	if !hasChapterKeyword(h) && !hasChapterKeyword(t) {
		return chapterRef{}, false
	}
	if strings.Contains(h, "/u/") || strings.Contains(h, "batolists") {
		return chapterRef{}, false
	}

	for _, match := range linkMatchers {
		if ref, ok := match(h, title); ok {
			return ref, true
		}
	}
	return chapterRef{}, false
}

func hasChapterKeyword(s string) bool {
	return strings.Contains(s, "ch") || strings.Contains(s, "vol")
}

func looksLikeChapterLink(href, title string) bool {
	h := strings.ToLower(href)
	if reLikelyChapter.MatchString(h) || reVolChapter.MatchString(h) || reShortCh.MatchString(h) {
		return true
	}

	t := strings.ToLower(strings.TrimSpace(title))
	return strings.HasPrefix(t, "ch ") || strings.HasPrefix(t, "chapter ")
}

func compareRefs(a, b chapterRef) int {
	switch {
	case a.Main != b.Main:
		return a.Main - b.Main
	case a.Sep != b.Sep:
		return strings.Compare(a.Sep, b.Sep)
	}
	return a.Sub - b.Sub
}
