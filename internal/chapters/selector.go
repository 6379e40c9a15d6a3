package chapters

import (
	"strconv"
	"strings"

	"github.com/brogergvhs/mangakit/internal/model"
)

// Filter picks chapters from one branch. chapter matches the raw token first
// and falls back to a 1-based sequence number; rng is "a-b"; list is "i,j,k".
func Filter(all []model.Chapter, chapter string, rng string, list string) []model.Chapter {
	if chapter != "" {
		byToken := FilterByToken(all, chapter)
		if len(byToken) > 0 {
			return byToken
		}
		if n, err := atoi(chapter); err == nil {
			return FilterByNumber(all, n)
		}
		return []model.Chapter{}
	}
	if rng != "" {
		return FilterRange(all, rng)
	}
	if list != "" {
		return FilterList(all, list)
	}
	return all
}

func FilterByToken(all []model.Chapter, token string) []model.Chapter {
	var out []model.Chapter
	for _, ch := range all {
		if ch.Token == token {
			out = append(out, ch)
		}
	}
	return out
}

func FilterByNumber(all []model.Chapter, n int) []model.Chapter {
	for _, ch := range all {
		if ch.Number == n {
			return []model.Chapter{ch}
		}
	}
	return []model.Chapter{}
}

func FilterRange(all []model.Chapter, rng string) []model.Chapter {
	parts := strings.Split(rng, "-")
	if len(parts) != 2 {
		return nil
	}
	start, err1 := atoi(parts[0])
	end, err2 := atoi(parts[1])
	if err1 != nil || err2 != nil {
		return nil
	}
	if start <= 0 || end <= 0 || start > end {
		return nil
	}

	var out []model.Chapter
	for _, ch := range all {
		if ch.Number >= start && ch.Number <= end {
			out = append(out, ch)
		}
	}
	return out
}

func FilterList(all []model.Chapter, list string) []model.Chapter {
	out := []model.Chapter{}
	for n := range strings.SplitSeq(list, ",") {
		n = strings.TrimSpace(n)
		if n == "" {
			continue
		}
		idx, err := atoi(n)
		if err != nil {
			continue
		}
		out = append(out, FilterByNumber(all, idx)...)
	}
	return out
}

func atoi(s string) (int, error) {
	return strconv.Atoi(strings.TrimSpace(s))
}
