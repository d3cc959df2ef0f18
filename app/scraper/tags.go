package scraper

import (
	"regexp"

	"golang.org/x/text/unicode/norm"
)

// Captions are NFC-normalised before matching so decomposed accents join
// the tag instead of ending it.
var (
	hashtagPattern = regexp.MustCompile(`#([\p{L}\p{M}\p{N}_]+)`)
	mentionPattern = regexp.MustCompile(`@([\p{L}\p{M}\p{N}_]+)`)
)

// ExtractHashtags returns #tags in order of appearance. Never nil.
func ExtractHashtags(text *string) []string {
	return matchAll(hashtagPattern, text)
}

// ExtractMentions returns @handles in order of appearance. Never nil.
func ExtractMentions(text *string) []string {
	return matchAll(mentionPattern, text)
}

func matchAll(pattern *regexp.Regexp, text *string) []string {
	out := []string{}
	if text == nil || *text == "" {
		return out
	}
	for _, m := range pattern.FindAllStringSubmatch(norm.NFC.String(*text), -1) {
		out = append(out, m[1])
	}
	return out
}
