// Package taxonomy holds the pure parts of the content engine: the hashtag
// index and rating arithmetic.
package taxonomy

import (
	"sort"
	"strings"
)

// TagCount is one row of the hashtag frequency table.
type TagCount struct {
	Tag   string `json:"tag"`
	Count int    `json:"count"`
}

// ParseTags lower-cases a hashtag string and splits it on whitespace.
func ParseTags(hashtags string) []string {
	return strings.Fields(strings.ToLower(hashtags))
}

// CountTags counts every tag across the corpus. The result is ordered by
// count descending; equal counts keep the order in which the tag was first
// seen.
func CountTags(corpus []string) []TagCount {
	index := make(map[string]int)
	var counts []TagCount
	for _, hashtags := range corpus {
		for _, tag := range ParseTags(hashtags) {
			if i, ok := index[tag]; ok {
				counts[i].Count++
				continue
			}
			index[tag] = len(counts)
			counts = append(counts, TagCount{Tag: tag, Count: 1})
		}
	}
	sort.SliceStable(counts, func(i, j int) bool {
		return counts[i].Count > counts[j].Count
	})
	if counts == nil {
		counts = []TagCount{}
	}
	return counts
}

// TopTags returns the n most frequent tags of the corpus.
func TopTags(corpus []string, n int) []TagCount {
	counts := CountTags(corpus)
	if n >= 0 && len(counts) > n {
		counts = counts[:n]
	}
	return counts
}

// UniqueTags returns the alphabetical set of all tags in the corpus.
func UniqueTags(corpus []string) []string {
	seen := make(map[string]struct{})
	tags := []string{}
	for _, hashtags := range corpus {
		for _, tag := range ParseTags(hashtags) {
			if _, ok := seen[tag]; ok {
				continue
			}
			seen[tag] = struct{}{}
			tags = append(tags, tag)
		}
	}
	sort.Strings(tags)
	return tags
}
