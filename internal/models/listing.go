package models

import (
	"strconv"
	"strings"
)

// DesignSort selects the listing order.
type DesignSort string

const (
	SortNewest DesignSort = "newest"
	SortTop    DesignSort = "top"
)

// ParseDesignSort maps a query value to a sort, defaulting to newest.
func ParseDesignSort(raw string) DesignSort {
	if strings.EqualFold(strings.TrimSpace(raw), string(SortTop)) {
		return SortTop
	}
	return SortNewest
}

// RatingBucket filters designs by rounded mean rating, or selects the
// designs nobody has rated yet.
type RatingBucket struct {
	Unrated bool
	Value   int
}

// ParseRatingBucket returns nil for empty or unrecognised input; such a
// filter is dropped rather than rejected.
func ParseRatingBucket(raw string) *RatingBucket {
	raw = strings.TrimSpace(strings.ToLower(raw))
	if raw == "" {
		return nil
	}
	if raw == "unrated" {
		return &RatingBucket{Unrated: true}
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < MinRating || n > MaxRating {
		return nil
	}
	return &RatingBucket{Value: n}
}

// Rating bounds, inclusive.
const (
	MinRating = 1
	MaxRating = 10
)

// DesignQuery is the input of the design listing engine.
type DesignQuery struct {
	Search   string
	Sort     DesignSort
	Bucket   *RatingBucket
	Page     int
	PageSize int
}

// Offset returns the row offset for a 1-indexed page. Callers check
// PastEnd first; a page beyond the data has no meaningful offset.
func (q DesignQuery) Offset() int {
	return pageOffset(q.Page, q.PageSize)
}

// PastEnd reports whether the page lies beyond total matching rows.
func (q DesignQuery) PastEnd(total int64) bool {
	return pastEnd(q.Page, q.PageSize, total)
}

func pageOffset(page, pageSize int) int {
	if page < 1 {
		return 0
	}
	return (page - 1) * pageSize
}

// pastEnd compares page numbers rather than offsets so huge pages cannot
// overflow into a negative offset.
func pastEnd(page, pageSize int, total int64) bool {
	if total <= 0 {
		return true
	}
	if pageSize < 1 {
		return false
	}
	if page < 1 {
		page = 1
	}
	lastPage := (total + int64(pageSize) - 1) / int64(pageSize)
	return int64(page) > lastPage
}

// Page is one page of a listing plus total-count metadata.
type Page[T any] struct {
	Items      []T   `json:"items"`
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
}

// NewPage fills in the page arithmetic.
func NewPage[T any](items []T, page, pageSize int, total int64) Page[T] {
	if items == nil {
		items = []T{}
	}
	totalPages := 0
	if pageSize > 0 {
		totalPages = int((total + int64(pageSize) - 1) / int64(pageSize))
	}
	return Page[T]{
		Items:      items,
		Page:       page,
		PageSize:   pageSize,
		Total:      total,
		TotalPages: totalPages,
	}
}

// PostFilter narrows the discussion board listing.
type PostFilter struct {
	PostType string
	Subject  string
	Page     int
	PageSize int
}

// Offset returns the row offset for a 1-indexed page.
func (f PostFilter) Offset() int {
	return pageOffset(f.Page, f.PageSize)
}

// PastEnd reports whether the page lies beyond total matching rows.
func (f PostFilter) PastEnd(total int64) bool {
	return pastEnd(f.Page, f.PageSize, total)
}
