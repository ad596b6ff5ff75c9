// pattern: Functional Core

package worktree

import (
	"strconv"
	"strings"
)

const (
	DefaultPage     = 1
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// ListQuery is a validated listing request.
type ListQuery struct {
	FilterName string
	FilterBase string
	Page       int
	PageSize   int
}

// ListPage is one page of filtered records.
type ListPage struct {
	Items    []Record `json:"items"`
	Page     int      `json:"page"`
	PageSize int      `json:"pageSize"`
	Total    int      `json:"total"`
	Warnings []string `json:"warnings,omitempty"`
}

// BuildListQuery validates raw listing parameters. Empty page and pageSize
// select the defaults. Out of range values are rejected, never clamped.
func BuildListQuery(filterName, filterBase, page, pageSize string) (ListQuery, error) {
	q := ListQuery{
		FilterName: filterName,
		FilterBase: filterBase,
		Page:       DefaultPage,
		PageSize:   DefaultPageSize,
	}

	if page != "" {
		n, err := strconv.Atoi(strings.TrimSpace(page))
		if err != nil || n < 1 {
			return ListQuery{}, newError(KindInvalidArgument, "list", "page",
				"page must be a positive integer")
		}
		q.Page = n
	}

	if pageSize != "" {
		n, err := strconv.Atoi(strings.TrimSpace(pageSize))
		if err != nil || n < 1 || n > MaxPageSize {
			return ListQuery{}, newError(KindInvalidArgument, "list", "page-size",
				"page size must be an integer between 1 and 100")
		}
		q.PageSize = n
	}

	return q, nil
}

// Apply filters records and returns the requested page. records must
// already be sorted by name. Total counts filtered records before paging;
// a page past the end yields no items.
func (q ListQuery) Apply(records []Record) ListPage {
	needle := strings.ToLower(q.FilterName)
	filtered := make([]Record, 0, len(records))
	for _, rec := range records {
		if needle != "" && !strings.Contains(strings.ToLower(rec.Name), needle) {
			continue
		}
		if q.FilterBase != "" && rec.BaseRef != q.FilterBase {
			continue
		}
		filtered = append(filtered, rec)
	}

	out := ListPage{
		Items:    []Record{},
		Page:     q.Page,
		PageSize: q.PageSize,
		Total:    len(filtered),
	}

	if q.PageSize < 1 {
		return out
	}
	// Compare in pages so a huge page number cannot overflow the offset.
	pages := (len(filtered) + q.PageSize - 1) / q.PageSize
	if q.Page < 1 || q.Page > pages {
		return out
	}
	start := (q.Page - 1) * q.PageSize
	end := min(start+q.PageSize, len(filtered))
	out.Items = filtered[start:end]
	return out
}
