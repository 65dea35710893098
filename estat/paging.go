package estat

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"slices"
	"strconv"

	"github.com/go-gota/gota/dataframe"
)

// Page is one getStatsData response turned into a merged table
type Page struct {
	Frame dataframe.DataFrame
	Meta  Metadata
	Sets  []ClassificationSet
}

// PageFunc fetches and builds a single page for the given query parameters
type PageFunc func(ctx context.Context, params url.Values) (Page, error)

// Paginator collects tables that are larger than what the API returns in one request.
//
// Without a limit the table size is requested first. Tables up to PageCap are read
// with a single request, larger ones page through NEXT_KEY or, when the server
// gives no continuation token or PartitionStrategy is set, are split into one
// request per combination of codes of the largest classifications.
type Paginator struct {
	Page   PageFunc
	Params url.Values

	// Records per request, defaults to PageCap
	PageSize int
	// Total number of records to collect, 0 collects everything
	Max        int
	CountFirst bool
	Strategy   Strategy
}

func (p Paginator) pageSize() int {
	if p.PageSize <= 0 || p.PageSize > PageCap {
		return PageCap
	}
	return p.PageSize
}

// Run executes the pagination and returns the concatenated pages.
// An error on the first request is returned, later failures stop the pagination
// and the records collected so far are returned.
func (p Paginator) Run(ctx context.Context) (Page, error) {
	if !p.CountFirst {
		if p.Max > 0 && p.Max <= p.pageSize() {
			return p.Page(ctx, withLimit(p.Params, p.Max))
		}
		return p.tokenPages(ctx, p.Params)
	}

	sizing, err := p.Page(ctx, withLimit(p.Params, 1))
	if err != nil {
		return Page{}, err
	}

	total, ok := sizing.Meta.Total()
	if !ok || total <= PageCap {
		return p.Page(ctx, withoutLimit(p.Params))
	}
	slog.Info(fmt.Sprintf("Table %s holds %d records, more than the %d returned per request", sizing.Meta.StatsDataID, total, PageCap))

	if p.Strategy == PartitionStrategy || (sizing.Meta.NextKey == nil && total > 1) {
		page, err := p.partitionPages(ctx, sizing.Sets, total)
		if !errors.Is(err, errNoPartition) {
			return page, err
		}
		slog.Warn("No classification available to partition the query, paging with continuation tokens")
	}
	return p.tokenPages(ctx, p.Params)
}

// Strategy A, follows NEXT_KEY until it is absent or Max records were collected
func (p Paginator) tokenPages(ctx context.Context, params url.Values) (Page, error) {
	size := p.pageSize()
	start := 0
	if s, err := strconv.Atoi(params.Get("startPosition")); err == nil && s > 0 {
		start = s
	}

	var first Page
	var frames []dataframe.DataFrame
	collected := 0
	for n := 1; ; n++ {
		limit := size
		if p.Max > 0 && p.Max-collected < limit {
			limit = p.Max - collected
		}

		query := withLimit(params, limit)
		if start > 0 {
			query.Set("startPosition", strconv.Itoa(start))
		}

		page, err := p.Page(ctx, query)
		if err != nil {
			if n == 1 {
				return Page{}, err
			}
			slog.Warn(fmt.Sprintf("Stopping pagination at page %d, keeping %d records: %s", n, collected, err))
			break
		}
		if n == 1 {
			first = page
		}

		rows := page.Frame.Nrow()
		if rows == 0 {
			if n > 1 {
				slog.Warn(fmt.Sprintf("Page %d returned no records, stopping pagination", n))
			}
			break
		}
		frames = append(frames, page.Frame)
		collected += rows
		first.Meta.ToNumber = page.Meta.ToNumber
		first.Meta.NextKey = page.Meta.NextKey
		slog.Info(fmt.Sprintf("Page %d: %d records, %d collected", n, rows, collected))

		if page.Meta.NextKey == nil || (p.Max > 0 && collected >= p.Max) {
			break
		}
		start = *page.Meta.NextKey
	}

	if len(frames) > 0 {
		first.Frame = concatFrames(frames)
	}
	return first, nil
}

var errNoPartition = errors.New("no classification to partition on")

// Dimensions and codes to partition on, largest classifications first, adding
// dimensions until the expected records per request drop below PageCap
func partitionPlan(sets []ClassificationSet, total int) ([]Dimension, [][]string) {
	candidates := make([]ClassificationSet, 0, len(sets))
	for _, s := range sets {
		if Dimension(s.ID).Valid() && len(s.uniqueEntries()) > 1 {
			candidates = append(candidates, s)
		}
	}
	slices.SortStableFunc(candidates, func(a, b ClassificationSet) int {
		return cmp.Compare(len(b.uniqueEntries()), len(a.uniqueEntries()))
	})

	var dims []Dimension
	var codes [][]string
	remaining := total
	for _, s := range candidates {
		entries := s.uniqueEntries()
		list := make([]string, len(entries))
		for i, e := range entries {
			list[i] = e.Code
		}
		dims = append(dims, Dimension(s.ID))
		codes = append(codes, list)

		remaining /= len(entries)
		if remaining < PageCap {
			break
		}
	}
	return dims, codes
}

// Cartesian product of the code lists, the first list varies slowest
func codeCombinations(codes [][]string) [][]string {
	out := [][]string{{}}
	for _, list := range codes {
		next := make([][]string, 0, len(out)*len(list))
		for _, prefix := range out {
			for _, c := range list {
				combo := append(slices.Clone(prefix), c)
				next = append(next, combo)
			}
		}
		out = next
	}
	return out
}

// Strategy B, one query per combination of codes. Failed partitions are
// logged and left out, an error is only returned if every partition failed.
func (p Paginator) partitionPages(ctx context.Context, sets []ClassificationSet, total int) (Page, error) {
	dims, codes := partitionPlan(sets, total)
	if len(dims) == 0 {
		return Page{}, errNoPartition
	}

	combos := codeCombinations(codes)
	slog.Info(fmt.Sprintf("Partitioning the query on %v into %d requests", dims, len(combos)))

	var first Page
	var frames []dataframe.DataFrame
	var lastErr error
	failed := 0
	for i, combo := range combos {
		if err := ctx.Err(); err != nil {
			return Page{}, err
		}

		params := withoutLimit(p.Params)
		for j, dim := range dims {
			params.Set(dim.CodeParam(), combo[j])
		}

		page, err := p.tokenPages(ctx, params)
		if err != nil {
			failed++
			lastErr = err
			slog.Warn(fmt.Sprintf("Partition %d/%d %v=%v failed, skipping: %s", i+1, len(combos), dims, combo, err))
			continue
		}
		if len(frames) == 0 {
			first = page
		}
		frames = append(frames, page.Frame)
	}

	if failed == len(combos) {
		return Page{}, fmt.Errorf("all %d partitions failed: %w", failed, lastErr)
	}

	first.Frame = concatFrames(frames)
	first.Meta.NextKey = nil
	return first, nil
}

func withLimit(params url.Values, limit int) url.Values {
	out := cloneValues(params)
	out.Set("limit", strconv.Itoa(limit))
	return out
}

func withoutLimit(params url.Values) url.Values {
	out := cloneValues(params)
	out.Del("limit")
	return out
}

func cloneValues(v url.Values) url.Values {
	out := make(url.Values, len(v))
	for k, vals := range v {
		out[k] = slices.Clone(vals)
	}
	return out
}
