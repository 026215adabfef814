package pagination

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name       string
		page       int
		limit      int
		wantPage   int
		wantLimit  int
		wantOffset int
	}{
		{name: "defaults applied", page: 0, limit: 0, wantPage: 1, wantLimit: 10, wantOffset: 0},
		{name: "negative page clamps to first", page: -3, limit: 20, wantPage: 1, wantLimit: 20, wantOffset: 0},
		{name: "limit capped at max", page: 2, limit: 500, wantPage: 2, wantLimit: 100, wantOffset: 100},
		{name: "plain values pass through", page: 3, limit: 25, wantPage: 3, wantLimit: 25, wantOffset: 50},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := Normalize(tt.page, tt.limit)
			assert.Equal(t, tt.wantPage, p.Page)
			assert.Equal(t, tt.wantLimit, p.Limit)
			assert.Equal(t, tt.wantOffset, p.Offset)
		})
	}
}

func TestNewMeta(t *testing.T) {
	tests := []struct {
		name        string
		page        int
		limit       int
		count       int
		total       int64
		wantPages   int
		wantHasMore bool
	}{
		{name: "first of several pages", page: 1, limit: 10, count: 10, total: 35, wantPages: 4, wantHasMore: true},
		{name: "last partial page", page: 4, limit: 10, count: 5, total: 35, wantPages: 4, wantHasMore: false},
		{name: "exact multiple", page: 2, limit: 10, count: 10, total: 20, wantPages: 2, wantHasMore: false},
		{name: "empty result", page: 1, limit: 10, count: 0, total: 0, wantPages: 0, wantHasMore: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			meta := NewMeta(Normalize(tt.page, tt.limit), tt.count, tt.total)
			assert.Equal(t, tt.page, meta.CurrentPage)
			assert.Equal(t, tt.wantPages, meta.TotalPages)
			assert.Equal(t, tt.total, meta.TotalCount)
			assert.Equal(t, tt.wantHasMore, meta.HasMore)
		})
	}
}

// Pages under a stable sort must tile the result set: summing page sizes
// reaches the total with no overlap.
func TestPagesTileTotal(t *testing.T) {
	total := int64(43)
	limit := 10

	var seen int64
	page := 1
	for {
		p := Normalize(page, limit)
		remaining := total - int64(p.Offset)
		if remaining <= 0 {
			break
		}
		count := limit
		if remaining < int64(limit) {
			count = int(remaining)
		}
		seen += int64(count)

		meta := NewMeta(p, count, total)
		if !meta.HasMore {
			break
		}
		page++
	}

	assert.Equal(t, total, seen)
}
