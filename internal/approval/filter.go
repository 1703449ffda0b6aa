package approval

import (
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/mendaur/mendaur-admin/internal/gateway"
	"github.com/mendaur/mendaur-admin/internal/shared"
)

const dateLayout = "2006-01-02"

// ParseFilter reads search, status, from, to, page and per_page. Malformed
// dates and numbers are ignored.
func ParseFilter(q url.Values) Filter {
	f := Filter{
		Search: strings.TrimSpace(q.Get("search")),
		Status: strings.TrimSpace(q.Get("status")),
	}
	if t, err := time.Parse(dateLayout, q.Get("from")); err == nil {
		f.From = t
	}
	if t, err := time.Parse(dateLayout, q.Get("to")); err == nil {
		f.To = t
	}
	if n, err := strconv.Atoi(q.Get("page")); err == nil {
		f.Page = n
	}
	if n, err := strconv.Atoi(q.Get("per_page")); err == nil && n <= 100 {
		f.PerPage = n
	}
	return f
}

// Apply returns the items matching f in their original order. It never
// mutates items.
func Apply(items []gateway.Item, f Filter) []gateway.Item {
	search := strings.ToLower(strings.TrimSpace(f.Search))
	status := strings.ToLower(strings.TrimSpace(f.Status))
	if status == "all" || status == "semua" {
		status = ""
	}
	var until time.Time
	if !f.To.IsZero() {
		until = f.To.AddDate(0, 0, 1)
	}
	out := make([]gateway.Item, 0, len(items))
	for _, item := range items {
		if status != "" && strings.ToLower(item.Status) != status {
			continue
		}
		if !f.From.IsZero() && item.CreatedAt.Before(f.From) {
			continue
		}
		if !until.IsZero() && !item.CreatedAt.Before(until) {
			continue
		}
		if search != "" && !matches(item, search) {
			continue
		}
		out = append(out, item)
	}
	return out
}

func matches(item gateway.Item, needle string) bool {
	fields := []string{
		strconv.FormatInt(item.ID, 10),
		strconv.FormatInt(item.UserID, 10),
		item.NamaUser,
		item.JenisSampah,
		item.NamaProduk,
		item.NamaBank,
		item.NomorRekening,
		item.NamaPemilikRekening,
	}
	for _, field := range fields {
		if field != "" && strings.Contains(strings.ToLower(field), needle) {
			return true
		}
	}
	return false
}

// paginate filters and slices a snapshot into a Page.
func paginate(kind Kind, snap Snapshot, f Filter) Page {
	filtered := Apply(snap.Items, f)
	pg := shared.NewPagination(f.Page, f.PerPage, len(filtered))
	start, end := pg.Bounds()
	return Page{
		Kind:       kind,
		Items:      filtered[start:end],
		Pagination: pg,
		Degraded:   snap.Degraded,
		FetchedAt:  snap.FetchedAt,
	}
}
