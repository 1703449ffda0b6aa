package dashboard

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/mendaur/mendaur-admin/internal/approval"
	"github.com/mendaur/mendaur-admin/internal/auth"
	"github.com/mendaur/mendaur-admin/internal/gateway"
	"github.com/mendaur/mendaur-admin/internal/rbac"
	"github.com/mendaur/mendaur-admin/internal/shared"
	"github.com/mendaur/mendaur-admin/report"
)

// Report summarises one approval queue over a filter.
type Report struct {
	Kind     approval.Kind  `json:"kind"`
	Title    string         `json:"title"`
	From     time.Time      `json:"from,omitempty"`
	To       time.Time      `json:"to,omitempty"`
	Count    int            `json:"count"`
	ByStatus map[string]int `json:"by_status"`
	// Totals cover settled items only (approved, or completed withdrawals).
	TotalWeightKg float64        `json:"total_weight_kg"`
	TotalPoints   int            `json:"total_points"`
	TotalAmount   float64        `json:"total_amount"`
	Items         []gateway.Item `json:"items"`
	Degraded      bool           `json:"degraded"`
	GeneratedAt   time.Time      `json:"generated_at"`
}

// Summarize counts items by status and totals the settled ones. Pagination
// fields of f are ignored.
func Summarize(kind approval.Kind, items []gateway.Item, f approval.Filter) Report {
	f.Page, f.PerPage = 0, 0
	filtered := approval.Apply(items, f)
	rep := Report{
		Kind:     kind,
		Title:    "Laporan " + kind.Label(),
		From:     f.From,
		To:       f.To,
		Count:    len(filtered),
		ByStatus: map[string]int{},
		Items:    filtered,
	}
	settled := kind.ApprovedStatus()
	for _, item := range filtered {
		status := strings.ToLower(item.Status)
		rep.ByStatus[status]++
		if status != settled {
			continue
		}
		switch kind {
		case approval.KindDeposit:
			rep.TotalWeightKg += item.BeratKg.Float()
			rep.TotalPoints += item.PoinDidapat
		case approval.KindRedemption:
			rep.TotalPoints += item.PoinDigunakan
		case approval.KindWithdrawal:
			rep.TotalAmount += item.JumlahPenarikan.Float()
		}
	}
	return rep
}

// Filename is the download name for the report with the given extension.
func (r Report) Filename(ext string) string {
	stamp := r.GeneratedAt
	if stamp.IsZero() {
		stamp = time.Now()
	}
	return fmt.Sprintf("laporan-%s-%s.%s", r.Kind, stamp.Format("20060102"), ext)
}

func (r Report) columns() []string {
	switch r.Kind {
	case approval.KindRedemption:
		return []string{"ID", "Tanggal", "Nasabah", "Produk", "Jumlah", "Poin", "Status"}
	case approval.KindWithdrawal:
		return []string{"ID", "Tanggal", "Nasabah", "Bank", "No. Rekening", "Jumlah", "Status"}
	}
	return []string{"ID", "Tanggal", "Nasabah", "Jenis Sampah", "Berat (kg)", "Poin", "Status"}
}

func (r Report) rows() [][]string {
	rows := make([][]string, 0, len(r.Items))
	for _, item := range r.Items {
		row := []string{strconv.FormatInt(item.ID, 10), formatDate(item.CreatedAt), item.NamaUser}
		switch r.Kind {
		case approval.KindRedemption:
			row = append(row, item.NamaProduk, shared.FormatInt(int64(item.Jumlah)), shared.FormatInt(int64(item.PoinDigunakan)))
		case approval.KindWithdrawal:
			row = append(row, item.NamaBank, item.NomorRekening, shared.FormatRupiah(item.JumlahPenarikan.Float()))
		default:
			points := item.PoinDidapat
			if points == 0 {
				points = item.PoinPending
			}
			row = append(row, item.JenisSampah, shared.FormatDecimal(item.BeratKg.Float(), 2), shared.FormatInt(int64(points)))
		}
		rows = append(rows, append(row, item.Status))
	}
	return rows
}

func (r Report) summary() [][2]string {
	out := [][2]string{{"Jumlah pengajuan", shared.FormatInt(int64(r.Count))}}
	for _, status := range []string{approval.StatusPending, approval.StatusApproved, approval.StatusCompleted, approval.StatusRejected} {
		if n, ok := r.ByStatus[status]; ok {
			out = append(out, [2]string{"Status " + status, shared.FormatInt(int64(n))})
		}
	}
	switch r.Kind {
	case approval.KindDeposit:
		out = append(out,
			[2]string{"Total berat (kg)", shared.FormatDecimal(r.TotalWeightKg, 2)},
			[2]string{"Total poin", shared.FormatInt(int64(r.TotalPoints))})
	case approval.KindRedemption:
		out = append(out, [2]string{"Total poin", shared.FormatInt(int64(r.TotalPoints))})
	case approval.KindWithdrawal:
		out = append(out, [2]string{"Total penarikan", shared.FormatRupiah(r.TotalAmount)})
	}
	return out
}

func (r Report) period() string {
	switch {
	case r.From.IsZero() && r.To.IsZero():
		return "Semua periode"
	case r.To.IsZero():
		return "Sejak " + r.From.Format("02-01-2006")
	case r.From.IsZero():
		return "Sampai " + r.To.Format("02-01-2006")
	}
	return r.From.Format("02-01-2006") + " s.d. " + r.To.Format("02-01-2006")
}

func formatDate(ts gateway.Timestamp) string {
	if ts.IsZero() {
		return "-"
	}
	return ts.Format("02-01-2006")
}

// WriteCSV serialises the report rows followed by the summary block.
func WriteCSV(w io.Writer, r Report) error {
	writer := csv.NewWriter(w)
	defer writer.Flush()

	if err := writer.Write(r.columns()); err != nil {
		return err
	}
	for _, row := range r.rows() {
		if err := writer.Write(row); err != nil {
			return err
		}
	}
	if err := writer.Write([]string{}); err != nil {
		return err
	}
	for _, pair := range r.summary() {
		if err := writer.Write(pair[:]); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// Document lays the report out for PDF rendering.
func (r Report) Document() report.Document {
	doc := report.Document{
		Title:     r.Title,
		Subtitle:  r.period(),
		Generated: r.GeneratedAt,
		Summary:   r.summary(),
		Tables:    []report.Table{{Heading: "Rincian", Columns: r.columns(), Rows: r.rows()}},
	}
	if r.Degraded {
		doc.Note = "Server tidak dapat dihubungi, data contoh ditampilkan."
	}
	return doc
}

// ExportCSV writes the filtered report as CSV.
func (s *Service) ExportCSV(ctx context.Context, identity *auth.Identity, kind approval.Kind, f approval.Filter, w io.Writer) (Report, error) {
	if err := s.authorize(identity, rbac.PermExportReports); err != nil {
		return Report{}, err
	}
	rep, err := s.report(ctx, identity, kind, f)
	if err != nil {
		return Report{}, err
	}
	return rep, WriteCSV(w, rep)
}

// ExportPDF renders the filtered report through the PDF renderer.
func (s *Service) ExportPDF(ctx context.Context, identity *auth.Identity, kind approval.Kind, f approval.Filter) (Report, []byte, error) {
	if err := s.authorize(identity, rbac.PermExportReports); err != nil {
		return Report{}, nil, err
	}
	if s.renderer == nil {
		return Report{}, nil, ErrRendererUnavailable
	}
	rep, err := s.report(ctx, identity, kind, f)
	if err != nil {
		return Report{}, nil, err
	}
	html, err := rep.Document().HTML()
	if err != nil {
		return Report{}, nil, err
	}
	pdf, err := s.renderer.RenderHTML(ctx, html)
	if err != nil {
		return Report{}, nil, fmt.Errorf("dashboard: render pdf: %w", err)
	}
	return rep, pdf, nil
}
