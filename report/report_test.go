package report

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderHTMLPostsIndexFile(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/forms/chromium/convert/html", r.URL.Path)
		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "true", r.FormValue("landscape"))
		file, header, err := r.FormFile("files")
		require.NoError(t, err)
		defer file.Close()
		assert.Equal(t, "index.html", header.Filename)
		body, _ := io.ReadAll(file)
		assert.Contains(t, string(body), "Laporan")
		_, _ = w.Write([]byte("%PDF"))
	}))
	defer srv.Close()

	pdf, err := NewClient(srv.URL+"/", time.Second).RenderHTML(context.Background(), "<h1>Laporan</h1>")
	require.NoError(t, err)
	assert.Equal(t, "%PDF", string(pdf))
}

func TestRenderHTMLReportsStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "chromium down", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, time.Second).RenderHTML(context.Background(), "<p></p>")
	var renderErr *RenderError
	require.ErrorAs(t, err, &renderErr)
	assert.Equal(t, http.StatusServiceUnavailable, renderErr.Status)
	assert.Contains(t, renderErr.Body, "chromium down")
}

func TestDocumentEscapesValues(t *testing.T) {
	html, err := Document{
		Title:   "Laporan Setoran",
		Summary: [][2]string{{"Total", "12"}},
		Tables: []Table{{
			Heading: "Rincian",
			Columns: []string{"Nama"},
			Rows:    [][]string{{"<script>alert(1)</script>"}},
		}},
	}.HTML()
	require.NoError(t, err)
	assert.Contains(t, html, "Laporan Setoran")
	assert.Contains(t, html, "&lt;script&gt;")
	assert.NotContains(t, html, "<script>")
}
