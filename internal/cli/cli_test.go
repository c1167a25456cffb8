package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type env struct {
	dir    string
	config string
}

func newEnv(t *testing.T, extra string) env {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	cfg := fmt.Sprintf(`
catalog:
  driver: sqlite
  dsn: %s
fetch:
  rate_per_second: 0
  jitter: 0s
pipeline:
  workers: 2
%s`, filepath.Join(dir, "data", "catalog.db"), extra)
	path := filepath.Join(dir, "petcatalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte(cfg), 0o644))
	return env{dir: dir, config: path}
}

func (e env) run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(append([]string{"--config", e.config}, args...))
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func (e env) writeCSV(t *testing.T) string {
	t.Helper()
	path := filepath.Join(e.dir, "products.csv")
	require.NoError(t, os.WriteFile(path, []byte(
		"brand,name,ingredients,analysis,price,package\n"+
			"Acme,Adult Chicken,\"Chicken, rice\",\"Protein 24%, Fat 12%\",€29.99,12 kg\n"+
			"Acme,Puppy Lamb,Lamb,,,\n"+
			",Nameless Brand,,,,\n",
	), 0o644))
	return path
}

func TestImportExportDelete(t *testing.T) {
	e := newEnv(t, "")

	_, err := e.run(t, "", "import", "csv", e.writeCSV(t))
	require.NoError(t, err)

	out, err := e.run(t, "", "export", "products", "--out", "-")
	require.NoError(t, err)
	assert.Contains(t, out, "Adult Chicken")
	assert.Contains(t, out, "Puppy Lamb")
	assert.NotContains(t, out, "Nameless Brand")

	out, err = e.run(t, "", "export", "products", "--name", "puppy lamb", "--out", "-")
	require.NoError(t, err)
	assert.NotContains(t, out, "Adult Chicken")

	out, err = e.run(t, "no\n", "delete", "products", "--name", "Puppy Lamb")
	require.NoError(t, err)
	assert.Contains(t, out, "name: Puppy Lamb")
	assert.Contains(t, out, "Cancelled.")

	_, err = e.run(t, "", "delete", "products", "--name", "Puppy Lamb", "--yes")
	require.NoError(t, err)

	path := filepath.Join(e.dir, "products.out.csv")
	_, err = e.run(t, "", "export", "products", "--out", path)
	require.NoError(t, err)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Adult Chicken")
	assert.NotContains(t, string(data), "Puppy Lamb")
}

func TestImportMissingFile(t *testing.T) {
	e := newEnv(t, "")
	_, err := e.run(t, "", "import", "csv", filepath.Join(e.dir, "nope.csv"))
	assert.ErrorContains(t, err, "failed to fetch")
}

func TestDeleteNeedsFilter(t *testing.T) {
	e := newEnv(t, "")
	_, err := e.run(t, "", "delete", "breeds", "--yes")
	assert.ErrorContains(t, err, "at least one filter")

	_, err = e.run(t, "", "delete", "cats", "--key", "x", "--yes")
	assert.ErrorContains(t, err, "unknown record kind")
}

func TestBrands(t *testing.T) {
	e := newEnv(t, "")

	out, err := e.run(t, "", "brands", "check", "Hill's Science Plan", "Totally New Brand")
	require.NoError(t, err)
	assert.Contains(t, out, "totally_new_brand")
	assert.Contains(t, out, "slugify")

	_, err = e.run(t, "", "brands", "sync")
	require.NoError(t, err)
}

func TestAuditAndViews(t *testing.T) {
	e := newEnv(t, "")
	_, err := e.run(t, "", "import", "csv", e.writeCSV(t))
	require.NoError(t, err)

	_, err = e.run(t, "", "views", "refresh")
	require.NoError(t, err)

	report := filepath.Join(e.dir, "reports", "audit.yaml")
	out, err := e.run(t, "", "audit", "--out", report)
	require.NoError(t, err)
	assert.Contains(t, out, "Product coverage")
	assert.Contains(t, out, "acme")

	data, err := os.ReadFile(report)
	require.NoError(t, err)
	assert.Contains(t, string(data), "brand_slug: acme")
}

func TestScrapeProductsFromOPFF(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"count": 1,
			"products": []map[string]any{{
				"code": "7", "product_name": "Wild Prairie", "brands": "Acana",
				"categories": "Dry dog food", "quantity": "11.4 kg",
				"nutriments": map[string]any{"proteins_100g": 33.0, "fat_100g": 17.0},
			}},
		})
	}))
	defer server.Close()

	e := newEnv(t, fmt.Sprintf(`
sources:
  opff:
    base_url: %s
    rate_per_second: 0
`, server.URL))

	_, err := e.run(t, "", "scrape", "products", "--source", "opff")
	assert.ErrorContains(t, err, "brands")

	_, err = e.run(t, "", "scrape", "products", "--source", "opff", "--brands", "Acana")
	require.NoError(t, err)

	out, err := e.run(t, "", "export", "products", "--source", "OPFF", "--out", "-")
	require.NoError(t, err)
	assert.Contains(t, out, "Wild Prairie")

	_, err = e.run(t, "", "scrape", "products", "--source", "nowhere")
	assert.ErrorContains(t, err, "unknown product source")
}

func TestScrapeBreedsFromWikipedia(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/wiki/Beagle" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, `<html><body>
<h1 id="firstHeading">Beagle</h1>
<div id="mw-content-text"><div class="mw-parser-output">
<table class="infobox"><tr><th>Life span</th><td>12–15 years</td></tr></table>
<h2>Temperament</h2><p>Friendly and gentle, good with children.</p>
</div></div></body></html>`)
	}))
	defer server.Close()

	e := newEnv(t, fmt.Sprintf(`
sources:
  wikipedia:
    base_url: %s
`, server.URL))

	_, err := e.run(t, "", "scrape", "breeds", "--source", "wikipedia", "--breeds", "Beagle")
	require.NoError(t, err)

	out, err := e.run(t, "", "export", "breeds", "--key", "beagle", "--out", "-")
	require.NoError(t, err)
	assert.Contains(t, out, "Beagle")
	assert.Contains(t, out, "Friendly and gentle")
}

func TestInvalidConfig(t *testing.T) {
	e := newEnv(t, "extraction: {range_policy: clamp}")
	_, err := e.run(t, "", "views", "refresh")
	assert.ErrorContains(t, err, "invalid configuration")
}
