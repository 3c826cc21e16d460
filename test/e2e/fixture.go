package e2e

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/abelbrown/medwatch/internal/config"
	"github.com/abelbrown/medwatch/internal/model"
)

// fixtureServer serves one RSS feed and a PubMed E-utilities stub.
func fixtureServer() *httptest.Server {
	now := time.Now().UTC()
	mux := http.NewServeMux()

	mux.HandleFunc("/feeds/oncologie.xml", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		fmt.Fprintf(w, `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0"><channel><title>Fixture</title>
<item><title>Fixture immunothérapie du cancer</title><link>https://example.org/1</link>
<description>&lt;p&gt;Un nouveau traitement pour les patients.&lt;/p&gt;</description>
<pubDate>%s</pubDate></item>
<item><title>Fixture chimiothérapie ambulatoire</title><link>https://example.org/2</link>
<description>Santé et soins à domicile.</description>
<pubDate>%s</pubDate></item>
<item><title>Fixture archive de 2019</title><link>https://example.org/3</link>
<description>Cancer.</description>
<pubDate>%s</pubDate></item>
</channel></rss>`,
			now.Add(-2*time.Hour).Format(time.RFC1123Z),
			now.Add(-5*24*time.Hour).Format(time.RFC1123Z),
			now.Add(-500*24*time.Hour).Format(time.RFC1123Z))
	})

	mux.HandleFunc("/eutils/esearch.fcgi", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"esearchresult":{"idlist":["4242"]}}`)
	})
	mux.HandleFunc("/eutils/esummary.fcgi", func(w http.ResponseWriter, r *http.Request) {
		doc := map[string]any{
			"title":   "Fixture clinical trial of checkpoint inhibitors",
			"source":  "Fixture J Oncol",
			"pubdate": now.AddDate(0, 0, -10).Format("2006 Jan 2"),
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"result": map[string]any{"uids": []string{"4242"}, "4242": doc},
		})
	})

	return httptest.NewServer(mux)
}

// writeFixtureConfig points a fresh ~/.medwatch/config.json at srv.
func writeFixtureConfig(homeDir string, srv *httptest.Server) error {
	dataDir := filepath.Join(homeDir, ".medwatch")
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return err
	}

	cfg := config.DefaultConfig()
	cfg.Categories = []model.Category{{
		Key:     "oncology",
		Name:    "Oncologie",
		Color:   "rose",
		Queries: []string{"cancer immunotherapy"},
		Sources: []model.Source{{Name: "Fixture Onco", URL: srv.URL + "/feeds/oncologie.xml", Official: true}},
	}}
	cfg.Fetch.Proxies = []string{"direct"}
	cfg.Fetch.TimeoutSec = 5
	cfg.PubMed.BaseURL = srv.URL + "/eutils"
	cfg.Refresh = ""
	return cfg.SaveTo(filepath.Join(dataDir, "config.json"))
}

// fixtureEnv is the environment for a binary run against homeDir.
func fixtureEnv(homeDir string) []string {
	env := []string{"HOME=" + homeDir, "TERM=xterm-256color"}
	for _, kv := range os.Environ() {
		if strings.HasPrefix(kv, "HOME=") || strings.HasPrefix(kv, "MEDWATCH_") || strings.HasPrefix(kv, "TERM=") {
			continue
		}
		env = append(env, kv)
	}
	return env
}
