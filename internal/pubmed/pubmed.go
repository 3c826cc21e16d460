// Package pubmed queries the NCBI E-utilities as an English-language
// fallback for sparse categories. Every failure degrades to no results.
package pubmed

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/abelbrown/medwatch/internal/fetch"
	"github.com/abelbrown/medwatch/internal/model"
	"github.com/abelbrown/medwatch/internal/otel"
)

// DefaultBaseURL is the E-utilities endpoint.
const DefaultBaseURL = "https://eutils.ncbi.nlm.nih.gov/entrez/eutils"

// MaxResults is the number of ids requested from esearch.
const MaxResults = 15

// SourceName tags every article produced here.
const SourceName = "PubMed"

// Getter is the proxy fetcher contract.
type Getter interface {
	Get(ctx context.Context, target string) fetch.Result
}

// Client runs the two-step id search + summary lookup.
type Client struct {
	getter  Getter
	baseURL string
	logger  *otel.Logger
}

// NewClient creates a Client. An empty baseURL uses DefaultBaseURL.
func NewClient(g Getter, baseURL string, l *otel.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if l == nil {
		l = otel.NewNullLogger()
	}
	return &Client{getter: g, baseURL: strings.TrimRight(baseURL, "/"), logger: l}
}

type searchResponse struct {
	Result struct {
		IDList []string `json:"idlist"`
	} `json:"esearchresult"`
}

type summaryDoc struct {
	Title     string `json:"title"`
	SortTitle string `json:"sorttitle"`
	Source    string `json:"source"`
	PubDate   string `json:"pubdate"`
}

type summaryResponse struct {
	Result map[string]json.RawMessage `json:"result"`
}

// SearchURL builds the esearch request for queries joined with OR.
func (c *Client) SearchURL(queries []string) string {
	v := url.Values{}
	v.Set("db", "pubmed")
	v.Set("term", strings.Join(queries, " OR "))
	v.Set("retmax", fmt.Sprint(MaxResults))
	v.Set("sort", "date")
	v.Set("retmode", "json")
	return c.baseURL + "/esearch.fcgi?" + v.Encode()
}

// SummaryURL builds the batched esummary request.
func (c *Client) SummaryURL(ids []string) string {
	v := url.Values{}
	v.Set("db", "pubmed")
	v.Set("id", strings.Join(ids, ","))
	v.Set("retmode", "json")
	return c.baseURL + "/esummary.fcgi?" + v.Encode()
}

// Search returns up to MaxResults English articles for queries, most
// recent first as ranked by PubMed. ok is false when either request
// failed; an empty answer is not a failure.
func (c *Client) Search(ctx context.Context, queries []string, now time.Time) (articles []model.Article, ok bool) {
	if len(queries) == 0 {
		return nil, true
	}
	start := time.Now()

	ids, err := c.searchIDs(ctx, queries)
	if err != nil {
		c.fail(ctx, err)
		return nil, false
	}
	if len(ids) == 0 {
		return nil, true
	}

	docs, err := c.summaries(ctx, ids)
	if err != nil {
		c.fail(ctx, err)
		return nil, false
	}

	articles = make([]model.Article, 0, len(ids))
	for _, id := range ids {
		doc, found := docs[id]
		if !found {
			continue
		}
		a, keep := toArticle(id, doc, now)
		if !keep {
			continue
		}
		articles = append(articles, a)
	}

	c.logger.Emit(otel.Event{
		Level: otel.LevelInfo,
		Kind:  otel.KindPubMedSearch,
		Comp:  "pubmed",
		RunID: otel.RunID(ctx),
		Count: len(articles),
		Dur:   time.Since(start),
		Msg:   strings.Join(queries, " OR "),
	})
	return articles, true
}

func (c *Client) fail(ctx context.Context, err error) {
	c.logger.Emit(otel.Event{Level: otel.LevelWarn, Kind: otel.KindPubMedError, Comp: "pubmed", RunID: otel.RunID(ctx), Err: err.Error()})
}

func (c *Client) searchIDs(ctx context.Context, queries []string) ([]string, error) {
	res := c.getter.Get(ctx, c.SearchURL(queries))
	if !res.OK {
		return nil, fmt.Errorf("esearch: all proxies failed")
	}
	var sr searchResponse
	if err := json.Unmarshal(res.Body, &sr); err != nil {
		return nil, fmt.Errorf("esearch: decode: %w", err)
	}
	ids := sr.Result.IDList
	if len(ids) > MaxResults {
		ids = ids[:MaxResults]
	}
	return ids, nil
}

// summaries decodes the esummary result map. The map also carries a
// "uids" array, which is skipped.
func (c *Client) summaries(ctx context.Context, ids []string) (map[string]summaryDoc, error) {
	res := c.getter.Get(ctx, c.SummaryURL(ids))
	if !res.OK {
		return nil, fmt.Errorf("esummary: all proxies failed")
	}
	var sr summaryResponse
	if err := json.Unmarshal(res.Body, &sr); err != nil {
		return nil, fmt.Errorf("esummary: decode: %w", err)
	}

	docs := make(map[string]summaryDoc, len(ids))
	for _, id := range ids {
		raw, ok := sr.Result[id]
		if !ok {
			continue
		}
		var doc summaryDoc
		if err := json.Unmarshal(raw, &doc); err != nil {
			continue
		}
		docs[id] = doc
	}
	return docs, nil
}

func toArticle(id string, doc summaryDoc, now time.Time) (model.Article, bool) {
	title := strings.TrimSpace(doc.Title)
	if title == "" {
		return model.Article{}, false
	}
	published := ParseDate(doc.PubDate, now)
	if !model.IsFresh(published, now) {
		return model.Article{}, false
	}

	abstract := strings.TrimSpace(doc.SortTitle)
	if abstract == "" {
		abstract = title
	}

	return model.Article{
		ID:           "pubmed-" + id,
		Title:        title,
		Abstract:     abstract,
		Journal:      doc.Source,
		Source:       SourceName,
		Published:    published,
		PublishedRaw: doc.PubDate,
		URL:          "https://pubmed.ncbi.nlm.nih.gov/" + id + "/",
		Lang:         model.LangEN,
		IsNew:        model.IsNew(published, now),
	}, true
}
