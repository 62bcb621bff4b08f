// Package dictionary looks words up in the external dictionary API. A word
// counts as correct when the API returns an entry whose headword matches it
// and whose functional label is an ordinary part of speech.
package dictionary

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"wordchain/internal/apperr"
	"wordchain/internal/domain"

	"github.com/prometheus/client_golang/prometheus"
)

var lookups = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "wordchain_dictionary_requests_total",
		Help: "Dictionary lookups by result",
	},
	[]string{"result"},
)

func init() {
	prometheus.MustRegister(lookups)
}

// validLabels are the functional labels accepted as real words. Entries like
// abbreviations or prefixes do not qualify.
var validLabels = map[string]struct{}{
	"noun":      {},
	"verb":      {},
	"adjective": {},
	"adverb":    {},
}

const maxDefinitions = 3

type Client struct {
	urlTemplate string
	apiKey      string
	httpClient  *http.Client
}

// NewClient builds a client from the URL template with {word} and {api_key}
// substitution slots.
func NewClient(urlTemplate, apiKey string) *Client {
	return &Client{
		urlTemplate: urlTemplate,
		apiKey:      apiKey,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// entry is the relevant slice of one dictionary API result object.
type entry struct {
	Meta struct {
		ID string `json:"id"`
	} `json:"meta"`
	Fl       string   `json:"fl"`
	ShortDef []string `json:"shortdef"`
}

// Check resolves the word against the API. A 5xx response surfaces as a
// DictionaryUnavailable error; the caller decides how to treat the turn.
func (c *Client) Check(ctx context.Context, word string) (domain.Word, error) {
	word = strings.ToLower(word)
	url := strings.NewReplacer("{word}", word, "{api_key}", c.apiKey).Replace(c.urlTemplate)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return domain.Word{}, apperr.Wrap(apperr.KindDictionaryUnavailable, "build dictionary request", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		lookups.WithLabelValues("error").Inc()
		return domain.Word{}, apperr.Wrap(apperr.KindDictionaryUnavailable, "dictionary request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusInternalServerError {
		lookups.WithLabelValues("error").Inc()
		return domain.Word{}, apperr.Newf(apperr.KindDictionaryUnavailable, "dictionary API returned %s", resp.Status)
	}
	if resp.StatusCode != http.StatusOK {
		lookups.WithLabelValues("not_found").Inc()
		return domain.Word{Content: word}, nil
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		lookups.WithLabelValues("error").Inc()
		return domain.Word{}, apperr.Wrap(apperr.KindDictionaryUnavailable, "read dictionary response", err)
	}

	entries, ok := parseEntries(body)
	if !ok {
		// A list of plain strings is the API's "did you mean" response.
		lookups.WithLabelValues("not_found").Inc()
		return domain.Word{Content: word}, nil
	}

	checked := matchEntries(word, entries)
	if checked.IsCorrect {
		lookups.WithLabelValues("found").Inc()
	} else {
		lookups.WithLabelValues("not_found").Inc()
	}
	return checked, nil
}

func parseEntries(body []byte) ([]entry, bool) {
	var entries []entry
	if err := json.Unmarshal(body, &entries); err != nil {
		return nil, false
	}
	// Suggestions decode into zero-valued entries; require a real headword.
	for _, e := range entries {
		if e.Meta.ID != "" {
			return entries, true
		}
	}
	return nil, false
}

// matchEntries keeps definitions from entries whose headword equals the
// queried word. Headwords carry homograph suffixes after a colon.
func matchEntries(word string, entries []entry) domain.Word {
	result := domain.Word{Content: word}
	for _, e := range entries {
		headword, _, _ := strings.Cut(e.Meta.ID, ":")
		if !strings.EqualFold(headword, word) {
			continue
		}
		if _, ok := validLabels[e.Fl]; !ok {
			continue
		}

		result.IsCorrect = true
		if len(result.Definitions) < maxDefinitions && len(e.ShortDef) > 0 {
			result.Definitions = append(result.Definitions, domain.WordDefinition{
				PartOfSpeech: e.Fl,
				Definitions:  e.ShortDef,
			})
		}
	}
	return result
}
