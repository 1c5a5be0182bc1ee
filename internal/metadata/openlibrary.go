package metadata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

// DefaultOpenLibraryURL is the public OpenLibrary API.
const DefaultOpenLibraryURL = "https://openlibrary.org"

const userAgent = "LocalLibrary/1.0 (catalog metadata enrichment)"

var (
	ErrInvalidISBN = errors.New("invalid ISBN")
	ErrNotFound    = errors.New("no metadata found")
)

// BookMetadata contains book information from external sources.
type BookMetadata struct {
	Title          string   `json:"title,omitempty"`
	Author         string   `json:"author,omitempty"`
	ISBN           string   `json:"isbn,omitempty"`
	Description    string   `json:"description,omitempty"`
	Subjects       []string `json:"subjects,omitempty"`
	Publisher      string   `json:"publisher,omitempty"`
	OpenLibraryKey string   `json:"open_library_key,omitempty"`
}

// OpenLibraryClient fetches book metadata from the OpenLibrary API.
type OpenLibraryClient struct {
	httpClient  *http.Client
	baseURL     string
	rateLimiter *rateLimiter
}

type rateLimiter struct {
	mu       sync.Mutex
	lastCall time.Time
	interval time.Duration
}

// wait blocks until the next call is allowed or ctx is done.
func (r *rateLimiter) wait(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if since := time.Since(r.lastCall); since < r.interval {
		timer := time.NewTimer(r.interval - since)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	r.lastCall = time.Now()
	return nil
}

type ClientOption func(*OpenLibraryClient)

// WithMinInterval sets the minimum delay between two API calls.
func WithMinInterval(d time.Duration) ClientOption {
	return func(c *OpenLibraryClient) {
		c.rateLimiter.interval = d
	}
}

func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *OpenLibraryClient) {
		c.httpClient = hc
	}
}

// NewOpenLibraryClient creates a client limited to one request per second.
// An empty baseURL means the public API.
func NewOpenLibraryClient(baseURL string, opts ...ClientOption) *OpenLibraryClient {
	if baseURL == "" {
		baseURL = DefaultOpenLibraryURL
	}
	c := &OpenLibraryClient{
		httpClient:  &http.Client{Timeout: 10 * time.Second},
		baseURL:     strings.TrimRight(baseURL, "/"),
		rateLimiter: &rateLimiter{interval: time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SearchByISBN looks up an edition by ISBN. The description and subjects
// come from the edition or, when it has none, from its work.
func (c *OpenLibraryClient) SearchByISBN(ctx context.Context, isbn string) (*BookMetadata, error) {
	isbn = NormalizeISBN(isbn)
	if isbn == "" {
		return nil, ErrInvalidISBN
	}

	var edition openLibraryEdition
	if err := c.getJSON(ctx, "/isbn/"+isbn+".json", &edition); err != nil {
		return nil, fmt.Errorf("fetch ISBN %s: %w", isbn, err)
	}

	md := &BookMetadata{
		Title:          edition.Title,
		ISBN:           isbn,
		Description:    string(edition.Description),
		Subjects:       edition.Subjects,
		OpenLibraryKey: edition.Key,
	}
	if len(edition.Publishers) > 0 {
		md.Publisher = edition.Publishers[0]
	}

	if (md.Description == "" || len(md.Subjects) == 0) && len(edition.Works) > 0 {
		var work openLibraryWork
		if err := c.getJSON(ctx, edition.Works[0].Key+".json", &work); err == nil {
			if md.Description == "" {
				md.Description = string(work.Description)
			}
			if len(md.Subjects) == 0 {
				md.Subjects = work.Subjects
			}
		}
	}

	if len(edition.Authors) > 0 {
		var author struct {
			Name string `json:"name"`
		}
		if err := c.getJSON(ctx, edition.Authors[0].Key+".json", &author); err == nil {
			md.Author = author.Name
		}
	}

	return md, nil
}

// SearchByTitle looks up a book by title and author, returning the best match.
func (c *OpenLibraryClient) SearchByTitle(ctx context.Context, title, author string) (*BookMetadata, error) {
	if strings.TrimSpace(title) == "" {
		return nil, errors.New("title is required")
	}

	q := url.Values{}
	q.Set("title", title)
	if author != "" {
		q.Set("author", author)
	}
	q.Set("limit", "5")

	var result openLibrarySearchResult
	if err := c.getJSON(ctx, "/search.json?"+q.Encode(), &result); err != nil {
		return nil, fmt.Errorf("search %q: %w", title, err)
	}
	if len(result.Docs) == 0 {
		return nil, fmt.Errorf("%w for %q", ErrNotFound, title)
	}

	doc := findBestMatch(result.Docs, title, author)
	md := &BookMetadata{
		Title:          doc.Title,
		Subjects:       doc.Subject,
		OpenLibraryKey: doc.Key,
	}
	if len(doc.AuthorName) > 0 {
		md.Author = doc.AuthorName[0]
	}
	if len(doc.ISBN) > 0 {
		md.ISBN = doc.ISBN[0]
	}
	if len(md.Subjects) > 10 {
		md.Subjects = md.Subjects[:10]
	}

	if doc.Key != "" {
		var work openLibraryWork
		if err := c.getJSON(ctx, doc.Key+".json", &work); err == nil {
			md.Description = string(work.Description)
		}
	}
	return md, nil
}

func (c *OpenLibraryClient) getJSON(ctx context.Context, path string, dst any) error {
	if err := c.rateLimiter.wait(ctx); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return ErrNotFound
	case resp.StatusCode != http.StatusOK:
		return fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func findBestMatch(docs []openLibrarySearchDoc, title, author string) *openLibrarySearchDoc {
	titleLower := strings.ToLower(title)
	authorLower := strings.ToLower(author)

	best := &docs[0]
	bestScore := -1
	for i := range docs {
		doc := &docs[i]
		score := 0

		docTitle := strings.ToLower(doc.Title)
		if docTitle == titleLower {
			score += 10
		} else if strings.Contains(docTitle, titleLower) {
			score += 5
		}

		if authorLower != "" {
			for _, name := range doc.AuthorName {
				name = strings.ToLower(name)
				if name == authorLower {
					score += 10
					break
				} else if strings.Contains(name, authorLower) || strings.Contains(authorLower, name) {
					score += 5
					break
				}
			}
		}

		if len(doc.ISBN) > 0 {
			score += 2
		}

		if score > bestScore {
			bestScore = score
			best = doc
		}
	}
	return best
}

// NormalizeISBN strips hyphens and spaces, returning "" unless the result
// has the length of an ISBN-10 or ISBN-13.
func NormalizeISBN(isbn string) string {
	isbn = strings.NewReplacer("-", "", " ", "").Replace(strings.TrimSpace(isbn))
	if len(isbn) != 10 && len(isbn) != 13 {
		return ""
	}
	return isbn
}

// textValue decodes OpenLibrary text fields, which are either a plain
// string or an object {"type": "/type/text", "value": "..."}.
type textValue string

func (t *textValue) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*t = textValue(s)
		return nil
	}
	var obj struct {
		Value string `json:"value"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	*t = textValue(obj.Value)
	return nil
}

type keyRef struct {
	Key string `json:"key"`
}

type openLibraryEdition struct {
	Key         string    `json:"key"`
	Title       string    `json:"title"`
	Authors     []keyRef  `json:"authors"`
	Works       []keyRef  `json:"works"`
	Publishers  []string  `json:"publishers"`
	Description textValue `json:"description"`
	Subjects    []string  `json:"subjects"`
}

type openLibraryWork struct {
	Key         string    `json:"key"`
	Title       string    `json:"title"`
	Description textValue `json:"description"`
	Subjects    []string  `json:"subjects"`
}

type openLibrarySearchResult struct {
	NumFound int                    `json:"numFound"`
	Docs     []openLibrarySearchDoc `json:"docs"`
}

type openLibrarySearchDoc struct {
	Key        string   `json:"key"`
	Title      string   `json:"title"`
	AuthorName []string `json:"author_name"`
	ISBN       []string `json:"isbn"`
	Subject    []string `json:"subject"`
}
