// Package fetcher retrieves single plan pages and hands them back as parsed
// goquery documents. The source publishes ISO-8859-1, so the body is decoded
// before any text processing.
package fetcher

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/text/encoding/charmap"
)

type Fetcher struct {
	client    *http.Client
	baseURL   string
	userAgent string
}

func NewFetcher(baseURL, userAgent string, timeout time.Duration) *Fetcher {
	return &Fetcher{
		client:    &http.Client{Timeout: timeout},
		baseURL:   baseURL,
		userAgent: userAgent,
	}
}

// PageName builds the page identifier for a page index: the index is
// zero-padded to two digits and wrapped as w000NN.htm.
func PageName(index int) string {
	return fmt.Sprintf("w000%02d.htm", index)
}

// GetPage fetches one numbered plan page and parses it into a document.
// Any transport error or non-200 status is returned as an error; callers
// skip the page and move on.
func (f *Fetcher) GetPage(index int) (*goquery.Document, error) {
	bodyBytes, err := f.GetPageBytes(index)
	if err != nil {
		return nil, err
	}

	html, err := charmap.ISO8859_1.NewDecoder().Bytes(bodyBytes)
	if err != nil {
		return nil, fmt.Errorf("failed to decode ISO-8859-1 body: %w", err)
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}
	return doc, nil
}

// GetPageBytes fetches the raw (still ISO-8859-1 encoded) page body.
func (f *Fetcher) GetPageBytes(index int) ([]byte, error) {
	url := f.baseURL + PageName(index)

	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to make HTTP request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to fetch page, status code: %d", resp.StatusCode)
	}

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	return bodyBytes, nil
}
