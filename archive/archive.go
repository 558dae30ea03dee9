// Package archive fetches raw run files from the public data mirrors.
package archive

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Site is one public mirror holding the raw data files. Runs are laid out
// flat under the base URL using the historical gt-prefixed file names.
type Site struct {
	Name    string
	BaseURL string
}

// RunURL returns the location of a run's compressed data file on this site.
func (s Site) RunURL(run uint32) string {
	return fmt.Sprintf("%s/gt%06d.fz.bz2", s.BaseURL, run)
}

// RunFilename returns the local file name a fetched run should be stored
// under.
func RunFilename(run uint32) string {
	return fmt.Sprintf("gt%06d.fz.bz2", run)
}

// DefaultSites lists the known public mirrors, in preference order.
var DefaultSites = []Site{
	{Name: "purdue", BaseURL: "https://veritas.astro.purdue.edu/whipple10m/data"},
	{Name: "ucla", BaseURL: "https://gamma.astro.ucla.edu/whipple/fz"},
}

const defaultTimeout = 5 * time.Minute

// Client retrieves run files, falling through the mirror list until one
// responds.
type Client struct {
	http  *http.Client
	sites []Site
}

// NewClient builds a client over the given mirrors. A nil or empty list
// selects DefaultSites.
func NewClient(sites []Site) *Client {
	if len(sites) == 0 {
		sites = DefaultSites
	}
	return &Client{
		http:  &http.Client{Timeout: defaultTimeout},
		sites: sites,
	}
}

// FetchRun streams the compressed run file from the first mirror that has
// it. The caller owns the returned body. The second return value names the
// mirror that answered.
func (c *Client) FetchRun(ctx context.Context, run uint32) (io.ReadCloser, string, error) {
	var lastErr error
	for _, site := range c.sites {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, site.RunURL(run), nil)
		if err != nil {
			return nil, "", err
		}
		resp, err := c.http.Do(req)
		if err != nil {
			lastErr = err
			continue
		}
		if resp.StatusCode != http.StatusOK {
			io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
			resp.Body.Close()
			lastErr = fmt.Errorf("%s: %s", site.Name, resp.Status)
			continue
		}
		return resp.Body, site.Name, nil
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("no mirrors configured")
	}
	return nil, "", fmt.Errorf("run %d not retrievable: %w", run, lastErr)
}
