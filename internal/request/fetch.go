package request

import (
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Fetcher retrieves a remote resource as a blocking byte stream. The
// request layer consumes it only through this contract; timeout behavior
// belongs to the implementation's transport.
type Fetcher interface {
	// Fetch opens the resource at url for sequential reading. The
	// caller closes the returned stream.
	Fetch(url string) (io.ReadCloser, error)
}

// HTTPFetcher fetches http and https URLs with a net/http client.
type HTTPFetcher struct {
	// Client used for requests. nil means a client with a 30 second
	// overall timeout.
	Client *http.Client
}

var defaultHTTPClient = &http.Client{Timeout: 30 * time.Second}

func (f *HTTPFetcher) Fetch(url string) (io.ReadCloser, error) {
	client := f.Client
	if client == nil {
		client = defaultHTTPClient
	}

	resp, err := client.Get(url)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("unexpected status %s", resp.Status)
	}
	return resp.Body, nil
}

// fetcherFor returns the default fetcher for a URL's scheme, or nil when
// no built-in fetcher handles it (ftp is recognized by the locator but
// served only by a caller-supplied Fetcher).
func fetcherFor(url string) Fetcher {
	switch {
	case strings.HasPrefix(url, "http://"), strings.HasPrefix(url, "https://"):
		return &HTTPFetcher{}
	default:
		return nil
	}
}
