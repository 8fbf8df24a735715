package remote

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hamza-m-farooqi/pygit/pkg/object"
)

const receivePackService = "git-receive-pack"

// Response body cap for refs advertisements and status reports.
const responseLimitRefs = 8 << 20

// ClientOptions configures the transport client.
type ClientOptions struct {
	Timeout time.Duration // HTTP client timeout (default 60s)
}

// Client speaks Git's smart-HTTP protocol against one remote repository.
type Client struct {
	baseURL    string
	httpClient *http.Client
	user       string
	pass       string
}

// NewClient creates a client for a remote URL. Userinfo embedded in the
// URL becomes basic auth; a zero timeout gets the 60s default.
func NewClient(remoteURL string, opts ClientOptions) (*Client, error) {
	remoteURL = strings.TrimSpace(remoteURL)
	if remoteURL == "" {
		return nil, fmt.Errorf("remote URL is required")
	}
	u, err := url.Parse(remoteURL)
	if err != nil {
		return nil, fmt.Errorf("parse remote URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("remote URL %q: only http(s) is supported", remoteURL)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("remote URL %q: missing host", remoteURL)
	}

	user, pass := "", ""
	if u.User != nil {
		user = u.User.Username()
		pass, _ = u.User.Password()
	}
	u.User = nil

	if opts.Timeout <= 0 {
		opts.Timeout = 60 * time.Second
	}

	return &Client{
		baseURL:    strings.TrimRight(u.String(), "/"),
		httpClient: &http.Client{Timeout: opts.Timeout},
		user:       user,
		pass:       pass,
	}, nil
}

func (c *Client) newRequest(method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequest(method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	if c.user != "" || c.pass != "" {
		req.SetBasicAuth(c.user, c.pass)
	}
	return req, nil
}

// AdvertisedRefs fetches the remote's receive-pack refs advertisement and
// returns ref name → hash. An empty remote advertises no refs (only the
// zero-id capabilities^{} line, which is dropped).
func (c *Client) AdvertisedRefs() (map[string]object.Hash, error) {
	req, err := c.newRequest(http.MethodGet, "/info/refs?service="+receivePackService, nil)
	if err != nil {
		return nil, fmt.Errorf("refs advertisement: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("refs advertisement: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: refs advertisement returned HTTP %d", ErrProtocol, resp.StatusCode)
	}

	br := bufio.NewReader(io.LimitReader(resp.Body, responseLimitRefs))

	// Smart servers open with a "# service=git-receive-pack" banner and a
	// flush before the refs themselves.
	first, flush, err := ReadPacket(br)
	if err != nil {
		return nil, fmt.Errorf("refs advertisement: %w", err)
	}
	if !flush && strings.HasPrefix(string(first), "# service=") {
		if strings.TrimSpace(string(first)) != "# service="+receivePackService {
			return nil, fmt.Errorf("%w: unexpected service banner %q", ErrProtocol, first)
		}
		if _, flush, err = ReadPacket(br); err != nil {
			return nil, fmt.Errorf("refs advertisement: %w", err)
		}
		if !flush {
			return nil, fmt.Errorf("%w: missing flush after service banner", ErrProtocol)
		}
		first, flush, err = ReadPacket(br)
		if err != nil && err != io.EOF {
			return nil, fmt.Errorf("refs advertisement: %w", err)
		}
	}

	refs := make(map[string]object.Hash)
	for {
		if err == io.EOF || flush {
			return refs, nil
		}
		line := string(first)
		// Capabilities ride after a NUL on the first ref line.
		if i := strings.IndexByte(line, 0); i >= 0 {
			line = line[:i]
		}
		line = strings.TrimSuffix(line, "\n")

		hash, name, ok := strings.Cut(line, " ")
		if !ok || !object.ValidHash(hash) {
			return nil, fmt.Errorf("%w: malformed ref line %q", ErrProtocol, line)
		}
		if name != "capabilities^{}" && object.Hash(hash) != object.ZeroHash {
			refs[name] = object.Hash(hash)
		}

		first, flush, err = ReadPacket(br)
		if err != nil && err != io.EOF {
			return nil, fmt.Errorf("refs advertisement: %w", err)
		}
	}
}

// sendReceivePack POSTs the update commands and pack, returning the raw
// report-status body.
func (c *Client) sendReceivePack(body []byte) (*bufio.Reader, func(), error) {
	req, err := c.newRequest(http.MethodPost, "/"+receivePackService, bytes.NewReader(body))
	if err != nil {
		return nil, nil, fmt.Errorf("receive-pack: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-git-receive-pack-request")
	req.Header.Set("Accept", "application/x-git-receive-pack-result")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("receive-pack: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, nil, fmt.Errorf("%w: receive-pack returned HTTP %d", ErrProtocol, resp.StatusCode)
	}
	br := bufio.NewReader(io.LimitReader(resp.Body, responseLimitRefs))
	return br, func() { resp.Body.Close() }, nil
}
