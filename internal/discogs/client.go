package discogs

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/avast/retry-go"
	"golang.org/x/time/rate"
)

const (
	defaultBaseURL    = "https://api.discogs.com"
	userAgent         = "DeepCogs/1.0"
	collectionPerPage = 100

	requestTokenURL = "https://api.discogs.com/oauth/request_token"
	accessTokenURL  = "https://api.discogs.com/oauth/access_token"
	authorizeURL    = "https://www.discogs.com/oauth/authorize"
)

// APIError is a non-2xx response from Discogs.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("discogs: HTTP %d: %s", e.StatusCode, e.Body)
}

func isServerError(err error) bool {
	apiErr, ok := err.(*APIError)
	return ok && apiErr.StatusCode/100 == 5
}

// Client talks to the Discogs REST API. With an access token it signs
// requests with OAuth 1.0a PLAINTEXT; without one it falls back to
// consumer key/secret auth, which is enough for public collections and
// database search.
type Client struct {
	consumerKey    string
	consumerSecret string
	token          string
	tokenSecret    string

	httpClient *http.Client
	limiter    *rate.Limiter
	baseURL    string
}

// New returns a client authenticated with the application's consumer
// key and secret only.
func New(consumerKey, consumerSecret string) *Client {
	return &Client{
		consumerKey:    consumerKey,
		consumerSecret: consumerSecret,
		httpClient:     &http.Client{Timeout: 30 * time.Second},
		limiter:        rate.NewLimiter(rate.Every(100*time.Millisecond), 1),
		baseURL:        defaultBaseURL,
	}
}

// NewWithToken returns a client that signs every request on behalf of
// the user who authorized the given access token.
func NewWithToken(consumerKey, consumerSecret, token, tokenSecret string) *Client {
	c := New(consumerKey, consumerSecret)
	c.token = token
	c.tokenSecret = tokenSecret
	return c
}

// SetBaseURL points the client at a different API host. Used by tests.
func (c *Client) SetBaseURL(u string) {
	c.baseURL = u
}

func (c *Client) authorize(req *http.Request) {
	if c.token != "" {
		p := oauthParams{
			ConsumerKey:    c.consumerKey,
			ConsumerSecret: c.consumerSecret,
			Token:          c.token,
			TokenSecret:    c.tokenSecret,
		}
		req.Header.Set("Authorization", p.header())
		return
	}
	req.Header.Set("Authorization",
		fmt.Sprintf("Discogs key=%s, secret=%s", c.consumerKey, c.consumerSecret))
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, out interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, u, nil)
	if err != nil {
		return fmt.Errorf("building request for %s: %w", path, err)
	}
	req.Header.Set("User-Agent", userAgent)
	c.authorize(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("requesting %s: %w", path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response from %s: %w", path, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &APIError{StatusCode: resp.StatusCode, Body: string(body)}
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decoding response from %s: %w", path, err)
	}
	return nil
}

// Identity returns the profile of the user the access token belongs to.
func (c *Client) Identity(ctx context.Context) (User, error) {
	var user User
	if err := c.do(ctx, http.MethodGet, "/oauth/identity", nil, &user); err != nil {
		return User{}, fmt.Errorf("fetching identity: %w", err)
	}
	return user, nil
}

// CollectionPage fetches one page of the user's "All" collection folder,
// newest additions first.
func (c *Client) CollectionPage(ctx context.Context, username string, page int) (CollectionPage, error) {
	query := url.Values{
		"page":       {strconv.Itoa(page)},
		"per_page":   {strconv.Itoa(collectionPerPage)},
		"sort":       {"added"},
		"sort_order": {"desc"},
	}
	path := fmt.Sprintf("/users/%s/collection/folders/0/releases", url.PathEscape(username))

	var result CollectionPage
	err := retry.Do(
		func() error {
			return c.do(ctx, http.MethodGet, path, query, &result)
		},
		retry.Attempts(3),
		retry.RetryIf(isServerError),
		retry.LastErrorOnly(true),
		retry.Context(ctx),
	)
	if err != nil {
		return CollectionPage{}, fmt.Errorf("fetching collection page %d for %s: %w", page, username, err)
	}
	return result, nil
}

// Collection fetches the user's entire collection, walking every page.
// The client's limiter paces the page requests.
func (c *Client) Collection(ctx context.Context, username string) ([]Release, error) {
	var releases []Release
	for page := 1; ; page++ {
		result, err := c.CollectionPage(ctx, username, page)
		if err != nil {
			return nil, err
		}
		releases = append(releases, result.Releases...)
		if page >= result.Pagination.Pages {
			break
		}
	}
	return releases, nil
}

// WantlistPage fetches one page of the user's wantlist.
func (c *Client) WantlistPage(ctx context.Context, username string, page int) (WantlistPage, error) {
	query := url.Values{
		"page":     {strconv.Itoa(page)},
		"per_page": {strconv.Itoa(collectionPerPage)},
	}
	path := fmt.Sprintf("/users/%s/wants", url.PathEscape(username))

	var result WantlistPage
	err := retry.Do(
		func() error {
			return c.do(ctx, http.MethodGet, path, query, &result)
		},
		retry.Attempts(3),
		retry.RetryIf(isServerError),
		retry.LastErrorOnly(true),
		retry.Context(ctx),
	)
	if err != nil {
		return WantlistPage{}, fmt.Errorf("fetching wantlist page %d for %s: %w", page, username, err)
	}
	return result, nil
}

// Wantlist fetches the user's entire wantlist, walking every page.
func (c *Client) Wantlist(ctx context.Context, username string) ([]WantlistEntry, error) {
	var wants []WantlistEntry
	for page := 1; ; page++ {
		result, err := c.WantlistPage(ctx, username, page)
		if err != nil {
			return nil, err
		}
		wants = append(wants, result.Wants...)
		if page >= result.Pagination.Pages {
			break
		}
	}
	return wants, nil
}

// SearchQuery narrows a database search. Empty fields are omitted.
type SearchQuery struct {
	Query   string
	Artist  string
	Style   string
	PerPage int
}

// Search runs a master-release vinyl search sorted by community want
// count, which surfaces the most sought-after pressings first.
func (c *Client) Search(ctx context.Context, q SearchQuery) ([]SearchResult, error) {
	query := url.Values{
		"type":       {"master"},
		"format":     {"Vinyl"},
		"sort":       {"want"},
		"sort_order": {"desc"},
	}
	if q.Query != "" {
		query.Set("q", q.Query)
	}
	if q.Artist != "" {
		query.Set("artist", q.Artist)
	}
	if q.Style != "" {
		query.Set("style", q.Style)
	}
	if q.PerPage > 0 {
		query.Set("per_page", strconv.Itoa(q.PerPage))
	}

	var result searchResponse
	if err := c.do(ctx, http.MethodGet, "/database/search", query, &result); err != nil {
		return nil, fmt.Errorf("searching discogs: %w", err)
	}
	return result.Results, nil
}

// AddWant puts a release on the user's wantlist.
func (c *Client) AddWant(ctx context.Context, username string, releaseID int) error {
	path := fmt.Sprintf("/users/%s/wants/%d", url.PathEscape(username), releaseID)
	if err := c.do(ctx, http.MethodPut, path, nil, nil); err != nil {
		return fmt.Errorf("adding release %d to wantlist: %w", releaseID, err)
	}
	return nil
}

// RemoveWant deletes a release from the user's wantlist.
func (c *Client) RemoveWant(ctx context.Context, username string, releaseID int) error {
	path := fmt.Sprintf("/users/%s/wants/%d", url.PathEscape(username), releaseID)
	if err := c.do(ctx, http.MethodDelete, path, nil, nil); err != nil {
		return fmt.Errorf("removing release %d from wantlist: %w", releaseID, err)
	}
	return nil
}

// RequestToken starts the OAuth handshake. It returns the temporary
// token pair and the URL to send the user to for authorization.
func (c *Client) RequestToken(ctx context.Context, callback string) (token, secret, authURL string, err error) {
	p := oauthParams{
		ConsumerKey:    c.consumerKey,
		ConsumerSecret: c.consumerSecret,
		Callback:       callback,
	}
	body, err := c.tokenRequest(ctx, requestTokenURL, p)
	if err != nil {
		return "", "", "", fmt.Errorf("fetching request token: %w", err)
	}
	token, secret, err = parseTokenResponse(body)
	if err != nil {
		return "", "", "", err
	}
	return token, secret, authorizeURL + "?oauth_token=" + url.QueryEscape(token), nil
}

// AccessToken completes the OAuth handshake with the verifier the user
// brought back from the authorize page.
func (c *Client) AccessToken(ctx context.Context, requestToken, requestSecret, verifier string) (token, secret string, err error) {
	p := oauthParams{
		ConsumerKey:    c.consumerKey,
		ConsumerSecret: c.consumerSecret,
		Token:          requestToken,
		TokenSecret:    requestSecret,
		Verifier:       verifier,
	}
	body, err := c.tokenRequest(ctx, accessTokenURL, p)
	if err != nil {
		return "", "", fmt.Errorf("fetching access token: %w", err)
	}
	return parseTokenResponse(body)
}

func (c *Client) tokenRequest(ctx context.Context, endpoint string, p oauthParams) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Authorization", p.header())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusOK {
		return "", &APIError{StatusCode: resp.StatusCode, Body: string(body)}
	}
	return string(body), nil
}
