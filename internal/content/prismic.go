// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package content

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/olegiv/ignews-go/internal/dates"
	"github.com/olegiv/ignews-go/internal/richtext"
)

// maxResponseSize bounds how much of an API response is read.
const maxResponseSize = 10 << 20

// PrismicOptions configures a PrismicRepository.
type PrismicOptions struct {
	// Endpoint is the API root, e.g. https://ignews.cdn.prismic.io/api/v2
	Endpoint    string
	AccessToken string

	// RateLimit caps outbound requests per second. 0 disables limiting.
	RateLimit float64

	// RefTTL is how long the master ref is reused before being fetched again.
	RefTTL time.Duration

	HTTPClient *http.Client
	UserAgent  string
}

// APIError is returned for non-2xx responses from the repository API.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("content api: status %d: %s", e.StatusCode, e.Message)
}

// PrismicRepository reads documents through the Prismic REST API v2.
type PrismicRepository struct {
	endpoint    string
	accessToken string
	client      *http.Client
	limiter     *rate.Limiter
	refTTL      time.Duration
	userAgent   string

	mu         sync.Mutex
	masterRef  string
	refFetched time.Time
}

// NewPrismicRepository creates a repository client for the given endpoint.
func NewPrismicRepository(opts PrismicOptions) (*PrismicRepository, error) {
	if opts.Endpoint == "" {
		return nil, fmt.Errorf("prismic endpoint is required")
	}
	if _, err := url.ParseRequestURI(opts.Endpoint); err != nil {
		return nil, fmt.Errorf("parsing prismic endpoint: %w", err)
	}

	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}

	var limiter *rate.Limiter
	if opts.RateLimit > 0 {
		burst := int(opts.RateLimit)
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), burst)
	}

	refTTL := opts.RefTTL
	if refTTL <= 0 {
		refTTL = 5 * time.Second
	}

	return &PrismicRepository{
		endpoint:    strings.TrimRight(opts.Endpoint, "/"),
		accessToken: opts.AccessToken,
		client:      client,
		limiter:     limiter,
		refTTL:      refTTL,
		userAgent:   opts.UserAgent,
	}, nil
}

type apiInfo struct {
	Refs []struct {
		ID          string `json:"id"`
		Ref         string `json:"ref"`
		IsMasterRef bool   `json:"isMasterRef"`
	} `json:"refs"`
}

type searchResponse struct {
	TotalResultsSize int           `json:"total_results_size"`
	Results          []apiDocument `json:"results"`
}

type apiDocument struct {
	ID                   string `json:"id"`
	UID                  string `json:"uid"`
	Type                 string `json:"type"`
	Lang                 string `json:"lang"`
	FirstPublicationDate string `json:"first_publication_date"`
	LastPublicationDate  string `json:"last_publication_date"`
	Data                 struct {
		Title   []richtext.Block `json:"title"`
		Content []richtext.Block `json:"content"`
	} `json:"data"`
}

// GetByUID fetches the document of docType whose UID is uid from the master ref.
func (p *PrismicRepository) GetByUID(ctx context.Context, docType, uid string) (*Document, error) {
	ref, err := p.ref(ctx)
	if err != nil {
		return nil, err
	}

	q := url.Values{}
	q.Set("ref", ref)
	q.Set("q", fmt.Sprintf(`[[at(my.%s.uid,%s)]]`, docType, strconv.Quote(uid)))
	q.Set("pageSize", "1")

	var resp searchResponse
	if err := p.get(ctx, p.endpoint+"/documents/search", q, &resp); err != nil {
		return nil, fmt.Errorf("searching %s %q: %w", docType, uid, err)
	}
	if len(resp.Results) == 0 {
		return nil, ErrNotFound
	}

	return resp.Results[0].toDocument()
}

// ref returns the current master ref, refreshing it after refTTL.
func (p *PrismicRepository) ref(ctx context.Context) (string, error) {
	p.mu.Lock()
	if p.masterRef != "" && time.Since(p.refFetched) < p.refTTL {
		ref := p.masterRef
		p.mu.Unlock()
		return ref, nil
	}
	p.mu.Unlock()

	var info apiInfo
	if err := p.get(ctx, p.endpoint, url.Values{}, &info); err != nil {
		return "", fmt.Errorf("fetching master ref: %w", err)
	}

	for _, r := range info.Refs {
		if r.IsMasterRef {
			p.mu.Lock()
			p.masterRef = r.Ref
			p.refFetched = time.Now()
			p.mu.Unlock()
			return r.Ref, nil
		}
	}
	return "", fmt.Errorf("fetching master ref: no master ref in API response")
}

func (p *PrismicRepository) get(ctx context.Context, endpoint string, q url.Values, out any) error {
	if p.limiter != nil {
		if err := p.limiter.Wait(ctx); err != nil {
			return err
		}
	}

	if p.accessToken != "" {
		q.Set("access_token", p.accessToken)
	}
	reqURL := endpoint
	if encoded := q.Encode(); encoded != "" {
		reqURL += "?" + encoded
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if p.userAgent != "" {
		req.Header.Set("User-Agent", p.userAgent)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{StatusCode: resp.StatusCode, Message: apiErrorMessage(body)}
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

// apiErrorMessage extracts the "message" or "error" field of an error body.
func apiErrorMessage(body []byte) string {
	var e struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(body, &e); err == nil {
		if e.Message != "" {
			return e.Message
		}
		if e.Error != "" {
			return e.Error
		}
	}
	msg := strings.TrimSpace(string(body))
	if len(msg) > 200 {
		msg = msg[:200]
	}
	return msg
}

func (d apiDocument) toDocument() (*Document, error) {
	doc := &Document{
		ID:      d.ID,
		UID:     d.UID,
		Type:    d.Type,
		Lang:    d.Lang,
		Title:   d.Data.Title,
		Content: d.Data.Content,
	}

	if d.LastPublicationDate != "" {
		t, err := dates.Parse(d.LastPublicationDate)
		if err != nil {
			return nil, fmt.Errorf("document %s: last_publication_date: %w", d.ID, err)
		}
		doc.LastPublicationDate = t
	}
	if d.FirstPublicationDate != "" {
		if t, err := dates.Parse(d.FirstPublicationDate); err == nil {
			doc.FirstPublicationDate = t
		}
	}

	return doc, nil
}
