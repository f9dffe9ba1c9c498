// Package animalapi reads the public abandoned-animal API published on
// data.go.kr (abandonmentPublicService_v2). Every endpoint returns an XML
// envelope with a header result code and a paged list of items.
package animalapi

import (
	"context"
	"encoding/xml"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/sync/errgroup"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/time/rate"

	"github.com/couchcryptid/shelter-data-etl/internal/domain"
)

const (
	resultOK = "00"

	// registryConcurrency caps parallel shelter_v2 requests; the limiter
	// still bounds the overall request rate.
	registryConcurrency = 4
)

// Client calls the abandonment API.
type Client struct {
	serviceKey string
	baseURL    string
	pageSize   int
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *slog.Logger
}

// NewClient creates an API client. ratePerSec caps outgoing requests.
func NewClient(serviceKey, baseURL string, timeout time.Duration, ratePerSec float64, pageSize int, logger *slog.Logger) *Client {
	return &Client{
		serviceKey: serviceKey,
		baseURL:    strings.TrimRight(baseURL, "/"),
		pageSize:   pageSize,
		httpClient: &http.Client{Timeout: timeout},
		limiter:    rate.NewLimiter(rate.Limit(ratePerSec), 1),
		logger:     logger,
	}
}

// Name identifies the source in logs and metrics.
func (c *Client) Name() string { return "api" }

// Animals fetches every upkind for notices posted between from and to.
// A failing upkind is logged and skipped; an error is returned only when
// every upkind failed.
func (c *Client) Animals(ctx context.Context, from, to time.Time) ([]domain.RawRecord, error) {
	var all []domain.RawRecord
	var lastErr error
	failed := 0
	for _, upkind := range domain.Upkinds {
		items, err := c.FetchAnimals(ctx, from, to, upkind)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			c.logger.Warn("animal fetch failed", "upkind", upkind, "error", err)
			failed++
			lastErr = err
			continue
		}
		c.logger.Info("animals fetched", "upkind", upkind, "count", len(items))
		all = append(all, items...)
	}
	if failed == len(domain.Upkinds) {
		return nil, lastErr
	}
	return all, nil
}

// FetchAnimals pages through abandonmentPublic_v2 for one upkind.
// An empty upkind fetches all kinds.
func (c *Client) FetchAnimals(ctx context.Context, from, to time.Time, upkind string) ([]domain.RawRecord, error) {
	params := url.Values{
		"bgnde": {from.Format("20060102")},
		"endde": {to.Format("20060102")},
	}
	if upkind != "" {
		params.Set("upkind", upkind)
	}
	return c.fetchAll(ctx, "abandonmentPublic_v2", params)
}

// Registry fetches every shelter of every sido, a few sidos at a time.
// A failing sido is logged and skipped; only a failed sido lookup is an
// error. Entries keep sido order.
func (c *Client) Registry(ctx context.Context) ([]domain.RegistryEntry, error) {
	sidos, err := c.Sidos(ctx)
	if err != nil {
		return nil, err
	}

	perSido := make([][]domain.RegistryEntry, len(sidos))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(registryConcurrency)

	for i, sido := range sidos {
		g.Go(func() error {
			items, err := c.fetchAll(gctx, "shelter_v2", url.Values{"upr_cd": {sido.Code}})
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				c.logger.Warn("shelter fetch failed", "sido", sido.Name, "code", sido.Code, "error", err)
				return nil
			}
			c.logger.Debug("shelters fetched", "sido", sido.Name, "count", len(items))
			entries := make([]domain.RegistryEntry, 0, len(items))
			for _, item := range items {
				entries = append(entries, registryEntry(item))
			}
			perSido[i] = entries
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, eris.Wrap(err, "animalapi: registry")
	}

	var entries []domain.RegistryEntry
	for _, e := range perSido {
		entries = append(entries, e...)
	}
	return entries, nil
}

// Sidos lists the top-level regions.
func (c *Client) Sidos(ctx context.Context) ([]domain.Region, error) {
	env, err := c.fetchPage(ctx, "sido_v2", url.Values{"numOfRows": {"100"}, "pageNo": {"1"}})
	if err != nil {
		return nil, err
	}
	regions := make([]domain.Region, 0, len(env.Body.Items.Item))
	for _, it := range env.Body.Items.Item {
		rec := it.record()
		regions = append(regions, domain.Region{Code: rec["orgCd"], Name: rec["orgdownNm"]})
	}
	return regions, nil
}

// Sigungus lists the sub-regions of one sido.
func (c *Client) Sigungus(ctx context.Context, sidoCode string) ([]domain.Region, error) {
	env, err := c.fetchPage(ctx, "sigungu_v2", url.Values{"upr_cd": {sidoCode}})
	if err != nil {
		return nil, err
	}
	regions := make([]domain.Region, 0, len(env.Body.Items.Item))
	for _, it := range env.Body.Items.Item {
		rec := it.record()
		regions = append(regions, domain.Region{Code: rec["orgCd"], Name: rec["orgdownNm"], ParentCode: rec["uprCd"]})
	}
	return regions, nil
}

// Kinds lists the species kinds of one upkind.
func (c *Client) Kinds(ctx context.Context, upkind string) ([]domain.Kind, error) {
	env, err := c.fetchPage(ctx, "kind_v2", url.Values{"up_kind_cd": {upkind}})
	if err != nil {
		return nil, err
	}
	kinds := make([]domain.Kind, 0, len(env.Body.Items.Item))
	for _, it := range env.Body.Items.Item {
		rec := it.record()
		kinds = append(kinds, domain.Kind{Code: rec["kindCd"], Name: rec["kindNm"]})
	}
	return kinds, nil
}

// fetchAll pages an endpoint until totalCount items are collected or a page
// comes back empty.
func (c *Client) fetchAll(ctx context.Context, endpoint string, params url.Values) ([]domain.RawRecord, error) {
	var all []domain.RawRecord
	for page := 1; ; page++ {
		p := cloneValues(params)
		p.Set("pageNo", strconv.Itoa(page))
		p.Set("numOfRows", strconv.Itoa(c.pageSize))

		env, err := c.fetchPage(ctx, endpoint, p)
		if err != nil {
			return nil, eris.Wrapf(err, "animalapi: %s page %d", endpoint, page)
		}

		items := env.Body.Items.Item
		if len(items) == 0 {
			break
		}
		for _, it := range items {
			all = append(all, it.record())
		}
		if len(all) >= env.Body.TotalCount {
			break
		}
	}
	return all, nil
}

func (c *Client) fetchPage(ctx context.Context, endpoint string, params url.Values) (*envelope, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, eris.Wrap(err, "animalapi: rate limit wait")
		}
	}

	p := cloneValues(params)
	p.Set("serviceKey", c.serviceKey)
	p.Set("_type", "xml")
	u := c.baseURL + "/" + endpoint + "?" + p.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, eris.Wrap(err, "animalapi: create request")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, eris.Wrapf(err, "animalapi: GET %s", endpoint)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, eris.Errorf("animalapi: %s: status %d: %s", endpoint, resp.StatusCode, body)
	}

	env, err := decodeEnvelope(resp.Body)
	if err != nil {
		return nil, eris.Wrapf(err, "animalapi: %s", endpoint)
	}
	if env.Header.ResultCode != resultOK {
		return nil, eris.Errorf("animalapi: %s: result code %q: %s", endpoint, env.Header.ResultCode, env.Header.ResultMsg)
	}
	return env, nil
}

func decodeEnvelope(r io.Reader) (*envelope, error) {
	dec := xml.NewDecoder(r)
	dec.CharsetReader = func(charset string, input io.Reader) (io.Reader, error) {
		enc, err := htmlindex.Get(charset)
		if err != nil {
			return nil, eris.Wrapf(err, "unsupported charset %q", charset)
		}
		return enc.NewDecoder().Reader(input), nil
	}

	var env envelope
	if err := dec.Decode(&env); err != nil {
		return nil, eris.Wrap(err, "decode xml")
	}
	return &env, nil
}

// registryEntry maps a shelter_v2 item. Missing or zero coordinates are unresolved.
func registryEntry(rec domain.RawRecord) domain.RegistryEntry {
	e := domain.RegistryEntry{
		Name:        strings.TrimSpace(rec["careNm"]),
		RegNo:       rec["careRegNo"],
		Phone:       rec["careTel"],
		Address:     strings.TrimSpace(rec["careAddr"]),
		DataStdDate: rec["dataStdDt"],
	}

	lonKey := "lng"
	if _, ok := rec[lonKey]; !ok {
		lonKey = "lon"
	}
	lat, latErr := strconv.ParseFloat(strings.TrimSpace(rec["lat"]), 64)
	lon, lonErr := strconv.ParseFloat(strings.TrimSpace(rec[lonKey]), 64)
	if latErr == nil && lonErr == nil && (lat != 0 || lon != 0) {
		e.Geo = &domain.Geo{Lat: lat, Lon: lon}
	}
	return e
}

func cloneValues(v url.Values) url.Values {
	out := make(url.Values, len(v)+4)
	for k, vals := range v {
		out[k] = append([]string(nil), vals...)
	}
	return out
}

// XML envelope types.

type envelope struct {
	Header struct {
		ResultCode string `xml:"resultCode"`
		ResultMsg  string `xml:"resultMsg"`
	} `xml:"header"`
	Body struct {
		Items struct {
			Item []item `xml:"item"`
		} `xml:"items"`
		PageNo     int `xml:"pageNo"`
		TotalCount int `xml:"totalCount"`
	} `xml:"body"`
}

// item keeps every child element, since the field set varies by endpoint.
type item struct {
	Fields []field `xml:",any"`
}

type field struct {
	XMLName xml.Name
	Value   string `xml:",chardata"`
}

func (it item) record() domain.RawRecord {
	rec := make(domain.RawRecord, len(it.Fields))
	for _, f := range it.Fields {
		rec[f.XMLName.Local] = f.Value
	}
	return rec
}
