package postgrest

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/kirillkom/knowledge-hub-tools/internal/core/domain"
	"github.com/kirillkom/knowledge-hub-tools/internal/infrastructure/resilience"
)

const (
	defaultTable    = "guides"
	defaultPageSize = 1000
	restPrefix      = "/rest/v1/"
)

const guideColumns = "id,slug,title,summary,body,domain,guide_type,sub_domain,unit,function_area,location,hero_image_url,status,download_count,is_editors_pick,last_updated_at,created_at"

// GuideStore talks to the hosted backend's REST interface with the service
// role key.
type GuideStore struct {
	baseURL    string
	apiKey     string
	table      string
	pageSize   int
	httpClient *http.Client
	limiter    *rate.Limiter
	executor   *resilience.Executor
}

type Options struct {
	Table              string
	Timeout            time.Duration
	RequestsPerSecond  float64
	PageSize           int
	HTTPClient         *http.Client
	ResilienceExecutor *resilience.Executor
}

func New(baseURL, apiKey string, options Options) *GuideStore {
	table := strings.TrimSpace(options.Table)
	if table == "" {
		table = defaultTable
	}
	timeout := options.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	httpClient := options.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeout}
	}
	pageSize := options.PageSize
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	limiter := rate.NewLimiter(rate.Inf, 1)
	if options.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(options.RequestsPerSecond), 1)
	}
	return &GuideStore{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		table:      table,
		pageSize:   pageSize,
		httpClient: httpClient,
		limiter:    limiter,
		executor:   options.ResilienceExecutor,
	}
}

func (s *GuideStore) Select(ctx context.Context, query domain.GuideQuery) ([]domain.Guide, error) {
	params := url.Values{}
	params.Set("select", guideColumns)
	params.Set("order", "slug.asc,id.asc")
	if query.Status != "" {
		params.Set("status", "eq."+string(query.Status))
	}
	if query.Slug != "" {
		params.Set("slug", "eq."+query.Slug)
	}
	if len(query.IDs) > 0 {
		params.Set("id", "in.("+strings.Join(quoteAll(query.IDs), ",")+")")
	}

	out := make([]domain.Guide, 0)
	for offset := 0; ; offset += s.pageSize {
		params.Set("limit", strconv.Itoa(s.pageSize))
		params.Set("offset", strconv.Itoa(offset))

		var rows []guideRow
		err := s.call(ctx, "guides.select", func(ctx context.Context) error {
			return s.doJSON(ctx, http.MethodGet, params, nil, &rows, "select")
		})
		if err != nil {
			return nil, err
		}
		for _, row := range rows {
			out = append(out, row.toDomain())
		}
		if len(rows) < s.pageSize {
			return out, nil
		}
	}
}

func (s *GuideStore) Insert(ctx context.Context, guide *domain.Guide) (*domain.Guide, error) {
	if guide == nil {
		return nil, domain.WrapError(domain.ErrInvalidInput, "insert guide", errors.New("nil guide"))
	}
	var rows []guideRow
	err := s.call(ctx, "guides.insert", func(ctx context.Context) error {
		return s.doJSON(ctx, http.MethodPost, nil, rowFromDomain(*guide), &rows, "insert")
	})
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("insert guide %s: empty representation", guide.Slug)
	}
	inserted := rows[0].toDomain()
	return &inserted, nil
}

func (s *GuideStore) Update(ctx context.Context, id string, patch domain.GuidePatch) error {
	params := url.Values{}
	params.Set("id", "eq."+id)
	var rows []guideRow
	err := s.call(ctx, "guides.update", func(ctx context.Context) error {
		return s.doJSON(ctx, http.MethodPatch, params, patchBody(patch), &rows, "update")
	})
	if err != nil {
		return err
	}
	// Row level security hides rows instead of rejecting the request.
	if len(rows) == 0 {
		return domain.WrapError(domain.ErrGuideNotFound, "update guide", fmt.Errorf("no visible row with id %s", id))
	}
	return nil
}

func (s *GuideStore) Delete(ctx context.Context, id string) error {
	params := url.Values{}
	params.Set("id", "eq."+id)
	var rows []guideRow
	err := s.call(ctx, "guides.delete", func(ctx context.Context) error {
		return s.doJSON(ctx, http.MethodDelete, params, nil, &rows, "delete")
	})
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return domain.WrapError(domain.ErrGuideNotFound, "delete guide", fmt.Errorf("no visible row with id %s", id))
	}
	return nil
}

func (s *GuideStore) call(ctx context.Context, operation string, fn func(context.Context) error) error {
	limited := func(ctx context.Context) error {
		if err := s.limiter.Wait(ctx); err != nil {
			return err
		}
		return fn(ctx)
	}

	var err error
	if s.executor != nil {
		err = s.executor.Execute(ctx, operation, limited, classifyRESTError)
	} else {
		err = limited(ctx)
	}
	if err != nil {
		return mapRESTError(operation, err)
	}
	return nil
}

func quoteAll(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		out = append(out, `"`+strings.ReplaceAll(v, `"`, `\"`)+`"`)
	}
	return out
}
