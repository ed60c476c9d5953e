package server

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/conduit-lang/responder/internal/fixtures"
	"github.com/conduit-lang/responder/internal/paging"
	webcontext "github.com/conduit-lang/responder/internal/web/context"
	"github.com/conduit-lang/responder/internal/web/middleware"
	"github.com/conduit-lang/responder/internal/web/query"
	"github.com/conduit-lang/responder/pkg/format"
	"github.com/conduit-lang/responder/pkg/messages"
	"github.com/conduit-lang/responder/pkg/resource"
	"github.com/conduit-lang/responder/pkg/responder"
	"github.com/conduit-lang/responder/pkg/transform"
)

// DefaultMaxPageSize caps page[size].
const DefaultMaxPageSize = 100

// APIConfig configures the demo API.
type APIConfig struct {
	Dataset *fixtures.Dataset
	Codec   *paging.Codec

	// Serializer is used when the client does not ask for a media type.
	Serializer  string
	MaxDepth    int
	PageSize    int
	MaxPageSize int
	PrettyPrint bool

	// BaseURL prefixes pagination links. Links are omitted when empty.
	BaseURL string

	// Messages override the built-in error messages.
	Messages map[string]string

	Logger *zap.Logger
}

// API serves fixture collections through the responder.
type API struct {
	dataset     *fixtures.Dataset
	codec       *paging.Codec
	responders  map[string]*responder.Responder
	fallback    string
	pageSize    int
	maxPageSize int
	baseURL     string
	logger      *zap.Logger
}

// NewAPI creates the API.
func NewAPI(cfg APIConfig) (*API, error) {
	if cfg.Dataset == nil {
		return nil, fmt.Errorf("dataset cannot be nil")
	}

	fallback, err := format.ByName(cfg.Serializer)
	if err != nil {
		return nil, err
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	codec := cfg.Codec
	if codec == nil {
		codec, err = paging.NewCodec("", logger)
		if err != nil {
			return nil, err
		}
	}

	pageSize := cfg.PageSize
	if pageSize < 1 {
		pageSize = 20
	}
	maxPageSize := cfg.MaxPageSize
	if maxPageSize < 1 {
		maxPageSize = DefaultMaxPageSize
	}

	builder := transform.NewBuilder(
		transform.WithMaxDepth(cfg.MaxDepth),
		transform.WithLogger(logger),
	)
	resolver := messages.Chain{
		messages.NewMapResolver(cfg.Messages),
		messages.NewMapResolver(messages.Defaults),
	}

	responders := make(map[string]*responder.Responder, 2)
	for _, s := range []format.Serializer{format.NewSimple(), format.NewJSONAPI()} {
		responders[s.MediaType()] = responder.New(
			responder.WithBuilder(builder),
			responder.WithSerializer(s),
			responder.WithMessages(resolver),
			responder.WithPrettyPrint(cfg.PrettyPrint),
		)
	}

	return &API{
		dataset:     cfg.Dataset,
		codec:       codec,
		responders:  responders,
		fallback:    fallback.MediaType(),
		pageSize:    pageSize,
		maxPageSize: maxPageSize,
		baseURL:     strings.TrimSuffix(cfg.BaseURL, "/"),
		logger:      logger,
	}, nil
}

// Routes returns the router with the middleware stack applied.
func (a *API) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Chain(
		middleware.RequestID(nil),
		middleware.Negotiate(a.fallback),
		middleware.Logging(a.logger, "/health"),
		middleware.Recovery(a.logger, a.renderError),
	))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		a.renderError(w, r, http.StatusNotFound)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		a.renderError(w, r, http.StatusMethodNotAllowed)
	})

	r.Get("/health", a.health)
	r.Route("/api", func(r chi.Router) {
		r.Get("/", a.index)
		r.Get("/{collection}", a.list)
		r.Get("/{collection}/{id}", a.show)
	})
	return r
}

func (a *API) responder(r *http.Request) *responder.Responder {
	if rs, ok := a.responders[webcontext.GetMediaType(r.Context())]; ok {
		return rs
	}
	return a.responders[a.fallback]
}

func (a *API) health(w http.ResponseWriter, r *http.Request) {
	a.write(w, r, a.responder(r).Success(map[string]any{"status": "ok"}).Key("health"))
}

func (a *API) index(w http.ResponseWriter, r *http.Request) {
	names := a.dataset.Names()
	items := make([]map[string]any, 0, len(names))
	for _, name := range names {
		c, err := a.dataset.Collection(name)
		if err != nil {
			a.fail(w, r, err)
			return
		}
		items = append(items, map[string]any{"id": name, "count": c.Len()})
	}
	a.write(w, r, a.responder(r).Success(items).Key("collections"))
}

func (a *API) list(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "collection")
	c, err := a.dataset.Collection(name)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	t, err := a.dataset.Transformer(name)
	if err != nil {
		a.fail(w, r, err)
		return
	}

	params, err := query.Parse(r, a.pageSize, a.maxPageSize)
	if err != nil {
		a.fail(w, r, err)
		return
	}

	var data any
	if params.UseCursor {
		data, err = a.cursorPage(c, params)
		if err != nil {
			a.fail(w, r, err)
			return
		}
	} else {
		data = &resource.Paginator{
			Items:       c.Slice(params.Page.Offset(), params.Page.Size),
			Total:       c.Len(),
			PerPage:     params.Page.Size,
			CurrentPage: params.Page.Number,
			BaseURL:     a.linkBase(r, params.Page.Size),
			PageParam:   "page[number]",
		}
	}

	a.write(w, r, a.success(r, data, t, params))
}

func (a *API) show(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "collection")
	c, err := a.dataset.Collection(name)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	rec, err := c.Find(chi.URLParam(r, "id"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	t, err := a.dataset.Transformer(name)
	if err != nil {
		a.fail(w, r, err)
		return
	}

	params, err := query.Parse(r, a.pageSize, a.maxPageSize)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.write(w, r, a.success(r, rec, t, params))
}

func (a *API) success(r *http.Request, data any, t *transform.Transformer, params *query.Params) *responder.SuccessBuilder {
	b := a.responder(r).Success(data).Transform(t).Fieldsets(params.Fields)
	if len(params.Include) > 0 {
		b.With(params.Include)
	}
	if len(params.Exclude) > 0 {
		b.Without(params.Exclude)
	}
	return b
}

// cursorPage slices a collection at the offset stored in the cursor token.
// An empty token starts at the beginning.
func (a *API) cursorPage(c *fixtures.Collection, params *query.Params) (*resource.CursorPaginator, error) {
	offset := 0
	if params.Cursor != "" {
		pos, err := a.codec.Decode(params.Cursor)
		if err != nil {
			return nil, err
		}
		offset = pos.Offset
	}
	size := params.Page.Size

	page := &resource.CursorPaginator{Items: c.Slice(offset, size)}
	if params.Cursor != "" {
		page.Current = params.Cursor
	}
	if offset > 0 {
		prev := offset - size
		if prev < 0 {
			prev = 0
		}
		token, err := a.codec.Encode(paging.Position{Offset: prev})
		if err != nil {
			return nil, err
		}
		page.Previous = token
	}
	if offset+size < c.Len() {
		token, err := a.codec.Encode(paging.Position{Offset: offset + size})
		if err != nil {
			return nil, err
		}
		page.Next = token
	}
	return page, nil
}

// linkBase returns the request URL used for page links, keeping every
// parameter except the page number.
func (a *API) linkBase(r *http.Request, size int) string {
	if a.baseURL == "" {
		return ""
	}
	q := url.Values{}
	for k, v := range r.URL.Query() {
		if k == "page[number]" {
			continue
		}
		q[k] = v
	}
	q.Set("page[size]", fmt.Sprint(size))
	return a.baseURL + r.URL.Path + "?" + q.Encode()
}

func (a *API) write(w http.ResponseWriter, r *http.Request, b *responder.SuccessBuilder) {
	resp, err := b.Respond(http.StatusOK, nil)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.send(w, resp)
}

func (a *API) send(w http.ResponseWriter, resp *responder.Response) {
	if err := resp.Write(w); err != nil {
		a.logger.Debug("failed to write response", zap.Error(err))
	}
}

// fail maps an error to a status and writes the error payload.
func (a *API) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		a.logger.Error("request failed",
			zap.String("request_id", webcontext.GetRequestID(r.Context())),
			zap.Error(err),
		)
		a.renderError(w, r, status)
		return
	}

	resp, rerr := a.responder(r).ErrorFromStatus(status, err.Error()).Respond(status, nil)
	if rerr != nil {
		http.Error(w, rerr.Error(), http.StatusInternalServerError)
		return
	}
	a.send(w, resp)
}

// renderError writes the default error payload for status.
func (a *API) renderError(w http.ResponseWriter, r *http.Request, status int) {
	resp, err := a.responder(r).ErrorFromStatus(status).Respond(status, nil)
	if err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	a.send(w, resp)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, fixtures.ErrUnknownCollection), errors.Is(err, fixtures.ErrRecordNotFound):
		return http.StatusNotFound
	case errors.Is(err, query.ErrInvalidPage),
		errors.Is(err, paging.ErrInvalidCursor),
		errors.Is(err, transform.ErrMaxDepthExceeded):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
