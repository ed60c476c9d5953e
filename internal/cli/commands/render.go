package commands

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/ohler55/ojg/jp"
	"github.com/ohler55/ojg/oj"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/conduit-lang/responder/internal/cli/config"
	"github.com/conduit-lang/responder/internal/fixtures"
	"github.com/conduit-lang/responder/internal/logging"
	"github.com/conduit-lang/responder/pkg/format"
	"github.com/conduit-lang/responder/pkg/messages"
	"github.com/conduit-lang/responder/pkg/resource"
	"github.com/conduit-lang/responder/pkg/responder"
	"github.com/conduit-lang/responder/pkg/transform"
)

// errNoFixtures is returned when neither an argument nor the config names a
// fixture file.
var errNoFixtures = errors.New("no fixture file given and none configured")

type renderOptions struct {
	collection string
	id         string
	include    []string
	exclude    []string
	fields     []string
	serializer string
	page       int
	pageSize   int
	selectPath string
	compact    bool
}

// NewRenderCommand creates the render command.
func NewRenderCommand(global *globalOptions) *cobra.Command {
	opts := &renderOptions{}

	cmd := &cobra.Command{
		Use:   "render [fixtures.yml]",
		Short: "Render a fixture collection or record",
		Long: `Render a collection or a single record of a YAML fixture file as a
success response.

Examples:
  responder render shop.yml --collection users
  responder render shop.yml --collection users --id 1 --include orders.products
  responder render shop.yml -C orders --serializer jsonapi --fields orders=total
  responder render shop.yml -C users --page 2 --page-size 10
  responder render shop.yml -C users --select '$.users[*].name'`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := global.load()
			if err != nil {
				return err
			}
			path := cfg.Fixtures
			if len(args) == 1 {
				path = args[0]
			}
			if path == "" {
				return errNoFixtures
			}
			return runRender(cmd, cfg, path, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.collection, "collection", "C", "", "Collection to render (required)")
	cmd.Flags().StringVar(&opts.id, "id", "", "Render a single record instead of the collection")
	cmd.Flags().StringArrayVarP(&opts.include, "include", "i", nil, "Relations to include, e.g. orders.products or orders:id,total")
	cmd.Flags().StringArrayVarP(&opts.exclude, "exclude", "x", nil, "Relations to suppress, defaults included")
	cmd.Flags().StringArrayVarP(&opts.fields, "fields", "f", nil, "Sparse fieldset as type=field,field")
	cmd.Flags().StringVarP(&opts.serializer, "serializer", "s", "", "Serializer: simple or jsonapi (default from config)")
	cmd.Flags().IntVar(&opts.page, "page", 0, "Paginate the collection and render this page")
	cmd.Flags().IntVar(&opts.pageSize, "page-size", 0, "Page size (default from config)")
	cmd.Flags().StringVar(&opts.selectPath, "select", "", "JSONPath applied to the rendered payload")
	cmd.Flags().BoolVar(&opts.compact, "compact", false, "Print compact JSON")
	cmd.MarkFlagRequired("collection")

	return cmd
}

func runRender(cmd *cobra.Command, cfg *config.Config, path string, opts *renderOptions) error {
	logger, err := logging.NewWriter(cmd.ErrOrStderr(), cfg.Log.Level)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ds, err := fixtures.Load(path)
	if err != nil {
		return err
	}
	c, err := ds.Collection(opts.collection)
	if err != nil {
		return err
	}
	t, err := ds.Transformer(opts.collection)
	if err != nil {
		return err
	}

	fieldsets, err := parseFieldsets(opts.fields)
	if err != nil {
		return err
	}

	serializerName := cfg.Serializer
	if opts.serializer != "" {
		serializerName = opts.serializer
	}
	rs, err := newResponder(cfg, serializerName, logger)
	if err != nil {
		return err
	}

	var data any
	switch {
	case opts.id != "":
		rec, err := c.Find(opts.id)
		if err != nil {
			return err
		}
		data = rec
	case opts.page > 0:
		size := opts.pageSize
		if size < 1 {
			size = cfg.PageSize
		}
		data = &resource.Paginator{
			Items:       c.Slice((opts.page-1)*size, size),
			Total:       c.Len(),
			PerPage:     size,
			CurrentPage: opts.page,
		}
	default:
		data = c.All()
	}

	b := rs.Success(data).Transform(t).Fieldsets(fieldsets)
	if len(opts.include) > 0 {
		b.With(opts.include)
	}
	if len(opts.exclude) > 0 {
		b.Without(opts.exclude)
	}

	payload, err := b.ToJSON()
	if err != nil {
		return fmt.Errorf("failed to render %s: %w", opts.collection, err)
	}

	var out any
	if opts.selectPath == "" {
		out = json.RawMessage(payload)
	} else {
		out, err = selectPath(payload, opts.selectPath)
		if err != nil {
			return err
		}
	}

	encoded, err := encodeOutput(out, !opts.compact)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), string(encoded))
	return err
}

// newResponder builds a responder from the configuration.
func newResponder(cfg *config.Config, serializerName string, logger *zap.Logger) (*responder.Responder, error) {
	serializer, err := format.ByName(serializerName)
	if err != nil {
		return nil, err
	}
	builder := transform.NewBuilder(
		transform.WithMaxDepth(cfg.MaxDepth),
		transform.WithLogger(logger),
	)
	return responder.New(
		responder.WithBuilder(builder),
		responder.WithSerializer(serializer),
		responder.WithMessages(messages.Chain{
			messages.NewMapResolver(cfg.Messages),
			messages.NewMapResolver(messages.Defaults),
		}),
	), nil
}

// parseFieldsets parses "type=field,field" flags.
func parseFieldsets(values []string) (map[string][]string, error) {
	out := make(map[string][]string, len(values))
	for _, v := range values {
		typ, list, ok := strings.Cut(v, "=")
		typ = strings.TrimSpace(typ)
		if !ok || typ == "" {
			return nil, fmt.Errorf("invalid fieldset %q, expected type=field,field", v)
		}
		fields := []string{}
		for _, f := range strings.Split(list, ",") {
			if f = strings.TrimSpace(f); f != "" {
				fields = append(fields, f)
			}
		}
		out[typ] = fields
	}
	return out, nil
}

// selectPath evaluates a JSONPath against the payload. A single match is
// returned as is, several matches as a list.
func selectPath(payload []byte, selector string) (any, error) {
	x, err := jp.ParseString(selector)
	if err != nil {
		return nil, fmt.Errorf("invalid jsonpath '%s': %w", selector, err)
	}
	doc, err := oj.Parse(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to parse payload: %w", err)
	}

	results := x.Get(doc)
	if len(results) == 1 {
		return results[0], nil
	}
	if results == nil {
		results = []any{}
	}
	return results, nil
}

func encodeOutput(v any, pretty bool) ([]byte, error) {
	if pretty {
		return json.MarshalIndent(v, "", "  ")
	}
	return json.Marshal(v)
}
