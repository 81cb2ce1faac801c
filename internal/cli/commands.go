package cli

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/surrealdb/surrealrecord"
	"github.com/surrealdb/surrealrecord/pkg/elementql"
	"github.com/surrealdb/surrealrecord/pkg/models"
	"github.com/surrealdb/surrealrecord/pkg/store"
	"github.com/surrealdb/surrealrecord/pkg/store/memstore"
)

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, _ []string) {
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "surrealrecord v%s (%s)\n", Version, GitCommit)
		},
	}
}

func newGetCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "get <container> <id>",
		Short:   "Fetch one element with its properties",
		Example: "  surrealrecord get catalog 42",
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withModel(cmd, args[0], func(ctx context.Context, m *surrealrecord.Model, _ store.Store) error {
				e, err := m.Find(ctx, models.ParseIDString(args[1]))
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), e.Fields())
			})
		},
	}
}

func newListCommand() *cobra.Command {
	var (
		filters   []string
		sorts     []string
		selected  []string
		groupBy   []string
		limit     int
		offset    int
		pageSize  int
		page      int
		withProps bool
	)

	cmd := &cobra.Command{
		Use:   "list <container>",
		Short: "List the elements of a container",
		Example: `  surrealrecord list catalog --filter ACTIVE=Y --sort SORT:desc --limit 10
  surrealrecord list catalog --filter '>=SORT=100' --filter PROPERTY_COLOR=red,blue
  surrealrecord list catalog --group-by SECTION`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			filter, err := parseAssignments(filters, true)
			if err != nil {
				return err
			}

			return withModel(cmd, args[0], func(ctx context.Context, m *surrealrecord.Model, _ store.Store) error {
				q, err := m.Query()
				if err != nil {
					return err
				}
				q = q.Filter(filter)
				for _, s := range sorts {
					field, dir, _ := strings.Cut(s, ":")
					q = q.Sort(field, dir)
				}
				if len(selected) > 0 {
					q = q.Select(selected...)
				}
				if withProps {
					q = q.WithProps()
				}
				switch {
				case pageSize > 0:
					q = q.Navigation(pageSize, page)
				case limit > 0:
					q = q.Limit(limit).Offset(offset)
				case offset > 0:
					q = q.Offset(offset)
				}

				if len(groupBy) > 0 {
					rows, err := q.GroupBy(groupBy...).All(ctx)
					if err != nil {
						return err
					}
					return writeJSON(cmd.OutOrStdout(), rows)
				}

				elements, err := m.List(ctx, q)
				if err != nil {
					return err
				}
				rows := make([]models.Fields, 0, len(elements))
				for _, e := range elements {
					rows = append(rows, e.Fields())
				}
				return writeJSON(cmd.OutOrStdout(), rows)
			})
		},
	}

	cmd.Flags().StringArrayVar(&filters, "filter", nil, "filter as [op]FIELD=VALUE; comma separated values match any")
	cmd.Flags().StringArrayVar(&sorts, "sort", nil, "sort as FIELD[:asc|desc], repeatable")
	cmd.Flags().StringSliceVar(&selected, "select", nil, "fields to return")
	cmd.Flags().StringSliceVar(&groupBy, "group-by", nil, "group by fields and count")
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum number of elements")
	cmd.Flags().IntVar(&offset, "offset", 0, "number of elements to skip")
	cmd.Flags().IntVar(&pageSize, "page-size", 0, "page size, overrides --limit and --offset")
	cmd.Flags().IntVar(&page, "page", 1, "page number, used with --page-size")
	cmd.Flags().BoolVar(&withProps, "with-props", false, "include PROPERTIES and PROPERTY_VALUES")

	return cmd
}

func newSaveCommand() *cobra.Command {
	var (
		sets  []string
		props []string
		only  []string
	)

	cmd := &cobra.Command{
		Use:   "save <container> <id>",
		Short: "Change fields of an element and save it",
		Example: `  surrealrecord save catalog 42 --set NAME=Gadget --prop COLOR=blue
  surrealrecord save catalog 42 --set NAME=Gadget --set SORT=10 --only NAME`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			fields, err := parseAssignments(sets, false)
			if err != nil {
				return err
			}
			values, err := parseAssignments(props, false)
			if err != nil {
				return err
			}

			return withModel(cmd, args[0], func(ctx context.Context, m *surrealrecord.Model, st store.Store) error {
				e, err := m.Find(ctx, models.ParseIDString(args[1]))
				if err != nil {
					return err
				}
				for name, value := range fields {
					e.Set(name, value)
				}
				for code, value := range values {
					e.SetPropertyValue(code, value)
				}

				saved, err := e.Save(ctx, only...)
				if err != nil {
					return err
				}

				s := getSession(ctx)
				if mem, ok := st.(*memstore.Store); ok && saved && s.cfg.Seed != "" {
					if err := writeSeed(s.cfg.Seed, mem); err != nil {
						return err
					}
				}
				return writeJSON(cmd.OutOrStdout(), map[string]any{
					"rid":   e.RecordID().String(),
					"saved": saved,
				})
			})
		},
	}

	cmd.Flags().StringArrayVar(&sets, "set", nil, "field assignment FIELD=VALUE, repeatable")
	cmd.Flags().StringArrayVar(&props, "prop", nil, "property value assignment CODE=VALUE, repeatable")
	cmd.Flags().StringSliceVar(&only, "only", nil, "save only these fields")

	return cmd
}

// withModel opens the configured store, binds container to a model and
// runs fn. The store is closed afterwards.
func withModel(cmd *cobra.Command, container string, fn func(context.Context, *surrealrecord.Model, store.Store) error) error {
	ctx := cmd.Context()
	s := getSession(ctx)
	if s == nil {
		return fmt.Errorf("%s: configuration not loaded", cmd.Name())
	}

	log, err := openLog(cmd, s.cfg)
	if err != nil {
		return err
	}
	defer func() { _ = log.Close() }()

	st, err := openStore(ctx, s.cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := st.Close(); cerr != nil {
			log.Warn("failed to close store", "driver", s.cfg.Driver, "error", cerr)
		}
	}()

	m := surrealrecord.NewModel(st, models.ContainerID(container), surrealrecord.WithLogger(log))
	return fn(ctx, m, st)
}

// parseAssignments splits KEY=VALUE pairs at the first '='. Filter keys may
// start with an operator prefix such as ">=", which is skipped before looking
// for the separator. Filter values holding commas become value sets.
func parseAssignments(pairs []string, filter bool) (map[string]any, error) {
	out := make(map[string]any, len(pairs))
	for _, pair := range pairs {
		var prefix string
		rest := pair
		if filter {
			op, field := elementql.SplitOperator(pair)
			if len(field) < len(pair) {
				prefix, rest = string(op), field
			}
		}

		name, raw, ok := strings.Cut(rest, "=")
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid assignment %q: expected KEY=VALUE", pair)
		}
		key := prefix + name

		if filter && strings.Contains(raw, ",") {
			parts := strings.Split(raw, ",")
			set := make([]any, 0, len(parts))
			for _, part := range parts {
				set = append(set, parseValue(part))
			}
			out[key] = set
			continue
		}
		out[key] = parseValue(raw)
	}
	return out, nil
}

// parseValue keeps canonical integers as int64 and everything else as text.
func parseValue(s string) any {
	if n, err := strconv.ParseInt(s, 10, 64); err == nil && strconv.FormatInt(n, 10) == s {
		return n
	}
	return s
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

