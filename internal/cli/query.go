package cli

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/entsync/internal/ir"
	"github.com/roach88/entsync/internal/queryir"
	"github.com/roach88/entsync/internal/store"
)

// QueryOptions holds flags for the query command.
type QueryOptions struct {
	*RootOptions
	Entity string
	Where  []string // field=value
	Sort   []string // field or -field
	Limit  int
	Count  bool
}

// RecordView is the output shape of one stored object.
type RecordView struct {
	ID        string              `json:"id"`
	Entity    string              `json:"entity"`
	Fields    ir.IRObject         `json:"fields"`
	Relations map[string][]string `json:"relations,omitempty"`
	CreatedAt time.Time           `json:"created_at"`
	UpdatedAt time.Time           `json:"updated_at"`
	Seq       int64               `json:"seq"`
}

// QueryResult holds the records matched by a query.
type QueryResult struct {
	Entity  string       `json:"entity"`
	Count   int          `json:"count"`
	Records []RecordView `json:"records,omitempty"`
}

func (r QueryResult) String() string {
	var b strings.Builder
	for _, rec := range r.Records {
		fields, err := ir.MarshalCanonical(rec.Fields)
		if err != nil {
			fields = []byte("{}")
		}
		fmt.Fprintf(&b, "%s %s %s", rec.ID, rec.UpdatedAt.UTC().Format(time.RFC3339), fields)
		for _, name := range sortedKeys(rec.Relations) {
			fmt.Fprintf(&b, " %s=%s", name, strings.Join(rec.Relations[name], ","))
		}
		b.WriteByte('\n')
	}
	fmt.Fprintf(&b, "%d %s object(s)", r.Count, r.Entity)
	return b.String()
}

// NewQueryCommand creates the query command.
func NewQueryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &QueryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "query",
		Short: "List stored objects of an entity",
		Long: `List the stored objects of one entity.

Filters compare a field (or @id, @created, @updated) for equality; values
are read as JSON literals, falling back to plain strings. Results are
ordered by the sort keys, then by id.

Example:
  entsync query --db ./store.db --entity Company --where city=Berlin --sort -@updated --limit 10`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Entity, "entity", "", "entity to list (required)")
	cmd.Flags().StringArrayVar(&opts.Where, "where", nil, "filter field=value (repeatable)")
	cmd.Flags().StringArrayVar(&opts.Sort, "sort", nil, "sort by field, -field for descending (repeatable)")
	cmd.Flags().IntVar(&opts.Limit, "limit", 0, "maximum number of objects (0 = no limit)")
	cmd.Flags().BoolVar(&opts.Count, "count", false, "print only the number of matching objects")
	_ = cmd.MarkFlagRequired("entity")

	return cmd
}

func runQuery(opts *QueryOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	logger := newLogger(opts.RootOptions, cmd.ErrOrStderr())

	sel, err := buildSelect(opts)
	if err != nil {
		return formatter.Fail(ExitFailure, ErrCodeQuery, "invalid query", err)
	}
	if err := queryir.Validate(sel); err != nil {
		return formatter.Fail(ExitFailure, ErrCodeQuery, "invalid query", err)
	}

	st, err := openStore(opts.RootOptions, logger)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil {
			logger.Error("error closing database", "error", closeErr)
		}
	}()

	ctx, stop := signalContext(cmd)
	defer stop()

	result := QueryResult{Entity: opts.Entity}
	if opts.Count {
		result.Count, err = st.Count(ctx, sel)
		if err != nil {
			return formatter.Fail(ExitFailure, ErrCodeQuery, "query failed", err)
		}
		if !formatter.JSON() {
			fmt.Fprintln(formatter.Writer, result.Count)
			return nil
		}
		return formatter.Success(result)
	}

	records, err := st.Fetch(ctx, sel)
	if err != nil {
		return formatter.Fail(ExitFailure, ErrCodeQuery, "query failed", err)
	}
	result.Count = len(records)
	result.Records = make([]RecordView, 0, len(records))
	for _, rec := range records {
		result.Records = append(result.Records, recordView(rec))
	}
	return formatter.Success(result)
}

// buildSelect turns the command flags into a select query.
func buildSelect(opts *QueryOptions) (queryir.Select, error) {
	sel := queryir.Select{Entity: opts.Entity, Limit: opts.Limit}

	var preds []queryir.Predicate
	for _, clause := range opts.Where {
		field, value, ok := strings.Cut(clause, "=")
		if !ok || field == "" {
			return sel, fmt.Errorf("malformed --where %q: expected field=value", clause)
		}
		preds = append(preds, queryir.Equals{Field: field, Value: parseValue(value)})
	}
	switch len(preds) {
	case 0:
	case 1:
		sel.Filter = preds[0]
	default:
		sel.Filter = queryir.And{Predicates: preds}
	}

	for _, key := range opts.Sort {
		field, desc := strings.CutPrefix(key, "-")
		sel.Sort = append(sel.Sort, queryir.SortKey{Field: field, Descending: desc})
	}
	return sel, nil
}

func recordView(rec store.Record) RecordView {
	view := RecordView{
		ID:        rec.ID,
		Entity:    rec.Entity,
		Fields:    rec.Fields,
		CreatedAt: rec.CreatedAt.UTC(),
		UpdatedAt: rec.UpdatedAt.UTC(),
		Seq:       rec.Seq,
	}
	if view.Fields == nil {
		view.Fields = ir.IRObject{}
	}
	if len(rec.Relations) > 0 {
		view.Relations = rec.Relations
	}
	return view
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
