package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"github.com/spf13/cobra"

	"github.com/roach88/entsync/internal/ir"
	"github.com/roach88/entsync/internal/metrics"
	"github.com/roach88/entsync/internal/reconcile"
	"github.com/roach88/entsync/internal/store"
	"github.com/roach88/entsync/internal/transform"
)

// SyncOptions holds flags for the sync command.
type SyncOptions struct {
	*RootOptions
	Entity  string
	Key     string
	Value   string
	Metrics bool
}

// SyncResult reports one committed sync.
type SyncResult struct {
	Entity   string   `json:"entity"`
	Payloads int      `json:"payloads"`
	Seq      int64    `json:"seq"`
	Inserted []string `json:"inserted"`
	Updated  []string `json:"updated"`
}

func (r SyncResult) String() string {
	if r.Seq == 0 {
		return fmt.Sprintf("%s %d %s payload(s) already current", markPass, r.Payloads, r.Entity)
	}
	return fmt.Sprintf("%s %d %s payload(s) committed at seq %d: %d inserted, %d updated",
		markPass, r.Payloads, r.Entity, r.Seq, len(r.Inserted), len(r.Updated))
}

// NewSyncCommand creates the sync command.
func NewSyncCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SyncOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "sync [payload.json...]",
		Short: "Reconcile JSON payloads into the store",
		Long: `Reconcile JSON payloads into the object store in one transaction.

Each file (or stdin when no file or "-" is given) holds one JSON object or
an array of objects. Objects are matched by the entity's identity
property. With --key and --value a single payload is matched on that
field instead.

Example:
  entsync sync --db ./store.db --schema ./schema --entity Company acme.json
  curl -s $URL | entsync sync --db ./store.db --schema ./schema --entity Company -`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSync(opts, args, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Entity, "entity", "", "entity the payloads describe (required)")
	cmd.Flags().StringVar(&opts.Key, "key", "", "match on this field instead of the identity property")
	cmd.Flags().StringVar(&opts.Value, "value", "", "value for --key (JSON literal or plain string)")
	cmd.Flags().BoolVar(&opts.Metrics, "metrics", false, "print sync metrics to stderr")
	_ = cmd.MarkFlagRequired("entity")

	return cmd
}

func runSync(opts *SyncOptions, files []string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	logger := newLogger(opts.RootOptions, cmd.ErrOrStderr())

	reg, err := loadRegistry(opts.RootOptions)
	if err != nil {
		return err
	}
	desc, ok := reg.Lookup(opts.Entity)
	if !ok {
		return NewExitError(ExitCommandError, fmt.Sprintf("unknown entity %q", opts.Entity))
	}

	payloads, err := readPayloads(cmd.InOrStdin(), files)
	if err != nil {
		return formatter.Fail(ExitFailure, ErrCodeInput, "failed to read payloads", err)
	}
	if opts.Key != "" && len(payloads) != 1 {
		return formatter.Fail(ExitFailure, ErrCodeInput,
			fmt.Sprintf("--key matches one payload, got %d", len(payloads)), nil)
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

	promReg := prometheus.NewRegistry()
	recorder := metrics.NewRecorder(promReg)
	rec := reconcile.New[*store.Object](
		reconcile.WithTransformers(transform.Default()),
		reconcile.WithLogger(logger),
		reconcile.WithObserver(recorder),
		reconcile.WithMetadata(reg),
	)

	start := time.Now()
	tx := st.Begin()
	if opts.Key != "" {
		_, err = rec.Reconcile(ctx, tx, desc, opts.Key, parseValue(opts.Value), payloads[0])
	} else {
		_, err = rec.ReconcileAll(ctx, tx, desc, payloads)
	}
	if err != nil {
		tx.Rollback()
		return formatter.Fail(ExitFailure, ErrCodeSync, "reconcile failed", err)
	}

	cs, err := tx.Commit(ctx)
	if err != nil {
		return formatter.Fail(ExitFailure, ErrCodeSync, "commit failed", err)
	}
	recorder.Commit(len(cs.Inserted), len(cs.Updated), len(cs.Deleted))
	recorder.ObserveSync(start)
	logger.Info("sync committed", "entity", desc.Name, "seq", cs.Seq,
		"inserted", len(cs.Inserted), "updated", len(cs.Updated))

	if opts.Metrics {
		if err := writeMetrics(formatter.GetErrWriter(), promReg); err != nil {
			logger.Warn("failed to write metrics", "error", err)
		}
	}

	return formatter.Success(SyncResult{
		Entity:   desc.Name,
		Payloads: len(payloads),
		Seq:      cs.Seq,
		Inserted: refIDs(cs.Inserted),
		Updated:  refIDs(cs.Updated),
	})
}

// readPayloads decodes each file, or stdin for "-" and when files is
// empty.
func readPayloads(stdin io.Reader, files []string) ([]ir.IRObject, error) {
	if len(files) == 0 {
		files = []string{"-"}
	}

	var payloads []ir.IRObject
	for _, name := range files {
		var (
			data []byte
			err  error
		)
		if name == "-" {
			data, err = io.ReadAll(stdin)
			name = "stdin"
		} else {
			data, err = os.ReadFile(name)
		}
		if err != nil {
			return nil, err
		}
		objs, err := ir.DecodeObjects(data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		payloads = append(payloads, objs...)
	}
	return payloads, nil
}

// parseValue reads s as a JSON literal, falling back to a plain string.
func parseValue(s string) ir.IRValue {
	v, err := ir.DecodeValue([]byte(s))
	if err != nil {
		return ir.IRString(s)
	}
	return v
}

// signalContext derives a context from the command's that is cancelled
// on SIGINT or SIGTERM.
func signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

func writeMetrics(w io.Writer, g prometheus.Gatherer) error {
	families, err := g.Gather()
	if err != nil {
		return err
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return err
		}
	}
	return nil
}

func refIDs(refs []store.ObjectRef) []string {
	ids := make([]string, 0, len(refs))
	for _, ref := range refs {
		ids = append(ids, ref.ID)
	}
	return ids
}
