package cli

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/kirillkom/knowledge-hub-tools/internal/core/domain"
	"github.com/kirillkom/knowledge-hub-tools/internal/core/ports"
)

type ImageAssigner interface {
	AssignAll(ctx context.Context, force bool) ([]domain.ActionResult, error)
}

type UnitSyncer interface {
	Sync(ctx context.Context) ([]domain.ActionResult, error)
}

type Converter interface {
	Convert(ctx context.Context, ref string, target domain.Category, asCopy bool) (domain.ActionResult, error)
}

type Duplicator interface {
	Duplicate(ctx context.Context, category domain.Category, dimension string, force bool) ([]domain.ActionResult, error)
}

type Seeder interface {
	Seed(ctx context.Context, manifest domain.SeedManifest) ([]domain.ActionResult, error)
}

type Diagnoser interface {
	Diagnose(ctx context.Context) (domain.Diagnosis, error)
}

// RunObserver records command timings and exposes them for scraping or
// pushing.
type RunObserver interface {
	ObserveRun(command string, duration time.Duration)
	ObserveEvent(event domain.GuideEvent)
	Push(ctx context.Context, url, command string) error
	Handler() http.Handler
}

// Services is everything the commands drive. Nil members disable the
// commands that need them.
type Services struct {
	Coverage    ports.CoverageAuditor
	Reconciler  ports.Reconciler
	Images      ImageAssigner
	UnitMirror  UnitSyncer
	Conversion  Converter
	Duplication Duplicator
	Seeder      Seeder
	Diagnoser   Diagnoser

	Archive    ports.ObjectStorage
	Exporter   ports.ReportExporter
	Subscriber ports.EventSubscriber
	Metrics    RunObserver
	Logger     *slog.Logger

	PushgatewayURL string
	MetricsAddr    string

	Close func()
}

// Loader builds the services once the command line is parsed, so --help and
// usage errors never need credentials.
type Loader func(ctx context.Context) (*Services, error)

type runner struct {
	load    Loader
	svc     *Services
	started time.Time
	now     func() time.Time
}

// Execute runs hubctl with args. Human-readable output goes to out.
func Execute(ctx context.Context, load Loader, args []string, out, errOut io.Writer) error {
	r := &runner{load: load, now: time.Now}
	defer r.close()

	root := newRootCommand(r)
	root.SetArgs(args)
	root.SetOut(out)
	root.SetErr(errOut)
	return root.ExecuteContext(ctx)
}

func newRootCommand(r *runner) *cobra.Command {
	root := &cobra.Command{
		Use:   "hubctl",
		Short: "Maintain knowledge hub guides and their filter coverage",
		Long: `hubctl audits how guides populate the knowledge hub filters and fixes
the gaps: relabelling, duplicating or creating guides so that every filter
value shows at least one approved guide.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: r.before,
	}
	root.AddCommand(
		newAuditCommand(r),
		newReconcileCommand(r),
		newAssignImagesCommand(r),
		newSyncUnitsCommand(r),
		newConvertCommand(r),
		newDuplicateCommand(r),
		newSeedCommand(r),
		newDiagnoseCommand(r),
		newWatchCommand(r),
	)
	return root
}

func (r *runner) before(cmd *cobra.Command, _ []string) error {
	if r.svc != nil {
		return nil
	}
	if r.load == nil {
		return errors.New("hubctl is not configured")
	}
	svc, err := r.load(cmd.Context())
	if err != nil {
		return err
	}
	if svc.Logger == nil {
		svc.Logger = slog.Default()
	}
	r.svc = svc
	r.started = r.now()
	return nil
}

// finish records the command duration and pushes metrics. Push failures are
// logged, never returned.
func (r *runner) finish(cmd *cobra.Command) {
	if r.svc == nil || r.svc.Metrics == nil {
		return
	}
	r.svc.Metrics.ObserveRun(cmd.Name(), r.now().Sub(r.started))
	if err := r.svc.Metrics.Push(cmd.Context(), r.svc.PushgatewayURL, cmd.Name()); err != nil {
		r.svc.Logger.Warn("metrics_push_failed", "command", cmd.Name(), "error", err)
	}
}

func (r *runner) close() {
	if r.svc != nil && r.svc.Close != nil {
		r.svc.Close()
	}
}

func notConfigured(what string) error {
	return domain.WrapError(domain.ErrConfig, what, errors.New("service not configured"))
}
