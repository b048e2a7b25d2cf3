package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/browser"
	"github.com/pkg/errors"
	"github.com/rs/xid"
	"github.com/sarchlab/selftime/config"
	"github.com/sarchlab/selftime/container"
	"github.com/sarchlab/selftime/datarecording"
	"github.com/sarchlab/selftime/monitoring"
	"github.com/sarchlab/selftime/plan"
	"github.com/sarchlab/selftime/report"
	"github.com/sarchlab/selftime/timing"
	"github.com/sarchlab/selftime/tracing"
	"github.com/sarchlab/selftime/tracking"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var runCmd = &cobra.Command{
	Use:   "run <plan.yaml>",
	Short: "Create the components of a plan and report their times.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		r := &runner{
			cfg:    cfg,
			logger: logger,
			out:    cmd.OutOrStdout(),
		}

		return r.run(args[0])
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
}

type runner struct {
	cfg    *config.Config
	logger *zap.Logger
	out    io.Writer

	clock   timing.Clock
	tracker *tracking.Tracker
	session *tracking.Synchronized
	monitor *monitoring.Monitor
	db      *tracing.DBTracer
	exec    *datarecording.ExecRecorder
	dbFile  string
}

func (r *runner) run(planPath string) error {
	format, err := report.ParseFormat(r.cfg.Format)
	if err != nil {
		return err
	}

	p, err := plan.Load(planPath)
	if err != nil {
		return err
	}

	r.createSession()

	total := tracing.NewTotalTimeTracer(tracing.RootsOnly)
	average := tracing.NewAverageTimeTracer(nil)
	tracing.CollectTrace(r.tracker, tracing.NewLogTracer(r.logger))
	tracing.CollectTrace(r.tracker, total)
	tracing.CollectTrace(r.tracker, average)

	if err := r.startRecording(planPath); err != nil {
		return err
	}

	if err := r.startMonitoring(p); err != nil {
		return r.abort(p.Name, err)
	}
	defer r.stopMonitoring()

	c := container.New(r.session)
	if err := p.Install(c, r.clock); err != nil {
		return r.abort(p.Name, err)
	}

	r.logger.Info("running plan",
		zap.String("plan", p.Name),
		zap.Int("components", len(p.Components)),
		zap.Bool("virtual", r.cfg.Virtual))

	runErr := c.PreInstantiate()
	if runErr != nil {
		r.logger.Error("plan failed",
			zap.Strings("in_progress", r.tracker.InProgress()),
			zap.Error(runErr))
	}

	var rep report.Report
	r.session.Read(func(t *tracking.Tracker) {
		rep = report.FromTracker(t)
	})

	if err := report.Write(r.out, rep, format, r.cfg.Top); err != nil {
		return err
	}

	if format == report.FormatTable || format == report.FormatTree {
		fmt.Fprintf(r.out,
			"%d operations, total %s, average %s, average self %s\n",
			r.tracker.OperationCount(), formatMillis(total.TotalTime()),
			formatMillis(average.AverageTime()),
			formatMillis(average.AverageSelfTime()))
	}

	if err := r.finishRecording(p.Name); err != nil {
		return err
	}

	return runErr
}

func (r *runner) createSession() {
	if r.cfg.Virtual {
		r.clock = timing.NewManualClock()
	} else {
		r.clock = timing.NewWallClock()
	}

	r.tracker = tracking.NewTracker(r.clock)
	r.session = tracking.NewSynchronized(r.tracker)
}

func (r *runner) startRecording(planPath string) error {
	if r.cfg.DB == "" {
		return nil
	}

	if err := os.MkdirAll(r.cfg.DB, 0o755); err != nil {
		return errors.Wrap(err, "creating database directory")
	}

	sessionID := xid.New().String()
	writer := datarecording.NewSQLiteWriter(filepath.Join(r.cfg.DB, sessionID))
	if err := writer.Init(); err != nil {
		return err
	}

	r.dbFile = writer.Filename()
	r.db = tracing.NewDBTracer(writer, sessionID)
	tracing.CollectTrace(r.tracker, r.db)

	r.exec = datarecording.NewExecRecorder(writer)
	r.exec.Start()
	r.exec.Record("Plan", planPath)
	r.exec.Record("Virtual", fmt.Sprint(r.cfg.Virtual))

	return nil
}

func (r *runner) finishRecording(planName string) error {
	if r.db == nil {
		return nil
	}

	if err := r.db.Terminate(planName); err != nil {
		return err
	}

	if err := r.exec.End(); err != nil {
		return errors.Wrap(err, "recording execution")
	}

	r.logger.Info("session recorded", zap.String("file", r.dbFile))

	return nil
}

// abort closes the recorded session, if any, before giving up on a run.
func (r *runner) abort(planName string, err error) error {
	if recErr := r.finishRecording(planName); recErr != nil {
		r.logger.Error("closing recorded session", zap.Error(recErr))
	}

	return err
}

func (r *runner) startMonitoring(p *plan.Plan) error {
	if r.cfg.Monitor.Port == 0 {
		return nil
	}

	r.monitor = monitoring.NewMonitor(r.session).
		WithLogger(r.logger).
		WithPortNumber(r.cfg.Monitor.Port)

	url, err := r.monitor.StartServer()
	if err != nil {
		return err
	}

	bar := r.monitor.CreateProgressBar(p.Name, uint64(len(p.Components)))
	tracing.CollectTrace(r.tracker, bar)

	if r.cfg.Monitor.Open {
		if err := browser.OpenURL(url); err != nil {
			r.logger.Warn("cannot open browser", zap.Error(err))
		}
	}

	return nil
}

func (r *runner) stopMonitoring() {
	if r.monitor == nil {
		return
	}

	if err := r.monitor.StopServer(); err != nil {
		r.logger.Warn("stopping monitoring server", zap.Error(err))
	}
}

func formatMillis(d time.Duration) string {
	return fmt.Sprintf("%dms", d.Round(time.Millisecond).Milliseconds())
}
