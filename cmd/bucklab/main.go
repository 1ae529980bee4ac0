package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/steelspec/bucklab/internal/batch"
	"github.com/steelspec/bucklab/internal/config"
	"github.com/steelspec/bucklab/internal/engine"
	"github.com/steelspec/bucklab/internal/loadcase"
	"github.com/steelspec/bucklab/internal/params"
	"github.com/steelspec/bucklab/internal/peak"
	"github.com/steelspec/bucklab/internal/pipeline"
	"github.com/steelspec/bucklab/internal/report"
	"github.com/steelspec/bucklab/internal/store"
	"github.com/steelspec/bucklab/internal/viz"
)

var (
	resultsRoot string
	configFile  string
	profileName string
	engineName  string
	caseFilter  string
	workRoot    string
	keepWork    bool
	saveModels  bool
	numCPUs     int
	liveView    bool
	makeReport  bool
	// plot dimensions
	plotWidth  int
	plotHeight int
	// peak selection knobs
	smoothWindow int
	minPeakFrac  float64
	dropRatio    float64
	persistN     int
	// export / report targets
	exportOut string
	runID     string
)

// main registers the bucklab commands and executes the root command,
// exiting with status 1 on error.
func main() {
	rootCmd := &cobra.Command{
		Use:   "bucklab",
		Short: "buckling and collapse analysis automation for built-up steel members",
	}

	rootCmd.PersistentFlags().StringVar(&resultsRoot, "results", config.DefaultResultsRoot, "results directory")

	runCmd := &cobra.Command{
		Use:   "run [batch-file]",
		Short: "run the two-phase analysis for a parameter sheet",
		Long: "Runs eigenvalue buckling followed by an imperfection-seeded collapse\n" +
			"analysis for every record in the batch sheet (.csv, .xlsx or .xlsm).\n" +
			"Without a sheet the built-in default parameters run once.",
		Args: cobra.MaximumNArgs(1),
		RunE: runBatch,
	}
	runCmd.Flags().StringVar(&configFile, "config", "", "config file path (yaml)")
	runCmd.Flags().StringVar(&profileName, "profile", "", "named config profile")
	runCmd.Flags().StringVar(&engineName, "engine", config.DefaultEngine, "analysis engine")
	runCmd.Flags().StringVar(&caseFilter, "cases", "", "load case selector overriding the sheet (e.g. LC1,LC4)")
	runCmd.Flags().StringVar(&workRoot, "work", config.DefaultWorkRoot, "scratch directory")
	runCmd.Flags().BoolVar(&keepWork, "keep-work", false, "retain scratch files")
	runCmd.Flags().BoolVar(&saveModels, "save-models", false, "archive rendered input decks with the results")
	runCmd.Flags().IntVar(&numCPUs, "cpus", config.DefaultNumCPUs, "solver cpu count (0 = per-record numCpus)")
	runCmd.Flags().BoolVar(&liveView, "live", false, "live terminal monitor")
	runCmd.Flags().BoolVar(&makeReport, "report", false, "write the PDF report after the run")

	casesCmd := &cobra.Command{
		Use:   "cases",
		Short: "list the load case registry",
		RunE:  listCases,
	}

	defaultsCmd := &cobra.Command{
		Use:   "defaults",
		Short: "print the effective default parameters",
		RunE:  printDefaults,
	}

	specimensCmd := &cobra.Command{
		Use:   "specimens",
		Short: "list stored specimens and their cases",
		RunE:  listSpecimens,
	}

	runsCmd := &cobra.Command{
		Use:   "runs",
		Short: "list recorded batch runs",
		RunE:  listRuns,
	}

	profilesCmd := &cobra.Command{
		Use:   "profiles",
		Short: "list named config profiles",
		RunE:  listProfiles,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [specimen] [case]",
		Short: "plot a stored equilibrium path in the terminal",
		Args:  cobra.ExactArgs(2),
		RunE:  plotCase,
	}
	plotCmd.Flags().IntVar(&plotWidth, "width", 80, "plot width")
	plotCmd.Flags().IntVar(&plotHeight, "height", 10, "plot height")

	peakCmd := &cobra.Command{
		Use:   "peak [specimen] [case]",
		Short: "select the peak frame of a stored collapse curve",
		Args:  cobra.ExactArgs(2),
		RunE:  peakCase,
	}
	peakCmd.Flags().IntVar(&smoothWindow, "smooth", config.DefaultSmoothWindow, "moving average window")
	peakCmd.Flags().Float64Var(&minPeakFrac, "min-frac", config.DefaultMinPeakFrac, "candidate threshold as a fraction of the global max")
	peakCmd.Flags().Float64Var(&dropRatio, "drop", config.DefaultDropRatio, "sustained drop ratio")
	peakCmd.Flags().IntVar(&persistN, "persist", config.DefaultPersistN, "increments the drop must persist")

	exportCmd := &cobra.Command{
		Use:   "export [specimen] [case]",
		Short: "export a stored case as JSON",
		Args:  cobra.ExactArgs(2),
		RunE:  exportCase,
	}
	exportCmd.Flags().StringVar(&exportOut, "out", "", "output path (default stdout)")

	reportCmd := &cobra.Command{
		Use:   "report",
		Short: "rebuild figures and the PDF report from stored results",
		RunE:  buildReport,
	}
	reportCmd.Flags().StringVar(&runID, "run", "", "run manifest to report (default latest)")

	rootCmd.AddCommand(runCmd, casesCmd, defaultsCmd, specimensCmd, runsCmd,
		profilesCmd, plotCmd, peakCmd, exportCmd, reportCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runBatch(cmd *cobra.Command, args []string) error {
	cfg := config.DefaultConfig()
	if profileName != "" {
		cfg = config.Profile(profileName)
		if cfg == nil {
			return fmt.Errorf("unknown profile: %s (available: %v)", profileName, config.ListProfiles())
		}
	}
	if configFile != "" {
		var err error
		cfg, err = config.Load(configFile)
		if err != nil {
			return err
		}
	}

	// CLI flags override profile and file values.
	if cmd.Flags().Changed("engine") {
		cfg.Engine = engineName
	}
	if cmd.Flags().Changed("results") {
		cfg.ResultsRoot = resultsRoot
	}
	if cmd.Flags().Changed("work") {
		cfg.WorkRoot = workRoot
	}
	if cmd.Flags().Changed("keep-work") {
		cfg.KeepWorkFiles = keepWork
	}
	if cmd.Flags().Changed("save-models") {
		cfg.SaveModels = saveModels
	}
	if cmd.Flags().Changed("cpus") {
		cfg.NumCPUs = numCPUs
	}

	var records []map[string]string
	if len(args) == 1 {
		if _, err := os.Stat(args[0]); os.IsNotExist(err) {
			// An absent sheet runs the built-in defaults; only a
			// malformed one is an error.
			fmt.Printf("parameter sheet %s not found; running the built-in defaults\n", args[0])
		} else {
			records, err = batch.Read(args[0])
			if err != nil {
				return err
			}
			fmt.Printf("loaded %d parameter records from %s\n", len(records), args[0])
		}
	}
	if caseFilter != "" {
		if len(records) == 0 {
			records = []map[string]string{{}}
		}
		for _, rec := range records {
			rec["enableCases"] = caseFilter
		}
	}

	eng, err := engine.Get(cfg.Engine)
	if err != nil {
		return err
	}

	st := store.New(cfg.ResultsRoot)
	if err := st.Init(); err != nil {
		return err
	}

	if err := os.MkdirAll(cfg.LogsRoot, 0o755); err != nil {
		return fmt.Errorf("failed to create logs dir: %w", err)
	}
	start := time.Now()
	logPath := filepath.Join(cfg.LogsRoot, "run_"+start.Format("20060102_150405")+".log")
	logFile, err := os.Create(logPath)
	if err != nil {
		return fmt.Errorf("failed to create log file: %w", err)
	}
	defer logFile.Close()

	opts := pipeline.Options{
		WorkRoot:      cfg.WorkRoot,
		KeepWorkFiles: cfg.KeepWorkFiles,
		NumCPUs:       cfg.NumCPUs,
		SaveModels:    cfg.SaveModels,
		Peak: peak.Options{
			SmoothWindow: cfg.Peak.SmoothWindow,
			MinPeakFrac:  cfg.Peak.MinPeakFrac,
			DropRatio:    cfg.Peak.DropRatio,
			PersistN:     cfg.Peak.PersistN,
		},
		MinImages:  cfg.Images.MinRequired,
		ImageModes: cfg.Images.Modes,
		ViewerWait: time.Duration(cfg.Viewer.WaitSeconds) * time.Second,
		ViewerPoll: time.Duration(cfg.Viewer.PollSeconds) * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	var sums []store.Summary
	var runErr error
	if liveView {
		events := pipeline.NewChannelSink(256)
		runner := pipeline.New(eng, st, opts, pipeline.MultiSink{
			pipeline.NewConsoleSink(logFile),
			events,
		})

		done := make(chan struct{})
		go func() {
			defer close(done)
			defer events.Close()
			sums, runErr = runner.RunBatch(ctx, records)
		}()

		if _, err := tea.NewProgram(viz.NewMonitor(events.Events())).Run(); err != nil && runErr == nil {
			runErr = err
		}
		<-done
	} else {
		runner := pipeline.New(eng, st, opts, pipeline.MultiSink{
			pipeline.NewConsoleSink(io.MultiWriter(os.Stdout, logFile)),
		})
		sums, runErr = runner.RunBatch(ctx, records)
	}
	finished := time.Now()

	if err := st.WriteManifest(store.RunManifest{
		ID:        store.NewRunID(start),
		Engine:    eng.Name(),
		Started:   start,
		Finished:  finished,
		Summaries: sums,
	}); err != nil {
		fmt.Fprintf(os.Stderr, "warning: %v\n", err)
	}

	printFooter(sums, finished.Sub(start), logPath)

	if makeReport {
		if err := writeReportFiles(st, sums); err != nil {
			return err
		}
	}
	return runErr
}

func printFooter(sums []store.Summary, elapsed time.Duration, logPath string) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SPECIMEN\tCASE\tSTATUS\tMAX LPF\tPEAK")

	total, completed := 0, 0
	for _, sum := range sums {
		for _, c := range sum.Cases {
			total++
			switch c.Status {
			case store.StatusCompleted:
				completed++
				fmt.Fprintf(w, "%s\t%s\t%s\t%.4f\t%s @ %d\n",
					sum.Specimen, c.CaseID, c.Status, c.MaxLPF, c.PeakKind, c.PeakFrame)
			case store.StatusFailed:
				fmt.Fprintf(w, "%s\t%s\t%s\t-\t%s: %s\n",
					sum.Specimen, c.CaseID, c.Status, c.Phase, c.Cause)
			default:
				fmt.Fprintf(w, "%s\t%s\t%s\t-\t-\n", sum.Specimen, c.CaseID, c.Status)
			}
		}
	}
	w.Flush()
	fmt.Printf("\ncompleted %d/%d cases in %s\nlog: %s\n",
		completed, total, elapsed.Round(time.Millisecond), logPath)
}

func listCases(cmd *cobra.Command, args []string) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tDESCRIPTION\tREF LOAD (X,Y,Z)\tDRIVE")

	for _, lc := range loadcase.All() {
		drive := fmt.Sprintf("U%d to %g", int(lc.Control.DOF), lc.Control.MaxDisp*float64(lc.Control.Sign))
		fmt.Fprintf(w, "%s\t%s\t(%g, %g, %g)\t%s\n",
			lc.ID, lc.Description,
			lc.BucklingRef[0], lc.BucklingRef[1], lc.BucklingRef[2], drive)
	}
	return w.Flush()
}

func printDefaults(cmd *cobra.Command, args []string) error {
	set, _, err := params.Normalize(nil)
	if err != nil {
		return err
	}
	rec := set.Record()

	keys := make([]string, 0, len(rec))
	for k := range rec {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "KEY\tVALUE")
	for _, k := range keys {
		fmt.Fprintf(w, "%s\t%s\n", k, rec[k])
	}
	return w.Flush()
}

func listSpecimens(cmd *cobra.Command, args []string) error {
	st := store.New(resultsRoot)
	specimens, err := st.ListSpecimens()
	if err != nil {
		return err
	}
	if len(specimens) == 0 {
		fmt.Println("no specimens found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SPECIMEN\tCASES\tIMAGES")
	for _, spec := range specimens {
		cases, err := st.ListCases(spec)
		if err != nil {
			continue
		}
		images := 0
		for _, c := range cases {
			images += store.CountImages(st.CaseDir(spec, c))
		}
		fmt.Fprintf(w, "%s\t%s\t%d\n", spec, strings.Join(cases, ","), images)
	}
	return w.Flush()
}

func listRuns(cmd *cobra.Command, args []string) error {
	st := store.New(resultsRoot)
	runs, err := st.ListManifests()
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tENGINE\tSTARTED\tDURATION\tSPECIMENS\tCASES")
	for _, run := range runs {
		cases := 0
		for _, sum := range run.Summaries {
			cases += len(sum.Cases)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%d\n",
			run.ID, run.Engine,
			run.Started.Format("2006-01-02 15:04:05"),
			run.Finished.Sub(run.Started).Round(time.Second),
			len(run.Summaries), cases)
	}
	return w.Flush()
}

func listProfiles(cmd *cobra.Command, args []string) error {
	for _, name := range config.ListProfiles() {
		fmt.Println(name)
	}
	return nil
}

func plotCase(cmd *cobra.Command, args []string) error {
	st := store.New(resultsRoot)
	h, err := st.ReadCurve(args[0], args[1])
	if err != nil {
		return err
	}

	dec := peak.Select(h.Time, h.LPF, peak.Options{})
	fmt.Printf("%s / %s: %d increments\n\n", args[0], args[1], h.Len())
	fmt.Println(viz.Curve(h.LPF, dec, plotWidth, plotHeight))

	if modes, err := st.ReadEigen(args[0], args[1]); err == nil && len(modes) > 0 {
		vals := make([]float64, len(modes))
		for i, m := range modes {
			vals[i] = m.Eigenvalue
		}
		fmt.Println()
		fmt.Println(viz.Modes(vals, plotWidth, plotHeight))
	}
	return nil
}

func peakCase(cmd *cobra.Command, args []string) error {
	st := store.New(resultsRoot)
	h, err := st.ReadCurve(args[0], args[1])
	if err != nil {
		return err
	}

	dec := peak.Select(h.Time, h.LPF, peak.Options{
		SmoothWindow: smoothWindow,
		MinPeakFrac:  minPeakFrac,
		DropRatio:    dropRatio,
		PersistN:     persistN,
	})
	if dec.Index < 0 {
		fmt.Println("no increments stored")
		return nil
	}
	fmt.Printf("kind:        %s\n", dec.Kind)
	fmt.Printf("increment:   %d\n", dec.Index+1)
	fmt.Printf("arc time:    %.6g\n", dec.Time)
	fmt.Printf("load factor: %.6g\n", dec.LPF)
	return nil
}

func exportCase(cmd *cobra.Command, args []string) error {
	st := store.New(resultsRoot)
	data, err := st.ExportCase(args[0], args[1])
	if err != nil {
		return err
	}
	if exportOut != "" {
		return store.ExportJSON(exportOut, data)
	}
	return store.ExportJSONStdout(data)
}

func buildReport(cmd *cobra.Command, args []string) error {
	st := store.New(resultsRoot)

	var manifest store.RunManifest
	if runID != "" {
		var err error
		manifest, err = st.LoadManifest(runID)
		if err != nil {
			return err
		}
	} else {
		m, ok, err := st.LatestManifest()
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("no runs recorded under %s", resultsRoot)
		}
		manifest = m
	}

	// Regenerate the per-case figures from the stored tables so the
	// report reflects the store, not a stale scratch state.
	for _, sum := range manifest.Summaries {
		for _, c := range sum.Cases {
			if c.Status != store.StatusCompleted {
				continue
			}
			h, err := st.ReadCurve(sum.Specimen, c.CaseID)
			if err != nil {
				fmt.Fprintf(os.Stderr, "warning: %s/%s: %v\n", sum.Specimen, c.CaseID, err)
				continue
			}
			dec := peak.Select(h.Time, h.LPF, peak.Options{})
			title := sum.Specimen + " " + c.CaseID
			caseDir := st.CaseDir(sum.Specimen, c.CaseID)
			if err := report.CurveFigure(h.Time, h.LPF, dec, title, filepath.Join(caseDir, "riks_curve.png")); err != nil {
				fmt.Fprintf(os.Stderr, "warning: %v\n", err)
			}
			if modes, err := st.ReadEigen(sum.Specimen, c.CaseID); err == nil && len(modes) > 0 {
				if err := report.EigenFigure(modes, title, filepath.Join(caseDir, "buckling_modes.png")); err != nil {
					fmt.Fprintf(os.Stderr, "warning: %v\n", err)
				}
			}
		}
	}

	return writeReportFiles(st, manifest.Summaries)
}

func writeReportFiles(st *store.Store, sums []store.Summary) error {
	pdfPath := filepath.Join(st.Root(), "report.pdf")
	if err := report.PDF(sums, pdfPath); err != nil {
		return err
	}
	fmt.Printf("report: %s\n", pdfPath)

	valPath := filepath.Join(st.Root(), "validation.png")
	if err := report.ValidationFigure(valPath); err != nil {
		return err
	}
	fmt.Printf("validation: %s\n", valPath)
	return nil
}
