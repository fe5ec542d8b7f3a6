package main

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/opscart/cloud-cost-advisor/pkg/analyzer"
	"github.com/opscart/cloud-cost-advisor/pkg/config"
	"github.com/opscart/cloud-cost-advisor/pkg/datasource"
	"github.com/opscart/cloud-cost-advisor/pkg/executor"
	"github.com/opscart/cloud-cost-advisor/pkg/logging"
	"github.com/opscart/cloud-cost-advisor/pkg/models"
	"github.com/opscart/cloud-cost-advisor/pkg/notify"
	"github.com/opscart/cloud-cost-advisor/pkg/planner"
	"github.com/opscart/cloud-cost-advisor/pkg/pricing"
	"github.com/opscart/cloud-cost-advisor/pkg/provider"
	awsprovider "github.com/opscart/cloud-cost-advisor/pkg/provider/aws"
	k8sprovider "github.com/opscart/cloud-cost-advisor/pkg/provider/kubernetes"
	"github.com/opscart/cloud-cost-advisor/pkg/recommender"
	"github.com/opscart/cloud-cost-advisor/pkg/reporter"
	"github.com/opscart/cloud-cost-advisor/pkg/storage"
	"github.com/opscart/cloud-cost-advisor/pkg/worker"
	"github.com/opscart/cloud-cost-advisor/pkg/workflow"
)

var version = "dev"

var (
	// Analysis flags
	sourceName   string
	providerName string
	serviceName  string
	windowDays   int
	saveResults  bool
	outputFormat string
	usageHours   float64

	// Approval flags
	rejectReason string
	approver     string
	isCommitment bool

	// Execution flags
	targetSize string
	targetCPU  int64
	targetMem  int64

	// History flags
	historyStatus string
	historyLimit  int

	cfg    *config.Config
	logger *zap.Logger
)

func main() {
	cfg = config.NewConfig()

	rootCmd := &cobra.Command{
		Use:   "cost-advisor",
		Short: "Cloud cost optimization advisor",
		Long: `Analyze cloud usage patterns and generate confidence-scored cost
optimization recommendations, then carry approved ones through an
auditable execution workflow.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.Validate(); err != nil {
				return err
			}
			var err error
			logger, err = logging.New(logging.Config{
				Level:  cfg.LogLevel,
				Format: cfg.LogFormat,
				Output: "stderr",
			})
			return err
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if logger != nil {
				_ = logger.Sync()
			}
		},
	}

	analyzeCmd := &cobra.Command{
		Use:   "analyze",
		Short: "Analyze usage and generate recommendations",
		RunE:  runAnalyze,
	}
	analyzeCmd.Flags().StringVar(&sourceName, "source", "static", "Data source: static, prometheus, kubernetes")
	analyzeCmd.Flags().StringVar(&providerName, "provider", "aws", "Cloud provider label for generated records")
	analyzeCmd.Flags().StringVar(&serviceName, "service", "ec2", "Service label for generated records")
	analyzeCmd.Flags().IntVar(&windowDays, "window", 30, "Analysis window in days")
	analyzeCmd.Flags().BoolVar(&saveResults, "save", false, "Persist recommendations to storage")
	analyzeCmd.Flags().StringVarP(&outputFormat, "output", "o", "text", "Output format: text, csv")

	commitmentsCmd := &cobra.Command{
		Use:   "commitments",
		Short: "Plan reserved-capacity commitments from aggregated usage",
		RunE:  runCommitments,
	}
	commitmentsCmd.Flags().StringVar(&sourceName, "source", "static", "Data source: static, prometheus, kubernetes")
	commitmentsCmd.Flags().StringVar(&providerName, "provider", "aws", "Cloud provider label for generated records")
	commitmentsCmd.Flags().StringVar(&serviceName, "service", "ec2", "Service label for generated records")
	commitmentsCmd.Flags().IntVar(&windowDays, "window", 30, "Analysis window in days")
	commitmentsCmd.Flags().Float64Var(&usageHours, "usage-hours", 0, "Observed usage hours over the window (default: window length)")
	commitmentsCmd.Flags().BoolVar(&saveResults, "save", false, "Persist commitments to storage")
	commitmentsCmd.Flags().StringVarP(&outputFormat, "output", "o", "text", "Output format: text, csv")

	approveCmd := &cobra.Command{
		Use:   "approve <id>",
		Short: "Approve a pending recommendation or commitment",
		Args:  cobra.ExactArgs(1),
		RunE:  runApprove,
	}
	approveCmd.Flags().StringVar(&approver, "approver", currentUser(), "Name recorded as the approver")
	approveCmd.Flags().BoolVar(&isCommitment, "commitment", false, "The id refers to a commitment")

	rejectCmd := &cobra.Command{
		Use:   "reject <id>",
		Short: "Reject a pending recommendation or commitment",
		Args:  cobra.ExactArgs(1),
		RunE:  runReject,
	}
	rejectCmd.Flags().StringVar(&rejectReason, "reason", "", "Reason for rejection (required)")
	rejectCmd.Flags().StringVar(&approver, "approver", currentUser(), "Name recorded as the approver")
	rejectCmd.Flags().BoolVar(&isCommitment, "commitment", false, "The id refers to a commitment")
	_ = rejectCmd.MarkFlagRequired("reason")

	executeCmd := &cobra.Command{
		Use:   "execute <recommendation-id>",
		Short: "Execute an approved recommendation with rollback on failure",
		Args:  cobra.ExactArgs(1),
		RunE:  runExecute,
	}
	executeCmd.Flags().StringVar(&targetSize, "target-size", "", "Target instance type for resize actions")
	executeCmd.Flags().Int64Var(&targetCPU, "target-cpu", 0, "Target CPU request in millicores (kubernetes)")
	executeCmd.Flags().Int64Var(&targetMem, "target-memory", 0, "Target memory request in MiB (kubernetes)")

	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "List stored recommendations",
		RunE:  runHistory,
	}
	historyCmd.Flags().StringVar(&historyStatus, "status", "", "Filter by status (pending_approval, approved, rejected, applied, failed)")
	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "Number of records to show")

	auditCmd := &cobra.Command{
		Use:   "audit <action-id>",
		Short: "Show the audit trail for an executed action",
		Args:  cobra.ExactArgs(1),
		RunE:  runAudit,
	}

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("cost-advisor %s\n", version)
		},
	}

	rootCmd.AddCommand(analyzeCmd, commitmentsCmd, approveCmd, rejectCmd, executeCmd, historyCmd, auditCmd, versionCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func currentUser() string {
	if u := os.Getenv("USER"); u != "" {
		return u
	}
	return "unknown"
}

func openStore() (storage.Store, error) {
	switch cfg.StorageType {
	case "postgres":
		return storage.NewPostgresStore(cfg.DatabaseURL)
	default:
		return storage.NewMemoryStore(), nil
	}
}

func openSource() (datasource.Source, error) {
	switch sourceName {
	case "static":
		if cfg.UsageFile == "" {
			return nil, fmt.Errorf("static source requires USAGE_FILE to be set")
		}
		return datasource.LoadStaticSource(cfg.UsageFile)
	case "prometheus":
		return datasource.NewPrometheusSource(cfg.PrometheusURL, providerName, serviceName, logger)
	case "kubernetes":
		return datasource.NewKubernetesSource(cfg.Kubeconfig, "", 0)
	default:
		return nil, fmt.Errorf("unknown source %q", sourceName)
	}
}

// openHistory returns the raw-usage history store when configured,
// nil otherwise.
func openHistory(ctx context.Context) storage.UsageHistoryStore {
	if cfg.ClickHouse == "" {
		return nil
	}
	history, err := storage.NewClickHouseHistory(ctx, storage.ClickHouseConfig{
		Addr:     cfg.ClickHouse,
		Database: cfg.ClickHouseDB,
		Username: cfg.ClickHouseUsr,
		Password: cfg.ClickHousePwd,
	})
	if err != nil {
		logger.Warn("usage history store unavailable", zap.Error(err))
		return nil
	}
	return history
}

// collectPatterns pulls each resource's records through the analyzer,
// fanning out across the worker pool. When a history store is given,
// fetched records are retained for later reanalysis.
func collectPatterns(ctx context.Context, source datasource.Source, history storage.UsageHistoryStore) ([]recommender.Input, error) {
	resources, err := source.ListResources(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list resources: %w", err)
	}
	if len(resources) == 0 {
		return nil, nil
	}

	to := time.Now()
	from := to.Add(-time.Duration(windowDays) * 24 * time.Hour)

	bar := progressbar.NewOptions(len(resources),
		progressbar.OptionSetDescription("analyzing resources"),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionClearOnFinish())

	a := analyzer.New()
	var mu sync.Mutex
	var inputs []recommender.Input

	pool := worker.NewPool(cfg.MaxWorkers)
	pool.Start()
	defer pool.Stop()

	tasks := make([]worker.Task, 0, len(resources))
	for _, resourceID := range resources {
		id := resourceID
		tasks = append(tasks, func(taskCtx context.Context) error {
			defer bar.Add(1)

			records, err := source.GetUsage(taskCtx, id, from, to)
			if err != nil {
				logger.Warn("failed to fetch usage",
					zap.String("resource_id", id),
					zap.Error(err))
				return err
			}
			if len(records) == 0 {
				return nil
			}

			if history != nil {
				if err := history.AppendRecords(taskCtx, records); err != nil {
					logger.Warn("failed to retain usage records",
						zap.String("resource_id", id),
						zap.Error(err))
				}
			}

			pattern := a.BuildPattern(records)
			samples := analyzer.UtilizationSamples(records)

			mu.Lock()
			inputs = append(inputs, recommender.Input{Pattern: pattern, Samples: samples})
			mu.Unlock()
			return nil
		})
	}

	pool.ExecuteTasks(tasks)
	_ = bar.Finish()

	sort.Slice(inputs, func(i, j int) bool {
		return inputs[i].Pattern.ResourceID < inputs[j].Pattern.ResourceID
	})
	return inputs, nil
}

// buildPlanInputs aggregates per-resource patterns to service level and
// pairs each aggregate with the raw utilization samples of the
// resources behind it. The aggregate map is keyed by provider/service,
// so the sample lookup goes through the aggregate's own Service field.
func buildPlanInputs(inputs []recommender.Input, hours float64) []planner.Input {
	patterns := make([]models.UsagePattern, len(inputs))
	samplesByService := make(map[string][]float64)
	for i, in := range inputs {
		patterns[i] = in.Pattern
		samplesByService[in.Pattern.Service] = append(samplesByService[in.Pattern.Service], in.Samples...)
	}

	var planInputs []planner.Input
	for _, pattern := range analyzer.AggregateByService(patterns) {
		planInputs = append(planInputs, planner.Input{
			Pattern:    pattern,
			Samples:    samplesByService[pattern.Service],
			UsageHours: hours,
		})
	}
	sort.Slice(planInputs, func(i, j int) bool {
		return planInputs[i].Pattern.Service < planInputs[j].Pattern.Service
	})
	return planInputs
}

// pricingProvider builds the assumption source shared by the generator
// and planner. The cache keeps per-provider lookups cheap when the
// pipeline fans out.
func pricingProvider() pricing.Provider {
	return pricing.NewCachedProvider(
		pricing.NewStaticProvider(pricing.DefaultAssumptions()),
		time.Hour)
}

func writeReport(report *reporter.Report) error {
	switch outputFormat {
	case "csv":
		return reporter.WriteCSV(report, os.Stdout)
	default:
		return reporter.WriteText(report, os.Stdout)
	}
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	source, err := openSource()
	if err != nil {
		return err
	}
	if !source.IsAvailable(ctx) {
		return fmt.Errorf("data source %s is not reachable", source.Name())
	}

	history := openHistory(ctx)
	if history != nil {
		defer history.Close()
	}

	inputs, err := collectPatterns(ctx, source, history)
	if err != nil {
		return err
	}
	if len(inputs) == 0 {
		fmt.Println("No usage data found in the analysis window.")
		return nil
	}

	scorer := analyzer.NewScorerWith(cfg.MinSamples, cfg.MinConfidence)
	gen := recommender.New(scorer, pricingProvider())
	recommendations := gen.Generate(inputs)

	recs := make([]*models.Recommendation, len(recommendations))
	for i := range recommendations {
		recs[i] = &recommendations[i]
	}

	if saveResults {
		store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		for _, rec := range recs {
			if err := store.SaveRecommendation(ctx, rec); err != nil {
				logger.Warn("failed to save recommendation",
					zap.String("id", rec.ID),
					zap.Error(err))
			}
		}
		logger.Info("recommendations saved", zap.Int("count", len(recs)))
	}

	return writeReport(reporter.Generate(recs, nil))
}

func runCommitments(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	source, err := openSource()
	if err != nil {
		return err
	}

	inputs, err := collectPatterns(ctx, source, nil)
	if err != nil {
		return err
	}
	if len(inputs) == 0 {
		fmt.Println("No usage data found in the analysis window.")
		return nil
	}

	hours := usageHours
	if hours <= 0 {
		hours = float64(windowDays) * 24
	}
	planInputs := buildPlanInputs(inputs, hours)

	scorer := analyzer.NewScorerWith(cfg.MinSamples, cfg.MinConfidence)
	plan := planner.New(scorer, pricingProvider())
	commitments := plan.Plan(planInputs)

	list := make([]*models.CommitmentRecommendation, len(commitments))
	for i := range commitments {
		list[i] = &commitments[i]
	}

	if saveResults {
		store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		for _, c := range list {
			if err := store.SaveCommitment(ctx, c); err != nil {
				logger.Warn("failed to save commitment",
					zap.String("id", c.ID),
					zap.Error(err))
			}
		}
		logger.Info("commitments saved", zap.Int("count", len(list)))
	}

	return writeReport(reporter.Generate(nil, list))
}

func runApprove(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	engine := workflow.NewEngine(store, logger)
	if isCommitment {
		if err := engine.ApproveCommitment(ctx, args[0], approver); err != nil {
			return err
		}
	} else {
		if err := engine.ApproveRecommendation(ctx, args[0], approver); err != nil {
			return err
		}
	}

	fmt.Printf("Approved %s\n", args[0])
	return nil
}

func runReject(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	engine := workflow.NewEngine(store, logger)
	if isCommitment {
		if err := engine.RejectCommitment(ctx, args[0], approver, rejectReason); err != nil {
			return err
		}
	} else {
		if err := engine.RejectRecommendation(ctx, args[0], approver, rejectReason); err != nil {
			return err
		}
	}

	fmt.Printf("Rejected %s: %s\n", args[0], rejectReason)
	return nil
}

func buildRegistry() (*provider.Registry, error) {
	registry := provider.NewRegistry()
	registry.Register(provider.NewMockAdapter("mock"))

	if awsAdapter, err := awsprovider.New(cfg.AWSRegion, logger); err == nil {
		registry.Register(awsAdapter)
	} else {
		logger.Warn("aws adapter unavailable", zap.Error(err))
	}
	if k8sAdapter, err := k8sprovider.New(cfg.Kubeconfig, logger); err == nil {
		registry.Register(k8sAdapter)
	} else {
		logger.Warn("kubernetes adapter unavailable", zap.Error(err))
	}

	return registry, nil
}

// actionForRecommendation maps a recommendation to the workflow action
// that applies it. Commitment recommendations have no control-plane
// action here; reserved capacity and spot conversions are purchased
// through the provider's billing console.
func actionForRecommendation(rec *models.Recommendation, resize *models.ResizeParams) (*models.WorkflowAction, error) {
	if len(rec.ResourceIDs) == 0 {
		return nil, fmt.Errorf("recommendation %s targets no resources", rec.ID)
	}

	action := &models.WorkflowAction{
		RecommendationID: rec.ID,
		Provider:         rec.Provider,
		ResourceID:       rec.ResourceIDs[0],
		RequiresApproval: true,
		Status:           models.StatusApproved,
	}

	switch rec.Type {
	case models.RecommendationRightsizing:
		if resize == nil || (resize.TargetSize == "" && resize.CPU == 0 && resize.MemoryMB == 0) {
			return nil, fmt.Errorf("resize parameters required: --target-size or --target-cpu/--target-memory")
		}
		action.Type = models.ActionResize
		action.Parameters = models.ActionParameters{Resize: resize}
	case models.RecommendationStorage:
		action.Type = models.ActionCleanup
		action.Parameters = models.ActionParameters{Cleanup: &models.CleanupParams{Reason: rec.Explanation}}
	default:
		return nil, fmt.Errorf("recommendation %s is a %s recommendation and cannot be executed against the resource; apply it through the provider's billing console", rec.ID, rec.Type)
	}

	return action, nil
}

func runExecute(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	rec, err := store.GetRecommendation(ctx, args[0])
	if err != nil {
		return fmt.Errorf("failed to load recommendation %s: %w", args[0], err)
	}
	if rec.Status != models.StatusApproved {
		return fmt.Errorf("recommendation %s is %s, only approved recommendations execute", rec.ID, rec.Status)
	}

	action, err := actionForRecommendation(rec, &models.ResizeParams{
		TargetSize: targetSize,
		CPU:        targetCPU,
		MemoryMB:   targetMem,
	})
	if err != nil {
		return err
	}

	registry, err := buildRegistry()
	if err != nil {
		return err
	}

	var notifier notify.Notifier = notify.NewLogNotifier(logger)
	if cfg.WebhookURL != "" {
		notifier = notify.NewMulti(logger,
			notify.NewLogNotifier(logger),
			notify.NewWebhookNotifier(cfg.WebhookURL, 10*time.Second))
	}

	exec := executor.New(store, registry, notifier, logger,
		executor.WithTimeout(cfg.DispatchTimeout),
		executor.WithActor(currentUser()))

	if err := store.SaveAction(ctx, action); err != nil {
		return fmt.Errorf("failed to save action: %w", err)
	}

	outcome, err := exec.Execute(ctx, action)
	if err != nil {
		if outcome != nil {
			fmt.Printf("Action %s failed: %v (result: %s)\n", action.ID, err, outcome.Result)
		}
		return err
	}

	fmt.Printf("Action %s applied: %s\n", outcome.ActionID, outcome.Detail)
	return nil
}

func runHistory(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	recs, err := store.ListRecommendations(ctx, models.Status(historyStatus), historyLimit)
	if err != nil {
		return err
	}
	commitments, err := store.ListCommitments(ctx, models.Status(historyStatus), historyLimit)
	if err != nil {
		return err
	}

	if len(recs) == 0 && len(commitments) == 0 {
		fmt.Println("No stored recommendations found.")
		return nil
	}
	return writeReport(reporter.Generate(recs, commitments))
}

func runAudit(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	action, err := store.GetAction(ctx, args[0])
	if err != nil {
		return fmt.Errorf("failed to load action %s: %w", args[0], err)
	}

	fmt.Printf("Action: %s\n", action.ID)
	fmt.Printf("Type: %s  Provider: %s  Resource: %s\n", action.Type, action.Provider, action.ResourceID)
	fmt.Printf("Status: %s  Created: %s\n\n", action.Status, action.CreatedAt.Format("2006-01-02 15:04:05"))

	entries, err := store.GetAuditLog(ctx, action.ID)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Println("No audit entries recorded.")
		return nil
	}

	fmt.Println("Audit trail:")
	for i, entry := range entries {
		fmt.Printf("%d. %-16s %s", i+1, entry.Status, entry.Timestamp.Format("2006-01-02 15:04:05"))
		if entry.Actor != "" {
			fmt.Printf("  by %s", entry.Actor)
		}
		fmt.Println()
		if entry.Detail != "" {
			fmt.Printf("   %s\n", strings.TrimSpace(entry.Detail))
		}
	}
	return nil
}
