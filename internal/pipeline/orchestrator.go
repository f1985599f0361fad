// Package pipeline provides the high-level orchestration for book generation:
// stage sequencing, the run state machine, and the status surface that
// polling clients observe.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/jonathan/bookforge/internal/assembly"
	"github.com/jonathan/bookforge/internal/characters"
	"github.com/jonathan/bookforge/internal/config"
	"github.com/jonathan/bookforge/internal/db"
	"github.com/jonathan/bookforge/internal/illustration"
	"github.com/jonathan/bookforge/internal/llm"
	"github.com/jonathan/bookforge/internal/observability"
	"github.com/jonathan/bookforge/internal/planning"
	"github.com/jonathan/bookforge/internal/research"
	"github.com/jonathan/bookforge/internal/store"
	"github.com/jonathan/bookforge/internal/styling"
	"github.com/jonathan/bookforge/internal/translation"
	"github.com/jonathan/bookforge/internal/types"
	"github.com/jonathan/bookforge/internal/writing"
)

// ProgressEvent represents a progress update during pipeline execution
type ProgressEvent struct {
	RunID   string `json:"run_id"`
	Stage   string `json:"stage"`
	Message string `json:"message"`
}

// ProgressCallback is called when pipeline progress occurs
type ProgressCallback func(event ProgressEvent)

// Options configures an Orchestrator.
type Options struct {
	Config     *config.Config
	Store      *store.Store
	Client     llm.Client
	Assembler  assembly.Assembler
	Database   *db.DB // optional run registry, may be nil
	Logger     *log.Logger
	OnProgress ProgressCallback
}

// Orchestrator sequences the pipeline stages for each run and exposes the
// submit/status/result surface. Stage execution within one run is strictly
// sequential; multiple runs may execute concurrently.
type Orchestrator struct {
	cfg        *config.Config
	store      *store.Store
	client     llm.Client
	assembler  assembly.Assembler
	database   *db.DB
	runner     *StageRunner
	printer    *observability.Printer
	logger     *log.Logger
	onProgress ProgressCallback

	runs sync.Map // uuid.UUID -> *Run
}

// NewOrchestrator wires an orchestrator. Config, Store and Client are
// required; the assembler defaults to the HTML assembler and every client
// call carries the configured timeout.
func NewOrchestrator(opts Options) (*Orchestrator, error) {
	if opts.Config == nil || opts.Store == nil || opts.Client == nil {
		return nil, fmt.Errorf("orchestrator requires config, store and client")
	}
	if err := checkPromptBindings(); err != nil {
		return nil, err
	}
	assembler := opts.Assembler
	if assembler == nil {
		var err error
		assembler, err = assembly.NewHTMLAssembler()
		if err != nil {
			return nil, err
		}
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	return &Orchestrator{
		cfg:        opts.Config,
		store:      opts.Store,
		client:     NewTimeoutClient(opts.Client, opts.Config.CallTimeout()),
		assembler:  assembler,
		database:   opts.Database,
		runner:     NewStageRunner(logger),
		printer:    observability.NewPrinter(os.Stdout),
		logger:     logger,
		onProgress: opts.OnProgress,
	}, nil
}

// Submit validates a request and creates a pending Run. No stage executes
// here; the caller decides whether to Execute synchronously or in the
// background.
func (o *Orchestrator) Submit(ctx context.Context, req *types.GenerateRequest) (*Run, error) {
	if err := req.Validate(); err != nil {
		return nil, &ValidationError{Message: err.Error(), Cause: err}
	}
	if req.Pages > o.cfg.MaxPages {
		return nil, &ValidationError{
			Field:   "pages",
			Message: fmt.Sprintf("page count %d exceeds maximum %d", req.Pages, o.cfg.MaxPages),
		}
	}
	if req.Features.StyleImitation && strings.TrimSpace(req.Features.StyleExample) == "" {
		return nil, &ValidationError{Field: "features.style_example", Message: "style imitation requires example text"}
	}
	if req.Features.Translation && strings.TrimSpace(req.Features.TargetLanguage) == "" {
		return nil, &ValidationError{Field: "features.target_language", Message: "translation requires a target language"}
	}

	run := NewRun(req, BuildStageList(req.Features))
	if err := o.persistRun(run); err != nil {
		return nil, fmt.Errorf("failed to persist run record: %w", err)
	}
	o.runs.Store(run.ID(), run)

	if o.database != nil {
		if err := o.database.CreateRun(ctx, run.ID(), req.Title, req.AgeGroup, req.Language, req.Pages); err != nil {
			o.logger.Printf("Warning: failed to register run in database: %v", err)
		}
	}
	return run, nil
}

// Execute runs every stage of a submitted run to a terminal state. The
// returned error is the failure recorded on the run, nil on completion.
func (o *Orchestrator) Execute(ctx context.Context, run *Run) error {
	exec := &execution{req: run.Snapshot().Request}

	run.setRunning()
	o.syncRun(ctx, run)

	stages := run.Snapshot().Stages
	for i, stage := range stages {
		if run.Cancelled() {
			err := &CancelledError{Stage: stage}
			run.fail(err)
			o.syncRun(ctx, run)
			return err
		}

		o.logger.Printf("run %s: stage %d/%d: %s", run.ID(), i+1, len(stages), stage)
		o.emit(run, stage, "started")

		result := o.runner.Run(ctx, stage, o.stageFunc(stage, run, exec))
		if result.Err != nil {
			if IsOptional(stage) {
				optErr := &OptionalStageError{Stage: stage, Cause: result.Err}
				o.logger.Printf("run %s: %v (continuing)", run.ID(), optErr)
				o.emit(run, stage, "skipped: "+result.Err.Error())
				run.advance()
				o.syncRun(ctx, run)
				continue
			}
			err := &StageError{Stage: stage, Cause: result.Err}
			run.fail(err)
			o.syncRun(ctx, run)
			return err
		}

		o.emit(run, stage, "completed")
		run.advance()
		o.syncRun(ctx, run)
	}

	run.complete()
	o.syncRun(ctx, run)
	return nil
}

// Status reports the polling view of a run. Runs no longer in memory are
// read back from their persisted record.
func (o *Orchestrator) Status(runID uuid.UUID) (types.StatusResponse, error) {
	record, err := o.loadRecord(runID)
	if err != nil {
		return types.StatusResponse{}, err
	}
	return record.StatusResponse(), nil
}

// Result returns the document path of a completed run. A pending or
// running run yields NotReadyError, a failed run yields FailedError.
func (o *Orchestrator) Result(runID uuid.UUID) (string, error) {
	record, err := o.loadRecord(runID)
	if err != nil {
		return "", err
	}
	switch record.Status {
	case StatusCompleted:
		return record.DocumentPath, nil
	case StatusFailed:
		return "", &FailedError{RunID: runID.String(), Message: record.Error}
	default:
		return "", &NotReadyError{RunID: runID.String(), Percent: record.Percent}
	}
}

// Cancel requests cancellation of a live run. The pipeline observes the
// flag at the next stage boundary.
func (o *Orchestrator) Cancel(runID uuid.UUID) error {
	v, ok := o.runs.Load(runID)
	if !ok {
		return &RunNotFoundError{RunID: runID.String()}
	}
	run := v.(*Run)
	if run.Snapshot().Status.IsTerminal() {
		return fmt.Errorf("run %s is already terminal", runID)
	}
	run.Cancel()
	return nil
}

// Store exposes the artifact store for read-only consumers (serve surface).
func (o *Orchestrator) Store() *store.Store {
	return o.store
}

func (o *Orchestrator) loadRecord(runID uuid.UUID) (RunRecord, error) {
	if v, ok := o.runs.Load(runID); ok {
		return v.(*Run).Snapshot(), nil
	}
	var record RunRecord
	if err := o.store.GetJSON(runID, store.RunRecordKey, &record); err != nil {
		var notFound *store.NotFoundError
		if errors.As(err, &notFound) {
			return RunRecord{}, &RunNotFoundError{RunID: runID.String()}
		}
		return RunRecord{}, err
	}
	return record, nil
}

// persistRun writes the run record so polling and post-mortem inspection
// survive a process restart.
func (o *Orchestrator) persistRun(run *Run) error {
	return o.store.PutJSON(run.ID(), store.RunRecordKey, run.Snapshot())
}

// syncRun persists the record and mirrors it onto the optional registry.
// Registry failures are warnings, the filesystem record is authoritative.
func (o *Orchestrator) syncRun(ctx context.Context, run *Run) {
	if err := o.persistRun(run); err != nil {
		o.logger.Printf("Warning: failed to persist run %s: %v", run.ID(), err)
	}
	if o.database == nil {
		return
	}
	snap := run.Snapshot()
	var err error
	if snap.Status.IsTerminal() {
		err = o.database.CompleteRun(ctx, snap.ID, string(snap.Status), snap.Percent, snap.Error, snap.DocumentPath)
	} else {
		err = o.database.UpdateProgress(ctx, snap.ID, string(snap.Status), snap.Percent, snap.CurrentStage())
	}
	if err != nil {
		o.logger.Printf("Warning: failed to mirror run %s to database: %v", snap.ID, err)
	}
}

func (o *Orchestrator) emit(run *Run, stage, message string) {
	event := ProgressEvent{RunID: run.ID().String(), Stage: stage, Message: message}
	if o.onProgress != nil {
		o.onProgress(event)
	}
	if cb := run.progressCallback(); cb != nil {
		cb(event)
	}
}

// execution carries the value objects threaded between stages of one run.
type execution struct {
	req        *types.GenerateRequest
	characters []types.Character
	trends     *types.TrendReport
	plan       *types.BookPlan
	styleGuide string
	pages      []types.PageText
	images     []types.GeneratedImage
}

func (o *Orchestrator) stageFunc(stage string, run *Run, exec *execution) StageFunc {
	switch stage {
	case StageCharacterExtraction:
		return func(ctx context.Context) ([]store.Key, error) { return o.runCharacters(ctx, run, exec) }
	case StageTrendResearch:
		return func(ctx context.Context) ([]store.Key, error) { return o.runTrendResearch(ctx, run, exec) }
	case StagePlanning:
		return func(ctx context.Context) ([]store.Key, error) { return o.runPlanning(ctx, run, exec) }
	case StageStyleAnalysis:
		return func(ctx context.Context) ([]store.Key, error) { return o.runStyleAnalysis(ctx, run, exec) }
	case StageTextGeneration:
		return func(ctx context.Context) ([]store.Key, error) { return o.runTextGeneration(ctx, run, exec) }
	case StageImageGeneration:
		return func(ctx context.Context) ([]store.Key, error) { return o.runImageGeneration(ctx, run, exec) }
	case StageAssembly:
		return func(ctx context.Context) ([]store.Key, error) { return o.runAssembly(ctx, run, exec) }
	case StageTranslation:
		return func(ctx context.Context) ([]store.Key, error) { return o.runTranslation(ctx, run, exec) }
	default:
		return func(context.Context) ([]store.Key, error) {
			return nil, fmt.Errorf("unknown stage: %s", stage)
		}
	}
}

func (o *Orchestrator) runCharacters(ctx context.Context, run *Run, exec *execution) ([]store.Key, error) {
	cast, err := characters.ExtractAll(ctx, o.client, exec.req.Characters)
	if err != nil {
		return nil, err
	}
	var keys []store.Key
	for i := range cast {
		key := store.CharacterKey(cast[i].Slug())
		if err := o.store.PutJSON(run.ID(), key, &cast[i]); err != nil {
			return keys, err
		}
		keys = append(keys, key)
	}
	if o.cfg.Verbose {
		o.printer.PrintCharacters(cast)
	}
	exec.characters = cast
	return keys, nil
}

func (o *Orchestrator) runTrendResearch(ctx context.Context, run *Run, exec *execution) ([]store.Key, error) {
	topic := strings.TrimSpace(exec.req.Features.TrendTopic)
	if topic == "" {
		topic = exec.req.StoryIdea
	}

	sources, err := o.discoverTrendSources(ctx, topic)
	if err != nil {
		return nil, err
	}

	report, err := research.Summarize(ctx, o.client, topic, sources, &research.Options{
		UseBrowser:   o.cfg.UseBrowser,
		Verbose:      o.cfg.Verbose,
		FetchTimeout: o.cfg.CallTimeout(),
	})
	if err != nil {
		return nil, err
	}

	key := store.TrendsKey()
	if err := o.store.PutJSON(run.ID(), key, report); err != nil {
		return nil, err
	}
	if o.cfg.Verbose {
		o.printer.PrintTrendReport(report)
	}
	exec.trends = report
	return []store.Key{key}, nil
}

// discoverTrendSources finds pages to research via Google Programmable
// Search when its credentials are set. Without them the optional stage
// fails and is skipped.
func (o *Orchestrator) discoverTrendSources(ctx context.Context, topic string) ([]string, error) {
	searchKey := os.Getenv("GOOGLE_SEARCH_API_KEY")
	searchCX := os.Getenv("GOOGLE_SEARCH_CX")
	if searchKey == "" || searchCX == "" {
		return nil, fmt.Errorf("trend research requires GOOGLE_SEARCH_API_KEY and GOOGLE_SEARCH_CX")
	}
	finder, err := research.NewSourceFinder(ctx, searchKey, searchCX)
	if err != nil {
		return nil, err
	}
	return finder.DiscoverSources(ctx, topic, 5)
}

func (o *Orchestrator) runPlanning(ctx context.Context, run *Run, exec *execution) ([]store.Key, error) {
	plan, err := planning.CreatePlan(ctx, o.client, exec.req, exec.characters, exec.trends)
	if err != nil {
		return nil, err
	}

	planKey := store.PlanKey()
	if err := o.store.PutJSON(run.ID(), planKey, plan); err != nil {
		return nil, err
	}
	summaryKey := store.PlanSummaryKey()
	if err := o.store.Put(run.ID(), summaryKey, []byte(planning.Summary(plan))); err != nil {
		return []store.Key{planKey}, err
	}
	if o.cfg.Verbose {
		o.printer.PrintBookPlan(plan)
	}
	exec.plan = plan
	return []store.Key{planKey, summaryKey}, nil
}

func (o *Orchestrator) runStyleAnalysis(ctx context.Context, run *Run, exec *execution) ([]store.Key, error) {
	profile, err := styling.Analyze(ctx, o.client, exec.req.Features.StyleExample)
	if err != nil {
		return nil, err
	}
	key := store.StyleKey()
	if err := o.store.PutJSON(run.ID(), key, profile); err != nil {
		return nil, err
	}
	exec.styleGuide = styling.Guide(profile)
	return []store.Key{key}, nil
}

func (o *Orchestrator) runTextGeneration(ctx context.Context, run *Run, exec *execution) ([]store.Key, error) {
	var keys []store.Key
	pages, err := writing.WriteAll(ctx, o.client, exec.plan, exec.characters, exec.styleGuide,
		func(page types.PageText) error {
			key := store.PageTextKey(page.PageNumber)
			if err := o.store.PutJSON(run.ID(), key, &page); err != nil {
				return err
			}
			keys = append(keys, key)
			return nil
		})
	exec.pages = pages
	if err != nil {
		return keys, err
	}
	return keys, nil
}

func (o *Orchestrator) runImageGeneration(ctx context.Context, run *Run, exec *execution) ([]store.Key, error) {
	var mu sync.Mutex
	var keys []store.Key
	persist := func(pageNumber int, data []byte, _ string) (string, error) {
		key := store.PageImageKey(pageNumber)
		if err := o.store.Put(run.ID(), key, data); err != nil {
			return "", err
		}
		mu.Lock()
		keys = append(keys, key)
		mu.Unlock()
		return string(key), nil
	}

	results, genErr := illustration.GenerateAll(ctx, o.client, exec.plan, exec.characters, persist, &illustration.Options{
		Workers:  o.cfg.ImageWorkers,
		ArtStyle: exec.req.ArtStyle,
	})

	// The log is written even when units failed so a failed run can be
	// inspected from its artifacts alone.
	logKey := store.ImageLogKey()
	if err := o.store.Put(run.ID(), logKey, []byte(illustration.RenderLog(results))); err != nil {
		o.logger.Printf("Warning: failed to write image log for run %s: %v", run.ID(), err)
	} else {
		keys = append(keys, logKey)
	}
	if o.cfg.Verbose {
		o.printer.PrintImageResults(results)
	}
	exec.images = results
	return keys, genErr
}

func (o *Orchestrator) runAssembly(_ context.Context, run *Run, exec *execution) ([]store.Key, error) {
	pages := make([]types.Page, 0, len(exec.pages))
	for i := range exec.pages {
		pageText := &exec.pages[i]
		page := types.Page{Number: pageText.PageNumber, Text: pageText}
		imageKey := store.PageImageKey(pageText.PageNumber)
		if o.store.Exists(run.ID(), imageKey) {
			page.ImagePath = string(imageKey)
		}
		pages = append(pages, page)
	}

	coverPath := ""
	if coverKey := store.PageImageKey(types.CoverPage); o.store.Exists(run.ID(), coverKey) {
		coverPath = string(coverKey)
	}

	doc, _, err := o.assembler.Assemble(exec.plan, pages, coverPath)
	if err != nil {
		return nil, err
	}

	key := store.DocumentKey()
	if err := o.store.Put(run.ID(), key, doc); err != nil {
		return nil, err
	}
	run.setDocumentPath(o.store.Path(run.ID(), key))
	return []store.Key{key}, nil
}

func (o *Orchestrator) runTranslation(ctx context.Context, run *Run, exec *execution) ([]store.Key, error) {
	lang := exec.req.Features.TargetLanguage
	translated, err := translation.Translate(ctx, o.client, exec.plan, exec.pages, lang)
	if err != nil {
		return nil, err
	}
	key := store.TranslationKey(strings.ToLower(strings.ReplaceAll(lang, " ", "_")))
	if err := o.store.Put(run.ID(), key, []byte(translated)); err != nil {
		return nil, err
	}
	return []store.Key{key}, nil
}
