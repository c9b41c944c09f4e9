package ingest

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/compozy/catalog/engine/catalog"
	"github.com/compozy/catalog/engine/core"
	"github.com/compozy/catalog/engine/entity"
	"github.com/compozy/catalog/engine/processor"
	"github.com/compozy/catalog/pkg/logger"
)

const (
	ErrCodeDiscoveryFailed = "INGEST_DISCOVERY_FAILED"
	ErrCodeFileFailed      = "INGEST_FILE_FAILED"
	ErrCodeDuplicate       = "DUPLICATE_ENTITY"
	ErrCodePathTraversal   = "PATH_TRAVERSAL_ATTEMPT"

	// ManagedByLocationAnnotation records the descriptor file an entity was
	// ingested from. Entities carrying it under the ingestion root are pruned
	// once their file or document disappears.
	ManagedByLocationAnnotation = "backstage.io/managed-by-location"
	locationPrefix              = "file:"
)

// Ingester reads descriptor files from a root directory, runs every entity
// through the processing pipeline and stores the accepted ones.
type Ingester struct {
	root       string
	config     *Config
	pipeline   *processor.Pipeline
	store      catalog.Store
	discoverer FileDiscoverer
}

func New(root string, cfg *Config, pipeline *processor.Pipeline, store catalog.Store) *Ingester {
	if cfg == nil {
		cfg = NewConfig()
	}
	if pipeline == nil {
		pipeline = processor.DefaultPipeline()
	}
	if store == nil {
		store = catalog.NewMemoryStore()
	}
	return &Ingester{
		root:       root,
		config:     cfg,
		pipeline:   pipeline,
		store:      store,
		discoverer: NewFileDiscoverer(root),
	}
}

// Result summarizes an ingestion run.
type Result struct {
	FilesProcessed int
	EntitiesSeen   int
	EntitiesStored int
	EntitiesPruned int
	Errors         []EntityError
}

// EntityError records a failure for one file or one document in a file.
// Document is -1 when the failure concerns the whole file.
type EntityError struct {
	File     string
	Document int
	Entity   string
	Err      error
}

func (e EntityError) Error() string {
	if e.Entity != "" {
		return fmt.Sprintf("%s[%d] %s: %v", e.File, e.Document, e.Entity, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.File, e.Err)
}

func (e EntityError) Unwrap() error {
	return e.Err
}

type workItem struct {
	file     string
	document int
	entity   *entity.Entity
}

// verdict is the pipeline outcome for one work item.
type verdict struct {
	accepted *entity.Entity
	err      error
}

// Run discovers and ingests every matching file. In strict mode the first
// failure aborts the run; otherwise failures are collected in the result.
// A run that read every file removes the entities it owns that no longer
// appear in any of them.
func (in *Ingester) Run(ctx context.Context) (*Result, error) {
	log := logger.FromContext(ctx)
	start := time.Now()
	result := &Result{Errors: make([]EntityError, 0)}
	if !in.config.Enabled {
		log.Info("Ingestion disabled, skipping")
		return result, nil
	}
	if err := in.config.Validate(); err != nil {
		return result, err
	}
	files, err := in.discoverer.Discover(in.config.Include, in.config.Exclude)
	if err != nil {
		log.Error("File discovery failed", "error", err)
		recordError(ctx, errorLabelDiscovery)
		return result, core.NewError(err, ErrCodeDiscoveryFailed, nil)
	}
	log.Info("Discovered descriptor files", "count", len(files))
	items, err := in.decodeFiles(ctx, files, result)
	if err == nil {
		err = in.processItems(ctx, items, result)
	}
	if err == nil && !hasFileErrors(result) {
		err = in.prune(ctx, items, result)
	}
	slices.SortFunc(result.Errors, func(a, b EntityError) int {
		if c := strings.Compare(a.File, b.File); c != 0 {
			return c
		}
		return a.Document - b.Document
	})
	recordRun(ctx, result, time.Since(start))
	if err != nil {
		return result, err
	}
	log.Info("Ingestion completed",
		"files_processed", result.FilesProcessed,
		"entities_seen", result.EntitiesSeen,
		"entities_stored", result.EntitiesStored,
		"entities_pruned", result.EntitiesPruned,
		"errors", len(result.Errors))
	return result, nil
}

// Validate runs ingestion against a throwaway in-memory store.
func (in *Ingester) Validate(ctx context.Context) (*Result, error) {
	dry := &Ingester{
		root:       in.root,
		config:     in.config,
		pipeline:   in.pipeline,
		store:      catalog.NewMemoryStore(),
		discoverer: in.discoverer,
	}
	return dry.Run(ctx)
}

// Discover returns the files a run would read.
func (in *Ingester) Discover(_ context.Context) ([]string, error) {
	return in.discoverer.Discover(in.config.Include, in.config.Exclude)
}

func (in *Ingester) Root() string {
	return in.root
}

func (in *Ingester) Config() *Config {
	return in.config
}

func (in *Ingester) Store() catalog.Store {
	return in.store
}

func (in *Ingester) fail(ctx context.Context, result *Result, entityErr EntityError, category errorLabel) error {
	result.Errors = append(result.Errors, entityErr)
	recordError(ctx, category)
	if !in.config.Strict {
		return nil
	}
	return core.NewError(entityErr.Err, ErrCodeFileFailed, map[string]any{
		"file":             entityErr.File,
		"document":         entityErr.Document,
		"entity":           entityErr.Entity,
		"processed_so_far": result.FilesProcessed,
	})
}

// decodeFiles reads files in discovery order and tags every entity with the
// location it came from.
func (in *Ingester) decodeFiles(ctx context.Context, files []string, result *Result) ([]workItem, error) {
	log := logger.FromContext(ctx)
	items := make([]workItem, 0, len(files))
	for _, file := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		result.FilesProcessed++
		entities, err := in.readFile(file)
		if err != nil {
			category := errorLabelParse
			var coded *core.Error
			if errors.As(err, &coded) && coded.Code == ErrCodePathTraversal {
				category = errorLabelSecurity
			}
			if ferr := in.fail(ctx, result, EntityError{File: file, Document: -1, Err: err}, category); ferr != nil {
				return nil, ferr
			}
			log.Warn("Skipping unreadable descriptor file", "file", file, "error", err)
			continue
		}
		location := locationPrefix + absPath(file)
		for i, e := range entities {
			result.EntitiesSeen++
			if e.Metadata.Annotations == nil {
				e.Metadata.Annotations = make(map[string]string, 1)
			}
			e.Metadata.Annotations[ManagedByLocationAnnotation] = location
			items = append(items, workItem{file: file, document: i, entity: e})
		}
	}
	return items, nil
}

// processItems validates all items concurrently, then settles duplicates in
// file order among the accepted ones and stores the winners. A rejected
// occurrence never shadows a later valid one.
func (in *Ingester) processItems(ctx context.Context, items []workItem, result *Result) error {
	verdicts, err := in.evaluate(ctx, items)
	if err != nil {
		return err
	}
	winners, err := in.resolve(ctx, items, verdicts, result)
	if err != nil {
		return err
	}
	return in.storeAll(ctx, winners, result)
}

func (in *Ingester) evaluate(ctx context.Context, items []workItem) ([]verdict, error) {
	verdicts := make([]verdict, len(items))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(in.config.Workers)
	for i, item := range items {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			accepted, err := in.pipeline.Process(gctx, item.entity)
			verdicts[i] = verdict{accepted: accepted, err: err}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return verdicts, nil
}

func (in *Ingester) resolve(ctx context.Context, items []workItem, verdicts []verdict, result *Result) ([]workItem, error) {
	log := logger.FromContext(ctx)
	winners := make([]workItem, 0, len(items))
	firstSeen := make(map[string]string, len(items))
	for i, item := range items {
		ref := item.entity.Ref()
		entityErr := EntityError{File: item.file, Document: item.document, Entity: ref.String()}
		if v := verdicts[i]; v.err != nil {
			recordEntity(ctx, item.entity.Kind, outcomeRejected)
			entityErr.Err = v.err
			if ferr := in.fail(ctx, result, entityErr, errorLabelValidation); ferr != nil {
				return nil, ferr
			}
			log.Warn("Skipping rejected entity", "file", item.file, "entity", entityErr.Entity, "error", v.err)
			continue
		}
		if prev, dup := firstSeen[ref.Key()]; dup {
			recordEntity(ctx, item.entity.Kind, outcomeRejected)
			entityErr.Err = core.NewError(
				fmt.Errorf("entity %s is already defined in %s", ref, prev),
				ErrCodeDuplicate,
				map[string]any{"entity": ref.String(), "first": prev},
			)
			if ferr := in.fail(ctx, result, entityErr, errorLabelDuplicate); ferr != nil {
				return nil, ferr
			}
			log.Warn("Skipping duplicate entity", "file", item.file, "entity", ref.String(), "first", prev)
			continue
		}
		firstSeen[ref.Key()] = item.file
		winners = append(winners, workItem{file: item.file, document: item.document, entity: verdicts[i].accepted})
	}
	return winners, nil
}

func (in *Ingester) storeAll(ctx context.Context, items []workItem, result *Result) error {
	log := logger.FromContext(ctx)
	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(in.config.Workers)
	for _, item := range items {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			_, err := in.store.Put(gctx, item.entity)
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				result.EntitiesStored++
				recordEntity(gctx, item.entity.Kind, outcomeStored)
				return nil
			}
			recordEntity(gctx, item.entity.Kind, outcomeRejected)
			entityErr := EntityError{
				File:     item.file,
				Document: item.document,
				Entity:   item.entity.Ref().String(),
				Err:      err,
			}
			if ferr := in.fail(gctx, result, entityErr, errorLabelStore); ferr != nil {
				return ferr
			}
			log.Warn("Failed to store entity", "file", item.file, "entity", entityErr.Entity, "error", err)
			return nil
		})
	}
	return g.Wait()
}

// prune deletes stored entities that were ingested from under the root but
// were not seen by this run. Rejected entities count as seen so a typo does
// not drop the previously stored version. Entities written through the API
// carry no location and are left alone.
func (in *Ingester) prune(ctx context.Context, items []workItem, result *Result) error {
	log := logger.FromContext(ctx)
	seen := make(map[string]struct{}, len(items))
	for _, item := range items {
		seen[item.entity.Ref().Key()] = struct{}{}
	}
	refs, err := in.store.List(ctx, "")
	if err != nil {
		return fmt.Errorf("failed to list stored entities: %w", err)
	}
	owned := locationPrefix + absPath(in.root) + string(filepath.Separator)
	for _, ref := range refs {
		if _, ok := seen[ref.Key()]; ok {
			continue
		}
		stored, _, err := in.store.Get(ctx, ref)
		if errors.Is(err, catalog.ErrNotFound) {
			continue
		}
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", ref, err)
		}
		if !strings.HasPrefix(stored.Metadata.Annotations[ManagedByLocationAnnotation], owned) {
			continue
		}
		if err := in.store.Delete(ctx, ref); err != nil {
			return fmt.Errorf("failed to prune %s: %w", ref, err)
		}
		result.EntitiesPruned++
		recordEntity(ctx, ref.Kind, outcomePruned)
		log.Info("Pruned entity no longer in any descriptor", "entity", ref.String())
	}
	return nil
}

func hasFileErrors(result *Result) bool {
	return slices.ContainsFunc(result.Errors, func(e EntityError) bool { return e.Document < 0 })
}

func absPath(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return filepath.Clean(path)
}

func (in *Ingester) readFile(file string) ([]*entity.Entity, error) {
	if err := in.validateFilePath(file); err != nil {
		return nil, err
	}
	f, err := os.Open(file)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", file, err)
	}
	defer f.Close()
	if strings.EqualFold(filepath.Ext(file), ".json") {
		e, err := entity.DecodeJSON(f)
		if err != nil {
			return nil, err
		}
		return []*entity.Entity{e}, nil
	}
	return entity.DecodeYAML(f)
}

// validateFilePath ensures the file does not escape the ingestion root.
func (in *Ingester) validateFilePath(file string) error {
	absFile, err := filepath.Abs(file)
	if err != nil {
		return core.NewError(err, "PATH_RESOLUTION_FAILED", map[string]any{"file": file})
	}
	absRoot, err := filepath.Abs(in.root)
	if err != nil {
		return core.NewError(err, "PATH_RESOLUTION_FAILED", map[string]any{"root": in.root})
	}
	rel, err := filepath.Rel(absRoot, absFile)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) || filepath.IsAbs(rel) {
		return core.NewError(
			errors.New("file path escapes ingestion root"),
			ErrCodePathTraversal,
			map[string]any{"file": absFile, "root": absRoot},
		)
	}
	return nil
}
