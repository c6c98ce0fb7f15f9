// Package main provides the CLI entry point for docqa.
//
// handlers.go contains the run functions behind each command. They assemble
// the pipeline from configuration and translate results to terminal output.
package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"

	"github.com/haasonsaas/docqa/internal/chunker"
	"github.com/haasonsaas/docqa/internal/config"
	"github.com/haasonsaas/docqa/internal/embeddings"
	bedrockembed "github.com/haasonsaas/docqa/internal/embeddings/bedrock"
	openaiembed "github.com/haasonsaas/docqa/internal/embeddings/openai"
	"github.com/haasonsaas/docqa/internal/llm"
	"github.com/haasonsaas/docqa/internal/observability"
	"github.com/haasonsaas/docqa/internal/pipeline"
	"github.com/haasonsaas/docqa/internal/rag"
	"github.com/haasonsaas/docqa/internal/retry"
	"github.com/haasonsaas/docqa/internal/vectorstore"
	"github.com/haasonsaas/docqa/internal/vectorstore/memory"
	s3vbackend "github.com/haasonsaas/docqa/internal/vectorstore/s3vectors"
)

// app bundles the wired components a command needs.
type app struct {
	cfg      *config.Config
	logger   *observability.Logger
	store    *vectorstore.Store
	pipeline *pipeline.Pipeline
}

// buildApp loads and validates configuration and assembles the pipeline.
func buildApp(ctx context.Context, configPath, logLevel string) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger := observability.NewLogger(observability.LogConfig{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})

	backend, awsCfg, err := buildBackend(ctx, cfg)
	if err != nil {
		return nil, err
	}
	store := vectorstore.New(backend, vectorstore.WithReporter(logger))

	embedder, err := buildEmbedder(cfg, awsCfg, logger)
	if err != nil {
		return nil, err
	}
	generator, err := buildGenerator(cfg, awsCfg)
	if err != nil {
		return nil, err
	}

	retriever := rag.NewRetriever(embedder, store,
		rag.WithTopK(cfg.Retrieval.TopK),
		rag.WithThreshold(cfg.Retrieval.SimilarityThreshold),
		rag.WithRetrieverReporter(logger),
	)
	synthesizer := rag.NewSynthesizer(generator,
		rag.WithSynthesizerConfig(rag.SynthesizerConfig{
			MaxTokens:   cfg.LLM.MaxTokens,
			Temperature: cfg.LLM.Temperature,
			TopP:        cfg.LLM.TopP,
		}),
		rag.WithSynthesizerReporter(logger),
	)

	splitter, err := chunker.New(cfg.Chunking.ChunkSize, cfg.Chunking.ChunkOverlap)
	if err != nil {
		return nil, err
	}

	return &app{
		cfg:    cfg,
		logger: logger,
		store:  store,
		pipeline: pipeline.New(splitter, embedder, store, retriever, synthesizer,
			pipeline.WithLogger(logger),
			pipeline.WithMetrics(observability.NewMetrics()),
		),
	}, nil
}

// buildBackend selects the vector store backend. The AWS config is returned
// too because the Bedrock clients share it.
func buildBackend(ctx context.Context, cfg *config.Config) (vectorstore.Backend, aws.Config, error) {
	awsCfg, err := loadAWSConfig(ctx, cfg)
	if err != nil {
		return nil, aws.Config{}, err
	}

	switch cfg.Store.Backend {
	case "memory":
		return memory.New(), awsCfg, nil
	case "s3vectors":
		return s3vbackend.NewFromConfig(awsCfg, cfg.Store.VectorBucket, cfg.Store.VectorIndex), awsCfg, nil
	default:
		return nil, aws.Config{}, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}
}

func loadAWSConfig(ctx context.Context, cfg *config.Config) (aws.Config, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.AWS.Region),
	}
	if cfg.AWS.AccessKeyID != "" && cfg.AWS.SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(
				cfg.AWS.AccessKeyID, cfg.AWS.SecretAccessKey, cfg.AWS.SessionToken),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("load aws config: %w", err)
	}
	return awsCfg, nil
}

func buildEmbedder(cfg *config.Config, awsCfg aws.Config, logger *observability.Logger) (*embeddings.Client, error) {
	var provider embeddings.Provider
	switch cfg.Embedding.Provider {
	case "bedrock":
		provider = bedrockembed.NewFromConfig(awsCfg, bedrockembed.Config{
			ModelID:   cfg.Embedding.Model,
			Dimension: cfg.Embedding.Dimension,
			Normalize: cfg.Embedding.Normalize,
		})
	case "openai":
		p, err := openaiembed.New(openaiembed.Config{
			APIKey:    cfg.Embedding.APIKey,
			Model:     cfg.Embedding.Model,
			Dimension: cfg.Embedding.Dimension,
		})
		if err != nil {
			return nil, err
		}
		provider = p
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", cfg.Embedding.Provider)
	}

	return embeddings.NewClient(provider,
		embeddings.WithRequestsPerSecond(cfg.Embedding.RequestsPerSecond),
		embeddings.WithRetry(retry.Exponential(cfg.Embedding.MaxRetries, 200*time.Millisecond, 10*time.Second)),
		embeddings.WithReporter(logger),
	), nil
}

func buildGenerator(cfg *config.Config, awsCfg aws.Config) (rag.Generator, error) {
	switch cfg.LLM.Provider {
	case "bedrock":
		return llm.NewBedrockFromConfig(awsCfg, cfg.LLM.Model), nil
	case "anthropic":
		return llm.NewAnthropic(cfg.LLM.APIKey, cfg.LLM.Model), nil
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.LLM.Provider)
	}
}

// =============================================================================
// Init
// =============================================================================

func runInit(ctx context.Context, configPath, logLevel string) error {
	a, err := buildApp(ctx, configPath, logLevel)
	if err != nil {
		return err
	}

	if err := a.store.EnsureIndex(ctx, a.cfg.Embedding.Dimension, "cosine"); err != nil {
		return fmt.Errorf("provision index: %w", err)
	}

	fmt.Printf("Vector index %q in bucket %q is ready (dimension %d).\n",
		a.cfg.Store.VectorIndex, a.cfg.Store.VectorBucket, a.cfg.Embedding.Dimension)
	return nil
}

// =============================================================================
// Ingest
// =============================================================================

func runIngest(ctx context.Context, configPath, logLevel string, files []string) error {
	a, err := buildApp(ctx, configPath, logLevel)
	if err != nil {
		return err
	}

	failed := 0
	for _, file := range files {
		data, err := os.ReadFile(file) // #nosec G304 -- user-supplied path is the point
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", file, err)
			failed++
			continue
		}

		result, err := a.pipeline.Ingest(ctx, data, filepath.Base(file))
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", file, err)
			failed++
			continue
		}

		fmt.Printf("%s: %d pages, %d chunks, %d stored", file, result.Documents, result.Chunks, result.Stored)
		if result.Failed > 0 {
			fmt.Printf(" (%d chunks failed to embed and were skipped)", result.Failed)
		}
		fmt.Println()
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d files failed", failed, len(files))
	}
	return nil
}

// =============================================================================
// Ask
// =============================================================================

func runAsk(ctx context.Context, configPath, logLevel, question string, showSources bool, topK int) error {
	a, err := buildApp(ctx, configPath, logLevel)
	if err != nil {
		return err
	}

	result, err := a.pipeline.Ask(ctx, question, topK)
	if err != nil {
		return err
	}

	fmt.Println(result.Answer)

	if showSources && len(result.Sources) > 0 {
		fmt.Println("\nSources:")
		for i, source := range result.Sources {
			fmt.Printf("  %d. %s, page %d (similarity %.2f)\n",
				i+1, source.Document, source.Page, source.Similarity)
			if source.Preview != "" {
				fmt.Printf("     %s\n", source.Preview)
			}
		}
	}
	return nil
}

// =============================================================================
// List
// =============================================================================

func runList(ctx context.Context, configPath, logLevel string) error {
	a, err := buildApp(ctx, configPath, logLevel)
	if err != nil {
		return err
	}

	docs, err := a.store.ListDocuments(ctx)
	if err != nil {
		return err
	}
	if len(docs) == 0 {
		fmt.Println("No documents indexed. Run \"docqa ingest\" first.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "DOCUMENT\tTYPE\tCHUNKS\tPAGES")
	for _, doc := range docs {
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\n",
			doc.Document, doc.SourceType, doc.ChunkCount, formatPages(doc.Pages))
	}
	return w.Flush()
}

// formatPages renders page numbers compactly, eliding long runs.
func formatPages(pages []int) string {
	if len(pages) == 0 {
		return "-"
	}
	if len(pages) > 8 {
		return fmt.Sprintf("%d-%d (%d pages)", pages[0], pages[len(pages)-1], len(pages))
	}
	parts := make([]string, len(pages))
	for i, p := range pages {
		parts[i] = fmt.Sprintf("%d", p)
	}
	return strings.Join(parts, ",")
}

// =============================================================================
// Delete
// =============================================================================

// deleteScope carries the flags of the delete command. Exactly one of
// Document, All, Index, Bucket must be set.
type deleteScope struct {
	Document string
	All      bool
	Index    bool
	Bucket   bool
	Force    bool
}

func (s deleteScope) count() int {
	n := 0
	if s.Document != "" {
		n++
	}
	if s.All {
		n++
	}
	if s.Index {
		n++
	}
	if s.Bucket {
		n++
	}
	return n
}

func runDelete(ctx context.Context, configPath, logLevel string, scope deleteScope) error {
	if scope.count() != 1 {
		return fmt.Errorf("choose exactly one of --document, --all, --index, --bucket")
	}

	a, err := buildApp(ctx, configPath, logLevel)
	if err != nil {
		return err
	}

	switch {
	case scope.Document != "":
		result, err := a.store.DeleteByDocument(ctx, scope.Document)
		if err != nil {
			return err
		}
		if result.DeletedCount == 0 {
			fmt.Printf("No chunks found for document %q.\n", scope.Document)
			return nil
		}
		fmt.Printf("Deleted %d chunks of document %q.\n", result.DeletedCount, scope.Document)
		return nil

	case scope.All:
		if !scope.Force && !confirm(fmt.Sprintf("Delete every vector in index %q?", a.cfg.Store.VectorIndex)) {
			fmt.Println("Aborted.")
			return nil
		}
		result, err := a.store.DeleteAll(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("Deleted %d vectors.\n", result.DeletedCount)
		return nil

	case scope.Index:
		if !scope.Force && !confirm(fmt.Sprintf("Drop index %q and all its vectors?", a.cfg.Store.VectorIndex)) {
			fmt.Println("Aborted.")
			return nil
		}
		dropped, err := a.store.DropIndex(ctx)
		if err != nil {
			return err
		}
		if !dropped {
			fmt.Printf("Index %q does not exist.\n", a.cfg.Store.VectorIndex)
			return nil
		}
		fmt.Printf("Dropped index %q.\n", a.cfg.Store.VectorIndex)
		return nil

	default: // bucket
		if !scope.Force && !confirm(fmt.Sprintf("Drop index %q and bucket %q?",
			a.cfg.Store.VectorIndex, a.cfg.Store.VectorBucket)) {
			fmt.Println("Aborted.")
			return nil
		}
		if _, err := a.store.DropIndex(ctx); err != nil {
			return err
		}
		dropped, err := a.store.DropBucket(ctx)
		if err != nil {
			return err
		}
		if !dropped {
			fmt.Printf("Bucket %q does not exist.\n", a.cfg.Store.VectorBucket)
			return nil
		}
		fmt.Printf("Dropped bucket %q.\n", a.cfg.Store.VectorBucket)
		return nil
	}
}

// confirm asks for interactive confirmation on stdin.
func confirm(prompt string) bool {
	fmt.Printf("%s [y/N]: ", prompt)
	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}
