// Package main provides the CLI entry point for docqa.
//
// commands.go contains all cobra command definitions and their flag
// configurations. Each command builder creates a command and wires it to
// its handler in handlers.go.
package main

import (
	"github.com/spf13/cobra"
)

// =============================================================================
// Root Command
// =============================================================================

// buildRootCmd creates the root command with all subcommands attached.
// Separated from main() to facilitate testing.
func buildRootCmd() *cobra.Command {
	var (
		configPath string
		logLevel   string
	)

	rootCmd := &cobra.Command{
		Use:   "docqa",
		Short: "Question answering over your documents",
		Long: `docqa ingests PDF, DOCX, and plain-text documents into a vector index
and answers questions grounded in the retrieved content, with source
citations.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "docqa.yaml",
		"Path to YAML configuration file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "",
		"Log level override (debug|info|warn|error)")

	rootCmd.AddCommand(
		buildInitCmd(&configPath, &logLevel),
		buildIngestCmd(&configPath, &logLevel),
		buildAskCmd(&configPath, &logLevel),
		buildListCmd(&configPath, &logLevel),
		buildDeleteCmd(&configPath, &logLevel),
	)

	return rootCmd
}

// =============================================================================
// Init Command
// =============================================================================

// buildInitCmd creates the "init" command that provisions the vector bucket
// and index.
func buildInitCmd(configPath, logLevel *string) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create the vector bucket and index",
		Long: `Create the configured S3 vector bucket and index if they do not exist
yet, then wait for the index to become queryable.

Running init against existing resources is safe and does nothing.`,
		Example: `  # Provision with settings from .env
  docqa init`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit(cmd.Context(), *configPath, *logLevel)
		},
	}
}

// =============================================================================
// Ingest Command
// =============================================================================

// buildIngestCmd creates the "ingest" command that indexes documents.
func buildIngestCmd(configPath, logLevel *string) *cobra.Command {
	return &cobra.Command{
		Use:   "ingest <file>...",
		Short: "Extract, chunk, embed, and store documents",
		Long: `Ingest one or more documents into the vector index.

Supported formats are PDF, DOCX, and plain text. Each file is split into
overlapping chunks, embedded, and written to the index in batches. Chunks
whose embedding fails after retries are skipped and reported, not fatal.

Re-ingesting a file appends new chunks; run "docqa delete --document"
first to replace a document cleanly.`,
		Example: `  # Ingest a single report
  docqa ingest report.pdf

  # Ingest several files at once
  docqa ingest report.pdf notes.docx readme.txt`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIngest(cmd.Context(), *configPath, *logLevel, args)
		},
	}
}

// =============================================================================
// Ask Command
// =============================================================================

// buildAskCmd creates the "ask" command that answers one question.
func buildAskCmd(configPath, logLevel *string) *cobra.Command {
	var (
		showSources bool
		topK        int
	)

	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Answer a question from the indexed documents",
		Long: `Answer a question using only content retrieved from the vector index.

The answer cites the source document and page for the facts it uses.
When nothing relevant is stored, docqa says so instead of guessing.`,
		Example: `  # Ask with source previews
  docqa ask "What were the Q3 revenue drivers?"

  # Widen the retrieval candidate pool
  docqa ask --top-k 8 "Summarize the contract terms"

  # Suppress the sources section
  docqa ask --sources=false "Who signed the contract?"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAsk(cmd.Context(), *configPath, *logLevel, args[0], showSources, topK)
		},
	}

	cmd.Flags().BoolVar(&showSources, "sources", true, "Print source citations after the answer")
	cmd.Flags().IntVar(&topK, "top-k", 0, "Retrieval candidate count (0 uses the configured value)")
	return cmd
}

// =============================================================================
// List Command
// =============================================================================

// buildListCmd creates the "list" command that shows indexed documents.
func buildListCmd(configPath, logLevel *string) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List indexed documents",
		Long: `List every document currently present in the vector index, with its
source format, chunk count, and the pages that contributed chunks.`,
		Example: `  docqa list`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(cmd.Context(), *configPath, *logLevel)
		},
	}
}

// =============================================================================
// Delete Command
// =============================================================================

// buildDeleteCmd creates the "delete" command for cleanup at three scopes:
// one document, all vectors, or the index / bucket themselves.
func buildDeleteCmd(configPath, logLevel *string) *cobra.Command {
	var (
		document    string
		deleteAll   bool
		deleteIndex bool
		bucket      bool
		force       bool
	)

	cmd := &cobra.Command{
		Use:   "delete",
		Short: "Delete indexed data",
		Long: `Delete data from the vector store at one of four scopes:

  --document NAME   remove every chunk of one document
  --all             remove every vector, keep the index
  --index           drop the index itself
  --bucket          drop the index and the vector bucket

Exactly one scope must be chosen. Destructive scopes prompt for
confirmation unless --force is given.`,
		Example: `  # Remove one document's chunks
  docqa delete --document report.pdf

  # Wipe the index contents
  docqa delete --all

  # Tear everything down without prompting
  docqa delete --bucket --force`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDelete(cmd.Context(), *configPath, *logLevel, deleteScope{
				Document: document,
				All:      deleteAll,
				Index:    deleteIndex,
				Bucket:   bucket,
				Force:    force,
			})
		},
	}

	cmd.Flags().StringVar(&document, "document", "", "Delete all chunks of the named document")
	cmd.Flags().BoolVar(&deleteAll, "all", false, "Delete every vector in the index")
	cmd.Flags().BoolVar(&deleteIndex, "index", false, "Delete the index itself")
	cmd.Flags().BoolVar(&bucket, "bucket", false, "Delete the index and the vector bucket")
	cmd.Flags().BoolVarP(&force, "force", "f", false, "Skip the confirmation prompt")

	return cmd
}
