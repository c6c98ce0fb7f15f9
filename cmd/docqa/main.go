// Package main provides the CLI entry point for docqa, a document
// question-answering tool over a vector index.
//
// docqa ingests PDF, DOCX, and plain-text files, chunks and embeds their
// content, stores the vectors in AWS S3 Vectors, and answers questions
// grounded in the retrieved chunks.
//
// # Basic Usage
//
// Provision the bucket and index:
//
//	docqa init
//
// Ingest documents:
//
//	docqa ingest report.pdf notes.docx
//
// Ask a question:
//
//	docqa ask "What were the Q3 revenue drivers?"
//
// # Environment Variables
//
// Configuration can be provided via environment variables (a .env file in
// the working directory is loaded automatically):
//
//   - AWS_ACCESS_KEY_ID / AWS_SECRET_ACCESS_KEY: AWS credentials
//   - AWS_REGION: AWS region (default: us-east-1)
//   - S3_VECTOR_BUCKET_NAME: vector bucket name
//   - S3_VECTOR_INDEX_NAME: index name inside the bucket
//   - BEDROCK_EMBEDDING_MODEL_ID: embedding model (default: Titan v2)
//   - BEDROCK_LLM_MODEL_ID: generative model for answers
//   - ANTHROPIC_API_KEY: alternative generative backend
//   - OPENAI_API_KEY: alternative embedding backend
package main

import (
	"os"

	"github.com/joho/godotenv"
)

func main() {
	// A local .env is a convenience for development; absence is fine.
	_ = godotenv.Load()

	rootCmd := buildRootCmd()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
