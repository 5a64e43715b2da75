// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/poiesic/docdex"
	"github.com/poiesic/docdex/ai"
	"github.com/poiesic/docdex/core"
	"github.com/poiesic/docdex/extract"
	"github.com/poiesic/docdex/ingestion"
	"github.com/poiesic/docdex/search"
)

func main() {
	app := &cli.App{
		Name:  "docdex",
		Usage: "Document ingestion and semantic search over PDF files",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "data-dir",
				Aliases: []string{"d"},
				Usage:   "Path to the data directory",
				Value:   "./docdex-data",
				EnvVars: []string{"DOCDEX_DATA_DIR"},
			},
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
			&cli.StringFlag{
				Name:    "embedding-host",
				Usage:   "Embedding service host URL",
				Value:   "http://localhost:11434/v1",
				EnvVars: []string{"DOCDEX_EMBEDDING_HOST"},
			},
			&cli.StringFlag{
				Name:    "embedding-model",
				Usage:   "Embedding model name",
				Value:   "embeddinggemma",
				EnvVars: []string{"DOCDEX_EMBEDDING_MODEL"},
			},
			&cli.StringFlag{
				Name:    "embedding-token",
				Usage:   "Embedding service API token",
				Value:   "none",
				EnvVars: []string{"DOCDEX_EMBEDDING_TOKEN"},
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:      "ingest",
				Usage:     "Ingest a PDF file into the document index",
				ArgsUsage: "<file.pdf>",
				Action:    ingestCommand,
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "chunk-size",
						Usage: "Maximum characters per chunk",
						Value: 8000,
					},
					&cli.IntFlag{
						Name:  "chunk-overlap",
						Usage: "Characters of overlap between adjacent chunks",
						Value: 200,
					},
					&cli.IntFlag{
						Name:  "batch-size",
						Usage: "Number of chunks per embedding request",
						Value: 16,
					},
				},
			},
			{
				Name:   "list",
				Usage:  "List all ingested documents",
				Action: listCommand,
			},
			{
				Name:      "info",
				Usage:     "Show a document's catalog record and index stats",
				ArgsUsage: "<hash>",
				Action:    infoCommand,
			},
			{
				Name:      "delete",
				Usage:     "Delete a document and all its artifacts",
				ArgsUsage: "<hash>",
				Action:    deleteCommand,
			},
			{
				Name:      "search",
				Usage:     "Search ingested documents for a query",
				ArgsUsage: "<query>",
				Action:    searchCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "hash",
						Usage: "Restrict the search to one document",
					},
					&cli.IntFlag{
						Name:    "top",
						Aliases: []string{"k"},
						Usage:   "Number of results to return",
						Value:   5,
					},
					&cli.IntFlag{
						Name:  "snippet",
						Usage: "Characters of chunk text to print per result",
						Value: 200,
					},
				},
			},
			{
				Name:   "indices",
				Usage:  "List persisted vector indexes with their stats",
				Action: indicesCommand,
			},
			{
				Name:   "reconcile",
				Usage:  "Find indexes with no catalog record",
				Action: reconcileCommand,
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "remove",
						Usage: "Delete the orphaned indexes",
					},
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func openService(c *cli.Context) (*docdex.Service, error) {
	aiConfig := ai.NewConfig(
		ai.WithHost(c.String("embedding-host")),
		ai.WithModel(c.String("embedding-model")),
		ai.WithToken(c.String("embedding-token")),
	)
	if err := aiConfig.Validate(); err != nil {
		return nil, fmt.Errorf("invalid embedding configuration: %w", err)
	}

	service, err := docdex.NewService(c.String("data-dir"), docdex.WithAIConfig(aiConfig))
	if err != nil {
		return nil, fmt.Errorf("failed to open data directory: %w", err)
	}
	return service, nil
}

func ingestCommand(c *cli.Context) error {
	if c.NArg() != 1 {
		return fmt.Errorf("expected exactly one PDF file argument")
	}
	path := c.Args().First()

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}

	service, err := openService(c)
	if err != nil {
		return err
	}
	defer service.Close()

	pipeline, err := service.NewIngestionPipeline(
		ingestion.WithChunker(extract.Chunker{
			MaxSize: c.Int("chunk-size"),
			Overlap: c.Int("chunk-overlap"),
		}),
		ingestion.WithBatchSize(c.Int("batch-size")),
	)
	if err != nil {
		return err
	}
	defer pipeline.Release()

	result, err := pipeline.Ingest(context.Background(), filepath.Base(path), data)
	if err != nil {
		return fmt.Errorf("ingestion failed: %w", err)
	}

	record := result.Record
	if result.Duplicate {
		fmt.Printf("Already ingested as %s (uploaded %s)\n",
			record.Hash, record.File.UploadedAt.Format("2006-01-02 15:04:05"))
		return nil
	}

	fmt.Printf("Ingested %s\n", record.File.OriginalFilename)
	fmt.Printf("  Hash:      %s\n", record.Hash)
	fmt.Printf("  Size:      %d bytes\n", record.File.SizeBytes)
	fmt.Printf("  Chunks:    %d\n", record.Content.ChunkCount)
	fmt.Printf("  Vectors:   %d x %d\n", record.Vector.VectorCount, record.Vector.Dimension)
	fmt.Printf("  Index:     %s\n", record.Vector.IndexName)
	fmt.Printf("  Model:     %s\n", record.Embedding.Model)
	return nil
}

func listCommand(c *cli.Context) error {
	service, err := openService(c)
	if err != nil {
		return err
	}
	defer service.Close()

	records, err := service.Catalog().List(context.Background())
	if err != nil {
		return err
	}

	if len(records) == 0 {
		fmt.Println("No documents ingested.")
		return nil
	}

	for _, record := range records {
		fmt.Printf("%s  %-40s  %6d chunks  %s\n",
			record.Hash,
			record.File.OriginalFilename,
			record.Content.ChunkCount,
			record.CreatedAt.Format("2006-01-02 15:04:05"))
	}
	return nil
}

func infoCommand(c *cli.Context) error {
	if c.NArg() != 1 {
		return fmt.Errorf("expected exactly one hash argument")
	}
	hash := core.ContentHash(c.Args().First())

	service, err := openService(c)
	if err != nil {
		return err
	}
	defer service.Close()

	pipeline, err := service.NewIngestionPipeline()
	if err != nil {
		return err
	}
	defer pipeline.Release()

	info, err := pipeline.Describe(context.Background(), hash)
	if err != nil {
		return err
	}

	record := info.Record
	fmt.Printf("Document %s\n", record.Hash)
	fmt.Printf("  Filename:    %s\n", record.File.OriginalFilename)
	fmt.Printf("  Stored as:   %s\n", record.File.StoredFilename)
	fmt.Printf("  Size:        %d bytes\n", record.File.SizeBytes)
	fmt.Printf("  Uploaded:    %s\n", record.File.UploadedAt.Format("2006-01-02 15:04:05"))
	fmt.Printf("  Characters:  %d\n", record.Content.CharLength)
	fmt.Printf("  Chunks:      %d\n", record.Content.ChunkCount)
	fmt.Printf("  Index:       %s\n", record.Vector.IndexName)
	fmt.Printf("  Vectors:     %d x %d\n", record.Vector.VectorCount, record.Vector.Dimension)
	fmt.Printf("  Model:       %s (%s)\n", record.Embedding.Model, record.Embedding.APIVersion)

	if info.IndexError != "" {
		fmt.Printf("  Index state: UNREADABLE (%s)\n", info.IndexError)
	} else if info.Index != nil {
		fmt.Printf("  Index size:  %d bytes on disk\n", info.Index.SizeBytes)
	}
	return nil
}

func deleteCommand(c *cli.Context) error {
	if c.NArg() != 1 {
		return fmt.Errorf("expected exactly one hash argument")
	}
	hash := core.ContentHash(c.Args().First())

	service, err := openService(c)
	if err != nil {
		return err
	}
	defer service.Close()

	pipeline, err := service.NewIngestionPipeline()
	if err != nil {
		return err
	}
	defer pipeline.Release()

	result, err := pipeline.Delete(context.Background(), hash)
	if err != nil {
		return fmt.Errorf("delete failed: %w", err)
	}

	fmt.Printf("Deleted %s\n", hash)
	for _, component := range []string{"index", "blob", "record"} {
		status := "removed"
		if !result.Removed[component] {
			status = "was already absent"
			if msg, ok := result.Errors[component]; ok {
				status = "FAILED: " + msg
			}
		}
		fmt.Printf("  %-7s %s\n", component+":", status)
	}
	return nil
}

func searchCommand(c *cli.Context) error {
	if c.NArg() != 1 {
		return fmt.Errorf("expected exactly one query argument")
	}
	query := c.Args().First()

	service, err := openService(c)
	if err != nil {
		return err
	}
	defer service.Close()

	searcher, err := service.NewSearcher()
	if err != nil {
		return err
	}

	ctx := context.Background()
	k := c.Int("top")

	var results []search.Result
	if hashArg := c.String("hash"); hashArg != "" {
		results, err = searcher.Query(ctx, core.ContentHash(hashArg), query, k)
	} else {
		results, err = searcher.QueryAll(ctx, query, k)
	}
	if err != nil {
		return err
	}

	if len(results) == 0 {
		fmt.Println("No results.")
		return nil
	}

	snippetLen := c.Int("snippet")
	for i, r := range results {
		fmt.Printf("%d. %s (chunk %d at offset %d, distance %.4f)\n",
			i+1, r.OriginalFilename, r.Row, r.Chunk.Start, r.Distance)
		fmt.Printf("   %s\n", snippet(r.Chunk.Text, snippetLen))
	}
	return nil
}

func indicesCommand(c *cli.Context) error {
	service, err := openService(c)
	if err != nil {
		return err
	}
	defer service.Close()

	names, err := service.Indexes().List()
	if err != nil {
		return err
	}

	if len(names) == 0 {
		fmt.Println("No indexes.")
		return nil
	}

	for _, name := range names {
		info, err := service.Indexes().Describe(name)
		if err != nil {
			fmt.Printf("%-45s  ERROR: %v\n", name, err)
			continue
		}
		if info.Error != "" {
			fmt.Printf("%-45s  %8d bytes  UNREADABLE: %s\n", name, info.SizeBytes, info.Error)
			continue
		}
		fmt.Printf("%-45s  %8d bytes  %5d x %d\n",
			name, info.SizeBytes, info.VectorCount, info.Dimension)
	}
	return nil
}

func reconcileCommand(c *cli.Context) error {
	service, err := openService(c)
	if err != nil {
		return err
	}
	defer service.Close()

	pipeline, err := service.NewIngestionPipeline()
	if err != nil {
		return err
	}
	defer pipeline.Release()

	orphans, err := pipeline.Orphans(context.Background())
	if err != nil {
		return err
	}

	if len(orphans) == 0 {
		fmt.Println("No orphaned indexes.")
		return nil
	}

	for _, name := range orphans {
		if c.Bool("remove") {
			removed, err := service.Indexes().Delete(name)
			if err != nil {
				fmt.Printf("%s  FAILED: %v\n", name, err)
				continue
			}
			if removed {
				fmt.Printf("%s  removed\n", name)
			}
			continue
		}
		fmt.Println(name)
	}
	if !c.Bool("remove") {
		fmt.Printf("\n%d orphaned index(es). Re-run with --remove to delete them.\n", len(orphans))
	}
	return nil
}

func snippet(text string, limit int) string {
	text = strings.ReplaceAll(text, "\n", " ")
	runes := []rune(text)
	if limit <= 0 || len(runes) <= limit {
		return text
	}
	return string(runes[:limit]) + "..."
}

func setupLogger(c *cli.Context) error {
	levelStr := strings.ToLower(c.String("log-level"))

	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}
