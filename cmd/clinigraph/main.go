package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/clinigraph/clinigraph/pkg/api"
	"github.com/clinigraph/clinigraph/pkg/model"
	"github.com/clinigraph/clinigraph/pkg/server"
)

var configPath string

func main() {
	root := &cobra.Command{
		Use:           "clinigraph",
		Short:         "Jurisdiction-aware clinical-protocol compliance engine",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "clinigraph.yaml", "path to config file")

	root.AddCommand(
		serveCmd(),
		ingestCmd(),
		retrieveCmd(),
		checkCmd(),
		fixCmd(),
		statsCmd(),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), configPath)
			if err != nil {
				return err
			}
			defer a.close()

			srv := api.NewServer(a.repo, a.builder, a.retriever, a.checker, a.fixer, a.logger,
				api.WithServerMetrics(a.metrics),
				api.WithJWTSecret(a.cfg.Server.JWTSecret),
			)
			gs := server.NewGracefulServer(a.cfg.Server.Addr, srv.Handler(), a.cfg.Server.ShutdownTimeout.Std(), a.logger)
			return gs.Start()
		},
	}
}

func ingestCmd() *cobra.Command {
	var jurisdiction, file string
	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Extract requirements from a regulation document and build the graph",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), configPath)
			if err != nil {
				return err
			}
			defer a.close()

			document, err := os.ReadFile(file)
			if err != nil {
				return err
			}
			stats, err := a.builder.IngestDocument(cmd.Context(), jurisdiction, string(document))
			if err != nil {
				return err
			}
			return printJSON(stats)
		},
	}
	cmd.Flags().StringVar(&jurisdiction, "jurisdiction", "", "target jurisdiction")
	cmd.Flags().StringVar(&file, "file", "", "regulation document to ingest")
	cmd.MarkFlagRequired("jurisdiction")
	cmd.MarkFlagRequired("file")
	return cmd
}

func retrieveCmd() *cobra.Command {
	var jurisdiction, query string
	var topK int
	cmd := &cobra.Command{
		Use:   "retrieve",
		Short: "Retrieve the requirements most relevant to a query",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), configPath)
			if err != nil {
				return err
			}
			defer a.close()

			results, err := a.retriever.RetrieveText(cmd.Context(), jurisdiction, query, topK)
			if err != nil {
				return err
			}
			return printJSON(results)
		},
	}
	cmd.Flags().StringVar(&jurisdiction, "jurisdiction", "", "target jurisdiction")
	cmd.Flags().StringVar(&query, "query", "", "query text")
	cmd.Flags().IntVar(&topK, "top-k", 10, "maximum results")
	cmd.MarkFlagRequired("jurisdiction")
	cmd.MarkFlagRequired("query")
	return cmd
}

func checkCmd() *cobra.Command {
	var jurisdiction, file string
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Check a protocol document for compliance",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), configPath)
			if err != nil {
				return err
			}
			defer a.close()

			chunks, err := chunkFile(file)
			if err != nil {
				return err
			}
			report, err := a.checker.CheckCompliance(cmd.Context(), jurisdiction, chunks)
			if err != nil {
				return err
			}
			return printJSON(report)
		},
	}
	cmd.Flags().StringVar(&jurisdiction, "jurisdiction", "", "target jurisdiction")
	cmd.Flags().StringVar(&file, "file", "", "protocol document to check")
	cmd.MarkFlagRequired("jurisdiction")
	cmd.MarkFlagRequired("file")
	return cmd
}

func fixCmd() *cobra.Command {
	var jurisdiction, file string
	cmd := &cobra.Command{
		Use:   "fix",
		Short: "Check a protocol and propose edits for its violations",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), configPath)
			if err != nil {
				return err
			}
			defer a.close()

			chunks, err := chunkFile(file)
			if err != nil {
				return err
			}
			report, err := a.checker.CheckCompliance(cmd.Context(), jurisdiction, chunks)
			if err != nil {
				return err
			}
			plan, err := a.fixer.ProposeFixes(cmd.Context(), report, chunks)
			if err != nil {
				return err
			}
			return printJSON(map[string]any{"report": report, "plan": plan})
		},
	}
	cmd.Flags().StringVar(&jurisdiction, "jurisdiction", "", "target jurisdiction")
	cmd.Flags().StringVar(&file, "file", "", "protocol document to fix")
	cmd.MarkFlagRequired("jurisdiction")
	cmd.MarkFlagRequired("file")
	return cmd
}

func statsCmd() *cobra.Command {
	var jurisdiction string
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show graph statistics for a jurisdiction",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), configPath)
			if err != nil {
				return err
			}
			defer a.close()

			j, err := a.repo.Get(jurisdiction)
			if err != nil {
				return err
			}
			g, _ := j.View()
			return printJSON(g.Stats())
		},
	}
	cmd.Flags().StringVar(&jurisdiction, "jurisdiction", "", "target jurisdiction")
	cmd.MarkFlagRequired("jurisdiction")
	return cmd
}

// chunkFile splits a protocol document into chunks on blank lines.
func chunkFile(path string) ([]model.ProtocolChunk, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var chunks []model.ProtocolChunk
	for _, para := range strings.Split(string(data), "\n\n") {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}
		chunks = append(chunks, model.ProtocolChunk{Index: len(chunks), Text: para})
	}
	return chunks, nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
