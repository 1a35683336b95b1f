// Command knowledgectl manages the tourism knowledge base and operator
// credentials from the command line.
//
// Usage:
//
//	knowledgectl seed
//	knowledgectl ingest --title "Tai O" --file tai_o.md --meta category=culture
//	knowledgectl search "night markets" -k 3
//	knowledgectl token --ttl 2h
//	knowledgectl hash-password 's3cret'
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	appMiddleware "github.com/FACorreiaa/go-hk-tourism-ai/app/middleware"
	"github.com/FACorreiaa/go-hk-tourism-ai/config"
	"github.com/FACorreiaa/go-hk-tourism-ai/internal/api/auth"
	"github.com/FACorreiaa/go-hk-tourism-ai/internal/container"
	"github.com/FACorreiaa/go-hk-tourism-ai/internal/textfmt"
)

var verbose bool

func main() {
	_ = godotenv.Load()

	root := &cobra.Command{
		Use:           "knowledgectl",
		Short:         "Manage the HK Tourism AI knowledge base",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log at debug level")

	root.AddCommand(seedCmd(), ingestCmd(), searchCmd(), tokenCmd(), hashPasswordCmd())

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newLogger() *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// open builds the same dependency graph as the API server.
func open(ctx context.Context) (*container.Container, error) {
	cfg, err := config.InitConfig()
	if err != nil {
		return nil, err
	}
	secrets, err := config.LoadSecrets()
	if err != nil {
		return nil, err
	}
	return container.NewContainer(ctx, &cfg, secrets, newLogger())
}

func seedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Index the built-in Hong Kong corpus when the vector store is empty",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := open(cmd.Context())
			if err != nil {
				return err
			}
			defer c.Close()

			n, err := c.Knowledge.Seed(cmd.Context())
			if err != nil {
				return fmt.Errorf("seeding failed after %d chunks: %w", n, err)
			}
			if n == 0 {
				fmt.Println("Knowledge base already populated, nothing to do")
				return nil
			}
			fmt.Printf("Indexed %d chunks\n", n)
			return nil
		},
	}
}

func ingestCmd() *cobra.Command {
	var (
		title string
		file  string
		meta  []string
	)
	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Add a document to the knowledge base",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			content, err := os.ReadFile(file)
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", file, err)
			}
			metadata, err := parseMeta(meta)
			if err != nil {
				return err
			}

			c, err := open(cmd.Context())
			if err != nil {
				return err
			}
			defer c.Close()
			if !c.Knowledge.VectorAvailable() {
				return fmt.Errorf("vector store unavailable, check postgres and embedding settings")
			}

			n, err := c.Knowledge.AddDocument(cmd.Context(), title, string(content), metadata)
			if err != nil {
				return err
			}
			fmt.Printf("Added %q as %d chunks\n", title, n)
			return nil
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "document title")
	cmd.Flags().StringVarP(&file, "file", "f", "", "path to the document body")
	cmd.Flags().StringArrayVar(&meta, "meta", nil, "metadata as key=value, repeatable")
	_ = cmd.MarkFlagRequired("title")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func parseMeta(pairs []string) (map[string]any, error) {
	out := make(map[string]any, len(pairs))
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid --meta %q, want key=value", p)
		}
		out[k] = v
	}
	return out, nil
}

func searchCmd() *cobra.Command {
	var k int
	cmd := &cobra.Command{
		Use:   "search QUERY",
		Short: "Show what retrieval returns for a query",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := open(cmd.Context())
			if err != nil {
				return err
			}
			defer c.Close()

			docs, mode := c.Knowledge.Search(cmd.Context(), strings.Join(args, " "), k)
			fmt.Printf("mode: %s\n", mode)
			for i, d := range docs {
				fmt.Printf("%d. %s (score %.3f)\n   %s\n", i+1, d.Title, d.Score, textfmt.Excerpt(d.Content, 160))
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&k, "k", "k", 5, "number of documents")
	return cmd
}

func tokenCmd() *cobra.Command {
	var (
		subject string
		ttl     time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint an admin bearer token signed with ADMIN_JWT_SECRET",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			secrets, err := config.LoadSecrets()
			if err != nil {
				return err
			}
			a := appMiddleware.NewAuthenticator(secrets.AdminJWTSecret, newLogger())
			token, expiresAt, err := a.IssueToken(subject, appMiddleware.RoleAdmin, ttl)
			if err != nil {
				return err
			}
			fmt.Println(token)
			fmt.Fprintf(os.Stderr, "expires %s\n", expiresAt.Format(time.RFC3339))
			return nil
		},
	}
	cmd.Flags().StringVar(&subject, "subject", "admin", "token subject")
	cmd.Flags().DurationVar(&ttl, "ttl", auth.TokenTTL, "token lifetime")
	return cmd
}

func hashPasswordCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hash-password PASSWORD",
		Short: "Print a bcrypt hash for ADMIN_PASSWORD_HASH",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			hash, err := auth.HashPassword(args[0])
			if err != nil {
				return err
			}
			fmt.Println(hash)
			return nil
		},
	}
}
