package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/conorfennell/vocabquiz/internal/export"
	"github.com/conorfennell/vocabquiz/internal/web"
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "vocabquiz",
		Short:        "Vocabulary quiz with reward cards",
		SilenceUsage: true,
	}

	pf := root.PersistentFlags()
	pf.String("config", "", "Path to a YAML config file")
	pf.String("env-file", ".env", "Path to a .env file, ignored if missing")
	pf.String("db", "vocabquiz.db", "Path to the SQLite database file")
	pf.String("repos-dir", "repos", "Directory for git source checkouts")
	pf.String("log-level", "info", "Log level: debug, info, warn or error")
	pf.String("log-format", "text", "Log format: text or json")

	root.AddCommand(newServeCmd(), newSyncCmd(), newSourceCmd(), newExportCmd())
	return root
}

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			srv := &http.Server{
				Addr:              a.cfg.Server.Addr,
				Handler:           web.NewServer(a.vocab, a.quiz, a.syncer),
				ReadHeaderTimeout: 10 * time.Second,
			}

			errc := make(chan error, 1)
			go func() {
				slog.Info("Starting server", "addr", srv.Addr)
				errc <- srv.ListenAndServe()
			}()

			select {
			case err := <-errc:
				if !errors.Is(err, http.ErrServerClosed) {
					return fmt.Errorf("server failed: %w", err)
				}
				return nil
			case <-ctx.Done():
			}

			slog.Info("Shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	}
	cmd.Flags().String("addr", ":8080", "Address to listen on")
	return cmd
}

func newSyncCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Import word lists from all registered sources",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			reports, err := a.syncer.WithProgress(cmd.ErrOrStderr()).RunSync(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, r := range reports {
				fmt.Fprintf(out, "%-4d %s: %d parsed, %d inserted, %d updated, %d deleted, %d errors\n",
					r.SourceID, r.Path, r.Parsed, r.Inserted, r.Updated, r.Deleted, len(r.Errors))
				for _, e := range r.Errors {
					fmt.Fprintf(out, "     - %s\n", e)
				}
			}
			return nil
		},
	}
}

func newSourceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "source",
		Short: "Manage word list sources",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "add <path/or/url.git>",
		Short: "Register a local directory or git repository",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			src, err := a.syncer.AddSource(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added %s source %d: %s\n", src.Type, src.ID, src.Path)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List registered sources",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			sources, err := a.syncer.Sources(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(sources) == 0 {
				fmt.Fprintln(out, "No sources configured.")
				return nil
			}
			for _, s := range sources {
				scanned := "never"
				if s.LastScanned != nil {
					scanned = s.LastScanned.Local().Format("2006-01-02 15:04:05")
				}
				fmt.Fprintf(out, "%-4d %-5s %-19s %s\n", s.ID, s.Type, scanned, s.Path)
			}
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "remove <id>",
		Short: "Unregister a source; its entries are kept",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid source ID %q", args[0])
			}
			a, err := loadApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()
			return a.syncer.RemoveSource(cmd.Context(), id)
		},
	})
	return cmd
}

func newExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the vocabulary to an .xlsx workbook",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			entries, err := a.vocab.List(cmd.Context())
			if err != nil {
				return err
			}

			path, _ := cmd.Flags().GetString("output")
			f, err := os.Create(path)
			if err != nil {
				return fmt.Errorf("failed to create %s: %w", path, err)
			}
			if err := export.Write(f, entries); err != nil {
				f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Exported %d entries to %s\n", len(entries), path)
			return nil
		},
	}
	cmd.Flags().StringP("output", "o", "vocabulary.xlsx", "Output file")
	return cmd
}
