package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"

	"github.com/wagnerlima/memory-cloud/verse-mcp/internal/config"
	"github.com/wagnerlima/memory-cloud/verse-mcp/internal/logger"
	"github.com/wagnerlima/memory-cloud/verse-mcp/internal/server"
)

func main() {
	_ = godotenv.Load()

	rootCmd := &cobra.Command{
		Use:           "verse-mcp",
		Short:         "MCP server for game-economy questions: world data, market prices and retrieval",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().String("config", "verse.yaml", "Path to the YAML config (missing file means defaults)")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the MCP server",
		RunE:  runServe,
	}
	serveCmd.Flags().String("transport", "stdio", "Transport mode: stdio or http")
	serveCmd.Flags().String("port", "8081", "HTTP port (only used with --transport http)")
	rootCmd.AddCommand(serveCmd)

	rootCmd.AddCommand(&cobra.Command{
		Use:   "refresh",
		Short: "Fetch world and market data once and write the disk snapshot",
		RunE:  runRefresh,
	})

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func setup(cmd *cobra.Command) (*config.AppConfig, *logger.Logger, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	log, err := logger.New(cfg.LogMode)
	if err != nil {
		return nil, nil, fmt.Errorf("init logger: %w", err)
	}
	return cfg, log, nil
}

func runServe(cmd *cobra.Command, _ []string) error {
	transport, _ := cmd.Flags().GetString("transport")
	port, _ := cmd.Flags().GetString("port")
	if transport != "stdio" && transport != "http" {
		return fmt.Errorf("unknown transport: %s (use stdio or http)", transport)
	}

	cfg, log, err := setup(cmd)
	if err != nil {
		return err
	}
	defer log.Sync()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	app, err := server.Build(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer app.Close()

	// Boot from the disk snapshot and start the first upstream refresh.
	app.World.Snapshot(ctx)
	go app.World.Run(ctx)
	defer app.World.Wait()

	srv := server.New(app.Deps)

	switch transport {
	case "stdio":
		log.Info("verse-mcp server starting", "transport", "stdio")
		if err := srv.Run(ctx, &mcp.StdioTransport{}); err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("server error: %w", err)
		}
	case "http":
		addr := ":" + port
		handler := mcp.NewStreamableHTTPHandler(func(r *http.Request) *mcp.Server {
			return srv
		}, nil)
		httpSrv := &http.Server{Addr: addr, Handler: handler}
		go func() {
			<-ctx.Done()
			sctx, scancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer scancel()
			_ = httpSrv.Shutdown(sctx)
		}()
		log.Info("verse-mcp server listening", "transport", "http", "addr", addr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server error: %w", err)
		}
	}
	return nil
}

func runRefresh(cmd *cobra.Command, _ []string) error {
	cfg, log, err := setup(cmd)
	if err != nil {
		return err
	}
	defer log.Sync()
	cfg.Cache.WriteBack = true

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	app, err := server.Build(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer app.Close()

	app.World.LoadOnce(ctx)
	if _, err := app.World.Refresh(ctx); err != nil {
		return fmt.Errorf("refresh: %w", err)
	}
	out, _ := json.MarshalIndent(app.World.Status(), "", "  ")
	fmt.Println(string(out))
	return nil
}
