package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"media-saver/internal/config"
	"media-saver/internal/convert"
	"media-saver/internal/export"
	"media-saver/internal/httpx"
	"media-saver/internal/parser"
	"media-saver/internal/sanitize"
	"media-saver/internal/server"
	"media-saver/internal/storage"
	"media-saver/internal/webdav"
	"media-saver/pkg/models"
)

var (
	configPath string
	parserName string
	webdavName string
	folderPath string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "media-saver",
	Short: "Convert short-video share links and store the media on WebDAV",
	Long: `Media Saver takes share links from short-video apps, resolves the real
media URL through a configurable third-party parser API, and transfers
the video or image album to your WebDAV server.

Features:
- Works with any parser API returning JSON (response shape is detected)
- Video and image album support
- Batch conversion with pacing between tasks
- Automatic retries on transient upload failures
- Conversion history with export to CSV/XLSX/JSON`,
	Version: "1.0.0",
}

// app bundles everything a command needs after configuration is loaded
type app struct {
	cfg          *models.Config
	store        *storage.SQLite
	orchestrator *convert.Orchestrator
	uploader     *webdav.Uploader
	parserCfg    models.ParserConfig
	webdavCfg    models.WebDAVConfig
}

// setup loads configuration and wires the conversion pipeline. Commands
// that only read history pass needParser/needWebDAV as false.
func setup(needParser, needWebDAV bool) (*app, error) {
	configManager := config.NewManager()
	cfg, err := configManager.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("error loading configuration: %w", err)
	}

	store, err := storage.NewSQLite(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("error initializing storage: %w", err)
	}

	httpCfg := httpx.Config{}
	if cfg.Proxy.Enabled && cfg.Proxy.Host != "" {
		httpCfg.ProxyURL = fmt.Sprintf("%s://%s:%d", cfg.Proxy.Type, cfg.Proxy.Host, cfg.Proxy.Port)
	}
	httpClient := httpx.New(httpCfg)

	parserClient := parser.New(httpClient)
	if cfg.Convert.ParseTimeout > 0 {
		parserClient.SetTimeout(time.Duration(cfg.Convert.ParseTimeout) * time.Second)
	}

	uploader := webdav.NewUploader(httpClient)
	if cfg.Convert.DownloadTimeout > 0 {
		uploader.SetDownloadTimeout(time.Duration(cfg.Convert.DownloadTimeout) * time.Second)
	}

	orchestrator := convert.New(parserClient, uploader, store)
	if cfg.Convert.TaskDelay > 0 {
		orchestrator.SetTaskDelay(time.Duration(cfg.Convert.TaskDelay) * time.Second)
	}
	if folderPath != "" {
		orchestrator.SetFolderPath(folderPath)
	} else {
		orchestrator.SetFolderPath(cfg.Convert.FolderPath)
	}

	a := &app{
		cfg:          cfg,
		store:        store,
		orchestrator: orchestrator,
		uploader:     uploader,
	}

	if needParser {
		if parserName != "" {
			p, ok := cfg.FindParser(parserName)
			if !ok {
				store.Close()
				return nil, fmt.Errorf("parser %q not configured", parserName)
			}
			a.parserCfg = p
		} else {
			p, ok := cfg.DefaultParser()
			if !ok {
				store.Close()
				return nil, fmt.Errorf("no parser API configured, run 'media-saver config init' and edit config.yaml")
			}
			a.parserCfg = p
		}
	}

	if needWebDAV {
		if webdavName != "" {
			w, ok := cfg.FindWebDAV(webdavName)
			if !ok {
				store.Close()
				return nil, fmt.Errorf("WebDAV server %q not configured", webdavName)
			}
			a.webdavCfg = w
		} else {
			w, ok := cfg.DefaultWebDAV()
			if !ok {
				store.Close()
				return nil, fmt.Errorf("no WebDAV server configured, run 'media-saver config init' and edit config.yaml")
			}
			a.webdavCfg = w
		}
	}

	return a, nil
}

var convertCmd = &cobra.Command{
	Use:   "convert [url]",
	Short: "Convert a share link and upload the media to WebDAV",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := setup(true, true)
		if err != nil {
			return err
		}
		defer a.store.Close()

		fmt.Printf("Converting: %s\n", args[0])

		task := a.orchestrator.NewTask(args[0])
		task = a.orchestrator.ConvertSingle(cmd.Context(), task, a.parserCfg, a.webdavCfg, func(progress float64, status models.TaskStatus) {
			if verbose {
				fmt.Printf("  %3.0f%% %s\n", progress, status)
			}
		})

		if task.Status == models.StatusSuccess {
			fmt.Printf("✅ Saved: %s\n", task.Upload.FilePath)
			if task.ParsedInfo != nil && task.ParsedInfo.MediaType == models.MediaTypeImageAlbum {
				fmt.Printf("   Images: %d uploaded, %d failed\n", task.Upload.ImagesUploaded, task.Upload.ImagesFailed)
			}
		} else {
			fmt.Printf("❌ Conversion failed: %s\n", task.Error)
		}

		return nil
	},
}

var batchCmd = &cobra.Command{
	Use:   "batch [urls-file]",
	Short: "Convert multiple share links from a file, one per line",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		content, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("error reading URLs file: %w", err)
		}

		urls := convert.ParseShareURLs(string(content))
		if len(urls) == 0 {
			fmt.Println("No valid URLs found in file")
			return nil
		}

		fmt.Printf("Found %d links to convert\n", len(urls))

		a, err := setup(true, true)
		if err != nil {
			return err
		}
		defer a.store.Close()

		batch := a.orchestrator.NewBatch(args[0], urls)
		batch = a.orchestrator.ConvertBatch(cmd.Context(), batch, a.parserCfg, a.webdavCfg, func(progress float64, current *models.ConversionTask) {
			if verbose {
				fmt.Printf("  %3.0f%% %s\n", progress, current.SourceURL)
			}
		})

		// Print results
		for _, task := range batch.Tasks {
			if task.Status == models.StatusSuccess {
				fmt.Printf("✅ %s\n", task.Upload.FilePath)
			} else {
				fmt.Printf("❌ %s: %s\n", task.SourceURL, task.Error)
			}
		}

		fmt.Printf("\nBatch %s: %d of %d succeeded\n", batch.Status, batch.CompletedTasks, batch.TotalTasks)
		return nil
	},
}

var parseCmd = &cobra.Command{
	Use:   "parse [url]",
	Short: "Parse a share link without uploading",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := setup(true, false)
		if err != nil {
			return err
		}
		defer a.store.Close()

		info, _, err := a.orchestrator.Preview(cmd.Context(), args[0], a.parserCfg)
		if err != nil {
			return fmt.Errorf("error parsing link: %w", err)
		}

		fmt.Printf("📹 Media Information\n")
		fmt.Printf("   Title: %s\n", info.Title)
		if sanitize.HasSpecialChars(info.Title) {
			fmt.Printf("   Saved as: %s (replacing %s)\n",
				sanitize.Sanitize(info.Title),
				strings.Join(sanitize.DetectSpecialChars(info.Title), " "))
		}
		fmt.Printf("   Type: %s\n", info.MediaType)
		if info.Author != "" {
			fmt.Printf("   Author: %s\n", info.Author)
		}
		if info.Description != "" && info.Description != info.Title {
			fmt.Printf("   Description: %s\n", info.Description)
		}
		switch info.MediaType {
		case models.MediaTypeVideo:
			fmt.Printf("   URL: %s\n", info.URL)
			fmt.Printf("   Format: %s\n", info.Format)
			if info.Duration > 0 {
				fmt.Printf("   Duration: %s\n", convert.FormatDuration(info.Duration))
			}
			if info.FileSize > 0 {
				fmt.Printf("   Size: %s\n", convert.FormatFileSize(info.FileSize))
			} else if info.Duration > 0 {
				fmt.Printf("   Size: ~%s (estimated from duration)\n",
					convert.FormatFileSize(convert.EstimateFileSize(info.Duration)))
			}
		case models.MediaTypeImageAlbum:
			fmt.Printf("   Images: %d\n", info.ImageCount)
		}
		if !info.Time.IsZero() {
			fmt.Printf("   Published: %s\n", info.Time)
		}

		return nil
	},
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recent conversions",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := setup(false, false)
		if err != nil {
			return err
		}
		defer a.store.Close()

		tasks, err := a.store.ListTasks(models.TaskFilter{Limit: 50})
		if err != nil {
			return fmt.Errorf("error listing tasks: %w", err)
		}

		if len(tasks) == 0 {
			fmt.Println("No conversions found")
			return nil
		}

		fmt.Printf("📚 Conversion History (%d)\n", len(tasks))
		for i, task := range tasks {
			title := task.Title
			if title == "" {
				title = task.SourceURL
			}
			fmt.Printf("\n%d. %s\n", i+1, title)
			fmt.Printf("   Status: %s | Created: %s\n", task.Status, task.CreatedAt.Format("2006-01-02 15:04:05"))
			if task.Upload != nil && task.Upload.FilePath != "" {
				fmt.Printf("   Saved to: %s\n", task.Upload.FilePath)
			}
			if task.Error != "" {
				fmt.Printf("   Error: %s\n", task.Error)
			}
		}

		return nil
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show conversion statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := setup(false, false)
		if err != nil {
			return err
		}
		defer a.store.Close()

		stats, err := a.store.GetStats()
		if err != nil {
			return fmt.Errorf("error getting stats: %w", err)
		}

		fmt.Printf("📊 Conversion Statistics\n")
		fmt.Printf("   Total: %d\n", stats.TotalTasks)
		fmt.Printf("   Successful: %d\n", stats.SuccessfulTasks)
		fmt.Printf("   Failed: %d\n", stats.FailedTasks)
		fmt.Printf("   Today: %d\n", stats.TasksToday)
		fmt.Printf("   Batches: %d\n", stats.TotalBatches)
		fmt.Printf("   Success Rate: %.1f%%\n", stats.SuccessRate)

		return nil
	},
}

var exportCmd = &cobra.Command{
	Use:   "export [file]",
	Short: "Export conversion history (format inferred from extension)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		filePath := args[0]

		format := export.FormatCSV
		switch {
		case strings.HasSuffix(filePath, ".xlsx"):
			format = export.FormatXLSX
		case strings.HasSuffix(filePath, ".json"):
			format = export.FormatJSON
		case strings.HasSuffix(filePath, ".txt"):
			format = export.FormatTXT
		}

		exportConfig := export.ExportConfig{
			Format:   format,
			FilePath: filePath,
		}
		if err := export.ValidateConfig(exportConfig); err != nil {
			return err
		}

		a, err := setup(false, false)
		if err != nil {
			return err
		}
		defer a.store.Close()

		tasks, err := a.store.ListTasks(models.TaskFilter{})
		if err != nil {
			return fmt.Errorf("error listing tasks: %w", err)
		}

		exporter := export.NewDataExporter(exportConfig)
		if err := exporter.ExportTasks(tasks); err != nil {
			return fmt.Errorf("error exporting history: %w", err)
		}

		fmt.Printf("Exported %d tasks to %s\n", len(tasks), filePath)
		return nil
	},
}

var testWebDAVCmd = &cobra.Command{
	Use:   "test-webdav",
	Short: "Test the WebDAV server connection",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := setup(false, true)
		if err != nil {
			return err
		}
		defer a.store.Close()

		fmt.Printf("Testing WebDAV server: %s\n", a.webdavCfg.URL)

		ctx, cancel := context.WithTimeout(cmd.Context(), 15*time.Second)
		defer cancel()

		if err := a.uploader.Test(ctx, a.webdavCfg); err != nil {
			fmt.Printf("❌ Connection failed: %s\n", err)
			return nil
		}

		fmt.Println("✅ Connection successful")
		return nil
	},
}

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		configManager := config.NewManager()
		cfg, err := configManager.Load(configPath)
		if err != nil {
			return fmt.Errorf("error loading configuration: %w", err)
		}

		store, err := storage.NewSQLite(cfg.Database.Path)
		if err != nil {
			return fmt.Errorf("error initializing storage: %w", err)
		}
		defer store.Close()

		srv := server.NewServer(cfg, store)
		if err := srv.Run(); err != nil {
			return fmt.Errorf("error running server: %w", err)
		}

		return nil
	},
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Configuration management",
}

var initConfigCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration file",
	RunE: func(cmd *cobra.Command, args []string) error {
		configManager := config.NewManager()
		_, err := configManager.Load(configPath)
		if err != nil {
			return fmt.Errorf("error initializing configuration: %w", err)
		}
		fmt.Println("Configuration file created successfully")
		return nil
	},
}

var showConfigCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		configManager := config.NewManager()
		cfg, err := configManager.Load(configPath)
		if err != nil {
			return fmt.Errorf("error loading configuration: %w", err)
		}

		fmt.Printf("📋 Current Configuration\n")
		fmt.Printf("   Server: %s:%d\n", cfg.Server.Host, cfg.Server.Port)
		fmt.Printf("   Database Path: %s\n", cfg.Database.Path)
		fmt.Printf("   Log Level: %s\n", cfg.Log.Level)
		fmt.Printf("   Task Delay: %ds\n", cfg.Convert.TaskDelay)
		fmt.Printf("   Max Retries: %d\n", cfg.Convert.MaxRetries)
		fmt.Printf("   Proxy Enabled: %v\n", cfg.Proxy.Enabled)

		fmt.Printf("   Parsers (%d):\n", len(cfg.Parsers))
		for _, p := range cfg.Parsers {
			marker := " "
			if p.IsDefault {
				marker = "*"
			}
			fmt.Printf("    %s %s (%s %s)\n", marker, p.Name, p.Method(), p.APIURL)
		}

		fmt.Printf("   WebDAV Servers (%d):\n", len(cfg.WebDAV))
		for _, w := range cfg.WebDAV {
			marker := " "
			if w.IsDefault {
				marker = "*"
			}
			fmt.Printf("    %s %s (%s)\n", marker, w.Name, w.URL)
		}

		return nil
	},
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Configuration file path")
	rootCmd.PersistentFlags().StringVarP(&parserName, "parser", "p", "", "Parser API to use (name or ID)")
	rootCmd.PersistentFlags().StringVarP(&webdavName, "webdav", "w", "", "WebDAV server to use (name or ID)")
	rootCmd.PersistentFlags().StringVarP(&folderPath, "folder", "d", "", "Target folder on the WebDAV server")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")

	// Add commands
	rootCmd.AddCommand(convertCmd)
	rootCmd.AddCommand(batchCmd)
	rootCmd.AddCommand(parseCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(testWebDAVCmd)
	rootCmd.AddCommand(serverCmd)
	rootCmd.AddCommand(configCmd)

	// Config subcommands
	configCmd.AddCommand(initConfigCmd)
	configCmd.AddCommand(showConfigCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
