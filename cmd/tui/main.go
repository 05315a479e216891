package main

import (
	"fmt"
	"log"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"media-saver/internal/config"
	"media-saver/internal/convert"
	"media-saver/internal/httpx"
	"media-saver/internal/parser"
	"media-saver/internal/storage"
	"media-saver/internal/tui"
	"media-saver/internal/webdav"
)

func main() {
	// Load configuration
	configManager := config.NewManager()
	cfg, err := configManager.Load("")
	if err != nil {
		log.Fatal(err)
	}

	parserCfg, ok := cfg.DefaultParser()
	if !ok {
		fmt.Fprintln(os.Stderr, "No parser API configured, edit config.yaml first")
		os.Exit(1)
	}
	webdavCfg, ok := cfg.DefaultWebDAV()
	if !ok {
		fmt.Fprintln(os.Stderr, "No WebDAV server configured, edit config.yaml first")
		os.Exit(1)
	}

	// Initialize storage
	store, err := storage.NewSQLite(cfg.Database.Path)
	if err != nil {
		log.Fatal(err)
	}
	defer store.Close()

	// Wire the conversion pipeline
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
	orchestrator.SetFolderPath(cfg.Convert.FolderPath)

	// Initialize the TUI application
	model := tui.InitialModel(orchestrator, store, parserCfg, webdavCfg)

	// Create a new Bubble Tea program
	p := tea.NewProgram(model, tea.WithAltScreen())

	// Run the program
	if _, err := p.Run(); err != nil {
		log.Fatal(err)
	}
}
