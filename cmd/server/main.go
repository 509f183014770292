package main

import (
	"log"
	"os"

	"github.com/mark3labs/mcp-go/server"

	"github.com/dmeyer/bridgemail/internal/batch"
	"github.com/dmeyer/bridgemail/internal/config"
	"github.com/dmeyer/bridgemail/internal/imap"
	"github.com/dmeyer/bridgemail/internal/junk"
	"github.com/dmeyer/bridgemail/internal/mailbox"
	"github.com/dmeyer/bridgemail/internal/rules"
	"github.com/dmeyer/bridgemail/internal/sender"
	"github.com/dmeyer/bridgemail/internal/tools"
	"github.com/dmeyer/bridgemail/internal/unsub"
)

func main() {
	// MCP talks JSON-RPC on stdout, so all logging goes to stderr.
	log.SetOutput(os.Stderr)

	cfg, err := config.NewConfig()
	if err != nil {
		log.Fatalf("Configuration error: %v", err)
	}

	repo, err := rules.NewSQLiteRepository(cfg.RulesDBPath)
	if err != nil {
		log.Fatalf("Failed to open rule storage: %v", err)
	}
	defer func() {
		if err := repo.Close(); err != nil {
			log.Printf("Warning: failed to close rule storage: %v", err)
		}
	}()

	sessions := imap.NewManager(cfg.IMAPAddress(), cfg.IMAPUseTLS, cfg.EmailAddress, cfg.Password)
	executor := batch.NewExecutor(cfg.ChunkSize, cfg.ChunkDelay, cfg.TrashFolder)
	mailSender := sender.New(cfg.SMTPAddress(), cfg.EmailAddress, cfg.Password, cfg.EmailAddress)

	svc := mailbox.NewService(
		sessions,
		executor,
		junk.NewClassifier(),
		unsub.NewResolver(mailSender),
		rules.NewEngine(repo),
		mailSender,
		cfg.SpamFolder,
	)
	defer svc.Close()

	mcpServer := server.NewMCPServer(
		"bridgemail",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)
	tools.Register(mcpServer, svc)

	log.Printf("Starting bridgemail MCP server (IMAP %s, SMTP %s)", cfg.IMAPAddress(), cfg.SMTPAddress())
	if err := server.ServeStdio(mcpServer); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}
