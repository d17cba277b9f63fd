package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/lpwatch/lpwatch/internal/advisor"
	"github.com/lpwatch/lpwatch/internal/agent"
	"github.com/lpwatch/lpwatch/internal/config"
	"github.com/lpwatch/lpwatch/internal/datafetcher"
	"github.com/lpwatch/lpwatch/internal/llm"
	"github.com/lpwatch/lpwatch/internal/logger"
	"github.com/lpwatch/lpwatch/internal/notifier"
	"github.com/lpwatch/lpwatch/internal/state"
	"github.com/lpwatch/lpwatch/internal/web"

	"github.com/joho/godotenv"
	"github.com/olekukonko/tablewriter"
	"github.com/rs/zerolog/log"
)

// main is the entry point for the lpwatch daemon and its operator commands.
func main() {
	if err := godotenv.Load(); err != nil {
		log.Warn().Msg("Warning: .env file not found. Relying on OS environment variables.")
	}

	logger.Initialize(os.Getenv("LOG_LEVEL"))

	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "add-wallet":
			runAddWallet(os.Args[2:])
			return
		case "remove-wallet":
			runRemoveWallet(os.Args[2:])
			return
		case "audit":
			runAudit()
			return
		default:
			log.Fatal().Str("command", os.Args[1]).Msg("Unknown command. Available: add-wallet, remove-wallet, audit")
		}
	}

	runDaemon()
}

// runDaemon wires up all collaborators and starts the scan loop.
func runDaemon() {
	if err := config.LoadConfig(); err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log.Info().Msg("LP position monitor starting...")

	initDatabase()
	defer state.CloseDB()

	// --- Start Web Server ---
	webServer := web.NewWebServer(config.WebPort)
	go func() {
		log.Info().Str("port", config.WebPort).Str("url", "http://localhost:"+config.WebPort).Msg("Starting audit API server")
		if err := webServer.Start(); err != nil {
			log.Error().Err(err).Msg("Web server failed to start")
		}
	}()

	// --- External Collaborators ---
	market, err := datafetcher.NewSubgraphClient(config.SubgraphQueryURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize subgraph client")
	}
	log.Info().Str("endpoint", config.SubgraphQueryURL).Msg("Subgraph client initialized")

	model := llm.NewClient(config.LLMEndpoint)
	probeCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	if err := model.Health(probeCtx); err != nil {
		log.Warn().Err(err).Msg("Model endpoint is not healthy. Recommendations will degrade to GENERATION_ERROR until it recovers.")
	} else {
		log.Info().Str("endpoint", config.LLMEndpoint).Msg("Model endpoint is healthy")
	}
	cancel()

	var sink notifier.Notifier
	if config.TelegramBotToken != "" && config.TelegramChatID != "" {
		tg, err := notifier.NewTelegram(config.TelegramBotToken, config.TelegramChatID)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize Telegram notifier")
		}
		sink = tg
		log.Info().Msg("Telegram notifications enabled")
	} else {
		sink = notifier.NewConsole()
		log.Warn().Msg("Telegram credentials not set, alerts will be printed to stdout")
	}

	// --- Create Agent Instance with Dependency Injection ---
	agentInstance, err := agent.NewAgent(agent.Config{
		Store:      mustStore(),
		MarketData: market,
		Advisor:    advisor.New(model),
		Notifier:   sink,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create agent instance")
	}

	// --- Start Main Loop ---
	log.Info().Str("interval", config.ScanInterval.String()).Msg("Starting scan loop")
	agentInstance.RunLoop(context.Background(), config.ScanInterval)
}

// runAddWallet registers a wallet address for scanning.
func runAddWallet(args []string) {
	if len(args) != 1 {
		log.Fatal().Msg("Usage: lpwatch add-wallet <address>")
	}

	initDatabase()
	defer state.CloseDB()

	if err := state.AddWallet(args[0]); err != nil {
		log.Fatal().Err(err).Msg("Failed to add wallet")
	}
}

// runRemoveWallet deactivates a wallet without deleting its history.
func runRemoveWallet(args []string) {
	if len(args) != 1 {
		log.Fatal().Msg("Usage: lpwatch remove-wallet <address>")
	}

	initDatabase()
	defer state.CloseDB()

	if err := state.DeactivateWallet(args[0]); err != nil {
		log.Fatal().Err(err).Msg("Failed to remove wallet")
	}
}

// runAudit prints the most recent recommendations as a console table.
func runAudit() {
	initDatabase()
	defer state.CloseDB()

	recommendations, err := state.GetRecentRecommendations(20)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load recent recommendations")
	}
	if len(recommendations) == 0 {
		fmt.Println("No recommendations recorded yet.")
		return
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.Header("Time", "Pool", "Token ID", "Wallet", "In Range", "IL %", "Fees USD", "APR %", "Action")

	for _, rec := range recommendations {
		inRange := "yes"
		if !rec.IsInRange {
			inRange = "no"
		}
		table.Append(
			rec.GeneratedAt.Format("2006-01-02 15:04"),
			rec.Token0Symbol+"/"+rec.Token1Symbol,
			strconv.FormatInt(rec.TokenID, 10),
			rec.WalletAddress,
			inRange,
			fmt.Sprintf("%.2f", rec.ImpermanentLossPercent),
			fmt.Sprintf("%.2f", rec.UnclaimedFeesUSD),
			fmt.Sprintf("%.2f", rec.RealAPRPercent),
			rec.Action,
		)
	}

	table.Render()
}

// initDatabase connects to PostgreSQL and applies the schema.
func initDatabase() {
	dbCfg := state.DBConfig{
		Host: os.Getenv("DB_HOST"), Port: mustAtoi(os.Getenv("DB_PORT"), 5432),
		User: os.Getenv("DB_USER"), Password: os.Getenv("DB_PASSWORD"),
		DBName: os.Getenv("DB_NAME"), SSLMode: os.Getenv("DB_SSLMODE"),
	}
	if err := state.InitDB(dbCfg); err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize database")
	}
	if err := state.EnsureSchema(); err != nil {
		log.Fatal().Err(err).Msg("Failed to ensure database schema")
	}
}

func mustStore() state.Store {
	store, err := state.NewStore()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create store")
	}
	return store
}

// Helper to convert string to int with a default value
func mustAtoi(s string, defaultValue int) int {
	i, err := strconv.Atoi(s)
	if err != nil {
		return defaultValue
	}
	return i
}
