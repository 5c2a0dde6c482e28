package main

import (
	"fmt"
	"log"
	"os"

	"github.com/courtside-ai/courtside/internal/chat"
	"github.com/courtside-ai/courtside/internal/config"
	"github.com/courtside-ai/courtside/internal/llm"
	"github.com/courtside-ai/courtside/internal/llm/openai"
	"github.com/courtside-ai/courtside/internal/prompt"
	"github.com/courtside-ai/courtside/internal/scraper"
	"github.com/courtside-ai/courtside/internal/token"
	"github.com/courtside-ai/courtside/internal/web"
)

func main() {
	// Load .env file
	config.LoadEnv()

	fmt.Println(`   ██████╗ ██████╗ ██╗   ██╗██████╗ ████████╗███████╗██╗██████╗ ███████╗`)
	fmt.Println(`  ██╔════╝██╔═══██╗██║   ██║██╔══██╗╚══██╔══╝██╔════╝██║██╔══██╗██╔════╝`)
	fmt.Println(`  ██║     ██║   ██║██║   ██║██████╔╝   ██║   ███████╗██║██║  ██║█████╗  `)
	fmt.Println(`  ██║     ██║   ██║██║   ██║██╔══██╗   ██║   ╚════██║██║██║  ██║██╔══╝  `)
	fmt.Println(`  ╚██████╗╚██████╔╝╚██████╔╝██║  ██║   ██║   ███████║██║██████╔╝███████╗`)
	fmt.Println(`   ╚═════╝ ╚═════╝  ╚═════╝ ╚═╝  ╚═╝   ╚═╝   ╚══════╝╚═╝╚═════╝ ╚══════╝`)
	fmt.Println(`          ╔═══ Sports chat with scraped context ═══╗`)

	settings, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		log.Fatalf("❌ Failed to load config: %v", err)
	}

	llmClient, err := openai.NewClientFromEnv()
	if err != nil {
		log.Fatalf("❌ Failed to initialize LLM client: %v", err)
	}
	model := llmClient.GetConfig().Model
	fmt.Printf("🤖 LLM: %s @ %s\n", model, llmClient.GetConfig().BaseURL)

	// Exact counting needs the encoding's BPE data; fall back to the
	// heuristic estimator when it cannot be loaded (e.g. no network for the
	// first tiktoken fetch).
	var counter token.Counter
	encodingName := settings.Context.Encoding
	if tk, err := token.NewTiktoken(settings.Context.Encoding); err != nil {
		log.Printf("⚠️ Tiktoken %s unavailable (%v), using heuristic estimator", settings.Context.Encoding, err)
		counter = token.Estimator{}
		encodingName = "heuristic"
	} else {
		counter = tk
	}
	fmt.Printf("🔢 Token counter: %s (budget=%d, protected head=%d)\n",
		encodingName, settings.Context.TokenBudget, settings.Context.ProtectedHead)

	systemPrompt := prompt.Load(settings.Prompt.Path)

	registry := chat.NewRegistry(chat.Config{
		SystemPrompt:  systemPrompt,
		TokenBudget:   settings.Context.TokenBudget,
		ProtectedHead: settings.Context.ProtectedHead,
		Counter:       counter,
	}, settings.IdleTTL())
	defer registry.Close()
	fmt.Printf("💬 Conversations: idle TTL %v\n", settings.IdleTTL())

	store, err := scraper.NewStore(settings.Scraper.StorageDir)
	if err != nil {
		log.Fatalf("❌ Failed to open scrape storage: %v", err)
	}
	var cleaner llm.Provider
	if settings.Scraper.LLMClean {
		cleaner = llmClient
	}
	scrapeService := scraper.NewService(store, cleaner, settings.ScrapeTimeout(), settings.Scraper.MaxContentLength)
	fmt.Printf("🕸️  Scraper: storage=%s timeout=%v llm_clean=%v\n",
		settings.Scraper.StorageDir, settings.ScrapeTimeout(), settings.Scraper.LLMClean)

	chatHandler := web.NewChatHandler(registry, llmClient, scrapeService)
	scraperHandler := web.NewScraperHandler(scrapeService)
	health := web.NewHealthHandler(web.HealthInfo{
		LLMModel:          model,
		TokenEncoding:     encodingName,
		ScraperStorageDir: settings.Scraper.StorageDir,
		ConversationCount: registry.Count,
	})

	server := web.NewServer(chatHandler, scraperHandler, health, settings.Server.Port)
	fmt.Printf("🚀 Listening on :%d\n", settings.Server.Port)
	if err := server.Start(); err != nil {
		log.Fatalf("❌ Server error: %v", err)
	}
}
