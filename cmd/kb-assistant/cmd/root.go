package cmd

import (
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/mfenderov/kb-assistant/internal/config"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile string
	verbose bool
	cfg     config.Config
)

// GetConfig returns the loaded configuration.
func GetConfig() config.Config {
	return cfg
}

var rootCmd = &cobra.Command{
	Use:   "kb-assistant",
	Short: "KB-Assistant: a tool-using chat assistant over a product knowledge base",
	Long: `KB-Assistant scrapes a product page, extracts and chunks its text, embeds
the chunks into a vector store and answers questions through a tool-calling
chat model.

Commands:
  serve    Ingest the knowledge base once, then serve the chat API
  ingest   Run knowledge-base ingestion only
  search   Query the knowledge base
  extract  Print the chunks (or Markdown) extracted from a page
  mcp      Expose the assistant tools over MCP (stdio)`,
	SilenceUsage: true,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig, initLogger)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")
}

func initLogger() {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}

	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	slog.SetDefault(slog.New(handler))
}

// envBindings maps nested config keys to their KBA_* variables.
var envBindings = []string{
	"source.url",
	"extraction.chunk_strategy",
	"extraction.chunk_size",
	"extraction.fallback_on_empty",
	"embeddings.provider",
	"embeddings.base_url",
	"embeddings.model",
	"embeddings.api_key",
	"vectorstore.backend",
	"vectorstore.table",
	"vectorstore.dimension",
	"vectorstore.postgres.dsn",
	"vectorstore.sqlite.path",
	"vectorstore.elasticsearch.username",
	"vectorstore.elasticsearch.password",
	"vectorstore.redis.addr",
	"vectorstore.redis.password",
	"vectorstore.redis.db",
	"retrieval.max_results",
	"retrieval.min_score",
	"llm.base_url",
	"llm.model",
	"llm.api_key",
	"llm.temperature",
	"llm.max_steps",
	"countries.base_url",
	"weather.url",
	"weather.units",
	"server.addr",
	"mcp.name",
	"mcp.version",
}

func initConfig() {
	// .env is optional; real environment variables take precedence.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		slog.Warn("failed to load .env", "error", err)
	}

	// Start with defaults
	cfg = config.Defaults()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath("./config")
		viper.AddConfigPath("/etc/kb-assistant")
		viper.AddConfigPath(".")
	}

	// KBA_VECTORSTORE_POSTGRES_DSN -> vectorstore.postgres.dsn
	viper.SetEnvPrefix("KBA")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	for _, key := range envBindings {
		viper.BindEnv(key, "KBA_"+strings.ToUpper(strings.ReplaceAll(key, ".", "_")))
	}

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			slog.Warn("config file error", "error", err)
		}
	}

	// Unmarshal into struct (merges config file with defaults)
	if err := viper.Unmarshal(&cfg); err != nil {
		slog.Warn("failed to parse config", "error", err)
	}

	// Addresses as comma-separated string from env
	if addrs := os.Getenv("KBA_VECTORSTORE_ELASTICSEARCH_ADDRESSES"); addrs != "" {
		cfg.VectorStore.Elasticsearch.Addresses = strings.Split(addrs, ",")
	}
}
