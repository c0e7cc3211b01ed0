package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ppiankov/claimreview/internal/model"
)

// Version is set at build time with -ldflags "-X ...cli.Version=..."
var Version = "v0.1.0"

const envPrefix = "CLAIMREVIEW"

var (
	cfgFile  string
	verbose  bool
	noCache  bool
	noFooter bool

	llmEnabled  bool
	llmProvider string
	llmModel    string
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "claimreview",
	Short: "claimreview - review and submit security-deposit claims",
	Long: `claimreview is the review stage of claim adjudication.

It uploads a claim's documents to the extraction service, lets a reviewer
confirm and complete the extracted data, and submits the result to the
evaluation service. The decision is shown as a read-only receipt.

claimreview never decides coverage itself; the evaluation service does.`,
	SilenceErrors: true,
	SilenceUsage:  true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "claimreview %s\n", Version)
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default: $HOME/.claimreview/config.yaml)")
	flags.BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	// Service flags
	flags.String("base-url", "", "base URL of the claims services (e.g. http://localhost:8080/api)")
	flags.Duration("api-timeout", 0, "timeout for a single service request")
	flags.String("ua", "", "HTTP User-Agent")
	flags.Bool("insecure", false, "skip TLS certificate verification (use for self-signed certs)")
	flags.String("http-proxy", "", "HTTP proxy URL (overrides HTTP_PROXY env var)")
	flags.String("https-proxy", "", "HTTPS proxy URL (overrides HTTPS_PROXY env var)")
	flags.String("no-proxy", "", "hosts to reach directly (overrides NO_PROXY env var)")
	flags.BoolVar(&noCache, "no-cache", false, "disable the extraction cache")
	flags.BoolVar(&noFooter, "no-footer", false, "disable footer in receipts")

	// LLM flags
	flags.BoolVar(&llmEnabled, "llm", false, "generate a plain-language narrative of the receipt")
	flags.StringVar(&llmProvider, "llm-provider", "openai", "LLM provider (openai, ollama)")
	flags.StringVar(&llmModel, "llm-model", "", "LLM model name (default from config)")

	_ = viper.BindPFlag("output.verbose", flags.Lookup("verbose"))
	_ = viper.BindPFlag("api.base_url", flags.Lookup("base-url"))
	_ = viper.BindPFlag("api.timeout", flags.Lookup("api-timeout"))
	_ = viper.BindPFlag("api.user_agent", flags.Lookup("ua"))
	_ = viper.BindPFlag("api.insecure_tls", flags.Lookup("insecure"))
	_ = viper.BindPFlag("api.http_proxy", flags.Lookup("http-proxy"))
	_ = viper.BindPFlag("api.https_proxy", flags.Lookup("https-proxy"))
	_ = viper.BindPFlag("api.no_proxy", flags.Lookup("no-proxy"))

	rootCmd.AddCommand(versionCmd)
}

// initConfig reads in config file and ENV variables
func initConfig() {
	registerDefaults(viper.GetViper(), model.DefaultConfig())

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		dir, err := configDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error finding home directory: %v\n", err)
		} else {
			viper.AddConfigPath(dir)
			viper.SetConfigType("yaml")
			viper.SetConfigName("config")
		}
	}

	bindEnv(viper.GetViper())

	if err := viper.ReadInConfig(); err == nil && verbose {
		fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
	}
}

// bindEnv maps config keys to CLAIMREVIEW_* variables, e.g.
// api.base_url to CLAIMREVIEW_API_BASE_URL
func bindEnv(v *viper.Viper) {
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

// registerDefaults makes every config key known to viper so that
// environment variables are picked up by Unmarshal
func registerDefaults(v *viper.Viper, d *model.Config) {
	v.SetDefault("api.base_url", d.API.BaseURL)
	v.SetDefault("api.timeout", d.API.Timeout)
	v.SetDefault("api.user_agent", d.API.UserAgent)
	v.SetDefault("api.max_body_bytes", d.API.MaxBodyBytes)
	v.SetDefault("api.insecure_tls", d.API.InsecureTLS)
	v.SetDefault("api.http_proxy", d.API.HTTPProxy)
	v.SetDefault("api.https_proxy", d.API.HTTPSProxy)
	v.SetDefault("api.no_proxy", d.API.NoProxy)

	v.SetDefault("cache.enabled", d.Cache.Enabled)
	v.SetDefault("cache.ttl", d.Cache.TTL)

	v.SetDefault("concurrency.workers", d.Concurrency.Workers)

	v.SetDefault("rate_limiting.requests_per_second", d.RateLimiting.RequestsPerSecond)
	v.SetDefault("rate_limiting.burst_size", d.RateLimiting.BurstSize)

	v.SetDefault("llm.provider", d.LLM.Provider)
	v.SetDefault("llm.model", d.LLM.Model)
	v.SetDefault("llm.api_key", d.LLM.APIKey)
	v.SetDefault("llm.base_url", d.LLM.BaseURL)
	v.SetDefault("llm.timeout", d.LLM.Timeout)
	v.SetDefault("llm.max_tokens", d.LLM.MaxTokens)
	v.SetDefault("llm.strict_amounts", d.LLM.StrictAmounts)

	v.SetDefault("output.verbose", d.Output.Verbose)
	v.SetDefault("output.include_footer", d.Output.IncludeFooter)
}

// loadConfig resolves flags, env, config file and defaults into a Config
func loadConfig() (*model.Config, error) {
	cfg := model.DefaultConfig()
	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if noCache {
		cfg.Cache.Enabled = false
	}
	if noFooter {
		cfg.Output.IncludeFooter = false
	}

	if llmEnabled {
		cfg.LLM.Provider = llmProvider
		if llmModel != "" {
			cfg.LLM.Model = llmModel
		}

		switch strings.ToLower(cfg.LLM.Provider) {
		case "openai":
			if cfg.LLM.APIKey == "" {
				cfg.LLM.APIKey = os.Getenv("OPENAI_API_KEY")
			}
			if cfg.LLM.APIKey == "" {
				return nil, fmt.Errorf("OPENAI_API_KEY environment variable not set")
			}
		case "ollama":
			if baseURL := os.Getenv("OLLAMA_BASE_URL"); baseURL != "" && cfg.LLM.BaseURL == "" {
				cfg.LLM.BaseURL = strings.TrimRight(baseURL, "/") + "/v1"
			}
		}
	} else {
		cfg.LLM.Provider = ""
	}

	return cfg, nil
}

func configDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".claimreview"), nil
}

// newLogger logs session transitions to stderr. Without --verbose only
// warnings are shown so the review surface stays readable.
func newLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}
