package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ppiankov/textaudit/internal/model"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Version is set at build time
var Version = "v0.1.0"

var (
	cfgFile string
	verbose bool
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "textaudit",
	Short: "textaudit - textbook submission dossier review",
	Long: `textaudit reviews textbook submission dossiers.

Each dossier is a folder holding an application form and two supporting
attachments. The form's declared values (title, ISBN, editor, publisher,
edition and printing dates) are checked against what the attachments show,
and one pass/fail row per dossier is appended to the review report.`,
	SilenceErrors: true,
	SilenceUsage:  true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("textaudit %s\n", Version)
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $HOME/.textaudit/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	_ = viper.BindPFlag("output.verbose", rootCmd.PersistentFlags().Lookup("verbose"))

	rootCmd.AddCommand(versionCmd)
}

// envBindings maps config keys to the environment names the tool has always read
var envBindings = map[string][]string{
	"textin.app_id":      {"TEXTIN_APP_ID"},
	"textin.secret_code": {"TEXTIN_SECRET_CODE"},
	"llm.api_key":        {"OPENAI_API_KEY", "DASHSCOPE_API_KEY"},
	"llm.base_url":       {"OPENAI_API_BASE"},
	"llm.model":          {"MODEL_NAME"},
}

// initConfig reads in config file and ENV variables
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error finding home directory: %v\n", err)
			return
		}

		viper.AddConfigPath(filepath.Join(home, ".textaudit"))
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	// TEXTAUDIT_STORE_PATH overrides store.path, and so on
	viper.SetEnvPrefix("TEXTAUDIT")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
	for key, names := range envBindings {
		prefixed := "TEXTAUDIT_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		_ = viper.BindEnv(append([]string{key, prefixed}, names...)...)
	}

	if err := viper.ReadInConfig(); err == nil && verbose {
		fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
	}
}

// loadConfig layers the config file and environment over the defaults
func loadConfig() (*model.Config, error) {
	cfg := model.DefaultConfig()
	for key, value := range flatten("", defaultsMap(cfg)) {
		viper.SetDefault(key, value)
	}
	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}
