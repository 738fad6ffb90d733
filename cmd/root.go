package cmd

import (
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"dbaccel/internal/config"
	"dbaccel/internal/mysqlconn"
	"dbaccel/internal/orchestrator"
	"dbaccel/internal/report"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "dbaccel",
	Short: "High-throughput logical dump and restore for MySQL-compatible databases",
	Long: `dbaccel dumps and restores MySQL-compatible databases as sharded,
gzip-compressed CSV, with a keyless fast path for bulk loading and a
vendor-mysqldump fallback for BLOB/TEXT-heavy tables.

Select the action with --action dump or --action restore.`,
	SilenceUsage: true,
	RunE:         runRoot,
}

// Execute is called by main.main(). It adds all child commands to the root
// command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.dbaccel/config.yaml)")
	rootCmd.PersistentFlags().StringP("host", "H", "localhost", "server host")
	rootCmd.PersistentFlags().IntP("port", "P", 3306, "server port")
	rootCmd.PersistentFlags().StringP("username", "u", "", "server username (required)")
	rootCmd.PersistentFlags().StringP("password", "p", "", "server password (falls back to MYSQL_PWD)")
	rootCmd.PersistentFlags().StringP("database", "d", "", "target database (required)")
	rootCmd.PersistentFlags().StringP("socket", "S", "", "unix socket path")
	rootCmd.PersistentFlags().String("action", "", "dump or restore (required)")
	rootCmd.PersistentFlags().IntP("jobs", "j", 4, "max concurrent tables")
	rootCmd.PersistentFlags().String("directory", "/tmp", "working directory")
	rootCmd.PersistentFlags().String("file", "", "archive to restore (required for --action restore)")
	rootCmd.PersistentFlags().Int("sample", 0, "LIMIT clause for exports (0 disables sampling)")
	rootCmd.PersistentFlags().Bool("check-count", false, "compare expected vs actual row counts")
	rootCmd.PersistentFlags().String("fallback-tables", "", "comma-separated tables to force through the vendor exporter")
	rootCmd.PersistentFlags().String("tables-string", "", "comma-separated tables to include (default: all)")
	rootCmd.PersistentFlags().Bool("accel-keys", false, "use the 3-stage DDL split on restore")
	rootCmd.PersistentFlags().Bool("skip-create-db", false, "skip stage-1 DDL on restore")
	rootCmd.PersistentFlags().String("post-schema-command", "", "shell command executed after stage-1")
	rootCmd.PersistentFlags().Bool("dry-run", false, "plan a dump without writing any data")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "show additional debug info")

	for _, name := range []string{
		"host", "port", "username", "password", "database", "socket", "action", "jobs",
		"directory", "file", "sample", "check-count", "fallback-tables",
		"tables-string", "accel-keys", "skip-create-db",
		"post-schema-command", "dry-run", "verbose",
	} {
		viper.BindPFlag(name, rootCmd.PersistentFlags().Lookup(name))
	}
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return
		}
		viper.AddConfigPath(home + "/.dbaccel")
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("DBACCEL")
	viper.AutomaticEnv()

	// Silently ignore a missing config file, it's optional.
	if err := viper.ReadInConfig(); err == nil {
		if !rootCmd.PersistentFlags().Changed("host") && viper.IsSet("connections.default.host") {
			viper.Set("host", viper.GetString("connections.default.host"))
		}
		if !rootCmd.PersistentFlags().Changed("port") && viper.IsSet("connections.default.port") {
			viper.Set("port", viper.GetInt("connections.default.port"))
		}
		if !rootCmd.PersistentFlags().Changed("username") && viper.IsSet("connections.default.user") {
			viper.Set("username", viper.GetString("connections.default.user"))
		}
		if !rootCmd.PersistentFlags().Changed("jobs") && viper.IsSet("defaults.jobs") {
			viper.Set("jobs", viper.GetInt("defaults.jobs"))
		}
		if !rootCmd.PersistentFlags().Changed("directory") && viper.IsSet("defaults.directory") {
			viper.Set("directory", viper.GetString("defaults.directory"))
		}
	}
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

// buildConfig assembles an explicit config.Config from viper, reading
// every flag into a single struct before any work begins.
func buildConfig() (config.Config, error) {
	cfg := config.Config{
		Conn: mysqlconn.ConnectionConfig{
			Host:     viper.GetString("host"),
			Port:     viper.GetInt("port"),
			User:     viper.GetString("username"),
			Password: viper.GetString("password"),
			Database: viper.GetString("database"),
			Socket:   viper.GetString("socket"),
		},
		Action:            config.Action(viper.GetString("action")),
		Jobs:              viper.GetInt("jobs"),
		Directory:         viper.GetString("directory"),
		Sample:            viper.GetInt("sample"),
		CheckCount:        viper.GetBool("check-count"),
		FallbackTables:    splitCSV(viper.GetString("fallback-tables")),
		TablesString:      splitCSV(viper.GetString("tables-string")),
		DryRun:            viper.GetBool("dry-run"),
		File:              viper.GetString("file"),
		AccelKeys:         viper.GetBool("accel-keys"),
		SkipCreateDB:      viper.GetBool("skip-create-db"),
		PostSchemaCommand: viper.GetString("post-schema-command"),
		Verbose:           viper.GetBool("verbose"),
	}

	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}

	if cfg.Action == config.ActionRestore {
		if err := validateArchivePath(cfg.File); err != nil {
			return config.Config{}, err
		}
	}

	return cfg, nil
}

func runRoot(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig()
	if err != nil {
		return err
	}

	logger := log.New(os.Stderr, "", log.LstdFlags)
	o := orchestrator.New(cfg, logger)

	var summary report.Summary
	switch cfg.Action {
	case config.ActionDump:
		summary, err = o.Dump()
	case config.ActionRestore:
		summary, err = o.Restore()
	}

	report.Render(os.Stdout, summary)
	return err
}
