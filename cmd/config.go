package cmd

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage dbaccel configuration",
}

var configInitCmd = &cobra.Command{
	Use:          "init",
	Short:        "Create config file interactively",
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		home, err := os.UserHomeDir()
		if err != nil {
			return err
		}

		configDir := filepath.Join(home, ".dbaccel")
		configPath := filepath.Join(configDir, "config.yaml")

		reader := bufio.NewReader(os.Stdin)

		// Check if config already exists
		if _, err := os.Stat(configPath); err == nil {
			fmt.Printf("Config file already exists at %s\n", configPath)
			fmt.Print("Overwrite? [y/N]: ")
			answer, _ := reader.ReadString('\n')
			if strings.TrimSpace(strings.ToLower(answer)) != "y" {
				fmt.Println("Aborted.")
				return nil
			}
		}

		if err := os.MkdirAll(configDir, 0700); err != nil {
			return fmt.Errorf("creating config directory: %w", err)
		}

		fmt.Println("dbaccel configuration setup")
		fmt.Println("────────────────────────────")
		fmt.Println()

		fmt.Print("Server host [127.0.0.1]: ")
		host, _ := reader.ReadString('\n')
		host = strings.TrimSpace(host)
		if host == "" {
			host = "127.0.0.1"
		}

		fmt.Print("Server port [3306]: ")
		port, _ := reader.ReadString('\n')
		port = strings.TrimSpace(port)
		if port == "" {
			port = "3306"
		}

		fmt.Print("Server user [dbaccel]: ")
		user, _ := reader.ReadString('\n')
		user = strings.TrimSpace(user)
		if user == "" {
			user = "dbaccel"
		}

		fmt.Print("Default working directory [/tmp]: ")
		directory, _ := reader.ReadString('\n')
		directory = strings.TrimSpace(directory)
		if directory == "" {
			directory = "/tmp"
		}

		fmt.Print("Default concurrent jobs [4]: ")
		jobs, _ := reader.ReadString('\n')
		jobs = strings.TrimSpace(jobs)
		if jobs == "" {
			jobs = "4"
		}

		var config strings.Builder
		config.WriteString("# dbaccel configuration\n\n")

		config.WriteString("connections:\n")
		config.WriteString("  default:\n")
		config.WriteString(fmt.Sprintf("    host: %s\n", host))
		config.WriteString(fmt.Sprintf("    port: %s\n", port))
		config.WriteString(fmt.Sprintf("    user: %s\n", user))
		config.WriteString("    # password: omitted for security, set MYSQL_PWD instead\n")

		config.WriteString("\ndefaults:\n")
		config.WriteString(fmt.Sprintf("  directory: %s\n", directory))
		config.WriteString(fmt.Sprintf("  jobs: %s\n", jobs))

		if err := os.WriteFile(configPath, []byte(config.String()), 0600); err != nil {
			return fmt.Errorf("writing config: %w", err)
		}

		fmt.Printf("\n✅ Config written to %s\n", configPath)

		if user != "root" {
			fmt.Println("\nRecommended grants for a dedicated dbaccel user:")
			fmt.Println()
			fmt.Printf("  CREATE USER '%s'@'%%' IDENTIFIED BY '<password>';\n", user)
			fmt.Printf("  GRANT SELECT ON *.* TO '%s'@'%%';\n", user)
			fmt.Printf("  GRANT PROCESS, RELOAD ON *.* TO '%s'@'%%';\n", user)
			fmt.Printf("  GRANT LOCK TABLES ON `%%`.* TO '%s'@'%%';\n", user)
			fmt.Println()
		}

		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		configFile := viper.ConfigFileUsed()
		if configFile == "" {
			fmt.Fprintln(out, "No config file found.")
			fmt.Fprintln(out, "Run 'dbaccel config init' to create one.")
			return nil
		}

		fmt.Fprintf(out, "Config file: %s\n\n", configFile)

		data, err := os.ReadFile(configFile)
		if err != nil {
			return fmt.Errorf("reading config: %w", err)
		}

		fmt.Fprintln(out, string(data))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
}
