package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/vaultops/callguard/internal/registry"
)

var (
	initDir   string
	initForce bool
)

func init() {
	initCmd.Flags().StringVar(&initDir, "dir", "", "Config directory (default ~/.callguard)")
	initCmd.Flags().BoolVar(&initForce, "force", false, "Overwrite an existing policy file")
	rootCmd.AddCommand(initCmd)
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Bootstrap callguard configuration",
	Long: `Creates the config directory and writes a commented starter policy.

The starter policy is fail-closed: no governance principal, no
whitelist entries, every call denied. Fill it in before serving.`,
	RunE: runInit,
}

func runInit(cmd *cobra.Command, args []string) error {
	configDir := initDir
	if configDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("resolve home directory: %w", err)
		}
		configDir = filepath.Join(home, ".callguard")
	}

	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	policyPath := filepath.Join(configDir, "policy.yaml")
	if _, err := os.Stat(policyPath); err == nil && !initForce {
		fmt.Printf("Exists, skipped: %s (use --force to overwrite)\n", policyPath)
		return nil
	}

	if err := os.WriteFile(policyPath, []byte(registry.DefaultConfigYAML()), 0o644); err != nil {
		return fmt.Errorf("write policy: %w", err)
	}

	fmt.Printf("Created: %s\n", policyPath)
	return nil
}
