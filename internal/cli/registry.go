package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vaultops/callguard/internal/model"
	"github.com/vaultops/callguard/internal/registry"
)

var (
	regPolicy string
	regCaller string
	regKind   string
	regKey    string
)

func init() {
	rootCmd.AddCommand(registryCmd)
	registryCmd.PersistentFlags().StringVar(&regPolicy, "policy", "", "Path to policy YAML (default ~/.callguard/policy.yaml)")

	registryCmd.AddCommand(registryShowCmd)

	for _, c := range []*cobra.Command{registryInsertCmd, registryRemoveCmd} {
		c.Flags().StringVar(&regCaller, "caller", "", "Mutation caller address; must be the governance principal (required)")
		c.Flags().StringVar(&regKind, "kind", "", "Whitelist kind, e.g. sender, asset, withdraw_destination, call_site (required)")
		c.Flags().StringVar(&regKey, "key", "", "Entry key: an address, or target:selector for call_site (required)")
		c.MarkFlagRequired("caller")
		c.MarkFlagRequired("kind")
		c.MarkFlagRequired("key")
		registryCmd.AddCommand(c)
	}
}

var registryCmd = &cobra.Command{
	Use:   "registry",
	Short: "Inspect and mutate the whitelist registry policy file",
}

var registryShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the loaded policy as JSON",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, hash, err := registry.LoadWithHash(regPolicy)
		if err != nil {
			return err
		}
		out, _ := json.MarshalIndent(map[string]any{
			"hash":   hash,
			"policy": cfg,
		}, "", "  ")
		fmt.Println(string(out))
		return nil
	},
}

var registryInsertCmd = &cobra.Command{
	Use:   "insert",
	Short: "Insert a whitelist entry into the policy file",
	RunE:  func(cmd *cobra.Command, args []string) error { return mutatePolicy(true) },
}

var registryRemoveCmd = &cobra.Command{
	Use:   "remove",
	Short: "Remove a whitelist entry from the policy file",
	RunE:  func(cmd *cobra.Command, args []string) error { return mutatePolicy(false) },
}

// mutatePolicy applies one insert or remove through a built registry so
// the governance gate and key parsing match the service exactly, then
// writes the mutated policy back to disk.
func mutatePolicy(insert bool) error {
	caller, err := model.ParseAddress(regCaller)
	if err != nil {
		return fmt.Errorf("invalid --caller: %w", err)
	}

	cfg, err := registry.Load(regPolicy)
	if err != nil {
		return err
	}
	reg, err := cfg.Build()
	if err != nil {
		return err
	}

	kind := registry.Kind(strings.TrimSpace(regKind))
	if insert {
		err = reg.Insert(caller, kind, regKey, "cli insert")
	} else {
		err = reg.Remove(caller, kind, regKey, "cli remove")
	}
	if err != nil {
		return err
	}

	if err := cfg.Apply(insert, kind, regKey); err != nil {
		return err
	}
	if err := cfg.Save(registry.ResolvePath(regPolicy)); err != nil {
		return err
	}

	verb := "Removed"
	if insert {
		verb = "Inserted"
	}
	fmt.Printf("%s %s %q\n", verb, kind, regKey)
	return nil
}
