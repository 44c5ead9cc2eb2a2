package cli

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vaultops/callguard/internal/guard"
	"github.com/vaultops/callguard/internal/model"
	"github.com/vaultops/callguard/internal/registry"
)

var (
	checkPolicy  string
	checkSender  string
	checkTarget  string
	checkPayload string
	checkFormat  string
)

func init() {
	rootCmd.AddCommand(checkCmd)
	checkCmd.Flags().StringVar(&checkPolicy, "policy", "", "Path to policy YAML (default ~/.callguard/policy.yaml)")
	checkCmd.Flags().StringVar(&checkSender, "sender", "", "Proposed call sender address (required)")
	checkCmd.Flags().StringVar(&checkTarget, "target", "", "Proposed call target address (required)")
	checkCmd.Flags().StringVar(&checkPayload, "payload", "", "0x-prefixed calldata (required)")
	checkCmd.Flags().StringVarP(&checkFormat, "format", "f", "text", "Output format (text|json)")
	checkCmd.MarkFlagRequired("sender")
	checkCmd.MarkFlagRequired("target")
	checkCmd.MarkFlagRequired("payload")
}

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Validate one proposed call against a policy file",
	Long: "Loads the policy, runs the proposed call through the guard, and\n" +
		"prints the decision.\n\n" +
		"Exit code 0 if the call is admitted, 1 if denied.\n" +
		"Use in CI or pre-flight hooks to gate operator transactions.",
	RunE: runCheck,
}

func runCheck(cmd *cobra.Command, args []string) error {
	sender, err := model.ParseAddress(checkSender)
	if err != nil {
		return fmt.Errorf("invalid --sender: %w", err)
	}
	target, err := model.ParseAddress(checkTarget)
	if err != nil {
		return fmt.Errorf("invalid --target: %w", err)
	}
	payload, err := hex.DecodeString(strings.TrimPrefix(checkPayload, "0x"))
	if err != nil {
		return fmt.Errorf("invalid --payload: %w", err)
	}

	cfg, err := registry.Load(checkPolicy)
	if err != nil {
		return err
	}
	reg, err := cfg.Build()
	if err != nil {
		return err
	}

	res := guard.Validate(reg.Snapshot(), sender, target, payload)

	switch checkFormat {
	case "json":
		out, _ := json.MarshalIndent(res, "", "  ")
		fmt.Println(string(out))
	default:
		if res.Ok() {
			fmt.Println("ADMIT")
		} else {
			fmt.Printf("DENY  %s: %s\n", res.Kind, res.Reason)
		}
	}

	if !res.Ok() {
		os.Exit(1)
	}
	return nil
}
