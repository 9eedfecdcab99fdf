package cli

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/lucasnoah/hirefactory/internal/db"
	"github.com/lucasnoah/hirefactory/internal/policy"
)

var policyCmd = &cobra.Command{
	Use:   "policy",
	Short: "Manage and query policy documents",
}

// openPolicies opens the store and loads the policy lookup over it.
func openPolicies(cmd *cobra.Command) (*db.DB, *policy.Lookup, error) {
	cfg, err := loadValidConfig()
	if err != nil {
		return nil, nil, err
	}
	database, err := openStore(cfg)
	if err != nil {
		return nil, nil, err
	}
	lookup, err := policy.NewLookup(cmd.Context(), database, cfg.Policies.TopK)
	if err != nil {
		database.Close()
		return nil, nil, err
	}
	return database, lookup, nil
}

var policyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored policy documents",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadValidConfig()
		if err != nil {
			return err
		}
		database, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer database.Close()

		list, err := database.ListPolicies(cmd.Context())
		if err != nil {
			return err
		}
		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			return writeJSONTo(cmd.OutOrStdout(), list)
		}
		if len(list) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No policies stored. Run 'hirefactory db seed' or 'hirefactory policy add'.")
			return nil
		}
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tTYPE\tNAME\tDOC\tSIZE")
		for _, p := range list {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\n", p.PolicyID, p.PolicyType, p.PolicyName, p.DocID, len(p.Content))
		}
		return w.Flush()
	},
}

var policyQueryCmd = &cobra.Command{
	Use:   "query <text...>",
	Short: "Rank policy documents against a keyword query",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		policyType, _ := cmd.Flags().GetString("type")
		top, _ := cmd.Flags().GetInt("top")

		database, lookup, err := openPolicies(cmd)
		if err != nil {
			return err
		}
		defer database.Close()

		q := strings.Join(args, " ")
		docs := lookup.Query(q, policyType)
		if top > 0 {
			docs = lookup.QueryN(q, policyType, top)
		}
		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			return writeJSONTo(cmd.OutOrStdout(), docs)
		}
		if len(docs) == 0 {
			fmt.Fprintf(cmd.OutOrStdout(), "No policy matches %q.\n", q)
			return nil
		}
		for i, d := range docs {
			fmt.Fprintf(cmd.OutOrStdout(), "%d. %s (%s, %s)\n", i+1, d.Metadata["policy_name"], d.Metadata["policy_id"], d.Metadata["doc_id"])
			fmt.Fprintf(cmd.OutOrStdout(), "   %s\n", truncateLine(d.Content, 160))
		}
		return nil
	},
}

var policyAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Store a policy document (replaces an existing id)",
	RunE: func(cmd *cobra.Command, args []string) error {
		p := db.Policy{}
		p.PolicyID, _ = cmd.Flags().GetString("id")
		p.PolicyType, _ = cmd.Flags().GetString("type")
		p.PolicyName, _ = cmd.Flags().GetString("name")
		p.DocID, _ = cmd.Flags().GetString("doc-id")
		p.Content, _ = cmd.Flags().GetString("content")
		file, _ := cmd.Flags().GetString("file")

		if file != "" {
			data, err := os.ReadFile(file)
			if err != nil {
				return fmt.Errorf("read policy file: %w", err)
			}
			p.Content = string(data)
		}
		if strings.TrimSpace(p.Content) == "" {
			return errors.New("policy content is empty (use --content or --file)")
		}
		if p.PolicyName == "" {
			p.PolicyName = p.PolicyID
		}
		if p.DocID == "" {
			p.DocID = p.PolicyID
		}

		database, lookup, err := openPolicies(cmd)
		if err != nil {
			return err
		}
		defer database.Close()

		if err := lookup.Add(cmd.Context(), p); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Stored policy %s (%d document(s) total).\n", p.PolicyID, lookup.Len())
		return nil
	},
}

var policyRefreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Reload policies from the store and report the count",
	RunE: func(cmd *cobra.Command, args []string) error {
		database, lookup, err := openPolicies(cmd)
		if err != nil {
			return err
		}
		defer database.Close()

		if err := lookup.Refresh(cmd.Context()); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Loaded %d policy document(s).\n", lookup.Len())
		return nil
	},
}

func truncateLine(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	if r := []rune(s); len(r) > n {
		return string(r[:n-3]) + "..."
	}
	return s
}

func init() {
	policyListCmd.Flags().Bool("json", false, "print as JSON")

	policyQueryCmd.Flags().String("type", "", "restrict to a policy type (e.g. compensation)")
	policyQueryCmd.Flags().Int("top", 0, "maximum results (default: policies.top_k)")
	policyQueryCmd.Flags().Bool("json", false, "print as JSON")

	policyAddCmd.Flags().String("id", "", "policy id (required)")
	policyAddCmd.Flags().String("type", "compensation", "policy type")
	policyAddCmd.Flags().String("name", "", "policy name (default: id)")
	policyAddCmd.Flags().String("doc-id", "", "source document id (default: id)")
	policyAddCmd.Flags().String("content", "", "policy text")
	policyAddCmd.Flags().String("file", "", "read the policy text from a file")
	policyAddCmd.MarkFlagRequired("id")

	policyCmd.AddCommand(policyListCmd)
	policyCmd.AddCommand(policyQueryCmd)
	policyCmd.AddCommand(policyAddCmd)
	policyCmd.AddCommand(policyRefreshCmd)
}
