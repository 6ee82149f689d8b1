package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kailas-cloud/ontology/internal/domain/aggregation"
	domattr "github.com/kailas-cloud/ontology/internal/domain/attribution"
	logpkg "github.com/kailas-cloud/ontology/internal/logger"
)

var policyFlag string

var attributeCmd = &cobra.Command{
	Use:   "attribute <subject>",
	Short: "Attribute one subject and print the result as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		a, err := newApplication(ctx, resolveEnv())
		if err != nil {
			return err
		}
		defer a.Close()

		ctx = logpkg.ContextWithLogger(ctx, a.logger.With(zap.String("command", "attribute")))
		res, err := a.attribution.Attribute(ctx, args[0], aggregation.Kind(policyFlag))
		if err != nil {
			return fmt.Errorf("attribute %q: %w", args[0], err)
		}

		out, err := json.MarshalIndent(resultView(&res), "", "  ")
		if err != nil {
			return fmt.Errorf("encode result: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(out))
		return nil
	},
}

func init() {
	attributeCmd.Flags().StringVarP(&policyFlag, "policy", "p", "",
		"aggregation policy: weighted_sum or best_match (default: attribution.policy from config)")
}

type identityView struct {
	Name        string   `json:"name"`
	Percent     *float64 `json:"percent,omitempty"`
	Weight      *float64 `json:"weight,omitempty"`
	Votes       *int     `json:"votes,omitempty"`
	Valence     string   `json:"valence"`
	CoreFear    string   `json:"core_fear"`
	CoreDesire  string   `json:"core_desire"`
	Description string   `json:"description"`
}

type resultJSON struct {
	Username           string         `json:"username"`
	Policy             string         `json:"policy"`
	TotalPostsAnalyzed int            `json:"total_posts_analyzed"`
	Identities         []identityView `json:"identities"`
}

func resultView(res *domattr.Result) resultJSON {
	ids := res.Identities()
	views := make([]identityView, len(ids))
	for i, id := range ids {
		weight, votes := id.Weight, id.Votes
		views[i] = identityView{
			Name:        id.Name,
			Valence:     id.Metadata.Valence,
			CoreFear:    id.Metadata.CoreFear,
			CoreDesire:  id.Metadata.CoreDesire,
			Description: id.Metadata.Description,
		}
		if res.Policy() == aggregation.BestMatchKind {
			views[i].Weight = &weight
			views[i].Votes = &votes
		} else {
			views[i].Percent = &weight
		}
	}
	return resultJSON{
		Username:           res.Subject(),
		Policy:             string(res.Policy()),
		TotalPostsAnalyzed: res.TotalDocuments(),
		Identities:         views,
	}
}
