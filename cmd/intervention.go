package main

import (
	"context"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/impact-cli/internal/intervention"
	"github.com/sells-group/impact-cli/internal/model"
)

var (
	interventionFile   string
	interventionFormat string
	interventionStatus string
)

var interventionCmd = &cobra.Command{
	Use:   "intervention",
	Short: "Manage scenario interventions",
	Long: "Creates, rebuilds and toggles what-if interventions. An intervention cancels a share of the " +
		"matching actual sourcing and writes the replacing sourcing as an overlay of its scenario.",
}

// readRequest parses an intervention request from a YAML (or JSON) file.
func readRequest(path string) (model.InterventionRequest, error) {
	var req model.InterventionRequest
	f, err := os.Open(path)
	if err != nil {
		return req, eris.Wrapf(err, "open %s", path)
	}
	defer f.Close() //nolint:errcheck

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&req); err != nil {
		return req, eris.Wrapf(err, "parse %s", path)
	}
	return req, nil
}

// withInterventions opens the store and hands fn an intervention service.
func withInterventions(ctx context.Context, fn func(*intervention.Service) error) error {
	st, err := initStore(ctx, "intervention")
	if err != nil {
		return err
	}
	defer st.Close() //nolint:errcheck

	svc := intervention.NewService(st, newResolver(st), newCalculator(st), cfg.Impact.Concurrency)
	return fn(svc)
}

var interventionCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create an intervention from a request file",
	RunE: func(cmd *cobra.Command, _ []string) error {
		req, err := readRequest(interventionFile)
		if err != nil {
			return err
		}
		return withInterventions(cmd.Context(), func(svc *intervention.Service) error {
			iv, err := svc.Create(cmd.Context(), req)
			if err != nil {
				return err
			}
			return writeOutput(os.Stdout, interventionFormat, summarize(iv))
		})
	},
}

var interventionReplaceCmd = &cobra.Command{
	Use:   "replace <intervention-id>",
	Short: "Rebuild an intervention and its overlay from a request file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		req, err := readRequest(interventionFile)
		if err != nil {
			return err
		}
		return withInterventions(cmd.Context(), func(svc *intervention.Service) error {
			iv, err := svc.Replace(cmd.Context(), args[0], req)
			if err != nil {
				return err
			}
			return writeOutput(os.Stdout, interventionFormat, summarize(iv))
		})
	},
}

var interventionStatusCmd = &cobra.Command{
	Use:   "status <intervention-id>",
	Short: "Activate or deactivate an intervention",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		status := model.InterventionStatus(interventionStatus)
		return withInterventions(cmd.Context(), func(svc *intervention.Service) error {
			if err := svc.SetStatus(cmd.Context(), args[0], status); err != nil {
				return err
			}
			zap.L().Info("intervention status set",
				zap.String("intervention_id", args[0]),
				zap.String("status", string(status)),
			)
			return nil
		})
	},
}

// interventionSummary is the command output: the intervention without its
// overlay plus overlay counts.
type interventionSummary struct {
	model.Intervention `yaml:",inline"`

	CanceledLocations  int `json:"canceled_locations" yaml:"canceled_locations"`
	ReplacingLocations int `json:"replacing_locations" yaml:"replacing_locations"`
}

func summarize(iv *model.Intervention) interventionSummary {
	out := *iv
	out.ReplacedSourcingLocations = nil
	out.NewSourcingLocations = nil
	return interventionSummary{
		Intervention:       out,
		CanceledLocations:  len(iv.ReplacedSourcingLocations),
		ReplacingLocations: len(iv.NewSourcingLocations),
	}
}

func init() {
	for _, c := range []*cobra.Command{interventionCreateCmd, interventionReplaceCmd} {
		c.Flags().StringVarP(&interventionFile, "file", "f", "", "intervention request file (YAML or JSON)")
		c.Flags().StringVar(&interventionFormat, "format", "json", "output format (json, yaml)")
		_ = c.MarkFlagRequired("file")
	}
	interventionStatusCmd.Flags().StringVar(&interventionStatus, "set", "", "active or inactive (required)")
	_ = interventionStatusCmd.MarkFlagRequired("set")

	interventionCmd.AddCommand(interventionCreateCmd, interventionReplaceCmd, interventionStatusCmd)
	rootCmd.AddCommand(interventionCmd)
}
