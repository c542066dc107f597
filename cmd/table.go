package main

import (
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/impact-cli/internal/impact"
	"github.com/sells-group/impact-cli/internal/model"
)

// tableFlags are the flags of the table command.
type tableFlags struct {
	indicators    []string
	startYear     int
	endYear       int
	groupBy       string
	materials     []string
	businessUnits []string
	t1Suppliers   []string
	producers     []string
	adminRegions  []string
	locationTypes []string
	scenario      string
	sortYear      int
	sortOrder     string
	page          int
	pageSize      int
	ranked        int
	compare       bool
	format        string
}

var tableOpts tableFlags

func (f tableFlags) query() (impact.Query, error) {
	q := impact.Query{
		IndicatorIDs: f.indicators,
		StartYear:    f.startYear,
		EndYear:      f.endYear,
		GroupBy:      impact.GroupBy(f.groupBy),
		Filters: model.Filters{
			MaterialIDs:     f.materials,
			BusinessUnitIDs: f.businessUnits,
			T1SupplierIDs:   f.t1Suppliers,
			ProducerIDs:     f.producers,
			AdminRegionIDs:  f.adminRegions,
		},
		ScenarioID:   f.scenario,
		SortingYear:  f.sortYear,
		SortingOrder: impact.Order(f.sortOrder),
		Page:         f.page,
		PageSize:     f.pageSize,
	}
	for _, lt := range f.locationTypes {
		t := model.LocationType(lt)
		if !t.Valid() {
			return q, eris.Errorf("unknown location type %q", lt)
		}
		q.LocationTypes = append(q.LocationTypes, t)
	}
	if f.sortOrder != "" && q.SortingOrder != impact.Asc && q.SortingOrder != impact.Desc {
		return q, eris.Errorf("unknown sort order %q (ASC, DESC)", f.sortOrder)
	}
	if f.compare && f.scenario == "" {
		return q, eris.New("--compare needs --scenario")
	}
	if f.compare && f.ranked > 0 {
		return q, eris.New("--compare and --ranked are exclusive")
	}
	return q, q.Validate()
}

var tableCmd = &cobra.Command{
	Use:   "table",
	Short: "Build an impact table",
	Long: "Aggregates indicator records per entity and year, nested along the grouping hierarchy. " +
		"Years without data are projected with the configured growth rate. --ranked keeps the top entities " +
		"and folds the rest into an aggregate; --compare sets the actual table against a scenario.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		q, err := tableOpts.query()
		if err != nil {
			return err
		}

		st, err := initStore(ctx, "table")
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		svc := impact.NewService(st, impact.Settings{
			GrowthRate:         cfg.Impact.GrowthRate,
			MaxRankingEntities: cfg.Impact.MaxRankingEntities,
			PageSize:           cfg.Impact.PageSize,
		})

		switch {
		case tableOpts.compare:
			cmp, err := svc.Compare(ctx, q)
			if err != nil {
				return eris.Wrap(err, "compare")
			}
			return writeOutput(os.Stdout, tableOpts.format, cmp)
		case tableOpts.ranked > 0:
			t, err := svc.Ranked(ctx, q, tableOpts.ranked)
			if err != nil {
				return eris.Wrap(err, "ranked table")
			}
			return writeOutput(os.Stdout, tableOpts.format, t)
		default:
			t, meta, err := svc.Table(ctx, q)
			if err != nil {
				return eris.Wrap(err, "table")
			}
			return writeOutput(os.Stdout, tableOpts.format, struct {
				Data     *impact.Table   `json:"data" yaml:"data"`
				Metadata impact.PageMeta `json:"metadata" yaml:"metadata"`
			}{t, meta})
		}
	},
}

func init() {
	f := tableCmd.Flags()
	f.StringSliceVar(&tableOpts.indicators, "indicators", nil, "indicator ids (default all)")
	f.IntVar(&tableOpts.startYear, "start-year", 0, "first year (required)")
	f.IntVar(&tableOpts.endYear, "end-year", 0, "last year (required)")
	f.StringVar(&tableOpts.groupBy, "group-by", string(impact.GroupByMaterial),
		"material, business-unit, region, t1Supplier, producer or location-type")
	f.StringSliceVar(&tableOpts.materials, "materials", nil, "material ids, descendants included")
	f.StringSliceVar(&tableOpts.businessUnits, "business-units", nil, "business unit ids, descendants included")
	f.StringSliceVar(&tableOpts.t1Suppliers, "t1-suppliers", nil, "tier-1 supplier ids")
	f.StringSliceVar(&tableOpts.producers, "producers", nil, "producer ids")
	f.StringSliceVar(&tableOpts.adminRegions, "admin-regions", nil, "admin region ids, descendants included")
	f.StringSliceVar(&tableOpts.locationTypes, "location-types", nil, "location types")
	f.StringVar(&tableOpts.scenario, "scenario", "", "scenario id whose active interventions are applied")
	f.IntVar(&tableOpts.sortYear, "sort-year", 0, "sort root rows by their value in this year")
	f.StringVar(&tableOpts.sortOrder, "sort-order", "", "ASC or DESC")
	f.IntVar(&tableOpts.page, "page", 1, "1-based page of root rows")
	f.IntVar(&tableOpts.pageSize, "page-size", 0, "root rows per page (default from config)")
	f.IntVar(&tableOpts.ranked, "ranked", 0, "keep the top N entities per indicator")
	f.BoolVar(&tableOpts.compare, "compare", false, "compare actual data against --scenario")
	f.StringVar(&tableOpts.format, "format", "json", "output format (json, yaml)")
	_ = tableCmd.MarkFlagRequired("start-year")
	_ = tableCmd.MarkFlagRequired("end-year")
	rootCmd.AddCommand(tableCmd)
}
