// Package spatial is the query contract to the H3 aggregation backend: sums of
// raster layers over the cells covered by a GeoRegion.
package spatial

import (
	"context"

	"github.com/sells-group/impact-cli/internal/model"
)

// LayerType names the material layers a material is mapped to.
type LayerType string

const (
	LayerProducer LayerType = "producer"
	LayerHarvest  LayerType = "harvest"
)

// Column identifies one value column of an H3 table.
type Column struct {
	Table  string
	Column string
}

// Layer is a material-bound H3 dataset.
type Layer struct {
	ID         string
	Column     Column
	Resolution int
}

// Gateway aggregates H3 layers over a region. All calls take an explicit
// resolution to which the region's compacted cells are expanded.
type Gateway interface {
	// SumOverRegion sums one column over the region's cells.
	SumOverRegion(ctx context.Context, regionID string, resolution int, c Column) (float64, error)

	// SumProductOverRegion sums a*b per cell over the region.
	SumProductOverRegion(ctx context.Context, regionID string, resolution int, a, b Column) (float64, error)

	// SumTripleProductOverRegion sums a*b*c per cell over the region.
	SumTripleProductOverRegion(ctx context.Context, regionID string, resolution int, a, b, c Column) (float64, error)

	// ShareAboveThreshold returns the fraction of region cells whose value in c
	// exceeds threshold, rounded to two decimals.
	ShareAboveThreshold(ctx context.Context, regionID string, resolution int, c Column, threshold float64) (float64, error)

	// MaterialPhysicalLayer returns the layer bound to a material. It fails
	// with *MissingSpatialDataError when there is no mapping.
	MaterialPhysicalLayer(ctx context.Context, materialID string, layerType LayerType) (Layer, error)

	// IndicatorCoefficient returns the reference coefficient for a material,
	// preferring the admin-region specific value over the global one. It
	// returns 0 when none exists.
	IndicatorCoefficient(ctx context.Context, adminRegionID, materialID string, indicator model.IndicatorType) (float64, error)
}
