// Package mocks provides test doubles for the spatial gateway.
package mocks

import (
	"context"

	model "github.com/sells-group/impact-cli/internal/model"
	spatial "github.com/sells-group/impact-cli/internal/spatial"
	mock "github.com/stretchr/testify/mock"
)

// MockGateway is a mock type for the Gateway interface.
type MockGateway struct {
	mock.Mock
}

// SumOverRegion provides a mock function with given fields: ctx, regionID, resolution, c
func (_m *MockGateway) SumOverRegion(ctx context.Context, regionID string, resolution int, c spatial.Column) (float64, error) {
	ret := _m.Called(ctx, regionID, resolution, c)

	if len(ret) == 0 {
		panic("no return value specified for SumOverRegion")
	}

	if rf, ok := ret.Get(0).(func(context.Context, string, int, spatial.Column) (float64, error)); ok {
		return rf(ctx, regionID, resolution, c)
	}
	return ret.Get(0).(float64), ret.Error(1)
}

// SumProductOverRegion provides a mock function with given fields: ctx, regionID, resolution, a, b
func (_m *MockGateway) SumProductOverRegion(ctx context.Context, regionID string, resolution int, a spatial.Column, b spatial.Column) (float64, error) {
	ret := _m.Called(ctx, regionID, resolution, a, b)

	if len(ret) == 0 {
		panic("no return value specified for SumProductOverRegion")
	}

	if rf, ok := ret.Get(0).(func(context.Context, string, int, spatial.Column, spatial.Column) (float64, error)); ok {
		return rf(ctx, regionID, resolution, a, b)
	}
	return ret.Get(0).(float64), ret.Error(1)
}

// SumTripleProductOverRegion provides a mock function with given fields: ctx, regionID, resolution, a, b, c
func (_m *MockGateway) SumTripleProductOverRegion(ctx context.Context, regionID string, resolution int, a spatial.Column, b spatial.Column, c spatial.Column) (float64, error) {
	ret := _m.Called(ctx, regionID, resolution, a, b, c)

	if len(ret) == 0 {
		panic("no return value specified for SumTripleProductOverRegion")
	}

	if rf, ok := ret.Get(0).(func(context.Context, string, int, spatial.Column, spatial.Column, spatial.Column) (float64, error)); ok {
		return rf(ctx, regionID, resolution, a, b, c)
	}
	return ret.Get(0).(float64), ret.Error(1)
}

// ShareAboveThreshold provides a mock function with given fields: ctx, regionID, resolution, c, threshold
func (_m *MockGateway) ShareAboveThreshold(ctx context.Context, regionID string, resolution int, c spatial.Column, threshold float64) (float64, error) {
	ret := _m.Called(ctx, regionID, resolution, c, threshold)

	if len(ret) == 0 {
		panic("no return value specified for ShareAboveThreshold")
	}

	if rf, ok := ret.Get(0).(func(context.Context, string, int, spatial.Column, float64) (float64, error)); ok {
		return rf(ctx, regionID, resolution, c, threshold)
	}
	return ret.Get(0).(float64), ret.Error(1)
}

// MaterialPhysicalLayer provides a mock function with given fields: ctx, materialID, layerType
func (_m *MockGateway) MaterialPhysicalLayer(ctx context.Context, materialID string, layerType spatial.LayerType) (spatial.Layer, error) {
	ret := _m.Called(ctx, materialID, layerType)

	if len(ret) == 0 {
		panic("no return value specified for MaterialPhysicalLayer")
	}

	if rf, ok := ret.Get(0).(func(context.Context, string, spatial.LayerType) (spatial.Layer, error)); ok {
		return rf(ctx, materialID, layerType)
	}
	return ret.Get(0).(spatial.Layer), ret.Error(1)
}

// IndicatorCoefficient provides a mock function with given fields: ctx, adminRegionID, materialID, indicator
func (_m *MockGateway) IndicatorCoefficient(ctx context.Context, adminRegionID string, materialID string, indicator model.IndicatorType) (float64, error) {
	ret := _m.Called(ctx, adminRegionID, materialID, indicator)

	if len(ret) == 0 {
		panic("no return value specified for IndicatorCoefficient")
	}

	if rf, ok := ret.Get(0).(func(context.Context, string, string, model.IndicatorType) (float64, error)); ok {
		return rf(ctx, adminRegionID, materialID, indicator)
	}
	return ret.Get(0).(float64), ret.Error(1)
}

// NewMockGateway creates a new instance of MockGateway.
func NewMockGateway(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockGateway {
	mock := &MockGateway{}
	mock.Test(t)

	t.Cleanup(func() { mock.AssertExpectations(t) })

	return mock
}
