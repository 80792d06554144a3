package address

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const defaultResolverFetchTimeout = 15 * time.Second

// Resolver serves the hierarchy through a cache and validates complete selections.
type Resolver struct {
	source Source
	cache  Cache
	ttl    time.Duration
	logger *zap.Logger
	group  singleflight.Group

	fetchTimeout time.Duration
}

func NewResolver(source Source, cache Cache, ttl time.Duration, logger *zap.Logger) *Resolver {
	if cache == nil {
		cache = NewMemoryCache()
	}
	return &Resolver{source: source, cache: cache, ttl: ttl, logger: logger, fetchTimeout: defaultResolverFetchTimeout}
}

// LoadProvinces returns every province in the order the directory serves them.
func (r *Resolver) LoadProvinces(ctx context.Context) ([]Unit, error) {
	return r.load(ctx, provincesKey(), func(ctx context.Context) ([]Unit, error) {
		return r.source.Provinces(ctx)
	})
}

// LoadDistricts returns the districts of a province. An empty code yields an empty list without a request.
func (r *Resolver) LoadDistricts(ctx context.Context, provinceCode string) ([]Unit, error) {
	if provinceCode == "" {
		return []Unit{}, nil
	}
	return r.load(ctx, districtsKey(provinceCode), func(ctx context.Context) ([]Unit, error) {
		return r.source.Districts(ctx, provinceCode)
	})
}

// LoadWards returns the wards of a district. An empty code yields an empty list without a request.
func (r *Resolver) LoadWards(ctx context.Context, districtCode string) ([]Unit, error) {
	if districtCode == "" {
		return []Unit{}, nil
	}
	return r.load(ctx, wardsKey(districtCode), func(ctx context.Context) ([]Unit, error) {
		return r.source.Wards(ctx, districtCode)
	})
}

func (r *Resolver) load(ctx context.Context, key string, fetch func(context.Context) ([]Unit, error)) ([]Unit, error) {
	units, ok, err := r.cache.Get(ctx, key)
	if err != nil {
		r.logger.Warn("address cache read failed", zap.String("key", key), zap.Error(err))
	}
	if ok {
		return units, nil
	}

	// The shared fetch outlives any single caller; each caller still gives up on its own context.
	ch := r.group.DoChan(key, func() (interface{}, error) {
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.fetchTimeout)
		defer cancel()

		units, err := fetch(fetchCtx)
		if err != nil {
			return nil, err
		}
		if len(units) > 0 {
			if err := r.cache.Set(fetchCtx, key, units, r.ttl); err != nil {
				r.logger.Warn("address cache write failed", zap.String("key", key), zap.Error(err))
			}
		}
		return units, nil
	})

	select {
	case <-ctx.Done():
		return []Unit{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return []Unit{}, res.Err
		}
		return append([]Unit(nil), res.Val.([]Unit)...), nil
	}
}

// Resolved carries the names of a validated selection.
type Resolved struct {
	ProvinceName string
	DistrictName string
	WardName     string
}

// Resolve checks that every level is set and that each code belongs to its parent.
func (r *Resolver) Resolve(ctx context.Context, provinceCode, districtCode, wardCode string) (Resolved, error) {
	switch {
	case provinceCode == "":
		return Resolved{}, &SelectionError{Field: "province_code", Err: ErrIncomplete}
	case districtCode == "":
		return Resolved{}, &SelectionError{Field: "district_code", Err: ErrIncomplete}
	case wardCode == "":
		return Resolved{}, &SelectionError{Field: "ward_code", Err: ErrIncomplete}
	}

	provinces, err := r.LoadProvinces(ctx)
	if err != nil {
		return Resolved{}, err
	}
	province, ok := findUnit(provinces, provinceCode)
	if !ok {
		return Resolved{}, &SelectionError{Field: "province_code", Err: ErrUnknownCode}
	}

	districts, err := r.LoadDistricts(ctx, provinceCode)
	if err != nil {
		return Resolved{}, err
	}
	district, ok := findUnit(districts, districtCode)
	if !ok {
		return Resolved{}, &SelectionError{Field: "district_code", Err: ErrUnknownCode}
	}

	wards, err := r.LoadWards(ctx, districtCode)
	if err != nil {
		return Resolved{}, err
	}
	ward, ok := findUnit(wards, wardCode)
	if !ok {
		return Resolved{}, &SelectionError{Field: "ward_code", Err: ErrUnknownCode}
	}

	return Resolved{ProvinceName: province.Name, DistrictName: district.Name, WardName: ward.Name}, nil
}
