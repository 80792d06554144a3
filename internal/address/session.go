package address

import (
	"context"
	"sync"
)

// Loader loads option lists for each level.
type Loader interface {
	LoadProvinces(ctx context.Context) ([]Unit, error)
	LoadDistricts(ctx context.Context, provinceCode string) ([]Unit, error)
	LoadWards(ctx context.Context, districtCode string) ([]Unit, error)
}

// Options are the choices currently offered at each level.
type Options struct {
	Provinces []Unit `json:"provinces"`
	Districts []Unit `json:"districts"`
	Wards     []Unit `json:"wards"`
}

// Session drives a Selection together with its option lists. Each district or
// ward load is tagged with a generation; a load that finishes after a newer
// one was started is discarded and reports ErrSuperseded. A failed load leaves
// its list empty and does not touch the selection.
type Session struct {
	loader Loader

	mu          sync.Mutex
	selection   Selection
	options     Options
	districtGen uint64
	wardGen     uint64
}

func NewSession(loader Loader) *Session {
	return &Session{
		loader: loader,
		options: Options{
			Provinces: []Unit{},
			Districts: []Unit{},
			Wards:     []Unit{},
		},
	}
}

func (s *Session) LoadProvinces(ctx context.Context) error {
	units, err := s.loader.LoadProvinces(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.options.Provinces = []Unit{}
		return err
	}
	s.options.Provinces = units
	return nil
}

// SelectProvince sets the province and loads its districts.
func (s *Session) SelectProvince(ctx context.Context, code string) error {
	s.mu.Lock()
	if s.selection.Province != code {
		s.options.Districts = []Unit{}
		s.options.Wards = []Unit{}
		s.wardGen++
	}
	s.selection.SetProvince(code)
	s.districtGen++
	gen := s.districtGen
	s.mu.Unlock()

	if code == "" {
		return nil
	}

	units, err := s.loader.LoadDistricts(ctx, code)

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.districtGen {
		return ErrSuperseded
	}
	if err != nil {
		s.options.Districts = []Unit{}
		return err
	}
	s.options.Districts = units
	return nil
}

// SelectDistrict sets the district and loads its wards.
func (s *Session) SelectDistrict(ctx context.Context, code string) error {
	s.mu.Lock()
	if s.selection.District != code {
		s.options.Wards = []Unit{}
	}
	s.selection.SetDistrict(code)
	s.wardGen++
	gen := s.wardGen
	s.mu.Unlock()

	if code == "" {
		return nil
	}

	units, err := s.loader.LoadWards(ctx, code)

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.wardGen {
		return ErrSuperseded
	}
	if err != nil {
		s.options.Wards = []Unit{}
		return err
	}
	s.options.Wards = units
	return nil
}

func (s *Session) SelectWard(code string) {
	s.mu.Lock()
	s.selection.SetWard(code)
	s.mu.Unlock()
}

// Snapshot returns copies of the current selection and option lists.
func (s *Session) Snapshot() (Selection, Options) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.selection, Options{
		Provinces: append([]Unit{}, s.options.Provinces...),
		Districts: append([]Unit{}, s.options.Districts...),
		Wards:     append([]Unit{}, s.options.Wards...),
	}
}
