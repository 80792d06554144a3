package address

// Stage is how far down the hierarchy a selection has progressed.
type Stage int

const (
	StageEmpty Stage = iota
	StageProvinceChosen
	StageDistrictChosen
	StageWardChosen
)

func (s Stage) String() string {
	switch s {
	case StageProvinceChosen:
		return "province_chosen"
	case StageDistrictChosen:
		return "district_chosen"
	case StageWardChosen:
		return "ward_chosen"
	default:
		return "empty"
	}
}

// Selection is the province/district/ward choice of one address form.
// Changing a level clears every level below it, so a district or ward chosen
// under a previous parent never survives a parent change.
type Selection struct {
	Province string `json:"province"`
	District string `json:"district"`
	Ward     string `json:"ward"`
}

// SetProvince sets the province and, when it changed, clears district and ward.
func (s *Selection) SetProvince(code string) {
	if s.Province == code {
		return
	}
	s.Province = code
	s.District = ""
	s.Ward = ""
}

// SetDistrict sets the district and, when it changed, clears the ward.
func (s *Selection) SetDistrict(code string) {
	if s.District == code {
		return
	}
	s.District = code
	s.Ward = ""
}

func (s *Selection) SetWard(code string) {
	s.Ward = code
}

func (s Selection) Stage() Stage {
	switch {
	case s.Province == "":
		return StageEmpty
	case s.District == "":
		return StageProvinceChosen
	case s.Ward == "":
		return StageDistrictChosen
	default:
		return StageWardChosen
	}
}

// Complete reports whether all three levels are set.
func (s Selection) Complete() bool {
	return s.Stage() == StageWardChosen
}
