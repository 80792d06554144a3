package address

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCodeAcceptsNumbersAndStrings(t *testing.T) {
	var units []Unit
	require.NoError(t, json.Unmarshal([]byte(`[{"code":1,"name":"A"},{"code":"79","name":"B"},{"code":null,"name":"C"}]`), &units))

	require.Len(t, units, 3)
	assert.Equal(t, Code("1"), units[0].Code)
	assert.Equal(t, Code("79"), units[1].Code)
	assert.Equal(t, Code(""), units[2].Code)
}

func TestSelectionClearsLowerLevels(t *testing.T) {
	var s Selection
	assert.Equal(t, StageEmpty, s.Stage())

	s.SetProvince("01")
	s.SetDistrict("001")
	s.SetWard("00001")
	assert.True(t, s.Complete())

	s.SetProvince("79")
	assert.Equal(t, Selection{Province: "79"}, s)
	assert.Equal(t, StageProvinceChosen, s.Stage())

	s.SetDistrict("760")
	s.SetWard("26734")
	s.SetDistrict("761")
	assert.Equal(t, Selection{Province: "79", District: "761"}, s)
	assert.Equal(t, StageDistrictChosen, s.Stage())

	s.SetWard("26740")
	s.SetProvince("")
	assert.Equal(t, Selection{}, s)
}

func TestSelectionSameProvinceKeepsChildren(t *testing.T) {
	s := Selection{Province: "01", District: "001", Ward: "00001"}
	s.SetProvince("01")
	assert.Equal(t, "001", s.District)
	assert.Equal(t, "00001", s.Ward)
}
