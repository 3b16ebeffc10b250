package validate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type inner struct {
	Offset int `json:"offset" validate:"min=0,max=7"`
}

type sample struct {
	Count  int     `json:"count" validate:"gt=0"`
	Ratio  float64 `json:"ratio,omitempty" validate:"gte=0"`
	Every  string  `json:"every" validate:"duration"`
	Inner  inner   `json:"inner"`
	NoName int     `validate:"min=2"`
}

func valid() sample {
	return sample{Count: 1, Every: "10ms", NoName: 2}
}

func TestStruct(t *testing.T) {
	require.NoError(t, Struct(valid()))

	cases := []struct {
		name string
		mod  func(*sample)
		want string
	}{
		{"gt", func(s *sample) { s.Count = 0 }, "count must be greater than 0"},
		{"gte", func(s *sample) { s.Ratio = -1 }, "ratio must be at least 0"},
		{"duration", func(s *sample) { s.Every = "soon" }, "every must be a positive duration like 10ms, got 'soon'"},
		{"negative duration", func(s *sample) { s.Every = "-1s" }, "got '-1s'"},
		{"nested", func(s *sample) { s.Inner.Offset = 9 }, "offset must be at most 7"},
		{"field name", func(s *sample) { s.NoName = 1 }, "NoName must be at least 2"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := valid()
			tc.mod(&s)
			err := Struct(s)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}
