package normalize_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/north-cloud/medgraph/internal/domain"
	"github.com/jonesrussell/north-cloud/medgraph/internal/normalize"
)

func TestCleanText(t *testing.T) {
	tests := map[string]string{
		"All India Institute of Medical Sciences[edit]": "All India Institute of Medical Sciences",
		"Christian Medical College[12][a]":              "Christian Medical College",
		"  St.   Michael&#39;s   Hospital ":             "St. Michael's Hospital",
		"<b>Mount Sinai</b> Hospital[citation needed]":  "Mount Sinai Hospital",
		"&amp;lt;i&amp;gt;Nested&amp;lt;/i&amp;gt;":    "Nested",
		"Trailing comma,":                               "Trailing comma",
		"":                                              "",
	}
	for in, want := range tests {
		got := normalize.CleanText(in)
		assert.Equal(t, want, got, in)
		assert.Equal(t, got, normalize.CleanText(got), "idempotent for %q", in)
	}
}

func TestState(t *testing.T) {
	n := normalize.New()

	tests := []struct {
		country, in, want string
	}{
		{"IND", "TN", "Tamil Nadu"},
		{"IND", "NCT of Delhi", "Delhi"},
		{"IND", "New Delhi", "Delhi"},
		{"IND", "ka", "Karnataka"},
		{"USA", "MD", "Maryland"},
		{"USA", "new york", "New York"},
		{"USA", "D.C.", "District of Columbia"},
		{"CAN", "on", "Ontario"},
		{"CAN", "Québec", "Quebec"},
		{"CHN", "Guangdong Province", "Guangdong"},
		{"CHN", "北京", "Beijing"},
		{"CHN", "Beijing Municipality", "Beijing"},
		{"CHN", "Xinjiang Uyghur Autonomous Region", "Xinjiang"},
		{"AUS", "NEW SOUTH WALES", "New South Wales"},
		{"AUS", "NSW", "NSW"},
		{"USA", "", ""},
	}
	for _, tt := range tests {
		got := n.State(tt.country, tt.in)
		assert.Equal(t, tt.want, got, "%s/%s", tt.country, tt.in)
		assert.Equal(t, got, n.State(tt.country, got), "idempotent for %s/%s", tt.country, tt.in)
	}
}

func TestNormalize_Record(t *testing.T) {
	n := normalize.New()
	in := []domain.RawRecord{{
		Name:          " Government Medical College[3] ",
		Type:          "Medical College",
		Country:       "ind",
		State:         "MH",
		City:          " Nagpur ",
		LatitudeText:  "21.1458",
		LongitudeText: " 79.0882 ",
		Attributes:    domain.Attributes{domain.AttrSource: "NMC"},
	}}

	out := n.Normalize("ind", in)
	require.Len(t, out, 1)
	rec := out[0]

	assert.Equal(t, "Government Medical College", rec.Name)
	assert.Equal(t, domain.TypeMedicalSchool, rec.Type)
	assert.Equal(t, "IND", rec.Country)
	assert.Equal(t, "Maharashtra", rec.State)
	assert.Equal(t, "Nagpur", rec.City)
	require.NotNil(t, rec.Latitude)
	assert.InDelta(t, 21.1458, *rec.Latitude, 1e-9)
	require.NotNil(t, rec.Longitude)
	assert.InDelta(t, 79.0882, *rec.Longitude, 1e-9)
	assert.Empty(t, rec.LatitudeText)

	// input untouched
	assert.Equal(t, "MH", in[0].State)
}

func TestNormalize_CoordinateValidation(t *testing.T) {
	n := normalize.New()
	out := n.Normalize("USA", []domain.RawRecord{
		{Name: "A", Latitude: domain.Float(200), Longitude: domain.Float(-75)},
		{Name: "B", LatitudeText: "not a number", LongitudeText: "-181"},
		{Name: "C", Latitude: domain.Float(math.NaN()), Longitude: domain.Float(math.Inf(1))},
		{Name: "D", LatitudeText: "-90", LongitudeText: "180"},
	})

	assert.Nil(t, out[0].Latitude)
	require.NotNil(t, out[0].Longitude)
	assert.InDelta(t, -75.0, *out[0].Longitude, 0)

	assert.Nil(t, out[1].Latitude)
	assert.Nil(t, out[1].Longitude)
	assert.Nil(t, out[2].Latitude)
	assert.Nil(t, out[2].Longitude)

	require.NotNil(t, out[3].Latitude)
	assert.InDelta(t, -90.0, *out[3].Latitude, 0)
	require.NotNil(t, out[3].Longitude)
}

func TestNormalize_Idempotent(t *testing.T) {
	n := normalize.New()
	in := []domain.RawRecord{
		{
			Name:          "Peking Union Medical College Hospital[1]",
			Type:          domain.TypeHospital,
			State:         "Beijing Municipality",
			Address:       "1 Shuaifuyuan,  Dongcheng",
			LatitudeText:  "39.91",
			LongitudeText: "116.41",
			Attributes:    domain.Attributes{domain.AttrSource: "Wikipedia", domain.AttrLocalName: " 北京协和医院 "},
		},
		{Name: "Ontario Veterinary College", Type: "vet school", State: "ON"},
	}

	once := n.Normalize("CHN", in)
	twice := n.Normalize("CHN", once)
	assert.Equal(t, once, twice)
	assert.Equal(t, "北京协和医院", once[0].Attributes.Get(domain.AttrLocalName))
	assert.Equal(t, domain.TypeVeterinarySchool, once[1].Type)
}
