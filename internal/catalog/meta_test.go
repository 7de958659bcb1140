package catalog

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildMeta_Temporal(t *testing.T) {
	tests := []struct {
		name         string
		start, end   string
		wantEnded    bool
		wantUpcoming bool
		wantOngoing  bool
		wantDuration int
	}{
		{"Ended yesterday", "10 June 2025", "14 June 2025", true, false, false, 5},
		{"Ongoing", "14 June 2025", "16 June 2025", false, false, true, 3},
		{"Starts today", "15 June 2025", "19 June 2025", false, false, true, 5},
		{"Upcoming", "1 July 2025", "5 July 2025", false, true, false, 5},
		{"Past start without end", "1 June 2025", "", true, false, false, 0},
		{"Future start without end", "1 July 2025", "", false, true, false, 0},
		{"Only end in past", "", "1 June 2025", true, false, false, 0},
		{"No dates", "", "", false, false, false, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := BuildMeta(Record{Name: "SMSTS | Chelmsford", StartDate: tt.start, EndDate: tt.end}, testAsOf)
			assert.Equal(t, tt.wantEnded, m.Ended, "Ended")
			assert.Equal(t, tt.wantUpcoming, m.IsUpcoming, "IsUpcoming")
			assert.Equal(t, tt.wantOngoing, m.IsOngoing, "IsOngoing")
			assert.Equal(t, tt.wantDuration, m.DurationDays, "DurationDays")
		})
	}
}

func TestBuildMeta_Attributes(t *testing.T) {
	m := BuildMeta(Record{
		Name:            "Site Management Safety Training Scheme Refresher | Basildon",
		Price:           "£1,250.00 + VAT",
		AvailableSpaces: "3 left",
		StartDate:       "1 July 2025",
	}, testAsOf)

	assert.Equal(t, TypeRefresher, m.Type)
	assert.Equal(t, "Basildon", m.Location)
	assert.True(t, m.HasPrice)
	assert.InDelta(t, 1250, m.Price, 0.001)
	assert.True(t, m.HasSpaces)
	assert.Equal(t, 3, m.Spaces)
	require.NotNil(t, m.Start)
	assert.Nil(t, m.End)
}

func TestExtractLocation(t *testing.T) {
	assert.Equal(t, "Chelmsford", ExtractLocation("SMSTS | Chelmsford"))
	assert.Equal(t, "Chelmsford", ExtractLocation("SMSTS | Chelmsford | Weekend"))
	assert.Equal(t, UnknownLocation, ExtractLocation("SMSTS Online"))
	assert.Equal(t, UnknownLocation, ExtractLocation("SMSTS |  "))
}

func TestTypeOf(t *testing.T) {
	assert.Equal(t, TypeRefresher, TypeOf("SMSTS REFRESHER | Chelmsford"))
	assert.Equal(t, TypeStandard, TypeOf("SMSTS | Chelmsford"))

	ct, ok := ParseCourseType(" Refresher ")
	assert.True(t, ok)
	assert.Equal(t, TypeRefresher, ct)
	_, ok = ParseCourseType("advanced")
	assert.False(t, ok)
}

func TestParsePriceAndSpaces(t *testing.T) {
	tests := []struct {
		in     string
		want   float64
		wantOK bool
	}{
		{"350", 350, true},
		{"£400.50", 400.5, true},
		{"1,250", 1250, true},
		{"POA", 0, false},
		{"", 0, false},
	}
	for _, tt := range tests {
		got, ok := ParsePrice(tt.in)
		assert.Equal(t, tt.wantOK, ok, tt.in)
		assert.InDelta(t, tt.want, got, 0.001, tt.in)
	}

	n, ok := ParseSpaces("0")
	assert.True(t, ok)
	assert.Equal(t, 0, n)
	_, ok = ParseSpaces("Full")
	assert.False(t, ok)
}

func TestRecordJSON(t *testing.T) {
	raw := `[
		{"name":"SMSTS | Chelmsford","price":350,"start_date":"1 July 2025","end_date":"5 July 2025","available_spaces":"4","link":"https://example.com/a"},
		{"name":"SSSTS | Basildon","price":"£250","available_spaces":null,"link":"https://example.com/b"}
	]`
	var records []Record
	require.NoError(t, json.Unmarshal([]byte(raw), &records))
	require.Len(t, records, 2)

	assert.Equal(t, "350", records[0].Price.String())
	assert.Equal(t, "4", records[0].AvailableSpaces.String())
	assert.Equal(t, "1 July 2025 - 5 July 2025", records[0].Dates())
	assert.Equal(t, "£250", records[1].Price.String())
	assert.Equal(t, "", records[1].AvailableSpaces.String())
}

func TestCleanText(t *testing.T) {
	assert.Equal(t, "SMSTS | Chelmsford", cleanText("<b>SMSTS</b> | Chelmsford"))
	assert.Equal(t, "5 May 2025\n12 May 2025", cleanText("5 May 2025<br/>12 May 2025"))
	assert.Equal(t, "Health & Safety", cleanText("Health &amp; Safety"))
	assert.Equal(t, "plain", cleanText("  plain "))
}
