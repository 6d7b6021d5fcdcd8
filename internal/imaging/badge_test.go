package imaging

import (
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSelectBadgesOnePerCategory(t *testing.T) {
	tests := []struct {
		name string
		in   []Variant
		want []Variant
	}{
		{"empty", nil, nil},
		{"single resolution", []Variant{Variant4K}, []Variant{Variant4K}},
		{"4k beats 8k", []Variant{Variant8K, Variant4K}, []Variant{Variant4K}},
		{"cracked beats uncensored", []Variant{VariantCracked, VariantUncensored}, []Variant{VariantCracked}},
		{"censored tops mosaic priority", []Variant{VariantUncensored, VariantLeaked, VariantCensored}, []Variant{VariantCensored}},
		{
			"category order resolution subtitle mosaic",
			[]Variant{VariantLeaked, VariantSubbed, Variant8K},
			[]Variant{Variant8K, VariantSubbed, VariantLeaked},
		},
		{
			"full set reduces to three",
			[]Variant{Variant4K, Variant8K, VariantSubbed, VariantCensored, VariantCracked, VariantLeaked, VariantUncensored},
			[]Variant{Variant4K, VariantSubbed, VariantCensored},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SelectBadges(tt.in))
		})
	}
}

func TestPlanBadgesBaseline(t *testing.T) {
	layout := Layout{ScaleRatio: 12, HorizontalOffset: 12, VerticalOffset: 6, Spacing: 6}
	sizes := map[Variant]image.Point{
		Variant4K:     {X: 200, Y: 100}, // 2:1 aspect
		VariantSubbed: {X: 150, Y: 100}, // 3:2 aspect
	}

	placements := PlanBadges(1920, 1080, []Variant{Variant4K, VariantSubbed}, sizes, layout)
	require.Len(t, placements, 2)

	badgeHeight := 1080 / 12
	first, second := placements[0], placements[1]

	assert.Equal(t, Variant4K, first.Variant)
	assert.Equal(t, 12, first.X)
	assert.Equal(t, 6, first.Y)
	assert.Equal(t, badgeHeight, first.Height)
	assert.Equal(t, badgeHeight*2, first.Width)

	// The second badge starts at the first badge's left edge plus its
	// rendered width plus the spacing, on the same baseline.
	assert.Equal(t, VariantSubbed, second.Variant)
	assert.Equal(t, first.X+first.Width+6, second.X)
	assert.Equal(t, first.Y, second.Y)
	assert.Equal(t, badgeHeight, second.Height)
	assert.Equal(t, int(float64(badgeHeight)*1.5), second.Width)
}

func TestPlanBadgesSkipsUnknownSizes(t *testing.T) {
	layout := Layout{ScaleRatio: 12, HorizontalOffset: 12, VerticalOffset: 6, Spacing: 6}
	placements := PlanBadges(1920, 1080, []Variant{Variant4K}, nil, layout)
	assert.Empty(t, placements)
}

func TestPlanBadgesDegenerateInputs(t *testing.T) {
	sizes := map[Variant]image.Point{Variant4K: {X: 2, Y: 1}}
	assert.Nil(t, PlanBadges(100, 0, []Variant{Variant4K}, sizes, Layout{ScaleRatio: 12}))
	assert.Nil(t, PlanBadges(100, 100, []Variant{Variant4K}, sizes, Layout{}))
	assert.Nil(t, PlanBadges(100, 10, []Variant{Variant4K}, sizes, Layout{ScaleRatio: 12}))
}
