package sync_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	dpdsync "github.com/kskby/dpd/pkg/dpd/sync"
)

func TestNormalize_CityWithAbbreviations(t *testing.T) {
	n := dpdsync.NewNormalizer()

	out := n.Normalize("Россия", "Московская область", "г. Москва")

	assert.Equal(t, "RU", out.CountryCode)
	assert.Equal(t, "Россия", out.CountryName)
	assert.Equal(t, "Московская", out.RegionName)
	assert.Equal(t, "Москва", out.CityName)
	assert.Equal(t, "г", out.CityAbbr)
	assert.True(t, out.IsCity)
}

func TestNormalize_Village(t *testing.T) {
	n := dpdsync.NewNormalizer()

	out := n.Normalize("россия", "обл. Тверская", "дер. Заречье")

	assert.Equal(t, "RU", out.CountryCode)
	assert.Equal(t, "Тверская", out.RegionName)
	assert.Equal(t, "Заречье", out.CityName)
	assert.Equal(t, "дер", out.CityAbbr)
	assert.False(t, out.IsCity)
}

func TestNormalize_UnknownCountry(t *testing.T) {
	n := dpdsync.NewNormalizer()

	out := n.Normalize("Атлантида", "Морская область", "г. Посейдония")

	assert.Empty(t, out.CountryCode)
	assert.Equal(t, "Атлантида", out.CountryName)
	assert.Equal(t, "Посейдония", out.CityName)
	assert.True(t, out.IsCity)
}

func TestNormalize_AllCountries(t *testing.T) {
	n := dpdsync.NewNormalizer()

	cases := map[string]string{
		"Россия":    "RU",
		"Казахстан": "KZ",
		"Беларусь":  "BY",
		"Армения":   "AM",
		"Киргизия":  "KG",
	}
	for name, code := range cases {
		assert.Equal(t, code, n.Normalize(name, "", "").CountryCode, name)
	}
}

func TestNormalize_YoFolding(t *testing.T) {
	n := dpdsync.NewNormalizer()

	out := n.Normalize("Россия", "Орловская область", "г. Орёл")
	assert.Equal(t, "Орел", out.CityName)
}

func TestNormalize_LongestAbbreviationWins(t *testing.T) {
	n := dpdsync.NewNormalizer()

	out := n.Normalize("Россия", "Ханты-Мансийский автономный округ", "пгт Белый Яр")
	assert.Equal(t, "Ханты-Мансийский", out.RegionName)
	assert.Equal(t, "Белый Яр", out.CityName)
	assert.Equal(t, "пгт", out.CityAbbr)
	assert.False(t, out.IsCity)
}

func TestNormalize_AbbreviationInsideWordNotStripped(t *testing.T) {
	n := dpdsync.NewNormalizer()

	// "г" appears inside the name but never as a standalone word.
	out := n.Normalize("Россия", "", "Волгоград")
	assert.Equal(t, "Волгоград", out.CityName)
	assert.Empty(t, out.CityAbbr)
}

func TestNormalize_RegionCodes(t *testing.T) {
	source := func(countryCode string) map[string]string {
		if countryCode != "RU" {
			return nil
		}
		return map[string]string{"московская": "77"}
	}
	n := dpdsync.NewNormalizer(dpdsync.WithRegionCodes(source))

	out := n.Normalize("Россия", "Московская область", "г. Москва")
	assert.Equal(t, "77", out.RegionCode)

	out = n.Normalize("Россия", "Тверская область", "г. Тверь")
	assert.Empty(t, out.RegionCode)
}

func TestNormalize_CityAliases(t *testing.T) {
	aliases := dpdsync.CityAliases{
		"Москва": {
			"зеленоград": {"москва", "московская"},
		},
	}
	n := dpdsync.NewNormalizer(dpdsync.WithCityAliases(aliases))

	out := n.Normalize("Россия", "Московская область", "г. Зеленоград")
	assert.Equal(t, "Москва", out.CityName)

	// Same alias outside its region is left alone.
	out = n.Normalize("Россия", "Тверская область", "г. Зеленоград")
	assert.Equal(t, "Зеленоград", out.CityName)
}
