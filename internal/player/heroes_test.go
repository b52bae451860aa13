package player

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/avelins/dotalog/internal/opendota"
)

func TestTopHeroes(t *testing.T) {
	raw := []opendota.PlayerHero{
		{HeroID: "14", Games: 30, Win: 18},
		{HeroID: "8", Games: 55, Win: 20},
		{HeroID: "0", Games: 10, Win: 5},   // unplayable hero id
		{HeroID: "21", Games: 0, Win: 0},   // never played
		{HeroID: "notanumber", Games: 5},   // garbage id
		{HeroID: "99", Games: 55, Win: 30}, // ties with hero 8 on games
	}

	got := TopHeroes(raw, 10)

	assert.Equal(t, []HeroStat{
		{HeroID: 8, Games: 55, Win: 20},
		{HeroID: 99, Games: 55, Win: 30},
		{HeroID: 14, Games: 30, Win: 18},
	}, got, "most played first; ties keep input order")
}

func TestTopHeroesLimit(t *testing.T) {
	raw := []opendota.PlayerHero{
		{HeroID: "1", Games: 3},
		{HeroID: "2", Games: 2},
		{HeroID: "3", Games: 1},
	}

	got := TopHeroes(raw, 2)

	assert.Len(t, got, 2)
	assert.Equal(t, 1, got[0].HeroID)
	assert.Equal(t, 2, got[1].HeroID)
}

func TestTopHeroesEmpty(t *testing.T) {
	assert.Empty(t, TopHeroes(nil, 20))
}
