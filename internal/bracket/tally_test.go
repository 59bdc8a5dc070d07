package bracket

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestPercent(t *testing.T) {
	testCases := []struct {
		name     string
		x, y     int
		expected int
	}{
		{name: "no votes", x: 0, y: 0, expected: 0},
		{name: "3 of 10", x: 3, y: 7, expected: 30},
		{name: "7 of 10", x: 7, y: 3, expected: 70},
		{name: "1 of 3 rounds down", x: 1, y: 2, expected: 33},
		{name: "2 of 3 rounds up", x: 2, y: 1, expected: 67},
		{name: "even split", x: 1, y: 1, expected: 50},
		{name: "all votes", x: 4, y: 0, expected: 100},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, Percent(tc.x, tc.y))
		})
	}
}

func TestNewTally_SidesRoundIndependently(t *testing.T) {
	// 1/7 = 14.29 and 6/7 = 85.71
	tally := NewTally(1, 6)
	assert.Equal(t, 14, tally.PercentA)
	assert.Equal(t, 86, tally.PercentB)

	// 1/8 = 12.5 and 7/8 = 87.5 both round up, so the sides sum to 101
	tally = NewTally(1, 7)
	assert.Equal(t, 13, tally.PercentA)
	assert.Equal(t, 88, tally.PercentB)
	assert.Equal(t, 101, tally.PercentA+tally.PercentB)

	empty := NewTally(0, 0)
	assert.Equal(t, 0, empty.PercentA)
	assert.Equal(t, 0, empty.PercentB)
	assert.Equal(t, 0, empty.Total())
}

func TestTallyWinner(t *testing.T) {
	m := &Match{SideA: uuid.New(), SideB: uuid.New()}

	assert.Equal(t, m.SideA, NewTally(3, 2).Winner(m))
	assert.Equal(t, m.SideB, NewTally(2, 3).Winner(m))
	// Ties favour side A, including the no-vote case
	assert.Equal(t, m.SideA, NewTally(4, 4).Winner(m))
	assert.Equal(t, m.SideA, NewTally(0, 0).Winner(m))
}

func TestParseChoice(t *testing.T) {
	c, err := ParseChoice("a")
	assert.NoError(t, err)
	assert.Equal(t, ChoiceA, c)

	c, err = ParseChoice(" B ")
	assert.NoError(t, err)
	assert.Equal(t, ChoiceB, c)

	_, err = ParseChoice("C")
	assert.Error(t, err)
}
