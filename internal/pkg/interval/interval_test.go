package interval

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func at(hour, minute int) time.Time {
	return time.Date(2024, time.March, 4, hour, minute, 0, 0, time.UTC)
}

func TestOverlap(t *testing.T) {
	cases := []struct {
		name string
		a, b Set
		want time.Duration
	}{
		{
			name: "partial overlap",
			a:    Set{New(at(9, 0), at(18, 0))},
			b:    Set{New(at(12, 0), at(13, 0))},
			want: time.Hour,
		},
		{
			name: "disjoint",
			a:    Set{New(at(9, 0), at(10, 0))},
			b:    Set{New(at(11, 0), at(12, 0))},
			want: 0,
		},
		{
			name: "touching edges produce nothing",
			a:    Set{New(at(9, 0), at(10, 0))},
			b:    Set{New(at(10, 0), at(11, 0))},
			want: 0,
		},
		{
			name: "many to many",
			a:    Set{New(at(8, 0), at(10, 0)), New(at(13, 0), at(19, 0))},
			b:    Set{New(at(9, 0), at(12, 0)), New(at(14, 0), at(18, 0))},
			want: 5 * time.Hour,
		},
		{
			name: "unbounded window",
			a:    Set{New(at(17, 0), at(20, 0))},
			b:    Set{New(Min, at(9, 0)), New(at(18, 0), Max)},
			want: 2 * time.Hour,
		},
		{
			name: "empty input",
			a:    nil,
			b:    Set{New(at(9, 0), at(10, 0))},
			want: 0,
		},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			assert.Equal(t, c.want, Total(Overlap(c.a, c.b)))
		})
	}
}

func TestOverlap_Symmetric(t *testing.T) {
	sets := []Set{
		{New(at(9, 0), at(18, 0))},
		{New(at(12, 0), at(13, 0)), New(at(17, 30), at(22, 0))},
		{New(Min, at(9, 0)), New(at(18, 0), Max)},
		{New(at(21, 0), at(23, 59))},
		nil,
	}

	for i, a := range sets {
		for j, b := range sets {
			assert.Equal(t, Total(Overlap(a, b)), Total(Overlap(b, a)), "sets %d and %d", i, j)
		}
	}
}

func TestTotalAndHours(t *testing.T) {
	s := Set{New(at(9, 0), at(12, 0)), New(at(13, 0), at(13, 30)), New(at(15, 0), at(14, 0))}

	assert.Equal(t, 3*time.Hour+30*time.Minute, Total(s))
	assert.InDelta(t, 3.5, Hours(Total(s)), 1e-9)
	assert.Equal(t, time.Duration(0), Total(nil))
}

func TestCopy_DoesNotAlias(t *testing.T) {
	s := Set{New(at(9, 0), at(10, 0))}
	c := s.Copy()
	c[0].Start = at(8, 0)

	assert.Equal(t, at(9, 0), s[0].Start)
	assert.Nil(t, Set(nil).Copy())
}
