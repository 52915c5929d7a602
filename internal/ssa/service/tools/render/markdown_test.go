package render

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kiosk404/sankhya-agent/internal/ssa/service/gateway"
)

func TestMoney(t *testing.T) {
	tests := map[float64]string{
		0:          "0.00",
		12.5:       "12.50",
		1234.567:   "1,234.57",
		-9876543.2: "-9,876,543.20",
	}
	for in, want := range tests {
		assert.Equal(t, want, Money(in))
	}
}

func TestTable(t *testing.T) {
	assert.Equal(t, EmptyTable, Table(nil, nil))
	assert.Equal(t, EmptyTable, ResultTable(nil))

	got := Table(nil, []gateway.Row{{"B": "x|y", "A": nil}})
	assert.Equal(t, "| A | B |\n| --- | --- |\n|  | x\\|y |", got)

	rs := &gateway.ResultSet{
		Columns: []string{"Z", "A"},
		Rows:    []gateway.Row{{"Z": 1.5, "A": float64(3)}},
	}
	assert.Equal(t, "| Z | A |\n| --- | --- |\n| 1.5 | 3 |", ResultTable(rs))
}

func TestToFloat(t *testing.T) {
	assert.Equal(t, 2.5, ToFloat(" 2.5 "))
	assert.Equal(t, float64(4), ToFloat(4))
	assert.Zero(t, ToFloat(nil))
}
