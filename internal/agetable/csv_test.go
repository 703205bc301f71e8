package agetable

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadCSV(t *testing.T) {
	t.Parallel()

	raw := strings.Join([]string{
		"ath_id,name,max_age,01_01,02_01",
		"101,Alice,34,33,34",
		",Unknown,19,,",
		"104.0,Dana,50.0,49.0,",
	}, "\n") + "\n"

	table, err := ReadCSV(strings.NewReader(raw))
	require.NoError(t, err)
	require.Equal(t, []string{"01_01", "02_01"}, table.Dates)
	require.Equal(t, 3, table.Len())

	assert.Equal(t, int64(101), *table.Rows[0].AthleteID)
	assert.Equal(t, 34, *table.Rows[0].Expected)
	assert.Equal(t, 33, *table.Rows[0].Observed[0])

	// Absent identifier and cells decode to nil, not zero.
	assert.Nil(t, table.Rows[1].AthleteID)
	assert.Nil(t, table.Rows[1].Observed[0])
	assert.Nil(t, table.Rows[1].Observed[1])

	// Dataframe-style float renderings of integer columns are tolerated.
	assert.Equal(t, int64(104), *table.Rows[2].AthleteID)
	assert.Equal(t, 50, *table.Rows[2].Expected)
	assert.Equal(t, 49, *table.Rows[2].Observed[0])
}

func TestReadCSVRejectsBadInput(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		raw  string
	}{
		{name: "wrong header", raw: "id,name,age\n1,Alice,34\n"},
		{name: "non-numeric id", raw: "ath_id,name,max_age\nabc,Alice,34\n"},
		{name: "non-numeric cell", raw: "ath_id,name,max_age,01_01\n101,Alice,34,young\n"},
		{name: "short record", raw: "ath_id,name,max_age\n101\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := ReadCSV(strings.NewReader(tt.raw))
			require.Error(t, err)
		})
	}
}

func TestWriteCSVPreservesColumnOrder(t *testing.T) {
	t.Parallel()

	table := testTable()
	table.EnsureDate("03_01")
	require.NoError(t, table.SetObserved(1, "03_01", 28))

	data, err := MarshalCSV(table)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Equal(t, "ath_id,name,max_age,01_01,02_01,03_01", lines[0])
	require.Len(t, lines, 5)
	assert.Equal(t, "102,Bob,28,27,,28", lines[2])
	assert.Equal(t, ",Unknown,19,,,", lines[3])
}
