package aggregate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func hr(day, hour, minute int) time.Time {
	return time.Date(2024, 3, day, hour, minute, 0, 0, time.UTC)
}

func TestTaxiHourlyFromPickups(t *testing.T) {
	testData := map[string]struct {
		pickups         []time.Time
		window          Window
		expected        *TaxiHourly
		expectedDropped int
	}{
		"empty": {
			pickups:  nil,
			expected: &TaxiHourly{T: []time.Time{}, Rides: []int64{}},
		},
		"floors to hour": {
			pickups: []time.Time{hr(1, 11, 0), hr(1, 10, 5), hr(1, 10, 59)},
			expected: &TaxiHourly{
				T:     []time.Time{hr(1, 10, 0), hr(1, 11, 0)},
				Rides: []int64{2, 1},
			},
		},
		"non utc pickups": {
			pickups: []time.Time{
				time.Date(2024, 3, 1, 5, 30, 0, 0, time.FixedZone("EST", -5*60*60)),
			},
			expected: &TaxiHourly{
				T:     []time.Time{hr(1, 10, 0)},
				Rides: []int64{1},
			},
		},
		"clips to window": {
			pickups: []time.Time{
				time.Date(2009, 1, 1, 0, 0, 0, 0, time.UTC),
				hr(1, 0, 10),
				time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC),
			},
			window: Window{
				Start: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
				End:   time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC),
			},
			expected: &TaxiHourly{
				T:     []time.Time{hr(1, 0, 0)},
				Rides: []int64{1},
			},
			expectedDropped: 2,
		},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			res, dropped := TaxiHourlyFromPickups(td.pickups, td.window)
			assert.Equal(t, td.expected, res)
			assert.Equal(t, td.expectedDropped, dropped)
		})
	}
}

func TestMergeTaxiPartitions(t *testing.T) {
	testData := map[string]struct {
		parts       []*TaxiHourly
		expected    *TaxiHourly
		expectedErr error
	}{
		"no partitions": {
			expectedErr: ErrNoData,
		},
		"all missing": {
			parts:       []*TaxiHourly{nil, nil},
			expectedErr: ErrNoData,
		},
		"missing partition skipped": {
			parts: []*TaxiHourly{
				nil,
				{T: []time.Time{hr(2, 0, 0)}, Rides: []int64{4}},
			},
			expected: &TaxiHourly{T: []time.Time{hr(2, 0, 0)}, Rides: []int64{4}},
		},
		"overlapping hours summed": {
			parts: []*TaxiHourly{
				{T: []time.Time{hr(1, 23, 0), hr(2, 0, 0)}, Rides: []int64{3, 1}},
				{T: []time.Time{hr(2, 0, 0), hr(2, 1, 0)}, Rides: []int64{2, 7}},
			},
			expected: &TaxiHourly{
				T:     []time.Time{hr(1, 23, 0), hr(2, 0, 0), hr(2, 1, 0)},
				Rides: []int64{3, 3, 7},
			},
		},
		"length mismatch": {
			parts: []*TaxiHourly{
				{T: []time.Time{hr(1, 23, 0)}, Rides: []int64{3, 1}},
			},
			expectedErr: ErrSchemaViolation,
		},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			res, err := MergeTaxiPartitions(td.parts)
			if td.expectedErr != nil {
				require.ErrorIs(t, err, td.expectedErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, td.expected, res)
		})
	}
}

func TestMergeTaxiPartitionsAssociative(t *testing.T) {
	var pickups []time.Time
	for i := 0; i < 500; i++ {
		pickups = append(pickups, hr(1, 0, 0).Add(time.Duration(i*7)*time.Minute))
	}

	union, _ := TaxiHourlyFromPickups(pickups, Window{})

	a, _ := TaxiHourlyFromPickups(pickups[:120], Window{})
	b, _ := TaxiHourlyFromPickups(pickups[120:333], Window{})
	c, _ := TaxiHourlyFromPickups(pickups[333:], Window{})

	abc, err := MergeTaxiPartitions([]*TaxiHourly{a, b, c})
	require.NoError(t, err)
	assert.Equal(t, union, abc)

	ab, err := MergeTaxiPartitions([]*TaxiHourly{a, b})
	require.NoError(t, err)
	left, err := MergeTaxiPartitions([]*TaxiHourly{ab, c})
	require.NoError(t, err)

	bc, err := MergeTaxiPartitions([]*TaxiHourly{b, c})
	require.NoError(t, err)
	right, err := MergeTaxiPartitions([]*TaxiHourly{a, bc})
	require.NoError(t, err)

	assert.Equal(t, left, right)
	assert.Equal(t, union, left)
	assert.Equal(t, int64(500), left.Total())
}
