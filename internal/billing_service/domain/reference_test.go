package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeReference(t *testing.T) {
	token := EncodeReference(PurposeTuition, "school-1", "student-9", 150000)
	assert.Equal(t, "tuition|school-1|student-9|150000", token)
}

func TestReference_RoundTrip(t *testing.T) {
	cases := []Reference{
		{PurposeType: PurposeTuition, TenantID: "school-1", SubordinateID: "student-9", Amount: 150000},
		{PurposeType: PurposeSubscription, TenantID: "t-42", SubordinateID: "monthly", Amount: 45000},
		{PurposeType: PurposeSubscription, TenantID: "t-42", SubordinateID: "", Amount: 1},
		{PurposeType: PurposeTuition, TenantID: "école-ñ", SubordinateID: "élève 7", Amount: 0},
		{PurposeType: PurposeTuition, TenantID: "a", SubordinateID: "b", Amount: 9223372036854775807},
	}

	for _, want := range cases {
		t.Run(want.TenantID+"/"+want.SubordinateID, func(t *testing.T) {
			got, err := DecodeReference(EncodeReference(want.PurposeType, want.TenantID, want.SubordinateID, want.Amount))
			require.NoError(t, err)
			assert.Equal(t, want, got)
		})
	}
}

func TestDecodeReference_Malformed(t *testing.T) {
	cases := map[string]string{
		"empty":             "",
		"too few fields":    "tuition|school-1|150000",
		"too many fields":   "tuition|school|1|student-9|150000",
		"float amount":      "tuition|school-1|student-9|1500.00",
		"negative amount":   "tuition|school-1|student-9|-5",
		"signed amount":     "tuition|school-1|student-9|+5",
		"empty amount":      "tuition|school-1|student-9|",
		"alpha amount":      "tuition|school-1|student-9|abc",
		"exponent amount":   "tuition|school-1|student-9|1e5",
		"overflowed amount": "tuition|school-1|student-9|99999999999999999999",
		"padded amount":     "tuition|school-1|student-9| 150000",
	}

	for name, token := range cases {
		t.Run(name, func(t *testing.T) {
			ref, err := DecodeReference(token)
			require.Error(t, err)
			var decodeErr *DecodeError
			require.ErrorAs(t, err, &decodeErr)
			assert.Equal(t, token, decodeErr.Token)
			assert.Zero(t, ref)
		})
	}
}

func TestContainsDelimiter(t *testing.T) {
	assert.True(t, ContainsDelimiter("a|b"))
	assert.False(t, ContainsDelimiter("school-1"))
}
