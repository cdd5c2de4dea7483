package sqlutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNullRawMessage(t *testing.T) {
	type block struct {
		HighBid int `json:"high_bid"`
	}

	null, err := ToNullRawMessage(nil)
	require.NoError(t, err)
	assert.False(t, null.Valid)

	var missing *block
	null, err = ToNullRawMessage(missing)
	require.NoError(t, err)
	assert.False(t, null.Valid, "typed nil is stored as NULL")
	assert.Nil(t, FromNullRawMessage(null))

	raw, err := ToNullRawMessage(&block{HighBid: 7})
	require.NoError(t, err)
	assert.True(t, raw.Valid)
	assert.JSONEq(t, `{"high_bid":7}`, string(FromNullRawMessage(raw)))

	_, err = ToNullRawMessage(make(chan int))
	assert.Error(t, err)
}

func TestSqlTime(t *testing.T) {
	assert.False(t, ToSqlTime(nil).Valid)
	assert.Nil(t, FromSqlTime(ToSqlTime(nil)))

	now := time.Date(2026, 10, 18, 18, 0, 0, 0, time.UTC)
	got := FromSqlTime(ToSqlTime(&now))
	require.NotNil(t, got)
	assert.True(t, now.Equal(*got))
}
