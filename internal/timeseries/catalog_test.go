package timeseries

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCatalog_CreateIsIdempotent(t *testing.T) {
	svc := setupService(t, &mockPoints{}, &mockQuerier{})
	ctx := t.Context()

	idx, err := svc.CreateChannel(ctx, ChannelSpec{Name: "tempA-T", DataType: DataTypeTimestamp, IsIndex: true})
	require.NoError(t, err)
	assert.True(t, idx.IsIndex)
	assert.NotZero(t, idx.Key)

	data, err := svc.CreateChannel(ctx, ChannelSpec{Name: "tempA", DataType: DataTypeFloat32, Index: idx.Key})
	require.NoError(t, err)
	assert.Equal(t, idx.Key, data.Index)

	again, err := svc.CreateChannel(ctx, ChannelSpec{Name: "tempA", DataType: DataTypeFloat32, Index: idx.Key})
	require.NoError(t, err)
	assert.Equal(t, data, again)

	channels, err := svc.Channels(ctx)
	require.NoError(t, err)
	require.Len(t, channels, 2)
	assert.Equal(t, "tempA", channels[0].Name)
}

func TestCatalog_CreateConflict(t *testing.T) {
	svc := setupService(t, &mockPoints{}, &mockQuerier{})
	ctx := t.Context()

	idx, err := svc.CreateChannel(ctx, ChannelSpec{Name: "x-T", DataType: DataTypeTimestamp, IsIndex: true})
	require.NoError(t, err)
	_, err = svc.CreateChannel(ctx, ChannelSpec{Name: "x", DataType: DataTypeFloat32, Index: idx.Key})
	require.NoError(t, err)

	_, err = svc.CreateChannel(ctx, ChannelSpec{Name: "x", DataType: DataTypeTimestamp, IsIndex: true})
	assert.ErrorIs(t, err, ErrChannelConflict)
}

func TestCatalog_CreateInvalid(t *testing.T) {
	svc := setupService(t, &mockPoints{}, &mockQuerier{})
	ctx := t.Context()

	idx, err := svc.CreateChannel(ctx, ChannelSpec{Name: "y-T", DataType: DataTypeTimestamp, IsIndex: true})
	require.NoError(t, err)
	data, err := svc.CreateChannel(ctx, ChannelSpec{Name: "y", DataType: DataTypeFloat32, Index: idx.Key})
	require.NoError(t, err)

	tests := []struct {
		name    string
		spec    ChannelSpec
		wantErr error
	}{
		{"missing name", ChannelSpec{DataType: DataTypeTimestamp, IsIndex: true}, ErrInvalidChannel},
		{"bad data type", ChannelSpec{Name: "a", DataType: "int64", Index: 1}, ErrInvalidChannel},
		{"float index", ChannelSpec{Name: "a", DataType: DataTypeFloat32, IsIndex: true}, ErrInvalidChannel},
		{"data without index", ChannelSpec{Name: "a", DataType: DataTypeFloat32}, ErrInvalidChannel},
		{"index is data channel", ChannelSpec{Name: "a", DataType: DataTypeFloat32, Index: data.Key}, ErrInvalidChannel},
		{"index missing", ChannelSpec{Name: "a", DataType: DataTypeFloat32, Index: 9999}, ErrChannelNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreateChannel(ctx, tt.spec)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}
