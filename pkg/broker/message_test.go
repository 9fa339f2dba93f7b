package broker

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRoutingKey(t *testing.T) {
	tests := []struct {
		name string
		key  string
		want RoutingKey
		err  bool
	}{
		{
			name: "order event",
			key:  "pos.softrestaurant.order.created",
			want: RoutingKey{Vendor: "softrestaurant", Entity: "order", Verb: "created"},
		},
		{
			name: "shift close",
			key:  "pos.softrestaurant.shift.closed",
			want: RoutingKey{Vendor: "softrestaurant", Entity: "shift", Verb: "closed"},
		},
		{
			name: "heartbeat short form",
			key:  "pos.softrestaurant.heartbeat",
			want: RoutingKey{Vendor: "softrestaurant", Entity: "heartbeat"},
		},
		{
			name: "three segments but not heartbeat",
			key:  "pos.softrestaurant.order",
			err:  true,
		},
		{
			name: "wrong prefix",
			key:  "command.softrestaurant.order.created",
			err:  true,
		},
		{
			name: "too many segments",
			key:  "pos.vendor.order.created.extra",
			err:  true,
		},
		{
			name: "empty segment",
			key:  "pos..order.created",
			err:  true,
		},
		{
			name: "empty key",
			key:  "",
			err:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseRoutingKey(tt.key)
			if tt.err {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRoutingKeyHandlerKey(t *testing.T) {
	assert.Equal(t, "order.created", RoutingKey{Vendor: "v", Entity: "order", Verb: "created"}.HandlerKey())
	assert.Equal(t, "heartbeat", RoutingKey{Vendor: "v", Entity: "heartbeat"}.HandlerKey())
}

func TestRoutingKeyString(t *testing.T) {
	assert.Equal(t, "pos.v.order.created", RoutingKey{Vendor: "v", Entity: "order", Verb: "created"}.String())
	assert.Equal(t, "pos.v.heartbeat", RoutingKey{Vendor: "v", Entity: "heartbeat"}.String())
}
