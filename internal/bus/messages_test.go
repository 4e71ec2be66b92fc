package bus

import (
	"errors"
	"testing"
)

func TestDeviceIDFromTopic(t *testing.T) {
	tests := []struct {
		name    string
		topic   string
		index   int
		want    string
		wantErr bool
	}{
		{
			name:  "press topic",
			topic: "steward/device/button/btn-01/press",
			index: 3,
			want:  "btn-01",
		},
		{
			name:  "telemetry topic",
			topic: "steward/device/btn-01/telemetry",
			index: 2,
			want:  "btn-01",
		},
		{
			name:  "acknowledge topic",
			topic: "steward/wearable/wear-01/acknowledge",
			index: 2,
			want:  "wear-01",
		},
		{
			name:    "index out of range",
			topic:   "steward/device",
			index:   3,
			wantErr: true,
		},
		{
			name:    "empty segment",
			topic:   "steward/device//press",
			index:   2,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := deviceIDFromTopic(tt.topic, tt.index)
			if tt.wantErr {
				if !errors.Is(err, ErrBadTopic) {
					t.Fatalf("err = %v, want ErrBadTopic", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}
