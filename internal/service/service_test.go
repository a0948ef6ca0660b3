package service

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"hostwatch/internal/sender"
)

func TestExitCode(t *testing.T) {
	delivery := &sender.DeliveryError{Sink: "discord", Err: errors.New("HTTP 401")}

	tests := []struct {
		name string
		err  error
		want int
	}{
		{"clean stop", nil, ExitOK},
		{"snapshot failure", errors.New("snapshot failed: no /proc"), ExitFailure},
		{"delivery failure", delivery, ExitDelivery},
		{"wrapped delivery failure", fmt.Errorf("run: %w", delivery), ExitDelivery},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExitCode(tt.err); got != tt.want {
				t.Errorf("ExitCode(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}

func TestOptions(t *testing.T) {
	o := newOptions(nil)
	if o.name != Name || o.stopTimeout != DefaultStopTimeout {
		t.Errorf("unexpected defaults %+v", o)
	}

	o = newOptions([]Option{WithName("hostwatch-edge"), WithStopTimeout(5 * time.Second)})
	if o.name != "hostwatch-edge" || o.stopTimeout != 5*time.Second {
		t.Errorf("options not applied: %+v", o)
	}

	o = newOptions([]Option{WithName(""), WithStopTimeout(0)})
	if o.name != Name || o.stopTimeout != DefaultStopTimeout {
		t.Errorf("empty values should keep defaults: %+v", o)
	}
}
