package logging

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRotationDue(t *testing.T) {
	cfg := RotationConfig{MaxSize: 100, Daily: true}
	morning := time.Date(2026, 3, 1, 8, 0, 0, 0, time.Local)

	tests := []struct {
		name string
		size int64
		n    int64
		now  time.Time
		want bool
	}{
		{"empty file never rotates", 0, 500, morning.AddDate(0, 0, 2), false},
		{"fits", 50, 50, morning, false},
		{"overflows", 50, 51, morning, true},
		{"same day", 10, 1, morning.Add(10 * time.Hour), false},
		{"next day", 10, 1, morning.Add(20 * time.Hour), true},
		{"same day next year", 10, 1, morning.AddDate(1, 0, 0), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, cfg.due(tt.size, tt.n, morning, tt.now))
		})
	}

	cfg.Daily = false
	assert.False(t, cfg.due(10, 1, morning, morning.AddDate(0, 0, 3)))
}
