package analytics

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUAClassifier(t *testing.T) {
	var c UAClassifier

	tests := []struct {
		ua       string
		category string
		ok       bool
	}{
		{windowsUA, DevicePC, true},
		{"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Safari/605.1.15", DevicePC, true},
		{iPhoneUA, DeviceSmartphone, true},
		{botUA, DeviceCrawler, true},
		{"", "", false},
	}

	for _, tt := range tests {
		got, ok := c.Classify(tt.ua)
		assert.Equal(t, tt.ok, ok, tt.ua)
		assert.Equal(t, tt.category, got.Category, tt.ua)
	}

	got, _ := c.Classify(windowsUA)
	assert.Equal(t, "Windows", got.OS)
}
