package analytics

import (
	"github.com/mssola/user_agent"
)

// Device categories.
const (
	DevicePC         = "pc"
	DeviceSmartphone = "smartphone"
	DeviceCrawler    = "crawler"
)

type Classification struct {
	Category string
	OS       string
}

// Classifier maps a User-Agent string to a device category. ok is false when
// the agent cannot be classified.
type Classifier interface {
	Classify(userAgent string) (c Classification, ok bool)
}

// UAClassifier classifies with mssola/user_agent.
type UAClassifier struct{}

func (UAClassifier) Classify(userAgent string) (Classification, bool) {
	if userAgent == "" {
		return Classification{}, false
	}

	ua := user_agent.New(userAgent)
	os := ua.OSInfo().Name
	if os == "" {
		os = ua.OS()
	}

	switch {
	case ua.Bot():
		return Classification{Category: DeviceCrawler, OS: os}, true
	case ua.Mobile():
		return Classification{Category: DeviceSmartphone, OS: os}, true
	case os != "":
		return Classification{Category: DevicePC, OS: os}, true
	}
	return Classification{}, false
}
