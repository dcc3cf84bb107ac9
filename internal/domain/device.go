package domain

import "time"

// Platform is the mobile OS a push token belongs to.
type Platform string

const (
	PlatformAndroid Platform = "android"
	PlatformIOS     Platform = "ios"
)

func ParsePlatform(s string) (Platform, error) {
	switch Platform(s) {
	case PlatformAndroid, PlatformIOS:
		return Platform(s), nil
	}
	return "", Invalid("platform must be 'android' or 'ios'")
}

// DeviceToken is unique per (UserID, Platform, DeviceID).
type DeviceToken struct {
	UserID    string    `json:"user_id"`
	Platform  Platform  `json:"platform"`
	Token     string    `json:"token"`
	DeviceID  string    `json:"device_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
