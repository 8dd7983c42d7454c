package sessions

import (
	"strings"

	"github.com/mssola/user_agent"
)

// ParseDevice extracts browser and OS details from a User-Agent header.
func ParseDevice(userAgent, ip string) Device {
	device := Device{
		UserAgent: userAgent,
		IP:        ip,
	}
	if strings.TrimSpace(userAgent) == "" {
		return device
	}

	ua := user_agent.New(userAgent)
	device.Browser, device.BrowserVersion = ua.Browser()
	device.OS = ua.OS()
	device.Platform = ua.Platform()
	device.IsMobile = ua.Mobile()
	device.IsBot = ua.Bot()
	return device
}
