package utils

import (
	"fmt"
	"net/url"
)

// TrackingPixelURL builds the open-tracking pixel URL for a delivery record.
func TrackingPixelURL(baseURL, deliveryID string) string {
	return fmt.Sprintf("%s/api/open?id=%s", baseURL, url.QueryEscape(deliveryID))
}

// RenderTrackedBody appends the open-tracking pixel to an email body.
func RenderTrackedBody(body, baseURL, deliveryID string) string {
	pixelURL := TrackingPixelURL(baseURL, deliveryID)
	pixel := fmt.Sprintf(`<img src="%s" alt="" width="1" height="1" style="display:none">`, pixelURL)
	return body + "<br><br>" + pixel
}

// TransparentPixel returns a 1x1 transparent GIF
func TransparentPixel() []byte {
	return []byte{
		0x47, 0x49, 0x46, 0x38, 0x39, 0x61, 0x01, 0x00, 0x01, 0x00,
		0x80, 0x00, 0x00, 0xff, 0xff, 0xff, 0x00, 0x00, 0x00, 0x21,
		0xf9, 0x04, 0x01, 0x00, 0x00, 0x00, 0x00, 0x2c, 0x00, 0x00,
		0x00, 0x00, 0x01, 0x00, 0x01, 0x00, 0x00, 0x02, 0x02, 0x44,
		0x01, 0x00, 0x3b,
	}
}
