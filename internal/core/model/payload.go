package model

// ImagePayload is a normalized, transport-ready encoded image.
type ImagePayload struct {
	MIMEType string
	Data     []byte
}
