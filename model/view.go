package model

type ActiveView string

const (
	ViewEdit    ActiveView = "edit"
	ViewPreview ActiveView = "preview"
)

func (v ActiveView) Valid() bool {
	return v == ViewEdit || v == ViewPreview
}

// DeviceView only affects preview width, never document data.
type DeviceView string

const (
	DeviceDesktop DeviceView = "desktop"
	DeviceTablet  DeviceView = "tablet"
	DeviceMobile  DeviceView = "mobile"
)

func (d DeviceView) Valid() bool {
	return d == DeviceDesktop || d == DeviceTablet || d == DeviceMobile
}

type Direction string

const (
	Next Direction = "next"
	Prev Direction = "prev"
)
