package dto

type RegisterDeviceRequest struct {
	Token    string `json:"token" validate:"required,max=4096"`
	Platform string `json:"platform" validate:"required,oneof=ios android web"`
}

type UnregisterDeviceRequest struct {
	Token string `json:"token" validate:"required"`
}

type PushEnabledRequest struct {
	Enabled bool `json:"enabled"`
}
